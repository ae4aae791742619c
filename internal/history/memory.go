package history

import (
	"context"
	"sync"
)

// MemoryStore 仅在进程内保存历史，用于测试与演练
type MemoryStore struct {
	mu    sync.Mutex
	limit int
	links []string
}

func NewMemoryStore(limit int, seed ...string) *MemoryStore {
	s := NewSet(seed...)
	s.Trim(limit)
	return &MemoryStore{limit: limit, links: s.Links()}
}

func (m *MemoryStore) Load(ctx context.Context) *Set {
	m.mu.Lock()
	defer m.mu.Unlock()
	return NewSet(m.links...)
}

func (m *MemoryStore) Commit(ctx context.Context, links []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links = merge(NewSet(m.links...), links, m.limit).Links()
	return nil
}
