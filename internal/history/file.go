package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// FileStore 以 JSON 字符串数组保存历史 link
type FileStore struct {
	mu    sync.Mutex
	path  string
	limit int
}

func NewFileStore(path string, limit int) *FileStore {
	return &FileStore{path: path, limit: limit}
}

func (f *FileStore) Load(ctx context.Context) *Set {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.read()
}

func (f *FileStore) read() *Set {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Printf("history: read %s: %v, starting empty", f.path, err)
		}
		return NewSet()
	}

	var links []string
	if err := json.Unmarshal(data, &links); err != nil {
		log.Printf("history: corrupt %s: %v, starting empty", f.path, err)
		return NewSet()
	}
	return NewSet(links...)
}

func (f *FileStore) Commit(ctx context.Context, links []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	merged := merge(f.read(), links, f.limit)

	data, err := json.MarshalIndent(merged.Links(), "", "  ")
	if err != nil {
		return fmt.Errorf("history: marshal: %w", err)
	}
	if err := writeFileAtomic(f.path, data); err != nil {
		return fmt.Errorf("history: write %s: %w", f.path, err)
	}
	return nil
}

// writeFileAtomic 先写临时文件再 rename，避免进程中断留下半截文件
func writeFileAtomic(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
