package history

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStoreLoadMissingOrCorruptIsEmpty(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	missing := NewFileStore(filepath.Join(dir, "none.json"), 10)
	if got := missing.Load(ctx).Len(); got != 0 {
		t.Fatalf("missing file: Len = %d, want 0", got)
	}

	corruptPath := filepath.Join(dir, "corrupt.json")
	if err := os.WriteFile(corruptPath, []byte(`{"not": "an array"`), 0o644); err != nil {
		t.Fatal(err)
	}
	corrupt := NewFileStore(corruptPath, 10)
	if got := corrupt.Load(ctx).Len(); got != 0 {
		t.Fatalf("corrupt file: Len = %d, want 0", got)
	}
	// Load 不改写持久化内容
	data, _ := os.ReadFile(corruptPath)
	if string(data) != `{"not": "an array"` {
		t.Fatalf("Load must not touch persisted state, got %q", data)
	}
}

func TestFileStoreCommitMergesIdempotently(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	store := NewFileStore(path, 10)
	ctx := context.Background()

	if err := store.Commit(ctx, []string{"https://a/1", "https://a/2"}); err != nil {
		t.Fatalf("Commit error: %v", err)
	}
	if err := store.Commit(ctx, []string{"https://a/2", "https://a/3"}); err != nil {
		t.Fatalf("Commit error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var links []string
	if err := json.Unmarshal(data, &links); err != nil {
		t.Fatalf("persisted history is not a JSON array: %v", err)
	}
	want := []string{"https://a/1", "https://a/2", "https://a/3"}
	if len(links) != len(want) {
		t.Fatalf("persisted %v, want %v", links, want)
	}
	for i := range want {
		if links[i] != want[i] {
			t.Fatalf("persisted %v, want %v", links, want)
		}
	}
}

func TestFileStoreCommitEvictsOldestInsertedFirst(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "history.json"), 3)
	ctx := context.Background()

	_ = store.Commit(ctx, []string{"a", "b", "c"})
	// 重新提交已存在的 a 不会刷新它的位置
	_ = store.Commit(ctx, []string{"a", "d"})

	got := store.Load(ctx)
	if got.Has("a") {
		t.Fatalf("a was inserted first and must be evicted first")
	}
	for _, l := range []string{"b", "c", "d"} {
		if !got.Has(l) {
			t.Fatalf("%s should be retained, got %v", l, got.Links())
		}
	}
}

func TestHistoryNeverExceedsCap(t *testing.T) {
	const limit = 25
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))

	stores := map[string]Store{
		"file":   NewFileStore(filepath.Join(t.TempDir(), "h.json"), limit),
		"memory": NewMemoryStore(limit),
	}
	for name, store := range stores {
		for round := 0; round < 40; round++ {
			batch := make([]string, rng.Intn(15))
			for i := range batch {
				batch[i] = fmt.Sprintf("https://x/%d", rng.Intn(120))
			}
			if err := store.Commit(ctx, batch); err != nil {
				t.Fatalf("%s: Commit error: %v", name, err)
			}
			if n := store.Load(ctx).Len(); n > limit {
				t.Fatalf("%s: history size %d exceeds cap %d after round %d", name, n, limit, round)
			}
		}
	}
}

func TestMemoryStoreSeedRespectsCap(t *testing.T) {
	m := NewMemoryStore(2, "a", "b", "c")
	got := m.Load(context.Background()).Links()
	if len(got) != 2 || got[0] != "b" || got[1] != "c" {
		t.Fatalf("seed not trimmed to most recent suffix: %v", got)
	}
}
