package history

import "context"

// Store 持久化已见过的 link；Commit 是唯一的写入口
type Store interface {
	// Load 读取持久化状态；数据缺失或损坏时返回空集合
	Load(ctx context.Context) *Set
	// Commit 合并 links，按插入顺序裁剪到上限后写回
	Commit(ctx context.Context, links []string) error
}

func merge(current *Set, links []string, limit int) *Set {
	for _, l := range links {
		if l != "" {
			current.Add(l)
		}
	}
	current.Trim(limit)
	return current
}
