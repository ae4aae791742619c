package history

import (
	"context"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
)

// RedisStore 用 Redis list 保存历史：RPUSH 追加，LTRIM 保留尾部 limit 条
type RedisStore struct {
	rdb   *redis.Client
	key   string
	limit int
}

func NewRedisStore(rdb *redis.Client, key string, limit int) *RedisStore {
	return &RedisStore{rdb: rdb, key: key, limit: limit}
}

func (r *RedisStore) Load(ctx context.Context) *Set {
	links, err := r.rdb.LRange(ctx, r.key, 0, -1).Result()
	if err != nil {
		log.Printf("history: redis load %s: %v, starting empty", r.key, err)
		return NewSet()
	}
	return NewSet(links...)
}

func (r *RedisStore) Commit(ctx context.Context, links []string) error {
	// 与 Load 不同，提交时读取失败直接返回错误
	existing, err := r.rdb.LRange(ctx, r.key, 0, -1).Result()
	if err != nil {
		return fmt.Errorf("history: redis read %s: %w", r.key, err)
	}
	current := NewSet(existing...)

	fresh := make([]any, 0, len(links))
	for _, l := range links {
		if l != "" && current.Add(l) {
			fresh = append(fresh, l)
		}
	}

	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(fresh) > 0 {
			pipe.RPush(ctx, r.key, fresh...)
		}
		pipe.LTrim(ctx, r.key, int64(-r.limit), -1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("history: redis commit %s: %w", r.key, err)
	}
	return nil
}
