package storage

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/LJTian/FinRadar/internal/config"
	"github.com/LJTian/FinRadar/internal/news"
)

const listCacheTTL = 5 * time.Minute

// Channel 描述一个采集源，例如 Brazil Journal / NeoFeed
type Channel struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	Code    string `gorm:"size:64;uniqueIndex" json:"code"`
	Name    string `gorm:"size:128" json:"name"`
	BaseURL string `gorm:"size:256" json:"baseUrl"`
	Tier    int    `json:"tier"`
	Status  string `gorm:"size:32;index" json:"status"` // active / disabled

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// RankedNews 是某一天排名表中的一行
type RankedNews struct {
	ID        string            `gorm:"primaryKey;size:40" json:"id"`
	RunDate   string            `gorm:"size:10;index" json:"runDate"` // YYYY-MM-DD
	Rank      int               `gorm:"index" json:"rank"`
	Source    string            `gorm:"size:64;index" json:"source"`
	Title     string            `gorm:"size:512" json:"title"`
	URL       string            `gorm:"size:1024" json:"url"`
	Score     float64           `gorm:"index" json:"score"`
	ExtraData datatypes.JSONMap `gorm:"type:jsonb" json:"extraData"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Store struct {
	DB    *gorm.DB
	Redis *redis.Client
}

// NewStore 连接 Postgres 并迁移表结构；rdb 可为 nil（不缓存）
func NewStore(dsn string, rdb *redis.Client) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&Channel{}, &RankedNews{}, &Briefing{}); err != nil {
		return nil, err
	}

	return &Store{DB: db, Redis: rdb}, nil
}

// OpenRedis 创建 Redis 客户端；ping 失败只记录警告
func OpenRedis(addr string) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("warn: redis ping failed: %v", err)
	}
	return rdb
}

// EnsureChannels 确保配置中的每个源都登记为渠道
func (s *Store) EnsureChannels(sources []config.Source) error {
	for _, src := range sources {
		base := src.URL
		if src.IsProxy() {
			base = "query:" + src.Query
		}
		ch := &Channel{}
		if err := s.DB.Where("code = ?", channelCode(src.Name)).First(ch).Error; err == nil {
			if err := s.DB.Model(ch).Updates(map[string]any{"name": src.Name, "base_url": base, "tier": src.Tier}).Error; err != nil {
				return err
			}
			continue
		}
		ch = &Channel{
			Code:    channelCode(src.Name),
			Name:    src.Name,
			BaseURL: base,
			Tier:    src.Tier,
			Status:  "active",
		}
		if err := s.DB.Create(ch).Error; err != nil {
			return fmt.Errorf("ensure channel %s: %w", src.Name, err)
		}
	}
	return nil
}

func (s *Store) ListChannels(ctx context.Context) ([]Channel, error) {
	var list []Channel
	err := s.DB.WithContext(ctx).Order("tier ASC").Order("id ASC").Find(&list).Error
	return list, err
}

// SaveRanked 覆盖写入某天的排名表（同一天重跑以最后一次为准）
func (s *Store) SaveRanked(ctx context.Context, runDate string, items []news.RankedItem) error {
	rows := make([]RankedNews, 0, len(items))
	for i, it := range items {
		rows = append(rows, RankedNews{
			ID:      hashURL(runDate + "|" + it.Link),
			RunDate: runDate,
			Rank:    i + 1,
			Source:  it.Source,
			Title:   truncateRunesDB(toValidUTF8(it.Title), 512),
			URL:     it.Link,
			Score:   it.Score,
			ExtraData: datatypes.JSONMap{
				"host":  hostOf(it.Link),
				"batch": len(items),
			},
		})
	}

	// 这里不主动清理缓存，依赖短 TTL 自然过期
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("run_date = ?", runDate).Delete(&RankedNews{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, 100).Error
	})
}

// ListRanked 返回指定日期（为空则最新一天）的排名，按名次升序，并使用 Redis 做简单缓存
func (s *Store) ListRanked(ctx context.Context, date string, limit int) ([]RankedNews, error) {
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	cacheKey := fmt.Sprintf("radar:ranked:%s:%d", date, limit)

	var list []RankedNews
	if s.getCache(ctx, cacheKey, &list) {
		return list, nil
	}

	db := s.DB.WithContext(ctx).Model(&RankedNews{})
	if date != "" {
		db = db.Where("run_date = ?", date)
	} else {
		db = db.Where("run_date = (?)", s.DB.Model(&RankedNews{}).Select("MAX(run_date)"))
	}
	if err := db.Order("rank ASC").Limit(limit).Find(&list).Error; err != nil {
		return nil, err
	}

	if len(list) > 0 {
		s.setCache(ctx, cacheKey, list)
	}
	return list, nil
}

// ListRunDates 返回有排名数据的日期列表（倒序）
func (s *Store) ListRunDates(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 || limit > 365 {
		limit = 31
	}
	cacheKey := fmt.Sprintf("radar:dates:%d", limit)

	var dates []string
	if s.getCache(ctx, cacheKey, &dates) {
		return dates, nil
	}

	err := s.DB.WithContext(ctx).Model(&RankedNews{}).
		Distinct("run_date").
		Order("run_date DESC").
		Limit(limit).
		Pluck("run_date", &dates).Error
	if err != nil {
		return nil, err
	}
	if len(dates) > 0 {
		s.setCache(ctx, cacheKey, dates)
	}
	return dates, nil
}

func (s *Store) getCache(ctx context.Context, key string, dst any) bool {
	if s.Redis == nil {
		return false
	}
	bs, err := s.Redis.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(bs, dst) == nil
}

func (s *Store) setCache(ctx context.Context, key string, v any) {
	if s.Redis == nil {
		return
	}
	if bs, err := json.Marshal(v); err == nil {
		_ = s.Redis.Set(ctx, key, bs, listCacheTTL).Err()
	}
}

func channelCode(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "-")
}

func hashURL(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

func hostOf(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	return u.Host
}

// toValidUTF8 将字符串规范为合法 UTF-8，避免 PostgreSQL invalid byte sequence 错误
func toValidUTF8(s string) string {
	return strings.ToValidUTF8(s, "\uFFFD")
}

// truncateRunesDB 按 rune 数截断字符串，确保不会超过数据库字段长度
func truncateRunesDB(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	s = strings.TrimSpace(s)
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return string(rs[:limit])
}
