package app

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/LJTian/FinRadar/internal/aggregator"
	"github.com/LJTian/FinRadar/internal/briefer"
	"github.com/LJTian/FinRadar/internal/collector"
	"github.com/LJTian/FinRadar/internal/config"
	"github.com/LJTian/FinRadar/internal/history"
	"github.com/LJTian/FinRadar/internal/llm"
	"github.com/LJTian/FinRadar/internal/pipeline"
	"github.com/LJTian/FinRadar/internal/scorer"
	"github.com/LJTian/FinRadar/internal/storage"
)

// App 组装 CLI 与 API 共用的依赖
type App struct {
	Config   *config.Config
	Pipeline *pipeline.Pipeline
	Store    *storage.Store // 未配置 POSTGRES_DSN 时为 nil
	Redis    *redis.Client  // 未使用 Redis 时为 nil
}

// Build 根据配置创建流水线；out 接收控制台摘要
func Build(cfg *config.Config, out io.Writer) (*App, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	a := &App{Config: cfg}
	paths := pipeline.NewPaths(cfg.DataDir)

	if cfg.HistoryBackend == "redis" || cfg.PostgresDSN != "" {
		a.Redis = storage.OpenRedis(cfg.RedisAddr)
	}

	var store history.Store
	switch cfg.HistoryBackend {
	case "redis":
		store = history.NewRedisStore(a.Redis, cfg.HistoryKey, cfg.HistoryCap)
	default:
		store = history.NewFileStore(paths.History, cfg.HistoryCap)
	}

	ua := collector.DefaultUserAgent
	if cfg.UserAgent != "" {
		ua = cfg.UserAgent
	}
	fetcher := collector.NewRSSFetcher(cfg.FetchTimeout,
		collector.WithNoise(cfg.Catalog.Noise),
		collector.WithUserAgent(ua),
	)

	model, err := llm.New(cfg.LLMProvider, cfg.LLMModel, cfg.APIKey)
	if err != nil {
		// 仅 INGEST 不需要模型，等用到时再报错
		log.Printf("warn: model unavailable: %v", err)
		model = llm.Unavailable{Err: err}
	}
	model = llm.WithTimeout(model, cfg.LLMTimeout)

	loc := cfg.Location()
	chain := briefer.NewChain(cfg.JinaBaseURL, cfg.ScraperURL, ua, cfg.FetchTimeout)
	resolver := &briefer.LinkResolver{
		Client:    &http.Client{Timeout: cfg.FetchTimeout},
		UserAgent: ua,
	}

	b := briefer.New(model, chain,
		briefer.WithSize(cfg.BriefSize),
		briefer.WithLocation(loc),
		briefer.WithResolver(resolver),
	)

	deps := pipeline.Deps{
		Paths:      paths,
		Sources:    cfg.Catalog.Sources,
		Aggregator: aggregator.New(fetcher, store),
		History:    store,
		Scorer:     scorer.New(model, cfg.Catalog.Elite, cfg.Catalog.Excluded),
		Briefer:    b,
		Location:   loc,
		Out:        out,
		RunTimeout: cfg.RunTimeout,
	}

	if cfg.PostgresDSN != "" {
		s, err := storage.NewStore(cfg.PostgresDSN, a.Redis)
		if err != nil {
			log.Printf("warn: archive disabled, init store failed: %v", err)
		} else {
			if err := s.EnsureChannels(cfg.Catalog.Sources); err != nil {
				log.Printf("warn: ensure channels: %v", err)
			}
			a.Store = s
			deps.Archive = s
		}
	}

	a.Pipeline = pipeline.New(deps)
	return a, nil
}

func (a *App) Close() {
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.Store != nil {
		if db, err := a.Store.DB.DB(); err == nil {
			_ = db.Close()
		}
	}
}
