package app

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/LJTian/FinRadar/internal/config"
	"github.com/LJTian/FinRadar/internal/news"
	"github.com/LJTian/FinRadar/internal/pipeline"
	"github.com/LJTian/FinRadar/internal/table"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DataDir:        t.TempDir(),
		HistoryCap:     100,
		HistoryBackend: "file",
		FetchTimeout:   time.Second,
		BriefSize:      5,
		Timezone:       "America/Sao_Paulo",
		LLMProvider:    "gemini",
		LLMTimeout:     time.Second,
		JinaBaseURL:    "https://r.jina.ai/",
		Catalog:        config.Catalog{Elite: []string{"A"}},
	}
}

func TestBuildWithoutOptionalServices(t *testing.T) {
	a, err := Build(testConfig(t), io.Discard)
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	defer a.Close()

	if a.Pipeline == nil {
		t.Fatalf("pipeline not built")
	}
	if a.Store != nil || a.Redis != nil {
		t.Fatalf("no archive or redis expected without configuration")
	}
}

func TestScoreWithoutAPIKeyFailsClearly(t *testing.T) {
	cfg := testConfig(t)
	a, err := Build(cfg, io.Discard)
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	paths := pipeline.NewPaths(cfg.DataDir)
	if err := table.WriteRaw(paths.Raw, []news.FeedItem{{Source: "A", Title: "t", Link: "https://a/1"}}); err != nil {
		t.Fatal(err)
	}

	err = a.Pipeline.RunStage(context.Background(), pipeline.StageScore)
	if err == nil || !strings.Contains(err.Error(), "API_KEY") {
		t.Fatalf("err = %v, want missing API_KEY", err)
	}
}
