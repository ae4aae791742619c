package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestGetEnvWithDefault(t *testing.T) {
	const key = "TEST_RADAR_PORT"

	// 环境变量未设置时，应该返回默认值
	_ = os.Unsetenv(key)
	if got := getEnv(key, "9000"); got != "9000" {
		t.Fatalf("getEnv(%q) = %q, want %q", key, got, "9000")
	}

	t.Setenv(key, "8080")
	if got := getEnv(key, "9000"); got != "8080" {
		t.Fatalf("getEnv(%q) = %q, want %q", key, got, "8080")
	}
}

func TestGetEnvIntAndDurationFallBackOnGarbage(t *testing.T) {
	t.Setenv("TEST_RADAR_INT", "abc")
	if got := getEnvInt("TEST_RADAR_INT", 7); got != 7 {
		t.Fatalf("getEnvInt = %d, want 7", got)
	}
	t.Setenv("TEST_RADAR_DUR", "soon")
	if got := getEnvDuration("TEST_RADAR_DUR", time.Second); got != time.Second {
		t.Fatalf("getEnvDuration = %s, want 1s", got)
	}
	t.Setenv("TEST_RADAR_DUR", "250ms")
	if got := getEnvDuration("TEST_RADAR_DUR", time.Second); got != 250*time.Millisecond {
		t.Fatalf("getEnvDuration = %s, want 250ms", got)
	}
}

func TestLoadUsesEmbeddedSources(t *testing.T) {
	t.Chdir(t.TempDir()) // 避免读到仓库里的 .env
	t.Setenv("RADAR_HISTORY_CAP", "20")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.HistoryCap != 20 {
		t.Fatalf("HistoryCap = %d, want 20", cfg.HistoryCap)
	}
	if len(cfg.Catalog.Sources) == 0 {
		t.Fatalf("expected embedded sources")
	}
	if cfg.Catalog.Sources[0].Name != "Brazil Journal" || cfg.Catalog.Sources[0].Tier != 1 {
		t.Fatalf("unexpected first source: %+v", cfg.Catalog.Sources[0])
	}
	if len(cfg.Catalog.Elite) != 1 || cfg.Catalog.Elite[0] != "Brazil Journal" {
		t.Fatalf("unexpected elite list: %v", cfg.Catalog.Elite)
	}
}

func TestLoadRejectsUnknownHistoryBackend(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("RADAR_HISTORY_BACKEND", "etcd")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}

func TestLoadRunTimeout(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.RunTimeout != 30*time.Minute {
		t.Fatalf("RunTimeout = %s, want 30m default", cfg.RunTimeout)
	}

	t.Setenv("RADAR_RUN_TIMEOUT", "0s")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for non-positive RADAR_RUN_TIMEOUT")
	}
}

func TestLoadWithEnvFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	envFile := filepath.Join(dir, "radar.env")
	if err := os.WriteFile(envFile, []byte("RADAR_BRIEF_SIZE=3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("RADAR_BRIEF_SIZE", "")
	_ = os.Unsetenv("RADAR_BRIEF_SIZE")

	cfg, err := LoadWithEnv(envFile)
	if err != nil {
		t.Fatalf("LoadWithEnv error: %v", err)
	}
	if cfg.BriefSize != 3 {
		t.Fatalf("BriefSize = %d, want 3", cfg.BriefSize)
	}
}

func TestParseCatalogDefaultsAndValidation(t *testing.T) {
	data := []byte(`
sources:
  - name: Direct
    url: https://example.com/feed
  - name: Proxy
    query: site:example.com
noise:
  - "  Vagas "
`)
	c, err := ParseCatalog(data)
	if err != nil {
		t.Fatalf("ParseCatalog error: %v", err)
	}
	if c.Sources[0].Limit != DefaultDirectLimit {
		t.Fatalf("direct limit = %d, want %d", c.Sources[0].Limit, DefaultDirectLimit)
	}
	if !c.Sources[1].IsProxy() || c.Sources[1].Limit != DefaultProxyLimit {
		t.Fatalf("proxy source not normalized: %+v", c.Sources[1])
	}
	if c.Noise[0] != "vagas" {
		t.Fatalf("noise not normalized: %q", c.Noise[0])
	}

	cases := []struct {
		name string
		yaml string
	}{
		{"missing name", "sources:\n  - url: https://example.com/feed\n"},
		{"missing url", "sources:\n  - name: X\n"},
		{"bad scheme", "sources:\n  - name: X\n    url: ftp://example.com/feed\n"},
		{"negative limit", "sources:\n  - name: X\n    url: https://example.com/feed\n    limit: -1\n"},
	}
	for _, tc := range cases {
		if _, err := ParseCatalog([]byte(tc.yaml)); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

func TestLocationFallback(t *testing.T) {
	cfg := &Config{Timezone: "Nowhere/Invalid"}
	loc := cfg.Location()
	_, off := time.Date(2024, 1, 1, 12, 0, 0, 0, loc).Zone()
	if off != -3*3600 {
		t.Fatalf("fallback offset = %d, want %d", off, -3*3600)
	}
}
