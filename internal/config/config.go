package config

import (
	_ "embed"
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

//go:embed sources.yaml
var defaultSources []byte

const (
	DefaultDirectLimit = 15
	DefaultProxyLimit  = 12
)

// Source 描述一个采集源；Query 非空时为搜索代理源
type Source struct {
	Name  string `yaml:"name"`
	URL   string `yaml:"url"`
	Query string `yaml:"query"`
	Limit int    `yaml:"limit"`
	Tier  int    `yaml:"tier"`
}

func (s Source) IsProxy() bool {
	return strings.TrimSpace(s.Query) != ""
}

// Catalog 是 sources.yaml 的内容
type Catalog struct {
	Sources  []Source `yaml:"sources"`
	Noise    []string `yaml:"noise"`
	Elite    []string `yaml:"elite_sources"`
	Excluded []string `yaml:"excluded_sources"`
}

type Config struct {
	DataDir        string
	HistoryCap     int
	HistoryBackend string
	HistoryKey     string
	FetchTimeout   time.Duration
	RunTimeout     time.Duration
	UserAgent      string
	BriefSize      int
	Timezone       string

	LLMProvider string
	LLMModel    string
	APIKey      string
	LLMTimeout  time.Duration

	PostgresDSN string
	RedisAddr   string

	AppPort       string
	CronSpec      string
	RunOnStart    bool
	FrontendURL   string
	BasicAuthUser string
	BasicAuthPass string
	WebRoot       string

	ScraperURL  string
	JinaBaseURL string

	SourcesFile string
	Catalog     Catalog
}

// Load 读取 .env（若存在）、环境变量与采集源配置
func Load() (*Config, error) {
	return LoadWithEnv("")
}

// LoadWithEnv 与 Load 相同，但可以指定 dotenv 文件路径
func LoadWithEnv(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	} else {
		// .env 不存在时忽略
		_ = godotenv.Load()
	}

	cfg := &Config{
		DataDir:        getEnv("RADAR_DATA_DIR", "."),
		HistoryCap:     getEnvInt("RADAR_HISTORY_CAP", 1500),
		HistoryBackend: getEnv("RADAR_HISTORY_BACKEND", "file"),
		HistoryKey:     getEnv("RADAR_HISTORY_KEY", "radar:history"),
		FetchTimeout:   getEnvDuration("RADAR_FETCH_TIMEOUT", 15*time.Second),
		RunTimeout:     getEnvDuration("RADAR_RUN_TIMEOUT", 30*time.Minute),
		UserAgent:      os.Getenv("RADAR_USER_AGENT"),
		BriefSize:      getEnvInt("RADAR_BRIEF_SIZE", 5),
		Timezone:       getEnv("RADAR_TIMEZONE", "America/Sao_Paulo"),
		LLMProvider:    getEnv("LLM_PROVIDER", "gemini"),
		LLMModel:       os.Getenv("LLM_MODEL"),
		APIKey:         os.Getenv("API_KEY"),
		LLMTimeout:     getEnvDuration("LLM_TIMEOUT", 120*time.Second),
		PostgresDSN:    os.Getenv("POSTGRES_DSN"),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6380"),
		AppPort:        getEnv("APP_PORT", "9000"),
		CronSpec:       getEnv("CRON_SPEC", "0 7 * * *"),
		RunOnStart:     getEnv("RADAR_RUN_ON_START", "false") == "true",
		FrontendURL:    os.Getenv("FRONTEND_URL"),
		BasicAuthUser:  os.Getenv("APP_BASIC_USER"),
		BasicAuthPass:  os.Getenv("APP_BASIC_PASS"),
		WebRoot:        os.Getenv("WEB_ROOT"),
		ScraperURL:     os.Getenv("SCRAPER_URL"),
		JinaBaseURL:    getEnv("JINA_BASE_URL", "https://r.jina.ai/"),
		SourcesFile:    os.Getenv("RADAR_SOURCES_FILE"),
	}

	data := defaultSources
	if cfg.SourcesFile != "" {
		b, err := os.ReadFile(cfg.SourcesFile)
		if err != nil {
			return nil, fmt.Errorf("read sources file: %w", err)
		}
		data = b
	}
	catalog, err := ParseCatalog(data)
	if err != nil {
		return nil, err
	}
	cfg.Catalog = *catalog

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	log.Printf("config loaded: sources=%d history=%s(cap=%d) llm=%s data=%s",
		len(cfg.Catalog.Sources), cfg.HistoryBackend, cfg.HistoryCap, cfg.LLMProvider, cfg.DataDir)
	return cfg, nil
}

// ParseCatalog 解析采集源 YAML，并补齐默认 limit、统一噪音词为小写
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse sources: %w", err)
	}
	for i := range c.Sources {
		s := &c.Sources[i]
		s.Name = strings.TrimSpace(s.Name)
		if s.Limit == 0 {
			if s.IsProxy() {
				s.Limit = DefaultProxyLimit
			} else {
				s.Limit = DefaultDirectLimit
			}
		}
	}
	for i, n := range c.Noise {
		c.Noise[i] = strings.ToLower(strings.TrimSpace(n))
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	for i, s := range c.Sources {
		if s.Name == "" {
			return fmt.Errorf("source %d: name is required", i)
		}
		if s.Limit < 0 {
			return fmt.Errorf("source %q: limit must be non-negative, got %d", s.Name, s.Limit)
		}
		if s.IsProxy() {
			continue
		}
		if s.URL == "" {
			return fmt.Errorf("source %q: url or query is required", s.Name)
		}
		u, err := url.Parse(s.URL)
		if err != nil {
			return fmt.Errorf("source %q: invalid url: %w", s.Name, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("source %q: url scheme must be http or https, got %q", s.Name, u.Scheme)
		}
	}
	return nil
}

func (c *Config) validate() error {
	if c.HistoryCap <= 0 {
		return fmt.Errorf("RADAR_HISTORY_CAP must be positive, got %d", c.HistoryCap)
	}
	switch c.HistoryBackend {
	case "file", "redis":
	default:
		return fmt.Errorf("unknown RADAR_HISTORY_BACKEND %q (valid: file, redis)", c.HistoryBackend)
	}
	if c.RunTimeout <= 0 {
		return fmt.Errorf("RADAR_RUN_TIMEOUT must be positive, got %s", c.RunTimeout)
	}
	if c.BriefSize < 0 {
		return fmt.Errorf("RADAR_BRIEF_SIZE must be non-negative, got %d", c.BriefSize)
	}
	return nil
}

// Location 返回配置的时区，加载失败时退回 UTC-3
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil || loc == nil {
		return time.FixedZone("BRT", -3*3600)
	}
	return loc
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("warn: invalid %s=%q, using %d", key, v, def)
		return def
	}
	return n
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("warn: invalid %s=%q, using %s", key, v, def)
		return def
	}
	return d
}
