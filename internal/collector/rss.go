package collector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/LJTian/FinRadar/internal/config"
	"github.com/LJTian/FinRadar/internal/news"
)

const (
	DefaultUserAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36"
	DefaultProxyBaseURL = "https://news.google.com/rss/search"

	rssMaxResponseBytes = 4 << 20 // 4MB
	proxyTitleSeparator = " - "
)

// NoiseFilter 是小写的标题噪音子串集合
type NoiseFilter []string

func (n NoiseFilter) Match(title string) bool {
	lower := strings.ToLower(title)
	for _, key := range n {
		if key != "" && strings.Contains(lower, key) {
			return true
		}
	}
	return false
}

type Option func(*RSSFetcher)

func WithProxyBaseURL(u string) Option {
	return func(f *RSSFetcher) { f.proxyBase = u }
}

func WithUserAgent(ua string) Option {
	return func(f *RSSFetcher) { f.userAgent = ua }
}

func WithNoise(noise []string) Option {
	return func(f *RSSFetcher) {
		f.noise = make(NoiseFilter, 0, len(noise))
		for _, n := range noise {
			f.noise = append(f.noise, strings.ToLower(n))
		}
	}
}

// RSSFetcher 抓取 RSS/Atom：直连 feed 或 Google News 搜索代理
type RSSFetcher struct {
	client    *http.Client
	parser    *gofeed.Parser
	proxyBase string
	userAgent string
	noise     NoiseFilter
}

func NewRSSFetcher(timeout time.Duration, opts ...Option) *RSSFetcher {
	f := &RSSFetcher{
		client:    &http.Client{Timeout: timeout},
		parser:    gofeed.NewParser(),
		proxyBase: DefaultProxyBaseURL,
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *RSSFetcher) Fetch(ctx context.Context, src config.Source) Result {
	target := src.URL
	if src.IsProxy() {
		target = ProxyURL(f.proxyBase, src.Query)
	}

	feed, err := f.get(ctx, target)
	if err != nil {
		return failed(src.Name, fmt.Errorf("%s: %w", src.Name, err))
	}

	items := make([]news.FeedItem, 0, min(src.Limit, len(feed.Items)))
	for _, entry := range feed.Items {
		if len(items) >= src.Limit {
			break
		}
		if entry == nil || entry.Link == "" {
			continue
		}
		title := entry.Title
		if src.IsProxy() {
			title = stripSiteSuffix(title)
		} else if f.noise.Match(title) {
			continue
		}
		items = append(items, news.FeedItem{
			Source: src.Name,
			Title:  strings.TrimSpace(title),
			Link:   entry.Link,
		})
	}

	return Result{Source: src.Name, Status: StatusSuccess, Items: items}
}

func (f *RSSFetcher) get(ctx context.Context, target string) (*gofeed.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	feed, err := f.parser.Parse(io.LimitReader(resp.Body, rssMaxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return feed, nil
}

// ProxyURL 构造最近 24 小时的 Google News 搜索 RSS 地址
func ProxyURL(base, query string) string {
	q := url.QueryEscape(query) + "+when:24h"
	return base + "?q=" + q + "&hl=pt-BR&gl=BR&ceid=BR:pt-419"
}

// stripSiteSuffix 去掉代理标题末尾的 " - 站点名"
func stripSiteSuffix(title string) string {
	if idx := strings.Index(title, proxyTitleSeparator); idx != -1 {
		return title[:idx]
	}
	return title
}
