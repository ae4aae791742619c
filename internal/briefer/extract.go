package briefer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
)

const (
	extractMaxBytes     = 2 << 20 // 2MB
	minParagraphLen     = 40
	maxExtractChars     = 15000
	defaultReaderMinLen = 600
)

// Extractor 从文章 URL 提取正文
type Extractor interface {
	Extract(ctx context.Context, url string) (string, error)
}

// Step 是提取链中的一环，结果短于 MinLen 时视为失败，继续下一环
type Step struct {
	Name      string
	Extractor Extractor
	MinLen    int
}

// Chain 依次尝试各环节，返回第一个足够长的正文
type Chain []Step

func (c Chain) Extract(ctx context.Context, url string) (string, error) {
	var lastErr error
	for _, s := range c {
		text, err := s.Extractor.Extract(ctx, url)
		if err != nil {
			lastErr = fmt.Errorf("%s: %w", s.Name, err)
			log.Printf("briefer: extract via %s failed: %v", s.Name, err)
			continue
		}
		text = strings.TrimSpace(text)
		if len([]rune(text)) >= s.MinLen {
			return text, nil
		}
		lastErr = fmt.Errorf("%s: content too short (%d chars)", s.Name, len([]rune(text)))
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no extractor configured")
	}
	return "", lastErr
}

// ReaderExtractor 通过 r.jina.ai 之类的阅读代理获取纯文本
type ReaderExtractor struct {
	BaseURL string
	Client  *http.Client
}

func (r *ReaderExtractor) Extract(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.BaseURL+url, nil)
	if err != nil {
		return "", err
	}
	resp, err := r.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, extractMaxBytes))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

type serviceRequest struct {
	URL      string `json:"url"`
	MaxChars int    `json:"maxChars"`
}

type serviceResponse struct {
	OK    bool   `json:"ok"`
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
}

// ServiceExtractor 调用 cmd/browser-scraper 的 /extract 接口（headless 浏览器渲染）
type ServiceExtractor struct {
	Endpoint string
	Client   *http.Client
}

func (s *ServiceExtractor) Extract(ctx context.Context, url string) (string, error) {
	body, _ := json.Marshal(serviceRequest{URL: url, MaxChars: maxExtractChars})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(s.Endpoint, "/")+"/extract", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out serviceResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, extractMaxBytes)).Decode(&out); err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}
	if !out.OK {
		return "", fmt.Errorf("scraper: %s", out.Error)
	}
	return out.Text, nil
}

// HTMLExtractor 用 colly 抓取页面，按常见正文容器收集段落
type HTMLExtractor struct {
	UserAgent string
	Timeout   time.Duration
}

var paragraphSelectors = []string{"article p", "main p", "div[class*='content'] p", "p"}

func (h *HTMLExtractor) Extract(ctx context.Context, url string) (string, error) {
	c := colly.NewCollector(colly.UserAgent(h.UserAgent))
	c.SetRequestTimeout(h.Timeout)
	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
		}
	})

	var text string
	c.OnHTML("body", func(e *colly.HTMLElement) {
		text = collectParagraphs(e.DOM)
	})

	if err := c.Visit(url); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return text, nil
}

// collectParagraphs 取第一个能产出足够段落的选择器
func collectParagraphs(doc *goquery.Selection) string {
	for _, sel := range paragraphSelectors {
		var pieces []string
		total := 0
		doc.Find(sel).Each(func(i int, s *goquery.Selection) {
			t := strings.Join(strings.Fields(s.Text()), " ")
			if len([]rune(t)) < minParagraphLen || total > maxExtractChars {
				return
			}
			pieces = append(pieces, t)
			total += len(t)
		})
		if len(pieces) > 0 {
			return strings.Join(pieces, "\n\n")
		}
	}
	return ""
}

// LinkResolver 跟随重定向得到最终文章地址，失败时返回原链接
type LinkResolver struct {
	Client    *http.Client
	UserAgent string
}

func (r *LinkResolver) Resolve(ctx context.Context, link string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return link
	}
	req.Header.Set("User-Agent", r.UserAgent)
	resp, err := r.Client.Do(req)
	if err != nil {
		return link
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	return resp.Request.URL.String()
}

// NewChain 构建默认提取链：阅读代理 → 浏览器服务（可选） → colly
func NewChain(readerBase, scraperURL, userAgent string, timeout time.Duration) Chain {
	client := &http.Client{Timeout: timeout}
	chain := Chain{{
		Name:      "reader",
		Extractor: &ReaderExtractor{BaseURL: readerBase, Client: client},
		MinLen:    defaultReaderMinLen + 1,
	}}
	if scraperURL != "" {
		chain = append(chain, Step{
			Name:      "browser",
			Extractor: &ServiceExtractor{Endpoint: scraperURL, Client: &http.Client{Timeout: 2 * timeout}},
			MinLen:    MinContentLen,
		})
	}
	chain = append(chain, Step{
		Name:      "html",
		Extractor: &HTMLExtractor{UserAgent: userAgent, Timeout: timeout},
		MinLen:    MinContentLen,
	})
	return chain
}
