package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

const (
	defaultMaxChars = 15000
	extractTimeout  = 25 * time.Second
)

type extractRequest struct {
	URL      string `json:"url"`
	MaxChars int    `json:"maxChars"`
}

type extractResponse struct {
	OK    bool   `json:"ok"`
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
}

// extractFunc 渲染页面并返回正文文本
type extractFunc func(ctx context.Context, url string) (string, error)

func main() {
	// 整个进程复用一个 headless 实例
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), chromedp.DefaultExecAllocatorOptions[:]...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	// 预热浏览器，避免首个请求耗时过长
	if err := chromedp.Run(browserCtx); err != nil {
		log.Printf("warn: warmup chromedp failed: %v", err)
	}

	extract := func(ctx context.Context, url string) (string, error) {
		// 每个请求一个新标签页，复用同一个 browserCtx；客户端断开时标签页随之取消
		tabCtx, cancelTab := chromedp.NewContext(browserCtx)
		defer cancelTab()
		tabCtx, cancel := tabContext(tabCtx, ctx, extractTimeout)
		defer cancel()

		var text string
		err := chromedp.Run(tabCtx,
			chromedp.Navigate(url),
			chromedp.WaitReady("body", chromedp.ByQuery),
			chromedp.Evaluate(extractJS, &text),
		)
		return text, err
	}

	mux := http.NewServeMux()
	mux.Handle("/extract", newExtractHandler(extract))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	addr := ":" + getEnv("PORT", "4000")
	log.Printf("browser-scraper listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("http server error: %v", err)
	}
}

// tabContext 从 parent 派生带超时的上下文，req 结束时一并取消
func tabContext(parent, req context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	stop := context.AfterFunc(req, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func newExtractHandler(extract extractFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req extractRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, extractResponse{OK: false, Error: "invalid json"})
			return
		}
		if req.URL == "" {
			writeJSON(w, http.StatusBadRequest, extractResponse{OK: false, Error: "url is required"})
			return
		}
		if req.MaxChars <= 0 || req.MaxChars > defaultMaxChars {
			req.MaxChars = defaultMaxChars
		}

		text, err := extract(r.Context(), req.URL)
		if err != nil {
			log.Printf("extract error: %v (url=%s)", err, req.URL)
			writeJSON(w, http.StatusOK, extractResponse{OK: false, Error: err.Error()})
			return
		}

		text = trimWhitespace(text)
		if text == "" {
			writeJSON(w, http.StatusOK, extractResponse{OK: false, Error: "empty content"})
			return
		}

		// rune 级截断，避免多字节字符被截成半个
		rs := []rune(text)
		if len(rs) > req.MaxChars {
			text = string(rs[:req.MaxChars])
		}

		writeJSON(w, http.StatusOK, extractResponse{OK: true, Text: text})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// extractJS 优先在常见正文容器中取文本（含巴西财经站点的正文 class），找不到时收集全页较长段落
const extractJS = `(function () {
  var selectors = [
    "article",
    "div.entry-content",
    "div.post-content",
    "div.article-content",
    "div.content-text",
    "div.im-article",
    "div#article-content",
    "main"
  ];

  var text = "";
  for (var i = 0; i < selectors.length; i++) {
    var el = document.querySelector(selectors[i]);
    text = el ? (el.innerText || "").trim() : "";
    if (text.length > 400) {
      break;
    }
  }

  if (text.length <= 400) {
    var nodes = Array.prototype.slice.call(document.querySelectorAll("p"));
    var pieces = [];
    var total = 0;
    for (var j = 0; j < nodes.length && total < 15000; j++) {
      var t = (nodes[j].innerText || "").trim();
      if (t.length >= 40) {
        pieces.push(t);
        total += t.length;
      }
    }
    text = pieces.join("\n\n");
  }

  return text.replace(/[ \t]+\n/g, "\n").trim();
})();`

// trimWhitespace 统一换行并压缩多余空行
func trimWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	for strings.Contains(s, "\n\n\n") {
		s = strings.ReplaceAll(s, "\n\n\n", "\n\n")
	}
	return strings.TrimSpace(s)
}
