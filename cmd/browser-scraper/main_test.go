package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func post(t *testing.T, h http.Handler, body string) (int, extractResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/extract", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	var resp extractResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w.Code, resp
}

func TestExtractHandler(t *testing.T) {
	long := strings.Repeat("ação ", 4000) // 20000 runes
	cases := []struct {
		name     string
		body     string
		text     string
		err      error
		wantCode int
		wantOK   bool
		wantLen  int
	}{
		{name: "invalid json", body: "{", wantCode: http.StatusBadRequest},
		{name: "missing url", body: `{}`, wantCode: http.StatusBadRequest},
		{name: "browser error", body: `{"url":"https://x"}`, err: errors.New("timeout"), wantCode: http.StatusOK},
		{name: "empty page", body: `{"url":"https://x"}`, text: " \n\n ", wantCode: http.StatusOK},
		{name: "default limit", body: `{"url":"https://x"}`, text: long, wantCode: http.StatusOK, wantOK: true, wantLen: defaultMaxChars},
		{name: "explicit limit", body: `{"url":"https://x","maxChars":10}`, text: long, wantCode: http.StatusOK, wantOK: true, wantLen: 10},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newExtractHandler(func(ctx context.Context, url string) (string, error) {
				return tc.text, tc.err
			})
			code, resp := post(t, h, tc.body)
			if code != tc.wantCode || resp.OK != tc.wantOK {
				t.Fatalf("code=%d ok=%v, want %d %v (%+v)", code, resp.OK, tc.wantCode, tc.wantOK, resp)
			}
			if tc.wantOK && len([]rune(resp.Text)) != tc.wantLen {
				t.Fatalf("text length = %d runes, want %d", len([]rune(resp.Text)), tc.wantLen)
			}
		})
	}
}

func TestExtractHandlerRejectsGet(t *testing.T) {
	h := newExtractHandler(func(ctx context.Context, url string) (string, error) { return "", nil })
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/extract", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestTabContextFollowsRequest(t *testing.T) {
	cases := []struct {
		name    string
		timeout time.Duration
		cancel  string // 取消哪一方："req"、"parent" 或不取消
		wantErr error
	}{
		{name: "client disconnect", timeout: time.Minute, cancel: "req", wantErr: context.Canceled},
		{name: "browser shutdown", timeout: time.Minute, cancel: "parent", wantErr: context.Canceled},
		{name: "timeout", timeout: 10 * time.Millisecond, wantErr: context.DeadlineExceeded},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			parent, cancelParent := context.WithCancel(context.Background())
			defer cancelParent()
			req, cancelReq := context.WithCancel(context.Background())
			defer cancelReq()

			ctx, cancel := tabContext(parent, req, tc.timeout)
			defer cancel()

			switch tc.cancel {
			case "req":
				cancelReq()
			case "parent":
				cancelParent()
			}
			select {
			case <-ctx.Done():
			case <-time.After(2 * time.Second):
				t.Fatalf("tab context not cancelled")
			}
			if !errors.Is(ctx.Err(), tc.wantErr) {
				t.Fatalf("ctx.Err() = %v, want %v", ctx.Err(), tc.wantErr)
			}
		})
	}
}

func TestTabContextCancelDetachesFromRequest(t *testing.T) {
	req, cancelReq := context.WithCancel(context.Background())
	defer cancelReq()
	ctx, cancel := tabContext(context.Background(), req, time.Minute)
	cancel()
	if ctx.Err() == nil {
		t.Fatalf("cancel should end the tab context")
	}
	// 请求上下文不受影响
	if req.Err() != nil {
		t.Fatalf("request context must not be cancelled by the tab")
	}
}

func TestExtractHandlerPassesRequestContext(t *testing.T) {
	type ctxKey struct{}
	var got any
	h := newExtractHandler(func(ctx context.Context, url string) (string, error) {
		got = ctx.Value(ctxKey{})
		return "texto", nil
	})
	req := httptest.NewRequest(http.MethodPost, "/extract", strings.NewReader(`{"url":"https://x"}`))
	req = req.WithContext(context.WithValue(req.Context(), ctxKey{}, "client"))
	h.ServeHTTP(httptest.NewRecorder(), req)
	if got != "client" {
		t.Fatalf("extract did not receive the request context")
	}
}

func TestTrimWhitespace(t *testing.T) {
	if got := trimWhitespace("  a\r\n\r\n\r\n\r\nb  "); got != "a\n\nb" {
		t.Fatalf("trimWhitespace = %q", got)
	}
}
