package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/LJTian/FinRadar/internal/config"
)

func rssDoc(titles ...string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><rss version="2.0"><channel><title>Test</title>`)
	for i, t := range titles {
		fmt.Fprintf(&b, "<item><title>%s</title><link>https://example.com/%d</link></item>", t, i)
	}
	b.WriteString(`</channel></rss>`)
	return b.String()
}

func TestRSSFetcherDirectFeedFiltersNoiseBeforeLimit(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, rssDoc("Petrobras troca CEO", "Guia de Vagas em bancos", "Copom mantém Selic", "Fusão no varejo"))
	}))
	defer srv.Close()

	f := NewRSSFetcher(time.Second, WithNoise([]string{"vagas"}))
	res := f.Fetch(context.Background(), config.Source{Name: "Direct", URL: srv.URL, Limit: 2})

	if !res.OK() {
		t.Fatalf("expected success, got %v (%v)", res.Status, res.Err)
	}
	if len(res.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(res.Items))
	}
	// 噪音条目在截断前被剔除，保持 feed 原有顺序
	if res.Items[0].Title != "Petrobras troca CEO" || res.Items[1].Title != "Copom mantém Selic" {
		t.Fatalf("unexpected order/titles: %+v", res.Items)
	}
	if res.Items[1].Link != "https://example.com/2" || res.Items[1].Source != "Direct" {
		t.Fatalf("unexpected item: %+v", res.Items[1])
	}
	if gotUA != DefaultUserAgent {
		t.Fatalf("User-Agent = %q, want browser-like default", gotUA)
	}
}

func TestRSSFetcherCustomUserAgent(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		fmt.Fprint(w, rssDoc("Copom mantém Selic"))
	}))
	defer srv.Close()

	f := NewRSSFetcher(time.Second, WithUserAgent("FinRadar/1.0"))
	if res := f.Fetch(context.Background(), config.Source{Name: "Direct", URL: srv.URL, Limit: 5}); !res.OK() {
		t.Fatalf("expected success, got %v (%v)", res.Status, res.Err)
	}
	if gotUA != "FinRadar/1.0" {
		t.Fatalf("User-Agent = %q, want FinRadar/1.0", gotUA)
	}
}

func TestRSSFetcherProxyStripsSuffixAndSkipsNoise(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		fmt.Fprint(w, rssDoc("Vagas abertas no BC - Valor Econômico", "Sem sufixo"))
	}))
	defer srv.Close()

	f := NewRSSFetcher(time.Second, WithProxyBaseURL(srv.URL), WithNoise([]string{"vagas"}))
	res := f.Fetch(context.Background(), config.Source{Name: "Proxy", Query: "site:valor.globo.com", Limit: 5})

	if !res.OK() {
		t.Fatalf("expected success, got %v", res.Err)
	}
	if gotQuery != "site:valor.globo.com when:24h" {
		t.Fatalf("unexpected proxy query %q", gotQuery)
	}
	if len(res.Items) != 2 {
		t.Fatalf("proxy feeds are not noise-filtered, got %d items", len(res.Items))
	}
	if res.Items[0].Title != "Vagas abertas no BC" {
		t.Fatalf("suffix not stripped: %q", res.Items[0].Title)
	}
	if res.Items[1].Title != "Sem sufixo" {
		t.Fatalf("title without separator changed: %q", res.Items[1].Title)
	}
}

func TestRSSFetcherDegradesOnFailure(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
		timeout time.Duration
	}{
		{
			name:    "non-2xx",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadGateway) },
			timeout: time.Second,
		},
		{
			name:    "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) { fmt.Fprint(w, "definitely not a feed") },
			timeout: time.Second,
		},
		{
			name: "timeout",
			handler: func(w http.ResponseWriter, r *http.Request) {
				time.Sleep(200 * time.Millisecond)
				fmt.Fprint(w, rssDoc("late"))
			},
			timeout: 20 * time.Millisecond,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			res := NewRSSFetcher(tc.timeout).Fetch(context.Background(), config.Source{Name: "X", URL: srv.URL, Limit: 5})
			if res.Status != StatusFailed {
				t.Fatalf("status = %v, want Failed", res.Status)
			}
			if res.Items == nil || len(res.Items) != 0 {
				t.Fatalf("failed fetch must return an empty, non-nil list: %#v", res.Items)
			}
			if res.Err == nil {
				t.Fatalf("failed fetch should carry the cause")
			}
		})
	}
}

func TestRSSFetcherZeroLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, rssDoc("a", "b"))
	}))
	defer srv.Close()

	res := NewRSSFetcher(time.Second).Fetch(context.Background(), config.Source{Name: "X", URL: srv.URL, Limit: 0})
	if !res.OK() || len(res.Items) != 0 {
		t.Fatalf("limit 0 should succeed with no items, got %v %d", res.Status, len(res.Items))
	}
}

func TestNoiseFilterMatchIsCaseInsensitive(t *testing.T) {
	n := NoiseFilter{"imposto de renda", "fgts"}
	cases := []struct {
		title string
		want  bool
	}{
		{"Como declarar o IMPOSTO DE RENDA", true},
		{"Saque do FGTS liberado", true},
		{"Itaú anuncia recompra", false},
		{"", false},
	}
	for _, c := range cases {
		if got := n.Match(c.title); got != c.want {
			t.Fatalf("Match(%q) = %v, want %v", c.title, got, c.want)
		}
	}
}

func TestStripSiteSuffix(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Headline - Site", "Headline"},
		{"A - B - C", "A"},
		{"No separator", "No separator"},
		{"Hyphen-word stays", "Hyphen-word stays"},
	}
	for _, c := range cases {
		if got := stripSiteSuffix(c.in); got != c.want {
			t.Fatalf("stripSiteSuffix(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
