package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/LJTian/FinRadar/internal/collector"
	"github.com/LJTian/FinRadar/internal/news"
)

func TestDigestPrintsAtMostN(t *testing.T) {
	ranked := make([]news.RankedItem, 12)
	for i := range ranked {
		ranked[i] = news.RankedItem{FeedItem: news.FeedItem{Source: "S", Title: "headline", Link: "l"}, Score: 5}
	}
	ranked[0].Title = "top story"
	ranked[0].Score = 9.5

	var buf bytes.Buffer
	Digest(&buf, ranked, 10)
	out := buf.String()

	if got := strings.Count(out, "SINAL:"); got != 10 {
		t.Fatalf("printed %d items, want 10", got)
	}
	if !strings.Contains(out, "[9.5/10]") || !strings.Contains(out, "top story") {
		t.Fatalf("top item missing from digest:\n%s", out)
	}

	buf.Reset()
	Digest(&buf, ranked[:2], 10)
	if got := strings.Count(buf.String(), "SINAL:"); got != 2 {
		t.Fatalf("short list printed %d items, want 2", got)
	}
}

func TestIngestReportShowsStatusPerSource(t *testing.T) {
	var buf bytes.Buffer
	IngestReport(&buf, []collector.Result{
		{Source: "NeoFeed", Status: collector.StatusSuccess, Items: make([]news.FeedItem, 3)},
		{Source: "InfoMoney", Status: collector.StatusFailed, Items: []news.FeedItem{}, Err: errors.New("timeout")},
	}, 3)
	out := buf.String()
	for _, want := range []string{"NeoFeed", "InfoMoney", "Failed", "3 new items"} {
		if !strings.Contains(out, want) {
			t.Fatalf("report missing %q:\n%s", want, out)
		}
	}
}
