package ui

import (
	"fmt"
	"io"

	"github.com/LJTian/FinRadar/internal/collector"
	"github.com/LJTian/FinRadar/internal/news"
)

const digestTitle = "RADAR ESTRATÉGICO: FUNDAMENTOS, GOVERNANÇA E MACRO"

// Digest 打印前 n 条排序结果，仅供人工阅读，不属于持久化产物
func Digest(w io.Writer, ranked []news.RankedItem, n int) {
	fmt.Fprintln(w, HeaderStyle.Render(digestTitle))
	if n > len(ranked) {
		n = len(ranked)
	}
	for _, r := range ranked[:n] {
		fmt.Fprintf(w, "%s %s\n", ScoreStyle.Render(fmt.Sprintf("[%.1f/10]", r.Score)), SourceStyle.Render(r.Source))
		fmt.Fprintln(w, SignalStyle.Render("SINAL: "+r.Title))
		fmt.Fprintln(w)
	}
}

// IngestReport 打印各源的抓取状态
func IngestReport(w io.Writer, results []collector.Result, saved int) {
	for _, r := range results {
		status := SuccessStyle.Render(string(r.Status))
		if !r.OK() {
			status = ErrorStyle.Render(string(r.Status))
		}
		fmt.Fprintf(w, "[%s] %-15s: %d items\n", status, r.Source, len(r.Items))
	}
	fmt.Fprintln(w, DimStyle.Render(fmt.Sprintf("ingest complete: %d new items saved", saved)))
}
