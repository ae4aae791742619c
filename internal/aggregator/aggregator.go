package aggregator

import (
	"context"
	"log"
	"sort"

	"github.com/LJTian/FinRadar/internal/collector"
	"github.com/LJTian/FinRadar/internal/config"
	"github.com/LJTian/FinRadar/internal/history"
	"github.com/LJTian/FinRadar/internal/news"
)

// Output 是一次聚合的结果：未见过的条目，以及需要提交到历史的新 link
type Output struct {
	Unseen   []news.FeedItem
	NewLinks []string
	Results  []collector.Result
}

type Aggregator struct {
	fetcher collector.Fetcher
	history history.Store
}

func New(fetcher collector.Fetcher, store history.Store) *Aggregator {
	return &Aggregator{fetcher: fetcher, history: store}
}

// Aggregate 依次抓取各源（tier 小的在前），剔除历史中已有的 link 与本轮重复的 link。
// 单个源失败只会让该源贡献 0 条，不影响其它源。
func (a *Aggregator) Aggregate(ctx context.Context, sources []config.Source) Output {
	seen := a.history.Load(ctx)

	ordered := make([]config.Source, len(sources))
	copy(ordered, sources)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Tier < ordered[j].Tier })

	out := Output{Unseen: []news.FeedItem{}, NewLinks: []string{}}
	for _, src := range ordered {
		res := a.fetcher.Fetch(ctx, src)
		out.Results = append(out.Results, res)
		if !res.OK() {
			log.Printf("[%s] %-15s: fetch error: %v", res.Status, src.Name, res.Err)
			continue
		}

		added := 0
		for _, it := range res.Items {
			if !seen.Add(it.Link) {
				continue
			}
			out.Unseen = append(out.Unseen, it)
			out.NewLinks = append(out.NewLinks, it.Link)
			added++
		}
		log.Printf("[%s] %-15s: %d items, %d new", res.Status, src.Name, len(res.Items), added)
	}

	out.Unseen = dedupe(out.Unseen)
	return out
}

// dedupe 按 link 去重，保留首次出现
func dedupe(items []news.FeedItem) []news.FeedItem {
	out := make([]news.FeedItem, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if _, ok := seen[it.Link]; ok {
			continue
		}
		seen[it.Link] = struct{}{}
		out = append(out, it)
	}
	return out
}
