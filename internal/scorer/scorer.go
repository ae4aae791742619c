package scorer

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"

	"github.com/LJTian/FinRadar/internal/llm"
	"github.com/LJTian/FinRadar/internal/news"
)

// Scorer 把整批标题一次性交给模型打分，再做精英源加分与稳定排序
type Scorer struct {
	model    llm.Completer
	elite    map[string]struct{}
	excluded map[string]struct{}
}

func New(model llm.Completer, elite, excluded []string) *Scorer {
	return &Scorer{
		model:    model,
		elite:    toSet(elite),
		excluded: toSet(excluded),
	}
}

// Filter 移除被排除的源，保持原有顺序
func (s *Scorer) Filter(items []news.FeedItem) []news.FeedItem {
	out := make([]news.FeedItem, 0, len(items))
	for _, it := range items {
		if _, skip := s.excluded[it.Source]; skip {
			continue
		}
		out = append(out, it)
	}
	return out
}

// Score 返回按分数降序排列的全部条目；排除后为空时返回 nil 且不调用模型
func (s *Scorer) Score(ctx context.Context, items []news.FeedItem) ([]news.RankedItem, error) {
	kept := s.Filter(items)
	if len(kept) == 0 {
		log.Printf("scorer: no items left after exclusion (%d dropped)", len(items))
		return nil, nil
	}

	log.Printf("scorer: scoring %d headlines (%d excluded)...", len(kept), len(items)-len(kept))
	raw, err := s.model.Complete(ctx, BuildPrompt(kept))
	if err != nil {
		return nil, fmt.Errorf("scorer: model call: %w", err)
	}

	scores, err := ParseScores(raw, len(kept))
	if err != nil {
		return nil, err
	}

	ranked := make([]news.RankedItem, len(kept))
	for i, it := range kept {
		ranked[i] = news.RankedItem{FeedItem: it, Score: s.ApplyBonus(it.Source, scores[i])}
	}
	Rank(ranked)
	return ranked, nil
}

// ApplyBonus 精英源 +1，封顶 10；其它源保持原分
func (s *Scorer) ApplyBonus(source string, score float64) float64 {
	if _, ok := s.elite[source]; ok {
		return math.Min(MaxScore, score+1)
	}
	return score
}

// Rank 按分数降序稳定排序，同分保持采集顺序
func Rank(items []news.RankedItem) {
	sort.SliceStable(items, func(i, j int) bool { return items[i].Score > items[j].Score })
}

func toSet(values []string) map[string]struct{} {
	m := make(map[string]struct{}, len(values))
	for _, v := range values {
		m[v] = struct{}{}
	}
	return m
}
