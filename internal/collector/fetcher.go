package collector

import (
	"context"

	"github.com/LJTian/FinRadar/internal/config"
	"github.com/LJTian/FinRadar/internal/news"
)

type Status string

const (
	StatusSuccess Status = "Success"
	StatusFailed  Status = "Failed"
)

// Result 是单个源的抓取结果；失败时 Items 为空，Err 记录原因
type Result struct {
	Source string
	Status Status
	Items  []news.FeedItem
	Err    error
}

func (r Result) OK() bool {
	return r.Status == StatusSuccess
}

func failed(source string, err error) Result {
	return Result{Source: source, Status: StatusFailed, Items: []news.FeedItem{}, Err: err}
}

// Fetcher 抽象每一个数据源的抓取；实现不得 panic 或返回 error，失败一律降级为 StatusFailed
type Fetcher interface {
	Fetch(ctx context.Context, src config.Source) Result
}
