package news

// FeedItem 是采集后的统一结构，以 Link 作为身份标识
type FeedItem struct {
	Source string
	Title  string
	Link   string
}

// RankedItem 是打分、加权后的条目，Score 取值 [1,10]
type RankedItem struct {
	FeedItem
	Score float64
}

