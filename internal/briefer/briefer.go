package briefer

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/LJTian/FinRadar/internal/llm"
	"github.com/LJTian/FinRadar/internal/news"
)

const (
	DefaultSize = 5
	// MinContentLen 以下的正文视为提取失败，跳过该条
	MinContentLen = 400

	maxPromptContent = 15000
)

const synthesisPrompt = `Atue como um Analista Sênior de uma Asset Management. Produza uma síntese narrativa de altíssima fidelidade.

OBJETIVO:
1. MIMETISMO: adote o estilo de escrita da fonte (%s). Se for analítico e ácido, mantenha.
2. MAXIMIZAÇÃO DE DADOS: preserve nomes de executivos, valores (M&A), múltiplos (EBITDA, P/L) e nuances estratégicas.
3. FLUIDEZ: parágrafos coesos. Sem introduções ou listas.

FORMATAÇÃO:
- Não use Markdown no corpo do texto (nada de '*', '_' ou '**').
- Texto puro. Nomes de jornais, termos em inglês e siglas sem itálico ou negrito.
- Aspas apenas para citações diretas.

CONTEÚDO PARA SÍNTESE:
%s`

// Resolver 将跳转链接解析为最终文章地址
type Resolver interface {
	Resolve(ctx context.Context, link string) string
}

type Option func(*Briefer)

func WithSize(n int) Option {
	return func(b *Briefer) { b.size = n }
}

func WithLocation(loc *time.Location) Option {
	return func(b *Briefer) { b.loc = loc }
}

func WithClock(now func() time.Time) Option {
	return func(b *Briefer) { b.now = now }
}

func WithResolver(r Resolver) Option {
	return func(b *Briefer) { b.resolver = r }
}

// WithPause 设置两次模型调用之间的间隔
func WithPause(d time.Duration) Option {
	return func(b *Briefer) { b.pause = d }
}

// Briefer 为排名前几的新闻生成叙述性简报
type Briefer struct {
	model     llm.Completer
	extractor Extractor
	resolver  Resolver
	size      int
	loc       *time.Location
	now       func() time.Time
	pause     time.Duration
}

func New(model llm.Completer, extractor Extractor, opts ...Option) *Briefer {
	b := &Briefer{
		model:     model,
		extractor: extractor,
		size:      DefaultSize,
		loc:       time.UTC,
		now:       time.Now,
		pause:     time.Second,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Result 是生成的简报；Written 为成功写入的条数
type Result struct {
	Markdown string
	Written  int
	Skipped  int
}

// Brief 逐条处理前 size 条：解析链接、提取正文、调用模型。
// 单条失败只跳过该条；只有 ctx 取消才返回错误。
func (b *Briefer) Brief(ctx context.Context, ranked []news.RankedItem) (Result, error) {
	top := ranked
	if len(top) > b.size {
		top = top[:b.size]
	}
	log.Printf("briefer: synthesizing %d stories...", len(top))

	var sb strings.Builder
	fmt.Fprintf(&sb, "# RADAR FINANCEIRO EXECUTIVO - %s\n\n", b.now().In(b.loc).Format("02/01/2006"))

	res := Result{}
	for i, it := range top {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		log.Printf("[%d/%d] processing: %s", i+1, len(top), truncateRunes(it.Title, 40))

		link := it.Link
		if b.resolver != nil {
			link = b.resolver.Resolve(ctx, it.Link)
		}

		content, err := b.extractor.Extract(ctx, link)
		if err != nil || len([]rune(content)) < MinContentLen {
			log.Printf("   ! extraction failed for %s: %v, skipping", link, err)
			res.Skipped++
			continue
		}

		text, err := b.model.Complete(ctx, fmt.Sprintf(synthesisPrompt, it.Source, truncateRunes(content, maxPromptContent)))
		if err != nil {
			log.Printf("   ! model error for %s: %v", link, err)
			res.Skipped++
			continue
		}

		fmt.Fprintf(&sb, "### %s: %s\n", it.Source, it.Title)
		fmt.Fprintf(&sb, "%s\n", strings.TrimSpace(text))
		fmt.Fprintf(&sb, "\n**Link original:** %s\n\n---\n\n", link)
		res.Written++

		if b.pause > 0 && i < len(top)-1 {
			select {
			case <-ctx.Done():
				return Result{}, ctx.Err()
			case <-time.After(b.pause):
			}
		}
	}

	res.Markdown = sb.String()
	return res, nil
}

func truncateRunes(s string, limit int) string {
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return string(rs[:limit])
}
