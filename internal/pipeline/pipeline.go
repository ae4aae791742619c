package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/LJTian/FinRadar/internal/aggregator"
	"github.com/LJTian/FinRadar/internal/briefer"
	"github.com/LJTian/FinRadar/internal/config"
	"github.com/LJTian/FinRadar/internal/export"
	"github.com/LJTian/FinRadar/internal/history"
	"github.com/LJTian/FinRadar/internal/news"
	"github.com/LJTian/FinRadar/internal/table"
	"github.com/LJTian/FinRadar/internal/ui"
)

type Stage string

const (
	StageIngest Stage = "INGEST"
	StageScore  Stage = "SCORE"
	StageBrief  Stage = "BRIEF"
	StageExport Stage = "EXPORT"
)

// Stages 是固定的执行顺序
var Stages = []Stage{StageIngest, StageScore, StageBrief, StageExport}

const (
	digestSize        = 10
	defaultRunTimeout = 30 * time.Minute
)

var ErrBusy = errors.New("pipeline: a run is already in progress")

// SCORE 没有可排名的标题时返回，流水线据此正常收尾
var errNothingRanked = errors.New("no new headlines to rank")

// MissingArtifactError 表示某阶段开始时上游产物不存在
type MissingArtifactError struct {
	Stage Stage
	Path  string
}

func (e *MissingArtifactError) Error() string {
	return fmt.Sprintf("stage %s: required artifact %s is missing", e.Stage, e.Path)
}

// Paths 是各阶段之间交接的文件
type Paths struct {
	Raw     string
	Ranked  string
	Brief   string
	WebData string
	History string
	Lock    string // 跨进程互斥的锁文件
}

func NewPaths(dir string) Paths {
	return Paths{
		Raw:     filepath.Join(dir, "daily_raw_news.csv"),
		Ranked:  filepath.Join(dir, "daily_ranked_news.csv"),
		Brief:   filepath.Join(dir, "EXECUTIVE_BRIEF.md"),
		WebData: filepath.Join(dir, "web_data.json"),
		History: filepath.Join(dir, "history.json"),
		Lock:    filepath.Join(dir, ".radar.lock"),
	}
}

type Aggregator interface {
	Aggregate(ctx context.Context, sources []config.Source) aggregator.Output
}

type Scorer interface {
	Score(ctx context.Context, items []news.FeedItem) ([]news.RankedItem, error)
}

type Briefer interface {
	Brief(ctx context.Context, ranked []news.RankedItem) (briefer.Result, error)
}

// Archiver 持久化每日排名与简报（可选，例如 Postgres）
type Archiver interface {
	SaveRanked(ctx context.Context, runDate string, items []news.RankedItem) error
	SaveBriefing(ctx context.Context, runDate, markdown string) error
}

type Deps struct {
	Paths      Paths
	Sources    []config.Source
	Aggregator Aggregator
	History    history.Store
	Scorer     Scorer
	Briefer    Briefer
	Archive    Archiver // 可为 nil
	Location   *time.Location
	Now        func() time.Time
	Out        io.Writer // 控制台摘要输出
	RunTimeout time.Duration // 仅用于 Go 启动的后台运行
}

// Pipeline 按 INGEST → SCORE → BRIEF → EXPORT 顺序执行，任一阶段失败即停止
type Pipeline struct {
	d    Deps
	mu   sync.Mutex
	file *flock.Flock // Paths.Lock 为空时为 nil
}

func New(d Deps) *Pipeline {
	if d.Location == nil {
		d.Location = time.UTC
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Out == nil {
		d.Out = io.Discard
	}
	if d.RunTimeout <= 0 {
		d.RunTimeout = defaultRunTimeout
	}
	p := &Pipeline{d: d}
	if d.Paths.Lock != "" {
		p.file = flock.New(d.Paths.Lock)
	}
	return p
}

func (p *Pipeline) Paths() Paths {
	return p.d.Paths
}

// acquire 先取进程内锁，再取锁文件；本进程或其他进程（如同一数据目录下的 CLI）正在运行时返回 ErrBusy
func (p *Pipeline) acquire() error {
	if !p.mu.TryLock() {
		return ErrBusy
	}
	if p.file == nil {
		return nil
	}
	locked, err := p.file.TryLock()
	if err != nil {
		p.mu.Unlock()
		return fmt.Errorf("lock %s: %w", p.d.Paths.Lock, err)
	}
	if !locked {
		p.mu.Unlock()
		return ErrBusy
	}
	return nil
}

func (p *Pipeline) release() {
	if p.file != nil {
		if err := p.file.Unlock(); err != nil {
			log.Printf("warn: unlock %s: %v", p.d.Paths.Lock, err)
		}
	}
	p.mu.Unlock()
}

// Run 执行完整流程；已有运行时返回 ErrBusy
func (p *Pipeline) Run(ctx context.Context) error {
	if err := p.acquire(); err != nil {
		return err
	}
	defer p.release()
	return p.runAll(ctx)
}

// Go 在后台执行完整流程，最长运行 RunTimeout；已有运行时立即返回 ErrBusy
func (p *Pipeline) Go(ctx context.Context) error {
	if err := p.acquire(); err != nil {
		return err
	}
	go func() {
		defer p.release()
		ctx, cancel := context.WithTimeout(ctx, p.d.RunTimeout)
		defer cancel()
		_ = p.runAll(ctx)
	}()
	return nil
}

func (p *Pipeline) runAll(ctx context.Context) error {
	start := time.Now()
	for _, s := range Stages {
		err := p.runStage(ctx, s)
		if errors.Is(err, errNothingRanked) {
			log.Printf("pipeline halted after %s: no new headlines today, nothing to brief", s)
			return nil
		}
		if err != nil {
			log.Printf("stage %s failed: %v", s, err)
			log.Printf("pipeline halted at %s", s)
			return err
		}
	}
	log.Printf("pipeline done in %s", time.Since(start).Round(time.Millisecond))
	return nil
}

// RunStage 单独执行某一阶段
func (p *Pipeline) RunStage(ctx context.Context, s Stage) error {
	if err := p.acquire(); err != nil {
		return err
	}
	defer p.release()

	err := p.runStage(ctx, s)
	if errors.Is(err, errNothingRanked) {
		log.Printf("stage %s: no new headlines today, no ranked table written", s)
		return nil
	}
	if err != nil {
		log.Printf("stage %s failed: %v", s, err)
		return err
	}
	return nil
}

func (p *Pipeline) runStage(ctx context.Context, s Stage) error {
	log.Printf("==> %s", s)
	switch s {
	case StageIngest:
		return p.ingest(ctx)
	case StageScore:
		return p.score(ctx)
	case StageBrief:
		return p.brief(ctx)
	case StageExport:
		return p.export()
	default:
		return fmt.Errorf("unknown stage %q", s)
	}
}

func (p *Pipeline) ingest(ctx context.Context) error {
	out := p.d.Aggregator.Aggregate(ctx, p.d.Sources)

	if err := table.WriteRaw(p.d.Paths.Raw, out.Unseen); err != nil {
		return fmt.Errorf("write raw table: %w", err)
	}
	if err := p.d.History.Commit(ctx, out.NewLinks); err != nil {
		return fmt.Errorf("commit history: %w", err)
	}

	ui.IngestReport(p.d.Out, out.Results, len(out.Unseen))
	return nil
}

func (p *Pipeline) score(ctx context.Context) error {
	if err := require(StageScore, p.d.Paths.Raw); err != nil {
		return err
	}
	// 先移除旧的排名表，失败或无结果时下游不会读到上一次的数据
	if err := os.Remove(p.d.Paths.Ranked); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove stale ranked table: %w", err)
	}

	items, err := table.ReadRaw(p.d.Paths.Raw)
	if err != nil {
		return fmt.Errorf("read raw table: %w", err)
	}
	ranked, err := p.d.Scorer.Score(ctx, items)
	if err != nil {
		return err
	}
	if ranked == nil {
		return errNothingRanked
	}

	if err := table.WriteRanked(p.d.Paths.Ranked, ranked); err != nil {
		return fmt.Errorf("write ranked table: %w", err)
	}
	log.Printf("score: %d items ranked -> %s", len(ranked), p.d.Paths.Ranked)
	ui.Digest(p.d.Out, ranked, digestSize)

	if p.d.Archive != nil {
		if err := p.d.Archive.SaveRanked(ctx, p.runDate(), ranked); err != nil {
			log.Printf("warn: archive ranked: %v", err)
		}
	}
	return nil
}

func (p *Pipeline) brief(ctx context.Context) error {
	if err := require(StageBrief, p.d.Paths.Ranked); err != nil {
		return err
	}
	ranked, err := table.ReadRanked(p.d.Paths.Ranked)
	if err != nil {
		return fmt.Errorf("read ranked table: %w", err)
	}

	res, err := p.d.Briefer.Brief(ctx, ranked)
	if err != nil {
		return err
	}
	if err := writeFile(p.d.Paths.Brief, []byte(res.Markdown)); err != nil {
		return fmt.Errorf("write briefing: %w", err)
	}
	log.Printf("brief: %d written, %d skipped -> %s", res.Written, res.Skipped, p.d.Paths.Brief)

	if p.d.Archive != nil {
		if err := p.d.Archive.SaveBriefing(ctx, p.runDate(), res.Markdown); err != nil {
			log.Printf("warn: archive briefing: %v", err)
		}
	}
	return nil
}

func (p *Pipeline) export() error {
	skipped, err := export.Export(p.d.Paths.Brief, p.d.Paths.WebData, p.d.Now(), p.d.Location)
	if err != nil {
		return err
	}
	if skipped {
		log.Printf("export: %s not found, skipping", p.d.Paths.Brief)
		return nil
	}
	log.Printf("export: %s updated", p.d.Paths.WebData)
	return nil
}

func (p *Pipeline) runDate() string {
	return p.d.Now().In(p.d.Location).Format("2006-01-02")
}

func require(s Stage, path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &MissingArtifactError{Stage: s, Path: path}
		}
		return err
	}
	return nil
}

func writeFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
