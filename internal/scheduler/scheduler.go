package scheduler

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Runner 是一次完整的流水线执行
type Runner interface {
	Run(ctx context.Context) error
}

type Scheduler struct {
	cron    *cron.Cron
	loc     *time.Location
	runner  Runner
	timeout time.Duration
	busy    error
}

type Option func(*Scheduler)

// WithRunTimeout 限制单轮执行时长
func WithRunTimeout(d time.Duration) Option {
	return func(s *Scheduler) { s.timeout = d }
}

// WithBusyError 指定"已有运行"的错误，遇到时只记录跳过
func WithBusyError(err error) Option {
	return func(s *Scheduler) { s.busy = err }
}

func New(spec string, loc *time.Location, runner Runner, opts ...Option) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	c := cron.New(cron.WithLocation(loc))

	s := &Scheduler{
		cron:    c,
		loc:     loc,
		runner:  runner,
		timeout: 30 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}

	_, err := c.AddFunc(spec, s.runOnce)
	if err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// StartWithWarmup 启动后延迟执行首轮，避免与服务启动争抢资源
func (s *Scheduler) StartWithWarmup(delay time.Duration) {
	s.cron.Start()
	time.AfterFunc(delay, func() {
		go s.runOnce()
	})
}

// Stop 停止调度，返回的 ctx 在进行中的任务结束后关闭
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// RunOnce 对外暴露的单次执行入口，方便手动触发
func (s *Scheduler) RunOnce() {
	s.runOnce()
}

func (s *Scheduler) runOnce() {
	log.Println("start pipeline job...")
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	err := s.runner.Run(ctx)
	switch {
	case err == nil:
		log.Println("pipeline job done")
	case s.busy != nil && errors.Is(err, s.busy):
		log.Println("pipeline job skipped: previous run still in progress")
	default:
		log.Printf("pipeline job error: %v", err)
	}
}

// Next 返回下一次计划执行时间
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Schedule.Next(time.Now().In(s.loc))
}
