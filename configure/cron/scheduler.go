package cron

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/gocrud/inject/logging"
)

// Job 在容器中以 Job 合约注册的任务会被调度器自动加载
type Job interface {
	Name() string
	Spec() string
	Run(ctx context.Context) error
}

// Scheduler 定时任务调度器，同时是一个托管服务。作为容器单例时，容器释放会调用 Close 停止调度。
type Scheduler struct {
	cron    *cron.Cron
	logger  logging.Logger
	timeout time.Duration

	mu      sync.Mutex
	jobs    map[string]cron.EntryID
	funcs   map[string]func(context.Context) error
	started bool
}

type schedulerOptions struct {
	seconds     bool
	location    *time.Location
	cronLogger  bool
	stopTimeout time.Duration
}

func newScheduler(logger logging.Logger, opts schedulerOptions) *Scheduler {
	cl := newCronLogger(logger)
	cronOpts := []cron.Option{
		cron.WithLocation(opts.location),
		cron.WithChain(cron.Recover(cl)),
	}
	if opts.cronLogger {
		cronOpts = append(cronOpts, cron.WithLogger(cl))
	}
	if opts.seconds {
		cronOpts = append(cronOpts, cron.WithSeconds())
	}

	return &Scheduler{
		cron:    cron.New(cronOpts...),
		logger:  logger,
		timeout: opts.stopTimeout,
		jobs:    make(map[string]cron.EntryID),
		funcs:   make(map[string]func(context.Context) error),
	}
}

// add 注册任务，spec 是 cron 表达式，如 "*/5 * * * *"（每 5 分钟）
func (s *Scheduler) add(spec, name string, job func(context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("cron job '%s' already registered", name)
	}
	id, err := s.cron.AddFunc(spec, func() { s.run(name, job) })
	if err != nil {
		return fmt.Errorf("failed to add cron job '%s': %w", name, err)
	}
	s.jobs[name] = id
	s.funcs[name] = job
	s.logger.Info("cron job registered",
		logging.Field{Key: "name", Value: name},
		logging.Field{Key: "spec", Value: spec})
	return nil
}

func (s *Scheduler) run(name string, job func(context.Context) error) {
	start := time.Now()
	s.logger.Debug("cron job started", logging.Field{Key: "name", Value: name})
	if err := job(context.Background()); err != nil {
		s.logger.Error("cron job failed",
			logging.Field{Key: "name", Value: name},
			logging.Field{Key: "error", Value: err.Error()})
		return
	}
	s.logger.Debug("cron job completed",
		logging.Field{Key: "name", Value: name},
		logging.Field{Key: "elapsed", Value: time.Since(start)})
}

// Trigger 立即同步执行一个任务，不影响调度
func (s *Scheduler) Trigger(ctx context.Context, name string) error {
	s.mu.Lock()
	job, ok := s.funcs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("cron job '%s' not found", name)
	}
	return job(ctx)
}

// Remove 移除任务
func (s *Scheduler) Remove(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, exists := s.jobs[name]
	if !exists {
		return false
	}
	s.cron.Remove(id)
	delete(s.jobs, name)
	delete(s.funcs, name)
	s.logger.Info("cron job removed", logging.Field{Key: "name", Value: name})
	return true
}

// Jobs 返回所有任务名称
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Next 返回任务的下一次执行时间，调度器未启动时为零值
func (s *Scheduler) Next(name string) (time.Time, bool) {
	s.mu.Lock()
	id, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	return s.cron.Entry(id).Next, true
}

// StartAsync 在后台开始调度，重复调用无效果
func (s *Scheduler) StartAsync() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.logger.Info("cron scheduler starting", logging.Field{Key: "jobs", Value: len(s.jobs)})
	s.cron.Start()
}

// Start 实现 hosting.HostedService：开始调度并阻塞直到 ctx 取消
func (s *Scheduler) Start(ctx context.Context) error {
	s.StartAsync()
	<-ctx.Done()
	return s.Stop(context.Background())
}

// Stop 停止调度并等待正在执行的任务完成，最多等待 ctx 或停止超时
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	s.mu.Unlock()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	select {
	case <-s.cron.Stop().Done():
		s.logger.Info("cron scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("cron scheduler stop timeout")
		return ctx.Err()
	}
}

// Close 实现 io.Closer
func (s *Scheduler) Close() error {
	return s.Stop(context.Background())
}
