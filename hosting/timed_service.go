package hosting

import (
	"context"
	"sync"
	"time"

	"github.com/gocrud/inject/logging"
)

// TimedHostedService 按固定间隔执行任务的托管服务
type TimedHostedService struct {
	name     string
	interval time.Duration
	task     func(ctx context.Context) error
	logger   logging.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewTimedHostedService 创建定时托管服务
func NewTimedHostedService(name string, interval time.Duration, task func(ctx context.Context) error, logger logging.Logger) *TimedHostedService {
	if logger == nil {
		logger = logging.Nop()
	}
	return &TimedHostedService{
		name:     name,
		interval: interval,
		task:     task,
		logger:   logger.WithFields(logging.Field{Key: "service", Value: name}),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start 实现 HostedService
func (s *TimedHostedService) Start(ctx context.Context) error {
	defer close(s.doneCh)
	s.logger.Info("timed service running", logging.Field{Key: "interval", Value: s.interval})

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.task(ctx); err != nil {
				s.logger.Error("timed service task failed", logging.Field{Key: "error", Value: err.Error()})
			}
		case <-s.stopCh:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Stop 实现 HostedService，重复调用无效果
func (s *TimedHostedService) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stopCh) })

	select {
	case <-s.doneCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
