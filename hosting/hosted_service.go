package hosting

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gocrud/inject/di"
	"github.com/gocrud/inject/logging"
)

// HostedService 托管服务接口
// Manager 在独立的 goroutine 中调用 Start，服务无需自己启动 goroutine
type HostedService interface {
	// Start 启动服务，应阻塞直到 ctx 被取消或发生错误
	Start(ctx context.Context) error

	// Stop 执行优雅关闭，必须支持通过 ctx 超时
	Stop(ctx context.Context) error
}

var hostedServiceType = di.TypeOf[HostedService]()

// AddHostedService 把容器中已绑定的类型 t 登记为托管服务，
// 解析时转发到 t 的未命名绑定，因此与直接注入 t 得到同一个实例
func AddHostedService(c *di.Container, t reflect.Type) *di.Binder {
	return c.Bind(hostedServiceType).To(t).FromResolve()
}

// Manager 托管服务管理器
type Manager struct {
	services []HostedService
	logger   logging.Logger
	group    errgroup.Group
}

// NewManager 从容器解析所有 HostedService 绑定
func NewManager(c *di.Container) (*Manager, error) {
	services, err := di.ResolveAll[HostedService](c)
	if err != nil {
		return nil, fmt.Errorf("hosting: resolving hosted services: %w", err)
	}
	return &Manager{
		services: services,
		logger:   c.Logger().WithCategory("hosting"),
	}, nil
}

// Services 返回托管服务数量
func (m *Manager) Services() int {
	return len(m.services)
}

// StartAll 并发启动所有托管服务，返回的通道接收非取消类的启动错误
func (m *Manager) StartAll(ctx context.Context) <-chan error {
	errCh := make(chan error, len(m.services))
	m.logger.Info("starting hosted services", logging.Field{Key: "count", Value: len(m.services)})

	for index, svc := range m.services {
		m.group.Go(func() error {
			err := svc.Start(ctx)
			switch {
			case err == nil:
				m.logger.Debug("hosted service completed", logging.Field{Key: "index", Value: index})
			case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
				m.logger.Debug("hosted service stopped (context done)", logging.Field{Key: "index", Value: index})
				return nil
			default:
				m.logger.Error("hosted service error",
					logging.Field{Key: "index", Value: index},
					logging.Field{Key: "service", Value: fmt.Sprintf("%T", svc)},
					logging.Field{Key: "error", Value: err.Error()})
				errCh <- err
			}
			return err
		})
	}
	return errCh
}

// StopAll 逆序停止所有托管服务并等待 Start 返回
func (m *Manager) StopAll(ctx context.Context) error {
	m.logger.Info("stopping hosted services", logging.Field{Key: "count", Value: len(m.services)})

	var errs []error
	for i := len(m.services) - 1; i >= 0; i-- {
		if err := m.services[i].Stop(ctx); err != nil {
			m.logger.Error("failed to stop hosted service",
				logging.Field{Key: "index", Value: i},
				logging.Field{Key: "error", Value: err.Error()})
			errs = append(errs, err)
		}
	}

	done := make(chan struct{})
	go func() {
		_ = m.group.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		errs = append(errs, fmt.Errorf("hosting: waiting for services: %w", ctx.Err()))
	}
	return errors.Join(errs...)
}

// Run 启动所有服务，阻塞直到 ctx 取消或某个服务出错，然后在 shutdownTimeout 内停止所有服务
func (m *Manager) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var runErr error
	select {
	case runErr = <-m.StartAll(runCtx):
	case <-ctx.Done():
	}
	cancel()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stopCancel()
	return errors.Join(runErr, m.StopAll(stopCtx))
}
