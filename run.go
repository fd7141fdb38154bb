package inject

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gocrud/inject/di"
	"github.com/gocrud/inject/hosting"
)

// ShutdownTimeout 停止托管服务的最长等待时间
var ShutdownTimeout = 5 * time.Second

// Run 构建容器并运行所有托管服务，直到收到 SIGINT 或 SIGTERM
func Run(c *di.Container) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return RunContext(ctx, c)
}

// RunContext 构建容器并运行所有托管服务，直到 ctx 取消或某个服务出错。
// 返回前释放容器。
func RunContext(ctx context.Context, c *di.Container) error {
	if err := c.Build(); err != nil {
		return errors.Join(err, c.Dispose())
	}

	m, err := hosting.NewManager(c)
	if err != nil {
		return errors.Join(err, c.Dispose())
	}
	c.Logger().Info("application started")

	runErr := m.Run(ctx, ShutdownTimeout)
	return errors.Join(runErr, c.Dispose())
}
