package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/gocrud/inject/logging"
)

// Host Web 主机。作为容器单例时，容器释放会调用 Close 关闭服务器。
type Host struct {
	opts   Options
	engine *gin.Engine
	server *http.Server
	logger logging.Logger

	mu       sync.Mutex
	listener net.Listener
}

func newHost(opts Options, engine *gin.Engine, logger logging.Logger) *Host {
	return &Host{
		opts:   opts,
		engine: engine,
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", opts.Port),
			Handler:      engine,
			ReadTimeout:  opts.ReadTimeout.Std(),
			WriteTimeout: opts.WriteTimeout.Std(),
		},
		logger: logger,
	}
}

// Engine 获取 Gin 引擎
func (h *Host) Engine() *gin.Engine {
	return h.engine
}

// Listen 绑定端口，重复调用无效果
func (h *Host) Listen() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.listener != nil {
		return nil
	}
	ln, err := net.Listen("tcp", h.server.Addr)
	if err != nil {
		return fmt.Errorf("web: listen %s: %w", h.server.Addr, err)
	}
	h.listener = ln
	return nil
}

// Addr 返回监听地址，未监听时返回 nil
func (h *Host) Addr() net.Addr {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.listener == nil {
		return nil
	}
	return h.listener.Addr()
}

// Start 监听并处理请求，阻塞直到 ctx 取消或服务器出错
func (h *Host) Start(ctx context.Context) error {
	if err := h.Listen(); err != nil {
		return err
	}
	h.mu.Lock()
	ln := h.listener
	h.mu.Unlock()

	h.logger.Info("web host started", logging.Field{Key: "address", Value: ln.Addr().String()})

	errCh := make(chan error, 1)
	go func() {
		if err := h.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			h.logger.Error("web host error", logging.Field{Key: "error", Value: err.Error()})
		}
		return err
	case <-ctx.Done():
		return h.Stop(context.Background())
	}
}

// Stop 优雅关闭服务器，最多等待 ShutdownTimeout
func (h *Host) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, h.opts.ShutdownTimeout.Std())
	defer cancel()

	if err := h.server.Shutdown(ctx); err != nil {
		h.logger.Error("failed to shutdown web host gracefully",
			logging.Field{Key: "error", Value: err.Error()})
		return err
	}
	h.logger.Info("web host stopped")
	return nil
}

// Close 实现 io.Closer
func (h *Host) Close() error {
	return h.Stop(context.Background())
}
