package di

import (
	"errors"
	"io"
	"reflect"

	"github.com/gocrud/inject/logging"
)

// Disposable 由需要在容器释放时清理的实例实现
type Disposable interface {
	Dispose()
}

// OnDispose 注册一个在容器释放时执行的清理函数，按注册的逆序执行
func (c *Container) OnDispose(fn func() error) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disposers = append(c.disposers, fn)
}

// trackDisposables 登记缓存实例中实现了 Disposable 或 io.Closer 的对象，同一对象只登记一次
func (c *Container) trackDisposables(objs []any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, obj := range objs {
		release := disposerFor(obj)
		if release == nil {
			continue
		}
		if isReference(obj) {
			if _, seen := c.tracked[obj]; seen {
				continue
			}
			c.tracked[obj] = struct{}{}
		}
		c.disposers = append(c.disposers, release)
	}
}

func disposerFor(obj any) func() error {
	switch v := obj.(type) {
	case Disposable:
		return func() error {
			v.Dispose()
			return nil
		}
	case io.Closer:
		return v.Close
	}
	return nil
}

// isReference 只有引用类型才能安全地作为 map 键去重
func isReference(obj any) bool {
	switch reflect.TypeOf(obj).Kind() {
	case reflect.Pointer, reflect.Chan, reflect.UnsafePointer:
		return true
	}
	return false
}

// Dispose 释放容器：先释放子容器，再按创建的逆序释放缓存实例和清理函数，
// 最后清空所有缓存。之后的解析返回 ErrContainerDisposed。重复调用无效果。
func (c *Container) Dispose() error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return nil
	}
	c.disposed = true
	children := c.children
	disposers := c.disposers
	caches := c.caches
	c.children, c.disposers, c.caches = nil, nil, nil
	c.tracked = make(map[any]struct{})
	c.mu.Unlock()

	// 清理函数可能关闭日志输出，日志要在它们之前写
	c.logger.Debug("di: disposing container",
		logging.Field{Key: "disposers", Value: len(disposers)},
		logging.Field{Key: "children", Value: len(children)},
	)

	var errs []error
	for i := len(children) - 1; i >= 0; i-- {
		if err := children[i].Dispose(); err != nil {
			errs = append(errs, err)
		}
	}
	for i := len(disposers) - 1; i >= 0; i-- {
		if err := disposers[i](); err != nil {
			c.logger.Error("di: dispose failed", logging.Field{Key: "error", Value: err})
			errs = append(errs, err)
		}
	}
	for _, p := range caches {
		p.reset()
	}

	if c.parent != nil {
		c.parent.forget(c.self)
	}
	return errors.Join(errs...)
}
