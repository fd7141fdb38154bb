package di

import (
	"fmt"

	"github.com/gocrud/inject/logging"
)

// Installer 把一组相关的绑定安装到容器中
type Installer interface {
	InstallBindings(c *Container) error
}

// InstallerFunc 让普通函数实现 Installer
type InstallerFunc func(c *Container) error

// InstallBindings 实现 Installer
func (f InstallerFunc) InstallBindings(c *Container) error {
	return f(c)
}

// Named 可选接口，安装器实现它后日志和错误中会使用这个名字
type Named interface {
	Name() string
}

func installerName(in Installer) string {
	if n, ok := in.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", in)
}

// Install 按顺序执行安装器，遇到第一个错误即返回
func (c *Container) Install(installers ...Installer) error {
	c.mu.RLock()
	built, disposed := c.built, c.disposed
	c.mu.RUnlock()
	if disposed {
		return fmt.Errorf("di: Install: %w", ErrContainerDisposed)
	}
	if built {
		return fmt.Errorf("di: Install: %w", ErrContainerBuilt)
	}

	for _, in := range installers {
		if in == nil {
			continue
		}
		name := installerName(in)
		c.logger.Debug("di: installing", logging.Field{Key: "installer", Value: name})
		if err := in.InstallBindings(c); err != nil {
			return fmt.Errorf("di: installer %s: %w", name, err)
		}
	}
	return nil
}
