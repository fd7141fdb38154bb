// Package inject 把配置、日志和依赖注入容器组装在一起
package inject

import (
	"fmt"

	"github.com/gocrud/inject/config"
	"github.com/gocrud/inject/configure"
	"github.com/gocrud/inject/di"
	"github.com/gocrud/inject/logging"
)

// NewContainer 按配置创建容器：
//   - logging 节配置日志，容器释放时关闭日志
//   - di 节配置容器设置
//   - 其余已知节通过 configure.FromConfig 安装
//
// 容器中绑定了 config.Configuration 和 logging.LoggerFactory 实例。
func NewContainer(cfg config.Configuration) (*di.Container, error) {
	factory, err := logging.FromConfig(cfg, "logging")
	if err != nil {
		return nil, err
	}
	settings, err := di.SettingsFromConfig(cfg, "di")
	if err != nil {
		return nil, err
	}

	c := di.NewContainer(di.WithSettings(settings), di.WithLogger(factory.CreateLogger("app")))
	c.OnDispose(factory.Close)
	di.Bind[config.Configuration](c).FromInstance(cfg)
	di.Bind[logging.LoggerFactory](c).FromInstance(factory)

	installers, err := configure.FromConfig(cfg)
	if err != nil {
		return nil, err
	}
	if err := c.Install(installers...); err != nil {
		return nil, fmt.Errorf("inject: %w", err)
	}
	return c, nil
}
