package di

import "github.com/gocrud/inject/logging"

// Option 配置新建的容器
type Option func(*Container)

// WithSettings 替换容器设置
func WithSettings(s Settings) Option {
	return func(c *Container) {
		c.settings = s
	}
}

// WithInvalidBindResponse 设置默认的不兼容绑定处理方式
func WithInvalidBindResponse(r InvalidBindResponse) Option {
	return func(c *Container) {
		c.settings.InvalidBindResponse = r
	}
}

// WithRecipeCacheSize 设置构造配方缓存大小
func WithRecipeCacheSize(size int) Option {
	return func(c *Container) {
		c.settings.RecipeCacheSize = size
	}
}

// WithLogger 设置日志记录器，容器会以 "di" 分类输出调试日志
func WithLogger(l logging.Logger) Option {
	return func(c *Container) {
		if l != nil {
			c.logger = l.WithCategory("di")
		}
	}
}
