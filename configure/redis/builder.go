package redis

import (
	"errors"
	"fmt"

	"github.com/gocrud/inject/config"
	"github.com/gocrud/inject/di"
	"github.com/gocrud/inject/logging"
	"github.com/redis/go-redis/v9"
)

// DefaultClient 同时以未命名方式绑定的客户端名称
const DefaultClient = "default"

// Builder 收集 Redis 客户端配置，本身是一个 di.Installer。
// 每个客户端绑定为 (*redis.Client, name) 单例，容器释放时自动关闭。
type Builder struct {
	names   []string
	clients map[string]ClientOptions
	errs    []error
}

// NewBuilder 创建 Redis 构建器
func NewBuilder() *Builder {
	return &Builder{clients: make(map[string]ClientOptions)}
}

// AddClient 添加一个 Redis 客户端配置
func (b *Builder) AddClient(name string, configure func(*ClientOptions)) *Builder {
	opts := DefaultOptions()
	if configure != nil {
		configure(&opts)
	}
	return b.add(name, opts)
}

func (b *Builder) add(name string, opts ClientOptions) *Builder {
	if name == "" {
		b.errs = append(b.errs, fmt.Errorf("redis client name is required"))
		return b
	}
	if _, exists := b.clients[name]; exists {
		b.errs = append(b.errs, fmt.Errorf("redis client '%s' already configured", name))
		return b
	}
	if err := opts.Validate(); err != nil {
		b.errs = append(b.errs, fmt.Errorf("invalid redis configuration for '%s': %w", name, err))
		return b
	}
	b.names = append(b.names, name)
	b.clients[name] = opts
	return b
}

// FromConfig 从配置节读取客户端，节下每个子节是一个客户端：
//
//	redis:
//	  default:
//	    addr: localhost:6379
//	  cache:
//	    addr: localhost:6380
//	    dialTimeout: 2s
func FromConfig(cfg config.Configuration, section string) (*Builder, error) {
	b := NewBuilder()
	for _, name := range config.SectionNames(cfg, section) {
		opts, err := config.LoadOrDefault(cfg, section+":"+name, DefaultOptions())
		if err != nil {
			return nil, fmt.Errorf("redis client '%s': %w", name, err)
		}
		b.add(name, opts)
	}
	return b, nil
}

// Name 实现 di.Named
func (b *Builder) Name() string { return "redis" }

// InstallBindings 实现 di.Installer
func (b *Builder) InstallBindings(c *di.Container) error {
	if err := errors.Join(b.errs...); err != nil {
		return err
	}

	for _, name := range b.names {
		opts := b.clients[name]
		di.Bind[*redis.Client](c).
			WithID(name).
			WithConcreteID(name).
			FromMethod(func() (*redis.Client, error) { return newClient(opts) }).
			AsSingle()

		c.Logger().Info("redis client registered",
			logging.Field{Key: "name", Value: name},
			logging.Field{Key: "addr", Value: opts.Addr},
			logging.Field{Key: "db", Value: opts.DB})
	}

	if _, ok := b.clients[DefaultClient]; ok {
		di.Bind[*redis.Client](c).FromResolveID(DefaultClient)
	}

	names := append([]string(nil), b.names...)
	di.Bind[*Clients](c).FromMethod(func(ctx *di.InjectContext) (*Clients, error) {
		clients := &Clients{clients: make(map[string]*redis.Client, len(names))}
		for _, name := range names {
			v, err := ctx.ResolveID(di.TypeOf[*redis.Client](), name)
			if err != nil {
				return nil, err
			}
			clients.clients[name] = v.(*redis.Client)
		}
		return clients, nil
	}).AsSingle()
	return nil
}

// Configure 返回 Redis 安装器
// 使用示例: c.Install(redis.Configure(func(b *redis.Builder) { ... }))
func Configure(options func(*Builder)) di.Installer {
	b := NewBuilder()
	if options != nil {
		options(b)
	}
	return b
}
