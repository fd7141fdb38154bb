package mongodb

import (
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/gocrud/inject/config"
	"github.com/gocrud/inject/di"
	"github.com/gocrud/inject/logging"
)

// DefaultClient 同时以未命名方式绑定的客户端名称
const DefaultClient = "default"

// Builder MongoDB 配置构建器，本身是一个 di.Installer
type Builder struct {
	names   []string
	configs map[string]MongoOptions
	errors  []error
}

// NewBuilder 创建构建器
func NewBuilder() *Builder {
	return &Builder{configs: make(map[string]MongoOptions)}
}

// Add 添加 MongoDB 客户端配置
func (b *Builder) Add(name string, uri string, configure func(*MongoOptions)) *Builder {
	opts := DefaultOptions()
	opts.Uri = uri
	if configure != nil {
		configure(&opts)
	}
	return b.add(name, opts)
}

func (b *Builder) add(name string, opts MongoOptions) *Builder {
	if name == "" {
		b.errors = append(b.errors, fmt.Errorf("mongo client name is required"))
		return b
	}
	if _, exists := b.configs[name]; exists {
		b.errors = append(b.errors, fmt.Errorf("mongo client '%s' already configured", name))
		return b
	}
	if err := opts.Validate(); err != nil {
		b.errors = append(b.errors, fmt.Errorf("invalid mongo configuration for '%s': %w", name, err))
		return b
	}
	b.names = append(b.names, name)
	b.configs[name] = opts
	return b
}

// FromConfig 从配置节读取客户端，节下每个子节是一个客户端
func FromConfig(cfg config.Configuration, section string) (*Builder, error) {
	b := NewBuilder()
	for _, name := range config.SectionNames(cfg, section) {
		opts, err := config.LoadOrDefault(cfg, section+":"+name, DefaultOptions())
		if err != nil {
			return nil, fmt.Errorf("mongo client '%s': %w", name, err)
		}
		b.add(name, opts)
	}
	return b, nil
}

// Name 实现 di.Named
func (b *Builder) Name() string { return "mongodb" }

// InstallBindings 实现 di.Installer。
// 客户端绑定为 (*mongo.Client, name) 单例，容器释放时断开连接；
// 配置了 Database 的客户端同时绑定 (*mongo.Database, name)。
func (b *Builder) InstallBindings(c *di.Container) error {
	if err := errors.Join(b.errors...); err != nil {
		return err
	}

	for _, name := range b.names {
		opts := b.configs[name]
		di.Bind[*mongo.Client](c).
			WithID(name).
			WithConcreteID(name).
			FromMethod(func(owner *di.Container) (*mongo.Client, error) {
				client, err := newClient(opts)
				if err != nil {
					return nil, fmt.Errorf("mongo client '%s': %w", name, err)
				}
				owner.OnDispose(func() error {
					owner.Logger().Info("closing mongo client", logging.Field{Key: "name", Value: name})
					return disconnect(client, 10*time.Second)
				})
				return client, nil
			}).
			AsSingle()

		if opts.Database != "" {
			database := opts.Database
			di.Bind[*mongo.Database](c).
				WithID(name).
				FromMethod(func(ctx *di.InjectContext) (*mongo.Database, error) {
					client, err := ctx.ResolveID(di.TypeOf[*mongo.Client](), name)
					if err != nil {
						return nil, err
					}
					return client.(*mongo.Client).Database(database), nil
				}).
				AsCached()
		}

		c.Logger().Info("mongo client registered",
			logging.Field{Key: "name", Value: name},
			logging.Field{Key: "database", Value: opts.Database})
	}

	if opts, ok := b.configs[DefaultClient]; ok {
		di.Bind[*mongo.Client](c).FromResolveID(DefaultClient)
		if opts.Database != "" {
			di.Bind[*mongo.Database](c).FromResolveID(DefaultClient)
		}
	}

	names := append([]string(nil), b.names...)
	di.Bind[*MongoFactory](c).FromMethod(func(ctx *di.InjectContext) (*MongoFactory, error) {
		f := &MongoFactory{clients: make(map[string]*mongo.Client, len(names))}
		for _, name := range names {
			client, err := ctx.ResolveID(di.TypeOf[*mongo.Client](), name)
			if err != nil {
				return nil, err
			}
			f.clients[name] = client.(*mongo.Client)
		}
		return f, nil
	}).AsSingle()
	return nil
}

// Configure 返回 MongoDB 安装器
func Configure(options func(*Builder)) di.Installer {
	b := NewBuilder()
	if options != nil {
		options(b)
	}
	return b
}
