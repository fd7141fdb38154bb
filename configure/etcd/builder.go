package etcd

import (
	"errors"
	"fmt"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/gocrud/inject/config"
	"github.com/gocrud/inject/di"
	"github.com/gocrud/inject/logging"
)

// DefaultClient 同时以未命名方式绑定的客户端名称
const DefaultClient = "default"

// Builder Etcd 客户端配置构建器，本身是一个 di.Installer。
// 客户端绑定为 (*clientv3.Client, name) 单例，容器释放时由 Close 关闭。
type Builder struct {
	names   []string
	configs map[string]EtcdClientOptions
	errors  []error
}

// NewBuilder 创建 Etcd 构建器
func NewBuilder() *Builder {
	return &Builder{configs: make(map[string]EtcdClientOptions)}
}

// AddClient 添加一个 etcd 客户端配置
func (b *Builder) AddClient(name string, configure func(*EtcdClientOptions)) *Builder {
	opts := DefaultOptions()
	if configure != nil {
		configure(&opts)
	}
	return b.add(name, opts)
}

func (b *Builder) add(name string, opts EtcdClientOptions) *Builder {
	if name == "" {
		b.errors = append(b.errors, fmt.Errorf("etcd client name is required"))
		return b
	}
	if _, exists := b.configs[name]; exists {
		b.errors = append(b.errors, fmt.Errorf("etcd client '%s' already configured", name))
		return b
	}
	if err := opts.Validate(); err != nil {
		b.errors = append(b.errors, fmt.Errorf("invalid etcd configuration for '%s': %w", name, err))
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
			return nil, fmt.Errorf("etcd client '%s': %w", name, err)
		}
		b.add(name, opts)
	}
	return b, nil
}

// Name 实现 di.Named
func (b *Builder) Name() string { return "etcd" }

// InstallBindings 实现 di.Installer
func (b *Builder) InstallBindings(c *di.Container) error {
	if err := errors.Join(b.errors...); err != nil {
		return err
	}

	for _, name := range b.names {
		opts := b.configs[name]
		di.Bind[*clientv3.Client](c).
			WithID(name).
			WithConcreteID(name).
			FromMethod(func() (*clientv3.Client, error) { return newClient(opts) }).
			AsSingle()

		c.Logger().Info("etcd client registered",
			logging.Field{Key: "name", Value: name},
			logging.Field{Key: "endpoints", Value: fmt.Sprintf("%v", opts.Endpoints)})
	}

	if _, ok := b.configs[DefaultClient]; ok {
		di.Bind[*clientv3.Client](c).FromResolveID(DefaultClient)
	}

	names := append([]string(nil), b.names...)
	di.Bind[*EtcdClientFactory](c).FromMethod(func(ctx *di.InjectContext) (*EtcdClientFactory, error) {
		f := &EtcdClientFactory{clients: make(map[string]*clientv3.Client, len(names))}
		for _, name := range names {
			client, err := ctx.ResolveID(di.TypeOf[*clientv3.Client](), name)
			if err != nil {
				return nil, err
			}
			f.clients[name] = client.(*clientv3.Client)
		}
		return f, nil
	}).AsSingle()
	return nil
}

// Configure 返回 Etcd 安装器
// 使用示例: c.Install(etcd.Configure(func(b *etcd.Builder) { ... }))
func Configure(options func(*Builder)) di.Installer {
	b := NewBuilder()
	if options != nil {
		options(b)
	}
	return b
}
