package database

import (
	"errors"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/gocrud/inject/config"
	"github.com/gocrud/inject/di"
	"github.com/gocrud/inject/logging"
)

// DefaultDatabase 同时以未命名方式绑定的数据库名称
const DefaultDatabase = "default"

// Builder 收集数据库配置，本身是一个 di.Installer。
// 每个数据库绑定为 (*gorm.DB, name) 单例，第一次解析时打开，容器释放时关闭。
type Builder struct {
	names []string
	dbs   map[string]Options
	errs  []error
}

// NewBuilder 创建数据库构建器
func NewBuilder() *Builder {
	return &Builder{dbs: make(map[string]Options)}
}

// Add 添加一个数据库
func (b *Builder) Add(name string, dialector gorm.Dialector, configure func(*Options)) *Builder {
	opts := DefaultOptions()
	opts.Dialector = dialector
	if dialector == nil {
		opts.Driver = ""
	}
	if configure != nil {
		configure(&opts)
	}
	return b.add(name, opts)
}

// AddSQLite 添加一个 SQLite 数据库
func (b *Builder) AddSQLite(name, dsn string, configure func(*Options)) *Builder {
	return b.Add(name, sqlite.Open(dsn), configure)
}

func (b *Builder) add(name string, opts Options) *Builder {
	if name == "" {
		b.errs = append(b.errs, fmt.Errorf("database name is required"))
		return b
	}
	if _, exists := b.dbs[name]; exists {
		b.errs = append(b.errs, fmt.Errorf("database '%s' already configured", name))
		return b
	}
	if err := opts.Validate(); err != nil {
		b.errs = append(b.errs, fmt.Errorf("invalid database configuration for '%s': %w", name, err))
		return b
	}
	b.names = append(b.names, name)
	b.dbs[name] = opts
	return b
}

// FromConfig 从配置节读取数据库，节下每个子节是一个数据库：
//
//	database:
//	  default:
//	    driver: sqlite
//	    dsn: app.db
//	    maxOpenConns: 20
func FromConfig(cfg config.Configuration, section string) (*Builder, error) {
	b := NewBuilder()
	for _, name := range config.SectionNames(cfg, section) {
		opts, err := config.LoadOrDefault(cfg, section+":"+name, DefaultOptions())
		if err != nil {
			return nil, fmt.Errorf("database '%s': %w", name, err)
		}
		b.add(name, opts)
	}
	return b, nil
}

// Migrate 为已添加的数据库追加自动迁移的模型
func (b *Builder) Migrate(name string, models ...any) *Builder {
	opts, ok := b.dbs[name]
	if !ok {
		b.errs = append(b.errs, fmt.Errorf("database '%s' not configured", name))
		return b
	}
	opts.AutoMigrate = append(opts.AutoMigrate, models...)
	b.dbs[name] = opts
	return b
}

// Name 实现 di.Named
func (b *Builder) Name() string { return "database" }

// InstallBindings 实现 di.Installer
func (b *Builder) InstallBindings(c *di.Container) error {
	if err := errors.Join(b.errs...); err != nil {
		return err
	}

	for _, name := range b.names {
		opts := b.dbs[name]
		di.Bind[*gorm.DB](c).
			WithID(name).
			WithConcreteID(name).
			FromMethod(func(owner *di.Container) (*gorm.DB, error) {
				db, err := open(name, opts, owner.Logger())
				if err != nil {
					return nil, err
				}
				owner.OnDispose(func() error {
					owner.Logger().Info("closing database", logging.Field{Key: "name", Value: name})
					return closeDB(db)
				})
				return db, nil
			}).
			AsSingle()

		c.Logger().Info("database registered", logging.Field{Key: "name", Value: name})
	}

	if _, ok := b.dbs[DefaultDatabase]; ok {
		di.Bind[*gorm.DB](c).FromResolveID(DefaultDatabase)
	}

	names := append([]string(nil), b.names...)
	di.Bind[*DatabaseFactory](c).FromMethod(func(ctx *di.InjectContext) (*DatabaseFactory, error) {
		f := &DatabaseFactory{dbs: make(map[string]*gorm.DB, len(names))}
		for _, name := range names {
			db, err := ctx.ResolveID(di.TypeOf[*gorm.DB](), name)
			if err != nil {
				return nil, err
			}
			f.dbs[name] = db.(*gorm.DB)
		}
		return f, nil
	}).AsSingle()
	return nil
}

// Configure 返回数据库安装器
// 使用示例: c.Install(database.Configure(func(b *database.Builder) { ... }))
func Configure(options func(*Builder)) di.Installer {
	b := NewBuilder()
	if options != nil {
		options(b)
	}
	return b
}
