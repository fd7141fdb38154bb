package database

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"

	"github.com/gocrud/inject/config"
	"github.com/gocrud/inject/logging"
)

// Options 数据库配置选项
type Options struct {
	// Driver 配置文件中使用的驱动名：sqlite、mysql、postgres、sqlserver。设置了 Dialector 时忽略
	Driver        string          `json:"driver"`
	DSN           string          `json:"dsn"`
	MaxIdleConns  int             `json:"maxIdleConns"`
	MaxOpenConns  int             `json:"maxOpenConns"`
	MaxLifetime   config.Duration `json:"maxLifetime"`
	SlowThreshold config.Duration `json:"slowThreshold"`
	// LogLevel gorm 日志级别：silent、error、warn、info
	LogLevel string `json:"logLevel"`

	Dialector   gorm.Dialector `json:"-"`
	GormConfig  *gorm.Config   `json:"-"`
	AutoMigrate []any          `json:"-"` // 需要自动迁移的模型
}

// DefaultOptions 创建默认配置
func DefaultOptions() Options {
	return Options{
		Driver:        "sqlite",
		MaxIdleConns:  10,
		MaxOpenConns:  100,
		MaxLifetime:   config.Duration(time.Hour),
		SlowThreshold: config.Duration(200 * time.Millisecond),
		LogLevel:      "warn",
	}
}

func (o *Options) dialector() (gorm.Dialector, error) {
	if o.Dialector != nil {
		return o.Dialector, nil
	}
	openDialector, ok := drivers[strings.ToLower(o.Driver)]
	if !ok {
		if o.Driver == "" {
			return nil, fmt.Errorf("database dialector is required")
		}
		return nil, fmt.Errorf("unsupported database driver %q", o.Driver)
	}
	if o.DSN == "" {
		return nil, fmt.Errorf("database dsn is required")
	}
	return openDialector(o.DSN), nil
}

// 配置文件中的驱动名到 Dialector 构造函数
var drivers = map[string]func(dsn string) gorm.Dialector{
	"sqlite":     sqlite.Open,
	"sqlite3":    sqlite.Open,
	"mysql":      mysql.Open,
	"postgres":   postgres.Open,
	"postgresql": postgres.Open,
	"sqlserver":  sqlserver.Open,
	"mssql":      sqlserver.Open,
}

// Validate 验证配置
func (o *Options) Validate() error {
	if _, err := o.dialector(); err != nil {
		return err
	}
	if _, err := parseGormLevel(o.LogLevel); err != nil {
		return err
	}
	if o.MaxOpenConns < 0 || o.MaxIdleConns < 0 {
		return fmt.Errorf("database pool size must be non-negative")
	}
	return nil
}

// open 打开数据库连接，配置连接池并执行自动迁移
func open(name string, opts Options, logger logging.Logger) (*gorm.DB, error) {
	dialector, err := opts.dialector()
	if err != nil {
		return nil, err
	}

	gc := &gorm.Config{}
	if opts.GormConfig != nil {
		cp := *opts.GormConfig
		gc = &cp
	}
	if gc.Logger == nil {
		level, _ := parseGormLevel(opts.LogLevel)
		gc.Logger = newGormLogger(logger.WithFields(logging.Field{Key: "database", Value: name}), level, opts.SlowThreshold.Std())
	}

	db, err := gorm.Open(dialector, gc)
	if err != nil {
		return nil, fmt.Errorf("failed to open database '%s': %w", name, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB for '%s': %w", name, err)
	}
	sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(opts.MaxLifetime.Std())

	if len(opts.AutoMigrate) > 0 {
		if err := db.AutoMigrate(opts.AutoMigrate...); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("auto migrate failed for '%s': %w", name, err)
		}
	}
	return db, nil
}

func closeDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// DatabaseFactory 按名称访问容器中的所有数据库
type DatabaseFactory struct {
	dbs map[string]*gorm.DB
}

// Get 获取指定名称的数据库
func (f *DatabaseFactory) Get(name string) (*gorm.DB, error) {
	db, ok := f.dbs[name]
	if !ok {
		return nil, fmt.Errorf("database '%s' not found", name)
	}
	return db, nil
}

// Each 按名称顺序遍历所有数据库
func (f *DatabaseFactory) Each(fn func(name string, db *gorm.DB)) {
	names := make([]string, 0, len(f.dbs))
	for name := range f.dbs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fn(name, f.dbs[name])
	}
}
