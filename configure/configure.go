package configure

import (
	"fmt"

	"github.com/gocrud/inject/config"
	"github.com/gocrud/inject/configure/cron"
	"github.com/gocrud/inject/configure/database"
	"github.com/gocrud/inject/configure/etcd"
	"github.com/gocrud/inject/configure/mongodb"
	"github.com/gocrud/inject/configure/redis"
	"github.com/gocrud/inject/configure/web"
	"github.com/gocrud/inject/di"
)

// Etcd 便捷导出 etcd 安装器
// 使用示例: c.Install(configure.Etcd(func(b *etcd.Builder) { ... }))
func Etcd(options func(*etcd.Builder)) di.Installer {
	return etcd.Configure(options)
}

// Cron 便捷导出 cron 安装器
func Cron(options func(*cron.Builder)) di.Installer {
	return cron.Configure(options)
}

// Web 便捷导出 web 安装器
func Web(options func(*web.Builder)) di.Installer {
	return web.Configure(options)
}

// Redis 便捷导出 redis 安装器
func Redis(options func(*redis.Builder)) di.Installer {
	return redis.Configure(options)
}

// Database 便捷导出数据库安装器
func Database(options func(*database.Builder)) di.Installer {
	return database.Configure(options)
}

// MongoDB 便捷导出 MongoDB 安装器
func MongoDB(options func(*mongodb.Builder)) di.Installer {
	return mongodb.Configure(options)
}

// FromConfig 为配置中出现的每个节创建安装器，节名固定为
// redis、database、mongodb、etcd、web、cron
func FromConfig(cfg config.Configuration) ([]di.Installer, error) {
	sections := []struct {
		name string
		load func(config.Configuration, string) (di.Installer, error)
	}{
		{"redis", func(c config.Configuration, s string) (di.Installer, error) { return redis.FromConfig(c, s) }},
		{"database", func(c config.Configuration, s string) (di.Installer, error) { return database.FromConfig(c, s) }},
		{"mongodb", func(c config.Configuration, s string) (di.Installer, error) { return mongodb.FromConfig(c, s) }},
		{"etcd", func(c config.Configuration, s string) (di.Installer, error) { return etcd.FromConfig(c, s) }},
		{"web", func(c config.Configuration, s string) (di.Installer, error) { return web.FromConfig(c, s) }},
		{"cron", func(c config.Configuration, s string) (di.Installer, error) { return cron.FromConfig(c, s) }},
	}

	var installers []di.Installer
	for _, section := range sections {
		if !cfg.Has(section.name) {
			continue
		}
		in, err := section.load(cfg, section.name)
		if err != nil {
			return nil, fmt.Errorf("configure %s: %w", section.name, err)
		}
		installers = append(installers, in)
	}
	return installers, nil
}
