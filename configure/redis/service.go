package redis

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/gocrud/inject/config"
	"github.com/redis/go-redis/v9"
)

// ClientOptions Redis 客户端配置选项
type ClientOptions struct {
	Addr         string          `json:"addr"`
	Password     string          `json:"password"`
	DB           int             `json:"db"`
	DialTimeout  config.Duration `json:"dialTimeout"`
	ReadTimeout  config.Duration `json:"readTimeout"`
	WriteTimeout config.Duration `json:"writeTimeout"`
	PoolSize     int             `json:"poolSize"`
	MinIdleConns int             `json:"minIdleConns"`
	MaxRetries   int             `json:"maxRetries"`
	// Ping 为 true 时创建客户端后立即测试连接
	Ping bool `json:"ping"`
}

// DefaultOptions 创建默认配置
func DefaultOptions() ClientOptions {
	return ClientOptions{
		Addr:         "localhost:6379",
		DialTimeout:  config.Duration(5 * time.Second),
		ReadTimeout:  config.Duration(3 * time.Second),
		WriteTimeout: config.Duration(3 * time.Second),
		PoolSize:     10,
		MinIdleConns: 5,
		MaxRetries:   3,
	}
}

// Validate 验证配置
func (o *ClientOptions) Validate() error {
	if o.Addr == "" {
		return fmt.Errorf("redis address is required")
	}
	if o.DB < 0 {
		return fmt.Errorf("redis database number must be non-negative")
	}
	if o.DialTimeout <= 0 {
		return fmt.Errorf("redis dial timeout must be positive")
	}
	return nil
}

func newClient(opts ClientOptions) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  opts.DialTimeout.Std(),
		ReadTimeout:  opts.ReadTimeout.Std(),
		WriteTimeout: opts.WriteTimeout.Std(),
		PoolSize:     opts.PoolSize,
		MinIdleConns: opts.MinIdleConns,
		MaxRetries:   opts.MaxRetries,
	})
	if !opts.Ping {
		return client, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.DialTimeout.Std())
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis %s: %w", opts.Addr, err)
	}
	return client, nil
}

// Clients 按名称访问容器中的所有 Redis 客户端
type Clients struct {
	clients map[string]*redis.Client
}

// Get 获取指定名称的 Redis 客户端
func (c *Clients) Get(name string) (*redis.Client, error) {
	client, ok := c.clients[name]
	if !ok {
		return nil, fmt.Errorf("redis client '%s' not found", name)
	}
	return client, nil
}

// Names 返回所有客户端名称
func (c *Clients) Names() []string {
	names := make([]string, 0, len(c.clients))
	for name := range c.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
