package etcd

import (
	"fmt"
	"sort"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/gocrud/inject/config"
)

// EtcdClientOptions etcd 客户端配置选项
type EtcdClientOptions struct {
	Endpoints          []string        `json:"endpoints"`        // etcd 服务器地址列表
	DialTimeout        config.Duration `json:"dialTimeout"`      // 连接超时时间
	Username           string          `json:"username"`         // 用户名（可选）
	Password           string          `json:"password"`         // 密码（可选）
	AutoSyncInterval   config.Duration `json:"autoSyncInterval"` // 自动同步间隔（可选）
	MaxCallSendMsgSize int             `json:"maxCallSendMsgSize"`
	MaxCallRecvMsgSize int             `json:"maxCallRecvMsgSize"`
}

// DefaultOptions 创建默认配置
func DefaultOptions() EtcdClientOptions {
	return EtcdClientOptions{
		Endpoints:   []string{"localhost:2379"},
		DialTimeout: config.Duration(5 * time.Second),
	}
}

// Validate 验证配置
func (o *EtcdClientOptions) Validate() error {
	if len(o.Endpoints) == 0 {
		return fmt.Errorf("etcd endpoints are required")
	}
	if o.DialTimeout <= 0 {
		return fmt.Errorf("etcd dial timeout must be positive")
	}
	if o.AutoSyncInterval < 0 {
		return fmt.Errorf("etcd auto sync interval must be non-negative")
	}
	return nil
}

// newClient 创建客户端，不等待连接建立
func newClient(opts EtcdClientOptions) (*clientv3.Client, error) {
	return clientv3.New(clientv3.Config{
		Endpoints:          opts.Endpoints,
		DialTimeout:        opts.DialTimeout.Std(),
		Username:           opts.Username,
		Password:           opts.Password,
		AutoSyncInterval:   opts.AutoSyncInterval.Std(),
		MaxCallSendMsgSize: opts.MaxCallSendMsgSize,
		MaxCallRecvMsgSize: opts.MaxCallRecvMsgSize,
	})
}

// EtcdClientFactory 按名称访问容器中的所有 etcd 客户端
type EtcdClientFactory struct {
	clients map[string]*clientv3.Client
}

// Get 获取指定名称的客户端
func (f *EtcdClientFactory) Get(name string) (*clientv3.Client, error) {
	client, ok := f.clients[name]
	if !ok {
		return nil, fmt.Errorf("etcd client '%s' not found", name)
	}
	return client, nil
}

// Names 返回所有客户端名称
func (f *EtcdClientFactory) Names() []string {
	names := make([]string, 0, len(f.clients))
	for name := range f.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
