package mongodb

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/gocrud/inject/config"
)

// MongoOptions MongoDB 客户端配置选项
type MongoOptions struct {
	Uri         string `json:"uri"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	MaxPoolSize uint64 `json:"maxPoolSize"`
	MinPoolSize uint64 `json:"minPoolSize"`
	// Timeout 连接和服务器选择超时
	Timeout config.Duration `json:"timeout"`
	// Database 不为空时同时绑定 (*mongo.Database, name)
	Database string `json:"database"`
	// Ping 为 true 时创建客户端后立即测试连接
	Ping bool `json:"ping"`
}

// DefaultOptions 创建默认配置
func DefaultOptions() MongoOptions {
	return MongoOptions{
		Uri:         "mongodb://localhost:27017",
		MaxPoolSize: 100,
		MinPoolSize: 5,
		Timeout:     config.Duration(10 * time.Second),
	}
}

// Validate 验证配置
func (o *MongoOptions) Validate() error {
	if o.Uri == "" {
		return fmt.Errorf("mongo uri is required")
	}
	if !strings.HasPrefix(o.Uri, "mongodb://") && !strings.HasPrefix(o.Uri, "mongodb+srv://") {
		return fmt.Errorf("mongo uri must start with mongodb:// or mongodb+srv://")
	}
	if o.MinPoolSize > o.MaxPoolSize && o.MaxPoolSize > 0 {
		return fmt.Errorf("mongo min pool size exceeds max pool size")
	}
	return nil
}

func (o *MongoOptions) clientOptions() *options.ClientOptions {
	opts := options.Client().ApplyURI(o.Uri)
	if o.Username != "" || o.Password != "" {
		opts.SetAuth(options.Credential{
			Username: o.Username,
			Password: o.Password,
		})
	}
	if o.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(o.MaxPoolSize)
	}
	if o.MinPoolSize > 0 {
		opts.SetMinPoolSize(o.MinPoolSize)
	}
	if o.Timeout > 0 {
		opts.SetConnectTimeout(o.Timeout.Std())
		opts.SetServerSelectionTimeout(o.Timeout.Std())
	}
	return opts
}

// newClient 创建客户端。驱动在后台建立连接，只有 Ping 为 true 时才等待服务器响应。
func newClient(opts MongoOptions) (*mongo.Client, error) {
	client, err := mongo.Connect(opts.clientOptions())
	if err != nil {
		return nil, err
	}
	if !opts.Ping {
		return client, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout.Std())
	defer cancel()
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	return client, nil
}

func disconnect(client *mongo.Client, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return client.Disconnect(ctx)
}

// MongoFactory 按名称访问容器中的所有 MongoDB 客户端
type MongoFactory struct {
	clients map[string]*mongo.Client
}

// Get 获取指定名称的客户端
func (f *MongoFactory) Get(name string) (*mongo.Client, error) {
	client, ok := f.clients[name]
	if !ok {
		return nil, fmt.Errorf("mongo client '%s' not found", name)
	}
	return client, nil
}

// Names 返回所有客户端名称
func (f *MongoFactory) Names() []string {
	names := make([]string, 0, len(f.clients))
	for name := range f.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
