package config

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
	"gopkg.in/yaml.v3"
)

const defaultEtcdTimeout = 5 * time.Second

// EtcdOptions etcd 配置源选项
type EtcdOptions struct {
	Endpoints []string
	Username  string
	Password  string
	// Prefix 键前缀，前缀 /app 下的 /app/redis/addr 对应 redis:addr
	Prefix      string
	Timeout     time.Duration
	DialTimeout time.Duration
	// Optional 为 true 时 etcd 不可用按空配置处理
	Optional bool
}

// AddEtcd 添加 etcd 配置源，每次加载新建连接
func (b *ConfigurationBuilder) AddEtcd(opts EtcdOptions) *ConfigurationBuilder {
	return b.Add(&EtcdSource{Options: opts})
}

// AddEtcdClient 使用已有客户端读取前缀下的配置，客户端由调用方关闭
func (b *ConfigurationBuilder) AddEtcdClient(cli *clientv3.Client, prefix string) *ConfigurationBuilder {
	return b.Add(&EtcdSource{Client: cli, Options: EtcdOptions{Prefix: prefix}})
}

// EtcdSource 从 etcd 前缀下读取配置。值依次按 JSON、YAML 解析，都失败时保留字符串
type EtcdSource struct {
	Options EtcdOptions
	Client  *clientv3.Client
}

func (s *EtcdSource) Name() string {
	if s.Client != nil {
		return fmt.Sprintf("Etcd(%v%s)", s.Client.Endpoints(), s.Options.Prefix)
	}
	return fmt.Sprintf("Etcd(%v%s)", s.Options.Endpoints, s.Options.Prefix)
}

func (s *EtcdSource) Load() (map[string]any, error) {
	timeout := s.Options.Timeout
	if timeout <= 0 {
		timeout = defaultEtcdTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	data, err := s.load(ctx)
	if err != nil && s.Options.Optional {
		return map[string]any{}, nil
	}
	return data, err
}

func (s *EtcdSource) load(ctx context.Context) (map[string]any, error) {
	cli := s.Client
	if cli == nil {
		dial := s.Options.DialTimeout
		if dial <= 0 {
			dial = defaultEtcdTimeout
		}
		var err error
		cli, err = clientv3.New(clientv3.Config{
			Endpoints:   s.Options.Endpoints,
			Username:    s.Options.Username,
			Password:    s.Options.Password,
			DialTimeout: dial,
			Context:     ctx,
		})
		if err != nil {
			return nil, fmt.Errorf("etcd source: %w", err)
		}
		defer cli.Close()
	}

	prefix := s.Options.Prefix
	if prefix == "" {
		prefix = "/"
	}
	resp, err := cli.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("etcd source %s: %w", prefix, err)
	}
	pairs := make([][2]string, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		pairs = append(pairs, [2]string{string(kv.Key), string(kv.Value)})
	}
	return nestEtcdKeys(s.Options.Prefix, pairs), nil
}

// nestEtcdKeys 把 {key, value} 按 "/" 拆成嵌套的 map，保持 etcd 返回的键顺序
func nestEtcdKeys(prefix string, pairs [][2]string) map[string]any {
	result := make(map[string]any)
	for _, kv := range pairs {
		key := strings.Trim(strings.TrimPrefix(kv[0], prefix), "/")
		if key == "" {
			continue
		}
		setNestedValue(result, strings.Split(key, "/"), decodeEtcdValue([]byte(kv[1])))
	}
	return result
}

func decodeEtcdValue(raw []byte) any {
	var v any
	if json.Unmarshal(raw, &v) == nil {
		return v
	}
	if yaml.Unmarshal(raw, &v) == nil && v != nil {
		if _, isString := v.(string); !isString {
			return v
		}
	}
	return string(raw)
}
