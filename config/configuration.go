package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
)

// Configuration 分层的只读配置，键用 ":" 或 "." 分隔，例如 "redis:default:addr"
type Configuration interface {
	// Get 返回字符串形式的值，不存在时返回空串
	Get(key string) string
	// GetWithDefault 不存在时返回 defaultValue
	GetWithDefault(key, defaultValue string) string
	GetInt(key string) (int, error)
	GetBool(key string) (bool, error)
	// Has 报告键是否存在
	Has(key string) bool
	// GetSection 返回子节，不存在时返回空配置
	GetSection(key string) Configuration
	// Bind 把键对应的值绑定到 target（经由 JSON）
	Bind(key string, target any) error
	// GetAll 返回全部配置的副本
	GetAll() map[string]any
}

// ConfigurationSource 配置源，后加入的源覆盖先加入的
type ConfigurationSource interface {
	Load() (map[string]any, error)
	Name() string
}

// ConfigurationBuilder 组装配置源
type ConfigurationBuilder struct {
	sources []ConfigurationSource
	mu      sync.RWMutex
}

// NewConfigurationBuilder 创建配置构建器
func NewConfigurationBuilder() *ConfigurationBuilder {
	return &ConfigurationBuilder{}
}

// Add 添加配置源
func (b *ConfigurationBuilder) Add(source ConfigurationSource) *ConfigurationBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sources = append(b.sources, source)
	return b
}

// AddJsonFile 添加 JSON 文件
func (b *ConfigurationBuilder) AddJsonFile(path string, optional ...bool) *ConfigurationBuilder {
	return b.Add(&JsonFileSource{Path: path, Optional: len(optional) > 0 && optional[0]})
}

// AddYamlFile 添加 YAML 文件
func (b *ConfigurationBuilder) AddYamlFile(path string, optional ...bool) *ConfigurationBuilder {
	return b.Add(&YamlFileSource{Path: path, Optional: len(optional) > 0 && optional[0]})
}

// AddEnvironmentVariables 添加带前缀的环境变量，APP_REDIS_ADDR 对应键 redis:addr
func (b *ConfigurationBuilder) AddEnvironmentVariables(prefix string) *ConfigurationBuilder {
	return b.Add(&EnvironmentVariableSource{Prefix: prefix})
}

// AddDotEnvFile 添加 .env 文件，prefix 为空时读取全部键
func (b *ConfigurationBuilder) AddDotEnvFile(path, prefix string, optional ...bool) *ConfigurationBuilder {
	return b.Add(&DotEnvSource{Path: path, Prefix: prefix, Optional: len(optional) > 0 && optional[0]})
}

// AddInMemory 添加内存数据
func (b *ConfigurationBuilder) AddInMemory(data map[string]any) *ConfigurationBuilder {
	return b.Add(&InMemorySource{Data: data})
}

// Build 按顺序加载所有配置源
func (b *ConfigurationBuilder) Build() (*Root, error) {
	b.mu.RLock()
	sources := append([]ConfigurationSource(nil), b.sources...)
	b.mu.RUnlock()

	root := &Root{view: view{store: NewValueStore()}, sources: sources}
	if err := root.Reload(); err != nil {
		return nil, err
	}
	return root, nil
}

// Root 是由 ConfigurationBuilder 构建的配置，可以整体重新加载
type Root struct {
	view
	sources []ConfigurationSource
	mu      sync.Mutex
}

// Reload 重新读取所有配置源并原子替换数据，失败时保留旧数据
func (r *Root) Reload() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make(map[string]any)
	for _, source := range r.sources {
		loaded, err := source.Load()
		if err != nil {
			return fmt.Errorf("config: loading %s: %w", source.Name(), err)
		}
		mergeMaps(data, loaded)
	}
	r.store.Store(data)
	return nil
}

// view 是 Configuration 的实现，数据放在 ValueStore 中无锁读取
type view struct {
	store *ValueStore
}

func newView(data map[string]any) view {
	s := NewValueStore()
	s.Store(data)
	return view{store: s}
}

func (v view) lookup(key string) any {
	current := any(v.store.Load())
	if key == "" {
		return current
	}
	for _, part := range globalPathCache.GetPathSegments(key) {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = m[part]
	}
	return current
}

func (v view) Get(key string) string {
	switch val := v.lookup(key).(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func (v view) GetWithDefault(key, defaultValue string) string {
	if s := v.Get(key); s != "" {
		return s
	}
	return defaultValue
}

func (v view) GetInt(key string) (int, error) {
	switch val := v.lookup(key).(type) {
	case nil:
		return 0, fmt.Errorf("config: key %s not found", key)
	case int:
		return val, nil
	case int64:
		return int(val), nil
	case float64:
		return int(val), nil
	case string:
		return strconv.Atoi(val)
	default:
		return 0, fmt.Errorf("config: cannot convert %v to int", val)
	}
}

func (v view) GetBool(key string) (bool, error) {
	switch val := v.lookup(key).(type) {
	case nil:
		return false, fmt.Errorf("config: key %s not found", key)
	case bool:
		return val, nil
	case string:
		return strconv.ParseBool(val)
	default:
		return false, fmt.Errorf("config: cannot convert %v to bool", val)
	}
}

func (v view) Has(key string) bool {
	return v.lookup(key) != nil
}

func (v view) GetSection(key string) Configuration {
	if m, ok := v.lookup(key).(map[string]any); ok {
		return newView(m)
	}
	return newView(map[string]any{})
}

func (v view) Bind(key string, target any) error {
	data := v.lookup(key)
	if data == nil {
		return fmt.Errorf("config: key %s not found", key)
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("config: encoding %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("config: binding %s: %w", key, err)
	}
	return nil
}

func (v view) GetAll() map[string]any {
	out := make(map[string]any)
	mergeMaps(out, v.store.Load())
	return out
}

// mergeMaps 递归合并，src 覆盖 dst；嵌套 map 会被复制，不与 src 共享
func mergeMaps(dst, src map[string]any) {
	for k, val := range src {
		srcMap, isMap := val.(map[string]any)
		if !isMap {
			dst[k] = val
			continue
		}
		dstMap, ok := dst[k].(map[string]any)
		if !ok {
			dstMap = make(map[string]any)
			dst[k] = dstMap
		}
		mergeMaps(dstMap, srcMap)
	}
}
