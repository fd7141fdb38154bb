package redis_test

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gocrud/inject/config"
	"github.com/gocrud/inject/configure/redis"
	"github.com/gocrud/inject/di"
)

// cacheService 依赖命名的 Redis 客户端
type cacheService struct {
	Cache *goredis.Client `di:"cache"`
	Queue *goredis.Client `di:"queue,?"`
}

func TestRedisFromConfig(t *testing.T) {
	cfg, err := config.NewConfigurationBuilder().AddInMemory(map[string]any{
		"redis": map[string]any{
			"default": map[string]any{"addr": "localhost:6390", "db": 1},
			"cache":   map[string]any{"addr": "localhost:6391", "dialTimeout": "2s"},
		},
	}).Build()
	require.NoError(t, err)

	installer, err := redis.FromConfig(cfg, "redis")
	require.NoError(t, err)

	c := di.NewContainer()
	require.NoError(t, c.Install(installer))
	di.Bind[*cacheService](c)
	require.NoError(t, c.Build())

	def, err := di.Resolve[*goredis.Client](c)
	require.NoError(t, err)
	assert.Equal(t, "localhost:6390", def.Options().Addr)
	assert.Equal(t, 1, def.Options().DB)

	named, err := di.ResolveID[*goredis.Client](c, "default")
	require.NoError(t, err)
	assert.Same(t, def, named)

	svc, err := di.Resolve[*cacheService](c)
	require.NoError(t, err)
	require.NotNil(t, svc.Cache)
	assert.Nil(t, svc.Queue)
	assert.Equal(t, "localhost:6391", svc.Cache.Options().Addr)
	assert.Equal(t, 2*time.Second, svc.Cache.Options().DialTimeout)

	clients, err := di.Resolve[*redis.Clients](c)
	require.NoError(t, err)
	assert.Equal(t, []string{"cache", "default"}, clients.Names())
	cache, err := clients.Get("cache")
	require.NoError(t, err)
	assert.Same(t, svc.Cache, cache)
	_, err = clients.Get("queue")
	assert.Error(t, err)

	// 容器释放时关闭客户端
	require.NoError(t, c.Dispose())
	assert.ErrorIs(t, cache.Ping(context.Background()).Err(), goredis.ErrClosed)
}

func TestRedisConfigure(t *testing.T) {
	c := di.NewContainer()
	require.NoError(t, c.Install(redis.Configure(func(b *redis.Builder) {
		b.AddClient("queue", func(o *redis.ClientOptions) {
			o.Addr = "localhost:6392"
			o.PoolSize = 3
		})
	})))

	queue, err := di.ResolveID[*goredis.Client](c, "queue")
	require.NoError(t, err)
	assert.Equal(t, 3, queue.Options().PoolSize)

	// 没有 default 客户端时不绑定未命名的客户端
	assert.False(t, c.HasBinding(di.TypeOf[*goredis.Client]()))
}

func TestRedisBuilderErrors(t *testing.T) {
	b := redis.NewBuilder().
		AddClient("invalid", func(o *redis.ClientOptions) { o.Addr = "" }).
		AddClient("duplicate", nil).
		AddClient("duplicate", nil).
		AddClient("", nil)

	err := di.NewContainer().Install(b)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis address is required")
	assert.Contains(t, err.Error(), "already configured")
	assert.Contains(t, err.Error(), "name is required")
}
