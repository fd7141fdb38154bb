package inject_test

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/gocrud/inject"
	"github.com/gocrud/inject/config"
	"github.com/gocrud/inject/configure/cron"
	"github.com/gocrud/inject/configure/web"
	"github.com/gocrud/inject/di"
)

type Article struct {
	gorm.Model
	Title string
}

// ArticleService 业务服务
type ArticleService struct {
	DB     *gorm.DB             `di:""`
	Config config.Configuration `di:""`
}

func (s *ArticleService) SiteName() string {
	return s.Config.Get("app:name")
}

// ArticleController 通过构造函数注入服务
type ArticleController struct {
	svc *ArticleService
}

func NewArticleController(svc *ArticleService) *ArticleController {
	return &ArticleController{svc: svc}
}

func (c *ArticleController) RegisterRoutes(router gin.IRouter) {
	router.GET("/site", func(ctx *gin.Context) {
		ctx.String(http.StatusOK, c.svc.SiteName())
	})
	router.POST("/articles", func(ctx *gin.Context) {
		if err := c.svc.DB.Create(&Article{Title: ctx.Query("title")}).Error; err != nil {
			ctx.String(http.StatusInternalServerError, err.Error())
			return
		}
		ctx.Status(http.StatusCreated)
	})
}

func newConfig(t *testing.T) config.Configuration {
	t.Helper()
	cfg, err := config.NewConfigurationBuilder().AddInMemory(map[string]any{
		"app":     map[string]any{"name": "inject-demo"},
		"logging": map[string]any{"level": "warn"},
		"di":      map[string]any{"recipeCacheSize": 64},
		"database": map[string]any{
			"default": map[string]any{
				"dsn":      "file:inject_root?mode=memory&cache=shared",
				"logLevel": "silent",
			},
		},
		"web":  map[string]any{"port": 0, "mode": "test"},
		"cron": map[string]any{"location": "UTC"},
	}).Build()
	require.NoError(t, err)
	return cfg
}

func TestNewContainerFromConfig(t *testing.T) {
	c, err := inject.NewContainer(newConfig(t))
	require.NoError(t, err)
	defer c.Dispose()

	assert.Equal(t, 64, c.Settings().RecipeCacheSize)

	cfg, err := di.Resolve[config.Configuration](c)
	require.NoError(t, err)
	assert.Equal(t, "inject-demo", cfg.Get("app:name"))

	_, err = di.Resolve[*gorm.DB](c)
	require.NoError(t, err)
	_, err = di.Resolve[*web.Host](c)
	require.NoError(t, err)
	_, err = di.Resolve[*cron.Scheduler](c)
	require.NoError(t, err)
}

func TestDisposeWithFileLogging(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	cfg, err := config.NewConfigurationBuilder().AddInMemory(map[string]any{
		"logging": map[string]any{"level": "debug", "output": path},
		"database": map[string]any{
			"default": map[string]any{
				"dsn":      "file:inject_dispose?mode=memory&cache=shared",
				"logLevel": "silent",
			},
		},
	}).Build()
	require.NoError(t, err)

	c, err := inject.NewContainer(cfg)
	require.NoError(t, err)
	require.NoError(t, c.Build())
	_, err = di.Resolve[*gorm.DB](c)
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		assert.NoError(t, c.Dispose())
	})

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "di: container built")
	assert.Contains(t, string(data), "di: disposing container")
}

func TestNewContainerConfigErrors(t *testing.T) {
	cfg, err := config.NewConfigurationBuilder().AddInMemory(map[string]any{
		"web": map[string]any{"port": -1},
	}).Build()
	require.NoError(t, err)

	_, err = inject.NewContainer(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "installer web")
}

func TestRunContext(t *testing.T) {
	c, err := inject.NewContainer(newConfig(t))
	require.NoError(t, err)
	di.Bind[*ArticleService](c).AsSingle()

	// 控制器可以由任意安装器加入，引擎解析时统一注册
	require.NoError(t, c.Install(di.InstallerFunc(func(c *di.Container) error {
		c.Bind(di.TypeOf[web.Controller]()).FromMethod(NewArticleController).AsCached()
		return nil
	})))

	db := di.MustResolve[*gorm.DB](c)
	require.NoError(t, db.AutoMigrate(&Article{}))

	host := di.MustResolve[*web.Host](c)
	require.NoError(t, host.Listen())
	base := "http://" + host.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- inject.RunContext(ctx, c) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/site")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return string(body) == "inject-demo"
	}, 3*time.Second, 20*time.Millisecond)

	resp, err := http.Post(base+"/articles?title=hello", "text/plain", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var count int64
	require.NoError(t, db.Model(&Article{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("RunContext did not return")
	}

	_, err = di.Resolve[*gorm.DB](c)
	assert.ErrorIs(t, err, di.ErrContainerDisposed)
}
