package web

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gocrud/inject/config"
	"github.com/gocrud/inject/di"
	"github.com/gocrud/inject/hosting"
	"github.com/gocrud/inject/logging"
)

// Controller 由在容器中注册的控制器实现，引擎创建时调用 RegisterRoutes
type Controller interface {
	RegisterRoutes(router gin.IRouter)
}

var controllerType = di.TypeOf[Controller]()

// Builder Web 主机构建器（基于 Gin），本身是一个 di.Installer。
// 安装后容器中有 *gin.Engine 和 *Host 两个单例，*Host 同时登记为托管服务。
// 开启 Metrics 时还有 *Metrics 单例。
type Builder struct {
	opts        Options
	middleware  []gin.HandlerFunc
	routes      []func(gin.IRouter)
	controllers []any
	seen        map[reflect.Type]bool
	errs        []error
}

// NewBuilder 创建 Web 构建器
func NewBuilder() *Builder {
	return &Builder{opts: DefaultOptions(), seen: make(map[reflect.Type]bool)}
}

// FromConfig 从配置节读取主机配置
//
//	web:
//	  port: 8080
//	  mode: release
//	  accessLog: true
func FromConfig(cfg config.Configuration, section string) (*Builder, error) {
	opts, err := config.LoadOrDefault(cfg, section, DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("web: %w", err)
	}
	b := NewBuilder()
	b.opts = opts
	return b, nil
}

// Configure 修改主机配置
func (b *Builder) Configure(configure func(*Options)) *Builder {
	configure(&b.opts)
	return b
}

// UsePort 设置端口
func (b *Builder) UsePort(port int) *Builder {
	b.opts.Port = port
	return b
}

// SetMode 设置 Gin 模式
func (b *Builder) SetMode(mode string) *Builder {
	b.opts.Mode = mode
	return b
}

// Use 使用全局中间件
func (b *Builder) Use(middleware ...gin.HandlerFunc) *Builder {
	b.middleware = append(b.middleware, middleware...)
	return b
}

// Routes 注册路由函数，在控制器之前执行
func (b *Builder) Routes(fn func(router gin.IRouter)) *Builder {
	b.routes = append(b.routes, fn)
	return b
}

// Get 注册 GET 路由
func (b *Builder) Get(path string, handlers ...gin.HandlerFunc) *Builder {
	return b.handle(http.MethodGet, path, handlers)
}

// Post 注册 POST 路由
func (b *Builder) Post(path string, handlers ...gin.HandlerFunc) *Builder {
	return b.handle(http.MethodPost, path, handlers)
}

// Put 注册 PUT 路由
func (b *Builder) Put(path string, handlers ...gin.HandlerFunc) *Builder {
	return b.handle(http.MethodPut, path, handlers)
}

// Delete 注册 DELETE 路由
func (b *Builder) Delete(path string, handlers ...gin.HandlerFunc) *Builder {
	return b.handle(http.MethodDelete, path, handlers)
}

func (b *Builder) handle(method, path string, handlers []gin.HandlerFunc) *Builder {
	return b.Routes(func(r gin.IRouter) { r.Handle(method, path, handlers...) })
}

// AddControllers 添加控制器。每一项可以是：
//   - 构造函数，参数从容器解析，返回值实现 Controller
//   - reflect.Type，按结构体 di 标签注入
//   - 已创建的控制器实例
//
// 同一控制器类型只注册一次。
func (b *Builder) AddControllers(controllers ...any) *Builder {
	for _, ctrl := range controllers {
		t, err := controllerOf(ctrl)
		if err != nil {
			b.errs = append(b.errs, err)
			continue
		}
		if b.seen[t] {
			continue
		}
		b.seen[t] = true
		b.controllers = append(b.controllers, ctrl)
	}
	return b
}

func controllerOf(ctrl any) (reflect.Type, error) {
	var t reflect.Type
	switch v := ctrl.(type) {
	case nil:
		return nil, fmt.Errorf("web: nil controller")
	case reflect.Type:
		t = v
	default:
		t = reflect.TypeOf(ctrl)
		if t.Kind() == reflect.Func {
			if t.NumOut() == 0 {
				return nil, fmt.Errorf("web: controller constructor %v returns nothing", t)
			}
			t = t.Out(0)
		}
	}
	if !t.Implements(controllerType) {
		return nil, fmt.Errorf("web: %v does not implement Controller", t)
	}
	return t, nil
}

// Name 实现 di.Named
func (b *Builder) Name() string { return "web" }

// InstallBindings 实现 di.Installer
func (b *Builder) InstallBindings(c *di.Container) error {
	if err := b.opts.Validate(); err != nil {
		b.errs = append(b.errs, err)
	}
	if err := errors.Join(b.errs...); err != nil {
		return err
	}

	for _, ctrl := range b.controllers {
		switch v := ctrl.(type) {
		case reflect.Type:
			c.Bind(controllerType).To(v).AsCached()
		default:
			if reflect.TypeOf(v).Kind() == reflect.Func {
				c.Bind(controllerType).FromMethod(v).AsCached()
			} else {
				c.Bind(controllerType).FromInstance(v)
			}
		}
	}

	opts := b.opts
	middleware := append([]gin.HandlerFunc(nil), b.middleware...)
	routes := append([]func(gin.IRouter){}, b.routes...)

	if opts.Metrics {
		di.Bind[*Metrics](c).FromMethod(newMetrics).AsSingle()
	}

	di.Bind[*gin.Engine](c).FromMethod(func(ctx *di.InjectContext, owner *di.Container) (*gin.Engine, error) {
		gin.SetMode(opts.Mode)
		engine := gin.New()
		engine.Use(gin.Recovery())
		if opts.AccessLog {
			engine.Use(accessLog(owner.Logger().WithCategory("web")))
		}
		if opts.Metrics {
			m, err := di.ResolveFrom[*Metrics](ctx)
			if err != nil {
				return nil, err
			}
			engine.Use(m.middleware())
			engine.GET(opts.MetricsPath, m.handler())
		}
		engine.Use(middleware...)

		for _, fn := range routes {
			fn(engine)
		}
		ctrls, err := ctx.ResolveAll(controllerType)
		if err != nil {
			return nil, err
		}
		for _, ctrl := range ctrls {
			ctrl.(Controller).RegisterRoutes(engine)
		}
		return engine, nil
	}).AsSingle()

	di.Bind[*Host](c).FromMethod(func(engine *gin.Engine, owner *di.Container) *Host {
		return newHost(opts, engine, owner.Logger().WithCategory("web"))
	}).AsSingle()

	hosting.AddHostedService(c, di.TypeOf[*Host]())

	c.Logger().Info("web host configured",
		logging.Field{Key: "port", Value: opts.Port},
		logging.Field{Key: "controllers", Value: len(b.controllers)})
	return nil
}

// accessLog 记录请求方法、路径、状态码和耗时
func accessLog(logger logging.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()
		logger.Info("request",
			logging.Field{Key: "method", Value: ctx.Request.Method},
			logging.Field{Key: "path", Value: ctx.Request.URL.Path},
			logging.Field{Key: "status", Value: ctx.Writer.Status()},
			logging.Field{Key: "latency", Value: time.Since(start)})
	}
}

// Configure 返回 Web 安装器
// 使用示例: c.Install(web.Configure(func(b *web.Builder) { ... }))
func Configure(options func(*Builder)) di.Installer {
	b := NewBuilder()
	if options != nil {
		options(b)
	}
	return b
}
