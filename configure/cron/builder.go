package cron

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/gocrud/inject/config"
	"github.com/gocrud/inject/di"
	"github.com/gocrud/inject/hosting"
	"github.com/gocrud/inject/logging"
)

// Options 调度器配置
type Options struct {
	// Location 时区，默认 UTC
	Location string `json:"location"`
	// EnableSeconds 启用秒级精度（默认分钟级）
	EnableSeconds bool `json:"enableSeconds"`
	// EnableCronLogger 启用 cron 库的内部调度日志
	EnableCronLogger bool `json:"enableCronLogger"`
	// StopTimeout 停止时等待运行中任务的最长时间，0 表示一直等待
	StopTimeout config.Duration `json:"stopTimeout"`
	// AutoStart 为 true 时容器 Build 即创建并启动调度器
	AutoStart bool `json:"autoStart"`
}

// Builder Cron 配置构建器，本身是一个 di.Installer。
// 安装后容器中有 *Scheduler 单例，任务来自构建器和容器中所有 Job 绑定。
// 未设置 AutoStart 时调度器登记为托管服务，由 hosting.Manager 启动。
type Builder struct {
	opts Options
	jobs []jobDefinition
	errs []error
}

// jobDefinition 任务定义，handler 是 func()、func(context.Context) error 或带依赖的函数
type jobDefinition struct {
	spec    string
	name    string
	handler any
}

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// NewBuilder 创建 Cron 构建器
func NewBuilder() *Builder {
	return &Builder{opts: Options{Location: "UTC"}}
}

// FromConfig 从配置节读取调度器配置
func FromConfig(cfg config.Configuration, section string) (*Builder, error) {
	b := NewBuilder()
	opts, err := config.LoadOrDefault(cfg, section, b.opts)
	if err != nil {
		return nil, fmt.Errorf("cron: %w", err)
	}
	b.opts = opts
	return b, nil
}

// WithSeconds 启用秒级精度
func (b *Builder) WithSeconds() *Builder {
	b.opts.EnableSeconds = true
	return b
}

// WithLocation 设置时区
func (b *Builder) WithLocation(location string) *Builder {
	b.opts.Location = location
	return b
}

// EnableCronLogger 启用 cron 库的内部调度日志
func (b *Builder) EnableCronLogger() *Builder {
	b.opts.EnableCronLogger = true
	return b
}

// AutoStart 容器 Build 时启动调度器
func (b *Builder) AutoStart() *Builder {
	b.opts.AutoStart = true
	return b
}

// AddJob 添加简单任务
func (b *Builder) AddJob(spec, name string, handler func()) *Builder {
	b.jobs = append(b.jobs, jobDefinition{spec: spec, name: name, handler: handler})
	return b
}

// AddJobWithDI 添加带依赖注入的任务，每次执行时从容器解析参数。
// context.Context 参数传入执行上下文，返回 error 时记录日志。
//
//	builder.AddJobWithDI("*/5 * * * *", "sync-data", func(svc *DataService) error {
//	    return svc.Sync()
//	})
func (b *Builder) AddJobWithDI(spec, name string, handler any) *Builder {
	t := reflect.TypeOf(handler)
	switch {
	case t == nil || t.Kind() != reflect.Func:
		b.errs = append(b.errs, fmt.Errorf("cron job '%s': handler must be a function, got %T", name, handler))
		return b
	case t.NumOut() > 1 || (t.NumOut() == 1 && t.Out(0) != errorType):
		b.errs = append(b.errs, fmt.Errorf("cron job '%s': handler may only return error", name))
		return b
	}
	b.jobs = append(b.jobs, jobDefinition{spec: spec, name: name, handler: handler})
	return b
}

// Name 实现 di.Named
func (b *Builder) Name() string { return "cron" }

// InstallBindings 实现 di.Installer
func (b *Builder) InstallBindings(c *di.Container) error {
	location, err := time.LoadLocation(b.opts.Location)
	if err != nil {
		b.errs = append(b.errs, fmt.Errorf("cron: invalid location %q: %w", b.opts.Location, err))
	}
	if err := errors.Join(b.errs...); err != nil {
		return err
	}

	opts := b.opts
	jobs := append([]jobDefinition(nil), b.jobs...)

	binder := di.Bind[*Scheduler](c).FromMethod(func(ctx *di.InjectContext, owner *di.Container) (*Scheduler, error) {
		logger := owner.Logger().WithCategory("cron")
		s := newScheduler(logger, schedulerOptions{
			seconds:     opts.EnableSeconds,
			location:    location,
			cronLogger:  opts.EnableCronLogger,
			stopTimeout: opts.StopTimeout.Std(),
		})

		for _, job := range jobs {
			if err := s.add(job.spec, job.name, wrapHandler(owner, job.handler)); err != nil {
				return nil, err
			}
		}

		registered, err := ctx.ResolveAll(di.TypeOf[Job]())
		if err != nil {
			return nil, err
		}
		for _, obj := range registered {
			job := obj.(Job)
			if err := s.add(job.Spec(), job.Name(), job.Run); err != nil {
				return nil, err
			}
		}

		if opts.AutoStart {
			s.StartAsync()
		}
		return s, nil
	}).AsSingle()
	if opts.AutoStart {
		binder.NonLazy()
	} else {
		hosting.AddHostedService(c, di.TypeOf[*Scheduler]())
	}

	c.Logger().Info("cron scheduler configured",
		logging.Field{Key: "jobs", Value: len(jobs)},
		logging.Field{Key: "location", Value: opts.Location})
	return nil
}

// wrapHandler 把任务处理器统一为 func(context.Context) error
func wrapHandler(c *di.Container, handler any) func(context.Context) error {
	switch h := handler.(type) {
	case func():
		return func(context.Context) error {
			h()
			return nil
		}
	case func(context.Context) error:
		return h
	}

	fn := reflect.ValueOf(handler)
	t := fn.Type()
	return func(ctx context.Context) error {
		args := make([]reflect.Value, t.NumIn())
		for i := range args {
			pt := t.In(i)
			if pt == contextType {
				args[i] = reflect.ValueOf(ctx)
				continue
			}
			v, err := c.Resolve(pt)
			if err != nil {
				return fmt.Errorf("resolve parameter %d (%v): %w", i, pt, err)
			}
			if v == nil {
				args[i] = reflect.Zero(pt)
			} else {
				args[i] = reflect.ValueOf(v)
			}
		}

		out := fn.Call(args)
		if len(out) == 1 && !out[0].IsNil() {
			return out[0].Interface().(error)
		}
		return nil
	}
}

// Configure 返回 Cron 安装器
// 使用示例: c.Install(cron.Configure(func(b *cron.Builder) { ... }))
func Configure(options func(*Builder)) di.Installer {
	b := NewBuilder()
	if options != nil {
		options(b)
	}
	return b
}
