package di

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/gocrud/inject/logging"
)

// registration 是注册表中的一个条目
type registration struct {
	id        BindingId
	condition Condition
	provider  Provider
	// cache 非空时表示 provider 是共享的缓存，循环检测按它比较
	cache *cachedProvider
	owner *Container
}

// Container 保存绑定并解析对象图。
//
// 绑定语句在 Build 或首次解析时按声明顺序生效；Build 之后不能再添加绑定。
// 容器可以有子容器：子容器先查找自己的绑定，再依次查找父容器。
// 同一个 BindingId 有多个注册时，条件满足的注册优先于无条件的注册，与声明顺序无关；
// 都不满足时取第一个无条件的注册。
//
// FromMethod 的 *Container 参数是绑定到当前解析链的视图，方法里经它发起的解析
// 参与循环依赖检测。方法返回后视图与原容器等价。
type Container struct {
	*containerState
	// scope 非空时本对象是 FromMethod 调用期间的容器视图
	scope atomic.Pointer[InjectContext]
}

type containerState struct {
	// self 是容器本体，视图与本体共享状态
	self     *Container
	mu       sync.RWMutex
	parent   *Container
	children []*Container
	settings Settings
	logger   logging.Logger
	recipes  *recipeBook

	registry   map[BindingId][]*registration
	pending    []*bindStatement
	inherited  []*bindStatement // 标记了 CopyIntoAllSubContainers 的语句
	singletons *singletonRegistry
	caches     []*cachedProvider

	disposers []func() error
	tracked   map[any]struct{}

	built    bool
	disposed bool
	flushErr error
}

// NewContainer 创建一个新的空容器
func NewContainer(opts ...Option) *Container {
	c := newContainer(&containerState{
		settings: DefaultSettings(),
		logger:   logging.Nop(),
	})
	for _, opt := range opts {
		opt(c)
	}
	c.recipes = newRecipeBook(c.settings.RecipeCacheSize)
	c.init()
	return c
}

func newContainer(state *containerState) *Container {
	c := &Container{containerState: state}
	state.self = c
	return c
}

// view 返回绑定到 ctx 的容器视图，detach 之后视图按普通容器解析
func (c *Container) view(ctx *InjectContext) (v *Container, detach func()) {
	v = &Container{containerState: c.containerState}
	v.scope.Store(ctx)
	return v, func() { v.scope.Store(nil) }
}

func (c *Container) init() {
	c.registry = make(map[BindingId][]*registration)
	c.singletons = newSingletonRegistry()
	c.tracked = make(map[any]struct{})
}

// Parent 返回父容器，根容器返回 nil
func (c *Container) Parent() *Container {
	return c.parent
}

// Settings 返回容器设置
func (c *Container) Settings() Settings {
	return c.settings
}

// Logger 返回容器使用的日志记录器，安装器可以用它输出日志
func (c *Container) Logger() logging.Logger {
	return c.logger
}

// Bind 开始一条绑定语句，types 是要绑定的合约类型
func (c *Container) Bind(types ...reflect.Type) *Binder {
	return c.bind(types, 1)
}

// BindInterfacesTo 把 concrete 绑定到 candidates 中它实现了的所有接口。
// 没有任何匹配时绑定为空，Finalize 时静默忽略。
func (c *Container) BindInterfacesTo(concrete reflect.Type, candidates ...reflect.Type) *Binder {
	var contracts []reflect.Type
	for _, t := range candidates {
		if t != nil && t.Kind() == reflect.Interface && concrete != nil && concrete.Implements(t) {
			contracts = append(contracts, t)
		}
	}
	return c.bind(contracts, 1).To(concrete)
}

// BindInstance 把实例绑定到它自身的动态类型
func (c *Container) BindInstance(instance any) *Binder {
	if instance == nil {
		b := c.bind(nil, 1)
		b.stmt.fail(&NullInstanceError{})
		return b
	}
	return c.bind([]reflect.Type{reflect.TypeOf(instance)}, 1).FromInstance(instance)
}

func (c *Container) bind(types []reflect.Type, skip int) *Binder {
	stmt := &bindStatement{info: &BindInfo{
		ContractTypes: append([]reflect.Type(nil), types...),
		ContextInfo:   callerInfo(skip + 1),
	}}
	for _, t := range types {
		if t == nil {
			stmt.fail(&InvalidBindError{Reason: "nil contract type"})
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.mustBeOpen("Bind")
	c.pending = append(c.pending, stmt)
	return &Binder{stmt: stmt}
}

func callerInfo(skip int) string {
	_, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%s:%d", filepath.Base(file), line)
}

// mustBeOpen 构建或释放后修改容器属于编程错误，直接 panic。调用方持有 c.mu。
func (c *Container) mustBeOpen(op string) {
	if c.disposed {
		panic(fmt.Sprintf("di: %s: %v", op, ErrContainerDisposed))
	}
	if c.built {
		panic(fmt.Sprintf("di: %s: %v", op, ErrContainerBuilt))
	}
}

// RegisterProvider 直接向注册表添加一个条目，绕过绑定 DSL
func (c *Container) RegisterProvider(id BindingId, cond Condition, p Provider) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mustBeOpen("RegisterProvider")

	// 先让之前声明的绑定生效，保持插入顺序
	_ = c.flushLocked()
	c.addRegistration(&registration{
		id:        NewBindingId(id.Type, id.Identifier),
		condition: cond,
		provider:  p,
		owner:     c.self,
	})
}

// RegisterConstructor 注册类型的构造函数，FromNew 与 FromFactory 会优先使用它。
// fn 的签名为 func(deps...) T 或 func(deps...) (T, error)。
func (c *Container) RegisterConstructor(fn any) error {
	r, err := recipeFromConstructor(fn)
	if err != nil {
		return err
	}
	c.recipes.register(r)
	return nil
}

// addRegistration 调用方持有 c.mu
func (c *Container) addRegistration(reg *registration) {
	c.registry[reg.id] = append(c.registry[reg.id], reg)
}

// flushLocked 按声明顺序 Finalize 所有待处理语句。错误会被保留，后续解析同样返回。
func (c *Container) flushLocked() error {
	pending := c.pending
	c.pending = nil

	var errs []error
	for _, stmt := range pending {
		if err := stmt.finalize(c.self); err != nil {
			errs = append(errs, err)
			continue
		}
		if stmt.info.CopyIntoAllSubContainers {
			c.inherited = append(c.inherited, stmt)
		}
	}
	if len(errs) > 0 {
		errs = append([]error{c.flushErr}, errs...)
		c.flushErr = errors.Join(errs...)
	}
	return c.flushErr
}

// ready 在解析前确保绑定已经生效
func (c *Container) ready() error {
	c.mu.RLock()
	disposed, pending, err := c.disposed, len(c.pending) > 0, c.flushErr
	c.mu.RUnlock()

	if disposed {
		return ErrContainerDisposed
	}
	if !pending {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flushLocked()
}

// Build 让所有绑定生效并创建非惰性实例。重复调用返回第一次的绑定错误。
func (c *Container) Build() error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrContainerDisposed
	}
	if c.built {
		err := c.flushErr
		c.mu.Unlock()
		return err
	}
	err := c.flushLocked()
	c.built = true
	roots := append([]*registration(nil), c.registry[rootBindingId]...)
	c.mu.Unlock()

	if err != nil {
		return err
	}

	for _, reg := range roots {
		ctx := newRootContext(c.self, anyType, DependencyRootIdentifier)
		if _, err := c.run(ctx, reg); err != nil {
			return fmt.Errorf("di: creating non-lazy instance: %w", err)
		}
	}

	c.logger.Debug("di: container built", logging.Field{Key: "nonLazy", Value: len(roots)})
	return nil
}

var rootBindingId = BindingId{Type: anyType, Identifier: DependencyRootIdentifier}

// CreateSubContainer 创建子容器。父容器中标记了 CopyIntoAllSubContainers 的绑定
// 会在子容器里重新注册（独立的缓存），其余绑定通过父容器查找共享。
func (c *Container) CreateSubContainer() *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		panic(fmt.Sprintf("di: CreateSubContainer: %v", ErrContainerDisposed))
	}

	_ = c.flushLocked()

	child := newContainer(&containerState{
		parent:   c.self,
		settings: c.settings,
		logger:   c.logger,
		recipes:  c.recipes.child(),
	})
	child.init()
	child.pending = append(child.pending, c.inherited...)
	c.children = append(c.children, child)

	c.logger.Debug("di: sub-container created", logging.Field{Key: "inherited", Value: len(c.inherited)})
	return child
}

func (c *Container) forget(child *Container) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, ch := range c.children {
		if ch == child.self {
			c.children = append(c.children[:i], c.children[i+1:]...)
			return
		}
	}
}

func (c *Container) invalidBindResponse(r InvalidBindResponse) InvalidBindResponse {
	if r == InvalidBindDefault {
		r = c.settings.InvalidBindResponse
	}
	if r == InvalidBindDefault {
		r = InvalidBindAssert
	}
	return r
}
