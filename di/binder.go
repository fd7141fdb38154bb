package di

import (
	"fmt"
	"reflect"
)

type bindStage int

const (
	stageBind bindStage = iota
	stageID
	stageTo
	stageConcreteID
	stageFrom
	stageScope
	stageArgs
	stageCondition
)

const (
	flagNonLazy = 1 << iota
	flagCopy
	flagInvalidBind
)

// Binder 是绑定 DSL。调用顺序为
//
//	Bind → WithID → To → WithConcreteID → From* → As* → WithArguments → When
//
// 每一步都可以省略，但不能倒序或重复；NonLazy、CopyIntoAllSubContainers、
// OnInvalidBind 可以在任意位置各调用一次。顺序错误会记录为 BinderStateError，
// 在 Build（或首次解析）时返回。
type Binder struct {
	stmt  *bindStatement
	stage bindStage
	flags int
}

func (b *Binder) info() *BindInfo { return b.stmt.info }

func (b *Binder) step(op string, stage bindStage) bool {
	if b.stage >= stage {
		b.stmt.fail(&BinderStateError{Op: op, Reason: "called out of order or more than once"})
		return false
	}
	b.stage = stage
	return true
}

func (b *Binder) flag(op string, f int) bool {
	if b.flags&f != 0 {
		b.stmt.fail(&BinderStateError{Op: op, Reason: "called more than once"})
		return false
	}
	b.flags |= f
	return true
}

// WithID 为绑定设置标识符
func (b *Binder) WithID(identifier any) *Binder {
	if !b.step("WithID", stageID) {
		return b
	}
	identifier = normalizeIdentifier(identifier)
	if err := checkIdentifier(identifier); err != nil {
		b.stmt.fail(&BinderStateError{Op: "WithID", Reason: err.Error()})
		return b
	}
	if identifier == DependencyRootIdentifier {
		b.stmt.fail(&BinderStateError{Op: "WithID", Reason: "identifier is reserved"})
		return b
	}
	b.info().Identifier = identifier
	return b
}

// To 指定具体类型，每个合约会与每个具体类型配对
func (b *Binder) To(types ...reflect.Type) *Binder {
	if !b.step("To", stageTo) {
		return b
	}
	b.info().ToChoice = ToConcrete
	b.info().ToTypes = append([]reflect.Type(nil), types...)
	return b
}

// To 是 b.To(TypeOf[T]()) 的泛型写法
func To[T any](b *Binder) *Binder {
	return b.To(TypeOf[T]())
}

// WithConcreteID 设置具体标识符，单例按 (具体类型, 具体标识符) 区分
func (b *Binder) WithConcreteID(identifier any) *Binder {
	if !b.step("WithConcreteID", stageConcreteID) {
		return b
	}
	identifier = normalizeIdentifier(identifier)
	if err := checkIdentifier(identifier); err != nil {
		b.stmt.fail(&BinderStateError{Op: "WithConcreteID", Reason: err.Error()})
		return b
	}
	b.info().ConcreteIdentifier = identifier
	return b
}

func (b *Binder) from(op string, strategy *bindStrategy) bool {
	if !b.step(op, stageFrom) {
		return false
	}
	b.stmt.strategy = strategy
	return true
}

// parentTypes 返回声明的值必须兼容的所有类型
func (b *Binder) parentTypes() []reflect.Type {
	info := b.info()
	if info.ToChoice == ToConcrete {
		return append(append([]reflect.Type(nil), info.ContractTypes...), info.ToTypes...)
	}
	return info.ContractTypes
}

// checkProducedType 校验方法或工厂声明的返回类型。返回接口时无法静态判断，留到运行时。
func (b *Binder) checkProducedType(produced reflect.Type) error {
	if isAbstract(produced) {
		return nil
	}
	for _, parent := range b.parentTypes() {
		if !derivesFromOrEqual(produced, parent) {
			return &InvalidBindError{Concrete: produced, Contract: parent, Reason: "declared return type is not assignable to the contract"}
		}
	}
	return nil
}

// FromNew 按构造配方创建具体类型（默认策略）
func (b *Binder) FromNew() *Binder {
	b.from("FromNew", newStrategy())
	return b
}

// FromResolve 把请求转发给具体类型（或自身）的未命名绑定
func (b *Binder) FromResolve() *Binder {
	return b.fromResolve("FromResolve", nil, false)
}

// FromResolveID 把请求转发给具体类型（或自身）带标识符的绑定
func (b *Binder) FromResolveID(identifier any) *Binder {
	return b.fromResolve("FromResolveID", identifier, false)
}

// FromResolveAll 转发并返回所有匹配实例，通常配合 ResolveAll 使用
func (b *Binder) FromResolveAll(identifier any) *Binder {
	return b.fromResolve("FromResolveAll", identifier, true)
}

func (b *Binder) fromResolve(op string, identifier any, all bool) *Binder {
	identifier = normalizeIdentifier(identifier)
	strategy := &bindStrategy{
		kind:     strategyResolve,
		specific: identifier,
		track:    false,
		newProvider: func(*BindInfo, Scope) func(reflect.Type) Provider {
			return func(concrete reflect.Type) Provider {
				return &resolveProvider{target: concrete, identifier: identifier, all: all}
			}
		},
	}
	if b.from(op, strategy) {
		if err := checkIdentifier(identifier); err != nil {
			b.stmt.fail(&BinderStateError{Op: op, Reason: err.Error()})
		}
		b.info().RequireExplicitScope = false
	}
	return b
}

// FromInstance 绑定一个已存在的实例，实例不能为 nil
func (b *Binder) FromInstance(instance any) *Binder {
	return b.fromInstance("FromInstance", instance, false)
}

// FromInstanceAllowNull 同 FromInstance，但允许 nil
func (b *Binder) FromInstanceAllowNull(instance any) *Binder {
	return b.fromInstance("FromInstanceAllowNull", instance, true)
}

func (b *Binder) fromInstance(op string, instance any, allowNull bool) *Binder {
	strategy := &bindStrategy{
		kind:     strategyInstance,
		specific: instance,
		track:    false,
		newProvider: func(*BindInfo, Scope) func(reflect.Type) Provider {
			p := &instanceProvider{instance: instance}
			return func(reflect.Type) Provider { return p }
		},
	}
	if !b.from(op, strategy) {
		return b
	}
	b.info().RequireExplicitScope = false

	if isNil(instance) {
		if !allowNull {
			var t reflect.Type
			if contracts := b.info().ContractTypes; len(contracts) > 0 {
				t = contracts[0]
			}
			b.stmt.fail(&NullInstanceError{Type: t})
		}
		return b
	}
	concrete := reflect.TypeOf(instance)
	for _, parent := range b.parentTypes() {
		if !derivesFromOrEqual(concrete, parent) {
			b.stmt.fail(&InvalidBindError{Concrete: concrete, Contract: parent, Reason: "instance is not assignable to the contract"})
			return b
		}
	}
	return b
}

// FromMethod 调用 fn 创建实例。fn 的签名为 func(deps...) T 或 func(deps...) (T, error)，
// 参数可以是 *InjectContext、*Container 或任何已绑定的类型。
//
// 单例身份按函数的代码指针比较，同一个函数字面量创建的闭包视为同一个声明。
func (b *Binder) FromMethod(fn any) *Binder {
	return b.fromMethod("FromMethod", fn, false)
}

// FromMethodMultiple 同 FromMethod，但 fn 返回切片，每个元素是一个实例
func (b *Binder) FromMethodMultiple(fn any) *Binder {
	return b.fromMethod("FromMethodMultiple", fn, true)
}

func (b *Binder) fromMethod(op string, fn any, multiple bool) *Binder {
	p, err := newMethodProvider(fn, multiple)
	strategy := &bindStrategy{
		kind:     strategyMethod,
		specific: fn,
		track:    true,
		newProvider: func(*BindInfo, Scope) func(reflect.Type) Provider {
			return func(reflect.Type) Provider { return p }
		},
	}
	if !b.from(op, strategy) {
		return b
	}
	b.info().RequireExplicitScope = false
	if err != nil {
		b.stmt.fail(err)
		return b
	}
	if err := b.checkProducedType(p.produced); err != nil {
		b.stmt.fail(err)
	}
	return b
}

// FromProvider 使用自定义 Provider，适合包装外部资源
func (b *Binder) FromProvider(p Provider) *Binder {
	strategy := &bindStrategy{
		kind:     strategyProvider,
		specific: p,
		track:    true,
		newProvider: func(*BindInfo, Scope) func(reflect.Type) Provider {
			return func(reflect.Type) Provider { return p }
		},
	}
	if b.from("FromProvider", strategy) && p == nil {
		b.stmt.fail(&InvalidBindError{Reason: "FromProvider requires a non-nil provider"})
	}
	return b
}

// FromSubContainerResolve 从子容器中解析合约，子容器由返回的 SubContainerBinder 描述。
// 必须显式指定作用域；非 Transient 时同一绑定的所有合约共用一个子容器。
func (b *Binder) FromSubContainerResolve(identifier any) *SubContainerBinder {
	identifier = normalizeIdentifier(identifier)
	strategy := &bindStrategy{kind: strategySubContainer, track: false}
	if b.from("FromSubContainerResolve", strategy) {
		b.info().RequireExplicitScope = true
	}
	return &SubContainerBinder{binder: b, strategy: strategy, identifier: identifier}
}

// SubContainerBinder 选择子容器的来源
type SubContainerBinder struct {
	binder     *Binder
	strategy   *bindStrategy
	identifier any
}

func (sb *SubContainerBinder) by(specific any, create subContainerCreator) *Binder {
	id := sb.identifier
	sb.strategy.specific = specific
	sb.strategy.newProvider = func(_ *BindInfo, scope Scope) func(reflect.Type) Provider {
		creator := create
		if scope != ScopeTransient {
			creator = sharedCreator(create)
		}
		return func(concrete reflect.Type) Provider {
			return &subContainerProvider{identifier: id, target: concrete, create: creator}
		}
	}
	return sb.binder
}

// ByInstaller 创建子容器并执行安装器
func (sb *SubContainerBinder) ByInstaller(installers ...Installer) *Binder {
	return sb.by(installers, installerCreator(installers))
}

// ByMethod 创建子容器并调用 fn 安装绑定
func (sb *SubContainerBinder) ByMethod(fn func(sub *Container) error) *Binder {
	if fn == nil {
		sb.binder.stmt.fail(&InvalidBindError{Reason: "ByMethod requires a non-nil function"})
	}
	return sb.by(fn, methodCreator(fn))
}

// ByInstance 使用已有容器
func (sb *SubContainerBinder) ByInstance(sub *Container) *Binder {
	if sub == nil {
		sb.binder.stmt.fail(&InvalidBindError{Reason: "ByInstance requires a non-nil container"})
	}
	return sb.by(sub, instanceCreator(sub))
}

func (b *Binder) as(op string, scope Scope) *Binder {
	if b.step(op, stageScope) {
		b.info().Scope = scope
	}
	return b
}

// AsTransient 每次解析都创建新实例
func (b *Binder) AsTransient() *Binder { return b.as("AsTransient", ScopeTransient) }

// AsCached 在本绑定内按具体类型缓存
func (b *Binder) AsCached() *Binder { return b.as("AsCached", ScopeCached) }

// AsSingle 在容器内按 (具体类型, 具体标识符) 共享
func (b *Binder) AsSingle() *Binder { return b.as("AsSingle", ScopeSingleton) }

// WithArguments 提供额外的构造参数，未命名依赖优先按类型从中取值。
// 只对 FromNew 与 FromFactory 有效。
func (b *Binder) WithArguments(args ...any) *Binder {
	if !b.step("WithArguments", stageArgs) {
		return b
	}
	if s := b.stmt.strategy; s != nil && s.kind != strategyNew && s.kind != strategyFactory {
		b.stmt.fail(&BinderStateError{Op: "WithArguments", Reason: fmt.Sprintf("not supported by %v", s.kind)})
		return b
	}
	b.info().Arguments = append([]any(nil), args...)
	return b
}

// When 设置匹配条件
func (b *Binder) When(cond Condition) *Binder {
	if b.step("When", stageCondition) {
		b.info().Condition = cond
	}
	return b
}

// WhenInjectedInto 只有在注入到 types 之一时才匹配
func (b *Binder) WhenInjectedInto(types ...reflect.Type) *Binder {
	if b.step("WhenInjectedInto", stageCondition) {
		b.info().Condition = WhenInjectedInto(types...)
	}
	return b
}

// NonLazy 在 Build 时立即创建实例
func (b *Binder) NonLazy() *Binder {
	if b.flag("NonLazy", flagNonLazy) {
		b.info().NonLazy = true
	}
	return b
}

// Lazy 显式声明为惰性（默认）
func (b *Binder) Lazy() *Binder {
	if b.flag("Lazy", flagNonLazy) {
		b.info().NonLazy = false
	}
	return b
}

// CopyIntoAllSubContainers 在每个子容器中重新注册本绑定，子容器获得独立的缓存
func (b *Binder) CopyIntoAllSubContainers() *Binder {
	if b.flag("CopyIntoAllSubContainers", flagCopy) {
		b.info().CopyIntoAllSubContainers = true
	}
	return b
}

// OnInvalidBind 设置具体类型与合约不兼容时的处理方式
func (b *Binder) OnInvalidBind(response InvalidBindResponse) *Binder {
	if b.flag("OnInvalidBind", flagInvalidBind) {
		b.info().InvalidBindResponse = response
	}
	return b
}
