package di

import (
	"fmt"
	"reflect"
)

// Provider 为一次解析请求产生实例。单值 Provider 返回一个元素，集合 Provider 可以返回任意个。
type Provider interface {
	Provide(ctx *InjectContext) ([]any, error)
}

// ProviderFunc 让普通函数实现 Provider
type ProviderFunc func(ctx *InjectContext) ([]any, error)

// Provide 实现 Provider
func (f ProviderFunc) Provide(ctx *InjectContext) ([]any, error) {
	return f(ctx)
}

// transientProvider 每次调用都按配方构造 concrete
type transientProvider struct {
	concrete reflect.Type
	args     []any
}

func (p *transientProvider) Provide(ctx *InjectContext) ([]any, error) {
	ctx.concrete = p.concrete
	recipe, err := ctx.Container.recipes.lookup(p.concrete)
	if err != nil {
		return nil, err
	}
	obj, err := recipe.build(ctx, p.args)
	if err != nil {
		return nil, err
	}
	return []any{obj}, nil
}

// resolveProvider 把请求转发到另一个 BindingId
type resolveProvider struct {
	target     reflect.Type
	identifier any
	all        bool
}

func (p *resolveProvider) Provide(ctx *InjectContext) ([]any, error) {
	sub := ctx.child(Dependency{Type: p.target, Identifier: p.identifier, Optional: ctx.Optional}, ctx.ObjectType)
	if p.all {
		return sub.Container.resolveAll(sub)
	}
	obj, err := sub.Container.resolveSingle(sub)
	if err != nil {
		return nil, err
	}
	if obj == nil && ctx.Optional {
		return nil, nil
	}
	return []any{obj}, nil
}

// instanceProvider 总是返回同一个用户提供的实例
type instanceProvider struct {
	instance any
}

func (p *instanceProvider) Provide(*InjectContext) ([]any, error) {
	return []any{p.instance}, nil
}

// methodProvider 调用用户函数创建实例。
// 参数为 *InjectContext 时传入当前上下文，为 *Container 时传入挂在当前解析链上的容器视图，
// 其余参数按类型解析，请求方类型是方法的返回类型。
type methodProvider struct {
	fn       reflect.Value
	produced reflect.Type
	multiple bool
}

func newMethodProvider(fn any, multiple bool) (*methodProvider, error) {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return nil, &InvalidBindError{Reason: fmt.Sprintf("method must be a non-nil function, got %T", fn)}
	}
	t := v.Type()
	if err := checkFuncResults(t); err != nil {
		return nil, &InvalidBindError{Reason: err.Error()}
	}
	if t.IsVariadic() {
		return nil, &InvalidBindError{Reason: fmt.Sprintf("variadic method %v is not supported", t)}
	}
	produced := t.Out(0)
	if multiple {
		if produced.Kind() != reflect.Slice {
			return nil, &InvalidBindError{Reason: fmt.Sprintf("FromMethodMultiple needs a function returning a slice, got %v", t)}
		}
		produced = produced.Elem()
	}
	return &methodProvider{fn: v, produced: produced, multiple: multiple}, nil
}

func (p *methodProvider) Provide(ctx *InjectContext) ([]any, error) {
	ctx.concrete = p.produced
	t := p.fn.Type()
	in := make([]reflect.Value, t.NumIn())
	for i := range in {
		switch pt := t.In(i); pt {
		case injectContextType:
			in[i] = reflect.ValueOf(ctx)
		case containerType:
			view, detach := ctx.Container.view(ctx)
			defer detach()
			in[i] = reflect.ValueOf(view)
		default:
			sub := ctx.child(Dependency{Type: pt}, p.produced)
			v, err := sub.Container.resolveSingle(sub)
			if err != nil {
				return nil, err
			}
			if v == nil {
				in[i] = reflect.Zero(pt)
			} else {
				in[i] = reflect.ValueOf(v)
			}
		}
	}

	out, err := callFunc(p.fn, in)
	if err != nil {
		return nil, constructionError(p.produced, err)
	}

	if !p.multiple {
		if err := checkProduced(out, ctx.MemberType); err != nil {
			return nil, err
		}
		return []any{out}, nil
	}

	rv := reflect.ValueOf(out)
	if !rv.IsValid() {
		return nil, nil
	}
	objs := make([]any, rv.Len())
	for i := range objs {
		objs[i] = rv.Index(i).Interface()
		if err := checkProduced(objs[i], ctx.MemberType); err != nil {
			return nil, err
		}
	}
	return objs, nil
}

// checkProduced 在运行时校验接口返回值的动态类型
func checkProduced(obj any, contract reflect.Type) error {
	if obj == nil || contract == nil || contract == anyType {
		return nil
	}
	if !reflect.TypeOf(obj).AssignableTo(contract) {
		return &InvalidBindError{Concrete: reflect.TypeOf(obj), Contract: contract, Reason: "produced value does not implement the contract"}
	}
	return nil
}

// Factory 是 FromFactory 使用的无类型工厂
type Factory interface {
	Create() (any, error)
}

// TypedFactory 是带类型的工厂，配合 FromFactoryOf 使用
type TypedFactory[T any] interface {
	Create() (T, error)
}

// factoryProvider 先得到工厂对象（接口类型则解析，否则按配方构造），再调用其 Create
type factoryProvider struct {
	factoryType reflect.Type
	args        []any
}

func (p *factoryProvider) Provide(ctx *InjectContext) ([]any, error) {
	var factory any
	if isAbstract(p.factoryType) {
		sub := ctx.child(Dependency{Type: p.factoryType}, ctx.MemberType)
		f, err := sub.Container.resolveSingle(sub)
		if err != nil {
			return nil, err
		}
		factory = f
	} else {
		recipe, err := ctx.Container.recipes.lookup(p.factoryType)
		if err != nil {
			return nil, err
		}
		f, err := recipe.build(ctx, p.args)
		if err != nil {
			return nil, err
		}
		factory = f
	}

	create := reflect.ValueOf(factory).MethodByName("Create")
	out, err := callFunc(create, nil)
	if err != nil {
		return nil, constructionError(create.Type().Out(0), err)
	}
	if err := checkProduced(out, ctx.MemberType); err != nil {
		return nil, err
	}
	return []any{out}, nil
}

// factoryProduct 校验工厂类型具备 Create() (T, error) 并返回 T
func factoryProduct(factoryType reflect.Type) (reflect.Type, error) {
	m, ok := factoryType.MethodByName("Create")
	if !ok {
		return nil, &InvalidBindError{Concrete: factoryType, Reason: "factory type has no Create method"}
	}
	mt := m.Type
	in := mt.NumIn()
	if !isAbstract(factoryType) {
		// 具体类型的方法类型包含接收者
		in--
	}
	if in != 0 || mt.NumOut() != 2 || mt.Out(1) != errorType {
		return nil, &InvalidBindError{Concrete: factoryType, Reason: "factory Create must have the signature Create() (T, error)"}
	}
	return mt.Out(0), nil
}
