package di

import (
	"reflect"
	"strings"
)

// Condition 决定某个注册是否适用于当前的解析请求
type Condition func(ctx *InjectContext) bool

// InjectContext 描述一次解析请求：谁在请求、请求什么、由谁间接触发。
// 每个依赖都会创建一个子上下文，整条链用于条件匹配和循环依赖检测。
type InjectContext struct {
	// Container 是执行解析的容器（匹配到的注册所属的容器）
	Container *Container
	// MemberType 请求的合约类型
	MemberType reflect.Type
	// Identifier 请求的标识符，nil 表示未命名
	Identifier any
	// ObjectType 请求该依赖的对象类型，根请求为 nil
	ObjectType reflect.Type
	// ParentContext 上一级请求
	ParentContext *InjectContext
	// Optional 为 true 时找不到绑定返回 nil 而不是错误
	Optional bool

	entry *registration
	// concrete 是 entry 正在构造的具体类型，未知时为 nil
	concrete reflect.Type
	// localOnly 为 true 时不查找父容器（子容器解析使用）
	localOnly bool
}

func newRootContext(c *Container, typ reflect.Type, identifier any) *InjectContext {
	return &InjectContext{
		Container:  c,
		MemberType: typ,
		Identifier: normalizeIdentifier(identifier),
	}
}

// BindingId 返回本次请求的查找键
func (ctx *InjectContext) BindingId() BindingId {
	return BindingId{Type: ctx.MemberType, Identifier: ctx.Identifier}
}

// child 为依赖 dep 创建子上下文，objectType 是正在构造的类型
func (ctx *InjectContext) child(dep Dependency, objectType reflect.Type) *InjectContext {
	return &InjectContext{
		Container:     ctx.Container,
		MemberType:    dep.Type,
		Identifier:    normalizeIdentifier(dep.Identifier),
		ObjectType:    objectType,
		ParentContext: ctx,
		Optional:      dep.Optional,
	}
}

// requester 返回当前上下文正在构造的类型，作为子请求的 ObjectType
func (ctx *InjectContext) requester() reflect.Type {
	if ctx.concrete != nil {
		return ctx.concrete
	}
	return ctx.MemberType
}

// Resolve 在当前解析链中解析一个依赖。
// 在 FromProvider 或工厂代码里应使用它而不是闭包捕获的 Container，
// 这样循环依赖检测才能覆盖到这些调用。
func (ctx *InjectContext) Resolve(typ reflect.Type) (any, error) {
	return ctx.ResolveID(typ, nil)
}

// ResolveID 按标识符解析依赖
func (ctx *InjectContext) ResolveID(typ reflect.Type, identifier any) (any, error) {
	sub := ctx.child(Dependency{Type: typ, Identifier: identifier}, ctx.requester())
	return sub.Container.resolveSingle(sub)
}

// TryResolve 解析可选依赖，找不到绑定时返回 nil, nil
func (ctx *InjectContext) TryResolve(typ reflect.Type) (any, error) {
	sub := ctx.child(Dependency{Type: typ, Optional: true}, ctx.requester())
	return sub.Container.resolveSingle(sub)
}

// ResolveAll 解析所有匹配的实例
func (ctx *InjectContext) ResolveAll(typ reflect.Type) ([]any, error) {
	sub := ctx.child(Dependency{Type: typ}, ctx.requester())
	return sub.Container.resolveAll(sub)
}

// Path 返回从根请求到当前请求的链路，例如 "*app.Service -> app.Repo (id=main)"
func (ctx *InjectContext) Path() string {
	ids := ctx.chain()
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, " -> ")
}

// chain 从根到当前节点依次返回 BindingId
func (ctx *InjectContext) chain() []BindingId {
	var ids []BindingId
	for cur := ctx; cur != nil; cur = cur.ParentContext {
		ids = append(ids, cur.BindingId())
	}
	for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
		ids[i], ids[j] = ids[j], ids[i]
	}
	return ids
}

// WhenInjectedInto 返回一个条件：只有当请求方的类型是 types 之一（或可赋值给它）时才匹配
func WhenInjectedInto(types ...reflect.Type) Condition {
	return func(ctx *InjectContext) bool {
		if ctx.ObjectType == nil {
			return false
		}
		for _, t := range types {
			if derivesFromOrEqual(ctx.ObjectType, t) {
				return true
			}
		}
		return false
	}
}
