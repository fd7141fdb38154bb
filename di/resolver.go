package di

import (
	"reflect"
)

// Resolve 解析类型 typ 的未命名绑定
func (c *Container) Resolve(typ reflect.Type) (any, error) {
	return c.ResolveID(typ, nil)
}

// ResolveID 解析带标识符的绑定
func (c *Container) ResolveID(typ reflect.Type, identifier any) (any, error) {
	ctx := c.request(Dependency{Type: typ, Identifier: identifier})
	return ctx.Container.resolveSingle(ctx)
}

// TryResolve 解析可选依赖，没有绑定时返回 nil, nil
func (c *Container) TryResolve(typ reflect.Type) (any, error) {
	return c.TryResolveID(typ, nil)
}

// TryResolveID 按标识符解析可选依赖
func (c *Container) TryResolveID(typ reflect.Type, identifier any) (any, error) {
	ctx := c.request(Dependency{Type: typ, Identifier: identifier, Optional: true})
	return ctx.Container.resolveSingle(ctx)
}

// ResolveAll 返回所有匹配的实例：先是本容器的，再是父容器的。没有匹配时返回空切片。
func (c *Container) ResolveAll(typ reflect.Type) ([]any, error) {
	return c.ResolveAllID(typ, nil)
}

// ResolveAllID 按标识符返回所有匹配的实例
func (c *Container) ResolveAllID(typ reflect.Type, identifier any) ([]any, error) {
	ctx := c.request(Dependency{Type: typ, Identifier: identifier})
	return ctx.Container.resolveAll(ctx)
}

// HasBinding 报告 typ 是否有可匹配的绑定（包括父容器）
func (c *Container) HasBinding(typ reflect.Type) bool {
	return c.HasBindingID(typ, nil)
}

// HasBindingID 报告 (typ, identifier) 是否有可匹配的绑定
func (c *Container) HasBindingID(typ reflect.Type, identifier any) bool {
	reg, err := c.match(newRootContext(c.self, typ, identifier))
	return err == nil && reg != nil
}

// request 为一次外部解析创建上下文。视图上的请求挂在方法所在的解析链下。
func (c *Container) request(dep Dependency) *InjectContext {
	if via := c.scope.Load(); via != nil {
		return via.child(dep, via.requester())
	}
	ctx := newRootContext(c.self, dep.Type, dep.Identifier)
	ctx.Optional = dep.Optional
	return ctx
}

func (c *Container) resolveSingle(ctx *InjectContext) (any, error) {
	reg, err := c.match(ctx)
	if err != nil {
		return nil, err
	}
	if reg == nil {
		if ctx.Optional {
			return nil, nil
		}
		return nil, &NoMatchingBindingError{ID: ctx.BindingId(), Path: parentPath(ctx)}
	}

	objs, err := reg.owner.run(ctx, reg)
	if err != nil {
		return nil, err
	}
	switch {
	case len(objs) == 1:
		return objs[0], nil
	case len(objs) == 0 && ctx.Optional:
		return nil, nil
	}
	return nil, &AmbiguousMatchError{ID: ctx.BindingId(), Count: len(objs)}
}

func (c *Container) resolveAll(ctx *InjectContext) ([]any, error) {
	id := ctx.BindingId()
	result := make([]any, 0)
	for cur := c; cur != nil; cur = cur.parent {
		if err := cur.ready(); err != nil {
			return nil, err
		}
		for _, reg := range cur.registrations(id) {
			if reg.condition != nil && !reg.condition(ctx) {
				continue
			}
			objs, err := reg.owner.run(ctx, reg)
			if err != nil {
				return nil, err
			}
			result = append(result, objs...)
		}
		if ctx.localOnly {
			break
		}
	}
	return result, nil
}

// match 在本容器及父容器中查找第一个适用的注册
func (c *Container) match(ctx *InjectContext) (*registration, error) {
	id := ctx.BindingId()
	for cur := c; cur != nil; cur = cur.parent {
		if err := cur.ready(); err != nil {
			return nil, err
		}
		if reg := selectRegistration(cur.registrations(id), ctx); reg != nil {
			return reg, nil
		}
		if ctx.localOnly {
			break
		}
	}
	return nil, nil
}

func (c *Container) registrations(id BindingId) []*registration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.registry[id]
}

// selectRegistration 条件满足的注册优先，否则取第一个无条件的注册。同类按插入顺序。
func selectRegistration(regs []*registration, ctx *InjectContext) *registration {
	var fallback *registration
	for _, reg := range regs {
		if reg.condition == nil {
			if fallback == nil {
				fallback = reg
			}
			continue
		}
		if reg.condition(ctx) {
			return reg
		}
	}
	return fallback
}

// run 在检测循环依赖后执行注册的 provider
func (c *Container) run(ctx *InjectContext, reg *registration) ([]any, error) {
	for anc := ctx.ParentContext; anc != nil; anc = anc.ParentContext {
		if anc.entry == nil {
			continue
		}
		if anc.entry == reg || (reg.cache != nil && anc.entry.cache == reg.cache) {
			return nil, &CircularDependencyError{Path: ctx.chain()}
		}
	}

	runCtx := *ctx
	runCtx.Container = c.self
	runCtx.entry = reg
	return reg.provider.Provide(&runCtx)
}

func parentPath(ctx *InjectContext) string {
	if ctx.ParentContext == nil {
		return ""
	}
	return ctx.ParentContext.Path()
}
