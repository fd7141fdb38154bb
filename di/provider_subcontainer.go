package di

import (
	"fmt"
	"reflect"
	"sync"
)

// subContainerCreator 返回用于解析的子容器
type subContainerCreator func(ctx *InjectContext) (*Container, error)

// subContainerProvider 从子容器中解析 target，只查找子容器本地的绑定
type subContainerProvider struct {
	identifier any
	target     reflect.Type
	create     subContainerCreator
}

func (p *subContainerProvider) Provide(ctx *InjectContext) ([]any, error) {
	sub, err := p.create(ctx)
	if err != nil {
		return nil, err
	}
	subCtx := &InjectContext{
		Container:     sub,
		MemberType:    p.target,
		Identifier:    p.identifier,
		ObjectType:    ctx.ObjectType,
		ParentContext: ctx,
		Optional:      ctx.Optional,
		localOnly:     true,
	}
	objs, err := sub.resolveAll(subCtx)
	if err != nil {
		return nil, err
	}
	if len(objs) == 0 && !ctx.Optional {
		return nil, &NoMatchingBindingError{ID: subCtx.BindingId(), Path: ctx.Path()}
	}
	return objs, nil
}

// sharedCreator 让同一个绑定的所有合约共用一个子容器，失败时下次重试
func sharedCreator(create subContainerCreator) subContainerCreator {
	var (
		mu  sync.Mutex
		sub *Container
	)
	return func(ctx *InjectContext) (*Container, error) {
		mu.Lock()
		defer mu.Unlock()
		if sub != nil {
			return sub, nil
		}
		c, err := create(ctx)
		if err != nil {
			return nil, err
		}
		sub = c
		return sub, nil
	}
}

func installerCreator(installers []Installer) subContainerCreator {
	return func(ctx *InjectContext) (*Container, error) {
		sub := ctx.Container.CreateSubContainer()
		if err := sub.Install(installers...); err != nil {
			return nil, err
		}
		if err := sub.Build(); err != nil {
			return nil, fmt.Errorf("di: building sub-container: %w", err)
		}
		return sub, nil
	}
}

func methodCreator(fn func(*Container) error) subContainerCreator {
	return func(ctx *InjectContext) (*Container, error) {
		sub := ctx.Container.CreateSubContainer()
		if err := fn(sub); err != nil {
			return nil, fmt.Errorf("di: installing sub-container: %w", err)
		}
		if err := sub.Build(); err != nil {
			return nil, fmt.Errorf("di: building sub-container: %w", err)
		}
		return sub, nil
	}
}

func instanceCreator(sub *Container) subContainerCreator {
	return func(*InjectContext) (*Container, error) {
		return sub, nil
	}
}
