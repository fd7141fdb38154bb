// Package di 是一个基于绑定的依赖注入容器。
//
// 绑定把合约类型（可选加上标识符）映射到构造方式和生命周期：
//
//	c := di.NewContainer()
//	di.Bind[Greeter](c).To(di.TypeOf[*EnglishGreeter]()).AsSingle()
//	di.Bind[*Service](c).AsTransient()
//	if err := c.Build(); err != nil { ... }
//
//	svc, err := di.Resolve[*Service](c)
//
// 构造方式（From*）：FromNew 按结构体 `di` 标签或 RegisterConstructor 注册的构造函数创建，
// FromResolve 转发到其他绑定，FromInstance 使用已有实例，FromMethod 调用函数，
// FromFactory 通过工厂对象，FromSubContainerResolve 从子容器解析，FromProvider 使用自定义 Provider。
//
// 生命周期：AsTransient 每次新建，AsCached 在一个绑定内共享，
// AsSingle 在整个容器内按 (具体类型, 具体标识符) 共享。
package di

import (
	"fmt"
	"reflect"
)

// Bind 以类型 T 为合约开始一条绑定语句
func Bind[T any](c *Container) *Binder {
	return c.bind([]reflect.Type{TypeOf[T]()}, 1)
}

// Resolve 解析类型 T
func Resolve[T any](c *Container) (T, error) {
	return ResolveID[T](c, nil)
}

// ResolveID 按标识符解析类型 T
func ResolveID[T any](c *Container, identifier any) (T, error) {
	var zero T
	typ := TypeOf[T]()

	val, err := c.ResolveID(typ, identifier)
	if err != nil {
		return zero, err
	}
	if val == nil {
		return zero, nil
	}
	if v, ok := val.(T); ok {
		return v, nil
	}
	return zero, fmt.Errorf("di: resolved value is %T, expected %v", val, typ)
}

// TryResolve 解析可选的类型 T，没有绑定时返回零值和 false
func TryResolve[T any](c *Container) (T, bool, error) {
	var zero T
	val, err := c.TryResolve(TypeOf[T]())
	if err != nil || val == nil {
		return zero, false, err
	}
	v, ok := val.(T)
	if !ok {
		return zero, false, fmt.Errorf("di: resolved value is %T, expected %v", val, TypeOf[T]())
	}
	return v, true, nil
}

// ResolveAll 解析类型 T 的所有实例
func ResolveAll[T any](c *Container) ([]T, error) {
	vals, err := c.ResolveAll(TypeOf[T]())
	if err != nil {
		return nil, err
	}
	result := make([]T, 0, len(vals))
	for _, val := range vals {
		v, ok := val.(T)
		if !ok {
			return nil, fmt.Errorf("di: resolved value is %T, expected %v", val, TypeOf[T]())
		}
		result = append(result, v)
	}
	return result, nil
}

// MustResolve 解析类型 T，失败时 panic
func MustResolve[T any](c *Container) T {
	v, err := Resolve[T](c)
	if err != nil {
		panic(err)
	}
	return v
}

// ResolveFrom 在 InjectContext 中解析类型 T，供 FromMethod / Provider 内部使用
func ResolveFrom[T any](ctx *InjectContext) (T, error) {
	var zero T
	val, err := ctx.Resolve(TypeOf[T]())
	if err != nil || val == nil {
		return zero, err
	}
	v, ok := val.(T)
	if !ok {
		return zero, fmt.Errorf("di: resolved value is %T, expected %v", val, TypeOf[T]())
	}
	return v, nil
}
