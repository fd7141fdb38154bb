package di

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// 错误类别，配合 errors.Is 使用
var (
	// ErrValidation 绑定声明无效（在 Build 或首次解析时报告）
	ErrValidation = errors.New("di: invalid binding")
	// ErrResolution 解析失败
	ErrResolution = errors.New("di: resolution failed")
	// ErrCircularDependency 检测到循环依赖
	ErrCircularDependency = errors.New("di: circular dependency")
	// ErrContainerDisposed 容器已释放
	ErrContainerDisposed = errors.New("di: container disposed")
	// ErrContainerBuilt 容器构建后不能再修改
	ErrContainerBuilt = errors.New("di: container already built")
)

// NoMatchingBindingError 没有任何注册匹配请求
type NoMatchingBindingError struct {
	ID   BindingId
	Path string
}

func (e *NoMatchingBindingError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("di: no binding found for %v", e.ID)
	}
	return fmt.Sprintf("di: no binding found for %v (while resolving %s)", e.ID, e.Path)
}

func (e *NoMatchingBindingError) Unwrap() error { return ErrResolution }

// AmbiguousMatchError 单值解析得到了多个实例
type AmbiguousMatchError struct {
	ID    BindingId
	Count int
}

func (e *AmbiguousMatchError) Error() string {
	return fmt.Sprintf("di: expected exactly one instance for %v, got %d", e.ID, e.Count)
}

func (e *AmbiguousMatchError) Unwrap() error { return ErrResolution }

// NullInstanceError FromInstance 绑定了 nil 且未显式允许
type NullInstanceError struct {
	Type reflect.Type
}

func (e *NullInstanceError) Error() string {
	return fmt.Sprintf("di: nil instance bound to %v", e.Type)
}

func (e *NullInstanceError) Unwrap() error { return ErrValidation }

// CircularDependencyError 携带从根到重复节点的解析路径
type CircularDependencyError struct {
	Path []BindingId
}

func (e *CircularDependencyError) Error() string {
	parts := make([]string, len(e.Path))
	for i, id := range e.Path {
		parts[i] = id.String()
	}
	return "di: circular dependency detected: " + strings.Join(parts, " -> ")
}

func (e *CircularDependencyError) Unwrap() error { return ErrCircularDependency }

// ScopeRequiredError 绑定策略要求显式作用域但没有指定
type ScopeRequiredError struct {
	Contracts   []reflect.Type
	ContextInfo string
}

func (e *ScopeRequiredError) Error() string {
	msg := fmt.Sprintf("di: scope must be set explicitly for binding of [%s]", strings.Join(typeNames(e.Contracts), ", "))
	if e.ContextInfo != "" {
		msg += " (" + e.ContextInfo + ")"
	}
	return msg
}

func (e *ScopeRequiredError) Unwrap() error { return ErrValidation }

// InvalidBindError 具体类型与合约不兼容，或者策略本身不合法
type InvalidBindError struct {
	Concrete reflect.Type
	Contract reflect.Type
	Reason   string
}

func (e *InvalidBindError) Error() string {
	switch {
	case e.Contract != nil && e.Concrete != nil:
		msg := fmt.Sprintf("di: invalid binding of %v to %v", e.Contract, e.Concrete)
		if e.Reason != "" {
			msg += ": " + e.Reason
		}
		return msg
	case e.Concrete != nil:
		return fmt.Sprintf("di: invalid binding to %v: %s", e.Concrete, e.Reason)
	default:
		return "di: invalid binding: " + e.Reason
	}
}

func (e *InvalidBindError) Unwrap() error { return ErrValidation }

// SingletonMismatchError 同一个单例键被用不同的方式声明了两次
type SingletonMismatchError struct {
	Concrete   reflect.Type
	Identifier any
	Existing   string
	Requested  string
}

func (e *SingletonMismatchError) Error() string {
	id := ""
	if e.Identifier != nil {
		id = fmt.Sprintf(" (id=%v)", e.Identifier)
	}
	return fmt.Sprintf("di: singleton %v%s already declared as %s, cannot redeclare as %s",
		e.Concrete, id, e.Existing, e.Requested)
}

func (e *SingletonMismatchError) Unwrap() error { return ErrValidation }

// EmptyConcreteTypesError To 被调用但没有给出任何具体类型
type EmptyConcreteTypesError struct {
	Contracts []reflect.Type
}

func (e *EmptyConcreteTypesError) Error() string {
	return fmt.Sprintf("di: no concrete types given for binding of [%s]", strings.Join(typeNames(e.Contracts), ", "))
}

func (e *EmptyConcreteTypesError) Unwrap() error { return ErrValidation }

// BinderStateError 绑定 DSL 的调用顺序错误
type BinderStateError struct {
	Op     string
	Reason string
}

func (e *BinderStateError) Error() string {
	return fmt.Sprintf("di: %s: %s", e.Op, e.Reason)
}

func (e *BinderStateError) Unwrap() error { return ErrValidation }

// constructionError 包装用户构造代码返回的错误
func constructionError(t reflect.Type, err error) error {
	return fmt.Errorf("di: constructing %v: %w", t, err)
}
