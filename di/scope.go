package di

import (
	"fmt"
	"strings"
)

// Scope 表示绑定实例的生命周期
type Scope int

const (
	// ScopeUnset 未指定，Finalize 时按策略决定（通常退化为 Transient）
	ScopeUnset Scope = iota
	// ScopeTransient 每次解析都创建新实例
	ScopeTransient
	// ScopeCached 同一个绑定内按具体类型缓存一个实例
	ScopeCached
	// ScopeSingleton 容器内按 (具体类型, 具体标识符) 共享一个实例
	ScopeSingleton
)

func (s Scope) String() string {
	switch s {
	case ScopeUnset:
		return "Unset"
	case ScopeTransient:
		return "Transient"
	case ScopeCached:
		return "Cached"
	case ScopeSingleton:
		return "Singleton"
	}
	return fmt.Sprintf("Scope(%d)", int(s))
}

// InvalidBindResponse 决定具体类型与合约不兼容时的处理方式
type InvalidBindResponse int

const (
	// InvalidBindDefault 使用容器设置（默认 Assert）
	InvalidBindDefault InvalidBindResponse = iota
	// InvalidBindAssert 报告 InvalidBindError
	InvalidBindAssert
	// InvalidBindSkip 静默跳过不兼容的组合
	InvalidBindSkip
)

func (r InvalidBindResponse) String() string {
	switch r {
	case InvalidBindAssert:
		return "assert"
	case InvalidBindSkip:
		return "skip"
	}
	return "default"
}

// UnmarshalText 支持从配置读取 "assert" / "skip"
func (r *InvalidBindResponse) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "", "default":
		*r = InvalidBindDefault
	case "assert":
		*r = InvalidBindAssert
	case "skip":
		*r = InvalidBindSkip
	default:
		return fmt.Errorf("di: unknown invalid bind response %q", string(text))
	}
	return nil
}

// MarshalText 与 UnmarshalText 对应
func (r InvalidBindResponse) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// ToChoice 区分绑定到自身还是绑定到 To 给出的具体类型
type ToChoice int

const (
	ToSelf ToChoice = iota
	ToConcrete
)
