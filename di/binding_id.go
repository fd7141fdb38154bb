package di

import (
	"fmt"
	"reflect"
)

// BindingId 是注册表的查找键：合约类型 + 可选标识符。
// 两个字段都可比较，因此 BindingId 可以直接作为 map 的键。
type BindingId struct {
	Type       reflect.Type
	Identifier any
}

// NewBindingId 创建 BindingId，空字符串标识符等同于无标识符。
func NewBindingId(typ reflect.Type, identifier any) BindingId {
	return BindingId{Type: typ, Identifier: normalizeIdentifier(identifier)}
}

// String 返回 BindingId 的字符串表示
func (id BindingId) String() string {
	if id.Identifier == nil {
		return fmt.Sprintf("%v", id.Type)
	}
	if id.Identifier == DependencyRootIdentifier {
		return fmt.Sprintf("%v (root)", id.Type)
	}
	return fmt.Sprintf("%v (id=%v)", id.Type, id.Identifier)
}

type dependencyRoot struct{}

func (dependencyRoot) String() string { return "<root>" }

// DependencyRootIdentifier 是保留的标识符，NonLazy 绑定在它下面注册根解析，
// Build 时按它急切地解析所有非惰性绑定。
var DependencyRootIdentifier any = dependencyRoot{}

// anyType 是根解析使用的合约类型
var anyType = reflect.TypeOf((*any)(nil)).Elem()

func normalizeIdentifier(identifier any) any {
	if s, ok := identifier.(string); ok && s == "" {
		return nil
	}
	return identifier
}

func checkIdentifier(identifier any) error {
	if identifier == nil {
		return nil
	}
	if !reflect.TypeOf(identifier).Comparable() {
		return fmt.Errorf("di: identifier of type %T is not comparable", identifier)
	}
	return nil
}
