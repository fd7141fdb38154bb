package di

import (
	"reflect"
)

var (
	errorType         = reflect.TypeOf((*error)(nil)).Elem()
	injectContextType = reflect.TypeOf((*InjectContext)(nil))
	containerType     = reflect.TypeOf((*Container)(nil))
)

// derivesFromOrEqual 报告 concrete 的值是否可以作为 contract 使用。
// Go 没有继承，这里等价于可赋值（相同类型或实现了接口）。
func derivesFromOrEqual(concrete, contract reflect.Type) bool {
	if concrete == nil || contract == nil {
		return false
	}
	return concrete == contract || concrete.AssignableTo(contract)
}

// isAbstract 接口类型无法直接构造
func isAbstract(t reflect.Type) bool {
	return t.Kind() == reflect.Interface
}

// isNil 对 nil 接口以及持有 nil 指针/切片/map 等的接口都返回 true
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// identityEqual 比较两个值的“身份”。
// 指针、chan 等按引用比较；函数按代码指针比较，同一个字面量生成的闭包视为相同；
// map 和切片按底层数组比较；其余不可比较的值退化为深度比较。
func identityEqual(a, b any) (equal bool) {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}

	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	switch ta.Kind() {
	case reflect.Func, reflect.Map:
		return va.Pointer() == vb.Pointer()
	case reflect.Slice:
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	}

	if ta.Comparable() {
		// 结构体里的接口字段可能持有不可比较的值
		defer func() {
			if recover() != nil {
				equal = reflect.DeepEqual(a, b)
			}
		}()
		return a == b
	}
	return reflect.DeepEqual(a, b)
}

func argumentsEqual(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !identityEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

func typeNames(types []reflect.Type) []string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.String()
	}
	return names
}
