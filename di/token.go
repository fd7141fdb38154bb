package di

import (
	"fmt"
	"reflect"
)

// Token 是带类型的标识符，用于区分同一类型的多个绑定
//
// 示例：
//
//	var PrimaryDSN = di.NewToken[string]("primary-dsn")
//	var ReplicaDSN = di.NewToken[string]("replica-dsn")
//
//	di.BindToken(c, PrimaryDSN).FromInstance("postgres://primary")
//	di.BindToken(c, ReplicaDSN).FromInstance("postgres://replica")
//
//	dsn, _ := di.ResolveToken(c, PrimaryDSN)
//
// Token 按指针比较，名字只用于日志和错误信息。
type Token[T any] struct {
	name string
}

// NewToken 创建一个新的 Token
func NewToken[T any](name string) *Token[T] {
	return &Token[T]{name: name}
}

// Name 返回 Token 的名称
func (t *Token[T]) Name() string {
	return t.name
}

// Type 返回 Token 的类型
func (t *Token[T]) Type() reflect.Type {
	return TypeOf[T]()
}

// String 返回 Token 的字符串表示
func (t *Token[T]) String() string {
	return fmt.Sprintf("Token[%s](%s)", t.Type(), t.name)
}

// BindToken 以 Token 为标识符绑定类型 T
func BindToken[T any](c *Container, t *Token[T]) *Binder {
	return c.bind([]reflect.Type{TypeOf[T]()}, 1).WithID(t)
}

// ResolveToken 按 Token 解析
func ResolveToken[T any](c *Container, t *Token[T]) (T, error) {
	return ResolveID[T](c, t)
}

// TypeOf 获取类型 T 的 reflect.Type，接口类型也适用
//
//	repoType := di.TypeOf[Repository]()
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
