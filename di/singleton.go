package di

import (
	"fmt"
	"reflect"
)

type singletonKey struct {
	concrete   reflect.Type
	identifier any
}

// singletonDecl 描述单例是如何声明的，相同声明共享同一个缓存
type singletonDecl struct {
	kind     strategyKind
	specific any
	args     []any
}

func (d singletonDecl) equal(other singletonDecl) bool {
	return d.kind == other.kind &&
		identityEqual(d.specific, other.specific) &&
		argumentsEqual(d.args, other.args)
}

func (d singletonDecl) String() string {
	if d.specific == nil {
		return d.kind.String()
	}
	return fmt.Sprintf("%v(%T)", d.kind, d.specific)
}

type singletonEntry struct {
	decl     singletonDecl
	provider *cachedProvider
}

// singletonRegistry 保证同一个容器内 (具体类型, 具体标识符) 只有一个缓存实例
type singletonRegistry struct {
	entries map[singletonKey]*singletonEntry
}

func newSingletonRegistry() *singletonRegistry {
	return &singletonRegistry{entries: make(map[singletonKey]*singletonEntry)}
}

// get 返回已有的缓存 provider，声明不一致时返回 SingletonMismatchError。
// 调用方持有容器锁。
func (r *singletonRegistry) get(key singletonKey, decl singletonDecl, create func() *cachedProvider) (*cachedProvider, error) {
	if entry, ok := r.entries[key]; ok {
		if !entry.decl.equal(decl) {
			return nil, &SingletonMismatchError{
				Concrete:   key.concrete,
				Identifier: key.identifier,
				Existing:   entry.decl.String(),
				Requested:  decl.String(),
			}
		}
		return entry.provider, nil
	}

	p := create()
	r.entries[key] = &singletonEntry{decl: decl, provider: p}
	return p, nil
}
