package di

import "sync"

// cachedProvider 包装另一个 Provider，只在第一次成功时调用它，之后返回缓存结果。
// 失败不会被缓存，下一次请求会重试。
type cachedProvider struct {
	mu    sync.Mutex
	inner Provider
	owner *Container
	// track 为 false 时不登记释放（例如用户自己持有的 FromInstance 实例）
	track bool

	done      bool
	instances []any
}

// newCachedProvider 在 owner 中登记缓存，Dispose 时统一清空。
// 调用方持有 owner.mu。
func newCachedProvider(owner *Container, inner Provider, track bool) *cachedProvider {
	p := &cachedProvider{inner: inner, owner: owner, track: track}
	owner.caches = append(owner.caches, p)
	return p
}

func (p *cachedProvider) Provide(ctx *InjectContext) ([]any, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.done {
		return p.instances, nil
	}

	objs, err := p.inner.Provide(ctx)
	if err != nil {
		return nil, err
	}
	p.instances, p.done = objs, true

	if p.track {
		p.owner.trackDisposables(objs)
	}
	return objs, nil
}

func (p *cachedProvider) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.instances, p.done = nil, false
}
