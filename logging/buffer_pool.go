package logging

import (
	"bytes"
	"sync"
)

// maxPooledBuffer 超过这个容量的缓冲区不放回池中
const maxPooledBuffer = 64 << 10

// BufferPool 复用格式化使用的 bytes.Buffer
type BufferPool struct {
	pool sync.Pool
}

// NewBufferPool 创建新的缓冲池
func NewBufferPool() *BufferPool {
	p := &BufferPool{}
	p.pool.New = func() any { return new(bytes.Buffer) }
	return p
}

// Get 获取一个空的 buffer
func (p *BufferPool) Get() *bytes.Buffer {
	return p.pool.Get().(*bytes.Buffer)
}

// Put 归还 buffer
func (p *BufferPool) Put(b *bytes.Buffer) {
	if b.Cap() > maxPooledBuffer {
		return
	}
	b.Reset()
	p.pool.Put(b)
}

// GlobalBufferPool 格式化器共用的缓冲池
var GlobalBufferPool = NewBufferPool()
