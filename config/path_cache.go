package config

import (
	"strings"
	"sync"
)

// PathCache 缓存键路径的拆分结果
type PathCache struct {
	cache sync.Map
}

// GetPathSegments 把 "a:b.c" 拆分为 [a b c]，空段会被忽略
func (c *PathCache) GetPathSegments(path string) []string {
	if v, ok := c.cache.Load(path); ok {
		return v.([]string)
	}
	parts := strings.FieldsFunc(path, func(r rune) bool { return r == ':' || r == '.' })
	c.cache.Store(path, parts)
	return parts
}

var globalPathCache = &PathCache{}
