package di

import (
	"fmt"

	"github.com/gocrud/inject/config"
)

// Settings 是容器级别的设置
type Settings struct {
	// InvalidBindResponse 绑定没有单独指定时使用，默认 Assert
	InvalidBindResponse InvalidBindResponse `json:"invalidBindResponse"`
	// RecipeCacheSize 推导出的构造配方 LRU 缓存大小
	RecipeCacheSize int `json:"recipeCacheSize"`
}

// DefaultSettings 返回默认设置
func DefaultSettings() Settings {
	return Settings{
		InvalidBindResponse: InvalidBindAssert,
		RecipeCacheSize:     defaultRecipeCacheSize,
	}
}

// SettingsFromConfig 从配置节读取设置，缺失的字段保留默认值。
//
//	di:
//	  invalidBindResponse: skip
//	  recipeCacheSize: 512
func SettingsFromConfig(cfg config.Configuration, section string) (Settings, error) {
	s := DefaultSettings()
	if !cfg.Has(section) {
		return s, nil
	}
	if err := cfg.Bind(section, &s); err != nil {
		return s, fmt.Errorf("di: reading settings from %q: %w", section, err)
	}
	if s.InvalidBindResponse == InvalidBindDefault {
		s.InvalidBindResponse = InvalidBindAssert
	}
	if s.RecipeCacheSize <= 0 {
		s.RecipeCacheSize = defaultRecipeCacheSize
	}
	return s, nil
}
