package web

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gocrud/inject/config"
)

// Options Web 主机配置
type Options struct {
	Port            int             `json:"port"`
	Mode            string          `json:"mode"` // debug、release、test
	ReadTimeout     config.Duration `json:"readTimeout"`
	WriteTimeout    config.Duration `json:"writeTimeout"`
	ShutdownTimeout config.Duration `json:"shutdownTimeout"`
	// AccessLog 为 true 时记录每个请求
	AccessLog bool `json:"accessLog"`
	// Metrics 为 true 时统计请求指标并在 MetricsPath 暴露
	Metrics     bool   `json:"metrics"`
	MetricsPath string `json:"metricsPath"`
}

// DefaultOptions 创建默认配置
func DefaultOptions() Options {
	return Options{
		Port:            8080,
		Mode:            gin.ReleaseMode,
		ReadTimeout:     config.Duration(30 * time.Second),
		WriteTimeout:    config.Duration(30 * time.Second),
		ShutdownTimeout: config.Duration(10 * time.Second),
		MetricsPath:     "/metrics",
	}
}

// Validate 验证配置，端口 0 表示随机端口
func (o *Options) Validate() error {
	if o.Port < 0 || o.Port > 65535 {
		return fmt.Errorf("web port %d out of range", o.Port)
	}
	if o.Metrics && !strings.HasPrefix(o.MetricsPath, "/") {
		return fmt.Errorf("web metrics path %q must start with /", o.MetricsPath)
	}
	switch o.Mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
	default:
		return fmt.Errorf("unknown gin mode %q", o.Mode)
	}
	return nil
}
