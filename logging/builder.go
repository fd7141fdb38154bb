package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/gocrud/inject/config"
)

// LoggingBuilder 组装日志提供者
type LoggingBuilder struct {
	providers    []LoggerProvider
	minimumLevel LogLevel
	mu           sync.RWMutex
}

// NewLoggingBuilder 创建日志构建器，默认级别 Info
func NewLoggingBuilder() *LoggingBuilder {
	return &LoggingBuilder{minimumLevel: LogLevelInfo}
}

// SetMinimumLevel 设置最小日志级别
func (b *LoggingBuilder) SetMinimumLevel(level LogLevel) *LoggingBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.minimumLevel = level
	return b
}

// AddProvider 添加日志提供者
func (b *LoggingBuilder) AddProvider(provider LoggerProvider) *LoggingBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.providers = append(b.providers, provider)
	return b
}

// AddWriter 以同步方式写到 out
func (b *LoggingBuilder) AddWriter(out io.Writer, formatter Formatter) *LoggingBuilder {
	return b.AddProvider(NewWriterLoggerProvider(NewSyncWriter(out, formatter), nil))
}

// AddConsole 以彩色文本写到标准输出
func (b *LoggingBuilder) AddConsole() *LoggingBuilder {
	f := NewTextFormatter()
	f.ColorOutput = true
	return b.AddWriter(os.Stdout, f)
}

// AddFile 异步追加写入文件，工厂 Close 时刷新并关闭文件
func (b *LoggingBuilder) AddFile(path string, formatter Formatter) (*LoggingBuilder, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return b, fmt.Errorf("logging: open %s: %w", path, err)
	}
	return b.AddProvider(NewWriterLoggerProvider(NewAsyncWriter(file, formatter, 1024), file)), nil
}

// Build 构建日志工厂
func (b *LoggingBuilder) Build() LoggerFactory {
	b.mu.RLock()
	defer b.mu.RUnlock()

	factory := &loggerFactory{minimumLevel: b.minimumLevel}
	for _, provider := range b.providers {
		factory.AddProvider(provider)
	}
	return factory
}

// Options 是配置文件中的日志设置
//
//	logging:
//	  level: debug
//	  format: json      # text | json
//	  output: stdout    # stdout | stderr | 文件路径
type Options struct {
	Level  LogLevel `json:"level"`
	Format string   `json:"format"`
	Output string   `json:"output"`
}

// FromConfig 按配置节构建日志工厂，配置节不存在时输出到标准输出
func FromConfig(cfg config.Configuration, section string) (LoggerFactory, error) {
	opts := Options{Level: LogLevelInfo, Format: "text", Output: "stdout"}
	if cfg.Has(section) {
		if err := cfg.Bind(section, &opts); err != nil {
			return nil, fmt.Errorf("logging: reading %q: %w", section, err)
		}
	}

	var formatter Formatter
	switch strings.ToLower(opts.Format) {
	case "", "text":
		formatter = NewTextFormatter()
	case "json":
		formatter = NewJsonFormatter()
	default:
		return nil, fmt.Errorf("logging: unknown format %q", opts.Format)
	}

	b := NewLoggingBuilder().SetMinimumLevel(opts.Level)
	switch strings.ToLower(opts.Output) {
	case "", "stdout":
		b.AddWriter(os.Stdout, formatter)
	case "stderr":
		b.AddWriter(os.Stderr, formatter)
	default:
		if _, err := b.AddFile(opts.Output, formatter); err != nil {
			return nil, err
		}
	}
	return b.Build(), nil
}

// NewLogger 创建一个输出到控制台的 Logger，便于示例和测试使用
func NewLogger() Logger {
	return NewLoggingBuilder().AddConsole().Build().CreateLogger("default")
}
