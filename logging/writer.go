package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// EntryWriter 接收格式化前的日志条目
type EntryWriter interface {
	WriteLog(entry *LogEntry)
}

// syncEntryWriter 在调用方 goroutine 中格式化并写出
type syncEntryWriter struct {
	mu        sync.Mutex
	out       io.Writer
	formatter Formatter
}

// NewSyncWriter 创建同步写入器
func NewSyncWriter(out io.Writer, formatter Formatter) EntryWriter {
	return &syncEntryWriter{out: out, formatter: formatter}
}

func (w *syncEntryWriter) WriteLog(entry *LogEntry) {
	data, err := w.formatter.Format(entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: format error: %v\n", err)
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	writeLine(w.out, data)
}

// writeLine 保证每条日志以换行结束（JSON 格式化器不带换行）
func writeLine(out io.Writer, data []byte) error {
	if len(data) > 0 && data[len(data)-1] != '\n' {
		data = append(data, '\n')
	}
	_, err := out.Write(data)
	return err
}

// AsyncWriter 在后台 goroutine 中格式化并写出，Close 时刷新剩余条目
type AsyncWriter struct {
	out        io.Writer
	formatter  Formatter
	entries    chan *LogEntry
	wg         sync.WaitGroup
	mu         sync.RWMutex
	closed     bool
	errHandler func(error)
}

// NewAsyncWriter 创建异步写入器，bufferSize 是队列长度
func NewAsyncWriter(out io.Writer, formatter Formatter, bufferSize int) *AsyncWriter {
	w := &AsyncWriter{
		out:       out,
		formatter: formatter,
		entries:   make(chan *LogEntry, bufferSize),
	}
	w.wg.Add(1)
	go w.process()
	return w
}

// SetErrorHandler 设置错误处理函数，默认写到 stderr
func (w *AsyncWriter) SetErrorHandler(handler func(error)) {
	w.errHandler = handler
}

// WriteLog 入队，队列满时阻塞，不丢日志。Close 之后的条目直接丢弃。
func (w *AsyncWriter) WriteLog(entry *LogEntry) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return
	}
	w.entries <- entry
}

// Close 关闭队列并等待后台写完，可以重复调用
func (w *AsyncWriter) Close() error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.entries)
	}
	w.mu.Unlock()
	w.wg.Wait()
	return nil
}

func (w *AsyncWriter) process() {
	defer w.wg.Done()
	for entry := range w.entries {
		data, err := w.formatter.Format(entry)
		if err == nil {
			err = writeLine(w.out, data)
		}
		if err != nil {
			w.handle(err)
		}
	}
}

func (w *AsyncWriter) handle(err error) {
	if w.errHandler != nil {
		w.errHandler(err)
		return
	}
	fmt.Fprintf(os.Stderr, "logging: async write error: %v\n", err)
}

// WriterLoggerProvider 把日志写到一个 EntryWriter
type WriterLoggerProvider struct {
	writer       EntryWriter
	closer       io.Closer
	minimumLevel LogLevel
	mu           sync.RWMutex
}

// NewWriterLoggerProvider 创建提供者。writer 或 closer 实现了 io.Closer 时，
// 工厂关闭时会一起关闭。
func NewWriterLoggerProvider(writer EntryWriter, closer io.Closer) *WriterLoggerProvider {
	return &WriterLoggerProvider{writer: writer, closer: closer, minimumLevel: LogLevelInfo}
}

func (p *WriterLoggerProvider) CreateLogger(category string) Logger {
	return &writerLogger{provider: p, category: category}
}

func (p *WriterLoggerProvider) SetMinimumLevel(level LogLevel) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.minimumLevel = level
}

func (p *WriterLoggerProvider) level() LogLevel {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.minimumLevel
}

// Close 先关闭 writer（刷新异步队列），再关闭底层输出
func (p *WriterLoggerProvider) Close() error {
	if c, ok := p.writer.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return err
		}
	}
	if p.closer != nil {
		return p.closer.Close()
	}
	return nil
}

type writerLogger struct {
	provider *WriterLoggerProvider
	category string
	fields   []Field
}

func (l *writerLogger) Trace(msg string, fields ...Field) { l.Log(LogLevelTrace, msg, fields...) }
func (l *writerLogger) Debug(msg string, fields ...Field) { l.Log(LogLevelDebug, msg, fields...) }
func (l *writerLogger) Info(msg string, fields ...Field) { l.Log(LogLevelInfo, msg, fields...) }
func (l *writerLogger) Warn(msg string, fields ...Field) { l.Log(LogLevelWarn, msg, fields...) }
func (l *writerLogger) Error(msg string, fields ...Field) { l.Log(LogLevelError, msg, fields...) }

func (l *writerLogger) Fatal(msg string, fields ...Field) {
	l.Log(LogLevelFatal, msg, fields...)
	os.Exit(1)
}

func (l *writerLogger) Log(level LogLevel, msg string, fields ...Field) {
	if level < l.provider.level() {
		return
	}
	l.provider.writer.WriteLog(&LogEntry{
		Time:     time.Now(),
		Level:    level,
		Category: l.category,
		Message:  msg,
		Fields:   mergeFields(l.fields, fields),
	})
}

func (l *writerLogger) WithFields(fields ...Field) Logger {
	return &writerLogger{provider: l.provider, category: l.category, fields: mergeFields(l.fields, fields)}
}

func (l *writerLogger) WithCategory(category string) Logger {
	return &writerLogger{provider: l.provider, category: category, fields: l.fields}
}
