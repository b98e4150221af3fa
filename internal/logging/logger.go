// Package logging 提供分级诊断日志
// Package logging provides leveled diagnostic logging.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Level 日志级别 / Level is a logging level
type Level int

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

func (l Level) String() string {
	switch l {
	case LevelError:
		return "error"
	case LevelWarn:
		return "warn"
	case LevelInfo:
		return "info"
	case LevelDebug:
		return "debug"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// ParseLevel 解析 error|warn|info|debug（空串为 info）
// ParseLevel parses error|warn|info|debug; empty means info.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return LevelError, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "", "info":
		return LevelInfo, nil
	case "debug":
		return LevelDebug, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// Logger 分级日志器；nil Logger 的所有方法都是空操作
// Logger is a leveled logger; every method on a nil Logger is a no-op.
type Logger struct {
	mu    sync.RWMutex
	level Level
	out   *log.Logger
}

// New 创建写入 w 的日志器 / New creates a logger writing to w
func New(w io.Writer, level Level) *Logger {
	if w == nil {
		w = io.Discard
	}
	return &Logger{level: level, out: log.New(w, "", log.LstdFlags)}
}

// Discard 丢弃所有输出 / Discard drops all output
func Discard() *Logger {
	return New(io.Discard, LevelError)
}

// OpenFile 以追加模式打开日志文件（TUI 占用屏幕时使用）
// OpenFile opens a log file in append mode, used while the TUI owns the screen.
func OpenFile(path string, level Level) (*Logger, io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return New(f, level), f, nil
}

// SetLevel 调整级别 / SetLevel changes the level
func (l *Logger) SetLevel(level Level) {
	if l == nil {
		return
	}
	l.mu.Lock()
	l.level = level
	l.mu.Unlock()
}

func (l *Logger) enabled(level Level) bool {
	if l == nil {
		return false
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.level >= level
}

func (l *Logger) logf(level Level, tag, format string, args ...any) {
	if !l.enabled(level) {
		return
	}
	l.out.Printf("["+tag+"] "+format, args...)
}

func (l *Logger) Errorf(format string, args ...any) { l.logf(LevelError, "ERROR", format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.logf(LevelWarn, "WARN", format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.logf(LevelInfo, "INFO", format, args...) }
func (l *Logger) Debugf(format string, args ...any) { l.logf(LevelDebug, "DEBUG", format, args...) }
