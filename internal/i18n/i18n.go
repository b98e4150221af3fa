// Package i18n 为提示、占位符与界面标签提供中英文消息目录
// Package i18n provides English and Simplified Chinese catalogs for notices, placeholders and labels.
package i18n

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

// I18n 单一 locale 的消息查找表
// I18n is the message lookup table for one locale
type I18n struct {
	locale   string
	messages map[string]string
}

var global atomic.Pointer[I18n]

var initDefault sync.Once

// Global 返回全局实例；未调用 Init 时按环境变量检测 locale
// Global returns the global instance; without Init the locale is detected from the environment.
func Global() *I18n {
	initDefault.Do(func() {
		global.CompareAndSwap(nil, New(""))
	})
	return global.Load()
}

// Init 以指定 locale 替换全局实例
// Init replaces the global instance with the given locale
func Init(locale string) *I18n {
	i := New(locale)
	initDefault.Do(func() {})
	global.Store(i)
	return i
}

// T 全局翻译快捷函数 / T is a global translation shortcut
func T(key string, args ...any) string {
	return Global().T(key, args...)
}

// New 创建 i18n 实例；英文目录作为缺省回退
// New creates an instance; the English catalog is the fallback
func New(locale string) *I18n {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		locale = DetectLocale()
	}
	locale = normalizeLocale(locale)

	i := &I18n{
		locale:   locale,
		messages: make(map[string]string, len(EnMessages)),
	}
	for k, v := range EnMessages {
		i.messages[k] = v
	}
	if locale == "zh-CN" {
		for k, v := range ZhCNMessages {
			i.messages[k] = v
		}
	}
	return i
}

// T 翻译；缺失的 key 原样返回
// T translates; a missing key is returned as-is
func (i *I18n) T(key string, args ...any) string {
	tmpl, ok := i.messages[key]
	if !ok {
		return key
	}
	if len(args) == 0 {
		return tmpl
	}
	return fmt.Sprintf(tmpl, args...)
}

// Locale 返回当前 locale / Locale returns the current locale
func (i *I18n) Locale() string {
	return i.locale
}

// DetectLocale 从环境变量检测 locale
// DetectLocale detects the locale from the environment
func DetectLocale() string {
	for _, env := range []string{"KGCHAT_LANG", "LANG", "LC_ALL", "LC_MESSAGES"} {
		v := strings.TrimSpace(os.Getenv(env))
		if v == "" || v == "C" || v == "POSIX" {
			continue
		}
		return normalizeLocale(v)
	}
	return "en"
}

func normalizeLocale(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "en"
	}
	// 去掉 .UTF-8 等后缀 / Remove .UTF-8 suffix
	if idx := strings.IndexByte(s, '.'); idx >= 0 {
		s = s[:idx]
	}
	s = strings.ReplaceAll(s, "_", "-")
	lower := strings.ToLower(s)

	if strings.HasPrefix(lower, "zh") {
		return "zh-CN"
	}
	if strings.HasPrefix(lower, "en") {
		return "en"
	}
	return s
}
