// Package escape 在不可信文本进入渲染输出前对其进行中和
// Package escape neutralizes untrusted text before it becomes rendered output.
package escape

import (
	"html"
	"strings"
)

// HTML 转义标记敏感字符（< > & " '），使文本只能以字面形式出现在 HTML 中
// HTML escapes markup-significant characters so the text can only appear literally in HTML.
func HTML(s string) string {
	return html.EscapeString(s)
}

// Terminal 去除 ANSI/OSC 转义序列以及除换行、制表符以外的控制字符
// Terminal strips ANSI/OSC escape sequences and control characters other than newline and tab.
func Terminal(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '\x1b':
			i = skipEscape(runes, i)
		case r == '\n' || r == '\t':
			b.WriteRune(r)
		case r == '\r':
			// 回车可覆盖已打印内容 / carriage return can overwrite printed text
			continue
		case r < 0x20 || r == 0x7f:
			continue
		case r >= 0x80 && r <= 0x9f:
			// C1 控制字符（含 8 位 CSI）/ C1 controls, including 8-bit CSI
			continue
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// skipEscape returns the index of the last rune belonging to the escape
// sequence starting at runes[start].
func skipEscape(runes []rune, start int) int {
	i := start + 1
	if i >= len(runes) {
		return start
	}
	switch runes[i] {
	case '[':
		// CSI: parameters and intermediates until a final byte in 0x40..0x7e
		for i++; i < len(runes); i++ {
			if runes[i] >= 0x40 && runes[i] <= 0x7e {
				return i
			}
		}
		return len(runes) - 1
	case ']', 'P', '^', '_':
		// OSC/DCS/PM/APC: until BEL or ST (ESC \)
		for i++; i < len(runes); i++ {
			if runes[i] == '\a' {
				return i
			}
			if runes[i] == '\x1b' && i+1 < len(runes) && runes[i+1] == '\\' {
				return i + 1
			}
		}
		return len(runes) - 1
	default:
		// two-character sequence such as ESC c
		return i
	}
}
