// Package usage 处理 ask 响应附带的用量信息，缺失时在本地估算 token 数
// Package usage handles the usage payload of ask responses and estimates tokens locally when absent.
package usage

import (
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// Tokenizer 精确 token 计数器，支持 tiktoken 和启发式回退
// Tokenizer provides precise token counting with tiktoken and heuristic fallback
type Tokenizer struct {
	encoder      *tiktoken.Tiktoken
	encodingName string
	fallback     bool
	mu           sync.RWMutex
}

var (
	defaultTokenizer     *Tokenizer
	defaultTokenizerOnce sync.Once
)

// DefaultTokenizer 返回全局默认的 tokenizer 实例（cl100k_base）
// DefaultTokenizer returns the global default tokenizer instance (cl100k_base)
func DefaultTokenizer() *Tokenizer {
	defaultTokenizerOnce.Do(func() {
		defaultTokenizer = NewTokenizer("cl100k_base")
	})
	return defaultTokenizer
}

// NewTokenizer 创建 tokenizer，如果 tiktoken 初始化失败则回退到启发式
// NewTokenizer creates a tokenizer, falls back to heuristic if tiktoken init fails
func NewTokenizer(encodingName string) *Tokenizer {
	t := &Tokenizer{encodingName: encodingName}
	enc, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		// 离线环境可能没有 BPE 缓存 / Offline environments may lack the BPE cache
		t.fallback = true
		return t
	}
	t.encoder = enc
	return t
}

// CountText 计算单个文本的 token 数
// CountText counts tokens for a single text string
func (t *Tokenizer) CountText(text string) int {
	if text == "" {
		return 0
	}
	if t == nil || t.fallback {
		return heuristicTokenCount(text)
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.encoder.Encode(text, nil, nil))
}

// IsPrecise 返回是否使用精确计数
// IsPrecise returns whether precise counting is available
func (t *Tokenizer) IsPrecise() bool {
	return t != nil && !t.fallback
}

func (t *Tokenizer) EncodingName() string {
	if t == nil {
		return ""
	}
	return t.encodingName
}

// heuristicTokenCount CJK 约 1.5 token/字，其余约 4 字符/token
// heuristicTokenCount assumes ~1.5 tokens per CJK rune and ~4 chars per token otherwise.
func heuristicTokenCount(text string) int {
	if text == "" {
		return 0
	}
	cjkCount := 0
	otherCount := 0
	for _, r := range text {
		if isCJK(r) {
			cjkCount++
		} else {
			otherCount++
		}
	}
	estimate := int(float64(cjkCount)*1.5 + float64(otherCount)*0.25)
	if estimate < 1 {
		estimate = 1
	}
	return estimate
}

func isCJK(r rune) bool {
	return (r >= 0x4E00 && r <= 0x9FFF) || // CJK Unified
		(r >= 0x3400 && r <= 0x4DBF) || // CJK Extension A
		(r >= 0x3000 && r <= 0x303F) || // CJK Symbols
		(r >= 0xFF00 && r <= 0xFFEF) || // Fullwidth Forms
		(r >= 0xAC00 && r <= 0xD7AF) // Korean Hangul
}
