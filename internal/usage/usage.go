package usage

import (
	"encoding/json"
	"fmt"
)

// Report 一次 ask 的 token 用量
// Report is the token usage of one ask.
type Report struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	// Estimated 为 true 表示服务端未提供，由本地估算
	// Estimated means the server sent nothing and the numbers are local estimates.
	Estimated bool
	Precise   bool
}

func (r Report) String() string {
	kind := "server"
	if r.Estimated {
		kind = "estimated"
		if !r.Precise {
			kind = "heuristic"
		}
	}
	return fmt.Sprintf("prompt=%d completion=%d total=%d (%s)", r.PromptTokens, r.CompletionTokens, r.TotalTokens, kind)
}

// wireUsage 兼容常见的 OpenAI 风格字段；其余字段忽略
type wireUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
	InputTokens      int `json:"input_tokens"`
	OutputTokens     int `json:"output_tokens"`
}

// Parse 解析服务端 usage；载荷缺失或无法识别时 ok=false
// Parse reads the server usage payload; ok is false when it is absent or unrecognized.
func Parse(raw json.RawMessage) (Report, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return Report{}, false
	}
	var w wireUsage
	if err := json.Unmarshal(raw, &w); err != nil {
		return Report{}, false
	}
	r := Report{
		PromptTokens:     w.PromptTokens,
		CompletionTokens: w.CompletionTokens,
		TotalTokens:      w.TotalTokens,
		Precise:          true,
	}
	if r.PromptTokens == 0 {
		r.PromptTokens = w.InputTokens
	}
	if r.CompletionTokens == 0 {
		r.CompletionTokens = w.OutputTokens
	}
	if r.TotalTokens == 0 {
		r.TotalTokens = r.PromptTokens + r.CompletionTokens
	}
	if r.TotalTokens == 0 {
		return Report{}, false
	}
	return r, true
}

// Resolve 优先使用服务端 usage，否则用 tokenizer 估算问答文本
// Resolve prefers the server usage and otherwise estimates from the question and answer text.
func Resolve(raw json.RawMessage, tok *Tokenizer, question, answer string) Report {
	if r, ok := Parse(raw); ok {
		return r
	}
	prompt := tok.CountText(question)
	completion := tok.CountText(answer)
	return Report{
		PromptTokens:     prompt,
		CompletionTokens: completion,
		TotalTokens:      prompt + completion,
		Estimated:        true,
		Precise:          tok.IsPrecise(),
	}
}
