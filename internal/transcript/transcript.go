// Package transcript 保存当前会话的问答记录（只追加）
// Package transcript holds the append-only question/answer log of the active session.
package transcript

import "time"

// Role 条目角色 / Role of a rendered entry
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn 一轮问答，追加后不可变
// Turn is one question/answer pair, immutable once appended.
type Turn struct {
	Question string
	Answer   string
	At       time.Time
}

// Entry 展示用条目：每个 Turn 对应两条
// Entry is a display entry; each Turn yields two.
type Entry struct {
	Role Role
	Text string
	At   time.Time
}

// Store 有序问答记录；零值即空记录
// Store is the ordered turn log; the zero value is empty.
type Store struct {
	turns []Turn
}

// FromTurns 以给定记录构造（用于同步服务端历史）
// FromTurns builds a store from existing turns, used when syncing server history.
func FromTurns(turns []Turn) Store {
	if len(turns) == 0 {
		return Store{}
	}
	out := make([]Turn, len(turns))
	copy(out, turns)
	return Store{turns: out}
}

// Append 返回追加一轮后的新 Store，原 Store 不变
// Append returns a new Store with one more turn; the receiver is unchanged.
func (s Store) Append(question, answer string, at time.Time) Store {
	next := make([]Turn, len(s.turns), len(s.turns)+1)
	copy(next, s.turns)
	next = append(next, Turn{Question: question, Answer: answer, At: at})
	return Store{turns: next}
}

func (s Store) Reset() Store {
	return Store{}
}

func (s Store) Len() int {
	return len(s.turns)
}

// Empty 为 true 时显示空占位 / Empty means the placeholder is shown
func (s Store) Empty() bool {
	return len(s.turns) == 0
}

// Turns 返回副本 / Turns returns a copy
func (s Store) Turns() []Turn {
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Last 返回最近一轮 / Last returns the most recent turn
func (s Store) Last() (Turn, bool) {
	if len(s.turns) == 0 {
		return Turn{}, false
	}
	return s.turns[len(s.turns)-1], true
}

// Entries 按调用顺序交替产出用户与助手条目
// Entries yields user and assistant entries alternating in call order.
func (s Store) Entries() []Entry {
	out := make([]Entry, 0, len(s.turns)*2)
	for _, t := range s.turns {
		out = append(out,
			Entry{Role: RoleUser, Text: t.Question, At: t.At},
			Entry{Role: RoleAssistant, Text: t.Answer, At: t.At},
		)
	}
	return out
}
