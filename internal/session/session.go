// Package session 定义显式传递的客户端会话上下文
// Package session defines the client-session context passed explicitly to every operation.
package session

import (
	"strings"

	"kgchat/internal/graph"
	"kgchat/internal/transcript"
)

type Credentials struct {
	APIKey    string
	APISecret string
}

// Complete 两项凭证都已填写 / Complete reports whether both credentials are present
func (c Credentials) Complete() bool {
	return strings.TrimSpace(c.APIKey) != "" && strings.TrimSpace(c.APISecret) != ""
}

// Context 客户端会话上下文：同一时刻至多持有一个会话 ID
// Context is the client-session context; at most one session id is held at a time.
type Context struct {
	ID          string
	Credentials Credentials
	Transcript  transcript.Store
	Graph       graph.State
}

// New 以凭证创建无会话的上下文 / New creates a context with credentials and no session
func New(creds Credentials) Context {
	return Context{Credentials: creds}
}

func (c Context) Active() bool {
	return c.ID != ""
}

// Replace 切换到新会话 ID，并同时清空记录与图谱
// Replace switches to a new session id and resets transcript and graph together.
func (c Context) Replace(id string) Context {
	return Context{
		ID:          id,
		Credentials: c.Credentials,
	}
}

// Reset 保留会话 ID，清空记录与图谱
// Reset keeps the session id and clears transcript and graph.
func (c Context) Reset() Context {
	return c.Replace(c.ID)
}

// WithCredentials 返回替换凭证后的副本 / WithCredentials returns a copy with new credentials
func (c Context) WithCredentials(creds Credentials) Context {
	c.Credentials = creds
	return c
}

// Same 报告 other 是否仍指向同一会话（用于丢弃过期结果）
// Same reports whether other still refers to the same session, used to drop stale results.
func (c Context) Same(other Context) bool {
	return c.ID == other.ID
}
