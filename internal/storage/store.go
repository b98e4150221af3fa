package storage

// Journal 会话/问答的本地镜像；服务端仍是权威来源
// Journal is the local mirror of sessions and turns; the server stays authoritative.
type Journal interface {
	// RecordSession 新建或更新会话 / RecordSession creates or touches a session
	RecordSession(id, server string) error
	AppendTurn(sessionID string, turn TurnRecord) error
	// ClearSession 删除会话下的问答并记录清空时间
	// ClearSession deletes the session's turns and records when it was cleared.
	ClearSession(sessionID string) error
	ListSessions() ([]SessionRecord, error)
	LoadSession(id string) (SessionRecord, error)
	LoadTurns(sessionID string) ([]TurnRecord, error)

	Close() error
}
