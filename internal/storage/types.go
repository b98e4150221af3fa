package storage

// SessionRecord 本地日志中的会话
// SessionRecord is a session as kept in the local journal
type SessionRecord struct {
	ID        string `json:"id"`
	Server    string `json:"server"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
	ClearedAt string `json:"cleared_at,omitempty"`
	TurnCount int    `json:"turn_count"`
}

// TurnRecord 一轮问答及当时的图谱总数
// TurnRecord is one question/answer turn with the graph totals at that time
type TurnRecord struct {
	Seq           int    `json:"seq"`
	Question      string `json:"question"`
	Answer        string `json:"answer"`
	TotalEntities int    `json:"total_entities"`
	TotalTriples  int    `json:"total_triples"`
	TotalTokens   int    `json:"total_tokens"`
	CreatedAt     string `json:"created_at"`
}
