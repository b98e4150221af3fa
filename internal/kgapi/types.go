package kgapi

import "encoding/json"

// Op 服务操作名 / Op names a service operation
type Op string

const (
	OpTestConnection Op = "test_connection"
	OpNewSession     Op = "new_session"
	OpAsk            Op = "ask"
	OpClear          Op = "clear"
	OpExamples       Op = "example_questions"
	OpExport         Op = "export"
	OpGraph          Op = "get_graph"
)

// Triple 一条 (subject, predicate, object) 关系
// Triple is one (subject, predicate, object) relation fact
type Triple struct {
	Subject   string `json:"subject"`
	Predicate string `json:"predicate"`
	Object    string `json:"object"`
	Source    string `json:"source,omitempty"`
}

// GraphStats 服务端计算的运行总数
// GraphStats are the running totals computed server-side
type GraphStats struct {
	TotalEntities int `json:"total_entities"`
	TotalTriples  int `json:"total_triples"`
	TotalHistory  int `json:"total_history,omitempty"`
}

type Relation struct {
	Subject   string `json:"subject"`
	Predicate string `json:"predicate"`
	Object    string `json:"object"`
	Sentence  string `json:"sentence,omitempty"`
}

type Extraction struct {
	Entities  []string   `json:"entities"`
	Relations []Relation `json:"relations,omitempty"`
}

type AskRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id"`
	Visualize bool   `json:"visualize"`
}

// AskResponse 一次提问返回的增量片段
// AskResponse is the incremental fragment returned for one question
type AskResponse struct {
	SessionID  string          `json:"session_id,omitempty"`
	Question   string          `json:"question"`
	Answer     string          `json:"answer"`
	GraphImage string          `json:"graph_image,omitempty"`
	Extraction *Extraction     `json:"extraction,omitempty"`
	NewTriples []Triple        `json:"new_triples,omitempty"`
	GraphStats *GraphStats     `json:"graph_stats,omitempty"`
	Usage      json.RawMessage `json:"usage,omitempty"`
}

// ExportResponse data 对 json 为结构化 JSON，对 csv 为 JSON 字符串
// ExportResponse data is structured JSON for json and a JSON string for csv.
type ExportResponse struct {
	Format string          `json:"format,omitempty"`
	Data   json.RawMessage `json:"data"`
}

type HistoryEntry struct {
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	Timestamp string `json:"timestamp"`
}

// GraphSnapshot get_graph 返回的完整会话数据
// GraphSnapshot is the full session data returned by get_graph
type GraphSnapshot struct {
	SessionID string         `json:"session_id"`
	Triples   []Triple       `json:"triples"`
	Entities  []string       `json:"entities"`
	History   []HistoryEntry `json:"history"`
	Stats     GraphStats     `json:"stats"`
}

type envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}
