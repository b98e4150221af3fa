package orchestrator

import (
	"context"
	"errors"
	"time"

	"kgchat/internal/export"
	"kgchat/internal/graph"
	"kgchat/internal/kgapi"
	"kgchat/internal/logging"
	"kgchat/internal/storage"
	"kgchat/internal/telemetry"
	"kgchat/internal/usage"
)

// API 知识图谱服务的调用面（*kgapi.Client 实现）
// API is the service surface the orchestrator drives; *kgapi.Client implements it.
type API interface {
	TestConnection(ctx context.Context, apiKey, apiSecret string) error
	NewSession(ctx context.Context) (string, error)
	Ask(ctx context.Context, req kgapi.AskRequest) (kgapi.AskResponse, error)
	Clear(ctx context.Context, sessionID string) error
	Examples(ctx context.Context) ([]string, error)
	Export(ctx context.Context, sessionID, format string) (kgapi.ExportResponse, error)
	Graph(ctx context.Context, sessionID string) (kgapi.GraphSnapshot, error)
}

// Kind 操作类型；每种类型各有一个并发槽位
// Kind is an operation kind; each kind owns one in-flight slot.
type Kind string

const (
	KindTest       Kind = "test"
	KindNewSession Kind = "new_session"
	KindAsk        Kind = "ask"
	KindClear      Kind = "clear"
	KindExport     Kind = "export"
	KindExamples   Kind = "examples"
	KindSync       Kind = "sync"
)

// Kinds 全部操作类型 / Kinds lists every operation kind
var Kinds = []Kind{KindTest, KindNewSession, KindAsk, KindClear, KindExport, KindExamples, KindSync}

var (
	ErrBusy               = errors.New("operation already in progress")
	ErrNoActiveSession    = errors.New("no active session")
	ErrEmptyQuestion      = errors.New("question is empty")
	ErrMissingCredentials = errors.New("api key and secret are required")
	ErrDeclined           = errors.New("declined by user")
	ErrUnsupportedFormat  = export.ErrUnsupportedFormat
)

// Level 提示级别 / Level of a user-facing notice
type Level int

const (
	LevelError Level = iota
	LevelInfo
	LevelSuccess
)

func (l Level) String() string {
	switch l {
	case LevelError:
		return "error"
	case LevelInfo:
		return "info"
	case LevelSuccess:
		return "success"
	default:
		return "unknown"
	}
}

// Notice 面向用户的提示（标题 + 正文）
// Notice is a user-facing message with a short title and a body.
type Notice struct {
	Level   Level
	Title   string
	Message string
}

// Notifier 投递提示；前端决定如何展示
// Notifier delivers a notice; the front end decides how to show it.
type Notifier func(Notice)

// Confirmer 破坏性操作前的交互确认；返回 false 表示取消
// Confirmer asks before a destructive operation; false cancels it.
type Confirmer func(ctx context.Context, prompt string) bool

// BusyFunc 进入/退出忙碌状态时各调用一次
// BusyFunc is called once on entering and once on leaving the busy state.
type BusyFunc func(kind Kind, busy bool)

type Options struct {
	Notify    Notifier
	Confirm   Confirmer
	OnBusy    BusyFunc
	Logger    *logging.Logger
	Metrics   *telemetry.Metrics
	Journal   storage.Journal // optional local mirror
	Saver     export.Saver
	Tokenizer *usage.Tokenizer
	Policy    graph.Policy
	Visualize bool
	// ServerLabel 写入日志的服务地址 / ServerLabel is the service address recorded in the journal
	ServerLabel string
	Now         func() time.Time
}
