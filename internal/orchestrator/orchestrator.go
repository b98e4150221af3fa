// Package orchestrator 执行会话、提问、清空、导出等服务请求，并把结果映射为会话上下文的变更
// Package orchestrator issues the service requests and maps their results onto the session context.
package orchestrator

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"kgchat/internal/export"
	"kgchat/internal/graph"
	"kgchat/internal/i18n"
	"kgchat/internal/kgapi"
	"kgchat/internal/logging"
	"kgchat/internal/storage"
	"kgchat/internal/telemetry"
	"kgchat/internal/usage"
)

// Orchestrator 无会话状态；每个操作接收上下文并返回更新后的副本
// Orchestrator holds no session state; every operation takes a context and returns an updated copy.
type Orchestrator struct {
	api         API
	notify      Notifier
	confirm     Confirmer
	onBusy      BusyFunc
	logger      *logging.Logger
	metrics     *telemetry.Metrics
	journal     storage.Journal
	saver       export.Saver
	tokenizer   *usage.Tokenizer
	policy      graph.Policy
	visualize   bool
	serverLabel string
	now         func() time.Time

	inflight map[Kind]*atomic.Bool
}

func New(api API, opts Options) *Orchestrator {
	policy := opts.Policy
	if policy == "" {
		policy = graph.PolicyLatest
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	saver := opts.Saver
	if saver == nil {
		saver = export.DirSaver{}
	}
	o := &Orchestrator{
		api:         api,
		notify:      opts.Notify,
		confirm:     opts.Confirm,
		onBusy:      opts.OnBusy,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
		journal:     opts.Journal,
		saver:       saver,
		tokenizer:   opts.Tokenizer,
		policy:      policy,
		visualize:   opts.Visualize,
		serverLabel: opts.ServerLabel,
		now:         now,
		inflight:    make(map[Kind]*atomic.Bool, len(Kinds)),
	}
	for _, k := range Kinds {
		o.inflight[k] = new(atomic.Bool)
	}
	return o
}

// SetNotifier 替换提示回调（前端启动后再绑定）
// SetNotifier replaces the notice callback, for front ends that bind after construction.
func (o *Orchestrator) SetNotifier(n Notifier) {
	o.notify = n
}

func (o *Orchestrator) SetConfirmer(c Confirmer) {
	o.confirm = c
}

func (o *Orchestrator) SetBusyFunc(fn BusyFunc) {
	o.onBusy = fn
}

// Busy 报告该类型操作是否在进行中 / Busy reports whether an operation of kind is in flight
func (o *Orchestrator) Busy(kind Kind) bool {
	slot, ok := o.inflight[kind]
	return ok && slot.Load()
}

// run 在 kind 的槽位内执行 fn；槽位已占用时立即返回 ErrBusy，不发请求
// run executes fn inside kind's slot; an occupied slot returns ErrBusy without any request.
func (o *Orchestrator) run(ctx context.Context, kind Kind, fn func() error) error {
	slot := o.inflight[kind]
	if !slot.CompareAndSwap(false, true) {
		o.metrics.RecordBusy(ctx, string(kind))
		o.logger.Debugf("%s rejected: already in progress", kind)
		if kind != KindExamples {
			o.emit(LevelInfo, i18n.T("busy", string(kind)))
		}
		return ErrBusy
	}
	o.setBusy(kind, true)
	defer func() {
		slot.Store(false)
		o.setBusy(kind, false)
	}()
	return fn()
}

// call 计时并按结果分类记录一次服务请求
// call times one service request and records it by outcome.
func (o *Orchestrator) call(ctx context.Context, kind Kind, fn func() error) error {
	start := o.now()
	err := fn()
	elapsed := o.now().Sub(start)
	outcome := classify(err)
	o.metrics.RecordRequest(ctx, string(kind), outcome, elapsed)
	if err != nil {
		o.logger.Warnf("%s failed (%s) after %s: %v", kind, outcome, elapsed.Round(time.Millisecond), err)
	} else {
		o.logger.Debugf("%s ok in %s", kind, elapsed.Round(time.Millisecond))
	}
	return err
}

func (o *Orchestrator) setBusy(kind Kind, busy bool) {
	if o.onBusy != nil {
		o.onBusy(kind, busy)
	}
}

// Emit 通过 Notifier 投递一条本地化提示 / Emit delivers a localized notice through the Notifier
func (o *Orchestrator) Emit(level Level, message string) {
	o.emit(level, message)
}

func (o *Orchestrator) emit(level Level, message string) {
	if o.notify == nil {
		return
	}
	var title string
	switch level {
	case LevelError:
		title = i18n.T("notice.error")
	case LevelSuccess:
		title = i18n.T("notice.success")
	default:
		title = i18n.T("notice.info")
	}
	o.notify(Notice{Level: level, Title: title, Message: message})
}

// failure 把请求错误映射为提示正文
// failure maps a request error onto a notice body.
//   - logicalKey 接收服务端消息（缺失时为 fallback） / logicalKey gets the server message, or fallback when absent
//   - transportKey 接收底层错误文本 / transportKey gets the underlying error text
func (o *Orchestrator) failure(err error, logicalKey, fallback, transportKey string) {
	if msg, ok := kgapi.IsLogical(err); ok {
		if msg == "" {
			msg = fallback
		}
		if logicalKey == "" {
			o.emit(LevelError, msg)
			return
		}
		o.emit(LevelError, i18n.T(logicalKey, msg))
		return
	}
	o.emit(LevelError, i18n.T(transportKey, transportText(err)))
}

func transportText(err error) string {
	var te *kgapi.TransportError
	if errors.As(err, &te) && te.Err != nil {
		return te.Err.Error()
	}
	return err.Error()
}

func classify(err error) telemetry.Outcome {
	if err == nil {
		return telemetry.OutcomeSuccess
	}
	if _, ok := kgapi.IsLogical(err); ok {
		return telemetry.OutcomeLogical
	}
	return telemetry.OutcomeTransport
}
