package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"kgchat/internal/export"
	"kgchat/internal/graph"
	"kgchat/internal/i18n"
	"kgchat/internal/kgapi"
	"kgchat/internal/session"
	"kgchat/internal/storage"
	"kgchat/internal/transcript"
	"kgchat/internal/usage"
)

// TestConnection 校验 sc 中的凭证；成功后服务端会话保存凭证
// TestConnection checks the credentials held in sc; on success the server keeps them in its session.
func (o *Orchestrator) TestConnection(ctx context.Context, sc session.Context) (session.Context, error) {
	if !sc.Credentials.Complete() {
		o.emit(LevelError, i18n.T("conn.missing_credentials"))
		return sc, ErrMissingCredentials
	}
	creds := sc.Credentials
	err := o.run(ctx, KindTest, func() error {
		if err := o.call(ctx, KindTest, func() error {
			return o.api.TestConnection(ctx, strings.TrimSpace(creds.APIKey), strings.TrimSpace(creds.APISecret))
		}); err != nil {
			o.failure(err, "conn.failed", i18n.T("fallback.unknown"), "request.failed_with")
			return err
		}
		o.emit(LevelSuccess, i18n.T("conn.ok"))
		return nil
	})
	return sc, err
}

// NewSession 成功时替换会话 ID 并清空记录与图谱；失败时 sc 不变
// NewSession replaces the session id and resets transcript and graph; on failure sc is unchanged.
func (o *Orchestrator) NewSession(ctx context.Context, sc session.Context) (session.Context, error) {
	next := sc
	err := o.run(ctx, KindNewSession, func() error {
		var err error
		next, err = o.createSession(ctx, sc)
		return err
	})
	if err != nil {
		return sc, err
	}
	return next, nil
}

func (o *Orchestrator) createSession(ctx context.Context, sc session.Context) (session.Context, error) {
	var id string
	if err := o.call(ctx, KindNewSession, func() error {
		var err error
		id, err = o.api.NewSession(ctx)
		return err
	}); err != nil {
		o.failure(err, "session.create_failed", i18n.T("fallback.unknown"), "session.create_failed")
		return sc, err
	}
	next := sc.Replace(id)
	o.logger.Infof("session %s created", id)
	if o.journal != nil {
		if err := o.journal.RecordSession(id, o.serverLabel); err != nil {
			o.logger.Warnf("journal: record session %s: %v", id, err)
		}
	}
	o.emit(LevelSuccess, i18n.T("session.created"))
	return next, nil
}

// Ask 提交问题；无会话时先创建。成功时先合并图谱再追加问答
// Ask submits a question, creating a session first when none is active.
// On success the graph fragment is applied before the turn is appended.
func (o *Orchestrator) Ask(ctx context.Context, sc session.Context, question string) (session.Context, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		o.emit(LevelInfo, i18n.T("ask.empty"))
		return sc, ErrEmptyQuestion
	}
	next := sc
	err := o.run(ctx, KindAsk, func() error {
		cur := sc
		if !cur.Active() {
			// 与 NewSession 共用槽位，避免同时创建两个会话
			if err := o.run(ctx, KindNewSession, func() error {
				created, err := o.createSession(ctx, cur)
				cur = created
				return err
			}); err != nil {
				return err
			}
			// 新会话已生效，即使随后提问失败也要返回给调用方
			next = cur
		}

		req := kgapi.AskRequest{Question: question, SessionID: cur.ID, Visualize: o.visualize}
		var resp kgapi.AskResponse
		if err := o.call(ctx, KindAsk, func() error {
			var err error
			resp, err = o.api.Ask(ctx, req)
			return err
		}); err != nil {
			o.failure(err, "", i18n.T("request.failed"), "request.failed_with")
			return err
		}
		if resp.SessionID != "" && resp.SessionID != cur.ID {
			o.logger.Warnf("ask: response for session %s while %s is active", resp.SessionID, cur.ID)
		}

		answered := cur
		answered.Graph = cur.Graph.Apply(graph.FragmentFromAsk(resp), o.policy)
		answered.Transcript = cur.Transcript.Append(question, resp.Answer, o.now())
		next = answered

		report := usage.Resolve(resp.Usage, o.tokenizer, question, resp.Answer)
		o.logger.Infof("ask answered in session %s: usage %s", cur.ID, report)
		o.metrics.RecordTokens(ctx, report.TotalTokens, report.Estimated)
		o.recordTurn(cur.ID, question, resp.Answer, answered.Graph.Stats, report.TotalTokens)
		return nil
	})
	return next, err
}

func (o *Orchestrator) recordTurn(id, question, answer string, stats graph.Stats, tokens int) {
	if o.journal == nil {
		return
	}
	// 经 Ask 自动创建的会话已在 createSession 中记录；重复记录只刷新时间
	if err := o.journal.RecordSession(id, o.serverLabel); err != nil {
		o.logger.Warnf("journal: record session %s: %v", id, err)
		return
	}
	turn := storage.TurnRecord{
		Question:      question,
		Answer:        answer,
		TotalEntities: stats.Entities,
		TotalTriples:  stats.Triples,
		TotalTokens:   tokens,
		CreatedAt:     o.now().UTC().Format(time.RFC3339),
	}
	if err := o.journal.AppendTurn(id, turn); err != nil {
		o.logger.Warnf("journal: append turn to %s: %v", id, err)
	}
}

// Clear 需要活动会话与交互确认；成功后保留 ID、清空状态
// Clear needs an active session and confirmation; on success the id is kept and state is reset.
func (o *Orchestrator) Clear(ctx context.Context, sc session.Context) (session.Context, error) {
	if !sc.Active() {
		o.emit(LevelInfo, i18n.T("session.none"))
		return sc, ErrNoActiveSession
	}
	if o.confirm == nil || !o.confirm(ctx, i18n.T("session.clear_confirm")) {
		o.logger.Debugf("clear of %s declined", sc.ID)
		return sc, ErrDeclined
	}
	next := sc
	err := o.run(ctx, KindClear, func() error {
		id := sc.ID
		if err := o.call(ctx, KindClear, func() error {
			return o.api.Clear(ctx, id)
		}); err != nil {
			o.failure(err, "session.clear_failed", i18n.T("fallback.unknown"), "session.clear_failed")
			return err
		}
		next = sc.Reset()
		if o.journal != nil {
			if err := o.journal.ClearSession(id); err != nil {
				o.logger.Warnf("journal: clear %s: %v", id, err)
			}
		}
		o.logger.Infof("session %s cleared", id)
		o.emit(LevelSuccess, i18n.T("session.cleared"))
		return nil
	})
	return next, err
}

// Export 下载并在本地保存 knowledge_graph_<id>.<format>；不修改会话状态
// Export downloads and saves knowledge_graph_<id>.<format> locally; session state is never touched.
func (o *Orchestrator) Export(ctx context.Context, sc session.Context, format string) (string, error) {
	f, err := export.ParseFormat(format)
	if err != nil {
		o.emit(LevelError, i18n.T("export.format", format))
		return "", err
	}
	if !sc.Active() {
		o.emit(LevelInfo, i18n.T("export.nothing"))
		return "", ErrNoActiveSession
	}
	var path string
	err = o.run(ctx, KindExport, func() error {
		id := sc.ID
		var resp kgapi.ExportResponse
		if err := o.call(ctx, KindExport, func() error {
			var err error
			resp, err = o.api.Export(ctx, id, string(f))
			return err
		}); err != nil {
			o.failure(err, "", i18n.T("export.failed"), "export.failed_with")
			return err
		}
		data, err := export.Encode(f, resp.Data)
		if err != nil {
			o.emit(LevelError, i18n.T("export.failed_with", err.Error()))
			return fmt.Errorf("encode export: %w", err)
		}
		path, err = o.saver.Save(export.FileName(id, f), data)
		if err != nil {
			o.emit(LevelError, i18n.T("export.failed_with", err.Error()))
			return err
		}
		o.logger.Infof("exported session %s as %s to %s (%d bytes)", id, f, path, len(data))
		o.emit(LevelSuccess, i18n.T("export.done", path))
		return nil
	})
	return path, err
}

// Examples 加载示例问题；失败只记日志并返回空列表，从不提示用户
// Examples loads example questions; failures are logged and yield an empty list, never a notice.
func (o *Orchestrator) Examples(ctx context.Context) []string {
	var out []string
	_ = o.run(ctx, KindExamples, func() error {
		err := o.call(ctx, KindExamples, func() error {
			var err error
			out, err = o.api.Examples(ctx)
			return err
		})
		if err != nil {
			out = nil
		}
		return err
	})
	return out
}

// Sync 用 get_graph 快照整体替换图谱与问答记录
// Sync replaces graph and transcript from the server's get_graph snapshot.
func (o *Orchestrator) Sync(ctx context.Context, sc session.Context) (session.Context, error) {
	if !sc.Active() {
		o.emit(LevelInfo, i18n.T("session.none"))
		return sc, ErrNoActiveSession
	}
	next := sc
	err := o.run(ctx, KindSync, func() error {
		id := sc.ID
		var snap kgapi.GraphSnapshot
		if err := o.call(ctx, KindSync, func() error {
			var err error
			snap, err = o.api.Graph(ctx, id)
			return err
		}); err != nil {
			o.failure(err, "session.sync_failed", i18n.T("fallback.unknown"), "session.sync_failed")
			return err
		}
		synced := sc
		synced.Graph = sc.Graph.Load(snap)
		synced.Transcript = transcript.FromTurns(historyTurns(snap.History))
		next = synced
		o.emit(LevelSuccess, i18n.T("session.synced"))
		return nil
	})
	return next, err
}

// 服务端历史时间戳为 ISO 8601（可能不带时区）
var historyLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02 15:04:05"}

func historyTurns(history []kgapi.HistoryEntry) []transcript.Turn {
	turns := make([]transcript.Turn, 0, len(history))
	for _, h := range history {
		turns = append(turns, transcript.Turn{
			Question: h.Question,
			Answer:   h.Answer,
			At:       parseTimestamp(h.Timestamp),
		})
	}
	return turns
}

func parseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range historyLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}
