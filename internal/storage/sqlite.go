// Package storage 基于 SQLite 的本地问答日志
// Package storage is the SQLite-backed local journal of sessions and turns.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore 基于 SQLite (WAL 模式) 的 Journal 实现
// SQLiteStore implements Journal using SQLite with WAL mode
type SQLiteStore struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

var _ Journal = (*SQLiteStore)(nil)

// DefaultPath 返回 <baseDir>/journal.db / DefaultPath returns <baseDir>/journal.db
func DefaultPath(baseDir string) string {
	return filepath.Join(baseDir, "journal.db")
}

// NewSQLiteStore 创建并初始化 SQLite 数据库
// NewSQLiteStore creates and initializes a SQLite database
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, fmt.Errorf("sqlite db path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// 启用 WAL 模式和优化 PRAGMA / Enable WAL and performance PRAGMAs
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("exec %q: %w", p, err)
		}
	}

	store := &SQLiteStore{db: db, path: dbPath, now: time.Now}
	if err := store.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) ensureSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id         TEXT PRIMARY KEY,
		server     TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		cleared_at TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS turns (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id     TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		seq            INTEGER NOT NULL,
		question       TEXT NOT NULL,
		answer         TEXT NOT NULL DEFAULT '',
		total_entities INTEGER NOT NULL DEFAULT 0,
		total_triples  INTEGER NOT NULL DEFAULT 0,
		total_tokens   INTEGER NOT NULL DEFAULT 0,
		created_at     TEXT NOT NULL,
		UNIQUE(session_id, seq)
	);

	CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id, seq);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Path 数据库文件路径 / Path of the database file
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close 关闭数据库连接 / Close the database connection
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// --- Session Operations ---

func (s *SQLiteStore) RecordSession(id, server string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("session id is empty")
	}
	now := s.stamp()
	_, err := s.db.Exec(`
		INSERT INTO sessions (id, server, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET updated_at=excluded.updated_at`,
		id, server, now, now,
	)
	if err != nil {
		return fmt.Errorf("record session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) LoadSession(id string) (SessionRecord, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return SessionRecord{}, fmt.Errorf("session id is empty")
	}
	row := s.db.QueryRow(`
		SELECT s.id, s.server, s.created_at, s.updated_at, s.cleared_at,
			(SELECT COUNT(*) FROM turns t WHERE t.session_id = s.id)
		FROM sessions s WHERE s.id=?`, id)

	var rec SessionRecord
	err := row.Scan(&rec.ID, &rec.Server, &rec.CreatedAt, &rec.UpdatedAt, &rec.ClearedAt, &rec.TurnCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return SessionRecord{}, fmt.Errorf("session not found: %s", id)
		}
		return SessionRecord{}, fmt.Errorf("load session: %w", err)
	}
	return rec, nil
}

func (s *SQLiteStore) ListSessions() ([]SessionRecord, error) {
	rows, err := s.db.Query(`
		SELECT s.id, s.server, s.created_at, s.updated_at, s.cleared_at,
			(SELECT COUNT(*) FROM turns t WHERE t.session_id = s.id)
		FROM sessions s ORDER BY s.updated_at DESC, s.id`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var records []SessionRecord
	for rows.Next() {
		var rec SessionRecord
		if err := rows.Scan(&rec.ID, &rec.Server, &rec.CreatedAt, &rec.UpdatedAt, &rec.ClearedAt, &rec.TurnCount); err != nil {
			continue
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) ClearSession(sessionID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec("DELETE FROM turns WHERE session_id=?", sessionID); err != nil {
		return fmt.Errorf("delete turns: %w", err)
	}
	now := s.stamp()
	if _, err := tx.Exec("UPDATE sessions SET cleared_at=?, updated_at=? WHERE id=?", now, now, sessionID); err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return tx.Commit()
}

// --- Turn Operations ---

// AppendTurn 追加一轮；turn.Seq 忽略，按会话内顺序分配
// AppendTurn appends a turn; turn.Seq is ignored and assigned in session order.
func (s *SQLiteStore) AppendTurn(sessionID string, turn TurnRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var next int
	if err := tx.QueryRow("SELECT COALESCE(MAX(seq), -1) + 1 FROM turns WHERE session_id=?", sessionID).Scan(&next); err != nil {
		return fmt.Errorf("next seq: %w", err)
	}
	now := s.stamp()
	if strings.TrimSpace(turn.CreatedAt) == "" {
		turn.CreatedAt = now
	}
	if _, err := tx.Exec(`
		INSERT INTO turns (session_id, seq, question, answer, total_entities, total_triples, total_tokens, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, next, turn.Question, turn.Answer,
		turn.TotalEntities, turn.TotalTriples, turn.TotalTokens, turn.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert turn %d: %w", next, err)
	}

	// 更新 session 时间戳 / Update session timestamp
	if _, err := tx.Exec("UPDATE sessions SET updated_at=? WHERE id=?", now, sessionID); err != nil {
		return fmt.Errorf("update session timestamp: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) LoadTurns(sessionID string) ([]TurnRecord, error) {
	rows, err := s.db.Query(`
		SELECT seq, question, answer, total_entities, total_triples, total_tokens, created_at
		FROM turns WHERE session_id=? ORDER BY seq`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	var turns []TurnRecord
	for rows.Next() {
		var t TurnRecord
		if err := rows.Scan(&t.Seq, &t.Question, &t.Answer, &t.TotalEntities, &t.TotalTriples, &t.TotalTokens, &t.CreatedAt); err != nil {
			continue
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// --- Helpers ---

func (s *SQLiteStore) stamp() string {
	return s.now().UTC().Format(time.RFC3339)
}
