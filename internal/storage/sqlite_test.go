package storage

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "journal.db")
	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_SessionRecord(t *testing.T) {
	store := newTestStore(t)

	if err := store.RecordSession("s-1", "http://localhost:5000"); err != nil {
		t.Fatalf("RecordSession: %v", err)
	}
	// 重复记录只更新时间戳 / Recording again only touches the timestamp
	if err := store.RecordSession("s-1", "ignored"); err != nil {
		t.Fatalf("RecordSession again: %v", err)
	}

	rec, err := store.LoadSession("s-1")
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if rec.Server != "http://localhost:5000" {
		t.Fatalf("Server=%q", rec.Server)
	}
	if rec.TurnCount != 0 || rec.ClearedAt != "" {
		t.Fatalf("rec=%+v", rec)
	}

	list, err := store.ListSessions()
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("ListSessions count=%d, want 1", len(list))
	}
}

func TestSQLiteStore_Turns(t *testing.T) {
	store := newTestStore(t)
	_ = store.RecordSession("s-2", "")

	turns := []TurnRecord{
		{Question: "What is X?", Answer: "X is Y", TotalEntities: 2, TotalTriples: 1, TotalTokens: 12},
		{Question: "And Z?", Answer: "Z relates to Y", TotalEntities: 3, TotalTriples: 2},
	}
	for _, turn := range turns {
		if err := store.AppendTurn("s-2", turn); err != nil {
			t.Fatalf("AppendTurn: %v", err)
		}
	}

	loaded, err := store.LoadTurns("s-2")
	if err != nil {
		t.Fatalf("LoadTurns: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("LoadTurns count=%d, want 2", len(loaded))
	}
	if loaded[0].Seq != 0 || loaded[1].Seq != 1 {
		t.Fatalf("seqs=%d,%d", loaded[0].Seq, loaded[1].Seq)
	}
	if loaded[0].Question != "What is X?" || loaded[0].TotalTokens != 12 {
		t.Fatalf("turn[0]=%+v", loaded[0])
	}
	if loaded[1].CreatedAt == "" {
		t.Fatal("CreatedAt should default to now")
	}

	rec, _ := store.LoadSession("s-2")
	if rec.TurnCount != 2 {
		t.Fatalf("TurnCount=%d, want 2", rec.TurnCount)
	}
}

func TestSQLiteStore_ClearSession(t *testing.T) {
	store := newTestStore(t)
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	store.now = func() time.Time { return fixed }

	_ = store.RecordSession("s-3", "")
	_ = store.AppendTurn("s-3", TurnRecord{Question: "q", Answer: "a"})

	if err := store.ClearSession("s-3"); err != nil {
		t.Fatalf("ClearSession: %v", err)
	}
	turns, _ := store.LoadTurns("s-3")
	if len(turns) != 0 {
		t.Fatalf("turns after clear=%d, want 0", len(turns))
	}
	rec, _ := store.LoadSession("s-3")
	if rec.ClearedAt != "2024-01-02T03:04:05Z" {
		t.Fatalf("ClearedAt=%q", rec.ClearedAt)
	}

	// 清空后序号重新从 0 开始 / Sequence restarts after a clear
	_ = store.AppendTurn("s-3", TurnRecord{Question: "again"})
	turns, _ = store.LoadTurns("s-3")
	if len(turns) != 1 || turns[0].Seq != 0 {
		t.Fatalf("turns=%+v", turns)
	}
}

func TestSQLiteStore_LoadNotFound(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.LoadSession("nonexistent"); err == nil {
		t.Fatal("expected error for nonexistent session")
	}
	if _, err := store.LoadSession(" "); err == nil {
		t.Fatal("expected error for empty id")
	}
}

func TestNewSQLiteStoreEmptyPath(t *testing.T) {
	if _, err := NewSQLiteStore("  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}
