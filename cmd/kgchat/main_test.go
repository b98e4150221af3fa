package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// serviceOptions 调整假服务的行为 / serviceOptions tweaks the fake service
type serviceOptions struct {
	answer   string
	examples []string
	// requireCookie 提问前必须先 test_connection / requireCookie rejects asks until test_connection ran
	requireCookie bool
}

func fakeService(t *testing.T) *httptest.Server {
	return fakeServiceWith(t, serviceOptions{})
}

func fakeServiceWith(t *testing.T, opts serviceOptions) *httptest.Server {
	t.Helper()
	if opts.answer == "" {
		opts.answer = "Paris is the capital of France."
	}
	if opts.examples == nil {
		opts.examples = []string{"What is Paris?"}
	}
	mux := http.NewServeMux()
	reply := func(w http.ResponseWriter, body map[string]any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	}
	mux.HandleFunc("/api/test_connection", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "authed", Path: "/"})
		reply(w, map[string]any{"success": true, "message": "API连接成功"})
	})
	mux.HandleFunc("/api/new_session", func(w http.ResponseWriter, r *http.Request) {
		reply(w, map[string]any{"success": true, "session_id": "s-cli"})
	})
	mux.HandleFunc("/api/ask", func(w http.ResponseWriter, r *http.Request) {
		if opts.requireCookie {
			if c, err := r.Cookie("session"); err != nil || c.Value != "authed" {
				reply(w, map[string]any{"success": false, "error": "请先配置API密钥"})
				return
			}
		}
		reply(w, map[string]any{
			"success":     true,
			"session_id":  "s-cli",
			"answer":      opts.answer,
			"new_triples": []map[string]string{{"subject": "Paris", "predicate": "capital_of", "object": "France"}},
			"graph_stats": map[string]int{"total_entities": 2, "total_triples": 1},
		})
	})
	mux.HandleFunc("/api/example_questions", func(w http.ResponseWriter, r *http.Request) {
		reply(w, map[string]any{"success": true, "examples": opts.examples})
	})
	mux.HandleFunc("/api/export", func(w http.ResponseWriter, r *http.Request) {
		reply(w, map[string]any{"success": true, "format": r.URL.Query().Get("format"), "data": map[string]any{"triples": []any{}}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// isolate 让配置只来自临时目录 / isolate keeps config lookups inside temp dirs
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("KGCHAT_HOME", filepath.Join(home, ".kgchat"))
	t.Setenv("KGCHAT_CONFIG_PATH", "")
	t.Setenv("KGCHAT_API_KEY", "")
	t.Setenv("KGCHAT_API_SECRET", "")
	t.Setenv("KGCHAT_LANG", "en")
	return home
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestRootCommandTree(t *testing.T) {
	root := newRootCmd()
	want := map[string]bool{"tui": false, "repl": false, "ask": false, "test": false, "examples": false, "export": false, "history": false}
	for _, c := range root.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Fatalf("missing subcommand %q", name)
		}
	}
	for _, flag := range []string{"config", "server", "lang", "verbose"} {
		if root.PersistentFlags().Lookup(flag) == nil {
			t.Fatalf("missing persistent flag --%s", flag)
		}
	}
}

func TestAskCommand_PrintsAnswerAndJournals(t *testing.T) {
	isolate(t)
	srv := fakeService(t)

	out, _, err := execute(t, "ask", "--server", srv.URL, "What", "is", "Paris?")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if !strings.Contains(out, "Paris is the capital of France.") || !strings.Contains(out, "session: s-cli") {
		t.Fatalf("unexpected output:\n%s", out)
	}

	out, _, err = execute(t, "history", "--server", srv.URL)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, "s-cli") {
		t.Fatalf("journal missing session:\n%s", out)
	}

	out, _, err = execute(t, "history", "--server", srv.URL, "s-cli")
	if err != nil {
		t.Fatalf("history s-cli: %v", err)
	}
	if !strings.Contains(out, "What is Paris?") || !strings.Contains(out, "2/1") {
		t.Fatalf("journal missing turn:\n%s", out)
	}
}

func TestAskCommand_TestsConfiguredCredentials(t *testing.T) {
	isolate(t)
	srv := fakeServiceWith(t, serviceOptions{requireCookie: true})

	if _, _, err := execute(t, "ask", "--server", srv.URL, "What is Paris?"); err == nil || !strings.Contains(err.Error(), "请先配置API密钥") {
		t.Fatalf("ask without credentials: err=%v", err)
	}

	t.Setenv("KGCHAT_API_KEY", "key")
	t.Setenv("KGCHAT_API_SECRET", "secret")
	out, errOut, err := execute(t, "ask", "--server", srv.URL, "What is Paris?")
	if err != nil {
		t.Fatalf("ask: %v\nstderr: %s", err, errOut)
	}
	if !strings.Contains(out, "Paris is the capital of France.") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestCommands_StripTerminalEscapes(t *testing.T) {
	isolate(t)
	srv := fakeServiceWith(t, serviceOptions{
		answer:   "hi\x1b]0;pwned\x07\x1b[2J",
		examples: []string{"q\x1b[2J"},
	})

	out, _, err := execute(t, "ask", "--server", srv.URL, "What is Paris?")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if strings.ContainsAny(out, "\x1b\x07") || !strings.Contains(out, "hi") {
		t.Fatalf("ask output not sanitized: %q", out)
	}

	out, _, err = execute(t, "examples", "--server", srv.URL)
	if err != nil {
		t.Fatalf("examples: %v", err)
	}
	if strings.TrimSpace(out) != "1. q" {
		t.Fatalf("examples output not sanitized: %q", out)
	}
}

func TestExamplesCommand(t *testing.T) {
	isolate(t)
	srv := fakeService(t)

	out, _, err := execute(t, "examples", "--server", srv.URL)
	if err != nil {
		t.Fatalf("examples: %v", err)
	}
	if strings.TrimSpace(out) != "1. What is Paris?" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestExportCommand(t *testing.T) {
	home := isolate(t)
	srv := fakeService(t)
	exportDir := filepath.Join(home, "exports")
	cfgPath := filepath.Join(home, "kgchat.yaml")
	if err := os.WriteFile(cfgPath, []byte("storage:\n  export_dir: "+exportDir+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, _, err := execute(t, "export", "--config", cfgPath, "--server", srv.URL, "--session", "s-cli", "--format", "json")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	path := filepath.Join(exportDir, "knowledge_graph_s-cli.json")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("export file missing: %v\n%s", err, out)
	}

	if _, _, err := execute(t, "export", "--server", srv.URL, "--session", "s-cli", "--format", "xml"); err == nil {
		t.Fatalf("expected unsupported format error")
	}
}

func TestTestCommand_ArgCount(t *testing.T) {
	isolate(t)
	if _, _, err := execute(t, "test", "only-key"); err == nil {
		t.Fatalf("expected argument error")
	}
}
