package dispatch

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"kgchat/internal/export"
	"kgchat/internal/i18n"
	"kgchat/internal/kgapi"
	"kgchat/internal/orchestrator"
	"kgchat/internal/session"
)

func TestMain(m *testing.M) {
	i18n.Init("en")
	os.Exit(m.Run())
}

type stubAPI struct {
	asked    []string
	examples []string
}

func (s *stubAPI) TestConnection(context.Context, string, string) error { return nil }
func (s *stubAPI) NewSession(context.Context) (string, error) { return "s-new", nil }
func (s *stubAPI) Ask(_ context.Context, req kgapi.AskRequest) (kgapi.AskResponse, error) {
	s.asked = append(s.asked, req.Question)
	return kgapi.AskResponse{Answer: "answer to " + req.Question, GraphImage: "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("PNG"))}, nil
}
func (s *stubAPI) Clear(context.Context, string) error { return nil }
func (s *stubAPI) Examples(context.Context) ([]string, error) { return s.examples, nil }
func (s *stubAPI) Export(context.Context, string, string) (kgapi.ExportResponse, error) {
	return kgapi.ExportResponse{Data: []byte(`{"triples":[]}`)}, nil
}
func (s *stubAPI) Graph(context.Context, string) (kgapi.GraphSnapshot, error) {
	return kgapi.GraphSnapshot{}, nil
}

func newTable(t *testing.T, api *stubAPI) (*Table, *[]orchestrator.Notice, *string) {
	t.Helper()
	var notices []orchestrator.Notice
	var copied string
	dir := t.TempDir()
	o := orchestrator.New(api, orchestrator.Options{
		Notify:  func(n orchestrator.Notice) { notices = append(notices, n) },
		Confirm: func(context.Context, string) bool { return true },
		Saver:   export.DirSaver{Dir: dir},
	})
	table := NewTable(o, Options{
		Clipboard: func(s string) error { copied = s; return nil },
		Images:    export.DirSaver{Dir: dir},
	})
	return table, &notices, &copied
}

func TestParse(t *testing.T) {
	tests := []struct {
		line   string
		ok     bool
		action Action
		args   []string
		text   string
	}{
		{"   ", false, "", nil, ""},
		{"What is X?", true, ActionAsk, nil, "What is X?"},
		{"/", true, ActionHelp, nil, ""},
		{"/export csv", true, ActionExport, []string{"csv"}, "csv"},
		{"/TEST key  secret", true, ActionTest, []string{"key", "secret"}, "key  secret"},
		{"/q", true, ActionQuit, nil, ""},
		{"/bogus x", true, Action("bogus"), []string{"x"}, "x"},
	}
	for _, tt := range tests {
		cmd, ok := Parse(tt.line)
		if ok != tt.ok {
			t.Fatalf("Parse(%q) ok=%v", tt.line, ok)
		}
		if !ok {
			continue
		}
		if cmd.Action != tt.action || cmd.Text != tt.text || len(cmd.Args) != len(tt.args) {
			t.Fatalf("Parse(%q)=%+v", tt.line, cmd)
		}
		for i := range tt.args {
			if cmd.Args[i] != tt.args[i] {
				t.Fatalf("Parse(%q) args=%v", tt.line, cmd.Args)
			}
		}
	}
}

func TestDispatchAskAndCopy(t *testing.T) {
	api := &stubAPI{}
	table, notices, copied := newTable(t, api)
	ctx := context.Background()

	cmd, _ := Parse("hello graph")
	sc, res, err := table.Dispatch(ctx, session.Context{}, cmd)
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if !res.Changed || sc.ID != "s-new" || sc.Transcript.Len() != 1 {
		t.Fatalf("res=%+v sc=%+v", res, sc)
	}
	if len(api.asked) != 1 || api.asked[0] != "hello graph" {
		t.Fatalf("asked=%v", api.asked)
	}

	cmd, _ = Parse("/copy")
	if _, _, err := table.Dispatch(ctx, sc, cmd); err != nil {
		t.Fatalf("copy: %v", err)
	}
	if *copied != "s-new" {
		t.Fatalf("copied=%q", *copied)
	}
	last := (*notices)[len(*notices)-1]
	if last.Message != i18n.T("session.copied") {
		t.Fatalf("notice=%+v", last)
	}
}

func TestDispatchImageAndExport(t *testing.T) {
	api := &stubAPI{}
	table, _, _ := newTable(t, api)
	ctx := context.Background()

	sc, _, err := table.Dispatch(ctx, session.Context{}, Command{Action: ActionAsk, Text: "q"})
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	_, res, err := table.Dispatch(ctx, sc, Command{Action: ActionImage})
	if err != nil {
		t.Fatalf("image: %v", err)
	}
	if filepath.Base(res.Path) != "graph_s-new.png" {
		t.Fatalf("path=%q", res.Path)
	}
	data, _ := os.ReadFile(res.Path)
	if string(data) != "PNG" {
		t.Fatalf("image data=%q", data)
	}

	cmd, _ := Parse("/export")
	_, res, err = table.Dispatch(ctx, sc, cmd)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if filepath.Base(res.Path) != "knowledge_graph_s-new.json" {
		t.Fatalf("path=%q", res.Path)
	}
}

func TestDispatchUnknownAndHelp(t *testing.T) {
	table, notices, _ := newTable(t, &stubAPI{})
	cmd, _ := Parse("/frobnicate")
	_, _, err := table.Dispatch(context.Background(), session.Context{}, cmd)
	if !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("err=%v, want ErrUnknownCommand", err)
	}
	if !strings.Contains((*notices)[0].Message, "frobnicate") {
		t.Fatalf("notice=%+v", (*notices)[0])
	}

	_, res, err := table.Dispatch(context.Background(), session.Context{}, Command{Action: ActionHelp})
	if err != nil {
		t.Fatalf("help: %v", err)
	}
	for _, a := range table.Actions() {
		if !strings.Contains(res.Output, "/"+string(a)) {
			t.Fatalf("help missing /%s:\n%s", a, res.Output)
		}
	}
}

func TestDispatchExamplesAndQuit(t *testing.T) {
	table, _, _ := newTable(t, &stubAPI{examples: []string{"Who founded X?", "What is Y?"}})
	_, res, _ := table.Dispatch(context.Background(), session.Context{}, Command{Action: ActionExamples})
	if len(res.Examples) != 2 || !strings.Contains(res.Output, "2. What is Y?") {
		t.Fatalf("res=%+v", res)
	}

	empty, _, _ := newTable(t, &stubAPI{})
	_, res, _ = empty.Dispatch(context.Background(), session.Context{}, Command{Action: ActionExamples})
	if res.Output != i18n.T("placeholder.examples") {
		t.Fatalf("output=%q", res.Output)
	}

	_, res, _ = table.Dispatch(context.Background(), session.Context{}, Command{Action: ActionQuit})
	if !res.Quit {
		t.Fatal("quit not reported")
	}
}

func TestDispatchTestStoresCredentials(t *testing.T) {
	table, _, _ := newTable(t, &stubAPI{})
	cmd, _ := Parse("/test k s")
	sc, _, err := table.Dispatch(context.Background(), session.Context{}, cmd)
	if err != nil {
		t.Fatalf("test: %v", err)
	}
	if sc.Credentials.APIKey != "k" || sc.Credentials.APISecret != "s" {
		t.Fatalf("credentials=%+v", sc.Credentials)
	}
}

func TestCopyWithoutSession(t *testing.T) {
	table, _, copied := newTable(t, &stubAPI{})
	_, _, err := table.Dispatch(context.Background(), session.Context{}, Command{Action: ActionCopy})
	if !errors.Is(err, orchestrator.ErrNoActiveSession) {
		t.Fatalf("err=%v", err)
	}
	if *copied != "" {
		t.Fatal("clipboard written without a session")
	}
}
