package tui

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"kgchat/internal/dispatch"
	"kgchat/internal/export"
	"kgchat/internal/i18n"
	"kgchat/internal/kgapi"
	"kgchat/internal/orchestrator"
	"kgchat/internal/session"

	tea "github.com/charmbracelet/bubbletea"
)

func TestMain(m *testing.M) {
	i18n.Init("en")
	os.Exit(m.Run())
}

type fakeAPI struct {
	mu      sync.Mutex
	ids     []string
	cleared int
	tested  int
	asked   []string
}

func (f *fakeAPI) TestConnection(context.Context, string, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tested++
	return nil
}
func (f *fakeAPI) NewSession(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.ids) == 0 {
		return "s-new", nil
	}
	id := f.ids[0]
	f.ids = f.ids[1:]
	return id, nil
}
func (f *fakeAPI) Ask(_ context.Context, req kgapi.AskRequest) (kgapi.AskResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.asked = append(f.asked, req.Question)
	return kgapi.AskResponse{
		Answer:     "an answer",
		NewTriples: []kgapi.Triple{{Subject: "A", Predicate: "likes", Object: "B"}},
	}, nil
}
func (f *fakeAPI) Clear(context.Context, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared++
	return nil
}
func (f *fakeAPI) Examples(context.Context) ([]string, error) {
	return []string{"Who founded X?", "What is Y?"}, nil
}
func (f *fakeAPI) Export(context.Context, string, string) (kgapi.ExportResponse, error) {
	return kgapi.ExportResponse{Data: json.RawMessage(`{"triples":[]}`)}, nil
}
func (f *fakeAPI) Graph(context.Context, string) (kgapi.GraphSnapshot, error) {
	return kgapi.GraphSnapshot{}, nil
}

func newTestApp(t *testing.T, api *fakeAPI, sc session.Context) App {
	t.Helper()
	o := orchestrator.New(api, orchestrator.Options{Saver: export.DirSaver{Dir: t.TempDir()}})
	table := dispatch.NewTable(o, dispatch.Options{Clipboard: func(string) error { return nil }})
	app := NewApp(context.Background(), Options{
		Orchestrator: o,
		Table:        table,
		Session:      sc,
		ServerLabel:  "http://kg.test",
		SkipStartup:  true,
	})
	m, _ := app.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return m.(App)
}

// runCmd 执行命令并把结果送回 Update / runCmd executes cmd and feeds its message back into Update
func runCmd(t *testing.T, app App, cmd tea.Cmd) App {
	t.Helper()
	if cmd == nil {
		t.Fatalf("expected a command")
	}
	m, _ := app.Update(cmd())
	return m.(App)
}

func drain(app App) []tea.Msg {
	var out []tea.Msg
	for {
		select {
		case msg := <-app.events:
			out = append(out, msg)
		default:
			return out
		}
	}
}

func press(app App, s string) (App, tea.Cmd) {
	var msg tea.KeyMsg
	switch s {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
	m, cmd := app.Update(msg)
	return m.(App), cmd
}

func TestAppUpdate_AskFlow(t *testing.T) {
	api := &fakeAPI{}
	app := newTestApp(t, api, session.Context{ID: "s1"})

	app.input.SetValue("  What is A?  ")
	app, cmd := press(app, "enter")
	app = runCmd(t, app, cmd)

	if len(api.asked) != 1 || api.asked[0] != "What is A?" {
		t.Fatalf("unexpected questions: %v", api.asked)
	}
	if app.Session().Transcript.Len() != 1 {
		t.Fatalf("expected one turn, got %d", app.Session().Transcript.Len())
	}
	if app.input.Value() != "" {
		t.Fatalf("expected input cleared, got %q", app.input.Value())
	}
	if len(app.Session().Graph.Triples) != 1 {
		t.Fatalf("expected graph applied")
	}

	var enter, exit int
	for _, msg := range drain(app) {
		if b, ok := msg.(BusyMsg); ok && b.Kind == orchestrator.KindAsk {
			if b.Busy {
				enter++
			} else {
				exit++
			}
		}
	}
	if enter != 1 || exit != 1 {
		t.Fatalf("busy enter/exit = %d/%d", enter, exit)
	}
}

func TestAppUpdate_EmptyQuestionNotice(t *testing.T) {
	api := &fakeAPI{}
	app := newTestApp(t, api, session.Context{ID: "s1"})

	app, cmd := press(app, "enter")
	app = runCmd(t, app, cmd)
	if len(api.asked) != 0 {
		t.Fatalf("empty question must not reach the service")
	}
	msgs := drain(app)
	if len(msgs) != 1 {
		t.Fatalf("expected one notice, got %v", msgs)
	}
	m, _ := app.Update(msgs[0])
	app = m.(App)
	if app.notice == nil || app.notice.Level != orchestrator.LevelInfo {
		t.Fatalf("expected info notice, got %+v", app.notice)
	}
	if !strings.Contains(app.View(), i18n.T("ask.empty")) {
		t.Fatalf("notice not rendered")
	}

	app, _ = press(app, "esc")
	if app.notice != nil {
		t.Fatalf("esc should dismiss the notice")
	}
}

func TestAppUpdate_StaleResultDropped(t *testing.T) {
	app := newTestApp(t, &fakeAPI{}, session.Context{ID: "s2"})

	stale := session.Context{ID: "s1"}
	m, _ := app.Update(resultMsg{
		origin: "s1",
		cmd:    dispatch.Command{Action: dispatch.ActionAsk, Text: "q"},
		next:   stale,
	})
	app = m.(App)
	if app.Session().ID != "s2" {
		t.Fatalf("stale result replaced the session: %q", app.Session().ID)
	}
}

func TestAppUpdate_ReadOnlyResultKeepsNewerTurns(t *testing.T) {
	app := newTestApp(t, &fakeAPI{}, session.Context{ID: "s1"})

	exportCmd := app.dispatch(app.ctx, dispatch.Command{Action: dispatch.ActionExport, Args: []string{"json"}})
	copyCmd := app.dispatch(app.ctx, dispatch.Command{Action: dispatch.ActionCopy})
	askCmd := app.dispatch(app.ctx, dispatch.Command{Action: dispatch.ActionAsk, Text: "What is A?"})

	app = runCmd(t, app, askCmd)
	if app.Session().Transcript.Len() != 1 || len(app.Session().Graph.Triples) != 1 {
		t.Fatalf("ask not applied")
	}
	app = runCmd(t, app, exportCmd)
	app = runCmd(t, app, copyCmd)
	if app.Session().Transcript.Len() != 1 || len(app.Session().Graph.Triples) != 1 {
		t.Fatalf("read-only result overwrote the answered turn: turns=%d triples=%d",
			app.Session().Transcript.Len(), len(app.Session().Graph.Triples))
	}
}

func TestAppUpdate_TestKeepsCredentials(t *testing.T) {
	api := &fakeAPI{}
	app := newTestApp(t, api, session.Context{ID: "s1"})

	askCmd := app.dispatch(app.ctx, dispatch.Command{Action: dispatch.ActionAsk, Text: "What is A?"})
	app.input.SetValue("/test key secret")
	app, testCmd := press(app, "enter")
	app = runCmd(t, app, askCmd)
	app = runCmd(t, app, testCmd)

	sc := app.Session()
	if api.tested != 1 || sc.Credentials.APIKey != "key" || sc.Credentials.APISecret != "secret" {
		t.Fatalf("credentials not kept: %+v", sc.Credentials)
	}
	if sc.Transcript.Len() != 1 {
		t.Fatalf("test result dropped the answered turn")
	}
}

func TestAppUpdate_AskDuringStartupSession(t *testing.T) {
	api := &fakeAPI{ids: []string{"s-1", "s-2"}}
	app := newTestApp(t, api, session.Context{})

	newCmd := app.dispatch(app.ctx, dispatch.Command{Action: dispatch.ActionNew})
	app.input.SetValue("What is X?")
	app, askCmd := press(app, "enter")

	app = runCmd(t, app, newCmd)
	if app.Session().ID != "s-1" {
		t.Fatalf("id = %q, want s-1", app.Session().ID)
	}
	app = runCmd(t, app, askCmd)
	if len(api.asked) != 1 {
		t.Fatalf("asked = %v", api.asked)
	}
	if app.Session().ID != "s-2" || app.Session().Transcript.Len() != 1 {
		t.Fatalf("answer dropped: id=%q turns=%d", app.Session().ID, app.Session().Transcript.Len())
	}
	if app.input.Value() != "" {
		t.Fatalf("input should be cleared, got %q", app.input.Value())
	}

	// 当前会话已有问答后，无会话时发起的结果不再接管
	late := session.Context{}.Replace("s-3")
	m, _ := app.Update(resultMsg{
		cmd:  dispatch.Command{Action: dispatch.ActionNew},
		next: late,
		res:  dispatch.Result{Action: dispatch.ActionNew, Changed: true},
	})
	app = m.(App)
	if app.Session().ID != "s-2" {
		t.Fatalf("late result replaced a used session: %q", app.Session().ID)
	}
}

func TestAppUpdate_SameSessionFromEmptyOrigin(t *testing.T) {
	app := newTestApp(t, &fakeAPI{}, session.Context{ID: "s-1"})
	answered := session.Context{ID: "s-1"}
	answered.Transcript = answered.Transcript.Append("q", "a", time.Now())

	m, _ := app.Update(resultMsg{
		cmd:  dispatch.Command{Action: dispatch.ActionAsk, Text: "q"},
		next: answered,
		res:  dispatch.Result{Action: dispatch.ActionAsk, Changed: true},
	})
	app = m.(App)
	if app.Session().Transcript.Len() != 1 {
		t.Fatalf("result for the current session was dropped")
	}
}

func TestAppStartup_TestsCredentialsFirst(t *testing.T) {
	api := &fakeAPI{}
	app := newTestApp(t, api, session.New(session.Credentials{APIKey: "k", APISecret: "s"}))

	cmds := app.startupCmds()
	if len(cmds) != 3 {
		t.Fatalf("startup commands = %d, want 3", len(cmds))
	}
	first, ok := cmds[0]().(resultMsg)
	if !ok || first.cmd.Action != dispatch.ActionTest || first.err != nil {
		t.Fatalf("first startup command = %#v", first)
	}
	if api.tested != 1 {
		t.Fatalf("tested = %d", api.tested)
	}

	bare := newTestApp(t, api, session.Context{ID: "s1"})
	if got := len(bare.startupCmds()); got != 1 {
		t.Fatalf("startup commands without credentials = %d, want 1", got)
	}
}

func TestAppUpdate_ClearConfirm(t *testing.T) {
	api := &fakeAPI{}
	app := newTestApp(t, api, session.Context{ID: "s1"})

	app.input.SetValue("/clear")
	app, cmd := press(app, "enter")
	if cmd != nil || !app.confirming {
		t.Fatalf("expected confirmation prompt")
	}
	if !strings.Contains(app.View(), i18n.T("confirm.hint")) {
		t.Fatalf("confirm hint missing from view")
	}

	app, cmd = press(app, "n")
	app = runCmd(t, app, cmd)
	if api.cleared != 0 || app.confirming {
		t.Fatalf("declined clear reached the service")
	}

	app.input.SetValue("/clear")
	app, _ = press(app, "enter")
	app, cmd = press(app, "y")
	app = runCmd(t, app, cmd)
	if api.cleared != 1 {
		t.Fatalf("expected one clear call, got %d", api.cleared)
	}
	if app.Session().ID != "s1" {
		t.Fatalf("clear must keep the session id")
	}
}

func TestAppUpdate_ClearWithoutSession(t *testing.T) {
	api := &fakeAPI{}
	app := newTestApp(t, api, session.Context{})

	app.input.SetValue("/clear")
	app, cmd := press(app, "enter")
	if app.confirming {
		t.Fatalf("no confirmation without an active session")
	}
	m, _ := app.Update(cmd())
	app = m.(App)
	if api.cleared != 0 {
		t.Fatalf("clear without session reached the service")
	}
}

func TestAppUpdate_BusyStatus(t *testing.T) {
	app := newTestApp(t, &fakeAPI{}, session.Context{ID: "s1"})

	m, _ := app.Update(BusyMsg{Kind: orchestrator.KindExport, Busy: true})
	app = m.(App)
	if !app.Busy() || !strings.Contains(app.View(), "export") {
		t.Fatalf("expected busy export in status bar")
	}
	m, _ = app.Update(BusyMsg{Kind: orchestrator.KindExport, Busy: false})
	app = m.(App)
	if app.Busy() || !strings.Contains(app.View(), i18n.T("status.ready")) {
		t.Fatalf("expected ready status")
	}
}

func TestAppUpdate_ExamplesFillInput(t *testing.T) {
	app := newTestApp(t, &fakeAPI{}, session.Context{ID: "s1"})

	app.input.SetValue("/examples")
	app, cmd := press(app, "enter")
	app = runCmd(t, app, cmd)
	if len(app.examples) != 2 {
		t.Fatalf("expected examples loaded, got %v", app.examples)
	}
	for _, msg := range drain(app) {
		if _, ok := msg.(NoticeMsg); ok {
			t.Fatalf("examples must not notify: %+v", msg)
		}
	}

	app.input.SetValue("#2")
	app, cmd = press(app, "enter")
	if cmd != nil || app.input.Value() != "What is Y?" {
		t.Fatalf("unexpected input %q", app.input.Value())
	}
}

func TestAppUpdate_QuitAndUnknown(t *testing.T) {
	app := newTestApp(t, &fakeAPI{}, session.Context{ID: "s1"})

	app.input.SetValue("/bogus")
	app, cmd := press(app, "enter")
	msg := cmd()
	res, ok := msg.(resultMsg)
	if !ok || !errors.Is(res.err, dispatch.ErrUnknownCommand) {
		t.Fatalf("expected unknown command error, got %#v", msg)
	}

	app.input.SetValue("/quit")
	app, cmd = press(app, "enter")
	_, quit := app.Update(cmd())
	if quit == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := quit().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}
}

func TestAppView_NarrowHidesSidebar(t *testing.T) {
	app := newTestApp(t, &fakeAPI{}, session.Context{ID: "s1"})
	if app.sidebarWidth() == 0 {
		t.Fatalf("wide terminal should show the sidebar")
	}
	m, _ := app.Update(tea.WindowSizeMsg{Width: 60, Height: 20})
	app = m.(App)
	if app.sidebarWidth() != 0 {
		t.Fatalf("narrow terminal should hide the sidebar")
	}
	if !strings.Contains(app.View(), "s1") {
		t.Fatalf("status bar should show the session id")
	}
}

func TestConfirmFromContext(t *testing.T) {
	if confirmFromContext(context.Background(), "") {
		t.Fatalf("plain context must decline")
	}
	ctx := context.WithValue(context.Background(), confirmKey{}, true)
	if !confirmFromContext(ctx, "") {
		t.Fatalf("confirmed context must accept")
	}
}
