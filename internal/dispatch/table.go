package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"kgchat/internal/display"
	"kgchat/internal/export"
	"kgchat/internal/i18n"
	"kgchat/internal/orchestrator"
	"kgchat/internal/session"

	"github.com/atotto/clipboard"
)

// ErrUnknownCommand 未注册的动作 / ErrUnknownCommand is returned for unregistered actions
var ErrUnknownCommand = errors.New("unknown command")

// Result 动作执行结果；前端据此刷新或退出
// Result tells the front end what happened so it can re-render or exit.
type Result struct {
	Action Action
	// Output 需要展示的文本（帮助、示例问题） / Output is text to show, such as help or examples
	Output   string
	Examples []string
	// Path 导出文件或图片的保存路径 / Path is where an export or image was saved
	Path    string
	Changed bool
	Quit    bool
}

// Handler 执行一个动作并返回更新后的上下文
// Handler runs one action and returns the updated context.
type Handler func(ctx context.Context, sc session.Context, cmd Command) (session.Context, Result, error)

type entry struct {
	handler Handler
	helpKey string
}

type Options struct {
	// Clipboard 默认写系统剪贴板 / Clipboard defaults to the system clipboard
	Clipboard func(text string) error
	// Images 图片保存位置，默认当前目录 / Images is where graph images are saved, the working directory by default
	Images export.Saver
}

// Table 动作到处理函数的映射表 / Table maps actions to handlers
type Table struct {
	orch      *orchestrator.Orchestrator
	clipboard func(string) error
	images    export.Saver
	handlers  map[Action]entry
	order     []Action
}

// NewTable 注册全部内建动作 / NewTable registers every built-in action
func NewTable(o *orchestrator.Orchestrator, opts Options) *Table {
	t := &Table{
		orch:      o,
		clipboard: opts.Clipboard,
		images:    opts.Images,
		handlers:  make(map[Action]entry),
	}
	if t.clipboard == nil {
		t.clipboard = clipboard.WriteAll
	}
	if t.images == nil {
		t.images = export.DirSaver{}
	}
	t.Register(ActionAsk, "cmd.ask", t.ask)
	t.Register(ActionTest, "cmd.test", t.test)
	t.Register(ActionNew, "cmd.new", t.newSession)
	t.Register(ActionClear, "cmd.clear", t.clear)
	t.Register(ActionExport, "cmd.export", t.export)
	t.Register(ActionExamples, "cmd.examples", t.examples)
	t.Register(ActionSync, "cmd.sync", t.sync)
	t.Register(ActionCopy, "cmd.copy", t.copyID)
	t.Register(ActionImage, "cmd.image", t.saveImage)
	t.Register(ActionHelp, "cmd.help", t.help)
	t.Register(ActionQuit, "cmd.quit", func(_ context.Context, sc session.Context, _ Command) (session.Context, Result, error) {
		return sc, Result{Action: ActionQuit, Quit: true}, nil
	})
	return t
}

// Register 注册或替换动作 / Register adds or replaces an action
func (t *Table) Register(action Action, helpKey string, h Handler) {
	if _, exists := t.handlers[action]; !exists {
		t.order = append(t.order, action)
	}
	t.handlers[action] = entry{handler: h, helpKey: helpKey}
}

// Actions 按注册顺序返回动作 / Actions returns the actions in registration order
func (t *Table) Actions() []Action {
	return append([]Action(nil), t.order...)
}

// Dispatch 执行命令；编排器已通过 Notifier 提示过的失败仍以 error 返回
// Dispatch runs a command; failures the orchestrator already surfaced are still returned as errors.
func (t *Table) Dispatch(ctx context.Context, sc session.Context, cmd Command) (session.Context, Result, error) {
	e, ok := t.handlers[cmd.Action]
	if !ok {
		name := cmd.Name
		if name == "" {
			name = string(cmd.Action)
		}
		t.orch.Emit(orchestrator.LevelInfo, i18n.T("cmd.unknown", name))
		return sc, Result{Action: cmd.Action}, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	next, res, err := e.handler(ctx, sc, cmd)
	res.Action = cmd.Action
	return next, res, err
}

// Help 列出全部命令 / Help lists every command
func (t *Table) Help() string {
	lines := make([]string, 0, len(t.order))
	for _, a := range t.order {
		lines = append(lines, fmt.Sprintf("  /%-9s %s", a, i18n.T(t.handlers[a].helpKey)))
	}
	return strings.Join(lines, "\n")
}

func (t *Table) ask(ctx context.Context, sc session.Context, cmd Command) (session.Context, Result, error) {
	next, err := t.orch.Ask(ctx, sc, cmd.Text)
	return next, Result{Changed: err == nil || next.ID != sc.ID}, err
}

// test 可带 "<key> <secret>" 参数，否则使用上下文中已有凭证
// test accepts "<key> <secret>" arguments, otherwise it uses the credentials already held.
func (t *Table) test(ctx context.Context, sc session.Context, cmd Command) (session.Context, Result, error) {
	if len(cmd.Args) >= 2 {
		sc = sc.WithCredentials(session.Credentials{APIKey: cmd.Args[0], APISecret: cmd.Args[1]})
	}
	next, err := t.orch.TestConnection(ctx, sc)
	return next, Result{}, err
}

func (t *Table) newSession(ctx context.Context, sc session.Context, _ Command) (session.Context, Result, error) {
	next, err := t.orch.NewSession(ctx, sc)
	return next, Result{Changed: err == nil}, err
}

func (t *Table) clear(ctx context.Context, sc session.Context, _ Command) (session.Context, Result, error) {
	next, err := t.orch.Clear(ctx, sc)
	return next, Result{Changed: err == nil}, err
}

func (t *Table) export(ctx context.Context, sc session.Context, cmd Command) (session.Context, Result, error) {
	format := string(export.FormatJSON)
	if len(cmd.Args) > 0 {
		format = cmd.Args[0]
	}
	path, err := t.orch.Export(ctx, sc, format)
	return sc, Result{Path: path}, err
}

func (t *Table) examples(ctx context.Context, sc session.Context, _ Command) (session.Context, Result, error) {
	list := t.orch.Examples(ctx)
	if len(list) == 0 {
		return sc, Result{Output: i18n.T("placeholder.examples")}, nil
	}
	lines := make([]string, 0, len(list)+1)
	lines = append(lines, i18n.T("panel.examples")+":")
	for i, q := range list {
		lines = append(lines, fmt.Sprintf("  %d. %s", i+1, q))
	}
	return sc, Result{Output: strings.Join(lines, "\n"), Examples: list}, nil
}

func (t *Table) sync(ctx context.Context, sc session.Context, _ Command) (session.Context, Result, error) {
	next, err := t.orch.Sync(ctx, sc)
	return next, Result{Changed: err == nil}, err
}

func (t *Table) copyID(_ context.Context, sc session.Context, _ Command) (session.Context, Result, error) {
	if !sc.Active() {
		t.orch.Emit(orchestrator.LevelInfo, i18n.T("session.none"))
		return sc, Result{}, orchestrator.ErrNoActiveSession
	}
	if err := t.clipboard(sc.ID); err != nil {
		t.orch.Emit(orchestrator.LevelError, i18n.T("request.failed_with", err.Error()))
		return sc, Result{}, fmt.Errorf("copy session id: %w", err)
	}
	t.orch.Emit(orchestrator.LevelInfo, i18n.T("session.copied"))
	return sc, Result{}, nil
}

// saveImage 把当前图谱图片保存为 graph_<id>.<ext>
// saveImage writes the current graph image to graph_<id>.<ext>.
func (t *Table) saveImage(_ context.Context, sc session.Context, _ Command) (session.Context, Result, error) {
	if sc.Graph.Image == "" {
		t.orch.Emit(orchestrator.LevelInfo, i18n.T("image.none"))
		return sc, Result{}, nil
	}
	data, info, err := display.DecodeImage(sc.Graph.Image)
	if err != nil {
		t.orch.Emit(orchestrator.LevelError, err.Error())
		return sc, Result{}, err
	}
	path, err := t.images.Save(export.ImageName(sc.ID, info.Ext()), data)
	if err != nil {
		t.orch.Emit(orchestrator.LevelError, err.Error())
		return sc, Result{}, err
	}
	t.orch.Emit(orchestrator.LevelSuccess, i18n.T("image.saved", path))
	return sc, Result{Path: path}, nil
}

func (t *Table) help(_ context.Context, sc session.Context, _ Command) (session.Context, Result, error) {
	return sc, Result{Output: t.Help()}, nil
}
