package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"kgchat/internal/dispatch"
	"kgchat/internal/display"
	"kgchat/internal/i18n"
	"kgchat/internal/logging"
	"kgchat/internal/orchestrator"
	"kgchat/internal/session"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// --- Tea Messages ---

// NoticeMsg 编排器发出的提示
// NoticeMsg carries a notice emitted by the orchestrator
type NoticeMsg struct{ Notice orchestrator.Notice }

// BusyMsg 某类操作进入或退出忙碌
// BusyMsg reports a kind entering or leaving the busy state
type BusyMsg struct {
	Kind orchestrator.Kind
	Busy bool
}

// resultMsg 一次分派的结果；origin 为发起时的会话 ID
// resultMsg is the outcome of one dispatch; origin is the session ID at submit time.
type resultMsg struct {
	origin string
	cmd    dispatch.Command
	next   session.Context
	res    dispatch.Result
	err    error
}

type confirmKey struct{}

// confirmFromContext 确认结果随命令的 context 传入
// confirmFromContext reads the answer the user gave before the command was dispatched.
func confirmFromContext(ctx context.Context, _ string) bool {
	ok, _ := ctx.Value(confirmKey{}).(bool)
	return ok
}

// Options TUI 依赖
// Options holds what the TUI needs from the caller.
type Options struct {
	Orchestrator *orchestrator.Orchestrator
	Table        *dispatch.Table
	Renderer     display.Renderer
	Session      session.Context
	Logger       *logging.Logger
	ServerLabel  string
	// SkipStartup 不在 Init 中创建会话和加载示例 / SkipStartup disables session creation and example loading in Init
	SkipStartup bool
}

// App Bubble Tea 主 Model
// App is the main Bubble Tea model
type App struct {
	// 布局 / Layout
	width  int
	height int

	chatView viewport.Model
	input    textarea.Model
	spin     spinner.Model

	// 会话 / Session
	sc       session.Context
	examples []string
	output   string

	// 状态 / State
	busy       map[orchestrator.Kind]bool
	notice     *orchestrator.Notice
	confirming bool
	pending    dispatch.Command

	ctx         context.Context
	events      chan tea.Msg
	table       *dispatch.Table
	renderer    display.Renderer
	logger      *logging.Logger
	serverLabel string
	startup     bool

	// 配置 / Config
	theme display.Theme
	keys  KeyMap
}

// NewApp 创建 TUI 应用，并把编排器的回调接到事件通道
// NewApp creates the TUI application and routes orchestrator callbacks into its event channel.
func NewApp(ctx context.Context, opts Options) App {
	if ctx == nil {
		ctx = context.Background()
	}
	ta := textarea.New()
	ta.Placeholder = i18n.T("input.placeholder")
	ta.CharLimit = 8192
	ta.ShowLineNumbers = false
	ta.SetHeight(3)
	ta.Focus()

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))

	renderer := opts.Renderer
	if renderer.Theme.Primary == "" {
		renderer.Theme = display.DarkTheme()
	}

	events := make(chan tea.Msg, 64)
	if opts.Orchestrator != nil {
		opts.Orchestrator.SetNotifier(func(n orchestrator.Notice) { events <- NoticeMsg{Notice: n} })
		opts.Orchestrator.SetBusyFunc(func(k orchestrator.Kind, b bool) { events <- BusyMsg{Kind: k, Busy: b} })
		opts.Orchestrator.SetConfirmer(confirmFromContext)
	}

	return App{
		chatView:    viewport.New(0, 0),
		input:       ta,
		spin:        sp,
		sc:          opts.Session,
		busy:        make(map[orchestrator.Kind]bool),
		ctx:         ctx,
		events:      events,
		table:       opts.Table,
		renderer:    renderer,
		logger:      opts.Logger,
		serverLabel: opts.ServerLabel,
		startup:     !opts.SkipStartup,
		theme:       renderer.Theme,
		keys:        DefaultKeyMap(),
	}
}

func (a App) Init() tea.Cmd {
	cmds := []tea.Cmd{textarea.Blink, a.spin.Tick, a.listen()}
	if a.startup {
		cmds = append(cmds, a.startupCmds()...)
	}
	return tea.Batch(cmds...)
}

// startupCmds 启动时的连接测试、会话创建与示例加载
// startupCmds are the connection test, session creation and example loading run at start.
func (a App) startupCmds() []tea.Cmd {
	var cmds []tea.Cmd
	// 服务端按 test_connection 写入的 cookie 校验提问
	if a.sc.Credentials.Complete() {
		cmds = append(cmds, a.dispatch(a.ctx, dispatch.Command{Action: dispatch.ActionTest}))
	}
	if !a.sc.Active() {
		cmds = append(cmds, a.dispatch(a.ctx, dispatch.Command{Action: dispatch.ActionNew}))
	}
	return append(cmds, a.dispatch(a.ctx, dispatch.Command{Action: dispatch.ActionExamples}))
}

// listen 等待下一条编排器事件 / listen waits for the next orchestrator event
func (a App) listen() tea.Cmd {
	events := a.events
	return func() tea.Msg {
		return <-events
	}
}

func (a App) dispatch(ctx context.Context, cmd dispatch.Command) tea.Cmd {
	if a.table == nil {
		return nil
	}
	table, sc := a.table, a.sc
	return func() tea.Msg {
		next, res, err := table.Dispatch(ctx, sc, cmd)
		return resultMsg{origin: sc.ID, cmd: cmd, next: next, res: res, err: err}
	}
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, a.keys.Quit) {
			return a, tea.Quit
		}
		if a.confirming {
			return a.updateConfirm(msg)
		}
		switch {
		case key.Matches(msg, a.keys.Submit):
			return a.submit()
		case key.Matches(msg, a.keys.Cancel):
			a.notice = nil
			a.output = ""
			a.refreshChat()
			return a, nil
		case key.Matches(msg, a.keys.NewSession):
			return a, a.dispatch(a.ctx, dispatch.Command{Action: dispatch.ActionNew})
		case key.Matches(msg, a.keys.CopyID):
			return a, a.dispatch(a.ctx, dispatch.Command{Action: dispatch.ActionCopy})
		case key.Matches(msg, a.keys.Sync):
			return a, a.dispatch(a.ctx, dispatch.Command{Action: dispatch.ActionSync})
		case key.Matches(msg, a.keys.PageUp):
			a.chatView.HalfPageUp()
			return a, nil
		case key.Matches(msg, a.keys.PageDown):
			a.chatView.HalfPageDown()
			return a, nil
		case key.Matches(msg, a.keys.ScrollUp):
			a.chatView.ScrollUp(1)
			return a, nil
		case key.Matches(msg, a.keys.ScrollDown):
			a.chatView.ScrollDown(1)
			return a, nil
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.relayout()

	case NoticeMsg:
		n := msg.Notice
		a.notice = &n
		return a, a.listen()

	case BusyMsg:
		if msg.Busy {
			a.busy[msg.Kind] = true
		} else {
			delete(a.busy, msg.Kind)
		}
		return a, a.listen()

	case resultMsg:
		return a.applyResult(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spin, cmd = a.spin.Update(msg)
		return a, cmd
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	cmds = append(cmds, cmd)

	return a, tea.Batch(cmds...)
}

// submit 解析输入行；"#N" 把第 N 个示例问题填入输入框
// submit parses the input line; "#N" fills the input with example question N.
func (a App) submit() (tea.Model, tea.Cmd) {
	line := strings.TrimSpace(a.input.Value())
	if n, ok := exampleIndex(line); ok {
		if n >= 1 && n <= len(a.examples) {
			a.input.SetValue(a.examples[n-1])
			a.input.CursorEnd()
			return a, nil
		}
	}
	cmd, ok := dispatch.Parse(line)
	if !ok {
		// 空输入仍交给编排器，由其提示 / empty input still goes through Ask so the user gets a notice
		cmd = dispatch.Command{Action: dispatch.ActionAsk}
	}
	if cmd.Action != dispatch.ActionAsk {
		a.input.Reset()
	}
	if cmd.Action == dispatch.ActionClear && a.sc.Active() {
		a.confirming = true
		a.pending = cmd
		return a, nil
	}
	return a, a.dispatch(a.ctx, cmd)
}

func (a App) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keys.Confirm):
		a.confirming = false
		ctx := context.WithValue(a.ctx, confirmKey{}, true)
		return a, a.dispatch(ctx, a.pending)
	case key.Matches(msg, a.keys.Decline):
		a.confirming = false
		return a, a.dispatch(a.ctx, a.pending)
	}
	return a, nil
}

// applyResult 合并分派结果；发起后会话已切换的结果直接丢弃
// applyResult merges a dispatch result; results whose session was replaced while in flight are dropped.
func (a App) applyResult(msg resultMsg) (tea.Model, tea.Cmd) {
	if msg.res.Quit {
		return a, tea.Quit
	}
	if len(msg.res.Examples) > 0 {
		a.examples = msg.res.Examples
	}
	// 凭证不随会话切换 / credentials outlive session switches
	if msg.cmd.Action == dispatch.ActionTest && msg.err == nil {
		a.sc = a.sc.WithCredentials(msg.next.Credentials)
	}
	if !a.accepts(msg) {
		a.logger.Debugf("dropping %s result for stale session %q (current %q)", msg.cmd.Action, msg.origin, a.sc.ID)
		return a, nil
	}
	if msg.err != nil {
		a.logger.Debugf("%s: %v", msg.cmd.Action, msg.err)
	}
	// 只读操作返回的是发起时的副本，不能覆盖期间已合并的问答
	if msg.res.Changed {
		a.sc = msg.next
	}
	switch msg.cmd.Action {
	case dispatch.ActionAsk:
		if msg.err == nil && strings.TrimSpace(a.input.Value()) == strings.TrimSpace(msg.cmd.Text) {
			a.input.Reset()
		}
		a.output = ""
	case dispatch.ActionHelp:
		a.output = msg.res.Output
	case dispatch.ActionExamples:
		if len(msg.res.Examples) == 0 {
			a.output = msg.res.Output
		}
	default:
		if msg.res.Changed {
			a.output = ""
		}
	}
	a.refreshChat()
	return a, nil
}

// accepts 结果属于当前会话；发起时尚无会话的结果在当前会话仍为空时也接受
// accepts reports whether msg belongs to the current session. A result dispatched
// before any session existed is also taken while the current session is still empty.
func (a App) accepts(msg resultMsg) bool {
	if msg.origin == a.sc.ID {
		return true
	}
	if msg.origin != "" || !msg.next.Active() {
		return false
	}
	if msg.next.ID == a.sc.ID {
		return true
	}
	return msg.res.Changed && a.sc.Transcript.Len() == 0 && len(a.sc.Graph.Triples) == 0
}

func exampleIndex(line string) (int, bool) {
	if !strings.HasPrefix(line, "#") {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(line, "#"))
	if err != nil {
		return 0, false
	}
	return n, true
}

// Busy 是否有操作进行中 / Busy reports whether any operation is in flight
func (a App) Busy() bool {
	return len(a.busy) > 0
}

// Session 当前会话上下文 / Session returns the current session context
func (a App) Session() session.Context {
	return a.sc
}

func (a *App) relayout() {
	mainWidth := a.width - a.sidebarWidth()
	chatHeight := a.height - 5 - 2 // input + notice/status
	if chatHeight < 3 {
		chatHeight = 3
	}
	a.chatView.Width = max(mainWidth-2, 10)
	a.chatView.Height = chatHeight
	a.input.SetWidth(max(mainWidth-4, 10))
	a.refreshChat()
}

func (a App) sidebarWidth() int {
	if a.width < 80 {
		return 0
	}
	w := a.width / 4
	if w < 24 {
		w = 24
	}
	if w > 44 {
		w = 44
	}
	return w
}

func (a *App) refreshChat() {
	content := a.renderer.Chat(display.Project(a.sc), a.chatView.Width)
	if a.output != "" {
		content += "\n\n" + a.theme.MutedStyle.Render(a.output)
	}
	a.chatView.SetContent(content)
	a.chatView.GotoBottom()
}

func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	sideW := a.sidebarWidth()
	mainW := a.width - sideW
	mainH := a.height - 1

	chat := a.theme.PanelStyle.Width(mainW - 2).Height(a.chatView.Height).Render(a.chatView.View())
	main := lipgloss.JoinVertical(lipgloss.Left, chat, a.renderNotice(mainW), a.renderInput(mainW))

	body := main
	if sideW > 0 {
		body = lipgloss.JoinHorizontal(lipgloss.Top, main, a.renderSidebar(sideW, mainH))
	}
	return lipgloss.JoinVertical(lipgloss.Left, body, a.renderStatusBar(a.width))
}

func (a App) renderInput(width int) string {
	style := a.theme.InputStyle.Width(width - 2)
	return style.Render(a.input.View())
}

func (a App) renderNotice(width int) string {
	if a.confirming {
		return a.theme.DangerStyle.Render(" " + i18n.T("session.clear_confirm") + " " + i18n.T("confirm.hint"))
	}
	if a.notice == nil {
		return ""
	}
	style := a.theme.MutedStyle
	switch a.notice.Level {
	case orchestrator.LevelError:
		style = a.theme.ErrorStyle
	case orchestrator.LevelSuccess:
		style = a.theme.SuccessStyle
	}
	text := fmt.Sprintf(" %s: %s", a.notice.Title, a.notice.Message)
	return style.MaxWidth(width).Render(display.TruncateLine(text, width))
}

func (a App) renderSidebar(width, height int) string {
	v := display.Project(a.sc)
	parts := []string{
		a.theme.TitleStyle.Render(" kgchat"),
		"",
		a.renderer.Sidebar(v, width-4),
		"",
		a.theme.TitleStyle.Render(i18n.T("panel.examples")),
	}
	if len(a.examples) == 0 {
		parts = append(parts, a.theme.MutedStyle.Render(i18n.T("placeholder.examples")))
	}
	for i, q := range a.examples {
		parts = append(parts, display.TruncateLine(fmt.Sprintf("#%d %s", i+1, q), width-4))
	}

	style := a.theme.SidebarStyle.
		Width(width).
		Height(height)

	return style.Render(strings.Join(parts, "\n"))
}

func (a App) renderStatusBar(width int) string {
	status := i18n.T("status.ready")
	if kinds := a.busyKinds(); len(kinds) > 0 {
		status = a.spin.View() + " " + i18n.T("status.busy", strings.Join(kinds, ", "))
	}

	id := a.sc.ID
	if id == "" {
		id = i18n.T("label.none")
	}
	left := fmt.Sprintf(" %s %s · %s", i18n.T("label.session"), id, status)
	right := fmt.Sprintf("%s  ", a.serverLabel)

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	bar := left + strings.Repeat(" ", gap) + right
	return a.theme.StatusBarStyle.Width(width).Render(bar)
}

func (a App) busyKinds() []string {
	var out []string
	for _, k := range orchestrator.Kinds {
		if a.busy[k] {
			out = append(out, string(k))
		}
	}
	return out
}

// Run 启动 Bubble Tea TUI
// Run starts the Bubble Tea TUI application
func Run(ctx context.Context, opts Options) error {
	app := NewApp(ctx, opts)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
