package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"kgchat/internal/dispatch"
	"kgchat/internal/display"
	"kgchat/internal/escape"
	"kgchat/internal/i18n"
	"kgchat/internal/logging"
	"kgchat/internal/orchestrator"
	"kgchat/internal/session"
	"kgchat/internal/transcript"
)

const (
	ansiReset  = "\x1b[0m"
	ansiDim    = "\x1b[90m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
)

// Options REPL 依赖
// Options holds what the REPL needs from the caller.
type Options struct {
	Orchestrator *orchestrator.Orchestrator
	Table        *dispatch.Table
	Input        LineInput
	Out          io.Writer
	Renderer     display.Renderer
	Session      session.Context
	Logger       *logging.Logger
	ServerLabel  string
	Width        int
	Color        bool
}

// Loop 持有 REPL 状态：分派表、当前会话与示例问题
// Loop holds REPL state: the dispatch table, the current session and example questions.
type Loop struct {
	orch     *orchestrator.Orchestrator
	table    *dispatch.Table
	input    LineInput
	out      io.Writer
	renderer display.Renderer
	logger   *logging.Logger
	server   string
	width    int
	color    bool

	sc       session.Context
	examples []string
}

// NewLoop 创建循环并接管编排器的提示与确认回调
// NewLoop creates the loop and takes over the orchestrator's notice and confirm callbacks.
func NewLoop(opts Options) *Loop {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	loop := &Loop{
		orch:     opts.Orchestrator,
		table:    opts.Table,
		input:    opts.Input,
		out:      out,
		renderer: opts.Renderer,
		logger:   opts.Logger,
		server:   opts.ServerLabel,
		width:    opts.Width,
		color:    opts.Color,
		sc:       opts.Session,
	}
	if loop.renderer.Theme.Primary == "" {
		if loop.color {
			loop.renderer.Theme = display.DarkTheme()
		} else {
			loop.renderer.Theme = display.PlainTheme()
		}
	}
	if loop.orch != nil {
		loop.orch.SetNotifier(loop.printNotice)
		loop.orch.SetConfirmer(loop.confirm)
		loop.orch.SetBusyFunc(nil)
	}
	return loop
}

// Session 当前会话上下文 / Session returns the current session context
func (loop *Loop) Session() session.Context {
	return loop.sc
}

// Run 读取输入直到 EOF 或 /quit
// Run reads input until EOF or /quit.
func (loop *Loop) Run(ctx context.Context) error {
	if loop.table == nil || loop.input == nil {
		return fmt.Errorf("repl: table and input are required")
	}
	loop.paint(ansiDim, i18n.T("startup.welcome", loop.server))
	// 服务端按 test_connection 写入的 cookie 校验提问
	if loop.sc.Credentials.Complete() {
		loop.run(ctx, dispatch.Command{Action: dispatch.ActionTest})
	}
	if !loop.sc.Active() {
		loop.run(ctx, dispatch.Command{Action: dispatch.ActionNew})
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		line, err := loop.input.ReadLine(loop.prompt())
		if err != nil {
			if isInterrupt(err) {
				if strings.TrimSpace(line) == "" {
					return nil
				}
				continue
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if q, ok := loop.exampleQuestion(line); ok {
			line = q
		}
		cmd, ok := dispatch.Parse(line)
		if !ok {
			continue
		}
		if loop.run(ctx, cmd) {
			return nil
		}
	}
}

// run 分派一条命令并打印结果；返回 true 表示退出
// run dispatches one command and prints its result; true means quit.
func (loop *Loop) run(ctx context.Context, cmd dispatch.Command) bool {
	next, res, err := loop.table.Dispatch(ctx, loop.sc, cmd)
	if res.Quit {
		return true
	}
	if err != nil {
		loop.logger.Debugf("%s: %v", cmd.Action, err)
	}
	before := loop.sc
	loop.sc = next
	if len(res.Examples) > 0 {
		loop.examples = res.Examples
	}
	if res.Output != "" {
		fmt.Fprintln(loop.out, escape.Terminal(res.Output))
	}
	if !res.Changed {
		return false
	}
	switch cmd.Action {
	case dispatch.ActionAsk:
		loop.printLastTurn()
		fmt.Fprintln(loop.out, loop.renderer.Sidebar(display.Project(loop.sc), loop.width))
	case dispatch.ActionNew:
		if before.ID != loop.sc.ID {
			loop.paint(ansiDim, fmt.Sprintf("%s: %s", i18n.T("label.session"), escape.Terminal(loop.sc.ID)))
		}
	default:
		fmt.Fprintln(loop.out, loop.renderer.Terminal(display.Project(loop.sc), loop.width))
	}
	return false
}

// printLastTurn 只打印最新一轮问答 / printLastTurn prints only the newest turn
func (loop *Loop) printLastTurn() {
	last, ok := loop.sc.Transcript.Last()
	if !ok {
		return
	}
	view := display.Project(session.Context{ID: loop.sc.ID, Transcript: transcript.FromTurns([]transcript.Turn{last})})
	fmt.Fprintln(loop.out, loop.renderer.Chat(view, loop.width))
}

// exampleQuestion "#N" 选择第 N 个示例问题 / exampleQuestion maps "#N" to example question N
func (loop *Loop) exampleQuestion(line string) (string, bool) {
	if !strings.HasPrefix(line, "#") {
		return "", false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(line, "#"))
	if err != nil || n < 1 || n > len(loop.examples) {
		return "", false
	}
	return loop.examples[n-1], true
}

func (loop *Loop) prompt() string {
	id := loop.sc.ID
	if id == "" {
		id = "-"
	}
	if len(id) > 8 {
		id = id[:8]
	}
	p := fmt.Sprintf("kgchat[%s]> ", escape.Terminal(id))
	if loop.color {
		return ansiGreen + p + ansiReset
	}
	return p
}

func (loop *Loop) printNotice(n orchestrator.Notice) {
	color := ansiDim
	switch n.Level {
	case orchestrator.LevelError:
		color = ansiRed
	case orchestrator.LevelSuccess:
		color = ansiGreen
	}
	loop.paint(color, fmt.Sprintf("[%s] %s", n.Title, escape.Terminal(n.Message)))
}

// confirm 在同一输入上询问 y/N；读取失败视为拒绝
// confirm asks y/N on the same input; a read error counts as no.
func (loop *Loop) confirm(_ context.Context, prompt string) bool {
	question := prompt + " " + i18n.T("confirm.hint") + " "
	if loop.color {
		question = ansiYellow + question + ansiReset
	}
	answer, err := loop.input.ReadLine(question)
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes", "是":
		return true
	}
	return false
}

func (loop *Loop) paint(color, text string) {
	if loop.color {
		fmt.Fprintf(loop.out, "%s%s%s\n", color, text, ansiReset)
		return
	}
	fmt.Fprintln(loop.out, text)
}

// UseColor 遵循 NO_COLOR 与 TERM=dumb / UseColor honours NO_COLOR and TERM=dumb
func UseColor() bool {
	if strings.TrimSpace(os.Getenv("NO_COLOR")) != "" {
		return false
	}
	if strings.TrimSpace(os.Getenv("KGCHAT_NO_COLOR")) != "" {
		return false
	}
	return strings.ToLower(strings.TrimSpace(os.Getenv("TERM"))) != "dumb"
}
