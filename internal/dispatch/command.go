// Package dispatch 把用户动作映射到编排器操作，与具体界面无关
// Package dispatch maps user actions onto orchestrator operations, independent of any rendering surface.
package dispatch

import "strings"

type Action string

const (
	ActionAsk      Action = "ask"
	ActionTest     Action = "test"
	ActionNew      Action = "new"
	ActionClear    Action = "clear"
	ActionExport   Action = "export"
	ActionExamples Action = "examples"
	ActionSync     Action = "sync"
	ActionCopy     Action = "copy"
	ActionImage    Action = "image"
	ActionHelp     Action = "help"
	ActionQuit     Action = "quit"
)

var aliases = map[string]Action{
	"q":     ActionQuit,
	"exit":  ActionQuit,
	"?":     ActionHelp,
	"ex":    ActionExamples,
	"reset": ActionClear,
}

// Command 解析后的一条用户输入
// Command is one parsed line of user input.
type Command struct {
	Action Action
	// Name 原始命令名（未知命令时用于提示） / Name is the typed command name, used for unknown commands
	Name string
	Args []string
	// Text 提问文本或命令参数原文 / Text is the question text or the raw argument string
	Text string
}

// Parse 把 "/cmd args" 或纯文本（即提问）解析为 Command；空行返回 false
// Parse turns "/cmd args" or free text (a question) into a Command; blank lines return false.
func Parse(line string) (Command, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return Command{}, false
	}
	if !strings.HasPrefix(trimmed, "/") {
		return Command{Action: ActionAsk, Name: string(ActionAsk), Text: trimmed}, true
	}
	rest := strings.TrimSpace(strings.TrimPrefix(trimmed, "/"))
	if rest == "" {
		return Command{Action: ActionHelp, Name: string(ActionHelp)}, true
	}
	name, args, _ := strings.Cut(rest, " ")
	name = strings.ToLower(strings.TrimSpace(name))
	args = strings.TrimSpace(args)

	action := Action(name)
	if alias, ok := aliases[name]; ok {
		action = alias
	}
	return Command{Action: action, Name: name, Args: strings.Fields(args), Text: args}, true
}

// Sensitive 命令行中带有凭证，不应写入历史
// Sensitive reports whether the line carried credentials and must stay out of history.
func (c Command) Sensitive() bool {
	return c.Action == ActionTest && len(c.Args) > 0
}
