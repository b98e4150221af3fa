package repl

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"kgchat/internal/dispatch"

	"github.com/chzyer/readline"
)

// LineInput 逐行读取用户输入
// LineInput reads user input one line at a time.
type LineInput interface {
	ReadLine(prompt string) (string, error)
	Close() error
}

type basicLineInput struct {
	reader *bufio.Reader
	out    io.Writer
}

// NewBasicInput 非 TTY 输入：不回显、不记历史
// NewBasicInput reads plain lines, for pipes and tests.
func NewBasicInput(in io.Reader, out io.Writer) LineInput {
	return &basicLineInput{
		reader: bufio.NewReader(in),
		out:    out,
	}
}

func (b *basicLineInput) ReadLine(prompt string) (string, error) {
	if b.out != nil && prompt != "" {
		fmt.Fprint(b.out, prompt)
	}
	line, err := b.reader.ReadString('\n')
	if err != nil {
		if err == io.EOF && line != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (b *basicLineInput) Close() error { return nil }

type readlineInput struct {
	instance *readline.Instance
}

func newReadlineInput(historyPath string) (*readlineInput, error) {
	if historyPath != "" {
		if err := os.MkdirAll(filepath.Dir(historyPath), 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}
	instance, err := readline.NewEx(&readline.Config{
		Prompt:                 "> ",
		HistoryFile:            historyPath,
		DisableAutoSaveHistory: true,
		HistorySearchFold:      true,
		InterruptPrompt:        "^C",
		EOFPrompt:              "",
	})
	if err != nil {
		return nil, err
	}
	return &readlineInput{instance: instance}, nil
}

func (r *readlineInput) ReadLine(prompt string) (string, error) {
	r.instance.SetPrompt(prompt)
	line, err := r.instance.Readline()
	if err == nil && historyWorthy(line) {
		_ = r.instance.SaveHistory(line)
	}
	return line, err
}

// historyWorthy 空行与带凭证的 /test 不进入历史文件
// historyWorthy keeps blank lines and /test with credentials out of the history file.
func historyWorthy(line string) bool {
	cmd, ok := dispatch.Parse(line)
	return ok && !cmd.Sensitive()
}

func (r *readlineInput) Close() error {
	if r == nil || r.instance == nil {
		return nil
	}
	return r.instance.Close()
}

// NewLineInput TTY 下使用 readline（带历史文件），失败时退回基础输入
// NewLineInput uses readline with a history file on a TTY and falls back to plain input.
func NewLineInput(historyPath string, tty bool) (LineInput, error) {
	if !tty {
		return NewBasicInput(os.Stdin, nil), nil
	}
	readlineReader, err := newReadlineInput(historyPath)
	if err == nil {
		return readlineReader, nil
	}
	return NewBasicInput(os.Stdin, os.Stdout), err
}

// isInterrupt Ctrl+C 由 readline 报告为 ErrInterrupt
// isInterrupt reports a Ctrl+C from readline.
func isInterrupt(err error) bool {
	return err == readline.ErrInterrupt
}
