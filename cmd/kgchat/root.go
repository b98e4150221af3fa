package main

import (
	"os"

	"kgchat/internal/display"
	"kgchat/internal/repl"
	"kgchat/internal/telemetry"
	"kgchat/internal/tui"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	version = "dev"
	commit  = "unknown"
)

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "kgchat",
		Short: "Chat with a knowledge-graph service from the terminal",
		Long: `kgchat asks questions of a conversational knowledge-graph service and
shows the answers next to the entities and relations extracted so far.

Without a subcommand it starts the full-screen interface when stdin is a
terminal and a line REPL otherwise.`,
		Version:       version + " (" + commit + ")",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			telemetry.Version = version
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if stdinIsTerminal() {
				return runTUI(cmd, *flags)
			}
			return runREPL(cmd, *flags, false)
		},
	}
	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Path to config file (JSON, JSONC or YAML)")
	root.PersistentFlags().StringVar(&flags.server, "server", "", "Service base URL (overrides config)")
	root.PersistentFlags().StringVar(&flags.lang, "lang", "", "Interface language: en or zh-CN")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable debug logging")
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	root.AddCommand(
		newTUICmd(flags),
		newREPLCmd(flags),
		newAskCmd(flags),
		newTestCmd(flags),
		newExamplesCmd(flags),
		newExportCmd(flags),
		newHistoryCmd(flags),
	)
	return root
}

func stdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func newTUICmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Start the full-screen interface",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, *flags)
		},
	}
}

func newREPLCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Start the line-based REPL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runREPL(cmd, *flags, stdinIsTerminal())
		},
	}
}

func runTUI(cmd *cobra.Command, flags globalFlags) error {
	ctx := cmd.Context()
	rt, err := newRuntime(ctx, flags, true)
	if err != nil {
		return err
	}
	defer rt.Close()

	return tui.Run(ctx, tui.Options{
		Orchestrator: rt.orch,
		Table:        rt.table,
		Renderer:     rt.renderer,
		Session:      rt.session(""),
		Logger:       rt.logger,
		ServerLabel:  rt.client.BaseURL(),
	})
}

func runREPL(cmd *cobra.Command, flags globalFlags, tty bool) error {
	ctx := cmd.Context()
	rt, err := newRuntime(ctx, flags, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	input, err := repl.NewLineInput(rt.historyPath(), tty)
	if err != nil {
		rt.logger.Warnf("line editor unavailable, fallback to basic input: %v", err)
	}
	defer input.Close()

	width := 0
	if tty {
		if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
			width = w
		}
	}
	color := tty && repl.UseColor()
	renderer := rt.renderer
	if !color {
		renderer.Theme = display.PlainTheme()
	}

	loop := repl.NewLoop(repl.Options{
		Orchestrator: rt.orch,
		Table:        rt.table,
		Input:        input,
		Out:          cmd.OutOrStdout(),
		Renderer:     renderer,
		Session:      rt.session(""),
		Logger:       rt.logger,
		ServerLabel:  rt.client.BaseURL(),
		Width:        width,
		Color:        color,
	})
	return loop.Run(ctx)
}
