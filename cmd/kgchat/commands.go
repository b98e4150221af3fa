package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"kgchat/internal/display"
	"kgchat/internal/escape"
	"kgchat/internal/export"
	"kgchat/internal/session"
	"kgchat/internal/storage"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

func newAskCmd(flags *globalFlags) *cobra.Command {
	var sessionID string
	var full bool
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask one question and print the answer",
		Long: `Ask one question and print the answer with the extracted graph.

A new session is created unless --session names an existing one.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd.Context(), *flags, false)
			if err != nil {
				return err
			}
			defer rt.Close()
			rt.printNotices(cmd.OutOrStdout(), cmd.ErrOrStderr())

			sc := rt.session(sessionID)
			if err := rt.authenticate(cmd.Context(), sc); err != nil {
				return err
			}
			sc, err = rt.orch.Ask(cmd.Context(), sc, strings.Join(args, " "))
			if err != nil {
				return err
			}
			renderer := rt.renderer
			renderer.Theme = display.PlainTheme()
			out := cmd.OutOrStdout()
			if full {
				fmt.Fprintln(out, renderer.Terminal(display.Project(sc), 0))
				return nil
			}
			last, _ := sc.Transcript.Last()
			fmt.Fprintln(out, escape.Terminal(last.Answer))
			fmt.Fprintf(out, "\nsession: %s\n", escape.Terminal(sc.ID))
			return nil
		},
	}
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "Existing session ID")
	cmd.Flags().BoolVar(&full, "full", false, "Print entities, relations and statistics too")
	return cmd
}

func newTestCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "test [api-key api-secret]",
		Short: "Test API credentials against the service",
		Long:  "Test API credentials. Without arguments the credentials from the config file are used.",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 && len(args) != 2 {
				return errors.New("expected no arguments or <api-key> <api-secret>")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd.Context(), *flags, false)
			if err != nil {
				return err
			}
			defer rt.Close()
			rt.printNotices(cmd.OutOrStdout(), cmd.ErrOrStderr())

			sc := rt.session("")
			if len(args) == 2 {
				sc = sc.WithCredentials(session.Credentials{APIKey: args[0], APISecret: args[1]})
			}
			_, err = rt.orch.TestConnection(cmd.Context(), sc)
			return err
		},
	}
}

func newExamplesCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "examples",
		Short: "List example questions offered by the service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd.Context(), *flags, false)
			if err != nil {
				return err
			}
			defer rt.Close()

			for i, q := range rt.orch.Examples(cmd.Context()) {
				fmt.Fprintf(cmd.OutOrStdout(), "%d. %s\n", i+1, escape.Terminal(q))
			}
			return nil
		},
	}
}

func newExportCmd(flags *globalFlags) *cobra.Command {
	var format, sessionID string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a session's graph to a file",
		Long: `Export the knowledge graph of a session as JSON or CSV.

The file is written to storage.export_dir as knowledge_graph_<session>.<format>.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := export.ParseFormat(format); err != nil {
				return err
			}
			rt, err := newRuntime(cmd.Context(), *flags, false)
			if err != nil {
				return err
			}
			defer rt.Close()
			rt.printNotices(cmd.OutOrStdout(), cmd.ErrOrStderr())

			_, err = rt.orch.Export(cmd.Context(), rt.session(sessionID), format)
			return err
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "Export format: json or csv")
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "Session ID to export (required)")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}

func newHistoryCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "history [session-id]",
		Short: "Show sessions and turns recorded in the local journal",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd.Context(), *flags, false)
			if err != nil {
				return err
			}
			defer rt.Close()
			if rt.store == nil {
				return errors.New("local journal is disabled (storage.journal)")
			}
			if len(args) == 1 {
				return printTurns(cmd.OutOrStdout(), rt.store, args[0])
			}
			return printSessions(cmd.OutOrStdout(), rt.store)
		},
	}
}

func printSessions(w io.Writer, j storage.Journal) error {
	sessions, err := j.ListSessions()
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No sessions recorded.")
		return nil
	}
	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		cleared := s.ClearedAt
		if cleared == "" {
			cleared = "-"
		}
		rows = append(rows, []string{
			escape.Terminal(s.ID),
			escape.Terminal(s.Server),
			strconv.Itoa(s.TurnCount),
			escape.Terminal(s.UpdatedAt),
			escape.Terminal(cleared),
		})
	}
	fmt.Fprintln(w, renderTable([]string{"SESSION", "SERVER", "TURNS", "UPDATED", "CLEARED"}, rows))
	return nil
}

func printTurns(w io.Writer, j storage.Journal, id string) error {
	if _, err := j.LoadSession(id); err != nil {
		return err
	}
	turns, err := j.LoadTurns(id)
	if err != nil {
		return err
	}
	if len(turns) == 0 {
		fmt.Fprintln(w, "No turns recorded.")
		return nil
	}
	rows := make([][]string, 0, len(turns))
	for _, t := range turns {
		rows = append(rows, []string{
			strconv.Itoa(t.Seq),
			escape.Terminal(t.CreatedAt),
			display.TruncateLine(t.Question, 40),
			display.TruncateLine(t.Answer, 60),
			fmt.Sprintf("%d/%d", t.TotalEntities, t.TotalTriples),
			strconv.Itoa(t.TotalTokens),
		})
	}
	fmt.Fprintln(w, renderTable([]string{"#", "AT", "QUESTION", "ANSWER", "ENT/REL", "TOKENS"}, rows))
	return nil
}

func renderTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		String()
}
