package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/ayusman/curlcount/internal/store"
)

func newSessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List stored counting sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			if _, err := os.Stat(cfg.DBPath); os.IsNotExist(err) {
				fmt.Fprintln(cmd.OutOrStdout(), "no sessions recorded yet")
				return nil
			}

			st, err := store.New(cfg.DBPath)
			if err != nil {
				return err
			}
			defer st.Close()

			sessions, err := st.Sessions().List()
			if err != nil {
				return err
			}
			return printSessions(cmd.OutOrStdout(), sessions)
		},
	}
}

func printSessions(out io.Writer, sessions []*store.Session) error {
	if len(sessions) == 0 {
		fmt.Fprintln(out, "no sessions recorded yet")
		return nil
	}

	cell := lipgloss.NewStyle().PaddingRight(2)
	header := cell.Bold(true)
	active := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(dim).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderColumn(false).
		BorderHeader(true).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		}).
		Headers("ID", "MODE", "LEFT", "RIGHT", "STARTED", "DURATION")

	for _, s := range sessions {
		duration := active.Render("recording")
		if s.EndedAt != nil {
			duration = s.EndedAt.Sub(s.StartedAt).Round(time.Second).String()
		}
		t.Row(
			s.ID,
			s.Mode,
			fmt.Sprint(s.LeftReps),
			fmt.Sprint(s.RightReps),
			s.StartedAt.Local().Format("2006-01-02 15:04"),
			duration,
		)
	}

	_, err := fmt.Fprintln(out, t.Render())
	return err
}
