package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/storage-analysis/internal/repository"
)

func newHistoryCmd(root *rootOptions) *cobra.Command {
	var (
		network string
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs",
		Long:  `List the runs recorded in the history database, newest first. Requires database.enabled.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := root.newService(cmd)
			if err != nil {
				return err
			}
			defer svc.Close()

			runs, err := svc.History(cmd.Context(), network, limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderRuns(runs))
			return nil
		},
	}

	cmd.Flags().StringVar(&network, "network", "", "Only list runs of this network")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs")
	return cmd
}

func renderRuns(runs []*repository.Run) string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			strconv.FormatInt(r.ID, 10),
			r.CreatedAt.Format(time.DateTime),
			string(r.Command),
			r.Network,
			runDetail(r),
			r.Duration.Round(time.Millisecond).String(),
		})
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "CREATED", "COMMAND", "NETWORK", "RESULT", "DURATION").
		Rows(rows...).
		String()
}

func runDetail(r *repository.Run) string {
	switch r.Command {
	case repository.CommandGrep:
		return fmt.Sprintf("%d matches in %d entries (%s)", r.Matched, r.Scanned, strings.Join(r.Subjects, ", "))
	default:
		return fmt.Sprintf("%d keys, %s (%s compressed)", r.NumKeys, humanize.Bytes(r.Size), humanize.Bytes(r.CompressedSize))
	}
}
