package main

import (
	"database/sql"
	"fmt"
	"io"
	"time"

	"imagesorter/config"
	"imagesorter/database"
	"imagesorter/types"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"
)

func newReportCommand(flags *flagValues) *cobra.Command {
	var runID string
	var limit int

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show past sort runs recorded in the journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := reportJournalPath(cmd, flags)
			if err != nil {
				return err
			}
			db, err := database.OpenDatabase(path)
			if err != nil {
				return err
			}
			defer db.Close()
			return renderReport(cmd.OutOrStdout(), db, runID, limit)
		},
	}
	cmd.Flags().StringVar(&runID, "run", "", "run to summarize (default latest)")
	cmd.Flags().IntVar(&limit, "limit", 10, "number of runs to list")
	return cmd
}

func reportJournalPath(cmd *cobra.Command, flags *flagValues) (string, error) {
	if cmd.Flags().Changed("journal") {
		return flags.journalPath, nil
	}
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return "", err
	}
	if cfg.JournalPath != "" {
		return cfg.JournalPath, nil
	}
	return cfg.DefaultJournalPath(), nil
}

func renderReport(w io.Writer, db *sql.DB, runID string, limit int) error {
	runs, err := database.ListRuns(db, limit)
	if err != nil {
		return err
	}
	runID, err = database.ResolveRunID(db, runID)
	if err != nil {
		return err
	}

	renderRuns(w, runs)

	stats, err := database.GetRunStats(db, runID)
	if err != nil {
		return err
	}
	counts, err := database.GetLabelCounts(db, runID)
	if err != nil {
		return err
	}
	scores, err := database.GetWinningScores(db, runID)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "\nRun %s\n", runID)
	fmt.Fprintf(w, "Files sorted:      %d\n", stats.TotalDecisions)
	fmt.Fprintf(w, "Sent to unknown:   %d\n", stats.UnknownCount)
	fmt.Fprintf(w, "Brute-force wins:  %d\n", stats.BruteForceWins)
	fmt.Fprintf(w, "FLANN wins:        %d\n", stats.FlannWins)
	fmt.Fprintf(w, "Copied:            %s\n", humanize.Bytes(uint64(stats.BytesCopied)))
	switch {
	case len(scores) == 1:
		fmt.Fprintf(w, "Winning score:     %.1f over 1 file\n", scores[0])
	case len(scores) > 1:
		mean, std := stat.MeanStdDev(scores, nil)
		fmt.Fprintf(w, "Winning score:     mean %.1f, stddev %.1f over %d files\n", mean, std, len(scores))
	}

	if len(counts) > 0 {
		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"Label", "Files"})
		for _, c := range counts {
			t.AppendRow(table.Row{c.Label, c.Count})
		}
		t.Render()
	}
	return nil
}

func renderRuns(w io.Writer, runs []types.RunInfo) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Run", "Started", "Status", "Known", "To sort", "Min", "Ratio", "Tie"})
	for _, r := range runs {
		t.AppendRow(table.Row{r.ID, startedLabel(r.StartedAt), r.Status, r.KnownDir, r.ToSortDir, r.MinMatches, r.DistanceRatio, r.TieBreak})
	}
	t.Render()
}

func startedLabel(ts string) string {
	parsed, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return ts
	}
	return humanize.Time(parsed)
}
