package runner

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/table"
	"github.com/jedib0t/go-pretty/text"
)

// RenderSummary writes one row per table load.
func RenderSummary(w io.Writer, s *RunSummary) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.Style().Format.Header = text.FormatDefault

	t.AppendHeader(table.Row{"table", "input", "malformed", "accepted", "repaired", "skipped", "failed", "inserted", "insert failed", "status"})
	for _, ts := range s.Tables {
		t.AppendRow(table.Row{
			ts.Table,
			ts.Counts.Input,
			ts.Malformed,
			ts.Counts.Accepted,
			ts.Counts.Repaired,
			ts.Counts.Skipped,
			ts.Counts.Failed,
			ts.Inserted,
			ts.InsertFailed,
			ts.Status,
		})
	}
	t.Render()

	fmt.Fprintf(w, "run %s", s.RunID)
	if s.DryRun {
		fmt.Fprint(w, " (dry run)")
	}
	fmt.Fprintln(w)
	for _, ts := range s.Tables {
		if ts.Error != "" {
			fmt.Fprintf(w, "%s: %s\n", ts.Table, ts.Error)
		}
	}
}
