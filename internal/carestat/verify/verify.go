// Package verify re-checks rows already in the store against the key
// invariants the loader guarantees. Rows written by other clients after a
// load, or a load that raced with one, show up here.
package verify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/table"
	"github.com/jedib0t/go-pretty/text"

	"github.com/vaibhaw-/CareStat/internal/carestat/logger"
	"github.com/vaibhaw-/CareStat/internal/carestat/reconcile"
	"github.com/vaibhaw-/CareStat/internal/carestat/tables"
)

// ErrViolations is returned when at least one table fails verification.
var ErrViolations = errors.New("invariant violations found")

// RowSource reads the key columns of a table's persisted rows.
type RowSource interface {
	TableRows(ctx context.Context, t *tables.Table) ([]reconcile.Record, error)
}

// ReferenceProvider fetches a table's reference sets.
type ReferenceProvider interface {
	Fetch(ctx context.Context, refs []tables.Reference) (reconcile.ReferenceSets, error)
}

type VerifyArgs struct {
	OutputFile  string // NDJSON violations, empty means none written
	RunLog      string
	SummaryOnly bool
	// Limit caps the violations printed per table (0 = all).
	Limit int
}

// TableResult is the verification outcome of one table.
type TableResult struct {
	Table      string                `json:"table"`
	Rows       int                   `json:"rows"`
	Violations []reconcile.Violation `json:"violations,omitempty"`
}

// VerifySummary is appended to the run log to record verify runs.
type VerifySummary struct {
	Phase      string         `json:"phase"`
	Tables     []string       `json:"tables"`
	Rows       int            `json:"rows"`
	Violations map[string]int `json:"violations,omitempty"`
	Status     string         `json:"status"`
	StartTime  string         `json:"start_time"`
	EndTime    string         `json:"end_time"`
}

// Check verifies one table. Persisted rows are the existing keys, so only
// duplicates among them and foreign keys outside their sets are reported.
func Check(ctx context.Context, t *tables.Table, rows RowSource, refs ReferenceProvider) (TableResult, error) {
	recs, err := rows.TableRows(ctx, t)
	if err != nil {
		return TableResult{}, err
	}
	sets, err := refs.Fetch(ctx, t.References())
	if err != nil {
		return TableResult{}, err
	}
	return TableResult{
		Table:      t.Name,
		Rows:       len(recs),
		Violations: reconcile.Verify(recs, t.Policy(), sets, reconcile.VerifyOptions{}),
	}, nil
}

// RunVerify checks every table in tbls, prints a report to out and appends
// a summary to the run log. It returns ErrViolations when any check fails.
func RunVerify(ctx context.Context, tbls []*tables.Table, rows RowSource, refs ReferenceProvider, out io.Writer, args VerifyArgs) error {
	log := logger.L()
	start := time.Now().UTC()
	summary := VerifySummary{
		Phase:      "verify",
		Violations: map[string]int{},
		StartTime:  start.Format(time.RFC3339),
	}

	var enc *json.Encoder
	if args.OutputFile != "" {
		f, err := os.Create(args.OutputFile)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		enc = json.NewEncoder(f)
	}

	var results []TableResult
	for _, t := range tbls {
		res, err := Check(ctx, t, rows, refs)
		if err != nil {
			return fmt.Errorf("verify %s: %w", t.Name, err)
		}
		log.Infow("table verified", "table", t.Name, "rows", res.Rows, "violations", len(res.Violations))
		results = append(results, res)
		summary.Tables = append(summary.Tables, t.Name)
		summary.Rows += res.Rows
		if len(res.Violations) > 0 {
			summary.Violations[t.Name] = len(res.Violations)
		}
		if enc != nil {
			for _, v := range res.Violations {
				line := struct {
					Table string `json:"table"`
					reconcile.Violation
				}{t.Name, v}
				if err := enc.Encode(line); err != nil {
					return fmt.Errorf("encode violation: %w", err)
				}
			}
		}
	}

	summary.Status = "pass"
	if len(summary.Violations) > 0 {
		summary.Status = "fail"
	}
	summary.EndTime = time.Now().UTC().Format(time.RFC3339)

	render(out, results, args)

	if args.RunLog != "" {
		if err := appendRunLog(args.RunLog, summary); err != nil {
			log.Errorw("failed to write run log", "path", args.RunLog, "err", err.Error())
		}
	}
	log.Infow("verify complete", "status", summary.Status, "tables", len(tbls), "rows", summary.Rows)

	if summary.Status == "fail" {
		return ErrViolations
	}
	return nil
}

func render(w io.Writer, results []TableResult, args VerifyArgs) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.Style().Format.Header = text.FormatDefault
	t.AppendHeader(table.Row{"table", "rows", "violations", "status"})
	for _, r := range results {
		status := "ok"
		if len(r.Violations) > 0 {
			status = "FAIL"
		}
		t.AppendRow(table.Row{r.Table, r.Rows, len(r.Violations), status})
	}
	t.Render()
	if args.SummaryOnly {
		return
	}

	for _, r := range results {
		if len(r.Violations) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s:\n", r.Table)
		d := table.NewWriter()
		d.SetOutputMirror(w)
		d.Style().Format.Header = text.FormatDefault
		d.AppendHeader(table.Row{"row", "constraint", "key", "reason"})
		shown := r.Violations
		if args.Limit > 0 && len(shown) > args.Limit {
			shown = shown[:args.Limit]
		}
		for _, v := range shown {
			d.AppendRow(table.Row{v.Line, v.Constraint, v.Key, v.Reason})
		}
		d.Render()
		if n := len(r.Violations) - len(shown); n > 0 {
			fmt.Fprintf(w, "(%d more)\n", n)
		}
	}
}

func appendRunLog(path string, summary VerifySummary) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(summary)
}
