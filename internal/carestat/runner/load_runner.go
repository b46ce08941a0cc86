package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/vaibhaw-/CareStat/internal/carestat/config"
	"github.com/vaibhaw-/CareStat/internal/carestat/logger"
	"github.com/vaibhaw-/CareStat/internal/carestat/metrics"
	"github.com/vaibhaw-/CareStat/internal/carestat/reconcile"
	"github.com/vaibhaw-/CareStat/internal/carestat/tables"
)

var (
	// ErrFailureRatio is returned when a table rolled back because too many
	// inserts were refused by the store.
	ErrFailureRatio = errors.New("insert failure ratio exceeded")

	// ErrExhausted is returned when a table aborts on a record whose
	// regeneration domain ran out.
	ErrExhausted = errors.New("aborted on exhausted regeneration domain")
)

// ReferenceProvider supplies the reference sets a table's policy needs.
type ReferenceProvider interface {
	Fetch(ctx context.Context, refs []tables.Reference) (reconcile.ReferenceSets, error)
}

// Sink opens one insert transaction per table.
type Sink interface {
	Begin(ctx context.Context, t *tables.Table) (tables.Batch, error)
}

// Options controls a load run.
type Options struct {
	// Dir holds the CSV exports, read as Dir/Table.File.
	Dir string
	// Input replaces the file of a single-table load.
	Input           string
	Seed            int64
	OnExhausted     string
	MaxFailureRatio float64
	DryRun          bool

	RepairLog       string
	RejectFile      string
	RunLog          string
	MetricsTextfile string

	// Out receives the summary table. Nil disables it.
	Out io.Writer
}

// OptionsFromConfig maps the loaded configuration onto run options.
func OptionsFromConfig(cfg *config.Config) Options {
	if cfg == nil {
		return Options{OnExhausted: config.OnExhaustedAbort, MaxFailureRatio: 0.1}
	}
	return Options{
		Dir:             cfg.Input.Dir,
		Seed:            cfg.Load.Seed,
		OnExhausted:     cfg.Load.OnExhausted,
		MaxFailureRatio: cfg.Load.MaxFailureRatio,
		DryRun:          cfg.Load.DryRun,
		RepairLog:       cfg.Output.RepairLog,
		RejectFile:      cfg.Output.RejectFile,
		RunLog:          cfg.Logging.RunLog,
		MetricsTextfile: cfg.Metrics.Textfile,
	}
}

// loader carries the per-run state shared by every table.
type loader struct {
	runID   string
	opts    Options
	refs    ReferenceProvider
	sink    Sink
	repairs *ndjson
	rejects *ndjson
	metrics *metrics.Recorder
}

// RunLoad loads tbls in the given order. Each table is read, reconciled
// against fresh reference sets and inserted in one transaction. The run
// stops at the first table that fails; the summary covers every table
// attempted so far.
func RunLoad(ctx context.Context, tbls []*tables.Table, refs ReferenceProvider, sink Sink, opts Options) (*RunSummary, error) {
	log := logger.L()
	if opts.Input != "" && len(tbls) != 1 {
		return nil, fmt.Errorf("--input needs exactly one table, got %d", len(tbls))
	}

	l := &loader{
		runID:   uuid.NewString(),
		opts:    opts,
		refs:    refs,
		sink:    sink,
		metrics: metrics.New(),
	}
	log.Infow("starting load run",
		"run_id", l.runID,
		"tables", len(tbls),
		"dry_run", opts.DryRun,
		"seed", opts.Seed,
		"on_exhausted", opts.OnExhausted)

	repairFile, err := openAppend(opts.RepairLog)
	if err != nil {
		log.Errorw("failed to open repair log", "path", opts.RepairLog, "err", err.Error())
		return nil, fmt.Errorf("open repair log: %w", err)
	}
	if repairFile != nil {
		defer repairFile.Close()
	}
	l.repairs = newNDJSON(repairFile)

	rejectFile, err := openAppend(opts.RejectFile)
	if err != nil {
		log.Errorw("failed to open reject file", "path", opts.RejectFile, "err", err.Error())
		return nil, fmt.Errorf("open reject file: %w", err)
	}
	if rejectFile != nil {
		defer rejectFile.Close()
	}
	l.rejects = newNDJSON(rejectFile)

	summary := &RunSummary{
		RunID:      l.runID,
		DryRun:     opts.DryRun,
		Seed:       opts.Seed,
		RepairLog:  opts.RepairLog,
		RejectFile: opts.RejectFile,
	}
	var runErr error
	for _, t := range tbls {
		ts, err := l.loadTable(ctx, t)
		summary.Tables = append(summary.Tables, ts)
		if err != nil {
			runErr = fmt.Errorf("load %s: %w", t.Name, err)
			break
		}
	}
	summary.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)

	if opts.RunLog != "" {
		if err := appendRunLog(opts.RunLog, *summary); err != nil {
			log.Errorw("failed to write run log", "path", opts.RunLog, "err", err.Error())
		} else {
			log.Debugw("wrote run summary", "path", opts.RunLog)
		}
	}
	if opts.MetricsTextfile != "" {
		if err := l.metrics.WriteTextfile(opts.MetricsTextfile); err != nil {
			log.Errorw("failed to write metrics", "path", opts.MetricsTextfile, "err", err.Error())
		}
	}
	if opts.Out != nil {
		RenderSummary(opts.Out, summary)
	}

	log.Infow("completed load run", "run_id", l.runID, "tables", len(summary.Tables), "failed", runErr != nil)
	return summary, runErr
}

func (l *loader) inputPath(t *tables.Table) string {
	if l.opts.Input != "" {
		return l.opts.Input
	}
	return filepath.Join(l.opts.Dir, t.File)
}

func (l *loader) loadTable(ctx context.Context, t *tables.Table) (ts TableSummary, err error) {
	log := logger.L().With("table", t.Name, "run_id", l.runID)
	start := time.Now()
	ts = TableSummary{Table: t.Name, Input: l.inputPath(t), Status: StatusAborted}
	defer func() {
		ts.DurationMS = since(start)
		l.metrics.Duration(t.Name, time.Since(start))
		if err != nil {
			ts.Error = err.Error()
		}
	}()

	f, err := os.Open(ts.Input)
	if err != nil {
		return ts, fmt.Errorf("open input: %w", err)
	}
	candidates, bad, err := t.Read(f)
	f.Close()
	if err != nil {
		return ts, err
	}
	ts.Malformed = len(bad)
	l.metrics.Malformed(t.Name, len(bad))
	for _, m := range bad {
		if err := l.rejects.encode(RejectLine{RunID: l.runID, Malformed: m}); err != nil {
			return ts, fmt.Errorf("encode reject: %w", err)
		}
	}
	log.Infow("read input", "path", ts.Input, "candidates", len(candidates), "malformed", len(bad))

	sets, err := l.refs.Fetch(ctx, t.References())
	if err != nil {
		return ts, err
	}

	res, err := reconcile.Reconcile(candidates, sets, t.Policy(), reconcile.Options{Seed: l.opts.Seed})
	if err != nil {
		log.Errorw("reconcile aborted", "err", err.Error(), "precondition", reconcile.IsPrecondition(err))
		return ts, err
	}
	ts.Counts = res.Counts
	l.metrics.ObserveResult(t.Name, res)
	for _, e := range res.Log {
		line := RepairLine{RunID: l.runID, Table: t.Name, Stage: StageReconcile, Entry: e}
		if e.Err != nil {
			line.Error = e.Err.Error()
		}
		if err := l.repairs.encode(line); err != nil {
			return ts, fmt.Errorf("encode repair: %w", err)
		}
	}
	log.Infow("reconciled",
		"accepted", res.Counts.Accepted,
		"repaired", res.Counts.Repaired,
		"skipped", res.Counts.Skipped,
		"failed", res.Counts.Failed)

	if l.opts.OnExhausted != config.OnExhaustedSkip {
		for _, e := range res.Failures() {
			if errors.Is(e.Err, reconcile.ErrDomainExhausted) {
				return ts, fmt.Errorf("%w: line %d: %v", ErrExhausted, e.Line, e.Err)
			}
		}
	}

	return l.insert(ctx, t, res.Accepted, ts)
}

func (l *loader) insert(ctx context.Context, t *tables.Table, recs []reconcile.Record, ts TableSummary) (TableSummary, error) {
	log := logger.L().With("table", t.Name, "run_id", l.runID)

	batch, err := l.sink.Begin(ctx, t)
	if err != nil {
		return ts, err
	}
	for i, rec := range recs {
		if i > 0 && i%1000 == 0 {
			log.Infow("insert progress", "rows", i, "failed", ts.InsertFailed)
		}
		err := batch.Insert(ctx, rec)
		switch {
		case err == nil:
			ts.Inserted++
		case errors.Is(err, tables.ErrConstraintViolation):
			ts.InsertFailed++
			log.Debugw("insert refused", "line", rec.Line, "err", err.Error())
			line := RepairLine{
				RunID: l.runID,
				Table: t.Name,
				Stage: StageInsert,
				Entry: reconcile.Entry{Line: rec.Line, Disposition: reconcile.Failed, Reason: "constraint violation"},
				Error: err.Error(),
			}
			if err := l.repairs.encode(line); err != nil {
				_ = batch.Rollback()
				return ts, fmt.Errorf("encode repair: %w", err)
			}
		default:
			_ = batch.Rollback()
			return ts, err
		}
	}
	l.metrics.Inserted(t.Name, ts.Inserted, ts.InsertFailed)

	ratio := failureRatio(ts.InsertFailed, len(recs))
	switch {
	case l.opts.DryRun:
		if err := batch.Rollback(); err != nil {
			return ts, fmt.Errorf("rollback: %w", err)
		}
		ts.Status = StatusDryRun
		log.Infow("dry run rolled back", "inserted", ts.Inserted, "failed", ts.InsertFailed)
		return ts, nil
	case ratio > l.opts.MaxFailureRatio:
		if err := batch.Rollback(); err != nil {
			return ts, fmt.Errorf("rollback: %w", err)
		}
		ts.Status = StatusRolledBack
		log.Warnw("rolled back",
			"failed", ts.InsertFailed,
			"attempted", len(recs),
			"ratio", ratio,
			"max_ratio", l.opts.MaxFailureRatio)
		return ts, fmt.Errorf("%w: %d of %d (%.3f > %.3f)",
			ErrFailureRatio, ts.InsertFailed, len(recs), ratio, l.opts.MaxFailureRatio)
	}

	if err := batch.Commit(); err != nil {
		return ts, fmt.Errorf("commit: %w", err)
	}
	ts.Status = StatusCommitted
	ts.Committed = true
	log.Infow("committed", "inserted", ts.Inserted, "failed", ts.InsertFailed)
	return ts, nil
}

func failureRatio(failed, attempted int) float64 {
	if attempted == 0 {
		return 0
	}
	return float64(failed) / float64(attempted)
}
