package runner

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/vaibhaw-/CareStat/internal/carestat/ingest"
	"github.com/vaibhaw-/CareStat/internal/carestat/reconcile"
)

// Stages of a repair log line.
const (
	StageReconcile = "reconcile"
	StageInsert    = "insert"
)

// RepairLine is one line of the NDJSON repair log.
type RepairLine struct {
	RunID string `json:"run_id"`
	Table string `json:"table"`
	Stage string `json:"stage"`
	reconcile.Entry
	Error string `json:"error,omitempty"`
}

// RejectLine is one line of the NDJSON reject file.
type RejectLine struct {
	RunID string `json:"run_id"`
	ingest.Malformed
}

// TableSummary is the outcome of loading one table.
type TableSummary struct {
	Table        string           `json:"table"`
	Input        string           `json:"input"`
	Status       string           `json:"status"`
	Counts       reconcile.Counts `json:"counts"`
	Malformed    int              `json:"malformed"`
	Inserted     int              `json:"inserted"`
	InsertFailed int              `json:"insert_failed"`
	Committed    bool             `json:"committed"`
	Error        string           `json:"error,omitempty"`
	DurationMS   int64            `json:"duration_ms"`
}

// Table statuses.
const (
	StatusCommitted  = "committed"
	StatusRolledBack = "rolled_back"
	StatusDryRun     = "dry_run"
	StatusAborted    = "aborted"
)

// RunSummary is appended to the run log once per load.
type RunSummary struct {
	RunID      string         `json:"run_id"`
	Timestamp  string         `json:"timestamp"`
	DryRun     bool           `json:"dry_run"`
	Seed       int64          `json:"seed"`
	RepairLog  string         `json:"repair_log,omitempty"`
	RejectFile string         `json:"reject_file,omitempty"`
	Tables     []TableSummary `json:"tables"`
}

func appendRunLog(path string, summary RunSummary) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	return enc.Encode(summary)
}

// openAppend opens path for appending, returns nil if path is empty
func openAppend(path string) (io.WriteCloser, error) {
	if path == "" {
		return nil, nil
	}
	return os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
}

// ndjson encodes lines to an optional writer.
type ndjson struct {
	enc *json.Encoder
}

func newNDJSON(w io.Writer) *ndjson {
	if w == nil {
		return &ndjson{}
	}
	return &ndjson{enc: json.NewEncoder(w)}
}

func (n *ndjson) encode(v any) error {
	if n.enc == nil {
		return nil
	}
	return n.enc.Encode(v)
}

func since(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}
