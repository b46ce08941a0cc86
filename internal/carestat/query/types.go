package query

// Entry is one repair log line as a generic map. Reading into a map keeps
// every field, including ones written by older or newer loader versions.
//
// Fields written by the loader:
// - run_id, table, stage ("reconcile" or "insert")
// - line, disposition, rule, reason, error
// - changes: array of {field, rule, before, after}
type Entry = map[string]any

// Options contains the CLI flags of the report command.
type Options struct {
	InputFiles []string // repair log file(s), empty means stdin
	OutputFile string   // output file path, empty means stdout

	Tables       []string // keep entries of these tables
	Dispositions []string // accepted, repaired, skipped, failed
	Rules        []string // keep entries where any of these rules fired
	Fields       []string // keep entries that changed any of these fields
	Stage        string   // reconcile or insert
	RunID        string   // keep one run

	Summary bool // print counts instead of entries
	Limit   int  // stop after this many matches (0 = no limit)
}

// EntryFilter reports whether an entry matches. Filters are combined with
// AND logic; a missing field never matches.
type EntryFilter func(Entry) bool

// EntryResult carries one decoded line or the error that replaced it.
type EntryResult struct {
	Entry Entry
	Err   error
}
