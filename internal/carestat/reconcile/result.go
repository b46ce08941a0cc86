package reconcile

import "errors"

// Disposition is the outcome of one candidate record.
type Disposition string

const (
	Accepted Disposition = "accepted"
	Repaired Disposition = "repaired"
	Skipped  Disposition = "skipped"
	Failed   Disposition = "failed"
)

// Rule names the repair rule that fired.
type Rule string

const (
	RuleIdentityExists   Rule = "identity_exists"
	RuleIdentityReassign Rule = "identity_reassign"
	RuleFKRemap          Rule = "fk_remap"
	RuleFKNull           Rule = "fk_null"
	RuleFKDrop           Rule = "fk_drop"
	RuleUniqueSkip       Rule = "unique_skip"
	RuleUniqueSuffix     Rule = "unique_suffix"
	RuleUniqueRegenerate Rule = "unique_regenerate"
	RuleUniqueFallback   Rule = "unique_fallback"
	RuleCheckRepair      Rule = "check_repair"
)

// Change records one field rewrite.
type Change struct {
	Field  string `json:"field"`
	Rule   Rule   `json:"rule"`
	Before any    `json:"before"`
	After  any    `json:"after"`
}

// Entry is the repair log line of one candidate record.
type Entry struct {
	Line        int         `json:"line"`
	Disposition Disposition `json:"disposition"`
	Rule        Rule        `json:"rule,omitempty"`
	Reason      string      `json:"reason,omitempty"`
	Changes     []Change    `json:"changes,omitempty"`
	Err         error       `json:"-"`
}

func (e *Entry) change(field string, rule Rule, before, after any) {
	e.Changes = append(e.Changes, Change{Field: field, Rule: rule, Before: before, After: after})
}

// Counts tallies dispositions. Accepted includes Repaired.
type Counts struct {
	Input    int `json:"input"`
	Accepted int `json:"accepted"`
	Repaired int `json:"repaired"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// Result is the output of a reconciliation pass.
type Result struct {
	Accepted []Record
	Log      []Entry
	Counts   Counts
}

func (r *Result) add(e Entry, rec *Record) {
	r.Counts.Input++
	r.Log = append(r.Log, e)
	switch e.Disposition {
	case Accepted, Repaired:
		r.Counts.Accepted++
		if e.Disposition == Repaired {
			r.Counts.Repaired++
		}
		r.Accepted = append(r.Accepted, *rec)
	case Skipped:
		r.Counts.Skipped++
	case Failed:
		r.Counts.Failed++
	}
}

// Failures returns the log entries of failed records.
func (r *Result) Failures() []Entry {
	var out []Entry
	for _, e := range r.Log {
		if e.Disposition == Failed {
			out = append(out, e)
		}
	}
	return out
}

// Err joins the per-record failure errors, nil when nothing failed.
func (r *Result) Err() error {
	var errs []error
	for _, e := range r.Failures() {
		errs = append(errs, e.Err)
	}
	return errors.Join(errs...)
}
