package query

import (
	"fmt"
	"io"
	"sort"

	"github.com/jedib0t/go-pretty/table"
	"github.com/jedib0t/go-pretty/text"
)

// Stats counts processed entries and breaks the matched ones down.
type Stats struct {
	InputEntries   int            // valid entries read
	MatchedEntries int            // entries that passed every filter
	ErrorEntries   int            // unreadable files and malformed lines
	ByTable        map[string]int // matched entries per table
	ByDisposition  map[string]int // matched entries per disposition
	ByRule         map[string]int // rule firings, an entry may count more than once
	ByField        map[string]int // field rewrites
	Runs           map[string]int // matched entries per run id
}

func NewStats() *Stats {
	return &Stats{
		ByTable:       make(map[string]int),
		ByDisposition: make(map[string]int),
		ByRule:        make(map[string]int),
		ByField:       make(map[string]int),
		Runs:          make(map[string]int),
	}
}

func (s *Stats) IncrementInput() {
	s.InputEntries++
}

func (s *Stats) IncrementError() {
	s.ErrorEntries++
}

// IncrementMatched counts e in every breakdown.
func (s *Stats) IncrementMatched(e Entry) {
	s.MatchedEntries++
	if t, ok := GetString(e, "table"); ok {
		s.ByTable[t]++
	}
	if d, ok := GetString(e, "disposition"); ok {
		s.ByDisposition[d]++
	}
	if r, ok := GetString(e, "run_id"); ok {
		s.Runs[r]++
	}
	for _, r := range Rules(e) {
		s.ByRule[r]++
	}
	for _, c := range GetChanges(e) {
		if c.Field != "" {
			s.ByField[c.Field]++
		}
	}
}

// PrintSummary renders the totals and one table per non-empty breakdown.
// Rows are sorted by count (descending) then name.
func (s *Stats) PrintSummary(w io.Writer) {
	fmt.Fprintf(w, "Summary:\n")
	fmt.Fprintf(w, "  Entries read: %d\n", s.InputEntries)
	fmt.Fprintf(w, "  Matched: %d\n", s.MatchedEntries)
	if s.ErrorEntries > 0 {
		fmt.Fprintf(w, "  Unreadable: %d\n", s.ErrorEntries)
	}
	if len(s.Runs) > 0 {
		fmt.Fprintf(w, "  Runs: %d\n", len(s.Runs))
	}
	fmt.Fprintln(w)

	for _, b := range []struct {
		title string
		m     map[string]int
	}{
		{"table", s.ByTable},
		{"disposition", s.ByDisposition},
		{"rule", s.ByRule},
		{"field", s.ByField},
	} {
		if len(b.m) == 0 {
			continue
		}
		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.Style().Format.Header = text.FormatDefault
		t.AppendHeader(table.Row{b.title, "count"})
		for _, p := range sortedCounts(b.m) {
			t.AppendRow(table.Row{p.key, p.value})
		}
		t.Render()
		fmt.Fprintln(w)
	}
}

type count struct {
	key   string
	value int
}

func sortedCounts(m map[string]int) []count {
	pairs := make([]count, 0, len(m))
	for k, v := range m {
		pairs = append(pairs, count{k, v})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].value == pairs[j].value {
			return pairs[i].key < pairs[j].key
		}
		return pairs[i].value > pairs[j].value
	})
	return pairs
}

// GetSummaryMap returns the statistics for programmatic access.
func (s *Stats) GetSummaryMap() map[string]any {
	return map[string]any{
		"entries_read":   s.InputEntries,
		"matched":        s.MatchedEntries,
		"unreadable":     s.ErrorEntries,
		"by_table":       s.ByTable,
		"by_disposition": s.ByDisposition,
		"by_rule":        s.ByRule,
		"by_field":       s.ByField,
		"runs":           len(s.Runs),
	}
}
