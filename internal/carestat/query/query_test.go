package query

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func repaired(table string, changes ...[2]string) Entry {
	var cs []any
	for _, c := range changes {
		cs = append(cs, map[string]any{"field": c[0], "rule": c[1], "before": "x", "after": "y"})
	}
	return Entry{"run_id": "7f1c", "table": table, "stage": "reconcile", "disposition": "repaired", "changes": cs}
}

func TestFilters(t *testing.T) {
	phone := repaired("doctor_phones", [2]string{"phone", "unique_regenerate"}, [2]string{"doctor_id", "fk_remap"})
	skip := Entry{"table": "visits", "stage": "reconcile", "disposition": "skipped", "rule": "identity_exists"}
	refused := Entry{"table": "visits", "stage": "insert", "disposition": "failed"}

	tests := []struct {
		name   string
		filter EntryFilter
		entry  Entry
		want   bool
	}{
		{"table match", FilterByTable([]string{"DOCTOR_PHONES"}), phone, true},
		{"table miss", FilterByTable([]string{"visits"}), phone, false},
		{"disposition", FilterByDisposition([]string{"skipped", "failed"}), skip, true},
		{"disposition miss", FilterByDisposition([]string{"repaired"}), refused, false},
		{"rule on change", FilterByRule([]string{"fk_remap"}), phone, true},
		{"rule on entry", FilterByRule([]string{"identity_exists"}), skip, true},
		{"rule miss", FilterByRule([]string{"fk_null"}), phone, false},
		{"field", FilterByField([]string{"phone"}), phone, true},
		{"field without changes", FilterByField([]string{"phone"}), skip, false},
		{"stage", FilterByStage("insert"), refused, true},
		{"stage miss", FilterByStage("insert"), skip, false},
		{"run prefix", FilterByRunID("7f"), phone, true},
		{"run missing", FilterByRunID("7f"), skip, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter(tt.entry); got != tt.want {
				t.Errorf("filter = %v, want %v", got, tt.want)
			}
		})
	}
}

func writeLog(t *testing.T, lines ...any) string {
	t.Helper()
	var buf bytes.Buffer
	for _, l := range lines {
		switch v := l.(type) {
		case string:
			buf.WriteString(v + "\n")
		default:
			b, err := json.Marshal(v)
			if err != nil {
				t.Fatal(err)
			}
			buf.Write(append(b, '\n'))
		}
	}
	path := filepath.Join(t.TempDir(), "repair.ndjson")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunQuery_Filter(t *testing.T) {
	path := writeLog(t,
		repaired("doctor_phones", [2]string{"phone", "unique_regenerate"}),
		Entry{"table": "doctor_phones", "disposition": "accepted"},
		"{not json",
		"",
		repaired("departments", [2]string{"department_code", "unique_suffix"}),
	)

	var out bytes.Buffer
	stats, err := RunQuery(Options{InputFiles: []string{path}, Dispositions: []string{"repaired"}}, &out)
	if err != nil {
		t.Fatalf("RunQuery: %v", err)
	}
	if stats.InputEntries != 3 || stats.MatchedEntries != 2 || stats.ErrorEntries != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d output lines, want 2", len(lines))
	}
	if !strings.Contains(lines[1], "departments") {
		t.Errorf("second match = %s", lines[1])
	}
}

func TestRunQuery_SummaryAndLimit(t *testing.T) {
	path := writeLog(t,
		repaired("doctor_phones", [2]string{"phone", "unique_regenerate"}),
		repaired("doctor_phones", [2]string{"phone", "unique_regenerate"}, [2]string{"doctor_id", "fk_remap"}),
		repaired("departments", [2]string{"department_code", "unique_suffix"}),
	)

	var out bytes.Buffer
	stats, err := RunQuery(Options{InputFiles: []string{path}, Summary: true, Limit: 2}, &out)
	if err != nil {
		t.Fatalf("RunQuery: %v", err)
	}
	if stats.MatchedEntries != 2 {
		t.Errorf("matched = %d, want 2", stats.MatchedEntries)
	}
	if stats.ByRule["unique_regenerate"] != 2 || stats.ByField["doctor_id"] != 1 {
		t.Errorf("breakdown = %v %v", stats.ByRule, stats.ByField)
	}
	s := out.String()
	if strings.Contains(s, `"run_id"`) {
		t.Error("summary mode must not print entries")
	}
	for _, want := range []string{"Matched: 2", "unique_regenerate", "doctor_phones"} {
		if !strings.Contains(s, want) {
			t.Errorf("summary missing %q:\n%s", want, s)
		}
	}
}

func TestRunQuery_MissingFileCounted(t *testing.T) {
	var out bytes.Buffer
	stats, err := RunQuery(Options{InputFiles: []string{filepath.Join(t.TempDir(), "nope")}}, &out)
	if err != nil {
		t.Fatalf("RunQuery: %v", err)
	}
	if stats.ErrorEntries != 1 {
		t.Errorf("errors = %d, want 1", stats.ErrorEntries)
	}
}

func TestSortedCounts(t *testing.T) {
	got := sortedCounts(map[string]int{"b": 2, "a": 2, "c": 5})
	want := []count{{"c", 5}, {"a", 2}, {"b", 2}}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sortedCounts = %v, want %v", got, want)
		}
	}
}
