package query

import "strings"

// FilterByTable matches entries of any of the named tables, case-insensitive.
func FilterByTable(names []string) EntryFilter {
	return func(e Entry) bool {
		table, ok := GetString(e, "table")
		return ok && matchesAny(table, names)
	}
}

// FilterByDisposition matches entries whose disposition is one of dispositions.
//
// Examples:
// - FilterByDisposition(["failed"]) keeps exhausted records and refused inserts
// - FilterByDisposition(["repaired", "skipped"]) keeps everything the loader changed or dropped
func FilterByDisposition(dispositions []string) EntryFilter {
	return func(e Entry) bool {
		d, ok := GetString(e, "disposition")
		return ok && matchesAny(d, dispositions)
	}
}

// FilterByRule matches entries where at least one of rules fired, either as
// the entry rule or as the rule of a change.
func FilterByRule(rules []string) EntryFilter {
	return func(e Entry) bool {
		for _, r := range Rules(e) {
			if matchesAny(r, rules) {
				return true
			}
		}
		return false
	}
}

// FilterByField matches repaired entries that rewrote any of fields.
func FilterByField(fields []string) EntryFilter {
	return func(e Entry) bool {
		for _, c := range GetChanges(e) {
			if matchesAny(c.Field, fields) {
				return true
			}
		}
		return false
	}
}

// FilterByStage matches entries written at the given stage.
func FilterByStage(stage string) EntryFilter {
	return func(e Entry) bool {
		s, ok := GetString(e, "stage")
		return ok && strings.EqualFold(s, stage)
	}
}

// FilterByRunID matches entries of one run. A unique prefix is enough.
func FilterByRunID(id string) EntryFilter {
	return func(e Entry) bool {
		run, ok := GetString(e, "run_id")
		return ok && strings.HasPrefix(run, id)
	}
}

func matchAll(e Entry, filters []EntryFilter) bool {
	for _, f := range filters {
		if !f(e) {
			return false
		}
	}
	return true
}
