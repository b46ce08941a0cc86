package query

import "strings"

// GetString returns a string field, ok is false when it is absent, nil or
// not a string.
func GetString(e Entry, key string) (string, bool) {
	if v, ok := e[key]; ok && v != nil {
		if s, ok := v.(string); ok {
			return s, true
		}
	}
	return "", false
}

// Change is one field rewrite of a repaired entry.
type Change struct {
	Field string
	Rule  string
}

// GetChanges extracts the field/rule pairs of the "changes" array. Items
// that are not objects are ignored.
func GetChanges(e Entry) []Change {
	raw, ok := e["changes"].([]any)
	if !ok {
		return nil
	}
	out := make([]Change, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		field, _ := GetString(m, "field")
		rule, _ := GetString(m, "rule")
		out = append(out, Change{Field: field, Rule: rule})
	}
	return out
}

// Rules lists the rules that fired for e: the entry rule (set on skips and
// failures) followed by the rule of each change.
func Rules(e Entry) []string {
	var out []string
	if r, ok := GetString(e, "rule"); ok && r != "" {
		out = append(out, r)
	}
	for _, c := range GetChanges(e) {
		if c.Rule != "" {
			out = append(out, c.Rule)
		}
	}
	return out
}

func matchesAny(target string, candidates []string) bool {
	for _, c := range candidates {
		if strings.EqualFold(target, c) {
			return true
		}
	}
	return false
}
