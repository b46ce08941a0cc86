package main

import (
	"github.com/vaibhaw-/CareStat/internal/carestat/config"
	"github.com/vaibhaw-/CareStat/internal/carestat/tables"
)

// selectTables resolves --table names against the catalogue, overrides
// applied. Tables come back in load order; no names means all of them.
func selectTables(cfg *config.Config, names []string) ([]*tables.Table, error) {
	ov, err := tables.LoadOverrides(cfg.Load.PolicyFile)
	if err != nil {
		return nil, err
	}
	reg, err := tables.NewRegistry(ov)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return reg.All(), nil
	}
	want := map[string]bool{}
	for _, n := range names {
		t, err := reg.Lookup(n)
		if err != nil {
			return nil, err
		}
		want[t.Name] = true
	}
	var out []*tables.Table
	for _, t := range reg.All() {
		if want[t.Name] {
			out = append(out, t)
		}
	}
	return out, nil
}
