package tables

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vaibhaw-/CareStat/internal/carestat/reconcile"
)

// Overrides adjusts the built-in policies from a YAML file:
//
//	tables:
//	  payments:
//	    foreign_keys: {appointment_id: drop}
//	  doctor_phones:
//	    unique: {doctor_phone: {max_attempts: 500}}
type Overrides struct {
	Tables map[string]TableOverride `yaml:"tables"`
}

type TableOverride struct {
	// ForeignKeys maps a field to remap, null or drop.
	ForeignKeys map[string]string         `yaml:"foreign_keys"`
	Unique      map[string]UniqueOverride `yaml:"unique"`
}

type UniqueOverride struct {
	Action         string `yaml:"action"`
	MaxAttempts    int    `yaml:"max_attempts"`
	FallbackRounds int    `yaml:"fallback_rounds"`
}

// LoadOverrides reads an overrides file. An empty path yields nil.
func LoadOverrides(path string) (*Overrides, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	return ParseOverrides(data)
}

// ParseOverrides decodes overrides, rejecting unknown keys.
func ParseOverrides(data []byte) (*Overrides, error) {
	var ov Overrides
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&ov); err != nil {
		return nil, fmt.Errorf("parse policy file: %w", err)
	}
	return &ov, nil
}

func (t *Table) apply(o TableOverride) error {
	p := &t.policy
	if len(o.ForeignKeys) > 0 {
		p.ForeignKeys = append([]reconcile.ForeignKeyRule(nil), p.ForeignKeys...)
	}
	for field, action := range o.ForeignKeys {
		a, err := reconcile.ParseFKAction(action)
		if err != nil {
			return err
		}
		found := false
		for i := range p.ForeignKeys {
			if p.ForeignKeys[i].Field == field {
				p.ForeignKeys[i].Action = a
				found = true
			}
		}
		if !found {
			return fmt.Errorf("%w: no foreign key %q", reconcile.ErrInvalidPolicy, field)
		}
	}

	if len(o.Unique) > 0 {
		p.Unique = append([]reconcile.UniqueRule(nil), p.Unique...)
	}
	for name, uo := range o.Unique {
		found := false
		for i := range p.Unique {
			u := &p.Unique[i]
			if u.Name != name {
				continue
			}
			found = true
			if uo.Action != "" {
				a, err := reconcile.ParseCollisionAction(uo.Action)
				if err != nil {
					return err
				}
				u.Action = a
			}
			if uo.MaxAttempts > 0 {
				u.MaxAttempts = uo.MaxAttempts
			}
			if uo.FallbackRounds > 0 {
				if u.Fallback == nil {
					return fmt.Errorf("%w: unique rule %q has no fallback", reconcile.ErrInvalidPolicy, name)
				}
				fb := *u.Fallback
				fb.Rounds = uo.FallbackRounds
				u.Fallback = &fb
			}
		}
		if !found {
			return fmt.Errorf("%w: no unique rule %q", reconcile.ErrInvalidPolicy, name)
		}
	}
	return nil
}
