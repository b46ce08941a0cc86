package reconcile

import "fmt"

// Violation is a broken invariant found by Verify.
type Violation struct {
	Line       int    `json:"line"`
	Constraint string `json:"constraint"`
	Key        string `json:"key"`
	Reason     string `json:"reason"`
}

// VerifyOptions controls what Verify compares against.
type VerifyOptions struct {
	// AgainstExisting also flags keys that collide with the policy's
	// existing-key sets. Use it for a batch about to be inserted, not for
	// rows read back from the store (those rows are the existing keys).
	AgainstExisting bool
}

// Verify checks records against the invariants a reconciliation pass
// guarantees: every foreign key is a member of its set (or nil where
// nullable) and no two records share a unique or batch-scoped identity key.
func Verify(records []Record, policy Policy, refs ReferenceSets, opts VerifyOptions) []Violation {
	var out []Violation

	for _, rec := range records {
		for _, fk := range policy.ForeignKeys {
			v := rec.Fields[fk.Field]
			if v == nil {
				if !fk.Nullable {
					out = append(out, Violation{
						Line: rec.Line, Constraint: "fk:" + fk.Field, Key: fmt.Sprint(v),
						Reason: "absent non-nullable foreign key",
					})
				}
				continue
			}
			if !refs[fk.Set].Contains(v) {
				out = append(out, Violation{
					Line: rec.Line, Constraint: "fk:" + fk.Field, Key: fmt.Sprint(v),
					Reason: fmt.Sprintf("not a member of %s", fk.Set),
				})
			}
		}
	}

	type keyed struct {
		name   string
		fields []string
		set    string
	}
	var constraints []keyed
	if id := policy.Identity; id != nil && id.Scope == ScopeBatch {
		constraints = append(constraints, keyed{name: "identity", fields: id.Fields, set: id.Set})
	}
	for _, u := range policy.Unique {
		constraints = append(constraints, keyed{name: "unique:" + u.Name, fields: u.Fields, set: u.Set})
	}

	for _, c := range constraints {
		var claims *ClaimSet
		if opts.AgainstExisting {
			claims = NewClaimSet(refs[c.set])
		} else {
			claims = NewClaimSet(nil)
		}
		for _, rec := range records {
			key := rec.Key(c.fields...)
			if claims.Has(key) {
				out = append(out, Violation{
					Line: rec.Line, Constraint: c.name, Key: describe(rec, c.fields),
					Reason: "duplicate key",
				})
				continue
			}
			claims.Claim(key)
		}
	}
	return out
}

func describe(rec Record, fields []string) string {
	vals := make([]any, len(fields))
	for i, f := range fields {
		vals[i] = rec.Fields[f]
	}
	if len(vals) == 1 {
		return fmt.Sprint(vals[0])
	}
	return fmt.Sprint(vals)
}
