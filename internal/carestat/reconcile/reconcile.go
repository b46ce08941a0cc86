// Package reconcile turns a batch of candidate rows into a batch that can be
// inserted without violating the target's identity, foreign key and
// uniqueness constraints.
//
// A pass walks the candidates strictly in source order. Repairs of later
// records depend on the keys claimed by earlier ones, so the order is part
// of the contract: with a fixed seed, the same input always yields the same
// accepted records and the same repair log.
package reconcile

import (
	"fmt"
)

// Options tunes a pass.
type Options struct {
	// Seed fixes every random repair. Zero means unseeded.
	Seed int64
}

// Reconcile runs one pass over candidates. Per-record failures, such as an
// exhausted regeneration domain, are reported in the log with the Failed
// disposition. A precondition failure (invalid policy, unknown or empty
// reference set needed for a remap) aborts the pass and returns no result.
func Reconcile(candidates []Record, refs ReferenceSets, policy Policy, opts Options) (*Result, error) {
	if err := policy.Validate(refs); err != nil {
		return nil, err
	}

	r := newReconciler(refs, policy, opts)
	res := &Result{Accepted: make([]Record, 0, len(candidates))}
	for _, cand := range candidates {
		entry, rec, err := r.process(cand)
		if err != nil {
			return nil, fmt.Errorf("reconcile %s line %d: %w", policy.Table, cand.Line, err)
		}
		res.add(entry, rec)
	}
	return res, nil
}

type reconciler struct {
	policy   Policy
	refs     ReferenceSets
	rng      *Rand
	identity *ClaimSet
	nextID   int64
	unique   []*ClaimSet
}

func newReconciler(refs ReferenceSets, policy Policy, opts Options) *reconciler {
	r := &reconciler{
		policy: policy,
		refs:   refs,
		rng:    NewRand(opts.Seed),
		unique: make([]*ClaimSet, len(policy.Unique)),
	}
	if id := policy.Identity; id != nil {
		existing := refs[id.Set]
		r.identity = NewClaimSet(existing)
		if max, ok := existing.MaxInt(); ok {
			r.nextID = max
		}
	}
	for i, u := range policy.Unique {
		r.unique[i] = NewClaimSet(refs[u.Set])
	}
	return r
}

// advance moves the counter up to a claimed integer identity, so the next
// reassigned id lies past every id known so far.
func (r *reconciler) advance(id any) {
	if n, ok := id.(int64); ok && n > r.nextID {
		r.nextID = n
	}
}

// allocate hands out the next identity that is not yet claimed.
func (r *reconciler) allocate() int64 {
	for {
		r.nextID++
		if !r.identity.Has(KeyOf(r.nextID)) {
			return r.nextID
		}
	}
}

// process returns the log entry of one candidate and, when it is accepted,
// the repaired record. A non-nil error aborts the pass.
func (r *reconciler) process(cand Record) (Entry, *Record, error) {
	rec := cand.Clone()
	entry := Entry{Line: cand.Line, Disposition: Accepted}

	var pending []func()

	// 1. existence
	if id := r.policy.Identity; id != nil {
		key := rec.Key(id.Fields...)
		missing := rec.missing(id.Fields)
		// an incomplete store-scoped key is left for the unique rules to fill
		incomplete := missing && id.Scope == ScopeStore
		if !incomplete && (missing || r.identity.Has(key)) {
			switch {
			case id.Action == IdentityReassign:
				field := id.Fields[0]
				newID := r.allocate()
				entry.change(field, RuleIdentityReassign, rec.Fields[field], newID)
				rec.Fields[field] = newID
				key = KeyOf(newID)
			case missing:
				return failed(entry, RuleIdentityExists, fmt.Errorf("%w: %v", ErrMissingField, id.Fields)), nil, nil
			default:
				entry.Disposition = Skipped
				entry.Rule = RuleIdentityExists
				entry.Reason = fmt.Sprintf("identity %v already present", id.Fields)
				return entry, nil, nil
			}
		}
		if id.Scope == ScopeBatch {
			var claimed any
			if len(id.Fields) == 1 {
				claimed = rec.Fields[id.Fields[0]]
			}
			pending = append(pending, func() {
				r.identity.Claim(key)
				r.advance(claimed)
			})
		}
	}

	// 2. foreign keys
	for _, fk := range r.policy.ForeignKeys {
		v := rec.Fields[fk.Field]
		if v == nil && fk.Nullable {
			continue
		}
		set := r.refs[fk.Set]
		if v != nil && set.Contains(v) {
			continue
		}
		switch fk.Action {
		case FKRemap:
			nv, err := FromSet(fk.Set).Generate(r.rng, r.refs)
			if err != nil {
				return entry, nil, fmt.Errorf("remap %s: %w", fk.Field, err)
			}
			entry.change(fk.Field, RuleFKRemap, v, nv)
			rec.Fields[fk.Field] = nv
		case FKNull:
			entry.change(fk.Field, RuleFKNull, v, nil)
			rec.Fields[fk.Field] = nil
		case FKDrop:
			entry.Disposition = Skipped
			entry.Rule = RuleFKDrop
			entry.Reason = fmt.Sprintf("%s=%v not in %s", fk.Field, v, fk.Set)
			return entry, nil, nil
		}
	}

	// 3. uniqueness
	for i, u := range r.policy.Unique {
		key, outcome, err := r.resolve(i, u, &rec, &entry)
		if err != nil {
			return entry, nil, err
		}
		switch outcome {
		case outcomeSkip:
			return entry, nil, nil
		case outcomeFail:
			return entry, nil, nil
		}
		claims := r.unique[i]
		pending = append(pending, func() { claims.Claim(key) })
	}

	// 4. check constraints
	for _, c := range r.policy.Checks {
		v := rec.Fields[c.Field]
		if c.Valid(v) {
			continue
		}
		nv, err := c.Repair.Generate(r.rng, r.refs)
		if err != nil {
			return entry, nil, fmt.Errorf("repair %s: %w", c.Field, err)
		}
		entry.change(c.Field, RuleCheckRepair, v, nv)
		rec.Fields[c.Field] = nv
	}

	for _, claim := range pending {
		claim()
	}
	if len(entry.Changes) > 0 {
		entry.Disposition = Repaired
	}
	return entry, &rec, nil
}

type outcome int

const (
	outcomeOK outcome = iota
	outcomeSkip
	outcomeFail
)

func failed(e Entry, rule Rule, err error) Entry {
	e.Disposition = Failed
	e.Rule = rule
	e.Err = err
	e.Reason = err.Error()
	return e
}

func (r *reconciler) resolve(i int, u UniqueRule, rec *Record, entry *Entry) (Key, outcome, error) {
	claims := r.unique[i]
	key := rec.Key(u.Fields...)
	absent := rec.Fields[u.Vary] == nil && u.Action == CollisionRegenerate
	if !absent && !claims.Has(key) {
		return key, outcomeOK, nil
	}

	switch u.Action {
	case CollisionSuffix:
		orig := rec.Fields[u.Vary]
		if orig == nil {
			*entry = failed(*entry, RuleUniqueSuffix, fmt.Errorf("%w: %s", ErrMissingField, u.Vary))
			return "", outcomeFail, nil
		}
		base := fmt.Sprint(orig)
		for n := 1; ; n++ {
			candidate := fmt.Sprintf("%s_%d", base, n)
			rec.Fields[u.Vary] = candidate
			key = rec.Key(u.Fields...)
			if !claims.Has(key) {
				entry.change(u.Vary, RuleUniqueSuffix, orig, candidate)
				return key, outcomeOK, nil
			}
		}

	case CollisionRegenerate:
		return r.regenerate(claims, u, rec, entry)

	default:
		entry.Disposition = Skipped
		entry.Rule = RuleUniqueSkip
		entry.Reason = fmt.Sprintf("%s key %v already claimed", u.Name, u.Fields)
		return "", outcomeSkip, nil
	}
}

// regenerate draws new values for u.Vary until the key is unclaimed. When
// the inner loop gives up and a fallback exists, the fallback field is
// varied and the inner loop runs again, up to Fallback.Rounds times.
func (r *reconciler) regenerate(claims *ClaimSet, u UniqueRule, rec *Record, entry *Entry) (Key, outcome, error) {
	origVary := rec.Fields[u.Vary]
	var origFallback any
	if u.Fallback != nil {
		origFallback = rec.Fields[u.Fallback.Field]
	}

	accept := func() (Key, outcome, error) {
		if KeyOf(rec.Fields[u.Vary]) != KeyOf(origVary) {
			entry.change(u.Vary, RuleUniqueRegenerate, origVary, rec.Fields[u.Vary])
		}
		if u.Fallback != nil && KeyOf(rec.Fields[u.Fallback.Field]) != KeyOf(origFallback) {
			entry.change(u.Fallback.Field, RuleUniqueFallback, origFallback, rec.Fields[u.Fallback.Field])
		}
		return rec.Key(u.Fields...), outcomeOK, nil
	}

	attempts := 0
	for round := 0; ; round++ {
		for a := 0; a < u.maxAttempts(); a++ {
			v, err := u.Generator.Generate(r.rng, r.refs)
			if err != nil {
				return "", outcomeFail, fmt.Errorf("regenerate %s: %w", u.Vary, err)
			}
			attempts++
			rec.Fields[u.Vary] = v
			if !claims.Has(rec.Key(u.Fields...)) {
				return accept()
			}
		}
		if u.Fallback == nil || round >= u.Fallback.rounds() {
			break
		}
		fv, err := u.Fallback.Generator.Generate(r.rng, r.refs)
		if err != nil {
			return "", outcomeFail, fmt.Errorf("fallback %s: %w", u.Fallback.Field, err)
		}
		rec.Fields[u.Fallback.Field] = fv
	}

	err := fmt.Errorf("%w: %s after %d attempts", ErrDomainExhausted, u.Name, attempts)
	*entry = failed(*entry, RuleUniqueRegenerate, err)
	return "", outcomeFail, nil
}
