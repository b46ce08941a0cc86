package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(line int, kv ...any) Record {
	fields := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields[kv[i].(string)] = kv[i+1]
	}
	return NewRecord(line, fields)
}

func assertInvariants(t *testing.T, res *Result, policy Policy, refs ReferenceSets) {
	t.Helper()
	violations := Verify(res.Accepted, policy, refs, VerifyOptions{AgainstExisting: true})
	assert.Empty(t, violations, "accepted batch breaks invariants")
}

func TestReconcile_SuffixCompositeKey(t *testing.T) {
	refs := ReferenceSets{"pairs": NewTupleSet("pairs")}
	policy := Policy{
		Table: "pairs",
		Unique: []UniqueRule{{
			Name: "pair", Fields: []string{"a", "b"}, Set: "pairs",
			Action: CollisionSuffix, Vary: "b",
		}},
	}

	res, err := Reconcile([]Record{
		rec(1, "a", int64(1), "b", "5"),
		rec(2, "a", int64(1), "b", "5"),
	}, refs, policy, Options{Seed: 1})
	require.NoError(t, err)

	require.Len(t, res.Accepted, 2)
	assert.Equal(t, "5", res.Accepted[0].Get("b"))
	assert.Equal(t, "5_1", res.Accepted[1].Get("b"))
	assert.Equal(t, Accepted, res.Log[0].Disposition)
	assert.Equal(t, Repaired, res.Log[1].Disposition)
	require.Len(t, res.Log[1].Changes, 1)
	assert.Equal(t, RuleUniqueSuffix, res.Log[1].Changes[0].Rule)
	assert.Equal(t, Counts{Input: 2, Accepted: 2, Repaired: 1}, res.Counts)
	assertInvariants(t, res, policy, refs)
}

func TestReconcile_SuffixSkipsClaimedSuffixes(t *testing.T) {
	refs := ReferenceSets{"codes": NewReferenceSet("codes", "CARD", "CARD_1")}
	policy := Policy{
		Table: "departments",
		Unique: []UniqueRule{{
			Name: "code", Fields: []string{"code"}, Set: "codes",
			Action: CollisionSuffix, Vary: "code",
		}},
	}

	res, err := Reconcile([]Record{rec(1, "code", "CARD")}, refs, policy, Options{Seed: 1})
	require.NoError(t, err)
	require.Len(t, res.Accepted, 1)
	assert.Equal(t, "CARD_2", res.Accepted[0].Get("code"))
}

func TestReconcile_RemapForeignKey(t *testing.T) {
	refs := ReferenceSets{"doctors": NewReferenceSet("doctors", int64(1), int64(2), int64(3))}
	policy := Policy{
		Table:       "appointments",
		ForeignKeys: []ForeignKeyRule{{Field: "doctor_id", Set: "doctors", Action: FKRemap}},
	}
	input := []Record{rec(1, "doctor_id", int64(999)), rec(2, "doctor_id", int64(2))}

	first, err := Reconcile(input, refs, policy, Options{Seed: 42})
	require.NoError(t, err)
	second, err := Reconcile(input, refs, policy, Options{Seed: 42})
	require.NoError(t, err)

	require.Len(t, first.Accepted, 2)
	assert.Contains(t, []any{int64(1), int64(2), int64(3)}, first.Accepted[0].Get("doctor_id"))
	assert.Equal(t, int64(2), first.Accepted[1].Get("doctor_id"))
	assert.Equal(t, RuleFKRemap, first.Log[0].Changes[0].Rule)
	assert.Equal(t, int64(999), first.Log[0].Changes[0].Before)
	assert.Equal(t, first, second, "same seed must yield the same pass")
	assertInvariants(t, first, policy, refs)

	// the input batch is not mutated
	assert.Equal(t, int64(999), input[0].Get("doctor_id"))
}

func TestReconcile_EmptyReferenceSetAborts(t *testing.T) {
	refs := ReferenceSets{"doctors": NewReferenceSet("doctors")}
	policy := Policy{
		Table:       "appointments",
		ForeignKeys: []ForeignKeyRule{{Field: "doctor_id", Set: "doctors", Action: FKRemap}},
	}

	res, err := Reconcile([]Record{rec(1, "doctor_id", int64(7))}, refs, policy, Options{Seed: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyReferenceSet)
	assert.True(t, IsPrecondition(err))
	assert.Nil(t, res)
}

func TestReconcile_EmptySetUnusedIsFine(t *testing.T) {
	refs := ReferenceSets{"doctors": NewReferenceSet("doctors")}
	policy := Policy{
		Table: "appointments",
		ForeignKeys: []ForeignKeyRule{{
			Field: "doctor_id", Set: "doctors", Action: FKRemap, Nullable: true,
		}},
	}

	res, err := Reconcile([]Record{rec(1, "doctor_id", nil)}, refs, policy, Options{Seed: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Counts.Accepted)
}

func TestReconcile_UnknownSetIsPrecondition(t *testing.T) {
	policy := Policy{
		Table:       "visits",
		ForeignKeys: []ForeignKeyRule{{Field: "patient_id", Set: "patients", Action: FKRemap}},
	}
	res, err := Reconcile(nil, ReferenceSets{}, policy, Options{})
	assert.ErrorIs(t, err, ErrUnknownReferenceSet)
	assert.Nil(t, res)
}

func TestReconcile_DomainExhausted(t *testing.T) {
	refs := ReferenceSets{"phones": NewTupleSet("phones")}
	policy := Policy{
		Table: "doctor_phones",
		Unique: []UniqueRule{{
			Name: "doctor_phone", Fields: []string{"doctor_id", "phone"}, Set: "phones",
			Action: CollisionRegenerate, Vary: "phone",
			Generator: OneOf{"01000000000"}, MaxAttempts: 20,
		}},
	}

	res, err := Reconcile([]Record{
		rec(1, "doctor_id", int64(1), "phone", nil),
		rec(2, "doctor_id", int64(1), "phone", nil),
	}, refs, policy, Options{Seed: 3})
	require.NoError(t, err)

	require.Len(t, res.Accepted, 1)
	assert.Equal(t, "01000000000", res.Accepted[0].Get("phone"))
	assert.Equal(t, Failed, res.Log[1].Disposition)
	assert.ErrorIs(t, res.Log[1].Err, ErrDomainExhausted)
	assert.ErrorIs(t, res.Err(), ErrDomainExhausted)
	assert.Equal(t, 1, res.Counts.Failed)
	assert.Len(t, res.Failures(), 1)
}

func TestReconcile_TwoLevelFallback(t *testing.T) {
	refs := ReferenceSets{
		"doctors":     NewReferenceSet("doctors", int64(1), int64(2)),
		"departments": NewReferenceSet("departments", int64(10)),
		"assignments": NewTupleSet("assignments", []any{int64(1), int64(10)}),
	}
	policy := Policy{
		Table: "doctor_department",
		ForeignKeys: []ForeignKeyRule{
			{Field: "doctor_id", Set: "doctors", Action: FKRemap},
			{Field: "department_id", Set: "departments", Action: FKRemap},
		},
		Unique: []UniqueRule{{
			Name: "assignment", Fields: []string{"doctor_id", "department_id"}, Set: "assignments",
			Action: CollisionRegenerate, Vary: "department_id",
			Generator: FromSet("departments"), MaxAttempts: 5,
			Fallback: &Fallback{Field: "doctor_id", Generator: FromSet("doctors"), Rounds: 64},
		}},
	}

	res, err := Reconcile([]Record{
		rec(1, "doctor_id", int64(1), "department_id", int64(10)),
		rec(2, "doctor_id", int64(1), "department_id", int64(10)),
	}, refs, policy, Options{Seed: 11})
	require.NoError(t, err)

	require.Len(t, res.Accepted, 1)
	assert.Equal(t, int64(2), res.Accepted[0].Get("doctor_id"))
	assert.Equal(t, int64(10), res.Accepted[0].Get("department_id"))
	require.Len(t, res.Log[0].Changes, 1)
	assert.Equal(t, RuleUniqueFallback, res.Log[0].Changes[0].Rule)

	// both pairs of the domain are now taken
	assert.Equal(t, Failed, res.Log[1].Disposition)
	assert.ErrorIs(t, res.Log[1].Err, ErrDomainExhausted)
	assertInvariants(t, res, policy, refs)
}

func TestReconcile_IdentitySkip(t *testing.T) {
	refs := ReferenceSets{"doctor_ids": NewReferenceSet("doctor_ids", int64(1), int64(2))}
	policy := Policy{
		Table:    "doctors",
		Identity: &IdentityRule{Fields: []string{"doctor_id"}, Set: "doctor_ids"},
	}

	res, err := Reconcile([]Record{
		rec(1, "doctor_id", int64(1)),
		rec(2, "doctor_id", int64(3)),
		rec(3, "doctor_id", int64(3)),
		rec(4, "doctor_id", nil),
	}, refs, policy, Options{Seed: 1})
	require.NoError(t, err)

	got := make([]Disposition, len(res.Log))
	for i, e := range res.Log {
		got[i] = e.Disposition
	}
	assert.Equal(t, []Disposition{Skipped, Accepted, Skipped, Failed}, got)
	assert.Equal(t, RuleIdentityExists, res.Log[0].Rule)
	assert.ErrorIs(t, res.Log[3].Err, ErrMissingField)
	assertInvariants(t, res, policy, refs)
}

func TestReconcile_IdentityReassignIsMonotonic(t *testing.T) {
	refs := ReferenceSets{"department_ids": NewReferenceSet("department_ids", int64(1), int64(2))}
	policy := Policy{
		Table: "departments",
		Identity: &IdentityRule{
			Fields: []string{"department_id"}, Set: "department_ids", Action: IdentityReassign,
		},
	}

	res, err := Reconcile([]Record{
		rec(1, "department_id", int64(2)),
		rec(2, "department_id", int64(3)),
		rec(3, "department_id", int64(2)),
		rec(4, "department_id", nil),
	}, refs, policy, Options{Seed: 1})
	require.NoError(t, err)

	var ids []any
	for _, r := range res.Accepted {
		ids = append(ids, r.Get("department_id"))
	}
	assert.Equal(t, []any{int64(3), int64(4), int64(5), int64(6)}, ids)
	assert.Equal(t, 4, res.Counts.Repaired)
	assertInvariants(t, res, policy, refs)
}

func TestReconcile_ReassignGoesPastBatchIDs(t *testing.T) {
	refs := ReferenceSets{"department_ids": NewReferenceSet("department_ids", int64(1), int64(2))}
	policy := Policy{
		Table: "departments",
		Identity: &IdentityRule{
			Fields: []string{"department_id"}, Set: "department_ids", Action: IdentityReassign,
		},
	}

	res, err := Reconcile([]Record{
		rec(1, "department_id", int64(5)),
		rec(2, "department_id", int64(3)),
		rec(3, "department_id", int64(3)),
		rec(4, "department_id", int64(4)),
	}, refs, policy, Options{Seed: 1})
	require.NoError(t, err)

	var ids []any
	for _, r := range res.Accepted {
		ids = append(ids, r.Get("department_id"))
	}
	assert.Equal(t, []any{int64(5), int64(3), int64(6), int64(4)}, ids)
	assert.Equal(t, 1, res.Counts.Repaired)
	assert.Equal(t, Accepted, res.Log[3].Disposition)
	assertInvariants(t, res, policy, refs)
}

func TestReconcile_StoreScopedIdentity(t *testing.T) {
	refs := ReferenceSets{"equipment": NewTupleSet("equipment", []any{int64(1), "MRI"})}
	policy := Policy{
		Table: "department_equipment",
		Identity: &IdentityRule{
			Fields: []string{"department_id", "equipment_name"}, Set: "equipment", Scope: ScopeStore,
		},
		Unique: []UniqueRule{{
			Name: "equipment", Fields: []string{"department_id", "equipment_name"}, Set: "equipment",
			Action: CollisionSuffix, Vary: "equipment_name",
		}},
	}

	res, err := Reconcile([]Record{
		rec(1, "department_id", int64(1), "equipment_name", "MRI"),
		rec(2, "department_id", int64(1), "equipment_name", "CT"),
		rec(3, "department_id", int64(1), "equipment_name", "CT"),
	}, refs, policy, Options{Seed: 1})
	require.NoError(t, err)

	assert.Equal(t, Skipped, res.Log[0].Disposition)
	require.Len(t, res.Accepted, 2)
	assert.Equal(t, "CT", res.Accepted[0].Get("equipment_name"))
	assert.Equal(t, "CT_1", res.Accepted[1].Get("equipment_name"))
}

func TestReconcile_ForeignKeyNullAndDrop(t *testing.T) {
	refs := ReferenceSets{
		"patients":     NewReferenceSet("patients", int64(1)),
		"appointments": NewReferenceSet("appointments", int64(100)),
	}
	policy := Policy{
		Table: "payments",
		ForeignKeys: []ForeignKeyRule{
			{Field: "patient_id", Set: "patients", Action: FKDrop},
			{Field: "appointment_id", Set: "appointments", Action: FKNull, Nullable: true},
		},
	}

	res, err := Reconcile([]Record{
		rec(1, "patient_id", int64(1), "appointment_id", int64(555)),
		rec(2, "patient_id", int64(1), "appointment_id", nil),
		rec(3, "patient_id", int64(9), "appointment_id", int64(100)),
	}, refs, policy, Options{Seed: 1})
	require.NoError(t, err)

	require.Len(t, res.Accepted, 2)
	assert.Nil(t, res.Accepted[0].Get("appointment_id"))
	assert.Equal(t, RuleFKNull, res.Log[0].Changes[0].Rule)
	assert.Equal(t, Accepted, res.Log[1].Disposition)
	assert.Empty(t, res.Log[1].Changes)
	assert.Equal(t, Skipped, res.Log[2].Disposition)
	assert.Equal(t, RuleFKDrop, res.Log[2].Rule)
	assertInvariants(t, res, policy, refs)
}

func TestReconcile_CheckRepair(t *testing.T) {
	policy := Policy{
		Table: "medical_records",
		Checks: []CheckRule{{
			Field: "prescription_cost",
			Valid: func(v any) bool {
				f, ok := v.(float64)
				return ok && f >= 0
			},
			Repair: MoneyRange{Min: 10, Max: 500},
		}},
	}

	res, err := Reconcile([]Record{
		rec(1, "prescription_cost", -5.0),
		rec(2, "prescription_cost", 12.5),
	}, ReferenceSets{}, policy, Options{Seed: 5})
	require.NoError(t, err)

	cost := res.Accepted[0].Get("prescription_cost").(float64)
	assert.GreaterOrEqual(t, cost, 10.0)
	assert.LessOrEqual(t, cost, 500.0)
	assert.Equal(t, RuleCheckRepair, res.Log[0].Changes[0].Rule)
	assert.Equal(t, 12.5, res.Accepted[1].Get("prescription_cost"))
}

func phonePolicy() (Policy, ReferenceSets) {
	refs := ReferenceSets{
		"doctors": NewReferenceSet("doctors", int64(1), int64(2), int64(3)),
		"phones":  NewTupleSet("phones", []any{int64(1), "01111111111"}),
	}
	policy := Policy{
		Table: "doctor_phones",
		Identity: &IdentityRule{
			Fields: []string{"doctor_id", "phone"}, Set: "phones", Scope: ScopeStore,
		},
		ForeignKeys: []ForeignKeyRule{{Field: "doctor_id", Set: "doctors", Action: FKRemap}},
		Unique: []UniqueRule{{
			Name: "doctor_phone", Fields: []string{"doctor_id", "phone"}, Set: "phones",
			Action: CollisionRegenerate, Vary: "phone", Generator: Pattern("01#########"),
		}},
	}
	return policy, refs
}

func phoneBatch() []Record {
	return []Record{
		rec(1, "doctor_id", int64(1), "phone", "01111111111"),
		rec(2, "doctor_id", int64(77), "phone", "01222222222"),
		rec(3, "doctor_id", int64(2), "phone", nil),
		rec(4, "doctor_id", int64(2), "phone", "01333333333"),
		rec(5, "doctor_id", int64(2), "phone", "01333333333"),
	}
}

func TestReconcile_Deterministic(t *testing.T) {
	policy, refs := phonePolicy()

	a, err := Reconcile(phoneBatch(), refs, policy, Options{Seed: 99})
	require.NoError(t, err)
	b, err := Reconcile(phoneBatch(), refs, policy, Options{Seed: 99})
	require.NoError(t, err)

	assert.Equal(t, a.Accepted, b.Accepted)
	assert.Equal(t, a.Log, b.Log)
	assert.Equal(t, 4, a.Counts.Accepted)
	assert.Equal(t, 1, a.Counts.Skipped)
	assert.Equal(t, RuleIdentityExists, a.Log[0].Rule)
	assertInvariants(t, a, policy, refs)

	for _, r := range a.Accepted {
		assert.Regexp(t, `^01\d{9}$`, r.Get("phone"))
	}
}

func TestReconcile_Idempotent(t *testing.T) {
	policy, refs := phonePolicy()

	first, err := Reconcile(phoneBatch(), refs, policy, Options{Seed: 7})
	require.NoError(t, err)

	again, err := Reconcile(first.Accepted, refs, policy, Options{Seed: 8})
	require.NoError(t, err)
	assert.Equal(t, first.Accepted, again.Accepted)
	assert.Zero(t, again.Counts.Repaired)
	assert.Zero(t, again.Counts.Skipped)
	assert.Zero(t, again.Counts.Failed)

	// once inserted, the accepted rows are part of the store's sets
	tuples := [][]any{{int64(1), "01111111111"}}
	for _, r := range first.Accepted {
		tuples = append(tuples, []any{r.Get("doctor_id"), r.Get("phone")})
	}
	loaded := ReferenceSets{
		"doctors": refs["doctors"],
		"phones":  NewTupleSet("phones", tuples...),
	}

	reload, err := Reconcile(first.Accepted, loaded, policy, Options{Seed: 9})
	require.NoError(t, err)
	assert.Zero(t, reload.Counts.Repaired)
	assert.Zero(t, reload.Counts.Failed)
	assert.Empty(t, reload.Accepted)
	assert.Equal(t, len(first.Accepted), reload.Counts.Skipped)
	for _, e := range reload.Log {
		assert.Equal(t, RuleIdentityExists, e.Rule, "line %d", e.Line)
	}
}

func TestReconcile_RejectsInvalidPolicy(t *testing.T) {
	_, err := Reconcile(nil, ReferenceSets{"doctors": NewReferenceSet("doctors", int64(1))}, Policy{
		Table:       "appointments",
		ForeignKeys: []ForeignKeyRule{{Field: "doctor_id", Set: "doctors", Action: FKNull}},
	}, Options{})
	assert.ErrorIs(t, err, ErrInvalidPolicy)
}
