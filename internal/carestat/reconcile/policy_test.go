package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyValidate(t *testing.T) {
	refs := ReferenceSets{
		"doctors":     NewReferenceSet("doctors", int64(1)),
		"departments": NewReferenceSet("departments", int64(10)),
		"pairs":       NewTupleSet("pairs"),
	}
	pair := func(u UniqueRule) UniqueRule {
		u.Name = "pair"
		u.Fields = []string{"doctor_id", "department_id"}
		u.Set = "pairs"
		return u
	}
	fks := []ForeignKeyRule{
		{Field: "doctor_id", Set: "doctors"},
		{Field: "department_id", Set: "departments"},
	}

	tests := []struct {
		name    string
		policy  Policy
		wantErr error
	}{
		{
			name: "valid regenerate with fallback",
			policy: Policy{Table: "t", ForeignKeys: fks, Unique: []UniqueRule{pair(UniqueRule{
				Action: CollisionRegenerate, Vary: "department_id", Generator: FromSet("departments"),
				Fallback: &Fallback{Field: "doctor_id", Generator: FromSet("doctors")},
			})}},
		},
		{
			name:    "unknown set",
			policy:  Policy{Table: "t", ForeignKeys: []ForeignKeyRule{{Field: "x", Set: "nope"}}},
			wantErr: ErrUnknownReferenceSet,
		},
		{
			name: "null on non-nullable",
			policy: Policy{Table: "t", ForeignKeys: []ForeignKeyRule{
				{Field: "doctor_id", Set: "doctors", Action: FKNull},
			}},
			wantErr: ErrInvalidPolicy,
		},
		{
			name: "reassign composite identity",
			policy: Policy{Table: "t", Identity: &IdentityRule{
				Fields: []string{"a", "b"}, Action: IdentityReassign,
			}},
			wantErr: ErrInvalidPolicy,
		},
		{
			name: "suffix a foreign key",
			policy: Policy{Table: "t", ForeignKeys: fks, Unique: []UniqueRule{pair(UniqueRule{
				Action: CollisionSuffix, Vary: "doctor_id",
			})}},
			wantErr: ErrInvalidPolicy,
		},
		{
			name: "regenerate foreign key outside its set",
			policy: Policy{Table: "t", ForeignKeys: fks, Unique: []UniqueRule{pair(UniqueRule{
				Action: CollisionRegenerate, Vary: "department_id", Generator: IntRange{Min: 1, Max: 9},
			})}},
			wantErr: ErrInvalidPolicy,
		},
		{
			name: "vary outside key",
			policy: Policy{Table: "t", Unique: []UniqueRule{pair(UniqueRule{
				Action: CollisionSuffix, Vary: "name",
			})}},
			wantErr: ErrInvalidPolicy,
		},
		{
			name: "fallback without regenerate",
			policy: Policy{Table: "t", Unique: []UniqueRule{pair(UniqueRule{
				Action: CollisionSuffix, Vary: "department_id",
				Fallback: &Fallback{Field: "doctor_id", Generator: FromSet("doctors")},
			})}},
			wantErr: ErrInvalidPolicy,
		},
		{
			name: "varied field shared by two rules",
			policy: Policy{Table: "t", Unique: []UniqueRule{
				{Name: "a", Fields: []string{"email"}, Action: CollisionSuffix, Vary: "email"},
				{Name: "b", Fields: []string{"email", "phone"}, Action: CollisionSkip},
			}},
			wantErr: ErrInvalidPolicy,
		},
		{
			name: "check on unique field",
			policy: Policy{
				Table:  "t",
				Unique: []UniqueRule{{Name: "a", Fields: []string{"email"}, Action: CollisionSkip}},
				Checks: []CheckRule{{Field: "email", Valid: func(any) bool { return true }, Repair: OneOf{"x"}}},
			},
			wantErr: ErrInvalidPolicy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Validate(refs)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, IsPrecondition(err))
		})
	}
}

func TestParseActions(t *testing.T) {
	a, err := ParseFKAction(" Null ")
	require.NoError(t, err)
	assert.Equal(t, FKNull, a)
	assert.Equal(t, "null", a.String())

	c, err := ParseCollisionAction("regenerate")
	require.NoError(t, err)
	assert.Equal(t, CollisionRegenerate, c)

	_, err = ParseFKAction("cascade")
	assert.ErrorIs(t, err, ErrInvalidPolicy)
	_, err = ParseCollisionAction("merge")
	assert.ErrorIs(t, err, ErrInvalidPolicy)
}

func TestPolicySets(t *testing.T) {
	p := Policy{
		Identity:    &IdentityRule{Fields: []string{"id"}, Set: "ids"},
		ForeignKeys: []ForeignKeyRule{{Field: "doctor_id", Set: "doctors"}},
		Unique: []UniqueRule{{
			Name: "u", Fields: []string{"doctor_id", "department_id"}, Set: "pairs",
			Generator: FromSet("departments"),
			Fallback:  &Fallback{Field: "doctor_id", Generator: FromSet("doctors")},
		}},
	}
	assert.Equal(t, []string{"ids", "doctors", "pairs", "departments"}, p.Sets())
}

func TestReferenceSet(t *testing.T) {
	s := NewReferenceSet("ids", int64(5), 3, int64(3), int64(10), int32(1))
	assert.Equal(t, 4, s.Len())
	assert.Equal(t, []any{int32(1), 3, int64(5), int64(10)}, s.Values())
	assert.True(t, s.Contains(int64(3)))
	assert.False(t, s.Contains("3"))

	max, ok := s.MaxInt()
	assert.True(t, ok)
	assert.Equal(t, int64(10), max)

	var empty *ReferenceSet
	assert.Zero(t, empty.Len())
	assert.False(t, empty.Contains(1))
	_, ok = empty.MaxInt()
	assert.False(t, ok)
}

func TestTupleSetAndKeys(t *testing.T) {
	s := NewTupleSet("pairs", []any{int64(2), "b"}, []any{int64(1), "z"}, []any{int64(1), "a"})
	assert.Equal(t, []any{
		[]any{int64(1), "a"}, []any{int64(1), "z"}, []any{int64(2), "b"},
	}, s.Values())
	assert.True(t, s.Contains([]any{1, "z"}))

	r := NewRecord(1, map[string]any{"doctor_id": int64(1), "phone": "z"})
	assert.Equal(t, KeyOf(int64(1), "z"), r.Key("doctor_id", "phone"))
	assert.True(t, s.Contains([]any{r.Get("doctor_id"), r.Get("phone")}))

	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("x", 3600))
	assert.Equal(t, KeyOf(ts), KeyOf(ts.UTC()))
	assert.NotEqual(t, KeyOf(nil), KeyOf(""))
}

func TestReferenceSetsGet(t *testing.T) {
	refs := ReferenceSets{"a": NewReferenceSet("a")}
	s, err := refs.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "a", s.Name())

	_, err = refs.Get("b")
	assert.ErrorIs(t, err, ErrUnknownReferenceSet)
}

func TestVerifyReportsViolations(t *testing.T) {
	refs := ReferenceSets{
		"doctors": NewReferenceSet("doctors", int64(1)),
		"emails":  NewReferenceSet("emails", "a@x.org"),
	}
	policy := Policy{
		ForeignKeys: []ForeignKeyRule{{Field: "doctor_id", Set: "doctors"}},
		Unique:      []UniqueRule{{Name: "email", Fields: []string{"email"}, Set: "emails"}},
	}
	rows := []Record{
		rec(1, "doctor_id", int64(1), "email", "b@x.org"),
		rec(2, "doctor_id", int64(4), "email", "b@x.org"),
		rec(3, "doctor_id", nil, "email", "a@x.org"),
	}

	got := Verify(rows, policy, refs, VerifyOptions{})
	require.Len(t, got, 3)
	assert.Equal(t, "fk:doctor_id", got[0].Constraint)
	assert.Equal(t, 2, got[0].Line)
	assert.Equal(t, 3, got[1].Line)
	assert.Equal(t, "unique:email", got[2].Constraint)

	got = Verify(rows, policy, refs, VerifyOptions{AgainstExisting: true})
	assert.Len(t, got, 4)
}
