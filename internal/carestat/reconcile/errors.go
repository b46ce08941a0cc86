package reconcile

import "errors"

var (
	// ErrEmptyReferenceSet is a precondition failure: a value must be drawn
	// from a reference set that has no members. The whole pass aborts.
	ErrEmptyReferenceSet = errors.New("empty reference set")

	// ErrUnknownReferenceSet means the policy names a set that was not supplied.
	ErrUnknownReferenceSet = errors.New("unknown reference set")

	// ErrInvalidPolicy is returned by Policy.Validate.
	ErrInvalidPolicy = errors.New("invalid policy")

	// ErrDomainExhausted is a per-record failure: regeneration hit its
	// attempt cap without finding an unclaimed key.
	ErrDomainExhausted = errors.New("regeneration domain exhausted")

	// ErrMissingField is a per-record failure for a key field that is absent
	// and cannot be generated.
	ErrMissingField = errors.New("missing key field")
)

// IsPrecondition reports whether err aborts a reconciliation pass.
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrEmptyReferenceSet) ||
		errors.Is(err, ErrUnknownReferenceSet) ||
		errors.Is(err, ErrInvalidPolicy)
}
