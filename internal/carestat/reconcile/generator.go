package reconcile

import (
	"fmt"
	"math"
	"time"

	"github.com/brianvoe/gofakeit/v7"
)

// Rand is the random source of a reconciliation pass. A fixed seed makes
// every random repair reproducible.
type Rand struct {
	faker *gofakeit.Faker
}

// NewRand seeds a source; seed 0 draws a time-based seed.
func NewRand(seed int64) *Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Rand{faker: gofakeit.New(uint64(seed))}
}

// Intn returns a uniform integer in [0, n).
func (r *Rand) Intn(n int) int {
	return r.faker.Number(0, n-1)
}

// Generator produces a candidate value for a field being repaired.
type Generator interface {
	Generate(rng *Rand, refs ReferenceSets) (any, error)
}

// Pattern generates strings from a template where every '#' becomes a
// random digit, e.g. "01#########" for 11-digit mobile numbers.
type Pattern string

func (p Pattern) Generate(rng *Rand, _ ReferenceSets) (any, error) {
	return rng.faker.Numerify(string(p)), nil
}

// FromSet draws a uniform member of the named reference set.
type FromSet string

func (f FromSet) Generate(rng *Rand, refs ReferenceSets) (any, error) {
	set, err := refs.Get(string(f))
	if err != nil {
		return nil, err
	}
	if set.Len() == 0 {
		return nil, fmt.Errorf("%w: %q", ErrEmptyReferenceSet, string(f))
	}
	return set.at(rng.Intn(set.Len())), nil
}

// OneOf draws a uniform element of a fixed list.
type OneOf []any

func (o OneOf) Generate(rng *Rand, _ ReferenceSets) (any, error) {
	if len(o) == 0 {
		return nil, fmt.Errorf("%w: empty choice list", ErrInvalidPolicy)
	}
	return o[rng.Intn(len(o))], nil
}

// IntRange draws an int64 in [Min, Max].
type IntRange struct {
	Min, Max int
}

func (g IntRange) Generate(rng *Rand, _ ReferenceSets) (any, error) {
	return int64(rng.faker.Number(g.Min, g.Max)), nil
}

// MoneyRange draws a float64 in [Min, Max] rounded to cents.
type MoneyRange struct {
	Min, Max float64
}

func (g MoneyRange) Generate(rng *Rand, _ ReferenceSets) (any, error) {
	v := rng.faker.Float64Range(g.Min, g.Max)
	return math.Round(v*100) / 100, nil
}
