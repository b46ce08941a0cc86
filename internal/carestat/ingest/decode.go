// Package ingest reads departmental CSV exports into typed candidate records.
// Rows that cannot be coerced are filtered out as Malformed and never reach
// reconciliation.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jszwec/csvutil"
)

// ErrMissingColumns is returned when the header lacks a required column.
var ErrMissingColumns = errors.New("missing required columns")

// ErrMalformed marks a row that is dropped before reconciliation.
var ErrMalformed = errors.New("malformed row")

// Malformed is a rejected source row.
type Malformed struct {
	Table  string            `json:"table"`
	Line   int               `json:"line"`
	Reason string            `json:"reason"`
	Raw    map[string]string `json:"raw,omitempty"`
}

// Row is one decoded CSV row with its 1-based source line.
type Row[T any] struct {
	Line  int
	Value T
	Raw   map[string]string
}

// Decode reads every row of a CSV stream into T using csv struct tags.
// The header must contain all required columns. Ragged rows are returned
// as Malformed rather than aborting the read.
func Decode[T any](r io.Reader, required []string) ([]Row[T], []Malformed, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	dec, err := csvutil.NewDecoder(cr)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, fmt.Errorf("%w: empty file", ErrMissingColumns)
		}
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	header := dec.Header()
	if err := checkColumns(header, required); err != nil {
		return nil, nil, err
	}

	var (
		rows []Row[T]
		bad  []Malformed
	)
	for {
		var v T
		err := dec.Decode(&v)
		if errors.Is(err, io.EOF) {
			break
		}
		line, _ := cr.FieldPos(0)
		raw := rawMap(header, dec.Record())
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				return nil, nil, fmt.Errorf("read line %d: %w", perr.Line, err)
			}
			bad = append(bad, Malformed{Line: line, Reason: err.Error(), Raw: raw})
			continue
		}
		rows = append(rows, Row[T]{Line: line, Value: v, Raw: raw})
	}
	return rows, bad, nil
}

func checkColumns(header, required []string) error {
	have := make(map[string]bool, len(header))
	for _, h := range header {
		have[strings.TrimSpace(h)] = true
	}
	var missing []string
	for _, c := range required {
		if !have[c] {
			missing = append(missing, c)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	avail := append([]string(nil), header...)
	sort.Strings(avail)
	return fmt.Errorf("%w: %v (available: %v)", ErrMissingColumns, missing, avail)
}

func rawMap(header, record []string) map[string]string {
	if len(record) == 0 {
		return nil
	}
	m := make(map[string]string, len(header))
	for i, h := range header {
		if i < len(record) {
			m[h] = record[i]
		}
	}
	return m
}
