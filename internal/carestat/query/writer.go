package query

import (
	"encoding/json"
	"fmt"
	"io"
)

// WriteEntryNDJSON writes e as one JSON line, every field preserved.
func WriteEntryNDJSON(w io.Writer, e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal entry to JSON: %w", err)
	}
	if _, err := fmt.Fprintln(w, string(data)); err != nil {
		return fmt.Errorf("failed to write entry: %w", err)
	}
	return nil
}
