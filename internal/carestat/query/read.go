package query

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// ReadEntries streams NDJSON entries from files, or stdin when none are
// given. Files are read in order; a missing file or a malformed line is
// sent as an error and reading goes on. The channel is closed at the end.
func ReadEntries(files []string) <-chan EntryResult {
	ch := make(chan EntryResult, 100)

	go func() {
		defer close(ch)

		if len(files) == 0 {
			readFromReader(os.Stdin, "stdin", ch)
			return
		}
		for _, file := range files {
			f, err := os.Open(file)
			if err != nil {
				ch <- EntryResult{Err: fmt.Errorf("failed to open file %s: %w", file, err)}
				continue
			}
			readFromReader(f, file, ch)
			f.Close()
		}
	}()

	return ch
}

func readFromReader(r io.Reader, source string, ch chan<- EntryResult) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNumber := 0

	for scanner.Scan() {
		lineNumber++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			ch <- EntryResult{Err: fmt.Errorf("JSON parse error in %s line %d: %w", source, lineNumber, err)}
			continue
		}
		ch <- EntryResult{Entry: e}
	}

	if err := scanner.Err(); err != nil {
		ch <- EntryResult{Err: fmt.Errorf("scanner error in %s: %w", source, err)}
	}
}
