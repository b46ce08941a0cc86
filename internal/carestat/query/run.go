package query

import (
	"fmt"
	"io"
	"os"

	"github.com/vaibhaw-/CareStat/internal/carestat/logger"
)

// RunQuery filters repair log entries and writes the matches as NDJSON, or
// a summary when opts.Summary is set. With both --summary and --output the
// matches go to the file and the summary to stdout.
//
// Malformed lines are counted, never fatal. Only I/O errors on the output
// stop the run.
func RunQuery(opts Options, stdout io.Writer) (*Stats, error) {
	log := logger.L()
	filters := buildFilters(opts)

	output, err := openOutput(opts.OutputFile, stdout)
	if err != nil {
		return nil, fmt.Errorf("failed to open output: %w", err)
	}
	if closer, ok := output.(io.Closer); ok && opts.OutputFile != "" {
		defer closer.Close()
	}

	stats := NewStats()
	for result := range ReadEntries(opts.InputFiles) {
		if result.Err != nil {
			log.Debugw("skipping unreadable entry", "err", result.Err.Error())
			stats.IncrementError()
			continue
		}
		stats.IncrementInput()

		if !matchAll(result.Entry, filters) {
			continue
		}
		stats.IncrementMatched(result.Entry)
		if !opts.Summary || opts.OutputFile != "" {
			if err := WriteEntryNDJSON(output, result.Entry); err != nil {
				return stats, err
			}
		}
		if opts.Limit > 0 && stats.MatchedEntries >= opts.Limit {
			break
		}
	}

	if opts.Summary {
		stats.PrintSummary(stdout)
	}
	log.Debugw("report complete",
		"read", stats.InputEntries,
		"matched", stats.MatchedEntries,
		"unreadable", stats.ErrorEntries)
	return stats, nil
}

func buildFilters(opts Options) []EntryFilter {
	var filters []EntryFilter
	if len(opts.Tables) > 0 {
		filters = append(filters, FilterByTable(opts.Tables))
	}
	if len(opts.Dispositions) > 0 {
		filters = append(filters, FilterByDisposition(opts.Dispositions))
	}
	if len(opts.Rules) > 0 {
		filters = append(filters, FilterByRule(opts.Rules))
	}
	if len(opts.Fields) > 0 {
		filters = append(filters, FilterByField(opts.Fields))
	}
	if opts.Stage != "" {
		filters = append(filters, FilterByStage(opts.Stage))
	}
	if opts.RunID != "" {
		filters = append(filters, FilterByRunID(opts.RunID))
	}
	return filters
}

func openOutput(path string, stdout io.Writer) (io.Writer, error) {
	if path == "" {
		return stdout, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file %s: %w", path, err)
	}
	return f, nil
}
