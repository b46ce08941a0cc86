package main

import (
	"github.com/spf13/cobra"

	"github.com/vaibhaw-/CareStat/internal/carestat/query"
)

var reportOpts query.Options

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Filter and summarise NDJSON repair logs",
	Example: `  carestat report --input repair.ndjson --disposition failed
  carestat report --input repair.ndjson --table doctor_phones --rule unique_regenerate --summary`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := query.RunQuery(reportOpts, cmd.OutOrStdout())
		return err
	},
}

func init() {
	f := reportCmd.Flags()
	f.StringSliceVar(&reportOpts.InputFiles, "input", nil, "repair log file(s) (default stdin)")
	f.StringVar(&reportOpts.OutputFile, "output", "", "write matching entries here (default stdout)")
	f.StringSliceVar(&reportOpts.Tables, "table", nil, "keep these tables")
	f.StringSliceVar(&reportOpts.Dispositions, "disposition", nil, "accepted|repaired|skipped|failed")
	f.StringSliceVar(&reportOpts.Rules, "rule", nil, "keep entries where one of these rules fired")
	f.StringSliceVar(&reportOpts.Fields, "field", nil, "keep entries that rewrote one of these fields")
	f.StringVar(&reportOpts.Stage, "stage", "", "reconcile|insert")
	f.StringVar(&reportOpts.RunID, "run", "", "keep one run (id prefix)")
	f.BoolVar(&reportOpts.Summary, "summary", false, "print counts instead of entries")
	f.IntVar(&reportOpts.Limit, "limit", 0, "stop after N matches (0 = no limit)")
}
