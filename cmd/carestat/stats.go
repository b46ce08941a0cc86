package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vaibhaw-/CareStat/internal/carestat/config"
	"github.com/vaibhaw-/CareStat/internal/carestat/extract"
	"github.com/vaibhaw-/CareStat/internal/carestat/logger"
)

var (
	statsFlagInput  string
	statsFlagBrief  bool
	statsFlagFilter extract.Filter
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Dashboard KPIs from the merged Care_stat.csv extract",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := statsFlagInput
		if path == "" {
			path = filepath.Join(config.Get().Input.Dir, "Care_stat.csv")
		}
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open extract: %w", err)
		}
		defer f.Close()

		rows, skipped, err := extract.Load(f)
		if err != nil {
			return err
		}
		if skipped > 0 {
			logger.L().Warnw("skipped malformed extract lines", "path", path, "lines", skipped)
		}
		extract.Render(cmd.OutOrStdout(), extract.Compute(rows, statsFlagFilter), statsFlagBrief)
		return nil
	},
}

func init() {
	f := statsCmd.Flags()
	f.StringVar(&statsFlagInput, "input", "", "extract CSV (default <input.dir>/Care_stat.csv)")
	f.BoolVar(&statsFlagBrief, "brief", false, "KPIs only, no breakdowns")
	f.StringVar(&statsFlagFilter.Department, "department", "", "staff section: department name")
	f.StringVar(&statsFlagFilter.Gender, "gender", "", "staff section: gender")
	f.StringVar(&statsFlagFilter.Country, "country", "", "staff section: country")
	f.StringVar(&statsFlagFilter.Disease, "disease", "", "patient section: disease name")
	f.StringVar(&statsFlagFilter.Severity, "severity", "", "patient section: severity level")
	f.StringVar(&statsFlagFilter.Status, "status", "", "finance section: payment status")
	f.StringVar(&statsFlagFilter.Method, "method", "", "finance section: payment method")
}
