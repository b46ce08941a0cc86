package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/vaibhaw-/CareStat/internal/carestat/config"
	"github.com/vaibhaw-/CareStat/internal/carestat/store"
	"github.com/vaibhaw-/CareStat/internal/carestat/verify"
)

var (
	verifyFlagTables  []string
	verifyFlagOutput  string
	verifyFlagSummary bool
	verifyFlagLimit   int
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Re-check persisted rows for duplicate keys and dangling foreign keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		tbls, err := selectTables(cfg, verifyFlagTables)
		if err != nil {
			return err
		}
		ctx := context.Background()
		db, err := store.Open(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()

		p := store.NewProvider(db)
		return verify.RunVerify(ctx, tbls, p, p, cmd.OutOrStdout(), verify.VerifyArgs{
			OutputFile:  verifyFlagOutput,
			RunLog:      cfg.Logging.RunLog,
			SummaryOnly: verifyFlagSummary,
			Limit:       verifyFlagLimit,
		})
	},
}

func init() {
	verifyCmd.Flags().StringSliceVar(&verifyFlagTables, "table", nil, "table(s) to verify (default all)")
	verifyCmd.Flags().StringVar(&verifyFlagOutput, "output", "", "write violations as NDJSON to this file")
	verifyCmd.Flags().BoolVar(&verifyFlagSummary, "summary", false, "print the per-table summary only")
	verifyCmd.Flags().IntVar(&verifyFlagLimit, "limit", 20, "violations shown per table (0 = all)")
}
