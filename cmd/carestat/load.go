package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/vaibhaw-/CareStat/internal/carestat/config"
	"github.com/vaibhaw-/CareStat/internal/carestat/runner"
	"github.com/vaibhaw-/CareStat/internal/carestat/store"
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Reconcile CSV exports and insert them table by table",
	Long: `Reads each table's CSV export, repairs key collisions and dangling foreign
keys against the rows already in the database, and inserts the result in one
transaction per table. Tables load in dependency order.`,
	RunE: runLoad,
}

var (
	loadFlagTables      []string
	loadFlagAll         bool
	loadFlagInput       string
	loadFlagDir         string
	loadFlagDryRun      bool
	loadFlagSeed        int64
	loadFlagOnExhausted string
	loadFlagMaxRatio    float64
	loadFlagPolicyFile  string
	loadFlagRepairLog   string
	loadFlagRejectFile  string
	loadFlagApplySchema bool
)

func init() {
	loadCmd.Flags().StringSliceVar(&loadFlagTables, "table", nil, "table(s) to load (repeatable)")
	loadCmd.Flags().BoolVar(&loadFlagAll, "all", false, "load every table")
	loadCmd.Flags().StringVar(&loadFlagInput, "input", "", "CSV file for a single --table (default <input.dir>/<export file>)")
	loadCmd.Flags().StringVar(&loadFlagDir, "dir", "", "folder holding the CSV exports (overrides input.dir)")
	loadCmd.Flags().BoolVar(&loadFlagDryRun, "dry-run", false, "reconcile and insert, then roll back")
	loadCmd.Flags().Int64Var(&loadFlagSeed, "seed", 0, "seed for random repairs (overrides load.seed)")
	loadCmd.Flags().StringVar(&loadFlagOnExhausted, "on-exhausted", "", "abort|skip when a regeneration domain runs out")
	loadCmd.Flags().Float64Var(&loadFlagMaxRatio, "max-failure-ratio", 0, "roll back above this share of refused inserts")
	loadCmd.Flags().StringVar(&loadFlagPolicyFile, "policy-file", "", "YAML per-table policy overrides")
	loadCmd.Flags().StringVar(&loadFlagRepairLog, "repair-log", "", "NDJSON repair log (appended)")
	loadCmd.Flags().StringVar(&loadFlagRejectFile, "reject-file", "", "NDJSON file for malformed input rows (appended)")
	loadCmd.Flags().BoolVar(&loadFlagApplySchema, "apply-schema", false, "create missing tables before loading")
	loadCmd.MarkFlagsMutuallyExclusive("table", "all")
}

func runLoad(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	flags := cmd.Flags()

	// Override config with command line flags
	if flags.Changed("dir") {
		cfg.Input.Dir = loadFlagDir
	}
	if flags.Changed("dry-run") {
		cfg.Load.DryRun = loadFlagDryRun
	}
	if flags.Changed("seed") {
		cfg.Load.Seed = loadFlagSeed
	}
	if flags.Changed("on-exhausted") {
		if loadFlagOnExhausted != config.OnExhaustedAbort && loadFlagOnExhausted != config.OnExhaustedSkip {
			return fmt.Errorf("--on-exhausted must be %s or %s", config.OnExhaustedAbort, config.OnExhaustedSkip)
		}
		cfg.Load.OnExhausted = loadFlagOnExhausted
	}
	if flags.Changed("max-failure-ratio") {
		if loadFlagMaxRatio < 0 || loadFlagMaxRatio > 1 {
			return fmt.Errorf("--max-failure-ratio must be in [0,1]")
		}
		cfg.Load.MaxFailureRatio = loadFlagMaxRatio
	}
	if loadFlagPolicyFile != "" {
		cfg.Load.PolicyFile = loadFlagPolicyFile
	}
	if loadFlagRepairLog != "" {
		cfg.Output.RepairLog = loadFlagRepairLog
	}
	if loadFlagRejectFile != "" {
		cfg.Output.RejectFile = loadFlagRejectFile
	}

	if len(loadFlagTables) == 0 && !loadFlagAll {
		return fmt.Errorf("name tables with --table or pass --all")
	}
	tbls, err := selectTables(cfg, loadFlagTables)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	db, err := store.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if loadFlagApplySchema {
		if err := store.ApplySchema(ctx, db); err != nil {
			return err
		}
	}

	opts := runner.OptionsFromConfig(cfg)
	opts.Input = loadFlagInput
	opts.Out = cmd.OutOrStdout()

	_, err = runner.RunLoad(ctx, tbls, store.NewProvider(db), store.NewSink(db), opts)
	return err
}
