package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vaibhaw-/CareStat/internal/carestat/config"
	"github.com/vaibhaw-/CareStat/internal/carestat/store"
)

var (
	schemaFlagApply  bool
	schemaFlagDriver string
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print or apply the CareStat DDL",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		if schemaFlagApply {
			ctx := context.Background()
			db, err := store.Open(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()
			return store.ApplySchema(ctx, db)
		}

		driver := cfg.Database.Driver
		if schemaFlagDriver != "" {
			driver = schemaFlagDriver
		}
		stmts, err := store.Schema(driver)
		if err != nil {
			return err
		}
		for _, s := range stmts {
			fmt.Fprintf(cmd.OutOrStdout(), "%s;\n\n", s)
		}
		return nil
	},
}

func init() {
	schemaCmd.Flags().BoolVar(&schemaFlagApply, "apply", false, "create missing tables in the configured database")
	schemaCmd.Flags().StringVar(&schemaFlagDriver, "driver", "", "print DDL for this driver instead of database.driver")
}
