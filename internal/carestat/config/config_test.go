package config

import (
	"testing"

	"github.com/spf13/viper"
)

func TestLoad_Defaults(t *testing.T) {
	v := viper.New()
	if err := Load(v); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	cfg := Get()
	if cfg.Version != "0.1" {
		t.Errorf("default Version = %v, want 0.1", cfg.Version)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("default Driver = %v, want postgres", cfg.Database.Driver)
	}
	if cfg.Input.Dir != "." {
		t.Errorf("default Input.Dir = %v, want .", cfg.Input.Dir)
	}
	if cfg.Load.OnExhausted != OnExhaustedAbort {
		t.Errorf("default OnExhausted = %v, want abort", cfg.Load.OnExhausted)
	}
	if cfg.Load.MaxFailureRatio != 0.1 {
		t.Errorf("default MaxFailureRatio = %v, want 0.1", cfg.Load.MaxFailureRatio)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("default Level = %v, want info", cfg.Logging.Level)
	}
}

func TestLoad_FullConfig(t *testing.T) {
	v := viper.New()
	v.Set("database.driver", "MySQL")
	v.Set("database.host", "db.local")
	v.Set("database.port", 3307)
	v.Set("database.name", "care_stat")
	v.Set("database.user", "loader")
	v.Set("database.password", "secret")
	v.Set("input.dir", "./exports")
	v.Set("load.seed", 42)
	v.Set("load.on_exhausted", "skip")
	v.Set("load.max_failure_ratio", 0.25)
	v.Set("load.dry_run", true)
	v.Set("load.policy_file", "./policy.yaml")
	v.Set("output.repair_log", "./repair.ndjson")
	v.Set("output.reject_file", "./rejected.ndjson")
	v.Set("logging.level", "debug")
	v.Set("logging.run_log", "./run.jsonl")
	v.Set("metrics.textfile", "./carestat.prom")

	if err := Load(v); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	cfg := Get()
	if cfg.Database.Driver != "mysql" {
		t.Errorf("Driver = %v, want mysql", cfg.Database.Driver)
	}
	if cfg.Database.Port != 3307 || cfg.Database.Name != "care_stat" || cfg.Database.User != "loader" {
		t.Errorf("Database = %+v", cfg.Database)
	}
	if cfg.Input.Dir != "./exports" {
		t.Errorf("Input.Dir = %v", cfg.Input.Dir)
	}
	if cfg.Load.Seed != 42 || cfg.Load.OnExhausted != "skip" || cfg.Load.MaxFailureRatio != 0.25 || !cfg.Load.DryRun {
		t.Errorf("Load = %+v", cfg.Load)
	}
	if cfg.Load.PolicyFile != "./policy.yaml" {
		t.Errorf("PolicyFile = %v", cfg.Load.PolicyFile)
	}
	if cfg.Output.RepairLog != "./repair.ndjson" || cfg.Output.RejectFile != "./rejected.ndjson" {
		t.Errorf("Output = %+v", cfg.Output)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.RunLog != "./run.jsonl" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
	if cfg.Metrics.Textfile != "./carestat.prom" {
		t.Errorf("Metrics.Textfile = %v", cfg.Metrics.Textfile)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  interface{}
	}{
		{"unknown driver", "database.driver", "oracle"},
		{"unknown exhausted mode", "load.on_exhausted", "retry"},
		{"ratio above one", "load.max_failure_ratio", 1.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			v.Set(tt.key, tt.val)
			if err := Load(v); err == nil {
				t.Errorf("Load() with %s=%v: expected error", tt.key, tt.val)
			}
		})
	}
}
