package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type DatabaseCfg struct {
	Driver   string `mapstructure:"driver"`
	DSN      string `mapstructure:"dsn"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

type InputCfg struct {
	Dir string `mapstructure:"dir"`
}

type LoadCfg struct {
	Seed            int64   `mapstructure:"seed"`
	OnExhausted     string  `mapstructure:"on_exhausted"`
	MaxFailureRatio float64 `mapstructure:"max_failure_ratio"`
	DryRun          bool    `mapstructure:"dry_run"`
	PolicyFile      string  `mapstructure:"policy_file"`
}

type OutputCfg struct {
	RepairLog  string `mapstructure:"repair_log"`
	RejectFile string `mapstructure:"reject_file"`
}

type LoggingCfg struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
	File        string `mapstructure:"file"`
	RunLog      string `mapstructure:"run_log"`
}

type MetricsCfg struct {
	Textfile string `mapstructure:"textfile"`
}

type Config struct {
	Version  string      `mapstructure:"version"`
	Database DatabaseCfg `mapstructure:"database"`
	Input    InputCfg    `mapstructure:"input"`
	Load     LoadCfg     `mapstructure:"load"`
	Output   OutputCfg   `mapstructure:"output"`
	Logging  LoggingCfg  `mapstructure:"logging"`
	Metrics  MetricsCfg  `mapstructure:"metrics"`
}

// On-exhausted modes.
const (
	OnExhaustedAbort = "abort"
	OnExhaustedSkip  = "skip"
)

var cfg *Config

// Load populates global config from a viper instance
func Load(v *viper.Viper) error {
	// set defaults
	v.SetDefault("version", "0.1")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "127.0.0.1")
	v.SetDefault("input.dir", ".")
	v.SetDefault("load.on_exhausted", OnExhaustedAbort)
	v.SetDefault("load.max_failure_ratio", 0.1)
	v.SetDefault("logging.level", "info")

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.validate(); err != nil {
		return err
	}
	cfg = &c
	return nil
}

func (c *Config) validate() error {
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	switch c.Database.Driver {
	case "postgres", "mysql", "sqlite3":
	default:
		return fmt.Errorf("unsupported database.driver %q", c.Database.Driver)
	}
	switch c.Load.OnExhausted {
	case OnExhaustedAbort, OnExhaustedSkip:
	default:
		return fmt.Errorf("load.on_exhausted must be %q or %q, got %q", OnExhaustedAbort, OnExhaustedSkip, c.Load.OnExhausted)
	}
	if c.Load.MaxFailureRatio < 0 || c.Load.MaxFailureRatio > 1 {
		return fmt.Errorf("load.max_failure_ratio must be within [0,1], got %v", c.Load.MaxFailureRatio)
	}
	return nil
}

func Get() *Config {
	if cfg == nil {
		cfg = &Config{}
	}
	return cfg
}
