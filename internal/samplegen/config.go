package samplegen

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config sizes a generated data set. Counts are rows per file before
// defects are injected.
type Config struct {
	Out          string  `yaml:"out"`
	Seed         int64   `yaml:"seed"`
	Doctors      int     `yaml:"doctors"`
	Patients     int     `yaml:"patients"`
	Departments  int     `yaml:"departments"`
	Diseases     int     `yaml:"diseases"`
	Appointments int     `yaml:"appointments"`
	Records      int     `yaml:"records"`
	Visits       int     `yaml:"visits"`
	Payments     int     `yaml:"payments"`
	DefectRate   float64 `yaml:"defectRate"`
}

// Defaults returns a small data set with a 5% defect rate.
func Defaults() Config {
	return Config{
		Out:          ".",
		Seed:         1,
		Doctors:      50,
		Patients:     200,
		Departments:  8,
		Diseases:     20,
		Appointments: 400,
		Records:      300,
		Visits:       300,
		Payments:     300,
		DefectRate:   0.05,
	}
}

// ReadConfig overlays a YAML file on the defaults.
func ReadConfig(path string) (Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects sizes the generator cannot honour.
func (c Config) Validate() error {
	if c.Out == "" {
		return fmt.Errorf("out directory is required")
	}
	if c.Doctors < 1 || c.Patients < 1 || c.Departments < 1 || c.Diseases < 1 {
		return fmt.Errorf("doctors, patients, departments and diseases must be positive")
	}
	if c.Appointments < 0 || c.Records < 0 || c.Visits < 0 || c.Payments < 0 {
		return fmt.Errorf("row counts must not be negative")
	}
	if c.DefectRate < 0 || c.DefectRate > 1 {
		return fmt.Errorf("defectRate must be in [0,1], got %v", c.DefectRate)
	}
	return nil
}
