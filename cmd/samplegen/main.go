package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/vaibhaw-/CareStat/internal/samplegen"
)

func main() {
	if len(os.Args) < 2 {
		printHelp()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "generate":
		genCmd := flag.NewFlagSet("generate", flag.ExitOnError)
		configPath := genCmd.String("config", "", "Path to YAML config file")
		out := genCmd.String("out", "", "Output directory (overrides config)")
		seed := genCmd.Int64("seed", 0, "Random seed (overrides config)")
		rate := genCmd.Float64("defect-rate", 0, "Share of rows given a defect, 0..1 (overrides config)")
		sizes := map[string]*int{
			"doctors":      genCmd.Int("doctors", 0, "Doctors to generate"),
			"patients":     genCmd.Int("patients", 0, "Patients to generate"),
			"departments":  genCmd.Int("departments", 0, "Departments to generate"),
			"diseases":     genCmd.Int("diseases", 0, "Chronic diseases to generate"),
			"appointments": genCmd.Int("appointments", 0, "Appointments to generate"),
			"records":      genCmd.Int("records", 0, "Medical records to generate"),
			"visits":       genCmd.Int("visits", 0, "Visits to generate"),
			"payments":     genCmd.Int("payments", 0, "Payments to generate"),
		}
		genCmd.Parse(os.Args[2:])

		cfg := samplegen.Defaults()
		if *configPath != "" {
			var err error
			if cfg, err = samplegen.ReadConfig(*configPath); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		}
		genCmd.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "out":
				cfg.Out = *out
			case "seed":
				cfg.Seed = *seed
			case "defect-rate":
				cfg.DefectRate = *rate
			case "doctors":
				cfg.Doctors = *sizes[f.Name]
			case "patients":
				cfg.Patients = *sizes[f.Name]
			case "departments":
				cfg.Departments = *sizes[f.Name]
			case "diseases":
				cfg.Diseases = *sizes[f.Name]
			case "appointments":
				cfg.Appointments = *sizes[f.Name]
			case "records":
				cfg.Records = *sizes[f.Name]
			case "visits":
				cfg.Visits = *sizes[f.Name]
			case "payments":
				cfg.Payments = *sizes[f.Name]
			}
		})

		summary, err := samplegen.Generate(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		printSummary(cfg.Out, summary)

	case "help", "--help", "-h":
		printHelp()
	default:
		fmt.Printf("Unknown subcommand: %s\n\n", os.Args[1])
		printHelp()
		os.Exit(1)
	}
}

func printSummary(dir string, s *samplegen.Summary) {
	fmt.Printf("Wrote CSV exports to %s\n", dir)
	for _, name := range sortedKeys(s.Rows) {
		fmt.Printf("  %-24s %6d rows\n", name, s.Rows[name])
	}
	if len(s.Defects) > 0 {
		fmt.Println("Injected defects:")
		for _, kind := range sortedKeys(s.Defects) {
			fmt.Printf("  %-24s %6d\n", kind, s.Defects[kind])
		}
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func printHelp() {
	fmt.Println(`Usage: samplegen <subcommand> [flags]`)
	fmt.Println()
	fmt.Println("Subcommands:")
	fmt.Println("  generate  [--config <path>] [--out <dir>] [--seed <n>] [--defect-rate <r>]")
	fmt.Println("            [--doctors <n>] [--patients <n>] ... [--payments <n>]")
	fmt.Println("            Write a synthetic set of CareStat CSV exports")
	fmt.Println("  help      Show this help message")
}
