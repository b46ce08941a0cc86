// Package samplegen writes synthetic departmental CSV exports with
// deliberate defects (dangling foreign keys, duplicate keys, badly
// formatted phones, out-of-range values, blank mandatory fields) for
// exercising the loader end to end.
package samplegen

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/vaibhaw-/CareStat/internal/carestat/logger"
	"github.com/vaibhaw-/CareStat/internal/carestat/tables"
)

var (
	rangeStart = time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	rangeEnd   = time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
)

// Summary counts written rows and injected defects.
type Summary struct {
	Rows    map[string]int `json:"rows"`
	Defects map[string]int `json:"defects"`
}

type row map[string]string

type generator struct {
	f       *gofakeit.Faker
	cfg     Config
	summary Summary
}

// Generate writes one CSV per catalogue table into cfg.Out. The same seed
// always produces the same files.
func Generate(cfg Config) (*Summary, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Out, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	reg, err := tables.NewRegistry(nil)
	if err != nil {
		return nil, err
	}

	log := logger.L()
	log.Infow("generating sample data", "out", cfg.Out, "seed", cfg.Seed, "defect_rate", cfg.DefectRate)

	g := &generator{
		f:   gofakeit.New(uint64(cfg.Seed)),
		cfg: cfg,
		summary: Summary{
			Rows:    map[string]int{},
			Defects: map[string]int{},
		},
	}
	builders := map[string]func() []row{
		"doctors":              g.doctors,
		"patients":             g.patients,
		"departments":          g.departments,
		"chronic_diseases":     g.diseases,
		"appointments":         g.appointments,
		"medical_records":      g.records,
		"visits":               g.visits,
		"payments":             g.payments,
		"doctor_phones":        func() []row { return g.phones("doctor_id", cfg.Doctors) },
		"patient_phones":       func() []row { return g.phones("patient_id", cfg.Patients) },
		"doctor_department":    g.workload,
		"department_equipment": g.equipment,
		"doctor_workplaces":    g.workplaces,
	}
	for _, t := range reg.All() {
		build, ok := builders[t.Name]
		if !ok {
			return nil, fmt.Errorf("no generator for table %s", t.Name)
		}
		rows := build()
		path := filepath.Join(cfg.Out, t.File)
		if err := writeCSV(path, t.Columns, rows); err != nil {
			return nil, err
		}
		g.summary.Rows[t.Name] = len(rows)
		log.Debugw("wrote sample file", "table", t.Name, "path", path, "rows", len(rows))
	}

	log.Infow("generation complete", "files", len(g.summary.Rows), "defects", g.summary.Defects)
	return &g.summary, nil
}

func writeCSV(path string, columns []string, rows []row) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(columns); err != nil {
		return err
	}
	rec := make([]string, len(columns))
	for _, r := range rows {
		for i, c := range columns {
			rec[i] = r[c]
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// defect reports whether to damage the next row, counting it under kind.
func (g *generator) defect(kind string) bool {
	if g.cfg.DefectRate == 0 || g.f.Float64Range(0, 1) >= g.cfg.DefectRate {
		return false
	}
	g.summary.Defects[kind]++
	return true
}

func (g *generator) pick(list []string) string {
	return g.f.RandomString(list)
}

func itoa(n int) string { return strconv.Itoa(n) }

// ref draws an id in [1, n]; a defect points it past the end.
func (g *generator) ref(n int) string {
	if g.defect("dangling_fk") {
		return itoa(n + g.f.Number(1, 1000))
	}
	return itoa(g.f.Number(1, n))
}

func (g *generator) date(layout string) string {
	return g.f.DateRange(rangeStart, rangeEnd).Format(layout)
}

func (g *generator) phone() string {
	p := g.f.Numerify("01#########")
	if g.defect("formatted_phone") {
		return "+2 " + p[:3] + "-" + p[3:7] + "-" + p[7:]
	}
	return p
}

// dup appends a copy of a random earlier row.
func (g *generator) dup(rows []row, kind string) []row {
	if len(rows) == 0 || !g.defect(kind) {
		return rows
	}
	src := rows[g.f.Number(0, len(rows)-1)]
	cp := make(row, len(src))
	for k, v := range src {
		cp[k] = v
	}
	return append(rows, cp)
}

func (g *generator) doctors() []row {
	var rows []row
	for id := 1; id <= g.cfg.Doctors; id++ {
		grad := g.f.Number(1985, 2015)
		hire := grad + g.f.Number(1, 8)
		email := fmt.Sprintf("%s.%d@carestat.org", g.f.FirstName(), id)
		if g.defect("blank_email") {
			email = ""
		}
		rows = append(rows, row{
			"doctor_id":           itoa(id),
			"first_name":          g.f.FirstName(),
			"last_name":           g.f.LastName(),
			"age":                 itoa(2024 - grad + 24),
			"email":               email,
			"gender":              g.pick([]string{"male", "female", "Male", "F"}),
			"specialization":      g.pick(Specializations),
			"graduation_year":     itoa(grad),
			"university_grade":    g.pick(Grades),
			"educational_degree":  g.pick(Degrees),
			"hire_year":           itoa(hire),
			"years_of_experience": itoa(2024 - hire),
			"rating_avg":          fmt.Sprintf("%.1f", g.f.Float64Range(2.5, 5)),
			"salary":              fmt.Sprintf("%.2f", g.f.Price(8000, 60000)),
		})
		rows = g.dup(rows, "duplicate_doctor")
	}
	return rows
}

func (g *generator) patients() []row {
	var rows []row
	for id := 1; id <= g.cfg.Patients; id++ {
		rows = append(rows, row{
			"patient_id":   itoa(id),
			"first_name":   g.f.FirstName(),
			"last_name":    g.f.LastName(),
			"gender":       g.pick([]string{"male", "female"}),
			"age":          itoa(g.f.Number(1, 95)),
			"height_cm":    fmt.Sprintf("%.1f", g.f.Float64Range(50, 200)),
			"weight_kg":    fmt.Sprintf("%.1f", g.f.Float64Range(3, 150)),
			"country":      g.pick(Countries),
			"city":         g.f.City(),
			"visits_count": itoa(g.f.Number(0, 40)),
		})
	}
	return rows
}

func (g *generator) departments() []row {
	var rows []row
	for id := 1; id <= g.cfg.Departments; id++ {
		name := DepartmentNames[(id-1)%len(DepartmentNames)]
		code := fmt.Sprintf("%.4s", name)
		if g.defect("duplicate_department_code") && id > 1 {
			code = rows[0]["department_code"]
		}
		maxCap := g.f.Number(20, 120)
		rows = append(rows, row{
			"department_id":     itoa(id),
			"department_name":   name,
			"department_code":   code,
			"head_doctor_id":    g.ref(g.cfg.Doctors),
			"current_occupancy": itoa(g.f.Number(0, maxCap)),
			"max_capacity":      itoa(maxCap),
			"num_staff":         itoa(g.f.Number(5, 60)),
			"working_hours":     g.pick([]string{"24/7", "08:00-20:00", "09:00-17:00"}),
			"emergency_support": g.pick([]string{"Yes", "No"}),
		})
	}
	return rows
}

func (g *generator) diseases() []row {
	var rows []row
	for id := 1; id <= g.cfg.Diseases; id++ {
		name := Diagnoses[(id-1)%len(Diagnoses)]
		if id > len(Diagnoses) {
			name = fmt.Sprintf("%s type %d", name, (id-1)/len(Diagnoses)+1)
		}
		if g.defect("case_duplicate_disease") && id > 1 {
			name = strings.ToUpper(rows[0]["disease_name"])
		}
		rows = append(rows, row{"disease_id": itoa(id), "disease_name": name})
	}
	return rows
}

func (g *generator) appointments() []row {
	var rows []row
	for id := 1; id <= g.cfg.Appointments; id++ {
		rows = append(rows, row{
			"appointment_id":   itoa(id),
			"doctor_id":        g.ref(g.cfg.Doctors),
			"patient_id":       g.ref(g.cfg.Patients),
			"appointment_date": g.date("2006-01-02 15:04:05"),
			"notes":            "Prescribed " + g.pick(DrugNames),
		})
	}
	return rows
}

func (g *generator) records() []row {
	var rows []row
	for id := 1; id <= g.cfg.Records; id++ {
		cost := fmt.Sprintf("%.2f", g.f.Price(10, 2000))
		if g.defect("negative_cost") {
			cost = "-" + cost
		}
		severity := g.pick([]string{"low", "moderate", "high", "critical"})
		if g.defect("unknown_severity") {
			severity = "urgent"
		}
		rows = append(rows, row{
			"record_id":         itoa(id),
			"patient_id":        g.ref(g.cfg.Patients),
			"doctor_id":         g.ref(g.cfg.Doctors),
			"department_id":     g.ref(g.cfg.Departments),
			"diagnosis":         g.pick(Diagnoses),
			"severity_level":    severity,
			"prescription_cost": cost,
			"record_date":       g.date("2006-01-02"),
		})
		rows = g.dup(rows, "duplicate_record")
	}
	return rows
}

func (g *generator) visits() []row {
	var rows []row
	for id := 1; id <= g.cfg.Visits; id++ {
		date := g.date("2006-01-02")
		if g.defect("bad_date") {
			date = "not-a-date"
		}
		rows = append(rows, row{"visit_id": itoa(id), "patient_id": g.ref(g.cfg.Patients), "visit_date": date})
		rows = g.dup(rows, "duplicate_visit")
	}
	return rows
}

func (g *generator) payments() []row {
	var rows []row
	for id := 1; id <= g.cfg.Payments; id++ {
		r := row{
			"payment_id":     itoa(id),
			"patient_id":     g.ref(g.cfg.Patients),
			"method":         g.pick(tables.PaymentMethods),
			"amount":         fmt.Sprintf("%.2f", g.f.Price(50, 5000)),
			"payment_date":   g.date("2006-01-02"),
			"payment_status": g.pick(tables.PaymentStatuses),
			"transaction_id": g.f.UUID(),
		}
		if g.cfg.Appointments > 0 && g.f.Bool() {
			r["appointment_id"] = g.ref(g.cfg.Appointments)
		}
		if g.cfg.Records > 0 && g.f.Bool() {
			r["record_id"] = g.ref(g.cfg.Records)
		}
		r["department_id"] = g.ref(g.cfg.Departments)
		rows = append(rows, r)
	}
	return rows
}

// phones gives every owner one or two numbers.
func (g *generator) phones(owner string, n int) []row {
	var rows []row
	for id := 1; id <= n; id++ {
		for k := g.f.Number(1, 2); k > 0; k-- {
			rows = append(rows, row{owner: itoa(id), "phone": g.phone()})
			rows = g.dup(rows, "duplicate_phone")
		}
	}
	return rows
}

func (g *generator) workload() []row {
	var rows []row
	for id := 1; id <= g.cfg.Doctors; id++ {
		hours := itoa(g.f.Number(4, 60))
		if g.defect("negative_hours") {
			hours = "-" + hours
		}
		rows = append(rows, row{
			"doctor_id":           itoa(id),
			"department_id":       g.ref(g.cfg.Departments),
			"workload_hours_week": hours,
		})
		rows = g.dup(rows, "duplicate_assignment")
	}
	return rows
}

func (g *generator) equipment() []row {
	var rows []row
	for id := 1; id <= g.cfg.Departments; id++ {
		for k := g.f.Number(2, 4); k > 0; k-- {
			rows = append(rows, row{"department_id": itoa(id), "equipment_name": g.pick(Equipment)})
		}
	}
	return rows
}

func (g *generator) workplaces() []row {
	var rows []row
	for id := 1; id <= g.cfg.Doctors; id++ {
		rows = append(rows, row{"doctor_id": itoa(id), "workplace": g.pick(Workplaces)})
		rows = g.dup(rows, "duplicate_workplace")
	}
	return rows
}
