// Package extract computes the dashboard KPIs of the merged Care_stat.csv
// export: one section for staff, one for patients and treatment, one for
// payments. Each section has its own filters.
package extract

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/vaibhaw-/CareStat/internal/carestat/ingest"
)

// Required lists the columns read from the extract.
var Required = []string{
	"doctor_id", "salary", "department_name", "gender", "country",
	"patient_id", "disease_name", "severity_level", "prescription_cost", "equipment_name",
	"amount", "payment_status", "method", "payment_date",
}

type statRow struct {
	DoctorID         string `csv:"doctor_id"`
	Salary           string `csv:"salary"`
	DepartmentName   string `csv:"department_name"`
	Gender           string `csv:"gender"`
	Country          string `csv:"country"`
	PatientID        string `csv:"patient_id"`
	DiseaseName      string `csv:"disease_name"`
	SeverityLevel    string `csv:"severity_level"`
	PrescriptionCost string `csv:"prescription_cost"`
	EquipmentName    string `csv:"equipment_name"`
	Amount           string `csv:"amount"`
	PaymentStatus    string `csv:"payment_status"`
	Method           string `csv:"method"`
	PaymentDate      string `csv:"payment_date"`
}

// Row is one extract line with unparseable numbers and dates left unset.
type Row struct {
	DoctorID, Department, Gender, Country string
	PatientID, Disease, Severity, Equipment string
	Status, Method                          string
	// Month is the payment month as YYYY-MM, empty without a payment date.
	Month string

	Salary, Cost, Amount          float64
	HasSalary, HasCost, HasAmount bool
}

func clean(s string) string {
	if ingest.Blank(s) {
		return ""
	}
	return strings.TrimSpace(s)
}

func number(s string) (float64, bool) {
	if ingest.Blank(s) {
		return 0, false
	}
	v, err := ingest.ParseFloat(s)
	return v, err == nil
}

// Load reads the extract. Ragged lines are skipped and counted.
func Load(r io.Reader) ([]Row, int, error) {
	rows, bad, err := ingest.Decode[statRow](r, Required)
	if err != nil {
		return nil, 0, fmt.Errorf("read extract: %w", err)
	}
	out := make([]Row, 0, len(rows))
	for _, in := range rows {
		v := in.Value
		row := Row{
			DoctorID:   clean(v.DoctorID),
			Department: clean(v.DepartmentName),
			Gender:     clean(v.Gender),
			Country:    clean(v.Country),
			PatientID:  clean(v.PatientID),
			Disease:    clean(v.DiseaseName),
			Severity:   clean(v.SeverityLevel),
			Equipment:  clean(v.EquipmentName),
			Status:     clean(v.PaymentStatus),
			Method:     clean(v.Method),
		}
		row.Salary, row.HasSalary = number(v.Salary)
		row.Cost, row.HasCost = number(v.PrescriptionCost)
		row.Amount, row.HasAmount = number(v.Amount)
		if !ingest.Blank(v.PaymentDate) {
			if t, err := ingest.ParseDate(v.PaymentDate); err == nil {
				row.Month = t.Format("2006-01")
			}
		}
		out = append(out, row)
	}
	return out, len(bad), nil
}

// Filter selects rows per section. Empty fields match everything.
type Filter struct {
	Department, Gender, Country string
	Disease, Severity           string
	Status, Method              string
}

func match(want, got string) bool {
	return want == "" || strings.EqualFold(want, got)
}

// Count is one value of a breakdown.
type Count struct {
	Key   string
	Value float64
}

// Staff is the hospital overview section.
type Staff struct {
	Rows            int
	Employees       int
	AvgSalary       float64
	HasSalary       bool
	Departments     int
	FemalePct       float64
	ByDepartment    []Count // rows per department
	SalaryByDept    []Count // mean salary
	GenderBreakdown []Count
}

// Patients is the patient and treatment section.
type Patients struct {
	Rows              int
	Patients          int
	TopDisease        string
	AvgCost           float64
	HasCost           bool
	Devices           int
	TopDiseases       []Count // ten most frequent
	CostByDisease     []Count
	SeverityBreakdown []Count
}

// Finance is the financial performance section.
type Finance struct {
	Rows            int
	Revenue         float64
	AvgTransaction  float64
	HasAmount       bool
	CompletedPct    float64
	TopMethod       string
	StatusBreakdown []Count
	MethodBreakdown []Count
	RevenueByMonth  []Count // in month order
}

// Report holds all three sections.
type Report struct {
	Staff    Staff
	Patients Patients
	Finance  Finance
}

// Compute builds the report. Means skip unset values, percentages count
// every selected row.
func Compute(rows []Row, f Filter) Report {
	return Report{
		Staff:    staff(rows, f),
		Patients: patients(rows, f),
		Finance:  finance(rows, f),
	}
}

func staff(rows []Row, f Filter) Staff {
	var (
		s        Staff
		doctors  = map[string]bool{}
		depts    = counter{}
		genders  = counter{}
		salaries = means{}
		total    mean
		female   int
	)
	for _, r := range rows {
		if !match(f.Department, r.Department) || !match(f.Gender, r.Gender) || !match(f.Country, r.Country) {
			continue
		}
		s.Rows++
		if r.DoctorID != "" {
			doctors[r.DoctorID] = true
		}
		depts.add(r.Department)
		genders.add(r.Gender)
		if r.Gender == "female" {
			female++
		}
		if r.HasSalary {
			total.add(r.Salary)
			salaries.add(r.Department, r.Salary)
		}
	}
	s.Employees = len(doctors)
	s.Departments = len(depts)
	s.AvgSalary, s.HasSalary = total.value()
	if s.Rows > 0 {
		s.FemalePct = 100 * float64(female) / float64(s.Rows)
	}
	s.ByDepartment = depts.sorted()
	s.SalaryByDept = salaries.sorted()
	s.GenderBreakdown = genders.sorted()
	return s
}

func patients(rows []Row, f Filter) Patients {
	var (
		p          Patients
		ids        = map[string]bool{}
		devices    = map[string]bool{}
		diseases   = counter{}
		severities = counter{}
		costs      = means{}
		total      mean
	)
	for _, r := range rows {
		if !match(f.Disease, r.Disease) || !match(f.Severity, r.Severity) {
			continue
		}
		p.Rows++
		if r.PatientID != "" {
			ids[r.PatientID] = true
		}
		if r.Equipment != "" {
			devices[r.Equipment] = true
		}
		diseases.add(r.Disease)
		severities.add(r.Severity)
		if r.HasCost {
			total.add(r.Cost)
			costs.add(r.Disease, r.Cost)
		}
	}
	p.Patients = len(ids)
	p.Devices = len(devices)
	p.AvgCost, p.HasCost = total.value()
	top := diseases.sorted()
	if len(top) > 0 {
		p.TopDisease = top[0].Key
	}
	if len(top) > 10 {
		top = top[:10]
	}
	p.TopDiseases = top
	p.CostByDisease = costs.sorted()
	p.SeverityBreakdown = severities.sorted()
	return p
}

func finance(rows []Row, f Filter) Finance {
	var (
		fin       Finance
		statuses  = counter{}
		methods   = counter{}
		byMonth   = map[string]float64{}
		amounts   mean
		completed int
	)
	for _, r := range rows {
		if !match(f.Status, r.Status) || !match(f.Method, r.Method) {
			continue
		}
		fin.Rows++
		statuses.add(r.Status)
		methods.add(r.Method)
		if r.Status == "completed" {
			completed++
		}
		if r.HasAmount {
			amounts.add(r.Amount)
			if r.Month != "" {
				byMonth[r.Month] += r.Amount
			}
		}
	}
	fin.Revenue = amounts.sum
	fin.AvgTransaction, fin.HasAmount = amounts.value()
	if fin.Rows > 0 {
		fin.CompletedPct = 100 * float64(completed) / float64(fin.Rows)
	}
	fin.StatusBreakdown = statuses.sorted()
	fin.MethodBreakdown = methods.sorted()
	if m := fin.MethodBreakdown; len(m) > 0 {
		fin.TopMethod = m[0].Key
	}
	months := make([]string, 0, len(byMonth))
	for m := range byMonth {
		months = append(months, m)
	}
	sort.Strings(months)
	for _, m := range months {
		fin.RevenueByMonth = append(fin.RevenueByMonth, Count{Key: m, Value: byMonth[m]})
	}
	return fin
}

// counter counts non-empty keys.
type counter map[string]float64

func (c counter) add(key string) {
	if key != "" {
		c[key]++
	}
}

// sorted orders by count descending, then key.
func (c counter) sorted() []Count {
	out := make([]Count, 0, len(c))
	for k, v := range c {
		out = append(out, Count{Key: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value == out[j].Value {
			return out[i].Key < out[j].Key
		}
		return out[i].Value > out[j].Value
	})
	return out
}

type mean struct {
	sum float64
	n   int
}

func (m *mean) add(v float64) {
	m.sum += v
	m.n++
}

func (m mean) value() (float64, bool) {
	if m.n == 0 {
		return 0, false
	}
	return m.sum / float64(m.n), true
}

// means keeps a mean per non-empty key.
type means map[string]*mean

func (ms means) add(key string, v float64) {
	if key == "" {
		return
	}
	m, ok := ms[key]
	if !ok {
		m = &mean{}
		ms[key] = m
	}
	m.add(v)
}

// sorted orders by key.
func (ms means) sorted() []Count {
	out := make([]Count, 0, len(ms))
	for k, m := range ms {
		v, _ := m.value()
		out = append(out, Count{Key: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
