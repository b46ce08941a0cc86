package tables

import (
	"math"
	"strings"

	"github.com/vaibhaw-/CareStat/internal/carestat/ingest"
	r "github.com/vaibhaw-/CareStat/internal/carestat/reconcile"
)

// catalogue lists the table constructors in load order: referenced tables
// come before the tables pointing at them.
var catalogue = []func() *Table{
	doctors,
	patients,
	departments,
	chronicDiseases,
	appointments,
	medicalRecords,
	visits,
	payments,
	doctorPhones,
	patientPhones,
	doctorDepartment,
	departmentEquipment,
	doctorWorkplaces,
}

// references maps a reference set name to the query that fetches it.
var references = map[string]Reference{
	"doctors":              {Name: "doctors", Query: "SELECT doctor_id FROM Doctors", Kinds: []Kind{KindInt}},
	"doctor_emails":        {Name: "doctor_emails", Query: "SELECT email FROM Doctors WHERE email IS NOT NULL", Kinds: []Kind{KindString}},
	"patients":             {Name: "patients", Query: "SELECT patient_id FROM Patients", Kinds: []Kind{KindInt}},
	"departments":          {Name: "departments", Query: "SELECT department_id FROM Departments", Kinds: []Kind{KindInt}},
	"department_codes":     {Name: "department_codes", Query: "SELECT department_code FROM Departments", Kinds: []Kind{KindString}},
	"diseases":             {Name: "diseases", Query: "SELECT disease_id FROM Chronic_Diseases", Kinds: []Kind{KindInt}},
	"disease_names":        {Name: "disease_names", Query: "SELECT LOWER(disease_name) FROM Chronic_Diseases", Kinds: []Kind{KindString}},
	"appointments":         {Name: "appointments", Query: "SELECT appointment_id FROM Appointments", Kinds: []Kind{KindInt}},
	"medical_records":      {Name: "medical_records", Query: "SELECT record_id FROM Medical_Records", Kinds: []Kind{KindInt}},
	"visits":               {Name: "visits", Query: "SELECT visit_id FROM Visits", Kinds: []Kind{KindInt}},
	"payments":             {Name: "payments", Query: "SELECT payment_id FROM Payments", Kinds: []Kind{KindInt}},
	"doctor_phones":        {Name: "doctor_phones", Query: "SELECT doctor_id, phone FROM DoctorPhones", Kinds: []Kind{KindInt, KindString}},
	"patient_phones":       {Name: "patient_phones", Query: "SELECT patient_id, phone FROM PatientPhones", Kinds: []Kind{KindInt, KindString}},
	"doctor_departments":   {Name: "doctor_departments", Query: "SELECT doctor_id, department_id FROM DoctorDepartment", Kinds: []Kind{KindInt, KindInt}},
	"department_equipment": {Name: "department_equipment", Query: "SELECT department_id, equipment_name FROM Department_Equipment", Kinds: []Kind{KindInt, KindString}},
	"doctor_workplaces":    {Name: "doctor_workplaces", Query: "SELECT doctor_id, workplace FROM DoctorWorkplaces", Kinds: []Kind{KindInt, KindString}},
}

var genderAliases = map[string]string{"m": "male", "f": "female"}

// Enumerations shared with the schema CHECK constraints.
var (
	SeverityLevels  = []string{"low", "moderate", "high", "critical"}
	PaymentMethods  = []string{"cash", "credit_card", "debit_card", "insurance", "online"}
	PaymentStatuses = []string{"pending", "completed", "failed", "refunded"}
)

func nonNegative(v any) bool {
	switch t := v.(type) {
	case int64:
		return t >= 0
	case float64:
		return t >= 0
	default:
		return false
	}
}

func member(allowed []string) func(any) bool {
	return func(v any) bool {
		s, ok := v.(string)
		if !ok {
			return false
		}
		for _, a := range allowed {
			if s == a {
				return true
			}
		}
		return false
	}
}

func oneOf(vals []string) r.OneOf {
	out := make(r.OneOf, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}

func remap(field, set string) r.ForeignKeyRule {
	return r.ForeignKeyRule{Field: field, Set: set, Action: r.FKRemap}
}

// ----------------- entry tables -----------------

type doctorRow struct {
	DoctorID          string `csv:"doctor_id"`
	FirstName         string `csv:"first_name"`
	LastName          string `csv:"last_name"`
	Age               string `csv:"age"`
	Email             string `csv:"email"`
	Gender            string `csv:"gender"`
	Specialization    string `csv:"specialization"`
	GraduationYear    string `csv:"graduation_year"`
	UniversityGrade   string `csv:"university_grade"`
	EducationalDegree string `csv:"educational_degree"`
	HireYear          string `csv:"hire_year"`
	YearsOfExperience string `csv:"years_of_experience"`
	RatingAvg         string `csv:"rating_avg"`
	Salary            string `csv:"salary"`
}

func doctors() *Table {
	required := []string{
		"doctor_id", "first_name", "last_name", "age", "email", "gender",
		"specialization", "graduation_year", "university_grade",
		"educational_degree", "hire_year", "years_of_experience",
		"rating_avg", "salary",
	}
	return &Table{
		Name:     "doctors",
		SQLName:  "Doctors",
		File:     "Doctor_data.csv",
		Required: required,
		Columns:  required,
		policy: r.Policy{
			Table:    "doctors",
			Identity: &r.IdentityRule{Fields: []string{"doctor_id"}, Set: "doctors"},
			Unique: []r.UniqueRule{
				{Name: "email", Fields: []string{"email"}, Set: "doctor_emails", Action: r.CollisionSkip},
			},
		},
		read: reader("doctors", required, func(row doctorRow, f *ingest.Fields) {
			f.Int("doctor_id", row.DoctorID, true)
			f.Text("first_name", row.FirstName, false)
			f.Text("last_name", row.LastName, false)
			f.Int("age", row.Age, false)
			f.Text("email", row.Email, true)
			f.Enum("gender", row.Gender, nil, "male", "female")
			f.Text("specialization", row.Specialization, false)
			f.Int("graduation_year", row.GraduationYear, false)
			f.Text("university_grade", row.UniversityGrade, false)
			f.Text("educational_degree", row.EducationalDegree, false)
			f.Int("hire_year", row.HireYear, false)
			f.Int("years_of_experience", row.YearsOfExperience, false)
			f.Float("rating_avg", row.RatingAvg, false)
			f.Float("salary", row.Salary, false)
		}),
	}
}

type patientRow struct {
	PatientID   string `csv:"patient_id"`
	FirstName   string `csv:"first_name"`
	LastName    string `csv:"last_name"`
	Gender      string `csv:"gender"`
	Age         string `csv:"age"`
	HeightCM    string `csv:"height_cm"`
	WeightKG    string `csv:"weight_kg"`
	Country     string `csv:"country"`
	City        string `csv:"city"`
	VisitsCount string `csv:"visits_count"`
}

func patients() *Table {
	required := []string{
		"patient_id", "first_name", "last_name", "gender", "age",
		"height_cm", "weight_kg", "country", "city", "visits_count",
	}
	return &Table{
		Name:     "patients",
		SQLName:  "Patients",
		File:     "Patient_data.csv",
		Required: required,
		Columns:  required,
		policy: r.Policy{
			Table:    "patients",
			Identity: &r.IdentityRule{Fields: []string{"patient_id"}, Set: "patients"},
		},
		read: reader("patients", required, func(row patientRow, f *ingest.Fields) {
			f.Int("patient_id", row.PatientID, true)
			f.Text("first_name", row.FirstName, false)
			f.Text("last_name", row.LastName, false)
			f.Enum("gender", row.Gender, genderAliases, "male", "female")
			f.Int("age", row.Age, false)
			f.Float("height_cm", row.HeightCM, false)
			f.Float("weight_kg", row.WeightKG, false)
			f.Text("country", row.Country, false)
			f.Text("city", row.City, false)
			f.Int("visits_count", row.VisitsCount, false)
		}),
	}
}

type diseaseRow struct {
	DiseaseID   string `csv:"disease_id"`
	DiseaseName string `csv:"disease_name"`
}

func chronicDiseases() *Table {
	required := []string{"disease_id", "disease_name"}
	return &Table{
		Name:     "chronic_diseases",
		SQLName:  "Chronic_Diseases",
		File:     "Disease_data.csv",
		Required: required,
		Columns:  required,
		policy: r.Policy{
			Table:    "chronic_diseases",
			Identity: &r.IdentityRule{Fields: []string{"disease_id"}, Set: "diseases"},
			Unique: []r.UniqueRule{
				{Name: "disease_name", Fields: []string{"disease_key"}, Set: "disease_names", Action: r.CollisionSkip},
			},
		},
		read: reader("chronic_diseases", required, func(row diseaseRow, f *ingest.Fields) {
			f.Int("disease_id", row.DiseaseID, true)
			f.Text("disease_name", row.DiseaseName, true)
			if name, ok := f.Get("disease_name").(string); ok {
				f.Set("disease_key", strings.ToLower(name))
			}
		}),
	}
}

type appointmentRow struct {
	AppointmentID   string `csv:"appointment_id"`
	DoctorID        string `csv:"doctor_id"`
	PatientID       string `csv:"patient_id"`
	AppointmentDate string `csv:"appointment_date"`
	Notes           string `csv:"notes"`
}

func appointments() *Table {
	required := []string{"appointment_id", "doctor_id", "patient_id", "appointment_date", "notes"}
	return &Table{
		Name:     "appointments",
		SQLName:  "Appointments",
		File:     "Appointment_data.csv",
		Required: required,
		Columns:  required,
		policy: r.Policy{
			Table:       "appointments",
			Identity:    &r.IdentityRule{Fields: []string{"appointment_id"}, Set: "appointments"},
			ForeignKeys: []r.ForeignKeyRule{remap("doctor_id", "doctors"), remap("patient_id", "patients")},
		},
		read: reader("appointments", required, func(row appointmentRow, f *ingest.Fields) {
			f.Int("appointment_id", row.AppointmentID, true)
			f.Int("doctor_id", row.DoctorID, false)
			f.Int("patient_id", row.PatientID, false)
			f.Date("appointment_date", row.AppointmentDate, false)
			f.Text("notes", row.Notes, false)
		}),
	}
}

type medicalRecordRow struct {
	RecordID         string `csv:"record_id"`
	PatientID        string `csv:"patient_id"`
	DoctorID         string `csv:"doctor_id"`
	DepartmentID     string `csv:"department_id"`
	Diagnosis        string `csv:"diagnosis"`
	SeverityLevel    string `csv:"severity_level"`
	PrescriptionCost string `csv:"prescription_cost"`
	RecordDate       string `csv:"record_date"`
}

func medicalRecords() *Table {
	required := []string{
		"record_id", "patient_id", "doctor_id", "department_id",
		"diagnosis", "severity_level", "prescription_cost", "record_date",
	}
	return &Table{
		Name:     "medical_records",
		SQLName:  "Medical_Records",
		File:     "Medical_record_data.csv",
		Required: required,
		Columns:  required,
		policy: r.Policy{
			Table: "medical_records",
			Identity: &r.IdentityRule{
				Fields: []string{"record_id"}, Set: "medical_records", Action: r.IdentityReassign,
			},
			ForeignKeys: []r.ForeignKeyRule{
				remap("patient_id", "patients"),
				remap("doctor_id", "doctors"),
				remap("department_id", "departments"),
			},
			Checks: []r.CheckRule{
				{Field: "severity_level", Valid: member(SeverityLevels), Repair: oneOf(SeverityLevels)},
				{Field: "prescription_cost", Valid: nonNegative, Repair: r.MoneyRange{Min: 10, Max: 500}},
			},
		},
		read: reader("medical_records", required, func(row medicalRecordRow, f *ingest.Fields) {
			f.Int("record_id", row.RecordID, true)
			f.Int("patient_id", row.PatientID, true)
			f.Int("doctor_id", row.DoctorID, true)
			f.Int("department_id", row.DepartmentID, true)
			f.Text("diagnosis", row.Diagnosis, false)
			f.Text("severity_level", strings.ToLower(row.SeverityLevel), false)
			f.Float("prescription_cost", row.PrescriptionCost, false)
			f.Date("record_date", row.RecordDate, true)
		}),
	}
}

type doctorPhoneRow struct {
	DoctorID string `csv:"doctor_id"`
	Phone    string `csv:"phone"`
}

func doctorPhones() *Table {
	required := []string{"doctor_id", "phone"}
	return &Table{
		Name:     "doctor_phones",
		SQLName:  "DoctorPhones",
		File:     "Doctor_Phones_data.csv",
		Required: required,
		Columns:  required,
		Fixed:    []string{"phone"},
		policy: r.Policy{
			Table:       "doctor_phones",
			Identity:    &r.IdentityRule{Fields: required, Set: "doctor_phones", Scope: r.ScopeStore},
			ForeignKeys: []r.ForeignKeyRule{remap("doctor_id", "doctors")},
			Unique: []r.UniqueRule{{
				Name:        "doctor_phone",
				Fields:      []string{"doctor_id", "phone"},
				Set:         "doctor_phones",
				Action:      r.CollisionRegenerate,
				Vary:        "phone",
				Generator:   r.Pattern("01#########"),
				MaxAttempts: 10000,
			}},
		},
		read: reader("doctor_phones", required, func(row doctorPhoneRow, f *ingest.Fields) {
			f.Int("doctor_id", row.DoctorID, true)
			f.Phone("phone", row.Phone, false)
		}),
	}
}

type workloadRow struct {
	DoctorID     string `csv:"doctor_id"`
	DepartmentID string `csv:"department_id"`
	Hours        string `csv:"workload_hours_week"`
}

func doctorDepartment() *Table {
	required := []string{"doctor_id", "department_id", "workload_hours_week"}
	return &Table{
		Name:     "doctor_department",
		SQLName:  "DoctorDepartment",
		File:     "Department_workload.csv",
		Required: required,
		Columns:  required,
		policy: r.Policy{
			Table: "doctor_department",
			Identity: &r.IdentityRule{
				Fields: []string{"doctor_id", "department_id"}, Set: "doctor_departments", Scope: r.ScopeStore,
			},
			ForeignKeys: []r.ForeignKeyRule{
				remap("doctor_id", "doctors"),
				remap("department_id", "departments"),
			},
			Unique: []r.UniqueRule{{
				Name:        "doctor_department",
				Fields:      []string{"doctor_id", "department_id"},
				Set:         "doctor_departments",
				Action:      r.CollisionRegenerate,
				Vary:        "department_id",
				Generator:   r.FromSet("departments"),
				MaxAttempts: 1000,
				Fallback:    &r.Fallback{Field: "doctor_id", Generator: r.FromSet("doctors"), Rounds: 1},
			}},
			Checks: []r.CheckRule{
				{Field: "workload_hours_week", Valid: nonNegative, Repair: r.IntRange{Min: 10, Max: 60}},
			},
		},
		read: reader("doctor_department", required, func(row workloadRow, f *ingest.Fields) {
			f.Int("doctor_id", row.DoctorID, true)
			f.Int("department_id", row.DepartmentID, true)
			f.Float("workload_hours_week", row.Hours, false)
			if h, ok := f.Get("workload_hours_week").(float64); ok {
				f.Set("workload_hours_week", int64(math.Round(h)))
			}
		}),
	}
}

// ----------------- secondary tables -----------------

type departmentRow struct {
	DepartmentID     string `csv:"department_id"`
	DepartmentName   string `csv:"department_name"`
	DepartmentCode   string `csv:"department_code"`
	HeadDoctorID     string `csv:"head_doctor_id"`
	DoctorID         string `csv:"doctor_id"`
	CurrentOccupancy string `csv:"current_occupancy"`
	MaxCapacity      string `csv:"max_capacity"`
	NumStaff         string `csv:"num_staff"`
	WorkingHours     string `csv:"working_hours"`
	EmergencySupport string `csv:"emergency_support"`
}

func departments() *Table {
	return &Table{
		Name:     "departments",
		SQLName:  "Departments",
		File:     "Department_data.csv",
		Required: []string{"department_id", "department_name", "department_code"},
		Columns: []string{
			"department_id", "department_name", "department_code", "head_doctor_id",
			"current_occupancy", "max_capacity", "num_staff", "working_hours", "emergency_support",
		},
		policy: r.Policy{
			Table: "departments",
			Identity: &r.IdentityRule{
				Fields: []string{"department_id"}, Set: "departments", Action: r.IdentityReassign,
			},
			ForeignKeys: []r.ForeignKeyRule{remap("head_doctor_id", "doctors")},
			Unique: []r.UniqueRule{{
				Name: "department_code", Fields: []string{"department_code"}, Set: "department_codes",
				Action: r.CollisionSuffix, Vary: "department_code",
			}},
		},
		read: reader("departments", []string{"department_id", "department_name", "department_code"}, func(row departmentRow, f *ingest.Fields) {
			head := row.HeadDoctorID
			if strings.TrimSpace(head) == "" {
				// exports name the head doctor column doctor_id
				head = row.DoctorID
			}
			f.Int("department_id", row.DepartmentID, false)
			f.Text("department_name", row.DepartmentName, false)
			f.Text("department_code", row.DepartmentCode, true)
			f.Int("head_doctor_id", head, false)
			f.Int("current_occupancy", row.CurrentOccupancy, false)
			f.Int("max_capacity", row.MaxCapacity, false)
			f.Int("num_staff", row.NumStaff, false)
			f.Text("working_hours", row.WorkingHours, false)
			f.Text("emergency_support", row.EmergencySupport, false)
		}),
	}
}

type visitRow struct {
	VisitID   string `csv:"visit_id"`
	PatientID string `csv:"patient_id"`
	VisitDate string `csv:"visit_date"`
}

func visits() *Table {
	required := []string{"visit_id", "patient_id", "visit_date"}
	return &Table{
		Name:     "visits",
		SQLName:  "Visits",
		File:     "Visit_data.csv",
		Required: required,
		Columns:  required,
		policy: r.Policy{
			Table:       "visits",
			Identity:    &r.IdentityRule{Fields: []string{"visit_id"}, Set: "visits"},
			ForeignKeys: []r.ForeignKeyRule{remap("patient_id", "patients")},
		},
		read: reader("visits", required, func(row visitRow, f *ingest.Fields) {
			f.Int("visit_id", row.VisitID, true)
			f.Int("patient_id", row.PatientID, true)
			f.Date("visit_date", row.VisitDate, true)
		}),
	}
}

type paymentRow struct {
	PaymentID     string `csv:"payment_id"`
	PatientID     string `csv:"patient_id"`
	AppointmentID string `csv:"appointment_id"`
	RecordID      string `csv:"record_id"`
	DepartmentID  string `csv:"department_id"`
	Method        string `csv:"method"`
	Amount        string `csv:"amount"`
	PaymentDate   string `csv:"payment_date"`
	PaymentStatus string `csv:"payment_status"`
	TransactionID string `csv:"transaction_id"`
}

func payments() *Table {
	required := []string{"payment_id", "patient_id", "method", "amount", "payment_date", "payment_status"}
	return &Table{
		Name:     "payments",
		SQLName:  "Payments",
		File:     "Payment_data.csv",
		Required: required,
		Columns: []string{
			"payment_id", "patient_id", "appointment_id", "record_id", "department_id",
			"method", "amount", "payment_date", "payment_status", "transaction_id",
		},
		policy: r.Policy{
			Table:    "payments",
			Identity: &r.IdentityRule{Fields: []string{"payment_id"}, Set: "payments"},
			ForeignKeys: []r.ForeignKeyRule{
				remap("patient_id", "patients"),
				{Field: "appointment_id", Set: "appointments", Action: r.FKNull, Nullable: true},
				{Field: "record_id", Set: "medical_records", Action: r.FKNull, Nullable: true},
				{Field: "department_id", Set: "departments", Action: r.FKNull, Nullable: true},
			},
		},
		read: reader("payments", required, func(row paymentRow, f *ingest.Fields) {
			f.Int("payment_id", row.PaymentID, true)
			f.Int("patient_id", row.PatientID, true)
			f.Int("appointment_id", row.AppointmentID, false)
			f.Int("record_id", row.RecordID, false)
			f.Int("department_id", row.DepartmentID, false)
			f.Enum("method", row.Method, nil, PaymentMethods...)
			f.Float("amount", row.Amount, true)
			f.Require(f.Get("amount") == nil || nonNegative(f.Get("amount")), "amount", "must not be negative")
			f.Date("payment_date", row.PaymentDate, true)
			f.Enum("payment_status", row.PaymentStatus, nil, PaymentStatuses...)
			f.Text("transaction_id", row.TransactionID, false)
		}),
	}
}

type patientPhoneRow struct {
	PatientID string `csv:"patient_id"`
	Phone     string `csv:"phone"`
}

func patientPhones() *Table {
	required := []string{"patient_id", "phone"}
	key := []string{"patient_id", "phone"}
	return &Table{
		Name:     "patient_phones",
		SQLName:  "PatientPhones",
		File:     "Phone_patient.csv",
		Required: required,
		Columns:  required,
		Fixed:    []string{"phone"},
		policy: r.Policy{
			Table:       "patient_phones",
			Identity:    &r.IdentityRule{Fields: key, Set: "patient_phones", Scope: r.ScopeStore},
			ForeignKeys: []r.ForeignKeyRule{remap("patient_id", "patients")},
			Unique: []r.UniqueRule{
				{Name: "patient_phone", Fields: key, Set: "patient_phones", Action: r.CollisionSkip},
			},
		},
		read: reader("patient_phones", required, func(row patientPhoneRow, f *ingest.Fields) {
			f.Int("patient_id", row.PatientID, true)
			f.Phone("phone", row.Phone, true)
		}),
	}
}

type equipmentRow struct {
	DepartmentID  string `csv:"department_id"`
	EquipmentName string `csv:"equipment_name"`
}

func departmentEquipment() *Table {
	required := []string{"department_id", "equipment_name"}
	return &Table{
		Name:     "department_equipment",
		SQLName:  "Department_Equipment",
		File:     "Equipment_data.csv",
		Required: required,
		Columns:  required,
		policy: r.Policy{
			Table:       "department_equipment",
			Identity:    &r.IdentityRule{Fields: required, Set: "department_equipment", Scope: r.ScopeStore},
			ForeignKeys: []r.ForeignKeyRule{remap("department_id", "departments")},
			Unique: []r.UniqueRule{{
				Name: "department_equipment", Fields: required, Set: "department_equipment",
				Action: r.CollisionSuffix, Vary: "equipment_name",
			}},
		},
		read: reader("department_equipment", required, func(row equipmentRow, f *ingest.Fields) {
			f.Int("department_id", row.DepartmentID, true)
			f.Text("equipment_name", row.EquipmentName, true)
		}),
	}
}

type workplaceRow struct {
	DoctorID  string `csv:"doctor_id"`
	Workplace string `csv:"workplace"`
}

func doctorWorkplaces() *Table {
	required := []string{"doctor_id", "workplace"}
	return &Table{
		Name:     "doctor_workplaces",
		SQLName:  "DoctorWorkplaces",
		File:     "Workplace_data.csv",
		Required: required,
		Columns:  required,
		policy: r.Policy{
			Table:       "doctor_workplaces",
			Identity:    &r.IdentityRule{Fields: required, Set: "doctor_workplaces", Scope: r.ScopeStore},
			ForeignKeys: []r.ForeignKeyRule{remap("doctor_id", "doctors")},
			Unique: []r.UniqueRule{{
				Name: "doctor_workplace", Fields: required, Set: "doctor_workplaces",
				Action: r.CollisionSuffix, Vary: "workplace",
			}},
		},
		read: reader("doctor_workplaces", required, func(row workplaceRow, f *ingest.Fields) {
			f.Int("doctor_id", row.DoctorID, true)
			f.Text("workplace", row.Workplace, true)
		}),
	}
}
