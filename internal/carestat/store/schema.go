package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/vaibhaw-/CareStat/internal/carestat/logger"
	"github.com/vaibhaw-/CareStat/internal/carestat/tables"
)

type colType int

const (
	tID colType = iota
	tInt
	tMoney
	tReal
	tTime
	tText
)

type column struct {
	name string
	typ  colType
	size int
	// extra is appended verbatim, e.g. NOT NULL or a CHECK clause.
	extra string
}

type tableDDL struct {
	name        string
	columns     []column
	constraints []string
}

func typeName(driver string, c column) string {
	switch c.typ {
	case tID:
		if driver == "sqlite3" {
			return "INTEGER"
		}
		return "BIGINT"
	case tInt:
		if driver == "mysql" {
			return "INT"
		}
		return "INTEGER"
	case tMoney:
		switch driver {
		case "sqlite3":
			return "REAL"
		case "mysql":
			return "DECIMAL(12,2)"
		}
		return "NUMERIC(12,2)"
	case tReal:
		switch driver {
		case "sqlite3":
			return "REAL"
		case "mysql":
			return "DOUBLE"
		}
		return "DOUBLE PRECISION"
	case tTime:
		if driver == "mysql" {
			return "DATETIME"
		}
		return "TIMESTAMP"
	default:
		size := c.size
		if size == 0 {
			size = 255
		}
		return fmt.Sprintf("VARCHAR(%d)", size)
	}
}

func in(col string, vals []string) string {
	quoted := make([]string, len(vals))
	for i, v := range vals {
		quoted[i] = "'" + v + "'"
	}
	return fmt.Sprintf("CHECK (%s IN (%s))", col, strings.Join(quoted, ", "))
}

var gender = []string{"male", "female"}

// schema lists the tables in creation order; foreign keys only point back.
var schema = []tableDDL{
	{
		name: "Doctors",
		columns: []column{
			{name: "doctor_id", typ: tID, extra: "PRIMARY KEY"},
			{name: "first_name", typ: tText, size: 100},
			{name: "last_name", typ: tText, size: 100},
			{name: "age", typ: tInt},
			{name: "email", typ: tText, extra: "UNIQUE"},
			{name: "gender", typ: tText, size: 10, extra: in("gender", gender)},
			{name: "specialization", typ: tText, size: 100},
			{name: "graduation_year", typ: tInt},
			{name: "university_grade", typ: tText, size: 20},
			{name: "educational_degree", typ: tText, size: 100},
			{name: "hire_year", typ: tInt},
			{name: "years_of_experience", typ: tInt},
			{name: "rating_avg", typ: tReal},
			{name: "salary", typ: tMoney},
		},
	},
	{
		name: "Patients",
		columns: []column{
			{name: "patient_id", typ: tID, extra: "PRIMARY KEY"},
			{name: "first_name", typ: tText, size: 100},
			{name: "last_name", typ: tText, size: 100},
			{name: "gender", typ: tText, size: 10, extra: in("gender", gender)},
			{name: "age", typ: tInt},
			{name: "height_cm", typ: tReal},
			{name: "weight_kg", typ: tReal},
			{name: "country", typ: tText, size: 100},
			{name: "city", typ: tText, size: 100},
			{name: "visits_count", typ: tInt},
		},
	},
	{
		name: "Departments",
		columns: []column{
			{name: "department_id", typ: tID, extra: "PRIMARY KEY"},
			{name: "department_name", typ: tText, size: 100},
			{name: "department_code", typ: tText, size: 50, extra: "NOT NULL UNIQUE"},
			{name: "head_doctor_id", typ: tID, extra: "NOT NULL"},
			{name: "current_occupancy", typ: tInt},
			{name: "max_capacity", typ: tInt},
			{name: "num_staff", typ: tInt},
			{name: "working_hours", typ: tText, size: 50},
			{name: "emergency_support", typ: tText, size: 10},
		},
		constraints: []string{"FOREIGN KEY (head_doctor_id) REFERENCES Doctors(doctor_id)"},
	},
	{
		name: "Chronic_Diseases",
		columns: []column{
			{name: "disease_id", typ: tID, extra: "PRIMARY KEY"},
			{name: "disease_name", typ: tText, size: 200, extra: "NOT NULL"},
		},
	},
	{
		name: "Appointments",
		columns: []column{
			{name: "appointment_id", typ: tID, extra: "PRIMARY KEY"},
			{name: "doctor_id", typ: tID, extra: "NOT NULL"},
			{name: "patient_id", typ: tID, extra: "NOT NULL"},
			{name: "appointment_date", typ: tTime},
			{name: "notes", typ: tText, size: 1000},
		},
		constraints: []string{
			"FOREIGN KEY (doctor_id) REFERENCES Doctors(doctor_id)",
			"FOREIGN KEY (patient_id) REFERENCES Patients(patient_id)",
		},
	},
	{
		name: "Medical_Records",
		columns: []column{
			{name: "record_id", typ: tID, extra: "PRIMARY KEY"},
			{name: "patient_id", typ: tID, extra: "NOT NULL"},
			{name: "doctor_id", typ: tID, extra: "NOT NULL"},
			{name: "department_id", typ: tID, extra: "NOT NULL"},
			{name: "diagnosis", typ: tText, size: 500},
			{name: "severity_level", typ: tText, size: 20, extra: in("severity_level", tables.SeverityLevels)},
			{name: "prescription_cost", typ: tMoney, extra: "CHECK (prescription_cost >= 0)"},
			{name: "record_date", typ: tTime, extra: "NOT NULL"},
		},
		constraints: []string{
			"FOREIGN KEY (patient_id) REFERENCES Patients(patient_id)",
			"FOREIGN KEY (doctor_id) REFERENCES Doctors(doctor_id)",
			"FOREIGN KEY (department_id) REFERENCES Departments(department_id)",
		},
	},
	{
		name: "Visits",
		columns: []column{
			{name: "visit_id", typ: tID, extra: "PRIMARY KEY"},
			{name: "patient_id", typ: tID, extra: "NOT NULL"},
			{name: "visit_date", typ: tTime, extra: "NOT NULL"},
		},
		constraints: []string{"FOREIGN KEY (patient_id) REFERENCES Patients(patient_id)"},
	},
	{
		name: "Payments",
		columns: []column{
			{name: "payment_id", typ: tID, extra: "PRIMARY KEY"},
			{name: "patient_id", typ: tID, extra: "NOT NULL"},
			{name: "appointment_id", typ: tID},
			{name: "record_id", typ: tID},
			{name: "department_id", typ: tID},
			{name: "method", typ: tText, size: 20, extra: "NOT NULL " + in("method", tables.PaymentMethods)},
			{name: "amount", typ: tMoney, extra: "NOT NULL CHECK (amount >= 0)"},
			{name: "payment_date", typ: tTime, extra: "NOT NULL"},
			{name: "payment_status", typ: tText, size: 20, extra: in("payment_status", tables.PaymentStatuses)},
			{name: "transaction_id", typ: tText, size: 100},
		},
		constraints: []string{
			"FOREIGN KEY (patient_id) REFERENCES Patients(patient_id)",
			"FOREIGN KEY (appointment_id) REFERENCES Appointments(appointment_id)",
			"FOREIGN KEY (record_id) REFERENCES Medical_Records(record_id)",
			"FOREIGN KEY (department_id) REFERENCES Departments(department_id)",
		},
	},
	{
		name: "DoctorPhones",
		columns: []column{
			{name: "doctor_id", typ: tID, extra: "NOT NULL"},
			{name: "phone", typ: tText, size: 11, extra: "NOT NULL CHECK (LENGTH(phone) = 11)"},
		},
		constraints: []string{
			"PRIMARY KEY (doctor_id, phone)",
			"FOREIGN KEY (doctor_id) REFERENCES Doctors(doctor_id)",
		},
	},
	{
		name: "PatientPhones",
		columns: []column{
			{name: "patient_id", typ: tID, extra: "NOT NULL"},
			{name: "phone", typ: tText, size: 11, extra: "NOT NULL CHECK (LENGTH(phone) = 11)"},
		},
		constraints: []string{
			"PRIMARY KEY (patient_id, phone)",
			"FOREIGN KEY (patient_id) REFERENCES Patients(patient_id)",
		},
	},
	{
		name: "DoctorDepartment",
		columns: []column{
			{name: "doctor_id", typ: tID, extra: "NOT NULL"},
			{name: "department_id", typ: tID, extra: "NOT NULL"},
			{name: "workload_hours_week", typ: tInt, extra: "CHECK (workload_hours_week >= 0)"},
		},
		constraints: []string{
			"PRIMARY KEY (doctor_id, department_id)",
			"FOREIGN KEY (doctor_id) REFERENCES Doctors(doctor_id)",
			"FOREIGN KEY (department_id) REFERENCES Departments(department_id)",
		},
	},
	{
		name: "Department_Equipment",
		columns: []column{
			{name: "department_id", typ: tID, extra: "NOT NULL"},
			{name: "equipment_name", typ: tText, size: 200, extra: "NOT NULL"},
		},
		constraints: []string{
			"PRIMARY KEY (department_id, equipment_name)",
			"FOREIGN KEY (department_id) REFERENCES Departments(department_id)",
		},
	},
	{
		name: "DoctorWorkplaces",
		columns: []column{
			{name: "doctor_id", typ: tID, extra: "NOT NULL"},
			{name: "workplace", typ: tText, size: 200, extra: "NOT NULL"},
		},
		constraints: []string{
			"PRIMARY KEY (doctor_id, workplace)",
			"FOREIGN KEY (doctor_id) REFERENCES Doctors(doctor_id)",
		},
	},
}

// Schema returns the DDL statements creating every table for driver.
func Schema(driver string) ([]string, error) {
	switch driver {
	case "postgres", "mysql", "sqlite3":
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	var stmts []string
	for _, t := range schema {
		var lines []string
		for _, c := range t.columns {
			line := fmt.Sprintf("    %s %s", c.name, typeName(driver, c))
			if c.extra != "" {
				line += " " + c.extra
			}
			lines = append(lines, line)
		}
		for _, con := range t.constraints {
			lines = append(lines, "    "+con)
		}
		stmts = append(stmts, fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n%s\n)", t.name, strings.Join(lines, ",\n")))
	}

	// case-insensitive disease names
	switch driver {
	case "mysql":
		stmts = append(stmts, "CREATE UNIQUE INDEX ux_chronic_diseases_name ON Chronic_Diseases ((LOWER(disease_name)))")
	default:
		stmts = append(stmts, "CREATE UNIQUE INDEX IF NOT EXISTS ux_chronic_diseases_name ON Chronic_Diseases (LOWER(disease_name))")
	}
	return stmts, nil
}

// ApplySchema creates the tables that do not exist yet.
func ApplySchema(ctx context.Context, db *sqlx.DB) error {
	stmts, err := Schema(db.DriverName())
	if err != nil {
		return err
	}
	log := logger.L()
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			if db.DriverName() == "mysql" && strings.Contains(err.Error(), "Duplicate key name") {
				continue
			}
			return fmt.Errorf("apply schema: %w\n%s", err, s)
		}
	}
	log.Infow("schema applied", "driver", db.DriverName(), "statements", len(stmts))
	return nil
}
