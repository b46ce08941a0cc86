package extract

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/table"
	"github.com/jedib0t/go-pretty/text"
)

func newTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("%s", title)
	t.Style().Format.Header = text.FormatDefault
	return t
}

func money(v float64, ok bool, decimals int) string {
	if !ok {
		return "N/A"
	}
	return fmt.Sprintf("%.*f", decimals, v)
}

func pct(v float64, rows int) string {
	if rows == 0 {
		return "N/A"
	}
	return fmt.Sprintf("%.1f%%", v)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func breakdown(w io.Writer, title, key, value string, counts []Count, format string) {
	if len(counts) == 0 {
		return
	}
	t := newTable(w, title)
	t.AppendHeader(table.Row{key, value})
	for _, c := range counts {
		t.AppendRow(table.Row{c.Key, fmt.Sprintf(format, c.Value)})
	}
	t.Render()
	fmt.Fprintln(w)
}

// Render writes the KPI tables of every section. Detail breakdowns are
// skipped when brief is set.
func Render(w io.Writer, r Report, brief bool) {
	s := r.Staff
	t := newTable(w, "Hospital overview")
	t.AppendHeader(table.Row{"metric", "value"})
	t.AppendRows([]table.Row{
		{"Total employees", s.Employees},
		{"Average salary", money(s.AvgSalary, s.HasSalary, 0)},
		{"Departments", s.Departments},
		{"Female staff", pct(s.FemalePct, s.Rows)},
	})
	t.Render()
	fmt.Fprintln(w)
	if !brief {
		breakdown(w, "Staff rows by department", "department", "rows", s.ByDepartment, "%.0f")
		breakdown(w, "Average salary by department", "department", "salary", s.SalaryByDept, "%.0f")
	}

	p := r.Patients
	t = newTable(w, "Patients and treatment")
	t.AppendHeader(table.Row{"metric", "value"})
	t.AppendRows([]table.Row{
		{"Total patients", p.Patients},
		{"Most common disease", orNA(p.TopDisease)},
		{"Average prescription cost", money(p.AvgCost, p.HasCost, 2)},
		{"Medical devices", p.Devices},
	})
	t.Render()
	fmt.Fprintln(w)
	if !brief {
		breakdown(w, "Top diseases", "disease", "rows", p.TopDiseases, "%.0f")
		breakdown(w, "Average cost by disease", "disease", "cost", p.CostByDisease, "%.2f")
		breakdown(w, "Severity", "severity", "rows", p.SeverityBreakdown, "%.0f")
	}

	f := r.Finance
	t = newTable(w, "Financial performance")
	t.AppendHeader(table.Row{"metric", "value"})
	t.AppendRows([]table.Row{
		{"Total revenue", money(f.Revenue, f.HasAmount, 0)},
		{"Average transaction", money(f.AvgTransaction, f.HasAmount, 2)},
		{"Completed payments", pct(f.CompletedPct, f.Rows)},
		{"Most common method", orNA(f.TopMethod)},
	})
	t.Render()
	fmt.Fprintln(w)
	if !brief {
		breakdown(w, "Payment status", "status", "rows", f.StatusBreakdown, "%.0f")
		breakdown(w, "Payment method", "method", "rows", f.MethodBreakdown, "%.0f")
		breakdown(w, "Revenue by month", "month", "revenue", f.RevenueByMonth, "%.2f")
	}
}
