package analysis

import (
	"fmt"
	"strings"
)

// Report is the view model behind every visual of the dashboard. It is
// rebuilt from the full dataset on each selection change.
type Report struct {
	Selection     string `json:"selection" yaml:"selection"`
	ReferenceYear int    `json:"reference_year" yaml:"reference_year"`
	// Records is the size of the filtered view, dated or not.
	Records int `json:"records" yaml:"records"`
	Undated int `json:"undated" yaml:"undated"`
	KPI     KPI `json:"kpi" yaml:"kpi"`

	Annual        []ClassCount      `json:"annual" yaml:"annual"`
	Monthly       []MonthClassCount `json:"monthly" yaml:"monthly"`
	MonthlyByType []MonthClassCount `json:"monthly_by_type" yaml:"monthly_by_type"`
	MonthTable    []MonthSummaryRow `json:"month_table" yaml:"month_table"`
	RegionalAM    []KeyCount        `json:"regional_am" yaml:"regional_am"`
	ReasonsAM     []KeyCount        `json:"reasons_am" yaml:"reasons_am"`
	ReasonsAS     []KeyCount        `json:"reasons_as" yaml:"reasons_as"`

	States   []string `json:"states" yaml:"states"`
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`

	// View is the filtered dataset, used by exporters.
	View *Dataset `json:"-" yaml:"-"`
}

// BuildReport filters full by selection and computes every aggregate over
// the reference year (the latest year present in the filtered view).
func BuildReport(full *Dataset, selection string) *Report {
	sel := normValue(selection)
	if IsTotal(sel) {
		sel = SelectionTotal
	}
	view := FilterByState(full, sel)
	rep := &Report{
		Selection: sel,
		Records:   view.Len(),
		Undated:   view.Undated,
		States:    States(full),
		View:      view,
	}
	year, ok := ReferenceYear(view, full)
	if !ok {
		return rep
	}
	rep.ReferenceYear = year
	base := FilterByYear(view, year)
	rep.KPI = Totals(base)
	rep.Annual = TypeByClass(base)
	rep.Monthly = MonthByClass(base)
	rep.MonthlyByType = MonthByTypeClass(base)
	rep.MonthTable = MonthSummary(base)
	rep.RegionalAM = ImprocedentBy(base, RoleRegional, CategoryAM)
	rep.ReasonsAM = ImprocedentBy(base, RoleReason, CategoryAM)
	rep.ReasonsAS = ImprocedentBy(base, RoleReason, CategoryAS)
	return rep
}

// FileBase returns the export file name without extension. The selection
// comes from source data, so anything outside [A-Za-z0-9_-] becomes '_' and
// the name can never carry a path separator or a ".." segment.
func (r *Report) FileBase() string {
	sel := strings.Map(func(c rune) rune {
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '_', c == '-':
			return c
		}
		return '_'
	}, r.Selection)
	return fmt.Sprintf("IW58_Dashboard_%s_%d", sel, r.ReferenceYear)
}

// FormatInt renders n with dot thousands separators ("12.345").
func FormatInt(n int) string {
	neg := n < 0
	if neg {
		n = -n
	}
	s := fmt.Sprintf("%d", n)
	var b strings.Builder
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(c)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

const noData = "(sem dados no período)"

// Markdown renders a compact text report.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[DASHBOARD IW58]\n")
	b.WriteString(fmt.Sprintf("Filtro: %s\n", r.Selection))
	if r.ReferenceYear > 0 {
		b.WriteString(fmt.Sprintf("Ano de referência: %d\n", r.ReferenceYear))
	}
	b.WriteString(fmt.Sprintf("Registros no filtro: %s\n", FormatInt(r.Records)))
	if r.Undated > 0 {
		b.WriteString(fmt.Sprintf("Registros sem data válida: %s\n", FormatInt(r.Undated)))
	}

	b.WriteString(fmt.Sprintf("\n[ACUMULADO DE NOTAS AM / AS – %d]\n", r.ReferenceYear))
	b.WriteString(fmt.Sprintf("- TOTAL: %s\n- AM: %s\n- AS: %s\n", FormatInt(r.KPI.Total), FormatInt(r.KPI.AM), FormatInt(r.KPI.AS)))

	b.WriteString("\n[ACUMULADO ANUAL]\n")
	if len(r.Annual) == 0 {
		b.WriteString(noData + "\n")
	}
	for _, c := range r.Annual {
		b.WriteString(fmt.Sprintf("- %s %s: %s\n", safeName(c.Category), c.Class.Label(), FormatInt(c.Count)))
	}

	b.WriteString("\n[ACUMULADO MENSAL]\n")
	if len(r.MonthTable) == 0 {
		b.WriteString(noData + "\n")
	} else {
		b.WriteString("| MÊS | IMPROCEDENTE | PROCEDENTE | OUTROS | TOTAL | % PROCEDENTE |\n")
		b.WriteString("| --- | --- | --- | --- | --- | --- |\n")
		pct := map[monthKey]string{}
		for _, m := range r.Monthly {
			if m.PercentLabel != "" {
				pct[monthKey{m.Year, m.Month}] = m.PercentLabel
			}
		}
		for _, row := range r.MonthTable {
			p := pct[monthKey{row.Year, row.Month}]
			if p == "" {
				p = "-"
			}
			b.WriteString(fmt.Sprintf("| %s | %d | %d | %d | %d | %s |\n",
				row.Label, row.Improcedent, row.Procedent, row.Other, row.Total, p))
		}
	}

	writeKeyCounts(&b, "IMPROCEDÊNCIAS POR REGIONAL – NOTA AM", r.RegionalAM)
	writeKeyCounts(&b, "MOTIVOS DE IMPROCEDÊNCIAS – NOTA AM", r.ReasonsAM)
	writeKeyCounts(&b, "MOTIVOS DE IMPROCEDÊNCIAS – NOTAS AS", r.ReasonsAS)

	if len(r.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range r.Warnings {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// writeKeyCounts lists largest first; the aggregate itself is ascending.
func writeKeyCounts(b *strings.Builder, title string, rows []KeyCount) {
	b.WriteString("\n[" + title + "]\n")
	if len(rows) == 0 {
		b.WriteString(noData + "\n")
		return
	}
	for i := len(rows) - 1; i >= 0; i-- {
		b.WriteString(fmt.Sprintf("- %s: %s\n", safeVal(rows[i].Key), FormatInt(rows[i].Count)))
	}
}
