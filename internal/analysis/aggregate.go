package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// ClassCount is one (category, class) cell of the annual stacked view.
type ClassCount struct {
	Category string       `json:"category" yaml:"category"`
	Class    OutcomeClass `json:"class" yaml:"class"`
	Count    int          `json:"count" yaml:"count"`
}

// MonthClassCount is one bar segment of a monthly view. Category is empty
// for the all-categories view. PercentLabel is set only for PROCEDENT.
type MonthClassCount struct {
	Year         int          `json:"year" yaml:"year"`
	Month        int          `json:"month" yaml:"month"`
	Label        string       `json:"label" yaml:"label"`
	Category     string       `json:"category,omitempty" yaml:"category,omitempty"`
	Class        OutcomeClass `json:"class" yaml:"class"`
	Count        int          `json:"count" yaml:"count"`
	Percent      int          `json:"percent" yaml:"percent"`
	PercentLabel string       `json:"percent_label,omitempty" yaml:"percent_label,omitempty"`
}

// KeyCount is a count per free-text key (regional unit, reason).
type KeyCount struct {
	Key   string `json:"key" yaml:"key"`
	Count int    `json:"count" yaml:"count"`
}

// MonthSummaryRow is one row of the fixed-column monthly table.
type MonthSummaryRow struct {
	Year        int    `json:"year" yaml:"year"`
	Month       int    `json:"month" yaml:"month"`
	Label       string `json:"label" yaml:"label"`
	Improcedent int    `json:"improcedent" yaml:"improcedent"`
	Procedent   int    `json:"procedent" yaml:"procedent"`
	Other       int    `json:"other" yaml:"other"`
	Total       int    `json:"total" yaml:"total"`
}

// KPI holds the headline counts.
type KPI struct {
	Total int `json:"total" yaml:"total"`
	AM    int `json:"am" yaml:"am"`
	AS    int `json:"as" yaml:"as"`
}

// TypeByClass groups by (category, class). Categories AM and AS come first,
// other raw categories follow alphabetically; empty cells are omitted.
func TypeByClass(d *Dataset) []ClassCount {
	if d.Empty() {
		return nil
	}
	type cell struct {
		cat   string
		class OutcomeClass
	}
	counts := map[cell]int{}
	for _, r := range d.Records {
		counts[cell{r.Category, r.Class}]++
	}
	out := make([]ClassCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, ClassCount{Category: k.cat, Class: k.class, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return categoryLess(out[i].Category, out[j].Category)
		}
		return out[i].Class.rank() < out[j].Class.rank()
	})
	return out
}

func categoryRank(c string) int {
	switch c {
	case CategoryAM:
		return 0
	case CategoryAS:
		return 1
	default:
		return 2
	}
}

func categoryLess(a, b string) bool {
	ra, rb := categoryRank(a), categoryRank(b)
	if ra != rb {
		return ra < rb
	}
	return a < b
}

// MonthByClass groups dated records by (month, class) in calendar order.
// Each class percentage is relative to its month's dated total.
func MonthByClass(d *Dataset) []MonthClassCount {
	return monthly(d, false)
}

// MonthByTypeClass is the faceted monthly view: percentages are relative
// to the (month, category) total.
func MonthByTypeClass(d *Dataset) []MonthClassCount {
	return monthly(d, true)
}

func monthly(d *Dataset, byType bool) []MonthClassCount {
	if d.Empty() {
		return nil
	}
	type group struct {
		month monthKey
		cat   string
	}
	labels := map[monthKey]string{}
	counts := map[group]map[OutcomeClass]int{}
	for _, r := range d.Records {
		if !r.DateValid {
			continue
		}
		g := group{month: r.month()}
		if byType {
			g.cat = r.Category
		}
		labels[g.month] = r.MonthLabel
		if counts[g] == nil {
			counts[g] = map[OutcomeClass]int{}
		}
		counts[g][r.Class]++
	}
	if len(counts) == 0 {
		return nil
	}
	groups := make([]group, 0, len(counts))
	for g := range counts {
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].month != groups[j].month {
			return groups[i].month.less(groups[j].month)
		}
		return categoryLess(groups[i].cat, groups[j].cat)
	})
	var out []MonthClassCount
	for _, g := range groups {
		total := 0
		for _, n := range counts[g] {
			total += n
		}
		for _, c := range ClassOrder {
			n := counts[g][c]
			if n == 0 {
				continue
			}
			row := MonthClassCount{
				Year:     g.month.Year,
				Month:    g.month.Month,
				Label:    labels[g.month],
				Category: g.cat,
				Class:    c,
				Count:    n,
				Percent:  percent(n, total),
			}
			if c == ClassProcedent {
				row.PercentLabel = fmt.Sprintf("%d%%", row.Percent)
			}
			out = append(out, row)
		}
	}
	return out
}

// percent rounds half to even, so 12.5 becomes 12.
func percent(n, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.RoundToEven(float64(n) * 100 / float64(total)))
}

// ImprocedentBy counts IMPROCEDENT records per value of the REGIONAL or
// REASON column, optionally restricted to one category, ascending by count.
// It returns nil when the column is absent or nothing matches.
func ImprocedentBy(d *Dataset, role Role, category string) []KeyCount {
	if d.Empty() || !d.HasRole(role) {
		return nil
	}
	key := func(r Record) string { return r.Regional }
	switch role {
	case RoleRegional:
	case RoleReason:
		key = func(r Record) string { return r.Reason }
	default:
		return nil
	}
	category = normValue(category)
	counts := map[string]int{}
	for _, r := range d.Records {
		if r.Class != ClassImprocedent {
			continue
		}
		if category != "" && r.Category != category {
			continue
		}
		k := key(r)
		if k == "" {
			continue
		}
		counts[k]++
	}
	if len(counts) == 0 {
		return nil
	}
	out := make([]KeyCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, KeyCount{Key: k, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count < out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// MonthSummary pivots dated records into one zero-filled row per month.
func MonthSummary(d *Dataset) []MonthSummaryRow {
	if d.Empty() {
		return nil
	}
	rows := map[monthKey]*MonthSummaryRow{}
	for _, r := range d.Records {
		if !r.DateValid {
			continue
		}
		k := r.month()
		row := rows[k]
		if row == nil {
			row = &MonthSummaryRow{Year: k.Year, Month: k.Month, Label: r.MonthLabel}
			rows[k] = row
		}
		switch r.Class {
		case ClassImprocedent:
			row.Improcedent++
		case ClassProcedent:
			row.Procedent++
		default:
			row.Other++
		}
		row.Total++
	}
	if len(rows) == 0 {
		return nil
	}
	keys := make([]monthKey, 0, len(rows))
	for k := range rows {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].less(keys[j]) })
	out := make([]MonthSummaryRow, 0, len(keys))
	for _, k := range keys {
		out = append(out, *rows[k])
	}
	return out
}

// Totals counts records, and AM/AS by substring of the raw type field, so a
// combined value such as "AM/AS" counts towards both.
func Totals(d *Dataset) KPI {
	var k KPI
	if d == nil {
		return k
	}
	for _, r := range d.Records {
		k.Total++
		t := normValue(r.Type)
		if strings.Contains(t, CategoryAM) {
			k.AM++
		}
		if strings.Contains(t, CategoryAS) {
			k.AS++
		}
	}
	return k
}
