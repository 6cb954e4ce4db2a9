package analysis

import (
	"fmt"
	"time"
)

// Record is one enriched row. Raw holds the source cells aligned with
// Dataset.Columns; every other field is derived from them.
type Record struct {
	Raw []string

	State    string
	Outcome  string
	Type     string
	Reason   string
	Regional string

	DateValid  bool
	Date       time.Time
	Year       int
	Month      int
	MonthName  string
	MonthLabel string
	Period     string

	Category string
	Class    OutcomeClass
}

func (r Record) month() monthKey { return monthKey{Year: r.Year, Month: r.Month} }

// Dataset is an enriched, immutable record table. Filters return new
// Datasets that share Record values but never mutate them.
type Dataset struct {
	Columns []string
	Schema  Schema
	Records []Record
	// Undated counts records whose date could not be parsed.
	Undated int
	// Dropped counts records removed by the DropInvalidDates policy.
	Dropped int
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

// Empty reports whether the dataset holds no records.
func (d *Dataset) Empty() bool { return d.Len() == 0 }

// HasRole reports whether an optional role was resolved.
func (d *Dataset) HasRole(r Role) bool {
	if d == nil {
		return false
	}
	_, ok := d.Schema.Column(r)
	return ok
}

func (d *Dataset) derive(recs []Record) *Dataset {
	out := &Dataset{Columns: d.Columns, Schema: d.Schema, Records: recs}
	for _, r := range recs {
		if !r.DateValid {
			out.Undated++
		}
	}
	return out
}

// EnrichOptions tunes enrichment.
type EnrichOptions struct {
	Months MonthNames
	// DropInvalidDates removes rows with unparseable dates instead of
	// keeping them with an unparseable marker.
	DropInvalidDates bool
}

// DefaultEnrichOptions keeps invalid dates and uses Portuguese month names.
func DefaultEnrichOptions() EnrichOptions {
	return EnrichOptions{Months: MonthsPT}
}

// Enrich resolves nothing itself: it applies an already resolved schema to
// the table, deriving temporal fields, note category and outcome class.
func Enrich(t *Table, s Schema, opt EnrichOptions) (*Dataset, error) {
	if t == nil {
		return nil, fmt.Errorf("enrich: nil table")
	}
	if opt.Months.Short[0] == "" {
		opt.Months = MonthsPT
	}
	idx := map[Role]int{}
	for r, col := range s {
		i := t.Index(col)
		if i < 0 {
			return nil, fmt.Errorf("enrich: column %q for role %s not in table", col, r)
		}
		idx[r] = i
	}
	cell := func(row []string, r Role) string {
		i, ok := idx[r]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	ds := &Dataset{Columns: t.Columns, Schema: s, Records: make([]Record, 0, len(t.Rows))}
	for _, row := range t.Rows {
		rec := Record{
			Raw:      row,
			State:    normValue(cell(row, RoleState)),
			Outcome:  cell(row, RoleOutcome),
			Type:     cell(row, RoleType),
			Reason:   normValue(cell(row, RoleReason)),
			Regional: normValue(cell(row, RoleRegional)),
		}
		tm := DeriveTemporal(cell(row, RoleDate), opt.Months)
		if !tm.Valid {
			if opt.DropInvalidDates {
				ds.Dropped++
				continue
			}
			ds.Undated++
		}
		rec.DateValid = tm.Valid
		rec.Date = tm.Date
		rec.Year = tm.Year
		rec.Month = tm.Month
		rec.MonthName = tm.MonthName
		rec.MonthLabel = tm.MonthLabel
		rec.Period = tm.Period
		rec.Category, rec.Class = Classify(rec.Type, rec.Outcome)
		ds.Records = append(ds.Records, rec)
	}
	return ds, nil
}

// Build resolves the schema and enriches the table in one step.
func Build(t *Table, kw RoleKeywords, opt EnrichOptions) (*Dataset, error) {
	if t == nil {
		return nil, fmt.Errorf("build dataset: nil table")
	}
	s, err := ResolveSchema(t.Columns, kw)
	if err != nil {
		return nil, err
	}
	return Enrich(t, s, opt)
}

// DerivedColumns are appended after the source columns in exports.
var DerivedColumns = []string{"ANO", "MES_NUM", "MES_NOME", "MES_ANO", "MES_ANO_LABEL", "TIPO_NORM", "CLASSE"}

// Derived returns the derived cells of r in DerivedColumns order. Undated
// records get empty temporal cells.
func (r Record) Derived() []string {
	out := make([]string, len(DerivedColumns))
	if r.DateValid {
		out[0] = fmt.Sprintf("%d", r.Year)
		out[1] = fmt.Sprintf("%d", r.Month)
		out[2] = r.MonthName
		out[3] = r.Period
		out[4] = r.MonthLabel
	}
	out[5] = r.Category
	out[6] = r.Class.Label()
	return out
}
