package analysis

import "sort"

// SelectionTotal is the sentinel selection meaning "every state".
const SelectionTotal = "TOTAL"

// IsTotal reports whether a selection means the unfiltered dataset.
func IsTotal(selection string) bool {
	switch normValue(selection) {
	case "", SelectionTotal, "ALL":
		return true
	default:
		return false
	}
}

// FilterByState returns the records whose normalized state equals the
// selection. TOTAL yields the whole dataset; no match yields an empty,
// valid Dataset.
func FilterByState(d *Dataset, selection string) *Dataset {
	if d == nil {
		return &Dataset{}
	}
	if IsTotal(selection) {
		return d.derive(append([]Record(nil), d.Records...))
	}
	want := normValue(selection)
	return d.filter(func(r Record) bool { return r.State == want })
}

// FilterByYear keeps dated records of one year.
func FilterByYear(d *Dataset, year int) *Dataset {
	return d.filter(func(r Record) bool { return r.DateValid && r.Year == year })
}

// FilterByCategory keeps records of one note category.
func FilterByCategory(d *Dataset, category string) *Dataset {
	want := normValue(category)
	return d.filter(func(r Record) bool { return r.Category == want })
}

// FilterByClass keeps records of one outcome class.
func FilterByClass(d *Dataset, c OutcomeClass) *Dataset {
	return d.filter(func(r Record) bool { return r.Class == c })
}

func (d *Dataset) filter(keep func(Record) bool) *Dataset {
	if d == nil {
		return &Dataset{}
	}
	var out []Record
	for _, r := range d.Records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return d.derive(out)
}

// States returns the selection options: TOTAL followed by the sorted
// distinct non-empty states.
func States(d *Dataset) []string {
	seen := map[string]struct{}{}
	var states []string
	if d != nil {
		for _, r := range d.Records {
			if r.State == "" {
				continue
			}
			if _, ok := seen[r.State]; ok {
				continue
			}
			seen[r.State] = struct{}{}
			states = append(states, r.State)
		}
	}
	sort.Strings(states)
	return append([]string{SelectionTotal}, states...)
}

// StateCounts returns the number of records per state.
func StateCounts(d *Dataset) map[string]int {
	out := map[string]int{}
	if d == nil {
		return out
	}
	for _, r := range d.Records {
		out[r.State]++
	}
	return out
}

// ReferenceYear returns the latest year among the dated records of view,
// falling back to the whole dataset when view has none.
func ReferenceYear(view, full *Dataset) (int, bool) {
	if y, ok := latestYear(view); ok {
		return y, true
	}
	return latestYear(full)
}

func latestYear(d *Dataset) (int, bool) {
	if d == nil {
		return 0, false
	}
	best, found := 0, false
	for _, r := range d.Records {
		if r.DateValid && (!found || r.Year > best) {
			best, found = r.Year, true
		}
	}
	return best, found
}
