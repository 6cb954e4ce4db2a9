package analysis

import "strings"

// OutcomeClass partitions records by audit outcome.
type OutcomeClass string

const (
	ClassProcedent   OutcomeClass = "PROCEDENT"
	ClassImprocedent OutcomeClass = "IMPROCEDENT"
	ClassOther       OutcomeClass = "OTHER"
)

// ClassOrder is the display order for every class-keyed view.
var ClassOrder = []OutcomeClass{ClassProcedent, ClassImprocedent, ClassOther}

// Label returns the display label used in exports and reports.
func (c OutcomeClass) Label() string {
	switch c {
	case ClassProcedent:
		return "PROCEDENTE"
	case ClassImprocedent:
		return "IMPROCEDENTE"
	default:
		return "OUTROS"
	}
}

func (c OutcomeClass) rank() int {
	for i, o := range ClassOrder {
		if o == c {
			return i
		}
	}
	return len(ClassOrder)
}

// Note categories.
const (
	CategoryAM = "AM"
	CategoryAS = "AS"
)

// NoteCategory extracts AM or AS from the type field. Anything else is kept
// as the upper-cased raw value so unresolved categories stay visible.
func NoteCategory(raw string) string {
	v := normValue(raw)
	switch {
	case strings.Contains(v, CategoryAM):
		return CategoryAM
	case strings.Contains(v, CategoryAS):
		return CategoryAS
	default:
		return v
	}
}

// ClassifyOutcome maps the outcome field to a class. IMPROCED must be tested
// before PROCED because "IMPROCEDENTE" contains both.
func ClassifyOutcome(raw string) OutcomeClass {
	v := normValue(raw)
	switch {
	case strings.Contains(v, "IMPROCED"):
		return ClassImprocedent
	case strings.Contains(v, "PROCED"):
		return ClassProcedent
	default:
		return ClassOther
	}
}

// Classify returns the (category, class) cell of a record.
func Classify(typeRaw, outcomeRaw string) (string, OutcomeClass) {
	return NoteCategory(typeRaw), ClassifyOutcome(outcomeRaw)
}
