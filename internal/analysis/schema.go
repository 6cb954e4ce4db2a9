package analysis

import (
	"errors"
	"fmt"
	"strings"
)

// Role is the semantic purpose of a column, independent of its header text.
type Role string

const (
	RoleState    Role = "STATE"
	RoleOutcome  Role = "OUTCOME"
	RoleType     Role = "TYPE"
	RoleReason   Role = "REASON"
	RoleRegional Role = "REGIONAL"
	RoleDate     Role = "DATE"
)

// Roles lists every role in resolution order.
var Roles = []Role{RoleState, RoleOutcome, RoleType, RoleReason, RoleRegional, RoleDate}

// Required reports whether a dataset without this role is rejected.
func (r Role) Required() bool {
	switch r {
	case RoleReason, RoleRegional:
		return false
	default:
		return true
	}
}

// RoleKeywords maps each role to the header substrings that identify it.
type RoleKeywords map[Role][]string

// DefaultRoleKeywords returns the keyword lists used by the IW58 exports.
func DefaultRoleKeywords() RoleKeywords {
	return RoleKeywords{
		RoleState:    {"ESTADO", "LOCALIDADE", "UF"},
		RoleOutcome:  {"RESULTADO"},
		RoleType:     {"TIPO"},
		RoleReason:   {"MOTIVO"},
		RoleRegional: {"REGIONAL"},
		RoleDate:     {"DATA", "DT", "EMISSAO", "EMISSÃO", "DIA"},
	}
}

// Merge returns a copy of k with the non-empty lists of override replacing
// the corresponding roles. Unknown role names are ignored.
func (k RoleKeywords) Merge(override map[string][]string) RoleKeywords {
	out := make(RoleKeywords, len(k))
	for r, kw := range k {
		out[r] = append([]string(nil), kw...)
	}
	for name, kw := range override {
		role := Role(strings.ToUpper(strings.TrimSpace(name)))
		if _, ok := out[role]; !ok || len(kw) == 0 {
			continue
		}
		out[role] = append([]string(nil), kw...)
	}
	return out
}

// Schema maps roles to the concrete column names of one dataset.
type Schema map[Role]string

// Column returns the column bound to role and whether one was found.
func (s Schema) Column(r Role) (string, bool) {
	c, ok := s[r]
	return c, ok && c != ""
}

// ErrMissingColumns is matched by every *MissingColumnsError.
var ErrMissingColumns = errors.New("required columns not found")

// MissingColumnsError lists every required role that no column satisfied.
type MissingColumnsError struct {
	Missing  []Role
	Keywords RoleKeywords
}

func (e *MissingColumnsError) Error() string {
	parts := make([]string, 0, len(e.Missing))
	for _, r := range e.Missing {
		if kw := e.Keywords[r]; len(kw) > 0 {
			parts = append(parts, fmt.Sprintf("%s (%s)", r, strings.Join(kw, "/")))
			continue
		}
		parts = append(parts, string(r))
	}
	return fmt.Sprintf("%v: %s", ErrMissingColumns, strings.Join(parts, ", "))
}

func (e *MissingColumnsError) Is(target error) bool { return target == ErrMissingColumns }

// Resolve returns the first column (in declared order) whose name contains
// any keyword, compared case-insensitively.
func Resolve(columns []string, keywords []string) (string, bool) {
	for _, col := range columns {
		name := strings.ToUpper(col)
		for _, kw := range keywords {
			kw = strings.ToUpper(strings.TrimSpace(kw))
			if kw != "" && strings.Contains(name, kw) {
				return col, true
			}
		}
	}
	return "", false
}

// ResolveSchema binds every role. A missing required role fails the whole
// load; the error names all of them.
func ResolveSchema(columns []string, keywords RoleKeywords) (Schema, error) {
	if keywords == nil {
		keywords = DefaultRoleKeywords()
	}
	s := Schema{}
	var missing []Role
	for _, r := range Roles {
		if col, ok := Resolve(columns, keywords[r]); ok {
			s[r] = col
			continue
		}
		if r.Required() {
			missing = append(missing, r)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Missing: missing, Keywords: keywords}
	}
	return s, nil
}
