package analysis

import (
	"errors"
	"reflect"
	"testing"
)

func TestResolveFirstMatchWins(t *testing.T) {
	cols := []string{"ID", "UF ORIGEM", "ESTADO", "LOCALIDADE"}
	got, ok := Resolve(cols, []string{"ESTADO", "LOCALIDADE", "UF"})
	if !ok || got != "UF ORIGEM" {
		t.Fatalf("Resolve = %q,%v; want first column in declared order", got, ok)
	}
}

func TestResolveCaseInsensitive(t *testing.T) {
	got, ok := Resolve([]string{"dt_emissao"}, []string{"DT"})
	if !ok || got != "dt_emissao" {
		t.Fatalf("Resolve = %q,%v", got, ok)
	}
	if _, ok := Resolve([]string{"A", "B"}, []string{"MOTIVO"}); ok {
		t.Fatalf("expected absence")
	}
}

func TestResolveSchemaDeterministic(t *testing.T) {
	cols := []string{"UF", "RESULTADO", "TIPO NOTA", "MOTIVO", "REGIONAL", "DATA ABERTURA", "DIA"}
	first, err := ResolveSchema(cols, DefaultRoleKeywords())
	if err != nil {
		t.Fatalf("ResolveSchema: %v", err)
	}
	for i := 0; i < 20; i++ {
		again, err := ResolveSchema(cols, DefaultRoleKeywords())
		if err != nil {
			t.Fatalf("ResolveSchema: %v", err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("non-deterministic schema: %v vs %v", first, again)
		}
	}
	if first[RoleDate] != "DATA ABERTURA" || first[RoleType] != "TIPO NOTA" {
		t.Fatalf("unexpected schema: %v", first)
	}
}

func TestResolveSchemaOptionalRoles(t *testing.T) {
	s, err := ResolveSchema([]string{"ESTADO", "RESULTADO", "TIPO", "DATA"}, nil)
	if err != nil {
		t.Fatalf("ResolveSchema: %v", err)
	}
	if _, ok := s.Column(RoleReason); ok {
		t.Fatalf("reason should be absent")
	}
	if _, ok := s.Column(RoleRegional); ok {
		t.Fatalf("regional should be absent")
	}
}

func TestResolveSchemaListsEveryMissingRole(t *testing.T) {
	_, err := ResolveSchema([]string{"MOTIVO", "REGIONAL"}, DefaultRoleKeywords())
	var mce *MissingColumnsError
	if !errors.As(err, &mce) {
		t.Fatalf("expected *MissingColumnsError, got %v", err)
	}
	want := []Role{RoleState, RoleOutcome, RoleType, RoleDate}
	if !reflect.DeepEqual(mce.Missing, want) {
		t.Fatalf("missing = %v, want %v", mce.Missing, want)
	}
	if !errors.Is(err, ErrMissingColumns) {
		t.Fatalf("errors.Is(ErrMissingColumns) = false")
	}
}

func TestRoleKeywordsMerge(t *testing.T) {
	kw := DefaultRoleKeywords().Merge(map[string][]string{"state": {"PROVINCIA"}, "bogus": {"X"}, "reason": nil})
	if !reflect.DeepEqual(kw[RoleState], []string{"PROVINCIA"}) {
		t.Fatalf("state keywords = %v", kw[RoleState])
	}
	if len(kw[RoleReason]) != 1 || kw[RoleReason][0] != "MOTIVO" {
		t.Fatalf("empty override must keep defaults: %v", kw[RoleReason])
	}
	if _, ok := kw[Role("BOGUS")]; ok {
		t.Fatalf("unknown role must be ignored")
	}
}
