package analysis

import (
	"strings"
	"testing"
)

func TestBuildReportForState(t *testing.T) {
	ds := scenarioDataset(t, []string{"SP", "PROCEDENTE", "AM", "X", "R1", "05/05/2023"})
	rep := BuildReport(ds, " sp ")
	if rep.Selection != "SP" || rep.ReferenceYear != 2024 {
		t.Fatalf("selection=%q year=%d", rep.Selection, rep.ReferenceYear)
	}
	if rep.Records != 3 {
		t.Fatalf("records = %d, want 3", rep.Records)
	}
	if rep.KPI != (KPI{Total: 2, AM: 1, AS: 1}) {
		t.Fatalf("KPI = %+v", rep.KPI)
	}
	if len(rep.MonthTable) != 1 || rep.MonthTable[0].Label != "JAN/2024" {
		t.Fatalf("month table = %+v", rep.MonthTable)
	}
	if len(rep.ReasonsAS) != 1 || rep.ReasonsAS[0].Key != "Y" {
		t.Fatalf("reasons AS = %+v", rep.ReasonsAS)
	}
	if rep.RegionalAM != nil {
		t.Fatalf("SP has no AM improcedent rows: %+v", rep.RegionalAM)
	}
	if rep.FileBase() != "IW58_Dashboard_SP_2024" {
		t.Fatalf("FileBase = %q", rep.FileBase())
	}
}

func TestBuildReportTotalSelection(t *testing.T) {
	rep := BuildReport(scenarioDataset(t), "")
	if rep.Selection != SelectionTotal || rep.KPI.Total != 3 {
		t.Fatalf("unexpected report: %+v", rep)
	}
	if len(rep.States) != 3 {
		t.Fatalf("states = %v", rep.States)
	}
}

func TestBuildReportEmptySelection(t *testing.T) {
	rep := BuildReport(scenarioDataset(t), "AC")
	if rep.Records != 0 || rep.Annual != nil || rep.Monthly != nil {
		t.Fatalf("expected an empty view: %+v", rep)
	}
	md := rep.Markdown()
	if !strings.Contains(md, noData) {
		t.Fatalf("empty sections must print the placeholder:\n%s", md)
	}
}

func TestFileBaseReplacesSpaces(t *testing.T) {
	r := &Report{Selection: "SAO PAULO", ReferenceYear: 2024}
	if got := r.FileBase(); got != "IW58_Dashboard_SAO_PAULO_2024" {
		t.Fatalf("FileBase = %q", got)
	}
}

func TestFileBaseNeutralizesPaths(t *testing.T) {
	cases := map[string]string{
		"SP/RJ":         "IW58_Dashboard_SP_RJ_2024",
		"../../ESCAPED": "IW58_Dashboard_______ESCAPED_2024",
		`C:\TEMP`:       "IW58_Dashboard_C__TEMP_2024",
		"SÃO PAULO":     "IW58_Dashboard_S_O_PAULO_2024",
		"MG-NORTE_2":    "IW58_Dashboard_MG-NORTE_2_2024",
	}
	for sel, want := range cases {
		r := &Report{Selection: sel, ReferenceYear: 2024}
		got := r.FileBase()
		if got != want {
			t.Errorf("FileBase(%q) = %q, want %q", sel, got, want)
		}
		if strings.ContainsAny(got, `/\`) || strings.Contains(got, "..") {
			t.Errorf("FileBase(%q) = %q still carries a path element", sel, got)
		}
	}
}

func TestReportMarkdown(t *testing.T) {
	rep := BuildReport(scenarioDataset(t), "TOTAL")
	rep.Warnings = append(rep.Warnings, "decoded as windows-1252")
	md := rep.Markdown()
	for _, want := range []string{
		"[DASHBOARD IW58]",
		"Ano de referência: 2024",
		"- TOTAL: 3",
		"| JAN/2024 | 1 | 1 | 0 | 2 | 50% |",
		"| FEV/2024 | 0 | 1 | 0 | 1 | 100% |",
		"[NOTES]",
		"decoded as windows-1252",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestFormatInt(t *testing.T) {
	cases := map[int]string{0: "0", 999: "999", 1000: "1.000", 1234567: "1.234.567", -12345: "-12.345"}
	for in, want := range cases {
		if got := FormatInt(in); got != want {
			t.Fatalf("FormatInt(%d) = %q, want %q", in, got, want)
		}
	}
}
