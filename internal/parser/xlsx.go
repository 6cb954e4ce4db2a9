package parser

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/alunocanva25-hub/dashboard-iw58/internal/analysis"
)

var zipMagic = []byte("PK\x03\x04")

type xlsxParser struct{}

func (xlsxParser) Name() string { return "xlsx" }

func (xlsxParser) CanParse(name string, data []byte) bool {
	return strings.HasSuffix(strings.ToLower(name), ".xlsx") || bytes.HasPrefix(data, zipMagic)
}

// Parse reads one sheet (opt.Sheet, or the first) of a workbook. The first
// non-blank row is the header. Date-formatted cells are emitted as ISO
// dates so they do not depend on the workbook's display format.
func (xlsxParser) Parse(data []byte, opt Options) (*Result, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := opt.Sheet
	if sheet == "" {
		list := f.GetSheetList()
		if len(list) == 0 {
			return nil, &ContentShapeError{Reason: "workbook has no sheets"}
		}
		sheet = list[0]
	}
	grid, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	dates := newDateCells(f, sheet)
	var header []string
	var rows [][]string
	for i, rec := range grid {
		if blankRecord(rec) {
			continue
		}
		if header == nil {
			header = rec
			continue
		}
		for j, v := range rec {
			if iso, ok := dates.convert(j+1, i+1, v); ok {
				rec[j] = iso
			}
		}
		rows = append(rows, rec)
	}
	if header == nil {
		return nil, &ContentShapeError{Reason: fmt.Sprintf("sheet %q is empty", sheet)}
	}
	return &Result{
		Table:    analysis.NewTable(header, rows),
		Format:   "xlsx",
		Encoding: EncUTF8,
	}, nil
}

// dateCells turns raw serial numbers of date-formatted cells into ISO text.
type dateCells struct {
	f        *excelize.File
	sheet    string
	date1904 bool
	isDate   map[int]bool // style id -> date format
}

func newDateCells(f *excelize.File, sheet string) *dateCells {
	d := &dateCells{f: f, sheet: sheet, isDate: map[int]bool{}}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		d.date1904 = *props.Date1904
	}
	return d
}

func (d *dateCells) convert(col, row int, raw string) (string, bool) {
	serial, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || serial <= 0 {
		return "", false
	}
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return "", false
	}
	styleID, err := d.f.GetCellStyle(d.sheet, cell)
	if err != nil || !d.dateStyle(styleID) {
		return "", false
	}
	t, err := excelize.ExcelDateToTime(serial, d.date1904)
	if err != nil {
		return "", false
	}
	t = t.Round(time.Second)
	if serial == math.Trunc(serial) {
		return t.Format("2006-01-02"), true
	}
	return t.Format("2006-01-02 15:04:05"), true
}

func (d *dateCells) dateStyle(id int) bool {
	if v, ok := d.isDate[id]; ok {
		return v
	}
	v := false
	if st, err := d.f.GetStyle(id); err == nil && st != nil {
		v = isDateNumFmt(st.NumFmt, st.CustomNumFmt)
	}
	d.isDate[id] = v
	return v
}

// isDateNumFmt recognizes the built-in date formats and custom formats that
// carry a year or day token outside quoted literals and brackets.
func isDateNumFmt(id int, custom *string) bool {
	if custom != nil && *custom != "" {
		return customDateFormat(*custom)
	}
	switch {
	case id >= 14 && id <= 17, id == 22, id >= 27 && id <= 31, id == 36, id >= 50 && id <= 58:
		return true
	}
	return false
}

func customDateFormat(format string) bool {
	inQuote, inBracket := false, false
	for _, r := range strings.ToLower(format) {
		switch {
		case r == '"':
			inQuote = !inQuote
		case inQuote:
		case r == '[':
			inBracket = true
		case r == ']':
			inBracket = false
		case inBracket:
		case r == 'y', r == 'd':
			return true
		}
	}
	return false
}
