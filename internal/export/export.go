package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/alunocanva25-hub/dashboard-iw58/internal/analysis"
	"github.com/alunocanva25-hub/dashboard-iw58/internal/utils"
)

// SheetName is the single worksheet of an XLSX export.
const SheetName = "IW58"

// Content types for HTTP downloads.
const (
	ContentTypeCSV  = "text/csv; charset=utf-8"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Header returns the source columns followed by the derived columns.
func Header(ds *analysis.Dataset) []string {
	out := make([]string, 0, len(ds.Columns)+len(analysis.DerivedColumns))
	out = append(out, ds.Columns...)
	return append(out, analysis.DerivedColumns...)
}

func row(ds *analysis.Dataset, r analysis.Record) []string {
	out := make([]string, 0, len(ds.Columns)+len(analysis.DerivedColumns))
	out = append(out, r.Raw...)
	for len(out) < len(ds.Columns) {
		out = append(out, "")
	}
	return append(out, r.Derived()...)
}

// WriteCSV writes the dataset as UTF-8, comma-separated, with a header and
// no index column.
func WriteCSV(w io.Writer, ds *analysis.Dataset) error {
	if ds == nil {
		return fmt.Errorf("write csv: nil dataset")
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(Header(ds)); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range ds.Records {
		if err := cw.Write(row(ds, r)); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// WriteXLSX writes the same content as WriteCSV into a single-sheet workbook.
func WriteXLSX(w io.Writer, ds *analysis.Dataset) error {
	if ds == nil {
		return fmt.Errorf("write xlsx: nil dataset")
	}
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("stream writer: %w", err)
	}
	if err := sw.SetRow("A1", cells(Header(ds))); err != nil {
		return fmt.Errorf("write xlsx header: %w", err)
	}
	for i, r := range ds.Records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, cells(row(ds, r))); err != nil {
			return fmt.Errorf("write xlsx row %d: %w", i+2, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush xlsx: %w", err)
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func cells(vals []string) []interface{} {
	out := make([]interface{}, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}

// Files writes <base>.csv and <base>.xlsx for a report view into dir and
// returns the written paths.
func Files(dir string, rep *analysis.Report) ([]string, error) {
	if rep == nil || rep.View == nil {
		return nil, fmt.Errorf("export: report has no view")
	}
	var paths []string
	for _, f := range []struct {
		ext   string
		write func(io.Writer, *analysis.Dataset) error
	}{{".csv", WriteCSV}, {".xlsx", WriteXLSX}} {
		var buf bytes.Buffer
		if err := f.write(&buf, rep.View); err != nil {
			return paths, err
		}
		p := filepath.Join(dir, rep.FileBase()+f.ext)
		if err := utils.SafeWriteFile(p, buf.Bytes()); err != nil {
			return paths, fmt.Errorf("save %s: %w", p, err)
		}
		paths = append(paths, p)
	}
	return paths, nil
}
