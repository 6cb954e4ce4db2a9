package parser

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/alunocanva25-hub/dashboard-iw58/internal/analysis"
)

type csvParser struct{}

func (csvParser) Name() string { return "csv" }

func (csvParser) CanParse(name string, _ []byte) bool {
	name = strings.ToLower(name)
	return strings.HasSuffix(name, ".csv") || strings.HasSuffix(name, ".tsv") || strings.HasSuffix(name, ".txt")
}

func (csvParser) Parse(data []byte, opt Options) (*Result, error) {
	text, enc, warnings := Decode(data, opt.Encodings)
	delim := SniffDelimiter(text)

	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.ReuseRecord = false

	var header []string
	var rows [][]string
	line := 0
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read record %d: %w", line, err)
		}
		if blankRecord(rec) {
			continue
		}
		if header == nil {
			header = rec
			continue
		}
		rows = append(rows, rec)
	}
	if header == nil {
		return nil, &ContentShapeError{Reason: "no header row"}
	}
	return &Result{
		Table:     analysis.NewTable(header, rows),
		Format:    "csv",
		Encoding:  enc,
		Delimiter: delim,
		Warnings:  warnings,
	}, nil
}

func blankRecord(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Delimiters are the candidates considered by SniffDelimiter, in tie-break order.
var Delimiters = []rune{',', ';', '\t', '|'}

const sniffLines = 20

// SniffDelimiter picks the delimiter whose per-line count (outside quotes)
// is most consistent over the first lines, then the most frequent one.
// Comma is returned when no candidate appears in the header line.
func SniffDelimiter(text string) rune {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		l = strings.TrimRight(l, "\r")
		if strings.TrimSpace(l) == "" {
			continue
		}
		lines = append(lines, l)
		if len(lines) == sniffLines {
			break
		}
	}
	if len(lines) == 0 {
		return ','
	}
	best, bestConsistent, bestCount := ',', -1, 0
	for _, d := range Delimiters {
		head := countOutsideQuotes(lines[0], d)
		if head == 0 {
			continue
		}
		consistent := 0
		for _, l := range lines[1:] {
			if countOutsideQuotes(l, d) == head {
				consistent++
			}
		}
		if consistent > bestConsistent || (consistent == bestConsistent && head > bestCount) {
			best, bestConsistent, bestCount = d, consistent, head
		}
	}
	return best
}

func countOutsideQuotes(line string, d rune) int {
	n := 0
	inQuote := false
	for _, c := range line {
		switch {
		case c == '"':
			inQuote = !inQuote
		case c == d && !inQuote:
			n++
		}
	}
	return n
}
