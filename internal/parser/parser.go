package parser

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/alunocanva25-hub/dashboard-iw58/internal/analysis"
)

// Parser turns one tabular payload format into a record table.
type Parser interface {
	Name() string
	CanParse(name string, data []byte) bool
	Parse(data []byte, opt Options) (*Result, error)
}

// Options controls decoding.
type Options struct {
	// Encodings is the decode chain tried in order; the first clean decode wins.
	Encodings []string
	// Sheet selects an XLSX sheet by name; empty means the first sheet.
	Sheet string
}

// DefaultOptions returns the encoding chain used for exported spreadsheets.
func DefaultOptions() Options {
	return Options{Encodings: append([]string(nil), DefaultEncodings...)}
}

// Result is a parsed table plus how it was read.
type Result struct {
	Table     *analysis.Table
	Format    string
	Encoding  string
	Delimiter rune
	// Warnings are non-fatal degradations (lossy decode, skipped rows).
	Warnings []string
}

var registry []Parser

// Register adds a parser implementation to the registry.
func Register(p Parser) {
	registry = append(registry, p)
}

// Parse rejects markup payloads, then hands data to the first registered
// parser that accepts it. Delimited text is the fallback.
func Parse(name string, data []byte, opt Options) (*Result, error) {
	if len(opt.Encodings) == 0 {
		opt.Encodings = DefaultEncodings
	}
	if err := CheckTabular(data); err != nil {
		return nil, err
	}
	for _, p := range registry {
		if p.CanParse(name, data) {
			res, err := p.Parse(data, opt)
			if err != nil {
				return nil, fmt.Errorf("parse %s: %w", p.Name(), err)
			}
			return res, nil
		}
	}
	res, err := csvParser{}.Parse(data, opt)
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return res, nil
}

// ParseFile reads a local file and parses it.
func ParseFile(path string, opt Options) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return Parse(filepath.Base(path), data, opt)
}

func init() {
	Register(xlsxParser{})
	Register(csvParser{})
}
