package parser

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Encoding names understood by Decode.
const (
	EncUTF8BOM     = "utf-8-sig"
	EncUTF8        = "utf-8"
	EncWindows1252 = "windows-1252"
	EncLatin1      = "latin-1"
	EncLossy       = "utf-8-lossy"
)

// DefaultEncodings is the fallback chain for spreadsheet exports.
var DefaultEncodings = []string{EncUTF8BOM, EncUTF8, EncWindows1252, EncLatin1}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var charmaps = map[string]encoding.Encoding{
	EncWindows1252: charmap.Windows1252,
	"cp1252":       charmap.Windows1252,
	EncLatin1:      charmap.ISO8859_1,
	"iso-8859-1":   charmap.ISO8859_1,
	"iso-8859-15":  charmap.ISO8859_15,
}

// KnownEncoding reports whether name can appear in a Decode chain.
func KnownEncoding(name string) bool {
	switch name = strings.ToLower(strings.TrimSpace(name)); name {
	case EncUTF8BOM, EncUTF8, "utf8":
		return true
	}
	_, ok := charmaps[name]
	return ok
}

// Decode converts data to UTF-8 using the first encoding in chain that
// decodes it cleanly. When none does, invalid sequences are replaced with
// U+FFFD and a warning is returned.
func Decode(data []byte, chain []string) (text string, used string, warnings []string) {
	for _, name := range chain {
		name = strings.ToLower(strings.TrimSpace(name))
		switch name {
		case EncUTF8BOM:
			if bytes.HasPrefix(data, utf8BOM) && utf8.Valid(data[len(utf8BOM):]) {
				return string(data[len(utf8BOM):]), name, warnings
			}
		case EncUTF8, "utf8":
			if utf8.Valid(data) {
				return string(data), EncUTF8, warnings
			}
		default:
			enc, ok := charmaps[name]
			if !ok {
				warnings = append(warnings, fmt.Sprintf("unknown encoding %q skipped", name))
				continue
			}
			if s, ok := decodeStrict(enc, data); ok {
				return s, name, warnings
			}
		}
	}
	warnings = append(warnings, "no configured encoding decoded the payload cleanly; invalid bytes were replaced")
	return strings.ToValidUTF8(string(bytes.TrimPrefix(data, utf8BOM)), "\uFFFD"), EncLossy, warnings
}

// decodeStrict treats bytes the code page leaves undefined as a failure.
func decodeStrict(enc encoding.Encoding, data []byte) (string, bool) {
	out, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil {
		return "", false
	}
	if bytes.ContainsRune(out, utf8.RuneError) && !bytes.Contains(data, []byte("\uFFFD")) {
		return "", false
	}
	return string(out), true
}
