package parser

import (
	"bytes"
	"errors"
	"fmt"
)

// ErrNotTabular is matched by every *ContentShapeError.
var ErrNotTabular = errors.New("payload is not tabular data")

// ContentShapeError reports a payload that cannot be a record table, such as
// an HTML login or preview page served instead of the export.
type ContentShapeError struct {
	Reason string
	Hint   string
}

func (e *ContentShapeError) Error() string {
	msg := fmt.Sprintf("%v: %s", ErrNotTabular, e.Reason)
	if e.Hint != "" {
		msg += "\n  " + e.Hint
	}
	return msg
}

func (e *ContentShapeError) Unwrap() error { return ErrNotTabular }

const sharingHint = "The source returned a web page instead of a data file. " +
	"Check that the file is shared as \"Anyone with the link\" and that the URL is a download/export link."

const sniffWindow = 1024

var markupPrefixes = [][]byte{
	[]byte("<!doctype html"),
	[]byte("<html"),
	[]byte("<head"),
	[]byte("<body"),
	[]byte("<script"),
}

// CheckTabular rejects empty payloads and HTML documents. A payload counts
// as markup only when it opens with a tag and an HTML element shows up in
// its first kilobyte, so cell text such as "<script" inside a CSV is data.
func CheckTabular(data []byte) error {
	head := data
	if len(head) > sniffWindow {
		head = head[:sniffWindow]
	}
	head = bytes.TrimPrefix(head, utf8BOM)
	head = bytes.ToLower(bytes.TrimSpace(head))
	if len(head) == 0 {
		return &ContentShapeError{Reason: "empty payload"}
	}
	if head[0] != '<' {
		return nil
	}
	for _, p := range markupPrefixes {
		if bytes.Contains(head, p) {
			return &ContentShapeError{Reason: fmt.Sprintf("found %q markup", p), Hint: sharingHint}
		}
	}
	return nil
}
