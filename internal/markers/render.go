package markers

import (
	"bytes"
	"strings"
)

// Render composes the output file from the document.
//
// Text segments are written from their original bytes. Conflict segments
// write their resolved text, converted to the source newline convention.
// A document-wide manual override replaces everything.
func Render(doc Document) []byte {
	if doc.Manual != nil {
		return []byte(Denormalize(*doc.Manual, doc.Newline))
	}

	var out bytes.Buffer
	for _, seg := range doc.Segments {
		switch s := seg.(type) {
		case TextSegment:
			out.WriteString(s.Raw)
		case ConflictSegment:
			out.WriteString(Denormalize(s.Resolved, doc.Newline))
		}
	}
	return out.Bytes()
}

// RenderLF composes the output like Render but keeps it LF-normalized, for
// display.
func RenderLF(doc Document) string {
	if doc.Manual != nil {
		return *doc.Manual
	}

	var out strings.Builder
	for _, seg := range doc.Segments {
		switch s := seg.(type) {
		case TextSegment:
			out.WriteString(s.Text)
		case ConflictSegment:
			out.WriteString(s.Resolved)
		}
	}
	return out.String()
}

// Original concatenates the original byte spans of every segment.
func Original(doc Document) []byte {
	var out bytes.Buffer
	for _, seg := range doc.Segments {
		switch s := seg.(type) {
		case TextSegment:
			out.WriteString(s.Raw)
		case ConflictSegment:
			out.WriteString(s.Raw)
		}
	}
	return out.Bytes()
}
