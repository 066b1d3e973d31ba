package markers

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
)

var ErrMalformedConflict = errors.New("malformed conflict markers")

var (
	markStart = []byte("<<<<<<<")
	markBase  = []byte("|||||||")
	markMid   = []byte("=======")
	markEnd   = []byte(">>>>>>>")
)

// Result is the outcome of Parse. Parse never fails: malformed input is
// reported through Status and Err while Document still covers the input.
type Result struct {
	Document      Document
	ConflictCount int
	HasMarkers    bool
	Status        Status

	// Err wraps ErrMalformedConflict when a started block is broken. It is
	// nil for stray marker lines that never opened a block.
	Err error
}

// Parse splits a file into text segments and conflict segments.
//
// Block structure is strict: a start marker must be followed by a separator
// (optionally preceded by a diff3 base section) and an end marker. Any broken
// block degrades the whole input to one text segment.
func Parse(data []byte) Result {
	res := Result{HasMarkers: HasMarkers(data)}

	doc, err := parseBlocks(data)
	if err != nil {
		res.Document = degraded(data)
		res.Status = StatusMalformed
		res.Err = err
		return res
	}

	res.Document = doc
	res.ConflictCount = len(doc.Conflicts)
	switch {
	case res.ConflictCount > 0:
		res.Status = StatusConflicted
	case res.HasMarkers:
		// Stray separator or end lines without a start marker.
		res.Status = StatusMalformed
	default:
		res.Status = StatusClean
	}
	return res
}

func parseBlocks(data []byte) (Document, error) {
	doc := Document{Newline: DetectNewline(data)}

	// Work line-by-line, keeping line endings so spans stay byte exact.
	lines := splitLinesKeepEOL(data)

	var textBuf bytes.Buffer
	appendText := func() {
		if textBuf.Len() == 0 {
			return
		}
		raw := textBuf.String()
		doc.Segments = append(doc.Segments, TextSegment{Text: normalizeLF(raw), Raw: raw})
		textBuf.Reset()
	}

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if !hasLinePrefix(line, markStart) {
			textBuf.Write(line)
			continue
		}
		appendText()

		var raw bytes.Buffer
		raw.Write(line)
		seg := ConflictSegment{OursLabel: markerLabel(line)}

		// Collect ours until base/mid.
		i++
		var ours bytes.Buffer
		for ; i < len(lines); i++ {
			if hasLinePrefix(lines[i], markBase) || hasLinePrefix(lines[i], markMid) {
				break
			}
			if hasLinePrefix(lines[i], markStart) {
				return Document{}, fmt.Errorf("%w: nested start marker", ErrMalformedConflict)
			}
			ours.Write(lines[i])
			raw.Write(lines[i])
		}
		if i >= len(lines) {
			return Document{}, fmt.Errorf("%w: missing separator", ErrMalformedConflict)
		}

		// Optional base section.
		var base bytes.Buffer
		if hasLinePrefix(lines[i], markBase) {
			seg.BaseLabel = markerLabel(lines[i])
			raw.Write(lines[i])
			i++
			for ; i < len(lines); i++ {
				if hasLinePrefix(lines[i], markMid) {
					break
				}
				base.Write(lines[i])
				raw.Write(lines[i])
			}
			if i >= len(lines) {
				return Document{}, fmt.Errorf("%w: missing ======= after base", ErrMalformedConflict)
			}
		}
		raw.Write(lines[i])

		// Collect theirs until end.
		i++
		var theirs bytes.Buffer
		for ; i < len(lines); i++ {
			if hasLinePrefix(lines[i], markEnd) {
				break
			}
			if hasLinePrefix(lines[i], markStart) {
				return Document{}, fmt.Errorf("%w: start marker before end marker", ErrMalformedConflict)
			}
			theirs.Write(lines[i])
			raw.Write(lines[i])
		}
		if i >= len(lines) {
			return Document{}, fmt.Errorf("%w: missing end marker", ErrMalformedConflict)
		}
		raw.Write(lines[i])
		seg.TheirsLabel = markerLabel(lines[i])

		seg.Ours = normalizeLF(ours.String())
		seg.Base = normalizeLF(base.String())
		seg.Theirs = normalizeLF(theirs.String())
		seg.Raw = raw.String()
		seg.Resolved = seg.Ours

		doc.Conflicts = append(doc.Conflicts, ConflictRef{SegmentIndex: len(doc.Segments)})
		doc.Segments = append(doc.Segments, seg)
	}

	appendText()
	return doc, nil
}

// degraded returns a document holding the whole input as one text segment.
func degraded(data []byte) Document {
	doc := Document{Newline: DetectNewline(data)}
	if len(data) > 0 {
		raw := string(data)
		doc.Segments = []Segment{TextSegment{Text: normalizeLF(raw), Raw: raw}}
	}
	return doc
}

// HasMarkers reports whether any line starts with a start, separator or end
// marker, regardless of whether they form valid blocks.
func HasMarkers(data []byte) bool {
	for _, line := range splitLinesKeepEOL(data) {
		if hasLinePrefix(line, markStart) || hasLinePrefix(line, markMid) || hasLinePrefix(line, markEnd) {
			return true
		}
	}
	return false
}

func hasLinePrefix(line, prefix []byte) bool {
	// Markers appear at line start in Git output.
	return bytes.HasPrefix(line, prefix)
}

func markerLabel(line []byte) string {
	return strings.TrimSpace(string(line[len(markStart):]))
}

func splitLinesKeepEOL(b []byte) [][]byte {
	if len(b) == 0 {
		return nil
	}

	var out [][]byte
	start := 0
	for i := 0; i < len(b); i++ {
		if b[i] == '\n' {
			out = append(out, b[start:i+1])
			start = i + 1
		}
	}
	if start < len(b) {
		out = append(out, b[start:])
	}
	return out
}

// IsResolved returns true if the data contains no conflict markers.
//
// Lines that merely contain marker text (not at line start) are not
// considered conflicts. Malformed structure counts as unresolved.
func IsResolved(data []byte) bool {
	res := Parse(data)
	return res.Err == nil && res.ConflictCount == 0
}

// Synthesize builds a whole-file conflict block from two stage blobs. It is
// used when the working-tree copy of a conflicted file is unavailable. The
// markers follow the blobs' newline convention.
func Synthesize(ours, theirs, oursLabel, theirsLabel string) []byte {
	nl := DetectNewline([]byte(ours + theirs))

	var b strings.Builder
	b.WriteString("<<<<<<< " + oursLabel + "\n")
	b.WriteString(terminate(normalizeLF(ours)))
	b.WriteString("=======\n")
	b.WriteString(terminate(normalizeLF(theirs)))
	b.WriteString(">>>>>>> " + theirsLabel + "\n")
	return []byte(Denormalize(b.String(), nl))
}

func terminate(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
