package markers

// Newline is the line-ending convention detected on load.
type Newline int

const (
	NewlineLF Newline = iota
	NewlineCRLF
)

func (n Newline) String() string {
	if n == NewlineCRLF {
		return "crlf"
	}
	return "lf"
}

// Status summarizes what Parse found in the input.
type Status int

const (
	// StatusClean means the input has no conflict markers at all.
	StatusClean Status = iota
	// StatusConflicted means at least one well-formed conflict block was found.
	StatusConflicted
	// StatusMalformed means markers are present but no usable block structure
	// could be parsed. The document degrades to a single text segment.
	StatusMalformed
)

func (s Status) String() string {
	switch s {
	case StatusClean:
		return "clean"
	case StatusConflicted:
		return "conflicted"
	case StatusMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

type Document struct {
	Segments  []Segment
	Conflicts []ConflictRef
	Newline   Newline

	// Manual, when set, replaces the whole rendered document. It is used when
	// parsing degraded and the user edits the file as free text.
	Manual *string
}

type Segment interface{ isSegment() }

// TextSegment is a plain region outside any conflict block.
type TextSegment struct {
	Text string // LF-normalized
	Raw  string // exact original bytes
}

func (TextSegment) isSegment() {}

type ConflictSegment struct {
	// Bodies are LF-normalized; every line keeps its terminating "\n".
	Ours   string
	Base   string // empty unless the block was diff3 style
	Theirs string

	OursLabel   string
	BaseLabel   string
	TheirsLabel string

	// Raw is the exact original marker block, markers included.
	Raw string

	// Resolved is the text emitted for this block on render (LF-normalized,
	// one "\n" per output line). It starts equal to Ours.
	Resolved string
}

func (ConflictSegment) isSegment() {}

// ConflictRef points to a conflict segment inside Document.Segments.
//
// We keep an index list for convenient iteration and stable ordering.
type ConflictRef struct {
	SegmentIndex int
}

// Conflict returns the conflict segment for the given conflict index.
func (d Document) Conflict(index int) (ConflictSegment, bool) {
	if index < 0 || index >= len(d.Conflicts) {
		return ConflictSegment{}, false
	}
	seg, ok := d.Segments[d.Conflicts[index].SegmentIndex].(ConflictSegment)
	return seg, ok
}

// SetResolved replaces the resolved text of the conflict at index.
func (d *Document) SetResolved(index int, text string) bool {
	seg, ok := d.Conflict(index)
	if !ok {
		return false
	}
	seg.Resolved = text
	d.Segments[d.Conflicts[index].SegmentIndex] = seg
	return true
}

// Clone returns a copy whose segment slice can be mutated independently.
func (d Document) Clone() Document {
	out := Document{
		Segments:  make([]Segment, len(d.Segments)),
		Conflicts: make([]ConflictRef, len(d.Conflicts)),
		Newline:   d.Newline,
	}
	// Segment values hold only strings, so a shallow copy is a deep copy.
	copy(out.Segments, d.Segments)
	copy(out.Conflicts, d.Conflicts)
	if d.Manual != nil {
		manual := *d.Manual
		out.Manual = &manual
	}
	return out
}
