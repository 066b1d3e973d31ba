// Package linediff builds a line-addressable two-sided diff on top of
// diffmatchpatch, and derives hunks, a flattened inline view and stage
// targets from it.
package linediff

// LineType classifies one side of an aligned row.
type LineType int

const (
	Equal LineType = iota
	Added
	Removed
	Modified
)

func (t LineType) String() string {
	switch t {
	case Equal:
		return "equal"
	case Added:
		return "added"
	case Removed:
		return "removed"
	case Modified:
		return "modified"
	default:
		return "unknown"
	}
}

// DiffLine is one side of an aligned row.
type DiffLine struct {
	Type LineType
	// LineNumber is 1-based; 0 means the side has no physical line on this row.
	LineNumber int
	Content    string
}

func (l DiffLine) HasNumber() bool {
	return l.LineNumber > 0
}

// Result is an index-aligned comparison: Left[i] and Right[i] describe the
// same logical row.
type Result struct {
	Left  []DiffLine
	Right []DiffLine
}

func (r Result) Len() int {
	return len(r.Left)
}

// Pair is one aligned row.
type Pair struct {
	Left  DiffLine
	Right DiffLine
}

// Changed reports whether either side of the row is not Equal.
func (p Pair) Changed() bool {
	return p.Left.Type != Equal || p.Right.Type != Equal
}

func (r Result) Pair(i int) (Pair, bool) {
	if i < 0 || i >= r.Len() {
		return Pair{}, false
	}
	return Pair{Left: r.Left[i], Right: r.Right[i]}, true
}

// Stats counts physical lines removed from the left and added on the right.
func (r Result) Stats() (added, removed int) {
	for i := range r.Left {
		if r.Left[i].Type != Equal && r.Left[i].HasNumber() {
			removed++
		}
		if r.Right[i].Type != Equal && r.Right[i].HasNumber() {
			added++
		}
	}
	return added, removed
}

// Side selects a column of the two-sided view.
type Side int

const (
	SideLeft Side = iota
	SideRight
)

func (s Side) String() string {
	if s == SideRight {
		return "right"
	}
	return "left"
}
