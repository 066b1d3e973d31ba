package linediff

import "fmt"

// Hunk is a maximal run of adjacent changed rows. StartIndex and EndIndex
// are inclusive indices into the Result the hunk was built from.
type Hunk struct {
	ID         string
	StartIndex int
	EndIndex   int
	Lines      []Pair
}

// BuildHunks groups adjacent changed rows. A single Equal row between two
// changed runs splits them: there is no context coalescing.
func BuildHunks(res Result) []Hunk {
	var hunks []Hunk
	start := -1

	closeHunk := func(end int) {
		h := Hunk{
			ID:         fmt.Sprintf("hunk-%d-%d", start, end),
			StartIndex: start,
			EndIndex:   end,
			Lines:      make([]Pair, 0, end-start+1),
		}
		for i := start; i <= end; i++ {
			h.Lines = append(h.Lines, Pair{Left: res.Left[i], Right: res.Right[i]})
		}
		hunks = append(hunks, h)
		start = -1
	}

	for i := 0; i < res.Len(); i++ {
		changed := Pair{Left: res.Left[i], Right: res.Right[i]}.Changed()
		switch {
		case changed && start < 0:
			start = i
		case !changed && start >= 0:
			closeHunk(i - 1)
		}
	}
	if start >= 0 {
		closeHunk(res.Len() - 1)
	}
	return hunks
}

func (h Hunk) Contains(index int) bool {
	return index >= h.StartIndex && index <= h.EndIndex
}

// HunkAt returns the hunk covering a row index.
func HunkAt(hunks []Hunk, index int) (Hunk, bool) {
	for _, h := range hunks {
		if h.Contains(index) {
			return h, true
		}
	}
	return Hunk{}, false
}

// NextHunk returns the first hunk starting after index.
func NextHunk(hunks []Hunk, index int) (Hunk, bool) {
	for _, h := range hunks {
		if h.StartIndex > index {
			return h, true
		}
	}
	return Hunk{}, false
}

// PrevHunk returns the last hunk ending before index.
func PrevHunk(hunks []Hunk, index int) (Hunk, bool) {
	for i := len(hunks) - 1; i >= 0; i-- {
		if hunks[i].EndIndex < index {
			return hunks[i], true
		}
	}
	return Hunk{}, false
}
