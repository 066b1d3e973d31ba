package linediff

// InlineLine is one row of the single-column view. SourceIndex points back
// at the aligned row of the Result it came from.
type InlineLine struct {
	Type          LineType
	OldLineNumber int
	NewLineNumber int
	Content       string
	SourceIndex   int
}

// Flatten merges the two columns into one. A Modified row becomes a Removed
// row followed by an Added row.
func Flatten(res Result) []InlineLine {
	out := make([]InlineLine, 0, res.Len())
	for i := 0; i < res.Len(); i++ {
		left, right := res.Left[i], res.Right[i]
		switch {
		case left.Type == Equal && right.Type == Equal:
			out = append(out, InlineLine{
				Type:          Equal,
				OldLineNumber: left.LineNumber,
				NewLineNumber: right.LineNumber,
				Content:       left.Content,
				SourceIndex:   i,
			})
		case left.HasNumber() && right.HasNumber():
			out = append(out,
				InlineLine{Type: Removed, OldLineNumber: left.LineNumber, Content: left.Content, SourceIndex: i},
				InlineLine{Type: Added, NewLineNumber: right.LineNumber, Content: right.Content, SourceIndex: i},
			)
		case left.HasNumber():
			out = append(out, InlineLine{Type: Removed, OldLineNumber: left.LineNumber, Content: left.Content, SourceIndex: i})
		case right.HasNumber():
			out = append(out, InlineLine{Type: Added, NewLineNumber: right.LineNumber, Content: right.Content, SourceIndex: i})
		}
	}
	return out
}

// HunkStarts marks the flattened rows where a hunk begins, for drawing hunk
// boundaries in the inline view.
func HunkStarts(rows []InlineLine, hunks []Hunk) map[int]Hunk {
	starts := make(map[int]Hunk, len(hunks))
	next := 0
	for i, row := range rows {
		if next >= len(hunks) {
			break
		}
		if row.SourceIndex == hunks[next].StartIndex {
			starts[i] = hunks[next]
			next++
		}
	}
	return starts
}
