package linediff

import "github.com/sergi/go-diff/diffmatchpatch"

// MaxWordDiffLength skips intra-line highlighting for long lines.
const MaxWordDiffLength = 500

type SpanKind int

const (
	SpanSame SpanKind = iota
	SpanAdded
	SpanRemoved
)

// Span is a run of characters inside one line.
type Span struct {
	Kind SpanKind
	Text string
}

// WordDiff highlights the changed parts of a modified pair. The first
// result belongs to the old line, the second to the new one.
func WordDiff(oldLine, newLine string) ([]Span, []Span) {
	switch {
	case oldLine == "" && newLine == "":
		return nil, nil
	case oldLine == "":
		return nil, []Span{{Kind: SpanAdded, Text: newLine}}
	case newLine == "":
		return []Span{{Kind: SpanRemoved, Text: oldLine}}, nil
	case len(oldLine) > MaxWordDiffLength || len(newLine) > MaxWordDiffLength:
		return []Span{{Kind: SpanRemoved, Text: oldLine}}, []Span{{Kind: SpanAdded, Text: newLine}}
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(oldLine, newLine, false))

	var oldSpans, newSpans []Span
	for _, d := range diffs {
		if d.Text == "" {
			continue
		}
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			oldSpans = append(oldSpans, Span{Kind: SpanSame, Text: d.Text})
			newSpans = append(newSpans, Span{Kind: SpanSame, Text: d.Text})
		case diffmatchpatch.DiffDelete:
			oldSpans = append(oldSpans, Span{Kind: SpanRemoved, Text: d.Text})
		case diffmatchpatch.DiffInsert:
			newSpans = append(newSpans, Span{Kind: SpanAdded, Text: d.Text})
		}
	}
	return oldSpans, newSpans
}
