package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"github.com/chojs23/mend/internal/engine"
	"github.com/chojs23/mend/internal/linediff"
	"github.com/chojs23/mend/internal/markers"
	"github.com/chojs23/mend/internal/resolve"
)

// lineInfo is one display row of a pane.
type lineInfo struct {
	text string
	// number is the 1-based line number shown in the gutter; 0 leaves it blank.
	number int
	// marker is a short gutter tag, e.g. the pick order of a selected line.
	marker string
	style  lipgloss.Style
	cursor bool
	dim    bool
	// spans, when set, replace text with word-level highlighting.
	spans []linediff.Span
}

const markerWidth = 3

func renderLines(lines []lineInfo) string {
	if len(lines) == 0 {
		return ""
	}

	maxNumber := 0
	for _, line := range lines {
		maxNumber = max(maxNumber, line.number)
	}
	width := len(strconv.Itoa(max(maxNumber, 1)))

	var b strings.Builder
	for i, line := range lines {
		numberText := strings.Repeat(" ", width)
		if line.number > 0 {
			numberText = fmt.Sprintf("%*d", width, line.number)
		}
		marker := fmt.Sprintf("%-*s", markerWidth, line.marker)

		style := line.style
		if line.dim {
			style = style.Foreground(dimStyle.GetForeground())
		}
		if line.cursor {
			style = style.Background(cursorBackground)
		}

		body := style.Render(line.text)
		if len(line.spans) > 0 {
			body = renderSpans(line.spans, style)
		}

		b.WriteString(lineNumberStyle.Render(numberText) + " " + pickedMarkerStyle.Render(marker) + body)
		if i < len(lines)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func renderSpans(spans []linediff.Span, base lipgloss.Style) string {
	var b strings.Builder
	for _, span := range spans {
		switch span.Kind {
		case linediff.SpanAdded:
			b.WriteString(wordAddedStyle.Render(span.Text))
		case linediff.SpanRemoved:
			b.WriteString(wordRemovedStyle.Render(span.Text))
		default:
			b.WriteString(base.Render(span.Text))
		}
	}
	return b.String()
}

// textLines splits LF-normalized text for display.
func textLines(text string) []string {
	return resolve.SplitLines(text)
}

func sideBody(seg markers.ConflictSegment, side resolve.Side) string {
	if side == resolve.Theirs {
		return seg.Theirs
	}
	return seg.Ours
}

func sideStyle(side resolve.Side) lipgloss.Style {
	if side == resolve.Theirs {
		return theirsLineStyle
	}
	return oursLineStyle
}

// pickOrder maps each selected source line of a conflict to its 1-based
// position in the output.
func pickOrder(state *engine.State, conflict int) map[resolve.Entry]int {
	out, ok := state.Output(conflict)
	if !ok {
		return nil
	}
	order := make(map[resolve.Entry]int, len(out.Lines))
	for i, line := range out.Lines {
		order[resolve.Entry{Side: line.Side, Line: line.Line}] = i + 1
	}
	return order
}

// buildSidePane lays out the whole file as one side sees it. It returns
// the rows and the row where the current conflict starts.
func buildSidePane(state *engine.State, side resolve.Side, current, cursor int, focused bool) ([]lineInfo, int) {
	doc := state.Document()
	var lines []lineInfo
	currentStart := 0
	number := 0
	conflict := -1

	for _, seg := range doc.Segments {
		switch s := seg.(type) {
		case markers.TextSegment:
			for _, text := range textLines(s.Text) {
				number++
				lines = append(lines, lineInfo{text: text, number: number})
			}
		case markers.ConflictSegment:
			conflict++
			isCurrent := conflict == current
			if isCurrent {
				currentStart = len(lines)
			}

			body := textLines(sideBody(s, side))
			if len(body) == 0 && isCurrent {
				lines = append(lines, lineInfo{text: "(no lines on this side)", dim: true, marker: "·"})
				continue
			}

			var order map[resolve.Entry]int
			if isCurrent {
				order = pickOrder(state, conflict)
			}
			for j, text := range body {
				number++
				info := lineInfo{text: text, number: number, style: conflictLineStyle}
				if isCurrent {
					info.style = sideStyle(side)
					info.cursor = focused && j == cursor
					if state.Selected(conflict, side, j) {
						info.marker = strconv.Itoa(order[resolve.Entry{Side: side, Line: j}])
					}
				}
				lines = append(lines, info)
			}
		}
	}
	return lines, currentStart
}

// buildResultPane lays out the reconstructed output with every conflict
// line colored by where it came from.
func buildResultPane(state *engine.State, current int) ([]lineInfo, int) {
	doc := state.Document()
	if doc.Manual != nil {
		return plainLines(*doc.Manual, manualLineStyle), 0
	}

	var lines []lineInfo
	currentStart := 0
	number := 0
	conflict := -1
	add := func(info lineInfo) {
		number++
		info.number = number
		lines = append(lines, info)
	}

	for _, seg := range doc.Segments {
		switch s := seg.(type) {
		case markers.TextSegment:
			for _, text := range textLines(s.Text) {
				add(lineInfo{text: text})
			}
		case markers.ConflictSegment:
			conflict++
			isCurrent := conflict == current
			if isCurrent {
				currentStart = len(lines)
			}
			marker := ""
			if isCurrent {
				marker = "▶"
			}

			before := len(lines)
			kind := state.Kind(conflict)
			out, _ := state.Output(conflict)
			switch kind {
			case resolve.Manual:
				for _, text := range textLines(s.Resolved) {
					add(lineInfo{text: text, style: manualLineStyle, marker: marker})
				}
			case resolve.Unresolved:
				for _, line := range out.Lines {
					add(lineInfo{text: line.Content, style: conflictLineStyle, marker: marker, dim: true})
				}
			default:
				for _, line := range out.Lines {
					add(lineInfo{text: line.Content, style: sideStyle(line.Side), marker: marker})
				}
			}

			if len(lines) == before && isCurrent {
				lines = append(lines, lineInfo{text: "(conflict resolves to nothing)", dim: true, marker: marker})
			}
		}
	}
	return lines, currentStart
}

func plainLines(text string, style lipgloss.Style) []lineInfo {
	body := textLines(markers.NormalizeLF(text))
	lines := make([]lineInfo, 0, len(body))
	for i, line := range body {
		lines = append(lines, lineInfo{text: line, number: i + 1, style: style})
	}
	return lines
}

func diffLineStyle(t linediff.LineType) lipgloss.Style {
	switch t {
	case linediff.Added:
		return addedLineStyle
	case linediff.Removed:
		return removedLineStyle
	case linediff.Modified:
		return conflictLineStyle
	default:
		return lipgloss.NewStyle()
	}
}

// buildDiffColumn renders one column of the side-by-side diff.
func buildDiffColumn(res linediff.Result, side linediff.Side, cursor int, focused bool) []lineInfo {
	column, other := res.Left, res.Right
	if side == linediff.SideRight {
		column, other = res.Right, res.Left
	}
	hunks := linediff.BuildHunks(res)

	lines := make([]lineInfo, 0, len(column))
	for i, line := range column {
		info := lineInfo{
			text:   line.Content,
			number: line.LineNumber,
			style:  diffLineStyle(line.Type),
			cursor: focused && i == cursor,
		}
		if !line.HasNumber() {
			info.text = ""
			info.dim = true
		}
		if h, ok := linediff.HunkAt(hunks, i); ok && h.StartIndex == i {
			info.marker = "@"
		}
		if line.Type == linediff.Modified && other[i].HasNumber() {
			oldSpans, newSpans := linediff.WordDiff(res.Left[i].Content, res.Right[i].Content)
			if side == linediff.SideLeft {
				info.spans = oldSpans
			} else {
				info.spans = newSpans
			}
		}
		lines = append(lines, info)
	}
	return lines
}

// buildInlineLines renders the single-column diff.
func buildInlineLines(rows []linediff.InlineLine, hunks []linediff.Hunk, cursor int) []lineInfo {
	starts := linediff.HunkStarts(rows, hunks)
	lines := make([]lineInfo, 0, len(rows))
	for i, row := range rows {
		info := lineInfo{text: row.Content, style: diffLineStyle(row.Type), cursor: i == cursor}
		switch row.Type {
		case linediff.Removed:
			info.number = row.OldLineNumber
			info.text = "-" + row.Content
		case linediff.Added:
			info.number = row.NewLineNumber
			info.text = "+" + row.Content
		default:
			info.number = row.NewLineNumber
			info.text = " " + row.Content
		}
		if _, ok := starts[i]; ok {
			info.marker = "@"
		}
		lines = append(lines, info)
	}
	return lines
}

func ensureVisible(viewportModel *viewport.Model, start int, total int) {
	if viewportModel.Height <= 0 {
		return
	}
	if total <= 0 {
		viewportModel.YOffset = 0
		return
	}

	maxOffset := max(total-viewportModel.Height, 0)
	target := min(max(start-2, 0), maxOffset)
	viewportModel.YOffset = target
}

// keepInView scrolls only when row left the visible window.
func keepInView(viewportModel *viewport.Model, row int) {
	if viewportModel.Height <= 0 {
		return
	}
	if row < viewportModel.YOffset {
		viewportModel.YOffset = row
	} else if row >= viewportModel.YOffset+viewportModel.Height {
		viewportModel.YOffset = row - viewportModel.Height + 1
	}
}
