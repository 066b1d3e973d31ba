// Package resolve holds the per-conflict selection stack and the pure
// function that turns a stack into resolved text.
package resolve

import (
	"slices"
	"strings"
)

type Side int

const (
	Ours Side = iota
	Theirs
)

func (s Side) String() string {
	if s == Theirs {
		return "theirs"
	}
	return "ours"
}

// Entry addresses one line of one side of a conflict, 0-based.
type Entry struct {
	Side Side
	Line int
}

// Selection is the ordered list of lines the user picked for a conflict.
// Order is click order and no entry appears twice.
type Selection struct {
	entries []Entry
}

// Entries returns a copy of the stack in selection order.
func (s Selection) Entries() []Entry {
	return slices.Clone(s.entries)
}

func (s Selection) Len() int {
	return len(s.entries)
}

func (s Selection) Contains(e Entry) bool {
	return slices.Contains(s.entries, e)
}

// Toggle removes e if present, otherwise appends it. It reports whether e is
// selected afterwards.
func (s *Selection) Toggle(e Entry) bool {
	if i := slices.Index(s.entries, e); i >= 0 {
		s.entries = slices.Delete(s.entries, i, i+1)
		return false
	}
	s.entries = append(s.entries, e)
	return true
}

// ApplySide replaces the stack with lines 0..n-1 of side, in order.
func (s *Selection) ApplySide(side Side, n int) {
	s.entries = make([]Entry, 0, n)
	for i := 0; i < n; i++ {
		s.entries = append(s.entries, Entry{Side: side, Line: i})
	}
}

func (s *Selection) Clear() {
	s.entries = nil
}

// Reset clears the stack and re-applies the whole ours side.
func (s *Selection) Reset(nOurs int) {
	s.Clear()
	s.ApplySide(Ours, nOurs)
}

func (s Selection) Clone() Selection {
	return Selection{entries: slices.Clone(s.entries)}
}

// OutputLine is one line of resolved output with the side it came from.
type OutputLine struct {
	Side    Side
	Line    int
	Content string
}

type Output struct {
	// Text is the selected lines joined with "\n", without a trailing newline.
	Text  string
	Lines []OutputLine
}

// Recompute derives the resolved text and its provenance from sel. Entries
// pointing past the end of their side are skipped.
func Recompute(sel Selection, ours, theirs []string) Output {
	var out Output
	contents := make([]string, 0, len(sel.entries))
	for _, e := range sel.entries {
		src := ours
		if e.Side == Theirs {
			src = theirs
		}
		if e.Line < 0 || e.Line >= len(src) {
			continue
		}
		contents = append(contents, src[e.Line])
		out.Lines = append(out.Lines, OutputLine{Side: e.Side, Line: e.Line, Content: src[e.Line]})
	}
	out.Text = strings.Join(contents, "\n")
	return out
}

// SplitLines breaks an LF-normalized body into lines without terminators.
// An empty body has no lines; a final "\n" does not start a new line.
func SplitLines(body string) []string {
	if body == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(body, "\n"), "\n")
}

// Block renders out as a conflict body: every line terminated by "\n".
func (o Output) Block() string {
	if len(o.Lines) == 0 {
		return ""
	}
	return o.Text + "\n"
}
