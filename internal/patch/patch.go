// Package patch parses zero-context unified diffs and cuts single-line
// patches out of them for line-granular staging.
package patch

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/chojs23/mend/internal/linediff"
)

var (
	ErrNoHunks        = errors.New("no diff hunks available")
	ErrEmptyTarget    = errors.New("stage-line target is empty")
	ErrLineNotFound   = errors.New("line not found in diff")
	ErrHunkMismatch   = errors.New("modified line pair spans different hunks")
	ErrMalformedPatch = errors.New("malformed diff")
)

type Kind int

const (
	Add Kind = iota
	Remove
)

func (k Kind) String() string {
	if k == Remove {
		return "removed"
	}
	return "added"
}

// Line is one +/- line of a hunk. Anchors are the old/new cursor positions
// when the line was read; they place a lone addition or removal.
type Line struct {
	Kind      Kind
	Content   string
	OldLine   int // 0 for additions
	NewLine   int // 0 for removals
	OldAnchor int
	NewAnchor int
}

type Hunk struct {
	OldStart int
	NewStart int
	Lines    []Line
}

type Patch struct {
	Header []string
	Hunks  []Hunk
}

// ParseZeroContext parses the output of `git diff --unified=0` for one file.
// Only the first file section is read.
func ParseZeroContext(diff string) (*Patch, error) {
	lines := strings.Split(strings.TrimRight(diff, "\n"), "\n")

	p := &Patch{}
	i := 0
	for ; i < len(lines); i++ {
		line := lines[i]
		if strings.HasPrefix(line, "@@") {
			break
		}
		if strings.HasPrefix(line, "diff --git ") && len(p.Header) > 0 {
			break
		}
		p.Header = append(p.Header, line)
	}
	if len(p.Header) == 0 || (len(p.Header) == 1 && p.Header[0] == "") {
		return nil, fmt.Errorf("%w: missing file header", ErrMalformedPatch)
	}

	for i < len(lines) {
		line := lines[i]
		if strings.HasPrefix(line, "diff --git ") {
			break
		}
		if !strings.HasPrefix(line, "@@") {
			i++
			continue
		}
		h, next, err := parseHunk(lines, i)
		if err != nil {
			return nil, err
		}
		p.Hunks = append(p.Hunks, h)
		i = next
	}

	if len(p.Hunks) == 0 {
		return nil, ErrNoHunks
	}
	return p, nil
}

func parseHunk(lines []string, start int) (Hunk, int, error) {
	header := lines[start]
	fields := strings.Fields(header)
	if len(fields) < 3 {
		return Hunk{}, 0, fmt.Errorf("%w: hunk header %q", ErrMalformedPatch, header)
	}
	oldStart, err := parseRange(fields[1], '-')
	if err != nil {
		return Hunk{}, 0, err
	}
	newStart, err := parseRange(fields[2], '+')
	if err != nil {
		return Hunk{}, 0, err
	}

	h := Hunk{OldStart: oldStart, NewStart: newStart}
	oldCur, newCur := oldStart, newStart

	i := start + 1
	for ; i < len(lines); i++ {
		line := lines[i]
		if strings.HasPrefix(line, "@@") || strings.HasPrefix(line, "diff --git ") {
			break
		}
		switch {
		case strings.HasPrefix(line, `\`):
			// "\ No newline at end of file"
		case strings.HasPrefix(line, "+"):
			h.Lines = append(h.Lines, Line{
				Kind: Add, Content: line[1:], NewLine: newCur,
				OldAnchor: oldCur, NewAnchor: newCur,
			})
			newCur++
		case strings.HasPrefix(line, "-"):
			h.Lines = append(h.Lines, Line{
				Kind: Remove, Content: line[1:], OldLine: oldCur,
				OldAnchor: oldCur, NewAnchor: newCur,
			})
			oldCur++
		case strings.HasPrefix(line, " "):
			oldCur++
			newCur++
		}
	}
	return h, i, nil
}

// parseRange reads "-12,3" or "+7" and returns the start line.
func parseRange(token string, prefix byte) (int, error) {
	if len(token) < 2 || token[0] != prefix {
		return 0, fmt.Errorf("%w: hunk range %q", ErrMalformedPatch, token)
	}
	startText, countText, hasCount := strings.Cut(token[1:], ",")
	start, err := strconv.Atoi(startText)
	if err != nil {
		return 0, fmt.Errorf("%w: hunk range %q", ErrMalformedPatch, token)
	}
	if hasCount {
		if _, err := strconv.Atoi(countText); err != nil {
			return 0, fmt.Errorf("%w: hunk range %q", ErrMalformedPatch, token)
		}
	}
	return start, nil
}

func (p *Patch) lookup(kind Kind, number int) (int, Line, error) {
	for hi, h := range p.Hunks {
		for _, l := range h.Lines {
			if l.Kind != kind {
				continue
			}
			if (kind == Add && l.NewLine == number) || (kind == Remove && l.OldLine == number) {
				return hi, l, nil
			}
		}
	}
	return 0, Line{}, fmt.Errorf("%w: %s line %d", ErrLineNotFound, kind, number)
}

// BuildLinePatch cuts a patch applying only target out of p. The result is
// meant for `git apply --cached --unidiff-zero`, reversed for unstaging.
func BuildLinePatch(p *Patch, target linediff.StageTarget) (string, error) {
	if target.IsZero() {
		return "", ErrEmptyTarget
	}

	out := append([]string(nil), p.Header...)

	switch {
	case target.OldLineNumber > 0 && target.NewLineNumber > 0:
		rmHunk, rm, err := p.lookup(Remove, target.OldLineNumber)
		if err != nil {
			return "", err
		}
		addHunk, add, err := p.lookup(Add, target.NewLineNumber)
		if err != nil {
			return "", err
		}
		if rmHunk != addHunk {
			return "", ErrHunkMismatch
		}
		out = append(out,
			fmt.Sprintf("@@ -%d,1 +%d,1 @@", rm.OldLine, add.NewLine),
			"-"+rm.Content,
			"+"+add.Content,
		)
	case target.OldLineNumber > 0:
		_, rm, err := p.lookup(Remove, target.OldLineNumber)
		if err != nil {
			return "", err
		}
		out = append(out,
			fmt.Sprintf("@@ -%d,1 +%d,0 @@", rm.OldLine, rm.NewAnchor),
			"-"+rm.Content,
		)
	default:
		_, add, err := p.lookup(Add, target.NewLineNumber)
		if err != nil {
			return "", err
		}
		out = append(out,
			fmt.Sprintf("@@ -%d,0 +%d,1 @@", add.OldAnchor, add.NewLine),
			"+"+add.Content,
		)
	}

	return strings.Join(out, "\n") + "\n", nil
}
