package linediff

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/chojs23/mend/internal/log"
)

// Compute aligns base (left) against modified (right) line by line.
//
// Alignment rules (gap alignment):
//   - Equal lines appear on both sides
//   - Adjacent deleted and inserted runs are paired row by row as Modified
//   - Leftover deletions get an empty right side, leftover insertions an
//     empty left side
func Compute(base, modified string) Result {
	dmp := diffmatchpatch.New()
	chars1, chars2, lineArray := dmp.DiffLinesToChars(base, modified)
	diffs := dmp.DiffMain(chars1, chars2, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var (
		res          Result
		oldNo, newNo int
		dels, adds   []string
	)

	flush := func() {
		paired := min(len(dels), len(adds))
		for i := 0; i < paired; i++ {
			oldNo++
			newNo++
			res.Left = append(res.Left, DiffLine{Type: Modified, LineNumber: oldNo, Content: dels[i]})
			res.Right = append(res.Right, DiffLine{Type: Modified, LineNumber: newNo, Content: adds[i]})
		}
		for _, line := range dels[paired:] {
			oldNo++
			res.Left = append(res.Left, DiffLine{Type: Removed, LineNumber: oldNo, Content: line})
			res.Right = append(res.Right, DiffLine{Type: Removed})
		}
		for _, line := range adds[paired:] {
			newNo++
			res.Left = append(res.Left, DiffLine{Type: Added})
			res.Right = append(res.Right, DiffLine{Type: Added, LineNumber: newNo, Content: line})
		}
		dels, adds = dels[:0], adds[:0]
	}

	for _, d := range diffs {
		lines := splitDiffText(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			flush()
			for _, line := range lines {
				oldNo++
				newNo++
				res.Left = append(res.Left, DiffLine{Type: Equal, LineNumber: oldNo, Content: line})
				res.Right = append(res.Right, DiffLine{Type: Equal, LineNumber: newNo, Content: line})
			}
		case diffmatchpatch.DiffDelete:
			dels = append(dels, lines...)
		case diffmatchpatch.DiffInsert:
			adds = append(adds, lines...)
		}
	}
	flush()

	log.Debug(log.CatDiff, "computed line diff", "rows", res.Len(), "left", oldNo, "right", newNo)
	return res
}

// splitDiffText breaks a run of whole lines into line contents without
// terminators.
func splitDiffText(text string) []string {
	if text == "" {
		return nil
	}
	parts := strings.SplitAfter(text, "\n")
	if parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	for i, p := range parts {
		p = strings.TrimSuffix(p, "\n")
		parts[i] = strings.TrimSuffix(p, "\r")
	}
	return parts
}
