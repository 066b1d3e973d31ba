package session

import (
	"context"
	"fmt"

	"github.com/chojs23/mend/internal/linediff"
	"github.com/chojs23/mend/internal/log"
)

// DiffSource provides the two texts compared by the diff view. With staged
// false it is index against working tree; with staged true HEAD against
// index.
type DiffSource interface {
	BaseAndModified(ctx context.Context, path string, staged bool) (base, modified string, err error)
}

// DiffView is a computed diff ready for display.
type DiffView struct {
	Path   string
	Staged bool
	Result linediff.Result
	Hunks  []linediff.Hunk
	Inline []linediff.InlineLine
}

func LoadDiff(ctx context.Context, src DiffSource, path string, staged bool) (*DiffView, error) {
	base, modified, err := src.BaseAndModified(ctx, path, staged)
	if err != nil {
		return nil, fmt.Errorf("load diff %s: %w", path, err)
	}
	return NewDiffView(path, staged, base, modified), nil
}

func NewDiffView(path string, staged bool, base, modified string) *DiffView {
	res := linediff.Compute(base, modified)
	v := &DiffView{
		Path:   path,
		Staged: staged,
		Result: res,
		Hunks:  linediff.BuildHunks(res),
		Inline: linediff.Flatten(res),
	}
	added, removed := res.Stats()
	log.Debug(log.CatDiff, "diff computed", "path", path, "staged", staged, "rows", res.Len(), "hunks", len(v.Hunks), "added", added, "removed", removed)
	return v
}

// TargetAt maps a side-by-side row to the line to stage.
func (v *DiffView) TargetAt(row int, side linediff.Side) (linediff.StageTarget, bool) {
	pair, ok := v.Result.Pair(row)
	if !ok {
		return linediff.StageTarget{}, false
	}
	if side == linediff.SideLeft {
		return linediff.TargetFor(pair.Left, pair.Right, side)
	}
	return linediff.TargetFor(pair.Right, pair.Left, side)
}

// InlineTargetAt maps an inline row to the line to stage.
func (v *DiffView) InlineTargetAt(row int) (linediff.StageTarget, bool) {
	if row < 0 || row >= len(v.Inline) {
		return linediff.StageTarget{}, false
	}
	return linediff.TargetForInline(v.Inline[row], v.Result)
}
