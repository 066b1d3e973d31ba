package linediff

// StageTarget addresses one physical line (or one modified pair) for a
// line-granular stage or unstage. 0 means absent; at least one number is set.
type StageTarget struct {
	OldLineNumber int
	NewLineNumber int
}

func (t StageTarget) IsZero() bool {
	return t.OldLineNumber == 0 && t.NewLineNumber == 0
}

// TargetFor decides whether line, shown on side with counterpart on the
// other side of the same row, can be staged on its own.
func TargetFor(line, counterpart DiffLine, side Side) (StageTarget, bool) {
	if !line.HasNumber() {
		return StageTarget{}, false
	}

	switch line.Type {
	case Modified:
		if !counterpart.HasNumber() {
			return StageTarget{}, false
		}
		if side == SideLeft {
			return StageTarget{OldLineNumber: line.LineNumber, NewLineNumber: counterpart.LineNumber}, true
		}
		return StageTarget{OldLineNumber: counterpart.LineNumber, NewLineNumber: line.LineNumber}, true
	case Removed:
		if side != SideLeft {
			return StageTarget{}, false
		}
		return StageTarget{OldLineNumber: line.LineNumber}, true
	case Added:
		if side != SideRight {
			return StageTarget{}, false
		}
		return StageTarget{NewLineNumber: line.LineNumber}, true
	default:
		return StageTarget{}, false
	}
}

// TargetForInline resolves a flattened row through its SourceIndex, so both
// rows of a split modification stage the same pair.
func TargetForInline(row InlineLine, res Result) (StageTarget, bool) {
	pair, ok := res.Pair(row.SourceIndex)
	if !ok {
		return StageTarget{}, false
	}
	switch row.Type {
	case Removed:
		return TargetFor(pair.Left, pair.Right, SideLeft)
	case Added:
		return TargetFor(pair.Right, pair.Left, SideRight)
	default:
		return StageTarget{}, false
	}
}
