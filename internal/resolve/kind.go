package resolve

// State is the resolution state of one conflict.
type State int

const (
	Unresolved State = iota
	WholeOurs
	WholeTheirs
	Custom
	Manual
)

func (s State) String() string {
	switch s {
	case Unresolved:
		return "unresolved"
	case WholeOurs:
		return "ours"
	case WholeTheirs:
		return "theirs"
	case Custom:
		return "custom"
	case Manual:
		return "manual"
	default:
		return "unknown"
	}
}

// Kind classifies a selection. Manual is never returned here; manual text
// bypasses the stack and is tracked by the caller.
func Kind(sel Selection, nOurs, nTheirs int) State {
	if sel.Len() == 0 {
		return Unresolved
	}
	if isWhole(sel, Ours, nOurs) {
		return WholeOurs
	}
	if isWhole(sel, Theirs, nTheirs) {
		return WholeTheirs
	}
	return Custom
}

func isWhole(sel Selection, side Side, n int) bool {
	if sel.Len() != n {
		return false
	}
	for i, e := range sel.entries {
		if e.Side != side || e.Line != i {
			return false
		}
	}
	return true
}
