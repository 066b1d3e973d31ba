package engine

import (
	"errors"
	"fmt"

	"github.com/chojs23/mend/internal/log"
	"github.com/chojs23/mend/internal/markers"
	"github.com/chojs23/mend/internal/resolve"
)

var (
	ErrNoUndo         = errors.New("no undo history available")
	ErrNoRedo         = errors.New("no redo history available")
	ErrConflictIndex  = errors.New("conflict index out of bounds")
	ErrLineIndex      = errors.New("line index out of bounds")
	ErrDocumentManual = errors.New("document is in manual mode")
)

type mode int

const (
	// modeDefault keeps the parsed ours text until the user acts.
	modeDefault mode = iota
	// modeWhole holds every line of one side, chosen as a whole. It stays
	// a decision even when that side is empty.
	modeWhole
	modeStack
	modeManual
)

// snapshot is everything a mutation can change.
type snapshot struct {
	doc        markers.Document
	selections []resolve.Selection
	modes      []mode
	// wholeSides is the side of each conflict in modeWhole.
	wholeSides []resolve.Side
}

func (s snapshot) clone() snapshot {
	out := snapshot{
		doc:        s.doc.Clone(),
		selections: make([]resolve.Selection, len(s.selections)),
		modes:      make([]mode, len(s.modes)),
		wholeSides: make([]resolve.Side, len(s.wholeSides)),
	}
	for i, sel := range s.selections {
		out.selections[i] = sel.Clone()
	}
	copy(out.modes, s.modes)
	copy(out.wholeSides, s.wholeSides)
	return out
}

// State manages resolution state for a conflict document with undo support.
type State struct {
	cur snapshot

	// Side lines per conflict, split once on load.
	ours   [][]string
	theirs [][]string

	undoStack   []snapshot
	redoStack   []snapshot
	maxUndoSize int
}

// NewState creates a new State from a parsed document.
// maxUndoSize controls how many undo operations to retain (must be >= 1).
func NewState(doc markers.Document, maxUndoSize int) (*State, error) {
	if maxUndoSize < 1 {
		return nil, fmt.Errorf("maxUndoSize must be >= 1, got %d", maxUndoSize)
	}
	s := &State{
		cur: snapshot{
			doc:        doc.Clone(),
			selections: make([]resolve.Selection, len(doc.Conflicts)),
			modes:      make([]mode, len(doc.Conflicts)),
			wholeSides: make([]resolve.Side, len(doc.Conflicts)),
		},
		ours:        make([][]string, len(doc.Conflicts)),
		theirs:      make([][]string, len(doc.Conflicts)),
		undoStack:   make([]snapshot, 0, maxUndoSize),
		redoStack:   make([]snapshot, 0, maxUndoSize),
		maxUndoSize: maxUndoSize,
	}
	for i := range doc.Conflicts {
		seg, _ := doc.Conflict(i)
		s.ours[i] = resolve.SplitLines(seg.Ours)
		s.theirs[i] = resolve.SplitLines(seg.Theirs)
	}
	return s, nil
}

func (s *State) checkConflict(conflictIndex int) error {
	if s.cur.doc.Manual != nil {
		return ErrDocumentManual
	}
	if conflictIndex < 0 || conflictIndex >= len(s.cur.doc.Conflicts) {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrConflictIndex, conflictIndex, len(s.cur.doc.Conflicts))
	}
	return nil
}

func (s *State) sideLines(conflictIndex int, side resolve.Side) []string {
	if side == resolve.Theirs {
		return s.theirs[conflictIndex]
	}
	return s.ours[conflictIndex]
}

// ApplySide replaces the selection of one conflict with every line of side.
// conflictIndex is an index into doc.Conflicts (NOT doc.Segments).
func (s *State) ApplySide(conflictIndex int, side resolve.Side) error {
	if err := s.checkConflict(conflictIndex); err != nil {
		return err
	}

	s.beginMutation()
	s.applyWhole(conflictIndex, side)

	log.Debug(log.CatResolve, "apply side", "conflict", conflictIndex, "side", side)
	return nil
}

// ApplySideAll applies side to every conflict as one undoable step.
func (s *State) ApplySideAll(side resolve.Side) error {
	if s.cur.doc.Manual != nil {
		return ErrDocumentManual
	}

	s.beginMutation()
	for i := range s.cur.doc.Conflicts {
		s.applyWhole(i, side)
	}

	log.Debug(log.CatResolve, "apply side to all", "side", side, "conflicts", len(s.cur.doc.Conflicts))
	return nil
}

// ToggleLine adds or removes one source line from a conflict's selection.
// Output order follows toggle order, not source order.
func (s *State) ToggleLine(conflictIndex int, side resolve.Side, line int) error {
	if err := s.checkConflict(conflictIndex); err != nil {
		return err
	}
	if n := len(s.sideLines(conflictIndex, side)); line < 0 || line >= n {
		return fmt.Errorf("%w: %s line %d not in [0, %d)", ErrLineIndex, side, line, n)
	}

	s.beginMutation()
	if s.cur.modes[conflictIndex] == modeManual {
		s.cur.selections[conflictIndex].Clear()
	}
	s.cur.selections[conflictIndex].Toggle(resolve.Entry{Side: side, Line: line})
	s.cur.modes[conflictIndex] = modeStack
	s.recompute(conflictIndex)
	return nil
}

// Reset clears a conflict's selection and re-applies the whole ours side.
func (s *State) Reset(conflictIndex int) error {
	if err := s.checkConflict(conflictIndex); err != nil {
		return err
	}

	s.beginMutation()
	s.cur.selections[conflictIndex].Reset(len(s.ours[conflictIndex]))
	s.cur.modes[conflictIndex] = modeWhole
	s.cur.wholeSides[conflictIndex] = resolve.Ours
	s.recompute(conflictIndex)
	return nil
}

func (s *State) applyWhole(conflictIndex int, side resolve.Side) {
	s.cur.selections[conflictIndex].ApplySide(side, len(s.sideLines(conflictIndex, side)))
	s.cur.modes[conflictIndex] = modeWhole
	s.cur.wholeSides[conflictIndex] = side
	s.recompute(conflictIndex)
}

// SetManual overrides one conflict with free text, bypassing its selection.
func (s *State) SetManual(conflictIndex int, text string) error {
	if err := s.checkConflict(conflictIndex); err != nil {
		return err
	}

	s.beginMutation()
	s.cur.modes[conflictIndex] = modeManual
	s.cur.doc.SetResolved(conflictIndex, terminate(markers.NormalizeLF(text)))
	return nil
}

// SetDocumentManual replaces the whole output with text. It is the fallback
// when parsing degraded and there are no conflict blocks to work with.
func (s *State) SetDocumentManual(text string) {
	s.beginMutation()
	manual := markers.NormalizeLF(text)
	s.cur.doc.Manual = &manual
}

// ClearDocumentManual drops a whole-document override.
func (s *State) ClearDocumentManual() {
	if s.cur.doc.Manual == nil {
		return
	}
	s.beginMutation()
	s.cur.doc.Manual = nil
}

// recompute writes the derived resolved text of one conflict.
func (s *State) recompute(conflictIndex int) {
	out := resolve.Recompute(s.cur.selections[conflictIndex], s.ours[conflictIndex], s.theirs[conflictIndex])
	s.cur.doc.SetResolved(conflictIndex, out.Block())
}

// Undo restores the previous state.
func (s *State) Undo() error {
	if len(s.undoStack) == 0 {
		return ErrNoUndo
	}

	s.pushWithLimit(&s.redoStack, s.cur)

	lastIdx := len(s.undoStack) - 1
	s.cur = s.undoStack[lastIdx]
	s.undoStack = s.undoStack[:lastIdx]

	return nil
}

// Redo reapplies a previously undone state.
func (s *State) Redo() error {
	if len(s.redoStack) == 0 {
		return ErrNoRedo
	}

	s.pushWithLimit(&s.undoStack, s.cur)

	lastIdx := len(s.redoStack) - 1
	s.cur = s.redoStack[lastIdx]
	s.redoStack = s.redoStack[:lastIdx]

	return nil
}

// Preview renders the current output with the source newline convention.
func (s *State) Preview() []byte {
	return markers.Render(s.cur.doc)
}

// Document returns a copy of the current document state.
func (s *State) Document() markers.Document {
	return s.cur.doc.Clone()
}

// Kind reports the resolution state of one conflict.
func (s *State) Kind(conflictIndex int) resolve.State {
	if conflictIndex < 0 || conflictIndex >= len(s.cur.modes) {
		return resolve.Unresolved
	}
	switch s.cur.modes[conflictIndex] {
	case modeManual:
		return resolve.Manual
	case modeWhole:
		if s.cur.wholeSides[conflictIndex] == resolve.Theirs {
			return resolve.WholeTheirs
		}
		return resolve.WholeOurs
	case modeStack:
		return resolve.Kind(s.cur.selections[conflictIndex], len(s.ours[conflictIndex]), len(s.theirs[conflictIndex]))
	default:
		return resolve.Unresolved
	}
}

// Output returns the derived output of one conflict with per-line
// provenance. A conflict the user has not touched reports the ours side.
func (s *State) Output(conflictIndex int) (resolve.Output, bool) {
	if conflictIndex < 0 || conflictIndex >= len(s.cur.modes) {
		return resolve.Output{}, false
	}
	switch s.cur.modes[conflictIndex] {
	case modeManual:
		seg, _ := s.cur.doc.Conflict(conflictIndex)
		return resolve.Output{Text: trimTerminator(seg.Resolved)}, true
	case modeWhole, modeStack:
		return resolve.Recompute(s.cur.selections[conflictIndex], s.ours[conflictIndex], s.theirs[conflictIndex]), true
	default:
		var sel resolve.Selection
		sel.ApplySide(resolve.Ours, len(s.ours[conflictIndex]))
		return resolve.Recompute(sel, s.ours[conflictIndex], s.theirs[conflictIndex]), true
	}
}

// Selected reports whether a source line is in a conflict's selection.
func (s *State) Selected(conflictIndex int, side resolve.Side, line int) bool {
	if conflictIndex < 0 || conflictIndex >= len(s.cur.modes) {
		return false
	}
	if m := s.cur.modes[conflictIndex]; m != modeWhole && m != modeStack {
		return false
	}
	return s.cur.selections[conflictIndex].Contains(resolve.Entry{Side: side, Line: line})
}

// UnresolvedCount counts conflicts the user has not acted on.
func (s *State) UnresolvedCount() int {
	n := 0
	for i := range s.cur.modes {
		if s.Kind(i) == resolve.Unresolved {
			n++
		}
	}
	return n
}

// Manual reports whether a whole-document override is active.
func (s *State) Manual() bool {
	return s.cur.doc.Manual != nil
}

// UndoDepth returns the current number of undo operations available.
func (s *State) UndoDepth() int {
	return len(s.undoStack)
}

// RedoDepth returns the current number of redo operations available.
func (s *State) RedoDepth() int {
	return len(s.redoStack)
}

// beginMutation saves the current state to undo and clears redo history.
func (s *State) beginMutation() {
	s.pushWithLimit(&s.undoStack, s.cur)
	s.redoStack = s.redoStack[:0]
}

// pushWithLimit saves a snapshot into the stack and enforces max size.
func (s *State) pushWithLimit(stack *[]snapshot, snap snapshot) {
	*stack = append(*stack, snap.clone())
	if len(*stack) > s.maxUndoSize {
		*stack = (*stack)[1:]
	}
}

func terminate(text string) string {
	if text == "" || text[len(text)-1] == '\n' {
		return text
	}
	return text + "\n"
}

func trimTerminator(text string) string {
	if text != "" && text[len(text)-1] == '\n' {
		return text[:len(text)-1]
	}
	return text
}
