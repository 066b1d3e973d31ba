package engine

import (
	"errors"
	"testing"

	"github.com/chojs23/mend/internal/markers"
	"github.com/chojs23/mend/internal/resolve"
)

const twoConflicts = `line1
<<<<<<< HEAD
ours
||||||| base
base
=======
theirs
>>>>>>> branch
line2
<<<<<<< HEAD
ours2a
ours2b
=======
theirs2
>>>>>>> branch
line3
`

const oneConflict = `line1
<<<<<<< HEAD
ours
=======
theirs
>>>>>>> branch
line2
`

func newTestState(t *testing.T, input string, maxUndo int) *State {
	t.Helper()
	res := markers.Parse([]byte(input))
	if res.Err != nil {
		t.Fatalf("Parse failed: %v", res.Err)
	}
	state, err := NewState(res.Document, maxUndo)
	if err != nil {
		t.Fatalf("NewState failed: %v", err)
	}
	return state
}

func resolvedText(t *testing.T, s *State, index int) string {
	t.Helper()
	seg, ok := s.cur.doc.Conflict(index)
	if !ok {
		t.Fatalf("no conflict %d", index)
	}
	return seg.Resolved
}

func TestNewState(t *testing.T) {
	tests := []struct {
		name        string
		maxUndoSize int
		wantErr     bool
	}{
		{"valid size 1", 1, false},
		{"valid size 10", 10, false},
		{"invalid size 0", 0, true},
		{"invalid size -1", -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewState(markers.Document{}, tt.maxUndoSize)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewState() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewStateStartsUnresolvedWithOurs(t *testing.T) {
	state := newTestState(t, twoConflicts, 10)

	if got := state.UnresolvedCount(); got != 2 {
		t.Fatalf("UnresolvedCount = %d, want 2", got)
	}
	if got := resolvedText(t, state, 1); got != "ours2a\nours2b\n" {
		t.Errorf("default resolved = %q", got)
	}

	out, ok := state.Output(1)
	if !ok || len(out.Lines) != 2 || out.Lines[0].Side != resolve.Ours {
		t.Errorf("default provenance = %+v", out)
	}
}

func TestApplySide(t *testing.T) {
	state := newTestState(t, twoConflicts, 10)

	t.Run("theirs on first conflict", func(t *testing.T) {
		if err := state.ApplySide(0, resolve.Theirs); err != nil {
			t.Fatalf("ApplySide failed: %v", err)
		}
		if got := resolvedText(t, state, 0); got != "theirs\n" {
			t.Errorf("resolved = %q", got)
		}
		if state.Kind(0) != resolve.WholeTheirs {
			t.Errorf("kind = %v", state.Kind(0))
		}
	})

	t.Run("diff3 base never leaks into output", func(t *testing.T) {
		if err := state.ApplySide(0, resolve.Ours); err != nil {
			t.Fatalf("ApplySide failed: %v", err)
		}
		want := "line1\nours\nline2\nours2a\nours2b\nline3\n"
		if got := string(state.Preview()); got != want {
			t.Errorf("Preview = %q, want %q", got, want)
		}
	})

	t.Run("invalid conflict index", func(t *testing.T) {
		err := state.ApplySide(2, resolve.Ours)
		if !errors.Is(err, ErrConflictIndex) {
			t.Errorf("expected ErrConflictIndex, got %v", err)
		}
	})

	t.Run("negative conflict index", func(t *testing.T) {
		if err := state.ApplySide(-1, resolve.Ours); err == nil {
			t.Error("expected error for negative index")
		}
	})
}

func TestApplySideAll(t *testing.T) {
	state := newTestState(t, twoConflicts, 10)

	if err := state.ApplySideAll(resolve.Theirs); err != nil {
		t.Fatalf("ApplySideAll failed: %v", err)
	}

	want := "line1\ntheirs\nline2\ntheirs2\nline3\n"
	if got := string(state.Preview()); got != want {
		t.Errorf("Preview = %q, want %q", got, want)
	}
	if state.UndoDepth() != 1 {
		t.Errorf("ApplySideAll should be one undo step, depth = %d", state.UndoDepth())
	}
	if state.UnresolvedCount() != 0 {
		t.Errorf("UnresolvedCount = %d", state.UnresolvedCount())
	}
}

func TestToggleLineFollowsClickOrder(t *testing.T) {
	state := newTestState(t, twoConflicts, 10)

	if err := state.ToggleLine(1, resolve.Theirs, 0); err != nil {
		t.Fatalf("ToggleLine failed: %v", err)
	}
	if err := state.ToggleLine(1, resolve.Ours, 1); err != nil {
		t.Fatalf("ToggleLine failed: %v", err)
	}
	if err := state.ToggleLine(1, resolve.Ours, 0); err != nil {
		t.Fatalf("ToggleLine failed: %v", err)
	}

	if got := resolvedText(t, state, 1); got != "theirs2\nours2b\nours2a\n" {
		t.Errorf("resolved = %q", got)
	}
	if state.Kind(1) != resolve.Custom {
		t.Errorf("kind = %v, want custom", state.Kind(1))
	}
	if !state.Selected(1, resolve.Ours, 1) {
		t.Error("ours line 1 should be selected")
	}

	out, _ := state.Output(1)
	sides := []resolve.Side{resolve.Theirs, resolve.Ours, resolve.Ours}
	for i, line := range out.Lines {
		if line.Side != sides[i] {
			t.Errorf("line %d side = %v, want %v", i, line.Side, sides[i])
		}
	}

	// Toggling again removes it.
	if err := state.ToggleLine(1, resolve.Theirs, 0); err != nil {
		t.Fatalf("ToggleLine failed: %v", err)
	}
	if got := resolvedText(t, state, 1); got != "ours2b\nours2a\n" {
		t.Errorf("resolved after untoggle = %q", got)
	}
}

func TestToggleLineToEmpty(t *testing.T) {
	state := newTestState(t, oneConflict, 10)

	if err := state.ToggleLine(0, resolve.Ours, 0); err != nil {
		t.Fatalf("ToggleLine failed: %v", err)
	}
	if err := state.ToggleLine(0, resolve.Ours, 0); err != nil {
		t.Fatalf("ToggleLine failed: %v", err)
	}

	if got := string(state.Preview()); got != "line1\nline2\n" {
		t.Errorf("empty selection should drop the block, got %q", got)
	}
	if state.Kind(0) != resolve.Unresolved {
		t.Errorf("kind = %v", state.Kind(0))
	}
}

func TestApplyEmptySideIsADecision(t *testing.T) {
	state := newTestState(t, "<<<<<<< ours\n=======\nb\n>>>>>>> theirs\n", 10)

	if err := state.ApplySide(0, resolve.Ours); err != nil {
		t.Fatalf("ApplySide failed: %v", err)
	}
	if got := state.Kind(0); got != resolve.WholeOurs {
		t.Fatalf("kind = %v, want ours", got)
	}
	if n := state.UnresolvedCount(); n != 0 {
		t.Fatalf("UnresolvedCount = %d, want 0", n)
	}
	if got := string(state.Preview()); got != "" {
		t.Fatalf("Preview = %q, want empty", got)
	}

	// Emptying the stack by hand is not a decision.
	if err := state.ToggleLine(0, resolve.Theirs, 0); err != nil {
		t.Fatalf("ToggleLine failed: %v", err)
	}
	if err := state.ToggleLine(0, resolve.Theirs, 0); err != nil {
		t.Fatalf("ToggleLine failed: %v", err)
	}
	if got := state.Kind(0); got != resolve.Unresolved {
		t.Fatalf("kind after toggling off = %v, want unresolved", got)
	}

	if err := state.Undo(); err != nil {
		t.Fatalf("Undo failed: %v", err)
	}
	if err := state.Undo(); err != nil {
		t.Fatalf("Undo failed: %v", err)
	}
	if got := state.Kind(0); got != resolve.WholeOurs {
		t.Fatalf("kind after undo = %v, want ours", got)
	}
}

func TestApplySideAllEmptyTheirs(t *testing.T) {
	state := newTestState(t, "x\n<<<<<<< ours\na\n=======\n>>>>>>> theirs\n", 10)

	if err := state.ApplySideAll(resolve.Theirs); err != nil {
		t.Fatalf("ApplySideAll failed: %v", err)
	}
	if got := state.Kind(0); got != resolve.WholeTheirs {
		t.Fatalf("kind = %v, want theirs", got)
	}
	if got := string(state.Preview()); got != "x\n" {
		t.Fatalf("Preview = %q, want %q", got, "x\n")
	}
}

func TestToggleLineBounds(t *testing.T) {
	state := newTestState(t, oneConflict, 10)

	err := state.ToggleLine(0, resolve.Theirs, 1)
	if !errors.Is(err, ErrLineIndex) {
		t.Fatalf("expected ErrLineIndex, got %v", err)
	}
	if state.UndoDepth() != 0 {
		t.Error("rejected toggle must not push undo history")
	}
}

func TestReset(t *testing.T) {
	state := newTestState(t, twoConflicts, 10)

	if err := state.ApplySide(1, resolve.Theirs); err != nil {
		t.Fatalf("ApplySide failed: %v", err)
	}
	if err := state.Reset(1); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	if got := resolvedText(t, state, 1); got != "ours2a\nours2b\n" {
		t.Errorf("resolved = %q", got)
	}
	if state.Kind(1) != resolve.WholeOurs {
		t.Errorf("kind after reset = %v, want ours", state.Kind(1))
	}
}

func TestSetManual(t *testing.T) {
	state := newTestState(t, oneConflict, 10)

	if err := state.SetManual(0, "typed\r\nby hand"); err != nil {
		t.Fatalf("SetManual failed: %v", err)
	}
	if got := string(state.Preview()); got != "line1\ntyped\nby hand\nline2\n" {
		t.Errorf("Preview = %q", got)
	}
	if state.Kind(0) != resolve.Manual {
		t.Errorf("kind = %v", state.Kind(0))
	}
	if state.Selected(0, resolve.Ours, 0) {
		t.Error("manual conflicts report no selected lines")
	}

	// A toggle after manual edit starts a fresh selection.
	if err := state.ToggleLine(0, resolve.Theirs, 0); err != nil {
		t.Fatalf("ToggleLine failed: %v", err)
	}
	if got := resolvedText(t, state, 0); got != "theirs\n" {
		t.Errorf("resolved = %q", got)
	}
}

func TestSetDocumentManual(t *testing.T) {
	res := markers.Parse([]byte("<<<<<<< HEAD\r\nbroken\r\n"))
	if res.Status != markers.StatusMalformed {
		t.Fatalf("status = %v", res.Status)
	}
	state, err := NewState(res.Document, 10)
	if err != nil {
		t.Fatalf("NewState failed: %v", err)
	}

	state.SetDocumentManual("fixed\n")
	if got := string(state.Preview()); got != "fixed\r\n" {
		t.Errorf("Preview = %q", got)
	}
	if !state.Manual() {
		t.Error("Manual() = false")
	}
	if err := state.ApplySideAll(resolve.Ours); !errors.Is(err, ErrDocumentManual) {
		t.Errorf("expected ErrDocumentManual, got %v", err)
	}

	if err := state.Undo(); err != nil {
		t.Fatalf("Undo failed: %v", err)
	}
	if state.Manual() {
		t.Error("undo should drop manual override")
	}
}

func TestCRLFNoOpResolution(t *testing.T) {
	input := "a\r\n<<<<<<< HEAD\r\nb\r\n=======\r\nc\r\n>>>>>>> x\r\nd\r\n"
	state := newTestState(t, input, 10)

	if err := state.Reset(0); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if got := string(state.Preview()); got != "a\r\nb\r\nd\r\n" {
		t.Errorf("Preview = %q", got)
	}
}

func TestEndToEndTheirs(t *testing.T) {
	state := newTestState(t, "a\n<<<<<<< LOCAL\nb\n=======\nc\nd\n>>>>>>> ORIGIN\ne\n", 10)

	if err := state.ApplySide(0, resolve.Theirs); err != nil {
		t.Fatalf("ApplySide failed: %v", err)
	}
	if got := string(state.Preview()); got != "a\nc\nd\ne\n" {
		t.Errorf("Preview = %q", got)
	}
}

func TestUndo(t *testing.T) {
	state := newTestState(t, oneConflict, 10)

	t.Run("no undo history initially", func(t *testing.T) {
		if err := state.Undo(); !errors.Is(err, ErrNoUndo) {
			t.Errorf("expected ErrNoUndo, got %v", err)
		}
	})

	t.Run("undo after single apply", func(t *testing.T) {
		if err := state.ApplySide(0, resolve.Theirs); err != nil {
			t.Fatalf("ApplySide failed: %v", err)
		}
		if err := state.Undo(); err != nil {
			t.Fatalf("Undo failed: %v", err)
		}
		if got := resolvedText(t, state, 0); got != "ours\n" {
			t.Errorf("resolved after undo = %q", got)
		}
		if state.Kind(0) != resolve.Unresolved {
			t.Errorf("kind after undo = %v", state.Kind(0))
		}
	})

	t.Run("undo restores selection order", func(t *testing.T) {
		if err := state.ToggleLine(0, resolve.Theirs, 0); err != nil {
			t.Fatalf("ToggleLine failed: %v", err)
		}
		if err := state.ToggleLine(0, resolve.Ours, 0); err != nil {
			t.Fatalf("ToggleLine failed: %v", err)
		}
		if err := state.ToggleLine(0, resolve.Theirs, 0); err != nil {
			t.Fatalf("ToggleLine failed: %v", err)
		}
		if err := state.Undo(); err != nil {
			t.Fatalf("Undo failed: %v", err)
		}
		if got := resolvedText(t, state, 0); got != "theirs\nours\n" {
			t.Errorf("resolved after undo = %q", got)
		}
	})
}

func TestRedo(t *testing.T) {
	state := newTestState(t, oneConflict, 10)

	t.Run("no redo history initially", func(t *testing.T) {
		if err := state.Redo(); !errors.Is(err, ErrNoRedo) {
			t.Errorf("expected ErrNoRedo, got %v", err)
		}
	})

	t.Run("redo after undo", func(t *testing.T) {
		if err := state.ApplySide(0, resolve.Theirs); err != nil {
			t.Fatalf("ApplySide failed: %v", err)
		}
		if err := state.Undo(); err != nil {
			t.Fatalf("Undo failed: %v", err)
		}
		if err := state.Redo(); err != nil {
			t.Fatalf("Redo failed: %v", err)
		}
		if got := resolvedText(t, state, 0); got != "theirs\n" {
			t.Errorf("resolved after redo = %q", got)
		}
	})

	t.Run("new mutation clears redo history", func(t *testing.T) {
		if err := state.Undo(); err != nil {
			t.Fatalf("Undo failed: %v", err)
		}
		if err := state.Reset(0); err != nil {
			t.Fatalf("Reset failed: %v", err)
		}
		if err := state.Redo(); err == nil {
			t.Error("expected redo error after new mutation")
		}
	})
}

func TestUndoStackLimit(t *testing.T) {
	maxUndo := 2
	state := newTestState(t, oneConflict, maxUndo)

	if err := state.ApplySide(0, resolve.Ours); err != nil {
		t.Fatalf("Apply 1 failed: %v", err)
	}
	if err := state.ApplySide(0, resolve.Theirs); err != nil {
		t.Fatalf("Apply 2 failed: %v", err)
	}
	if err := state.ToggleLine(0, resolve.Ours, 0); err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}

	if state.UndoDepth() != maxUndo {
		t.Errorf("expected undo depth %d, got %d", maxUndo, state.UndoDepth())
	}

	if err := state.Undo(); err != nil {
		t.Fatalf("Undo 1 failed: %v", err)
	}
	if state.Kind(0) != resolve.WholeTheirs {
		t.Errorf("expected theirs, got %v", state.Kind(0))
	}

	if err := state.Undo(); err != nil {
		t.Fatalf("Undo 2 failed: %v", err)
	}
	if state.Kind(0) != resolve.WholeOurs {
		t.Errorf("expected ours, got %v", state.Kind(0))
	}

	if err := state.Undo(); err == nil {
		t.Error("expected error - first state should have been trimmed")
	}
}

func TestDocumentIsACopy(t *testing.T) {
	state := newTestState(t, oneConflict, 10)

	doc := state.Document()
	doc.SetResolved(0, "mutated\n")

	if got := resolvedText(t, state, 0); got != "ours\n" {
		t.Errorf("mutating Document() leaked into state: %q", got)
	}
}

func TestUndoDepth(t *testing.T) {
	state := newTestState(t, oneConflict, 5)

	if state.UndoDepth() != 0 || state.RedoDepth() != 0 {
		t.Fatalf("initial depths = %d/%d", state.UndoDepth(), state.RedoDepth())
	}

	if err := state.ApplySide(0, resolve.Ours); err != nil {
		t.Fatalf("ApplySide failed: %v", err)
	}
	if err := state.ApplySide(0, resolve.Theirs); err != nil {
		t.Fatalf("ApplySide failed: %v", err)
	}
	if state.UndoDepth() != 2 {
		t.Errorf("undo depth after 2 applies should be 2, got %d", state.UndoDepth())
	}

	if err := state.Undo(); err != nil {
		t.Fatalf("Undo failed: %v", err)
	}
	if state.UndoDepth() != 1 || state.RedoDepth() != 1 {
		t.Errorf("depths after undo = %d/%d", state.UndoDepth(), state.RedoDepth())
	}

	if err := state.Redo(); err != nil {
		t.Fatalf("Redo failed: %v", err)
	}
	if state.UndoDepth() != 2 || state.RedoDepth() != 0 {
		t.Errorf("depths after redo = %d/%d", state.UndoDepth(), state.RedoDepth())
	}
}
