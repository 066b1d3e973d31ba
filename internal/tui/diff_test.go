package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/chojs23/mend/internal/linediff"
	"github.com/chojs23/mend/internal/session"
)

func updateDiff(t *testing.T, m diffModel, msg tea.Msg) (diffModel, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	next, ok := updated.(diffModel)
	if !ok {
		t.Fatalf("Update returned %T", updated)
	}
	return next, cmd
}

// loadedDiff shows "a b c" against "a B c d": a modified row at 1 and an
// added row at 3, two hunks.
func loadedDiff(t *testing.T, repo *fakeRepo) diffModel {
	t.Helper()
	repo.base = "a\nb\nc\n"
	repo.modified = "a\nB\nc\nd\n"

	sess := session.New(repo, repo, repo, nil, nil, session.Options{})
	m := newDiffModel(context.Background(), DiffOptions{
		Path:    "file.txt",
		Session: sess,
		Source:  repo,
	})
	m, _ = updateDiff(t, m, m.loadCmd()())
	m, _ = updateDiff(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})
	if m.view == nil {
		t.Fatalf("diff view not loaded")
	}
	return m
}

func TestDiffHunkNavigation(t *testing.T) {
	m := loadedDiff(t, newFakeRepo(""))
	if len(m.view.Hunks) != 2 {
		t.Fatalf("hunks = %d, want 2", len(m.view.Hunks))
	}

	m, _ = updateDiff(t, m, runeKey('n'))
	if m.cursor != 1 {
		t.Fatalf("cursor = %d, want 1", m.cursor)
	}
	m, _ = updateDiff(t, m, runeKey('n'))
	if m.cursor != 3 {
		t.Fatalf("cursor = %d, want 3", m.cursor)
	}
	m, _ = updateDiff(t, m, runeKey('n'))
	if m.cursor != 3 {
		t.Fatalf("cursor = %d, want to stay on the last hunk", m.cursor)
	}
	m, _ = updateDiff(t, m, runeKey('p'))
	if m.cursor != 1 {
		t.Fatalf("cursor = %d, want 1", m.cursor)
	}
	if !strings.Contains(m.headerText(), "hunk 1/2") {
		t.Fatalf("header = %q", m.headerText())
	}
}

func TestDiffStageLinePassesTarget(t *testing.T) {
	repo := newFakeRepo("")
	m := loadedDiff(t, repo)

	m, _ = updateDiff(t, m, runeKey('j'))
	m, cmd := updateDiff(t, m, runeKey('s'))
	if cmd == nil || !m.busy {
		t.Fatalf("s should start staging")
	}
	m, cmd = updateDiff(t, m, cmd())
	if cmd == nil {
		t.Fatalf("successful stage should reload the diff")
	}
	want := linediff.StageTarget{OldLineNumber: 2, NewLineNumber: 2}
	if len(repo.staged) != 1 || repo.staged[0] != want {
		t.Fatalf("staged = %+v, want %+v", repo.staged, want)
	}
	if !strings.Contains(m.toast.message, "Staged") {
		t.Fatalf("toast = %q", m.toast.message)
	}
}

func TestDiffStageNothingOnPlaceholder(t *testing.T) {
	repo := newFakeRepo("")
	m := loadedDiff(t, repo)

	m.cursor = 3
	m, _ = updateDiff(t, m, runeKey('h'))
	m, _ = updateDiff(t, m, runeKey('s'))
	if m.busy || len(repo.staged) != 0 {
		t.Fatalf("an empty cell has nothing to stage")
	}
	if !m.toast.warn {
		t.Fatalf("expected a warning toast")
	}
}

func TestDiffStageFailureShowsToast(t *testing.T) {
	repo := newFakeRepo("")
	repo.stageErr = errors.New("patch does not apply")
	m := loadedDiff(t, repo)

	m.cursor = 3
	m, cmd := updateDiff(t, m, runeKey('s'))
	m, _ = updateDiff(t, m, cmd())
	if m.busy {
		t.Fatalf("failed stage should release the view")
	}
	if !strings.Contains(m.toast.message, "patch does not apply") {
		t.Fatalf("toast = %q", m.toast.message)
	}
}

func TestDiffInlineKeepsPosition(t *testing.T) {
	repo := newFakeRepo("")
	m := loadedDiff(t, repo)

	m.cursor = 3
	m, _ = updateDiff(t, m, runeKey('i'))
	if !m.inline || m.cursor != 4 {
		t.Fatalf("inline cursor = %d, want 4 (the added d row)", m.cursor)
	}
	m, _ = updateDiff(t, m, runeKey('i'))
	if m.inline || m.cursor != 3 {
		t.Fatalf("split cursor = %d, want 3", m.cursor)
	}

	m, _ = updateDiff(t, m, runeKey('i'))
	m.cursor = 1
	m, cmd := updateDiff(t, m, runeKey('s'))
	_, _ = updateDiff(t, m, cmd())
	want := linediff.StageTarget{OldLineNumber: 2, NewLineNumber: 2}
	if len(repo.staged) != 1 || repo.staged[0] != want {
		t.Fatalf("inline removed row staged %+v, want %+v", repo.staged, want)
	}
}

func TestDiffUnstageNeedsStagedView(t *testing.T) {
	repo := newFakeRepo("")
	m := loadedDiff(t, repo)
	m.cursor = 1

	m, _ = updateDiff(t, m, runeKey('u'))
	if len(repo.unstaged) != 0 || !m.toast.warn {
		t.Fatalf("u in the unstaged view should only warn")
	}

	m, cmd := updateDiff(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if !m.staged || !m.busy || cmd == nil {
		t.Fatalf("tab should switch to the staged view and reload")
	}
	m, _ = updateDiff(t, m, cmd())
	if m.view == nil || !m.view.Staged {
		t.Fatalf("staged view not installed")
	}

	m, _ = updateDiff(t, m, runeKey('n'))
	m, cmd = updateDiff(t, m, runeKey('u'))
	_, _ = updateDiff(t, m, cmd())
	if len(repo.unstaged) != 1 {
		t.Fatalf("unstaged = %+v, want one target", repo.unstaged)
	}
}

func TestDiffIgnoresStaleLoad(t *testing.T) {
	m := loadedDiff(t, newFakeRepo(""))
	before := m.view

	stale := session.NewDiffView("file.txt", true, "x\n", "y\n")
	m, _ = updateDiff(t, m, diffLoadedMsg{view: stale})
	if m.view != before {
		t.Fatalf("a load for the other view must be ignored")
	}
}

func TestDiffViewTitles(t *testing.T) {
	m := loadedDiff(t, newFakeRepo(""))
	view := m.View()
	for _, want := range []string{"file.txt", "unstaged", "INDEX", "WORKING TREE", "+2 -1"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q", want)
		}
	}
}
