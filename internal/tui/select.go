package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
)

// FileCandidate is one conflicted path offered by SelectFile.
type FileCandidate struct {
	Path     string
	Resolved bool
	// Status describes the conflict, e.g. "both modified".
	Status string
}

func (c FileCandidate) Title() string       { return c.Path }
func (c FileCandidate) Description() string { return c.Status }
func (c FileCandidate) FilterValue() string { return c.Path }

var ErrSelectorQuit = errors.New("selector quit")

// IsQuit reports whether err only means the user left a TUI.
func IsQuit(err error) bool {
	return errors.Is(err, ErrSelectorQuit) || errors.Is(err, ErrBackToSelector)
}

const stateColumn = len("unresolved")

type candidateDelegate struct{}

func (candidateDelegate) Height() int                         { return 1 }
func (candidateDelegate) Spacing() int                        { return 0 }
func (candidateDelegate) Update(tea.Msg, *list.Model) tea.Cmd { return nil }

func (candidateDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	c, ok := item.(FileCandidate)
	if !ok {
		return
	}
	prefix := "  "
	if index == m.Index() {
		prefix = "> "
	}
	state := unresolvedLabelStyle.Render(fmt.Sprintf("%*s", stateColumn, "unresolved"))
	if c.Resolved {
		state = resolvedLabelStyle.Render(fmt.Sprintf("%*s", stateColumn, "resolved"))
	}
	row := prefix + state + "  " + c.Path
	if c.Status != "" {
		row += "  " + dimStyle.Render("("+c.Status+")")
	}
	fmt.Fprint(w, row)
}

type selectKeys struct {
	Open      key.Binding
	NextOpen  key.Binding
	Quit      key.Binding
	ForceQuit key.Binding
}

func defaultSelectKeys() selectKeys {
	return selectKeys{
		Open:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		NextOpen:  key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next unresolved")),
		Quit:      key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
		ForceQuit: key.NewBinding(key.WithKeys("ctrl+c")),
	}
}

type selectModel struct {
	list   list.Model
	keys   selectKeys
	chosen string
	err    error
}

// sortCandidates puts unresolved files first, each group by path.
func sortCandidates(candidates []FileCandidate) []FileCandidate {
	out := append([]FileCandidate(nil), candidates...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Resolved != out[j].Resolved {
			return !out[i].Resolved
		}
		return out[i].Path < out[j].Path
	})
	return out
}

func selectTitle(candidates []FileCandidate) string {
	done := 0
	for _, c := range candidates {
		if c.Resolved {
			done++
		}
	}
	return fmt.Sprintf("Conflicted files (%d of %d resolved)", done, len(candidates))
}

func newSelectModel(candidates []FileCandidate) selectModel {
	sorted := sortCandidates(candidates)
	items := make([]list.Item, len(sorted))
	for i, c := range sorted {
		items[i] = c
	}

	l := list.New(items, candidateDelegate{}, 0, 0)
	l.Title = selectTitle(sorted)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetShowPagination(false)
	l.Styles.Title = titleStyle
	return selectModel{list: l, keys: defaultSelectKeys()}
}

// SelectFile shows the conflicted files and returns the chosen
// repo-relative path.
func SelectFile(ctx context.Context, candidates []FileCandidate, theme string) (string, error) {
	if err := ensureThemeLoaded(theme); err != nil {
		return "", err
	}

	program := tea.NewProgram(newSelectModel(candidates), tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := program.Run()
	if err != nil {
		return "", fmt.Errorf("file selector: %w", err)
	}
	m, ok := final.(selectModel)
	if !ok {
		return "", fmt.Errorf("file selector returned %T", final)
	}
	if m.err != nil {
		return "", m.err
	}
	if m.chosen == "" {
		return "", ErrSelectorQuit
	}
	return m.chosen, nil
}

func (m selectModel) Init() tea.Cmd {
	return nil
}

func (m selectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.ForceQuit) {
			m.err = ErrSelectorQuit
			return m, tea.Quit
		}
		// Keys belong to the filter input while it is open.
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.err = ErrSelectorQuit
			return m, tea.Quit
		case key.Matches(msg, m.keys.Open):
			if c, ok := m.list.SelectedItem().(FileCandidate); ok {
				m.chosen = c.Path
				return m, tea.Quit
			}
		case key.Matches(msg, m.keys.NextOpen):
			m.selectNextUnresolved()
			return m, nil
		}
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, max(msg.Height, 5)-2)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// selectNextUnresolved moves to the next unresolved file after the
// cursor, wrapping around.
func (m *selectModel) selectNextUnresolved() {
	items := m.list.VisibleItems()
	if len(items) == 0 {
		return
	}
	start := m.list.Index()
	for step := 1; step <= len(items); step++ {
		i := (start + step) % len(items)
		if c, ok := items[i].(FileCandidate); ok && !c.Resolved {
			m.list.Select(i)
			return
		}
	}
}

func (m selectModel) View() string {
	help := "up/down: move  enter: open  n: next unresolved  /: filter  q: quit"
	return m.list.View() + "\n" + footerStyle.Render(help)
}
