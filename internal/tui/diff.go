package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/chojs23/mend/internal/linediff"
	"github.com/chojs23/mend/internal/log"
	"github.com/chojs23/mend/internal/session"
)

// DiffOptions configures the diff viewer.
type DiffOptions struct {
	Path    string
	Session *session.Session
	Source  session.DiffSource
	Staged  bool
	Inline  bool
	Theme   string
}

type diffModel struct {
	ctx  context.Context
	opts DiffOptions
	keys diffKeys
	help help.Model

	view   *session.DiffView
	staged bool
	inline bool
	busy   bool

	// cursor indexes Result rows in split mode and Inline rows otherwise.
	cursor int
	side   linediff.Side

	viewportLeft   viewport.Model
	viewportRight  viewport.Model
	viewportInline viewport.Model
	ready          bool
	width          int
	height         int

	toast toast

	quitting bool
	err      error
}

type diffLoadedMsg struct {
	view *session.DiffView
	err  error
}

type stageDoneMsg struct {
	unstage bool
	err     error
}

// RunDiff opens the diff viewer for one path.
func RunDiff(ctx context.Context, opts DiffOptions) error {
	if err := ensureThemeLoaded(opts.Theme); err != nil {
		return err
	}

	p := tea.NewProgram(newDiffModel(ctx, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	if final, ok := finalModel.(diffModel); ok {
		return final.err
	}
	return nil
}

func newDiffModel(ctx context.Context, opts DiffOptions) diffModel {
	return diffModel{
		ctx:            ctx,
		opts:           opts,
		keys:           defaultDiffKeys(),
		help:           help.New(),
		staged:         opts.Staged,
		inline:         opts.Inline,
		side:           linediff.SideRight,
		viewportLeft:   viewport.New(0, 0),
		viewportRight:  viewport.New(0, 0),
		viewportInline: viewport.New(0, 0),
	}
}

func (m diffModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m diffModel) loadCmd() tea.Cmd {
	ctx, src, path, staged := m.ctx, m.opts.Source, m.opts.Path, m.staged
	return func() tea.Msg {
		view, err := session.LoadDiff(ctx, src, path, staged)
		return diffLoadedMsg{view: view, err: err}
	}
}

func (m diffModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case diffLoadedMsg:
		m.busy = false
		if msg.err != nil {
			cmd := m.toast.show(msg.err.Error(), true)
			return m, cmd
		}
		// A reload after staging keeps the cursor near where it was.
		if msg.view.Staged != m.staged {
			return m, nil
		}
		m.view = msg.view
		m.cursor = min(m.cursor, max(m.rowCount()-1, 0))
		m.refresh()
		return m, nil

	case stageDoneMsg:
		if msg.err != nil {
			m.busy = false
			log.ErrorErr(log.CatUI, "line stage failed", msg.err, "path", m.opts.Path)
			cmd := m.toast.show(msg.err.Error(), true)
			return m, cmd
		}
		text := "Staged line"
		if msg.unstage {
			text = "Unstaged line"
		}
		cmd := tea.Batch(m.toast.show(text, false), m.loadCmd())
		return m, cmd

	case toastExpiredMsg:
		m.toast.expire(msg.id)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.layout()
		m.ready = true
		m.refresh()
	}

	var cmd tea.Cmd
	var cmds []tea.Cmd
	m.viewportLeft, cmd = m.viewportLeft.Update(msg)
	cmds = append(cmds, cmd)
	m.viewportRight, cmd = m.viewportRight.Update(msg)
	cmds = append(cmds, cmd)
	m.viewportInline, cmd = m.viewportInline.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m *diffModel) layout() {
	contentHeight := max(m.height-2-3-4, 1)
	m.viewportLeft.Width = max((m.width-8)/2, 1)
	m.viewportRight.Width = m.viewportLeft.Width
	m.viewportInline.Width = max(m.width-4, 1)
	for _, vp := range []*viewport.Model{&m.viewportLeft, &m.viewportRight, &m.viewportInline} {
		vp.Height = contentHeight
	}
}

func (m diffModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}
	if m.view == nil || m.busy {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < m.rowCount()-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Left):
		m.side = linediff.SideLeft
	case key.Matches(msg, m.keys.Right):
		m.side = linediff.SideRight
	case key.Matches(msg, m.keys.NextHunk):
		if h, ok := linediff.NextHunk(m.view.Hunks, m.sourceIndex()); ok {
			m.cursor = m.rowForSource(h.StartIndex)
		}
	case key.Matches(msg, m.keys.PrevHunk):
		index := m.sourceIndex()
		if h, ok := linediff.HunkAt(m.view.Hunks, index); ok {
			index = h.StartIndex
		}
		if h, ok := linediff.PrevHunk(m.view.Hunks, index); ok {
			m.cursor = m.rowForSource(h.StartIndex)
		}
	case key.Matches(msg, m.keys.Stage):
		if m.staged {
			cmd := m.toast.show("Line is already staged; u unstages it", true)
			return m, cmd
		}
		cmd := m.stageCmd(false)
		return m, cmd
	case key.Matches(msg, m.keys.Unstage):
		if !m.staged {
			cmd := m.toast.show("Switch to the staged diff (tab) to unstage", true)
			return m, cmd
		}
		cmd := m.stageCmd(true)
		return m, cmd
	case key.Matches(msg, m.keys.Staged):
		m.staged = !m.staged
		m.cursor = 0
		m.busy = true
		return m, m.loadCmd()
	case key.Matches(msg, m.keys.Inline):
		source := m.sourceIndex()
		m.inline = !m.inline
		m.cursor = m.rowForSource(source)
	case key.Matches(msg, m.keys.Reload):
		m.busy = true
		return m, m.loadCmd()
	}

	m.refresh()
	return m, nil
}

func (m diffModel) rowCount() int {
	if m.view == nil {
		return 0
	}
	if m.inline {
		return len(m.view.Inline)
	}
	return m.view.Result.Len()
}

// sourceIndex is the Result row under the cursor.
func (m diffModel) sourceIndex() int {
	if !m.inline {
		return m.cursor
	}
	if m.cursor >= 0 && m.cursor < len(m.view.Inline) {
		return m.view.Inline[m.cursor].SourceIndex
	}
	return 0
}

// rowForSource maps a Result row to the cursor row of the current layout.
func (m diffModel) rowForSource(index int) int {
	if !m.inline {
		return index
	}
	for i, row := range m.view.Inline {
		if row.SourceIndex >= index {
			return i
		}
	}
	return max(len(m.view.Inline)-1, 0)
}

func (m *diffModel) target() (linediff.StageTarget, bool) {
	if m.inline {
		return m.view.InlineTargetAt(m.cursor)
	}
	return m.view.TargetAt(m.cursor, m.side)
}

func (m *diffModel) stageCmd(unstage bool) tea.Cmd {
	target, ok := m.target()
	if !ok {
		return m.toast.show("Nothing to stage on this line", true)
	}
	if m.opts.Session == nil {
		return m.toast.show(session.ErrNoStager.Error(), true)
	}

	m.busy = true
	ctx, sess, path := m.ctx, m.opts.Session, m.opts.Path
	return func() tea.Msg {
		var err error
		if unstage {
			err = sess.UnstageLine(ctx, path, target)
		} else {
			err = sess.StageLine(ctx, path, target)
		}
		return stageDoneMsg{unstage: unstage, err: err}
	}
}

func (m *diffModel) refresh() {
	if m.view == nil || !m.ready {
		return
	}
	if m.inline {
		lines := buildInlineLines(m.view.Inline, m.view.Hunks, m.cursor)
		m.viewportInline.SetContent(renderLines(lines))
		keepInView(&m.viewportInline, m.cursor)
		return
	}
	left := buildDiffColumn(m.view.Result, linediff.SideLeft, m.cursor, m.side == linediff.SideLeft)
	right := buildDiffColumn(m.view.Result, linediff.SideRight, m.cursor, m.side == linediff.SideRight)
	m.viewportLeft.SetContent(renderLines(left))
	m.viewportRight.SetContent(renderLines(right))
	keepInView(&m.viewportLeft, m.cursor)
	keepInView(&m.viewportRight, m.cursor)
}

func (m diffModel) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}
	if m.quitting {
		return ""
	}
	if m.view == nil {
		return fmt.Sprintf("\n  Loading diff for %s...\n%s", m.opts.Path, m.toast.view(m.width))
	}

	header := headerStyle.Width(m.width).Render(m.headerText())

	var body string
	if m.inline {
		body = focusedPaneStyle.Render(m.viewportInline.View())
	} else {
		leftTitle, rightTitle := "INDEX", "WORKING TREE"
		if m.staged {
			leftTitle, rightTitle = "HEAD", "INDEX"
		}
		leftStyle, rightStyle := sidePaneStyle, focusedPaneStyle
		if m.side == linediff.SideLeft {
			leftStyle, rightStyle = focusedPaneStyle, sidePaneStyle
		}
		body = lipgloss.JoinHorizontal(lipgloss.Top,
			leftStyle.Render(titleStyle.Render(leftTitle)+"\n"+m.viewportLeft.View()),
			rightStyle.Render(titleStyle.Render(rightTitle)+"\n"+m.viewportRight.View()),
		)
	}

	footer := lipgloss.JoinVertical(lipgloss.Left,
		footerStyle.Width(m.width).Render(m.help.View(m.keys)),
		m.toast.view(m.width),
	)
	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

func (m diffModel) headerText() string {
	mode := "unstaged"
	if m.staged {
		mode = "staged"
	}
	added, removed := m.view.Result.Stats()
	text := fmt.Sprintf("%s - %s | +%d -%d", m.opts.Path, mode, added, removed)

	if len(m.view.Hunks) == 0 {
		return text + " | no changes"
	}
	current := 0
	for i, h := range m.view.Hunks {
		if h.StartIndex <= m.sourceIndex() {
			current = i + 1
		}
	}
	return text + fmt.Sprintf(" | hunk %d/%d", current, len(m.view.Hunks))
}

