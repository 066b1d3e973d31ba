package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/chojs23/mend/internal/engine"
	"github.com/chojs23/mend/internal/log"
	"github.com/chojs23/mend/internal/resolve"
	"github.com/chojs23/mend/internal/session"
)

const (
	toastDuration = 3 * time.Second
	// Change events this soon after our own save are our own write.
	selfWriteGrace = time.Second
)

var ErrBackToSelector = errors.New("back to selector")

// Options configures one resolver run.
type Options struct {
	Path    string
	Session *session.Session
	// Notifier must be the one the session was built with so its
	// warnings show up as toasts.
	Notifier  *Notifier
	Clipboard session.Clipboard
	// Changes delivers debounced on-disk changes of Path. Nil disables
	// automatic reloads.
	Changes <-chan struct{}
	Theme   string
}

// Result reports how a resolver run ended.
type Result struct {
	Saved      bool
	Unresolved int
}

type model struct {
	ctx  context.Context
	opts Options
	keys resolverKeys
	help help.Model

	loaded *session.Loaded
	state  *engine.State

	loading        bool
	saving         bool
	confirmPending bool
	saved          bool
	lastSave       time.Time

	current       int
	cursor        int
	focus         resolve.Side
	pendingScroll bool

	viewportOurs   viewport.Model
	viewportResult viewport.Model
	viewportTheirs viewport.Model
	ready          bool
	width          int
	height         int

	toast toast

	quitting bool
	err      error
}

type loadedMsg struct {
	loaded *session.Loaded
	err    error
}

type savedMsg struct{ err error }

type copiedMsg struct{ err error }

// editorFinishedMsg carries the edit buffer back. conflict is -1 when the
// whole document was edited.
type editorFinishedMsg struct {
	path     string
	conflict int
	err      error
}

type fileChangedMsg struct{}

// Run opens the resolver for opts.Path and blocks until the user leaves.
func Run(ctx context.Context, opts Options) (Result, error) {
	if err := ensureThemeLoaded(opts.Theme); err != nil {
		return Result{}, err
	}

	m := newModel(ctx, opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	finalModel, err := p.Run()
	if err != nil {
		return Result{}, fmt.Errorf("TUI error: %w", err)
	}

	final, ok := finalModel.(model)
	if !ok {
		return Result{}, fmt.Errorf("resolver returned unexpected model")
	}
	res := Result{Saved: final.saved}
	if final.state != nil {
		res.Unresolved = final.state.UnresolvedCount()
	}
	return res, final.err
}

func newModel(ctx context.Context, opts Options) model {
	if opts.Notifier == nil {
		opts.Notifier = NewNotifier()
	}
	return model{
		ctx:            ctx,
		opts:           opts,
		keys:           defaultResolverKeys(),
		help:           help.New(),
		loading:        true,
		pendingScroll:  true,
		viewportOurs:   viewport.New(0, 0),
		viewportResult: viewport.New(0, 0),
		viewportTheirs: viewport.New(0, 0),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.loadCmd(), m.opts.Notifier.listen(), m.waitForChange())
}

func (m model) loadCmd() tea.Cmd {
	sess, ctx, path := m.opts.Session, m.ctx, m.opts.Path
	return func() tea.Msg {
		loaded, err := sess.Load(ctx, path)
		return loadedMsg{loaded: loaded, err: err}
	}
}

func (m model) waitForChange() tea.Cmd {
	changes := m.opts.Changes
	if changes == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-changes; !ok {
			return nil
		}
		return fileChangedMsg{}
	}
}

func (m *model) showToast(message string, warn bool) tea.Cmd {
	return m.toast.show(message, warn)
}

func (m *model) install(loaded *session.Loaded) {
	m.loaded = loaded
	m.state = loaded.State
	m.loading = false
	m.saved = false

	n := len(loaded.Parse.Document.Conflicts)
	if m.current >= n {
		m.current = max(n-1, 0)
	}
	m.cursor = 0
	m.pendingScroll = true
	m.updateViewports()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case loadedMsg:
		if errors.Is(msg.err, session.ErrSuperseded) {
			return m, nil
		}
		if msg.err != nil {
			m.loading = false
			m.err = msg.err
			m.quitting = true
			return m, tea.Quit
		}
		m.install(msg.loaded)
		return m, nil

	case notice:
		cmd := tea.Batch(m.showToast(msg.text, msg.warn), m.opts.Notifier.listen())
		return m, cmd

	case savedMsg:
		m.saving = false
		m.opts.Notifier.Allow(false)
		switch {
		case msg.err == nil:
			m.saved = true
			m.lastSave = time.Now()
			cmd := m.showToast("Saved", false)
			return m, cmd
		case errors.Is(msg.err, session.ErrSaveDeclined):
			// The notifier already showed the question.
			m.confirmPending = true
			return m, nil
		default:
			log.ErrorErr(log.CatUI, "save failed", msg.err, "path", m.opts.Path)
			cmd := m.showToast(msg.err.Error(), true)
			return m, cmd
		}

	case copiedMsg:
		if msg.err != nil {
			cmd := m.showToast(msg.err.Error(), true)
			return m, cmd
		}
		cmd := m.showToast("Copied result to clipboard", false)
		return m, cmd

	case editorFinishedMsg:
		cmd := m.finishEdit(msg)
		m.updateViewports()
		return m, cmd

	case fileChangedMsg:
		next := m.waitForChange()
		if m.saving || time.Since(m.lastSave) < selfWriteGrace {
			return m, next
		}
		if m.state != nil && m.state.UndoDepth() > 0 {
			cmd := tea.Batch(next, m.showToast("File changed on disk; press R to reload", true))
			return m, cmd
		}
		log.Info(log.CatUI, "reloading after external change", "path", m.opts.Path)
		m.loading = true
		return m, tea.Batch(next, m.loadCmd())

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
		m.updateViewports()
	}

	m.viewportOurs, cmd = m.viewportOurs.Update(msg)
	cmds = append(cmds, cmd)
	m.viewportResult, cmd = m.viewportResult.Update(msg)
	cmds = append(cmds, cmd)
	m.viewportTheirs, cmd = m.viewportTheirs.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *model) layout() {
	headerHeight := 2
	footerHeight := 3
	contentHeight := max(m.height-headerHeight-footerHeight-6, 1)
	paneWidth := max((m.width-12)/3, 1)

	for _, vp := range []*viewport.Model{&m.viewportOurs, &m.viewportResult, &m.viewportTheirs} {
		vp.Width = paneWidth
		vp.Height = contentHeight
	}
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Back):
		m.err = ErrBackToSelector
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}

	// Save runs in a command and reads the state; keep it still meanwhile.
	if m.state == nil || m.saving {
		return m, nil
	}
	if !key.Matches(msg, m.keys.Write) {
		m.confirmPending = false
	}

	var err error
	switch {
	case key.Matches(msg, m.keys.Next):
		if m.current < m.conflictCount()-1 {
			m.current++
			m.cursor = 0
			m.pendingScroll = true
		}
	case key.Matches(msg, m.keys.Prev):
		if m.current > 0 {
			m.current--
			m.cursor = 0
			m.pendingScroll = true
		}
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < m.sideLen()-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.FocusLeft):
		m.focus = resolve.Ours
		m.cursor = min(m.cursor, max(m.sideLen()-1, 0))
	case key.Matches(msg, m.keys.FocusRight):
		m.focus = resolve.Theirs
		m.cursor = min(m.cursor, max(m.sideLen()-1, 0))
	case key.Matches(msg, m.keys.Toggle):
		if m.sideLen() > 0 {
			err = m.state.ToggleLine(m.current, m.focus, m.cursor)
		}
	case key.Matches(msg, m.keys.Ours):
		err = m.state.ApplySide(m.current, resolve.Ours)
	case key.Matches(msg, m.keys.Theirs):
		err = m.state.ApplySide(m.current, resolve.Theirs)
	case key.Matches(msg, m.keys.OursAll):
		err = m.state.ApplySideAll(resolve.Ours)
	case key.Matches(msg, m.keys.TheirsAll):
		err = m.state.ApplySideAll(resolve.Theirs)
	case key.Matches(msg, m.keys.Reset):
		if m.state.Manual() {
			m.state.ClearDocumentManual()
		} else {
			err = m.state.Reset(m.current)
		}
	case key.Matches(msg, m.keys.Undo):
		err = m.state.Undo()
	case key.Matches(msg, m.keys.Redo):
		err = m.state.Redo()
	case key.Matches(msg, m.keys.Edit):
		cmd := m.editConflict()
		return m, cmd
	case key.Matches(msg, m.keys.EditAll):
		cmd := m.openEditor(string(m.state.Preview()), -1)
		return m, cmd
	case key.Matches(msg, m.keys.Copy):
		cmd := m.copyCmd()
		return m, cmd
	case key.Matches(msg, m.keys.Write):
		cmd := m.save()
		return m, cmd
	case key.Matches(msg, m.keys.Reload):
		m.loading = true
		return m, m.loadCmd()
	case key.Matches(msg, m.keys.ScrollL):
		m.scrollHorizontal(-4)
	case key.Matches(msg, m.keys.ScrollR):
		m.scrollHorizontal(4)
	}

	m.updateViewports()
	if err != nil {
		cmd := m.showToast(err.Error(), true)
		return m, cmd
	}
	return m, nil
}

func (m model) conflictCount() int {
	if m.loaded == nil {
		return 0
	}
	return len(m.loaded.Parse.Document.Conflicts)
}

// sideLen is the number of lines of the focused side of the current conflict.
func (m model) sideLen() int {
	if m.loaded == nil {
		return 0
	}
	seg, ok := m.loaded.Parse.Document.Conflict(m.current)
	if !ok {
		return 0
	}
	return len(textLines(sideBody(seg, m.focus)))
}

func (m *model) save() tea.Cmd {
	if m.saving {
		return nil
	}
	m.opts.Notifier.Allow(m.confirmPending)
	m.confirmPending = false
	m.saving = true

	sess, ctx := m.opts.Session, m.ctx
	return func() tea.Msg {
		return savedMsg{err: sess.Save(ctx)}
	}
}

func (m *model) copyCmd() tea.Cmd {
	sess, clip := m.opts.Session, m.opts.Clipboard
	return func() tea.Msg {
		return copiedMsg{err: sess.CopyOutput(clip)}
	}
}

func (m *model) editConflict() tea.Cmd {
	if m.state.Manual() {
		return m.showToast(engine.ErrDocumentManual.Error(), true)
	}
	out, ok := m.state.Output(m.current)
	if !ok {
		return m.showToast("No conflict to edit", true)
	}
	text := out.Text
	if text != "" {
		text += "\n"
	}
	return m.openEditor(text, m.current)
}

func (m *model) openEditor(text string, conflict int) tea.Cmd {
	path, err := engine.WriteEditBuffer(text)
	if err != nil {
		return m.showToast(err.Error(), true)
	}
	cmd, err := engine.EditorCommand(path)
	if err != nil {
		_ = os.Remove(path)
		return m.showToast(err.Error(), true)
	}
	return tea.ExecProcess(cmd, func(err error) tea.Msg {
		return editorFinishedMsg{path: path, conflict: conflict, err: err}
	})
}

func (m *model) finishEdit(msg editorFinishedMsg) tea.Cmd {
	text, readErr := engine.ReadEditBuffer(msg.path)
	if msg.err != nil {
		return m.showToast(fmt.Sprintf("editor failed: %v", msg.err), true)
	}
	if readErr != nil {
		return m.showToast(readErr.Error(), true)
	}
	if m.state == nil {
		return nil
	}

	if msg.conflict < 0 {
		m.state.SetDocumentManual(text)
		return m.showToast("Whole file edited; r drops the edit", false)
	}
	if err := m.state.SetManual(msg.conflict, text); err != nil {
		return m.showToast(err.Error(), true)
	}
	return nil
}

func (m model) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}

	if m.quitting {
		if m.err != nil {
			if errors.Is(m.err, ErrBackToSelector) {
				return "\n  Returning to selector...\n"
			}
			return fmt.Sprintf("\n  Error: %v\n", m.err)
		}
		return ""
	}

	if m.state == nil {
		return fmt.Sprintf("\n  Loading %s...\n", m.opts.Path)
	}

	header := headerStyle.Width(m.width).Render(m.headerText())

	oursTitle, theirsTitle := "OURS", "THEIRS"
	if seg, ok := m.loaded.Parse.Document.Conflict(m.current); ok {
		if seg.OursLabel != "" {
			oursTitle = fmt.Sprintf("OURS (%s)", shortLabel(seg.OursLabel))
		}
		if seg.TheirsLabel != "" {
			theirsTitle = fmt.Sprintf("THEIRS (%s)", shortLabel(seg.TheirsLabel))
		}
	}

	oursStyle, theirsStyle := sidePaneStyle, sidePaneStyle
	if m.focus == resolve.Theirs {
		theirsStyle = focusedPaneStyle
	} else {
		oursStyle = focusedPaneStyle
	}

	oursPane := oursStyle.Render(titleStyle.Render(oursTitle) + "\n" + m.viewportOurs.View())
	resultPane := sidePaneStyle.Render(titleStyle.Render("RESULT "+m.statusText()) + "\n" + m.viewportResult.View())
	theirsPane := theirsStyle.Render(titleStyle.Render(theirsTitle) + "\n" + m.viewportTheirs.View())
	panes := lipgloss.JoinHorizontal(lipgloss.Top, oursPane, resultPane, theirsPane)

	footer := lipgloss.JoinVertical(lipgloss.Left,
		footerStyle.Width(m.width).Render(m.help.View(m.keys)),
		m.toast.view(m.width),
	)

	return lipgloss.JoinVertical(lipgloss.Left, header, panes, footer)
}

func (m model) headerText() string {
	if m.loaded.ManualOnly() {
		return fmt.Sprintf("%s - %s, edit manually (E)", m.opts.Path, m.loaded.Parse.Status)
	}
	text := fmt.Sprintf("%s - Conflict %d/%d", m.opts.Path, m.current+1, m.conflictCount())
	if n := m.state.UnresolvedCount(); n > 0 {
		text += fmt.Sprintf(" | %d unreviewed", n)
	}
	if m.state.UndoDepth() > 0 || m.state.RedoDepth() > 0 {
		text += fmt.Sprintf(" | undo: %d redo: %d", m.state.UndoDepth(), m.state.RedoDepth())
	}
	if m.loading {
		text += " | reloading"
	}
	return text
}

func (m model) statusText() string {
	if m.state.Manual() {
		return statusResolvedStyle.Render("(manual file)")
	}
	kind := m.state.Kind(m.current)
	if kind == resolve.Unresolved {
		return statusUnresolvedStyle.Render("(" + kind.String() + ")")
	}
	return statusResolvedStyle.Render("(" + kind.String() + ")")
}

func shortLabel(label string) string {
	const limit = 24
	runes := []rune(label)
	if len(runes) <= limit {
		return label
	}
	return string(runes[:limit-1]) + "…"
}

func (m *model) updateViewports() {
	if m.state == nil || !m.ready {
		return
	}

	var oursLines, theirsLines []lineInfo
	var oursStart, theirsStart int
	if m.loaded.ManualOnly() {
		oursLines = m.blobLines(m.loaded.Blobs.Ours)
		theirsLines = m.blobLines(m.loaded.Blobs.Theirs)
	} else {
		oursLines, oursStart = buildSidePane(m.state, resolve.Ours, m.current, m.cursor, m.focus == resolve.Ours)
		theirsLines, theirsStart = buildSidePane(m.state, resolve.Theirs, m.current, m.cursor, m.focus == resolve.Theirs)
	}
	resultLines, resultStart := buildResultPane(m.state, m.current)

	m.viewportOurs.SetContent(renderLines(oursLines))
	m.viewportTheirs.SetContent(renderLines(theirsLines))
	m.viewportResult.SetContent(renderLines(resultLines))

	if m.pendingScroll {
		ensureVisible(&m.viewportOurs, oursStart, len(oursLines))
		ensureVisible(&m.viewportTheirs, theirsStart, len(theirsLines))
		ensureVisible(&m.viewportResult, resultStart, len(resultLines))
		m.pendingScroll = false
		return
	}
	if m.focus == resolve.Theirs {
		keepInView(&m.viewportTheirs, theirsStart+m.cursor)
	} else {
		keepInView(&m.viewportOurs, oursStart+m.cursor)
	}
}

func (m model) blobLines(blob session.Blob) []lineInfo {
	if !blob.OK {
		return []lineInfo{{text: "(side unavailable)", dim: true}}
	}
	return plainLines(blob.Data, lipgloss.NewStyle())
}

func (m *model) scrollHorizontal(delta int) {
	apply := func(viewportModel *viewport.Model) {
		if delta < 0 {
			viewportModel.ScrollLeft(-delta)
			return
		}
		if delta > 0 {
			viewportModel.ScrollRight(delta)
		}
	}
	apply(&m.viewportOurs)
	apply(&m.viewportResult)
	apply(&m.viewportTheirs)
}

