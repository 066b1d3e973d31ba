package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

type toastExpiredMsg struct {
	id int
}

// toast is a transient message line. Only the newest toast's timer may
// clear it.
type toast struct {
	message string
	warn    bool
	seq     int
}

func (t *toast) show(message string, warn bool) tea.Cmd {
	t.message = message
	t.warn = warn
	t.seq++
	seq := t.seq
	return tea.Tick(toastDuration, func(time.Time) tea.Msg {
		return toastExpiredMsg{id: seq}
	})
}

func (t *toast) expire(id int) {
	if id == t.seq {
		t.message = ""
	}
}

func (t toast) view(width int) string {
	content := ""
	if t.message != "" {
		style := toastStyle
		if t.warn {
			style = warnToastStyle
		}
		content = style.Render(t.message)
	}
	return toastLineStyle.Width(width).Render(content)
}
