package tui

import (
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/chojs23/mend/internal/log"
)

type notice struct {
	text string
	warn bool
}

// Notifier turns session warnings into toasts. Confirmations cannot block
// inside a Bubble Tea command, so Confirm answers with whatever the model
// allowed beforehand and shows the prompt when it declines.
type Notifier struct {
	notices chan notice
	allow   atomic.Bool
}

func NewNotifier() *Notifier {
	return &Notifier{notices: make(chan notice, 16)}
}

func (n *Notifier) push(msg notice) {
	select {
	case n.notices <- msg:
	default:
		log.Warn(log.CatUI, "toast dropped", "text", msg.text)
	}
}

func (n *Notifier) Warn(msg string) { n.push(notice{text: msg, warn: true}) }

func (n *Notifier) Info(msg string) { n.push(notice{text: msg}) }

func (n *Notifier) Confirm(prompt string) bool {
	if n.allow.Load() {
		return true
	}
	n.push(notice{text: prompt + " (press w again to confirm)", warn: true})
	return false
}

// Allow makes every Confirm succeed until it is called with false.
func (n *Notifier) Allow(ok bool) { n.allow.Store(ok) }

// listen waits for the next notice.
func (n *Notifier) listen() tea.Cmd {
	return func() tea.Msg {
		return <-n.notices
	}
}
