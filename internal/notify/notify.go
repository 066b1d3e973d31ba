// Package notify abstracts user-facing warnings and confirmations so the
// session can run under a TUI, a plain terminal or a test.
package notify

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

type Notifier interface {
	// Warn reports a recoverable problem the user should see.
	Warn(msg string)
	// Info reports something less severe than a warning.
	Info(msg string)
	// Confirm asks a yes/no question.
	Confirm(prompt string) bool
}

var (
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	infoStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
)

// Console writes to a terminal and asks confirmations with a huh form.
// With Interactive false every confirmation is declined.
type Console struct {
	Out         io.Writer
	Interactive bool
}

func (c Console) Warn(msg string) {
	fmt.Fprintln(c.Out, warnStyle.Render("warning:")+" "+msg)
}

func (c Console) Info(msg string) {
	fmt.Fprintln(c.Out, infoStyle.Render("note:")+" "+msg)
}

func (c Console) Confirm(prompt string) bool {
	if !c.Interactive {
		return false
	}
	var ok bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(prompt).
				Affirmative("Yes").
				Negative("No").
				Value(&ok),
		),
	).Run()
	if err != nil {
		return false
	}
	return ok
}

// Recorder keeps every message and answers confirmations with Answer.
type Recorder struct {
	mu       sync.Mutex
	Answer   bool
	Warnings []string
	Infos    []string
	Prompts  []string
}

func (r *Recorder) Warn(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Warnings = append(r.Warnings, msg)
}

func (r *Recorder) Info(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Infos = append(r.Infos, msg)
}

func (r *Recorder) Confirm(prompt string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Prompts = append(r.Prompts, prompt)
	return r.Answer
}

// Discard drops everything and declines confirmations.
type Discard struct{}

func (Discard) Warn(string)         {}
func (Discard) Info(string)         {}
func (Discard) Confirm(string) bool { return false }
