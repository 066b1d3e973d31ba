package engine

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// EditorCommand builds the command that opens path in the user's editor.
// $VISUAL wins over $EDITOR; with neither set it falls back to vi. The
// command is returned unstarted so a TUI can hand the terminal over.
func EditorCommand(path string) (*exec.Cmd, error) {
	if path == "" {
		return nil, fmt.Errorf("edit buffer path is empty")
	}

	// Editors are often configured with flags, e.g. "code --wait".
	fields := strings.Fields(os.Getenv("VISUAL"))
	if len(fields) == 0 {
		fields = strings.Fields(os.Getenv("EDITOR"))
	}
	if len(fields) == 0 {
		fields = []string{"vi"}
	}
	args := append(fields[1:], path)
	return exec.Command(fields[0], args...), nil
}

// WriteEditBuffer stores text in a temp file for manual editing.
func WriteEditBuffer(text string) (string, error) {
	f, err := os.CreateTemp("", "mend-edit-*.txt")
	if err != nil {
		return "", fmt.Errorf("create edit buffer: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(text); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("write edit buffer: %w", err)
	}
	return f.Name(), nil
}

// ReadEditBuffer returns the edited text and removes the buffer file.
func ReadEditBuffer(path string) (string, error) {
	data, err := os.ReadFile(path)
	_ = os.Remove(path)
	if err != nil {
		return "", fmt.Errorf("read edit buffer: %w", err)
	}
	return string(data), nil
}
