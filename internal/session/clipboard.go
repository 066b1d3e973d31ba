package session

import (
	"fmt"

	"github.com/atotto/clipboard"

	"github.com/chojs23/mend/internal/log"
)

// Clipboard receives copied output.
type Clipboard interface {
	WriteAll(text string) error
}

// SystemClipboard writes to the OS clipboard.
type SystemClipboard struct{}

func (SystemClipboard) WriteAll(text string) error {
	if clipboard.Unsupported {
		return fmt.Errorf("no clipboard utility found")
	}
	return clipboard.WriteAll(text)
}

// CopyOutput copies the current output to clip. Failures are logged and
// returned but never affect the session.
func (s *Session) CopyOutput(clip Clipboard) error {
	cur := s.Current()
	if cur == nil {
		return ErrNotLoaded
	}
	if clip == nil {
		clip = SystemClipboard{}
	}
	out := cur.State.Preview()
	if err := clip.WriteAll(string(out)); err != nil {
		log.Warn(log.CatSession, "clipboard write failed", "path", cur.Path, "error", err)
		return fmt.Errorf("%w: %w", ErrClipboardFailed, err)
	}
	log.Debug(log.CatSession, "copied output", "path", cur.Path, "bytes", len(out))
	return nil
}
