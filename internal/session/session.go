// Package session runs one resolution session: it loads a conflicted file
// from its collaborators, owns the resolution state, and writes the result
// back.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/chojs23/mend/internal/engine"
	"github.com/chojs23/mend/internal/linediff"
	"github.com/chojs23/mend/internal/log"
	"github.com/chojs23/mend/internal/markers"
	"github.com/chojs23/mend/internal/notify"
)

var (
	// ErrParseDegraded marks a load whose markers were malformed or absent.
	// It is reported through Loaded.Degraded, never returned from Load.
	ErrParseDegraded = errors.New("conflict markers unusable")
	// ErrSourceUnavailable means neither the working tree nor the stage
	// blobs could provide content.
	ErrSourceUnavailable = errors.New("file content unavailable")
	ErrSaveFailed        = errors.New("save failed")
	ErrClipboardFailed   = errors.New("clipboard unavailable")
	// ErrSuperseded is returned by a load that finished after a newer load
	// had started. Its result is discarded.
	ErrSuperseded   = errors.New("load superseded by a newer load")
	ErrSaveInFlight = errors.New("save already in progress")
	ErrSaveDeclined = errors.New("save declined")
	ErrNotLoaded    = errors.New("no file loaded")
	ErrNoStager     = errors.New("line staging unavailable")
)

// Blob is one index stage of a conflicted path. OK is false when the stage
// does not exist, e.g. the side that deleted the file.
type Blob struct {
	Data string
	OK   bool
}

type StageBlobs struct {
	Base   Blob
	Ours   Blob
	Theirs Blob
}

type Source interface {
	WorkingTree(ctx context.Context, path string) (string, error)
	StageBlobs(ctx context.Context, path string) (StageBlobs, error)
}

type Sink interface {
	WriteFile(ctx context.Context, path, text string) error
	MarkResolved(ctx context.Context, path string) error
}

type Stager interface {
	StageLine(ctx context.Context, path string, target linediff.StageTarget) error
	UnstageLine(ctx context.Context, path string, target linediff.StageTarget) error
}

// Merger builds a diff3 merge view from stage blobs.
type Merger interface {
	MergeView(ctx context.Context, base, ours, theirs string) (string, error)
}

type Options struct {
	UndoLimit int
	// Backup writes the loaded text to <path>.mend.bak before saving.
	Backup bool
}

type Session struct {
	src      Source
	sink     Sink
	stager   Stager
	merger   Merger
	notifier notify.Notifier
	opts     Options

	loadToken atomic.Uint64
	saving    atomic.Bool

	mu      sync.Mutex
	current *Loaded
}

// Loaded is the result of one load.
type Loaded struct {
	Path  string
	Token uint64

	// Text is the content that was parsed, either the working tree or a
	// synthesized merge view.
	Text        string
	Synthesized bool
	Blobs       StageBlobs

	Parse markers.Result
	State *engine.State

	// Degraded wraps ErrParseDegraded when the file has no usable blocks.
	// The session stays open for whole-document manual editing.
	Degraded error
}

// ManualOnly reports whether the file can only be edited as free text.
func (l *Loaded) ManualOnly() bool {
	return l.Parse.Status != markers.StatusConflicted
}

func New(src Source, sink Sink, stager Stager, merger Merger, notifier notify.Notifier, opts Options) *Session {
	if notifier == nil {
		notifier = notify.Discard{}
	}
	if opts.UndoLimit < 1 {
		opts.UndoLimit = 100
	}
	return &Session{
		src:      src,
		sink:     sink,
		stager:   stager,
		merger:   merger,
		notifier: notifier,
		opts:     opts,
	}
}

// Current returns the most recent load that was installed.
func (s *Session) Current() *Loaded {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Load fetches path from the source and installs it as the current file.
// Working tree and stage blobs are fetched in parallel; a failed or empty
// working tree falls back to a merge view rebuilt from the blobs.
func (s *Session) Load(ctx context.Context, path string) (*Loaded, error) {
	token := s.loadToken.Add(1)
	log.Debug(log.CatSession, "load started", "path", path, "token", token)

	var (
		working     string
		workingErr  error
		blobs       StageBlobs
		blobsErr    error
		g, groupCtx = errgroup.WithContext(ctx)
	)
	// Both fetches record their own error so one failure never cancels
	// the other.
	g.Go(func() error {
		working, workingErr = s.src.WorkingTree(groupCtx, path)
		return nil
	})
	g.Go(func() error {
		blobs, blobsErr = s.src.StageBlobs(groupCtx, path)
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	loaded := &Loaded{Path: path, Token: token, Text: working, Blobs: blobs}
	if blobsErr != nil {
		log.Warn(log.CatSession, "stage blobs unavailable", "path", path, "error", blobsErr)
	}

	if workingErr != nil || (strings.TrimSpace(working) == "" && hasSides(blobs)) {
		if blobsErr != nil || !hasSides(blobs) {
			return nil, fmt.Errorf("%w: %s: working tree: %v", ErrSourceUnavailable, path, errOrEmpty(workingErr))
		}
		loaded.Text = s.synthesize(ctx, blobs)
		loaded.Synthesized = true
		s.notifier.Warn(fmt.Sprintf("%s: working tree unavailable, rebuilt from stage blobs", path))
		log.Warn(log.CatSession, "working tree fallback", "path", path, "error", errOrEmpty(workingErr))
	}

	if s.loadToken.Load() != token {
		log.Debug(log.CatSession, "load discarded", "path", path, "token", token)
		return nil, ErrSuperseded
	}

	loaded.Parse = markers.Parse([]byte(loaded.Text))
	switch loaded.Parse.Status {
	case markers.StatusMalformed:
		loaded.Degraded = fmt.Errorf("%w: %s: malformed markers", ErrParseDegraded, path)
		if loaded.Parse.Err != nil {
			loaded.Degraded = fmt.Errorf("%w: %s: %w", ErrParseDegraded, path, loaded.Parse.Err)
		}
		s.notifier.Warn(fmt.Sprintf("%s has malformed conflict markers; edit it manually", path))
	case markers.StatusClean:
		loaded.Degraded = fmt.Errorf("%w: %s: not conflicted", ErrParseDegraded, path)
		s.notifier.Info(fmt.Sprintf("%s is not conflicted; edit it manually or mark it resolved", path))
	}
	log.Info(log.CatParse, "parsed", "path", path, "status", loaded.Parse.Status, "conflicts", loaded.Parse.ConflictCount)

	state, err := engine.NewState(loaded.Parse.Document, s.opts.UndoLimit)
	if err != nil {
		return nil, err
	}
	loaded.State = state

	s.mu.Lock()
	defer s.mu.Unlock()
	// Re-check under the lock: a newer load may have installed meanwhile.
	if s.loadToken.Load() != token {
		return nil, ErrSuperseded
	}
	s.current = loaded
	return loaded, nil
}

func hasSides(b StageBlobs) bool {
	return b.Ours.OK || b.Theirs.OK
}

func errOrEmpty(err error) string {
	if err == nil {
		return "empty content"
	}
	return err.Error()
}

// synthesize rebuilds a conflict-marked text from stage blobs. With a base
// blob and a merger it asks for a real diff3 merge view; otherwise the
// whole file becomes one conflict.
func (s *Session) synthesize(ctx context.Context, b StageBlobs) string {
	if s.merger != nil && b.Base.OK && b.Ours.OK && b.Theirs.OK {
		view, err := s.merger.MergeView(ctx, b.Base.Data, b.Ours.Data, b.Theirs.Data)
		if err == nil {
			return view
		}
		log.ErrorErr(log.CatSession, "merge view failed, using whole-file conflict", err)
	}
	return string(markers.Synthesize(b.Ours.Data, b.Theirs.Data, "ours", "theirs"))
}

// Save composes the current output, writes it and marks the path resolved.
// Only one save runs at a time. A failed save leaves the state untouched so
// it can be retried.
func (s *Session) Save(ctx context.Context) error {
	if !s.saving.CompareAndSwap(false, true) {
		return ErrSaveInFlight
	}
	defer s.saving.Store(false)

	cur := s.Current()
	if cur == nil {
		return ErrNotLoaded
	}

	if n := cur.State.UnresolvedCount(); n > 0 && !cur.State.Manual() {
		if !s.notifier.Confirm(fmt.Sprintf("%d conflict(s) not reviewed, keep ours for them and save?", n)) {
			return ErrSaveDeclined
		}
	}

	out := cur.State.Preview()
	if err := engine.VerifyResolved(out); err != nil {
		if !s.notifier.Confirm("Output still contains conflict markers. Save anyway?") {
			return ErrSaveDeclined
		}
	}

	if s.opts.Backup && !cur.Synthesized {
		if err := s.sink.WriteFile(ctx, cur.Path+engine.BackupSuffix, cur.Text); err != nil {
			return fmt.Errorf("%w: backup %s: %w", ErrSaveFailed, cur.Path, err)
		}
	}
	if err := s.sink.WriteFile(ctx, cur.Path, string(out)); err != nil {
		log.ErrorErr(log.CatSession, "write failed", err, "path", cur.Path)
		return fmt.Errorf("%w: write %s: %w", ErrSaveFailed, cur.Path, err)
	}
	if err := s.sink.MarkResolved(ctx, cur.Path); err != nil {
		log.ErrorErr(log.CatSession, "mark resolved failed", err, "path", cur.Path)
		return fmt.Errorf("%w: mark resolved %s: %w", ErrSaveFailed, cur.Path, err)
	}

	log.Info(log.CatSession, "saved", "path", cur.Path, "bytes", len(out))
	return nil
}

// MarkResolved stages path as is, for files that turned out not to need a
// resolution.
func (s *Session) MarkResolved(ctx context.Context, path string) error {
	if err := s.sink.MarkResolved(ctx, path); err != nil {
		return fmt.Errorf("%w: mark resolved %s: %w", ErrSaveFailed, path, err)
	}
	return nil
}

func (s *Session) StageLine(ctx context.Context, path string, target linediff.StageTarget) error {
	if s.stager == nil {
		return ErrNoStager
	}
	log.Debug(log.CatDiff, "stage line", "path", path, "old", target.OldLineNumber, "new", target.NewLineNumber)
	return s.stager.StageLine(ctx, path, target)
}

func (s *Session) UnstageLine(ctx context.Context, path string, target linediff.StageTarget) error {
	if s.stager == nil {
		return ErrNoStager
	}
	log.Debug(log.CatDiff, "unstage line", "path", path, "old", target.OldLineNumber, "new", target.NewLineNumber)
	return s.stager.UnstageLine(ctx, path, target)
}
