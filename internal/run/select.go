package run

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chojs23/mend/internal/engine"
	"github.com/chojs23/mend/internal/gitutil"
	"github.com/chojs23/mend/internal/log"
	"github.com/chojs23/mend/internal/session"
	"github.com/chojs23/mend/internal/tui"
	"github.com/chojs23/mend/internal/watcher"
)

var errNoConflicts = errors.New("no conflicted files found")

// interactive opens the resolver. With a path it resolves that file once;
// without one it loops between the file selector and the resolver until
// the user quits.
func (a *app) interactive(ctx context.Context) int {
	repo, cwd, err := a.openRepo(ctx)
	if err != nil {
		return a.fail(err)
	}

	if a.opts.Path != "" {
		path, err := repoPath(repo.Root, cwd, a.opts.Path)
		if err != nil {
			return a.fail(err)
		}
		res, err := a.resolveFile(ctx, repo, path)
		if err != nil && !errors.Is(err, tui.ErrBackToSelector) {
			return a.fail(err)
		}
		return exitCode(res)
	}

	scope := scopeOf(repo.Root, cwd)
	if op := repo.InProgressOperation(); op != "" {
		log.Info(log.CatGit, "operation in progress", "operation", op)
	}
	for {
		path, err := a.pickConflict(ctx, repo, scope)
		if err != nil {
			if errors.Is(err, errNoConflicts) {
				fmt.Fprintln(a.stdout, "No conflicted files found in the current directory.")
				return exitOK
			}
			if tui.IsQuit(err) {
				return exitOK
			}
			return a.fail(err)
		}

		res, err := a.resolveFile(ctx, repo, path)
		if err != nil {
			if errors.Is(err, tui.ErrBackToSelector) {
				continue
			}
			return a.fail(err)
		}
		return exitCode(res)
	}
}

// exitCode reports 1 when the user left without writing a resolution.
func exitCode(res tui.Result) int {
	if res.Saved {
		return exitOK
	}
	return exitUnresolved
}

// resolveFile runs the resolver on one repo-relative path. The file is
// watched while it is open when the config asks for it.
func (a *app) resolveFile(ctx context.Context, repo *gitutil.Repo, path string) (tui.Result, error) {
	notifier := tui.NewNotifier()
	sess := session.New(repo, repo, repo, a.merger(), notifier, a.sessionOptions())

	opts := tui.Options{
		Path:      path,
		Session:   sess,
		Notifier:  notifier,
		Clipboard: session.SystemClipboard{},
		Theme:     a.cfg.UI.Theme,
	}
	if a.cfg.Watch {
		changes, stop := watchFile(filepath.Join(repo.Root, filepath.FromSlash(path)))
		defer stop()
		opts.Changes = changes
	}

	log.Info(log.CatUI, "resolver opened", "path", path)
	return tui.Run(ctx, opts)
}

// watchFile starts a watcher on path. A watcher that cannot start only
// costs automatic reloads, so failures are logged and a nil channel is
// returned.
func watchFile(path string) (<-chan struct{}, func()) {
	w, err := watcher.New(watcher.DefaultConfig(path))
	if err != nil {
		log.Warn(log.CatWatcher, "watcher unavailable", "path", path, "error", err)
		return nil, func() {}
	}
	changes, err := w.Start()
	if err != nil {
		_ = w.Stop()
		log.Warn(log.CatWatcher, "watcher unavailable", "path", path, "error", err)
		return nil, func() {}
	}
	return changes, func() { _ = w.Stop() }
}

func (a *app) pickConflict(ctx context.Context, repo *gitutil.Repo, scope string) (string, error) {
	conflicts, err := repo.ListConflicts(ctx, scope)
	if err != nil {
		return "", err
	}
	if len(conflicts) == 0 {
		return "", errNoConflicts
	}

	if isInteractiveTTY() {
		return tui.SelectFile(ctx, buildFileCandidates(repo.Root, conflicts), a.cfg.UI.Theme)
	}
	paths := make([]string, len(conflicts))
	for i, c := range conflicts {
		paths[i] = c.Path
	}
	return selectPath(paths, os.Stdin, a.stdout)
}

func selectPath(paths []string, in io.Reader, out io.Writer) (string, error) {
	if len(paths) == 1 {
		return paths[0], nil
	}

	fmt.Fprintln(out, "Conflicted files:")
	for i, p := range paths {
		fmt.Fprintf(out, "  %d) %s\n", i+1, p)
	}

	reader := bufio.NewReader(in)
	for attempt := 0; attempt < 3; attempt++ {
		fmt.Fprintf(out, "Select a file to resolve [1-%d]: ", len(paths))
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("read selection: %w", err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		idx, err := strconv.Atoi(line)
		if err != nil || idx < 1 || idx > len(paths) {
			fmt.Fprintln(out, "Invalid selection.")
			continue
		}
		return paths[idx-1], nil
	}

	return "", fmt.Errorf("invalid selection")
}

func isInteractiveTTY() bool {
	return isTTY(os.Stdin) && isTTY(os.Stdout)
}

func isTTY(file *os.File) bool {
	info, err := file.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

// buildFileCandidates marks each conflict resolved when its working-tree
// file no longer has conflict blocks. A file that cannot be checked, e.g.
// one deleted on our side, stays unresolved.
func buildFileCandidates(repoRoot string, conflicts []gitutil.Conflict) []tui.FileCandidate {
	candidates := make([]tui.FileCandidate, 0, len(conflicts))
	for _, c := range conflicts {
		resolved, err := engine.CheckResolvedFile(filepath.Join(repoRoot, filepath.FromSlash(c.Path)))
		if err != nil {
			log.Debug(log.CatParse, "check failed", "path", c.Path, "error", err)
			resolved = false
		}
		candidates = append(candidates, tui.FileCandidate{Path: c.Path, Resolved: resolved, Status: c.Describe()})
	}
	return candidates
}
