package run

import (
	"context"
	"fmt"

	"github.com/chojs23/mend/internal/cli"
	"github.com/chojs23/mend/internal/notify"
	"github.com/chojs23/mend/internal/session"
	"github.com/chojs23/mend/internal/tui"
)

func (a *app) diff(ctx context.Context) int {
	repo, cwd, err := a.openRepo(ctx)
	if err != nil {
		return a.fail(err)
	}
	path, err := repoPath(repo.Root, cwd, a.opts.Path)
	if err != nil {
		return a.fail(err)
	}

	sess := session.New(repo, repo, repo, nil, notify.Discard{}, a.sessionOptions())
	err = tui.RunDiff(ctx, tui.DiffOptions{
		Path:    path,
		Session: sess,
		Source:  repo,
		Staged:  a.opts.Staged,
		Inline:  a.opts.Inline || a.cfg.UI.InlineDiff,
		Theme:   a.cfg.UI.Theme,
	})
	if err != nil {
		return a.fail(err)
	}
	return exitOK
}

func (a *app) stageLine(ctx context.Context) int {
	repo, cwd, err := a.openRepo(ctx)
	if err != nil {
		return a.fail(err)
	}
	path, err := repoPath(repo.Root, cwd, a.opts.Path)
	if err != nil {
		return a.fail(err)
	}

	target := a.opts.Target
	verb := "Staged"
	if a.opts.Mode == cli.ModeUnstageLine {
		verb = "Unstaged"
		err = repo.UnstageLine(ctx, path, target)
	} else {
		err = repo.StageLine(ctx, path, target)
	}
	if err != nil {
		return a.fail(err)
	}
	fmt.Fprintf(a.stdout, "%s %s (old %d, new %d)\n", verb, path, target.OldLineNumber, target.NewLineNumber)
	return exitOK
}

// list prints every conflicted path under the working directory with its
// status. It exits 1 when there is anything left to resolve.
func (a *app) list(ctx context.Context) int {
	repo, cwd, err := a.openRepo(ctx)
	if err != nil {
		return a.fail(err)
	}
	conflicts, err := repo.ListConflicts(ctx, scopeOf(repo.Root, cwd))
	if err != nil {
		return a.fail(err)
	}

	if op := repo.InProgressOperation(); op != "" {
		fmt.Fprintf(a.stdout, "%s in progress\n", op)
	}
	if len(conflicts) == 0 {
		fmt.Fprintln(a.stdout, "No conflicted files found in the current directory.")
		return exitOK
	}
	for _, c := range conflicts {
		fmt.Fprintf(a.stdout, "%s %s (%s)\n", c.Code, c.Path, c.Describe())
	}
	return exitUnresolved
}
