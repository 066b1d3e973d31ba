package run

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chojs23/mend/internal/cli"
	"github.com/chojs23/mend/internal/config"
	"github.com/chojs23/mend/internal/engine"
	"github.com/chojs23/mend/internal/gitmerge"
	"github.com/chojs23/mend/internal/gitutil"
	"github.com/chojs23/mend/internal/log"
	"github.com/chojs23/mend/internal/markers"
	"github.com/chojs23/mend/internal/notify"
	"github.com/chojs23/mend/internal/resolve"
	"github.com/chojs23/mend/internal/session"
)

const (
	exitOK         = 0
	exitUnresolved = 1
	exitError      = 2
)

const debugLogFile = "mend-debug.log"

// app carries what every mode needs once configuration is loaded.
type app struct {
	opts   cli.Options
	cfg    config.Config
	stdout io.Writer
	stderr io.Writer
}

func Run(ctx context.Context, opts cli.Options) int {
	if opts.Mode == cli.ModeInitConfig {
		return initConfig(opts, os.Stdout, os.Stderr)
	}

	cfg, used, err := config.Load(opts.ConfigPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitError
	}
	if opts.BackupSet {
		cfg.Backup = opts.Backup
	}

	cleanup := setupLogging(cfg, opts.Debug || os.Getenv("MEND_DEBUG") != "")
	defer cleanup()
	log.Info(log.CatConfig, "starting", "mode", opts.Mode, "config", used)

	a := &app{opts: opts, cfg: cfg, stdout: os.Stdout, stderr: os.Stderr}
	switch opts.Mode {
	case cli.ModeCheck:
		return a.check()
	case cli.ModeApplyAll:
		return a.applyAll(ctx)
	case cli.ModeDiff:
		return a.diff(ctx)
	case cli.ModeStageLine, cli.ModeUnstageLine:
		return a.stageLine(ctx)
	case cli.ModeList:
		return a.list(ctx)
	default:
		return a.interactive(ctx)
	}
}

// setupLogging enables the file logger when a log path is configured or
// debug output was requested.
func setupLogging(cfg config.Config, debug bool) func() {
	path := cfg.Log.Path
	level := log.ParseLevel(cfg.Log.Level)
	if debug {
		level = log.LevelDebug
		if path == "" {
			path = debugLogFile
		}
	}
	if path == "" {
		return func() {}
	}
	cleanup, err := log.Init(path, level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		return func() {}
	}
	return cleanup
}

func (a *app) fail(err error) int {
	log.ErrorErr(log.CatSession, "command failed", err, "mode", a.opts.Mode)
	fmt.Fprintln(a.stderr, err)
	return exitError
}

func initConfig(opts cli.Options, stdout, stderr io.Writer) int {
	path := config.LocalConfigPath
	if opts.ConfigPath != "" {
		path = opts.ConfigPath
	}
	if opts.Global {
		dir, err := config.UserConfigDir()
		if err != nil {
			fmt.Fprintln(stderr, err)
			return exitError
		}
		path = filepath.Join(dir, "config.yaml")
	}

	var err error
	if opts.Force {
		err = config.Save(path, config.Defaults())
	} else {
		err = config.WriteDefault(path)
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}
	fmt.Fprintf(stdout, "Wrote %s\n", path)
	return exitOK
}

// check exits 1 when any path still has conflict blocks and 2 when one
// cannot be read or has malformed markers.
func (a *app) check() int {
	code := exitOK
	for _, path := range a.opts.Paths {
		resolved, err := engine.CheckResolvedFile(path)
		if err != nil {
			fmt.Fprintf(a.stderr, "%s: %v\n", path, err)
			code = exitError
			continue
		}
		if !resolved {
			fmt.Fprintln(a.stdout, path)
			if code == exitOK {
				code = exitUnresolved
			}
		}
	}
	return code
}

func parseSide(name string) resolve.Side {
	if name == "theirs" {
		return resolve.Theirs
	}
	return resolve.Ours
}

// applyAll resolves every conflict with one side. Inside a repository it
// goes through a session so the write honors file encodings and marks the
// path resolved; elsewhere it rewrites the file directly.
func (a *app) applyAll(ctx context.Context) int {
	side := parseSide(a.opts.ApplyAll)

	repo, cwd, err := a.openRepo(ctx)
	if err != nil {
		log.Debug(log.CatGit, "no repository, writing file directly", "error", err)
		if err := engine.ApplyAllAndWrite(a.opts.Path, side, a.cfg.Backup); err != nil {
			return a.fail(err)
		}
		return exitOK
	}

	path, err := repoPath(repo.Root, cwd, a.opts.Path)
	if err != nil {
		return a.fail(err)
	}

	var sink session.Sink = repo
	if a.opts.NoAdd {
		sink = keepUnmerged{repo}
	}
	console := notify.Console{Out: a.stderr, Interactive: isInteractiveTTY()}
	sess := session.New(repo, sink, repo, a.merger(), console, a.sessionOptions())

	loaded, err := sess.Load(ctx, path)
	if err != nil {
		return a.fail(err)
	}
	switch loaded.Parse.Status {
	case markers.StatusClean:
		// Resolved by hand already; only the index needs updating.
		if !a.opts.NoAdd {
			if err := sess.MarkResolved(ctx, path); err != nil {
				return a.fail(err)
			}
		}
		fmt.Fprintf(a.stdout, "%s has no conflicts\n", path)
		return exitOK
	case markers.StatusMalformed:
		return a.fail(loaded.Degraded)
	}

	if err := loaded.State.ApplySideAll(side); err != nil {
		return a.fail(err)
	}
	if err := sess.Save(ctx); err != nil {
		if errors.Is(err, session.ErrSaveDeclined) {
			return exitUnresolved
		}
		return a.fail(err)
	}
	fmt.Fprintf(a.stdout, "Resolved %d conflict(s) in %s with %s\n", loaded.Parse.ConflictCount, path, a.opts.ApplyAll)
	return exitOK
}

// keepUnmerged writes through to the repository but leaves the index
// untouched.
type keepUnmerged struct {
	*gitutil.Repo
}

func (keepUnmerged) MarkResolved(context.Context, string) error { return nil }

func (a *app) merger() session.Merger {
	return gitmerge.Merger{Labels: gitmerge.DefaultLabels()}
}

func (a *app) sessionOptions() session.Options {
	return session.Options{UndoLimit: a.cfg.UndoLimit, Backup: a.cfg.Backup}
}

// openRepo finds the repository around the working directory and applies
// the configured encodings and exclusions. It also returns the working
// directory with symlinks resolved, so paths relate to the root git
// reports.
func (a *app) openRepo(ctx context.Context) (*gitutil.Repo, string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, "", fmt.Errorf("get working directory: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(cwd); err == nil {
		cwd = resolved
	}

	repo, err := gitutil.Open(ctx, cwd)
	if err != nil {
		return nil, "", err
	}
	repo.Encodings = a.cfg.EncodingRules()
	repo.Excluded = a.cfg.ExcludedFiles
	return repo, cwd, nil
}

// repoPath turns a command-line path into a slash-separated path relative
// to root.
func repoPath(root, cwd, arg string) (string, error) {
	full := arg
	if !filepath.IsAbs(full) {
		full = filepath.Join(cwd, arg)
	}
	rel, err := filepath.Rel(root, full)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", gitutil.ErrOutsideRepo, arg)
	}
	return filepath.ToSlash(rel), nil
}

// scopeOf is the pathspec limiting conflict listing to cwd.
func scopeOf(root, cwd string) string {
	scope, err := filepath.Rel(root, cwd)
	if err != nil || strings.HasPrefix(scope, "..") {
		return "."
	}
	return filepath.ToSlash(scope)
}
