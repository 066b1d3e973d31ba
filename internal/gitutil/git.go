package gitutil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/chojs23/mend/internal/log"
	"github.com/chojs23/mend/internal/session"
	"github.com/chojs23/mend/internal/textenc"
)

var (
	ErrOutsideRepo = errors.New("path is outside the repository")
	ErrExcluded    = errors.New("path is excluded from git operations")
	ErrRenamePath  = errors.New("rename entries cannot be staged by line")
)

// Conflict is one unmerged entry from `git status --porcelain`.
type Conflict struct {
	Path string
	// Code is the two-letter status, e.g. "UU" or "DU".
	Code string
}

// Describe returns a short human label for the conflict code.
func (c Conflict) Describe() string {
	switch c.Code {
	case "UU":
		return "both modified"
	case "AA":
		return "both added"
	case "DU":
		return "deleted by us"
	case "UD":
		return "deleted by them"
	case "AU":
		return "added by us"
	case "UA":
		return "added by them"
	case "DD":
		return "both deleted"
	default:
		return c.Code
	}
}

// Repo runs git against one repository. Paths given to its methods are
// relative to Root.
type Repo struct {
	Root   string
	GitDir string

	// Encodings selects a text encoding per path for reads and writes.
	Encodings textenc.Rules
	// Excluded paths are never staged, unstaged or marked resolved.
	Excluded []string
}

// RepoRoot returns the repository root directory for the given working directory.
func RepoRoot(ctx context.Context, cwd string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--show-toplevel")
	cmd.Dir = cwd
	cmd.Env = gitEnv()
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git rev-parse --show-toplevel failed: %w", err)
	}
	root := strings.TrimSpace(string(output))
	if root == "" {
		return "", fmt.Errorf("git rev-parse returned empty repo root")
	}
	return root, nil
}

// Open locates the repository containing cwd.
func Open(ctx context.Context, cwd string) (*Repo, error) {
	root, err := RepoRoot(ctx, cwd)
	if err != nil {
		return nil, err
	}
	r := &Repo{Root: root}

	out, err := r.run(ctx, "rev-parse", "--git-dir")
	if err != nil {
		return nil, err
	}
	gitDir := strings.TrimSpace(string(out))
	if gitDir == "" {
		gitDir = ".git"
	}
	if !filepath.IsAbs(gitDir) {
		gitDir = filepath.Join(root, gitDir)
	}
	r.GitDir = gitDir
	return r, nil
}

func gitEnv() []string {
	return append(os.Environ(), "LC_ALL=C", "GIT_TERMINAL_PROMPT=0")
}

// run executes git in the repository root and returns stdout. The error
// carries stderr when git wrote any.
func (r *Repo) run(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.Root
	cmd.Env = gitEnv()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.Debug(log.CatGit, "exec", "args", strings.Join(args, " "))
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("git %s failed: %s", args[0], msg)
	}
	return stdout.Bytes(), nil
}

// ListConflicts returns unmerged entries under scopePathspec. Excluded
// paths are left out.
func (r *Repo) ListConflicts(ctx context.Context, scopePathspec string) ([]Conflict, error) {
	pathspec := scopePathspec
	if pathspec == "" {
		pathspec = "."
	}
	output, err := r.run(ctx, "status", "--porcelain", "--", pathspec)
	if err != nil {
		return nil, err
	}
	conflicts := parseStatus(output)
	if len(r.Excluded) == 0 {
		return conflicts, nil
	}
	kept := conflicts[:0]
	for _, c := range conflicts {
		if textenc.MatchAny(c.Path, r.Excluded) {
			continue
		}
		kept = append(kept, c)
	}
	return kept, nil
}

func parseStatus(output []byte) []Conflict {
	var conflicts []Conflict
	for _, raw := range bytes.Split(output, []byte{'\n'}) {
		line := strings.TrimRight(string(raw), "\r")
		if len(line) < 4 {
			continue
		}
		code := line[:2]
		switch code {
		case "UU", "AA", "DU", "UD", "AU", "UA", "DD":
		default:
			continue
		}
		p := strings.TrimSpace(line[3:])
		if len(p) >= 2 && strings.HasPrefix(p, `"`) && strings.HasSuffix(p, `"`) {
			p = p[1 : len(p)-1]
		}
		conflicts = append(conflicts, Conflict{Path: p, Code: code})
	}
	return conflicts
}

// ShowStage reads a conflicted file content from the git index stage (1=base, 2=ours, 3=theirs).
func (r *Repo) ShowStage(ctx context.Context, stage int, path string) ([]byte, error) {
	return r.run(ctx, "show", fmt.Sprintf(":%d:%s", stage, path))
}

// StageBlobs reads the base, ours and theirs stages in parallel. A stage
// that does not exist is reported with OK false; the call only fails when
// none exists.
func (r *Repo) StageBlobs(ctx context.Context, path string) (session.StageBlobs, error) {
	var (
		blobs [3]session.Blob
		errs  [3]error
		g, gctx = errgroup.WithContext(ctx)
	)
	for i := range blobs {
		g.Go(func() error {
			data, err := r.ShowStage(gctx, i+1, path)
			if err != nil {
				errs[i] = err
				return nil
			}
			blobs[i] = session.Blob{Data: textenc.Decode(data, r.Encodings.Resolve(path)), OK: true}
			return nil
		})
	}
	_ = g.Wait()

	if !blobs[0].OK && !blobs[1].OK && !blobs[2].OK {
		return session.StageBlobs{}, fmt.Errorf("no index stages for %s: %w", path, errors.Join(errs[:]...))
	}
	return session.StageBlobs{Base: blobs[0], Ours: blobs[1], Theirs: blobs[2]}, nil
}

// abs resolves a repo-relative path and refuses anything escaping Root.
func (r *Repo) abs(path string) (string, error) {
	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(r.Root, path)
	}
	rel, err := filepath.Rel(r.Root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRepo, path)
	}
	return full, nil
}

// WorkingTree reads path from the working tree and decodes it to UTF-8.
func (r *Repo) WorkingTree(_ context.Context, path string) (string, error) {
	full, err := r.abs(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return textenc.Decode(data, r.Encodings.Resolve(path)), nil
}

// WriteFile encodes text for path and writes it to the working tree,
// keeping the file mode of an existing file. Excluded paths are refused.
func (r *Repo) WriteFile(_ context.Context, path, text string) error {
	if err := r.checkPath(path); err != nil {
		return err
	}
	full, err := r.abs(path)
	if err != nil {
		return err
	}
	data, err := textenc.Encode(text, r.Encodings.Resolve(path))
	if err != nil {
		return err
	}
	mode := os.FileMode(0o644)
	if info, err := os.Stat(full); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.WriteFile(full, data, mode); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// MarkResolved stages path with `git add`.
func (r *Repo) MarkResolved(ctx context.Context, path string) error {
	if err := r.checkPath(path); err != nil {
		return err
	}
	_, err := r.run(ctx, "add", "--", path)
	return err
}

func (r *Repo) checkPath(path string) error {
	if _, err := r.abs(path); err != nil {
		return err
	}
	if textenc.MatchAny(path, r.Excluded) {
		return fmt.Errorf("%w: %s", ErrExcluded, path)
	}
	return nil
}

// InProgressOperation names the merge-like operation the repository is in
// the middle of, or returns "" when there is none.
func (r *Repo) InProgressOperation() string {
	if r.GitDir == "" {
		return ""
	}
	exists := func(name string) bool {
		_, err := os.Stat(filepath.Join(r.GitDir, name))
		return err == nil
	}
	switch {
	case exists("MERGE_HEAD"):
		return "merge"
	case exists("REBASE_HEAD"), exists("rebase-merge"), exists("rebase-apply"):
		return "rebase"
	case exists("CHERRY_PICK_HEAD"):
		return "cherry-pick"
	case exists("REVERT_HEAD"):
		return "revert"
	default:
		return ""
	}
}
