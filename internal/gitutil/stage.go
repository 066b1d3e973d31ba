package gitutil

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/chojs23/mend/internal/linediff"
	"github.com/chojs23/mend/internal/log"
	"github.com/chojs23/mend/internal/patch"
	"github.com/chojs23/mend/internal/textenc"
)

var ErrNoDiff = errors.New("no diff available")

// BaseAndModified returns the two sides of a file diff. Unstaged compares
// the index with the working tree; staged compares HEAD with the index. A
// side git cannot show (new file, deleted file) is empty.
func (r *Repo) BaseAndModified(ctx context.Context, path string, staged bool) (string, string, error) {
	if _, err := r.abs(path); err != nil {
		return "", "", err
	}
	label := r.Encodings.Resolve(path)

	show := func(ref string) string {
		out, err := r.run(ctx, "show", ref)
		if err != nil {
			log.Debug(log.CatGit, "side unavailable", "ref", ref, "error", err)
			return ""
		}
		return textenc.Decode(out, label)
	}

	if staged {
		return show("HEAD:" + path), show(":" + path), nil
	}
	base := show(":" + path)
	modified, err := r.WorkingTree(ctx, path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return "", "", err
		}
		modified = ""
	}
	return base, modified, nil
}

// StageLine applies one line of the unstaged diff to the index.
func (r *Repo) StageLine(ctx context.Context, path string, target linediff.StageTarget) error {
	return r.applyLine(ctx, path, target, false)
}

// UnstageLine removes one line of the staged diff from the index.
func (r *Repo) UnstageLine(ctx context.Context, path string, target linediff.StageTarget) error {
	return r.applyLine(ctx, path, target, true)
}

func (r *Repo) applyLine(ctx context.Context, path string, target linediff.StageTarget, reverse bool) error {
	if strings.Contains(path, " -> ") {
		return fmt.Errorf("%w: %s", ErrRenamePath, path)
	}
	if err := r.checkPath(path); err != nil {
		return err
	}
	if target.IsZero() {
		return patch.ErrEmptyTarget
	}

	args := []string{"diff", "--no-color", "--no-ext-diff", "--unified=0"}
	if reverse {
		args = append(args, "--cached")
	}
	args = append(args, "--", path)
	out, err := r.run(ctx, args...)
	if err != nil {
		return err
	}
	if strings.TrimSpace(string(out)) == "" {
		if reverse {
			return fmt.Errorf("%w: no staged diff for %s", ErrNoDiff, path)
		}
		return fmt.Errorf("%w: no unstaged diff for %s", ErrNoDiff, path)
	}

	parsed, err := patch.ParseZeroContext(string(out))
	if err != nil {
		return fmt.Errorf("parse diff for %s: %w", path, err)
	}
	text, err := patch.BuildLinePatch(parsed, target)
	if err != nil {
		return fmt.Errorf("build patch for %s: %w", path, err)
	}

	patchFile := filepath.Join(os.TempDir(), "mend-stage-line-"+uuid.NewString()+".patch")
	if err := os.WriteFile(patchFile, []byte(text), 0o600); err != nil {
		return fmt.Errorf("write patch: %w", err)
	}
	defer os.Remove(patchFile)

	applyArgs := []string{"apply", "--cached", "--unidiff-zero", "--whitespace=nowarn"}
	if reverse {
		applyArgs = append(applyArgs, "--reverse")
	}
	applyArgs = append(applyArgs, patchFile)
	if _, err := r.run(ctx, applyArgs...); err != nil {
		return err
	}

	log.Info(log.CatGit, "applied line patch", "path", path, "reverse", reverse, "old", target.OldLineNumber, "new", target.NewLineNumber)
	return nil
}
