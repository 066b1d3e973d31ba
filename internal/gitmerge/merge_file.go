// Package gitmerge rebuilds a diff3 merge view from stage blobs with
// `git merge-file`.
package gitmerge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// Labels name the three sides in the generated markers.
type Labels struct {
	Ours   string
	Base   string
	Theirs string
}

func DefaultLabels() Labels {
	return Labels{Ours: "ours", Base: "base", Theirs: "theirs"}
}

// MergeFileDiff3 runs git's canonical three-way merge and returns a diff3-style
// merge view (with base sections in conflict blocks).
//
// Exit code 0 means clean merge. 1..127 is the number of conflicts found
// (truncated to 127). git reports errors as a negative status, which the
// process exit code wraps into 128..255.
func MergeFileDiff3(ctx context.Context, labels Labels, localPath, basePath, remotePath string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", "merge-file", "--diff3", "-p",
		"-L", labels.Ours, "-L", labels.Base, "-L", labels.Theirs,
		localPath, basePath, remotePath)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return stdout.Bytes(), nil
	}

	var ee *exec.ExitError
	if errors.As(err, &ee) {
		code := ee.ExitCode()
		if code > 0 && code < 128 {
			return stdout.Bytes(), nil
		}
	}

	msg := stderr.String()
	if msg == "" {
		msg = err.Error()
	}
	return nil, fmt.Errorf("git merge-file failed: %s", msg)
}

// Merger merges in-memory blobs through temporary files.
type Merger struct {
	Labels Labels
}

func (m Merger) MergeView(ctx context.Context, base, ours, theirs string) (string, error) {
	dir, err := os.MkdirTemp("", "mend-merge-")
	if err != nil {
		return "", fmt.Errorf("create merge dir: %w", err)
	}
	defer os.RemoveAll(dir)

	paths := map[string]string{"ours": ours, "base": base, "theirs": theirs}
	for name, content := range paths {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
			return "", fmt.Errorf("write %s blob: %w", name, err)
		}
	}

	labels := m.Labels
	if labels == (Labels{}) {
		labels = DefaultLabels()
	}
	out, err := MergeFileDiff3(ctx, labels,
		filepath.Join(dir, "ours"), filepath.Join(dir, "base"), filepath.Join(dir, "theirs"))
	if err != nil {
		return "", err
	}
	return string(out), nil
}
