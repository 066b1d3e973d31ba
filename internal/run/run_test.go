package run

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chojs23/mend/internal/cli"
	"github.com/chojs23/mend/internal/config"
	"github.com/chojs23/mend/internal/log"
)

const conflicted = "line1\n<<<<<<< HEAD\nlocal change\n=======\nremote change\n>>>>>>> branch\nline3\n"

func withFakeGit(t *testing.T, script string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "git")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake git: %v", err)
	}

	original := os.Getenv("PATH")
	pathEnv := strings.Join([]string{dir, original}, string(os.PathListSeparator))
	t.Setenv("PATH", pathEnv)
}

// isolate keeps user config out of the test and moves into a fresh
// directory, returned with symlinks resolved.
func isolate(t *testing.T) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", "")
	dir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)
	return dir
}

// fakeRepoGit answers like a repository rooted at root whose index has no
// stages, and appends every `git add` to root/added.log.
func fakeRepoGit(t *testing.T, root string) {
	t.Helper()
	withFakeGit(t, `#!/bin/sh
if [ "$1" = "rev-parse" ] && [ "$2" = "--show-toplevel" ]; then
  echo "`+root+`"
  exit 0
fi
if [ "$1" = "rev-parse" ] && [ "$2" = "--git-dir" ]; then
  echo ".git"
  exit 0
fi
if [ "$1" = "status" ]; then
  printf 'UU a.txt\nM  clean.txt\nDU gone.txt\n'
  exit 0
fi
if [ "$1" = "add" ]; then
  echo "$3" >> "`+root+`/added.log"
  exit 0
fi
echo "fatal: not available" 1>&2
exit 1
`)
}

func withStdout(t *testing.T, fn func()) string {
	t.Helper()
	f, err := os.CreateTemp("", "mend-stdout-*")
	if err != nil {
		t.Fatalf("temp stdout: %v", err)
	}
	old := os.Stdout
	os.Stdout = f
	defer func() {
		os.Stdout = old
		f.Close()
		os.Remove(f.Name())
	}()

	fn()

	data, err := os.ReadFile(f.Name())
	if err != nil {
		t.Fatalf("read stdout: %v", err)
	}
	return string(data)
}

func TestRunCheckExitCodes(t *testing.T) {
	tmpDir := isolate(t)

	resolvedPath := filepath.Join(tmpDir, "resolved.txt")
	if err := os.WriteFile(resolvedPath, []byte("ok\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	unresolvedPath := filepath.Join(tmpDir, "unresolved.txt")
	if err := os.WriteFile(unresolvedPath, []byte(conflicted), 0o644); err != nil {
		t.Fatal(err)
	}

	code := Run(context.Background(), cli.Options{Mode: cli.ModeCheck, Paths: []string{resolvedPath}})
	if code != 0 {
		t.Fatalf("resolved check exit code = %d, want 0", code)
	}

	var out string
	out = withStdout(t, func() {
		code = Run(context.Background(), cli.Options{Mode: cli.ModeCheck, Paths: []string{resolvedPath, unresolvedPath}})
	})
	if code != 1 {
		t.Fatalf("unresolved check exit code = %d, want 1", code)
	}
	if !strings.Contains(out, unresolvedPath) || strings.Contains(out, resolvedPath) {
		t.Fatalf("check output = %q", out)
	}

	code = Run(context.Background(), cli.Options{Mode: cli.ModeCheck, Paths: []string{unresolvedPath, filepath.Join(tmpDir, "missing.txt")}})
	if code != 2 {
		t.Fatalf("missing file exit code = %d, want 2", code)
	}
}

func TestRunApplyAllWithoutRepo(t *testing.T) {
	tmpDir := isolate(t)
	withFakeGit(t, "#!/bin/sh\necho 'fatal: not a git repository' 1>&2\nexit 128\n")

	mergedPath := filepath.Join(tmpDir, "merged.txt")
	if err := os.WriteFile(mergedPath, []byte(conflicted), 0o644); err != nil {
		t.Fatal(err)
	}

	code := Run(context.Background(), cli.Options{Mode: cli.ModeApplyAll, ApplyAll: "ours", Path: mergedPath})
	if code != 0 {
		t.Fatalf("apply-all exit code = %d, want 0", code)
	}
	data, err := os.ReadFile(mergedPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "line1\nlocal change\nline3\n" {
		t.Fatalf("resolved content mismatch: %q", string(data))
	}

	code = Run(context.Background(), cli.Options{Mode: cli.ModeApplyAll, ApplyAll: "ours", Path: filepath.Join(tmpDir, "missing.txt")})
	if code != 2 {
		t.Fatalf("apply-all error exit code = %d, want 2", code)
	}
}

func TestRunApplyAllInRepoMarksResolved(t *testing.T) {
	root := isolate(t)
	fakeRepoGit(t, root)

	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte(conflicted), 0o644); err != nil {
		t.Fatal(err)
	}

	out := withStdout(t, func() {
		if code := Run(context.Background(), cli.Options{Mode: cli.ModeApplyAll, ApplyAll: "theirs", Path: "a.txt", Backup: true, BackupSet: true}); code != 0 {
			t.Fatalf("apply-all exit code = %d, want 0", code)
		}
	})
	if !strings.Contains(out, "Resolved 1 conflict(s) in a.txt with theirs") {
		t.Fatalf("output = %q", out)
	}

	data, err := os.ReadFile(filepath.Join(root, "a.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "line1\nremote change\nline3\n" {
		t.Fatalf("resolved content mismatch: %q", string(data))
	}
	if backup, err := os.ReadFile(filepath.Join(root, "a.txt.mend.bak")); err != nil || string(backup) != conflicted {
		t.Fatalf("backup = %q, err = %v", backup, err)
	}
	added, err := os.ReadFile(filepath.Join(root, "added.log"))
	if err != nil {
		t.Fatalf("git add was not called: %v", err)
	}
	if strings.TrimSpace(string(added)) != "a.txt" {
		t.Fatalf("added = %q", added)
	}
}

func TestRunApplyAllNoAddLeavesIndex(t *testing.T) {
	root := isolate(t)
	fakeRepoGit(t, root)

	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte(conflicted), 0o644); err != nil {
		t.Fatal(err)
	}
	withStdout(t, func() {
		if code := Run(context.Background(), cli.Options{Mode: cli.ModeApplyAll, ApplyAll: "ours", Path: "a.txt", NoAdd: true}); code != 0 {
			t.Fatalf("apply-all exit code = %d, want 0", code)
		}
	})
	if _, err := os.Stat(filepath.Join(root, "added.log")); !os.IsNotExist(err) {
		t.Fatalf("--no-add should not run git add, stat err = %v", err)
	}
}

func TestRunApplyAllMalformedFails(t *testing.T) {
	root := isolate(t)
	fakeRepoGit(t, root)

	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("<<<<<<< HEAD\nx\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if code := Run(context.Background(), cli.Options{Mode: cli.ModeApplyAll, ApplyAll: "ours", Path: "a.txt"}); code != 2 {
		t.Fatalf("malformed exit code = %d, want 2", code)
	}
}

func TestRunList(t *testing.T) {
	root := isolate(t)
	fakeRepoGit(t, root)

	var code int
	out := withStdout(t, func() {
		code = Run(context.Background(), cli.Options{Mode: cli.ModeList})
	})
	if code != 1 {
		t.Fatalf("list exit code = %d, want 1", code)
	}
	if !strings.Contains(out, "UU a.txt (both modified)") || !strings.Contains(out, "DU gone.txt (deleted by us)") {
		t.Fatalf("list output = %q", out)
	}
	if strings.Contains(out, "clean.txt") {
		t.Fatalf("list should skip non-conflicted entries: %q", out)
	}
}

func TestRunStageLineOutsideRepo(t *testing.T) {
	root := isolate(t)
	fakeRepoGit(t, root)

	code := Run(context.Background(), cli.Options{Mode: cli.ModeStageLine, Path: "../elsewhere.txt"})
	if code != 2 {
		t.Fatalf("stage-line exit code = %d, want 2", code)
	}
}

func TestRunInvalidConfig(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("undo_limit: 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if code := Run(context.Background(), cli.Options{Mode: cli.ModeList, ConfigPath: path}); code != 2 {
		t.Fatalf("invalid config exit code = %d, want 2", code)
	}
}

func TestRunInitConfig(t *testing.T) {
	dir := isolate(t)

	withStdout(t, func() {
		if code := Run(context.Background(), cli.Options{Mode: cli.ModeInitConfig}); code != 0 {
			t.Fatalf("init-config exit code = %d, want 0", code)
		}
	})
	if _, err := os.Stat(filepath.Join(dir, ".mend", "config.yaml")); err != nil {
		t.Fatalf("config not written: %v", err)
	}

	if code := Run(context.Background(), cli.Options{Mode: cli.ModeInitConfig}); code != 2 {
		t.Fatalf("existing config exit code = %d, want 2", code)
	}
	withStdout(t, func() {
		if code := Run(context.Background(), cli.Options{Mode: cli.ModeInitConfig, Force: true}); code != 0 {
			t.Fatalf("forced init-config exit code = %d, want 0", code)
		}
	})
}

func TestSetupLoggingWritesConfiguredFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mend.log")

	cleanup := setupLogging(configWithLog(path), false)
	defer log.SetOutput(nil, log.LevelInfo)
	defer cleanup()
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("log file not created: %v", err)
	}

	noop := setupLogging(configWithLog(""), false)
	noop()
}

func configWithLog(path string) config.Config {
	cfg := config.Defaults()
	cfg.Log.Path = path
	return cfg
}

func TestRepoPath(t *testing.T) {
	root := filepath.FromSlash("/repo")
	tests := []struct {
		cwd, arg, want string
		ok             bool
	}{
		{"/repo", "a.txt", "a.txt", true},
		{"/repo/sub", "b.txt", "sub/b.txt", true},
		{"/repo/sub", "/repo/c.txt", "c.txt", true},
		{"/repo", "../x.txt", "", false},
		{"/repo", ".", "", false},
	}
	for _, tt := range tests {
		got, err := repoPath(root, filepath.FromSlash(tt.cwd), filepath.FromSlash(tt.arg))
		if (err == nil) != tt.ok {
			t.Fatalf("repoPath(%q, %q) error = %v", tt.cwd, tt.arg, err)
		}
		if got != tt.want {
			t.Fatalf("repoPath(%q, %q) = %q, want %q", tt.cwd, tt.arg, got, tt.want)
		}
	}
}

func TestScopeOf(t *testing.T) {
	if got := scopeOf("/repo", "/repo/sub/dir"); got != "sub/dir" {
		t.Fatalf("scopeOf = %q", got)
	}
	if got := scopeOf("/repo", "/repo"); got != "." {
		t.Fatalf("scopeOf root = %q", got)
	}
	if got := scopeOf("/repo", "/elsewhere"); got != "." {
		t.Fatalf("scopeOf outside = %q", got)
	}
}

func TestRunApplyAllCleanFileOnlyMarksResolved(t *testing.T) {
	root := isolate(t)
	fakeRepoGit(t, root)

	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("fixed by hand\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	withStdout(t, func() {
		if code := Run(context.Background(), cli.Options{Mode: cli.ModeApplyAll, ApplyAll: "ours", Path: "a.txt"}); code != 0 {
			t.Fatalf("apply-all exit code = %d, want 0", code)
		}
	})
	added, err := os.ReadFile(filepath.Join(root, "added.log"))
	if err != nil || strings.TrimSpace(string(added)) != "a.txt" {
		t.Fatalf("added = %q, err = %v", added, err)
	}
}
