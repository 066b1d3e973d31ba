package engine

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chojs23/mend/internal/log"
	"github.com/chojs23/mend/internal/markers"
	"github.com/chojs23/mend/internal/resolve"
)

// BackupSuffix is appended to the merged path when a backup is requested.
const BackupSuffix = ".mend.bak"

func CheckResolvedFile(mergedPath string) (bool, error) {
	data, err := os.ReadFile(mergedPath)
	if err != nil {
		return false, fmt.Errorf("read merged: %w", err)
	}

	res := markers.Parse(data)
	if res.Err != nil {
		// Treat malformed markers as an error to avoid false success.
		return false, res.Err
	}

	return res.ConflictCount == 0, nil
}

// ApplyAllAndWrite resolves every conflict in path with one side and
// rewrites the file in place. A file without conflicts is left untouched.
func ApplyAllAndWrite(mergedPath string, side resolve.Side, backup bool) error {
	mergedBytes, err := os.ReadFile(mergedPath)
	if err != nil {
		return fmt.Errorf("read merged: %w", err)
	}
	res := markers.Parse(mergedBytes)
	if res.Err != nil {
		return res.Err
	}
	if res.ConflictCount == 0 {
		// No conflicts detected: exit 0 without writing.
		return nil
	}

	state, err := NewState(res.Document, 1)
	if err != nil {
		return err
	}
	if err := state.ApplySideAll(side); err != nil {
		return err
	}
	resolved := state.Preview()

	if bytes.Equal(resolved, mergedBytes) {
		return nil
	}

	if backup {
		if err := WriteBackup(mergedPath, mergedBytes); err != nil {
			return err
		}
	}

	if err := os.WriteFile(mergedPath, resolved, 0o644); err != nil {
		return fmt.Errorf("write merged: %w", err)
	}

	// Verify no conflict markers remain.
	if err := VerifyResolved(resolved); err != nil {
		return err
	}

	log.Info(log.CatResolve, "applied side to all conflicts", "path", mergedPath, "side", side, "conflicts", res.ConflictCount)
	return nil
}

// WriteBackup stores the pre-resolution bytes next to mergedPath.
func WriteBackup(mergedPath string, original []byte) error {
	bak := mergedPath + BackupSuffix
	if err := os.WriteFile(bak, original, 0o644); err != nil {
		return fmt.Errorf("write backup %s: %w", filepath.Base(bak), err)
	}
	return nil
}

// VerifyResolved re-parses composed output and fails if any conflict block
// survived.
func VerifyResolved(output []byte) error {
	post := markers.Parse(output)
	if post.ConflictCount != 0 {
		return errors.New("resolution output still contains conflict markers")
	}
	return nil
}
