// File: internal/backup/atomic.go
package backup

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrContentMismatch is returned when a staged write does not read back
// byte-for-byte identical to the intended content.
var ErrContentMismatch = errors.New("staged content does not match intended content")

// Overridable for tests.
var (
	osCreateTemp = os.CreateTemp
	osReadFile   = os.ReadFile
	osRename     = os.Rename
)

// WriteFileAtomic stages data in a temporary file next to path, reads it back
// and compares, then renames it over path. The target is untouched unless
// every step before the rename succeeds.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := osCreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to stage write: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write staged file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync staged file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close staged file: %w", err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return fmt.Errorf("failed to set permissions on staged file: %w", err)
	}

	readBack, err := osReadFile(tmpName)
	if err != nil {
		return fmt.Errorf("failed to read back staged file: %w", err)
	}
	if !bytes.Equal(readBack, data) {
		return fmt.Errorf("%w: wrote %d bytes, read %d", ErrContentMismatch, len(data), len(readBack))
	}

	if err := osRename(tmpName, path); err != nil {
		return fmt.Errorf("failed to move staged file into place: %w", err)
	}
	committed = true
	return nil
}
