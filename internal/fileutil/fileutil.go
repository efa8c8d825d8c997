package fileutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// WriteNew creates path with data only when it does not exist yet. Parent
// directories are created as needed. It reports false without touching the
// file when a regular file is already present; any other kind of entry at
// path is an error.
func WriteNew(path string, data []byte, mode os.FileMode) (bool, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("create parent directory: %w", err)
	}

	out, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, mode)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			info, statErr := os.Lstat(path)
			if statErr != nil {
				return false, statErr
			}
			if !info.Mode().IsRegular() {
				return false, fmt.Errorf("%s exists and is not a regular file (%s)", path, info.Mode().Type())
			}
			return false, nil
		}
		return false, err
	}

	if _, err := out.Write(data); err != nil {
		_ = out.Close()
		_ = os.Remove(path)
		return false, err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(path)
		return false, err
	}
	return true, nil
}
