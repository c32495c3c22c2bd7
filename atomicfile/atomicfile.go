// Package atomicfile writes files so that readers never observe a partially
// written result.
package atomicfile

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// WriteFile writes data to path by writing a temporary file in the same
// directory and renaming it over path. An existing file at path is replaced.
//
// The parent directory must already exist; WriteFile never creates it.
func WriteFile(path string, data []byte, perm os.FileMode) error {
	dir, name := filepath.Split(path)
	if dir == "" {
		dir = "."
	}

	tmp, err := os.CreateTemp(dir, "."+name+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}

	tmpName := tmp.Name()

	defer func() {
		//nolint:errcheck // The file is already closed on success.
		tmp.Close()
		//nolint:errcheck // The file is already renamed on success.
		os.Remove(tmpName)
	}()

	_, err = tmp.Write(data)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	err = tmp.Chmod(perm)
	if err != nil && runtime.GOOS != "windows" {
		return fmt.Errorf("chmod %s: %w", path, err)
	}

	err = tmp.Close()
	if err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}

	err = os.Rename(tmpName, path)
	if err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}

	return nil
}
