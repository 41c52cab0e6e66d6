package utils

import (
	"bytes"
	"errors"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
)

// WriteFileAtomic replaces path with data. The bytes go to a temporary file in
// the same directory which is synced and then renamed over path, so readers
// see either the old content or the new one, never a prefix.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := ioutil.TempFile(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temporary file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing temporary file: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("setting temporary file mode: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("syncing temporary file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temporary file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming into place: %w", err)
	}

	// Make the rename itself durable.
	if dir, err := os.Open(filepath.Dir(path)); err == nil {
		dir.Sync()
		dir.Close()
	}
	return nil
}

// FileExists reports whether path exists. Errors other than "not exist" are returned.
func FileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// ReadKeyFile reads a shared secret from fPath. A single trailing newline is dropped.
func ReadKeyFile(fPath string) ([]byte, error) {
	if fPath == "" {
		return nil, errors.New("file path is missing")
	}
	fileContent, err := ioutil.ReadFile(fPath)
	if err != nil {
		return nil, err
	}
	fileContent = bytes.TrimSuffix(fileContent, []byte("\n"))
	fileContent = bytes.TrimSuffix(fileContent, []byte("\r"))
	if len(fileContent) == 0 {
		return nil, fmt.Errorf("key file %s is empty", fPath)
	}
	return fileContent, nil
}
