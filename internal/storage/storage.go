// Package storage implements the on-disk file contracts: the permanent
// markdown store, the four-section ephemeral buffer, the reminder checklist,
// and the JSON state record. All writes go through an atomic replace.
package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// StorageError wraps a recoverable file-level failure. Callers may retry or
// report it; it never indicates corrupted in-memory state.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op, path string, err error) error {
	return &StorageError{Op: op, Path: path, Err: err}
}

// IsStorageError reports whether err is (or wraps) a StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// Fingerprint hashes store content. The empty fingerprint "" is reserved for
// a missing store so that first run against no file reads as "not stale".
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// WriteFileAtomic writes data via a temp file in the same directory followed
// by a rename. If the rename fails (some platforms refuse to replace a file
// another process holds open) it falls back to a direct write.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return storageErr("mkdir", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return storageErr("create temp", path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return storageErr("write", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return storageErr("close", path, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		// Rename-over-existing can fail on Windows when the target is open.
		if werr := os.WriteFile(path, data, 0o644); werr != nil {
			return storageErr("replace", path, err)
		}
	}
	return nil
}

// readFile returns the file contents, ok=false when the file does not exist.
func readFile(path string) ([]byte, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, storageErr("read", path, err)
	}
	return data, true, nil
}
