// Package history persists classification records as a single document on disk.
//
// Every mutation rewrites the whole document: the new content goes to a temp file
// in the same directory, is fsynced and then renamed over the target, so readers
// never observe a partial write.
package history

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/mikey/mail-clarity/internal/core"
)

// readDocument returns the file content; a missing file yields exists=false
func readDocument(path string) (data []byte, exists bool, err error) {
	data, err = os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &core.StoreIOError{Op: "read", Path: path, Err: err}
	}
	return data, true, nil
}

// writeAtomic replaces path with data
func writeAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &core.StoreIOError{Op: "mkdir", Path: dir, Err: err}
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return &core.StoreIOError{Op: "write", Path: path, Err: err}
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return &core.StoreIOError{Op: "write", Path: path, Err: err}
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		return &core.StoreIOError{Op: "sync", Path: path, Err: err}
	}
	if err = tmp.Close(); err != nil {
		return &core.StoreIOError{Op: "close", Path: path, Err: err}
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return &core.StoreIOError{Op: "chmod", Path: path, Err: err}
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return &core.StoreIOError{Op: "rename", Path: path, Err: fmt.Errorf("replace %s: %w", path, err)}
	}
	return nil
}

// preserveCorrupt moves an unreadable document aside so that rewriting the store
// does not destroy it. It returns the new location.
func preserveCorrupt(path string) (string, error) {
	backup := fmt.Sprintf("%s.corrupt-%s", path, time.Now().UTC().Format("20060102T150405.000000000"))
	if err := os.Rename(path, backup); err != nil {
		return "", &core.StoreIOError{Op: "rename", Path: path, Err: err}
	}
	return backup, nil
}
