// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// =============================================================================
// FILE REPLACEMENT
// =============================================================================

// ReplaceFile writes data to path through a synced temp file and a rename,
// so a crash leaves either the old manuscript or the new one on disk.
//
// An existing file keeps its mode and perm applies only to a new file.
// A symlinked path is followed and the link itself is left in place.
// Missing parent directories are created.
func ReplaceFile(path string, data []byte, perm os.FileMode) error {
	target, mode, err := resolveTarget(path, perm)
	if err != nil {
		return err
	}

	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	// The temp file must share a filesystem with target for the rename.
	f, err := os.CreateTemp(dir, "."+filepath.Base(target)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmp := f.Name()
	keep := false
	defer func() {
		if !keep {
			f.Close()
			os.Remove(tmp)
		}
	}()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	if err := os.Chmod(tmp, mode); err != nil {
		return fmt.Errorf("chmod %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("replace %s: %w", target, err)
	}
	keep = true
	return nil
}

// resolveTarget returns the absolute file ReplaceFile should write and the
// mode it should end up with.
func resolveTarget(path string, perm os.FileMode) (string, os.FileMode, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", 0, fmt.Errorf("resolve %s: %w", path, err)
	}

	resolved, err := filepath.EvalSymlinks(abs)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return abs, perm, nil
	case err != nil:
		return "", 0, fmt.Errorf("resolve %s: %w", path, err)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return "", 0, fmt.Errorf("stat %s: %w", resolved, err)
	}
	if info.IsDir() {
		return "", 0, fmt.Errorf("%s is a directory", path)
	}
	return resolved, info.Mode().Perm(), nil
}
