// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// FILE REPLACEMENT TESTS
// =============================================================================

func TestReplaceFile_NewManuscript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drafts", "chapter-01.txt")

	require.NoError(t, ReplaceFile(path, []byte("The storm broke at dawn."), 0644))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "The storm broke at dawn.", string(got))
}

func TestReplaceFile_NewFileGetsPerm(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions")
	}
	path := filepath.Join(t.TempDir(), "config.toml")

	require.NoError(t, ReplaceFile(path, []byte("[backend]\n"), 0600))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestReplaceFile_KeepsExistingMode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions")
	}
	path := filepath.Join(t.TempDir(), "chapter-01.txt")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0600))
	require.NoError(t, os.Chmod(path, 0640))

	require.NoError(t, ReplaceFile(path, []byte("new"), 0644))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0640), info.Mode().Perm(), "saving must not loosen or tighten a manuscript")
	got, _ := os.ReadFile(path)
	assert.Equal(t, "new", string(got))
}

func TestReplaceFile_FollowsSymlink(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges")
	}
	dir := t.TempDir()
	chapter := filepath.Join(dir, "book", "chapter-01.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(chapter), 0755))
	require.NoError(t, os.WriteFile(chapter, []byte("old"), 0644))
	link := filepath.Join(dir, "current.txt")
	require.NoError(t, os.Symlink(chapter, link))

	require.NoError(t, ReplaceFile(link, []byte("new"), 0644))

	fi, err := os.Lstat(link)
	require.NoError(t, err)
	assert.NotZero(t, fi.Mode()&os.ModeSymlink, "link must survive the save")
	got, _ := os.ReadFile(chapter)
	assert.Equal(t, "new", string(got))
}

func TestReplaceFile_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chapter-01.txt")
	require.NoError(t, ReplaceFile(path, []byte("one"), 0644))
	require.NoError(t, ReplaceFile(path, []byte("two"), 0644))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "chapter-01.txt", entries[0].Name())
}

func TestReplaceFile_RejectsDirectory(t *testing.T) {
	dir := t.TempDir()
	err := ReplaceFile(dir, []byte("text"), 0644)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is a directory")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// =============================================================================
// STRING TESTS
// =============================================================================

func TestTruncateRunes(t *testing.T) {
	testCases := []struct {
		input    string
		maxRunes int
		expected string
	}{
		{"hello world", 5, "he..."},
		{"hello", 5, "hello"},
		{"", 5, ""},
		{"hello world", 0, ""},
		{"abcd", 3, "abc"}, // no room for an ellipsis
		{"héllo wörld", 6, "hél..."},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			result := TruncateRunes(tc.input, tc.maxRunes)
			if result != tc.expected {
				t.Errorf("TruncateRunes(%q, %d) = %q, want %q",
					tc.input, tc.maxRunes, result, tc.expected)
			}
		})
	}
}

func TestStringWidth(t *testing.T) {
	testCases := []struct {
		input    string
		expected int
	}{
		{"hello", 5},
		{"", 0},
		{"日本語", 6},
		{"hello世界", 9},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			if result := StringWidth(tc.input); result != tc.expected {
				t.Errorf("StringWidth(%q) = %d, want %d", tc.input, result, tc.expected)
			}
		})
	}
}

func TestTruncateWidth(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		maxWidth int
		expected string
	}{
		{"fits", "hello", 10, "hello"},
		{"exact", "hello", 5, "hello"},
		{"ascii", "hello world", 8, "hello..."},
		{"cjk", "日本語です", 7, "日本..."},
		{"tiny", "hello", 2, "he"},
		{"zero", "hello", 0, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := TruncateWidth(tc.input, tc.maxWidth)
			if result != tc.expected {
				t.Errorf("TruncateWidth(%q, %d) = %q, want %q", tc.input, tc.maxWidth, result, tc.expected)
			}
			if StringWidth(result) > tc.maxWidth {
				t.Errorf("TruncateWidth(%q, %d) is %d columns wide", tc.input, tc.maxWidth, StringWidth(result))
			}
		})
	}
}

func TestPadRight(t *testing.T) {
	if got := PadRight("日本", 6); got != "日本  " {
		t.Errorf("PadRight = %q", got)
	}
	if got := PadRight("toolong", 3); got != "toolong" {
		t.Errorf("PadRight should not cut, got %q", got)
	}
}

func TestOneLine(t *testing.T) {
	if got := OneLine("  The storm\n\tbroke   at dawn. "); got != "The storm broke at dawn." {
		t.Errorf("OneLine = %q", got)
	}
}
