package apply

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/patchvet/patchvet/internal/diff"
)

// Tree is read/write access to the target file tree, rooted at a directory.
// All paths handed to it are patch-header paths; Resolve applies the -p
// strip convention and refuses anything escaping the root.
type Tree struct {
	root string
}

func NewTree(root string) (*Tree, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("tree root %s is not a directory", root)
	}
	return &Tree{root: abs}, nil
}

// Root returns the absolute root directory.
func (t *Tree) Root() string { return t.root }

// Resolve strips the first `strip` components from a header path and joins
// it under the root. Paths that resolve outside the root are rejected.
func (t *Tree) Resolve(headerPath string, strip int) (rel string, abs string, err error) {
	rel = diff.PathStrip(headerPath, strip)
	if rel == "" {
		return "", "", fmt.Errorf("empty path after stripping %d components from %q", strip, headerPath)
	}
	abs = filepath.Clean(filepath.Join(t.root, filepath.FromSlash(rel)))
	if escaped, relErr := filepath.Rel(t.root, abs); relErr != nil || strings.HasPrefix(escaped, "..") {
		return "", "", fmt.Errorf("path %q escapes tree root", headerPath)
	}
	return rel, abs, nil
}

// ReadFile returns the file content and whether the file exists.
func (t *Tree) ReadFile(abs string) (string, bool, error) {
	data, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, err
	}
	return string(data), true, nil
}

// Exists reports whether a regular file exists at abs.
func (t *Tree) Exists(abs string) bool {
	info, err := os.Stat(abs)
	return err == nil && info.Mode().IsRegular()
}

// WriteFileAtomic writes content via temp file + rename in the target
// directory, creating parent directories as needed. mode 0 keeps the
// existing permissions, or 0644 for new files.
func (t *Tree) WriteFileAtomic(abs, content string, mode fs.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return fmt.Errorf("create parent directory: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(abs), ".patchvet-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tempPath := tempFile.Name()
	defer os.Remove(tempPath)

	if _, err := tempFile.WriteString(content); err != nil {
		tempFile.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if mode == 0 {
		if info, statErr := os.Stat(abs); statErr == nil {
			mode = info.Mode().Perm()
		} else {
			mode = 0644
		}
	}
	_ = os.Chmod(tempPath, mode)

	if err := os.Rename(tempPath, abs); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// Remove deletes a file.
func (t *Tree) Remove(abs string) error {
	return os.Remove(abs)
}

// Rename moves a file, creating the target's parent directories.
func (t *Tree) Rename(oldAbs, newAbs string) error {
	if err := os.MkdirAll(filepath.Dir(newAbs), 0755); err != nil {
		return err
	}
	return os.Rename(oldAbs, newAbs)
}

// Chmod applies the permission bits of a git octal mode string such as
// "100755". Unparseable modes are ignored rather than fatal.
func (t *Tree) Chmod(abs, gitMode string) error {
	mode, ok := parseGitMode(gitMode)
	if !ok {
		return nil
	}
	return os.Chmod(abs, mode)
}

func parseGitMode(s string) (fs.FileMode, bool) {
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return 0, false
	}
	return fs.FileMode(n) & fs.ModePerm, true
}
