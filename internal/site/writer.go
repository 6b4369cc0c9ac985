package site

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Writer writes generated files below a root directory.
//
// Every write goes to a temporary file in the target directory and is
// renamed into place, so readers never observe a half-written page.
type Writer struct {
	root string
}

// NewWriter returns a writer rooted at dir.
func NewWriter(dir string) *Writer {
	return &Writer{root: dir}
}

// Root returns the output directory.
func (w *Writer) Root() string { return w.root }

// resolve maps a slash separated path relative to the root onto the
// filesystem, rejecting anything that would escape the root.
func (w *Writer) resolve(relativePath string) (string, error) {
	if w.root == "" {
		return "", errors.New("output directory is required")
	}
	if relativePath == "" {
		return "", errors.New("output path is required")
	}

	cleanRel := filepath.Clean(filepath.FromSlash(relativePath))
	if filepath.IsAbs(cleanRel) || cleanRel == ".." || strings.HasPrefix(cleanRel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("output path must be relative to the site root: %s", relativePath)
	}

	fullPath := filepath.Join(w.root, cleanRel)
	rel, err := filepath.Rel(w.root, fullPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("output path escapes the site root: %s", relativePath)
	}
	return fullPath, nil
}

// Write replaces relativePath with content and returns the full path.
func (w *Writer) Write(relativePath string, content []byte) (string, error) {
	fullPath, err := w.resolve(relativePath)
	if err != nil {
		return "", err
	}
	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(fullPath)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("write %s: %w", relativePath, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("chmod %s: %w", relativePath, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", relativePath, err)
	}
	if err := os.Rename(tmpName, fullPath); err != nil {
		return "", fmt.Errorf("rename into place %s: %w", relativePath, err)
	}
	return fullPath, nil
}

// Remove deletes relativePath. A missing file is not an error.
func (w *Writer) Remove(relativePath string) error {
	fullPath, err := w.resolve(relativePath)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", relativePath, err)
	}
	return nil
}

// Exists reports whether relativePath is present.
func (w *Writer) Exists(relativePath string) bool {
	fullPath, err := w.resolve(relativePath)
	if err != nil {
		return false
	}
	_, err = os.Stat(fullPath)
	return err == nil
}

// RemoveDir deletes a generated directory such as tags/ or page/.
func (w *Writer) RemoveDir(relativePath string) error {
	fullPath, err := w.resolve(relativePath)
	if err != nil {
		return err
	}
	if fullPath == filepath.Clean(w.root) {
		return errors.New("refusing to remove the site root")
	}
	if err := os.RemoveAll(fullPath); err != nil {
		return fmt.Errorf("remove %s: %w", relativePath, err)
	}
	return nil
}
