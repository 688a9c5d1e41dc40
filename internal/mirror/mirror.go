// Package mirror performs the physical-side directory and file operations
// that track catalog mutations. All paths are relative slug paths resolved
// against the upload root; the package never touches the catalog.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var ErrOutsideRoot = errors.New("path escapes the upload root")

type Mirror struct {
	root    string
	timeout time.Duration
}

// New returns a Mirror rooted at root. Operations taking longer than timeout
// fail; zero disables the bound.
func New(root string, timeout time.Duration) *Mirror {
	return &Mirror{root: filepath.Clean(root), timeout: timeout}
}

func (m *Mirror) Root() string {
	return m.root
}

// AbsPath resolves a relative slug path against the root, rejecting anything
// that would escape it.
func (m *Mirror) AbsPath(rel string) (string, error) {
	trimmed := strings.Trim(strings.TrimSpace(rel), "/")
	if trimmed == "" {
		return "", ErrOutsideRoot
	}
	full := filepath.Join(m.root, filepath.FromSlash(trimmed))
	if full != m.root && !strings.HasPrefix(full, m.root+string(filepath.Separator)) {
		return "", ErrOutsideRoot
	}
	return full, nil
}

// EnsureDirectory creates the directory (and missing ancestors) at rel.
// Succeeds if it already exists.
func (m *Mirror) EnsureDirectory(ctx context.Context, rel string) error {
	full, err := m.AbsPath(rel)
	if err != nil {
		return err
	}
	return m.run(ctx, "ensure directory", func() error {
		return os.MkdirAll(full, 0o755)
	})
}

// RenameDirectory moves the directory at oldRel to newRel, creating the
// destination's parent if needed. No-op when the source is missing or the
// paths are equal.
func (m *Mirror) RenameDirectory(ctx context.Context, oldRel, newRel string) error {
	oldFull, err := m.AbsPath(oldRel)
	if err != nil {
		return err
	}
	newFull, err := m.AbsPath(newRel)
	if err != nil {
		return err
	}
	if oldFull == newFull {
		return nil
	}
	return m.run(ctx, "rename directory", func() error {
		if _, statErr := os.Stat(oldFull); os.IsNotExist(statErr) {
			return nil
		}
		if mkErr := os.MkdirAll(filepath.Dir(newFull), 0o755); mkErr != nil {
			return mkErr
		}
		return os.Rename(oldFull, newFull)
	})
}

// DeleteDirectoryRecursive removes the directory at rel and everything below
// it. No-op when missing.
func (m *Mirror) DeleteDirectoryRecursive(ctx context.Context, rel string) error {
	full, err := m.AbsPath(rel)
	if err != nil {
		return err
	}
	return m.run(ctx, "delete directory", func() error {
		if _, statErr := os.Stat(full); os.IsNotExist(statErr) {
			return nil
		}
		return os.RemoveAll(full)
	})
}

// PlaceFile moves an uploaded temp file (absolute path, outside the root)
// to rel, creating the destination directory. Falls back to copy+remove when
// a rename crosses devices.
func (m *Mirror) PlaceFile(ctx context.Context, absSrc, rel string) error {
	full, err := m.AbsPath(rel)
	if err != nil {
		return err
	}
	return m.run(ctx, "place file", func() error {
		if mkErr := os.MkdirAll(filepath.Dir(full), 0o755); mkErr != nil {
			return mkErr
		}
		if renameErr := os.Rename(absSrc, full); renameErr == nil {
			return nil
		}
		return copyAndRemove(absSrc, full)
	})
}

// RenameFile renames a file within the root. No-op when the source is
// missing or the paths are equal.
func (m *Mirror) RenameFile(ctx context.Context, oldRel, newRel string) error {
	oldFull, err := m.AbsPath(oldRel)
	if err != nil {
		return err
	}
	newFull, err := m.AbsPath(newRel)
	if err != nil {
		return err
	}
	if oldFull == newFull {
		return nil
	}
	return m.run(ctx, "rename file", func() error {
		if _, statErr := os.Stat(oldFull); os.IsNotExist(statErr) {
			return nil
		}
		return os.Rename(oldFull, newFull)
	})
}

// MoveFile relocates a file across directories within the root, creating the
// destination directory. No-op when the source is missing.
func (m *Mirror) MoveFile(ctx context.Context, oldRel, newRel string) error {
	oldFull, err := m.AbsPath(oldRel)
	if err != nil {
		return err
	}
	newFull, err := m.AbsPath(newRel)
	if err != nil {
		return err
	}
	if oldFull == newFull {
		return nil
	}
	return m.run(ctx, "move file", func() error {
		if _, statErr := os.Stat(oldFull); os.IsNotExist(statErr) {
			return nil
		}
		if mkErr := os.MkdirAll(filepath.Dir(newFull), 0o755); mkErr != nil {
			return mkErr
		}
		if renameErr := os.Rename(oldFull, newFull); renameErr == nil {
			return nil
		}
		return copyAndRemove(oldFull, newFull)
	})
}

// RemoveFile deletes the file at rel. No-op when missing.
func (m *Mirror) RemoveFile(ctx context.Context, rel string) error {
	full, err := m.AbsPath(rel)
	if err != nil {
		return err
	}
	return m.run(ctx, "remove file", func() error {
		if _, statErr := os.Stat(full); os.IsNotExist(statErr) {
			return nil
		}
		return os.Remove(full)
	})
}

func (m *Mirror) DirectoryExists(rel string) bool {
	full, err := m.AbsPath(rel)
	if err != nil {
		return false
	}
	info, err := os.Stat(full)
	return err == nil && info.IsDir()
}

func (m *Mirror) FileExists(rel string) bool {
	full, err := m.AbsPath(rel)
	if err != nil {
		return false
	}
	info, err := os.Stat(full)
	return err == nil && !info.IsDir()
}

// run bounds a filesystem operation by the configured timeout. A timed-out
// operation keeps running in its goroutine but is reported as failed.
func (m *Mirror) run(ctx context.Context, op string, fn func() error) error {
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	}
}

func copyAndRemove(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
