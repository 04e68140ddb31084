package receipt

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"
)

// Storage defines the interface for moving processed receipts out of the inbox
type Storage interface {
	// Archive moves the file at path into dir and returns its new location
	Archive(path string, dir string) (string, error)
}

// LocalStorage implements the Storage interface on the local filesystem
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates a new LocalStorage rooted at basePath
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}
	return &LocalStorage{basePath: basePath}, nil
}

// Root returns the archive root directory
func (l *LocalStorage) Root() string {
	return l.basePath
}

// Archive moves the file into basePath/dir. Existing files are never overwritten;
// the new file gets a numeric suffix instead (beleg_1.pdf, beleg_2.pdf, ...).
func (l *LocalStorage) Archive(path string, dir string) (string, error) {
	targetDir := filepath.Join(l.basePath, dir)
	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return "", fmt.Errorf("creating archive directory: %w", err)
	}

	target, err := UniquePath(targetDir, filepath.Base(path))
	if err != nil {
		return "", err
	}

	if err := MoveFile(path, target); err != nil {
		return "", err
	}
	return target, nil
}

// UniquePath returns dir/name, or dir/stem_N.ext for the first free N
func UniquePath(dir, name string) (string, error) {
	target := filepath.Join(dir, name)
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	for counter := 1; ; counter++ {
		_, err := os.Stat(target)
		if errors.Is(err, fs.ErrNotExist) {
			return target, nil
		}
		if err != nil {
			return "", fmt.Errorf("checking %s: %w", target, err)
		}
		target = filepath.Join(dir, fmt.Sprintf("%s_%d%s", stem, counter, ext))
	}
}

// MoveFile renames src to dst, copying across filesystems when needed
func MoveFile(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return fmt.Errorf("moving file: %w", err)
	}

	if err := CopyFile(src, dst); err != nil {
		return err
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("removing source after copy: %w", err)
	}
	return nil
}

// CopyFile copies src to dst, keeping the file mode
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening source: %w", err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("reading source info: %w", err)
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("creating target: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("copying file: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("closing target: %w", err)
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
