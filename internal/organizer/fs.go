package organizer

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/Veraticus/librarian/internal/common"
)

// uniquePath returns dest, or dest with a " (n)" suffix when dest already exists.
func uniquePath(dest string) (string, error) {
	if _, err := os.Lstat(dest); errors.Is(err, os.ErrNotExist) {
		return dest, nil
	} else if err != nil {
		return "", fmt.Errorf("failed to check destination: %w", err)
	}

	dir := filepath.Dir(dest)
	base := filepath.Base(dest)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	for i := 1; i < 10000; i++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s (%d)%s", stem, i, ext))
		if _, err := os.Lstat(candidate); errors.Is(err, os.ErrNotExist) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %s", common.ErrDestinationExists, dest)
}

// moveFile renames src to dest, creating the destination directory and falling
// back to copy and remove across filesystems. It never overwrites dest.
func moveFile(src, dest string) error {
	if _, err := os.Lstat(src); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", common.ErrSourceMissing, src)
		}
		return fmt.Errorf("failed to stat source: %w", err)
	}
	if _, err := os.Lstat(dest); err == nil {
		return fmt.Errorf("%w: %s", common.ErrDestinationExists, dest)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	err := os.Rename(src, dest)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return err
	}

	if err := copyFile(src, dest); err != nil {
		_ = os.Remove(dest)
		return err
	}
	return os.Remove(src)
}

func copyFile(src, dest string) error {
	in, err := os.Open(src) //nolint:gosec // source comes from the index
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}
	defer func() { _ = in.Close() }()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat source: %w", err)
	}

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm()) //nolint:gosec // destination is derived from configured folders
	if err != nil {
		return fmt.Errorf("failed to create destination: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to copy file: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close destination: %w", err)
	}

	return os.Chtimes(dest, info.ModTime(), info.ModTime())
}
