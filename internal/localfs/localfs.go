// Package localfs enumerates the local files a batch run uploads.
package localfs

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/user"
	"path/filepath"
	"strings"
)

// ExpandHome replaces a leading "~" with the current user's home directory
// and a leading "~name" with the home directory of user name.
func ExpandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	name, rest, _ := strings.Cut(path[1:], "/")
	if name == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to resolve home directory: %w", err)
		}
		return filepath.Join(home, rest), nil
	}

	u, err := user.Lookup(name)
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory of %s: %w", name, err)
	}

	return filepath.Join(u.HomeDir, rest), nil
}

// IsDir reports whether path exists and is a directory.
func IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// CheckReadable returns an error unless the directory at path can be
// listed.
func CheckReadable(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.ReadDir(1); err != nil && err != io.EOF {
		return err
	}
	return nil
}

// SkipFunc is called for every directory that cannot be read.
type SkipFunc func(path string, err error)

// ListFiles returns every regular file below root in walk order. Directories
// are traversed but never returned. Symlinks are followed only when they
// point at regular files. Unreadable subdirectories are reported to skip and
// left out.
func ListFiles(root string, skip SkipFunc) ([]string, error) {
	var files []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			if skip != nil {
				skip(path, err)
			}
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		switch {
		case d.IsDir():
			return nil
		case d.Type().IsRegular():
			files = append(files, path)
		case d.Type()&fs.ModeSymlink != 0:
			if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
				files = append(files, path)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	return files, nil
}
