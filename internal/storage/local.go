package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// LocalStore is a filesystem stand-in for a remote store, used in
// development. Folders are directories under baseDir and every upload gets
// its own subdirectory so repeated uploads never overwrite each other.
type LocalStore struct {
	baseDir string
}

var _ Store = (*LocalStore)(nil)

func NewLocalStore(baseDir string) (*LocalStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	return &LocalStore{baseDir: baseDir}, nil
}

func (l *LocalStore) FindFolders(ctx context.Context, name string) ([]string, error) {
	if err := validateFolderName(name); err != nil {
		return nil, err
	}

	info, err := os.Stat(filepath.Join(l.baseDir, name))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, nil
	}

	return []string{name}, nil
}

func (l *LocalStore) CreateFolder(ctx context.Context, name string) (string, error) {
	if err := validateFolderName(name); err != nil {
		return "", err
	}

	if err := os.Mkdir(filepath.Join(l.baseDir, name), 0755); err != nil && !os.IsExist(err) {
		return "", fmt.Errorf("failed to create folder: %w", err)
	}

	return name, nil
}

func (l *LocalStore) CreateFile(ctx context.Context, f *FileUpload) (string, error) {
	if err := validateFolderName(f.ParentID); err != nil {
		return "", err
	}

	id := objectKey(f.ParentID, uuid.NewString(), filepath.Base(f.Name))
	dest := filepath.Join(l.baseDir, filepath.FromSlash(id))

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	out, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, f.Body); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return id, nil
}

// Path returns where the object with the given identifier lives on disk.
func (l *LocalStore) Path(id string) string {
	return filepath.Join(l.baseDir, filepath.FromSlash(id))
}
