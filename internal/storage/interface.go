package storage

import (
	"context"
	"io"
)

// FolderMIMEType marks Drive objects that are folders.
const FolderMIMEType = "application/vnd.google-apps.folder"

// FileUpload describes a single file object to create on the remote store.
type FileUpload struct {
	Name        string
	ParentID    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Store defines the capabilities the batch uploader needs from a remote
// store. Drive, R2 and the local development store all implement it.
type Store interface {
	// FindFolders returns the identifiers of non-trashed folders whose name
	// is exactly name, in store-defined order.
	FindFolders(ctx context.Context, name string) ([]string, error)
	// CreateFolder creates a folder called name and returns its identifier.
	CreateFolder(ctx context.Context, name string) (string, error)
	// CreateFile streams f.Body into a new object under f.ParentID and
	// returns the new object's identifier.
	CreateFile(ctx context.Context, f *FileUpload) (string, error)
}
