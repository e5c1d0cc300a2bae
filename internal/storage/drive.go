package storage

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// DriveStore stores files in Google Drive using a service account.
type DriveStore struct {
	service   *drive.Service
	chunkSize int
}

var _ Store = (*DriveStore)(nil)

var queryEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// NewDriveStore authenticates with the given service account key and
// returns a store with full Drive scope.
func NewDriveStore(ctx context.Context, serviceAccountJSON []byte, chunkSize int) (*DriveStore, error) {
	creds, err := google.CredentialsFromJSON(ctx, serviceAccountJSON, drive.DriveScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse service account credentials: %w", err)
	}

	return NewDriveStoreWithOptions(ctx, chunkSize, option.WithCredentials(creds))
}

// NewDriveStoreWithOptions builds a store from raw client options. Tests use
// it to point the client at a local endpoint.
func NewDriveStoreWithOptions(ctx context.Context, chunkSize int, opts ...option.ClientOption) (*DriveStore, error) {
	service, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Drive service: %w", err)
	}

	if chunkSize <= 0 {
		chunkSize = googleapi.DefaultUploadChunkSize
	}

	return &DriveStore{service: service, chunkSize: chunkSize}, nil
}

// FindFolders lists non-trashed folders named exactly name, oldest first.
func (d *DriveStore) FindFolders(ctx context.Context, name string) ([]string, error) {
	q := fmt.Sprintf("name='%s' and mimeType='%s' and trashed=false", queryEscaper.Replace(name), FolderMIMEType)

	var ids []string
	err := d.service.Files.List().
		Q(q).
		Spaces("drive").
		OrderBy("createdTime").
		Fields("nextPageToken, files(id)").
		Pages(ctx, func(page *drive.FileList) error {
			for _, f := range page.Files {
				ids = append(ids, f.Id)
			}
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}

	return ids, nil
}

// CreateFolder creates a folder at the root of the service account's Drive.
func (d *DriveStore) CreateFolder(ctx context.Context, name string) (string, error) {
	folder, err := d.service.Files.Create(&drive.File{
		Name:     name,
		MimeType: FolderMIMEType,
	}).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to create folder: %w", err)
	}

	return folder.Id, nil
}

// CreateFile streams the body to Drive. Bodies larger than one chunk use a
// resumable session, so memory use is bounded by the chunk size.
func (d *DriveStore) CreateFile(ctx context.Context, f *FileUpload) (string, error) {
	meta := &drive.File{
		Name:    f.Name,
		Parents: []string{f.ParentID},
	}

	created, err := d.service.Files.Create(meta).
		Media(f.Body, googleapi.ContentType(f.ContentType), googleapi.ChunkSize(d.chunkSize)).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to upload to Drive: %w", err)
	}

	return created.Id, nil
}
