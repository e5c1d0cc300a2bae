package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
)

// folderMarker is the empty object that marks a prefix as a folder.
const folderMarker = ".folder"

// R2Store maps folders onto top-level prefixes of an S3-compatible bucket.
type R2Store struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
}

var _ Store = (*R2Store)(nil)

func NewR2Store(ctx context.Context, accessKeyID, secretAccessKey, bucket, endpoint string, partSizeMB int) (*R2Store, error) {
	creds := credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, "")

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(creds),
		config.WithRegion("auto"), // R2 uses "auto" as region
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = true
	})

	partSize := int64(partSizeMB) * 1024 * 1024
	if partSize < manager.MinUploadPartSize {
		partSize = manager.MinUploadPartSize
	}

	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = partSize
		u.Concurrency = 1
	})

	return &R2Store{
		client:   client,
		uploader: uploader,
		bucket:   bucket,
	}, nil
}

// FindFolders returns [name] when the prefix is marked as a folder or
// already holds objects. Prefixes are unique so there is at most one match.
func (r *R2Store) FindFolders(ctx context.Context, name string) ([]string, error) {
	if err := validateFolderName(name); err != nil {
		return nil, err
	}

	exists, err := r.objectExists(ctx, path.Join(name, folderMarker))
	if err != nil {
		return nil, fmt.Errorf("failed to check folder marker: %w", err)
	}
	if exists {
		return []string{name}, nil
	}

	out, err := r.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(r.bucket),
		Prefix:  aws.String(name + "/"),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}
	if len(out.Contents) > 0 {
		return []string{name}, nil
	}

	return nil, nil
}

func (r *R2Store) CreateFolder(ctx context.Context, name string) (string, error) {
	if err := validateFolderName(name); err != nil {
		return "", err
	}

	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(path.Join(name, folderMarker)),
		Body:        strings.NewReader(""),
		ContentType: aws.String("application/x-directory"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create folder marker: %w", err)
	}

	return name, nil
}

// CreateFile streams the body with the multipart manager. The object key is
// the file's identifier and is unique per upload.
func (r *R2Store) CreateFile(ctx context.Context, f *FileUpload) (string, error) {
	key := objectKey(f.ParentID, uuid.NewString(), f.Name)

	_, err := r.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(key),
		Body:        f.Body,
		ContentType: aws.String(f.ContentType),
		Metadata: map[string]string{
			"source": "driveup",
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to R2: %w", err)
	}

	return key, nil
}

func (r *R2Store) objectExists(ctx context.Context, key string) (bool, error) {
	_, err := r.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

func objectKey(parentID, uploadID, name string) string {
	return strings.TrimSuffix(parentID, "/") + "/" + uploadID + "/" + name
}

// validateFolderName rejects names that cannot be a single path segment.
func validateFolderName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid folder name %q for this store", name)
	}
	return nil
}
