package storage

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/hackclub/driveup/internal/config"
)

// ErrMissingCredentials means the selected backend has no credentials.
var ErrMissingCredentials = errors.New("remote store credentials not found")

// FromConfig builds the store selected by cfg.StoreBackend.
func FromConfig(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.StoreBackend {
	case config.BackendDrive:
		key, err := driveKey(cfg)
		if err != nil {
			return nil, err
		}
		store, err := NewDriveStore(ctx, key, cfg.DriveChunkSizeMB*1024*1024)
		if err != nil {
			return nil, err
		}
		return store, nil

	case config.BackendR2:
		if cfg.R2AccessKeyID == "" || cfg.R2SecretAccessKey == "" {
			return nil, fmt.Errorf("%w: set R2_ACCESS_KEY_ID and R2_SECRET_ACCESS_KEY", ErrMissingCredentials)
		}
		if cfg.R2Endpoint() == "" {
			return nil, fmt.Errorf("%w: set R2_ACCOUNT_ID or R2_S3_ENDPOINT", ErrMissingCredentials)
		}
		store, err := NewR2Store(ctx, cfg.R2AccessKeyID, cfg.R2SecretAccessKey, cfg.R2Bucket, cfg.R2Endpoint(), cfg.R2PartSizeMB)
		if err != nil {
			return nil, err
		}
		return store, nil

	case config.BackendLocal:
		store, err := NewLocalStore(cfg.LocalStoreDir)
		if err != nil {
			return nil, err
		}
		return store, nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

func driveKey(cfg *config.Config) ([]byte, error) {
	if cfg.DriveServiceAccountJSON != "" {
		return []byte(cfg.DriveServiceAccountJSON), nil
	}
	if cfg.DriveServiceAccountFile != "" {
		data, err := os.ReadFile(cfg.DriveServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read service account file: %w", err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%w: set GDRIVE_SERVICE_ACCOUNT_FILE or GDRIVE_SERVICE_ACCOUNT_JSON", ErrMissingCredentials)
}
