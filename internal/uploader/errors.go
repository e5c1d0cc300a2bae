package uploader

import "errors"

var (
	// ErrNotConfigured means no remote store client is available.
	ErrNotConfigured = errors.New("remote store is not configured")
	// ErrInvalidInput covers a missing local folder or an empty destination name.
	ErrInvalidInput = errors.New("invalid input")
	// ErrFolderResolution means the destination folder could not be found or created.
	ErrFolderResolution = errors.New("failed to resolve destination folder")
	// ErrPersistLog is returned alongside a complete report when the log file could not be written.
	ErrPersistLog = errors.New("failed to persist upload log")
	// ErrRunInProgress rejects a run while another one is still uploading.
	ErrRunInProgress = errors.New("an upload run is already in progress")
)
