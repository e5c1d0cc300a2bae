package uploader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hackclub/driveup/internal/localfs"
	"github.com/hackclub/driveup/internal/storage"
	"github.com/hackclub/driveup/internal/util"
	"github.com/rs/zerolog"
)

type Options struct {
	// LogPath is where each run's log is written. Empty disables the file.
	LogPath string
	// Now overrides the record clock in tests.
	Now func() time.Time
}

// Uploader walks a local directory and uploads every file into one remote
// folder, one file at a time.
type Uploader struct {
	store   storage.Store
	logPath string
	now     func() time.Time
	logger  zerolog.Logger

	running sync.Mutex

	mu   sync.Mutex
	last *Report
}

// Report is the result of a completed run.
type Report struct {
	FolderID     string    `json:"folder_id"`
	FolderName   string    `json:"folder_name"`
	LocalRoot    string    `json:"local_root"`
	SuccessCount int       `json:"success_count"`
	Records      []Record  `json:"log"`
	LogPath      string    `json:"log_path,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
}

// New returns an uploader backed by store. A nil store is allowed; runs then
// fail with ErrNotConfigured.
func New(store storage.Store, opts Options, logger zerolog.Logger) *Uploader {
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}

	return &Uploader{
		store:   store,
		logPath: opts.LogPath,
		now:     now,
		logger:  logger.With().Str("component", "uploader").Logger(),
	}
}

// Configured reports whether a remote store is available.
func (u *Uploader) Configured() bool {
	return u.store != nil
}

// Last returns the report of the most recent completed run, if any.
func (u *Uploader) Last() *Report {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.last
}

// EnsureRemoteFolder returns the first existing folder called name, creating
// one when none exists.
func (u *Uploader) EnsureRemoteFolder(ctx context.Context, name string) (string, error) {
	if u.store == nil {
		return "", ErrNotConfigured
	}
	if name == "" {
		return "", fmt.Errorf("%w: destination folder name is required", ErrInvalidInput)
	}

	ids, err := u.store.FindFolders(ctx, name)
	if err != nil {
		return "", err
	}
	if len(ids) > 0 {
		if len(ids) > 1 {
			u.logger.Warn().Str("folder", name).Int("matches", len(ids)).Str("folder_id", ids[0]).Msg("multiple folders share this name, using the first")
		}
		return ids[0], nil
	}

	id, err := u.store.CreateFolder(ctx, name)
	if err != nil {
		return "", err
	}

	u.logger.Info().Str("folder", name).Str("folder_id", id).Msg("created remote folder")
	return id, nil
}

// UploadFile streams one local file into folderID and returns the new
// object's identifier.
func (u *Uploader) UploadFile(ctx context.Context, localPath, folderID string) (string, error) {
	if u.store == nil {
		return "", ErrNotConfigured
	}

	f, err := os.Open(localPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}

	name := filepath.Base(localPath)
	return u.store.CreateFile(ctx, &storage.FileUpload{
		Name:        name,
		ParentID:    folderID,
		ContentType: util.ContentTypeFor(name),
		Size:        info.Size(),
		Body:        f,
	})
}

// Run uploads every regular file under localRoot into the folder named
// folderName. Pre-flight and folder errors abort before anything is
// uploaded; per-file failures are recorded and the run continues.
func (u *Uploader) Run(ctx context.Context, localRoot, folderName string) (*Report, error) {
	if u.store == nil {
		return nil, ErrNotConfigured
	}
	if !u.running.TryLock() {
		return nil, ErrRunInProgress
	}
	defer u.running.Unlock()

	root, name, err := preflight(localRoot, folderName)
	if err != nil {
		return nil, err
	}

	report := &Report{
		FolderName: name,
		LocalRoot:  root,
		StartedAt:  u.now(),
	}
	log := u.logger.With().Str("root", root).Str("folder", name).Logger()
	log.Info().Msg("starting upload run")

	folderID, err := u.EnsureRemoteFolder(ctx, name)
	if err != nil {
		log.Error().Err(err).Msg("failed to resolve destination folder")
		return nil, fmt.Errorf("%w: %w", ErrFolderResolution, err)
	}
	report.FolderID = folderID

	files, err := localfs.ListFiles(root, func(path string, err error) {
		log.Warn().Err(err).Str("path", path).Msg("skipping unreadable directory")
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	report.Records = make([]Record, 0, len(files))
	for _, path := range files {
		outcome := u.uploadOne(ctx, path, folderID)
		rec := NewRecord(path, outcome, u.now())
		report.Records = append(report.Records, rec)

		if outcome.OK() {
			log.Info().Str("path", path).Str("file_id", outcome.FileID).Msg("uploaded file")
		} else {
			log.Error().Err(outcome.Err).Str("path", path).Msg("failed to upload file")
		}
	}

	report.SuccessCount = CountSuccesses(report.Records)
	report.FinishedAt = u.now()

	u.mu.Lock()
	u.last = report
	u.mu.Unlock()

	log.Info().
		Int("files", len(report.Records)).
		Int("succeeded", report.SuccessCount).
		Dur("duration", report.FinishedAt.Sub(report.StartedAt)).
		Msg("upload run complete")

	if u.logPath != "" {
		if err := WriteLog(u.logPath, report.Records); err != nil {
			log.Error().Err(err).Str("log_path", u.logPath).Msg("failed to write upload log")
			return report, fmt.Errorf("%w: %w", ErrPersistLog, err)
		}
		report.LogPath = u.logPath
	}

	return report, nil
}

func (u *Uploader) uploadOne(ctx context.Context, path, folderID string) Outcome {
	id, err := u.UploadFile(ctx, path, folderID)
	if err != nil {
		return Outcome{Err: err}
	}
	return Outcome{FileID: id}
}

func preflight(localRoot, folderName string) (string, string, error) {
	localRoot = strings.TrimSpace(localRoot)
	folderName = strings.TrimSpace(folderName)

	if localRoot == "" {
		return "", "", fmt.Errorf("%w: local folder path is required", ErrInvalidInput)
	}
	if folderName == "" {
		return "", "", fmt.Errorf("%w: destination folder name is required", ErrInvalidInput)
	}

	root, err := localfs.ExpandHome(localRoot)
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if !localfs.IsDir(root) {
		return "", "", fmt.Errorf("%w: %s is not a directory", ErrInvalidInput, root)
	}
	if err := localfs.CheckReadable(root); err != nil {
		return "", "", fmt.Errorf("%w: cannot read %s: %w", ErrInvalidInput, root, err)
	}

	return root, folderName, nil
}
