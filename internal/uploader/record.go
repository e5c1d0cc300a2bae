package uploader

import (
	"path/filepath"
	"strings"
	"time"
)

const (
	StatusSuccess = "Success"
	errorPrefix   = "Error: "
)

// Outcome is the result of a single upload attempt: either the identifier
// of the new remote object or the reason the attempt failed.
type Outcome struct {
	FileID string
	Err    error
}

func (o Outcome) OK() bool {
	return o.Err == nil
}

// Record is one line of the upload log.
type Record struct {
	Name      string    `json:"name"`
	LocalPath string    `json:"local_path"`
	Status    string    `json:"status"`
	FileID    *string   `json:"file_id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewRecord formats an outcome into a log record. Failed records never carry
// a file identifier.
func NewRecord(localPath string, outcome Outcome, at time.Time) Record {
	rec := Record{
		Name:      filepath.Base(localPath),
		LocalPath: localPath,
		Timestamp: at,
	}

	if outcome.OK() {
		id := outcome.FileID
		rec.Status = StatusSuccess
		rec.FileID = &id
	} else {
		rec.Status = errorPrefix + outcome.Err.Error()
	}

	return rec
}

func (r Record) Succeeded() bool {
	return r.Status == StatusSuccess
}

// ErrorMessage returns the failure reason, or "" for successful records.
func (r Record) ErrorMessage() string {
	if r.Succeeded() {
		return ""
	}
	return strings.TrimPrefix(r.Status, errorPrefix)
}

// CountSuccesses returns how many records succeeded.
func CountSuccesses(records []Record) int {
	n := 0
	for _, r := range records {
		if r.Succeeded() {
			n++
		}
	}
	return n
}
