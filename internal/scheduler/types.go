package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/vfa-khuongdv/drivectl/internal/database"
)

// JobInfo contains information about a scheduled job
type JobInfo struct {
	Name     string       `json:"name"`
	Schedule string       `json:"schedule"`
	EntryID  cron.EntryID `json:"entry_id"`
	Next     time.Time    `json:"next"`
	Previous time.Time    `json:"previous"`
}

// JobStore loads persisted upload jobs
type JobStore interface {
	GetUploadJobs() ([]database.UploadJob, error)
	GetUploadJobByName(name string) (*database.UploadJob, error)
}

// JobRunner performs a single upload job run
type JobRunner interface {
	RunUploadJob(ctx context.Context, job *database.UploadJob) error
}
