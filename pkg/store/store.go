// Package store provides job state persistence
package store

import (
	"context"
	"errors"
	"time"

	"github.com/vddownco/video-downloader-hls/pkg/schemas"
)

var (
	// ErrJobNotFound is returned when a job does not exist
	ErrJobNotFound = errors.New("job not found")

	// ErrJobExists is returned when attempting to create a job that already exists
	ErrJobExists = errors.New("job already exists")

	// ErrInvalidJobID is returned for invalid job IDs
	ErrInvalidJobID = errors.New("invalid job ID")

	// ErrWrongState is returned when a transition's expected state does not
	// match the job's current state
	ErrWrongState = errors.New("job is not in the required state")
)

// Store is the interface for job state persistence.
// All mutations are atomic with respect to concurrent readers: a reader
// never observes a partially applied update.
type Store interface {
	// CreateJob creates a new job with initial state
	CreateJob(ctx context.Context, job *Job) error

	// GetJob retrieves a copy of a job by ID
	GetJob(ctx context.Context, jobID string) (*Job, error)

	// DeleteJob deletes a job by ID
	DeleteJob(ctx context.Context, jobID string) error

	// ListJobs lists jobs with optional filtering
	ListJobs(ctx context.Context, filter *ListFilter) ([]*Job, error)

	// Transition moves a job from one state to another. It fails with
	// ErrWrongState unless the job is currently in the from state, so
	// concurrent callers racing on the same edge get exactly one winner.
	Transition(ctx context.Context, jobID string, from, to schemas.JobState) error

	// BeginConversion records the caller's stream selection and moves the
	// job from ready_for_conversion to converting in a single atomic step
	BeginConversion(ctx context.Context, jobID string, sel schemas.StreamSelection, counts schemas.StreamCounts) error

	// SetLocalFile records the staging path of the fetched source
	SetLocalFile(ctx context.Context, jobID, path string) error

	// SetStreams records the probe result and the container duration
	SetStreams(ctx context.Context, jobID string, streams *schemas.StreamSet, duration float64) error

	// SetProgress updates the job's progress percentage
	SetProgress(ctx context.Context, jobID string, progress int) error

	// SetCompleted marks the job completed with its playlist URL
	SetCompleted(ctx context.Context, jobID, playlistURL string) error

	// SetError marks the job failed with a human-readable detail.
	// Jobs already in a terminal state are left untouched.
	SetError(ctx context.Context, jobID, detail string) error

	// Close closes the store and releases resources
	Close() error
}

// Job represents a complete job record in the store
type Job struct {
	// Core identifiers
	JobID   string    `json:"job_id"`
	Created time.Time `json:"created_at"`
	Updated time.Time `json:"updated_at"`

	// Source media
	SourceURL     string `json:"url"`
	LocalFilePath string `json:"file_path,omitempty"`

	// Probe result
	Streams  *schemas.StreamSet `json:"streams,omitempty"`
	Duration float64            `json:"duration,omitempty"`

	// Caller's stream selection, set by BeginConversion
	Selection *schemas.StreamSelection `json:"selection,omitempty"`
	Counts    *schemas.StreamCounts    `json:"counts,omitempty"`

	// Current status
	Status      schemas.JobState `json:"status"`
	Progress    int              `json:"progress"`
	ErrorDetail string           `json:"error,omitempty"`
	PlaylistURL string           `json:"playlist_url,omitempty"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

// ListFilter defines filtering criteria for listing jobs
type ListFilter struct {
	// Status filters
	Status []schemas.JobState `json:"status,omitempty"`

	// Time range filters
	CreatedBefore *time.Time `json:"created_before,omitempty"`

	// Pagination
	Limit int `json:"limit,omitempty"` // Max results (0 = no limit)
}

// ToJobStatus converts a Job to schemas.JobStatus
func (j *Job) ToJobStatus() *schemas.JobStatus {
	return &schemas.JobStatus{
		TaskID:      j.JobID,
		Status:      j.Status,
		Progress:    j.Progress,
		SourceURL:   j.SourceURL,
		Streams:     j.Streams,
		Error:       j.ErrorDetail,
		PlaylistURL: j.PlaylistURL,
		CreatedAt:   j.Created,
		UpdatedAt:   j.Updated,
	}
}

// IsTerminal returns true if the job is in a terminal state
func (j *Job) IsTerminal() bool {
	return j.Status.IsTerminal()
}
