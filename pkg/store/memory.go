package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/vddownco/video-downloader-hls/pkg/schemas"
)

// MemoryStore is an in-memory implementation of Store
// Thread-safe for concurrent access
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs: make(map[string]*Job),
	}
}

// CreateJob creates a new job
func (m *MemoryStore) CreateJob(ctx context.Context, job *Job) error {
	if job.JobID == "" {
		return ErrInvalidJobID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.jobs[job.JobID]; exists {
		return ErrJobExists
	}

	now := time.Now()
	if job.Created.IsZero() {
		job.Created = now
	}
	job.Updated = now
	if job.Status == "" {
		job.Status = schemas.JobStatePending
	}

	// Deep copy to avoid external modifications
	m.jobs[job.JobID] = m.copyJob(job)

	return nil
}

// GetJob retrieves a job by ID
func (m *MemoryStore) GetJob(ctx context.Context, jobID string) (*Job, error) {
	if jobID == "" {
		return nil, ErrInvalidJobID
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	job, exists := m.jobs[jobID]
	if !exists {
		return nil, ErrJobNotFound
	}

	// Return a copy to prevent external modifications
	return m.copyJob(job), nil
}

// DeleteJob deletes a job by ID
func (m *MemoryStore) DeleteJob(ctx context.Context, jobID string) error {
	if jobID == "" {
		return ErrInvalidJobID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.jobs[jobID]; !exists {
		return ErrJobNotFound
	}

	delete(m.jobs, jobID)
	return nil
}

// ListJobs lists jobs with optional filtering
func (m *MemoryStore) ListJobs(ctx context.Context, filter *ListFilter) ([]*Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var jobs []*Job
	for _, job := range m.jobs {
		if m.matchesFilter(job, filter) {
			jobs = append(jobs, m.copyJob(job))
		}
	}

	// Newest first
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].Created.After(jobs[j].Created)
	})

	if filter != nil && filter.Limit > 0 && filter.Limit < len(jobs) {
		jobs = jobs[:filter.Limit]
	}

	return jobs, nil
}

// Transition moves a job from one state to another
func (m *MemoryStore) Transition(ctx context.Context, jobID string, from, to schemas.JobState) error {
	if jobID == "" {
		return ErrInvalidJobID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	job, exists := m.jobs[jobID]
	if !exists {
		return ErrJobNotFound
	}
	if job.Status != from {
		return fmt.Errorf("%w: job %s is %s, want %s", ErrWrongState, jobID, job.Status, from)
	}

	job.Status = to
	job.Updated = time.Now()
	m.markTerminal(job, to)

	return nil
}

// BeginConversion records the selection and enters the converting state
func (m *MemoryStore) BeginConversion(ctx context.Context, jobID string, sel schemas.StreamSelection, counts schemas.StreamCounts) error {
	if jobID == "" {
		return ErrInvalidJobID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	job, exists := m.jobs[jobID]
	if !exists {
		return ErrJobNotFound
	}
	if job.Status != schemas.JobStateReadyForConversion {
		return fmt.Errorf("%w: job %s is %s, want %s", ErrWrongState, jobID, job.Status, schemas.JobStateReadyForConversion)
	}

	selCopy := copySelection(&sel)
	countsCopy := counts
	job.Selection = selCopy
	job.Counts = &countsCopy
	job.Status = schemas.JobStateConverting
	job.Progress = 0
	job.Updated = time.Now()

	return nil
}

// SetLocalFile records the staging path of the fetched source
func (m *MemoryStore) SetLocalFile(ctx context.Context, jobID, path string) error {
	return m.update(jobID, func(job *Job) {
		job.LocalFilePath = path
	})
}

// SetStreams records the probe result and the container duration
func (m *MemoryStore) SetStreams(ctx context.Context, jobID string, streams *schemas.StreamSet, duration float64) error {
	return m.update(jobID, func(job *Job) {
		job.Streams = copyStreamSet(streams)
		job.Duration = duration
	})
}

// SetProgress updates the job's progress percentage
func (m *MemoryStore) SetProgress(ctx context.Context, jobID string, progress int) error {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	return m.update(jobID, func(job *Job) {
		job.Progress = progress
	})
}

// SetCompleted marks the job completed with its playlist URL
func (m *MemoryStore) SetCompleted(ctx context.Context, jobID, playlistURL string) error {
	return m.update(jobID, func(job *Job) {
		job.Status = schemas.JobStateCompleted
		job.Progress = 100
		job.PlaylistURL = playlistURL
		job.LocalFilePath = ""
		m.markTerminal(job, job.Status)
	})
}

// SetError marks the job failed with a human-readable detail
func (m *MemoryStore) SetError(ctx context.Context, jobID, detail string) error {
	if jobID == "" {
		return ErrInvalidJobID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	job, exists := m.jobs[jobID]
	if !exists {
		return ErrJobNotFound
	}
	if job.Status.IsTerminal() {
		return fmt.Errorf("%w: job %s already %s", ErrWrongState, jobID, job.Status)
	}

	job.Status = schemas.JobStateError
	job.ErrorDetail = detail
	job.Updated = time.Now()
	m.markTerminal(job, job.Status)

	return nil
}

// Close closes the store (no-op for memory store)
func (m *MemoryStore) Close() error {
	return nil
}

// Helper methods

func (m *MemoryStore) update(jobID string, apply func(*Job)) error {
	if jobID == "" {
		return ErrInvalidJobID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	job, exists := m.jobs[jobID]
	if !exists {
		return ErrJobNotFound
	}

	apply(job)
	job.Updated = time.Now()

	return nil
}

func (m *MemoryStore) markTerminal(job *Job, status schemas.JobState) {
	if status.IsTerminal() && job.CompletedAt == nil {
		now := time.Now()
		job.CompletedAt = &now
	}
}

func (m *MemoryStore) copyJob(job *Job) *Job {
	if job == nil {
		return nil
	}

	copy := &Job{
		JobID:         job.JobID,
		Created:       job.Created,
		Updated:       job.Updated,
		SourceURL:     job.SourceURL,
		LocalFilePath: job.LocalFilePath,
		Duration:      job.Duration,
		Status:        job.Status,
		Progress:      job.Progress,
		ErrorDetail:   job.ErrorDetail,
		PlaylistURL:   job.PlaylistURL,
	}

	copy.Streams = copyStreamSet(job.Streams)
	copy.Selection = copySelection(job.Selection)

	if job.Counts != nil {
		c := *job.Counts
		copy.Counts = &c
	}
	if job.CompletedAt != nil {
		t := *job.CompletedAt
		copy.CompletedAt = &t
	}

	return copy
}

func copyStreamSet(s *schemas.StreamSet) *schemas.StreamSet {
	if s == nil {
		return nil
	}
	out := &schemas.StreamSet{
		Video:    make([]schemas.VideoStream, len(s.Video)),
		Audio:    make([]schemas.AudioStream, len(s.Audio)),
		Subtitle: make([]schemas.SubtitleStream, len(s.Subtitle)),
	}
	copy(out.Video, s.Video)
	copy(out.Audio, s.Audio)
	copy(out.Subtitle, s.Subtitle)
	return out
}

func copySelection(s *schemas.StreamSelection) *schemas.StreamSelection {
	if s == nil {
		return nil
	}
	out := &schemas.StreamSelection{
		Video:    make([]int, len(s.Video)),
		Audio:    make([]int, len(s.Audio)),
		Subtitle: make([]int, len(s.Subtitle)),
	}
	copy(out.Video, s.Video)
	copy(out.Audio, s.Audio)
	copy(out.Subtitle, s.Subtitle)
	return out
}

func (m *MemoryStore) matchesFilter(job *Job, filter *ListFilter) bool {
	if filter == nil {
		return true
	}

	// Status filter
	if len(filter.Status) > 0 {
		found := false
		for _, status := range filter.Status {
			if job.Status == status {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	// Time range filter
	if filter.CreatedBefore != nil && !job.Created.Before(*filter.CreatedBefore) {
		return false
	}

	return true
}
