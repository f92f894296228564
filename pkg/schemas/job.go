package schemas

import "time"

// JobState represents the current stage of a conversion job
type JobState string

const (
	JobStatePending            JobState = "pending"
	JobStateDownloading        JobState = "downloading"
	JobStateAnalyzing          JobState = "analyzing"
	JobStateReadyForConversion JobState = "ready_for_conversion"
	JobStateConverting         JobState = "converting"
	JobStateCompleted          JobState = "completed"
	JobStateError              JobState = "error"
)

// IsTerminal returns true if the state will never change again
func (s JobState) IsTerminal() bool {
	return s == JobStateCompleted || s == JobStateError
}

// Valid returns true if s is one of the known job states
func (s JobState) Valid() bool {
	switch s {
	case JobStatePending, JobStateDownloading, JobStateAnalyzing,
		JobStateReadyForConversion, JobStateConverting,
		JobStateCompleted, JobStateError:
		return true
	}
	return false
}

// JobStatus is the externally visible snapshot of a job
type JobStatus struct {
	TaskID      string     `json:"task_id"`
	Status      JobState   `json:"status"`
	Progress    int        `json:"progress"`
	SourceURL   string     `json:"url,omitempty"`
	Streams     *StreamSet `json:"streams,omitempty"`
	Error       string     `json:"error,omitempty"`
	PlaylistURL string     `json:"playlist_url,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
