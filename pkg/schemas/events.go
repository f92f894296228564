package schemas

// EventType names a push-channel event
type EventType string

const (
	EventProgressUpdate     EventType = "progress_update"
	EventDownloadComplete   EventType = "download_complete"
	EventConversionComplete EventType = "conversion_complete"
	EventError              EventType = "error"
)

// Event is a single push-channel message. Only the fields that are
// meaningful for the event type are populated.
type Event struct {
	Type        EventType  `json:"type"`
	TaskID      string     `json:"task_id"`
	Stage       JobState   `json:"stage,omitempty"`
	Progress    int        `json:"progress"`
	Message     string     `json:"message,omitempty"`
	Streams     *StreamSet `json:"streams,omitempty"`
	PlaylistURL string     `json:"playlist_url,omitempty"`
}

// ProgressEvent builds a progress_update event
func ProgressEvent(taskID string, stage JobState, progress int, message string) Event {
	return Event{
		Type:     EventProgressUpdate,
		TaskID:   taskID,
		Stage:    stage,
		Progress: progress,
		Message:  message,
	}
}

// DownloadCompleteEvent builds a download_complete event carrying the
// extracted stream descriptors
func DownloadCompleteEvent(taskID string, streams *StreamSet, message string) Event {
	return Event{
		Type:    EventDownloadComplete,
		TaskID:  taskID,
		Streams: streams,
		Message: message,
	}
}

// ConversionCompleteEvent builds a conversion_complete event
func ConversionCompleteEvent(taskID, playlistURL, message string) Event {
	return Event{
		Type:        EventConversionComplete,
		TaskID:      taskID,
		PlaylistURL: playlistURL,
		Message:     message,
	}
}

// ErrorEvent builds an error event
func ErrorEvent(taskID, message string) Event {
	return Event{
		Type:    EventError,
		TaskID:  taskID,
		Message: message,
	}
}
