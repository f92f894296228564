// Package notify rate-limits job progress updates and publishes events
// to the push channel.
package notify

import (
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/vddownco/video-downloader-hls/pkg/schemas"
)

const (
	// minInterval is the quiet period after an emission during which only
	// large percent moves pass the filter
	minInterval = time.Second

	// minPercentDelta is the percent move that bypasses the quiet period
	minPercentDelta = 5

	// entryTTL expires throttle entries for stages that stopped reporting
	entryTTL = time.Hour

	// cleanupInterval is how often expired entries are purged
	cleanupInterval = 10 * time.Minute
)

// EventSink receives events that pass the throttle filter
type EventSink interface {
	Publish(event schemas.Event)
}

// emission records the last update that passed the filter for one key
type emission struct {
	at      time.Time
	percent int
}

// Notifier throttles per-stage progress updates and forwards events to a
// sink. It is a filter, not a queue: suppressed updates are dropped.
type Notifier struct {
	sink  EventSink
	cache *cache.Cache
}

// NewNotifier creates a notifier publishing through the given sink
func NewNotifier(sink EventSink) *Notifier {
	return &Notifier{
		sink:  sink,
		cache: cache.New(entryTTL, cleanupInterval),
	}
}

// Progress reports a percent update for one stage of a job. The update is
// emitted when the (job, stage) key has no prior emission, the quiet
// period has elapsed, or the percent moved by at least the delta bound.
func (n *Notifier) Progress(taskID string, stage schemas.JobState, percent int, message string) {
	key := throttleKey(taskID, stage)

	if last, found := n.cache.Get(key); found {
		e := last.(emission)
		if time.Since(e.at) < minInterval && abs(percent-e.percent) < minPercentDelta {
			return
		}
	}

	n.cache.Set(key, emission{at: time.Now(), percent: percent}, cache.DefaultExpiration)
	n.sink.Publish(schemas.ProgressEvent(taskID, stage, percent, message))
}

// DownloadComplete announces the extracted stream descriptors for a job.
// Completion events are never throttled.
func (n *Notifier) DownloadComplete(taskID string, streams *schemas.StreamSet, message string) {
	n.sink.Publish(schemas.DownloadCompleteEvent(taskID, streams, message))
}

// ConversionComplete announces the playlist of a finished job
func (n *Notifier) ConversionComplete(taskID, playlistURL, message string) {
	n.sink.Publish(schemas.ConversionCompleteEvent(taskID, playlistURL, message))
}

// Error announces a failed job
func (n *Notifier) Error(taskID, message string) {
	n.sink.Publish(schemas.ErrorEvent(taskID, message))
}

// Forget drops all throttle state for a job, across every stage
func (n *Notifier) Forget(taskID string) {
	prefix := taskID + ":"
	for key := range n.cache.Items() {
		if strings.HasPrefix(key, prefix) {
			n.cache.Delete(key)
		}
	}
}

func throttleKey(taskID string, stage schemas.JobState) string {
	return taskID + ":" + string(stage)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
