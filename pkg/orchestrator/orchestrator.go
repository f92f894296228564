// Package orchestrator owns the job lifecycle: it creates job records,
// drives them through the download, analysis and conversion stages on
// supervised background goroutines, and evicts expired jobs together
// with their on-disk artifacts.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vddownco/video-downloader-hls/pkg/converter"
	"github.com/vddownco/video-downloader-hls/pkg/fetcher"
	"github.com/vddownco/video-downloader-hls/pkg/notify"
	"github.com/vddownco/video-downloader-hls/pkg/prober"
	"github.com/vddownco/video-downloader-hls/pkg/schemas"
	"github.com/vddownco/video-downloader-hls/pkg/storage"
	"github.com/vddownco/video-downloader-hls/pkg/store"
)

// DefaultRetention is how long job records and their artifacts are kept
const DefaultRetention = 24 * time.Hour

// stagingExt is the extension given to staged source files. The real
// container is discovered by probing, not by the name.
const stagingExt = ".mkv"

// Event message prefixes for failed stages. Fetch and analysis run in one
// supervision scope and report through the same prefix.
const (
	downloadErrPrefix   = "Download/Analysis error: "
	conversionErrPrefix = "Conversion error: "
)

var (
	// ErrInvalidURL is returned when a job is created with a URL that no
	// storage backend can serve
	ErrInvalidURL = errors.New("invalid source URL")

	// ErrStreamsNotReady is returned when stream descriptors are requested
	// before analysis has recorded them
	ErrStreamsNotReady = errors.New("stream information not available")
)

// Fetcher stages a remote resource into a local file
type Fetcher interface {
	Fetch(ctx context.Context, sourceURL, destPath string, onProgress fetcher.ProgressFunc) error
}

// Prober extracts stream descriptors from a staged file
type Prober interface {
	Probe(ctx context.Context, filePath string) (*prober.Result, error)
}

// Converter repackages a staged file into an HLS rendition
type Converter interface {
	Convert(ctx context.Context, req converter.Request, onProgress converter.ProgressFunc) error
}

// Options configures an Orchestrator
type Options struct {
	Store     store.Store
	Fetcher   Fetcher
	Prober    Prober
	Converter Converter
	Notifier  *notify.Notifier
	Logger    *zap.Logger

	// StagingDir receives fetched source files
	StagingDir string

	// OutputDir receives one HLS output directory per job
	OutputDir string

	// Retention is the job eviction window; zero means DefaultRetention
	Retention time.Duration

	// Mirror, when set, uploads completed output directories to remote
	// storage after conversion
	Mirror *Mirror
}

// Orchestrator coordinates the pipeline stages for every job
type Orchestrator struct {
	store     store.Store
	fetcher   Fetcher
	prober    Prober
	converter Converter
	notifier  *notify.Notifier
	logger    *zap.Logger

	stagingDir string
	outputDir  string
	retention  time.Duration
	mirror     *Mirror

	// ctx bounds all stage goroutines; Close cancels it
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates an orchestrator from the given options
func New(opts Options) *Orchestrator {
	if opts.Retention <= 0 {
		opts.Retention = DefaultRetention
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Orchestrator{
		store:      opts.Store,
		fetcher:    opts.Fetcher,
		prober:     opts.Prober,
		converter:  opts.Converter,
		notifier:   opts.Notifier,
		logger:     opts.Logger,
		stagingDir: opts.StagingDir,
		outputDir:  opts.OutputDir,
		retention:  opts.Retention,
		mirror:     opts.Mirror,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Close cancels all in-flight stage goroutines and waits for them to exit
func (o *Orchestrator) Close() {
	o.cancel()
	o.wg.Wait()
}

// CreateJob inserts a pending job for the given source URL and starts its
// download stage in the background. The job token is returned immediately;
// progress is observable through GetStatus and the event channel.
func (o *Orchestrator) CreateJob(ctx context.Context, sourceURL string) (string, error) {
	o.SweepExpired(ctx)

	scheme, _, err := storage.ParseURI(sourceURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if !storage.IsAllowedScheme(scheme) {
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, scheme)
	}

	token := uuid.New().String()
	job := &store.Job{
		JobID:     token,
		SourceURL: sourceURL,
		Status:    schemas.JobStatePending,
	}
	if err := o.store.CreateJob(ctx, job); err != nil {
		return "", err
	}

	o.logger.Info("job created",
		zap.String("task_id", token),
		zap.String("url", sourceURL))

	o.launchStage(token, downloadErrPrefix, o.runDownload)

	return token, nil
}

// SubmitSelection records the caller's stream choice and starts the
// conversion stage. The ready_for_conversion -> converting transition is a
// single atomic step: under concurrent submission exactly one caller wins
// and the rest receive store.ErrWrongState.
func (o *Orchestrator) SubmitSelection(ctx context.Context, token string, sel schemas.StreamSelection, counts schemas.StreamCounts) error {
	if err := o.store.BeginConversion(ctx, token, sel, counts); err != nil {
		return err
	}

	o.logger.Info("conversion requested",
		zap.String("task_id", token),
		zap.Ints("video", sel.Video),
		zap.Ints("audio", sel.Audio),
		zap.Ints("subtitle", sel.Subtitle))

	o.launchStage(token, conversionErrPrefix, o.runConversion)

	return nil
}

// GetStatus returns a point-in-time snapshot of a job
func (o *Orchestrator) GetStatus(ctx context.Context, token string) (*schemas.JobStatus, error) {
	job, err := o.store.GetJob(ctx, token)
	if err != nil {
		return nil, err
	}
	return job.ToJobStatus(), nil
}

// GetStreams returns the stream descriptors extracted by analysis. Until
// analysis has recorded them it fails with ErrStreamsNotReady.
func (o *Orchestrator) GetStreams(ctx context.Context, token string) (*schemas.StreamSet, error) {
	job, err := o.store.GetJob(ctx, token)
	if err != nil {
		return nil, err
	}
	if job.Streams == nil {
		return nil, ErrStreamsNotReady
	}
	return job.Streams, nil
}

// ListJobs returns snapshots of every job, newest first, optionally
// filtered by status
func (o *Orchestrator) ListJobs(ctx context.Context, statuses []schemas.JobState) ([]*schemas.JobStatus, error) {
	jobs, err := o.store.ListJobs(ctx, &store.ListFilter{Status: statuses})
	if err != nil {
		return nil, err
	}

	out := make([]*schemas.JobStatus, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, job.ToJobStatus())
	}
	return out, nil
}

// OutputPath returns the on-disk output directory of a job
func (o *Orchestrator) OutputPath(token string) string {
	return filepath.Join(o.outputDir, token)
}

// stagingPath is where a job's fetched source lands
func (o *Orchestrator) stagingPath(token string) string {
	return filepath.Join(o.stagingDir, token+stagingExt)
}

// launchStage runs a stage driver on its own goroutine behind a supervision
// boundary: a panic is logged and recorded as a job error instead of
// taking the process down or vanishing silently.
func (o *Orchestrator) launchStage(token, errPrefix string, driver func(ctx context.Context, token string)) {
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				o.logger.Error("stage driver panicked",
					zap.String("task_id", token),
					zap.Any("panic", r))
				o.failJob(o.ctx, token, fmt.Sprintf("internal error: %v", r), errPrefix)
			}
		}()
		driver(o.ctx, token)
	}()
}

// failJob records a stage failure and publishes the matching error event.
// A job that was evicted while its stage was still running is gone from
// the store; that is a quiet no-op.
func (o *Orchestrator) failJob(ctx context.Context, token, detail, eventPrefix string) {
	err := o.store.SetError(ctx, token, detail)
	switch {
	case err == nil:
		o.logger.Warn("job failed",
			zap.String("task_id", token),
			zap.String("detail", detail))
		o.notifier.Error(token, eventPrefix+detail)
	case errors.Is(err, store.ErrJobNotFound):
		// Evicted mid-stage
	default:
		o.logger.Warn("failed to record job error",
			zap.String("task_id", token),
			zap.Error(err))
	}
}

// abandon logs a store write that failed mid-stage and lets the driver
// give up on the job. The usual cause is the sweeper evicting the job
// while its driver was still running.
func (o *Orchestrator) abandon(token, op string, err error) {
	if errors.Is(err, store.ErrJobNotFound) {
		o.logger.Debug("job evicted mid-stage",
			zap.String("task_id", token),
			zap.String("op", op))
		return
	}
	o.logger.Warn("store update failed mid-stage",
		zap.String("task_id", token),
		zap.String("op", op),
		zap.Error(err))
}

// runDownload drives the fetch and analysis stages for one job
func (o *Orchestrator) runDownload(ctx context.Context, token string) {
	job, err := o.store.GetJob(ctx, token)
	if err != nil {
		o.abandon(token, "load job", err)
		return
	}

	if err := o.store.Transition(ctx, token, schemas.JobStatePending, schemas.JobStateDownloading); err != nil {
		o.abandon(token, "enter downloading", err)
		return
	}

	destPath := o.stagingPath(token)

	onProgress := func(done, total int64) {
		if total > 0 {
			percent := int(done * 100 / total)
			o.store.SetProgress(ctx, token, percent)
			o.notifier.Progress(token, schemas.JobStateDownloading, percent,
				fmt.Sprintf("Downloading: %d%%", percent))
			return
		}
		// Unknown length: report bytes, never a fabricated percentage
		o.notifier.Progress(token, schemas.JobStateDownloading, 0,
			"Downloading: "+formatBytes(done))
	}

	if err := o.fetcher.Fetch(ctx, job.SourceURL, destPath, onProgress); err != nil {
		o.failJob(ctx, token, err.Error(), downloadErrPrefix)
		return
	}

	if err := o.store.SetLocalFile(ctx, token, destPath); err != nil {
		o.abandon(token, "record staged file", err)
		return
	}

	if err := o.store.Transition(ctx, token, schemas.JobStateDownloading, schemas.JobStateAnalyzing); err != nil {
		o.abandon(token, "enter analyzing", err)
		return
	}
	o.store.SetProgress(ctx, token, 0)
	o.notifier.Progress(token, schemas.JobStateAnalyzing, 50, "Analyzing streams...")

	result, err := o.prober.Probe(ctx, destPath)
	if err != nil {
		o.failJob(ctx, token, err.Error(), downloadErrPrefix)
		return
	}

	if err := o.store.SetStreams(ctx, token, result.Streams, result.Duration); err != nil {
		o.abandon(token, "record streams", err)
		return
	}

	if err := o.store.Transition(ctx, token, schemas.JobStateAnalyzing, schemas.JobStateReadyForConversion); err != nil {
		o.abandon(token, "enter ready_for_conversion", err)
		return
	}

	counts := result.Streams.Counts()
	o.logger.Info("analysis complete",
		zap.String("task_id", token),
		zap.Int("video", counts.Video),
		zap.Int("audio", counts.Audio),
		zap.Int("subtitle", counts.Subtitle),
		zap.Float64("duration", result.Duration))

	o.notifier.DownloadComplete(token, result.Streams,
		"Download complete. Please select streams to include.")
}

// runConversion drives the repackaging stage for one job
func (o *Orchestrator) runConversion(ctx context.Context, token string) {
	job, err := o.store.GetJob(ctx, token)
	if err != nil {
		o.abandon(token, "load job", err)
		return
	}

	var sel schemas.StreamSelection
	if job.Selection != nil {
		sel = *job.Selection
	}
	var counts schemas.StreamCounts
	if job.Counts != nil {
		counts = *job.Counts
	}

	req := converter.Request{
		InputPath: job.LocalFilePath,
		OutputDir: o.OutputPath(token),
		Duration:  job.Duration,
		Selection: sel,
		Counts:    counts,
	}

	onProgress := func(percent int) {
		o.store.SetProgress(ctx, token, percent)
		o.notifier.Progress(token, schemas.JobStateConverting, percent,
			fmt.Sprintf("Converting: %d%%", percent))
	}

	if err := o.converter.Convert(ctx, req, onProgress); err != nil {
		o.failJob(ctx, token, err.Error(), conversionErrPrefix)
		return
	}

	playlistURL := "/hls/" + token + "/" + converter.PlaylistName
	if err := o.store.SetCompleted(ctx, token, playlistURL); err != nil {
		o.abandon(token, "record completion", err)
		return
	}

	o.logger.Info("conversion complete",
		zap.String("task_id", token),
		zap.String("playlist", playlistURL))

	o.notifier.ConversionComplete(token, playlistURL, "Conversion completed successfully!")

	if o.mirror != nil {
		if err := o.mirror.MirrorDir(ctx, token, req.OutputDir); err != nil {
			o.logger.Warn("artifact mirror failed",
				zap.String("task_id", token),
				zap.Error(err))
		}
	}
}

// formatBytes renders a byte count for progress messages when the remote
// does not advertise a total length
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	suffixes := []string{"KiB", "MiB", "GiB", "TiB", "PiB", "EiB"}
	return fmt.Sprintf("%.1f %s", float64(n)/float64(div), suffixes[exp])
}
