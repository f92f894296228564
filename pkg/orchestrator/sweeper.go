package orchestrator

import (
	"context"
	"errors"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/vddownco/video-downloader-hls/pkg/store"
)

// SweepExpired evicts every job older than the retention window together
// with its on-disk artifacts and throttle state, and returns the number of
// jobs evicted. It runs opportunistically before each job creation and on
// the periodic schedule wired up in the server. Jobs that are still
// mid-flight when the window closes are evicted too; their stage drivers
// abandon them at the next store write.
func (o *Orchestrator) SweepExpired(ctx context.Context) int {
	cutoff := time.Now().Add(-o.retention)

	expired, err := o.store.ListJobs(ctx, &store.ListFilter{CreatedBefore: &cutoff})
	if err != nil {
		o.logger.Warn("retention sweep failed", zap.Error(err))
		return 0
	}

	for _, job := range expired {
		o.evictJob(ctx, job.JobID)
	}

	if len(expired) > 0 {
		o.logger.Info("retention sweep evicted jobs",
			zap.Int("count", len(expired)),
			zap.Time("cutoff", cutoff))
	}

	return len(expired)
}

// evictJob removes one job's record, staging file, output tree and
// notifier throttle entries. Each step is best-effort: a failed removal is
// logged, never fatal, and retried implicitly on the next sweep.
func (o *Orchestrator) evictJob(ctx context.Context, token string) {
	if err := o.store.DeleteJob(ctx, token); err != nil && !errors.Is(err, store.ErrJobNotFound) {
		o.logger.Warn("failed to delete job record",
			zap.String("task_id", token),
			zap.Error(err))
	}

	if err := os.Remove(o.stagingPath(token)); err != nil && !os.IsNotExist(err) {
		o.logger.Warn("failed to remove staging file",
			zap.String("task_id", token),
			zap.Error(err))
	}

	if err := os.RemoveAll(o.OutputPath(token)); err != nil {
		o.logger.Warn("failed to remove output directory",
			zap.String("task_id", token),
			zap.Error(err))
	}

	o.notifier.Forget(token)

	o.logger.Info("job evicted", zap.String("task_id", token))
}
