package scheduler

import (
	"context"
	"time"

	obscontext "github.com/smallbiznis/disputeops/internal/observability/context"
	obslogger "github.com/smallbiznis/disputeops/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/disputeops/internal/observability/metrics"
	"go.uber.org/zap"
)

type jobRun struct {
	job            string
	runID          string
	startedAt      time.Time
	processedCount int
	skippedCount   int
	errorCount     int
}

func (r *jobRun) AddProcessed(count int) {
	if r == nil || count <= 0 {
		return
	}
	r.processedCount += count
}

func (r *jobRun) IncSkipped() {
	if r == nil {
		return
	}
	r.skippedCount++
}

func (r *jobRun) IncError() {
	if r == nil {
		return
	}
	r.errorCount++
}

func (s *Scheduler) newJobRun(ctx context.Context, job string) (context.Context, *jobRun) {
	run := &jobRun{
		job:       job,
		runID:     s.genID.Generate().String(),
		startedAt: time.Now(),
	}
	ctx = obscontext.WithActor(ctx, "system", "scheduler")
	return ctx, run
}

func (s *Scheduler) logger(ctx context.Context) *zap.Logger {
	return obslogger.WithContext(ctx, s.log)
}

func (s *Scheduler) logJobStart(ctx context.Context, run *jobRun) {
	s.logger(ctx).Debug("scheduler.job.start",
		zap.String("job", run.job),
		zap.String("run_id", run.runID),
	)
}

func (s *Scheduler) logJobFinish(ctx context.Context, run *jobRun) {
	fields := []zap.Field{
		zap.String("job", run.job),
		zap.String("run_id", run.runID),
		zap.Int64("duration_ms", time.Since(run.startedAt).Milliseconds()),
		zap.Int("processed_count", run.processedCount),
		zap.Int("skipped_count", run.skippedCount),
		zap.Int("error_count", run.errorCount),
	}
	log := s.logger(ctx)
	if run.errorCount > 0 {
		log.Warn("scheduler.job.finish", fields...)
		return
	}
	if run.processedCount > 0 {
		log.Info("scheduler.job.finish", fields...)
		return
	}
	log.Debug("scheduler.job.finish", fields...)
}

func (s *Scheduler) logFileError(ctx context.Context, run *jobRun, path string, err error) {
	run.IncError()
	s.logger(ctx).Error("scheduler.file.failed",
		zap.String("job", run.job),
		zap.String("file", path),
		zap.String("error_type", obsmetrics.ClassifyJobReason(err)),
		zap.Error(err),
	)
}
