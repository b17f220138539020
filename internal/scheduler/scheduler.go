package scheduler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/disputeops/internal/audit/domain"
	auditcontext "github.com/smallbiznis/disputeops/internal/auditcontext"
	"github.com/smallbiznis/disputeops/internal/authorization"
	"github.com/smallbiznis/disputeops/internal/clock"
	disputedomain "github.com/smallbiznis/disputeops/internal/dispute/domain"
	"github.com/smallbiznis/disputeops/internal/ingest"
	obsmetrics "github.com/smallbiznis/disputeops/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const jobImportDropDir = "import_drop_dir"

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

// Importer loads one batch file into a category.
type Importer interface {
	ImportFile(ctx context.Context, category disputedomain.Category, path string) (ingest.Result, error)
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Importer *ingest.Importer
	AuthzSvc authorization.Service
	AuditSvc auditdomain.Service `optional:"true"`
	GenID    *snowflake.Node
	Clock    clock.Clock
	Metrics  *obsmetrics.JobMetrics `optional:"true"`
	Config   Config                 `optional:"true"`
}

// Scheduler imports the batch files dropped under <DropDir>/<category-path>/.
type Scheduler struct {
	log      *zap.Logger
	cfg      Config
	importer Importer
	authzSvc authorization.Service
	auditSvc auditdomain.Service
	genID    *snowflake.Node
	clock    clock.Clock
	metrics  *obsmetrics.JobMetrics
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Importer == nil || p.AuthzSvc == nil || p.GenID == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	return newScheduler(p.Log, p.Config, p.Importer, p.AuthzSvc, p.AuditSvc, p.GenID, p.Clock, p.Metrics), nil
}

func newScheduler(log *zap.Logger, cfg Config, importer Importer, authzSvc authorization.Service, auditSvc auditdomain.Service, genID *snowflake.Node, clk clock.Clock, metrics *obsmetrics.JobMetrics) *Scheduler {
	return &Scheduler{
		log:      log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:      cfg.withDefaults(),
		importer: importer,
		authzSvc: authzSvc,
		auditSvc: auditSvc,
		genID:    genID,
		clock:    clk,
		metrics:  metrics,
	}
}

func (s *Scheduler) Enabled() bool {
	return s != nil && s.cfg.DropDir != ""
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := s.clock.Now().Add(s.cfg.RunInterval)

	for {
		if lag := s.clock.Now().Sub(nextRun); lag > 0 {
			s.metrics.ObserveRunLoopLag(lag)
		}
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(s.cfg.RunInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) RunOnce(ctx context.Context) error {
	return s.runJob(ctx, jobImportDropDir, s.cfg.JobTimeout, s.ImportDropDir)
}

func (s *Scheduler) runJob(parent context.Context, name string, timeout time.Duration, fn func(ctx context.Context) error) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx = auditcontext.WithActor(ctx, auditcontext.ActorTypeSystem, "scheduler")
	s.metrics.IncJobRun(name)

	err := fn(ctx)
	s.metrics.ObserveJobDuration(name, s.clock.Now().Sub(start))
	if err == nil {
		return nil
	}

	s.metrics.IncJobError(name, err)
	// A deadline is a soft stop: the next tick picks up the remaining files.
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.log.Warn("job timed out", zap.String("job", name), zap.Duration("timeout", timeout))
		return nil
	}
	return err
}

// ImportDropDir imports every *.csv file found in the category directories of
// the drop directory. Files already in the ledger are skipped, so a file left
// in place is never imported twice. One bad file does not stop the others.
func (s *Scheduler) ImportDropDir(ctx context.Context) error {
	ctx, run := s.newJobRun(ctx, jobImportDropDir)
	s.logJobStart(ctx, run)
	defer s.logJobFinish(ctx, run)

	if err := s.authzSvc.Authorize(ctx, authorization.RoleSystem, authorization.RoleSystem,
		authorization.ObjectDisputeRecord, authorization.ActionDisputeRecordLoad); err != nil {
		return err
	}

	var jobErr error
	for _, category := range disputedomain.Categories {
		files, err := batchFiles(filepath.Join(s.cfg.DropDir, category.Path()))
		if err != nil {
			jobErr = errors.Join(jobErr, err)
			continue
		}
		for _, path := range files {
			if err := ctx.Err(); err != nil {
				return errors.Join(jobErr, err)
			}
			res, err := s.importer.ImportFile(ctx, category, path)
			if err != nil {
				s.logFileError(ctx, run, path, err)
				jobErr = errors.Join(jobErr, fmt.Errorf("%s: %w", path, err))
				continue
			}
			if res.Skipped {
				run.IncSkipped()
				continue
			}
			run.AddProcessed(res.Entry.Records)
			s.auditImport(ctx, category, res.Entry)
		}
	}
	return jobErr
}

func (s *Scheduler) auditImport(ctx context.Context, category disputedomain.Category, entry ingest.Entry) {
	if s.auditSvc == nil {
		return
	}
	actorID := "scheduler"
	batchID := entry.BatchID
	if err := s.auditSvc.AuditLog(ctx, auditcontext.ActorTypeSystem, &actorID, "IMPORT_BATCH", string(category), &batchID, map[string]any{
		"file":    entry.File,
		"records": entry.Records,
		"sha256":  entry.SHA256,
	}); err != nil {
		s.logger(ctx).Warn("failed to audit batch import", zap.Error(err))
	}
}

// batchFiles lists the CSV files of dir in name order. A missing directory
// holds no files.
func batchFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".csv") {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}
