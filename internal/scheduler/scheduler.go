// Package scheduler drives the background sweeps: executing due payments and
// expiring old events. Every job writes a job_runs row before doing work, so
// a crashed sweep stays visible as a started-but-unfinished run.
package scheduler

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pullpaylabs/pullpay/internal/clock"
	"github.com/pullpaylabs/pullpay/internal/config"
	eventdomain "github.com/pullpaylabs/pullpay/internal/event/domain"
	"github.com/pullpaylabs/pullpay/internal/observability"
	platformdomain "github.com/pullpaylabs/pullpay/internal/platform/domain"
	subscriptiondomain "github.com/pullpaylabs/pullpay/internal/subscription/domain"
)

// JobRun is one recorded job execution.
type JobRun struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	JobName    string       `gorm:"not null;index" json:"job_name"`
	Batches    int          `gorm:"not null;default:0" json:"batches"`
	Processed  int          `gorm:"not null;default:0" json:"processed"`
	Failed     int          `gorm:"not null;default:0" json:"failed"`
	StartedAt  time.Time    `gorm:"not null" json:"started_at"`
	FinishedAt *time.Time   `json:"finished_at,omitempty"`
	LastError  *string      `gorm:"size:256" json:"last_error,omitempty"`
}

func (JobRun) TableName() string {
	return "job_runs"
}

func (r *JobRun) AddProcessed(n int) { r.Processed += n }

func (r *JobRun) AddFailed(n int) { r.Failed += n }

func (r *JobRun) SetError(err error) {
	msg := err.Error()
	if len(msg) > 256 {
		msg = msg[:256]
	}
	r.LastError = &msg
}

type Params struct {
	fx.In

	Config  config.Config
	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Metrics *observability.Metrics

	Subscriptions subscriptiondomain.Service
	Platform      platformdomain.Service
	Events        eventdomain.Service
}

type Scheduler struct {
	cfg     config.Config
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	metrics *observability.Metrics

	subscriptions subscriptiondomain.Service
	platform      platformdomain.Service
	events        eventdomain.Service
}

func New(p Params) *Scheduler {
	return &Scheduler{
		cfg:     p.Config,
		db:      p.DB,
		log:     p.Log.Named("scheduler"),
		genID:   p.GenID,
		clock:   p.Clock,
		metrics: p.Metrics,

		subscriptions: p.Subscriptions,
		platform:      p.Platform,
		events:        p.Events,
	}
}

// RunForever ticks the job suite until the context is cancelled. The first
// sweep runs immediately.
func (s *Scheduler) RunForever(ctx context.Context) {
	interval := s.cfg.Scheduler.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	s.log.Info("scheduler started", zap.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		s.runOnce(ctx)
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if err := s.ExecuteDuePaymentsJob(ctx); err != nil {
		s.log.Error("due payment sweep failed", zap.Error(err))
	}
	if err := s.EventRetentionJob(ctx); err != nil {
		s.log.Error("event retention failed", zap.Error(err))
	}
}

type jobRunKey struct{}

// ensureJobRun returns the run already carried by the context, or opens a new
// one and persists its start row. The boolean reports ownership: only the
// opener logs the start and finish.
func (s *Scheduler) ensureJobRun(ctx context.Context, name string, batches int) (context.Context, *JobRun, bool) {
	if run, ok := ctx.Value(jobRunKey{}).(*JobRun); ok {
		return ctx, run, false
	}

	run := &JobRun{
		ID:        s.genID.Generate(),
		JobName:   name,
		Batches:   batches,
		StartedAt: s.clock.Now(ctx),
	}
	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		// Bookkeeping never blocks the job itself.
		s.log.Error("job run row not created", zap.String("job_name", name), zap.Error(err))
	}
	return context.WithValue(ctx, jobRunKey{}, run), run, true
}

func (s *Scheduler) logJobStart(ctx context.Context, run *JobRun) {
	s.log.Info("job started",
		zap.String("job_name", run.JobName),
		zap.Int64("run_id", run.ID.Int64()))
}

func (s *Scheduler) logJobFinish(ctx context.Context, run *JobRun) {
	now := s.clock.Now(ctx)
	run.FinishedAt = &now

	result := "ok"
	if run.LastError != nil {
		result = "error"
	}
	s.metrics.JobRuns.WithLabelValues(run.JobName, result).Inc()

	if err := s.db.WithContext(ctx).Save(run).Error; err != nil {
		s.log.Error("job run row not finished",
			zap.String("job_name", run.JobName), zap.Error(err))
	}
	s.log.Info("job finished",
		zap.String("job_name", run.JobName),
		zap.Int64("run_id", run.ID.Int64()),
		zap.Int("processed", run.Processed),
		zap.Int("failed", run.Failed),
		zap.Duration("took", now.Sub(run.StartedAt)))
}

func (s *Scheduler) logSchedulerError(ctx context.Context, run *JobRun, code, job string, processed int, err error) {
	run.SetError(err)
	s.log.Error(code,
		zap.String("job_name", job),
		zap.Int("processed", processed),
		zap.Error(err))
}
