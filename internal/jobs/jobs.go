// Package jobs runs the engine's scheduled maintenance on robfig/cron:
// purging expired idempotency records and pre-warming community stats.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-listing-credits/internal/config"
	"github.com/tbourn/go-listing-credits/internal/repo"
	"github.com/tbourn/go-listing-credits/internal/services"
)

// runTimeout bounds a single job run.
const runTimeout = 30 * time.Second

var jobRuns = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "credits_job_runs_total",
		Help: "Scheduled job runs by job and outcome.",
	},
	[]string{"job", "outcome"},
)

func init() { prometheus.MustRegister(jobRuns) }

// StatsWarmer loads the community stats into the cache.
type StatsWarmer interface {
	Community(ctx context.Context) (services.CommunityStats, error)
}

// Runner owns the cron scheduler and the job bodies.
type Runner struct {
	DB    *gorm.DB
	Stats StatsWarmer
	Now   func() time.Time

	cron *cron.Cron
	base context.Context
}

// New registers the jobs whose schedule in cfg is non-empty. Schedules use
// the standard five-field syntax or descriptors such as "@hourly".
func New(db *gorm.DB, stats StatsWarmer, cfg config.JobsConfig, loc *time.Location) (*Runner, error) {
	if loc == nil {
		loc = time.UTC
	}
	logger := cronLogger{l: log.Logger.With().Str("component", "jobs").Logger()}
	r := &Runner{
		DB:    db,
		Stats: stats,
		Now:   time.Now,
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		base: context.Background(),
	}
	if cfg.PurgeSchedule != "" {
		if _, err := r.cron.AddFunc(cfg.PurgeSchedule, r.wrap("purge_idempotency", func(ctx context.Context) error {
			_, err := r.PurgeExpired(ctx)
			return err
		})); err != nil {
			return nil, fmt.Errorf("jobs: purge schedule %q: %w", cfg.PurgeSchedule, err)
		}
	}
	if cfg.WarmSchedule != "" {
		if _, err := r.cron.AddFunc(cfg.WarmSchedule, r.wrap("warm_stats", r.WarmStats)); err != nil {
			return nil, fmt.Errorf("jobs: warm schedule %q: %w", cfg.WarmSchedule, err)
		}
	}
	return r, nil
}

// Start begins scheduling; job runs derive their context from ctx.
func (r *Runner) Start(ctx context.Context) {
	r.base = ctx
	r.cron.Start()
}

// Stop halts scheduling and waits for running jobs or ctx, whichever ends
// first.
func (r *Runner) Stop(ctx context.Context) error {
	done := r.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Entries reports how many jobs are scheduled.
func (r *Runner) Entries() int { return len(r.cron.Entries()) }

// PurgeExpired deletes idempotency records past their expiry.
func (r *Runner) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := repo.PurgeExpiredIdempotency(ctx, r.DB, r.Now().UTC())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Ctx(ctx).Info().Int64("purged", n).Msg("expired idempotency records purged")
	}
	return n, nil
}

// WarmStats refreshes the cached community stats.
func (r *Runner) WarmStats(ctx context.Context) error {
	_, err := r.Stats.Community(ctx)
	return err
}

func (r *Runner) wrap(name string, fn func(context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(r.base, runTimeout)
		defer cancel()
		l := log.Ctx(r.base).With().Str("job", name).Logger()
		ctx = l.WithContext(ctx)

		start := time.Now()
		if err := fn(ctx); err != nil {
			jobRuns.WithLabelValues(name, "error").Inc()
			l.Error().Err(err).Dur("took", time.Since(start)).Msg("job failed")
			return
		}
		jobRuns.WithLabelValues(name, "ok").Inc()
		l.Debug().Dur("took", time.Since(start)).Msg("job done")
	}
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct{ l zerolog.Logger }

func (c cronLogger) Info(msg string, kv ...interface{}) {
	c.l.Debug().Fields(kv).Msg(msg)
}

func (c cronLogger) Error(err error, msg string, kv ...interface{}) {
	c.l.Error().Err(err).Fields(kv).Msg(msg)
}
