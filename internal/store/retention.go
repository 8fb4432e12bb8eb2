package store

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"vehiclepush/internal/config"
	"vehiclepush/internal/logger"
	"vehiclepush/pkg/metrics"
)

// RetentionJob periodically deletes records older than MaxAge. It runs
// outside the message pipeline.
type RetentionJob struct {
	pruner Pruner
	store  Store
	maxAge time.Duration
	now    func() time.Time
	logger logger.Logger
	cron   *cron.Cron
}

func NewRetentionJob(pruner Pruner, s Store, cfg config.RetentionConfig, log logger.Logger) (*RetentionJob, error) {
	loc := time.UTC
	if cfg.Timezone != "" {
		l, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid retention timezone %q: %w", cfg.Timezone, err)
		}
		loc = l
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	job := &RetentionJob{
		pruner: pruner,
		store:  s,
		maxAge: cfg.MaxAge,
		now:    time.Now,
		logger: log,
		cron:   cron.New(cron.WithParser(parser), cron.WithLocation(loc)),
	}

	if _, err := job.cron.AddFunc(cfg.Schedule, func() { job.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid retention schedule %q: %w", cfg.Schedule, err)
	}
	return job, nil
}

// RunOnce prunes expired records and refreshes the store size gauge.
func (j *RetentionJob) RunOnce(ctx context.Context) {
	cutoff := j.now().Add(-j.maxAge)
	pruned, err := j.pruner.PruneBefore(ctx, cutoff)
	if err != nil {
		j.logger.Errorw("Retention prune failed", "error", err, "cutoff", cutoff)
		return
	}
	metrics.AddRetentionPruned(pruned)

	if count, err := j.store.Count(ctx); err == nil {
		metrics.SetNotificationStoreSize(count)
	}

	if pruned > 0 {
		j.logger.Infow("Pruned expired notifications", "count", pruned, "cutoff", cutoff)
	}
}

func (j *RetentionJob) Start() {
	j.cron.Start()
}

// Stop waits for a running prune to finish or ctx to expire.
func (j *RetentionJob) Stop(ctx context.Context) {
	select {
	case <-j.cron.Stop().Done():
	case <-ctx.Done():
	}
}
