package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Task is a periodic unit of work run by a Cron.
type Task func(ctx context.Context, now time.Time)

// Cron runs tasks on wall-clock aligned schedules.
type Cron struct {
	cron   *cron.Cron
	logger *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

// NewCron builds a cron runner evaluating schedules in loc.
func NewCron(loc *time.Location, logger *zap.Logger) *Cron {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Cron{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cronLogger{logger: logger}),
			cron.WithChain(cron.Recover(cronLogger{logger: logger})),
		),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Register schedules task under a standard five-field spec such as "0 * * * *".
func (c *Cron) Register(name, spec string, task Task) error {
	_, err := c.cron.AddFunc(spec, func() {
		started := time.Now()
		c.logger.Sugar().Infow("cron task started", "task", name)
		task(c.ctx, started)
		c.logger.Sugar().Infow("cron task finished", "task", name, "duration", time.Since(started))
	})
	if err != nil {
		return fmt.Errorf("register cron task %s: %w", name, err)
	}
	c.logger.Sugar().Infow("cron task registered", "task", name, "spec", spec)
	return nil
}

// Start launches the scheduler goroutine.
func (c *Cron) Start() {
	c.cron.Start()
}

// Stop prevents new runs and waits for running tasks until ctx expires.
func (c *Cron) Stop(ctx context.Context) {
	done := c.cron.Stop()
	c.cancel()
	select {
	case <-done.Done():
	case <-ctx.Done():
		c.logger.Warn("cron stop timed out")
	}
}

// cronLogger routes the scheduler's own logs, including recovered panics, into zap.
type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
