// Package scheduler runs background maintenance jobs of the portal service.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrInvalidInterval is returned by Start when the job has no positive interval.
var ErrInvalidInterval = errors.New("scheduler: interval must be positive")

// JobFunc is one run of a periodic job.
type JobFunc func(ctx context.Context) error

// PeriodicJob runs a JobFunc on a fixed interval until stopped.
type PeriodicJob struct {
	name     string
	interval time.Duration
	run      JobFunc
	logger   *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	runs      int
	failures  int
}

// NewPeriodicJob creates a job named name that calls run every interval
func NewPeriodicJob(name string, interval time.Duration, run JobFunc, logger *zap.Logger) *PeriodicJob {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PeriodicJob{
		name:     name,
		interval: interval,
		run:      run,
		logger:   logger.With(zap.String("job", name)),
	}
}

// Start starts the job loop. Starting a running job does nothing.
func (j *PeriodicJob) Start(ctx context.Context) error {
	if j.interval <= 0 {
		return ErrInvalidInterval
	}

	j.mu.Lock()
	if j.isRunning {
		j.mu.Unlock()
		return nil
	}
	j.isRunning = true
	ctx, j.cancel = context.WithCancel(ctx)
	j.mu.Unlock()

	j.wg.Add(1)
	go j.loop(ctx)

	j.logger.Info("Periodic job started", zap.Duration("interval", j.interval))
	return nil
}

// Stop stops the loop and waits for a run in progress, bounded by ctx.
func (j *PeriodicJob) Stop(ctx context.Context) error {
	j.mu.Lock()
	if !j.isRunning {
		j.mu.Unlock()
		return nil
	}
	j.isRunning = false
	cancel := j.cancel
	j.mu.Unlock()

	cancel()

	done := make(chan struct{})
	go func() {
		j.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		j.logger.Info("Periodic job stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce runs the job immediately on the calling goroutine.
func (j *PeriodicJob) RunOnce(ctx context.Context) error {
	err := j.run(ctx)

	j.mu.Lock()
	j.runs++
	if err != nil {
		j.failures++
	}
	j.mu.Unlock()

	if err != nil && !errors.Is(err, context.Canceled) {
		j.logger.Warn("Periodic job failed", zap.Error(err))
	}
	return err
}

// Stats returns how many runs completed and how many of them failed.
func (j *PeriodicJob) Stats() (runs, failures int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.runs, j.failures
}

func (j *PeriodicJob) loop(ctx context.Context) {
	defer j.wg.Done()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = j.RunOnce(ctx)
		}
	}
}
