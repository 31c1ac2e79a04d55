package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job is a recurring background task. Each job runs on its own ticker;
// a run that outlives Timeout is cancelled through its context.
type Job struct {
	Name       string
	Interval   time.Duration
	Timeout    time.Duration
	RunOnStart bool
	Run        func(ctx context.Context) error
}

func (j *Job) validate() error {
	if j.Name == "" || j.Interval <= 0 || j.Run == nil {
		return ErrInvalidConfig
	}
	return nil
}

// Runner drives a set of recurring jobs. Jobs run independently; a
// panicking job is recovered and logged, never taking down its siblings.
type Runner struct {
	jobs   []*Job
	logger *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewRunner creates a runner with no jobs registered
func NewRunner(logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{logger: logger.Named("scheduler")}
}

// Register adds a job. Must be called before Start.
func (r *Runner) Register(job *Job) error {
	if err := job.validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.isRunning {
		return ErrRunnerNotRunning
	}
	r.jobs = append(r.jobs, job)
	return nil
}

// Start launches one loop per registered job
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.isRunning {
		r.mu.Unlock()
		return nil
	}
	r.isRunning = true
	r.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	for _, job := range r.jobs {
		r.wg.Add(1)
		go r.runLoop(ctx, job)
	}

	r.logger.Info("Job runner started", zap.Int("jobs", len(r.jobs)))
	return nil
}

// Stop cancels all job loops and waits for in-flight runs to finish,
// bounded by the passed context.
func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.isRunning {
		r.mu.Unlock()
		return nil
	}
	r.isRunning = false
	r.mu.Unlock()

	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("Job runner stopped gracefully")
		return nil
	case <-ctx.Done():
		r.logger.Warn("Job runner stop timed out")
		return ctx.Err()
	}
}

// TriggerNow runs a registered job once, outside its schedule
func (r *Runner) TriggerNow(ctx context.Context, name string) error {
	r.mu.Lock()
	running := r.isRunning
	var job *Job
	for _, j := range r.jobs {
		if j.Name == name {
			job = j
			break
		}
	}
	r.mu.Unlock()

	if !running {
		return ErrRunnerNotRunning
	}
	if job == nil {
		return ErrJobNotFound
	}
	return r.runOnce(ctx, job)
}

// runLoop ticks one job until the context is cancelled
func (r *Runner) runLoop(ctx context.Context, job *Job) {
	defer r.wg.Done()

	r.logger.Info("Job scheduled",
		zap.String("job", job.Name),
		zap.Duration("interval", job.Interval))

	if job.RunOnStart {
		if err := r.runOnce(ctx, job); err != nil {
			r.logger.Warn("Job run failed",
				zap.String("job", job.Name),
				zap.Error(err))
		}
	}

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Debug("Job loop stopping", zap.String("job", job.Name))
			return
		case <-ticker.C:
			if err := r.runOnce(ctx, job); err != nil {
				r.logger.Warn("Job run failed",
					zap.String("job", job.Name),
					zap.Error(err))
			}
		}
	}
}

// runOnce executes a job with panic isolation and the job's timeout
func (r *Runner) runOnce(ctx context.Context, job *Job) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("job %s panicked: %v", job.Name, rec)
			r.logger.Error("Job panicked",
				zap.String("job", job.Name),
				zap.Any("panic", rec))
		}
	}()

	runCtx := ctx
	if job.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, job.Timeout)
		defer cancel()
	}

	start := time.Now()
	if err := job.Run(runCtx); err != nil {
		return err
	}
	r.logger.Debug("Job run completed",
		zap.String("job", job.Name),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}
