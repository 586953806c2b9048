// Package scheduler runs the settlement background jobs: the overdue sweep,
// ledger gauge collection and the nightly reconciliation archive.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// JobStatus represents the outcome of a job's latest run
type JobStatus string

const (
	JobStatusPending JobStatus = "PENDING"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailed  JobStatus = "FAILED"
)

// Job is a unit of background work
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// JobFunc adapts a function to Job
type JobFunc struct {
	JobName string
	Fn      func(ctx context.Context) error
}

func (j JobFunc) Name() string                  { return j.JobName }
func (j JobFunc) Run(ctx context.Context) error { return j.Fn(ctx) }

// JobState is a snapshot of one registered job
type JobState struct {
	Name           string     `json:"name"`
	Trigger        string     `json:"trigger"`
	Status         JobStatus  `json:"status"`
	Runs           int        `json:"runs"`
	Failures       int        `json:"failures"`
	LastError      string     `json:"last_error,omitempty"`
	LastStartedAt  *time.Time `json:"last_started_at,omitempty"`
	LastFinishedAt *time.Time `json:"last_finished_at,omitempty"`
	NextRunAt      *time.Time `json:"next_run_at,omitempty"`
}

// Config holds scheduler settings
type Config struct {
	// JobTimeout bounds a single run
	JobTimeout time.Duration
	// RunOnStart fires interval jobs once immediately after Start
	RunOnStart bool
}

// DefaultConfig returns the default scheduler configuration
func DefaultConfig() Config {
	return Config{
		JobTimeout: 5 * time.Minute,
		RunOnStart: true,
	}
}

type entry struct {
	job     Job
	trigger Trigger
	kick    chan struct{}

	mu    sync.Mutex
	busy  bool
	state JobState
}

// Scheduler fires registered jobs on their triggers. Runs of the same job
// never overlap; a tick that arrives while the job is busy is skipped.
type Scheduler struct {
	config Config
	logger *zap.Logger
	now    func() time.Time

	mu        sync.Mutex
	entries   map[string]*entry
	isRunning bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// New creates a scheduler
func New(config Config, logger *zap.Logger) *Scheduler {
	if config.JobTimeout <= 0 {
		config.JobTimeout = DefaultConfig().JobTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		config:  config,
		logger:  logger,
		now:     time.Now,
		entries: make(map[string]*entry),
	}
}

// Register adds a job. Jobs must be registered before Start.
func (s *Scheduler) Register(job Job, trigger Trigger) error {
	if !validTrigger(trigger) {
		return fmt.Errorf("%w for job %q", ErrInvalidTrigger, job.Name())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return ErrSchedulerRunning
	}
	if _, dup := s.entries[job.Name()]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, job.Name())
	}
	s.entries[job.Name()] = &entry{
		job:     job,
		trigger: trigger,
		kick:    make(chan struct{}, 1),
		state: JobState{
			Name:    job.Name(),
			Trigger: trigger.String(),
			Status:  JobStatusPending,
		},
	}
	return nil
}

// Start launches one loop per job
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}
	s.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for _, e := range s.entries {
		s.wg.Add(1)
		go s.loop(ctx, e)
	}

	s.logger.Info("Scheduler started", zap.Int("jobs", len(s.entries)))
	return nil
}

// Stop cancels the loops and waits for in-flight runs
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.cancel()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out")
		return ctx.Err()
	}
}

// Trigger asks a running scheduler to run the named job as soon as possible
func (s *Scheduler) Trigger(name string) error {
	s.mu.Lock()
	e, ok := s.entries[name]
	running := s.isRunning
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	if !running {
		return ErrSchedulerNotRunning
	}
	select {
	case e.kick <- struct{}{}:
	default:
	}
	return nil
}

// RunNow executes the named job synchronously on the caller's goroutine
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	e, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	return s.execute(ctx, e)
}

// States returns a snapshot of every job, sorted by name
func (s *Scheduler) States() []JobState {
	s.mu.Lock()
	entries := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	s.mu.Unlock()

	out := make([]JobState, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, e.state)
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Scheduler) loop(ctx context.Context, e *entry) {
	defer s.wg.Done()

	if _, interval := e.trigger.(Every); interval && s.config.RunOnStart {
		s.fire(ctx, e)
	}

	for {
		next := e.trigger.Next(s.now())
		e.mu.Lock()
		e.state.NextRunAt = &next
		e.mu.Unlock()

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-e.kick:
			timer.Stop()
		case <-timer.C:
		}
		s.fire(ctx, e)
	}
}

func (s *Scheduler) fire(ctx context.Context, e *entry) {
	if err := s.execute(ctx, e); err != nil && err != ErrJobInProgress {
		s.logger.Error("Scheduled job failed",
			zap.String("job", e.job.Name()),
			zap.Error(err),
		)
	}
}

func (s *Scheduler) execute(ctx context.Context, e *entry) (err error) {
	e.mu.Lock()
	if e.busy {
		e.mu.Unlock()
		return ErrJobInProgress
	}
	e.busy = true
	started := s.now()
	e.state.Status = JobStatusRunning
	e.state.LastStartedAt = &started
	e.mu.Unlock()

	jobCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", e.job.Name(), r)
		}
		finished := s.now()
		e.mu.Lock()
		e.busy = false
		e.state.Runs++
		e.state.LastFinishedAt = &finished
		if err != nil {
			e.state.Status = JobStatusFailed
			e.state.Failures++
			e.state.LastError = err.Error()
		} else {
			e.state.Status = JobStatusSuccess
			e.state.LastError = ""
		}
		e.mu.Unlock()

		s.logger.Debug("Job finished",
			zap.String("job", e.job.Name()),
			zap.Duration("duration", finished.Sub(started)),
			zap.Bool("failed", err != nil),
		)
	}()

	return e.job.Run(jobCtx)
}
