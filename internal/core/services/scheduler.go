package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/tamil-acog/aganitha-chatbot/internal/core/domain"
	"github.com/tamil-acog/aganitha-chatbot/internal/logger"
)

// RunFunc performs one ingestion pass. It is called once per tick and
// must build fresh components, since an index builder is single-use.
type RunFunc func(ctx context.Context) (*domain.RunReport, error)

// Scheduler re-runs ingestion on a cron schedule.
// A tick that fires while the previous run is still going is skipped.
type Scheduler struct {
	spec       string
	schedule   cron.Schedule
	run        RunFunc
	cron       *cron.Cron
	runOnStart bool
	onResult   func(*domain.RunReport, error)

	busy sync.Mutex
	wg   sync.WaitGroup

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	runCtx  context.Context
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithRunOnStart triggers a run as soon as the scheduler starts.
func WithRunOnStart() SchedulerOption {
	return func(s *Scheduler) { s.runOnStart = true }
}

// WithResultHandler is called after every completed run.
func WithResultHandler(fn func(*domain.RunReport, error)) SchedulerOption {
	return func(s *Scheduler) { s.onResult = fn }
}

// NewScheduler creates a scheduler for a standard five-field cron spec
// or a descriptor such as "@daily" or "@every 6h".
func NewScheduler(spec string, run RunFunc, opts ...SchedulerOption) (*Scheduler, error) {
	if run == nil {
		return nil, domain.ConfigError("scheduler: run function is required")
	}
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, domain.ConfigError("invalid cron spec %q: %v", spec, err)
	}

	s := &Scheduler{
		spec:     spec,
		schedule: schedule,
		run:      run,
		cron:     cron.New(cron.WithChain(cron.Recover(cronLogger{}))),
		runCtx:   context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cron.Schedule(schedule, cron.FuncJob(func() { s.Trigger(s.context()) }))
	return s, nil
}

// Start runs the schedule and blocks until ctx is done or Stop is called.
// In-flight runs are waited for before returning.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.runCtx = ctx
	stopCh := s.stopCh
	s.mu.Unlock()

	logger.Info("scheduler: running on %q, next run at %s", s.spec, s.Next(time.Now()).Format(time.RFC3339))
	s.cron.Start()
	if s.runOnStart {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.Trigger(ctx)
		}()
	}

	var err error
	select {
	case <-ctx.Done():
		err = ctx.Err()
	case <-stopCh:
	}

	<-s.cron.Stop().Done()
	s.wg.Wait()

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	return err
}

// Stop ends a running Start call.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || s.stopCh == nil {
		return nil
	}
	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
	return nil
}

// Next returns the next activation time after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.schedule.Next(t)
}

func (s *Scheduler) context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runCtx
}

// Trigger performs one run unless another is in progress.
// It returns false when the run was skipped.
func (s *Scheduler) Trigger(ctx context.Context) bool {
	if !s.busy.TryLock() {
		logger.Warn("scheduler: previous run still in progress, skipping")
		return false
	}
	defer s.busy.Unlock()

	start := time.Now()
	report, err := s.run(ctx)
	if err != nil {
		logger.Error("scheduler: run failed after %s: %v", time.Since(start).Round(time.Millisecond), err)
	} else {
		logger.Info("scheduler: run finished in %s", time.Since(start).Round(time.Millisecond))
	}
	if s.onResult != nil {
		s.onResult(report, err)
	}
	return true
}

// cronLogger routes cron's internal messages to the package logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	logger.Debug("cron: %s %v", msg, keysAndValues)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	logger.Error("cron: %s: %v %s", msg, err, fmt.Sprint(keysAndValues...))
}
