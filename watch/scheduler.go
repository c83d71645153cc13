package watch

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/teranos/jobpulse/errors"
	"github.com/teranos/jobpulse/logger"
	"github.com/teranos/jobpulse/sym"
)

// scheduleParser accepts 5-field expressions, an optional leading seconds
// field and descriptors such as "@every 5m" or "@hourly".
var scheduleParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ParseSchedule validates a cadence expression.
func ParseSchedule(expr string) (cron.Schedule, error) {
	sched, err := scheduleParser.Parse(expr)
	if err != nil {
		return nil, errors.WithHint(
			errors.Wrapf(err, "invalid schedule %q", expr),
			"use a cron expression like \"*/5 * * * *\" or a descriptor like \"@every 5m\"")
	}
	return sched, nil
}

// CycleRunner runs one comparison cycle.
type CycleRunner interface {
	RunCycle(ctx context.Context) (Report, error)
}

// Scheduler triggers cycles on a cron cadence. A trigger that fires while
// the previous cycle is still running is skipped.
type Scheduler struct {
	cron       *cron.Cron
	runner     CycleRunner
	spec       string
	runOnStart bool
	logger     *zap.SugaredLogger

	mu  sync.Mutex
	ctx context.Context
	wg  sync.WaitGroup
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithRunOnStart runs one cycle immediately when the scheduler starts.
func WithRunOnStart(enabled bool) SchedulerOption {
	return func(s *Scheduler) { s.runOnStart = enabled }
}

// NewScheduler creates a Scheduler running runner on spec.
func NewScheduler(spec string, runner CycleRunner, log *zap.SugaredLogger, opts ...SchedulerOption) (*Scheduler, error) {
	s := &Scheduler{
		runner: runner,
		spec:   spec,
		logger: logger.OrNop(log).Named("scheduler"),
		ctx:    context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}

	cl := cronLogger{s.logger}
	s.cron = cron.New(
		cron.WithParser(scheduleParser),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	if _, err := ParseSchedule(spec); err != nil {
		return nil, err
	}
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return nil, errors.Wrapf(err, "register schedule %q", spec)
	}
	return s, nil
}

// Start begins firing cycles. Cycles run with ctx, so cancelling it aborts
// an in-flight cycle; call Stop to stop firing.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.logger.Infow("Scheduler started",
		logger.FieldSymbol, sym.PulseOpen,
		"schedule", s.spec,
		"next", s.Next())

	if s.runOnStart {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.tick()
		}()
	}
	s.cron.Start()
}

// Stop stops firing and waits for a running cycle to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.wg.Wait()
	s.logger.Infow("Scheduler stopped", logger.FieldSymbol, sym.PulseClose)
}

// Next returns the next fire time, or the zero time before Start.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	if !entries[0].Next.IsZero() {
		return entries[0].Next
	}
	return entries[0].Schedule.Next(time.Now())
}

func (s *Scheduler) tick() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	if ctx.Err() != nil {
		return
	}

	_, err := s.runner.RunCycle(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrCycleInProgress):
		s.logger.Warnw("Skipping trigger, previous cycle still running", logger.FieldSymbol, sym.Pulse)
	case errors.Is(err, context.Canceled):
		s.logger.Infow("Cycle cancelled", logger.FieldSymbol, sym.Pulse)
	default:
		s.logger.Errorw("Cycle failed", logger.FieldSymbol, sym.Pulse, logger.FieldError, err.Error())
	}
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, logger.FieldError, err.Error())...)
}
