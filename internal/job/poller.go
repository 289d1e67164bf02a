package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maauso/concepto-video-api/internal/generator"
)

// Poll outcome errors.
var (
	// ErrPollTimeout is returned when the attempt ceiling is reached without a terminal status.
	ErrPollTimeout = errors.New("polling timed out")
	// ErrTaskFailed is returned when the vendor reports a failed task.
	ErrTaskFailed = errors.New("vendor task failed")
	// ErrTaskCancelled is returned when the vendor reports a cancelled task.
	ErrTaskCancelled = fmt.Errorf("%w: cancelled by vendor", ErrTaskFailed)
)

// TimeoutError reports how long a task was polled before giving up.
type TimeoutError struct {
	TaskID   string
	Attempts int
	Elapsed  time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("task %s: no terminal status after %d polls (%s)", e.TaskID, e.Attempts, e.Elapsed.Round(time.Second))
}

// Unwrap returns ErrPollTimeout.
func (e *TimeoutError) Unwrap() error {
	return ErrPollTimeout
}

// TaskFailedError carries the vendor's failure or cancellation message.
type TaskFailedError struct {
	TaskID  string
	Message string
	// Cancelled is set when the vendor reported the task as cancelled.
	Cancelled bool
}

func (e *TaskFailedError) Error() string {
	outcome := "failed"
	if e.Cancelled {
		outcome = "cancelled by vendor"
	}
	if e.Message == "" {
		return fmt.Sprintf("task %s %s", e.TaskID, outcome)
	}
	return fmt.Sprintf("task %s %s: %s", e.TaskID, outcome, e.Message)
}

// Unwrap returns ErrTaskCancelled for cancelled tasks and ErrTaskFailed otherwise.
func (e *TaskFailedError) Unwrap() error {
	if e.Cancelled {
		return ErrTaskCancelled
	}
	return ErrTaskFailed
}

// StatusFunc fetches the current state of a vendor task once.
type StatusFunc func(ctx context.Context, taskID string) (generator.PollResult, error)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// ObserveFunc is called after every successful poll.
type ObserveFunc func(attempt int, res generator.PollResult)

// Poller drives a vendor task to a terminal status under an attempt budget.
type Poller struct {
	sleep  SleepFunc
	now    func() time.Time
	logger *slog.Logger
}

// NewPoller creates a Poller that sleeps on the wall clock.
func NewPoller(logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		sleep:  sleepContext,
		now:    time.Now,
		logger: logger,
	}
}

// WithSleep replaces the sleep function. Tests use it to count waits.
func (p *Poller) WithSleep(fn SleepFunc) *Poller {
	if fn != nil {
		p.sleep = fn
	}
	return p
}

// Run polls taskID until it succeeds, fails, is cancelled or the policy's
// attempt ceiling is reached. It sleeps only between polls, so a task that
// succeeds on the Nth poll costs N-1 sleeps. Errors from status are returned
// immediately without retrying.
func (p *Poller) Run(ctx context.Context, taskID string, status StatusFunc, policy generator.PollPolicy, observe ObserveFunc) (generator.PollResult, error) {
	maxAttempts := policy.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = generator.LongPollAttempts
	}
	interval := policy.Interval
	if interval <= 0 {
		interval = generator.DefaultPollInterval
	}

	start := p.now()
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			if err := p.sleep(ctx, interval); err != nil {
				return generator.PollResult{}, err
			}
		}

		res, err := status(ctx, taskID)
		if err != nil {
			return generator.PollResult{}, fmt.Errorf("poll %s (attempt %d): %w", taskID, attempt, err)
		}
		if observe != nil {
			observe(attempt, res)
		}

		p.logger.Debug("polled vendor task",
			slog.String("task_id", taskID),
			slog.Int("attempt", attempt),
			slog.String("status", string(res.Status)),
			slog.Int("progress", res.Progress),
		)

		switch res.Status {
		case generator.StatusSucceeded:
			if res.VideoURL == "" {
				msg := res.Error
				if msg == "" {
					msg = "no video URL in result"
				}
				return res, fmt.Errorf("task %s: %w: %s", taskID, generator.ErrNoMediaProduced, msg)
			}
			return res, nil
		case generator.StatusFailed:
			return res, &TaskFailedError{TaskID: taskID, Message: res.Error}
		case generator.StatusCancelled:
			return res, &TaskFailedError{TaskID: taskID, Message: res.Error, Cancelled: true}
		}
	}

	return generator.PollResult{}, &TimeoutError{
		TaskID:   taskID,
		Attempts: maxAttempts,
		Elapsed:  p.now().Sub(start),
	}
}

// sleepContext waits for d, returning early with ctx.Err() if ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
