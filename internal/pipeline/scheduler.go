package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"resumescreen/internal/errors"
	"resumescreen/internal/notify"
)

// FollowUpScheduler delivers the follow-up plan to shortlisted candidates on
// in-process timers. Day N of the plan fires (N-1)*dayLength after
// scheduling. Jobs live in memory only: a restart drops pending follow-ups,
// which is acceptable because the initial notification already went out.
type FollowUpScheduler struct {
	notifier  notify.Notifier
	plan      []notify.FollowUpStep
	dayLength time.Duration
	logger    *errors.Logger

	mu      sync.Mutex
	pending map[string]*pendingFollowUps
	stopped bool
}

// pendingFollowUps tracks one candidate's queued plan. remaining hits zero
// when the last timer fires, which clears the candidate's entry.
type pendingFollowUps struct {
	timers    []*time.Timer
	remaining int
}

// NewFollowUpScheduler creates a scheduler over the given plan. A zero
// dayLength means real days.
func NewFollowUpScheduler(notifier notify.Notifier, plan []notify.FollowUpStep, dayLength time.Duration, logger *errors.Logger) *FollowUpScheduler {
	if dayLength == 0 {
		dayLength = 24 * time.Hour
	}
	return &FollowUpScheduler{
		notifier:  notifier,
		plan:      plan,
		dayLength: dayLength,
		logger:    logger,
		pending:   make(map[string]*pendingFollowUps),
	}
}

// Schedule queues the full follow-up plan for one candidate. Scheduling the
// same email again replaces the pending plan rather than doubling it.
func (s *FollowUpScheduler) Schedule(email string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped || email == "" {
		return
	}

	if prev, ok := s.pending[email]; ok {
		for _, timer := range prev.timers {
			timer.Stop()
		}
		delete(s.pending, email)
	}
	if len(s.plan) == 0 {
		return
	}

	plan := &pendingFollowUps{remaining: len(s.plan)}
	for i, step := range s.plan {
		n := i + 1
		msg := notify.FollowUpMessage(email, n, step)
		delay := time.Duration(step.OffsetDays-1) * s.dayLength

		timer := time.AfterFunc(delay, func() {
			if err := s.notifier.Send(context.Background(), msg); err != nil && s.logger != nil {
				s.logger.LogError(err, "Follow-up send failed",
					"candidate", email, "followup", n)
			}
			s.mu.Lock()
			plan.remaining--
			// The entry may already belong to a rescheduled plan.
			if plan.remaining == 0 && s.pending[email] == plan {
				delete(s.pending, email)
			}
			s.mu.Unlock()
		})
		plan.timers = append(plan.timers, timer)
	}
	s.pending[email] = plan

	if s.logger != nil {
		s.logger.Info("Follow-ups scheduled",
			"candidate", email,
			"steps", len(s.plan),
			"span_days", s.plan[len(s.plan)-1].OffsetDays)
	}
}

// Pending returns how many candidates still have follow-ups queued.
func (s *FollowUpScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Stop cancels every pending follow-up.
func (s *FollowUpScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, plan := range s.pending {
		for _, timer := range plan.timers {
			timer.Stop()
		}
	}
	s.pending = make(map[string]*pendingFollowUps)
	s.stopped = true
}

// RunLoop runs the pipeline once and then repeats every interval until the
// context is canceled. An interval of zero means run once and return.
func (p *Pipeline) RunLoop(ctx context.Context, interval time.Duration) error {
	if _, err := p.Run(ctx); err != nil {
		return fmt.Errorf("initial pipeline run: %w", err)
	}
	if interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := p.Run(ctx); err != nil {
				// One bad cycle does not stop the loop; the source may
				// recover by the next tick.
				if p.Logger != nil {
					p.Logger.LogError(err, "Pipeline run failed, will retry next interval")
				}
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
