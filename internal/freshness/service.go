package freshness

import (
	"context"
	"sync"
	"time"

	"github.com/evidentry-project/evidentry/pkg/logging"
)

// Clock abstracts time for the scheduler so cadence behavior is testable.
type Clock interface {
	Now() time.Time
	Tick(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Tick(d time.Duration) <-chan time.Time {
	return time.NewTicker(d).C
}

// Service runs the tracker on a fixed cadence until stopped.
type Service struct {
	tracker *Tracker
	clock   Clock
	cadence time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewService creates a scheduled freshness service. A nil clock uses real
// time.
func NewService(tracker *Tracker, clock Clock, cadence time.Duration) *Service {
	if clock == nil {
		clock = realClock{}
	}
	if cadence <= 0 {
		cadence = 24 * time.Hour
	}
	return &Service{tracker: tracker, clock: clock, cadence: cadence}
}

// Start runs one immediate check and then checks on every cadence tick.
// Safe to call once; Stop terminates the loop.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		s.runOnce(runCtx)
		ticks := s.clock.Tick(s.cadence)
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticks:
				s.runOnce(runCtx)
			}
		}
	}()
}

// Stop terminates the scheduler and waits for the loop to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (s *Service) runOnce(ctx context.Context) {
	transitions, err := s.tracker.CheckAll(ctx, s.clock.Now())
	if err != nil {
		logging.ErrorErr("scheduled freshness check failed", err)
		return
	}
	if len(transitions) > 0 {
		logging.Info("freshness check complete", map[string]any{
			"transitions": len(transitions),
		})
	}
}
