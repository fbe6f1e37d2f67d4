package countdown

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// FetchFunc loads the next eligible time of a cooldown feature. The zero time
// means the action is available now.
type FetchFunc func(ctx context.Context) (time.Time, error)

// Monitor keeps a countdown in step with the server. When the countdown
// elapses it refetches the status exactly once and starts over.
type Monitor struct {
	fetch     FetchFunc
	clock     Clock
	countdown *Countdown
	logger    logrus.FieldLogger

	elapsed chan time.Time
	group   singleflight.Group

	mu      sync.Mutex
	baseCtx context.Context
}

type MonitorOption func(*Monitor)

func WithMonitorLogger(logger logrus.FieldLogger) MonitorOption {
	return func(m *Monitor) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewMonitor creates a monitor. onTick receives every new display value.
func NewMonitor(clock Clock, fetch FetchFunc, onTick func(display string), opts ...MonitorOption) *Monitor {
	if clock == nil {
		clock = RealClock()
	}
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	m := &Monitor{
		fetch:   fetch,
		clock:   clock,
		logger:  logger,
		elapsed: make(chan time.Time, 1),
		baseCtx: context.Background(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.countdown = New(clock, onTick, m.signalElapsed)
	return m
}

func (m *Monitor) signalElapsed(target time.Time) {
	select {
	case m.elapsed <- target:
	default:
	}
}

// Countdown exposes the owned countdown for reading its display
func (m *Monitor) Countdown() *Countdown {
	return m.countdown
}

// Run fetches the status and follows it until ctx ends. The countdown is
// stopped on every return path.
func (m *Monitor) Run(ctx context.Context) error {
	m.mu.Lock()
	m.baseCtx = ctx
	m.mu.Unlock()
	defer m.countdown.Stop()

	if err := m.Refresh(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case target := <-m.elapsed:
			m.logger.WithField("target", target).Debug("Cooldown elapsed, refreshing status")
			if err := m.Refresh(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					return err
				}
				m.logger.WithError(err).Warn("Failed to refresh status after cooldown")
			}
		}
	}
}

// Refresh refetches the status and resets the countdown. Concurrent calls,
// including the one made when the countdown elapses, share one fetch.
func (m *Monitor) Refresh(ctx context.Context) error {
	_, err, _ := m.group.Do("refresh", func() (interface{}, error) {
		next, err := m.fetch(ctx)
		if err != nil {
			return nil, err
		}
		// A target the server already considers due would elapse at once
		// and trigger another fetch
		if !next.After(m.clock.Now()) {
			next = time.Time{}
		}

		m.mu.Lock()
		base := m.baseCtx
		m.mu.Unlock()
		m.countdown.Reset(base, next)
		return nil, nil
	})
	return err
}
