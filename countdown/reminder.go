package countdown

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/layer-3/cobic/core"
	"github.com/layer-3/cobic/ports"
)

// NextCheckInKey is the reminder slot holding the next daily check-in time
const NextCheckInKey = "nextCheckInTime"

// Reminder schedules one local notification for the next daily check-in.
// The time is persisted so a restarted process can schedule it again.
type Reminder struct {
	store     ports.ReminderStore
	publisher ports.EventPublisher
	clock     Clock
	logger    logrus.FieldLogger

	mu    sync.Mutex
	timer Timer
	at    time.Time
	gen   uint64
}

// NewReminder creates a reminder publishing through publisher
func NewReminder(store ports.ReminderStore, publisher ports.EventPublisher, clock Clock, logger logrus.FieldLogger) *Reminder {
	if clock == nil {
		clock = RealClock()
	}
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	return &Reminder{
		store:     store,
		publisher: publisher,
		clock:     clock,
		logger:    logger,
	}
}

// Schedule stores at and replaces any pending notification with one firing at
// at. Times that are not in the future are stored but not scheduled.
func (r *Reminder) Schedule(ctx context.Context, at time.Time) error {
	if err := r.store.SetReminder(ctx, NextCheckInKey, at); err != nil {
		return fmt.Errorf("failed to store reminder: %w", err)
	}
	r.arm(at)
	return nil
}

// Restore schedules the stored reminder, if it is still ahead
func (r *Reminder) Restore(ctx context.Context) error {
	at, ok, err := r.store.GetReminder(ctx, NextCheckInKey)
	if err != nil {
		return fmt.Errorf("failed to load reminder: %w", err)
	}
	if ok {
		r.arm(at)
	}
	return nil
}

// Cancel drops the pending notification and the stored time
func (r *Reminder) Cancel(ctx context.Context) error {
	r.mu.Lock()
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.at = time.Time{}
	r.gen++
	r.mu.Unlock()

	if err := r.store.ClearReminder(ctx, NextCheckInKey); err != nil {
		return fmt.Errorf("failed to clear reminder: %w", err)
	}
	return nil
}

// Pending returns the time of the scheduled notification
func (r *Reminder) Pending() (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.at, r.timer != nil
}

func (r *Reminder) arm(at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.at = time.Time{}
	r.gen++

	delay := at.Sub(r.clock.Now())
	if delay <= 0 {
		return
	}
	r.at = at
	gen := r.gen
	r.timer = r.clock.AfterFunc(delay, func() { r.fire(gen, at) })
}

func (r *Reminder) fire(gen uint64, at time.Time) {
	r.mu.Lock()
	if r.gen != gen {
		// replaced or cancelled after the timer fired
		r.mu.Unlock()
		return
	}
	r.timer = nil
	r.at = time.Time{}
	r.mu.Unlock()

	ctx := context.Background()
	n := core.Notification{
		Title: "Time to check in!",
		Body:  "Check in now to earn COBIC.",
		At:    at,
	}
	if err := r.publisher.PublishNotification(ctx, n); err != nil {
		r.logger.WithError(err).Warn("Failed to publish check-in reminder")
	}
	if err := r.store.ClearReminder(ctx, NextCheckInKey); err != nil {
		r.logger.WithError(err).Warn("Failed to clear fired reminder")
	}
}
