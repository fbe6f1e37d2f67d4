package countdown

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// FormatRemaining renders d as zero padded HH:MM:SS, truncated to whole
// seconds. Hours are not wrapped at 24.
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// Countdown turns a target instant into a live HH:MM:SS display. One
// Countdown belongs to one view; at most one timer goroutine is alive per
// Countdown at any time.
//
// The tick and elapsed callbacks run on the timer goroutine and must not call
// Reset or Stop.
type Countdown struct {
	clock     Clock
	onTick    func(display string)
	onElapsed func(target time.Time)

	// op serialises Reset and Stop
	op sync.Mutex

	mu      sync.Mutex
	target  time.Time
	armed   bool
	display string
	elapsed bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates an idle countdown. Either callback may be nil.
func New(clock Clock, onTick func(display string), onElapsed func(target time.Time)) *Countdown {
	if clock == nil {
		clock = RealClock()
	}
	return &Countdown{
		clock:     clock,
		onTick:    onTick,
		onElapsed: onElapsed,
	}
}

// Reset points the countdown at target. The previous timer, if any, is
// cancelled and has exited before the new one starts. A zero target means the
// action is available now: the display is cleared and no elapsed signal
// follows. Resetting to the current target is a no-op.
func (c *Countdown) Reset(ctx context.Context, target time.Time) {
	c.op.Lock()
	defer c.op.Unlock()

	c.mu.Lock()
	if c.armed && c.target.Equal(target) {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	c.halt()

	c.mu.Lock()
	c.target = target
	c.armed = true
	c.display = ""
	c.elapsed = false
	if target.IsZero() {
		c.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.cancel = cancel
	c.done = done
	c.mu.Unlock()

	go c.run(runCtx, target, done)
}

// Stop cancels the running timer, waits for it to exit and clears the display
func (c *Countdown) Stop() {
	c.op.Lock()
	defer c.op.Unlock()

	c.halt()

	c.mu.Lock()
	c.armed = false
	c.target = time.Time{}
	c.display = ""
	c.mu.Unlock()
}

func (c *Countdown) halt() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// Display returns the last rendered value; empty when idle or elapsed
func (c *Countdown) Display() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.display
}

// Target returns the instant the countdown is running towards
func (c *Countdown) Target() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.target
}

// Elapsed reports whether the current target has been reached
func (c *Countdown) Elapsed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.elapsed
}

func (c *Countdown) run(ctx context.Context, target time.Time, done chan struct{}) {
	defer close(done)

	ticker := c.clock.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		if c.evaluate(ctx, target) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
		}
	}
}

// evaluate renders the remaining time and reports whether the target is reached
func (c *Countdown) evaluate(ctx context.Context, target time.Time) bool {
	if ctx.Err() != nil {
		return true
	}

	remaining := target.Sub(c.clock.Now())
	if remaining <= 0 {
		c.mu.Lock()
		c.display = ""
		c.elapsed = true
		c.mu.Unlock()

		if c.onElapsed != nil {
			c.onElapsed(target)
		}
		return true
	}

	text := FormatRemaining(remaining)
	c.mu.Lock()
	changed := text != c.display
	c.display = text
	c.mu.Unlock()

	if changed && c.onTick != nil {
		c.onTick(text)
	}
	return false
}
