package countdown

import (
	"sync"
	"time"
)

type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*fakeTicker
	timers  []*fakeTimer
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) NewTicker(d time.Duration) Ticker {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTicker{clock: f, c: make(chan time.Time, 1), period: d, next: f.now.Add(d)}
	f.tickers = append(f.tickers, t)
	return t
}

func (f *fakeClock) AfterFunc(d time.Duration, fn func()) Timer {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTimer{clock: f, at: f.now.Add(d), fn: fn}
	f.timers = append(f.timers, t)
	return t
}

// Advance moves time forward, delivering due ticks (dropping those a slow
// reader missed, like time.Ticker) and running due timers
func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	now := f.now
	for _, t := range f.tickers {
		if t.stopped {
			continue
		}
		for !t.next.After(now) {
			select {
			case t.c <- now:
			default:
			}
			t.next = t.next.Add(t.period)
		}
	}
	var due []func()
	for _, t := range f.timers {
		if !t.done && !t.at.After(now) {
			t.done = true
			due = append(due, t.fn)
		}
	}
	f.mu.Unlock()

	for _, fn := range due {
		fn()
	}
}

func (f *fakeClock) liveTickers() (created, live int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tickers {
		if !t.stopped {
			live++
		}
	}
	return len(f.tickers), live
}

type fakeTicker struct {
	clock   *fakeClock
	c       chan time.Time
	period  time.Duration
	next    time.Time
	stopped bool
}

func (t *fakeTicker) C() <-chan time.Time { return t.c }

func (t *fakeTicker) Stop() {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	t.stopped = true
}

type fakeTimer struct {
	clock *fakeClock
	at    time.Time
	fn    func()
	done  bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	wasPending := !t.done
	t.done = true
	return wasPending
}
