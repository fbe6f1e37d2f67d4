package countdown

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitFor = time.Second

type probe struct {
	ticks   chan string
	elapsed chan time.Time
}

func newProbe() *probe {
	return &probe{ticks: make(chan string, 64), elapsed: make(chan time.Time, 8)}
}

func (p *probe) onTick(s string)              { p.ticks <- s }
func (p *probe) onElapsed(t time.Time)        { p.elapsed <- t }
func (p *probe) countdown(c Clock) *Countdown { return New(c, p.onTick, p.onElapsed) }

func recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for countdown")
		var zero T
		return zero
	}
}

func assertQuiet[T any](t *testing.T, ch <-chan T) {
	t.Helper()
	select {
	case v := <-ch:
		t.Fatalf("unexpected value %v", v)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestFormatRemaining(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "00:00:00"},
		{-time.Minute, "00:00:00"},
		{999 * time.Millisecond, "00:00:00"},
		{5 * time.Second, "00:00:05"},
		{time.Hour, "01:00:00"},
		{23*time.Hour + 59*time.Minute + 59*time.Second + 900*time.Millisecond, "23:59:59"},
		{125 * time.Hour, "125:00:00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatRemaining(tt.in), tt.in.String())
	}
}

func TestCountdown_FiveSecondsTicksThenElapsesOnce(t *testing.T) {
	clock := newFakeClock()
	p := newProbe()
	cd := p.countdown(clock)
	defer cd.Stop()

	target := clock.Now().Add(5 * time.Second)
	cd.Reset(context.Background(), target)

	got := []string{recv(t, p.ticks)}
	for i := 0; i < 4; i++ {
		clock.Advance(time.Second)
		got = append(got, recv(t, p.ticks))
	}
	assert.Equal(t, []string{"00:00:05", "00:00:04", "00:00:03", "00:00:02", "00:00:01"}, got)

	clock.Advance(time.Second)
	assert.True(t, target.Equal(recv(t, p.elapsed)))
	assert.Equal(t, "", cd.Display())
	assert.True(t, cd.Elapsed())

	clock.Advance(10 * time.Second)
	assertQuiet(t, p.ticks)
	assertQuiet(t, p.elapsed)
}

func TestCountdown_PastTargetElapsesWithoutTick(t *testing.T) {
	clock := newFakeClock()
	p := newProbe()
	cd := p.countdown(clock)
	defer cd.Stop()

	cd.Reset(context.Background(), clock.Now().Add(-time.Minute))
	recv(t, p.elapsed)
	assertQuiet(t, p.ticks)
	assert.Equal(t, "", cd.Display())
}

func TestCountdown_ZeroTargetIsIdle(t *testing.T) {
	clock := newFakeClock()
	p := newProbe()
	cd := p.countdown(clock)

	cd.Reset(context.Background(), time.Time{})
	clock.Advance(time.Hour)
	assertQuiet(t, p.ticks)
	assertQuiet(t, p.elapsed)

	created, _ := clock.liveTickers()
	assert.Equal(t, 0, created)
}

func TestCountdown_ResetCancelsPreviousTimer(t *testing.T) {
	clock := newFakeClock()
	p := newProbe()
	cd := p.countdown(clock)
	defer cd.Stop()
	ctx := context.Background()

	first := clock.Now().Add(10 * time.Second)
	cd.Reset(ctx, first)
	assert.Equal(t, "00:00:10", recv(t, p.ticks))

	second := clock.Now().Add(3 * time.Second)
	cd.Reset(ctx, second)
	assert.Equal(t, "00:00:03", recv(t, p.ticks))

	// the first goroutine is gone before the second starts
	created, live := clock.liveTickers()
	assert.Equal(t, 2, created)
	assert.Equal(t, 1, live)

	clock.Advance(time.Second)
	assert.Equal(t, "00:00:02", recv(t, p.ticks))
	clock.Advance(time.Second)
	assert.Equal(t, "00:00:01", recv(t, p.ticks))
	clock.Advance(time.Second)
	assert.True(t, second.Equal(recv(t, p.elapsed)))

	clock.Advance(20 * time.Second)
	assertQuiet(t, p.elapsed)
	assertQuiet(t, p.ticks)
}

func TestCountdown_SameTargetIsNoop(t *testing.T) {
	clock := newFakeClock()
	p := newProbe()
	cd := p.countdown(clock)
	defer cd.Stop()
	ctx := context.Background()

	target := clock.Now().Add(time.Hour)
	cd.Reset(ctx, target)
	assert.Equal(t, "01:00:00", recv(t, p.ticks))
	cd.Reset(ctx, target)
	cd.Reset(ctx, target)

	created, _ := clock.liveTickers()
	assert.Equal(t, 1, created)
	assertQuiet(t, p.ticks)

	// an elapsed target is not scheduled again either
	past := clock.Now().Add(-time.Second)
	cd.Reset(ctx, past)
	recv(t, p.elapsed)
	cd.Reset(ctx, past)
	assertQuiet(t, p.elapsed)
}

func TestCountdown_StopWaitsForGoroutine(t *testing.T) {
	clock := newFakeClock()
	p := newProbe()
	cd := p.countdown(clock)

	cd.Reset(context.Background(), clock.Now().Add(time.Minute))
	recv(t, p.ticks)
	cd.Stop()

	_, live := clock.liveTickers()
	assert.Equal(t, 0, live)
	assert.Equal(t, "", cd.Display())

	clock.Advance(2 * time.Minute)
	assertQuiet(t, p.elapsed)
}

func TestCountdown_ContextCancellationEndsTimer(t *testing.T) {
	clock := newFakeClock()
	p := newProbe()
	cd := p.countdown(clock)

	ctx, cancel := context.WithCancel(context.Background())
	cd.Reset(ctx, clock.Now().Add(time.Minute))
	recv(t, p.ticks)
	cancel()

	require.Eventually(t, func() bool {
		_, live := clock.liveTickers()
		return live == 0
	}, waitFor, 5*time.Millisecond)

	clock.Advance(2 * time.Minute)
	assertQuiet(t, p.elapsed)
	cd.Stop()
}

func TestCountdown_OnlyChangedValuesAreEmitted(t *testing.T) {
	clock := newFakeClock()
	p := newProbe()
	cd := p.countdown(clock)
	defer cd.Stop()

	cd.Reset(context.Background(), clock.Now().Add(90*time.Second))
	assert.Equal(t, "00:01:30", recv(t, p.ticks))

	// a large jump delivers one tick; intermediate values are skipped
	clock.Advance(80 * time.Second)
	assert.Equal(t, "00:00:10", recv(t, p.ticks))
	assertQuiet(t, p.ticks)
}
