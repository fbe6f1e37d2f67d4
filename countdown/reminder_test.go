package countdown

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/cobic/adapters/store"
	"github.com/layer-3/cobic/core"
)

type notificationSink struct {
	mu   sync.Mutex
	sent []core.Notification
}

func (s *notificationSink) PublishSessionEvent(ctx context.Context, event core.SessionEvent) error {
	return nil
}

func (s *notificationSink) PublishNotification(ctx context.Context, n core.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, n)
	return nil
}

func (s *notificationSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func TestReminder_FiresOnceAtTime(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	st := store.NewMemoryStore()
	sink := &notificationSink{}
	r := NewReminder(st, sink, clock, nil)

	at := clock.Now().Add(2 * time.Hour)
	require.NoError(t, r.Schedule(ctx, at))

	stored, ok, err := st.GetReminder(ctx, NextCheckInKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, at.Equal(stored))
	pending, ok := r.Pending()
	assert.True(t, ok)
	assert.True(t, at.Equal(pending))

	clock.Advance(time.Hour)
	assert.Equal(t, 0, sink.count())
	clock.Advance(time.Hour)
	assert.Equal(t, 1, sink.count())
	clock.Advance(24 * time.Hour)
	assert.Equal(t, 1, sink.count())

	_, ok, err = st.GetReminder(ctx, NextCheckInKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReminder_RescheduleReplacesPending(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	sink := &notificationSink{}
	r := NewReminder(store.NewMemoryStore(), sink, clock, nil)

	require.NoError(t, r.Schedule(ctx, clock.Now().Add(time.Hour)))
	require.NoError(t, r.Schedule(ctx, clock.Now().Add(3*time.Hour)))

	clock.Advance(time.Hour)
	assert.Equal(t, 0, sink.count())
	clock.Advance(2 * time.Hour)
	assert.Equal(t, 1, sink.count())
}

func TestReminder_CancelClearsEverything(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	st := store.NewMemoryStore()
	sink := &notificationSink{}
	r := NewReminder(st, sink, clock, nil)

	require.NoError(t, r.Schedule(ctx, clock.Now().Add(time.Hour)))
	require.NoError(t, r.Cancel(ctx))

	clock.Advance(2 * time.Hour)
	assert.Equal(t, 0, sink.count())
	_, ok, _ := st.GetReminder(ctx, NextCheckInKey)
	assert.False(t, ok)
	_, ok = r.Pending()
	assert.False(t, ok)
}

func TestReminder_PastTimeIsNotScheduled(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	sink := &notificationSink{}
	r := NewReminder(store.NewMemoryStore(), sink, clock, nil)

	require.NoError(t, r.Schedule(ctx, clock.Now().Add(-time.Minute)))
	_, ok := r.Pending()
	assert.False(t, ok)
	clock.Advance(time.Hour)
	assert.Equal(t, 0, sink.count())
}

func TestReminder_RestoreAfterRestart(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	st := store.NewMemoryStore()
	require.NoError(t, st.SetReminder(ctx, NextCheckInKey, clock.Now().Add(30*time.Minute)))

	sink := &notificationSink{}
	r := NewReminder(st, sink, clock, nil)
	require.NoError(t, r.Restore(ctx))

	clock.Advance(30 * time.Minute)
	assert.Equal(t, 1, sink.count())
}
