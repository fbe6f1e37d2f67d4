package store

import (
	"context"
	"sync"
	"time"

	"github.com/layer-3/cobic/core"
)

// MemoryStore keeps the credential in process memory. It does not survive a
// restart and is meant for tests and throwaway sessions.
type MemoryStore struct {
	mu        sync.RWMutex
	token     string
	profile   *core.User
	reminders map[string]time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		reminders: make(map[string]time.Time),
	}
}

// GetToken returns the stored token
func (s *MemoryStore) GetToken(ctx context.Context) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.token, s.token != "", nil
}

// SetToken overwrites the stored token and keeps the cached profile
func (s *MemoryStore) SetToken(ctx context.Context, token string) error {
	if token == "" {
		return core.ErrEmptyToken
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = token
	return nil
}

// RemoveToken clears token and profile together
func (s *MemoryStore) RemoveToken(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = ""
	s.profile = nil
	return nil
}

// SaveCredential stores token and profile under one lock
func (s *MemoryStore) SaveCredential(ctx context.Context, token string, user *core.User) error {
	if token == "" {
		return core.ErrEmptyToken
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = token
	s.profile = user.Clone()
	return nil
}

// GetProfile returns a copy of the cached profile
func (s *MemoryStore) GetProfile(ctx context.Context) (*core.User, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.token == "" || s.profile == nil {
		return nil, false, nil
	}
	return s.profile.Clone(), true, nil
}

// SaveProfile replaces the cached profile of the current credential
func (s *MemoryStore) SaveProfile(ctx context.Context, user *core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token == "" {
		return core.ErrNoCredential
	}
	s.profile = user.Clone()
	return nil
}

// SetReminder stores a named timestamp
func (s *MemoryStore) SetReminder(ctx context.Context, key string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reminders[key] = at
	return nil
}

// GetReminder returns a named timestamp
func (s *MemoryStore) GetReminder(ctx context.Context, key string) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	at, ok := s.reminders[key]
	return at, ok, nil
}

// ClearReminder deletes a named timestamp
func (s *MemoryStore) ClearReminder(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.reminders, key)
	return nil
}
