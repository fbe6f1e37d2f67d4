package ports

import (
	"context"
	"time"

	"github.com/layer-3/cobic/core"
)

// TokenStore persists the bearer credential and the cached profile
type TokenStore interface {
	// GetToken returns ok=false when no token is stored; err is reserved for
	// storage failures
	GetToken(ctx context.Context) (token string, ok bool, err error)
	SetToken(ctx context.Context, token string) error
	// RemoveToken deletes the token and the cached profile. Removing an
	// absent token is not an error.
	RemoveToken(ctx context.Context) error

	// SaveCredential writes token and profile as one operation
	SaveCredential(ctx context.Context, token string, user *core.User) error
	GetProfile(ctx context.Context) (*core.User, bool, error)
	// SaveProfile replaces the cached profile; fails with core.ErrNoCredential
	// when no token is stored
	SaveProfile(ctx context.Context, user *core.User) error
}

// ReminderStore keeps auxiliary timestamps such as the next check-in time
type ReminderStore interface {
	SetReminder(ctx context.Context, key string, at time.Time) error
	GetReminder(ctx context.Context, key string) (time.Time, bool, error)
	ClearReminder(ctx context.Context, key string) error
}
