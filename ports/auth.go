package ports

import (
	"context"

	"github.com/layer-3/cobic/core"
)

// AuthGateway is the slice of the backend the session controller talks to
type AuthGateway interface {
	Login(ctx context.Context, username, password string) (*core.AuthResult, error)
	Register(ctx context.Context, username, email, password string) (*core.AuthResult, error)
	GuestRegister(ctx context.Context) (*core.AuthResult, error)
	Me(ctx context.Context) (*core.User, error)
	// Logout revokes token on the server. The token is passed explicitly
	// because the local copy is already gone when this is called.
	Logout(ctx context.Context, token string) error
}

// ProfileUpdater applies a server-confirmed change to the cached profile
type ProfileUpdater interface {
	UpdateUser(ctx context.Context, fn func(u *core.User)) error
}
