package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/layer-3/cobic/api"
	"github.com/layer-3/cobic/core"
	"github.com/layer-3/cobic/ports"
)

// Controller owns the authentication state of the process. Construct one in
// main and pass it to whatever needs it.
//
// Every token store mutation happens under mu and is gated by the current
// state, so a late result of one operation never undoes the effect of a newer
// one.
type Controller struct {
	store     ports.TokenStore
	auth      ports.AuthGateway
	publisher ports.EventPublisher
	inspector ports.TokenInspector
	logger    logrus.FieldLogger
	now       func() time.Time

	mu        sync.Mutex
	state     core.SessionState
	user      *core.User
	signedOut []func(ctx context.Context)

	checks singleflight.Group
}

type Option func(*Controller)

// WithInspector enables the local expiry check of JWT credentials
func WithInspector(inspector ports.TokenInspector) Option {
	return func(c *Controller) {
		c.inspector = inspector
	}
}

func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock replaces the time source used for event timestamps
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// NewController creates a controller in the Uninitialized state
func NewController(store ports.TokenStore, auth ports.AuthGateway, publisher ports.EventPublisher, opts ...Option) *Controller {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	c := &Controller{
		store:     store,
		auth:      auth,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
		state:     core.StateUninitialized,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Attach subscribes the controller to 401 responses of client
func (c *Controller) Attach(client interface{ OnUnauthorized(api.UnauthorizedHandler) }) {
	client.OnUnauthorized(c.HandleUnauthorized)
}

// OnSignedOut registers fn to run whenever the session ends, by logout or
// expiry
func (c *Controller) OnSignedOut(fn func(ctx context.Context)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.signedOut = append(c.signedOut, fn)
}

// State returns the current session state
func (c *Controller) State() core.SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// IsAuthenticated reports whether a session is active
func (c *Controller) IsAuthenticated() bool {
	return c.State() == core.StateAuthenticated
}

// User returns a copy of the signed-in user, or nil
func (c *Controller) User() *core.User {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.user.Clone()
}

// CheckAuth validates the stored credential against the server. Concurrent
// calls share one run. The state never stays Checking once it returns.
func (c *Controller) CheckAuth(ctx context.Context) (core.SessionState, error) {
	v, err, _ := c.checks.Do("check", func() (interface{}, error) {
		return c.checkAuth(ctx)
	})
	state, _ := v.(core.SessionState)
	return state, err
}

func (c *Controller) checkAuth(ctx context.Context) (core.SessionState, error) {
	c.mu.Lock()
	if c.state == core.StateLoggingOut {
		c.mu.Unlock()
		return core.StateLoggingOut, core.ErrLogoutInProgress
	}
	c.state = core.StateChecking
	c.mu.Unlock()

	token, ok, err := c.store.GetToken(ctx)
	if err != nil {
		return c.failCheck(ctx, false, fmt.Errorf("failed to read credential: %w", err))
	}
	if !ok {
		return c.failCheck(ctx, false, nil)
	}

	// Skip the round trip for a JWT that has visibly expired
	if c.inspector != nil {
		if _, err := c.inspector.InspectToken(token); errors.Is(err, core.ErrTokenExpired) {
			c.logger.Info("Stored credential has expired")
			return c.failCheck(ctx, true, nil)
		}
	}

	user, err := c.auth.Me(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return c.failCheck(ctx, false, err)
		}
		return c.failCheck(ctx, true, fmt.Errorf("failed to fetch profile: %w", err))
	}
	if err := user.Validate(); err != nil {
		return c.failCheck(ctx, true, fmt.Errorf("failed to fetch profile: %w", err))
	}

	c.mu.Lock()
	if c.state != core.StateChecking {
		// A login or logout finished while the profile was in flight
		state := c.state
		c.mu.Unlock()
		return state, nil
	}
	if err := c.store.SaveProfile(ctx, user); err != nil {
		c.logger.WithError(err).Warn("Failed to cache profile")
	}
	c.state = core.StateAuthenticated
	c.user = user.Clone()
	c.mu.Unlock()

	c.publish(ctx, core.EventAuthenticated, core.RouteHome, user)
	return core.StateAuthenticated, nil
}

// failCheck ends a check as Unauthenticated, optionally dropping the stored
// credential. Nothing happens if another operation already moved the state.
func (c *Controller) failCheck(ctx context.Context, removeCredential bool, cause error) (core.SessionState, error) {
	c.mu.Lock()
	if c.state != core.StateChecking {
		state := c.state
		c.mu.Unlock()
		return state, cause
	}
	if removeCredential {
		if err := c.store.RemoveToken(ctx); err != nil {
			c.logger.WithError(err).Error("Failed to remove credential")
		}
	}
	c.state = core.StateUnauthenticated
	c.user = nil
	c.mu.Unlock()

	if cause != nil {
		c.logger.WithError(cause).Warn("Session check failed")
	}
	c.publish(ctx, core.EventUnauthenticated, core.RouteLogin, nil)
	return core.StateUnauthenticated, cause
}

// Login stores a freshly issued credential and starts the session
func (c *Controller) Login(ctx context.Context, token string, user *core.User) error {
	if token == "" {
		return core.ErrEmptyToken
	}
	if err := user.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	if c.state == core.StateLoggingOut {
		c.mu.Unlock()
		return core.ErrLogoutInProgress
	}
	if err := c.store.SaveCredential(ctx, token, user); err != nil {
		c.mu.Unlock()
		return fmt.Errorf("failed to persist credential: %w", err)
	}
	c.state = core.StateAuthenticated
	c.user = user.Clone()
	c.mu.Unlock()

	c.logger.WithFields(logrus.Fields{"user_id": user.ID, "username": user.Username}).Info("Signed in")
	c.publish(ctx, core.EventAuthenticated, core.RouteHome, user)
	return nil
}

// LoginWithPassword exchanges username and password for a session
func (c *Controller) LoginWithPassword(ctx context.Context, username, password string) (*core.User, error) {
	res, err := c.auth.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}
	return c.loginResult(ctx, res)
}

// Register creates an account and signs in with it
func (c *Controller) Register(ctx context.Context, username, email, password string) (*core.User, error) {
	res, err := c.auth.Register(ctx, username, email, password)
	if err != nil {
		return nil, err
	}
	return c.loginResult(ctx, res)
}

// GuestRegister creates a guest account and signs in with it. The returned
// user carries the generated password so it can be shown once.
func (c *Controller) GuestRegister(ctx context.Context) (*core.User, error) {
	res, err := c.auth.GuestRegister(ctx)
	if err != nil {
		return nil, err
	}
	return c.loginResult(ctx, res)
}

func (c *Controller) loginResult(ctx context.Context, res *core.AuthResult) (*core.User, error) {
	if res == nil {
		return nil, core.ErrInvalidUser
	}
	if err := c.Login(ctx, res.Token, res.User); err != nil {
		return nil, err
	}
	return res.User.Clone(), nil
}

// Logout ends the session. A call made while another logout is running
// returns immediately. The local credential is gone before the server is
// told, and a failure to tell the server is only logged.
func (c *Controller) Logout(ctx context.Context) error {
	c.mu.Lock()
	if c.state == core.StateLoggingOut {
		c.mu.Unlock()
		return nil
	}
	c.state = core.StateLoggingOut
	user := c.user
	c.mu.Unlock()

	// Capture the credential, then drop it locally
	token, hasToken, err := c.store.GetToken(ctx)
	if err != nil {
		c.logger.WithError(err).Warn("Failed to read credential before logout")
	}
	storeErr := c.store.RemoveToken(ctx)
	if storeErr != nil {
		c.logger.WithError(storeErr).Error("Failed to remove credential")
	}

	// Tell the server with the captured token
	if hasToken {
		if err := c.auth.Logout(ctx, token); err != nil {
			c.logger.WithError(err).Warn("Server logout failed")
		}
	}

	c.runSignedOut(ctx)

	c.mu.Lock()
	c.state = core.StateUnauthenticated
	c.user = nil
	c.mu.Unlock()

	c.publish(ctx, core.EventLoggedOut, core.RouteLogin, user)
	if storeErr != nil {
		return fmt.Errorf("failed to clear credential: %w", storeErr)
	}
	return nil
}

// HandleUnauthorized reacts to a 401 from a protected endpoint. Only the
// first report for an active session has any effect, and a response to a
// request sent with a credential that has since been replaced is ignored.
func (c *Controller) HandleUnauthorized(ctx context.Context, cause error) {
	c.mu.Lock()
	if c.state != core.StateAuthenticated {
		c.mu.Unlock()
		return
	}
	if sent := sentToken(cause); sent != "" {
		current, ok, err := c.store.GetToken(ctx)
		if err == nil && (!ok || current != sent) {
			c.mu.Unlock()
			c.logger.WithError(cause).Debug("Ignoring 401 for a replaced credential")
			return
		}
	}
	if err := c.store.RemoveToken(ctx); err != nil {
		c.logger.WithError(err).Error("Failed to remove credential")
	}
	user := c.user
	c.state = core.StateUnauthenticated
	c.user = nil
	c.mu.Unlock()

	c.logger.WithError(cause).Warn("Session expired")
	c.runSignedOut(ctx)
	c.publish(ctx, core.EventSessionExpired, core.RouteLogin, user)
}

// sentToken returns the bearer a failed request carried, if known
func sentToken(err error) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return apiErr.Token
	}
	return ""
}

// Refresh refetches the profile of the signed-in user
func (c *Controller) Refresh(ctx context.Context) (*core.User, error) {
	if !c.IsAuthenticated() {
		return nil, core.ErrNotAuthenticated
	}
	user, err := c.auth.Me(ctx)
	if err != nil {
		return nil, err
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != core.StateAuthenticated {
		return nil, core.ErrNotAuthenticated
	}
	if err := c.store.SaveProfile(ctx, user); err != nil {
		c.logger.WithError(err).Warn("Failed to cache profile")
	}
	c.user = user.Clone()
	return user, nil
}

// UpdateUser applies a change the server has confirmed to the cached profile
func (c *Controller) UpdateUser(ctx context.Context, fn func(u *core.User)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != core.StateAuthenticated || c.user == nil {
		return core.ErrNotAuthenticated
	}
	updated := c.user.Clone()
	fn(updated)
	if err := c.store.SaveProfile(ctx, updated); err != nil {
		return fmt.Errorf("failed to cache profile: %w", err)
	}
	c.user = updated
	return nil
}

func (c *Controller) runSignedOut(ctx context.Context) {
	c.mu.Lock()
	hooks := make([]func(context.Context), len(c.signedOut))
	copy(hooks, c.signedOut)
	c.mu.Unlock()

	for _, fn := range hooks {
		fn(ctx)
	}
}

func (c *Controller) publish(ctx context.Context, typ core.SessionEventType, route core.Route, user *core.User) {
	if c.publisher == nil {
		return
	}
	event := core.SessionEvent{
		Type:  typ,
		Route: route,
		At:    c.now(),
	}
	if user != nil {
		event.UserID = user.ID
		event.Username = user.Username
	}
	if err := c.publisher.PublishSessionEvent(ctx, event); err != nil {
		// Navigation is best effort; the state change already happened
		c.logger.WithError(err).WithField("event", typ).Warn("Failed to publish session event")
	}
}
