package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/cobic/adapters/store"
	"github.com/layer-3/cobic/api"
	"github.com/layer-3/cobic/core"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []core.SessionEvent
}

func (p *recordingPublisher) PublishSessionEvent(ctx context.Context, event core.SessionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) PublishNotification(ctx context.Context, n core.Notification) error {
	return nil
}

func (p *recordingPublisher) count(typ core.SessionEventType) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.Type == typ {
			n++
		}
	}
	return n
}

func (p *recordingPublisher) last() core.SessionEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.events[len(p.events)-1]
}

type fakeGateway struct {
	mu          sync.Mutex
	user        *core.User
	meErr       error
	meCalls     int
	meGate      chan struct{}
	logoutErr   error
	logoutCalls int
	logoutToken string
	logoutGate  chan struct{}
	onLogout    func()
}

func (g *fakeGateway) Login(ctx context.Context, username, password string) (*core.AuthResult, error) {
	if password != "secret" {
		return nil, &api.Error{Kind: api.KindUnauthorized, StatusCode: http.StatusUnauthorized, Endpoint: api.EndpointLogin}
	}
	return &core.AuthResult{Token: "tok-" + username, User: &core.User{ID: 1, Username: username}}, nil
}

func (g *fakeGateway) Register(ctx context.Context, username, email, password string) (*core.AuthResult, error) {
	return &core.AuthResult{Token: "tok-new", User: &core.User{ID: 2, Username: username}}, nil
}

func (g *fakeGateway) GuestRegister(ctx context.Context) (*core.AuthResult, error) {
	return &core.AuthResult{Token: "tok-guest", User: &core.User{ID: 3, Username: "guest_1", IsGuest: true, PlainPassword: "pw"}}, nil
}

func (g *fakeGateway) Me(ctx context.Context) (*core.User, error) {
	g.mu.Lock()
	g.meCalls++
	gate := g.meGate
	user, err := g.user.Clone(), g.meErr
	g.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return user, err
}

func (g *fakeGateway) Logout(ctx context.Context, token string) error {
	g.mu.Lock()
	g.logoutCalls++
	g.logoutToken = token
	gate, hook, err := g.logoutGate, g.onLogout, g.logoutErr
	g.mu.Unlock()

	if hook != nil {
		hook()
	}
	if gate != nil {
		<-gate
	}
	return err
}

func (g *fakeGateway) calls() (me, logout int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.meCalls, g.logoutCalls
}

type expiredInspector struct{}

func (expiredInspector) InspectToken(token string) (*core.TokenClaims, error) {
	return &core.TokenClaims{}, core.ErrTokenExpired
}

func newTestController(t *testing.T, opts ...Option) (*Controller, *store.MemoryStore, *fakeGateway, *recordingPublisher) {
	t.Helper()
	s := store.NewMemoryStore()
	gw := &fakeGateway{user: &core.User{ID: 7, Username: "alice"}}
	pub := &recordingPublisher{}
	return NewController(s, gw, pub, opts...), s, gw, pub
}

func signIn(t *testing.T, c *Controller) {
	t.Helper()
	require.NoError(t, c.Login(context.Background(), "tok", &core.User{ID: 7, Username: "alice"}))
}

func TestCheckAuth_NoCredential(t *testing.T) {
	c, _, gw, pub := newTestController(t)
	assert.Equal(t, core.StateUninitialized, c.State())

	state, err := c.CheckAuth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, core.StateUnauthenticated, state)
	assert.Equal(t, core.StateUnauthenticated, c.State())

	me, _ := gw.calls()
	assert.Equal(t, 0, me)
	assert.Equal(t, core.RouteLogin, pub.last().Route)
}

func TestCheckAuth_ValidCredential(t *testing.T) {
	c, s, gw, pub := newTestController(t)
	ctx := context.Background()
	require.NoError(t, s.SaveCredential(ctx, "tok", &core.User{ID: 7, Username: "stale"}))

	state, err := c.CheckAuth(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.StateAuthenticated, state)
	assert.Equal(t, "alice", c.User().Username)

	// the fetched profile replaces the cached one
	profile, ok, err := s.GetProfile(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "alice", profile.Username)

	me, _ := gw.calls()
	assert.Equal(t, 1, me)
	assert.Equal(t, core.EventAuthenticated, pub.last().Type)
	assert.Equal(t, core.RouteHome, pub.last().Route)
}

func TestCheckAuth_FetchFailureDropsCredential(t *testing.T) {
	failures := map[string]error{
		"unauthorized": &api.Error{Kind: api.KindUnauthorized, StatusCode: 401},
		"network":      &api.Error{Kind: api.KindNetworkUnreachable},
		"server":       &api.Error{Kind: api.KindServerError, StatusCode: 500},
	}
	for name, failure := range failures {
		t.Run(name, func(t *testing.T) {
			c, s, gw, pub := newTestController(t)
			ctx := context.Background()
			require.NoError(t, s.SetToken(ctx, "tok"))
			gw.meErr = failure

			state, err := c.CheckAuth(ctx)
			assert.ErrorIs(t, err, failure)
			assert.Equal(t, core.StateUnauthenticated, state)

			_, ok, err := s.GetToken(ctx)
			require.NoError(t, err)
			assert.False(t, ok)
			assert.Equal(t, 1, pub.count(core.EventUnauthenticated))
		})
	}
}

func TestCheckAuth_InvalidProfile(t *testing.T) {
	c, s, gw, _ := newTestController(t)
	ctx := context.Background()
	require.NoError(t, s.SetToken(ctx, "tok"))
	gw.user = &core.User{ID: 7}

	state, err := c.CheckAuth(ctx)
	assert.ErrorIs(t, err, core.ErrInvalidUser)
	assert.Equal(t, core.StateUnauthenticated, state)
}

func TestCheckAuth_ExpiredTokenSkipsServer(t *testing.T) {
	c, s, gw, _ := newTestController(t, WithInspector(expiredInspector{}))
	ctx := context.Background()
	require.NoError(t, s.SetToken(ctx, "expired.jwt.value"))

	state, err := c.CheckAuth(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.StateUnauthenticated, state)

	me, _ := gw.calls()
	assert.Equal(t, 0, me)
	_, ok, _ := s.GetToken(ctx)
	assert.False(t, ok)
}

func TestCheckAuth_ConcurrentCallsShareOneRun(t *testing.T) {
	c, s, gw, pub := newTestController(t)
	ctx := context.Background()
	require.NoError(t, s.SetToken(ctx, "tok"))
	gw.meGate = make(chan struct{})

	var wg sync.WaitGroup
	states := make([]core.SessionState, 5)
	for i := range states {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			states[i], _ = c.CheckAuth(ctx)
		}(i)
	}

	require.Eventually(t, func() bool {
		me, _ := gw.calls()
		return me == 1
	}, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, core.StateChecking, c.State())
	close(gw.meGate)
	wg.Wait()

	for _, st := range states {
		assert.Equal(t, core.StateAuthenticated, st)
	}
	me, _ := gw.calls()
	assert.Equal(t, 1, me)
	assert.Equal(t, 1, pub.count(core.EventAuthenticated))
}

func TestLogin_ThenCheckAuthAfterRestart(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	gw := &fakeGateway{user: &core.User{ID: 7, Username: "alice"}}

	first := NewController(s, gw, &recordingPublisher{})
	require.NoError(t, first.Login(ctx, "tok-abc", &core.User{ID: 7, Username: "alice"}))
	assert.True(t, first.IsAuthenticated())

	token, ok, err := s.GetToken(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "tok-abc", token)

	second := NewController(s, gw, &recordingPublisher{})
	state, err := second.CheckAuth(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.StateAuthenticated, state)
	assert.Equal(t, int64(7), second.User().ID)
}

func TestLogin_Validation(t *testing.T) {
	c, s, _, pub := newTestController(t)
	ctx := context.Background()

	assert.ErrorIs(t, c.Login(ctx, "", &core.User{ID: 1, Username: "a"}), core.ErrEmptyToken)
	assert.ErrorIs(t, c.Login(ctx, "tok", &core.User{ID: 1}), core.ErrInvalidUser)
	assert.ErrorIs(t, c.Login(ctx, "tok", nil), core.ErrInvalidUser)

	_, ok, _ := s.GetToken(ctx)
	assert.False(t, ok)
	assert.Equal(t, core.StateUninitialized, c.State())
	assert.Equal(t, 0, pub.count(core.EventAuthenticated))
}

func TestLoginWithPassword(t *testing.T) {
	c, s, _, _ := newTestController(t)
	ctx := context.Background()

	_, err := c.LoginWithPassword(ctx, "bob", "wrong")
	assert.ErrorIs(t, err, api.ErrUnauthorized)
	assert.False(t, c.IsAuthenticated())

	user, err := c.LoginWithPassword(ctx, "bob", "secret")
	require.NoError(t, err)
	assert.Equal(t, "bob", user.Username)
	token, _, _ := s.GetToken(ctx)
	assert.Equal(t, "tok-bob", token)
}

func TestGuestRegister_KeepsGeneratedPassword(t *testing.T) {
	c, _, _, _ := newTestController(t)

	user, err := c.GuestRegister(context.Background())
	require.NoError(t, err)
	assert.True(t, user.IsGuest)
	assert.Equal(t, "pw", user.PlainPassword)
	assert.True(t, c.IsAuthenticated())
}

func TestRegister(t *testing.T) {
	c, _, _, pub := newTestController(t)

	user, err := c.Register(context.Background(), "carol", "c@example.com", "pw12345")
	require.NoError(t, err)
	assert.Equal(t, "carol", user.Username)
	assert.Equal(t, core.RouteHome, pub.last().Route)
}

func TestLogout_ClearsBeforeNotifyingServer(t *testing.T) {
	c, s, gw, pub := newTestController(t)
	ctx := context.Background()
	signIn(t, c)

	var tokenAtServerCall atomic.Bool
	gw.onLogout = func() {
		_, ok, _ := s.GetToken(ctx)
		tokenAtServerCall.Store(ok)
	}

	var signedOut atomic.Int32
	c.OnSignedOut(func(ctx context.Context) { signedOut.Add(1) })

	require.NoError(t, c.Logout(ctx))
	assert.False(t, tokenAtServerCall.Load())
	assert.Equal(t, "tok", gw.logoutToken)
	assert.Equal(t, core.StateUnauthenticated, c.State())
	assert.Nil(t, c.User())
	assert.Equal(t, int32(1), signedOut.Load())
	assert.Equal(t, core.EventLoggedOut, pub.last().Type)
	assert.Equal(t, core.RouteLogin, pub.last().Route)
	assert.Equal(t, int64(7), pub.last().UserID)
}

func TestLogout_ServerFailureIsSwallowed(t *testing.T) {
	c, s, gw, pub := newTestController(t)
	ctx := context.Background()
	signIn(t, c)
	gw.logoutErr = &api.Error{Kind: api.KindServerError, StatusCode: 503}

	require.NoError(t, c.Logout(ctx))
	assert.Equal(t, core.StateUnauthenticated, c.State())
	_, ok, _ := s.GetToken(ctx)
	assert.False(t, ok)
	assert.Equal(t, 1, pub.count(core.EventLoggedOut))
}

func TestLogout_ConcurrentCallsRunOnce(t *testing.T) {
	c, _, gw, pub := newTestController(t)
	ctx := context.Background()
	signIn(t, c)
	gw.logoutGate = make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.Logout(ctx)
		}()
	}

	require.Eventually(t, func() bool {
		_, logout := gw.calls()
		return logout == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, core.StateLoggingOut, c.State())

	// nothing may start a session while logging out
	assert.ErrorIs(t, c.Login(ctx, "tok2", &core.User{ID: 1, Username: "x"}), core.ErrLogoutInProgress)
	_, err := c.CheckAuth(ctx)
	assert.ErrorIs(t, err, core.ErrLogoutInProgress)

	close(gw.logoutGate)
	wg.Wait()

	_, logout := gw.calls()
	assert.Equal(t, 1, logout)
	assert.Equal(t, 1, pub.count(core.EventLoggedOut))
	assert.Equal(t, core.StateUnauthenticated, c.State())
}

func TestLogout_WithoutCredentialSkipsServer(t *testing.T) {
	c, _, gw, pub := newTestController(t)

	require.NoError(t, c.Logout(context.Background()))
	_, logout := gw.calls()
	assert.Equal(t, 0, logout)
	assert.Equal(t, 1, pub.count(core.EventLoggedOut))
}

func TestHandleUnauthorized_OnlyWhileAuthenticated(t *testing.T) {
	c, s, _, pub := newTestController(t)
	ctx := context.Background()

	c.HandleUnauthorized(ctx, errors.New("401"))
	assert.Equal(t, 0, pub.count(core.EventSessionExpired))
	assert.Equal(t, core.StateUninitialized, c.State())

	signIn(t, c)
	c.HandleUnauthorized(ctx, errors.New("401"))
	c.HandleUnauthorized(ctx, errors.New("401"))

	assert.Equal(t, 1, pub.count(core.EventSessionExpired))
	assert.Equal(t, core.StateUnauthenticated, c.State())
	_, ok, _ := s.GetToken(ctx)
	assert.False(t, ok)
}

func TestHandleUnauthorized_ParallelResponsesTransitionOnce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"Token expired"}`))
	}))
	t.Cleanup(srv.Close)

	s := store.NewMemoryStore()
	pub := &recordingPublisher{}
	client := api.NewClient(srv.URL, s)
	c := NewController(s, &fakeGateway{}, pub)
	c.Attach(client)

	var signedOut atomic.Int32
	c.OnSignedOut(func(ctx context.Context) { signedOut.Add(1) })
	signIn(t, c)

	var wg sync.WaitGroup
	errs := make([]error, 3)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = client.Get(context.Background(), api.EndpointMiningStatus, nil, api.WithBearer("tok"))
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.ErrorIs(t, err, api.ErrUnauthorized)
	}
	assert.Equal(t, 1, pub.count(core.EventSessionExpired))
	assert.Equal(t, int32(1), signedOut.Load())
	assert.Equal(t, core.StateUnauthenticated, c.State())
}

func TestHandleUnauthorized_StaleResponseKeepsNewSession(t *testing.T) {
	arrived := make(chan string, 1)
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		arrived <- r.Header.Get("Authorization")
		<-release
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"Token expired"}`))
	}))
	t.Cleanup(srv.Close)

	s := store.NewMemoryStore()
	pub := &recordingPublisher{}
	client := api.NewClient(srv.URL, s)
	c := NewController(s, &fakeGateway{}, pub)
	c.Attach(client)
	ctx := context.Background()
	require.NoError(t, c.Login(ctx, "old", &core.User{ID: 7, Username: "alice"}))

	done := make(chan error, 1)
	go func() {
		done <- client.Get(ctx, api.EndpointMiningStatus, nil)
	}()

	select {
	case auth := <-arrived:
		assert.Equal(t, "Bearer old", auth)
	case <-time.After(time.Second):
		t.Fatal("request never reached the server")
	}
	require.NoError(t, c.Login(ctx, "new", &core.User{ID: 8, Username: "bob"}))
	close(release)

	select {
	case err := <-done:
		assert.ErrorIs(t, err, api.ErrUnauthorized)
	case <-time.After(time.Second):
		t.Fatal("request did not finish")
	}

	assert.Equal(t, core.StateAuthenticated, c.State())
	assert.Equal(t, "bob", c.User().Username)
	token, ok, err := s.GetToken(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "new", token)
	assert.Equal(t, 0, pub.count(core.EventSessionExpired))

	// a 401 for the current credential still ends the session
	c.HandleUnauthorized(ctx, &api.Error{Kind: api.KindUnauthorized, Token: "new"})
	assert.Equal(t, core.StateUnauthenticated, c.State())
	assert.Equal(t, 1, pub.count(core.EventSessionExpired))
}

func TestRefreshAndUpdateUser(t *testing.T) {
	c, s, gw, _ := newTestController(t)
	ctx := context.Background()

	_, err := c.Refresh(ctx)
	assert.ErrorIs(t, err, core.ErrNotAuthenticated)
	assert.ErrorIs(t, c.UpdateUser(ctx, func(u *core.User) {}), core.ErrNotAuthenticated)

	signIn(t, c)
	gw.user = &core.User{ID: 7, Username: "alice", ReferralCode: "ALICE1"}
	user, err := c.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ALICE1", user.ReferralCode)

	require.NoError(t, c.UpdateUser(ctx, func(u *core.User) { u.Bio = strPtr("hi") }))
	assert.Equal(t, "hi", core.StringValue(c.User().Bio))
	profile, _, err := s.GetProfile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "hi", core.StringValue(profile.Bio))
	assert.Equal(t, "ALICE1", profile.ReferralCode)
}

func strPtr(s string) *string { return &s }
