package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/layer-3/cobic/adapters/events"
	"github.com/layer-3/cobic/adapters/store"
	"github.com/layer-3/cobic/adapters/tokenizer"
	"github.com/layer-3/cobic/api"
	"github.com/layer-3/cobic/core"
	"github.com/layer-3/cobic/logging"
	"github.com/layer-3/cobic/sandbox"
	"github.com/layer-3/cobic/service"
	"github.com/layer-3/cobic/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type harness struct {
	backend    *sandbox.Backend
	store      *store.MemoryStore
	client     *api.Client
	controller *session.Controller
	mining     *service.MiningService
	wallet     *service.TransactionService
	events     chan core.SessionEvent
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	opts := sandbox.DefaultOptions()
	opts.PasswordCost = bcrypt.MinCost
	backend := sandbox.NewBackend(tokenizer.NewJWTTokenizer([]byte("e2e-secret"), time.Hour), opts)

	srv := httptest.NewServer(SetupRouter(backend, logging.Discard()))
	t.Cleanup(srv.Close)

	ps := events.NewGoChannel(events.NewLogrusAdapter(logging.Discard()))
	t.Cleanup(func() { _ = ps.Close() })
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	sessionEvents := make(chan core.SessionEvent, 16)
	require.NoError(t, events.Listen(ctx, ps, events.Handlers{
		Session: func(e core.SessionEvent) { sessionEvents <- e },
	}, logging.Discard()))

	s := store.NewMemoryStore()
	client := api.NewClient(srv.URL+"/api", s, api.WithHeaders(api.Headers{AppVersion: "2.1.0", Platform: "test"}))
	auth := service.NewAuthService(client)
	controller := session.NewController(s, auth, events.NewWatermillPublisher(ps), session.WithInspector(tokenizer.NewInspector()))
	controller.Attach(client)

	return &harness{
		backend:    backend,
		store:      s,
		client:     client,
		controller: controller,
		mining:     service.NewMiningService(client, controller, nil),
		wallet:     service.NewTransactionService(client, controller),
		events:     sessionEvents,
	}
}

func (h *harness) expectEvent(t *testing.T, typ core.SessionEventType) core.SessionEvent {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case e := <-h.events:
			if e.Type == typ {
				return e
			}
		case <-deadline:
			t.Fatalf("no %s event", typ)
			return core.SessionEvent{}
		}
	}
}

func TestEndToEnd_MiningAndTransfers(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.backend.Register(ctx, "bob", "bob@example.com", "secret1")
	require.NoError(t, err)

	user, err := h.controller.Register(ctx, "alice", "alice@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	h.expectEvent(t, core.EventAuthenticated)

	status, err := h.mining.Status(ctx)
	require.NoError(t, err)
	assert.True(t, status.CanMine)

	_, err = h.mining.Mine(ctx)
	require.NoError(t, err)
	next, err := h.mining.NextEligible(ctx)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), next, time.Minute)

	_, err = h.mining.Mine(ctx)
	require.ErrorIs(t, err, api.ErrClientError)

	_, err = h.mining.CheckIn(ctx)
	require.NoError(t, err)
	_, err = h.mining.CheckIn(ctx)
	var cooldown *service.CheckInCooldownError
	require.True(t, errors.As(err, &cooldown))
	assert.Equal(t, "24.0", cooldown.RemainingHours)

	balance := h.controller.User().Balance
	assert.True(t, balance.Equal(decimal.RequireFromString("6.5")), balance.String())

	_, err = h.wallet.Transfer(ctx, core.TransferRequest{RecipientUsername: "ghost", Amount: decimal.NewFromInt(1)})
	require.ErrorIs(t, err, core.ErrRecipientNotFound)
	assert.True(t, h.controller.User().Balance.Equal(balance))

	res, err := h.wallet.Transfer(ctx, core.TransferRequest{RecipientUsername: "bob", Amount: decimal.RequireFromString("1.5")})
	require.NoError(t, err)
	assert.True(t, res.NewBalance.Equal(decimal.NewFromInt(5)))
	assert.True(t, h.controller.User().Balance.Equal(decimal.NewFromInt(5)))

	txs, err := h.wallet.List(ctx, core.TransactionFilters{})
	require.NoError(t, err)
	assert.Len(t, txs, 3)

	cached, ok, err := h.store.GetProfile(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, cached.Balance.Equal(decimal.NewFromInt(5)))
}

func TestEndToEnd_LogoutRevokesServerSide(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.controller.Register(ctx, "alice", "alice@example.com", "secret1")
	require.NoError(t, err)
	token, _, err := h.store.GetToken(ctx)
	require.NoError(t, err)

	require.NoError(t, h.controller.Logout(ctx))
	h.expectEvent(t, core.EventLoggedOut)
	assert.Equal(t, core.StateUnauthenticated, h.controller.State())

	_, err = h.backend.Authenticate(ctx, token)
	assert.ErrorIs(t, err, sandbox.ErrTokenRevoked)

	// protected calls fail locally without a credential
	_, err = h.mining.Status(ctx)
	assert.ErrorIs(t, err, api.ErrUnauthenticated)

	user, err := h.controller.LoginWithPassword(ctx, "alice", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
}

func TestEndToEnd_RevokedTokenExpiresSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.controller.Register(ctx, "alice", "alice@example.com", "secret1")
	require.NoError(t, err)
	token, _, err := h.store.GetToken(ctx)
	require.NoError(t, err)

	claims, err := h.backend.Authenticate(ctx, token)
	require.NoError(t, err)
	h.backend.Logout(ctx, claims)

	_, err = h.mining.Status(ctx)
	require.ErrorIs(t, err, api.ErrUnauthorized)
	assert.Equal(t, "Your session has expired. Please log in again.", api.UserMessage(err))

	h.expectEvent(t, core.EventSessionExpired)
	assert.Equal(t, core.StateUnauthenticated, h.controller.State())
	_, ok, err := h.store.GetToken(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEndToEnd_CheckAuthAfterRestart(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.controller.Register(ctx, "alice", "alice@example.com", "secret1")
	require.NoError(t, err)

	restarted := session.NewController(h.store, service.NewAuthService(h.client), nil, session.WithInspector(tokenizer.NewInspector()))
	state, err := restarted.CheckAuth(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.StateAuthenticated, state)
	assert.Equal(t, "alice", restarted.User().Username)
}

func TestEndToEnd_PublicLoginFailureMessage(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.controller.LoginWithPassword(ctx, "nobody", "secret1")
	require.ErrorIs(t, err, api.ErrUnauthorized)
	assert.Equal(t, "Invalid username or password", api.UserMessage(err))
	assert.Equal(t, core.StateUninitialized, h.controller.State())
}

func TestRouter_ErrorBodies(t *testing.T) {
	h := newHarness(t)
	srv := httptest.NewServer(SetupRouter(h.backend, logging.Discard()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/mining/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp2, err := http.Get(srv.URL + "/api/public/stats")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusOK, resp2.StatusCode)
}
