package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/cobic/adapters/store"
	"github.com/layer-3/cobic/api"
	"github.com/layer-3/cobic/core"
)

const testToken = "test-token"

type captured struct {
	mu     sync.Mutex
	hits   map[string]int
	bodies map[string][]byte
	query  map[string]string
}

func (c *captured) record(r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	c.mu.Lock()
	defer c.mu.Unlock()
	key := r.Method + " " + r.URL.Path
	c.hits[key]++
	c.bodies[key] = body
	c.query[key] = r.URL.RawQuery
}

func (c *captured) count(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits[key]
}

func (c *captured) body(t *testing.T, key string) map[string]any {
	t.Helper()
	c.mu.Lock()
	raw := c.bodies[key]
	c.mu.Unlock()
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	return m
}

func (c *captured) rawQuery(key string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.query[key]
}

// newBackend serves routes keyed by "METHOD /path" (without the /api prefix)
// and returns a client that already holds a credential.
func newBackend(t *testing.T, routes map[string]http.HandlerFunc) (*api.Client, *store.MemoryStore, *captured) {
	t.Helper()
	rec := &captured{hits: map[string]int{}, bodies: map[string][]byte{}, query: map[string]string{}}
	mux := http.NewServeMux()
	for pattern, h := range routes {
		var method, path string
		_, err := fmt.Sscanf(pattern, "%s %s", &method, &path)
		require.NoError(t, err)
		mux.HandleFunc(method+" /api"+path, func(w http.ResponseWriter, r *http.Request) {
			rec.record(r)
			h(w, r)
		})
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	s := store.NewMemoryStore()
	require.NoError(t, s.SaveCredential(context.Background(), testToken, &core.User{ID: 1, Username: "alice"}))
	return api.NewClient(srv.URL+"/api", s), s, rec
}

func reply(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

type profile struct {
	mu   sync.Mutex
	user core.User
}

func newProfile(balance string) *profile {
	return &profile{user: core.User{ID: 1, Username: "alice", Balance: decimal.RequireFromString(balance)}}
}

func (p *profile) UpdateUser(ctx context.Context, fn func(u *core.User)) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(&p.user)
	return nil
}

func (p *profile) snapshot() core.User {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.user
}

type scheduler struct {
	mu  sync.Mutex
	got []time.Time
}

func (s *scheduler) Schedule(ctx context.Context, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, at)
	return nil
}

func (s *scheduler) times() []time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Time(nil), s.got...)
}
