package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/layer-3/cobic/ports"
)

// RoundTripFunc sends one request and returns its response
type RoundTripFunc func(req *http.Request) (*http.Response, error)

// Middleware wraps a RoundTripFunc with one stage of the request pipeline
type Middleware func(next RoundTripFunc) RoundTripFunc

// Chain composes middlewares around final. The first middleware is the
// outermost one and sees the request first.
func Chain(final RoundTripFunc, mws ...Middleware) RoundTripFunc {
	rt := final
	for i := len(mws) - 1; i >= 0; i-- {
		rt = mws[i](rt)
	}
	return rt
}

const (
	HeaderRequestID   = "X-Request-ID"
	HeaderAppVersion  = "X-App-Version"
	HeaderPlatform    = "X-Platform"
	HeaderEnvironment = "X-Environment"
)

// Headers are the fixed client identification headers sent on every request
type Headers struct {
	AppVersion  string
	Platform    string
	Environment string
}

type ctxKey int

const (
	endpointKey ctxKey = iota
	bearerKey
	sentKey
)

func withEndpoint(ctx context.Context, endpoint string) context.Context {
	return context.WithValue(ctx, endpointKey, endpoint)
}

// EndpointFromContext returns the API path a request was issued for
func EndpointFromContext(ctx context.Context) string {
	endpoint, _ := ctx.Value(endpointKey).(string)
	return endpoint
}

func withBearer(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, bearerKey, token)
}

func bearerFromContext(ctx context.Context) string {
	token, _ := ctx.Value(bearerKey).(string)
	return token
}

// sentCredential receives the bearer the authentication stage attached
type sentCredential struct {
	token string
}

func withSentCredential(ctx context.Context, sent *sentCredential) context.Context {
	return context.WithValue(ctx, sentKey, sent)
}

// HeadersMiddleware sets the content negotiation and client identification headers
func HeadersMiddleware(h Headers) Middleware {
	return func(next RoundTripFunc) RoundTripFunc {
		return func(req *http.Request) (*http.Response, error) {
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Accept", "application/json")
			req.Header.Set(HeaderAppVersion, h.AppVersion)
			req.Header.Set(HeaderPlatform, h.Platform)
			req.Header.Set(HeaderEnvironment, h.Environment)
			return next(req)
		}
	}
}

// RequestIDMiddleware tags each request with a fresh id unless one is set
func RequestIDMiddleware() Middleware {
	return func(next RoundTripFunc) RoundTripFunc {
		return func(req *http.Request) (*http.Response, error) {
			if req.Header.Get(HeaderRequestID) == "" {
				req.Header.Set(HeaderRequestID, uuid.New().String())
			}
			return next(req)
		}
	}
}

// LoggingMiddleware logs every request with its outcome and duration
func LoggingMiddleware(logger logrus.FieldLogger) Middleware {
	return func(next RoundTripFunc) RoundTripFunc {
		return func(req *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next(req)

			entry := logger.WithFields(logrus.Fields{
				"method":      req.Method,
				"endpoint":    EndpointFromContext(req.Context()),
				"request_id":  req.Header.Get(HeaderRequestID),
				"duration_ms": time.Since(start).Milliseconds(),
			})
			if err != nil {
				entry.WithError(err).Warn("API request failed")
				return resp, err
			}
			entry = entry.WithField("status", resp.StatusCode)
			if resp.StatusCode >= http.StatusBadRequest {
				entry.Info("API request returned error status")
			} else {
				entry.Debug("API request completed")
			}
			return resp, nil
		}
	}
}

// ReachabilityMiddleware fails fast when the network probe reports the API
// host unreachable. The request is never sent in that case.
func ReachabilityMiddleware(probe ports.NetworkProbe) Middleware {
	return func(next RoundTripFunc) RoundTripFunc {
		if probe == nil {
			return next
		}
		return func(req *http.Request) (*http.Response, error) {
			if err := probe.Reachable(req.Context()); err != nil {
				return nil, &Error{Kind: KindNetworkUnreachable, Err: err}
			}
			return next(req)
		}
	}
}

// AuthenticationMiddleware attaches the bearer credential to protected
// requests. Public endpoints pass through untouched; a protected request with
// no credential is rejected locally.
func AuthenticationMiddleware(store ports.TokenStore) Middleware {
	return func(next RoundTripFunc) RoundTripFunc {
		return func(req *http.Request) (*http.Response, error) {
			ctx := req.Context()
			if IsPublic(EndpointFromContext(ctx)) {
				return next(req)
			}

			token := bearerFromContext(ctx)
			if token == "" {
				stored, ok, err := store.GetToken(ctx)
				if err != nil {
					return nil, fmt.Errorf("read credential: %w", err)
				}
				if !ok {
					return nil, &Error{Kind: KindUnauthenticated}
				}
				token = stored
			}

			if sent, ok := ctx.Value(sentKey).(*sentCredential); ok {
				sent.token = token
			}
			req.Header.Set("Authorization", "Bearer "+token)
			return next(req)
		}
	}
}
