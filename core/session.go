package core

import "time"

// SessionState is the client-local belief about whether a user is logged in
type SessionState int

const (
	StateUninitialized SessionState = iota
	StateChecking
	StateAuthenticated
	StateUnauthenticated
	StateLoggingOut
)

func (s SessionState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateChecking:
		return "checking"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateLoggingOut:
		return "logging_out"
	default:
		return "unknown"
	}
}

// Route is a navigation target for the presentation layer
type Route string

const (
	RouteHome  Route = "/(tabs)"
	RouteLogin Route = "/login"
)

// SessionEventType identifies a session transition
type SessionEventType string

const (
	EventAuthenticated   SessionEventType = "authenticated"
	EventUnauthenticated SessionEventType = "unauthenticated"
	EventLoggedOut       SessionEventType = "logged_out"
	EventSessionExpired  SessionEventType = "session_expired"
)

// SessionEvent is published after every session transition that moves the
// user to another root screen
type SessionEvent struct {
	Type     SessionEventType `json:"type"`
	Route    Route            `json:"route"`
	UserID   int64            `json:"user_id,omitempty"`
	Username string           `json:"username,omitempty"`
	At       time.Time        `json:"at"`
}

// Notification is a local notification scheduled by the client
type Notification struct {
	Title string    `json:"title"`
	Body  string    `json:"body"`
	At    time.Time `json:"at"`
}

// Credential is the bearer token together with the cached profile snapshot
type Credential struct {
	Token string `json:"token"`
	User  *User  `json:"user,omitempty"`
}

// TokenClaims are the fields the client and the sandbox care about in a token
type TokenClaims struct {
	ID        string
	UserID    int64
	Username  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// AuthResult is returned by the login, register and guest-register endpoints
type AuthResult struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}
