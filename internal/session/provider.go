package session

import (
	"context"
	"errors"
)

// Session is an active authentication grant. The application never mutates
// it, only reads it and reacts to its lifecycle events.
type Session struct {
	SubjectID string   `json:"subject_id"`
	Email     string   `json:"email"`
	Token     string   `json:"token,omitempty"`
	Metadata  Metadata `json:"metadata"`
}

// Metadata carries identity hints attached at sign-up time.
type Metadata struct {
	Name string `json:"name,omitempty"`
	Role string `json:"role,omitempty"`
}

type EventKind string

const (
	Established EventKind = "established"
	Terminated  EventKind = "terminated"
)

// Event announces a session lifecycle change.
type Event struct {
	Kind    EventKind
	Session *Session // nil for Terminated
}

var (
	// ErrInvalidCredentials covers both a wrong password and an account
	// that does not exist.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountExists      = errors.New("account already exists")
	// ErrUnsupported is returned by providers that cannot serve a given
	// call server-side (e.g. password sign-in against Firebase).
	ErrUnsupported = errors.New("operation not supported by this provider")
)

// Provider exposes the remote auth provider: current session, sign-in,
// sign-up, sign-out, token verification and a change-notification stream.
type Provider interface {
	Current(ctx context.Context) (*Session, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignUp(ctx context.Context, email, password string, meta Metadata) (*Session, error)
	SignOut(ctx context.Context) error
	Verify(ctx context.Context, token string) (*Session, error)

	// Subscribe registers a handler for session lifecycle events and
	// returns a cancellation handle.
	Subscribe(fn func(Event)) (cancel func())
}
