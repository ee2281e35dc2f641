// Package chat defines the boundary to the external messenger session. The
// concrete client (credential storage, wire protocol, pairing) lives behind
// the Session interface; the bridge consumes only lifecycle events and the
// send/teardown operations.
package chat

import (
	"context"
	"errors"
)

var (
	// ErrStartup wraps failures to establish a session. Retried with backoff.
	ErrStartup = errors.New("chat: session startup failed")
	// ErrSend wraps outbound delivery failures. Surfaced to the caller, not retried.
	ErrSend = errors.New("chat: send failed")
	// ErrTeardown wraps credential-wipe failures. Logged; restart proceeds.
	ErrTeardown = errors.New("chat: teardown failed")
)

// EventType classifies session lifecycle events.
type EventType int

const (
	EventChallenge EventType = iota // pairing challenge issued
	EventOpened                     // session authenticated
	EventClosed                     // session closed
)

// Event is one lifecycle event from the external session. Exactly the fields
// for its type are set: Challenge for EventChallenge, Identity for
// EventOpened, Cause for EventClosed.
type Event struct {
	Type      EventType
	Challenge string
	Identity  Identity
	Cause     CloseCause
}

// Identity is the authenticated account, as reported by the session.
type Identity struct {
	Name string
	ID   string // raw wire identifier, e.g. "15551230000:1"
}

// CloseCause is the reason a session closed, as reported by the transport.
type CloseCause string

const (
	CauseLoggedOut    CloseCause = "logged_out"
	CauseUnauthorized CloseCause = "unauthorized"
	CauseConnLost     CloseCause = "connection_lost"
	CauseRestart      CloseCause = "restart"
)

// CauseKind is the closed classification of a disconnect cause.
type CauseKind int

const (
	Transient CauseKind = iota // retry with backoff, credentials intact
	Terminal                   // credentials invalid; wipe and re-pair
)

func (k CauseKind) String() string {
	if k == Terminal {
		return "terminal"
	}
	return "transient"
}

// Classify maps a disconnect cause onto the retry policy. Only explicit
// logout and credential rejection are terminal; everything else, including
// causes this package has never seen, is transient.
func Classify(cause CloseCause) CauseKind {
	switch cause {
	case CauseLoggedOut, CauseUnauthorized:
		return Terminal
	default:
		return Transient
	}
}

// Session is a live connection to the messenger. Events yields lifecycle
// events until the session closes, after which the channel is closed; an
// EventClosed is always the final event.
type Session interface {
	Events() <-chan Event
	// Send delivers one outbound message. Errors wrap ErrSend.
	Send(ctx context.Context, to, body string) error
	// Teardown discards the persisted credentials so the next start issues a
	// fresh pairing challenge. Errors wrap ErrTeardown.
	Teardown() error
}

// Dialer starts a new session. Errors wrap ErrStartup.
type Dialer func(ctx context.Context) (Session, error)
