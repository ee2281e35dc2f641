// Package bridge reconciles the external messenger session's lifecycle into
// the state store and fans the resulting transitions out to observers.
package bridge

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/wabridge/backend/internal/chat"
	"github.com/wabridge/backend/internal/config"
	"github.com/wabridge/backend/internal/qr"
	"github.com/wabridge/backend/internal/session"
)

// Fanout is the broadcast surface the reconciler pushes transitions through.
// *ws.Broadcaster implements it.
type Fanout interface {
	BroadcastPhase(phase session.Phase)
	BroadcastChallenge(artifact *string)
	BroadcastAccount(account *string)
}

// Reconciler owns the messenger session lifecycle. All state mutation and
// fan-out happen on the Run goroutine; the only cross-goroutine surfaces are
// RequestRestart (single-slot command channel) and Send (reads the live
// session handle under a mutex).
type Reconciler struct {
	cfg       config.BridgeConfig
	store     *session.Store
	fanout    Fanout
	dial      chat.Dialer
	transform func(token string) (string, error)

	restartCh chan struct{}

	mu   sync.Mutex
	sess chat.Session // nil while disconnected
}

func New(cfg config.BridgeConfig, store *session.Store, fanout Fanout, dial chat.Dialer) *Reconciler {
	return &Reconciler{
		cfg:       cfg,
		store:     store,
		fanout:    fanout,
		dial:      dial,
		transform: qr.DataURI,
		restartCh: make(chan struct{}, 1),
	}
}

// Run drives the reconcile loop until ctx is cancelled. The first session
// start happens immediately.
func (r *Reconciler) Run(ctx context.Context) {
	retry := time.NewTimer(0)
	defer retry.Stop()

	var events <-chan chat.Event

	for {
		select {
		case <-ctx.Done():
			return

		case <-retry.C:
			// Single-flight: a stale timer firing while a session is
			// already live must not start a second one.
			if r.session() != nil {
				continue
			}
			events = r.start(ctx, retry)

		case <-r.restartCh:
			events = nil
			r.restart(retry)

		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			r.handle(ev, retry)
		}
	}
}

// RequestRestart asks for a teardown-and-re-pair from any phase. Requests
// that arrive while one is already pending are coalesced.
func (r *Reconciler) RequestRestart() {
	select {
	case r.restartCh <- struct{}{}:
	default:
	}
}

// Send delivers one outbound message through the live session. Fails
// immediately when the session is not connected; errors are surfaced to the
// caller and never retried here.
func (r *Reconciler) Send(ctx context.Context, to, body string) error {
	sess := r.session()
	if sess == nil || !r.store.Sendable() {
		return fmt.Errorf("%w: session not connected", chat.ErrSend)
	}
	return sess.Send(ctx, to, body)
}

// Sendable reports whether the session is connected.
func (r *Reconciler) Sendable() bool {
	return r.store.Sendable()
}

// Snapshot returns the current bridge state.
func (r *Reconciler) Snapshot() session.Snapshot {
	return r.store.Snapshot()
}

func (r *Reconciler) session() chat.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sess
}

func (r *Reconciler) swapSession(sess chat.Session) chat.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	old := r.sess
	r.sess = sess
	return old
}

// start dials a new session. A startup failure is transient: it is logged,
// the retry timer is re-armed with the longer startup backoff, and the store
// is left untouched.
func (r *Reconciler) start(ctx context.Context, retry *time.Timer) <-chan chat.Event {
	log.Printf("Starting messenger session")
	sess, err := r.dial(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		log.Printf("Session startup failed: %v (retrying in %s)", err, r.cfg.StartupBackoff)
		resetTimer(retry, r.cfg.StartupBackoff)
		return nil
	}
	r.swapSession(sess)
	return sess.Events()
}

// restart performs terminal-style handling on explicit request: tear down
// credentials, publish the disconnect, and re-arm pairing on the short
// backoff. Any pending reconnect timer is superseded.
func (r *Reconciler) restart(retry *time.Timer) {
	log.Printf("Restart requested, tearing down session")
	if sess := r.swapSession(nil); sess != nil {
		if err := sess.Teardown(); err != nil {
			log.Printf("Teardown failed: %v (restarting anyway)", err)
		}
	}
	if r.store.Phase() != session.Disconnected {
		r.store.SetDisconnected()
		r.fanout.BroadcastPhase(session.Disconnected)
		r.fanout.BroadcastAccount(nil)
	}
	resetTimer(retry, r.cfg.TerminalBackoff)
}

func (r *Reconciler) handle(ev chat.Event, retry *time.Timer) {
	switch ev.Type {
	case chat.EventChallenge:
		artifact, err := r.transform(ev.Challenge)
		if err != nil {
			// No state change; the session will issue another challenge.
			log.Printf("Challenge render failed: %v", err)
			return
		}
		r.store.SetAwaitingChallenge(artifact)
		r.fanout.BroadcastPhase(session.AwaitingChallenge)
		r.fanout.BroadcastChallenge(&artifact)

	case chat.EventOpened:
		account := session.FormatAccount(ev.Identity.Name, ev.Identity.ID)
		r.store.SetConnected(account)
		r.fanout.BroadcastPhase(session.Connected)
		r.fanout.BroadcastAccount(&account)
		r.fanout.BroadcastChallenge(nil)
		log.Printf("Session connected as %s", account)

	case chat.EventClosed:
		kind := chat.Classify(ev.Cause)
		log.Printf("Session closed: %s (%s)", ev.Cause, kind)

		sess := r.swapSession(nil)
		r.store.SetDisconnected()
		r.fanout.BroadcastPhase(session.Disconnected)
		r.fanout.BroadcastAccount(nil)

		backoff := r.cfg.TransientBackoff
		if kind == chat.Terminal {
			// Credentials are gone server-side; wipe ours and re-arm
			// pairing quickly so observers get a fresh challenge.
			if sess != nil {
				if err := sess.Teardown(); err != nil {
					log.Printf("Teardown failed: %v (restarting anyway)", err)
				}
			}
			backoff = r.cfg.TerminalBackoff
		}
		resetTimer(retry, backoff)
	}
}

// resetTimer re-arms a loop-owned timer whose previous expiry may or may not
// have been consumed.
func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}
