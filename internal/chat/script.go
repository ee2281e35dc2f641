package chat

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// ScriptConfig drives a scripted demo session.
type ScriptConfig struct {
	Identity       Identity
	ChallengeAfter time.Duration // delay before the first pairing challenge
	RotateEvery    time.Duration // challenge rotation interval while unpaired
	OpenAfter      time.Duration // time from first challenge to authentication
	CloseAfter     time.Duration // time from open to close; 0 = stay open
	CloseCause     CloseCause    // cause used when CloseAfter fires
}

// ScriptedDialer returns a Dialer backed by a scripted in-process session.
// It mimics credential persistence: the first session walks the full pairing
// flow, later sessions from the same dialer open immediately, and Teardown
// resets pairing so the next start issues a fresh challenge.
func ScriptedDialer(cfg ScriptConfig) Dialer {
	if cfg.Identity == (Identity{}) {
		cfg.Identity = Identity{Name: "Demo Account", ID: "15551230000:1"}
	}
	if cfg.ChallengeAfter <= 0 {
		cfg.ChallengeAfter = 500 * time.Millisecond
	}
	if cfg.RotateEvery <= 0 {
		cfg.RotateEvery = 20 * time.Second
	}
	if cfg.OpenAfter <= 0 {
		cfg.OpenAfter = 6 * time.Second
	}
	if cfg.CloseCause == "" {
		cfg.CloseCause = CauseConnLost
	}

	var paired atomic.Bool
	var seq atomic.Int64
	return func(ctx context.Context) (Session, error) {
		s := &scriptedSession{
			cfg:    cfg,
			paired: &paired,
			seq:    &seq,
			events: make(chan Event, 8),
		}
		go s.run(ctx)
		return s, nil
	}
}

type scriptedSession struct {
	cfg    ScriptConfig
	paired *atomic.Bool
	seq    *atomic.Int64
	events chan Event

	mu   sync.Mutex
	sent []string // "to|body", for demo logging only
}

func (s *scriptedSession) Events() <-chan Event {
	return s.events
}

func (s *scriptedSession) Send(ctx context.Context, to, body string) error {
	if !s.paired.Load() {
		return fmt.Errorf("%w: not connected", ErrSend)
	}
	s.mu.Lock()
	s.sent = append(s.sent, to+"|"+body)
	s.mu.Unlock()
	log.Printf("[demo] send to %s: %q", to, body)
	return nil
}

func (s *scriptedSession) Teardown() error {
	s.paired.Store(false)
	log.Printf("[demo] credentials discarded")
	return nil
}

func (s *scriptedSession) run(ctx context.Context) {
	defer close(s.events)

	if !s.paired.Load() {
		if !s.sleep(ctx, s.cfg.ChallengeAfter) {
			return
		}
		opened := time.After(s.cfg.OpenAfter)
		rotate := time.NewTicker(s.cfg.RotateEvery)
		defer rotate.Stop()

		if !s.emit(ctx, Event{Type: EventChallenge, Challenge: s.nextChallenge()}) {
			return
		}
	pairing:
		for {
			select {
			case <-ctx.Done():
				return
			case <-rotate.C:
				if !s.emit(ctx, Event{Type: EventChallenge, Challenge: s.nextChallenge()}) {
					return
				}
			case <-opened:
				break pairing
			}
		}
	}

	s.paired.Store(true)
	if !s.emit(ctx, Event{Type: EventOpened, Identity: s.cfg.Identity}) {
		return
	}

	if s.cfg.CloseAfter > 0 {
		if !s.sleep(ctx, s.cfg.CloseAfter) {
			return
		}
		s.emit(ctx, Event{Type: EventClosed, Cause: s.cfg.CloseCause})
	} else {
		<-ctx.Done()
	}
}

func (s *scriptedSession) nextChallenge() string {
	return fmt.Sprintf("demo-pairing-token-%d", s.seq.Add(1))
}

func (s *scriptedSession) emit(ctx context.Context, ev Event) bool {
	select {
	case s.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *scriptedSession) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
