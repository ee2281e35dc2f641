package session

import (
	"fmt"
	"sync"
)

// Store holds the single current snapshot of the bridged session. It is
// mutated only by the reconciler loop; HTTP handlers and the websocket
// registry read it concurrently.
//
// The setters enforce the phase invariants (awaiting_challenge carries a
// challenge, connected carries an account and no challenge, disconnected
// carries neither). Inputs are internally constructed, so a violation is a
// reconciler bug and panics rather than returning an error.
type Store struct {
	mu   sync.RWMutex
	snap Snapshot
}

func NewStore() *Store {
	return &Store{snap: Snapshot{Phase: Disconnected}}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Clone()
}

// Phase returns the current connection phase.
func (s *Store) Phase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Phase
}

// SetAwaitingChallenge records a new pairing challenge artifact. The
// previous artifact, if any, is replaced. Clears any account.
func (s *Store) SetAwaitingChallenge(artifact string) {
	if artifact == "" {
		panic("session: awaiting_challenge requires a challenge artifact")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = Snapshot{Phase: AwaitingChallenge, Challenge: &artifact}
}

// SetConnected records an authenticated session. Clears the challenge.
func (s *Store) SetConnected(account string) {
	if account == "" {
		panic("session: connected requires an account summary")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = Snapshot{Phase: Connected, Account: &account}
}

// SetDisconnected clears challenge and account.
func (s *Store) SetDisconnected() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = Snapshot{Phase: Disconnected}
}

// Sendable reports whether outbound sends are currently possible.
func (s *Store) Sendable() bool {
	return s.Phase() == Connected
}

func (s *Store) String() string {
	snap := s.Snapshot()
	return fmt.Sprintf("phase=%s challenge=%v account=%v",
		snap.Phase, snap.Challenge != nil, snap.Account != nil)
}
