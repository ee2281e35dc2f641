package session

import (
	"encoding/json"
	"testing"
)

// assertSnapshot checks phase plus presence of the optional fields.
func assertSnapshot(t *testing.T, snap Snapshot, phase Phase, wantChallenge, wantAccount bool) {
	t.Helper()
	if snap.Phase != phase {
		t.Errorf("phase = %s, want %s", snap.Phase, phase)
	}
	if got := snap.Challenge != nil; got != wantChallenge {
		t.Errorf("challenge present = %v, want %v", got, wantChallenge)
	}
	if got := snap.Account != nil; got != wantAccount {
		t.Errorf("account present = %v, want %v", got, wantAccount)
	}
}

func TestStore_InitialState(t *testing.T) {
	s := NewStore()
	assertSnapshot(t, s.Snapshot(), Disconnected, false, false)
	if s.Sendable() {
		t.Error("fresh store should not be sendable")
	}
}

func TestStore_PhaseInvariants(t *testing.T) {
	s := NewStore()

	s.SetAwaitingChallenge("data:image/png;base64,abc")
	assertSnapshot(t, s.Snapshot(), AwaitingChallenge, true, false)

	// Connecting clears the challenge.
	s.SetConnected("Alice (+15551230000)")
	assertSnapshot(t, s.Snapshot(), Connected, false, true)
	if !s.Sendable() {
		t.Error("connected store should be sendable")
	}

	// Disconnecting clears everything.
	s.SetDisconnected()
	assertSnapshot(t, s.Snapshot(), Disconnected, false, false)
}

func TestStore_ChallengeReplaced(t *testing.T) {
	s := NewStore()
	s.SetAwaitingChallenge("first")
	s.SetAwaitingChallenge("second")

	snap := s.Snapshot()
	if snap.Challenge == nil || *snap.Challenge != "second" {
		t.Fatalf("challenge = %v, want %q", snap.Challenge, "second")
	}
}

func TestStore_SnapshotIsCopy(t *testing.T) {
	s := NewStore()
	s.SetConnected("Alice (+15551230000)")

	snap := s.Snapshot()
	*snap.Account = "mutated"

	if got := s.Snapshot(); got.Account == nil || *got.Account != "Alice (+15551230000)" {
		t.Error("mutating a returned snapshot leaked into the store")
	}
}

func TestStore_PanicsOnInvariantViolation(t *testing.T) {
	tests := []struct {
		name string
		call func(*Store)
	}{
		{"EmptyChallenge", func(s *Store) { s.SetAwaitingChallenge("") }},
		{"EmptyAccount", func(s *Store) { s.SetConnected("") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("expected panic, got none")
				}
			}()
			tt.call(NewStore())
		})
	}
}

func TestPhase_JSONRoundTrip(t *testing.T) {
	for _, phase := range []Phase{Disconnected, AwaitingChallenge, Connected} {
		data, err := json.Marshal(phase)
		if err != nil {
			t.Fatalf("marshal %s: %v", phase, err)
		}
		var got Phase
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("unmarshal %s: %v", data, err)
		}
		if got != phase {
			t.Errorf("round trip %s: got %s", phase, got)
		}
	}
}

func TestFormatAccount(t *testing.T) {
	tests := []struct {
		name    string
		account string
		rawID   string
		want    string
	}{
		{"DeviceSuffix", "Alice", "15551230000:1", "Alice (+15551230000)"},
		{"NoSuffix", "Bob", "15551239999", "Bob (+15551239999)"},
		{"AlreadyInternational", "Carol", "+15551230001:12", "Carol (+15551230001)"},
		{"NoName", "", "15551230000:1", "unknown (+15551230000)"},
		{"NoNumber", "Dave", "", "Dave"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatAccount(tt.account, tt.rawID); got != tt.want {
				t.Errorf("FormatAccount(%q, %q) = %q, want %q", tt.account, tt.rawID, got, tt.want)
			}
		})
	}
}
