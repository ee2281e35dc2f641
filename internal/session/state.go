package session

import (
	"encoding/json"
	"strings"
)

// Phase is the connection phase of the bridged messenger session.
type Phase int

const (
	Disconnected Phase = iota
	AwaitingChallenge
	Connected
)

var phaseNames = map[Phase]string{
	Disconnected:      "disconnected",
	AwaitingChallenge: "awaiting_challenge",
	Connected:         "connected",
}

var phaseFromName = map[string]Phase{
	"disconnected":       Disconnected,
	"awaiting_challenge": AwaitingChallenge,
	"connected":          Connected,
}

func (p Phase) String() string {
	if s, ok := phaseNames[p]; ok {
		return s
	}
	return "unknown"
}

func (p Phase) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *Phase) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if v, ok := phaseFromName[s]; ok {
		*p = v
	}
	return nil
}

// Snapshot is the full bridge state pushed to a newly connected observer.
// Challenge and Account are nil outside the phases that define them.
type Snapshot struct {
	Phase     Phase   `json:"phase"`
	Challenge *string `json:"challenge"`
	Account   *string `json:"account"`
}

// Clone returns a deep copy of the Snapshot, duplicating pointer fields so
// the copy can be retained independently of the store.
func (s Snapshot) Clone() Snapshot {
	if s.Challenge != nil {
		c := *s.Challenge
		s.Challenge = &c
	}
	if s.Account != nil {
		a := *s.Account
		s.Account = &a
	}
	return s
}

// FormatAccount derives the display string for a connected account, e.g.
// "Alice (+15551230000)" from a raw wire identifier like "15551230000:1".
// The device suffix after ':' is dropped and the number is rendered in
// international form.
func FormatAccount(name, rawID string) string {
	number := rawID
	if i := strings.IndexByte(number, ':'); i >= 0 {
		number = number[:i]
	}
	if number != "" && !strings.HasPrefix(number, "+") {
		number = "+" + number
	}
	if name == "" {
		name = "unknown"
	}
	if number == "" {
		return name
	}
	return name + " (" + number + ")"
}
