package ws

import (
	"github.com/wabridge/backend/internal/session"
)

type MessageType string

const (
	// MsgSnapshot carries the full current state; sent once to each
	// newly connected observer.
	MsgSnapshot MessageType = "snapshot"
	// The discrete transition events fanned out on state changes.
	MsgPhase     MessageType = "phase"
	MsgChallenge MessageType = "challenge"
	MsgAccount   MessageType = "account"
)

type WSMessage struct {
	Type    MessageType `json:"type"`
	Payload interface{} `json:"payload"`
}

type PhasePayload struct {
	Phase session.Phase `json:"phase"`
}

type ChallengePayload struct {
	Challenge *string `json:"challenge"`
}

type AccountPayload struct {
	Account *string `json:"account"`
}

type SnapshotPayload struct {
	session.Snapshot
}
