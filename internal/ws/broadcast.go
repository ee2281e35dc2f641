package ws

import (
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wabridge/backend/internal/session"
)

// ErrTooManyConnections is returned by AddClient when the configured
// connection cap is reached.
var ErrTooManyConnections = errors.New("ws: too many connections")

const (
	sendBufferSize = 64
	writeTimeout   = 10 * time.Second
)

type client struct {
	conn *websocket.Conn
	b    *Broadcaster
	send chan []byte
}

// writePump drains the client's send queue and paces keepalive pings so idle
// connections aren't reclaimed by intermediaries. Any write failure removes
// the client; the deferred Close also unblocks the server-side read loop.
func (c *client) writePump() {
	ping := time.NewTicker(c.b.pingInterval)
	defer ping.Stop()
	defer c.conn.Close()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.b.RemoveClient(c)
				return
			}
		case <-ping.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.b.RemoveClient(c)
				return
			}
		}
	}
}

// Broadcaster tracks the live observer set and fans state events out to it.
// Delivery is best-effort per observer: a failing or stalled observer is
// dropped without affecting the rest. Per-observer ordering is preserved by
// the send queue.
type Broadcaster struct {
	mu           sync.RWMutex
	clients      map[*client]bool
	store        *session.Store
	pingInterval time.Duration
	maxConns     int // 0 = unlimited
}

func NewBroadcaster(store *session.Store, pingInterval time.Duration, maxConns int) *Broadcaster {
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &Broadcaster{
		clients:      make(map[*client]bool),
		store:        store,
		pingInterval: pingInterval,
		maxConns:     maxConns,
	}
}

// AddClient registers a new observer and queues the current state snapshot
// to it (and only it), so late joiners converge immediately instead of
// waiting for the next transition.
func (b *Broadcaster) AddClient(conn *websocket.Conn) (*client, error) {
	c := &client{
		conn: conn,
		b:    b,
		send: make(chan []byte, sendBufferSize),
	}

	b.mu.Lock()
	if b.maxConns > 0 && len(b.clients) >= b.maxConns {
		b.mu.Unlock()
		return nil, ErrTooManyConnections
	}
	b.clients[c] = true

	snapshot := WSMessage{
		Type:    MsgSnapshot,
		Payload: SnapshotPayload{Snapshot: b.store.Snapshot()},
	}
	if data, err := json.Marshal(snapshot); err == nil {
		c.send <- data // buffer is empty, cannot block
	} else {
		log.Printf("ws: snapshot marshal error: %v", err)
	}
	b.mu.Unlock()

	go c.writePump()
	return c, nil
}

// RemoveClient drops an observer. Safe to call multiple times and from
// broadcast eviction, writePump, and the read loop concurrently.
func (b *Broadcaster) RemoveClient(c *client) {
	b.mu.Lock()
	if _, ok := b.clients[c]; ok {
		delete(b.clients, c)
		close(c.send)
	}
	b.mu.Unlock()
}

func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// BroadcastPhase pushes a connection phase transition to all observers.
func (b *Broadcaster) BroadcastPhase(phase session.Phase) {
	b.broadcast(WSMessage{Type: MsgPhase, Payload: PhasePayload{Phase: phase}})
}

// BroadcastChallenge pushes a new pairing artifact, or nil to clear it.
func (b *Broadcaster) BroadcastChallenge(artifact *string) {
	b.broadcast(WSMessage{Type: MsgChallenge, Payload: ChallengePayload{Challenge: artifact}})
}

// BroadcastAccount pushes the connected account summary, or nil to clear it.
func (b *Broadcaster) BroadcastAccount(account *string) {
	b.broadcast(WSMessage{Type: MsgAccount, Payload: AccountPayload{Account: account}})
}

func (b *Broadcaster) broadcast(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("ws: broadcast marshal error: %v", err)
		return
	}

	// Queue under the read lock so no client's channel can be closed out
	// from under us; eviction needs the write lock and happens after.
	var evicted []*client
	b.mu.RLock()
	for c := range b.clients {
		select {
		case c.send <- data:
		default:
			evicted = append(evicted, c)
		}
	}
	b.mu.RUnlock()

	for _, c := range evicted {
		log.Printf("ws: observer can't keep up, disconnecting")
		b.RemoveClient(c)
	}
}
