package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/wabridge/backend/internal/health"
	"github.com/wabridge/backend/internal/session"
)

// Bridge is the command surface the HTTP layer drives on the reconciler.
type Bridge interface {
	Send(ctx context.Context, to, body string) error
	RequestRestart()
	Sendable() bool
}

type Server struct {
	store          *session.Store
	broadcaster    *Broadcaster
	bridge         Bridge
	allowedOrigins map[string]bool
	allowedHosts   map[string]bool
	authToken      string
}

func NewServer(store *session.Store, broadcaster *Broadcaster, bridge Bridge, allowedOrigins []string, authToken string) *Server {
	s := &Server{
		store:          store,
		broadcaster:    broadcaster,
		bridge:         bridge,
		allowedOrigins: make(map[string]bool),
		allowedHosts:   make(map[string]bool),
		authToken:      authToken,
	}

	for _, origin := range allowedOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		s.allowedOrigins[trimmed] = true
		if parsed, err := url.Parse(trimmed); err == nil && parsed.Host != "" {
			s.allowedHosts[parsed.Host] = true
		}
	}

	return s
}

func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/messages", s.handleMessages)
	mux.HandleFunc("/api/session/restart", s.handleRestart)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: s.checkOrigin,
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade error: %v", err)
		return
	}

	c, err := s.broadcaster.AddClient(conn)
	if err != nil {
		if errors.Is(err, ErrTooManyConnections) {
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "too many connections"))
		}
		conn.Close()
		return
	}
	log.Printf("Observer connected: %s (%d total)", r.RemoteAddr, s.broadcaster.ClientCount())

	// Read loop: inbound frames are ignored, but the read is what surfaces
	// transport close (and pong traffic) so the observer gets unregistered.
	go func() {
		defer func() {
			s.broadcaster.RemoveClient(c)
			log.Printf("Observer disconnected: %s (%d total)", r.RemoteAddr, s.broadcaster.ClientCount())
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

type statusResponse struct {
	session.Snapshot
	Sendable  bool         `json:"sendable"`
	Observers int          `json:"observers"`
	Process   health.Stats `json:"process"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(statusResponse{
		Snapshot:  s.store.Snapshot(),
		Sendable:  s.bridge.Sendable(),
		Observers: s.broadcaster.ClientCount(),
		Process:   health.Collect(),
	})
}

type sendRequest struct {
	To   string `json:"to"`
	Body string `json:"body"`
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.To == "" || req.Body == "" {
		http.Error(w, "to and body are required", http.StatusBadRequest)
		return
	}

	if !s.bridge.Sendable() {
		http.Error(w, "session not connected", http.StatusConflict)
		return
	}

	if err := s.bridge.Send(r.Context(), req.To, req.Body); err != nil {
		log.Printf("Send to %s failed: %v", req.To, err)
		http.Error(w, "send failed", http.StatusBadGateway)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.bridge.RequestRestart()
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) authorize(r *http.Request) bool {
	if s.authToken == "" {
		return true
	}

	if r.URL.Query().Get("token") == s.authToken {
		return true
	}

	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.authToken {
		return true
	}

	return false
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	if len(s.allowedOrigins) > 0 {
		if s.allowedOrigins[origin] {
			return true
		}
		if parsed, err := url.Parse(origin); err == nil && parsed.Host != "" {
			return s.allowedHosts[parsed.Host]
		}
		return false
	}

	parsed, err := url.Parse(origin)
	if err != nil {
		return false
	}

	host := parsed.Host
	if host == "" {
		return false
	}

	if host == r.Host {
		return true
	}

	if strings.HasPrefix(host, "localhost:") || host == "localhost" {
		return true
	}
	if strings.HasPrefix(host, "127.0.0.1:") || host == "127.0.0.1" {
		return true
	}
	if strings.HasPrefix(host, "[::1]:") || host == "::1" {
		return true
	}

	return false
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Content-Security-Policy", "default-src 'self'")
		next.ServeHTTP(w, r)
	})
}

// Handler wraps the route mux with the common middleware.
func Handler(mux *http.ServeMux) http.Handler {
	return securityHeaders(mux)
}

func ListenAndServe(host string, port int, handler http.Handler) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	log.Printf("Server listening on %s", addr)
	return http.ListenAndServe(addr, handler)
}
