// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Jan Krl

package simulator

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/JanKrl/kospel-cmi-lib/pkg/register"
)

// Server mimics the C.MI module's HTTP register API over a Store, plus
// a /events WebSocket that streams every register write for tools
// watching the simulated device.
type Server struct {
	store *Store
	log   *slog.Logger
	hub   *eventHub
}

// NewServer creates a mock device server over store. A nil logger
// selects slog.Default().
func NewServer(store *Store, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{store: store, log: log, hub: newEventHub()}
}

// Handler returns the server's HTTP routes:
//
//	GET  /{reg}/{count}  read a register range
//	POST /{reg}          write a register (body: JSON hex string)
//	GET  /events         WebSocket stream of write events
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/events", s.handleEvents)
	mux.HandleFunc("/", s.handleRegisters)
	return mux
}

func (s *Server) handleRegisters(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	case r.Method == http.MethodGet && len(parts) == 2:
		s.handleRead(w, parts[0], parts[1])
	case r.Method == http.MethodPost && len(parts) == 1:
		s.handleWrite(w, r, parts[0])
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleRead(w http.ResponseWriter, start, countStr string) {
	count, err := strconv.Atoi(countStr)
	if err != nil || count < 1 {
		http.Error(w, "invalid register count", http.StatusBadRequest)
		return
	}
	startIdx, err := register.AddressToIndex(start)
	if err != nil {
		http.Error(w, "invalid register address", http.StatusBadRequest)
		return
	}

	regs := make(map[string]string, count)
	for i := 0; i < count; i++ {
		reg, err := register.AddressFromIndex(start[:2], startIdx+i)
		if err != nil {
			break
		}
		value, err := s.store.Read(reg)
		if err != nil {
			s.log.Error("state read failed", "register", reg, "error", err)
			http.Error(w, "state file error", http.StatusInternalServerError)
			return
		}
		regs[reg] = value
	}

	s.log.Debug("range read", "start", start, "count", count)
	writeJSON(w, map[string]any{"regs": regs})
}

func (s *Server) handleWrite(w http.ResponseWriter, r *http.Request, reg string) {
	var hexVal string
	if err := json.NewDecoder(r.Body).Decode(&hexVal); err != nil {
		http.Error(w, "body must be a JSON hex string", http.StatusBadRequest)
		return
	}
	// Reject values the real device could never hold; report the
	// device's nonzero-status convention rather than an HTTP error.
	if _, err := register.Decode(hexVal); err != nil {
		s.log.Warn("rejected write", "register", reg, "value", hexVal, "error", err)
		writeJSON(w, map[string]string{"status": "2"})
		return
	}
	if err := s.store.Write(reg, hexVal); err != nil {
		s.log.Error("state write failed", "register", reg, "error", err)
		http.Error(w, "state file error", http.StatusInternalServerError)
		return
	}

	s.log.Info("register written", "register", reg, "value", hexVal)
	s.hub.broadcast(WriteEvent{
		Register:  reg,
		Value:     hexVal,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	writeJSON(w, map[string]string{"status": "0"})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// WriteEvent is the envelope streamed to /events subscribers after each
// accepted register write.
type WriteEvent struct {
	Register  string `json:"register"`
	Value     string `json:"value"`
	Timestamp string `json:"timestamp"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Local development tool; accept any origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	client := s.hub.add(conn)
	s.log.Debug("event subscriber connected", "remote", r.RemoteAddr)

	// The read loop only detects disconnects; subscribers never send.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			s.hub.remove(client)
			s.log.Debug("event subscriber disconnected", "remote", r.RemoteAddr)
			return
		}
	}
}

// eventClient wraps a connection with a write mutex. Gorilla WebSocket
// forbids concurrent writes on one Conn.
type eventClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// eventHub fans write events out to every connected subscriber.
type eventHub struct {
	mu      sync.RWMutex
	clients map[*eventClient]struct{}
}

func newEventHub() *eventHub {
	return &eventHub{clients: make(map[*eventClient]struct{})}
}

func (h *eventHub) add(conn *websocket.Conn) *eventClient {
	c := &eventClient{conn: conn}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

func (h *eventHub) remove(c *eventClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	_ = c.conn.Close()
}

// broadcast marshals once and fans the raw bytes out. Send failures are
// ignored; the read loop notices the dead connection and cleans up.
func (h *eventHub) broadcast(event WriteEvent) {
	data, _ := json.Marshal(event)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.mu.Lock()
		_ = c.conn.WriteMessage(websocket.TextMessage, data)
		c.mu.Unlock()
	}
}
