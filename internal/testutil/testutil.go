// Package testutil provides a fake IdeaForge backend for tests: an httptest
// server that serves REST handlers under /api/v1 and upgrades
// /api/v1/ws/{channel} to a websocket the test can broadcast on.
//
// Usage:
//
//	be := testutil.NewBackend(t)
//	be.Handle("POST /research", func(w http.ResponseWriter, r *http.Request) { ... })
//	ch := channel.New(be.WSURL(), "research")
//	be.WaitForConnections(t, 1)
//	be.Broadcast(t, map[string]any{"type": "agent_started", ...})
package testutil

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// APIPrefix is the path under which REST handlers are mounted.
const APIPrefix = "/api/v1"

// peerConn serializes writes; gorilla/websocket allows one concurrent writer.
type peerConn struct {
	conn *websocket.Conn
	wmu  sync.Mutex
}

// Backend is a fake IdeaForge API plus push-event channel.
type Backend struct {
	Server *httptest.Server

	mux      *http.ServeMux
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*peerConn]string // conn -> channel name

	accepted atomic.Int64
	reject   atomic.Bool
}

// NewBackend starts a fake backend. It is shut down by t.Cleanup.
func NewBackend(t testing.TB) *Backend {
	t.Helper()
	b := &Backend{
		mux:      http.NewServeMux(),
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		conns:    make(map[*peerConn]string),
	}
	b.mux.HandleFunc("GET "+APIPrefix+"/ws/{channel}", b.handleWS)
	b.Server = httptest.NewServer(b.mux)
	t.Cleanup(func() {
		b.CloseConnections()
		b.Server.Close()
	})
	return b
}

// Handle registers a REST handler. pattern is "METHOD /path" relative to
// APIPrefix, e.g. "GET /ideas".
func (b *Backend) Handle(pattern string, h http.HandlerFunc) {
	method, path, ok := strings.Cut(pattern, " ")
	if !ok {
		path, method = pattern, ""
	}
	if method != "" {
		method += " "
	}
	b.mux.HandleFunc(method+APIPrefix+path, h)
}

// APIURL is the REST base URL, including APIPrefix.
func (b *Backend) APIURL() string { return b.Server.URL + APIPrefix }

// WSURL is the channel base URL; the channel name is appended by the client.
func (b *Backend) WSURL() string {
	return "ws" + strings.TrimPrefix(b.Server.URL, "http") + APIPrefix + "/ws"
}

// RejectUpgrades makes subsequent websocket handshakes fail with 503.
func (b *Backend) RejectUpgrades(reject bool) { b.reject.Store(reject) }

// Accepted returns how many websocket connections have been accepted in total.
func (b *Backend) Accepted() int64 { return b.accepted.Load() }

// Connections returns the number of currently open websocket connections.
func (b *Backend) Connections() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.conns)
}

// WaitForConnections blocks until exactly n connections are open or fails the
// test after five seconds.
func (b *Backend) WaitForConnections(t testing.TB, n int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if b.Connections() == n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("testutil: expected %d open connections, have %d", n, b.Connections())
}

// Broadcast JSON-encodes v and sends it to every open connection.
func (b *Backend) Broadcast(t testing.TB, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("testutil: marshal broadcast: %v", err)
	}
	b.BroadcastRaw(t, string(data))
}

// BroadcastRaw sends msg verbatim as a text frame to every open connection.
func (b *Backend) BroadcastRaw(t testing.TB, msg string) {
	t.Helper()
	for _, pc := range b.snapshot() {
		pc.wmu.Lock()
		err := pc.conn.WriteMessage(websocket.TextMessage, []byte(msg))
		pc.wmu.Unlock()
		if err != nil {
			t.Logf("testutil: broadcast write: %v", err)
		}
	}
}

// CloseConnections drops every open websocket connection from the server side.
func (b *Backend) CloseConnections() {
	for _, pc := range b.snapshot() {
		pc.wmu.Lock()
		_ = pc.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"),
			time.Now().Add(time.Second))
		pc.wmu.Unlock()
		_ = pc.conn.Close()
	}
}

func (b *Backend) snapshot() []*peerConn {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*peerConn, 0, len(b.conns))
	for pc := range b.conns {
		out = append(out, pc)
	}
	return out
}

func (b *Backend) handleWS(w http.ResponseWriter, r *http.Request) {
	if b.reject.Load() {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	conn.SetReadLimit(1 << 20)

	pc := &peerConn{conn: conn}
	b.mu.Lock()
	b.conns[pc] = r.PathValue("channel")
	b.mu.Unlock()
	b.accepted.Add(1)

	go func() {
		defer func() {
			b.mu.Lock()
			delete(b.conns, pc)
			b.mu.Unlock()
			_ = conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// TestLogger returns a logger configured for test output (warns only).
func TestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}
