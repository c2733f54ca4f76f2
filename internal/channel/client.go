// Package channel is the client side of the backend's push-event channel: a
// single persistent websocket that delivers JSON event objects, dispatches
// them to handlers registered by event type, and reconnects after a fixed
// delay whenever the connection drops.
package channel

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/ashita-ai/ideaforge/internal/telemetry"
)

// Wildcard is the handler key that receives every event regardless of type.
const Wildcard = "*"

// DefaultReconnectDelay is the fixed wait between a drop and the next dial.
const DefaultReconnectDelay = 3 * time.Second

// maxFrameSize bounds a single inbound message.
const maxFrameSize = 4 << 20

// Event is one decoded push message. Raw is the complete JSON object as sent,
// including the type field.
type Event struct {
	Type string
	Raw  json.RawMessage
}

// Decode unmarshals the full event object into v.
func (e Event) Decode(v any) error {
	return json.Unmarshal(e.Raw, v)
}

// Handler receives events. Handlers run on the delivery goroutine and must not
// block for long.
type Handler func(Event)

// ConnectionHandler is told true when a connection opens and false when an
// open connection closes. Callbacks are serialized and must not call Connect
// or Disconnect.
type ConnectionHandler func(connected bool)

// Option configures a Client.
type Option func(*Client)

// WithReconnectDelay overrides DefaultReconnectDelay. Non-positive values are ignored.
func WithReconnectDelay(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.reconnectDelay = d
		}
	}
}

// WithDialer replaces websocket.DefaultDialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(c *Client) {
		if d != nil {
			c.dialer = d
		}
	}
}

// WithLogger sets the logger for transport and decode diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

type entry struct {
	fn Handler
}

type connEntry struct {
	fn ConnectionHandler
}

type metrics struct {
	events       metric.Int64Counter
	decodeErrors metric.Int64Counter
	reconnects   metric.Int64Counter
	connected    metric.Int64UpDownCounter
}

// Client maintains one push-event connection. All methods are safe for
// concurrent use.
type Client struct {
	url            string
	reconnectDelay time.Duration
	dialer         *websocket.Dialer
	logger         *slog.Logger
	metrics        metrics

	mu        sync.Mutex
	conn      *websocket.Conn
	connID    string
	dialing   bool
	epoch     uint64 // bumped by Disconnect; stale loops and timers compare against it
	timer     *time.Timer
	timerSeq  uint64
	handlers  map[string][]*entry
	onConnect []*connEntry

	// dispatchMu serializes handler invocation across connections.
	dispatchMu sync.Mutex

	// notifyMu orders connection callbacks; reported is the last state sent.
	notifyMu sync.Mutex
	reported bool
}

// New creates a client for the channel name under baseURL, e.g.
// New("ws://localhost:8000/api/v1/ws", "research"). No connection is made
// until Connect.
func New(baseURL, name string, opts ...Option) *Client {
	c := &Client{
		url:            strings.TrimRight(baseURL, "/") + "/" + name,
		reconnectDelay: DefaultReconnectDelay,
		dialer:         websocket.DefaultDialer,
		logger:         slog.Default(),
		handlers:       make(map[string][]*entry),
	}
	for _, o := range opts {
		o(c)
	}
	c.metrics = newMetrics(c.logger)
	return c
}

func newMetrics(logger *slog.Logger) metrics {
	meter := telemetry.Meter("github.com/ashita-ai/ideaforge/internal/channel")
	m := metrics{
		events:       noop.Int64Counter{},
		decodeErrors: noop.Int64Counter{},
		reconnects:   noop.Int64Counter{},
		connected:    noop.Int64UpDownCounter{},
	}
	if ctr, err := meter.Int64Counter("ideaforge.channel.events",
		metric.WithDescription("Push events received, by type")); err == nil {
		m.events = ctr
	} else {
		logger.Warn("channel: create events counter", "error", err)
	}
	if ctr, err := meter.Int64Counter("ideaforge.channel.decode_errors",
		metric.WithDescription("Frames dropped because they were not JSON objects")); err == nil {
		m.decodeErrors = ctr
	}
	if ctr, err := meter.Int64Counter("ideaforge.channel.reconnects",
		metric.WithDescription("Reconnect attempts fired by the retry timer")); err == nil {
		m.reconnects = ctr
	}
	if ctr, err := meter.Int64UpDownCounter("ideaforge.channel.connected",
		metric.WithDescription("Open push-event connections")); err == nil {
		m.connected = ctr
	}
	return m
}

// URL returns the full channel address.
func (c *Client) URL() string { return c.url }

// Connected reports whether a connection is currently open.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Connect opens the connection unless one is already open or being dialed.
// Dial failures are logged and schedule a reconnect; they are never returned.
func (c *Client) Connect(ctx context.Context) {
	c.mu.Lock()
	if c.conn != nil || c.dialing {
		c.mu.Unlock()
		return
	}
	c.stopTimerLocked()
	c.dialing = true
	epoch := c.epoch
	c.mu.Unlock()

	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)

	c.mu.Lock()
	if c.epoch != epoch {
		// Disconnect ran while dialing.
		c.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	c.dialing = false
	if err != nil {
		c.scheduleReconnectLocked(epoch)
		c.mu.Unlock()
		c.logger.Warn("channel: dial failed", "url", c.url, "error", err, "retry_in", c.reconnectDelay)
		return
	}
	conn.SetReadLimit(maxFrameSize)
	connID := uuid.NewString()
	c.conn = conn
	c.connID = connID
	c.mu.Unlock()

	c.logger.Info("channel: connected", "url", c.url, "conn_id", connID)
	c.metrics.connected.Add(context.Background(), 1)
	c.notifyConnection()

	go c.readLoop(conn, epoch, connID)
}

// Disconnect cancels any pending reconnect and closes the open connection.
// It is safe to call when already disconnected, and a close it causes never
// schedules a reconnect.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.epoch++
	c.stopTimerLocked()
	c.dialing = false
	conn := c.conn
	connID := c.connID
	c.conn = nil
	c.connID = ""
	c.mu.Unlock()

	if conn == nil {
		return
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	_ = conn.Close()

	c.logger.Info("channel: disconnected", "url", c.url, "conn_id", connID)
	c.metrics.connected.Add(context.Background(), -1)
	c.notifyConnection()
}

// On registers h for events of eventType (or Wildcard for all events). The
// returned func removes exactly this registration and is safe to call twice.
func (c *Client) On(eventType string, h Handler) (off func()) {
	e := &entry{fn: h}
	c.mu.Lock()
	c.handlers[eventType] = append(c.handlers[eventType], e)
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			list := c.handlers[eventType]
			for i, candidate := range list {
				if candidate == e {
					c.handlers[eventType] = append(list[:i:i], list[i+1:]...)
					break
				}
			}
			if len(c.handlers[eventType]) == 0 {
				delete(c.handlers, eventType)
			}
		})
	}
}

// OnConnection registers h for connection state changes.
func (c *Client) OnConnection(h ConnectionHandler) (off func()) {
	e := &connEntry{fn: h}
	c.mu.Lock()
	c.onConnect = append(c.onConnect, e)
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			for i, candidate := range c.onConnect {
				if candidate == e {
					c.onConnect = append(c.onConnect[:i:i], c.onConnect[i+1:]...)
					break
				}
			}
		})
	}
}

func (c *Client) readLoop(conn *websocket.Conn, epoch uint64, connID string) {
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			c.handleClose(conn, epoch, connID, err)
			return
		}
		if !c.current(epoch) {
			return
		}
		if kind != websocket.TextMessage {
			c.logger.Debug("channel: ignoring non-text frame", "conn_id", connID, "kind", kind)
			continue
		}
		c.dispatch(data)
	}
}

func (c *Client) current(epoch uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch == epoch
}

func (c *Client) handleClose(conn *websocket.Conn, epoch uint64, connID string, cause error) {
	c.mu.Lock()
	if c.epoch != epoch || c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.connID = ""
	c.scheduleReconnectLocked(epoch)
	c.mu.Unlock()

	_ = conn.Close()
	if websocket.IsCloseError(cause, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		c.logger.Info("channel: closed by server", "conn_id", connID, "retry_in", c.reconnectDelay)
	} else {
		c.logger.Warn("channel: connection lost", "conn_id", connID, "error", cause, "retry_in", c.reconnectDelay)
	}
	c.metrics.connected.Add(context.Background(), -1)
	c.notifyConnection()
}

// scheduleReconnectLocked arms the single retry timer. c.mu must be held.
func (c *Client) scheduleReconnectLocked(epoch uint64) {
	c.stopTimerLocked()
	c.timerSeq++
	seq := c.timerSeq
	c.timer = time.AfterFunc(c.reconnectDelay, func() { c.reconnect(epoch, seq) })
}

func (c *Client) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Client) reconnect(epoch, seq uint64) {
	c.mu.Lock()
	if c.epoch != epoch || c.timerSeq != seq {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.mu.Unlock()

	c.metrics.reconnects.Add(context.Background(), 1)
	c.logger.Debug("channel: reconnecting", "url", c.url)
	c.Connect(context.Background())
}

// dispatch decodes one frame and delivers it to typed handlers, then
// wildcard handlers. Anything that is not a JSON object is dropped.
func (c *Client) dispatch(data []byte) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		c.metrics.decodeErrors.Add(context.Background(), 1)
		c.logger.Warn("channel: dropping malformed frame", "error", err, "size", len(data))
		return
	}
	var eventType string
	if raw, ok := fields["type"]; ok {
		if err := json.Unmarshal(raw, &eventType); err != nil {
			eventType = ""
		}
	}
	ev := Event{Type: eventType, Raw: json.RawMessage(data)}
	c.metrics.events.Add(context.Background(), 1, metric.WithAttributes(attribute.String("type", eventType)))

	c.dispatchMu.Lock()
	defer c.dispatchMu.Unlock()
	for _, h := range c.handlersFor(eventType) {
		c.safeCall(h, ev)
	}
}

func (c *Client) handlersFor(eventType string) []Handler {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Handler
	if eventType != Wildcard {
		for _, e := range c.handlers[eventType] {
			out = append(out, e.fn)
		}
	}
	for _, e := range c.handlers[Wildcard] {
		out = append(out, e.fn)
	}
	return out
}

func (c *Client) safeCall(h Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("channel: handler panicked", "type", ev.Type, "panic", r)
		}
	}()
	h(ev)
}

// notifyConnection reports the client's current state to connection handlers
// when it differs from the last report.
func (c *Client) notifyConnection() {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	connected := c.conn != nil
	if connected == c.reported {
		c.mu.Unlock()
		return
	}
	c.reported = connected
	hs := make([]ConnectionHandler, 0, len(c.onConnect))
	for _, e := range c.onConnect {
		hs = append(hs, e.fn)
	}
	c.mu.Unlock()

	for _, h := range hs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					c.logger.Error("channel: connection handler panicked", "connected", connected, "panic", r)
				}
			}()
			h(connected)
		}()
	}
}
