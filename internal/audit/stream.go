// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

package audit

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/tomtom215/aegis/internal/logging"
)

// Stream message types.
const (
	StreamMessageTypeEvent = "event"
	StreamMessageTypePing  = "ping"
	StreamMessageTypePong  = "pong"
)

// StreamMessage is the frame sent to stream subscribers.
type StreamMessage struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// StreamHub fans live audit events out to websocket subscribers. It is
// registered as the logger's notifier, so events arrive already sealed.
// A token bucket caps the broadcast rate; during event storms excess
// events are dropped from the live stream only, never from the store.
type StreamHub struct {
	clients    map[*StreamClient]bool
	broadcast  chan Event
	Register   chan *StreamClient
	Unregister chan *StreamClient
	limiter    *rate.Limiter
	mu         sync.RWMutex
}

const (
	// defaultStreamRate caps broadcasts per second.
	defaultStreamRate = 100

	// defaultStreamBurst allows short spikes above the rate.
	defaultStreamBurst = 200
)

// NewStreamHub creates a stream hub. Non-positive arguments select the
// defaults.
func NewStreamHub(eventsPerSecond float64, burst int) *StreamHub {
	if eventsPerSecond <= 0 {
		eventsPerSecond = defaultStreamRate
	}
	if burst <= 0 {
		burst = defaultStreamBurst
	}

	return &StreamHub{
		clients:    make(map[*StreamClient]bool),
		broadcast:  make(chan Event, 256),
		Register:   make(chan *StreamClient),
		Unregister: make(chan *StreamClient),
		limiter:    rate.NewLimiter(rate.Limit(eventsPerSecond), burst),
	}
}

// RunWithContext runs the hub until the context is canceled. Designed
// for suture supervision: on cancellation all clients are closed and
// ctx.Err() is returned so the supervisor does not restart it.
//
// Channel selection is prioritized so client lifecycle changes are
// always applied before the next broadcast: shutdown first, then
// register/unregister, then events.
func (h *StreamHub) RunWithContext(ctx context.Context) error {
	for {
		// Priority 1: shutdown (non-blocking check)
		select {
		case <-ctx.Done():
			h.shutdown()
			return ctx.Err()
		default:
		}

		// Priority 2: client lifecycle (non-blocking check)
		select {
		case client := <-h.Register:
			h.addClient(client)
			continue
		case client := <-h.Unregister:
			h.removeClient(client)
			continue
		default:
		}

		// Priority 3: broadcast or wait for any event (blocking)
		select {
		case <-ctx.Done():
			h.shutdown()
			return ctx.Err()

		case client := <-h.Register:
			h.addClient(client)

		case client := <-h.Unregister:
			h.removeClient(client)

		case event := <-h.broadcast:
			h.broadcastToClients(event)
		}
	}
}

func (h *StreamHub) addClient(client *StreamClient) {
	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()
	logging.Info().Int("total_clients", total).Msg("audit stream client connected")
}

func (h *StreamHub) removeClient(client *StreamClient) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	total := len(h.clients)
	h.mu.Unlock()
	logging.Info().Int("total_clients", total).Msg("audit stream client disconnected")
}

// shutdown closes all clients in ID order for a consistent close
// sequence.
func (h *StreamHub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*StreamClient, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	for _, client := range clients {
		close(client.send)
		delete(h.clients, client)
	}

	logging.Info().
		Str("component", "audit-stream-hub").
		Int("clients_closed", len(clients)).
		Msg("audit stream hub stopped")
}

// BroadcastEvent queues an event for delivery to subscribers. Safe to
// call from the logger's writer goroutine; never blocks. Events beyond
// the rate limit or a full queue are dropped from the stream.
func (h *StreamHub) BroadcastEvent(event Event) {
	if !h.limiter.Allow() {
		logging.Debug().Str("event_id", event.ID).Msg("audit stream rate limit exceeded, dropping from stream")
		return
	}

	select {
	case h.broadcast <- event:
	default:
		logging.Warn().Str("event_id", event.ID).Msg("audit stream broadcast channel full, dropping from stream")
	}
}

// broadcastToClients delivers an event to every subscriber whose filter
// matches, in client ID order so delivery order is reproducible. Clients
// with a full send queue are disconnected rather than allowed to stall
// the hub.
func (h *StreamHub) broadcastToClients(event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*StreamClient, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	var toRemove []*StreamClient

	for _, client := range clients {
		if !client.wants(&event) {
			continue
		}

		select {
		case client.send <- StreamMessage{Type: StreamMessageTypeEvent, Data: event}:
		default:
			toRemove = append(toRemove, client)
		}
	}

	for _, client := range toRemove {
		close(client.send)
		delete(h.clients, client)
		logging.Warn().Uint64("client_id", client.id).Msg("audit stream client too slow, disconnecting")
	}
}

// ClientCount returns the number of connected subscribers.
func (h *StreamHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

const (
	streamWriteWait      = 10 * time.Second
	streamPongWait       = 60 * time.Second
	streamPingPeriod     = (streamPongWait * 9) / 10
	streamMaxMessageSize = 4 * 1024
)

// streamClientIDCounter assigns monotonically increasing client IDs so
// broadcast and shutdown order is deterministic.
var streamClientIDCounter atomic.Uint64

// StreamClient is the middleman between one websocket connection and
// the hub. An optional type filter restricts which events it receives.
type StreamClient struct {
	id    uint64
	hub   *StreamHub
	conn  *websocket.Conn
	types map[EventType]bool
	send  chan StreamMessage
}

// NewStreamClient creates a subscriber. An empty types slice subscribes
// to every event type.
func NewStreamClient(hub *StreamHub, conn *websocket.Conn, types []EventType) *StreamClient {
	var filter map[EventType]bool
	if len(types) > 0 {
		filter = make(map[EventType]bool, len(types))
		for _, t := range types {
			filter[t] = true
		}
	}

	return &StreamClient{
		id:    streamClientIDCounter.Add(1),
		hub:   hub,
		conn:  conn,
		types: filter,
		send:  make(chan StreamMessage, 256),
	}
}

// ID returns the client's unique identifier.
func (c *StreamClient) ID() uint64 {
	return c.id
}

// wants reports whether the client's filter matches the event.
func (c *StreamClient) wants(event *Event) bool {
	if c.types == nil {
		return true
	}
	return c.types[event.Type]
}

// Start begins the read and write pumps and registers the client.
func (c *StreamClient) Start() {
	c.hub.Register <- c
	go c.writePump()
	go c.readPump()
}

// readPump consumes frames from the connection. Subscribers only send
// pings; everything else is discarded.
func (c *StreamClient) readPump() {
	defer func() {
		c.hub.Unregister <- c
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(streamMaxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(streamPongWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})

	for {
		var msg StreamMessage
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Error().Err(err).Msg("unexpected websocket close error")
			}
			break
		}

		if msg.Type == StreamMessageTypePing {
			select {
			case c.send <- StreamMessage{Type: StreamMessageTypePong}:
			default:
			}
		}
	}
}

// writePump pushes queued messages and keepalive pings to the
// connection.
func (c *StreamClient) writePump() {
	ticker := time.NewTicker(streamPingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(streamWriteWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline")
				return
			}

			if !ok {
				// The hub closed the channel
				if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					logging.Error().Err(err).Msg("failed to write close message")
				}
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				logging.Error().Err(err).Msg("failed to write JSON message")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(streamWriteWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline for ping")
				return
			}

			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
