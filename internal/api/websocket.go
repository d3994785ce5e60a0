package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/hadiscovery/internal/infrastructure/config"
	"github.com/nerrad567/hadiscovery/internal/infrastructure/logging"
)

// Frame types exchanged over /api/v1/ws.
const (
	FrameSubscribe   = "subscribe"
	FrameUnsubscribe = "unsubscribe"
	FramePing        = "ping"
	FramePong        = "pong"
	FrameEvent       = "event"
	FrameResponse    = "response"
	FrameError       = "error"
)

// clientQueue is how many frames may wait for a slow client before new
// ones are dropped for it.
const clientQueue = 256

// Frame is one WebSocket message in either direction. Events carry their
// channel in EventType; replies echo the request ID.
type Frame struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// ChannelList is the payload of subscribe and unsubscribe frames.
type ChannelList struct {
	Channels []string `json:"channels"`
}

// inbound is a client frame with its payload left undecoded.
type inbound struct {
	Type    string          `json:"type"`
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload"`
}

// Hub fans events out to the WebSocket clients subscribed to their channel.
type Hub struct {
	cfg    config.WebSocketConfig
	logger *logging.Logger

	mu          sync.RWMutex
	clients     map[*wsClient]struct{}
	subscribers map[string]map[*wsClient]struct{}
}

type wsClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	// done is closed once the client leaves the hub; send is never closed.
	done      chan struct{}
	leaveOnce sync.Once
}

// NewHub returns an empty hub.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		cfg:         cfg,
		logger:      logger,
		clients:     make(map[*wsClient]struct{}),
		subscribers: make(map[string]map[*wsClient]struct{}),
	}
}

// Run blocks until ctx ends, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.RLock()
	clients := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		h.leave(c)
		_ = c.conn.Close()
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) join(c *wsClient, channels []string) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.subscribeLocked(c, channels)
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "clients", n, "channels", channels)
}

// leave removes c from the hub and every channel. It is safe to call more
// than once.
func (h *Hub) leave(c *wsClient) {
	c.leaveOnce.Do(func() {
		h.mu.Lock()
		delete(h.clients, c)
		for ch, set := range h.subscribers {
			delete(set, c)
			if len(set) == 0 {
				delete(h.subscribers, ch)
			}
		}
		n := len(h.clients)
		h.mu.Unlock()

		close(c.done)
		h.logger.Debug("websocket client disconnected", "clients", n)
	})
}

func (h *Hub) subscribe(c *wsClient, channels []string) {
	h.mu.Lock()
	h.subscribeLocked(c, channels)
	h.mu.Unlock()
}

func (h *Hub) subscribeLocked(c *wsClient, channels []string) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	for _, ch := range channels {
		set := h.subscribers[ch]
		if set == nil {
			set = make(map[*wsClient]struct{})
			h.subscribers[ch] = set
		}
		set[c] = struct{}{}
	}
}

func (h *Hub) unsubscribe(c *wsClient, channels []string) {
	h.mu.Lock()
	for _, ch := range channels {
		if set := h.subscribers[ch]; set != nil {
			delete(set, c)
			if len(set) == 0 {
				delete(h.subscribers, ch)
			}
		}
	}
	h.mu.Unlock()
}

// Broadcast sends payload as an event on channel to its subscribers.
func (h *Hub) Broadcast(channel string, payload any) {
	data, err := json.Marshal(Frame{
		Type:      FrameEvent,
		EventType: channel,
		Timestamp: timestamp(),
		Payload:   payload,
	})
	if err != nil {
		h.logger.Error("encoding websocket event", "channel", channel, "error", err)
		return
	}

	h.mu.RLock()
	targets := make([]*wsClient, 0, len(h.subscribers[channel]))
	for c := range h.subscribers[channel] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.enqueue(data)
	}
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// parseChannels splits a comma separated channel list, skipping blanks.
func parseChannels(raw string) []string {
	var out []string
	for ch := range strings.SplitSeq(raw, ",") {
		if ch = strings.TrimSpace(ch); ch != "" {
			out = append(out, ch)
		}
	}
	return out
}

// handleWebSocket upgrades the request and attaches the client to the hub.
// ?channels=a,b subscribes on connect.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || s.isAllowedOrigin(origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &wsClient{
		hub:  s.hub,
		conn: conn,
		send: make(chan []byte, clientQueue),
		done: make(chan struct{}),
	}
	s.hub.join(c, parseChannels(r.URL.Query().Get("channels")))

	go c.writeLoop()
	go c.readLoop()
}

// enqueue queues data for the client, dropping it when the client is gone
// or too slow to keep up.
func (c *wsClient) enqueue(data []byte) {
	select {
	case <-c.done:
	case c.send <- data:
	default:
	}
}

func (c *wsClient) reply(id, typ string, payload any) {
	data, err := json.Marshal(Frame{Type: typ, ID: id, Timestamp: timestamp(), Payload: payload})
	if err != nil {
		return
	}
	c.enqueue(data)
}

func (c *wsClient) replyError(id, message string) {
	c.reply(id, FrameError, map[string]string{"message": message})
}

func (c *wsClient) readLoop() {
	defer func() {
		c.hub.leave(c)
		_ = c.conn.Close()
	}()

	cfg := c.hub.cfg
	idle := time.Duration(cfg.PingInterval+cfg.PongTimeout) * time.Second
	extend := func() error { return c.conn.SetReadDeadline(time.Now().Add(idle)) }

	c.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	_ = extend()
	c.conn.SetPongHandler(func(string) error { return extend() })

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.hub.logger.Warn("websocket read failed", "error", err)
			}
			return
		}
		_ = extend()
		c.dispatch(data)
	}
}

func (c *wsClient) writeLoop() {
	cfg := c.hub.cfg
	writeWait := time.Duration(cfg.PongTimeout) * time.Second
	ping := time.NewTicker(time.Duration(cfg.PingInterval) * time.Second)
	defer func() {
		ping.Stop()
		_ = c.conn.Close()
	}()

	write := func(typ int, data []byte) error {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		return c.conn.WriteMessage(typ, data)
	}

	for {
		select {
		case <-c.done:
			_ = write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return
		case data := <-c.send:
			if err := write(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ping.C:
			if err := write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// dispatch handles one client frame.
func (c *wsClient) dispatch(data []byte) {
	var in inbound
	if err := json.Unmarshal(data, &in); err != nil {
		c.replyError("", "invalid JSON message")
		return
	}

	switch in.Type {
	case FramePing:
		c.reply(in.ID, FramePong, nil)
	case FrameSubscribe, FrameUnsubscribe:
		var list ChannelList
		if len(in.Payload) == 0 || json.Unmarshal(in.Payload, &list) != nil {
			c.replyError(in.ID, "invalid "+in.Type+" payload")
			return
		}
		if in.Type == FrameSubscribe {
			c.hub.subscribe(c, list.Channels)
			c.reply(in.ID, FrameResponse, map[string]any{"subscribed": list.Channels})
			return
		}
		c.hub.unsubscribe(c, list.Channels)
		c.reply(in.ID, FrameResponse, map[string]any{"unsubscribed": list.Channels})
	default:
		c.replyError(in.ID, "unknown message type: "+in.Type)
	}
}
