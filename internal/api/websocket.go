package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/hvpsu/internal/auth"
	"github.com/nerrad567/hvpsu/internal/infrastructure/config"
	"github.com/nerrad567/hvpsu/internal/infrastructure/logging"
)

// WebSocket frame types.
const (
	WSTypeSubscribe   = "subscribe"
	WSTypeUnsubscribe = "unsubscribe"
	WSTypePing        = "ping"
	WSTypePong        = "pong"
	WSTypeEvent       = "event"
	WSTypeResponse    = "response"
	WSTypeError       = "error"
)

const (
	// wsChannelPrefix is the namespace of every channel the hub serves.
	wsChannelPrefix = "psu."

	// wsQueueSize is the number of frames queued per session. Events for a
	// session with a full queue are dropped.
	wsQueueSize = 64
)

// WSMessage is one frame exchanged with a WebSocket client.
type WSMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// WSSubscribePayload names the channels of a subscribe or unsubscribe frame.
type WSSubscribePayload struct {
	Channels []string `json:"channels"`
}

// Hub fans PSU events out to WebSocket sessions.
//
// The hub keeps the last event of every channel and replays it to a session
// that subscribes later, so a dashboard shows the current status without
// waiting for the next telemetry tick.
//
// Lock ordering: Hub.mu before wsSession.mu. Session queues are only closed
// with Hub.mu held for writing and only written with it held for reading.
type Hub struct {
	cfg    config.WebSocketConfig
	logger *logging.Logger

	mu       sync.RWMutex
	sessions map[*wsSession]struct{}
	last     map[string][]byte
	closed   bool
}

// NewHub creates a hub. Call Run to tie its lifetime to a context.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		cfg:      cfg,
		logger:   logger,
		sessions: make(map[*wsSession]struct{}),
		last:     make(map[string][]byte),
	}
}

// Run blocks until ctx is cancelled, then closes every session. Sessions
// opened afterwards are refused.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for s := range h.sessions {
		close(s.queue)
		if s.conn != nil {
			s.conn.Close()
		}
		delete(h.sessions, s)
	}
}

// SessionCount returns the number of open WebSocket sessions.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Broadcast sends payload on channel to every subscribed session and keeps
// it as the channel's last event.
func (h *Hub) Broadcast(channel string, payload any) {
	frame, err := encodeFrame(WSMessage{Type: WSTypeEvent, EventType: channel, Payload: payload})
	if err != nil {
		h.logger.Error("encoding websocket event", "channel", channel, "error", err)
		return
	}

	h.mu.Lock()
	h.last[channel] = frame
	h.mu.Unlock()

	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := 0
	for s := range h.sessions {
		if s.subscribed(channel) && s.enqueue(frame) {
			delivered++
		}
	}
	if delivered > 0 {
		h.logger.Debug("websocket event sent", "channel", channel, "sessions", delivered)
	}
}

func (h *Hub) add(s *wsSession) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.sessions[s] = struct{}{}
	h.logger.Debug("websocket session opened", "subject", s.subject, "sessions", len(h.sessions))
	return true
}

func (h *Hub) remove(s *wsSession) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.sessions[s]; !ok {
		return
	}
	delete(h.sessions, s)
	close(s.queue)
	h.logger.Debug("websocket session closed", "subject", s.subject, "sessions", len(h.sessions))
}

// deliver queues frame for s unless s has already been removed.
func (h *Hub) deliver(s *wsSession, frame []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.sessions[s]; ok {
		s.enqueue(frame)
	}
}

// replay delivers the last event of each channel that has one.
func (h *Hub) replay(s *wsSession, channels []string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.sessions[s]; !ok {
		return
	}
	for _, ch := range channels {
		if frame, ok := h.last[ch]; ok {
			s.enqueue(frame)
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Origin checking is handled by CORS middleware
		return true
	},
}

// handleWebSocket upgrades the connection and starts a session.
// Authentication has already been done by requirePermission.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	sess := &wsSession{
		hub:      s.hub,
		conn:     conn,
		queue:    make(chan []byte, wsQueueSize),
		channels: make(map[string]struct{}),
	}
	if claims := auth.ClaimsFromContext(r.Context()); claims != nil {
		sess.subject = claims.Subject
	}
	if !s.hub.add(sess) {
		conn.Close()
		return
	}

	go sess.writeLoop(s.wsCfg)
	go sess.readLoop(s.wsCfg)
}

// wsSession is one WebSocket connection and its channel subscriptions.
type wsSession struct {
	hub   *Hub
	conn  *websocket.Conn
	queue chan []byte
	// subject is the token subject, empty when auth is disabled.
	subject string

	mu       sync.RWMutex
	channels map[string]struct{}
}

func (s *wsSession) subscribed(channel string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.channels[channel]
	return ok
}

// enqueue never blocks. The caller holds Hub.mu.
func (s *wsSession) enqueue(frame []byte) bool {
	select {
	case s.queue <- frame:
		return true
	default:
		return false
	}
}

func (s *wsSession) readLoop(cfg config.WebSocketConfig) {
	defer func() {
		s.hub.remove(s)
		s.conn.Close()
	}()

	keepalive := time.Duration(cfg.PingInterval+cfg.PongTimeout) * time.Second
	s.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	//nolint:errcheck // Best-effort deadline on connection setup
	s.conn.SetReadDeadline(time.Now().Add(keepalive))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(keepalive))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.hub.logger.Warn("websocket read error", "subject", s.subject, "error", err)
			}
			return
		}
		// Browsers that ignore protocol pings stay alive by sending frames.
		//nolint:errcheck // Best-effort deadline reset
		s.conn.SetReadDeadline(time.Now().Add(keepalive))
		s.handleFrame(data)
	}
}

func (s *wsSession) writeLoop(cfg config.WebSocketConfig) {
	ticker := time.NewTicker(time.Duration(cfg.PingInterval) * time.Second)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	writeWait := time.Duration(cfg.PongTimeout) * time.Second
	for {
		select {
		case frame, ok := <-s.queue:
			if !ok {
				//nolint:errcheck // Best-effort close frame
				s.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			//nolint:errcheck // Best-effort deadline; write error caught below
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			//nolint:errcheck // Best-effort deadline; ping error caught below
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *wsSession) handleFrame(data []byte) {
	var in struct {
		Type    string          `json:"type"`
		ID      string          `json:"id"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &in); err != nil {
		s.replyError("", "invalid JSON message")
		return
	}

	switch in.Type {
	case WSTypeSubscribe, WSTypeUnsubscribe:
		channels, err := parseChannels(in.Payload)
		if err != nil {
			s.replyError(in.ID, err.Error())
			return
		}
		if in.Type == WSTypeSubscribe {
			s.subscribe(in.ID, channels)
		} else {
			s.unsubscribe(in.ID, channels)
		}
	case WSTypePing:
		s.reply(in.ID, WSTypePong, nil)
	default:
		s.replyError(in.ID, "unknown message type: "+in.Type)
	}
}

func parseChannels(raw json.RawMessage) ([]string, error) {
	var p WSSubscribePayload
	if len(raw) == 0 || json.Unmarshal(raw, &p) != nil {
		return nil, errors.New("invalid subscription payload")
	}
	if len(p.Channels) == 0 {
		return nil, errors.New("no channels given")
	}
	for _, ch := range p.Channels {
		if !strings.HasPrefix(ch, wsChannelPrefix) {
			return nil, fmt.Errorf("unknown channel %q", ch)
		}
	}
	return p.Channels, nil
}

func (s *wsSession) subscribe(id string, channels []string) {
	s.mu.Lock()
	for _, ch := range channels {
		s.channels[ch] = struct{}{}
	}
	s.mu.Unlock()

	s.hub.logger.Info("websocket session subscribed", "subject", s.subject, "channels", channels)
	s.reply(id, WSTypeResponse, map[string]any{"subscribed": channels})
	s.hub.replay(s, channels)
}

func (s *wsSession) unsubscribe(id string, channels []string) {
	s.mu.Lock()
	for _, ch := range channels {
		delete(s.channels, ch)
	}
	s.mu.Unlock()

	s.reply(id, WSTypeResponse, map[string]any{"unsubscribed": channels})
}

func (s *wsSession) reply(id, msgType string, payload any) {
	frame, err := encodeFrame(WSMessage{Type: msgType, ID: id, Payload: payload})
	if err != nil {
		return
	}
	s.hub.deliver(s, frame)
}

func (s *wsSession) replyError(id, message string) {
	s.reply(id, WSTypeError, map[string]string{"message": message})
}

func encodeFrame(msg WSMessage) ([]byte, error) {
	msg.Timestamp = time.Now().UTC().Format(time.RFC3339)
	return json.Marshal(msg)
}
