package devserver

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/callwave/callwave/internal/realtime"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufSize    = 64
)

// wsClient is one socket connection. A client may subscribe to several sessions.
type wsClient struct {
	hub    *hub
	conn   *websocket.Conn
	send   chan []byte
	userID string

	mu       sync.Mutex
	sessions map[int64]bool

	once sync.Once
	done chan struct{}
}

// hub fans session events out to subscribed sockets.
type hub struct {
	log *zap.Logger

	mu      sync.RWMutex
	clients map[*wsClient]bool
}

func newHub(log *zap.Logger) *hub {
	return &hub{log: log, clients: make(map[*wsClient]bool)}
}

func (h *hub) register(c *wsClient) {
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
}

func (h *hub) unregister(c *wsClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
}

// publish sends a frame to every client subscribed to sessionID. Slow clients
// drop frames rather than block the campaign.
func (h *hub) publish(sessionID int64, event realtime.EventType, data any) {
	frame, err := realtime.Encode(event, data)
	if err != nil {
		h.log.Error("encode frame", zap.Error(err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if !c.subscribed(sessionID) {
			continue
		}
		select {
		case c.send <- frame:
		case <-c.done:
		default:
			h.log.Warn("ws send buffer full", zap.String("user_id", c.userID), zap.Int64("session_id", sessionID))
		}
	}
}

// closeAll disconnects every client.
func (h *hub) closeAll() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*wsClient]bool)
	h.mu.Unlock()
	for c := range clients {
		c.close()
	}
}

func (c *wsClient) subscribed(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessions[id]
}

func (c *wsClient) close() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close() //nolint:errcheck // unblocks both pumps
	})
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	raw := bearer(r)
	if raw == "" {
		raw = r.URL.Query().Get("token")
	}
	claims, err := s.tokens.parse(raw, kindAccess)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid or expired access token")
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(*http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("ws upgrade", zap.Error(err))
		return
	}
	c := &wsClient{
		hub:      s.hub,
		conn:     conn,
		send:     make(chan []byte, sendBufSize),
		userID:   claims.UserID,
		sessions: make(map[int64]bool),
		done:     make(chan struct{}),
	}
	s.hub.register(c)
	go c.writePump()
	go c.readPump()
}

// readPump handles subscribe frames until the connection fails.
func (c *wsClient) readPump() {
	defer c.hub.unregister(c)

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Debug("ws read", zap.String("user_id", c.userID), zap.Error(err))
			}
			return
		}
		var env realtime.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			c.reply(realtime.EventError, realtime.ErrorData{Message: "malformed frame"})
			continue
		}
		var sub realtime.SubscribeData
		if err := json.Unmarshal(env.Data, &sub); err != nil {
			c.reply(realtime.EventError, realtime.ErrorData{Message: "malformed data"})
			continue
		}
		c.mu.Lock()
		switch env.Event {
		case realtime.EventSubscribe:
			c.sessions[sub.SessionID] = true
		case realtime.EventUnsubscribe:
			delete(c.sessions, sub.SessionID)
		}
		c.mu.Unlock()
	}
}

func (c *wsClient) reply(event realtime.EventType, data any) {
	frame, err := realtime.Encode(event, data)
	if err != nil {
		return
	}
	select {
	case c.send <- frame:
	default:
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.WriteControl(websocket.CloseMessage, //nolint:errcheck // best-effort close frame
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
			return
		case frame := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// waitSubscribed blocks until some client subscribes to id or ctx ends.
// Campaigns use it so the first events are not lost while the dashboard dials.
func (h *hub) waitSubscribed(ctx context.Context, id int64, max time.Duration) {
	deadline := time.NewTimer(max)
	defer deadline.Stop()
	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()
	for {
		h.mu.RLock()
		found := false
		for c := range h.clients {
			if c.subscribed(id) {
				found = true
				break
			}
		}
		h.mu.RUnlock()
		if found {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-deadline.C:
			return
		case <-tick.C:
		}
	}
}
