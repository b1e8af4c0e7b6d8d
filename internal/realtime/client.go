// Package realtime subscribes to live call-session events over a websocket.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/callwave/callwave/internal/callsession"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	maxMessageSize = 64 * 1024
	eventBufSize   = 64
)

// TokenSource supplies the bearer token for the handshake.
// *client.Client implements it.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// Config controls the connection and its reconnect policy.
type Config struct {
	URL        string
	Retries    int           // reconnect attempts after a drop; reset on each successful connect
	RetryDelay time.Duration // fixed delay between attempts
	PongWait   time.Duration // silence allowed before the connection counts as dead; pings go out at 9/10 of it
	Logger     *zap.Logger
	Dialer     *websocket.Dialer
}

// Client opens one socket per subscription.
type Client struct {
	cfg    Config
	tokens TokenSource
	log    *zap.Logger
}

// New creates a socket client.
func New(cfg Config, tokens TokenSource) *Client {
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = pongWait
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{cfg: cfg, tokens: tokens, log: log.Named("realtime")}
}

// Subscribe streams events for sessionID. The channel is closed when ctx is
// cancelled or when reconnect attempts are exhausted. Events for other
// sessions are passed through; the reducer filters them.
func (c *Client) Subscribe(ctx context.Context, sessionID int64) <-chan callsession.Event {
	out := make(chan callsession.Event, eventBufSize)
	go c.run(ctx, sessionID, out)
	return out
}

func (c *Client) run(ctx context.Context, sessionID int64, out chan<- callsession.Event) {
	defer close(out)
	log := c.log.With(zap.Int64("session_id", sessionID))

	failures := 0
	for {
		conn, err := c.dial(ctx, sessionID)
		if err == nil {
			failures = 0
			log.Debug("socket connected")
			err = c.readLoop(ctx, conn, out)
		}
		if ctx.Err() != nil {
			return
		}
		failures++
		if failures > c.cfg.Retries {
			log.Warn("socket gave up", zap.Int("attempts", failures), zap.Error(err))
			return
		}
		log.Info("socket reconnecting", zap.Int("attempt", failures), zap.Error(err))
		select {
		case <-ctx.Done():
			return
		case <-time.After(c.cfg.RetryDelay):
		}
	}
}

func (c *Client) dial(ctx context.Context, sessionID int64) (*websocket.Conn, error) {
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("access token: %w", err)
	}
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	conn, resp, err := c.cfg.Dialer.DialContext(ctx, c.cfg.URL, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close() //nolint:errcheck // best-effort close
	}
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	frame, err := Encode(EventSubscribe, SubscribeData{SessionID: sessionID})
	if err != nil {
		conn.Close() //nolint:errcheck // best-effort close
		return nil, err
	}
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		conn.Close() //nolint:errcheck // best-effort close
		return nil, fmt.Errorf("set write deadline: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		conn.Close() //nolint:errcheck // best-effort close
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	return conn, nil
}

// readLoop forwards decoded events until the connection fails or ctx ends.
func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn, out chan<- callsession.Event) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(c.cfg.PongWait * 9 / 10)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				// Unblocks ReadMessage below.
				conn.WriteControl(websocket.CloseMessage, //nolint:errcheck // best-effort close frame
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
				conn.Close() //nolint:errcheck // best-effort close
				return
			case <-done:
				conn.Close() //nolint:errcheck // best-effort close
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					conn.Close() //nolint:errcheck // read below fails and the caller reconnects
					return
				}
			}
		}
	}()

	conn.SetReadLimit(maxMessageSize)
	extend := func() error {
		return conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	}
	if err := extend(); err != nil {
		return fmt.Errorf("set read deadline: %w", err)
	}
	conn.SetPongHandler(func(string) error { return extend() })
	conn.SetPingHandler(func(data string) error {
		if err := extend(); err != nil {
			return err
		}
		err := conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeWait))
		var netErr net.Error
		if errors.Is(err, websocket.ErrCloseSent) || errors.As(err, &netErr) {
			return nil
		}
		return err
	})
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return errors.New("server closed the connection")
			}
			return fmt.Errorf("read: %w", err)
		}
		if err := extend(); err != nil {
			return fmt.Errorf("set read deadline: %w", err)
		}
		ev, err := Decode(raw)
		if err != nil {
			c.log.Warn("bad frame", zap.Error(err))
			continue
		}
		if ev == nil {
			continue
		}
		select {
		case out <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
