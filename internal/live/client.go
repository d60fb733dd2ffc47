package live

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

const (
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
	readLimit    = 16 * 1024
	sendBuffer   = 64

	// presenceInterval is the minimum gap between two presence updates of
	// one viewer. Updates arriving faster are dropped.
	presenceInterval = 40 * time.Millisecond
)

// Client is one viewer connection. Viewers only receive canvas state; the
// only thing they may send is their own presence.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	CanvasID string
	ClientID string

	lastPresence time.Time
}

func NewClient(hub *Hub, conn *websocket.Conn, canvasID, clientID string) *Client {
	return &Client{
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		CanvasID: canvasID,
		ClientID: clientID,
	}
}

// Serve upgrades the request and streams canvasID to the new viewer until
// the connection closes.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, canvasID string, originPatterns []string) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: originPatterns,
	})
	if err != nil {
		slog.Error("websocket accept", "error", err, "canvas", canvasID)
		return
	}
	conn.SetReadLimit(readLimit)

	c := NewClient(h, conn, canvasID, uuid.New().String())
	h.Register(c)
	defer h.Unregister(c)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go func() {
		defer cancel()
		if err := c.writeLoop(ctx); err != nil && !closedNormally(err) {
			slog.Debug("live write", "error", err, "client", c.ClientID)
		}
	}()

	err = c.readLoop(ctx)
	switch {
	case err == nil, closedNormally(err), errors.Is(err, context.Canceled):
		conn.Close(websocket.StatusNormalClosure, "")
	default:
		slog.Debug("live read", "error", err, "client", c.ClientID)
		conn.Close(websocket.StatusPolicyViolation, "")
	}
}

func closedNormally(err error) bool {
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	}
	return false
}

// readLoop accepts presence updates until the connection fails.
func (c *Client) readLoop(ctx context.Context) error {
	for {
		typ, data, err := c.conn.Read(ctx)
		if err != nil {
			return err
		}
		if typ != websocket.MessageText {
			continue
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("invalid live message", "error", err, "client", c.ClientID)
			continue
		}
		if msg.Type != TypePresenceUpdate || !c.allowPresence(time.Now()) {
			continue
		}

		msg.ClientID = c.ClientID
		msg.CanvasID = c.CanvasID
		c.hub.handleMessage(c, &msg)
	}
}

func (c *Client) allowPresence(now time.Time) bool {
	if now.Sub(c.lastPresence) < presenceInterval {
		return false
	}
	c.lastPresence = now
	return true
}

// writeLoop drains the send queue and keeps the connection alive. It
// returns nil once the hub closes the queue.
func (c *Client) writeLoop(ctx context.Context) error {
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				return nil
			}
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Write(wctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				return err
			}

		case <-ping.C:
			pctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Ping(pctx)
			cancel()
			if err != nil {
				return err
			}

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Send queues msg, dropping it when the viewer is too slow.
func (c *Client) Send(msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("marshal live message", "error", err)
		return
	}

	select {
	case c.send <- data:
	default:
		slog.Warn("live send queue full, dropping message", "client", c.ClientID, "type", msg.Type)
	}
}
