package live

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const doc = `{"objects":[],"version":"smp:canvas/data@0.1.0-alpha"}`

func loader(_ context.Context, canvasID string) ([]byte, error) {
	if canvasID == "missing" {
		return nil, errors.New("not found")
	}
	return []byte(doc), nil
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub(loader)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go h.Run(ctx)
	return h
}

func next(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case data, ok := <-c.send:
		require.True(t, ok, "send channel closed")
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no message")
	}
	return Message{}
}

func assertQuiet(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.send:
		t.Fatalf("unexpected message %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func join(t *testing.T, h *Hub, canvasID, clientID string) *Client {
	t.Helper()
	c := NewClient(h, nil, canvasID, clientID)
	h.Register(c)

	assert.Equal(t, TypeWelcome, next(t, c).Type)
	sync := next(t, c)
	assert.Equal(t, TypeCanvasSync, sync.Type)
	assert.JSONEq(t, doc, string(sync.Payload))
	assert.Equal(t, TypePresenceState, next(t, c).Type)
	return c
}

func TestJoinSendsSnapshot(t *testing.T) {
	h := startHub(t)
	join(t, h, "canvas_1", "a")
	assert.Equal(t, 1, h.Clients("canvas_1"))
	assert.Zero(t, h.Clients("canvas_2"))
}

func TestJoinWithoutDocument(t *testing.T) {
	h := startHub(t)
	c := NewClient(h, nil, "missing", "a")
	h.Register(c)

	assert.Equal(t, TypeWelcome, next(t, c).Type)
	assert.Equal(t, TypePresenceState, next(t, c).Type)
}

func TestPublishReachesRoomOnly(t *testing.T) {
	h := startHub(t)
	a := join(t, h, "canvas_1", "a")
	b := join(t, h, "canvas_1", "b")
	other := join(t, h, "canvas_2", "c")

	h.Publish("canvas_1", []byte(`{"objects":[{"type":"path"}]}`))

	for _, c := range []*Client{a, b} {
		msg := next(t, c)
		assert.Equal(t, TypeCanvasSync, msg.Type)
		assert.Equal(t, "canvas_1", msg.CanvasID)
		assert.JSONEq(t, `{"objects":[{"type":"path"}]}`, string(msg.Payload))
	}
	assertQuiet(t, other)
}

func TestPresence(t *testing.T) {
	h := startHub(t)
	a := join(t, h, "canvas_1", "a")
	b := join(t, h, "canvas_1", "b")

	h.handleMessage(a, &Message{
		Type:    TypePresenceUpdate,
		Payload: json.RawMessage(`{"cursor":{"x":10,"y":20},"selection":["obj_1"]}`),
	})

	msg := next(t, b)
	assert.Equal(t, TypePresenceUpdate, msg.Type)
	assert.Equal(t, "a", msg.ClientID)
	var p PresencePayload
	require.NoError(t, json.Unmarshal(msg.Payload, &p))
	assert.Equal(t, &CursorPos{X: 10, Y: 20}, p.Cursor)
	assert.Equal(t, []string{"obj_1"}, p.Selection)
	assertQuiet(t, a)

	// a late joiner sees the stored presence
	c := NewClient(h, nil, "canvas_1", "c")
	h.Register(c)
	next(t, c)
	next(t, c)
	state := next(t, c)
	var ps PresenceStatePayload
	require.NoError(t, json.Unmarshal(state.Payload, &ps))
	assert.Contains(t, ps.Presences, "a")

	// unknown types are ignored
	h.handleMessage(a, &Message{Type: "nope"})
	assertQuiet(t, b)
}

func TestLeave(t *testing.T) {
	h := startHub(t)
	a := join(t, h, "canvas_1", "a")
	b := join(t, h, "canvas_1", "b")

	h.Unregister(a)

	msg := next(t, b)
	assert.Equal(t, TypePresenceLeave, msg.Type)
	assert.Equal(t, "a", msg.ClientID)

	_, ok := <-a.send
	assert.False(t, ok, "send channel is closed")
	assert.Equal(t, 1, h.Clients("canvas_1"))

	h.Unregister(b)
	require.Eventually(t, func() bool { return h.Clients("canvas_1") == 0 }, time.Second, 10*time.Millisecond)
}

func TestServeOverWebsocket(t *testing.T) {
	h := startHub(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.Serve(w, r, "canvas_1", nil)
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	read := func() Message {
		_, data, err := conn.Read(ctx)
		require.NoError(t, err)
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	}

	assert.Equal(t, TypeWelcome, read().Type)
	assert.Equal(t, TypeCanvasSync, read().Type)
	assert.Equal(t, TypePresenceState, read().Type)

	h.Publish("canvas_1", []byte(`{"objects":[]}`))
	msg := read()
	assert.Equal(t, TypeCanvasSync, msg.Type)
	assert.JSONEq(t, `{"objects":[]}`, string(msg.Payload))
}

func TestPresenceThrottle(t *testing.T) {
	c := NewClient(nil, nil, "canvas_1", "a")
	now := time.Now()

	assert.True(t, c.allowPresence(now))
	assert.False(t, c.allowPresence(now.Add(presenceInterval/2)))
	assert.True(t, c.allowPresence(now.Add(presenceInterval)))
}
