// Package live streams canvas snapshots and viewer presence over
// websockets.
package live

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
)

// Loader fetches the current export record of a canvas.
type Loader func(ctx context.Context, canvasID string) ([]byte, error)

type Room struct {
	canvasID string
	clients  map[string]*Client // clientID -> client
	presence *PresenceManager
}

func NewRoom(canvasID string) *Room {
	return &Room{
		canvasID: canvasID,
		clients:  make(map[string]*Client),
		presence: NewPresenceManager(),
	}
}

type Hub struct {
	mu         sync.RWMutex
	rooms      map[string]*Room // canvasID -> room
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	load       Loader
}

func NewHub(load Loader) *Hub {
	return &Hub{
		rooms:      make(map[string]*Room),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		load:       load,
	}
}

// Run serves registrations until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.addClient(ctx, client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Clients returns the number of viewers of canvasID.
func (h *Hub) Clients(canvasID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if room, ok := h.rooms[canvasID]; ok {
		return len(room.clients)
	}
	return 0
}

func (h *Hub) addClient(ctx context.Context, client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.CanvasID]
	if !ok {
		room = NewRoom(client.CanvasID)
		h.rooms[client.CanvasID] = room
	}
	room.clients[client.ClientID] = client
	h.mu.Unlock()

	if msg, err := newMessage(TypeWelcome, client.CanvasID, WelcomePayload{ClientID: client.ClientID}); err == nil {
		client.Send(msg)
	}

	if h.load != nil {
		doc, err := h.load(ctx, client.CanvasID)
		if err != nil {
			slog.Error("load canvas for viewer", "canvas", client.CanvasID, "error", err)
		} else {
			client.Send(&Message{Type: TypeCanvasSync, CanvasID: client.CanvasID, Payload: doc})
		}
	}

	if stateMsg := room.presence.StateMessage(client.CanvasID); stateMsg != nil {
		client.Send(stateMsg)
	}

	slog.Info("viewer joined", "client", client.ClientID, "canvas", client.CanvasID)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.CanvasID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, ok := room.clients[client.ClientID]; !ok {
		h.mu.Unlock()
		return
	}

	delete(room.clients, client.ClientID)
	close(client.send)
	room.presence.Remove(client.ClientID)

	if len(room.clients) == 0 {
		delete(h.rooms, client.CanvasID)
	}
	h.mu.Unlock()

	if leaveMsg, err := newMessage(TypePresenceLeave, client.CanvasID, PresenceLeavePayload{ClientID: client.ClientID}); err == nil {
		leaveMsg.ClientID = client.ClientID
		h.broadcastToRoom(client.CanvasID, leaveMsg, "")
	}

	slog.Info("viewer left", "client", client.ClientID, "canvas", client.CanvasID)
}

// Publish sends a new snapshot of canvasID to all its viewers.
func (h *Hub) Publish(canvasID string, doc []byte) {
	h.broadcastToRoom(canvasID, &Message{
		Type:     TypeCanvasSync,
		CanvasID: canvasID,
		Payload:  doc,
	}, "")
}

func (h *Hub) handleMessage(sender *Client, msg *Message) {
	switch msg.Type {
	case TypePresenceUpdate:
		h.handlePresenceUpdate(sender, msg)
	default:
		slog.Warn("unknown message type", "type", msg.Type, "client", sender.ClientID)
	}
}

func (h *Hub) handlePresenceUpdate(sender *Client, msg *Message) {
	var presence PresencePayload
	if err := json.Unmarshal(msg.Payload, &presence); err != nil {
		slog.Warn("invalid presence payload", "error", err)
		return
	}

	h.mu.RLock()
	room, ok := h.rooms[sender.CanvasID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	room.presence.Update(sender.ClientID, &presence)

	outMsg, err := newMessage(TypePresenceUpdate, sender.CanvasID, presence)
	if err != nil {
		slog.Error("marshal presence", "error", err)
		return
	}
	outMsg.ClientID = sender.ClientID
	h.broadcastToRoom(sender.CanvasID, outMsg, sender.ClientID)
}

// broadcastToRoom sends while holding the read lock so removeClient cannot
// close a send channel mid-broadcast. Send never blocks.
func (h *Hub) broadcastToRoom(canvasID string, msg *Message, excludeClientID string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	room, ok := h.rooms[canvasID]
	if !ok {
		return
	}
	for _, c := range room.clients {
		if c.ClientID != excludeClientID {
			c.Send(msg)
		}
	}
}
