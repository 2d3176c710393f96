package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"ai-chat-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Hub tracks connected clients and their session group membership.
type Hub struct {
	// Registered clients map: UserID -> List of Clients (multi-device)
	clients map[uuid.UUID][]*Client

	// Session groups: SessionID -> members
	sessions map[uuid.UUID]map[*Client]struct{}

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Lock for safe map access
	mu sync.RWMutex

	// Redis connection for cross-instance communication
	rdb *redis.Client

	// Dedicated Logger
	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[uuid.UUID][]*Client),
		sessions:   make(map[uuid.UUID]map[*Client]struct{}),
		rdb:        rdb,
		logger:     log,
	}
}

func (h *Hub) Run() {
	// Start Redis Subscriber if Redis is available
	if h.rdb != nil {
		go h.subscribeToRedis()
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.UserID] = append(h.clients[client.UserID], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"user_id": client.UserID})

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.UserID]; ok {
				for i, c := range clients {
					if c == client {
						h.clients[client.UserID] = append(clients[:i], clients[i+1:]...)
						close(client.Send)
						break
					}
				}
				if len(h.clients[client.UserID]) == 0 {
					delete(h.clients, client.UserID)
					h.logger.Info("Hub", "Client completely unregistered", map[string]interface{}{"user_id": client.UserID})
				}
			}
			// Drop the dead connection from every session group it joined.
			for sessionId, members := range h.sessions {
				if _, ok := members[client]; ok {
					delete(members, client)
					if len(members) == 0 {
						delete(h.sessions, sessionId)
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// JoinSession adds a client to a session group. Ownership is verified by the
// caller before this point.
func (h *Hub) JoinSession(client *Client, sessionId uuid.UUID) {
	h.mu.Lock()
	members, ok := h.sessions[sessionId]
	if !ok {
		members = make(map[*Client]struct{})
		h.sessions[sessionId] = members
	}
	members[client] = struct{}{}
	h.mu.Unlock()
	h.logger.Info("Hub", "Client joined session", map[string]interface{}{
		"user_id":    client.UserID,
		"session_id": sessionId,
	})
}

// LeaveSession removes a client from a session group.
func (h *Hub) LeaveSession(client *Client, sessionId uuid.UUID) {
	h.mu.Lock()
	if members, ok := h.sessions[sessionId]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.sessions, sessionId)
		}
	}
	h.mu.Unlock()
}

// InSession reports whether the client currently belongs to the group.
func (h *Hub) InSession(client *Client, sessionId uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	members, ok := h.sessions[sessionId]
	if !ok {
		return false
	}
	_, in := members[client]
	return in
}

// sessionMembers snapshots a group so delivery happens outside the lock.
func (h *Hub) sessionMembers(sessionId uuid.UUID) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	members := make([]*Client, 0, len(h.sessions[sessionId]))
	for client := range h.sessions[sessionId] {
		members = append(members, client)
	}
	return members
}

// deliver drops the payload when the client's buffer is full and hands the
// connection to the unregister path, which owns closing the Send channel.
func (h *Hub) deliver(client *Client, data []byte) {
	select {
	case client.Send <- data:
	default:
		h.logger.Warn("Hub", "Client Send buffer full, dropping message", map[string]interface{}{"user_id": client.UserID})
		h.unregister <- client
	}
}

// EmitToSession delivers a payload to every local member of a session group
// and fans it out through Redis for members connected to other instances.
func (h *Hub) EmitToSession(sessionId uuid.UUID, data []byte) {
	for _, client := range h.sessionMembers(sessionId) {
		h.deliver(client, data)
	}

	if h.rdb != nil {
		payload := map[string]interface{}{
			"target_session_id": sessionId.String(),
			"message":           json.RawMessage(data),
		}
		jsonPayload, _ := json.Marshal(payload)
		h.rdb.Publish(context.Background(), "cluster_events", jsonPayload)
	}
}

// userConnections snapshots one user's connections; the unregister path
// mutates the live slice in place.
func (h *Hub) userConnections(userID uuid.UUID) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]*Client(nil), h.clients[userID]...)
}

// Send delivers a payload to every connection of one user.
func (h *Hub) Send(userID uuid.UUID, data []byte) {
	for _, client := range h.userConnections(userID) {
		h.deliver(client, data)
	}

	if h.rdb != nil {
		payload := map[string]interface{}{
			"target_user_id": userID.String(),
			"message":        json.RawMessage(data),
		}
		jsonPayload, _ := json.Marshal(payload)
		h.rdb.Publish(context.Background(), "cluster_events", jsonPayload)
	}
}

// subscribeToRedis relays cluster events published by sibling instances to
// locally connected members. Session-targeted and user-targeted payloads
// share the "cluster_events" channel.
func (h *Hub) subscribeToRedis() {
	ctx := context.Background()
	pubsub := h.rdb.Subscribe(ctx, "cluster_events")
	defer pubsub.Close()

	ch := pubsub.Channel()

	for msg := range ch {
		var payload struct {
			TargetSessionID string          `json:"target_session_id"`
			TargetUserID    string          `json:"target_user_id"`
			Message         json.RawMessage `json:"message"`
		}
		if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
			log.Printf("Redis msg parse error: %v", err)
			continue
		}

		if payload.TargetSessionID != "" {
			sid, err := uuid.Parse(payload.TargetSessionID)
			if err != nil {
				continue
			}
			for _, client := range h.sessionMembers(sid) {
				h.deliver(client, payload.Message)
			}
			continue
		}

		uid, err := uuid.Parse(payload.TargetUserID)
		if err != nil {
			continue
		}
		for _, client := range h.userConnections(uid) {
			h.deliver(client, payload.Message)
		}
	}
}
