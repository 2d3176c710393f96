package websocket

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"ai-chat-be/internal/constant"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
)

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	Hub *Hub

	// The websocket connection.
	Conn *websocket.Conn

	// UserID associated with this connection
	UserID uuid.UUID

	// Buffered channel of outbound messages.
	Send chan []byte

	coordinator *StreamCoordinator
}

// ServeWs wires a fresh connection into the hub and runs the pumps until the
// peer disconnects.
func ServeWs(hub *Hub, coordinator *StreamCoordinator, c *websocket.Conn, userID uuid.UUID) {
	client := &Client{
		Hub:         hub,
		Conn:        c,
		UserID:      userID,
		Send:        make(chan []byte, 256),
		coordinator: coordinator,
	}
	client.Hub.register <- client

	go client.writePump()
	client.readPump() // Run readPump in current goroutine (handler)
}

// sessionEmitter routes coordinator output through the hub for the group and
// through the client's own channel for direct replies.
type sessionEmitter struct {
	client *Client
}

func (e sessionEmitter) EmitSession(sessionId uuid.UUID, data []byte) {
	e.client.Hub.EmitToSession(sessionId, data)
}

func (e sessionEmitter) EmitClient(data []byte) {
	select {
	case e.client.Send <- data:
	default:
	}
}

// readPump pumps messages from the websocket connection into the dispatcher.
func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("readPump error for user %s: %v", c.UserID, err)
			}
			break
		}
		c.dispatch(raw)
	}
}

func (c *Client) dispatch(raw []byte) {
	var envelope Envelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		c.emit(NewEnvelope(EventError, ErrorPayload{Message: "malformed envelope"}))
		return
	}

	ctx := context.Background()
	em := sessionEmitter{client: c}

	switch envelope.Event {
	case EventPing:
		c.emit(NewEnvelope(EventPong, PongPayload{Timestamp: time.Now().UnixMilli()}))

	case EventSendMessage:
		var payload SendMessagePayload
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			c.emit(NewEnvelope(EventError, ErrorPayload{Message: "malformed payload"}))
			return
		}
		c.coordinator.HandleSendMessage(ctx, c.UserID, &payload, em)

	case EventJoinSession:
		var payload SessionPayload
		if err := json.Unmarshal(envelope.Data, &payload); err != nil || payload.ChatSessionId == uuid.Nil {
			c.emit(NewEnvelope(EventError, ErrorPayload{Message: constant.MsgInvalidSessionId}))
			return
		}
		if err := c.coordinator.Authorize(ctx, c.UserID, payload.ChatSessionId); err != nil {
			c.emit(NewEnvelope(EventError, ErrorPayload{Message: constant.MsgSessionNotFound}))
			return
		}
		c.Hub.JoinSession(c, payload.ChatSessionId)
		c.Hub.EmitToSession(payload.ChatSessionId, NewEnvelope(EventUserJoined, PresencePayload{
			ChatSessionId: payload.ChatSessionId,
			UserId:        c.UserID,
		}))

	case EventLeaveSession:
		var payload SessionPayload
		if err := json.Unmarshal(envelope.Data, &payload); err != nil || payload.ChatSessionId == uuid.Nil {
			c.emit(NewEnvelope(EventError, ErrorPayload{Message: constant.MsgInvalidSessionId}))
			return
		}
		if !c.Hub.InSession(c, payload.ChatSessionId) {
			return
		}
		c.Hub.LeaveSession(c, payload.ChatSessionId)
		c.Hub.EmitToSession(payload.ChatSessionId, NewEnvelope(EventUserLeft, PresencePayload{
			ChatSessionId: payload.ChatSessionId,
			UserId:        c.UserID,
		}))

	default:
		c.emit(NewEnvelope(EventError, ErrorPayload{Message: "unknown event: " + envelope.Event}))
	}
}

func (c *Client) emit(data []byte) {
	select {
	case c.Send <- data:
	default:
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
