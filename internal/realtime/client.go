package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // mobile clients send no Origin
	},
}

// WSMessage is the WebSocket message envelope.
type WSMessage struct {
	Event string          `json:"event"`
	Topic string          `json:"topic,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// TokenValidator resolves a bearer token to a user.
type TokenValidator func(token string) (userID uuid.UUID, role string, err error)

// SnapshotFunc returns the current state of a topic, sent to a client right
// after it subscribes. ok is false for unknown topics.
type SnapshotFunc func(ctx context.Context, topic string, userID uuid.UUID) (event string, payload any, ok bool, err error)

// Client represents a single WebSocket connection subscribed to one topic.
type Client struct {
	ID     string
	Topic  string
	UserID uuid.UUID
	Role   string
	hub    *Hub
	conn   *websocket.Conn
	send   chan WSMessage
	logger *zap.Logger
}

// ValidTopic reports whether topic has the form kind:<uuid> for a known kind.
func ValidTopic(topic string) bool {
	kind, id, ok := strings.Cut(topic, ":")
	if !ok || (kind != "campaign" && kind != "webinar") {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}

// ServeWs handles the WebSocket upgrade and runs the client loop.
// Query: topic=campaign:<id>|webinar:<id>, token=<jwt>.
func ServeWs(hub *Hub, logger *zap.Logger, validate TokenValidator, snapshot SnapshotFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		topic := c.Query("topic")
		token := c.Query("token")
		if topic == "" || token == "" {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "topic and token required"})
			return
		}
		if !ValidTopic(topic) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid topic"})
			return
		}
		userID, role, err := validate(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid token"})
			return
		}

		// Register before reading the snapshot so nothing published in
		// between is lost; sends are buffered until the pumps start.
		client := &Client{
			ID:     uuid.New().String(),
			Topic:  topic,
			UserID: userID,
			Role:   role,
			hub:    hub,
			send:   make(chan WSMessage, sendBuffer),
			logger: logger,
		}
		hub.Register(client)

		var initial *WSMessage
		if snapshot != nil {
			event, payload, ok, err := snapshot(c.Request.Context(), topic, userID)
			if err != nil {
				hub.Unregister(client)
				logger.Warn("live snapshot failed", zap.String("topic", topic), zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to load topic"})
				return
			}
			if !ok {
				hub.Unregister(client)
				c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "topic not found"})
				return
			}
			data, err := json.Marshal(payload)
			if err == nil {
				initial = &WSMessage{Event: event, Topic: topic, Data: data}
			}
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			hub.Unregister(client)
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}
		client.conn = conn

		if initial != nil {
			select {
			case client.send <- *initial:
			default:
				// buffer already full of newer updates
			}
		}
		go client.writePump()
		client.readPump()
	}
}

// readPump only keeps the connection alive; subscribers never write to topics.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		close(c.send)
	}()

	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("websocket read", zap.String("client_id", c.ID), zap.Error(err))
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(PingInterval * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
