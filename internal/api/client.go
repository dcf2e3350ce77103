package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/damirbriga107-creator/agrisense-core/internal/auth"
	"github.com/damirbriga107-creator/agrisense-core/internal/infrastructure/config"
)

// maxPongStrikes is how many consecutive unanswered pings a connection
// survives. The first miss marks the connection suspect; the second
// reaps it.
const maxPongStrikes = 2

// dataRequestMaxLimit caps how many readings one data_request returns.
const (
	dataRequestDefaultLimit = 50
	dataRequestMaxLimit     = 500
	dataRequestTimeout      = 5 * time.Second
)

// WSClient represents one authenticated WebSocket connection.
type WSClient struct {
	hub           *Hub
	conn          *websocket.Conn
	send          chan []byte
	subscriptions map[string]struct{}
	mu            sync.RWMutex

	// Identity from the verified token.
	claims *auth.CustomClaims

	// Consecutive pings without a pong. Written by the write pump,
	// reset by the pong handler on the read side.
	pongStrikes atomic.Int32
}

// readPump reads messages from the WebSocket connection.
func (c *WSClient) readPump(cfg config.WebSocketConfig) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	pingInterval := time.Duration(cfg.PingInterval) * time.Second
	pongWait := time.Duration(cfg.PongTimeout) * time.Second
	//nolint:errcheck // Best-effort deadline on connection setup
	c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.pongStrikes.Store(0)
		return c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "error", err)
			} else {
				c.hub.logger.Debug("websocket closed", "error", err)
			}
			return
		}
		// Any client message resets the read deadline
		//nolint:errcheck // Best-effort deadline reset
		c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
		c.handleMessage(message)
	}
}

// writePump writes messages and runs the two-strike heartbeat: each
// tick sends a protocol ping, and a connection that misses two pongs
// in a row is closed.
func (c *WSClient) writePump(cfg config.WebSocketConfig) {
	pingInterval := time.Duration(cfg.PingInterval) * time.Second
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	pongWait := time.Duration(cfg.PongTimeout) * time.Second

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				// Hub closed the channel
				//nolint:errcheck // Best-effort close message
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			//nolint:errcheck // Best-effort deadline; write error caught below
			c.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			if c.pongStrikes.Add(1) > maxPongStrikes {
				c.hub.logger.Info("reaping unresponsive websocket client",
					"subject", c.claims.Subject)
				return
			}
			//nolint:errcheck // Best-effort deadline; ping error caught below
			c.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes an incoming WebSocket message.
func (c *WSClient) handleMessage(data []byte) {
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError("", ErrCodeInvalidMessage, "invalid JSON message")
		return
	}

	switch msg.Type {
	case WSTypeSubscribe:
		c.handleSubscribe(msg)
	case WSTypeUnsubscribe:
		c.handleUnsubscribe(msg)
	case WSTypePing:
		c.sendMessage(msg.ID, WSTypePong, nil)
	case WSTypeDataRequest:
		c.handleDataRequest(msg)
	default:
		c.sendError(msg.ID, ErrCodeUnknownType, "unknown message type: "+msg.Type)
	}
}

// handleSubscribe adds topic patterns to the client's subscriptions.
// Every pattern must be valid and within the client's farm scope;
// otherwise nothing is applied and the connection stays open.
func (c *WSClient) handleSubscribe(msg WSMessage) {
	topics, ok := c.parseTopicsPayload(msg)
	if !ok {
		return
	}

	for _, pattern := range topics {
		if err := ValidateTopicPattern(pattern); err != nil {
			c.sendError(msg.ID, ErrCodeInvalidTopic, fmt.Sprintf("invalid topic %q", pattern))
			return
		}
		if err := c.authorizePattern(pattern); err != nil {
			c.sendError(msg.ID, ErrCodeForbidden, fmt.Sprintf("not authorized for topic %q", pattern))
			return
		}
	}

	c.mu.Lock()
	for _, pattern := range topics {
		c.subscriptions[pattern] = struct{}{}
	}
	c.mu.Unlock()

	c.hub.logger.Info("websocket client subscribed",
		"subject", c.claims.Subject,
		"topics", topics)

	c.sendMessage(msg.ID, WSTypeSubscribed, map[string]any{"topics": topics})
}

// handleUnsubscribe removes topic patterns from the subscriptions.
func (c *WSClient) handleUnsubscribe(msg WSMessage) {
	topics, ok := c.parseTopicsPayload(msg)
	if !ok {
		return
	}

	c.mu.Lock()
	for _, pattern := range topics {
		delete(c.subscriptions, pattern)
	}
	c.mu.Unlock()

	c.sendMessage(msg.ID, WSTypeUnsubscribed, map[string]any{"topics": topics})
}

// handleDataRequest returns recent readings for an authorized device.
func (c *WSClient) handleDataRequest(msg WSMessage) {
	if c.hub.readings == nil || c.hub.devices == nil {
		c.sendError(msg.ID, ErrCodeInternal, "data requests are not available")
		return
	}

	payloadBytes, err := json.Marshal(msg.Payload)
	if err != nil {
		c.sendError(msg.ID, ErrCodeInvalidPayload, "invalid payload")
		return
	}
	var req WSDataRequestPayload
	if err := json.Unmarshal(payloadBytes, &req); err != nil || req.DeviceID == "" {
		c.sendError(msg.ID, ErrCodeInvalidPayload, "data_request requires device_id")
		return
	}

	limit := req.Limit
	if limit <= 0 {
		limit = dataRequestDefaultLimit
	}
	if limit > dataRequestMaxLimit {
		limit = dataRequestMaxLimit
	}

	ctx, cancel := context.WithTimeout(context.Background(), dataRequestTimeout)
	defer cancel()

	dev, err := c.hub.devices.GetDevice(ctx, req.DeviceID)
	if err != nil {
		c.sendError(msg.ID, ErrCodeNotFound, "device not found")
		return
	}
	if !c.claims.CanAccessFarm(dev.FarmID) {
		c.sendError(msg.ID, ErrCodeForbidden, "not authorized for this device")
		return
	}

	readings, err := c.hub.readings.ListByDevice(ctx, req.DeviceID, limit)
	if err != nil {
		c.hub.logger.Error("data request failed",
			"device_id", req.DeviceID,
			"error", err)
		c.sendError(msg.ID, ErrCodeInternal, "could not load readings")
		return
	}

	c.sendMessage(msg.ID, WSTypeDataResponse, map[string]any{
		"device_id": req.DeviceID,
		"readings":  readings,
	})
}

// parseTopicsPayload extracts the topic list from a subscribe or
// unsubscribe message, reporting errors to the client.
func (c *WSClient) parseTopicsPayload(msg WSMessage) ([]string, bool) {
	payloadBytes, err := json.Marshal(msg.Payload)
	if err != nil {
		c.sendError(msg.ID, ErrCodeInvalidPayload, "invalid payload")
		return nil, false
	}

	var sub WSSubscribePayload
	if err := json.Unmarshal(payloadBytes, &sub); err != nil || len(sub.Topics) == 0 {
		c.sendError(msg.ID, ErrCodeInvalidPayload, "payload requires a topics list")
		return nil, false
	}
	return sub.Topics, true
}

// authorizePattern enforces farm scoping on a subscription pattern.
// The global pattern and farm wildcards are admin territory.
func (c *WSClient) authorizePattern(pattern string) error {
	farmID := patternFarmID(pattern)
	if farmID == TopicWildcard {
		if c.claims.Role == auth.RoleAdmin {
			return nil
		}
		return ErrForbiddenTopic
	}
	if !c.claims.CanAccessFarm(farmID) {
		return ErrForbiddenTopic
	}
	return nil
}

// matchesTopic checks the client's subscriptions against a broadcast
// topic.
func (c *WSClient) matchesTopic(topic string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for pattern := range c.subscriptions {
		if MatchTopic(pattern, topic) {
			return true
		}
	}
	return false
}

// trySend attempts to send data to the client's send channel.
// It silently handles closed channels (client disconnected during
// broadcast) and full buffers (slow client).
func (c *WSClient) trySend(data []byte) {
	defer func() {
		recover() //nolint:errcheck // Absorb send-on-closed-channel panic
	}()

	select {
	case c.send <- data:
	default:
		// Client buffer full, skip
	}
}

// sendMessage sends a typed message to the client.
// Routes through trySend to safely handle closed channels during shutdown.
func (c *WSClient) sendMessage(id, msgType string, payload any) {
	msg := WSMessage{
		Type:      msgType,
		ID:        id,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	c.trySend(data)
}

// sendError sends an error message with a stable code.
func (c *WSClient) sendError(id, code, message string) {
	c.sendMessage(id, WSTypeError, WSErrorPayload{Code: code, Message: message})
}

// sendWelcome greets a freshly authenticated connection.
func (c *WSClient) sendWelcome() {
	c.sendMessage("", WSTypeWelcome, map[string]any{
		"subject": c.claims.Subject,
		"role":    string(c.claims.Role),
		"farms":   c.claims.FarmIDs,
	})
}

// errNoToken distinguishes an absent token from an invalid one in the
// handshake logs.
var errNoToken = errors.New("api: missing token")
