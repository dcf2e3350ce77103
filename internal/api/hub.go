package api

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/damirbriga107-creator/agrisense-core/internal/alert"
	"github.com/damirbriga107-creator/agrisense-core/internal/device"
	"github.com/damirbriga107-creator/agrisense-core/internal/infrastructure/config"
	"github.com/damirbriga107-creator/agrisense-core/internal/infrastructure/logging"
	"github.com/damirbriga107-creator/agrisense-core/internal/reading"
)

// ReadingSource serves data_request messages.
type ReadingSource interface {
	ListByDevice(ctx context.Context, deviceID string, limit int) ([]reading.Reading, error)
}

// DeviceSource authorizes data_request messages against device farms.
type DeviceSource interface {
	GetDevice(ctx context.Context, id string) (*device.Device, error)
}

// Hub manages WebSocket connections and fans telemetry out to them.
//
// Every broadcast is tenant-scoped: a message for farm F reaches only
// connections whose token grants farm F (admins see everything). Topic
// subscriptions narrow further within that scope.
type Hub struct {
	cfg      config.WebSocketConfig
	logger   *logging.Logger
	readings ReadingSource
	devices  DeviceSource
	clients  map[*WSClient]struct{}
	mu       sync.RWMutex
}

// NewHub creates a new WebSocket hub. The reading and device sources
// may be nil, disabling data_request.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger, readings ReadingSource, devices DeviceSource) *Hub {
	return &Hub{
		cfg:      cfg,
		logger:   logger,
		readings: readings,
		devices:  devices,
		clients:  make(map[*WSClient]struct{}),
	}
}

// Run blocks until the context is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// Register adds a client to the hub.
func (h *Hub) Register(client *WSClient) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("websocket client connected",
		"subject", client.claims.Subject,
		"clients", h.ClientCount())
}

// Unregister removes a client from the hub.
// Only the goroutine that successfully removes the client from the map
// closes the send channel, preventing double-close panics during shutdown.
func (h *Hub) Unregister(client *WSClient) {
	h.mu.Lock()
	_, existed := h.clients[client]
	delete(h.clients, client)
	h.mu.Unlock()

	if existed {
		close(client.send)
	}
	h.logger.Debug("websocket client disconnected", "clients", h.ClientCount())
}

// BroadcastReading delivers a sensor reading to subscribed clients.
func (h *Hub) BroadcastReading(r reading.Reading) {
	h.deliver(ReadingTopic(r), r.FarmID, WSTypeSensorData, r)
}

// AlertRaised delivers a newly raised alert. Implements alert.Notifier.
func (h *Hub) AlertRaised(a alert.Alert) {
	h.deliver(AlertsTopic(a.FarmID), a.FarmID, WSTypeAlert, map[string]any{
		"event": "raised",
		"alert": a,
	})
}

// AlertResolved delivers an alert resolution. Implements alert.Notifier.
func (h *Hub) AlertResolved(a alert.Alert) {
	h.deliver(AlertsTopic(a.FarmID), a.FarmID, WSTypeAlert, map[string]any{
		"event": "resolved",
		"alert": a,
	})
}

// Broadcast sends a named platform event, such as a rule firing, to
// subscribed clients.
//
// Events whose map payload carries a farm_id go out on that farm's
// rules topic with the usual tenancy check, so operators follow their
// farm's rule activity without global access. Events with no farm
// scope go out on the event name itself, which only the global
// wildcard matches.
func (h *Hub) Broadcast(channel string, payload any) {
	farmID := ""
	if m, ok := payload.(map[string]any); ok {
		if f, ok := m["farm_id"].(string); ok {
			farmID = f
		}
	}
	topic := channel
	if farmID != "" {
		topic = RulesTopic(farmID)
	}
	h.deliver(topic, farmID, channel, payload)
}

// deliver marshals once and fans out to authorized, subscribed clients.
// Lock ordering: hub lock is acquired first, then released before
// per-client subscription checks, so hub and client locks are never
// held together.
func (h *Hub) deliver(topic, farmID, msgType string, payload any) {
	msg := WSMessage{
		Type:      msgType,
		Topic:     topic,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	}
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to marshal broadcast message", "error", err)
		return
	}

	h.mu.RLock()
	clients := make([]*WSClient, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	sent := 0
	for _, client := range clients {
		if farmID != "" && !client.claims.CanAccessFarm(farmID) {
			continue
		}
		if client.matchesTopic(topic) {
			client.trySend(data)
			sent++
		}
	}
	if sent > 0 {
		h.logger.Debug("broadcast sent", "topic", topic, "recipients", sent)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// closeAll disconnects all clients and closes their send channels
// so writePump goroutines can exit cleanly.
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		close(client.send)
		if client.conn != nil {
			client.conn.Close()
		}
		delete(h.clients, client)
	}
}
