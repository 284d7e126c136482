package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/item-management/internal/model"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 64
)

// ItemLister provides the snapshot sent to newly connected clients.
type ItemLister interface {
	List(ctx context.Context) ([]model.Item, error)
}

type feedClient struct {
	conn   *websocket.Conn
	send   chan model.InventoryEvent
	cancel context.CancelFunc
}

// WebSocketHandler streams inventory changes to connected clients.
// Each client first receives a snapshot, then item_added and item_removed
// events in the order they were published. A client whose buffer is full
// is disconnected so it can reconnect and resynchronize.
type WebSocketHandler struct {
	upgrader websocket.Upgrader
	items    ItemLister
	logger   *zap.Logger

	mu      sync.RWMutex
	clients map[*websocket.Conn]*feedClient
}

// NewWebSocketHandler creates a new WebSocketHandler instance.
func NewWebSocketHandler(items ItemLister, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(_ *http.Request) bool {
				return true
			},
		},
		items:   items,
		logger:  logger,
		clients: make(map[*websocket.Conn]*feedClient),
	}
}

// RegisterRoutes registers the WebSocket routes with the router.
func (h *WebSocketHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/ws", h.HandleWebSocket).Methods(http.MethodGet)
}

// HandleWebSocket upgrades the connection and starts streaming events.
//
//nolint:contextcheck // the feed outlives the upgrade request
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("failed to upgrade connection", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	client := &feedClient{
		conn:   conn,
		send:   make(chan model.InventoryEvent, sendBuffer),
		cancel: cancel,
	}

	// The snapshot is queued under the lock so no event can slip in front of it.
	h.mu.Lock()
	items, err := h.items.List(r.Context())
	if err != nil {
		h.mu.Unlock()
		h.logger.Error("failed to load snapshot", zap.Error(err))
		cancel()
		h.sendClose(conn, websocket.CloseInternalServerErr, "snapshot unavailable")
		_ = conn.Close()
		return
	}
	client.send <- model.NewSnapshotEvent(items)
	h.clients[conn] = client
	h.mu.Unlock()

	h.logger.Info("websocket client connected",
		zap.String("remote_addr", conn.RemoteAddr().String()),
		zap.Int("snapshot_items", len(items)),
	)

	go h.writePump(ctx, client)
	go h.readPump(ctx, client)
}

// Publish queues event for every connected client without blocking.
func (h *WebSocketHandler) Publish(event model.InventoryEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.clients {
		select {
		case c.send <- event:
		default:
			h.logger.Warn("websocket client too slow, disconnecting",
				zap.String("remote_addr", c.conn.RemoteAddr().String()),
				zap.String("event", event.Type),
			)
			c.cancel()
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *WebSocketHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// readPump answers client pings and detects disconnects.
func (h *WebSocketHandler) readPump(ctx context.Context, c *feedClient) {
	defer func() {
		c.cancel()
		h.removeClient(c.conn)
		if err := c.conn.Close(); err != nil {
			h.logger.Debug("error closing connection", zap.Error(err))
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		h.logger.Error("failed to set read deadline", zap.Error(err))
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if ctx.Err() != nil {
			return
		}

		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("websocket read error", zap.Error(err))
			}
			return
		}

		reply := clientReply(message)
		select {
		case c.send <- reply:
		default:
			h.logger.Debug("dropping reply to slow client", zap.String("type", reply.Type))
		}
	}
}

// clientReply answers a client message: ping gets pong, anything else an error.
func clientReply(message []byte) model.InventoryEvent {
	var in struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(message, &in); err == nil && in.Type == model.EventTypePing {
		return model.InventoryEvent{Type: model.EventTypePong, Timestamp: time.Now().UTC()}
	}
	return model.InventoryEvent{
		Type:      model.EventTypeError,
		Message:   "the feed is read-only; send {\"type\":\"ping\"} to check liveness",
		Timestamp: time.Now().UTC(),
	}
}

// writePump drains the client queue and keeps the connection alive.
func (h *WebSocketHandler) writePump(ctx context.Context, c *feedClient) {
	pingTicker := time.NewTicker(pingPeriod)
	defer pingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.sendClose(c.conn, websocket.CloseNormalClosure, "feed closed")
			return
		case event := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.cancel()
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				h.logger.Debug("failed to send event", zap.String("type", event.Type), zap.Error(err))
				c.cancel()
				return
			}
		case <-pingTicker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.cancel()
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.logger.Debug("failed to send ping", zap.Error(err))
				c.cancel()
				return
			}
		}
	}
}

func (h *WebSocketHandler) sendClose(conn *websocket.Conn, code int, text string) {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		h.logger.Debug("failed to set write deadline for close", zap.Error(err))
		return
	}
	if err := conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, text)); err != nil {
		h.logger.Debug("failed to send close message", zap.Error(err))
	}
}

func (h *WebSocketHandler) removeClient(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, ok := h.clients[conn]; ok {
		c.cancel()
		delete(h.clients, conn)
		h.logger.Info("websocket client disconnected", zap.String("remote_addr", conn.RemoteAddr().String()))
	}
}

// CloseAllConnections sends a close frame to every client and closes it.
func (h *WebSocketHandler) CloseAllConnections() {
	h.mu.Lock()
	clients := make([]*feedClient, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.cancel()
	}

	// Let the write pumps flush their close frames.
	time.Sleep(100 * time.Millisecond)

	h.mu.Lock()
	for conn := range h.clients {
		if err := conn.Close(); err != nil {
			h.logger.Debug("error closing connection", zap.Error(err))
		}
		delete(h.clients, conn)
	}
	h.mu.Unlock()

	h.logger.Info("all websocket connections closed")
}
