package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/inventory-tracker/internal/model"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// SnapshotSource supplies the collection sent to a client on connect.
type SnapshotSource interface {
	Snapshot() model.Snapshot
}

// client is one websocket subscriber. send holds at most the latest
// unsent collection.
type client struct {
	conn   *websocket.Conn
	send   chan model.WebSocketMessage
	cancel context.CancelFunc

	mu       sync.Mutex
	offered  bool
	revision uint64
}

// offer queues msg, replacing an unsent older message. Messages older than
// one already offered are dropped. It never blocks.
func (c *client) offer(msg model.WebSocketMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.offered && msg.Revision <= c.revision {
		return
	}
	c.offered = true
	c.revision = msg.Revision

	for {
		select {
		case c.send <- msg:
			return
		default:
		}
		select {
		case <-c.send:
		default:
		}
	}
}

// Hub pushes the full collection to websocket clients after every change.
type Hub struct {
	upgrader websocket.Upgrader
	source   SnapshotSource
	logger   *zap.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
	wg      conc.WaitGroup
}

// NewHub creates a Hub that seeds new clients from source.
func NewHub(source SnapshotSource, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		source:  source,
		logger:  logger,
		clients: make(map[*client]struct{}),
	}
}

// CheckOrigin sets the origin check for upgrades. Without one, only
// same-origin browsers and clients that send no Origin may connect. Call it
// before serving.
func (h *Hub) CheckOrigin(fn func(*http.Request) bool) {
	h.upgrader.CheckOrigin = fn
}

// RegisterRoutes registers /ws on router.
func (h *Hub) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/ws", h.HandleWebSocket).Methods(http.MethodGet)
}

// Broadcast queues snap for every connected client. It has the shape of a
// store change hook and never blocks.
func (h *Hub) Broadcast(snap model.Snapshot) {
	msg := model.NewItemsMessage(snap)

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		c.offer(msg)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// HandleWebSocket upgrades the request and subscribes the connection.
//
//nolint:contextcheck // the connection outlives the upgrade request
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		writeError(w, h.logger, http.StatusServiceUnavailable, "server is shutting down", "")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("failed to upgrade connection", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &client{
		conn:   conn,
		send:   make(chan model.WebSocketMessage, 1),
		cancel: cancel,
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		cancel()
		_ = conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	h.wg.Go(func() { h.writePump(ctx, c) })
	h.wg.Go(func() { h.readPump(ctx, c) })
	h.mu.Unlock()

	// A newer broadcast may already be queued; offer then drops the seed.
	c.offer(model.NewItemsMessage(h.source.Snapshot()))

	h.logger.Info("websocket client connected", zap.String("remote_addr", conn.RemoteAddr().String()))
}

// readPump discards inbound messages and detects disconnects.
func (h *Hub) readPump(ctx context.Context, c *client) {
	defer c.cancel()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for ctx.Err() == nil {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("websocket read error", zap.Error(err))
			}
			return
		}
	}
}

// writePump owns the connection: it is the only writer and the only closer.
func (h *Hub) writePump(ctx context.Context, c *client) {
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ping.Stop()
		h.remove(c)
		if err := c.conn.Close(); err != nil {
			h.logger.Debug("error closing connection", zap.Error(err))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			h.sendClose(c.conn)
			return
		case msg := <-c.send:
			if err := h.sendItems(c.conn, msg); err != nil {
				h.logger.Debug("failed to send items", zap.Error(err))
				c.cancel()
				return
			}
		case <-ping.C:
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

func (h *Hub) sendItems(conn *websocket.Conn, msg model.WebSocketMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (h *Hub) sendClose(conn *websocket.Conn) {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return
	}
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "server shutting down")
	if err := conn.WriteMessage(websocket.CloseMessage, msg); err != nil {
		h.logger.Debug("failed to send close message", zap.Error(err))
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		h.logger.Info("websocket client disconnected", zap.String("remote_addr", c.conn.RemoteAddr().String()))
	}
}

// CloseAllConnections sends a close frame to every client, waits for their
// goroutines to finish and refuses further upgrades.
func (h *Hub) CloseAllConnections() {
	h.mu.Lock()
	h.closed = true
	for c := range h.clients {
		c.cancel()
	}
	h.mu.Unlock()

	h.wg.Wait()
	h.logger.Info("all websocket connections closed")
}
