// Package realtimews pushes live frames to viewers over websockets.
package realtimews

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	realtimeservice "github.com/Black-And-White-Club/ringside/app/modules/realtime/application"
	"github.com/Black-And-White-Club/ringside/pkg/httpserver"
	"github.com/Black-And-White-Club/ringside/pkg/jwt"
	"github.com/Black-And-White-Club/ringside/pkg/observability/attr"
	sharedtypes "github.com/Black-And-White-Club/ringside/pkg/types/shared"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Config tunes socket timeouts and buffers.
type Config struct {
	WriteTimeout    time.Duration
	PongTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	SendBuffer      int
	BroadcastBuffer int
	// AllowedOrigins empty or containing "*" accepts any origin.
	AllowedOrigins []string
}

func DefaultConfig() Config {
	return Config{
		WriteTimeout:    10 * time.Second,
		PongTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		SendBuffer:      64,
		BroadcastBuffer: 1024,
	}
}

// SnapshotSource builds the frame a viewer receives on connect.
type SnapshotSource interface {
	Snapshot(ctx context.Context, eventID sharedtypes.EventID) (*realtimeservice.Frame, error)
}

type broadcast struct {
	eventID sharedtypes.EventID
	frame   realtimeservice.Frame
}

// Hub tracks connections per event and fans frames out to them.
type Hub struct {
	mu    sync.RWMutex
	conns map[sharedtypes.EventID]map[*Connection]struct{}

	upgrader    websocket.Upgrader
	cfg         Config
	broadcastCh chan broadcast
	snapshots   SnapshotSource
	tokens      jwt.Service
	logger      *slog.Logger
}

// Connection is one viewer socket. It is registered before its snapshot
// is built; frames that arrive until the snapshot is queued wait in pending.
type Connection struct {
	ID      string
	UserID  sharedtypes.UserID
	EventID sharedtypes.EventID

	send chan []byte
	hub  *Hub

	mu      sync.Mutex
	conn    *websocket.Conn
	ready   bool
	closed  bool
	pending [][]byte
}

// NewHub creates a Hub. snapshots may be nil.
func NewHub(cfg Config, snapshots SnapshotSource, tokens jwt.Service, logger *slog.Logger) *Hub {
	defaults := DefaultConfig()
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaults.WriteTimeout
	}
	if cfg.PongTimeout <= 0 {
		cfg.PongTimeout = defaults.PongTimeout
	}
	if cfg.PingInterval <= 0 || cfg.PingInterval >= cfg.PongTimeout {
		cfg.PingInterval = cfg.PongTimeout * 9 / 10
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = defaults.MaxMessageSize
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = defaults.SendBuffer
	}
	if cfg.BroadcastBuffer <= 0 {
		cfg.BroadcastBuffer = defaults.BroadcastBuffer
	}
	if logger == nil {
		logger = slog.Default()
	}

	h := &Hub{
		conns:       make(map[sharedtypes.EventID]map[*Connection]struct{}),
		cfg:         cfg,
		broadcastCh: make(chan broadcast, cfg.BroadcastBuffer),
		snapshots:   snapshots,
		tokens:      tokens,
		logger:      logger,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// Register mounts the socket route.
func (h *Hub) Register(r chi.Router) {
	r.With(httpserver.OptionalAuthMiddleware(h.tokens)).
		Get("/ws/events/{eventID}", h.ServeEvent)
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.cfg.AllowedOrigins) == 0 || slices.Contains(h.cfg.AllowedOrigins, "*") {
		return true
	}
	return slices.Contains(h.cfg.AllowedOrigins, origin)
}

// Run delivers queued broadcasts until ctx is done, then closes every socket.
func (h *Hub) Run(ctx context.Context) {
	h.logger.InfoContext(ctx, "Realtime hub started")
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			h.logger.Info("Realtime hub stopped")
			return
		case b := <-h.broadcastCh:
			h.deliver(b)
		}
	}
}

// Broadcast queues frame for every viewer of eventID. A full queue drops it;
// viewers recover from the next snapshot or poll.
func (h *Hub) Broadcast(eventID sharedtypes.EventID, frame realtimeservice.Frame) {
	select {
	case h.broadcastCh <- broadcast{eventID: eventID, frame: frame}:
	default:
		h.logger.Warn("Broadcast queue full, dropping frame",
			attr.EventID("event_id", eventID),
			attr.String("type", frame.Type),
		)
	}
}

// Count returns how many viewers are connected to eventID.
func (h *Hub) Count(eventID sharedtypes.EventID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[eventID])
}

// ServeEvent upgrades the request and attaches the viewer to the event in the path.
func (h *Hub) ServeEvent(w http.ResponseWriter, r *http.Request) {
	eventID := sharedtypes.EventID(chi.URLParam(r, "eventID"))
	if eventID == "" {
		http.Error(w, "event id is required", http.StatusBadRequest)
		return
	}
	userID, _ := httpserver.UserIDFromContext(r.Context())

	c := &Connection{
		ID:      uuid.NewString(),
		UserID:  userID,
		EventID: eventID,
		send:    make(chan []byte, h.cfg.SendBuffer),
		hub:     h,
	}
	// Registered first so nothing broadcast while the snapshot is built is
	// lost; those frames follow the snapshot.
	h.register(c)

	var snapshot []byte
	if h.snapshots != nil {
		frame, err := h.snapshots.Snapshot(r.Context(), eventID)
		switch {
		case errors.Is(err, sharedtypes.ErrNotFound):
			h.unregister(c)
			httpserver.WriteError(w, err)
			return
		case err != nil:
			h.logger.WarnContext(r.Context(), "Failed to build live snapshot",
				attr.EventID("event_id", eventID),
				attr.Error(err),
			)
		case frame != nil:
			snapshot, _ = json.Marshal(frame)
		}
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.unregister(c)
		// Upgrade has already written the error response.
		h.logger.WarnContext(r.Context(), "Failed to upgrade websocket",
			attr.EventID("event_id", eventID),
			attr.Error(err),
		)
		return
	}
	if !c.start(ws, snapshot) {
		// Dropped as too slow before it was ready.
		_ = ws.Close()
		return
	}

	go c.writePump()
	go c.readPump()

	h.logger.Debug("Viewer connected",
		attr.String("connection_id", c.ID),
		attr.EventID("event_id", eventID),
		attr.UserID("user_id", userID),
	)
}

func (h *Hub) register(c *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[c.EventID] == nil {
		h.conns[c.EventID] = make(map[*Connection]struct{})
	}
	h.conns[c.EventID][c] = struct{}{}
}

// unregister removes c and closes its send channel exactly once.
func (h *Hub) unregister(c *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns, ok := h.conns[c.EventID]
	if !ok {
		return
	}
	if _, ok := conns[c]; !ok {
		return
	}
	delete(conns, c)
	c.mu.Lock()
	c.closed = true
	close(c.send)
	c.mu.Unlock()
	if len(conns) == 0 {
		delete(h.conns, c.EventID)
	}
}

func (h *Hub) deliver(b broadcast) {
	h.mu.RLock()
	if len(h.conns[b.eventID]) == 0 {
		h.mu.RUnlock()
		return
	}
	h.mu.RUnlock()

	data, err := json.Marshal(b.frame)
	if err != nil {
		h.logger.Error("Failed to marshal frame", attr.String("type", b.frame.Type), attr.Error(err))
		return
	}

	// Sends never block, so they run under the read lock; unregister needs
	// the write lock and therefore cannot close a channel mid-send.
	var slow []*Connection
	h.mu.RLock()
	for c := range h.conns[b.eventID] {
		if !c.enqueue(data) {
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn("Viewer too slow, disconnecting",
			attr.String("connection_id", c.ID),
			attr.EventID("event_id", b.eventID),
		)
		h.unregister(c)
		c.closeConn()
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	var all []*Connection
	for _, conns := range h.conns {
		for c := range conns {
			all = append(all, c)
		}
	}
	h.mu.Unlock()

	for _, c := range all {
		h.unregister(c)
	}
}

// start attaches the socket and queues the snapshot ahead of any frames
// that arrived while it was built. It returns false when the hub already
// dropped the connection.
func (c *Connection) start(ws *websocket.Conn, snapshot []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.conn = ws
	if snapshot != nil {
		c.send <- snapshot
	}
	for _, data := range c.pending {
		c.send <- data
	}
	c.pending = nil
	c.ready = true
	return true
}

// enqueue never blocks. It reports false when the viewer cannot keep up.
func (c *Connection) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.ready {
		// One slot stays free for the snapshot.
		if len(c.pending) >= cap(c.send)-1 {
			return false
		}
		c.pending = append(c.pending, data)
		return true
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Connection) closeConn() {
	c.mu.Lock()
	ws := c.conn
	c.mu.Unlock()
	if ws != nil {
		_ = ws.Close()
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(c.hub.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.hub.unregister(c)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.hub.unregister(c)
				return
			}
		}
	}
}

// readPump only services control frames; viewers never send commands.
func (c *Connection) readPump() {
	defer func() {
		c.hub.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(c.hub.cfg.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.hub.cfg.PongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.hub.cfg.PongTimeout))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug("Viewer socket closed unexpectedly",
					attr.String("connection_id", c.ID),
					attr.Error(err),
				)
			}
			return
		}
	}
}
