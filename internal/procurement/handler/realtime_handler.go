package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/olahol/melody"
	"go.uber.org/zap"

	"github.com/rasyendriar/machine-dashboard-app/internal/procurement/entity"
	"github.com/rasyendriar/machine-dashboard-app/internal/procurement/service"
	"github.com/rasyendriar/machine-dashboard-app/internal/shared/realtime"
)

// SnapshotMessage full contents of a collection after a change.
type SnapshotMessage struct {
	Collection string      `json:"collection"`
	Action     string      `json:"action"`
	ID         string      `json:"id,omitempty"`
	Data       interface{} `json:"data"`
}

// RealtimeHandler pushes collection snapshots over SSE and WebSocket.
type RealtimeHandler struct {
	hub       *realtime.Hub
	dashboard *service.DashboardService
	ws        *melody.Melody
	logger    *zap.Logger
	heartbeat time.Duration
}

func NewRealtimeHandler(hub *realtime.Hub, dashboard *service.DashboardService, logger *zap.Logger) *RealtimeHandler {
	h := &RealtimeHandler{
		hub:       hub,
		dashboard: dashboard,
		ws:        melody.New(),
		logger:    logger,
		heartbeat: 30 * time.Second,
	}
	h.ws.HandleConnect(h.onConnect)
	h.ws.HandleError(func(s *melody.Session, err error) {
		h.logger.Debug("websocket error", zap.Error(err))
	})
	return h
}

func collectionsFor(collection string) []string {
	if collection == "" {
		return []string{entity.CollectionMachinePurchases, entity.CollectionSpareParts}
	}
	return []string{collection}
}

func validCollection(collection string) bool {
	switch collection {
	case "", entity.CollectionMachinePurchases, entity.CollectionSpareParts:
		return true
	}
	return false
}

func (h *RealtimeHandler) snapshot(ctx context.Context, collection, action, id string) ([]byte, error) {
	data, err := h.dashboard.Snapshot(ctx, collection)
	if err != nil {
		return nil, err
	}
	return json.Marshal(SnapshotMessage{Collection: collection, Action: action, ID: id, Data: data})
}

// Stream GET /events?collection=&token=
func (h *RealtimeHandler) Stream(c *gin.Context) {
	collection := c.Query("collection")
	if !validCollection(collection) {
		BadRequest(c, fmt.Sprintf("unknown collection %q", collection))
		return
	}
	ctx := c.Request.Context()

	sub := h.hub.Subscribe(collection)
	defer sub.Close()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	c.Writer.WriteString("event: connected\ndata: {\"user_id\":\"" + GetUserID(c) + "\"}\n\n")
	for _, col := range collectionsFor(collection) {
		h.writeSnapshot(ctx, c, col, "snapshot", "")
	}
	c.Writer.Flush()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-sub.Events():
			if !ok {
				return
			}
			h.writeSnapshot(ctx, c, e.Collection, e.Action, e.ID)
			c.Writer.Flush()
		case <-heartbeat.C:
			c.Writer.WriteString(": keepalive\n\n")
			c.Writer.Flush()
		}
	}
}

func (h *RealtimeHandler) writeSnapshot(ctx context.Context, c *gin.Context, collection, action, id string) {
	msg, err := h.snapshot(ctx, collection, action, id)
	if err != nil {
		h.logger.Warn("snapshot failed", zap.String("collection", collection), zap.Error(err))
		c.Writer.WriteString(fmt.Sprintf("event: error\ndata: %q\n\n", err.Error()))
		return
	}
	c.Writer.WriteString(fmt.Sprintf("event: %s\ndata: %s\n\n", collection, msg))
}

// WebSocket GET /ws?collection=&token=
func (h *RealtimeHandler) WebSocket(c *gin.Context) {
	collection := c.Query("collection")
	if !validCollection(collection) {
		BadRequest(c, fmt.Sprintf("unknown collection %q", collection))
		return
	}
	keys := map[string]interface{}{"collection": collection, "user_id": GetUserID(c)}
	if err := h.ws.HandleRequestWithKeys(c.Writer, c.Request, keys); err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
	}
}

func (h *RealtimeHandler) onConnect(s *melody.Session) {
	collection, _ := s.Get("collection")
	col, _ := collection.(string)
	for _, name := range collectionsFor(col) {
		msg, err := h.snapshot(s.Request.Context(), name, "snapshot", "")
		if err != nil {
			h.logger.Warn("snapshot failed", zap.String("collection", name), zap.Error(err))
			continue
		}
		s.Write(msg)
	}
}

// Run relays hub events to WebSocket sessions until ctx ends. One snapshot
// is built per event and shared by every interested session.
func (h *RealtimeHandler) Run(ctx context.Context) {
	sub := h.hub.Subscribe("")
	defer sub.Close()
	for {
		select {
		case <-ctx.Done():
			h.ws.Close()
			return
		case e, ok := <-sub.Events():
			if !ok {
				return
			}
			if h.ws.Len() == 0 {
				continue
			}
			msg, err := h.snapshot(ctx, e.Collection, e.Action, e.ID)
			if err != nil {
				h.logger.Warn("snapshot failed", zap.String("collection", e.Collection), zap.Error(err))
				continue
			}
			h.ws.BroadcastFilter(msg, func(s *melody.Session) bool {
				v, _ := s.Get("collection")
				col, _ := v.(string)
				return col == "" || col == e.Collection
			})
		}
	}
}
