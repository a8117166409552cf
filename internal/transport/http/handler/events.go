package handler

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"cropcare/internal/analysis"
	"cropcare/internal/transport/http/middleware"
	"cropcare/internal/workspace"
)

const (
	eventsWriteWait  = 10 * time.Second
	eventsPongWait   = 60 * time.Second
	eventsPingPeriod = 30 * time.Second
)

// EventsHandler pushes lifecycle snapshots of the caller's workspace over a websocket.
type EventsHandler struct {
	workspaces *workspace.Manager
	logger     *slog.Logger
	upgrader   websocket.Upgrader
}

func NewEventsHandler(workspaces *workspace.Manager, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{
		workspaces: workspaces,
		logger:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

func (h *EventsHandler) Stream(c *gin.Context) {
	current, _ := middleware.CurrentSession(c)
	ws := h.workspaces.Get(current.ID, current.User.Email)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	updates, stop := ws.Controller.Subscribe()
	defer stop()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(eventsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(eventsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(eventsPingPeriod)
	defer ping.Stop()

	var last uint64
	send := func(s analysis.Snapshot) bool {
		if last != 0 && s.Seq <= last {
			return true
		}
		last = s.Seq
		_ = conn.SetWriteDeadline(time.Now().Add(eventsWriteWait))
		if err := conn.WriteJSON(newSnapshotResponse(s)); err != nil {
			h.logger.Debug("websocket write failed", "error", err)
			return false
		}
		return true
	}

	if !send(ws.Controller.Snapshot()) {
		return
	}
	for {
		select {
		case <-c.Request.Context().Done():
			return
		case <-closed:
			return
		case s, ok := <-updates:
			if !ok || !send(s) {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(eventsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
