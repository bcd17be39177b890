package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/vorlie/presenceexpose/internal/gateway"
	"github.com/vorlie/presenceexpose/internal/presence"
)

// WSHandler upgrades subscriber connections and runs one gateway session per
// connection.
type WSHandler struct {
	state     *presence.State
	service   *presence.Service
	heartbeat time.Duration
	grace     time.Duration
	upgrader  websocket.Upgrader
	logger    *slog.Logger
}

// NewWSHandler creates the websocket endpoint handler.
func NewWSHandler(log *slog.Logger, state *presence.State, service *presence.Service, heartbeat, grace time.Duration) *WSHandler {
	return &WSHandler{
		state:     state,
		service:   service,
		heartbeat: heartbeat,
		grace:     grace,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The relay is a public read-only surface; subscribers are not
			// authenticated.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: log.With(slog.String("handler", "ws")),
	}
}

// Register mounts GET /ws on the Echo instance.
func (h *WSHandler) Register(e *echo.Echo) {
	e.GET("/ws", h.Serve)
}

// Serve upgrades the request and blocks in the session loop until the
// connection closes; Echo gives each request its own goroutine.
func (h *WSHandler) Serve(c echo.Context) error {
	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return err
	}

	sess := gateway.NewSession(h.logger, gateway.NewConn(ws), h.state, h.service, h.heartbeat, h.grace)
	sess.Run(c.Request().Context())
	return nil
}
