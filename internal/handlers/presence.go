package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/vorlie/presenceexpose/internal/presence"
)

// PresenceHandler serves point-in-time presence queries.
type PresenceHandler struct {
	service *presence.Service
}

// NewPresenceHandler creates the presence query handler.
func NewPresenceHandler(service *presence.Service) *PresenceHandler {
	return &PresenceHandler{service: service}
}

// Register mounts GET /api/v1/users/:id on the Echo instance.
func (h *PresenceHandler) Register(e *echo.Echo) {
	e.GET("/api/v1/users/:id", h.Get)
}

// Get returns the latest snapshot for an identity, synthesizing an offline
// snapshot from the directory on a cache miss.
func (h *PresenceHandler) Get(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "User ID must be an integer.")
	}

	snap, err := h.service.Lookup(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, presence.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "User not found or bot cannot access user.")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"data":    snap,
	})
}
