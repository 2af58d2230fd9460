package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// WSHandler mounts the websocket signal stream.
type WSHandler struct {
	hub http.Handler
}

func NewWSHandler(hub http.Handler) *WSHandler {
	return &WSHandler{hub: hub}
}

func (h *WSHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/signals", echo.WrapHandler(h.hub))
}
