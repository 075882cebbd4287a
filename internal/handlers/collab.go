package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/codemate/codemate/internal/collab"
	apperrors "github.com/codemate/codemate/pkg/errors"
	"github.com/codemate/codemate/pkg/response"
)

// CollabHandler upgrades HTTP requests onto the collaboration hub.
type CollabHandler struct {
	hub *collab.Hub
}

// NewCollabHandler constructs the websocket entry point.
func NewCollabHandler(hub *collab.Hub) *CollabHandler {
	return &CollabHandler{hub: hub}
}

// Stream hands the connection to the hub, which owns it until disconnect.
func (h *CollabHandler) Stream(c *gin.Context) {
	if h == nil || h.hub == nil {
		response.Error(c, apperrors.ErrNotFound)
		return
	}
	h.hub.Serve(c.Writer, c.Request)
}
