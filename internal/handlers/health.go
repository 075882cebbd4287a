package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codemate/codemate/internal/collab"
	"github.com/codemate/codemate/pkg/response"
)

// Health returns a liveness payload with hub occupancy, useful for readiness
// checks and quick operator inspection.
func Health(hub *collab.Hub, svc *collab.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		payload := gin.H{"status": "ok"}
		if hub != nil {
			payload["connections"] = hub.Len()
		}
		if svc != nil {
			payload["rooms"] = svc.Registry().RoomCount()
			payload["cached_workspaces"] = svc.Cache().Len()
		}
		response.Success(c, http.StatusOK, payload)
	}
}
