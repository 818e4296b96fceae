package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) IngestStatus(c *gin.Context) {
	if h.ingest == nil {
		c.JSON(http.StatusOK, gin.H{"enabled": false})
		return
	}
	status := h.ingest.Status()
	status["enabled"] = true
	c.JSON(http.StatusOK, status)
}

// ServeWS upgrades a viewer connection for per-project update events.
func (h *Handler) ServeWS(c *gin.Context) {
	projectID := c.Param("id")
	if err := h.hub.Serve(c.Writer, c.Request, projectID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}
