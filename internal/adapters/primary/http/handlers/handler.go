package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/camthink-ai/AIToolStack/internal/adapters/secondary/ws"
	"github.com/camthink-ai/AIToolStack/internal/core/services"
)

// IngestStatuser reports transport and gateway statistics for the status
// endpoint; nil when ingestion is disabled.
type IngestStatuser interface {
	Status() map[string]interface{}
}

type Handler struct {
	importSvc   *services.ImportService
	exportSvc   *services.ExportService
	snapshotSvc *services.SnapshotService
	ingest      IngestStatuser
	hub         *ws.Hub
	exportRoot  string
}

func New(
	importSvc *services.ImportService,
	exportSvc *services.ExportService,
	snapshotSvc *services.SnapshotService,
	ingest IngestStatuser,
	hub *ws.Hub,
	exportRoot string,
) *Handler {
	return &Handler{
		importSvc:   importSvc,
		exportSvc:   exportSvc,
		snapshotSvc: snapshotSvc,
		ingest:      ingest,
		hub:         hub,
		exportRoot:  exportRoot,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/projects/:id/import", h.ImportDataset)
	r.POST("/projects/:id/export/yolo", h.ExportYOLO)
	r.GET("/projects/:id/export/yolo/download", h.DownloadExport)
	r.GET("/ingest/status", h.IngestStatus)
}
