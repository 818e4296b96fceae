package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/camthink-ai/AIToolStack/internal/core/domain"
	"github.com/camthink-ai/AIToolStack/internal/core/services"
)

type importRequest struct {
	Path   string `json:"path" binding:"required"`
	Format string `json:"format" binding:"required"`
}

func (h *Handler) ImportDataset(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}

	var req importRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	summary, err := h.importSvc.ImportIntoProject(c.Request.Context(), projectID, req.Path, domain.DatasetFormat(req.Format))
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, domain.ErrProjectNotFound):
			status = http.StatusNotFound
		case errors.Is(err, domain.ErrUnsupportedFormat), errors.Is(err, domain.ErrAnnotationsMissing):
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (h *Handler) ExportYOLO(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}

	snap, err := h.snapshotSvc.Load(c.Request.Context(), projectID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrProjectNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	outputDir := h.exportDir(projectID)
	manifest, err := h.exportSvc.Export(c.Request.Context(), snap, outputDir)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrNoValidImages) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":       "Export completed",
		"output_dir":    outputDir,
		"images_count":  manifest.ImageCount,
		"train_count":   manifest.TrainCount,
		"val_count":     manifest.ValCount,
		"classes_count": manifest.ClassCount,
	})
}

func (h *Handler) DownloadExport(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}

	exportDir := h.exportDir(projectID)
	if _, err := os.Stat(exportDir); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "export not found, run the export first"})
		return
	}

	zipPath := filepath.Join(h.exportRoot, projectID.String(), "yolo_dataset.zip")
	if err := services.Archive(exportDir, zipPath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer os.Remove(zipPath)

	c.FileAttachment(zipPath, fmt.Sprintf("%s_yolo_dataset.zip", projectID))
}

func (h *Handler) exportDir(projectID uuid.UUID) string {
	return filepath.Join(h.exportRoot, projectID.String(), "yolo_export")
}
