package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/camthink-ai/AIToolStack/internal/core/domain"
)

// ImportSummary reports what one ImportIntoProject call persisted.
type ImportSummary struct {
	ImagesImported     int `json:"images_imported"`
	ClassesCreated     int `json:"classes_created"`
	AnnotationsCreated int `json:"annotations_created"`
}

// classColors cycles over the palette assigned to newly created classes.
var classColors = []string{
	"#FF6B6B", "#4ECDC4", "#45B7D1", "#FFA07A", "#98D8C8",
	"#F7DC6F", "#BB8FCE", "#85C1E2", "#F8B739", "#82E0AA",
	"#F1948A", "#85C1E9", "#52BE80", "#EC7063", "#5DADE2",
	"#F4D03F", "#AF7AC5", "#76D7C4",
}

// ImportIntoProject parses a dataset and persists it into an existing
// project: missing classes are created, image files are copied into the
// project's raw directory under collision-free names, and records plus
// annotations are written through the repositories.
func (s *ImportService) ImportIntoProject(ctx context.Context, projectID uuid.UUID, sourcePath string, format domain.DatasetFormat) (*ImportSummary, error) {
	exists, err := s.projects.Exists(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("check project: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", domain.ErrProjectNotFound, projectID)
	}

	result, cleanup, err := s.Import(ctx, sourcePath, format)
	if err != nil {
		return nil, err
	}
	// Extracted archives stay on disk until every image file is copied out.
	defer cleanup()

	existing, err := s.classes.ListByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	classIDs := make(map[string]uuid.UUID, len(existing))
	for _, class := range existing {
		classIDs[class.Name] = class.ID
	}

	summary := &ImportSummary{}
	for i, cat := range result.Categories {
		if _, ok := classIDs[cat.Name]; ok {
			continue
		}
		class := &domain.AnnotationClass{
			ID:        uuid.New(),
			ProjectID: projectID,
			Name:      cat.Name,
			Color:     classColors[i%len(classColors)],
		}
		if err := s.classes.Create(ctx, class); err != nil {
			return nil, fmt.Errorf("create class %q: %w", cat.Name, err)
		}
		classIDs[cat.Name] = class.ID
		summary.ClassesCreated++
	}

	knownImages, err := s.images.ListByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	byFilename := make(map[string]*domain.Image, len(knownImages))
	for _, img := range knownImages {
		byFilename[img.Filename] = img
	}

	for _, imported := range result.Images {
		if prev, ok := byFilename[imported.FileName]; ok {
			// Re-importing a file the project already holds refreshes its
			// annotations in place instead of duplicating the image.
			if err := s.annotations.DeleteByImage(ctx, prev.ID); err != nil {
				return nil, fmt.Errorf("clear annotations for %s: %w", prev.Filename, err)
			}
			created, err := s.persistAnnotations(ctx, prev.ID, imported.Annotations, classIDs)
			if err != nil {
				return nil, err
			}
			summary.AnnotationsCreated += created
			continue
		}

		data, err := os.ReadFile(filepath.Join(result.ImagesDir, imported.FileName))
		if err != nil {
			log.Warnf("skipping image %s: %v", imported.FileName, err)
			continue
		}
		filename, relPath, err := s.store.Save(projectID, imported.FileName, data)
		if err != nil {
			return nil, fmt.Errorf("store image %s: %w", imported.FileName, err)
		}

		img := &domain.Image{
			ID:        uuid.New(),
			ProjectID: projectID,
			Filename:  filename,
			Path:      relPath,
			Width:     imported.Width,
			Height:    imported.Height,
			Status:    domain.ImageStatusUnlabeled,
			Source:    "import:" + string(format),
			CreatedAt: time.Now(),
		}
		if len(imported.Annotations) > 0 {
			img.Status = domain.ImageStatusLabeled
		}
		if err := s.images.Create(ctx, img); err != nil {
			if rmErr := s.store.Remove(projectID, relPath); rmErr != nil {
				log.Warnf("roll back image file %s: %v", relPath, rmErr)
			}
			return nil, fmt.Errorf("record image %s: %w", filename, err)
		}
		summary.ImagesImported++

		created, err := s.persistAnnotations(ctx, img.ID, imported.Annotations, classIDs)
		if err != nil {
			return nil, err
		}
		summary.AnnotationsCreated += created
	}

	return summary, nil
}

func (s *ImportService) persistAnnotations(ctx context.Context, imageID uuid.UUID, records []domain.AnnotationRecord, classIDs map[string]uuid.UUID) (int, error) {
	created := 0
	for _, record := range records {
		classID, ok := classIDs[record.ClassName]
		if !ok {
			continue
		}
		ann := &domain.Annotation{
			ID:        uuid.New(),
			ImageID:   imageID,
			ClassID:   classID,
			Type:      record.Type,
			Data:      record.Data,
			CreatedAt: time.Now(),
		}
		if err := s.annotations.Create(ctx, ann); err != nil {
			return created, fmt.Errorf("create annotation: %w", err)
		}
		created++
	}
	return created, nil
}
