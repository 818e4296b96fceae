package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/camthink-ai/AIToolStack/internal/core/domain"
	ports "github.com/camthink-ai/AIToolStack/internal/core/ports/output"
)

// SnapshotService assembles the in-memory project view the exporter
// consumes: project, classes, images and per-image annotations with class
// names resolved.
type SnapshotService struct {
	projects    ports.ProjectRepository
	images      ports.ImageRepository
	classes     ports.ClassRepository
	annotations ports.AnnotationRepository
}

func NewSnapshotService(
	projects ports.ProjectRepository,
	images ports.ImageRepository,
	classes ports.ClassRepository,
	annotations ports.AnnotationRepository,
) *SnapshotService {
	return &SnapshotService{
		projects:    projects,
		images:      images,
		classes:     classes,
		annotations: annotations,
	}
}

func (s *SnapshotService) Load(ctx context.Context, projectID uuid.UUID) (*domain.ProjectSnapshot, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	classes, err := s.classes.ListByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	classNames := make(map[uuid.UUID]string, len(classes))
	snap := &domain.ProjectSnapshot{
		ProjectID: project.ID,
		Name:      project.Name,
	}
	for _, class := range classes {
		classNames[class.ID] = class.Name
		snap.Classes = append(snap.Classes, *class)
	}

	images, err := s.images.ListByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}

	for _, img := range images {
		anns, err := s.annotations.ListByImage(ctx, img.ID)
		if err != nil {
			return nil, fmt.Errorf("list annotations for image %s: %w", img.ID, err)
		}

		snapImg := domain.SnapshotImage{
			ID:       img.ID,
			Filename: img.Filename,
			Path:     img.Path,
			Width:    img.Width,
			Height:   img.Height,
		}
		for _, ann := range anns {
			snapImg.Annotations = append(snapImg.Annotations, domain.SnapshotAnnotation{
				Type:      ann.Type,
				ClassName: classNames[ann.ClassID],
				Data:      ann.Data,
			})
		}
		snap.Images = append(snap.Images, snapImg)
	}

	return snap, nil
}
