package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/camthink-ai/AIToolStack/internal/core/domain"
)

// ProjectRepository is the narrow read contract the ingestion and codec
// paths need from the record store. Project CRUD lives elsewhere.
type ProjectRepository interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Project, error)
}

type ImageRepository interface {
	Create(ctx context.Context, img *domain.Image) error
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]*domain.Image, error)
}

type ClassRepository interface {
	Create(ctx context.Context, class *domain.AnnotationClass) error
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]*domain.AnnotationClass, error)
}

type AnnotationRepository interface {
	Create(ctx context.Context, ann *domain.Annotation) error
	ListByImage(ctx context.Context, imageID uuid.UUID) ([]*domain.Annotation, error)
	DeleteByImage(ctx context.Context, imageID uuid.UUID) error
}
