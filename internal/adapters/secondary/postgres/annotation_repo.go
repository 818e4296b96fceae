package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/camthink-ai/AIToolStack/internal/core/domain"
	ports "github.com/camthink-ai/AIToolStack/internal/core/ports/output"
)

type annotationRepo struct {
	pool *pgxpool.Pool
}

func NewAnnotationRepository(pool *pgxpool.Pool) ports.AnnotationRepository {
	return &annotationRepo{pool: pool}
}

func (r *annotationRepo) Create(ctx context.Context, ann *domain.Annotation) error {
	dataJSON, err := json.Marshal(ann.Data)
	if err != nil {
		return fmt.Errorf("marshal annotation data: %w", err)
	}

	query := `
		INSERT INTO annotations (id, image_id, class_id, type, data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = r.pool.Exec(ctx, query,
		ann.ID, ann.ImageID, ann.ClassID, string(ann.Type), dataJSON, ann.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create annotation: %w", err)
	}
	return nil
}

func (r *annotationRepo) ListByImage(ctx context.Context, imageID uuid.UUID) ([]*domain.Annotation, error) {
	query := `
		SELECT id, image_id, class_id, type, data, created_at
		FROM annotations
		WHERE image_id = $1
		ORDER BY created_at
	`

	rows, err := r.pool.Query(ctx, query, imageID)
	if err != nil {
		return nil, fmt.Errorf("list annotations: %w", err)
	}
	defer rows.Close()

	var annotations []*domain.Annotation
	for rows.Next() {
		var ann domain.Annotation
		var annType string
		var dataJSON []byte
		if err := rows.Scan(&ann.ID, &ann.ImageID, &ann.ClassID, &annType, &dataJSON, &ann.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan annotation: %w", err)
		}
		ann.Type = domain.AnnotationType(annType)
		if err := json.Unmarshal(dataJSON, &ann.Data); err != nil {
			return nil, fmt.Errorf("unmarshal annotation data: %w", err)
		}
		annotations = append(annotations, &ann)
	}
	return annotations, rows.Err()
}

func (r *annotationRepo) DeleteByImage(ctx context.Context, imageID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM annotations WHERE image_id = $1`, imageID)
	if err != nil {
		return fmt.Errorf("delete annotations: %w", err)
	}
	return nil
}
