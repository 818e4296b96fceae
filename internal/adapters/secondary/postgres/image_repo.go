package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/camthink-ai/AIToolStack/internal/core/domain"
	ports "github.com/camthink-ai/AIToolStack/internal/core/ports/output"
)

type imageRepo struct {
	pool *pgxpool.Pool
}

func NewImageRepository(pool *pgxpool.Pool) ports.ImageRepository {
	return &imageRepo{pool: pool}
}

func (r *imageRepo) Create(ctx context.Context, img *domain.Image) error {
	query := `
		INSERT INTO images
			(id, project_id, filename, path, width, height, status, source, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.pool.Exec(ctx, query,
		img.ID, img.ProjectID, img.Filename, img.Path,
		img.Width, img.Height, string(img.Status), img.Source, img.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create image: %w", err)
	}
	return nil
}

func (r *imageRepo) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*domain.Image, error) {
	query := `
		SELECT id, project_id, filename, path, width, height, status, source, created_at
		FROM images
		WHERE project_id = $1
		ORDER BY created_at
	`

	rows, err := r.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	defer rows.Close()

	var images []*domain.Image
	for rows.Next() {
		var img domain.Image
		var status string
		if err := rows.Scan(
			&img.ID, &img.ProjectID, &img.Filename, &img.Path,
			&img.Width, &img.Height, &status, &img.Source, &img.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan image: %w", err)
		}
		img.Status = domain.ImageStatus(status)
		images = append(images, &img)
	}
	return images, rows.Err()
}
