package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/camthink-ai/AIToolStack/internal/core/domain"
	ports "github.com/camthink-ai/AIToolStack/internal/core/ports/output"
)

type classRepo struct {
	pool *pgxpool.Pool
}

func NewClassRepository(pool *pgxpool.Pool) ports.ClassRepository {
	return &classRepo{pool: pool}
}

func (r *classRepo) Create(ctx context.Context, class *domain.AnnotationClass) error {
	query := `
		INSERT INTO classes (id, project_id, name, color, shortcut_key)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.pool.Exec(ctx, query,
		class.ID, class.ProjectID, class.Name, class.Color, class.ShortcutKey,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("class %q already exists in project", class.Name)
		}
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

func (r *classRepo) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*domain.AnnotationClass, error) {
	query := `
		SELECT id, project_id, name, color, COALESCE(shortcut_key, '')
		FROM classes
		WHERE project_id = $1
		ORDER BY name
	`

	rows, err := r.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	defer rows.Close()

	var classes []*domain.AnnotationClass
	for rows.Next() {
		var class domain.AnnotationClass
		if err := rows.Scan(&class.ID, &class.ProjectID, &class.Name, &class.Color, &class.ShortcutKey); err != nil {
			return nil, fmt.Errorf("scan class: %w", err)
		}
		classes = append(classes, &class)
	}
	return classes, rows.Err()
}
