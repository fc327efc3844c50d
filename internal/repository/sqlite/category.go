package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rs/xid"
	"github.com/sakif/book-reviews/internal/apperror"
	"github.com/sakif/book-reviews/internal/model"
	"github.com/sakif/book-reviews/internal/repository"
)

type categoryRepo struct {
	conn *sql.DB
}

var _ repository.CategoryRepository = (*categoryRepo)(nil)

// Create inserts a category. Names must be non-empty — the schema CHECK
// enforces it too, but failing here gives a friendlier error.
func (r *categoryRepo) Create(ctx context.Context, category *model.Category) error {
	if strings.TrimSpace(category.Name) == "" {
		return apperror.ValidationFailed("name", "category name is required")
	}

	category.ID = xid.New().String()

	if _, err := r.conn.ExecContext(ctx,
		`INSERT INTO categories (id, name) VALUES (?, ?)`,
		category.ID, category.Name,
	); err != nil {
		return fmt.Errorf("sqlite: creating category: %w", err)
	}

	return nil
}

// List returns all categories alphabetically.
func (r *categoryRepo) List(ctx context.Context) ([]model.Category, error) {
	rows, err := r.conn.QueryContext(ctx,
		`SELECT id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing categories: %w", err)
	}
	defer rows.Close()

	categories := make([]model.Category, 0, 8)
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("sqlite: scanning category row: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating categories: %w", err)
	}

	return categories, nil
}
