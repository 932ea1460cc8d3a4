package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"pickbetter-shop/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrCategoryNotFound       = errors.New("category not found")
	ErrCategorySlugTaken      = errors.New("category with this slug already exists under the same parent")
	ErrParentCategoryNotFound = errors.New("parent category not found")
)

const categoryColumns = `id, name, parent_id, slug, created_at`

// CategoryRepository defines the interface for category data access
type CategoryRepository interface {
	Create(ctx context.Context, category *domain.Category) error
	Update(ctx context.Context, category *domain.Category) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Category, error)
	FindBySlug(ctx context.Context, slug string) (*domain.Category, error)
	ListRoots(ctx context.Context) ([]*domain.Category, error)
	ListAncestors(ctx context.Context, id uuid.UUID) ([]*domain.Category, error)
}

type categoryRepository struct {
	db *sql.DB
}

// NewCategoryRepository creates a new instance of CategoryRepository
func NewCategoryRepository(db *sql.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

// Create inserts a new category into the database using parameterized queries
func (r *categoryRepository) Create(ctx context.Context, category *domain.Category) error {
	query := `
		INSERT INTO categories (id, name, parent_id, slug, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		category.ID,
		category.Name,
		category.ParentID,
		category.Slug,
		category.CreatedAt,
	)
	if err != nil {
		return translateCategoryWriteError("create", err)
	}

	return nil
}

// Update changes the name, parent and slug of an existing category
func (r *categoryRepository) Update(ctx context.Context, category *domain.Category) error {
	query := `
		UPDATE categories
		SET name = $2, parent_id = $3, slug = $4
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, category.ID, category.Name, category.ParentID, category.Slug)
	if err != nil {
		return translateCategoryWriteError("update", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrCategoryNotFound
	}

	return nil
}

// Delete removes a category; descendant categories and their products go
// with it through ON DELETE CASCADE.
func (r *categoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrCategoryNotFound
	}

	return nil
}

// FindByID retrieves a category by ID using parameterized queries
func (r *categoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE id = $1`

	category, err := scanCategory(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to find category by ID: %w", err)
	}

	return category, nil
}

// FindBySlug retrieves a category by slug. Slugs are only unique among
// siblings, so the oldest match wins.
func (r *categoryRepository) FindBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	query := `
		SELECT ` + categoryColumns + `
		FROM categories
		WHERE slug = $1
		ORDER BY created_at ASC, id ASC
		LIMIT 1
	`

	category, err := scanCategory(r.db.QueryRowContext(ctx, query, slug))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to find category by slug: %w", err)
	}

	return category, nil
}

// ListRoots retrieves the top-level categories in creation order
func (r *categoryRepository) ListRoots(ctx context.Context) ([]*domain.Category, error) {
	query := `
		SELECT ` + categoryColumns + `
		FROM categories
		WHERE parent_id IS NULL
		ORDER BY created_at ASC, id ASC
	`

	return r.list(ctx, "root categories", query)
}

// ListAncestors retrieves the category and every ancestor above it,
// nearest first. The walk has no depth limit; a cyclic chain stops at the
// first repeated node.
func (r *categoryRepository) ListAncestors(ctx context.Context, id uuid.UUID) ([]*domain.Category, error) {
	query := `
		WITH RECURSIVE ancestors AS (
			SELECT ` + categoryColumns + `, 0 AS depth, ARRAY[id] AS visited
			FROM categories
			WHERE id = $1
			UNION ALL
			SELECT c.id, c.name, c.parent_id, c.slug, c.created_at, a.depth + 1, a.visited || c.id
			FROM categories c
			JOIN ancestors a ON c.id = a.parent_id
			WHERE NOT c.id = ANY(a.visited)
		)
		SELECT ` + categoryColumns + `
		FROM ancestors
		ORDER BY depth ASC
	`

	categories, err := r.list(ctx, "category ancestors", query, id)
	if err != nil {
		return nil, err
	}
	if len(categories) == 0 {
		return nil, ErrCategoryNotFound
	}

	return categories, nil
}

func (r *categoryRepository) list(ctx context.Context, what, query string, args ...interface{}) ([]*domain.Category, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", what, err)
	}
	defer rows.Close()

	categories := []*domain.Category{}
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, category)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", what, err)
	}

	return categories, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCategory(row rowScanner) (*domain.Category, error) {
	category := &domain.Category{}
	var parentID uuid.NullUUID

	err := row.Scan(
		&category.ID,
		&category.Name,
		&parentID,
		&category.Slug,
		&category.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if parentID.Valid {
		id := parentID.UUID
		category.ParentID = &id
	}

	return category, nil
}

func translateCategoryWriteError(op string, err error) error {
	switch pgErrorCode(err) {
	case pgUniqueViolation:
		if constraintName(err) == "categories_slug_parent_key" {
			return fmt.Errorf("%w: %w", ErrCategorySlugTaken, err)
		}
	case pgForeignKeyViolation:
		return fmt.Errorf("%w: %w", ErrParentCategoryNotFound, err)
	}
	return fmt.Errorf("failed to %s category: %w", op, err)
}
