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
	ErrProductNotFound = errors.New("product not found")
)

const productColumns = `p.id, p.category_id, p.title, p.brand, p.description, p.slug, p.price, p.image, p.available, p.created_at, p.updated_at`

// ProductRepository defines the interface for product data access.
// The List*/FindAvailable* reads only ever see available products; FindByID
// is the unfiltered lookup used by the write path.
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	ListAvailable(ctx context.Context) ([]*domain.Product, error)
	FindAvailableBySlug(ctx context.Context, slug string) (*domain.Product, error)
	ListAvailableByCategory(ctx context.Context, categoryID uuid.UUID) ([]*domain.Product, error)
}

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

// Create inserts a new product into the database using parameterized queries
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (id, category_id, title, brand, description, slug, price, image, available, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.CategoryID,
		product.Title,
		product.Brand,
		product.Description,
		product.Slug,
		product.Price,
		product.Image,
		product.Available,
		product.CreatedAt,
		product.UpdatedAt,
	)
	if err != nil {
		return translateProductWriteError("create", err)
	}

	return nil
}

// Update updates an existing product in the database using parameterized queries
func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	query := `
		UPDATE products
		SET category_id = $2, title = $3, brand = $4, description = $5,
		    slug = $6, price = $7, image = $8, available = $9
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		product.ID,
		product.CategoryID,
		product.Title,
		product.Brand,
		product.Description,
		product.Slug,
		product.Price,
		product.Image,
		product.Available,
	).Scan(&product.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrProductNotFound
		}
		return translateProductWriteError("update", err)
	}

	return nil
}

// Delete removes a product from the database using parameterized queries
func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// FindByID retrieves a product by ID regardless of availability
func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products p WHERE p.id = $1`

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}

	return product, nil
}

// ListAvailable retrieves every available product in insertion order
func (r *productRepository) ListAvailable(ctx context.Context) ([]*domain.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products p
		WHERE p.available = TRUE
		ORDER BY p.created_at ASC, p.id ASC
	`

	return r.list(ctx, "products", query)
}

// FindAvailableBySlug retrieves an available product by slug. Product slugs
// carry no uniqueness constraint, so the oldest match wins.
func (r *productRepository) FindAvailableBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products p
		WHERE p.slug = $1 AND p.available = TRUE
		ORDER BY p.created_at ASC, p.id ASC
		LIMIT 1
	`

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, slug))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by slug: %w", err)
	}

	return product, nil
}

// ListAvailableByCategory retrieves the available products assigned directly
// to the category, with the category attached to each product.
// Products in subcategories are not included.
func (r *productRepository) ListAvailableByCategory(ctx context.Context, categoryID uuid.UUID) ([]*domain.Product, error) {
	query := `
		SELECT ` + productColumns + `, c.id, c.name, c.parent_id, c.slug, c.created_at
		FROM products p
		JOIN categories c ON c.id = p.category_id
		WHERE p.category_id = $1 AND p.available = TRUE
		ORDER BY p.created_at ASC, p.id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list products by category: %w", err)
	}
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		product := &domain.Product{Category: &domain.Category{}}
		var parentID uuid.NullUUID

		err := rows.Scan(
			append(productDest(product),
				&product.Category.ID,
				&product.Category.Name,
				&parentID,
				&product.Category.Slug,
				&product.Category.CreatedAt,
			)...,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}

		if parentID.Valid {
			id := parentID.UUID
			product.Category.ParentID = &id
		}
		products = append(products, product)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

func (r *productRepository) list(ctx context.Context, what, query string, args ...interface{}) ([]*domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", what, err)
	}
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", what, err)
	}

	return products, nil
}

func productDest(product *domain.Product) []interface{} {
	return []interface{}{
		&product.ID,
		&product.CategoryID,
		&product.Title,
		&product.Brand,
		&product.Description,
		&product.Slug,
		&product.Price,
		&product.Image,
		&product.Available,
		&product.CreatedAt,
		&product.UpdatedAt,
	}
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	product := &domain.Product{}
	if err := row.Scan(productDest(product)...); err != nil {
		return nil, err
	}
	return product, nil
}

func translateProductWriteError(op string, err error) error {
	if pgErrorCode(err) == pgForeignKeyViolation {
		return fmt.Errorf("%w: %w", ErrCategoryNotFound, err)
	}
	return fmt.Errorf("failed to %s product: %w", op, err)
}
