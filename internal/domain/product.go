package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product represents a product in the catalog
type Product struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	CategoryID  uuid.UUID       `json:"category_id" db:"category_id"`
	Title       string          `json:"title" db:"title"`
	Brand       string          `json:"brand" db:"brand"`
	Description string          `json:"description" db:"description"`
	Slug        string          `json:"slug" db:"slug"`
	Price       decimal.Decimal `json:"price" db:"price"`
	Image       string          `json:"image" db:"image"`
	Available   bool            `json:"available" db:"available"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`

	// Category is populated by queries that join the owning category.
	Category *Category `json:"category,omitempty" db:"-"`
}

// NewProduct returns a product with the catalog defaults applied:
// a zero price and availability switched on.
func NewProduct(categoryID uuid.UUID, title string) *Product {
	now := time.Now().UTC()
	return &Product{
		ID:         uuid.Must(uuid.NewV7()),
		CategoryID: categoryID,
		Title:      title,
		Price:      decimal.Zero,
		Available:  true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func (p *Product) String() string {
	return p.Title
}
