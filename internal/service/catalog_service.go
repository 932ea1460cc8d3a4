package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"pickbetter-shop/internal/domain"
	"pickbetter-shop/internal/repository"
	"pickbetter-shop/internal/storage"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// maxPrice is the first value that no longer fits NUMERIC(7, 2).
var maxPrice = decimal.NewFromInt(100000)

// ImageStore persists uploaded product images.
type ImageStore interface {
	SaveProductImage(ctx context.Context, originalName string, r io.Reader) (*storage.Image, error)
	Delete(ctx context.Context, relativePath string) error
	URL(relativePath string) string
}

// ImageUpload is an image file supplied with a product write.
type ImageUpload struct {
	Filename string
	Content  io.Reader
}

// CreateCategoryInput carries the fields of a new category. An empty Slug
// is generated from the name.
type CreateCategoryInput struct {
	Name     string     `validate:"required,max=250"`
	Slug     string     `validate:"omitempty,max=250,slug"`
	ParentID *uuid.UUID `validate:"omitempty"`
}

// ProductInput carries the editable fields of a product.
type ProductInput struct {
	CategoryID  uuid.UUID
	Title       string `validate:"required,max=250"`
	Brand       string `validate:"max=250"`
	Description string
	Slug        string `validate:"omitempty,max=250,slug"`
	Price       decimal.Decimal
	// Available keeps the current value when nil. New products start available.
	Available *bool
	// Image replaces the stored image when set.
	Image *ImageUpload
}

// CatalogService defines the interface for catalog business logic
type CatalogService interface {
	RootCategories(ctx context.Context) ([]*domain.Category, error)
	CategoryPath(ctx context.Context, categoryID uuid.UUID) (string, error)
	ListAvailableProducts(ctx context.Context) ([]*domain.Product, error)
	GetProductBySlug(ctx context.Context, slug string) (*domain.Product, error)
	ListProductsByCategory(ctx context.Context, categorySlug string) (*domain.Category, []*domain.Product, error)
	ImageURL(product *domain.Product) string

	CreateCategory(ctx context.Context, input CreateCategoryInput) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error
	CreateProduct(ctx context.Context, input ProductInput) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, input ProductInput) (*domain.Product, error)
}

type catalogService struct {
	categoryRepo repository.CategoryRepository
	productRepo  repository.ProductRepository
	images       ImageStore
}

// NewCatalogService creates a new instance of CatalogService
func NewCatalogService(
	categoryRepo repository.CategoryRepository,
	productRepo repository.ProductRepository,
	images ImageStore,
) CatalogService {
	return &catalogService{
		categoryRepo: categoryRepo,
		productRepo:  productRepo,
		images:       images,
	}
}

// RootCategories returns the top-level categories shown in the navigation
func (s *catalogService) RootCategories(ctx context.Context) ([]*domain.Category, error) {
	return s.categoryRepo.ListRoots(ctx)
}

// CategoryPath renders the category's ancestor path, root first
func (s *catalogService) CategoryPath(ctx context.Context, categoryID uuid.UUID) (string, error) {
	ancestors, err := s.categoryRepo.ListAncestors(ctx, categoryID)
	if err != nil {
		return "", err
	}

	return domain.NewCategoryTree(ancestors).Display(categoryID)
}

func (s *catalogService) ListAvailableProducts(ctx context.Context) ([]*domain.Product, error) {
	return s.productRepo.ListAvailable(ctx)
}

func (s *catalogService) GetProductBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	return s.productRepo.FindAvailableBySlug(ctx, slug)
}

// ListProductsByCategory resolves the category by slug and returns the
// available products assigned directly to it
func (s *catalogService) ListProductsByCategory(ctx context.Context, categorySlug string) (*domain.Category, []*domain.Product, error) {
	category, err := s.categoryRepo.FindBySlug(ctx, categorySlug)
	if err != nil {
		return nil, nil, err
	}

	products, err := s.productRepo.ListAvailableByCategory(ctx, category.ID)
	if err != nil {
		return nil, nil, err
	}

	return category, products, nil
}

func (s *catalogService) ImageURL(product *domain.Product) string {
	return s.images.URL(product.Image)
}

// CreateCategory validates the input, generates a slug when none was given
// and stores the category
func (s *catalogService) CreateCategory(ctx context.Context, input CreateCategoryInput) (*domain.Category, error) {
	if err := validateStruct(input); err != nil {
		return nil, err
	}

	category := domain.NewCategory(input.Name, input.ParentID)
	category.Slug = input.Slug
	category.EnsureSlug()

	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, err
	}

	return category, nil
}

// DeleteCategory removes the category together with its descendants and
// all of their products
func (s *catalogService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return s.categoryRepo.Delete(ctx, id)
}

// CreateProduct validates the input, stores the image if one was supplied
// and persists the product
func (s *catalogService) CreateProduct(ctx context.Context, input ProductInput) (*domain.Product, error) {
	if err := validateProductInput(input); err != nil {
		return nil, err
	}

	product := domain.NewProduct(input.CategoryID, input.Title)
	applyProductInput(product, input)

	if input.Image != nil {
		image, err := s.images.SaveProductImage(ctx, input.Image.Filename, input.Image.Content)
		if err != nil {
			return nil, fmt.Errorf("failed to store product image: %w", err)
		}
		product.Image = image.Path
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		if product.Image != "" {
			_ = s.images.Delete(ctx, product.Image)
		}
		return nil, err
	}

	return product, nil
}

// UpdateProduct applies the input to an existing product. A new image
// replaces the stored one, which is removed once the update succeeds.
func (s *catalogService) UpdateProduct(ctx context.Context, id uuid.UUID, input ProductInput) (*domain.Product, error) {
	if err := validateProductInput(input); err != nil {
		return nil, err
	}

	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	applyProductInput(product, input)
	previousImage := product.Image

	if input.Image != nil {
		image, err := s.images.SaveProductImage(ctx, input.Image.Filename, input.Image.Content)
		if err != nil {
			return nil, fmt.Errorf("failed to store product image: %w", err)
		}
		product.Image = image.Path
	}

	product.UpdatedAt = time.Now().UTC()
	if err := s.productRepo.Update(ctx, product); err != nil {
		if product.Image != previousImage {
			_ = s.images.Delete(ctx, product.Image)
		}
		return nil, err
	}

	if product.Image != previousImage && previousImage != "" {
		if err := s.images.Delete(ctx, previousImage); err != nil {
			return product, fmt.Errorf("product updated but the old image was not removed: %w", err)
		}
	}

	return product, nil
}

func validateProductInput(input ProductInput) error {
	if input.CategoryID == uuid.Nil {
		return invalidField("CategoryID", "This field is required")
	}
	if err := validateStruct(input); err != nil {
		return err
	}
	if input.Price.IsNegative() || input.Price.Round(2).GreaterThanOrEqual(maxPrice) {
		return invalidField("Price", "Value must be between 0.00 and 99999.99")
	}
	if input.Image != nil && input.Image.Content == nil {
		return invalidField("Image", "This field is required")
	}
	return nil
}

func applyProductInput(product *domain.Product, input ProductInput) {
	product.CategoryID = input.CategoryID
	product.Title = input.Title
	product.Brand = input.Brand
	product.Description = input.Description
	product.Slug = input.Slug
	product.Price = input.Price.Round(2)
	if input.Available != nil {
		product.Available = *input.Available
	}
}

// IsNotFound reports whether err means the requested catalog entry does not
// exist or is not available.
func IsNotFound(err error) bool {
	return errors.Is(err, repository.ErrProductNotFound) || errors.Is(err, repository.ErrCategoryNotFound)
}
