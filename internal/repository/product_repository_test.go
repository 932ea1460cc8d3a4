package repository

import (
	"context"
	"testing"
	"time"

	"pickbetter-shop/internal/domain"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createProduct(t *testing.T, repo ProductRepository, category *domain.Category, title, slug, price string, available bool) *domain.Product {
	t.Helper()

	product := domain.NewProduct(category.ID, title)
	product.Slug = slug
	product.Price = decimal.RequireFromString(price)
	product.Available = available
	require.NoError(t, repo.Create(context.Background(), product))
	return product
}

func productIDs(products []*domain.Product) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	return ids
}

func TestProductRepository_CreateAndFindByID(t *testing.T) {
	resetCatalog(t)
	categories := NewCategoryRepository(testDB)
	products := NewProductRepository(testDB)
	ctx := context.Background()

	phones := createCategory(t, categories, "Phones", "phones", nil)

	product := domain.NewProduct(phones.ID, "Pixel 9")
	product.Brand = "Google"
	product.Description = "A phone"
	product.Slug = "pixel-9"
	product.Price = decimal.RequireFromString("799.99")
	product.Image = "products/products/2024/05/01/pixel.jpg"
	require.NoError(t, products.Create(ctx, product))

	found, err := products.FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, phones.ID, found.CategoryID)
	assert.Equal(t, "Pixel 9", found.Title)
	assert.Equal(t, "Google", found.Brand)
	assert.Equal(t, "A phone", found.Description)
	assert.Equal(t, "pixel-9", found.Slug)
	assert.True(t, found.Price.Equal(decimal.RequireFromString("799.99")), found.Price.String())
	assert.Equal(t, "products/products/2024/05/01/pixel.jpg", found.Image)
	assert.True(t, found.Available)
	assert.Nil(t, found.Category)

	_, err = products.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestProductRepository_DefaultsAndPriceRounding(t *testing.T) {
	resetCatalog(t)
	categories := NewCategoryRepository(testDB)
	products := NewProductRepository(testDB)
	ctx := context.Background()

	phones := createCategory(t, categories, "Phones", "phones", nil)

	// Columns left out of the insert take the table defaults
	id := uuid.Must(uuid.NewV7())
	_, err := testDB.ExecContext(ctx, `INSERT INTO products (id, category_id, title) VALUES ($1, $2, $3)`, id, phones.ID, "Bare")
	require.NoError(t, err)

	found, err := products.FindByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, found.Price.IsZero())
	assert.True(t, found.Available)
	assert.Empty(t, found.Slug)
	assert.Empty(t, found.Image)

	rounded := createProduct(t, products, phones, "Rounded", "rounded", "10.005", true)
	found, err = products.FindByID(ctx, rounded.ID)
	require.NoError(t, err)
	assert.Equal(t, "10.01", found.Price.StringFixed(2))
}

func TestProductRepository_UnknownCategory(t *testing.T) {
	resetCatalog(t)
	products := NewProductRepository(testDB)

	err := products.Create(context.Background(), domain.NewProduct(uuid.New(), "Lost"))
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestProductRepository_ListAvailable(t *testing.T) {
	resetCatalog(t)
	categories := NewCategoryRepository(testDB)
	products := NewProductRepository(testDB)

	phones := createCategory(t, categories, "Phones", "phones", nil)
	laptops := createCategory(t, categories, "Laptops", "laptops", nil)

	a := createProduct(t, products, phones, "A", "a", "1.00", true)
	createProduct(t, products, phones, "Hidden", "hidden", "2.00", false)
	b := createProduct(t, products, laptops, "B", "b", "3.00", true)
	c := createProduct(t, products, phones, "C", "c", "4.00", true)

	listed, err := products.ListAvailable(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a.ID, b.ID, c.ID}, productIDs(listed))
}

func TestProductRepository_ListAvailableEmpty(t *testing.T) {
	resetCatalog(t)
	products := NewProductRepository(testDB)

	listed, err := products.ListAvailable(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, listed)
	assert.Empty(t, listed)
}

func TestProductRepository_FindAvailableBySlug(t *testing.T) {
	resetCatalog(t)
	categories := NewCategoryRepository(testDB)
	products := NewProductRepository(testDB)
	ctx := context.Background()

	phones := createCategory(t, categories, "Phones", "phones", nil)
	createProduct(t, products, phones, "Old phone", "old-phone", "10.00", false)
	first := createProduct(t, products, phones, "Pixel", "pixel", "500.00", true)
	createProduct(t, products, phones, "Pixel again", "pixel", "600.00", true)

	_, err := products.FindAvailableBySlug(ctx, "old-phone")
	assert.ErrorIs(t, err, ErrProductNotFound)

	found, err := products.FindAvailableBySlug(ctx, "pixel")
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID, "oldest product wins a shared slug")

	_, err = products.FindAvailableBySlug(ctx, "missing")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestProductRepository_ListAvailableByCategory(t *testing.T) {
	resetCatalog(t)
	categories := NewCategoryRepository(testDB)
	products := NewProductRepository(testDB)
	ctx := context.Background()

	phones := createCategory(t, categories, "Phones", "phones", nil)
	android := createCategory(t, categories, "Android", "android", phones)

	direct := createProduct(t, products, phones, "Feature phone", "feature-phone", "20.00", true)
	createProduct(t, products, phones, "Retired", "retired", "5.00", false)
	createProduct(t, products, android, "Pixel", "pixel", "500.00", true)

	listed, err := products.ListAvailableByCategory(ctx, phones.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1, "products of subcategories are not included")
	assert.Equal(t, direct.ID, listed[0].ID)
	require.NotNil(t, listed[0].Category)
	assert.Equal(t, phones.ID, listed[0].Category.ID)
	assert.Equal(t, "Phones", listed[0].Category.Name)
	assert.Nil(t, listed[0].Category.ParentID)

	listed, err = products.ListAvailableByCategory(ctx, android.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.NotNil(t, listed[0].Category.ParentID)
	assert.Equal(t, phones.ID, *listed[0].Category.ParentID)
}

func TestProductRepository_Update(t *testing.T) {
	resetCatalog(t)
	categories := NewCategoryRepository(testDB)
	products := NewProductRepository(testDB)
	ctx := context.Background()

	phones := createCategory(t, categories, "Phones", "phones", nil)
	laptops := createCategory(t, categories, "Laptops", "laptops", nil)

	product := domain.NewProduct(phones.ID, "Pixel")
	product.UpdatedAt = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, products.Create(ctx, product))

	product.CategoryID = laptops.ID
	product.Title = "Chromebook"
	product.Price = decimal.RequireFromString("299.50")
	product.Available = false
	require.NoError(t, products.Update(ctx, product))
	assert.True(t, product.UpdatedAt.After(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)), "updated_at is refreshed on update")

	found, err := products.FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, laptops.ID, found.CategoryID)
	assert.Equal(t, "Chromebook", found.Title)
	assert.Equal(t, "299.50", found.Price.StringFixed(2))
	assert.False(t, found.Available)

	product.CategoryID = uuid.New()
	assert.ErrorIs(t, products.Update(ctx, product), ErrCategoryNotFound)

	assert.ErrorIs(t, products.Update(ctx, domain.NewProduct(phones.ID, "Ghost")), ErrProductNotFound)
}

func TestProductRepository_Delete(t *testing.T) {
	resetCatalog(t)
	categories := NewCategoryRepository(testDB)
	products := NewProductRepository(testDB)
	ctx := context.Background()

	phones := createCategory(t, categories, "Phones", "phones", nil)
	product := createProduct(t, products, phones, "Pixel", "pixel", "1.00", true)

	require.NoError(t, products.Delete(ctx, product.ID))
	assert.ErrorIs(t, products.Delete(ctx, product.ID), ErrProductNotFound)

	_, err := categories.FindByID(ctx, phones.ID)
	assert.NoError(t, err, "deleting a product leaves its category alone")
}

func TestProperty_ProductRoundTripPreservesAttributes(t *testing.T) {
	resetCatalog(t)
	categories := NewCategoryRepository(testDB)
	products := NewProductRepository(testDB)
	category := createCategory(t, categories, "Everything", "everything", nil)

	properties := gopter.NewProperties(nil)

	properties.Property("a stored product reads back unchanged", prop.ForAll(
		func(title, brand string, cents int64, available bool) bool {
			ctx := context.Background()

			product := domain.NewProduct(category.ID, title)
			product.Brand = brand
			product.Slug = domain.Slugify(title)
			product.Price = decimal.New(cents, -2)
			product.Available = available

			if err := products.Create(ctx, product); err != nil {
				t.Logf("create failed: %v", err)
				return false
			}

			found, err := products.FindByID(ctx, product.ID)
			if err != nil {
				t.Logf("find failed: %v", err)
				return false
			}

			return found.Title == product.Title &&
				found.Brand == product.Brand &&
				found.Slug == product.Slug &&
				found.Price.Equal(product.Price) &&
				found.Available == product.Available &&
				found.CategoryID == category.ID
		},
		gen.AlphaString().SuchThat(func(s string) bool { return len(s) > 0 && len(s) <= 250 }),
		gen.AlphaString().SuchThat(func(s string) bool { return len(s) <= 250 }),
		gen.Int64Range(0, 9999999),
		gen.Bool(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
