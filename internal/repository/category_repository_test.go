package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"pickbetter-shop/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createCategory(t *testing.T, repo CategoryRepository, name, slug string, parent *domain.Category) *domain.Category {
	t.Helper()

	var parentID *uuid.UUID
	if parent != nil {
		parentID = &parent.ID
	}

	category := domain.NewCategory(name, parentID)
	category.Slug = slug
	require.NoError(t, repo.Create(context.Background(), category))
	return category
}

func TestCategoryRepository_CreateAndFind(t *testing.T) {
	resetCatalog(t)
	repo := NewCategoryRepository(testDB)
	ctx := context.Background()

	phones := createCategory(t, repo, "Phones", "phones", nil)
	android := createCategory(t, repo, "Android", "android", phones)

	found, err := repo.FindByID(ctx, android.ID)
	require.NoError(t, err)
	assert.Equal(t, "Android", found.Name)
	assert.Equal(t, "android", found.Slug)
	require.NotNil(t, found.ParentID)
	assert.Equal(t, phones.ID, *found.ParentID)
	assert.WithinDuration(t, android.CreatedAt, found.CreatedAt, time.Millisecond)

	found, err = repo.FindBySlug(ctx, "phones")
	require.NoError(t, err)
	assert.Equal(t, phones.ID, found.ID)
	assert.Nil(t, found.ParentID)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrCategoryNotFound)

	_, err = repo.FindBySlug(ctx, "nope")
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestCategoryRepository_ListRootsInCreationOrder(t *testing.T) {
	resetCatalog(t)
	repo := NewCategoryRepository(testDB)

	laptops := createCategory(t, repo, "Laptops", "laptops", nil)
	phones := createCategory(t, repo, "Phones", "phones", nil)
	createCategory(t, repo, "Android", "android", phones)
	audio := createCategory(t, repo, "Audio", "audio", nil)

	roots, err := repo.ListRoots(context.Background())
	require.NoError(t, err)

	ids := make([]uuid.UUID, 0, len(roots))
	for _, c := range roots {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []uuid.UUID{laptops.ID, phones.ID, audio.ID}, ids)
}

func TestCategoryRepository_SlugUniqueAmongSiblings(t *testing.T) {
	resetCatalog(t)
	repo := NewCategoryRepository(testDB)
	ctx := context.Background()

	phones := createCategory(t, repo, "Phones", "phones", nil)

	duplicateRoot := domain.NewCategory("Phones again", nil)
	duplicateRoot.Slug = "phones"
	err := repo.Create(ctx, duplicateRoot)
	assert.ErrorIs(t, err, ErrCategorySlugTaken)

	android := createCategory(t, repo, "Android", "android", phones)

	duplicateChild := domain.NewCategory("Android copy", &phones.ID)
	duplicateChild.Slug = "android"
	err = repo.Create(ctx, duplicateChild)
	assert.ErrorIs(t, err, ErrCategorySlugTaken)

	// The same slug under another parent is fine
	tablets := createCategory(t, repo, "Tablets", "tablets", nil)
	tabletAndroid := createCategory(t, repo, "Android", "android", tablets)

	found, err := repo.FindBySlug(ctx, "android")
	require.NoError(t, err)
	assert.Equal(t, android.ID, found.ID, "oldest category wins a shared slug")
	assert.NotEqual(t, tabletAndroid.ID, found.ID)
}

func TestCategoryRepository_UnknownParent(t *testing.T) {
	resetCatalog(t)
	repo := NewCategoryRepository(testDB)

	missing := uuid.New()
	orphan := domain.NewCategory("Orphan", &missing)
	orphan.Slug = "orphan"

	err := repo.Create(context.Background(), orphan)
	assert.ErrorIs(t, err, ErrParentCategoryNotFound)
}

func TestCategoryRepository_Update(t *testing.T) {
	resetCatalog(t)
	repo := NewCategoryRepository(testDB)
	ctx := context.Background()

	phones := createCategory(t, repo, "Phones", "phones", nil)
	createCategory(t, repo, "Tablets", "tablets", nil)

	phones.Name = "Mobile phones"
	phones.Slug = "mobile-phones"
	require.NoError(t, repo.Update(ctx, phones))

	found, err := repo.FindByID(ctx, phones.ID)
	require.NoError(t, err)
	assert.Equal(t, "Mobile phones", found.Name)
	assert.Equal(t, "mobile-phones", found.Slug)

	phones.Slug = "tablets"
	assert.ErrorIs(t, repo.Update(ctx, phones), ErrCategorySlugTaken)

	ghost := domain.NewCategory("Ghost", nil)
	ghost.Slug = "ghost"
	assert.ErrorIs(t, repo.Update(ctx, ghost), ErrCategoryNotFound)
}

func TestCategoryRepository_ListAncestors(t *testing.T) {
	resetCatalog(t)
	repo := NewCategoryRepository(testDB)
	ctx := context.Background()

	electronics := createCategory(t, repo, "Electronics", "electronics", nil)
	phones := createCategory(t, repo, "Phones", "phones", electronics)
	android := createCategory(t, repo, "Android", "android", phones)

	ancestors, err := repo.ListAncestors(ctx, android.ID)
	require.NoError(t, err)
	require.Len(t, ancestors, 3)
	assert.Equal(t, android.ID, ancestors[0].ID)
	assert.Equal(t, phones.ID, ancestors[1].ID)
	assert.Equal(t, electronics.ID, ancestors[2].ID)

	path, err := domain.NewCategoryTree(ancestors).Display(android.ID)
	require.NoError(t, err)
	assert.Equal(t, "Electronics > Phones > Android", path)

	ancestors, err = repo.ListAncestors(ctx, electronics.ID)
	require.NoError(t, err)
	require.Len(t, ancestors, 1)

	_, err = repo.ListAncestors(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestCategoryRepository_ListAncestorsDeepChain(t *testing.T) {
	resetCatalog(t)
	repo := NewCategoryRepository(testDB)

	const depth = 100
	var parent *domain.Category
	names := make([]string, 0, depth)
	for i := 0; i < depth; i++ {
		name := fmt.Sprintf("Level %d", i)
		parent = createCategory(t, repo, name, fmt.Sprintf("level-%d", i), parent)
		names = append(names, name)
	}

	ancestors, err := repo.ListAncestors(context.Background(), parent.ID)
	require.NoError(t, err)
	require.Len(t, ancestors, depth)
	assert.Equal(t, "Level 0", ancestors[depth-1].Name)

	path, err := domain.NewCategoryTree(ancestors).Display(parent.ID)
	require.NoError(t, err)
	assert.Equal(t, strings.Join(names, domain.PathSeparator), path)
}

func TestCategoryRepository_ListAncestorsStopsOnCycle(t *testing.T) {
	resetCatalog(t)
	repo := NewCategoryRepository(testDB)
	ctx := context.Background()

	a := createCategory(t, repo, "A", "a", nil)
	b := createCategory(t, repo, "B", "b", a)

	a.ParentID = &b.ID
	require.NoError(t, repo.Update(ctx, a))

	ancestors, err := repo.ListAncestors(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, ancestors, 2)
	assert.Equal(t, b.ID, ancestors[0].ID)
	assert.Equal(t, a.ID, ancestors[1].ID)

	_, err = domain.NewCategoryTree(ancestors).AncestorPath(b.ID)
	assert.ErrorIs(t, err, domain.ErrCategoryCycle)
}

func TestCategoryRepository_DeleteCascades(t *testing.T) {
	resetCatalog(t)
	categories := NewCategoryRepository(testDB)
	products := NewProductRepository(testDB)
	ctx := context.Background()

	phones := createCategory(t, categories, "Phones", "phones", nil)
	android := createCategory(t, categories, "Android", "android", phones)
	pixel := createProduct(t, products, android, "Pixel", "pixel", "499.00", true)

	require.NoError(t, categories.Delete(ctx, phones.ID))

	_, err := categories.FindByID(ctx, android.ID)
	assert.ErrorIs(t, err, ErrCategoryNotFound)

	_, err = products.FindByID(ctx, pixel.ID)
	assert.ErrorIs(t, err, ErrProductNotFound)

	assert.ErrorIs(t, categories.Delete(ctx, phones.ID), ErrCategoryNotFound)
}

func TestCategoryRepository_GeneratedSlugForLongNameFits(t *testing.T) {
	resetCatalog(t)
	repo := NewCategoryRepository(testDB)

	category := domain.NewCategory(strings.Repeat("a", 250), nil)
	category.EnsureSlug()

	require.NoError(t, repo.Create(context.Background(), category))

	found, err := repo.FindBySlug(context.Background(), category.Slug)
	require.NoError(t, err)
	assert.Equal(t, category.ID, found.ID)
}
