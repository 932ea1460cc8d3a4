package transport

import (
	"context"
	"errors"
	"net/http"

	"pickbetter-shop/internal/domain"
	"pickbetter-shop/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Page templates
const (
	ProductsTemplate      = "products.html"
	ProductDetailTemplate = "product_detail.html"
	CategoryListTemplate  = "category_list.html"
	NotFoundTemplate      = "404.html"
)

// slugParam restricts slug path segments to letters, digits, underscores
// and hyphens; anything else never reaches a handler.
const slugParam = "{slug:[-a-zA-Z0-9_]+}"

// Renderer turns a template name and page data into an HTML response
type Renderer interface {
	Render(w http.ResponseWriter, status int, name string, data interface{}) error
}

// ProductView is a product together with its public image URL
type ProductView struct {
	*domain.Product
	ImageURL string
}

// PageData is the data every page template receives. Categories holds the
// root categories for the navigation; the other fields are page specific.
type PageData struct {
	Categories   []*domain.Category
	Products     []ProductView
	Product      *ProductView
	Category     *domain.Category
	CategoryPath string
}

// CatalogHandler handles the storefront pages
type CatalogHandler struct {
	catalogService service.CatalogService
	renderer       Renderer
	logger         *zap.Logger
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(catalogService service.CatalogService, renderer Renderer, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalogService: catalogService,
		renderer:       renderer,
		logger:         logger,
	}
}

// RegisterRoutes registers the storefront routes. Static segments win over
// the slug pattern, so /search/... never resolves as a product.
func (h *CatalogHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.ListProducts)
	r.Get("/search/"+slugParam+"/", h.CategoryList)
	r.Get("/"+slugParam+"/", h.ProductDetail)
	r.NotFound(h.NotFound)
}

// ListProducts renders every available product
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	page, err := h.newPage(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	products, err := h.catalogService.ListAvailableProducts(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	page.Products = h.productViews(products)

	h.render(w, r, http.StatusOK, ProductsTemplate, page)
}

// ProductDetail renders a single available product
func (h *CatalogHandler) ProductDetail(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	page, err := h.newPage(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	product, err := h.catalogService.GetProductBySlug(r.Context(), slug)
	if err != nil {
		if service.IsNotFound(err) {
			h.logger.Debug("Product not found", zap.String("slug", slug))
			h.notFound(w, r, page)
			return
		}
		h.serverError(w, r, err)
		return
	}

	view := h.productView(product)
	page.Product = &view

	h.render(w, r, http.StatusOK, ProductDetailTemplate, page)
}

// CategoryList renders a category and the available products assigned to it
func (h *CatalogHandler) CategoryList(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	page, err := h.newPage(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	category, products, err := h.catalogService.ListProductsByCategory(r.Context(), slug)
	if err != nil {
		if service.IsNotFound(err) {
			h.logger.Debug("Category not found", zap.String("slug", slug))
			h.notFound(w, r, page)
			return
		}
		h.serverError(w, r, err)
		return
	}

	path, err := h.catalogService.CategoryPath(r.Context(), category.ID)
	if err != nil {
		if !errors.Is(err, domain.ErrCategoryCycle) {
			h.serverError(w, r, err)
			return
		}
		h.logger.Warn("Category parent chain is cyclic", zap.String("category_id", category.ID.String()))
		path = category.Name
	}

	page.Category = category
	page.CategoryPath = path
	page.Products = h.productViews(products)

	h.render(w, r, http.StatusOK, CategoryListTemplate, page)
}

// NotFound renders the 404 page for paths that match no route
func (h *CatalogHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	page, err := h.newPage(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.notFound(w, r, page)
}

// newPage starts the page data with the navigation categories
func (h *CatalogHandler) newPage(ctx context.Context) (*PageData, error) {
	categories, err := h.catalogService.RootCategories(ctx)
	if err != nil {
		return nil, err
	}
	return &PageData{Categories: categories}, nil
}

func (h *CatalogHandler) productView(product *domain.Product) ProductView {
	return ProductView{Product: product, ImageURL: h.catalogService.ImageURL(product)}
}

func (h *CatalogHandler) productViews(products []*domain.Product) []ProductView {
	views := make([]ProductView, 0, len(products))
	for _, p := range products {
		views = append(views, h.productView(p))
	}
	return views
}

func (h *CatalogHandler) render(w http.ResponseWriter, r *http.Request, status int, name string, page *PageData) {
	if err := h.renderer.Render(w, status, name, page); err != nil {
		h.serverError(w, r, err)
	}
}

func (h *CatalogHandler) notFound(w http.ResponseWriter, r *http.Request, page *PageData) {
	if err := h.renderer.Render(w, http.StatusNotFound, NotFoundTemplate, page); err != nil {
		h.logger.Error("Failed to render not found page", zap.Error(err))
		http.NotFound(w, r)
	}
}

func (h *CatalogHandler) serverError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error("Failed to serve page",
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
