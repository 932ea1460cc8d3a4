package server

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"pickbetter-shop/internal/config"
	"pickbetter-shop/internal/database"
	custommiddleware "pickbetter-shop/internal/middleware"
	"pickbetter-shop/internal/render"
	"pickbetter-shop/internal/repository"
	"pickbetter-shop/internal/service"
	"pickbetter-shop/internal/storage"
	"pickbetter-shop/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const rateLimitKeyPrefix = "storefront_rate_limit"

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	db     database.Service
	redis  *redis.Client
}

func NewServer(cfg *config.Config, logger *zap.Logger, db database.Service) (*Server, error) {
	images, err := storage.NewImageStorage(cfg.Media.Root, cfg.Media.URL, cfg.Media.MaxUploadMB)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize image storage: %w", err)
	}

	renderer, err := render.New()
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	var redisClient *redis.Client
	if cfg.RateLimit.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	// Initialize repositories
	categoryRepo := repository.NewCategoryRepository(db.DB())
	productRepo := repository.NewProductRepository(db.DB())

	// Initialize services
	catalogService := service.NewCatalogService(categoryRepo, productRepo, images)

	// Initialize handlers
	catalogHandler := transport.NewCatalogHandler(catalogService, renderer, logger)

	router := newRouter(cfg, logger, db, redisClient, images.Root())
	catalogHandler.RegisterRoutes(router)

	server := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config: cfg,
		logger: logger,
		db:     db,
		redis:  redisClient,
	}

	return server, nil
}

// newRouter builds the middleware stack and the infrastructure routes. Page
// routes are registered on top of it by the catalog handler.
func newRouter(cfg *config.Config, logger *zap.Logger, db database.Service, redisClient *redis.Client, mediaRoot string) chi.Router {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(middleware.Compress(5))
	router.Use(custommiddleware.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.Server.IsDevelopment()))

	if redisClient != nil {
		router.Use(custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimit.Requests,
			Window:            cfg.RateLimit.Window,
			KeyPrefix:         rateLimitKeyPrefix,
			ExemptPrefixes:    []string{"/health", cfg.Media.URL},
		}, logger))
	}

	router.Get("/health", healthHandler(db))

	if cfg.Media.URL != "/" {
		prefix := strings.TrimSuffix(cfg.Media.URL, "/")
		media := http.StripPrefix(cfg.Media.URL, http.FileServer(mediaFS{http.Dir(mediaRoot)}))
		router.Get(prefix+"/*", media.ServeHTTP)
	}

	return router
}

// healthHandler reports 503 while the database is unreachable
func healthHandler(db database.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dbHealth := db.Health()

		status := "ok"
		code := http.StatusOK
		if dbHealth["status"] != "up" {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		custommiddleware.RespondWithJSON(w, code, map[string]interface{}{
			"status":   status,
			"database": dbHealth,
		})
	}
}

// mediaFS serves uploaded files but never lists directories
type mediaFS struct {
	fs http.FileSystem
}

func (m mediaFS) Open(name string) (http.File, error) {
	f, err := m.fs.Open(name)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, os.ErrNotExist
	}

	return f, nil
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis client", zap.Error(err))
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
