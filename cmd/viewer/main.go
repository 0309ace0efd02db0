package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"drawing-viewer/internal/common/config"
	"drawing-viewer/internal/common/logger"
	"drawing-viewer/internal/common/middleware"
	"drawing-viewer/internal/viewer/annotation"
	"drawing-viewer/internal/viewer/handlers"
	"drawing-viewer/internal/viewer/models"
	"drawing-viewer/internal/viewer/repository"
	"drawing-viewer/internal/viewer/service"
	"drawing-viewer/internal/viewer/source"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"go.uber.org/zap"
)

// ============================================================
// Viewer Service
// ============================================================

func main() {
	cfg := config.Load()
	if os.Getenv("PORT") == "" {
		cfg.Port = "3003"
	}
	log := logger.New(cfg.LogFilePath, cfg.IsProduction())
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, closeBackend, err := openBackend(ctx, cfg)
	if err != nil {
		log.Fatal("open annotation store", zap.String("backend", cfg.StoreBackend), zap.Error(err))
	}
	defer closeBackend()

	queue := service.NewSaveQueue(backend, log.Named("queue"))
	if err := queue.Start(); err != nil {
		log.Fatal("start save queue", zap.Error(err))
	}

	rasterizer := source.NewPageRasterizer(cfg.PDFToPPMPath, log.Named("pdf"))
	sources := source.NewDefaultRegistry(source.NewPDFSource(cfg.PDFScale, rasterizer))

	viewer := service.NewViewer(
		ctx,
		service.NewRegistry(time.Duration(cfg.SessionTTLMinutes)*time.Minute),
		sources,
		backend,
		service.NewFileStorage(cfg.StorageRoot),
		queue,
		service.Options{
			Viewport:       models.Size{Width: float64(cfg.ViewportWidth), Height: float64(cfg.ViewportHeight)},
			ThumbnailWidth: cfg.ThumbnailWidth,
			Palette:        annotation.ParsePalette(cfg.IconPalette),
			IconSize:       float64(cfg.IconSize),
		},
		log.Named("viewer"),
	)
	viewerHandler := handlers.NewViewerHandler(viewer, log.Named("http"))

	app := fiber.New(fiber.Config{
		ReadTimeout:     time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout:    time.Duration(cfg.WriteTimeout) * time.Second,
		BodyLimit:       cfg.BodyLimitMB * 1024 * 1024,
		StructValidator: handlers.NewStructValidator(),
		AppName:         "Viewer Service",
	})

	// ============================================================
	// Global Middleware
	// ============================================================

	app.Use(recover.New())
	app.Use(middleware.Logger())
	app.Use(middleware.CORS(cfg.CORSOrigins))

	// ============================================================
	// Health Check Routes
	// ============================================================

	app.Get("/health/live", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "alive"})
	})

	app.Get("/health/ready", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ready"})
	})

	// ============================================================
	// Viewer Routes
	// ============================================================

	viewerHandler.Register(app)

	// ============================================================
	// Server Start
	// ============================================================

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		if err := app.Shutdown(); err != nil {
			log.Error("shutdown", zap.Error(err))
		}
	}()

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Info("starting viewer service",
		zap.String("addr", addr),
		zap.String("env", cfg.Environment),
		zap.String("viewer", viewer.Describe()),
	)

	if err := app.Listen(addr); err != nil {
		log.Error("server stopped", zap.Error(err))
	}

	if err := queue.Close(); err != nil {
		log.Error("close save queue", zap.Error(err))
	}
}

// openBackend выбирает хранилище аннотаций по STORE_BACKEND.
func openBackend(ctx context.Context, cfg *config.Config) (repository.Backend, func(), error) {
	switch cfg.StoreBackend {
	case "memory":
		return repository.NewMemory(), func() {}, nil

	case "redis":
		client, err := repository.OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewRedis(client), func() { _ = client.Close() }, nil

	case "sqlite", "":
		db, err := repository.OpenSQLite(cfg.DBPath)
		if err != nil {
			return nil, nil, err
		}
		repo := repository.New(db)
		if err := repo.Init(ctx, cfg.MigrationsPath); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return repo, closeDB(db), nil
	}
	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

func closeDB(db *sql.DB) func() {
	return func() { _ = db.Close() }
}
