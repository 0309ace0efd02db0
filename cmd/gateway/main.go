package main

import (
	"fmt"
	"time"

	"drawing-viewer/internal/common/config"
	"drawing-viewer/internal/common/logger"
	"drawing-viewer/internal/common/middleware"
	"drawing-viewer/internal/gateway/handlers"
	"drawing-viewer/internal/gateway/proxy"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"go.uber.org/zap"
)

// ============================================================
// API Gateway
// ============================================================

func main() {
	cfg := config.Load()
	log := logger.New(cfg.LogFilePath, cfg.IsProduction())
	defer log.Sync()

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		BodyLimit:    cfg.BodyLimitMB * 1024 * 1024,
		AppName:      "API Gateway",
	})

	// ============================================================
	// Global Middleware
	// ============================================================

	app.Use(recover.New())
	app.Use(middleware.Logger())
	app.Use(middleware.CORS(cfg.CORSOrigins))

	viewer := proxy.New(cfg.ViewerURL, "/api/v1", time.Duration(cfg.WriteTimeout)*time.Second, log.Named("proxy"))

	// ============================================================
	// Health Check Routes
	// ============================================================

	app.Get("/health/live", handlers.LivenessProbe)
	app.Get("/health/ready", handlers.ReadinessProbe(map[string]handlers.Pinger{"viewer": viewer.Ping}))
	app.Get("/health/startup", handlers.StartupProbe)

	// ============================================================
	// Docs
	// ============================================================

	app.Get("/docs", handlers.SwaggerUI)
	app.Get("/docs/openapi.yaml", handlers.SwaggerSpec)

	// ============================================================
	// API Routes
	// ============================================================

	api := app.Group("/api/v1")

	api.Get("/", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Drawing Viewer API v1",
			"status":  "ok",
		})
	})

	// Viewer Service
	api.All("/*", viewer.Handler())

	// ============================================================
	// Server Start
	// ============================================================

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Info("starting api gateway", zap.String("addr", addr), zap.String("env", cfg.Environment))
	log.Info("proxying /api/v1", zap.String("upstream", cfg.ViewerURL))

	if err := app.Listen(addr); err != nil {
		log.Fatal("failed to start server", zap.Error(err))
	}
}
