package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"materials-viewer/internal/common/config"
	"materials-viewer/internal/common/middleware"
	"materials-viewer/internal/materials/handlers"
	"materials-viewer/internal/materials/repository"
	"materials-viewer/internal/materials/storage"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
)

// ============================================================
// Materials Service
// ============================================================

func main() {
	cfg := config.Load()
	if os.Getenv("PORT") == "" {
		cfg.Port = "3001"
	}

	db, err := repository.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	repo := repository.New(db)
	if err := repo.Init(context.Background(), "migrations/001_init_materials.sql"); err != nil {
		log.Fatalf("init db: %v", err)
	}

	store := storage.New(cfg.UploadsDir)
	if err := store.EnsureRoot(); err != nil {
		log.Fatalf("init uploads dir: %v", err)
	}

	handler := handlers.NewMaterialsHandler(repo, store, cfg.Density)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		AppName:      "Materials Service",
	})

	// ============================================================
	// Global Middleware
	// ============================================================

	app.Use(recover.New())
	app.Use(middleware.Logger())
	app.Use(middleware.CORS())

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
	// Materials Routes
	// ============================================================

	app.Post("/upload", handler.Upload)
	app.Get("/summary/:id", handler.Summary)
	app.Get("/export/:id", handler.Export)
	app.Get("/model/:id", handler.Model)
	app.Get("/model/:id/ids", handler.ModelIDs)

	// ============================================================
	// Server Start
	// ============================================================

	// Uploads are session-scoped: drop them when the service stops.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Printf("Shutting down, cleaning uploads")
		store.CleanupAll()
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Printf("Starting Materials Service on %s (env: %s)", addr, cfg.Environment)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
