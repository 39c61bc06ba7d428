package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"materials-viewer/internal/common/config"
	"materials-viewer/internal/common/middleware"
	"materials-viewer/internal/gateway/handlers"
	"materials-viewer/internal/gateway/proxy"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
)

// ============================================================
// API Gateway
// ============================================================

func main() {
	cfg := config.Load()

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		AppName:      "API Gateway",
	})

	// ============================================================
	// Global Middleware
	// ============================================================

	app.Use(recover.New())
	app.Use(middleware.Logger())
	app.Use(middleware.CORS())

	// ============================================================
	// Health Check & Docs Routes
	// ============================================================

	app.Get("/health/live", handlers.LivenessProbe)
	app.Get("/health/ready", handlers.ReadinessProbe)
	app.Get("/health/startup", handlers.StartupProbe)
	app.Get("/docs/openapi.yaml", handlers.OpenAPISpec)
	app.Get("/docs", handlers.SwaggerUI)

	// ============================================================
	// API Routes
	// ============================================================

	api := app.Group("/api/v1")

	api.Get("/", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Materials Viewer API v1",
			"status":  "ok",
		})
	})

	// ============================================================
	// Service Routes (Proxy)
	// ============================================================

	// Materials Service
	materialsURL := getEnv("MATERIALS_URL", "http://localhost:3001")
	api.Post("/upload", proxy.ProxyTo(materialsURL+"/upload"))
	api.Get("/summary/:id", func(c fiber.Ctx) error {
		return proxy.Forward(c, fmt.Sprintf("%s/summary/%s?%s", materialsURL, c.Params("id"), c.Request().URI().QueryString()))
	})
	api.Get("/export/:id", func(c fiber.Ctx) error {
		return proxy.Forward(c, fmt.Sprintf("%s/export/%s?%s", materialsURL, c.Params("id"), c.Request().URI().QueryString()))
	})
	api.Get("/model/:id", func(c fiber.Ctx) error {
		return proxy.Forward(c, fmt.Sprintf("%s/model/%s", materialsURL, c.Params("id")))
	})
	api.Get("/model/:id/ids", func(c fiber.Ctx) error {
		return proxy.Forward(c, fmt.Sprintf("%s/model/%s/ids", materialsURL, c.Params("id")))
	})

	// Viewer sessions speak websocket directly to the viewer service;
	// the gateway only advertises where.
	viewerURL := getEnv("VIEWER_URL", "http://localhost:3002")
	api.Get("/viewer", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"websocket": viewerURL + "/ws"})
	})

	// ============================================================
	// Server Start
	// ============================================================

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Printf("Starting API Gateway on %s (env: %s)", addr, cfg.Environment)
	log.Printf("Proxying /upload to %s", materialsURL)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}
