package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"materials-viewer/internal/common/config"
	"materials-viewer/internal/viewer/handlers"
	"materials-viewer/internal/viewer/service"
)

// ============================================================
// Viewer Service
// ============================================================

func main() {
	cfg := config.Load()
	if os.Getenv("PORT") == "" {
		cfg.Port = "3002"
	}

	manager := service.NewSessionManager()
	client := handlers.NewMaterialsClient(cfg.MaterialsURL)
	ws := handlers.NewWSHandler(manager, client, cfg.Density)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", ws.Handle)
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "alive"})
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":   "ready",
			"sessions": manager.Count(),
		})
	})

	// Dispose every session (and with it the shared decoder worker) on
	// shutdown.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Printf("Shutting down, closing sessions")
		manager.CloseAll()
		os.Exit(0)
	}()

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Printf("Starting Viewer Service on %s (env: %s)", addr, cfg.Environment)
	log.Printf("Materials service at %s", cfg.MaterialsURL)

	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
