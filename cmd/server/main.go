package main

import (
	"fmt"
	"log"
	"os"

	"golang.org/x/time/rate"

	"github.com/8r4qrb7kh2-lgtm/cle-allergy-aware-sub000/config"
	"github.com/8r4qrb7kh2-lgtm/cle-allergy-aware-sub000/internal/app"
	httpDelivery "github.com/8r4qrb7kh2-lgtm/cle-allergy-aware-sub000/internal/delivery/http"
	"github.com/8r4qrb7kh2-lgtm/cle-allergy-aware-sub000/internal/infrastructure/cache"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting AllergyAware Backend v1.0.0")
	log.Printf("Environment: %s", cfg.Server.Environment)
	log.Printf("Port: %s", cfg.Server.Port)

	// Enable debug mode in development environment
	if cfg.Server.Environment == "development" {
		cfg.Verification.Debug = true
		log.Printf("Debug logging enabled")
	}

	log.Printf("Reasoning service configured: %s (model %s, key: %s...)",
		cfg.Reasoning.BaseURL, cfg.Reasoning.Model, keyPrefix(cfg.Reasoning.APIKey))

	// Initialize infrastructure and usecase layers
	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer application.Close()

	// Per-client limiters for the verification endpoint
	limiters := cache.NewMemoryCache[*rate.Limiter](0)
	defer limiters.Close()
	log.Printf("Rate limit: %d verifications/minute per client", cfg.RateLimit.PerIP)

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(application.Verifier)

	// Setup router
	router := httpDelivery.SetupRouter(cfg, handler, limiters)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("Server listening on %s", addr)

	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// keyPrefix shows enough of a key to tell configurations apart
func keyPrefix(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:8]
}

func init() {
	// Set log flags for better debugging
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.SetOutput(os.Stdout)
}
