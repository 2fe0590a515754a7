package app

import (
	"fmt"
	"log"
	"time"

	"github.com/8r4qrb7kh2-lgtm/cle-allergy-aware-sub000/config"
	"github.com/8r4qrb7kh2-lgtm/cle-allergy-aware-sub000/internal/domain"
	"github.com/8r4qrb7kh2-lgtm/cle-allergy-aware-sub000/internal/infrastructure/cache"
	"github.com/8r4qrb7kh2-lgtm/cle-allergy-aware-sub000/internal/infrastructure/fetcher"
	"github.com/8r4qrb7kh2-lgtm/cle-allergy-aware-sub000/internal/infrastructure/reasoning"
	"github.com/8r4qrb7kh2-lgtm/cle-allergy-aware-sub000/internal/infrastructure/search"
	"github.com/8r4qrb7kh2-lgtm/cle-allergy-aware-sub000/internal/infrastructure/usda"
	"github.com/8r4qrb7kh2-lgtm/cle-allergy-aware-sub000/internal/usecase"
)

// App is the fully wired verification engine shared by the server and CLI
type App struct {
	Verifier *usecase.VerificationService

	usdaCache *cache.MemoryCache[domain.Source]
}

// New wires infrastructure and usecases from configuration
func New(cfg *config.Config) (*App, error) {
	debug := cfg.Verification.Debug

	// Initialize infrastructure dependencies
	reasoningClient, err := reasoning.NewClient(reasoning.Config{
		APIKey:             cfg.Reasoning.APIKey,
		BaseURL:            cfg.Reasoning.BaseURL,
		Model:              cfg.Reasoning.Model,
		SearchModel:        cfg.Reasoning.SearchModel,
		Timeout:            cfg.Reasoning.Timeout,
		RequestsPerMinute:  cfg.Reasoning.RequestsPerMinute,
		EnableDebugLogging: debug,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create reasoning client: %w", err)
	}

	var searchProvider domain.SearchProvider = reasoningClient
	if cfg.Search.Provider == config.SearchProviderJina {
		searchProvider = search.NewJinaClient(search.Config{
			APIKey:             cfg.Search.APIKey,
			BaseURL:            cfg.Search.BaseURL,
			Timeout:            cfg.Search.Timeout,
			EnableDebugLogging: debug,
		})
	}
	log.Printf("Search provider: %s (%s)", cfg.Search.Provider, searchProvider.Method())

	pageFetcher := fetcher.New(fetcher.Config{
		Timeout:            cfg.Fetcher.Timeout,
		UserAgent:          cfg.Fetcher.UserAgent,
		SoftBlockMinLength: cfg.Fetcher.SoftBlockMinLength,
		EnableDebugLogging: debug,
	})

	a := &App{}

	var database domain.DatabaseSource
	if cfg.USDA.Enabled() {
		usdaClient := usda.NewClient(cfg.USDA.APIKey, cfg.USDA.BaseURL)
		usdaClient.SetDebug(debug)
		database = usdaClient
		if cfg.USDA.CacheTTL > 0 {
			a.usdaCache = cache.NewMemoryCache[domain.Source](time.Hour)
			database = usda.NewCachedSource(usdaClient, a.usdaCache, cfg.USDA.CacheTTL)
		}
		log.Printf("USDA database source configured: %s (cache TTL %s)", cfg.USDA.BaseURL, cfg.USDA.CacheTTL)
	} else {
		log.Printf("USDA database source disabled (no API key)")
	}

	// Initialize usecase layer
	inferencer, err := usecase.NewAllergenInferencer(debug)
	if err != nil {
		return nil, fmt.Errorf("failed to load allergen lexicon: %w", err)
	}

	matcher := usecase.NewSimilarityMatcher(usecase.SimilarityConfig{
		ShortListWordLimit: cfg.Similarity.ShortListWordLimit,
		ShortListThreshold: cfg.Similarity.ShortListThreshold,
		LongListThreshold:  cfg.Similarity.LongListThreshold,
		EnableDebugLogging: debug,
	})
	grouper := usecase.NewConsensusGrouper(matcher, reasoningClient, debug)

	locator := usecase.NewSourceLocator(searchProvider, usecase.LocatorConfig{
		MaxCandidatesPerRetailer: cfg.Verification.MaxCandidatesPerRetailer,
		EnableDebugLogging:       debug,
	})
	pipeline := usecase.NewSourcePipeline(
		locator,
		pageFetcher,
		usecase.NewVerbatimExtractor(debug),
		usecase.NewAssistedExtractor(reasoningClient, debug),
		usecase.NewExtractionValidator(debug),
		inferencer,
		usecase.PipelineConfig{
			Retailers:          cfg.Verification.Retailers,
			MaxBatches:         cfg.Verification.MaxBatches,
			EnableDebugLogging: debug,
		},
	)

	a.Verifier = usecase.NewVerificationService(pipeline, grouper, matcher, inferencer, database, usecase.VerificationConfig{
		Policy: usecase.EscalationPolicy{
			Phase1Target: cfg.Verification.Phase1Target,
			Phase2Extra:  cfg.Verification.Phase2Extra,
		},
		OverallTimeout:     cfg.Verification.OverallTimeout,
		DatabaseTimeout:    cfg.Verification.DatabaseTimeout,
		EnableDebugLogging: debug,
	})

	log.Printf("Verification: phase1=%d, phase2=+%d, timeout=%s, debug=%v",
		cfg.Verification.Phase1Target, cfg.Verification.Phase2Extra,
		cfg.Verification.OverallTimeout, debug)

	return a, nil
}

// Close releases background resources
func (a *App) Close() {
	if a.usdaCache != nil {
		a.usdaCache.Close()
	}
}
