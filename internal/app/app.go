// Package app wires the application's dependencies and HTTP routes.
package app

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/uncovercity/BistroHunter/internal/airtable"
	"github.com/uncovercity/BistroHunter/internal/cache"
	"github.com/uncovercity/BistroHunter/internal/config"
	"github.com/uncovercity/BistroHunter/internal/extract"
	"github.com/uncovercity/BistroHunter/internal/geocode"
	"github.com/uncovercity/BistroHunter/internal/handler"
	"github.com/uncovercity/BistroHunter/internal/middleware"
	"github.com/uncovercity/BistroHunter/internal/notify"
	"github.com/uncovercity/BistroHunter/internal/search"
)

// requestTimeout bounds one whole request, expansion loop included.
const requestTimeout = 15 * time.Second

// App holds the application-level dependencies.
type App struct {
	Router *gin.Engine
	cfg    *config.Config
}

// New initializes the application: builds the shared cache, the external
// clients with their cache-aside decorators, the search service, and the HTTP
// engine with all routes.
func New(cfg *config.Config) (*App, error) {
	// --- Shared TTL cache ---
	ttlCache := cache.New(cache.DefaultTTL, cache.DefaultMaxEntries)

	// --- External clients ---
	store := airtable.NewCachedLister(
		airtable.NewClient(cfg.AirtableBaseID, cfg.AirtablePAT),
		ttlCache,
	)
	geocoder := geocode.NewCachedGeocoder(
		geocode.NewGoogleGeocoder(cfg.GoogleMapsAPIKey),
		ttlCache,
	)
	extractor := extract.NewOpenAIExtractor(cfg.OpenAIAPIKey)
	notifier := notify.NewWebhookNotifier(cfg.WebhookURL)

	// --- Domain service ---
	searchService := search.NewService(store, search.NewResolver(geocoder), ttlCache)

	// --- HTTP engine ---
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Timeout(requestTimeout))

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	h := handler.New(searchService, extractor, notifier)
	router.GET("/", h.Root)
	router.GET("/api/getRestaurants", h.GetRestaurants)
	router.POST("/procesar-variables", h.ProcessVariables)

	return &App{
		Router: router,
		cfg:    cfg,
	}, nil
}
