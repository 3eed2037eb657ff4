// Package api builds the Gin HTTP surface of the yield engine.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/meridian-travel/yield/internal/api/handler"
	"github.com/meridian-travel/yield/internal/api/middleware"
	"github.com/meridian-travel/yield/internal/config"
	"github.com/meridian-travel/yield/internal/service"
)

// RouterDeps bundles every dependency needed to build the router.
// Populated once in main() and passed to SetupRouter.
type RouterDeps struct {
	AggregatorSvc *service.AggregatorService
	ScraperSvc    *service.ScraperService
	MatcherSvc    *service.MatcherService
	MarkupSvc     *service.MarkupService
	Cfg           *config.Config
}

// SetupRouter creates and configures the main Gin engine with all routes,
// middleware, CORS, and rate limiting rules.
func SetupRouter(deps RouterDeps) *gin.Engine {
	if deps.Cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	// ── CORS ─────────────────────────────────────────────────────────────────
	r.Use(corsMiddleware(deps.Cfg))

	// ── Health check ─────────────────────────────────────────────────────────
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ── Handlers ─────────────────────────────────────────────────────────────
	pricingH := handler.NewPricingHandler(deps.AggregatorSvc)
	scraperH := handler.NewScraperHandler(deps.ScraperSvc)
	matchH := handler.NewMatchHandler(deps.MatcherSvc)
	markupH := handler.NewMarkupHandler(deps.MarkupSvc)

	// ── Rate limiters ─────────────────────────────────────────────────────────
	// Aggregation fans out to live provider APIs and scraping drives a browser;
	// both are expensive, so their triggers get the tightest limits.
	aggregateRL := middleware.RateLimitMiddleware(5)
	scrapeRL := middleware.RateLimitMiddleware(1)

	api := r.Group("/api")
	{
		// ── Pricing ──────────────────────────────────────────────────────────
		pricing := api.Group("/pricing")
		{
			pricing.POST("/aggregate", aggregateRL, pricingH.Aggregate)
			pricing.GET("/history", pricingH.History)
		}

		// ── Scraper ──────────────────────────────────────────────────────────
		scraper := api.Group("/scraper")
		{
			scraper.POST("/sessions", scrapeRL, scraperH.StartSession)
			scraper.GET("/sessions", scraperH.ListSessions)
			scraper.GET("/prices", scraperH.LatestPrices)
		}

		// ── Hotel matches ────────────────────────────────────────────────────
		matches := api.Group("/matches")
		{
			matches.GET("", matchH.List)
			matches.POST("/:id/verify", matchH.Verify)
		}

		// ── Markup proposals ─────────────────────────────────────────────────
		proposals := api.Group("/proposals")
		{
			proposals.POST("", markupH.CreateProposal)
			proposals.GET("/pending", markupH.PendingProposals)
			proposals.POST("/:id/approve", markupH.Approve)
			proposals.POST("/:id/reject", markupH.Reject)
		}

		api.GET("/markup/history", markupH.History)

		// ── Settings ─────────────────────────────────────────────────────────
		api.GET("/settings", markupH.GetSettings)
		api.PUT("/settings", markupH.UpdateSettings)
	}

	return r
}

// ── CORS helper ───────────────────────────────────────────────────────────────

// corsMiddleware returns a gin middleware that sets appropriate CORS headers.
// In development all origins are allowed; in production only the dashboard.
func corsMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		if !cfg.IsProd() {
			c.Header("Access-Control-Allow-Origin", "*")
		} else if origin != "" {
			allowed := map[string]bool{
				"https://meridian-travel.rs":     true,
				"https://www.meridian-travel.rs": true,
			}
			if allowed[origin] {
				c.Header("Access-Control-Allow-Origin", origin)
			}
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
