// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, webhook verification, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/tbourn/go-credit-backend/internal/config"
	"github.com/tbourn/go-credit-backend/internal/http/handlers"
	"github.com/tbourn/go-credit-backend/internal/http/middleware"
	"github.com/tbourn/go-credit-backend/internal/repo"
	"github.com/tbourn/go-credit-backend/internal/services"
	"github.com/tbourn/go-credit-backend/internal/shopify"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), rate limiting, CORS
// and security headers, health and metrics endpoints, and then mounts the
// versioned public API under /api/v* plus the Shopify webhook surface under
// /webhooks.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Rate limiter (per shop/IP; verified webhooks bypass)
//  8. CORS and Security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, log zerolog.Logger, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{
			"X-API-Key", // project-specific sensitive header example
		},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Token-bucket rate limiter per shop/IP. Mounted per group below:
	// webhook deliveries must verify first so IsRateBypass can skip them.
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByShopOrIP())

	// 8) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Swagger UI (docs only; never enabled by default)
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db/gateway
	gateway := shopify.NewGateway(shopify.NewClient(cfg.Shopify.APIVersion))
	gateway.Client.HTTPClient.Timeout = cfg.Shopify.Timeout

	shopSvc := &services.ShopService{DB: db}
	campSvc := &services.CampaignService{DB: db}
	creditSvc := &services.CreditService{DB: db}
	ingestSvc := &services.IngestService{DB: db}
	reconSvc := services.NewReconcileService(db, gateway, log)
	reconSvc.BatchSize = cfg.Reconciler.BatchSize
	reconSvc.StaleAfter = cfg.Reconciler.StaleAfter
	if cfg.Reconciler.Pace > 0 {
		reconSvc.Limiter = rate.NewLimiter(rate.Every(cfg.Reconciler.Pace), 1)
	} else {
		reconSvc.Limiter = rate.NewLimiter(rate.Inf, 1)
	}
	gdprSvc := &services.GDPRService{DB: db, Log: log}

	h := handlers.New(shopSvc, campSvc, creditSvc, ingestSvc, reconSvc, gdprSvc)

	// Public API (gzip on responses; credit listings compress well)
	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	api := groupWithPrefix(r, apiBase)
	api.Use(rl.Handler())
	api.Use(gzip.Gzip(gzip.DefaultCompression))
	{
		// Shops
		api.POST("/shops", h.RegisterShop)
		api.GET("/shops", h.ListShops)
		api.GET("/shops/:id", h.GetShop)

		// Campaigns
		api.POST("/shops/:id/campaigns", h.CreateCampaign)
		api.GET("/shops/:id/campaigns", h.ListCampaigns)
		api.GET("/shops/:id/campaigns/:campaignID", h.GetCampaign)
		api.DELETE("/shops/:id/campaigns/:campaignID", h.DeleteCampaign)

		// Credits
		api.POST("/shops/:id/credits", h.IngestCredits)
		api.GET("/shops/:id/credits", h.ListCredits)
		api.GET("/shops/:id/credits/stats", h.CreditStats)
		api.GET("/shops/:id/credits/:creditID", h.GetCredit)
		api.POST("/shops/:id/credits/:creditID/retry", h.RetryCredit)

		// Reconciliation
		api.POST("/shops/:id/reconcile", h.Reconcile)

		// GDPR export (operator-facing)
		api.GET("/shops/:id/customers/:email/export", h.ExportCustomerData)
	}

	// Shopify webhooks: HMAC-verified, deduplicated on delivery id
	dedup := func(ctx context.Context, webhookID, shopDomain, topic string) (bool, error) {
		_, err := repo.RecordWebhookDelivery(ctx, db, webhookID, shopDomain, topic)
		if errors.Is(err, repo.ErrDuplicate) {
			return true, nil
		}
		return false, err
	}
	wh := r.Group("/webhooks", middleware.VerifyWebhook(cfg.Shopify.APISecret, dedup), rl.Handler())
	{
		wh.POST("/customers/data_request", h.CustomersDataRequest)
		wh.POST("/customers/redact", h.CustomersRedact)
		wh.POST("/shop/redact", h.ShopRedact)
		wh.POST("/app/uninstalled", h.AppUninstalled)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
