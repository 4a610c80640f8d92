// Command server runs the store-credit backend: the REST API, the Shopify
// webhook surface, and the background reconciliation scheduler.
//
//	@title			Store Credit Backend API
//	@version		1.0
//	@description	Bulk store-credit grants for Shopify shops with asynchronous reconciliation.
//	@BasePath		/api/v1
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	_ "github.com/tbourn/go-credit-backend/docs"
	"github.com/tbourn/go-credit-backend/internal/config"
	httpapi "github.com/tbourn/go-credit-backend/internal/http"
	"github.com/tbourn/go-credit-backend/internal/observability"
	"github.com/tbourn/go-credit-backend/internal/repo"
	"github.com/tbourn/go-credit-backend/internal/scheduler"
	"github.com/tbourn/go-credit-backend/internal/services"
	"github.com/tbourn/go-credit-backend/internal/shopify"
	"github.com/tbourn/go-credit-backend/internal/sysutil"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	var log zerolog.Logger
	if cfg.LogPretty {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	} else {
		log = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	log = log.With().Str("service", cfg.OTEL.ServiceName).Str("version", version).Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Tracing
	if cfg.OTEL.Enabled {
		shutdown, err := observability.SetupOTel(ctx, cfg.OTEL, version)
		if err != nil {
			log.Fatal().Err(err).Msg("otel setup failed")
		}
		defer func() {
			c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(c); err != nil {
				log.Warn().Err(err).Msg("otel shutdown failed")
			}
		}()
	}

	// Storage
	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate failed")
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()

	// Background reconciliation
	gateway := shopify.NewGateway(shopify.NewClient(cfg.Shopify.APIVersion))
	gateway.Client.HTTPClient.Timeout = cfg.Shopify.Timeout
	recon := services.NewReconcileService(db, gateway, log)
	recon.BatchSize = cfg.Reconciler.BatchSize
	recon.StaleAfter = cfg.Reconciler.StaleAfter
	if cfg.Reconciler.Pace > 0 {
		recon.Limiter = rate.NewLimiter(rate.Every(cfg.Reconciler.Pace), 1)
	}
	sched := &scheduler.Scheduler{
		DB:         db,
		Rec:        recon,
		Log:        log,
		Interval:   cfg.Reconciler.Interval,
		WebhookTTL: cfg.Shopify.WebhookDedupe,
	}
	go sched.Run(ctx)

	// HTTP
	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, db, log, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
