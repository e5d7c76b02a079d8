// Package main provides the entry point for the Taglink service.
//
//	@title			Taglink API
//	@version		1.0.0
//	@description	UTM-tagged links, short links on custom domains, and click analytics.
//
//	@contact.name	Taglink Support
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8080
//	@BasePath	/
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT Authorization header. Format: "Bearer {token}"
package main

import (
	"Taglink-Backend/internal/analytics"
	"Taglink-Backend/internal/auth"
	"Taglink-Backend/internal/config"
	"Taglink-Backend/internal/database"
	"Taglink-Backend/internal/dnscheck"
	httpHandler "Taglink-Backend/internal/handler/http"
	"Taglink-Backend/internal/quota"
	"Taglink-Backend/internal/redirect"
	"Taglink-Backend/internal/repository/postgres"
	"Taglink-Backend/internal/service"
	"Taglink-Backend/pkg/geoip"
	"Taglink-Backend/pkg/logger"
	"Taglink-Backend/pkg/useragent"
	"context"
	"errors"
	lg "log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "Taglink-Backend/docs" // Import swagger docs
)

const version = "1.0.0"

func main() {
	cfg := config.MustLoad()
	log, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		lg.Fatalf("failed to build logger: %v", err)
	}
	defer func() {
		if err := logger.Sync(log); err != nil {
			lg.Printf("ERROR: failed to sync zap logger: %v\n", err)
		}
	}()

	log.Info("starting Taglink service", zap.String("env", cfg.Env), zap.String("version", version))

	// Database
	db, err := database.NewConnection(&cfg.Database, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := database.Close(db, log); err != nil {
			log.Error("failed to close database connection", zap.Error(err))
		}
	}()

	if cfg.Database.AutoMigrate {
		log.Info("running database migrations (auto_migrate: true)")
		if err := database.AutoMigrate(db, log); err != nil {
			log.Fatal("failed to run database migrations", zap.Error(err))
		}
	} else {
		log.Info("skipping database migrations (auto_migrate: false)")
	}

	storage := postgres.New(db, log)

	// Redirect cache
	var cache redirect.Cache = redirect.NopCache{}
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		redisClient, err = redirect.NewRedisClient(ctx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
		cancel()
		if err != nil {
			log.Warn("redis unavailable, redirect cache disabled", zap.Error(err))
		} else {
			cache = redirect.NewRedisCache(redisClient, cfg.Redis.CacheTTL, log)
			log.Info("redirect cache enabled", zap.String("address", cfg.Redis.Address))
		}
	}

	// Click pipeline
	var sink analytics.Sink = analytics.NewStoreSink(storage)
	var natsConn *nats.Conn
	var consumer *analytics.Consumer
	if cfg.NATS.Enabled {
		streamCfg := analytics.StreamConfig{
			Stream:  cfg.NATS.Stream,
			Subject: cfg.NATS.Subject,
			Durable: cfg.NATS.Durable,
		}
		nc, js, err := analytics.ConnectNATS(cfg.NATS.URL)
		if err != nil {
			log.Fatal("failed to connect to NATS", zap.Error(err))
		}
		natsConn = nc
		if err := analytics.EnsureStream(js, streamCfg); err != nil {
			log.Fatal("failed to ensure click stream", zap.Error(err))
		}
		sink = analytics.NewStreamSink(js, streamCfg.Subject)
		if cfg.NATS.Consume {
			consumer = analytics.NewConsumer(js, streamCfg, analytics.NewStoreSink(storage), cfg.Clicks.RecordTimeout, log)
			if err := consumer.Start(); err != nil {
				log.Fatal("failed to start click consumer", zap.Error(err))
			}
		}
		log.Info("click events published to NATS", zap.String("subject", streamCfg.Subject), zap.Bool("consume", cfg.NATS.Consume))
	}

	parser, err := useragent.NewParser("assets/regexes.yaml", log)
	if err != nil {
		log.Fatal("failed to initialize User-Agent parser", zap.Error(err))
	}

	locator := geoip.NewLocator(geoProvider(&cfg.GeoIP, log), geoip.Options{
		RequestsPerMinute: cfg.GeoIP.RequestsPerMinute,
		BreakerFailures:   cfg.GeoIP.BreakerFailures,
		BreakerTimeout:    cfg.GeoIP.BreakerTimeout,
	}, log)

	enricher := analytics.NewEnricher(parser, locator, cfg.Clicks.GeoTimeout, log)
	processor := analytics.NewProcessor(enricher, sink, log, analytics.ProcessorConfig{
		WorkerCount:     cfg.Clicks.Workers,
		BufferSize:      cfg.Clicks.BufferSize,
		RecordTimeout:   cfg.Clicks.RecordTimeout,
		ShutdownTimeout: cfg.Clicks.ShutdownTimeout,
	})
	if err := processor.Start(); err != nil {
		log.Fatal("failed to start click processor", zap.Error(err))
	}

	// Services
	alloc := service.NewAllocator(cfg.Links.CodeLength, cfg.Links.MaxAllocAttempts)
	enforcer := quota.NewEnforcer(storage, quota.DefaultLimits(cfg.Quota.FreeLimit))
	linkService := service.NewLinkService(storage, enforcer, alloc, cache, cfg.Links.DefaultDomain, log)
	checker := dnscheck.NewChecker(net.DefaultResolver, cfg.Domains.TXTPrefix, cfg.Domains.CNAMETarget)
	domainService := service.NewDomainService(
		storage,
		checker,
		alloc,
		cache,
		cfg.Domains.TokenSecret,
		cfg.Domains.VerifyTimeout,
		cfg.Links.DefaultDomain,
		log,
	)
	resolver := redirect.NewResolver(storage, cache, cfg.Links.DefaultDomain, log)
	aggregator := analytics.NewAggregator(storage, cfg.Analytics.DefaultTimeout, cfg.Analytics.MaxTimeout, log)

	trustedProxies, err := httpHandler.ParseTrustedProxies(cfg.HTTPServer.TrustedProxies)
	if err != nil {
		log.Fatal("invalid trusted proxies", zap.Error(err))
	}

	jwtService := auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	authMiddleware := auth.NewMiddleware(jwtService, log)

	server := httpHandler.NewServer(
		httpHandler.NewLinksHandler(linkService, cfg.Links.Scheme, log),
		httpHandler.NewDomainsHandler(domainService, log),
		httpHandler.NewAnalyticsHandler(linkService, aggregator, log),
		httpHandler.NewQuotaHandler(enforcer, log),
		httpHandler.NewRedirectHandler(resolver, processor, trustedProxies, log),
		httpHandler.NewHealthHandler(storage, processor, version, log),
		authMiddleware,
		resolver,
		httpHandler.ServerOptions{
			AllowedOrigins: cfg.HTTPServer.AllowedOrigins,
			RateLimitRPM:   cfg.RateLimit.RequestsPerMinute,
			MetricsEnabled: cfg.Metrics.Enabled,
		},
		log,
	)

	httpServer := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      server.SetupRoutes(),
		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	log.Info("starting HTTP server", zap.String("address", cfg.HTTPServer.Address), zap.String("default_domain", cfg.Links.DefaultDomain))

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down Taglink service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTPServer.ShutdownTimeout)
	defer shutdownCancel()

	// Stop accepting redirects before draining the clicks they queued.
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shutdown HTTP server", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}

	if err := processor.Stop(); err != nil {
		log.Error("click processor did not drain", zap.Error(err))
	}
	if consumer != nil {
		consumer.Stop()
	}
	if natsConn != nil {
		if err := natsConn.Drain(); err != nil {
			log.Error("failed to drain NATS connection", zap.Error(err))
		}
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error("failed to close redis client", zap.Error(err))
		}
	}
}

func geoProvider(cfg *config.GeoIP, log *zap.Logger) geoip.Provider {
	switch cfg.Provider {
	case "maxmind":
		if cfg.MaxMindAccountID == "" || cfg.MaxMindLicenseKey == "" {
			log.Warn("maxmind credentials missing, geo lookup disabled")
			return geoip.NopProvider{}
		}
		return geoip.NewMaxMindProvider(cfg.MaxMindAccountID, cfg.MaxMindLicenseKey)
	case "ipapi":
		return geoip.NewIPAPIProvider()
	case "none", "":
		return geoip.NopProvider{}
	default:
		log.Warn("unknown geoip provider, geo lookup disabled", zap.String("provider", cfg.Provider))
		return geoip.NopProvider{}
	}
}
