package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	appDecision "github.com/NeuralTrust/ShieldGate/pkg/app/decision"
	"github.com/NeuralTrust/ShieldGate/pkg/cache"
	"github.com/NeuralTrust/ShieldGate/pkg/config"
	"github.com/NeuralTrust/ShieldGate/pkg/domain/rule"
	handlers "github.com/NeuralTrust/ShieldGate/pkg/handlers/http"
	"github.com/NeuralTrust/ShieldGate/pkg/infra/fingerprint"
	"github.com/NeuralTrust/ShieldGate/pkg/infra/httpx"
	infraLogger "github.com/NeuralTrust/ShieldGate/pkg/infra/logger"
	"github.com/NeuralTrust/ShieldGate/pkg/infra/oracle"
	"github.com/NeuralTrust/ShieldGate/pkg/infra/prometheus"
	"github.com/NeuralTrust/ShieldGate/pkg/middleware"
	"github.com/NeuralTrust/ShieldGate/pkg/server"
	"github.com/NeuralTrust/ShieldGate/pkg/version"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const redisPingTimeout = 2 * time.Second

func main() {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Println("no .env file found, using system environment variables")
	}

	logFile := os.Getenv("LOG_FILE")
	if logFile == "" {
		logFile = "gateway.log"
	}
	if logFile == "stdout" {
		logFile = ""
	}
	logger, closeLogs, err := infraLogger.NewLogger(logFile)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer closeLogs()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		logger.WithError(err).Fatal("failed to load config")
	}

	rules, err := rule.Build(cfg.Rules)
	if err != nil {
		logger.WithError(err).Fatal("invalid rules configuration")
	}

	tracker, err := fingerprint.NewTracker(
		cfg.Server.TrustForwardedHeaders,
		cfg.Decision.Characteristics,
		cfg.Server.TrustedProxies...,
	)
	if err != nil {
		logger.WithError(err).Fatal("invalid fingerprint configuration")
	}

	prometheus.Initialize(prometheus.MetricsConfig{EnableLatency: cfg.Metrics.EnableLatency})

	oracleClient := oracle.NewArcjetClient(cfg.Oracle, logger,
		oracle.WithCircuitBreaker(httpx.NewCircuitBreaker(
			"oracle",
			cfg.Oracle.Breaker.Timeout,
			cfg.Oracle.Breaker.MaxFailures,
			httpx.WithIgnoredErrors(oracle.IsCanceled),
			httpx.WithStateChange(prometheus.ObserveBreakerState),
		)),
	)

	protector := appDecision.NewProtector(logger, oracleClient, newDecisionCache(cfg, logger), rules, cfg.Oracle.FailOpen)

	gateway, err := server.NewGatewayServer(server.GatewayServerDI{
		Config: cfg,
		Logger: logger,
		MiddlewareTransport: middleware.Transport{
			PanicRecoverMiddleware: middleware.NewPanicRecoverMiddleware(logger),
			FingerprintMiddleware:  middleware.NewFingerPrintMiddleware(logger, tracker),
			MetricsMiddleware:      middleware.NewMetricsMiddleware(logger),
		},
		HandlerTransport: handlers.HandlerTransport{
			DecisionHandler:   handlers.NewDecisionHandler(logger, protector, tracker, cfg.Decision),
			GetVersionHandler: handlers.NewGetVersionHandler(logger),
			HealthHandler:     handlers.NewHealthHandler(),
		},
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to build gateway server")
	}

	servers := []server.Server{gateway}
	if cfg.Metrics.Enabled {
		servers = append(servers, server.NewMetricsServer(cfg, logger))
	} else {
		logger.Info("prometheus metrics are disabled by configuration")
	}

	logger.WithFields(logrus.Fields{
		"version": version.Version,
		"rules":   len(rules),
	}).Info("decision gateway configured")

	if err := run(logger, servers); err != nil {
		logger.WithError(err).Error("gateway stopped with error")
		closeLogs()
		os.Exit(1)
	}
	logger.Info("gateway stopped")
}

func run(logger *logrus.Logger, servers []server.Server) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	for _, s := range servers {
		g.Go(s.Run)
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down servers")
		var errs []error
		for _, s := range servers {
			if err := s.Shutdown(); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
	return g.Wait()
}

func newDecisionCache(cfg *config.Config, logger *logrus.Logger) cache.DecisionCache {
	if !cfg.Redis.Enabled() {
		logger.Info("redis not configured, using in-memory deny cache")
		return cache.NewMemoryCache()
	}
	client := cache.NewRedisClient(cfg.Redis)
	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Warn("redis unreachable, using in-memory deny cache")
		_ = client.Close()
		return cache.NewMemoryCache()
	}
	return cache.NewRedisCache(client)
}
