package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/soundlease/soundlease-backend/api/routes"
	"github.com/soundlease/soundlease-backend/internal/chain"
	"github.com/soundlease/soundlease-backend/internal/licenses"
	"github.com/soundlease/soundlease-backend/internal/uploads"
	"github.com/soundlease/soundlease-backend/pkg/config"
	"github.com/soundlease/soundlease-backend/pkg/logger"
	"github.com/soundlease/soundlease-backend/pkg/metrics"
	"github.com/soundlease/soundlease-backend/pkg/pinning/pinata"
	"github.com/soundlease/soundlease-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	chainClient, err := chain.NewClient(context.Background(), cfg.Chain, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to connect to chain rpc", err)
		os.Exit(1)
	}
	defer chainClient.Close()

	pinataClient, err := pinata.NewClient(cfg.Pinata, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create pinning client", err)
		os.Exit(1)
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(context.Background(), cfg.Redis)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	licensingMetrics := metrics.NewLicensingMetrics(registry)

	resolverOpts := licenses.ResolverOptions{
		GatewayURL: cfg.Pinata.GatewayURL,
		Timeout:    cfg.Pinata.Timeout,
		CacheTTL:   cfg.Redis.MetadataTTL,
		Logger:     logg,
		Metrics:    licensingMetrics,
	}
	if redisClient != nil {
		resolverOpts.Cache = redisClient
	}
	resolver, err := licenses.NewResolver(resolverOpts)
	if err != nil {
		logg.Error(context.Background(), "failed to create metadata resolver", err)
		os.Exit(1)
	}

	licenseService, err := licenses.NewService(chainClient, chainClient, resolver, pinataClient, cfg.Chain.LookbackBlocks, logg, licensingMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create license service", err)
		os.Exit(1)
	}

	uploadService, err := uploads.NewService(pinataClient, logg, licensingMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create upload service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"contract": cfg.Chain.ContractAddress,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, chainClient, pinataClient, redisClient, uploadService, licenseService, registry),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
