package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/veldtcommerce/pricing-engine/api/controllers"
	"github.com/veldtcommerce/pricing-engine/api/routes"
	"github.com/veldtcommerce/pricing-engine/internal/catalog"
	"github.com/veldtcommerce/pricing-engine/internal/pricing"
	"github.com/veldtcommerce/pricing-engine/internal/promotion/resolver"
	"github.com/veldtcommerce/pricing-engine/internal/quote"
	"github.com/veldtcommerce/pricing-engine/internal/usagestore"
	"github.com/veldtcommerce/pricing-engine/pkg/config"
	"github.com/veldtcommerce/pricing-engine/pkg/env"
	"github.com/veldtcommerce/pricing-engine/pkg/logger"
	"github.com/veldtcommerce/pricing-engine/pkg/metrics"
	"github.com/veldtcommerce/pricing-engine/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "pricing-api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "pricing-api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	var usage usagestore.Store = usagestore.NewMemory()
	var redisPinger controllers.Pinger
	if cfg.Redis.Addr != "" {
		redisClient, err := redis.New(context.Background(), cfg.Redis)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		usage = usagestore.NewRedis(redisClient)
		redisPinger = redisClient
	}

	var loader catalog.Loader
	if cfg.Engine.RulesPath != "" {
		static, err := catalog.LoadFile(cfg.Engine.RulesPath)
		if err != nil {
			logg.Error(context.Background(), "failed to load promotion rules", err)
			os.Exit(1)
		}
		loader = catalog.NewCached(static, cfg.Catalog.CacheTTL, cfg.Catalog.CacheGC)
	} else {
		loader = catalog.NewStatic(nil)
	}

	mets := metrics.NewEngineMetrics(prometheus.DefaultRegisterer)

	shippingPolicy, err := pricing.PolicyFromConfig(cfg.Engine)
	if err != nil {
		logg.Error(context.Background(), "failed to build shipping policy", err)
		os.Exit(1)
	}

	engine, err := pricing.NewEngine(resolver.New(logg), cfg.Engine.Rate(), shippingPolicy, logg, mets)
	if err != nil {
		logg.Error(context.Background(), "failed to build pricing engine", err)
		os.Exit(1)
	}

	quoteService, err := quote.NewService(quote.ServiceParams{
		Loader: loader,
		Engine: engine,
		Usage:  usage,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to build quote service", err)
		os.Exit(1)
	}

	addr := ":" + env.Get("PORT", cfg.App.Port)
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting pricing api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, mets, quoteService, redisPinger),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "pricing api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
