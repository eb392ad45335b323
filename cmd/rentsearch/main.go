package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/rentsearch/internal/config"
	"github.com/kailas-cloud/rentsearch/internal/db"
	dbRedis "github.com/kailas-cloud/rentsearch/internal/db/redis"
	"github.com/kailas-cloud/rentsearch/internal/domain"
	"github.com/kailas-cloud/rentsearch/internal/domain/plan"
	logpkg "github.com/kailas-cloud/rentsearch/internal/logger"
	"github.com/kailas-cloud/rentsearch/internal/metrics"
	"github.com/kailas-cloud/rentsearch/internal/repository/geocache"
	"github.com/kailas-cloud/rentsearch/internal/repository/listing/memory"
	listingmongo "github.com/kailas-cloud/rentsearch/internal/repository/listing/mongo"
	"github.com/kailas-cloud/rentsearch/internal/repository/listingindex"
	"github.com/kailas-cloud/rentsearch/internal/repository/prefstore"
	"github.com/kailas-cloud/rentsearch/internal/repository/resultcache"
	chiTransport "github.com/kailas-cloud/rentsearch/internal/transport/chi"
	"github.com/kailas-cloud/rentsearch/internal/transport/geocoder"
	openaiPlanner "github.com/kailas-cloud/rentsearch/internal/transport/openai"
	georewriteuc "github.com/kailas-cloud/rentsearch/internal/usecase/georewrite"
	healthuc "github.com/kailas-cloud/rentsearch/internal/usecase/health"
	planneruc "github.com/kailas-cloud/rentsearch/internal/usecase/planner"
	rankinguc "github.com/kailas-cloud/rentsearch/internal/usecase/ranking"
	searchuc "github.com/kailas-cloud/rentsearch/internal/usecase/search"
	signalsuc "github.com/kailas-cloud/rentsearch/internal/usecase/signals"
	"github.com/kailas-cloud/rentsearch/internal/version"
)

// listingStore is what the composition root needs from either listing driver.
type listingStore interface {
	Execute(ctx context.Context, p plan.Plan) ([]domain.Listing, error)
	HealthCheck(ctx context.Context) error
}

func main() {
	// .env first so ${VAR} expansion in the YAML sees it
	if err := config.LoadDotEnv(); err != nil {
		panic("failed to load .env: " + err.Error())
	}

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting rentsearch API server",
		append(version.Fields(),
			zap.Int("http_port", cfg.HTTP.Port),
			zap.String("cache_driver", cfg.Cache.Driver),
			zap.String("listings_driver", cfg.Listings.Driver),
			zap.String("planner", cfg.Planner.Provider),
		)...,
	)

	ctx := context.Background()

	// Cache / preference store. Redis and Valkey share the rueidis client.
	var store db.Store
	store, err = dbRedis.NewStore(dbRedis.Config{
		URL:      cfg.Cache.URL,
		Addrs:    cfg.Cache.Addrs,
		Username: cfg.Cache.Username,
		Password: cfg.Cache.Password,
		DB:       cfg.Cache.DB,
	})
	if err != nil {
		logger.Fatal("Failed to create cache store", zap.Error(err))
	}
	defer store.Close()

	if err := store.WaitForReady(ctx, time.Duration(cfg.Cache.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Cache not ready", zap.Error(err))
	}
	logger.Info("Connected to cache")

	// Register domain metrics explicitly (no init())
	metrics.RegisterSearchMetrics()

	listings, closeListings := buildListingStore(ctx, cfg, logger)
	defer closeListings()

	var index signalsuc.ListingIndex
	var indexPinger healthuc.Pinger
	if addrs := nonEmpty(cfg.Index.Addresses); len(addrs) > 0 {
		idx, err := listingindex.New(listingindex.Config{
			Addresses: addrs,
			Username:  cfg.Index.Username,
			Password:  cfg.Index.Password,
			Index:     cfg.Index.Index,
		})
		if err != nil {
			logger.Fatal("Failed to create listing index client", zap.Error(err))
		}
		index, indexPinger = idx, idx
		logger.Info("Listing index enabled", zap.Strings("addresses", addrs), zap.String("index", cfg.Index.Index))
	} else {
		logger.Warn("Listing index not configured, click enrichment disabled")
	}

	translator, plannerChecker := buildTranslator(cfg, logger)

	// Repositories
	prefs := prefstore.New(store, time.Duration(cfg.Signals.HistoryTTLSec)*time.Second,
		cfg.Signals.HistoryMaxLen, logger)
	results := resultcache.New(store, time.Duration(cfg.Search.ResultTTLSec)*time.Second)

	geo := geocoder.New(&geocoder.Config{
		BaseURL: cfg.Geocoding.BaseURL,
		APIKey:  cfg.Geocoding.APIKey,
		Timeout: time.Duration(cfg.Geocoding.TimeoutSec) * time.Second,
		Breaker: geocoder.BreakerConfig{
			Name:         "geocoder",
			MaxRequests:  1,
			Interval:     time.Minute,
			Timeout:      time.Duration(cfg.Geocoding.BreakerOpenSec) * time.Second,
			FailureRatio: cfg.Geocoding.BreakerFailureRatio,
			MinRequests:  cfg.Geocoding.BreakerMinRequests,
		},
		Logger: logger,
	})
	resolver := geocache.New(geo, store, cfg.Geocoding.Country,
		time.Duration(cfg.Geocoding.CacheTTLSec)*time.Second, metrics.GeocodeLookupsTotal, logger)

	// Use cases
	plannerSvc := planneruc.New(translator, logger)
	rewriter := georewriteuc.New(resolver, cfg.Search.MaxDistanceM, logger)
	ranker := rankinguc.New(prefs, logger)
	searchSvc := searchuc.New(searchuc.Deps{
		Planner:  plannerSvc,
		Prefs:    prefs,
		Rewriter: rewriter,
		Listings: listings,
		Ranker:   ranker,
		Cache:    results,
		Logger:   logger,
	}, cfg.Search.DefaultUserID)
	signalsSvc := signalsuc.New(prefs, index, logger)
	healthSvc := healthuc.New(healthuc.Deps{
		Cache:    store,
		Listings: listings,
		Index:    indexPinger,
		Planner:  plannerChecker,
	})

	server := chiTransport.NewServer(searchSvc, signalsSvc, healthSvc, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Router(cfg.Auth.APIKeys),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildListingStore opens the configured listing store and returns its close func.
func buildListingStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (listingStore, func()) {
	limit := cfg.Search.ResultLimit

	switch cfg.Listings.Driver {
	case config.ListingsMemory:
		s := memory.New(limit)
		if seed := cfg.Listings.Memory.SeedFile; seed != "" {
			if err := s.LoadFile(seed); err != nil {
				logger.Fatal("Failed to load listing seed file", zap.String("path", seed), zap.Error(err))
			}
		}
		logger.Info("Using in-memory listing store", zap.Int("listings", s.Len()))
		return s, func() {}

	default:
		mcfg := listingmongo.Config{
			URI:        cfg.Listings.Mongo.URI,
			Database:   cfg.Listings.Mongo.Database,
			Collection: cfg.Listings.Mongo.Collection,
			Timeout:    time.Duration(cfg.Listings.Mongo.TimeoutSec) * time.Second,
		}
		client, err := listingmongo.Connect(ctx, mcfg)
		if err != nil {
			logger.Fatal("Failed to connect listing database", zap.Error(err))
		}
		coll := client.Database(mcfg.Database).Collection(mcfg.Collection)
		if err := listingmongo.EnsureIndexes(ctx, coll); err != nil {
			logger.Warn("Failed to ensure listing indexes", zap.Error(err))
		}
		logger.Info("Connected to listing database",
			zap.String("database", mcfg.Database), zap.String("collection", mcfg.Collection))

		return listingmongo.New(coll, int64(limit), logger), func() {
			dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := client.Disconnect(dctx); err != nil {
				logger.Error("Failed to disconnect listing database", zap.Error(err))
			}
		}
	}
}

// buildTranslator selects the plan translator. The checker is nil for the rule translator.
func buildTranslator(cfg config.Config, logger *zap.Logger) (planneruc.Translator, healthuc.Checker) {
	if cfg.Planner.Provider != config.PlannerOpenAI {
		logger.Info("Using rule-based plan translator")
		return planneruc.NewRuleTranslator(), nil
	}

	t := openaiPlanner.NewTranslator(&openaiPlanner.Config{
		APIKey:   cfg.Planner.APIKey,
		BaseURL:  cfg.Planner.BaseURL,
		Model:    cfg.Planner.Model,
		Provider: config.PlannerOpenAI,
		Timeout:  time.Duration(cfg.Planner.TimeoutSec) * time.Second,
		Logger:   logger,
	})
	logger.Info("Using language model plan translator", zap.String("model", cfg.Planner.Model))
	return t, t
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
