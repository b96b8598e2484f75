package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	httpadapter "github.com/couchcryptid/flood-exposure/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/flood-exposure/internal/adapter/kafka"
	"github.com/couchcryptid/flood-exposure/internal/adapter/netcdfdem"
	"github.com/couchcryptid/flood-exposure/internal/adapter/polycache"
	"github.com/couchcryptid/flood-exposure/internal/adapter/shapefile"
	"github.com/couchcryptid/flood-exposure/internal/config"
	"github.com/couchcryptid/flood-exposure/internal/domain"
	"github.com/couchcryptid/flood-exposure/internal/observability"
	"github.com/couchcryptid/flood-exposure/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	grid, err := netcdfdem.LoadDEM(cfg.DEMPath, cfg.DEMVariable)
	if err != nil {
		logger.Error("failed to load dem", "path", cfg.DEMPath, "error", err)
		os.Exit(1)
	}
	logger.Info("dem loaded", "path", cfg.DEMPath, "rows", grid.Rows, "cols", grid.Cols, "crs", grid.CRS.String())

	layers, err := shapefile.LoadLayers(cfg)
	if err != nil {
		logger.Error("failed to load layers", "error", err)
		os.Exit(1)
	}

	// Polygon cache (disabled via POLYGON_CACHE_SIZE=0).
	var builder domain.PolygonBuilder = domain.NewVectorizer()
	if cfg.PolygonCacheSize > 0 {
		builder = polycache.NewCachedBuilder(builder, cfg.PolygonCacheSize, cfg.PolygonCacheTTL, clockwork.NewRealClock(), metrics)
		logger.Info("polygon cache enabled", "size", cfg.PolygonCacheSize, "ttl", cfg.PolygonCacheTTL)
	} else {
		logger.Info("polygon cache disabled")
	}

	analyzer, err := domain.NewAnalyzer(grid, layers, builder, domain.AnalyzerConfig{MaxPolygonCells: cfg.MaxPolygonCells}, logger)
	if err != nil {
		logger.Error("failed to prepare analyzer", "error", err)
		os.Exit(1)
	}

	defaults := domain.ScenarioDefaults{
		RiverPercentile: cfg.RiverBasePercentile,
		HAND: domain.HANDConfig{
			Percentile:           cfg.HANDPercentile,
			MaxDrainageDistanceM: cfg.HANDMaxDrainageDistanceM,
		},
	}

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	transformer := pipeline.NewTransformer(analyzer, defaults, logger, metrics)

	p := pipeline.New(reader, transformer, writer, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, transformer, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start scenario pipeline.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}
