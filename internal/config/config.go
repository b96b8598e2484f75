package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// Input data.
	DEMPath           string
	DEMVariable       string
	RoadsPath         string
	RoadCategoryField string
	FacilityLayers    []FacilityLayer

	// Analysis tuning.
	RiverBasePercentile      float64
	HANDPercentile           float64
	HANDMaxDrainageDistanceM float64
	MaxPolygonCells          int
	PolygonCacheSize         int
	PolygonCacheTTL          time.Duration
}

// FacilityLayer is one labelled point shapefile.
type FacilityLayer struct {
	Label string
	Path  string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	facilities, err := parseFacilityLayers(os.Getenv("FACILITY_LAYERS"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "flood-scenarios"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "exposure-reports"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "flood-exposure"),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		DEMPath:           os.Getenv("DEM_PATH"),
		DEMVariable:       os.Getenv("DEM_VARIABLE"),
		RoadsPath:         os.Getenv("ROADS_PATH"),
		RoadCategoryField: sharedcfg.EnvOrDefault("ROAD_CATEGORY_FIELD", "highway"),
		FacilityLayers:    facilities,
	}

	if cfg.RiverBasePercentile, err = parsePercentile("RIVER_BASE_PERCENTILE", 5); err != nil {
		return nil, err
	}
	if cfg.HANDPercentile, err = parsePercentile("HAND_PERCENTILE", 10); err != nil {
		return nil, err
	}
	if cfg.HANDMaxDrainageDistanceM, err = parseNonNegativeFloat("HAND_MAX_DRAINAGE_DISTANCE_M", 2000); err != nil {
		return nil, err
	}
	if cfg.MaxPolygonCells, err = parseNonNegativeInt("MAX_POLYGON_CELLS", 1_000_000); err != nil {
		return nil, err
	}
	if cfg.PolygonCacheSize, err = parseNonNegativeInt("POLYGON_CACHE_SIZE", 64); err != nil {
		return nil, err
	}
	if cfg.PolygonCacheTTL, err = parseDuration("POLYGON_CACHE_TTL", "30m"); err != nil {
		return nil, err
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}
	if cfg.DEMPath == "" {
		return nil, errors.New("DEM_PATH is required")
	}

	return cfg, nil
}

// parseFacilityLayers reads "label=path,label=path".
func parseFacilityLayers(s string) ([]FacilityLayer, error) {
	var layers []FacilityLayer
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		label, path, ok := strings.Cut(part, "=")
		label, path = strings.TrimSpace(label), strings.TrimSpace(path)
		if !ok || label == "" || path == "" {
			return nil, fmt.Errorf("invalid FACILITY_LAYERS entry %q, want label=path", part)
		}
		layers = append(layers, FacilityLayer{Label: label, Path: path})
	}
	return layers, nil
}

func parsePercentile(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 || v >= 100 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return v, nil
}

func parseNonNegativeFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return v, nil
}

func parseNonNegativeInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return v, nil
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}
