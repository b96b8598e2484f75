package observability

import (
	"log/slog"
	"testing"

	"github.com/couchcryptid/flood-exposure/internal/config"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), in)
	}
}

func TestNewLogger_RespectsLevel(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	logger := NewLogger(&config.Config{LogLevel: "warn", LogFormat: "text"})
	assert.False(t, logger.Enabled(t.Context(), slog.LevelInfo))
	assert.True(t, logger.Enabled(t.Context(), slog.LevelWarn))
}

func TestNewMetricsForTesting_Independent(t *testing.T) {
	a := NewMetricsForTesting()
	b := NewMetricsForTesting()

	a.PolygonCache.WithLabelValues("hit").Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(a.PolygonCache.WithLabelValues("hit")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.PolygonCache.WithLabelValues("hit")))
}
