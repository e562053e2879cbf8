package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCollector_RecordIngestion(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector("knowbase", reg, zap.NewNop())

	c.RecordIngestion("success", 2*time.Second, 12, 3400, 0.000068)
	c.RecordIngestion("failed", time.Second, 0, 0, 0)

	assert.InDelta(t, 12, testutil.ToFloat64(c.chunksIngested), 1e-9)
	assert.InDelta(t, 3400, testutil.ToFloat64(c.embeddingTokens), 1e-9)
	assert.InDelta(t, 0.000068, testutil.ToFloat64(c.embeddingCost), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(c.ingestionsTotal.WithLabelValues("failed")), 1e-9)
}

func TestCollector_RecordRetrieval(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector("knowbase", reg, zap.NewNop())

	c.RecordRetrieval("success", 300*time.Millisecond, 4, 7)
	c.RecordVariantSearchFailure()
	c.RecordVariantSearchFailure()

	assert.InDelta(t, 1, testutil.ToFloat64(c.retrievalsTotal.WithLabelValues("success")), 1e-9)
	assert.InDelta(t, 2, testutil.ToFloat64(c.variantSearchFailures), 1e-9)
}

func TestCollector_CacheMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector("knowbase", reg, zap.NewNop())

	c.RecordCacheHit("expansion")
	c.RecordCacheHit("expansion")
	c.RecordCacheMiss("expansion")

	assert.InDelta(t, 2, testutil.ToFloat64(c.cacheHits.WithLabelValues("expansion")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(c.cacheMisses.WithLabelValues("expansion")), 1e-9)
}

func TestCollector_NilSafe(t *testing.T) {
	var c *Collector
	require.NotPanics(t, func() {
		c.RecordIngestion("success", time.Second, 1, 1, 0)
		c.RecordRetrieval("success", time.Second, 1, 1)
		c.RecordVariantSearchFailure()
		c.RecordCacheHit("x")
		c.RecordCacheMiss("x")
	})
}
