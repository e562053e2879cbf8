// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器
type Collector struct {
	// 入库指标
	ingestionsTotal   *prometheus.CounterVec
	ingestionDuration prometheus.Histogram
	chunksIngested    prometheus.Counter
	embeddingTokens   prometheus.Counter
	embeddingCost     prometheus.Counter

	// 检索指标
	retrievalsTotal       *prometheus.CounterVec
	retrievalDuration     prometheus.Histogram
	queryVariants         prometheus.Histogram
	variantSearchFailures prometheus.Counter
	evidenceReturned      prometheus.Histogram

	// 缓存指标
	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollector 创建指标收集器。
// reg 为 nil 时注册到 prometheus 默认注册表。
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// 入库指标
	c.ingestionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingestions_total",
			Help:      "Total number of document ingestions",
		},
		[]string{"status"},
	)

	c.ingestionDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingestion_duration_seconds",
			Help:      "Document ingestion duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
	)

	c.chunksIngested = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_ingested_total",
			Help:      "Total number of chunks written to the vector store",
		},
	)

	c.embeddingTokens = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_tokens_total",
			Help:      "Total estimated embedding tokens",
		},
	)

	c.embeddingCost = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_cost_usd_total",
			Help:      "Total estimated embedding cost in USD",
		},
	)

	// 检索指标
	c.retrievalsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrievals_total",
			Help:      "Total number of multi-query retrievals",
		},
		[]string{"status"},
	)

	c.retrievalDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_duration_seconds",
			Help:      "Multi-query retrieval duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
	)

	c.queryVariants = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_variants",
			Help:      "Number of query variants per retrieval",
			Buckets:   []float64{1, 2, 3, 4, 5},
		},
	)

	c.variantSearchFailures = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "variant_search_failures_total",
			Help:      "Total number of per-variant vector searches that failed",
		},
	)

	c.evidenceReturned = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "evidence_returned",
			Help:      "Number of evidence hits returned per retrieval",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50},
		},
	)

	// 缓存指标
	c.cacheHits = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of cache hits",
		},
		[]string{"cache"},
	)

	c.cacheMisses = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of cache misses",
		},
		[]string{"cache"},
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 📥 入库指标记录
// =============================================================================

// RecordIngestion 记录一次文档入库
func (c *Collector) RecordIngestion(status string, duration time.Duration, chunks, tokens int, cost float64) {
	if c == nil {
		return
	}
	c.ingestionsTotal.WithLabelValues(status).Inc()
	c.ingestionDuration.Observe(duration.Seconds())
	c.chunksIngested.Add(float64(chunks))
	c.embeddingTokens.Add(float64(tokens))
	c.embeddingCost.Add(cost)
}

// =============================================================================
// 🔍 检索指标记录
// =============================================================================

// RecordRetrieval 记录一次多查询检索
func (c *Collector) RecordRetrieval(status string, duration time.Duration, variants, evidence int) {
	if c == nil {
		return
	}
	c.retrievalsTotal.WithLabelValues(status).Inc()
	c.retrievalDuration.Observe(duration.Seconds())
	c.queryVariants.Observe(float64(variants))
	c.evidenceReturned.Observe(float64(evidence))
}

// RecordVariantSearchFailure 记录单个变体搜索失败
func (c *Collector) RecordVariantSearchFailure() {
	if c == nil {
		return
	}
	c.variantSearchFailures.Inc()
}

// =============================================================================
// 💾 缓存指标记录
// =============================================================================

// RecordCacheHit 记录缓存命中
func (c *Collector) RecordCacheHit(cache string) {
	if c == nil {
		return
	}
	c.cacheHits.WithLabelValues(cache).Inc()
}

// RecordCacheMiss 记录缓存未命中
func (c *Collector) RecordCacheMiss(cache string) {
	if c == nil {
		return
	}
	c.cacheMisses.WithLabelValues(cache).Inc()
}
