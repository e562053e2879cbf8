package rag

import (
	"context"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/knowbase/internal/metrics"
	"github.com/BaSui01/knowbase/llm/embedding"
	"github.com/BaSui01/knowbase/types"
)

// RetrieverConfig 多查询检索配置。
type RetrieverConfig struct {
	PerQueryLimit       int     `json:"per_query_limit"`      // 每个变体请求的命中数
	SimilarityThreshold float64 `json:"similarity_threshold"` // 最低相似度
	MaxQueries          int     `json:"max_queries"`          // 变体总数上限（含原查询）
	MaxContextTokens    int     `json:"max_context_tokens"`   // 证据的 token 预算
}

// DefaultRetrieverConfig 返回默认检索配置。
func DefaultRetrieverConfig() RetrieverConfig {
	return RetrieverConfig{
		PerQueryLimit:       5,
		SimilarityThreshold: 0.3,
		MaxQueries:          4,
		MaxContextTokens:    4000,
	}
}

// Retriever 多查询检索器。
// 检索路径被设计为弹性的：扩展失败降级为单查询，单个变体的搜索失败按
// 零命中处理，最坏情况返回空证据而不是把错误抛给终端用户。
type Retriever struct {
	expander  *QueryExpander
	embedder  *EmbeddingClient
	store     VectorStore
	fusion    FusionStrategy
	tokenizer Tokenizer
	cfg       RetrieverConfig
	collector *metrics.Collector
	tracer    trace.Tracer
	logger    *zap.Logger
}

// NewRetriever 创建多查询检索器。
func NewRetriever(
	expander *QueryExpander,
	embedder *EmbeddingClient,
	store VectorStore,
	cfg RetrieverConfig,
	opts ...RetrieverOption,
) *Retriever {
	if cfg.PerQueryLimit <= 0 {
		cfg.PerQueryLimit = 5
	}
	if cfg.MaxQueries <= 0 {
		cfg.MaxQueries = 1
	}

	r := &Retriever{
		expander:  expander,
		embedder:  embedder,
		store:     store,
		fusion:    MaxSimilarityFusion{},
		tokenizer: EstimatorTokenizer{},
		cfg:       cfg,
		tracer:    otel.Tracer("knowbase/rag"),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With(zap.String("component", "retriever"))
	return r
}

// RetrieverOption 检索器可选配置。
type RetrieverOption func(*Retriever)

// WithRetrieverLogger 注入日志器。
func WithRetrieverLogger(logger *zap.Logger) RetrieverOption {
	return func(r *Retriever) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithFusionStrategy 替换融合策略（默认最大相似度融合）。
func WithFusionStrategy(f FusionStrategy) RetrieverOption {
	return func(r *Retriever) {
		if f != nil {
			r.fusion = f
		}
	}
}

// WithTokenizer 替换预算裁剪使用的分词器（默认字符估算）。
func WithTokenizer(tok Tokenizer) RetrieverOption {
	return func(r *Retriever) {
		if tok != nil {
			r.tokenizer = tok
		}
	}
}

// WithMetrics 注入指标收集器。
func WithMetrics(c *metrics.Collector) RetrieverOption {
	return func(r *Retriever) { r.collector = c }
}

// MultiQuerySearch 执行多查询检索并返回排序、去重、预算封顶的证据列表。
// 零命中返回空序列而非错误，由调用方走无上下文的提示词路径。
func (r *Retriever) MultiQuerySearch(ctx context.Context, query string) ([]types.SearchHit, error) {
	started := time.Now()
	ctx, span := r.tracer.Start(ctx, "rag.multi_query_search",
		trace.WithAttributes(attribute.Int("max_queries", r.cfg.MaxQueries)))
	defer span.End()

	variants := []string{query}
	if r.expander != nil {
		variants = r.expander.Expand(ctx, query, r.cfg.MaxQueries)
	}
	span.SetAttributes(attribute.Int("variants", len(variants)))

	embeddings, err := r.embedder.EmbedBatch(ctx, variants)
	if err != nil {
		r.collector.RecordRetrieval("failed", time.Since(started), len(variants), 0)
		return nil, err
	}

	resultSets := make([][]types.SearchHit, len(variants))
	g, gctx := errgroup.WithContext(ctx)
	for i := range variants {
		i := i
		g.Go(func() error {
			hits, searchErr := r.store.Search(gctx, embeddings[i],
				r.cfg.SimilarityThreshold, r.cfg.PerQueryLimit)
			if searchErr != nil {
				// 单变体失败按零命中处理，不中止整体融合
				r.logger.Warn("variant search failed",
					zap.String("variant", variants[i]),
					zap.Error(searchErr))
				r.collector.RecordVariantSearchFailure()
				return nil
			}
			resultSets[i] = hits
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		r.collector.RecordRetrieval("failed", time.Since(started), len(variants), 0)
		return nil, err
	}

	fused := r.fusion.Fuse(resultSets)
	sortHitsBySimilarity(fused)
	evidence := r.deduplicateResults(fused, r.cfg.MaxContextTokens)

	span.SetAttributes(attribute.Int("evidence", len(evidence)))
	r.collector.RecordRetrieval("success", time.Since(started), len(variants), len(evidence))
	r.logger.Debug("multi-query search completed",
		zap.Int("variants", len(variants)),
		zap.Int("fused", len(fused)),
		zap.Int("evidence", len(evidence)))

	return evidence, nil
}

// deduplicateResults 沿已排序列表累加估算 token 数，超出预算即停止收录，
// 返回的始终是排序列表的严格前缀。
func (r *Retriever) deduplicateResults(hits []types.SearchHit, maxTokens int) []types.SearchHit {
	if maxTokens <= 0 {
		return hits
	}

	evidence := make([]types.SearchHit, 0, len(hits))
	total := 0
	for _, hit := range hits {
		cost := r.tokenizer.CountTokens(hit.Content)
		if total+cost > maxTokens {
			break
		}
		total += cost
		evidence = append(evidence, hit)
	}
	return evidence
}

// DeduplicateResults 对已排序命中应用 token 预算裁剪（使用字符估算）。
func DeduplicateResults(hits []types.SearchHit, maxTokens int) []types.SearchHit {
	if maxTokens <= 0 {
		return hits
	}

	evidence := make([]types.SearchHit, 0, len(hits))
	total := 0
	for _, hit := range hits {
		cost := embedding.EstimateTokenCount(hit.Content)
		if total+cost > maxTokens {
			break
		}
		total += cost
		evidence = append(evidence, hit)
	}
	return evidence
}

func sortHitsBySimilarity(hits []types.SearchHit) {
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Similarity > hits[j].Similarity
	})
}
