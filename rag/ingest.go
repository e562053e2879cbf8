package rag

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/knowbase/internal/metrics"
	"github.com/BaSui01/knowbase/llm/embedding"
	"github.com/BaSui01/knowbase/types"
)

// IngestResult 单次文档入库的结果摘要。
type IngestResult struct {
	ChunkCount      int     `json:"chunk_count"`      // 写入的块数
	EstimatedTokens int     `json:"estimated_tokens"` // 估算的嵌入 token 总数
	EstimatedCost   float64 `json:"estimated_cost"`   // 估算的嵌入成本（USD）
}

// Ingestor 文档入库管线：切块、嵌入、写入向量存储。
type Ingestor struct {
	chunker   *SemanticChunker
	embedder  *EmbeddingClient
	store     VectorStore
	collector *metrics.Collector
	tracer    trace.Tracer
	logger    *zap.Logger
}

// NewIngestor 创建文档入库管线。
func NewIngestor(
	chunker *SemanticChunker,
	embedder *EmbeddingClient,
	store VectorStore,
	opts ...IngestorOption,
) *Ingestor {
	ing := &Ingestor{
		chunker:  chunker,
		embedder: embedder,
		store:    store,
		tracer:   otel.Tracer("knowbase/rag"),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(ing)
	}
	ing.logger = ing.logger.With(zap.String("component", "ingestor"))
	return ing
}

// IngestorOption 入库管线可选配置。
type IngestorOption func(*Ingestor)

// WithIngestorLogger 注入日志器。
func WithIngestorLogger(logger *zap.Logger) IngestorOption {
	return func(ing *Ingestor) {
		if logger != nil {
			ing.logger = logger
		}
	}
}

// WithIngestorMetrics 注入指标收集器。
func WithIngestorMetrics(c *metrics.Collector) IngestorOption {
	return func(ing *Ingestor) { ing.collector = c }
}

// IngestDocument 对文档正文执行切块、批量嵌入并原子替换向量存储中的块。
// 文档状态由调用方管理，本方法不修改 doc 的任何字段。
func (ing *Ingestor) IngestDocument(ctx context.Context, doc *types.Document, text string) (*IngestResult, error) {
	started := time.Now()
	ctx, span := ing.tracer.Start(ctx, "rag.ingest_document",
		trace.WithAttributes(attribute.String("document_id", doc.ID)))
	defer span.End()

	if strings.TrimSpace(text) == "" {
		ing.collector.RecordIngestion("failed", time.Since(started), 0, 0, 0)
		return nil, types.Errorf(types.ErrEmptyContent, "document %s has no content to ingest", doc.ID)
	}

	pieces := ing.chunker.Chunk(text)
	if len(pieces) == 0 {
		ing.collector.RecordIngestion("failed", time.Since(started), 0, 0, 0)
		return nil, types.Errorf(types.ErrEmptyContent, "document %s produced no chunks", doc.ID)
	}
	span.SetAttributes(attribute.Int("chunks", len(pieces)))

	tokens := embedding.EstimateTokensForTexts(pieces)
	cost := ing.embedder.EstimateCost(pieces)

	embeddings, err := ing.embedder.EmbedBatch(ctx, pieces)
	if err != nil {
		ing.collector.RecordIngestion("failed", time.Since(started), 0, 0, 0)
		return nil, err
	}

	chunks := make([]types.Chunk, len(pieces))
	for i, content := range pieces {
		chunks[i] = types.Chunk{
			ID:         uuid.New().String(),
			DocumentID: doc.ID,
			Ordinal:    i,
			Content:    content,
			Embedding:  embeddings[i],
		}
	}

	if err := ing.store.UpsertChunks(ctx, doc, chunks); err != nil {
		ing.collector.RecordIngestion("failed", time.Since(started), 0, 0, 0)
		return nil, err
	}

	ing.collector.RecordIngestion("success", time.Since(started), len(chunks), tokens, cost)
	ing.logger.Info("document ingested",
		zap.String("document_id", doc.ID),
		zap.Int("chunks", len(chunks)),
		zap.Int("estimated_tokens", tokens),
		zap.Float64("estimated_cost", cost))

	return &IngestResult{
		ChunkCount:      len(chunks),
		EstimatedTokens: tokens,
		EstimatedCost:   cost,
	}, nil
}

// DeleteDocument 删除文档在向量存储中的全部块。
func (ing *Ingestor) DeleteDocument(ctx context.Context, documentID string) error {
	if err := ing.store.DeleteDocument(ctx, documentID); err != nil {
		return err
	}
	ing.logger.Info("document chunks deleted", zap.String("document_id", documentID))
	return nil
}
