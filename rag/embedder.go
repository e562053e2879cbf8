package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/knowbase/llm"
	"github.com/BaSui01/knowbase/llm/embedding"
	"github.com/BaSui01/knowbase/types"
)

// EmbedderConfig 嵌入客户端配置。
type EmbedderConfig struct {
	Dimensions        int     `json:"dimensions"`          // 期望向量维度
	SubBatchSize      int     `json:"sub_batch_size"`      // 单次请求的文本条数上限
	RequestsPerSecond float64 `json:"requests_per_second"` // 0 表示不限流
	PricePer1KTokens  float64 `json:"price_per_1k_tokens"`
}

// DefaultEmbedderConfig 返回默认嵌入客户端配置。
func DefaultEmbedderConfig() EmbedderConfig {
	return EmbedderConfig{
		Dimensions:       1536,
		SubBatchSize:     100,
		PricePer1KTokens: 0.00002,
	}
}

// EmbeddingClient 批量嵌入客户端。
// 在提供者之上增加输入校验、维度校验、子批次拆分与速率限制；
// 任一子批次失败即中止整个批量操作，不产生部分结果。
type EmbeddingClient struct {
	provider embedding.Provider
	cfg      EmbedderConfig
	limiter  *rate.Limiter
	logger   *zap.Logger
}

// NewEmbeddingClient 创建嵌入客户端。
func NewEmbeddingClient(provider embedding.Provider, cfg EmbedderConfig, logger *zap.Logger) *EmbeddingClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SubBatchSize <= 0 {
		cfg.SubBatchSize = 100
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = provider.Dimensions()
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &EmbeddingClient{
		provider: provider,
		cfg:      cfg,
		limiter:  limiter,
		logger:   logger.With(zap.String("component", "embedding_client")),
	}
}

// Dimensions 返回期望的向量维度。
func (c *EmbeddingClient) Dimensions() int { return c.cfg.Dimensions }

// Embed 嵌入单条文本。
func (c *EmbeddingClient) Embed(ctx context.Context, text string) ([]float64, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch 批量嵌入文本，返回与输入一一对应的向量序列。
//
// 含空文本（裁剪后为空）的批次被整体拒绝并返回 EMPTY_INPUT 错误，
// 错误信息携带首个空文本的下标；调用方必须先行过滤。
// 静默丢弃空文本会使返回长度与输入错位，这里选择显式失败。
func (c *EmbeddingClient) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, types.NewError(types.ErrEmptyInput, "no texts to embed")
	}
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, types.Errorf(types.ErrEmptyInput,
				"text at index %d is empty after normalization", i)
		}
	}

	vectors := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += c.cfg.SubBatchSize {
		end := start + c.cfg.SubBatchSize
		if end > len(texts) {
			end = len(texts)
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		batch, err := c.embedSubBatch(ctx, texts[start:end])
		if err != nil {
			c.logger.Warn("embedding sub-batch failed, aborting batch",
				zap.Int("offset", start),
				zap.Int("size", end-start),
				zap.Error(err))
			return nil, err
		}
		vectors = append(vectors, batch...)
	}

	c.logger.Debug("batch embedded",
		zap.Int("texts", len(texts)),
		zap.Int("dimensions", c.cfg.Dimensions))

	return vectors, nil
}

func (c *EmbeddingClient) embedSubBatch(ctx context.Context, texts []string) ([][]float64, error) {
	resp, err := c.provider.Embed(ctx, &embedding.EmbeddingRequest{
		Input:      texts,
		Dimensions: c.cfg.Dimensions,
		InputType:  embedding.InputTypeDocument,
	})
	if err != nil {
		return nil, wrapProviderError(err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, types.Errorf(types.ErrProvider,
			"provider returned %d embeddings for %d texts",
			len(resp.Embeddings), len(texts))
	}

	vectors := make([][]float64, len(texts))
	for _, d := range resp.Embeddings {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, types.Errorf(types.ErrProvider,
				"provider returned out-of-range embedding index %d", d.Index)
		}
		if len(d.Embedding) != c.cfg.Dimensions {
			return nil, types.Errorf(types.ErrEmbeddingDimension,
				"expected %d dimensions, got %d at index %d",
				c.cfg.Dimensions, len(d.Embedding), d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	for i, v := range vectors {
		if v == nil {
			return nil, types.Errorf(types.ErrProvider,
				"provider returned no embedding for index %d", i)
		}
	}
	return vectors, nil
}

// EstimateTokens 估算文本的 token 数（启发式，非计费精确值）。
func (c *EmbeddingClient) EstimateTokens(text string) int {
	return embedding.EstimateTokenCount(text)
}

// EstimateCost 估算嵌入一组文本的费用（USD，启发式）。
func (c *EmbeddingClient) EstimateCost(texts []string) float64 {
	return embedding.EstimateCost(texts, c.cfg.PricePer1KTokens)
}

// wrapProviderError 把提供者错误包装为结构化的 PROVIDER_ERROR，
// 保留原始消息、可重试标记与提供者名称用于诊断。
func wrapProviderError(err error) error {
	var lerr *llm.Error
	if errors.As(err, &lerr) {
		return types.NewError(types.ErrProvider,
			fmt.Sprintf("embedding provider failed: %s", lerr.Message)).
			WithCause(err).
			WithRetryable(lerr.Retryable).
			WithProvider(lerr.Provider)
	}
	return types.NewError(types.ErrProvider, "embedding provider failed").WithCause(err)
}
