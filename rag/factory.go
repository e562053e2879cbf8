package rag

import (
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/BaSui01/knowbase/config"
	"github.com/BaSui01/knowbase/internal/metrics"
	"github.com/BaSui01/knowbase/llm"
	"github.com/BaSui01/knowbase/llm/embedding"
	"github.com/BaSui01/knowbase/types"
)

// =============================================================================
// 🏭 组件工厂
// =============================================================================

// NewVectorStoreFromConfig 根据配置创建向量存储。
// storeType 支持 "memory" 与 "pgvector"。
func NewVectorStoreFromConfig(storeType string, cfg *config.Config, logger *zap.Logger) (VectorStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch storeType {
	case "", "memory":
		return NewInMemoryVectorStore(logger), nil

	case "pgvector":
		if cfg == nil {
			return nil, types.NewError(types.ErrInvalidConfig, "pgvector store requires database configuration")
		}
		db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		})
		if err != nil {
			return nil, types.NewError(types.ErrInvalidConfig, "failed to connect to postgres").WithCause(err)
		}
		return NewPgVectorStore(db, PgVectorConfig{
			Dimensions:      cfg.Embedding.Dimensions,
			InsertBatchSize: cfg.Database.InsertBatchSize,
		}, logger), nil

	default:
		return nil, types.Errorf(types.ErrInvalidConfig, "unknown vector store type: %s", storeType)
	}
}

// NewEmbeddingClientFromConfig 根据配置创建嵌入客户端。
func NewEmbeddingClientFromConfig(cfg *config.Config, logger *zap.Logger) (*EmbeddingClient, error) {
	if cfg == nil {
		return nil, types.NewError(types.ErrInvalidConfig, "embedding client requires configuration")
	}

	apiKey := cfg.Embedding.APIKey
	if apiKey == "" {
		apiKey = cfg.LLM.APIKey
	}
	if apiKey == "" {
		return nil, types.NewError(types.ErrInvalidConfig, "embedding api key is required")
	}

	provider := embedding.NewOpenAIProvider(embedding.OpenAIConfig{
		APIKey:           apiKey,
		BaseURL:          cfg.Embedding.BaseURL,
		Model:            cfg.Embedding.Model,
		Dimensions:       cfg.Embedding.Dimensions,
		Timeout:          cfg.Embedding.Timeout,
		PricePer1KTokens: cfg.Embedding.PricePer1KTokens,
	})

	return NewEmbeddingClient(provider, EmbedderConfig{
		Dimensions:        cfg.Embedding.Dimensions,
		SubBatchSize:      cfg.Embedding.BatchSize,
		RequestsPerSecond: cfg.Embedding.RequestsPerSecond,
		PricePer1KTokens:  cfg.Embedding.PricePer1KTokens,
	}, logger), nil
}

// NewQueryExpanderFromConfig 根据配置创建查询扩展器。
// 扩展缓存由 Retrieval.ExpansionCache 选择：none、memory 或 redis。
func NewQueryExpanderFromConfig(cfg *config.Config, logger *zap.Logger) (*QueryExpander, error) {
	if cfg == nil {
		return nil, types.NewError(types.ErrInvalidConfig, "query expander requires configuration")
	}
	if cfg.LLM.APIKey == "" {
		return nil, types.NewError(types.ErrInvalidConfig, "llm api key is required")
	}

	provider := llm.NewOpenAIProvider(llm.OpenAIConfig{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLM.Timeout,
	}, logger)

	cache, err := newExpansionCacheFromConfig(cfg, logger)
	if err != nil {
		return nil, err
	}

	return NewQueryExpander(provider, cache, ExpanderConfig{
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	}, logger), nil
}

func newExpansionCacheFromConfig(cfg *config.Config, logger *zap.Logger) (ExpansionCache, error) {
	switch cfg.Retrieval.ExpansionCache {
	case "none":
		return nil, nil

	case "", "memory":
		return NewMemoryExpansionCache(cfg.Retrieval.ExpansionCacheTTL), nil

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		return NewRedisExpansionCache(client, cfg.Retrieval.ExpansionCacheTTL, logger), nil

	default:
		return nil, types.Errorf(types.ErrInvalidConfig, "unknown expansion cache type: %s", cfg.Retrieval.ExpansionCache)
	}
}

// NewRetrieverFromConfig 根据配置组装多查询检索器。
func NewRetrieverFromConfig(
	cfg *config.Config,
	store VectorStore,
	collector *metrics.Collector,
	logger *zap.Logger,
) (*Retriever, error) {
	if cfg == nil {
		return nil, types.NewError(types.ErrInvalidConfig, "retriever requires configuration")
	}
	if store == nil {
		return nil, types.NewError(types.ErrInvalidConfig, "retriever requires a vector store")
	}

	expander, err := NewQueryExpanderFromConfig(cfg, logger)
	if err != nil {
		return nil, err
	}
	embedder, err := NewEmbeddingClientFromConfig(cfg, logger)
	if err != nil {
		return nil, err
	}

	return NewRetriever(expander, embedder, store, RetrieverConfig{
		PerQueryLimit:       cfg.Retrieval.PerQueryLimit,
		SimilarityThreshold: cfg.Retrieval.SimilarityThreshold,
		MaxQueries:          cfg.Retrieval.MaxQueries,
		MaxContextTokens:    cfg.Retrieval.MaxContextTokens,
	},
		WithRetrieverLogger(logger),
		WithFusionStrategy(NewFusionStrategy(cfg.Retrieval.FusionStrategy)),
		WithTokenizer(NewTokenizer(cfg.Embedding.Model, logger)),
		WithMetrics(collector),
	), nil
}

// NewIngestorFromConfig 根据配置组装文档入库管线。
func NewIngestorFromConfig(
	cfg *config.Config,
	store VectorStore,
	collector *metrics.Collector,
	logger *zap.Logger,
) (*Ingestor, error) {
	if cfg == nil {
		return nil, types.NewError(types.ErrInvalidConfig, "ingestor requires configuration")
	}
	if store == nil {
		return nil, types.NewError(types.ErrInvalidConfig, "ingestor requires a vector store")
	}

	embedder, err := NewEmbeddingClientFromConfig(cfg, logger)
	if err != nil {
		return nil, err
	}

	chunker := NewSemanticChunker(ChunkerConfig{
		TargetSize: cfg.Chunking.TargetSize,
		MaxSize:    cfg.Chunking.MaxSize,
		MinSize:    cfg.Chunking.MinSize,
	}, logger)

	return NewIngestor(chunker, embedder, store,
		WithIngestorLogger(logger),
		WithIngestorMetrics(collector),
	), nil
}
