// =============================================================================
// 📦 Knowbase 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		LLM:       DefaultLLMConfig(),
		Embedding: DefaultEmbeddingConfig(),
		Chunking:  DefaultChunkingConfig(),
		Retrieval: DefaultRetrievalConfig(),
		Database:  DefaultDatabaseConfig(),
		Redis:     DefaultRedisConfig(),
		Log:       DefaultLogConfig(),
		Metrics:   DefaultMetricsConfig(),
	}
}

// DefaultLLMConfig 返回默认 LLM 配置
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		APIKey:      "",
		BaseURL:     "",
		Model:       "gpt-4o-mini",
		Timeout:     2 * time.Minute,
		Temperature: 0.7,
		MaxTokens:   300,
	}
}

// DefaultEmbeddingConfig 返回默认嵌入配置
func DefaultEmbeddingConfig() EmbeddingConfig {
	return EmbeddingConfig{
		APIKey:     "",
		BaseURL:    "",
		Model:      "text-embedding-3-small",
		Dimensions: 1536,
		BatchSize:  100,
		Timeout:    30 * time.Second,
		// text-embedding-3-small: $0.00002 per 1K tokens
		PricePer1KTokens:  0.00002,
		RequestsPerSecond: 0,
	}
}

// DefaultChunkingConfig 返回默认分块配置
func DefaultChunkingConfig() ChunkingConfig {
	return ChunkingConfig{
		TargetSize: 500,
		MaxSize:    800,
		MinSize:    100,
	}
}

// DefaultRetrievalConfig 返回默认检索配置
func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		PerQueryLimit:       5,
		SimilarityThreshold: 0.3,
		MaxQueries:          4,
		MaxContextTokens:    4000,
		FusionStrategy:      "max",
		ExpansionCache:      "memory",
		ExpansionCacheTTL:   30 * time.Minute,
	}
}

// DefaultDatabaseConfig 返回默认数据库配置
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Host:            "localhost",
		Port:            5432,
		User:            "knowbase",
		Password:        "",
		Name:            "knowbase",
		SSLMode:         "disable",
		InsertBatchSize: 500,
		MaxOpenConns:    25,
		MaxIdleConns:    5,
	}
}

// DefaultRedisConfig 返回默认 Redis 配置
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:     "localhost:6379",
		Password: "",
		DB:       0,
		PoolSize: 10,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:        "info",
		Format:       "json",
		OutputPaths:  []string{"stdout"},
		EnableCaller: true,
	}
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:   true,
		Namespace: "knowbase",
	}
}
