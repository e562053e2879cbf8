package rag

import (
	"context"
	"math"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/BaSui01/knowbase/types"
)

// VectorStore 向量存储统一接口。
// UpsertChunks 以文档为单位全量替换：旧块连同旧向量一并丢弃，
// 不存在跨文档的部分提交状态。
type VectorStore interface {
	// UpsertChunks 原子地替换文档的全部块及其向量。
	UpsertChunks(ctx context.Context, doc *types.Document, chunks []types.Chunk) error

	// Search 返回相似度不低于 threshold 的前 limit 个命中，按相似度降序。
	Search(ctx context.Context, queryEmbedding []float64, threshold float64, limit int) ([]types.SearchHit, error)

	// DeleteDocument 删除文档并级联删除其所有块。
	DeleteDocument(ctx context.Context, documentID string) error

	// Count 返回存储的块总数。
	Count(ctx context.Context) (int, error)
}

// ====== 内存向量存储（用于测试和小规模应用）======

type storedDocument struct {
	doc    types.Document
	chunks []types.Chunk
}

// InMemoryVectorStore 内存向量存储。
type InMemoryVectorStore struct {
	documents map[string]*storedDocument
	mu        sync.RWMutex
	logger    *zap.Logger
}

// NewInMemoryVectorStore 创建内存向量存储。
func NewInMemoryVectorStore(logger *zap.Logger) *InMemoryVectorStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InMemoryVectorStore{
		documents: make(map[string]*storedDocument),
		logger:    logger.With(zap.String("component", "memory_vector_store")),
	}
}

// UpsertChunks 替换文档的全部块。
func (s *InMemoryVectorStore) UpsertChunks(ctx context.Context, doc *types.Document, chunks []types.Chunk) error {
	if doc == nil || doc.ID == "" {
		return types.NewError(types.ErrStoreWrite, "document id is required")
	}
	for i, ch := range chunks {
		if len(ch.Embedding) == 0 {
			return types.Errorf(types.ErrStoreWrite, "chunk %d has no embedding", i)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]types.Chunk, len(chunks))
	copy(stored, chunks)
	s.documents[doc.ID] = &storedDocument{doc: *doc, chunks: stored}

	s.logger.Info("chunks upserted",
		zap.String("document_id", doc.ID),
		zap.Int("chunks", len(chunks)))

	return nil
}

// Search 暴力扫描全部块计算余弦相似度。
func (s *InMemoryVectorStore) Search(ctx context.Context, queryEmbedding []float64, threshold float64, limit int) ([]types.SearchHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hits := []types.SearchHit{}
	for _, sd := range s.documents {
		for _, ch := range sd.chunks {
			similarity := cosineSimilarity(queryEmbedding, ch.Embedding)
			if similarity < threshold {
				continue
			}
			hits = append(hits, types.SearchHit{
				ChunkID:          ch.ID,
				DocumentID:       sd.doc.ID,
				DocumentTitle:    sd.doc.Title,
				DocumentCategory: sd.doc.Category,
				Content:          ch.Content,
				Similarity:       similarity,
			})
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		return hits[i].Similarity > hits[j].Similarity
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// DeleteDocument 删除文档及其所有块。
func (s *InMemoryVectorStore) DeleteDocument(ctx context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.documents, documentID)
	s.logger.Info("document deleted", zap.String("document_id", documentID))
	return nil
}

// Count 返回块总数。
func (s *InMemoryVectorStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, sd := range s.documents {
		total += len(sd.chunks)
	}
	return total, nil
}

// cosineSimilarity 计算余弦相似度。维度不一致时返回 0。
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}
	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
