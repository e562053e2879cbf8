package rag

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/knowbase/types"
)

// mockVectorStore 可编程的向量存储桩。
type mockVectorStore struct {
	mu       sync.Mutex
	searches int
	hits     map[int][]types.SearchHit // 第 N 次搜索返回的命中
	failOn   map[int]bool              // 第 N 次搜索返回错误
}

func (m *mockVectorStore) UpsertChunks(ctx context.Context, doc *types.Document, chunks []types.Chunk) error {
	return nil
}

func (m *mockVectorStore) Search(ctx context.Context, embedding []float64, threshold float64, limit int) ([]types.SearchHit, error) {
	m.mu.Lock()
	n := m.searches
	m.searches++
	m.mu.Unlock()

	if m.failOn[n] {
		return nil, errors.New("store unavailable")
	}
	return m.hits[n], nil
}

func (m *mockVectorStore) DeleteDocument(ctx context.Context, documentID string) error { return nil }
func (m *mockVectorStore) Count(ctx context.Context) (int, error)                      { return 0, nil }

func hit(chunkID string, similarity float64, content string) types.SearchHit {
	return types.SearchHit{
		ChunkID:    chunkID,
		DocumentID: "doc-1",
		Content:    content,
		Similarity: similarity,
	}
}

func newTestRetriever(store VectorStore, expanderResp string, cfg RetrieverConfig) *Retriever {
	provider := &mockChatProvider{response: expanderResp}
	expander := newTestExpander(provider, nil)
	embedder := newTestEmbedder(&mockEmbeddingProvider{dims: 4}, 100)
	return NewRetriever(expander, embedder, store, cfg, WithRetrieverLogger(zap.NewNop()))
}

func TestRetriever_MultiQuerySearch(t *testing.T) {
	store := &mockVectorStore{
		hits: map[int][]types.SearchHit{
			0: {hit("c1", 0.9, "first"), hit("c2", 0.5, "second")},
			1: {hit("c3", 0.7, "third")},
		},
	}
	r := newTestRetriever(store, `["variant two"]`, RetrieverConfig{
		PerQueryLimit:       5,
		SimilarityThreshold: 0.3,
		MaxQueries:          2,
		MaxContextTokens:    4000,
	})

	evidence, err := r.MultiQuerySearch(context.Background(), "original query")
	require.NoError(t, err)
	require.Len(t, evidence, 3)

	// 按融合相似度降序
	assert.Equal(t, "c1", evidence[0].ChunkID)
	assert.Equal(t, "c3", evidence[1].ChunkID)
	assert.Equal(t, "c2", evidence[2].ChunkID)
	assert.Equal(t, 2, store.searches)
}

func TestRetriever_FusionByMax(t *testing.T) {
	// 同一块被两个变体命中，相似度 0.4 与 0.9
	store := &mockVectorStore{
		hits: map[int][]types.SearchHit{
			0: {hit("shared", 0.4, "shared content")},
			1: {hit("shared", 0.9, "shared content")},
		},
	}
	r := newTestRetriever(store, `["rephrased"]`, RetrieverConfig{
		PerQueryLimit:       5,
		SimilarityThreshold: 0.3,
		MaxQueries:          2,
		MaxContextTokens:    4000,
	})

	evidence, err := r.MultiQuerySearch(context.Background(), "query")
	require.NoError(t, err)

	// 块只出现一次，相似度取最大值
	require.Len(t, evidence, 1)
	assert.Equal(t, "shared", evidence[0].ChunkID)
	assert.InDelta(t, 0.9, evidence[0].Similarity, 1e-9)
}

func TestRetriever_PartialVariantFailure(t *testing.T) {
	store := &mockVectorStore{
		hits: map[int][]types.SearchHit{
			0: {hit("c1", 0.8, "survives")},
		},
		failOn: map[int]bool{1: true},
	}
	r := newTestRetriever(store, `["failing variant"]`, RetrieverConfig{
		PerQueryLimit:       5,
		SimilarityThreshold: 0.3,
		MaxQueries:          2,
		MaxContextTokens:    4000,
	})

	evidence, err := r.MultiQuerySearch(context.Background(), "query")
	require.NoError(t, err)
	require.Len(t, evidence, 1)
	assert.Equal(t, "c1", evidence[0].ChunkID)
}

func TestRetriever_ZeroHits(t *testing.T) {
	store := &mockVectorStore{hits: map[int][]types.SearchHit{}}
	r := newTestRetriever(store, `["v"]`, RetrieverConfig{
		PerQueryLimit:       5,
		SimilarityThreshold: 0.9,
		MaxQueries:          2,
		MaxContextTokens:    4000,
	})

	evidence, err := r.MultiQuerySearch(context.Background(), "query")
	require.NoError(t, err)
	assert.Empty(t, evidence)
}

func TestRetriever_EmbeddingFailurePropagates(t *testing.T) {
	provider := &mockEmbeddingProvider{dims: 4, failAfter: 1}
	embedder := newTestEmbedder(provider, 100)
	expander := newTestExpander(&mockChatProvider{response: `["v"]`}, nil)
	store := &mockVectorStore{}

	r := NewRetriever(expander, embedder, store, DefaultRetrieverConfig())

	_, err := r.MultiQuerySearch(context.Background(), "query")
	require.Error(t, err)
	assert.Equal(t, types.ErrProvider, types.GetErrorCode(err))
	assert.Zero(t, store.searches)
}

func TestDeduplicateResults_BudgetCutoff(t *testing.T) {
	// 每条 40 rune 内容约 16 token
	content := strings.Repeat("x", 40)
	hits := []types.SearchHit{
		hit("c1", 0.9, content),
		hit("c2", 0.8, content),
		hit("c3", 0.7, content),
		hit("c4", 0.6, content),
	}

	evidence := DeduplicateResults(hits, 35)
	require.Len(t, evidence, 2)

	// 严格前缀：高排名命中绝不被跳过
	assert.Equal(t, "c1", evidence[0].ChunkID)
	assert.Equal(t, "c2", evidence[1].ChunkID)
}

func TestDeduplicateResults_NoBudget(t *testing.T) {
	hits := []types.SearchHit{hit("c1", 0.9, "a"), hit("c2", 0.8, "b")}
	assert.Len(t, DeduplicateResults(hits, 0), 2)
}

func TestMaxSimilarityFusion(t *testing.T) {
	fused := MaxSimilarityFusion{}.Fuse([][]types.SearchHit{
		{hit("a", 0.4, "x"), hit("b", 0.6, "y")},
		{hit("a", 0.9, "x"), hit("c", 0.5, "z")},
	})

	require.Len(t, fused, 3)
	byID := map[string]float64{}
	for _, h := range fused {
		byID[h.ChunkID] = h.Similarity
	}
	assert.InDelta(t, 0.9, byID["a"], 1e-9)
	assert.InDelta(t, 0.6, byID["b"], 1e-9)
	assert.InDelta(t, 0.5, byID["c"], 1e-9)
}

func TestReciprocalRankFusion(t *testing.T) {
	fused := ReciprocalRankFusion{K: 60}.Fuse([][]types.SearchHit{
		{hit("a", 0.9, "x"), hit("b", 0.8, "y")},
		{hit("b", 0.95, "y")},
	})

	require.Len(t, fused, 2)
	byID := map[string]float64{}
	for _, h := range fused {
		byID[h.ChunkID] = h.Similarity
	}
	// b 在两个结果集中均出现（第 2 名 + 第 1 名），分数高于只出现一次的 a
	assert.Greater(t, byID["b"], byID["a"])
	assert.InDelta(t, 1.0/61, byID["a"], 1e-9)
	assert.InDelta(t, 1.0/62+1.0/61, byID["b"], 1e-9)
}

func TestNewFusionStrategy(t *testing.T) {
	assert.Equal(t, "rrf", NewFusionStrategy("rrf").Name())
	assert.Equal(t, "max", NewFusionStrategy("max").Name())
	assert.Equal(t, "max", NewFusionStrategy("unknown").Name())
}

func TestEstimatorTokenizer(t *testing.T) {
	tok := EstimatorTokenizer{}
	assert.Equal(t, 2, tok.CountTokens("hello"))
	assert.Zero(t, tok.CountTokens(""))
}
