package rag

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/knowbase/types"
)

// recordingStore 记录 UpsertChunks 调用的存储桩。
type recordingStore struct {
	mu     sync.Mutex
	doc    *types.Document
	chunks []types.Chunk
	err    error
}

func (s *recordingStore) UpsertChunks(ctx context.Context, doc *types.Document, chunks []types.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.doc = doc
	s.chunks = chunks
	return nil
}

func (s *recordingStore) Search(ctx context.Context, embedding []float64, threshold float64, limit int) ([]types.SearchHit, error) {
	return nil, nil
}

func (s *recordingStore) DeleteDocument(ctx context.Context, documentID string) error { return nil }
func (s *recordingStore) Count(ctx context.Context) (int, error)                      { return 0, nil }

func newTestIngestor(store VectorStore, provider *mockEmbeddingProvider) *Ingestor {
	chunker := NewSemanticChunker(DefaultChunkerConfig(), zap.NewNop())
	embedder := newTestEmbedder(provider, 100)
	return NewIngestor(chunker, embedder, store, WithIngestorLogger(zap.NewNop()))
}

func TestIngestor_IngestDocument(t *testing.T) {
	store := &recordingStore{}
	provider := &mockEmbeddingProvider{dims: 4}
	ing := newTestIngestor(store, provider)

	doc := testDocument("doc-1", "Refund policy")
	text := "Refunds are processed within 14 days.\n\nContact support for details."

	result, err := ing.IngestDocument(context.Background(), doc, text)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, len(store.chunks), result.ChunkCount)
	assert.Greater(t, result.EstimatedTokens, 0)
	assert.Greater(t, result.EstimatedCost, 0.0)

	// 块按序号排列，带嵌入与唯一 ID
	seen := map[string]bool{}
	for i, chunk := range store.chunks {
		assert.Equal(t, i, chunk.Ordinal)
		assert.Equal(t, "doc-1", chunk.DocumentID)
		assert.NotEmpty(t, chunk.Content)
		assert.Len(t, chunk.Embedding, 4)
		assert.False(t, seen[chunk.ID], "chunk IDs must be unique")
		seen[chunk.ID] = true
	}
	assert.Equal(t, doc, store.doc)
}

func TestIngestor_EmptyContent(t *testing.T) {
	store := &recordingStore{}
	ing := newTestIngestor(store, &mockEmbeddingProvider{dims: 4})

	for _, text := range []string{"", "   \n\t  "} {
		_, err := ing.IngestDocument(context.Background(), testDocument("doc-1", "t"), text)
		require.Error(t, err)
		assert.Equal(t, types.ErrEmptyContent, types.GetErrorCode(err))
	}
	assert.Nil(t, store.chunks)
}

func TestIngestor_DoesNotMutateDocument(t *testing.T) {
	store := &recordingStore{}
	ing := newTestIngestor(store, &mockEmbeddingProvider{dims: 4})

	doc := testDocument("doc-1", "title")
	before := *doc

	_, err := ing.IngestDocument(context.Background(), doc, "Some ingestable content here.")
	require.NoError(t, err)
	assert.Equal(t, before, *doc)
}

func TestIngestor_EmbeddingFailure(t *testing.T) {
	store := &recordingStore{}
	provider := &mockEmbeddingProvider{dims: 4, failAfter: 1}
	ing := newTestIngestor(store, provider)

	_, err := ing.IngestDocument(context.Background(), testDocument("doc-1", "t"), "Some content.")
	require.Error(t, err)
	assert.Equal(t, types.ErrProvider, types.GetErrorCode(err))

	// 嵌入失败时不得写入存储
	assert.Nil(t, store.chunks)
}

func TestIngestor_StoreFailure(t *testing.T) {
	store := &recordingStore{err: types.NewError(types.ErrStoreWrite, "disk full")}
	ing := newTestIngestor(store, &mockEmbeddingProvider{dims: 4})

	_, err := ing.IngestDocument(context.Background(), testDocument("doc-1", "t"), "Some content.")
	require.Error(t, err)
	assert.Equal(t, types.ErrStoreWrite, types.GetErrorCode(err))
}

func TestIngestor_LongDocumentMultipleChunks(t *testing.T) {
	store := &recordingStore{}
	ing := newTestIngestor(store, &mockEmbeddingProvider{dims: 4})

	paras := make([]string, 12)
	for i := range paras {
		paras[i] = strings.Repeat("This sentence pads the paragraph body. ", 8)
	}
	text := strings.Join(paras, "\n\n")

	result, err := ing.IngestDocument(context.Background(), testDocument("doc-long", "t"), text)
	require.NoError(t, err)
	assert.Greater(t, result.ChunkCount, 1)
	assert.Len(t, store.chunks, result.ChunkCount)
}

func TestIngestor_DeleteDocument(t *testing.T) {
	store := NewInMemoryVectorStore(zap.NewNop())
	provider := &mockEmbeddingProvider{dims: 4}
	ing := newTestIngestor(store, provider)

	doc := testDocument("doc-1", "t")
	_, err := ing.IngestDocument(context.Background(), doc, "Deletable content.")
	require.NoError(t, err)

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Greater(t, count, 0)

	require.NoError(t, ing.DeleteDocument(context.Background(), "doc-1"))

	count, err = store.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}
