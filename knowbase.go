// Package knowbase provides a top-level convenience entry point for building
// a RAG knowledge base with minimal boilerplate.
//
// Usage:
//
//	import "github.com/BaSui01/knowbase"
//
//	kb, err := knowbase.Open(cfg, "memory", logger)
//	result, err := kb.Ingest(ctx, doc, text)
//	evidence, err := kb.Search(ctx, "how do refunds work?")
//
// This is a thin wrapper around the rag package factories; both produce
// identical results. Use this package when you prefer the shorter import path.
package knowbase

import (
	"context"

	"go.uber.org/zap"

	"github.com/BaSui01/knowbase/config"
	"github.com/BaSui01/knowbase/internal/metrics"
	"github.com/BaSui01/knowbase/rag"
	"github.com/BaSui01/knowbase/types"
)

// KnowledgeBase bundles the ingestion pipeline and the retriever over a
// shared vector store.
type KnowledgeBase struct {
	Store     rag.VectorStore
	Ingestor  *rag.Ingestor
	Retriever *rag.Retriever
}

// Open assembles a knowledge base from configuration.
// The vector store backend is selected by storeType ("memory" or "pgvector");
// an empty storeType defaults to the in-memory store.
func Open(cfg *config.Config, storeType string, logger *zap.Logger) (*KnowledgeBase, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var collector *metrics.Collector
	if cfg != nil && cfg.Metrics.Enabled {
		collector = metrics.NewCollector(cfg.Metrics.Namespace, nil, logger)
	}

	store, err := rag.NewVectorStoreFromConfig(storeType, cfg, logger)
	if err != nil {
		return nil, err
	}

	ingestor, err := rag.NewIngestorFromConfig(cfg, store, collector, logger)
	if err != nil {
		return nil, err
	}

	retriever, err := rag.NewRetrieverFromConfig(cfg, store, collector, logger)
	if err != nil {
		return nil, err
	}

	return &KnowledgeBase{
		Store:     store,
		Ingestor:  ingestor,
		Retriever: retriever,
	}, nil
}

// Ingest chunks, embeds and stores a document body.
func (kb *KnowledgeBase) Ingest(ctx context.Context, doc *types.Document, text string) (*rag.IngestResult, error) {
	return kb.Ingestor.IngestDocument(ctx, doc, text)
}

// Search runs a multi-query retrieval and returns budget-capped evidence.
func (kb *KnowledgeBase) Search(ctx context.Context, query string) ([]types.SearchHit, error) {
	return kb.Retriever.MultiQuerySearch(ctx, query)
}

// Delete removes a document and all of its chunks from the vector store.
func (kb *KnowledgeBase) Delete(ctx context.Context, documentID string) error {
	return kb.Ingestor.DeleteDocument(ctx, documentID)
}
