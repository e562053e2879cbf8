package rag

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/BaSui01/knowbase/types"
)

// PgVectorConfig pgvector 存储配置。
type PgVectorConfig struct {
	Dimensions      int `json:"dimensions"`        // 向量维度，建表与校验共用
	InsertBatchSize int `json:"insert_batch_size"` // 单条 INSERT 的行数上限
}

// DefaultPgVectorConfig 返回默认 pgvector 配置。
func DefaultPgVectorConfig() PgVectorConfig {
	return PgVectorConfig{
		Dimensions:      1536,
		InsertBatchSize: 500,
	}
}

// PgVectorStore 基于 PostgreSQL + pgvector 扩展的向量存储。
// 文档替换在单个事务内完成：更新文档行、删除旧块、批量插入新块，
// 任一步失败整体回滚，不会留下半新半旧的文档。
type PgVectorStore struct {
	db     *gorm.DB
	cfg    PgVectorConfig
	logger *zap.Logger
}

// NewPgVectorStore 创建 pgvector 向量存储。
func NewPgVectorStore(db *gorm.DB, cfg PgVectorConfig, logger *zap.Logger) *PgVectorStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = 1536
	}
	if cfg.InsertBatchSize <= 0 {
		cfg.InsertBatchSize = 500
	}
	return &PgVectorStore{
		db:     db,
		cfg:    cfg,
		logger: logger.With(zap.String("component", "pgvector_store")),
	}
}

type documentRow struct {
	ID        string `gorm:"primaryKey;type:text"`
	Title     string `gorm:"type:text"`
	Category  string `gorm:"type:text"`
	Status    string `gorm:"type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (documentRow) TableName() string { return "documents" }

// chunkRow 映射 document_chunks 表。表结构由迁移文件负责，
// embedding 列的维度在迁移 SQL 中声明；运行期以 cfg.Dimensions 校验，
// 非默认维度的部署需要同时调整迁移与 Embedding.Dimensions 配置。
type chunkRow struct {
	ID         string `gorm:"primaryKey;type:text"`
	DocumentID string `gorm:"type:text;index"`
	Ordinal    int
	Content    string `gorm:"type:text"`
	Embedding  string `gorm:"type:vector"`
	CreatedAt  time.Time
}

func (chunkRow) TableName() string { return "document_chunks" }

// UpsertChunks 在单事务内全量替换文档的块。
func (s *PgVectorStore) UpsertChunks(ctx context.Context, doc *types.Document, chunks []types.Chunk) error {
	if doc == nil || doc.ID == "" {
		return types.NewError(types.ErrStoreWrite, "document id is required")
	}
	for i, ch := range chunks {
		if len(ch.Embedding) != s.cfg.Dimensions {
			return types.Errorf(types.ErrStoreWrite,
				"chunk %d embedding has %d dimensions, store expects %d",
				i, len(ch.Embedding), s.cfg.Dimensions)
		}
	}

	now := time.Now()
	rows := make([]chunkRow, len(chunks))
	for i, ch := range chunks {
		rows[i] = chunkRow{
			ID:         ch.ID,
			DocumentID: doc.ID,
			Ordinal:    ch.Ordinal,
			Content:    ch.Content,
			Embedding:  vectorToString(ch.Embedding),
			CreatedAt:  now,
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		docRow := documentRow{
			ID:        doc.ID,
			Title:     doc.Title,
			Category:  doc.Category,
			Status:    string(doc.Status),
			CreatedAt: doc.CreatedAt,
			UpdatedAt: now,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).Create(&docRow).Error; err != nil {
			return err
		}
		if err := tx.Where("document_id = ?", doc.ID).Delete(&chunkRow{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, s.cfg.InsertBatchSize).Error
	})
	if err != nil {
		return types.NewError(types.ErrStoreWrite,
			fmt.Sprintf("upsert chunks for document %s failed", doc.ID)).WithCause(err)
	}

	s.logger.Info("chunks upserted",
		zap.String("document_id", doc.ID),
		zap.Int("chunks", len(chunks)))

	return nil
}

// Search 用 pgvector 的余弦距离算子检索相似块。
func (s *PgVectorStore) Search(ctx context.Context, queryEmbedding []float64, threshold float64, limit int) ([]types.SearchHit, error) {
	if len(queryEmbedding) != s.cfg.Dimensions {
		return nil, types.Errorf(types.ErrEmbeddingDimension,
			"query embedding has %d dimensions, store expects %d",
			len(queryEmbedding), s.cfg.Dimensions)
	}
	if limit <= 0 {
		limit = 10
	}

	vec := vectorToString(queryEmbedding)
	var hits []types.SearchHit
	err := s.db.WithContext(ctx).Raw(`
		SELECT c.id AS chunk_id,
		       c.document_id,
		       d.title AS document_title,
		       d.category AS document_category,
		       c.content,
		       1 - (c.embedding <=> ?::vector) AS similarity
		FROM document_chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE 1 - (c.embedding <=> ?::vector) >= ?
		ORDER BY similarity DESC
		LIMIT ?`,
		vec, vec, threshold, limit).Scan(&hits).Error
	if err != nil {
		return nil, types.NewError(types.ErrStoreWrite, "vector search failed").WithCause(err)
	}
	return hits, nil
}

// DeleteDocument 删除文档行，块行由外键级联删除。
func (s *PgVectorStore) DeleteDocument(ctx context.Context, documentID string) error {
	if err := s.db.WithContext(ctx).Where("id = ?", documentID).Delete(&documentRow{}).Error; err != nil {
		return types.NewError(types.ErrStoreWrite,
			fmt.Sprintf("delete document %s failed", documentID)).WithCause(err)
	}
	s.logger.Info("document deleted", zap.String("document_id", documentID))
	return nil
}

// Count 返回块总数。
func (s *PgVectorStore) Count(ctx context.Context) (int, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&chunkRow{}).Count(&count).Error; err != nil {
		return 0, types.NewError(types.ErrStoreWrite, "count chunks failed").WithCause(err)
	}
	return int(count), nil
}

// vectorToString 序列化为 pgvector 的文本表示，如 [0.1,0.2,0.3]。
func vectorToString(vec []float64) string {
	var sb strings.Builder
	sb.Grow(len(vec)*10 + 2)
	sb.WriteByte('[')
	for i, v := range vec {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
	}
	sb.WriteByte(']')
	return sb.String()
}

// stringToVector 解析 pgvector 的文本表示。
func stringToVector(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	if s == "" {
		return []float64{}, nil
	}

	parts := strings.Split(s, ",")
	vec := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("parse vector component %d: %w", i, err)
		}
		vec[i] = v
	}
	return vec, nil
}
