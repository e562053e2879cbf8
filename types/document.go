package types

import "time"

// DocumentStatus 表示文档的处理生命周期状态。
type DocumentStatus string

const (
	StatusPending    DocumentStatus = "pending"    // 已上传，等待处理
	StatusProcessing DocumentStatus = "processing" // 正在分块/嵌入
	StatusReady      DocumentStatus = "ready"      // 可被检索
	StatusFailed     DocumentStatus = "failed"     // 处理失败，可重新处理
)

// Document 表示知识库中的一篇文档的元数据。
// 文档本体（原始字节）由外部记录存储托管，核心只消费其提取文本。
type Document struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Category  string         `json:"category,omitempty"`
	Status    DocumentStatus `json:"status"`
	CreatedAt time.Time      `json:"created_at,omitempty"`
	UpdatedAt time.Time      `json:"updated_at,omitempty"`
}

// Chunk 表示文档的一个有界语义分块，是嵌入与检索的最小单元。
// Ordinal 严格反映原文顺序；Embedding 在摄取时生成，之后不再变更。
type Chunk struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	Ordinal    int       `json:"ordinal"`
	Content    string    `json:"content"`
	Embedding  []float64 `json:"embedding,omitempty"`
}

// SearchHit 表示一次向量检索的单条命中结果，携带引用所需的全部字段。
// Similarity 取值范围 [0,1]；多查询融合时同一 chunk 只保留最高相似度。
type SearchHit struct {
	ChunkID          string  `json:"chunk_id"`
	DocumentID       string  `json:"document_id"`
	DocumentTitle    string  `json:"document_title"`
	DocumentCategory string  `json:"document_category"`
	Content          string  `json:"content"`
	Similarity       float64 `json:"similarity"`
}
