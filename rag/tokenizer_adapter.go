package rag

import (
	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"

	"github.com/BaSui01/knowbase/llm/embedding"
)

// Tokenizer 预算裁剪专用分词器接口。
type Tokenizer interface {
	CountTokens(text string) int
}

// EstimatorTokenizer 字符启发式分词器（每 2.5 个 rune 约一个 token）。
// 无需下载编码数据，作为 tiktoken 不可用时的回退与默认实现。
type EstimatorTokenizer struct{}

func (EstimatorTokenizer) CountTokens(text string) int {
	return embedding.EstimateTokenCount(text)
}

// TiktokenTokenizer 基于 tiktoken 编码表的精确分词器。
type TiktokenTokenizer struct {
	enc    *tiktoken.Tiktoken
	logger *zap.Logger
}

// NewTiktokenTokenizer 创建 tiktoken 分词器。
// model 指定模型名（如 "gpt-4o"、"text-embedding-3-small"）。
func NewTiktokenTokenizer(model string, logger *zap.Logger) (*TiktokenTokenizer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return nil, err
	}
	return &TiktokenTokenizer{enc: enc, logger: logger}, nil
}

// CountTokens 返回文本的精确 token 数。
func (t *TiktokenTokenizer) CountTokens(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}

// NewTokenizer 创建预算裁剪用分词器。
// 优先使用 tiktoken 精确计数，编码表不可用时回退到字符估算并记录警告。
func NewTokenizer(model string, logger *zap.Logger) Tokenizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	tok, err := NewTiktokenTokenizer(model, logger)
	if err != nil {
		logger.Warn("tiktoken unavailable, falling back to character estimate",
			zap.String("model", model),
			zap.Error(err))
		return EstimatorTokenizer{}
	}
	return tok
}
