package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/knowbase/llm"
)

// MaxQueryVariants 查询变体数量的硬上限（含原始查询）。
const MaxQueryVariants = 5

// ExpanderConfig 查询扩展配置。
type ExpanderConfig struct {
	Model       string  `json:"model"`       // 改写用的对话模型
	Temperature float64 `json:"temperature"` // 适度发散以获得不同措辞
	MaxTokens   int     `json:"max_tokens"`
}

// DefaultExpanderConfig 返回默认扩展配置。
func DefaultExpanderConfig() ExpanderConfig {
	return ExpanderConfig{
		Temperature: 0.7,
		MaxTokens:   300,
	}
}

// QueryExpander 多查询扩展器。
// 请求 LLM 为用户问题生成若干语义变体以扩大召回；
// 扩展失败（网络、配额、输出不可解析）一律优雅降级为仅原始查询，
// 绝不让扩展阶段导致整个检索请求失败。
type QueryExpander struct {
	provider llm.Provider
	cache    ExpansionCache
	cfg      ExpanderConfig
	logger   *zap.Logger
}

// NewQueryExpander 创建查询扩展器。cache 可为 nil（不缓存）。
func NewQueryExpander(provider llm.Provider, cache ExpansionCache, cfg ExpanderConfig, logger *zap.Logger) *QueryExpander {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueryExpander{
		provider: provider,
		cache:    cache,
		cfg:      cfg,
		logger:   logger.With(zap.String("component", "query_expander")),
	}
}

// jsonArrayRe 从 LLM 输出中提取首个 JSON 数组片段，
// 容忍围绕数组的解释性文字或代码围栏。
var jsonArrayRe = regexp.MustCompile(`\[[\s\S]*\]`)

// Expand 将查询扩展为最多 maxQueries 个变体。
// 返回序列的首个元素始终是未修改的原始查询；maxQueries 被钳制到
// [1, MaxQueryVariants]，为 1 时直接返回原查询且不发起任何 LLM 调用。
func (e *QueryExpander) Expand(ctx context.Context, query string, maxQueries int) []string {
	if maxQueries > MaxQueryVariants {
		maxQueries = MaxQueryVariants
	}
	if maxQueries <= 1 || e.provider == nil {
		return []string{query}
	}

	if e.cache != nil {
		if variants, ok := e.cache.Get(ctx, query); ok && len(variants) > 0 {
			e.logger.Debug("expansion cache hit", zap.String("query", query))
			return clampVariants(query, variants, maxQueries)
		}
	}

	variants := e.expandWithLLM(ctx, query, maxQueries-1)
	result := clampVariants(query, variants, maxQueries)

	if e.cache != nil && len(result) > 1 {
		e.cache.Set(ctx, query, result)
	}
	return result
}

func (e *QueryExpander) expandWithLLM(ctx context.Context, query string, count int) []string {
	prompt := fmt.Sprintf(`Generate %d alternative phrasings of the following search query.
Vary the vocabulary and angle while preserving the intent and language of the original.
Respond with ONLY a JSON array of strings, no explanation.

Query: %s`, count, query)

	resp, err := e.provider.Completion(ctx, &llm.ChatRequest{
		Model: e.cfg.Model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "You rewrite search queries. Always answer with a JSON array of strings."},
			{Role: llm.RoleUser, Content: prompt},
		},
		Temperature: float32(e.cfg.Temperature),
		MaxTokens:   e.cfg.MaxTokens,
	})
	if err != nil {
		e.logger.Warn("query expansion failed, falling back to original query",
			zap.String("query", query),
			zap.Error(err))
		return nil
	}

	variants := parseVariants(resp.FirstText())
	if len(variants) == 0 {
		e.logger.Warn("query expansion produced no parseable variants",
			zap.String("query", query))
	}
	return variants
}

// parseVariants 把不可信的 LLM 输出解析为字符串变体列表。
// 任何解析失败都返回空列表，由调用方降级处理。
func parseVariants(text string) []string {
	match := jsonArrayRe.FindString(text)
	if match == "" {
		return nil
	}

	var raw []any
	if err := json.Unmarshal([]byte(match), &raw); err != nil {
		return nil
	}

	variants := make([]string, 0, len(raw))
	for _, v := range raw {
		s, ok := v.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if s != "" {
			variants = append(variants, s)
		}
	}
	return variants
}

// clampVariants 组装最终变体列表：原查询在首位，去重并截断到 maxQueries。
func clampVariants(original string, variants []string, maxQueries int) []string {
	result := []string{original}
	seen := map[string]bool{original: true}
	for _, v := range variants {
		if len(result) >= maxQueries {
			break
		}
		if seen[v] {
			continue
		}
		seen[v] = true
		result = append(result, v)
	}
	return result
}
