package embedding

import (
	"math"
	"unicode/utf8"
)

// EstimateTokenCount 估算文本的 token 数量。
// 采用每 2.5 个字符约一个 token 的启发式（按 rune 计数），向上取整，
// 对中英混排语料的偏差在成本预估可接受的范围内。
func EstimateTokenCount(text string) int {
	if text == "" {
		return 0
	}
	return int(math.Ceil(float64(utf8.RuneCountInString(text)) / 2.5))
}

// EstimateTokensForTexts 估算一组文本的 token 总量。
// 逐条估算后求和，与逐条入库时的计费口径一致。
func EstimateTokensForTexts(texts []string) int {
	total := 0
	for _, t := range texts {
		total += EstimateTokenCount(t)
	}
	return total
}

// EstimateCostForTokens 按每 1K token 单价计算费用（USD）。
func EstimateCostForTokens(tokens int, pricePer1KTokens float64) float64 {
	if tokens <= 0 || pricePer1KTokens <= 0 {
		return 0
	}
	return float64(tokens) / 1000 * pricePer1KTokens
}

// EstimateCost 估算嵌入一组文本的费用（USD）。
func EstimateCost(texts []string, pricePer1KTokens float64) float64 {
	return EstimateCostForTokens(EstimateTokensForTexts(texts), pricePer1KTokens)
}
