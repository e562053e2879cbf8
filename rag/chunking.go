package rag

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"
)

// ChunkerConfig 分块配置。长度均按 rune 计数，对 CJK 与拉丁文本一视同仁。
type ChunkerConfig struct {
	TargetSize int `json:"target_size"` // 目标块大小
	MaxSize    int `json:"max_size"`    // 硬上限
	MinSize    int `json:"min_size"`    // 最小块大小（避免碎片）
}

// DefaultChunkerConfig 返回默认分块配置。
func DefaultChunkerConfig() ChunkerConfig {
	return ChunkerConfig{
		TargetSize: 500,
		MaxSize:    800,
		MinSize:    100,
	}
}

// SemanticChunker 语义分块器。
// 按 段落 → 句子 → 次级标点 → 硬切分 四级回退产出有界块，
// 块边界尽量落在语义边界上，避免在句子中间截断。
type SemanticChunker struct {
	cfg    ChunkerConfig
	logger *zap.Logger
}

// NewSemanticChunker 创建语义分块器。
func NewSemanticChunker(cfg ChunkerConfig, logger *zap.Logger) *SemanticChunker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TargetSize <= 0 {
		cfg = DefaultChunkerConfig()
	}
	return &SemanticChunker{
		cfg:    cfg,
		logger: logger.With(zap.String("component", "semantic_chunker")),
	}
}

// Chunk 将原始文本切分为有界块。
// 空或纯空白输入返回空序列而非错误。
// 除文档末块外，每块长度保持在 [MinSize, MaxSize] 区间内。
func (c *SemanticChunker) Chunk(text string) []string {
	if strings.TrimSpace(text) == "" {
		return []string{}
	}

	paragraphs := SplitParagraphs(text)
	chunks := make([]string, 0, len(paragraphs))
	buf := ""

	for _, para := range paragraphs {
		candidate := joinParagraphs(buf, para)

		if runeLen(candidate) <= c.cfg.TargetSize {
			buf = candidate
			continue
		}

		// 缓冲区过短时不单独成块，强行合并下一段避免碎片
		if buf != "" && runeLen(buf) < c.cfg.MinSize {
			if runeLen(candidate) <= c.cfg.MaxSize {
				chunks = append(chunks, candidate)
				buf = ""
				continue
			}
			pieces := c.splitOversize(candidate)
			chunks = append(chunks, pieces[:len(pieces)-1]...)
			buf = pieces[len(pieces)-1]
			continue
		}

		if buf != "" {
			chunks = append(chunks, buf)
			buf = ""
		}

		if runeLen(para) <= c.cfg.MaxSize {
			buf = para
			continue
		}

		// 单段超过硬上限：句子级切分，末片继续充当缓冲区
		// 以便与后续段落合并
		pieces := c.splitOversize(para)
		chunks = append(chunks, pieces[:len(pieces)-1]...)
		buf = pieces[len(pieces)-1]
	}

	if strings.TrimSpace(buf) != "" {
		last := len(chunks) - 1
		if runeLen(buf) < c.cfg.MinSize && last >= 0 &&
			runeLen(chunks[last])+2+runeLen(buf) <= c.cfg.MaxSize {
			// 过短的末块向前合并
			chunks[last] = chunks[last] + "\n\n" + buf
		} else {
			chunks = append(chunks, buf)
		}
	}

	result := make([]string, 0, len(chunks))
	for _, ch := range chunks {
		if strings.TrimSpace(ch) != "" {
			result = append(result, ch)
		}
	}
	result = c.normalizeChunks(result)

	c.logger.Debug("text chunked",
		zap.Int("paragraphs", len(paragraphs)),
		zap.Int("chunks", len(result)))

	return result
}

// normalizeChunks 消除低于 MinSize 的非末块。
// 优先把过短块并入下一块；放不下时并入上一块；
// 两侧都放不下（短块与两侧邻块合并均超 MaxSize）时，
// 与下一块合并后在中点硬切成两半。MaxSize >= 2*MinSize 时
// 两半都不低于 MinSize。
func (c *SemanticChunker) normalizeChunks(chunks []string) []string {
	out := make([]string, 0, len(chunks))
	for i := 0; i < len(chunks); i++ {
		cur := chunks[i]
		if i == len(chunks)-1 || runeLen(cur) >= c.cfg.MinSize {
			out = append(out, cur)
			continue
		}

		next := chunks[i+1]
		if runeLen(cur)+2+runeLen(next) <= c.cfg.MaxSize {
			chunks[i+1] = cur + "\n\n" + next
			continue
		}
		if n := len(out); n > 0 && runeLen(out[n-1])+2+runeLen(cur) <= c.cfg.MaxSize {
			out[n-1] = out[n-1] + "\n\n" + cur
			continue
		}

		combined := []rune(cur + "\n\n" + next)
		mid := len(combined) / 2
		out = append(out, string(combined[:mid]))
		chunks[i+1] = string(combined[mid:])
	}
	return out
}

// splitOversize 把超过 MaxSize 的文本按句子贪心聚合成多片。
// 返回至少一片；调用方立即提交除末片外的所有片，末片留作缓冲区。
func (c *SemanticChunker) splitOversize(text string) []string {
	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		return []string{text}
	}

	units := make([]string, 0, len(sentences))
	for _, s := range sentences {
		if runeLen(s) > c.cfg.MaxSize {
			units = append(units, c.splitOnPunctuation(s)...)
		} else {
			units = append(units, s)
		}
	}

	pieces := []string{}
	sbuf := ""
	for _, u := range units {
		candidate := joinSentences(sbuf, u)

		if runeLen(candidate) <= c.cfg.TargetSize {
			sbuf = candidate
			continue
		}
		if sbuf == "" {
			sbuf = u
			continue
		}
		if runeLen(sbuf) < c.cfg.MinSize && runeLen(candidate) <= c.cfg.MaxSize {
			// 过短片继续吸收句子直至达到下限
			sbuf = candidate
			continue
		}
		pieces = append(pieces, sbuf)
		sbuf = u
	}
	if sbuf != "" {
		pieces = append(pieces, sbuf)
	}
	if len(pieces) == 0 {
		return []string{text}
	}
	return pieces
}

// secondaryPunctuation 次级切分标点（CJK 与拉丁逗号、顿号、分号、冒号）。
const secondaryPunctuation = "，、；：,;:"

// splitOnPunctuation 按次级标点强制切分超长句。
// 标点间片段仍超过 TargetSize 时按固定偏移硬切作为最后手段。
func (c *SemanticChunker) splitOnPunctuation(sentence string) []string {
	atoms := []string{}
	cur := make([]rune, 0, c.cfg.TargetSize)
	for _, r := range sentence {
		cur = append(cur, r)
		if strings.ContainsRune(secondaryPunctuation, r) {
			atoms = append(atoms, string(cur))
			cur = cur[:0]
		}
	}
	if len(cur) > 0 {
		atoms = append(atoms, string(cur))
	}

	// 硬切仍超长的片段
	expanded := make([]string, 0, len(atoms))
	for _, a := range atoms {
		runes := []rune(a)
		for len(runes) > c.cfg.TargetSize {
			expanded = append(expanded, string(runes[:c.cfg.TargetSize]))
			runes = runes[c.cfg.TargetSize:]
		}
		if len(runes) > 0 {
			expanded = append(expanded, string(runes))
		}
	}

	// 贪心聚合到 TargetSize
	frags := []string{}
	fbuf := ""
	for _, a := range expanded {
		if fbuf != "" && runeLen(fbuf)+runeLen(a) > c.cfg.TargetSize {
			frags = append(frags, fbuf)
			fbuf = ""
		}
		fbuf += a
	}
	if fbuf != "" {
		frags = append(frags, fbuf)
	}
	return frags
}

// ====== 文本切分工具 ======

var (
	headingRe        = regexp.MustCompile(`^#{1,4}\s`)
	horizontalRuleRe = regexp.MustCompile(`^\s*(-{3,}|\*{3,}|_{3,})\s*$`)
	paragraphSplitRe = regexp.MustCompile(`\n{2,}`)
	whitespaceRunRe  = regexp.MustCompile(`\s+`)
)

// NormalizeWhitespace 将空白符序列（含换行）折叠为单个空格并裁剪两端。
// 仅用于需要扁平字符串的场合；语义分块的段落阶段必须保留行结构，不得使用。
func NormalizeWhitespace(text string) string {
	return strings.TrimSpace(whitespaceRunRe.ReplaceAllString(text, " "))
}

// SplitParagraphs 将原始文本切分为段落。
// Markdown 标题（# 至 ####）独立成段，水平分割线被隔离，
// 段落内部的单换行（如列表项）原样保留。
func SplitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	lines := strings.Split(text, "\n")
	rebuilt := make([]string, 0, len(lines)+8)
	for _, line := range lines {
		switch {
		case headingRe.MatchString(line):
			rebuilt = append(rebuilt, "", line)
		case horizontalRuleRe.MatchString(line):
			rebuilt = append(rebuilt, "", line, "")
		default:
			rebuilt = append(rebuilt, line)
		}
	}

	parts := paragraphSplitRe.Split(strings.Join(rebuilt, "\n"), -1)
	paragraphs := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	return paragraphs
}

// cjkTerminators 无空格书写习惯的 CJK 终结符，命中即断句。
const cjkTerminators = "。！？；"

// latinTerminators 拉丁终结符，仅当后随空白或输入结束时断句，
// 避免把缩写点（如 e.g.）误判为句子边界。
const latinTerminators = ".!?"

// SplitSentences 将文本块切分为句子单元。
// 每个句子保留其终结符，输出经过两端裁剪且非空。
func SplitSentences(text string) []string {
	sentences := []string{}
	runes := []rune(text)
	start := 0

	flush := func(end int) {
		s := strings.TrimSpace(string(runes[start:end]))
		if s != "" {
			sentences = append(sentences, s)
		}
		start = end
	}

	for i, r := range runes {
		if strings.ContainsRune(cjkTerminators, r) {
			flush(i + 1)
			continue
		}
		if strings.ContainsRune(latinTerminators, r) {
			if i+1 >= len(runes) || unicode.IsSpace(runes[i+1]) {
				flush(i + 1)
			}
		}
	}
	flush(len(runes))

	return sentences
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }

func joinParagraphs(buf, para string) string {
	if buf == "" {
		return para
	}
	return buf + "\n\n" + para
}

func joinSentences(buf, sentence string) string {
	if buf == "" {
		return sentence
	}
	return buf + " " + sentence
}
