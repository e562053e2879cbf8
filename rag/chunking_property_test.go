package rag

import (
	"strings"
	"testing"
	"unicode"

	"go.uber.org/zap"
	"pgregory.net/rapid"
)

// stripWhitespace 去掉所有空白符，用于覆盖率比较。
func stripWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

func chunkerConfigGen() *rapid.Generator[ChunkerConfig] {
	return rapid.Custom(func(t *rapid.T) ChunkerConfig {
		minSize := rapid.IntRange(5, 50).Draw(t, "min_size")
		targetSize := rapid.IntRange(minSize*2, 300).Draw(t, "target_size")
		maxSize := rapid.IntRange(targetSize+minSize, targetSize*2+minSize).Draw(t, "max_size")
		return ChunkerConfig{TargetSize: targetSize, MaxSize: maxSize, MinSize: minSize}
	})
}

func documentTextGen() *rapid.Generator[string] {
	sentence := rapid.Custom(func(t *rapid.T) string {
		words := rapid.SliceOfN(
			rapid.StringMatching(`[a-z]{2,10}`), 1, 12).Draw(t, "words")
		terminator := rapid.SampledFrom([]string{". ", "! ", "? ", "。", "！", "；"}).Draw(t, "terminator")
		return strings.Join(words, " ") + terminator
	})

	return rapid.Custom(func(t *rapid.T) string {
		paragraphs := rapid.SliceOfN(rapid.Custom(func(t *rapid.T) string {
			sentences := rapid.SliceOfN(sentence, 1, 8).Draw(t, "sentences")
			return strings.TrimSpace(strings.Join(sentences, ""))
		}), 1, 10).Draw(t, "paragraphs")
		return strings.Join(paragraphs, "\n\n")
	})
}

// 除末块外，所有块长度落在 [MinSize, MaxSize] 区间内。
func TestSemanticChunker_SizeInvariant(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cfg := chunkerConfigGen().Draw(t, "cfg")
		text := documentTextGen().Draw(t, "text")

		chunker := NewSemanticChunker(cfg, zap.NewNop())
		chunks := chunker.Chunk(text)

		for i, ch := range chunks {
			if runeLen(ch) > cfg.MaxSize {
				t.Fatalf("chunk %d exceeds max size %d: %d runes", i, cfg.MaxSize, runeLen(ch))
			}
			if i < len(chunks)-1 && runeLen(ch) < cfg.MinSize {
				t.Fatalf("non-final chunk %d below min size %d: %d runes", i, cfg.MinSize, runeLen(ch))
			}
			if strings.TrimSpace(ch) == "" {
				t.Fatalf("chunk %d is empty", i)
			}
		}
	})
}

// 拼接所有块（忽略分隔空白）后不丢失任何非空白字符。
func TestSemanticChunker_Coverage(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cfg := chunkerConfigGen().Draw(t, "cfg")
		text := documentTextGen().Draw(t, "text")

		chunker := NewSemanticChunker(cfg, zap.NewNop())
		chunks := chunker.Chunk(text)

		original := stripWhitespace(text)
		rebuilt := stripWhitespace(strings.Join(chunks, ""))
		if original != rebuilt {
			t.Fatalf("content mismatch:\noriginal %d chars\nrebuilt  %d chars",
				len(original), len(rebuilt))
		}
	})
}

// 相同输入与参数产生完全相同的块序列。
func TestSemanticChunker_IdempotentProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cfg := chunkerConfigGen().Draw(t, "cfg")
		text := documentTextGen().Draw(t, "text")

		chunker := NewSemanticChunker(cfg, zap.NewNop())
		first := chunker.Chunk(text)
		second := chunker.Chunk(text)

		if len(first) != len(second) {
			t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
		}
		for i := range first {
			if first[i] != second[i] {
				t.Fatalf("chunk %d differs between runs", i)
			}
		}
	})
}

// 适合放进单块的段落不会在句中被切断。
func TestSemanticChunker_SentenceBoundaryRespect(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cfg := chunkerConfigGen().Draw(t, "cfg")

		sentences := rapid.SliceOfN(
			rapid.StringMatching(`[a-z]{3,12}( [a-z]{3,12}){0,4}\.`), 1, 5).Draw(t, "sentences")
		para := strings.Join(sentences, " ")
		if runeLen(para) > cfg.MaxSize {
			t.Skip("paragraph exceeds single-chunk capacity")
		}

		chunker := NewSemanticChunker(cfg, zap.NewNop())
		chunks := chunker.Chunk(para)

		if len(chunks) != 1 {
			t.Fatalf("expected paragraph within max size to stay whole, got %d chunks", len(chunks))
		}
	})
}
