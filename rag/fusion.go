package rag

import (
	"sort"

	"github.com/BaSui01/knowbase/types"
)

// FusionStrategy 把多个变体的结果集合并为一个去重集合。
// 返回顺序不做保证，由调用方统一排序。
type FusionStrategy interface {
	Name() string
	Fuse(resultSets [][]types.SearchHit) []types.SearchHit
}

// MaxSimilarityFusion 最大相似度融合（默认策略）。
// 同一块被多个变体命中时只保留一条记录，相似度取观测到的最大值：
// 对任一措辞强相关的块都有价值，取最大值不惩罚只被单个变体命中的块。
type MaxSimilarityFusion struct{}

func (MaxSimilarityFusion) Name() string { return "max" }

func (MaxSimilarityFusion) Fuse(resultSets [][]types.SearchHit) []types.SearchHit {
	merged := make(map[string]types.SearchHit)
	order := []string{}

	for _, hits := range resultSets {
		for _, hit := range hits {
			existing, seen := merged[hit.ChunkID]
			if !seen {
				merged[hit.ChunkID] = hit
				order = append(order, hit.ChunkID)
				continue
			}
			if hit.Similarity > existing.Similarity {
				merged[hit.ChunkID] = hit
			}
		}
	}

	fused := make([]types.SearchHit, 0, len(order))
	for _, id := range order {
		fused = append(fused, merged[id])
	}
	return fused
}

// ReciprocalRankFusion 倒数排名融合（RRF）。
// 忽略原始相似度分值，按各结果集内的名次打分：score = Σ 1/(k+rank)。
// 融合后的 Similarity 字段承载 RRF 分数，仅用于排序，不再是余弦相似度。
type ReciprocalRankFusion struct {
	K int // 平滑常数，0 时使用惯例值 60
}

func (ReciprocalRankFusion) Name() string { return "rrf" }

func (f ReciprocalRankFusion) Fuse(resultSets [][]types.SearchHit) []types.SearchHit {
	k := f.K
	if k <= 0 {
		k = 60
	}

	scores := make(map[string]float64)
	records := make(map[string]types.SearchHit)
	order := []string{}

	for _, hits := range resultSets {
		ranked := make([]types.SearchHit, len(hits))
		copy(ranked, hits)
		sort.SliceStable(ranked, func(i, j int) bool {
			return ranked[i].Similarity > ranked[j].Similarity
		})

		for rank, hit := range ranked {
			if _, seen := records[hit.ChunkID]; !seen {
				records[hit.ChunkID] = hit
				order = append(order, hit.ChunkID)
			}
			scores[hit.ChunkID] += 1.0 / float64(k+rank+1)
		}
	}

	fused := make([]types.SearchHit, 0, len(order))
	for _, id := range order {
		hit := records[id]
		hit.Similarity = scores[id]
		fused = append(fused, hit)
	}
	return fused
}

// NewFusionStrategy 按名称创建融合策略，未知名称回退到最大相似度融合。
func NewFusionStrategy(name string) FusionStrategy {
	switch name {
	case "rrf":
		return ReciprocalRankFusion{}
	default:
		return MaxSimilarityFusion{}
	}
}
