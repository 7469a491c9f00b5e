package retrieval

import (
	"sort"
	"strings"

	"svtr-chat-api/internal/domain/entity"
)

// ScoreWeights 相关性评分权重。
// 隐藏工作表与表格类型加分是可调的经验常数。
type ScoreWeights struct {
	Title          float64
	Summary        float64
	BodyOccurrence float64
	BodyCap        float64
	Coverage       float64
	HiddenBonus    float64
	SheetTypeBonus float64
}

// DefaultScoreWeights 默认评分权重
func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{
		Title:          0.5,
		Summary:        0.3,
		BodyOccurrence: 0.1,
		BodyCap:        0.4,
		Coverage:       0.3,
		HiddenBonus:    0.1,
		SheetTypeBonus: 0.1,
	}
}

// Fuser 多策略检索结果的融合与评分
type Fuser struct {
	weights ScoreWeights
}

// NewFuser 创建融合器
func NewFuser(weights ScoreWeights) *Fuser {
	return &Fuser{weights: weights}
}

// Fuse 对多来源匹配去重、评分并排序。
// 去重键为 (node_token, worksheet_name)，同键保留分数更高的一条；
// 低于 threshold 的匹配被丢弃，结果按分数降序截断到 maxResults。
func (f *Fuser) Fuse(matches []entity.RetrievalMatch, keywords []string, threshold float64, maxResults int) []entity.RetrievalMatch {
	scored := make([]entity.RetrievalMatch, len(matches))
	for i, m := range matches {
		m.Score = f.score(&m, keywords)
		scored[i] = m
	}

	// 去重：同一 (文档, 工作表) 保留高分
	seen := make(map[string]int, len(scored))
	deduplicated := make([]entity.RetrievalMatch, 0, len(scored))
	for _, m := range scored {
		key := m.DedupKey()
		if idx, ok := seen[key]; ok {
			if m.Score > deduplicated[idx].Score {
				deduplicated[idx] = m
			}
			continue
		}
		seen[key] = len(deduplicated)
		deduplicated = append(deduplicated, m)
	}

	filtered := deduplicated[:0]
	for _, m := range deduplicated {
		if m.Score >= threshold {
			filtered = append(filtered, m)
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Score > filtered[j].Score
	})

	if maxResults > 0 && len(filtered) > maxResults {
		filtered = filtered[:maxResults]
	}
	return filtered
}

// score 计算单条匹配的相关性分数，钳制到 [0,1]
func (f *Fuser) score(m *entity.RetrievalMatch, keywords []string) float64 {
	if len(keywords) == 0 {
		return 0
	}

	title := strings.ToLower(m.Title)
	summary := strings.ToLower(m.Summary)
	searchText := strings.ToLower(m.Title + " " + m.Content + " " + m.Summary)

	var score float64
	matched := 0
	for _, kw := range keywords {
		kwLower := strings.ToLower(kw)

		if strings.Contains(title, kwLower) {
			score += f.weights.Title
		}
		if strings.Contains(summary, kwLower) {
			score += f.weights.Summary
		}

		occurrences := strings.Count(searchText, kwLower)
		body := float64(occurrences) * f.weights.BodyOccurrence
		if body > f.weights.BodyCap {
			body = f.weights.BodyCap
		}
		score += body

		if occurrences > 0 {
			matched++
		}
	}

	// 关键词覆盖率加分
	score += float64(matched) / float64(len(keywords)) * f.weights.Coverage

	// 隐藏工作表通常包含更详细的数据
	if m.IsHidden {
		score += f.weights.HiddenBonus
	}

	// 表格数据单位长度的信息密度更高
	if m.ObjType == entity.ObjTypeSheet || m.ObjType == entity.ObjTypeSheetWorksheet {
		score += f.weights.SheetTypeBonus
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}
