package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"svtr-chat-api/internal/domain/entity"
)

func TestFuser_ScoreBounds(t *testing.T) {
	fuser := NewFuser(DefaultScoreWeights())

	// 标题、摘要、正文全命中也不应超过 1.0
	matches := []entity.RetrievalMatch{
		{
			NodeToken: "doc1",
			Title:     "AI投资 AI投资 AI投资",
			Content:   "AI投资 AI投资 AI投资 AI投资 AI投资",
			Summary:   "AI投资",
			ObjType:   entity.ObjTypeSheet,
			IsHidden:  true,
		},
	}

	result := fuser.Fuse(matches, []string{"ai投资"}, 0, 10)
	assert.Len(t, result, 1)
	assert.LessOrEqual(t, result[0].Score, 1.0)
	assert.Greater(t, result[0].Score, 0.0)
}

func TestFuser_DedupeKeepsHigherScore(t *testing.T) {
	fuser := NewFuser(DefaultScoreWeights())

	matches := []entity.RetrievalMatch{
		{NodeToken: "doc1", Title: "无关内容", Content: "别的东西"},
		{NodeToken: "doc1", Title: "AI投资分析", Content: "AI投资详细数据", Summary: "AI投资"},
	}

	result := fuser.Fuse(matches, []string{"ai投资"}, 0, 10)
	assert.Len(t, result, 1, "同一去重键只保留一条")
	assert.Contains(t, result[0].Title, "AI投资")
}

func TestFuser_WorksheetsNotDeduplicatedAcrossNames(t *testing.T) {
	fuser := NewFuser(DefaultScoreWeights())

	matches := []entity.RetrievalMatch{
		{NodeToken: "sheet1", WorksheetName: "2024榜单", Title: "AI公司榜单", Content: "ai公司"},
		{NodeToken: "sheet1", WorksheetName: "2025榜单", Title: "AI公司榜单", Content: "ai公司"},
	}

	result := fuser.Fuse(matches, []string{"ai公司"}, 0, 10)
	assert.Len(t, result, 2, "不同工作表视为不同结果")
}

func TestFuser_ThresholdFilter(t *testing.T) {
	fuser := NewFuser(DefaultScoreWeights())

	matches := []entity.RetrievalMatch{
		{NodeToken: "strong", Title: "AI投资趋势", Content: "AI投资 详细分析", Summary: "AI投资"},
		{NodeToken: "weak", Title: "无关", Content: "提到一次ai投资而已"},
	}

	result := fuser.Fuse(matches, []string{"ai投资", "趋势", "分析"}, 0.5, 10)
	for _, m := range result {
		assert.GreaterOrEqual(t, m.Score, 0.5)
	}
	assert.Len(t, result, 1)
	assert.Equal(t, "strong", result[0].NodeToken)
}

func TestFuser_SortedDescendingAndTruncated(t *testing.T) {
	fuser := NewFuser(DefaultScoreWeights())

	matches := []entity.RetrievalMatch{
		{NodeToken: "a", Title: "别的", Content: "ai投资"},
		{NodeToken: "b", Title: "AI投资专题", Content: "ai投资 ai投资", Summary: "ai投资"},
		{NodeToken: "c", Title: "AI投资", Content: "ai投资"},
	}

	result := fuser.Fuse(matches, []string{"ai投资"}, 0, 2)
	assert.Len(t, result, 2)
	assert.GreaterOrEqual(t, result[0].Score, result[1].Score)
}

func TestFuser_HiddenAndSheetBonuses(t *testing.T) {
	fuser := NewFuser(DefaultScoreWeights())

	base := entity.RetrievalMatch{NodeToken: "doc", Title: "公司名录", Content: "有一家ai公司"}
	hidden := base
	hidden.NodeToken = "sheet"
	hidden.ObjType = entity.ObjTypeSheetWorksheet
	hidden.IsHidden = true

	result := fuser.Fuse([]entity.RetrievalMatch{base, hidden}, []string{"ai公司"}, 0, 10)
	assert.Len(t, result, 2)
	// 加分项让隐藏工作表排在前面
	assert.Equal(t, "sheet", result[0].NodeToken)
	assert.InDelta(t, 0.2, result[0].Score-result[1].Score, 1e-9)
}

func TestFuser_EmptyKeywords(t *testing.T) {
	fuser := NewFuser(DefaultScoreWeights())

	matches := []entity.RetrievalMatch{{NodeToken: "doc", Title: "任意"}}
	result := fuser.Fuse(matches, nil, 0.3, 10)
	assert.Empty(t, result)
}
