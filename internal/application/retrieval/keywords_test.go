package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractKeywords_MixedScripts(t *testing.T) {
	keywords := ExtractKeywords("SVTR平台追踪多少家AI公司？", 15)

	assert.NotEmpty(t, keywords)
	assert.Contains(t, keywords, "svtr")
	assert.Contains(t, keywords, "ai")
	assert.Contains(t, keywords, "平台")
	assert.Contains(t, keywords, "公司")
	// 标点不应出现在任何关键词中
	for _, kw := range keywords {
		assert.NotContains(t, kw, "？")
	}
}

func TestExtractKeywords_Deterministic(t *testing.T) {
	query := "AI投资趋势分析 machine learning funding"
	first := ExtractKeywords(query, 15)
	second := ExtractKeywords(query, 15)

	assert.Equal(t, first, second)
}

func TestExtractKeywords_LongerWordsFirst(t *testing.T) {
	keywords := ExtractKeywords("人工智能投资", 15)

	assert.NotEmpty(t, keywords)
	for i := 1; i < len(keywords); i++ {
		assert.GreaterOrEqual(t,
			len([]rune(keywords[i-1])), len([]rune(keywords[i])),
			"关键词应按长度降序排列")
	}
	// 4-6 字片段整体保留
	assert.Contains(t, keywords, "人工智能投资")
}

func TestExtractKeywords_Cap(t *testing.T) {
	keywords := ExtractKeywords("硅谷科技评论追踪全球人工智能与创业投资生态变化和发展趋势分析报告数据平台", 15)
	assert.LessOrEqual(t, len(keywords), 15)

	capped := ExtractKeywords("硅谷科技评论追踪全球人工智能与创业投资生态变化和发展趋势分析报告数据平台", 5)
	assert.LessOrEqual(t, len(capped), 5)
}

func TestExtractKeywords_StopwordsDropped(t *testing.T) {
	keywords := ExtractKeywords("the is of to 的 了 是", 15)
	assert.Empty(t, keywords)
}

func TestExtractKeywords_SingleCharAllowlist(t *testing.T) {
	// 单字默认丢弃，白名单内的保留
	assert.Contains(t, ExtractKeywords("融资 榜", 15), "榜")
	assert.NotContains(t, ExtractKeywords("好 天", 15), "天")
}

func TestExtractKeywords_Deduplication(t *testing.T) {
	keywords := ExtractKeywords("AI AI ai 公司 公司", 15)

	seen := make(map[string]int)
	for _, kw := range keywords {
		seen[kw]++
	}
	for kw, count := range seen {
		assert.Equal(t, 1, count, "关键词 %q 出现了 %d 次", kw, count)
	}
}

func TestExtractKeywords_EmptyInput(t *testing.T) {
	assert.Empty(t, ExtractKeywords("", 15))
	assert.Empty(t, ExtractKeywords("！？。，", 15))
}
