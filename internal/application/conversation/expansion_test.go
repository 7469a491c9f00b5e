package conversation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpander_DetectQueryType(t *testing.T) {
	cases := []struct {
		query     string
		queryType QueryType
	}{
		{"哪些公司在做大模型", QueryTypeCompanySearch},
		{"投资机器人赛道的机会分析", QueryTypeInvestmentAnalysis},
		{"大模型行业趋势怎么看", QueryTypeMarketTrends},
		{"transformer算法的原理", QueryTypeTechnologyInfo},
		{"这家初创获得了多少投资", QueryTypeFundingInfo},
		{"如何评估创始人背景", QueryTypeTeamEvaluation},
		{"你好", QueryTypeGeneral},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.queryType, detectQueryType(tc.query), "query: %s", tc.query)
	}
}

func TestExpander_ExpandAddsSynonyms(t *testing.T) {
	expansion := NewExpander().Expand("ai 投资 趋势")

	assert.Equal(t, "ai 投资 趋势", expansion.OriginalQuery)
	assert.Contains(t, expansion.Synonyms, "人工智能")
	assert.Contains(t, expansion.Synonyms, "funding")
	assert.NotEmpty(t, expansion.RelatedTerms)
	assert.True(t, strings.HasPrefix(expansion.ExpandedQuery, "ai 投资 趋势"))
	assert.Greater(t, len(expansion.ExpandedQuery), len(expansion.OriginalQuery))
}

func TestExpander_ExpandedQueryHasNoDuplicateWords(t *testing.T) {
	expansion := NewExpander().Expand("ai投资 人工智能 ai投资")

	words := strings.Fields(expansion.ExpandedQuery)
	seen := make(map[string]int)
	for _, w := range words {
		seen[w]++
	}
	for w, count := range seen {
		assert.Equal(t, 1, count, "词 %q 重复出现", w)
	}
}

func TestExpander_DomainContext(t *testing.T) {
	expansion := NewExpander().Expand("SVTR 平台有哪些公司数据")

	assert.LessOrEqual(t, len(expansion.DomainContext), 5)
	assert.NotEmpty(t, expansion.DomainContext)
}

func TestExpander_ConfidenceBounds(t *testing.T) {
	for _, query := range []string{"ai", "投资趋势分析", "完全无关的查询内容没有任何领域词汇可以扩展"} {
		expansion := NewExpander().Expand(query)
		assert.GreaterOrEqual(t, expansion.Confidence, 0.5, "query: %s", query)
		assert.LessOrEqual(t, expansion.Confidence, 1.0, "query: %s", query)
	}
}

func TestExpander_StopwordsFiltered(t *testing.T) {
	keywords := expansionKeywords("如何 投资 the ai 公司")
	assert.NotContains(t, keywords, "如何")
	assert.NotContains(t, keywords, "the")
	assert.Contains(t, keywords, "投资")
	assert.Contains(t, keywords, "公司")
}
