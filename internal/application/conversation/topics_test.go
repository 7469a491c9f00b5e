package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractTopics(t *testing.T) {
	cases := []struct {
		content string
		topics  []string
	}{
		{"AI投资最近的热点", []string{"AI投资"}},
		{"想了解几家AI公司和它们的估值", []string{"AI公司", "估值分析"}},
		{"人工智能和机器学习的区别", []string{"AI技术"}},
		{"A轮和B轮融资有什么不同", []string{"融资轮次"}},
		{"今天天气不错", nil},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.topics, ExtractTopics(tc.content), "content: %s", tc.content)
	}
}

func TestExtractTopics_CaseInsensitive(t *testing.T) {
	assert.Equal(t, ExtractTopics("ai投资"), ExtractTopics("AI投资"))
}

func TestMergeTopics(t *testing.T) {
	merged := mergeTopics([]string{"AI投资"}, []string{"AI公司", "AI投资"}, 20)
	assert.Equal(t, []string{"AI投资", "AI公司"}, merged)
}

func TestMergeTopics_KeepsMostRecent(t *testing.T) {
	existing := make([]string, 0, 20)
	for i := 0; i < 20; i++ {
		existing = append(existing, string(rune('a'+i)))
	}

	merged := mergeTopics(existing, []string{"新话题"}, 20)
	assert.Len(t, merged, 20)
	assert.Equal(t, "新话题", merged[19])
	assert.NotContains(t, merged, "a", "最旧的话题应被挤出")
}

func TestUpdateInterests_WeightsNewTopics(t *testing.T) {
	interests := updateInterests([]string{"AI技术"}, []string{"AI投资"}, 10)
	assert.Equal(t, []string{"AI投资", "AI技术"}, interests, "新话题权重更高")
}

func TestUpdateInterests_Capped(t *testing.T) {
	var topics []string
	for i := 0; i < 15; i++ {
		topics = append(topics, string(rune('a'+i)))
	}

	interests := updateInterests(nil, topics, 10)
	assert.Len(t, interests, 10)
}
