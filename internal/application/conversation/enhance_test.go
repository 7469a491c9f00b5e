package conversation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"svtr-chat-api/internal/domain/entity"
)

func seedExchange(t *testing.T, m *Manager, sessionID, userContent, assistantContent string) {
	t.Helper()
	ctx := context.Background()
	_, err := m.AddMessage(ctx, sessionID, entity.Message{Role: entity.RoleUser, Content: userContent})
	require.NoError(t, err)
	_, err = m.AddMessage(ctx, sessionID, entity.Message{Role: entity.RoleAssistant, Content: assistantContent})
	require.NoError(t, err)
}

func TestEnhanceQuery_UnknownSessionPassThrough(t *testing.T) {
	m := newTestManager(testSessionConfig())

	result := m.EnhanceQuery(context.Background(), "missing", "AI投资趋势如何？")

	assert.Equal(t, "AI投资趋势如何？", result.EnhancedQuery)
	assert.Equal(t, IntentGeneral, result.UserIntent)
	assert.Empty(t, result.ContextKeywords)
	assert.Empty(t, result.RelatedTopics)
}

func TestEnhanceQuery_CoreferenceResolution(t *testing.T) {
	m := newTestManager(testSessionConfig())
	seedExchange(t, m, "s1",
		"OpenAI最近怎么样？",
		"OpenAI 最近发布了新模型，市场反响热烈。")

	result := m.EnhanceQuery(context.Background(), "s1", "它的估值呢？")

	assert.Contains(t, result.EnhancedQuery, "OpenAI")
	assert.NotContains(t, result.EnhancedQuery, "它的")
}

func TestEnhanceQuery_TopicCoreference(t *testing.T) {
	m := newTestManager(testSessionConfig())
	seedExchange(t, m, "s1",
		"生成式AI领域情况如何？",
		"AI创投领域整体活跃，投资热度持续上升。")

	result := m.EnhanceQuery(context.Background(), "s1", "该领域的头部公司有哪些？")

	assert.NotContains(t, result.EnhancedQuery, "该领域")
}

func TestEnhanceQuery_ShortQueryGetsContextClues(t *testing.T) {
	m := newTestManager(testSessionConfig())
	ctx := context.Background()
	_, err := m.AddMessage(ctx, "s1", entity.Message{Role: entity.RoleUser, Content: "AI投资趋势分析报告"})
	require.NoError(t, err)

	result := m.EnhanceQuery(ctx, "s1", "最新进展")

	assert.Contains(t, result.EnhancedQuery, "讨论背景")
	assert.Contains(t, result.EnhancedQuery, "最新进展")
}

func TestEnhanceQuery_FollowUpStitching(t *testing.T) {
	m := newTestManager(testSessionConfig())
	ctx := context.Background()
	seedExchange(t, m, "s1",
		"AI投资趋势如何？",
		"- 大模型赛道持续吸金\n- 基础设施投资上升\n- 应用层开始分化")
	_, err := m.AddMessage(ctx, "s1", entity.Message{Role: entity.RoleUser, Content: "继续说"})
	require.NoError(t, err)

	result := m.EnhanceQuery(ctx, "s1", "还有更多吗？")

	assert.Contains(t, result.EnhancedQuery, "基于前面的讨论：")
	assert.Contains(t, result.EnhancedQuery, "用户询问了")
}

func TestEnhanceQuery_IntentDetection(t *testing.T) {
	m := newTestManager(testSessionConfig())
	ctx := context.Background()
	_, err := m.AddMessage(ctx, "s1", entity.Message{Role: entity.RoleUser, Content: "AI投资趋势"})
	require.NoError(t, err)

	cases := []struct {
		query  string
		intent string
	}{
		{"如何评估AI初创团队的技术能力水平", IntentHowTo},
		{"比较一下这两家公司的商业模式差异", IntentComparison},
		{"什么是生成式AI的核心商业价值所在", IntentQuestion},
		{"推荐几个值得长期关注的AI投资赛道", IntentRecommendation},
		{"关于这块内容请继续深入展开说一说", IntentFollowUp},
	}
	for _, tc := range cases {
		result := m.EnhanceQuery(ctx, "s1", tc.query)
		assert.Equal(t, tc.intent, result.UserIntent, "query: %s", tc.query)
	}
}

func TestEnhanceQuery_IntentFallbackFromTopics(t *testing.T) {
	m := newTestManager(testSessionConfig())
	ctx := context.Background()
	_, err := m.AddMessage(ctx, "s1", entity.Message{Role: entity.RoleUser, Content: "近期AI投资动向"})
	require.NoError(t, err)

	result := m.EnhanceQuery(ctx, "s1", "再给一份同主题的详细梳理总结材料")
	assert.Equal(t, IntentInvestmentInquiry, result.UserIntent)
}

func TestEnhanceQuery_FlowAndTopics(t *testing.T) {
	m := newTestManager(testSessionConfig())
	ctx := context.Background()
	_, err := m.AddMessage(ctx, "s1", entity.Message{Role: entity.RoleUser, Content: "AI投资趋势如何？"})
	require.NoError(t, err)
	_, err = m.AddMessage(ctx, "s1", entity.Message{Role: entity.RoleUser, Content: "AI公司估值怎么看？"})
	require.NoError(t, err)

	result := m.EnhanceQuery(ctx, "s1", "大模型赛道的机会与风险分析怎么做")

	assert.NotEmpty(t, result.ConversationFlow)
	assert.Contains(t, result.RelatedTopics, "AI投资")
	assert.NotEmpty(t, result.ContextKeywords)
}

func TestExtractEntities(t *testing.T) {
	companies, topics := extractEntities("Figure AI 完成新一轮融资，智谱科技也在推进。AI基础设施投资火热。")

	assert.Contains(t, companies, "Figure AI")
	assert.Contains(t, companies, "智谱科技")
	assert.NotEmpty(t, topics)
}

func TestExtractKeyPoints(t *testing.T) {
	points := extractKeyPoints("- 第一要点\n- 第二要点\n- 第三要点\n- 第四要点")
	assert.Len(t, points, 3, "最多取三个列表项")

	assert.Equal(t, []string{"相关信息"}, extractKeyPoints("没有任何结构的普通文本"))

	numbered := extractKeyPoints("要点如下：1、扩张 2、融资 3、上市")
	assert.Contains(t, numbered, "3个要点")
}
