package conversation

import (
	"context"

	"svtr-chat-api/internal/domain/entity"
	"svtr-chat-api/pkg/metrics"
)

// 建议来源，用于指标区分
const (
	SuggestionSourceSession = "session"
	SuggestionSourceDefault = "default"
)

const maxSuggestions = 6

// interestSuggestions 按兴趣类别预置的建议问题
var interestSuggestions = map[string][]string{
	"AI投资": {
		"最新的AI投资热点有哪些？",
		"哪些AI赛道最值得关注？",
	},
	"AI公司": {
		"有哪些值得关注的AI独角兽？",
		"最新获得融资的AI公司有哪些？",
	},
	"AI技术": {
		"当前最前沿的AI技术趋势？",
		"AI技术商业化的机会在哪里？",
	},
	"投资趋势": {
		"2025年AI投资趋势预测？",
		"AI投资的风险和机会分析？",
	},
}

// deepConversationSuggestions 多轮对话后的深入建议
var deepConversationSuggestions = []string{
	"根据我们的对话，还有什么投资建议？",
	"基于当前讨论，有哪些风险需要注意？",
	"结合刚才的分析，给出具体的行动建议？",
}

// defaultSuggestions 无会话历史时的默认建议
var defaultSuggestions = []string{
	"SVTR.AI追踪哪些AI公司？",
	"最新的AI投资趋势是什么？",
	"如何识别有潜力的AI创业团队？",
	"生成式AI领域的投资机会？",
	"AI基础设施赛道的发展前景？",
	"SVTR平台有哪些独特优势？",
}

// SmartSuggestions 基于会话画像生成建议问题。
// 未知会话返回默认建议；返回值第二项标记建议来源。
func (m *Manager) SmartSuggestions(ctx context.Context, sessionID string) ([]string, string) {
	session := m.Session(ctx, sessionID)
	if session == nil {
		metrics.SuggestionRequestsTotal.WithLabelValues(SuggestionSourceDefault).Inc()
		return append([]string(nil), defaultSuggestions...), SuggestionSourceDefault
	}

	suggestions := buildSuggestions(session)
	if len(suggestions) == 0 {
		metrics.SuggestionRequestsTotal.WithLabelValues(SuggestionSourceDefault).Inc()
		return append([]string(nil), defaultSuggestions...), SuggestionSourceDefault
	}

	metrics.SuggestionRequestsTotal.WithLabelValues(SuggestionSourceSession).Inc()
	return suggestions, SuggestionSourceSession
}

// buildSuggestions 依次叠加兴趣建议、话题建议与深入建议，去重截断
func buildSuggestions(session *entity.ConversationSession) []string {
	var suggestions []string

	for _, interest := range headStrings(session.UserInterests, 3) {
		suggestions = append(suggestions, interestSuggestions[interest]...)
	}

	for _, topic := range tailStrings(session.ExtractedTopics, 3) {
		suggestions = append(suggestions,
			"关于"+topic+"的最新动态？",
			topic+"领域的投资机会？",
		)
	}

	if len(session.Messages) > 5 {
		suggestions = append(suggestions, deepConversationSuggestions...)
	}

	seen := make(map[string]struct{}, len(suggestions))
	unique := make([]string, 0, maxSuggestions)
	for _, s := range suggestions {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		unique = append(unique, s)
		if len(unique) == maxSuggestions {
			break
		}
	}
	return unique
}
