package conversation

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"svtr-chat-api/internal/domain/entity"
)

// 用户意图分类
const (
	IntentGeneral           = "general"
	IntentHowTo             = "howto"
	IntentComparison        = "comparison"
	IntentQuestion          = "question"
	IntentRecommendation    = "recommendation"
	IntentFollowUp          = "follow_up"
	IntentInvestmentInquiry = "investment_inquiry"
	IntentCompanyAnalysis   = "company_analysis"
)

// EnhancedQuery 上下文增强后的查询
type EnhancedQuery struct {
	EnhancedQuery    string   `json:"enhanced_query"`
	ContextKeywords  []string `json:"context_keywords"`
	RelatedTopics    []string `json:"related_topics"`
	ConversationFlow []string `json:"conversation_flow"`
	UserIntent       string   `json:"user_intent"`
}

// 指代词集合，命中任意一个即触发指代消解
var pronouns = []string{"它", "他们", "这个", "那个", "这些", "那些", "此", "该", "这", "那"}

// 后续问题指示词
var followUpIndicators = []string{
	"还有", "更多", "继续", "另外", "其他", "接下来", "然后", "那么",
	"进一步", "深入", "详细", "具体", "例如",
}

var (
	keywordCleanPattern = regexp.MustCompile(`[^\p{Han}a-zA-Z0-9\s]`)

	companyPatterns = []*regexp.Regexp{
		regexp.MustCompile(`[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*(?:\s+AI|Inc\.|LLC)`),
		regexp.MustCompile(`\b[A-Z][a-z]+AI\b`),
		regexp.MustCompile(`\p{Han}+(?:公司|科技|智能|AI)`),
	}

	entityTopicPatterns = []*regexp.Regexp{
		regexp.MustCompile(`AI[^\s，。！？]*`),
		regexp.MustCompile(`\p{Han}*投资\p{Han}*`),
		regexp.MustCompile(`\p{Han}*创业\p{Han}*`),
	}

	bulletPointPattern = regexp.MustCompile(`[•·\-*]\s*(.+)`)
	numberedPattern    = regexp.MustCompile(`\d+[、。：]`)
)

// EnhanceQuery 结合会话历史增强查询：指代消解、短查询补充上下文、
// 后续问题拼接前情。无历史时原样返回。
func (m *Manager) EnhanceQuery(ctx context.Context, sessionID, query string) EnhancedQuery {
	session := m.Session(ctx, sessionID)
	if session == nil || len(session.Messages) == 0 {
		return EnhancedQuery{
			EnhancedQuery:    query,
			ContextKeywords:  []string{},
			RelatedTopics:    []string{},
			ConversationFlow: []string{},
			UserIntent:       IntentGeneral,
		}
	}

	contextKeywords := extractContextKeywords(session)
	relatedTopics := headStrings(session.ExtractedTopics, 5)
	flow := conversationFlow(session)
	intent := detectIntent(query, session)

	enhanced := query
	if needsCoreferenceResolution(query) {
		enhanced = resolveCoreferences(enhanced, session)
	}
	if len([]rune(query)) < 30 && len(contextKeywords) > 0 {
		if clues := buildContextClues(session, intent); clues != "" {
			enhanced = enhanced + " " + clues
		}
	}
	if isFollowUpQuestion(query, session) {
		enhanced = "基于前面的讨论：" + buildFollowUpContext(session) + "，" + enhanced
	}

	return EnhancedQuery{
		EnhancedQuery:    enhanced,
		ContextKeywords:  contextKeywords,
		RelatedTopics:    relatedTopics,
		ConversationFlow: flow,
		UserIntent:       intent,
	}
}

// extractContextKeywords 从最近五条消息的用户发言中取高频词，最多五个
func extractContextKeywords(session *entity.ConversationSession) []string {
	messages := tailMessages(session.Messages, 5)

	type freqEntry struct {
		word  string
		count int
		order int
	}
	index := make(map[string]*freqEntry)
	var entries []*freqEntry

	for _, msg := range messages {
		if msg.Role != entity.RoleUser {
			continue
		}
		cleaned := keywordCleanPattern.ReplaceAllString(msg.Content, " ")
		for _, word := range strings.Fields(cleaned) {
			if len([]rune(word)) <= 1 {
				continue
			}
			if e, ok := index[word]; ok {
				e.count++
				continue
			}
			e := &freqEntry{word: word, count: 1, order: len(entries)}
			index[word] = e
			entries = append(entries, e)
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].order < entries[j].order
	})

	keywords := make([]string, 0, 5)
	for _, e := range entries {
		keywords = append(keywords, e.word)
		if len(keywords) == 5 {
			break
		}
	}
	return keywords
}

// conversationFlow 最近六条消息中的用户发言摘要，每条截断五十个字符
func conversationFlow(session *entity.ConversationSession) []string {
	messages := tailMessages(session.Messages, 6)

	flow := make([]string, 0, len(messages))
	for _, msg := range messages {
		if msg.Role != entity.RoleUser {
			continue
		}
		runes := []rune(msg.Content)
		if len(runes) > 50 {
			flow = append(flow, string(runes[:50])+"...")
		} else {
			flow = append(flow, msg.Content)
		}
	}
	return flow
}

// detectIntent 从查询文本识别意图，无明确标志词时按最近话题推断
func detectIntent(query string, session *entity.ConversationSession) string {
	q := strings.ToLower(query)

	switch {
	case containsAny(q, "如何", "怎么", "怎样"):
		return IntentHowTo
	case containsAny(q, "比较", "对比", "区别"):
		return IntentComparison
	case containsAny(q, "什么", "哪些", "为什么"):
		return IntentQuestion
	case containsAny(q, "推荐", "建议", "选择"):
		return IntentRecommendation
	case containsAny(q, "更多", "还有", "继续"):
		return IntentFollowUp
	}

	recent := tailStrings(session.ExtractedTopics, 3)
	if contains(recent, "AI投资") || contains(recent, "投资趋势") {
		return IntentInvestmentInquiry
	}
	if contains(recent, "AI公司") || contains(recent, "AI技术") {
		return IntentCompanyAnalysis
	}
	return IntentGeneral
}

func needsCoreferenceResolution(query string) bool {
	return containsAny(query, pronouns...)
}

// resolveCoreferences 用最近一条 AI 回答中提到的实体替换指代词。
// 只做首实体替换，歧义场景不展开。
func resolveCoreferences(query string, session *entity.ConversationSession) string {
	if len(session.Messages) < 2 {
		return query
	}
	lastResponse := session.LastMessageByRole(entity.RoleAssistant)
	if lastResponse == nil {
		return query
	}

	companies, topics := extractEntities(lastResponse.Content)

	resolved := query
	if len(companies) > 0 && containsAny(query, "它", "该公司") {
		resolved = strings.ReplaceAll(resolved, "它", companies[0])
		resolved = strings.ReplaceAll(resolved, "该公司", companies[0])
	}
	if len(topics) > 0 && containsAny(query, "这个", "该领域") {
		resolved = strings.ReplaceAll(resolved, "这个", topics[0])
		resolved = strings.ReplaceAll(resolved, "该领域", topics[0])
	}
	return resolved
}

// extractEntities 从文本中识别公司名与话题词，各取前三个
func extractEntities(text string) (companies, topics []string) {
	for _, pattern := range companyPatterns {
		matches := pattern.FindAllString(text, 3)
		companies = append(companies, matches...)
	}
	for _, pattern := range entityTopicPatterns {
		matches := pattern.FindAllString(text, 3)
		topics = append(topics, matches...)
	}
	return companies, topics
}

// buildContextClues 为过短的查询补充讨论背景
func buildContextClues(session *entity.ConversationSession, intent string) string {
	var clues []string

	if len(session.ExtractedTopics) > 0 {
		clues = append(clues, "(讨论背景: "+strings.Join(headStrings(session.ExtractedTopics, 2), "、")+")")
	}

	if intent == IntentFollowUp && len(session.Messages) > 2 {
		if last := session.LastMessageByRole(entity.RoleUser); last != nil {
			runes := []rune(last.Content)
			if len(runes) > 30 {
				runes = runes[:30]
			}
			clues = append(clues, "(承接上个问题: "+string(runes)+"...)")
		}
	}
	return strings.Join(clues, " ")
}

// isFollowUpQuestion 指示词命中，或查询很短且已有多轮对话
func isFollowUpQuestion(query string, session *entity.ConversationSession) bool {
	if containsAny(query, followUpIndicators...) {
		return true
	}
	return len([]rune(query)) < 20 && len(session.Messages) > 2
}

// buildFollowUpContext 概括最近一轮问答作为后续问题的前情
func buildFollowUpContext(session *entity.ConversationSession) string {
	if len(session.Messages) < 2 {
		return ""
	}
	exchange := session.Messages[len(session.Messages)-2:]

	var userQuery, aiResponse string
	for _, msg := range exchange {
		switch msg.Role {
		case entity.RoleUser:
			userQuery = msg.Content
		case entity.RoleAssistant:
			aiResponse = msg.Content
		}
	}

	runes := []rune(userQuery)
	if len(runes) > 30 {
		runes = runes[:30]
	}
	keyPoints := extractKeyPoints(aiResponse)

	return "用户询问了\"" + string(runes) + "\"，AI回答涉及" + strings.Join(keyPoints, "、")
}

// extractKeyPoints 从回答中取要点：优先列表项，其次编号计数，兜底占位
func extractKeyPoints(text string) []string {
	var points []string

	for _, match := range bulletPointPattern.FindAllStringSubmatch(text, 3) {
		item := strings.TrimSpace(match[1])
		runes := []rune(item)
		if len(runes) > 20 {
			runes = runes[:20]
		}
		points = append(points, string(runes))
	}

	if numbered := numberedPattern.FindAllString(text, -1); len(numbered) > 0 {
		points = append(points, strconv.Itoa(len(numbered))+"个要点")
	}

	if len(points) == 0 {
		return []string{"相关信息"}
	}
	return points
}

func containsAny(text string, substrings ...string) bool {
	for _, s := range substrings {
		if strings.Contains(text, s) {
			return true
		}
	}
	return false
}

func headStrings(list []string, n int) []string {
	if len(list) > n {
		list = list[:n]
	}
	return append([]string(nil), list...)
}

func tailStrings(list []string, n int) []string {
	if len(list) > n {
		list = list[len(list)-n:]
	}
	return list
}

func tailMessages(messages []entity.Message, n int) []entity.Message {
	if len(messages) > n {
		return messages[len(messages)-n:]
	}
	return messages
}
