// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"svtr-chat-api/internal/application/conversation"
	"svtr-chat-api/internal/application/retrieval"
	"svtr-chat-api/internal/config"
	"svtr-chat-api/internal/domain/entity"
	"svtr-chat-api/internal/interfaces/http/dto"
	"svtr-chat-api/pkg/logger"
)

// ChatHandler 聊天上下文处理器：知识检索、查询增强、会话记录与建议
type ChatHandler struct {
	engine   *retrieval.Engine
	sessions *conversation.Manager
	expander *conversation.Expander
	cfg      *config.Config
}

// NewChatHandler 创建聊天处理器
func NewChatHandler(engine *retrieval.Engine, sessions *conversation.Manager, cfg *config.Config) *ChatHandler {
	return &ChatHandler{
		engine:   engine,
		sessions: sessions,
		expander: conversation.NewExpander(),
		cfg:      cfg,
	}
}

// Retrieve 知识检索接口
// @Summary 知识检索
// @Description 按查询文本检索知识库与表格数据
// @Tags Chat
// @Accept json
// @Produce json
// @Param request body dto.RetrieveRequest true "检索请求"
// @Success 200 {object} dto.Response[dto.RetrieveResponse]
// @Router /v1/chat/retrieve [post]
func (h *ChatHandler) Retrieve(c *gin.Context) {
	var req dto.RetrieveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	query := req.Query
	opts := h.resolveOptions(req.Options)

	// 会话内检索先做上下文增强
	if req.SessionID != "" {
		enhanced := h.sessions.EnhanceQuery(ctx, req.SessionID, query)
		query = enhanced.EnhancedQuery
	}
	if req.Options != nil && req.Options.ExpandQuery {
		query = h.expander.Expand(query).ExpandedQuery
	}

	result, err := h.engine.Retrieve(ctx, query, opts)
	if err != nil {
		logger.Error(ctx, "知识检索失败", err, "query", req.Query)
		dto.Fail(c, err)
		return
	}

	dto.Success(c, dto.RetrieveResponse{
		Matches:        result.Matches,
		Total:          result.Total,
		Query:          result.Query,
		ResponseTimeMs: result.ResponseTimeMs,
		FromCache:      result.FromCache,
		Strategy:       result.Strategy,
	})
}

// Context 提示词上下文接口，返回格式化后可直接注入 AI 的文本
// @Summary 提示词上下文
// @Tags Chat
// @Accept json
// @Produce json
// @Param request body dto.ContextRequest true "上下文请求"
// @Success 200 {object} dto.Response[dto.ContextResponse]
// @Router /v1/chat/context [post]
func (h *ChatHandler) Context(c *gin.Context) {
	var req dto.ContextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	result, err := h.engine.Retrieve(ctx, req.Query, h.resolveOptions(req.Options))
	if err != nil {
		logger.Error(ctx, "知识检索失败", err, "query", req.Query)
		dto.Fail(c, err)
		return
	}

	dto.Success(c, dto.ContextResponse{
		Prompt:  retrieval.FormatForAI(result.Matches),
		Total:   result.Total,
		Sources: matchSources(result.Matches),
	})
}

// Enhance 查询增强接口
// @Summary 查询增强
// @Description 结合会话历史做指代消解与上下文补充，并附带查询扩展
// @Tags Chat
// @Accept json
// @Produce json
// @Param request body dto.EnhanceRequest true "增强请求"
// @Success 200 {object} dto.Response[dto.EnhanceResponse]
// @Router /v1/chat/enhance [post]
func (h *ChatHandler) Enhance(c *gin.Context) {
	var req dto.EnhanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, err.Error())
		return
	}

	enhanced := h.sessions.EnhanceQuery(c.Request.Context(), req.SessionID, req.Query)
	expansion := h.expander.Expand(enhanced.EnhancedQuery)

	dto.Success(c, dto.EnhanceResponse{
		EnhancedQuery:    enhanced.EnhancedQuery,
		ContextKeywords:  enhanced.ContextKeywords,
		RelatedTopics:    enhanced.RelatedTopics,
		ConversationFlow: enhanced.ConversationFlow,
		UserIntent:       enhanced.UserIntent,
		Expansion:        &expansion,
	})
}

// AddMessage 记录会话消息接口
// @Summary 记录会话消息
// @Tags Chat
// @Accept json
// @Produce json
// @Param request body dto.AddMessageRequest true "消息"
// @Success 200 {object} dto.Response[dto.AddMessageResponse]
// @Router /v1/chat/messages [post]
func (h *ChatHandler) AddMessage(c *gin.Context) {
	var req dto.AddMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, err.Error())
		return
	}

	session, err := h.sessions.AddMessage(c.Request.Context(), req.SessionID, entity.Message{
		Role:       entity.Role(req.Role),
		Content:    req.Content,
		RAGContext: req.RAGContext,
	})
	if err != nil {
		dto.Fail(c, err)
		return
	}

	dto.Success(c, dto.AddMessageResponse{
		SessionID:    session.SessionID,
		MessageCount: len(session.Messages),
		Topics:       session.ExtractedTopics,
		Summary:      session.ConversationSummary,
	})
}

// Suggestions 智能建议接口
// @Summary 智能建议
// @Tags Chat
// @Produce json
// @Param session_id query string false "会话 ID"
// @Success 200 {object} dto.Response[dto.SuggestionsResponse]
// @Router /v1/chat/suggestions [get]
func (h *ChatHandler) Suggestions(c *gin.Context) {
	sessionID := c.Query("session_id")
	ctx := c.Request.Context()

	suggestions, source := h.sessions.SmartSuggestions(ctx, sessionID)

	resp := dto.SuggestionsResponse{
		Suggestions: suggestions,
		Source:      source,
	}
	if session := h.sessions.Session(ctx, sessionID); session != nil {
		topics := session.ExtractedTopics
		if len(topics) > 5 {
			topics = topics[:5]
		}
		interests := session.UserInterests
		if len(interests) > 3 {
			interests = interests[:3]
		}
		resp.SessionInfo = &dto.SessionInfo{
			MessageCount: len(session.Messages),
			Topics:       topics,
			Interests:    interests,
			Summary:      session.ConversationSummary,
		}
	}

	dto.Success(c, resp)
}

// resolveOptions 用请求字段覆盖服务端默认检索选项
func (h *ChatHandler) resolveOptions(opts *dto.RetrieveOptions) retrieval.Options {
	resolved := retrieval.DefaultOptions(h.cfg.Retrieval)
	if opts == nil {
		return resolved
	}
	if opts.MaxResults != nil && *opts.MaxResults > 0 {
		resolved.MaxResults = *opts.MaxResults
	}
	if opts.Threshold != nil {
		resolved.Threshold = *opts.Threshold
	}
	if opts.IncludeHiddenSheets != nil {
		resolved.IncludeHiddenSheets = *opts.IncludeHiddenSheets
	}
	if opts.EnableCache != nil {
		resolved.EnableCache = *opts.EnableCache
	}
	return resolved
}

// matchSources 汇总去重后的结果来源
func matchSources(matches []entity.RetrievalMatch) []string {
	seen := make(map[string]struct{}, 2)
	sources := make([]string, 0, 2)
	for _, m := range matches {
		if _, ok := seen[m.Source]; ok {
			continue
		}
		seen[m.Source] = struct{}{}
		sources = append(sources, m.Source)
	}
	return sources
}
