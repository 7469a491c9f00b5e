// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"svtr-chat-api/internal/application/conversation"
	"svtr-chat-api/internal/domain/entity"
)

// RetrieveOptions 检索选项，未提供的字段使用服务端默认值
type RetrieveOptions struct {
	MaxResults          *int     `json:"max_results,omitempty"`
	Threshold           *float64 `json:"threshold,omitempty"`
	IncludeHiddenSheets *bool    `json:"include_hidden_sheets,omitempty"`
	EnableCache         *bool    `json:"enable_cache,omitempty"`
	ExpandQuery         bool     `json:"expand_query,omitempty"`
}

// RetrieveRequest 知识检索请求
type RetrieveRequest struct {
	Query     string           `json:"query" binding:"required"`
	SessionID string           `json:"session_id,omitempty"`
	Options   *RetrieveOptions `json:"options,omitempty"`
}

// RetrieveResponse 知识检索响应
type RetrieveResponse struct {
	Matches        []entity.RetrievalMatch `json:"matches"`
	Total          int                     `json:"total"`
	Query          string                  `json:"query"`
	ResponseTimeMs int64                   `json:"response_time_ms"`
	FromCache      bool                    `json:"from_cache"`
	Strategy       string                  `json:"strategy"`
}

// ContextRequest 提示词上下文请求
type ContextRequest struct {
	Query   string           `json:"query" binding:"required"`
	Options *RetrieveOptions `json:"options,omitempty"`
}

// ContextResponse 提示词上下文响应
type ContextResponse struct {
	Prompt  string   `json:"prompt"`
	Total   int      `json:"total"`
	Sources []string `json:"sources"`
}

// EnhanceRequest 查询增强请求
type EnhanceRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Query     string `json:"query" binding:"required"`
}

// EnhanceResponse 查询增强响应
type EnhanceResponse struct {
	EnhancedQuery    string                  `json:"enhanced_query"`
	ContextKeywords  []string                `json:"context_keywords"`
	RelatedTopics    []string                `json:"related_topics"`
	ConversationFlow []string                `json:"conversation_flow"`
	UserIntent       string                  `json:"user_intent"`
	Expansion        *conversation.Expansion `json:"expansion,omitempty"`
}

// AddMessageRequest 记录会话消息请求
type AddMessageRequest struct {
	SessionID  string                   `json:"session_id" binding:"required"`
	Role       string                   `json:"role" binding:"required,oneof=user assistant system"`
	Content    string                   `json:"content" binding:"required"`
	RAGContext *entity.RetrievalContext `json:"rag_context,omitempty"`
}

// AddMessageResponse 记录会话消息响应
type AddMessageResponse struct {
	SessionID    string   `json:"session_id"`
	MessageCount int      `json:"message_count"`
	Topics       []string `json:"topics"`
	Summary      string   `json:"summary"`
}

// SessionInfo 会话画像摘要
type SessionInfo struct {
	MessageCount int      `json:"message_count"`
	Topics       []string `json:"topics"`
	Interests    []string `json:"interests"`
	Summary      string   `json:"summary"`
}

// SuggestionsResponse 智能建议响应
type SuggestionsResponse struct {
	Suggestions []string     `json:"suggestions"`
	Source      string       `json:"source"`
	SessionInfo *SessionInfo `json:"session_info,omitempty"`
}
