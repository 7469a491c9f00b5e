// Package entity 定义领域实体
package entity

import (
	"time"
)

// Role 消息角色
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// SessionState 会话状态，由最后活动时间在读取时计算得出
type SessionState string

const (
	SessionStateActive  SessionState = "active"
	SessionStateExpired SessionState = "expired"
)

// Message 会话消息
type Message struct {
	Role       Role              `json:"role"`
	Content    string            `json:"content"`
	Timestamp  time.Time         `json:"timestamp"`
	RAGContext *RetrievalContext `json:"rag_context,omitempty"`
	Topics     []string          `json:"topics,omitempty"`
}

// ConversationSession 会话记忆记录，以客户端提供的 session id 为键
type ConversationSession struct {
	SessionID           string             `json:"session_id"`
	UserID              string             `json:"user_id,omitempty"`
	StartTime           time.Time          `json:"start_time"`
	LastActivity        time.Time          `json:"last_activity"`
	Messages            []Message          `json:"messages"`
	ExtractedTopics     []string           `json:"extracted_topics"`
	UserInterests       []string           `json:"user_interests"`
	ConversationSummary string             `json:"conversation_summary"`
	RAGHistory          []RetrievalContext `json:"rag_history"`
}

// NewConversationSession 创建新会话
func NewConversationSession(sessionID, userID string) *ConversationSession {
	now := time.Now()
	return &ConversationSession{
		SessionID:    sessionID,
		UserID:       userID,
		StartTime:    now,
		LastActivity: now,
		Messages:     []Message{},
	}
}

// State 根据最后活动时间计算会话状态
func (s *ConversationSession) State(now time.Time, ttl time.Duration) SessionState {
	if now.Sub(s.LastActivity) > ttl {
		return SessionStateExpired
	}
	return SessionStateActive
}

// Touch 刷新最后活动时间
func (s *ConversationSession) Touch(now time.Time) {
	s.LastActivity = now
}

// LastMessageByRole 返回指定角色的最近一条消息
func (s *ConversationSession) LastMessageByRole(role Role) *Message {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == role {
			return &s.Messages[i]
		}
	}
	return nil
}
