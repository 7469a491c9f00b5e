// Package conversation 实现会话记忆：消息追踪、话题与兴趣画像、
// 查询增强与智能建议。
package conversation

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"svtr-chat-api/internal/config"
	"svtr-chat-api/internal/domain/entity"
	"svtr-chat-api/internal/domain/repository"
	"svtr-chat-api/pkg/logger"
	"svtr-chat-api/pkg/metrics"
)

const sessionKeyPrefix = "session:"

// sessionEntry 单个会话及其互斥锁
type sessionEntry struct {
	mu      sync.Mutex
	session *entity.ConversationSession
}

// Manager 会话管理器。内存中的会话为权威数据，
// 持久化到 KVStore 是尽力而为的，失败不阻断请求。
type Manager struct {
	mu      sync.RWMutex
	entries map[string]*sessionEntry

	store repository.KVStore // 可为 nil，此时仅保留进程内记忆
	cfg   config.SessionConfig
}

// NewManager 创建会话管理器
func NewManager(store repository.KVStore, cfg config.SessionConfig) *Manager {
	return &Manager{
		entries: make(map[string]*sessionEntry),
		store:   store,
		cfg:     cfg,
	}
}

// AddMessage 追加一条消息并更新会话画像，返回更新后的会话快照。
// 超过消息上限时裁掉最旧的消息；话题与兴趣只从用户消息中提取。
func (m *Manager) AddMessage(ctx context.Context, sessionID string, msg entity.Message) (*entity.ConversationSession, error) {
	entry := m.getOrCreate(ctx, sessionID, "")

	entry.mu.Lock()
	defer entry.mu.Unlock()

	session := entry.session
	now := time.Now()
	if msg.Timestamp.IsZero() {
		msg.Timestamp = now
	}
	session.Touch(now)

	if msg.Role == entity.RoleUser {
		topics := ExtractTopics(msg.Content)
		msg.Topics = topics
		session.ExtractedTopics = mergeTopics(session.ExtractedTopics, topics, m.cfg.MaxTopics)
		session.UserInterests = updateInterests(session.UserInterests, topics, m.cfg.MaxInterests)
	}

	session.Messages = append(session.Messages, msg)
	if max := m.cfg.MaxMessages; max > 0 && len(session.Messages) > max {
		session.Messages = session.Messages[len(session.Messages)-max:]
	}

	if msg.RAGContext != nil {
		session.RAGHistory = append(session.RAGHistory, *msg.RAGContext)
		if max := m.cfg.MaxRetrievalHistory; max > 0 && len(session.RAGHistory) > max {
			session.RAGHistory = session.RAGHistory[len(session.RAGHistory)-max:]
		}
	}

	session.ConversationSummary = buildSummary(session)

	metrics.SessionMessagesTotal.WithLabelValues(string(msg.Role)).Inc()

	m.persist(ctx, session)
	return snapshot(session), nil
}

// Session 返回会话快照，不存在时返回 nil
func (m *Manager) Session(ctx context.Context, sessionID string) *entity.ConversationSession {
	entry := m.lookup(ctx, sessionID)
	if entry == nil {
		return nil
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return snapshot(entry.session)
}

// CleanupExpired 清理内存中过期的会话，返回清理数量
func (m *Manager) CleanupExpired() int {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, entry := range m.entries {
		if entry.session.State(now, m.cfg.TTL) == entity.SessionStateExpired {
			delete(m.entries, id)
			removed++
		}
	}
	if removed > 0 {
		metrics.SessionsExpiredTotal.Add(float64(removed))
	}
	metrics.SessionsActive.Set(float64(len(m.entries)))
	return removed
}

// RunSweeper 周期性清理过期会话，直到 ctx 取消
func (m *Manager) RunSweeper(ctx context.Context) {
	interval := m.cfg.SweepInterval
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := m.CleanupExpired(); removed > 0 {
				logger.Info(ctx, "清理过期会话", "removed", removed)
			}
		}
	}
}

// lookup 定位已有会话，不创建新会话。
// 内存中过期的会话就地重置为空会话（惰性过期）。
func (m *Manager) lookup(ctx context.Context, sessionID string) *sessionEntry {
	m.mu.RLock()
	entry := m.entries[sessionID]
	m.mu.RUnlock()

	if entry == nil {
		if restored := m.restore(ctx, sessionID); restored != nil {
			return m.insert(sessionID, restored)
		}
		return nil
	}

	m.expireInPlace(entry)
	return entry
}

// getOrCreate 定位或新建会话
func (m *Manager) getOrCreate(ctx context.Context, sessionID, userID string) *sessionEntry {
	if entry := m.lookup(ctx, sessionID); entry != nil {
		return entry
	}
	return m.insert(sessionID, entity.NewConversationSession(sessionID, userID))
}

// insert 把会话放入内存表；并发插入时保留先到者
func (m *Manager) insert(sessionID string, session *entity.ConversationSession) *sessionEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.entries[sessionID]; ok {
		return existing
	}
	entry := &sessionEntry{session: session}
	m.entries[sessionID] = entry
	metrics.SessionsActive.Set(float64(len(m.entries)))
	return entry
}

// expireInPlace 惰性过期：读取时发现会话超过 TTL 就重置为空会话
func (m *Manager) expireInPlace(entry *sessionEntry) {
	entry.mu.Lock()
	defer entry.mu.Unlock()

	now := time.Now()
	if entry.session.State(now, m.cfg.TTL) == entity.SessionStateExpired {
		metrics.SessionsExpiredTotal.Inc()
		entry.session = entity.NewConversationSession(entry.session.SessionID, entry.session.UserID)
	}
}

// restore 从持久化存储恢复会话，过期或损坏的记录按不存在处理
func (m *Manager) restore(ctx context.Context, sessionID string) *entity.ConversationSession {
	if m.store == nil {
		return nil
	}

	data, err := m.store.Get(ctx, sessionKeyPrefix+sessionID)
	if err != nil {
		if err != repository.ErrKeyNotFound {
			logger.Warn(ctx, "恢复会话失败", "session_id", sessionID, "error", err)
		}
		return nil
	}

	var session entity.ConversationSession
	if err := json.Unmarshal(data, &session); err != nil {
		logger.Warn(ctx, "会话记录损坏，忽略", "session_id", sessionID, "error", err)
		return nil
	}
	if session.State(time.Now(), m.cfg.TTL) == entity.SessionStateExpired {
		return nil
	}
	return &session
}

// persist 尽力而为地持久化会话
func (m *Manager) persist(ctx context.Context, session *entity.ConversationSession) {
	if m.store == nil {
		return
	}

	data, err := json.Marshal(session)
	if err != nil {
		logger.Warn(ctx, "序列化会话失败", "session_id", session.SessionID, "error", err)
		return
	}
	if err := m.store.Put(ctx, sessionKeyPrefix+session.SessionID, data, m.cfg.TTL); err != nil {
		logger.Warn(ctx, "会话持久化失败", "session_id", session.SessionID, "error", err)
	}
}

// buildSummary 生成会话摘要：前三个话题加最近三条用户提问
func buildSummary(session *entity.ConversationSession) string {
	if len(session.Messages) == 0 {
		return ""
	}

	var recent []string
	for _, msg := range session.Messages {
		if msg.Role == entity.RoleUser {
			recent = append(recent, msg.Content)
		}
	}
	if len(recent) > 3 {
		recent = recent[len(recent)-3:]
	}

	topics := session.ExtractedTopics
	if len(topics) > 3 {
		topics = topics[:3]
	}

	return "用户主要关注: " + strings.Join(topics, ", ") + ". 最近询问: " + strings.Join(recent, "; ")
}

// snapshot 深拷贝会话，调用方可在锁外安全读取
func snapshot(session *entity.ConversationSession) *entity.ConversationSession {
	out := *session
	out.Messages = append([]entity.Message(nil), session.Messages...)
	out.ExtractedTopics = append([]string(nil), session.ExtractedTopics...)
	out.UserInterests = append([]string(nil), session.UserInterests...)
	out.RAGHistory = append([]entity.RetrievalContext(nil), session.RAGHistory...)
	return &out
}
