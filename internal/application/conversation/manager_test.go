package conversation

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"svtr-chat-api/internal/config"
	"svtr-chat-api/internal/domain/entity"
	"svtr-chat-api/internal/infrastructure/persistence/memory"
)

func testSessionConfig() config.SessionConfig {
	return config.SessionConfig{
		TTL:                 24 * time.Hour,
		SweepInterval:       time.Hour,
		MaxMessages:         50,
		MaxTopics:           20,
		MaxInterests:        10,
		MaxRetrievalHistory: 10,
	}
}

func newTestManager(cfg config.SessionConfig) *Manager {
	return NewManager(memory.NewKVStore(cfg.TTL, time.Hour), cfg)
}

func TestManager_AddMessage(t *testing.T) {
	m := newTestManager(testSessionConfig())
	ctx := context.Background()

	session, err := m.AddMessage(ctx, "s1", entity.Message{
		Role:    entity.RoleUser,
		Content: "AI投资趋势如何？",
	})
	require.NoError(t, err)

	assert.Equal(t, "s1", session.SessionID)
	assert.Len(t, session.Messages, 1)
	assert.Contains(t, session.ExtractedTopics, "投资趋势")
	assert.NotEmpty(t, session.ConversationSummary)
}

func TestManager_MessageTrimKeepsMostRecent(t *testing.T) {
	m := newTestManager(testSessionConfig())
	ctx := context.Background()

	var session *entity.ConversationSession
	var err error
	for i := 0; i < 60; i++ {
		session, err = m.AddMessage(ctx, "s1", entity.Message{
			Role:    entity.RoleUser,
			Content: fmt.Sprintf("问题 %d", i),
		})
		require.NoError(t, err)
	}

	assert.Len(t, session.Messages, 50)
	assert.Equal(t, "问题 10", session.Messages[0].Content)
	assert.Equal(t, "问题 59", session.Messages[49].Content)
}

func TestManager_TopicsDedupedAndCapped(t *testing.T) {
	m := newTestManager(testSessionConfig())
	ctx := context.Background()

	var session *entity.ConversationSession
	var err error
	for i := 0; i < 5; i++ {
		session, err = m.AddMessage(ctx, "s1", entity.Message{
			Role:    entity.RoleUser,
			Content: "AI投资和AI公司的情况",
		})
		require.NoError(t, err)
	}

	count := 0
	for _, topic := range session.ExtractedTopics {
		if topic == "AI投资" {
			count++
		}
	}
	assert.Equal(t, 1, count, "话题不应重复")
	assert.LessOrEqual(t, len(session.ExtractedTopics), 20)
}

func TestManager_InterestsWeightedAndCapped(t *testing.T) {
	m := newTestManager(testSessionConfig())
	ctx := context.Background()

	_, err := m.AddMessage(ctx, "s1", entity.Message{Role: entity.RoleUser, Content: "AI公司有哪些"})
	require.NoError(t, err)
	_, err = m.AddMessage(ctx, "s1", entity.Message{Role: entity.RoleUser, Content: "AI投资热点"})
	require.NoError(t, err)
	session, err := m.AddMessage(ctx, "s1", entity.Message{Role: entity.RoleUser, Content: "AI投资趋势"})
	require.NoError(t, err)

	require.NotEmpty(t, session.UserInterests)
	assert.Equal(t, "AI投资", session.UserInterests[0], "多次出现的话题应排在前面")
	assert.LessOrEqual(t, len(session.UserInterests), 10)
}

func TestManager_RetrievalHistoryCapped(t *testing.T) {
	m := newTestManager(testSessionConfig())
	ctx := context.Background()

	var session *entity.ConversationSession
	var err error
	for i := 0; i < 15; i++ {
		session, err = m.AddMessage(ctx, "s1", entity.Message{
			Role:       entity.RoleUser,
			Content:    fmt.Sprintf("查询 %d", i),
			RAGContext: &entity.RetrievalContext{SearchQuery: fmt.Sprintf("查询 %d", i)},
		})
		require.NoError(t, err)
	}

	assert.Len(t, session.RAGHistory, 10)
	assert.Equal(t, "查询 14", session.RAGHistory[9].SearchQuery)
	assert.Equal(t, "查询 5", session.RAGHistory[0].SearchQuery)
}

func TestManager_AssistantMessagesDoNotAffectProfile(t *testing.T) {
	m := newTestManager(testSessionConfig())
	ctx := context.Background()

	session, err := m.AddMessage(ctx, "s1", entity.Message{
		Role:    entity.RoleAssistant,
		Content: "AI投资近期活跃。",
	})
	require.NoError(t, err)

	assert.Empty(t, session.ExtractedTopics)
	assert.Empty(t, session.UserInterests)
}

func TestManager_SummaryFormat(t *testing.T) {
	m := newTestManager(testSessionConfig())
	ctx := context.Background()

	session, err := m.AddMessage(ctx, "s1", entity.Message{
		Role:    entity.RoleUser,
		Content: "AI投资趋势如何？",
	})
	require.NoError(t, err)

	assert.Contains(t, session.ConversationSummary, "用户主要关注:")
	assert.Contains(t, session.ConversationSummary, "最近询问:")
	assert.Contains(t, session.ConversationSummary, "AI投资趋势如何？")
}

func TestManager_LazyExpiryResetsSession(t *testing.T) {
	cfg := testSessionConfig()
	cfg.TTL = 10 * time.Millisecond
	m := NewManager(nil, cfg)
	ctx := context.Background()

	_, err := m.AddMessage(ctx, "s1", entity.Message{Role: entity.RoleUser, Content: "AI投资"})
	require.NoError(t, err)

	time.Sleep(30 * time.Millisecond)

	session := m.Session(ctx, "s1")
	require.NotNil(t, session)
	assert.Empty(t, session.Messages, "过期会话应重置为空会话")
}

func TestManager_CleanupExpired(t *testing.T) {
	cfg := testSessionConfig()
	cfg.TTL = 10 * time.Millisecond
	m := NewManager(nil, cfg)
	ctx := context.Background()

	_, err := m.AddMessage(ctx, "s1", entity.Message{Role: entity.RoleUser, Content: "AI投资"})
	require.NoError(t, err)
	_, err = m.AddMessage(ctx, "s2", entity.Message{Role: entity.RoleUser, Content: "AI公司"})
	require.NoError(t, err)

	time.Sleep(30 * time.Millisecond)

	assert.Equal(t, 2, m.CleanupExpired())
	assert.Equal(t, 0, m.CleanupExpired())
}

func TestManager_RestoreFromStore(t *testing.T) {
	cfg := testSessionConfig()
	store := memory.NewKVStore(cfg.TTL, time.Hour)
	ctx := context.Background()

	first := NewManager(store, cfg)
	_, err := first.AddMessage(ctx, "s1", entity.Message{Role: entity.RoleUser, Content: "AI投资趋势"})
	require.NoError(t, err)

	// 新的管理器实例应能从持久化存储恢复会话
	second := NewManager(store, cfg)
	session := second.Session(ctx, "s1")
	require.NotNil(t, session)
	assert.Len(t, session.Messages, 1)
	assert.Contains(t, session.ExtractedTopics, "投资趋势")
}

func TestManager_NilStoreStillWorks(t *testing.T) {
	m := NewManager(nil, testSessionConfig())
	ctx := context.Background()

	session, err := m.AddMessage(ctx, "s1", entity.Message{Role: entity.RoleUser, Content: "AI投资"})
	require.NoError(t, err)
	assert.Len(t, session.Messages, 1)
}

func TestManager_SnapshotIsolated(t *testing.T) {
	m := newTestManager(testSessionConfig())
	ctx := context.Background()

	first, err := m.AddMessage(ctx, "s1", entity.Message{Role: entity.RoleUser, Content: "AI投资"})
	require.NoError(t, err)

	first.Messages[0].Content = "被篡改"

	session := m.Session(ctx, "s1")
	assert.Equal(t, "AI投资", session.Messages[0].Content, "快照修改不应影响内部状态")
}
