package conversation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"svtr-chat-api/internal/domain/entity"
)

func TestSmartSuggestions_UnknownSessionReturnsDefaults(t *testing.T) {
	m := newTestManager(testSessionConfig())

	suggestions, source := m.SmartSuggestions(context.Background(), "missing")

	assert.Equal(t, SuggestionSourceDefault, source)
	assert.Len(t, suggestions, 6)
	assert.Contains(t, suggestions, "最新的AI投资趋势是什么？")
}

func TestSmartSuggestions_SessionBased(t *testing.T) {
	m := newTestManager(testSessionConfig())
	ctx := context.Background()

	_, err := m.AddMessage(ctx, "s1", entity.Message{Role: entity.RoleUser, Content: "AI投资热点有哪些？"})
	require.NoError(t, err)

	suggestions, source := m.SmartSuggestions(ctx, "s1")

	assert.Equal(t, SuggestionSourceSession, source)
	assert.NotEmpty(t, suggestions)
	assert.LessOrEqual(t, len(suggestions), 6)
	assert.Contains(t, suggestions, "最新的AI投资热点有哪些？")
	assert.Contains(t, suggestions, "关于AI投资的最新动态？")
}

func TestSmartSuggestions_Deduplicated(t *testing.T) {
	m := newTestManager(testSessionConfig())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := m.AddMessage(ctx, "s1", entity.Message{Role: entity.RoleUser, Content: "AI投资情况"})
		require.NoError(t, err)
	}

	suggestions, _ := m.SmartSuggestions(ctx, "s1")

	seen := make(map[string]int)
	for _, s := range suggestions {
		seen[s]++
	}
	for s, count := range seen {
		assert.Equal(t, 1, count, "建议 %q 重复出现", s)
	}
}

func TestSmartSuggestions_DeepConversation(t *testing.T) {
	m := newTestManager(testSessionConfig())
	ctx := context.Background()

	// 超过 5 条消息后出现深入建议
	for i := 0; i < 6; i++ {
		_, err := m.AddMessage(ctx, "s1", entity.Message{Role: entity.RoleUser, Content: "聊聊别的"})
		require.NoError(t, err)
	}

	suggestions, source := m.SmartSuggestions(ctx, "s1")
	assert.Equal(t, SuggestionSourceSession, source)
	assert.Contains(t, suggestions, "根据我们的对话，还有什么投资建议？")
}

func TestSmartSuggestions_EmptyProfileFallsBack(t *testing.T) {
	m := newTestManager(testSessionConfig())
	ctx := context.Background()

	// 无话题、消息不足，会话建议为空时退回默认建议
	_, err := m.AddMessage(ctx, "s1", entity.Message{Role: entity.RoleUser, Content: "你好"})
	require.NoError(t, err)

	suggestions, source := m.SmartSuggestions(ctx, "s1")
	assert.Equal(t, SuggestionSourceDefault, source)
	assert.Len(t, suggestions, 6)
}
