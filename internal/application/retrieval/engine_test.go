package retrieval

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"svtr-chat-api/internal/config"
	"svtr-chat-api/internal/domain/entity"
	"svtr-chat-api/internal/infrastructure/persistence/memory"
)

// fakeDocumentStore 预置结果的文档存储
type fakeDocumentStore struct {
	knowledge    []entity.RetrievalMatch
	sheets       []entity.RetrievalMatch
	knowledgeErr error
	sheetsErr    error
	delay        time.Duration

	mu             sync.Mutex
	knowledgeCalls int
	sheetCalls     int
}

func (s *fakeDocumentStore) SearchKnowledge(_ context.Context, _ []string, _ int) ([]entity.RetrievalMatch, error) {
	s.mu.Lock()
	s.knowledgeCalls++
	s.mu.Unlock()
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.knowledgeErr != nil {
		return nil, s.knowledgeErr
	}
	return s.knowledge, nil
}

func (s *fakeDocumentStore) SearchSheets(_ context.Context, _ []string, _ int) ([]entity.RetrievalMatch, error) {
	s.mu.Lock()
	s.sheetCalls++
	s.mu.Unlock()
	if s.sheetsErr != nil {
		return nil, s.sheetsErr
	}
	return s.sheets, nil
}

func testRetrievalConfig() config.RetrievalConfig {
	return config.RetrievalConfig{
		MaxResults:  8,
		Threshold:   0.3,
		MaxKeywords: 15,
		CacheTTL:    time.Hour,
	}
}

func newTestEngine(store *fakeDocumentStore) *Engine {
	cache := NewResultCache(memory.NewKVStore(time.Hour, time.Hour), time.Hour)
	return NewEngine(store, cache, testRetrievalConfig())
}

func TestEngine_RetrieveKnowledgeBaseScenario(t *testing.T) {
	store := &fakeDocumentStore{
		knowledge: []entity.RetrievalMatch{
			{
				NodeToken: "svtr-intro",
				Title:     "硅谷科技评论（SVTR.AI）平台介绍",
				ObjType:   entity.ObjTypeDoc,
				Content:   "SVTR追踪10,761家全球AI公司，覆盖AI创投生态。",
				Summary:   "SVTR平台介绍与AI公司数据",
				Source:    entity.SourceKnowledgeBase,
			},
		},
	}
	engine := newTestEngine(store)

	result, err := engine.Retrieve(context.Background(), "SVTR平台追踪多少家AI公司？", DefaultOptions(testRetrievalConfig()))
	require.NoError(t, err)

	require.NotEmpty(t, result.Matches)
	top := result.Matches[0]
	assert.Greater(t, top.Score, 0.5)
	assert.Equal(t, entity.SourceKnowledgeBase, top.Source)
	assert.Contains(t, top.Title, "SVTR")
	assert.Equal(t, StrategyHybrid, result.Strategy)
	assert.False(t, result.FromCache)
}

func TestEngine_EmptyStore(t *testing.T) {
	store := &fakeDocumentStore{}
	engine := newTestEngine(store)
	opts := DefaultOptions(testRetrievalConfig())

	result, err := engine.Retrieve(context.Background(), "AI投资趋势", opts)
	require.NoError(t, err)
	assert.Empty(t, result.Matches)
	assert.Equal(t, 0, result.Total)

	// 空结果不应写缓存：再次检索仍然会访问存储
	result, err = engine.Retrieve(context.Background(), "AI投资趋势", opts)
	require.NoError(t, err)
	assert.False(t, result.FromCache)
	assert.Equal(t, 2, store.knowledgeCalls)
}

func TestEngine_CacheHitOnSecondCall(t *testing.T) {
	store := &fakeDocumentStore{
		knowledge: []entity.RetrievalMatch{
			{NodeToken: "doc1", Title: "AI投资趋势报告", Content: "AI投资详细分析", Summary: "AI投资", Source: entity.SourceKnowledgeBase},
		},
	}
	engine := newTestEngine(store)
	opts := DefaultOptions(testRetrievalConfig())

	first, err := engine.Retrieve(context.Background(), "AI投资趋势", opts)
	require.NoError(t, err)
	require.NotEmpty(t, first.Matches)
	assert.False(t, first.FromCache)

	second, err := engine.Retrieve(context.Background(), "AI投资趋势", opts)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Total, second.Total)
	assert.Equal(t, 1, store.knowledgeCalls, "缓存命中不应访问存储")
}

func TestEngine_CacheDisabled(t *testing.T) {
	store := &fakeDocumentStore{
		knowledge: []entity.RetrievalMatch{
			{NodeToken: "doc1", Title: "AI投资趋势报告", Content: "AI投资分析", Source: entity.SourceKnowledgeBase},
		},
	}
	engine := newTestEngine(store)

	opts := DefaultOptions(testRetrievalConfig())
	opts.EnableCache = false

	for i := 0; i < 2; i++ {
		result, err := engine.Retrieve(context.Background(), "AI投资趋势", opts)
		require.NoError(t, err)
		assert.False(t, result.FromCache)
	}
	assert.Equal(t, 2, store.knowledgeCalls)
}

func TestEngine_KnowledgeErrorIsFatal(t *testing.T) {
	store := &fakeDocumentStore{knowledgeErr: errors.New("db down")}
	engine := newTestEngine(store)

	_, err := engine.Retrieve(context.Background(), "AI投资", DefaultOptions(testRetrievalConfig()))
	assert.Error(t, err)
}

func TestEngine_SheetErrorDegrades(t *testing.T) {
	store := &fakeDocumentStore{
		knowledge: []entity.RetrievalMatch{
			{NodeToken: "doc1", Title: "AI投资趋势", Content: "AI投资分析", Source: entity.SourceKnowledgeBase},
		},
		sheetsErr: errors.New("sheet query failed"),
	}
	engine := newTestEngine(store)

	result, err := engine.Retrieve(context.Background(), "AI投资", DefaultOptions(testRetrievalConfig()))
	require.NoError(t, err, "表格检索失败不应导致整体失败")
	assert.NotEmpty(t, result.Matches)
}

func TestEngine_HiddenSheetsOptionDisablesSheetSearch(t *testing.T) {
	store := &fakeDocumentStore{
		sheets: []entity.RetrievalMatch{
			{NodeToken: "s1", WorksheetName: "公开", Title: "AI公司榜单", Content: "ai公司", Source: entity.SourceSheetData},
			{NodeToken: "s1", WorksheetName: "隐藏", Title: "AI公司内部数据", Content: "ai公司", Source: entity.SourceSheetData, IsHidden: true},
		},
	}
	engine := newTestEngine(store)

	opts := DefaultOptions(testRetrievalConfig())
	opts.IncludeHiddenSheets = false
	opts.EnableCache = false

	// 选项关闭时整条表格检索策略停用，公开工作表也不参与
	result, err := engine.Retrieve(context.Background(), "AI公司榜单", opts)
	require.NoError(t, err)
	assert.Empty(t, result.Matches)
	assert.Zero(t, store.sheetCalls)

	opts.IncludeHiddenSheets = true
	result, err = engine.Retrieve(context.Background(), "AI公司榜单", opts)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Matches)
	assert.Equal(t, 1, store.sheetCalls)
}

func TestEngine_TotalIsPreFilterCount(t *testing.T) {
	store := &fakeDocumentStore{
		knowledge: []entity.RetrievalMatch{
			{NodeToken: "doc1", Title: "AI投资趋势报告", Content: "ai投资趋势分析", Summary: "ai投资", Source: entity.SourceKnowledgeBase},
			{NodeToken: "doc2", Title: "无关文档一", Content: "别的内容", Source: entity.SourceKnowledgeBase},
			{NodeToken: "doc3", Title: "无关文档二", Content: "别的内容", Source: entity.SourceKnowledgeBase},
		},
	}
	engine := newTestEngine(store)

	opts := DefaultOptions(testRetrievalConfig())
	opts.EnableCache = false

	result, err := engine.Retrieve(context.Background(), "AI投资趋势", opts)
	require.NoError(t, err)
	assert.Len(t, result.Matches, 1, "低于阈值的候选应被过滤")
	assert.Equal(t, 3, result.Total, "Total 应记录过滤前的候选总数")
}

func TestEngine_ConcurrentRetrieveSameQuery(t *testing.T) {
	store := &fakeDocumentStore{
		knowledge: []entity.RetrievalMatch{
			{NodeToken: "doc1", Title: "AI投资趋势报告", Content: "ai投资趋势分析", Source: entity.SourceKnowledgeBase},
		},
		delay: 10 * time.Millisecond,
	}
	engine := newTestEngine(store)
	opts := DefaultOptions(testRetrievalConfig())

	const callers = 8
	results := make([]*entity.RetrievalResult, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = engine.Retrieve(context.Background(), "AI投资趋势", opts)
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		require.NotNil(t, results[i])
		assert.Len(t, results[i].Matches, 1)
		assert.Equal(t, 1, results[i].Total)
	}
}

func TestEngine_NoKeywords(t *testing.T) {
	store := &fakeDocumentStore{}
	engine := newTestEngine(store)

	result, err := engine.Retrieve(context.Background(), "的 了 the", DefaultOptions(testRetrievalConfig()))
	require.NoError(t, err)
	assert.Empty(t, result.Matches)
	assert.Zero(t, store.knowledgeCalls, "无有效关键词时不应访问存储")
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions(testRetrievalConfig())
	assert.Equal(t, 8, opts.MaxResults)
	assert.InDelta(t, 0.3, opts.Threshold, 1e-9)
	assert.True(t, opts.IncludeHiddenSheets)
	assert.True(t, opts.EnableCache)
}
