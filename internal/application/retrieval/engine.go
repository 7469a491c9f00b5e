// Package retrieval 实现知识库检索引擎：关键词抽取、双集合检索、
// 结果融合评分与结果缓存。
package retrieval

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"svtr-chat-api/internal/config"
	"svtr-chat-api/internal/domain/entity"
	"svtr-chat-api/internal/domain/repository"
	"svtr-chat-api/pkg/errors"
	"svtr-chat-api/pkg/logger"
	"svtr-chat-api/pkg/metrics"
)

// StrategyHybrid 知识库 + 表格数据混合检索
const StrategyHybrid = "kb_hybrid"

// Options 单次检索的选项
type Options struct {
	MaxResults          int
	Threshold           float64
	IncludeHiddenSheets bool
	EnableCache         bool
}

// DefaultOptions 按配置生成默认检索选项
func DefaultOptions(cfg config.RetrievalConfig) Options {
	return Options{
		MaxResults:          cfg.MaxResults,
		Threshold:           cfg.Threshold,
		IncludeHiddenSheets: true,
		EnableCache:         true,
	}
}

// Engine 知识检索引擎
type Engine struct {
	store repository.DocumentStore
	cache *ResultCache
	fuser *Fuser
	cfg   config.RetrievalConfig
	group singleflight.Group
}

// NewEngine 创建检索引擎。cache 可以为 nil，此时结果缓存始终未命中。
func NewEngine(store repository.DocumentStore, cache *ResultCache, cfg config.RetrievalConfig) *Engine {
	return &Engine{
		store: store,
		cache: cache,
		fuser: NewFuser(scoreWeights(cfg.Scoring)),
		cfg:   cfg,
	}
}

func scoreWeights(s config.ScoringConfig) ScoreWeights {
	if s == (config.ScoringConfig{}) {
		return DefaultScoreWeights()
	}
	return ScoreWeights{
		Title:          s.TitleWeight,
		Summary:        s.SummaryWeight,
		BodyOccurrence: s.BodyOccurrence,
		BodyCap:        s.BodyCap,
		Coverage:       s.CoverageWeight,
		HiddenBonus:    s.HiddenBonus,
		SheetTypeBonus: s.SheetTypeBonus,
	}
}

// Retrieve 执行一次知识检索。
// 知识库检索失败视为致命错误；表格检索失败仅降级为空结果。
func (e *Engine) Retrieve(ctx context.Context, query string, opts Options) (*entity.RetrievalResult, error) {
	start := time.Now()

	if e.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.RequestTimeout)
		defer cancel()
	}

	keywords := ExtractKeywords(query, e.cfg.MaxKeywords)
	if len(keywords) == 0 {
		logger.Debug(ctx, "查询未提取出有效关键词", "query", query)
		return e.emptyResult(query, start), nil
	}

	cacheKey := ""
	if e.cache != nil && opts.EnableCache {
		cacheKey = e.cache.Key(query, opts)
		if cached := e.cache.Get(ctx, cacheKey); cached != nil {
			metrics.CacheRequestsTotal.WithLabelValues("hit").Inc()
			cached.FromCache = true
			cached.ResponseTimeMs = time.Since(start).Milliseconds()
			return cached, nil
		}
		metrics.CacheRequestsTotal.WithLabelValues("miss").Inc()
	}

	// 相同查询并发到达时只触发一次实际检索
	flightKey := cacheKey
	if flightKey == "" {
		flightKey = "q:" + hashString(query)
	}
	v, err, _ := e.group.Do(flightKey, func() (any, error) {
		return e.search(ctx, query, keywords, opts)
	})
	if err != nil {
		metrics.RetrievalTotal.WithLabelValues(StrategyHybrid, "error").Inc()
		return nil, err
	}
	// 合并的并发调用方共享同一个返回值，拷贝后再写入各自的耗时
	result := *v.(*entity.RetrievalResult)
	result.ResponseTimeMs = time.Since(start).Milliseconds()

	metrics.RetrievalTotal.WithLabelValues(StrategyHybrid, "success").Inc()
	metrics.RetrievalDuration.WithLabelValues(StrategyHybrid).Observe(time.Since(start).Seconds())
	metrics.RetrievalMatches.WithLabelValues(StrategyHybrid).Observe(float64(len(result.Matches)))

	if cacheKey != "" {
		e.cache.Put(context.WithoutCancel(ctx), cacheKey, &result)
	}
	return &result, nil
}

// search 并发执行知识库与表格数据两路检索并融合
func (e *Engine) search(ctx context.Context, query string, keywords []string, opts Options) (*entity.RetrievalResult, error) {
	// 多取一些候选，融合过滤后再截断
	fetchLimit := opts.MaxResults * 2
	if fetchLimit <= 0 {
		fetchLimit = e.cfg.MaxResults * 2
	}

	var (
		kbMatches    []entity.RetrievalMatch
		sheetMatches []entity.RetrievalMatch
	)

	// 两路检索互不影响：表格检索失败只记日志
	g := new(errgroup.Group)
	g.Go(func() error {
		matches, err := e.store.SearchKnowledge(ctx, keywords, fetchLimit)
		if err != nil {
			return errors.Wrap(err, errors.CodeKnowledgeBaseError, "知识库检索失败")
		}
		kbMatches = matches
		return nil
	})
	// 关闭隐藏工作表选项时整条表格检索策略停用
	if opts.IncludeHiddenSheets {
		g.Go(func() error {
			matches, err := e.store.SearchSheets(ctx, keywords, fetchLimit)
			if err != nil {
				logger.Warn(ctx, "表格数据检索失败，降级为空结果", "error", err)
				return nil
			}
			sheetMatches = matches
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	all := make([]entity.RetrievalMatch, 0, len(kbMatches)+len(sheetMatches))
	all = append(all, kbMatches...)
	all = append(all, sheetMatches...)

	matches := e.fuser.Fuse(all, keywords, opts.Threshold, opts.MaxResults)
	logger.Info(ctx, "知识检索完成",
		"query", query,
		"keywords", len(keywords),
		"candidates", len(all),
		"matches", len(matches),
	)

	// Total 记录过滤前的候选总数，便于区分"无匹配"与"全部被阈值过滤"
	return &entity.RetrievalResult{
		Matches:   matches,
		Total:     len(all),
		Query:     query,
		FromCache: false,
		Strategy:  StrategyHybrid,
	}, nil
}

func (e *Engine) emptyResult(query string, start time.Time) *entity.RetrievalResult {
	return &entity.RetrievalResult{
		Matches:        []entity.RetrievalMatch{},
		Total:          0,
		Query:          query,
		ResponseTimeMs: time.Since(start).Milliseconds(),
		FromCache:      false,
		Strategy:       StrategyHybrid,
	}
}
