// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"svtr-chat-api/internal/domain/entity"
)

// KnowledgeRepository 知识库文档检索仓储。
// 底层 schema 由外部同步进程维护：knowledge_base_nodes 保存节点元数据，
// knowledge_base_content 保存全文与表格原始数据。
type KnowledgeRepository struct {
	client *Client
}

// NewKnowledgeRepository 创建知识库仓储
func NewKnowledgeRepository(client *Client) *KnowledgeRepository {
	return &KnowledgeRepository{client: client}
}

type knowledgeRow struct {
	NodeToken     string `gorm:"column:node_token"`
	Title         string `gorm:"column:title"`
	ObjType       string `gorm:"column:obj_type"`
	Content       string `gorm:"column:content"`
	Summary       string `gorm:"column:summary"`
	ContentLength int    `gorm:"column:content_length"`
}

type sheetRow struct {
	NodeToken string `gorm:"column:node_token"`
	Title     string `gorm:"column:title"`
	ObjType   string `gorm:"column:obj_type"`
	Content   string `gorm:"column:content"`
	Summary   string `gorm:"column:summary"`
	SheetData string `gorm:"column:sheet_data"`
}

// worksheetMeta sheet_data JSON 中的逐工作表结构
type worksheetMeta struct {
	Sheets []struct {
		Name   string `json:"name"`
		Hidden bool   `json:"hidden"`
	} `json:"sheets"`
}

// likeConditions 为每个关键词构建 (title OR body OR summary) 的匹配三元组。
// 关键词在抽取阶段已统一小写，这里用 ILIKE 保证英文关键词不区分大小写命中。
func likeConditions(keywords []string, bodyColumn string) (string, []interface{}) {
	conds := make([]string, 0, len(keywords))
	args := make([]interface{}, 0, len(keywords)*3)
	for _, kw := range keywords {
		conds = append(conds, fmt.Sprintf("(n.title ILIKE ? OR %s ILIKE ? OR n.content_summary ILIKE ?)", bodyColumn))
		pattern := "%" + kw + "%"
		args = append(args, pattern, pattern, pattern)
	}
	return strings.Join(conds, " OR "), args
}

// SearchKnowledge 在知识库内容表中做关键词匹配。
// 按内容长度降序取行，内容长度作为文档信息量的廉价代理。
func (r *KnowledgeRepository) SearchKnowledge(ctx context.Context, keywords []string, limit int) ([]entity.RetrievalMatch, error) {
	ctx, span := tracer.Start(ctx, "postgres.KnowledgeRepository.SearchKnowledge")
	span.SetAttributes(attribute.Int("search.keyword_count", len(keywords)))
	defer span.End()

	if len(keywords) == 0 {
		return nil, nil
	}

	conds, args := likeConditions(keywords, "c.full_content")
	sql := fmt.Sprintf(`
		SELECT
			n.node_token,
			n.title,
			n.obj_type,
			SUBSTR(c.full_content, 1, 500) AS content,
			n.content_summary AS summary,
			LENGTH(c.full_content) AS content_length
		FROM knowledge_base_nodes n
		INNER JOIN knowledge_base_content c ON n.node_token = c.node_token
		WHERE n.is_public = TRUE
			AND n.is_indexed = TRUE
			AND (%s)
		ORDER BY content_length DESC
		LIMIT ?`, conds)
	args = append(args, limit)

	var rows []knowledgeRow
	if err := r.client.db.WithContext(ctx).Raw(sql, args...).Scan(&rows).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to search knowledge base: %w", err)
	}

	matches := make([]entity.RetrievalMatch, 0, len(rows))
	for _, row := range rows {
		matches = append(matches, entity.RetrievalMatch{
			NodeToken: row.NodeToken,
			Title:     row.Title,
			ObjType:   entity.ObjType(row.ObjType),
			Content:   row.Content,
			Summary:   row.Summary,
			Source:    entity.SourceKnowledgeBase,
		})
	}

	span.SetAttributes(attribute.Int("search.match_count", len(matches)))
	return matches, nil
}

// SearchSheets 检索表格类型节点并标注隐藏工作表。
// sheet_data 解析失败只丢掉隐藏工作表标注，不影响该条匹配本身。
func (r *KnowledgeRepository) SearchSheets(ctx context.Context, keywords []string, limit int) ([]entity.RetrievalMatch, error) {
	ctx, span := tracer.Start(ctx, "postgres.KnowledgeRepository.SearchSheets")
	span.SetAttributes(attribute.Int("search.keyword_count", len(keywords)))
	defer span.End()

	if len(keywords) == 0 {
		return nil, nil
	}

	conds, args := likeConditions(keywords, "c.sheet_data")
	sql := fmt.Sprintf(`
		SELECT
			n.node_token,
			n.title,
			n.obj_type,
			SUBSTR(c.full_content, 1, 500) AS content,
			n.content_summary AS summary,
			c.sheet_data,
			LENGTH(c.sheet_data) AS sheet_data_size
		FROM knowledge_base_nodes n
		INNER JOIN knowledge_base_content c ON n.node_token = c.node_token
		WHERE n.is_public = TRUE
			AND n.is_indexed = TRUE
			AND n.obj_type = 'sheet'
			AND (%s)
		ORDER BY sheet_data_size DESC
		LIMIT ?`, conds)
	args = append(args, limit)

	var rows []sheetRow
	if err := r.client.db.WithContext(ctx).Raw(sql, args...).Scan(&rows).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to search sheet data: %w", err)
	}

	matches := make([]entity.RetrievalMatch, 0, len(rows))
	hiddenCount := 0
	for _, row := range rows {
		title := row.Title
		hasHidden := false

		if row.SheetData != "" {
			var meta worksheetMeta
			if err := json.Unmarshal([]byte(row.SheetData), &meta); err == nil {
				n := 0
				for _, ws := range meta.Sheets {
					if ws.Hidden {
						n++
					}
				}
				if n > 0 {
					hasHidden = true
					hiddenCount++
					title = fmt.Sprintf("%s [含%d个隐藏工作表]", title, n)
				}
			}
		}

		matches = append(matches, entity.RetrievalMatch{
			NodeToken: row.NodeToken,
			Title:     title,
			ObjType:   entity.ObjType(row.ObjType),
			Content:   row.Content,
			Summary:   row.Summary,
			Source:    entity.SourceSheetData,
			IsHidden:  hasHidden,
		})
	}

	span.SetAttributes(
		attribute.Int("search.match_count", len(matches)),
		attribute.Int("search.hidden_count", hiddenCount),
	)
	return matches, nil
}
