// Package repository 定义领域仓储接口
package repository

import (
	"context"

	"svtr-chat-api/internal/domain/entity"
)

// DocumentStore 文档存储查询接口。
// 两个查询互相独立：知识库检索失败对整体检索是致命的，
// 表格数据检索是补充策略，失败时降级为空结果。
type DocumentStore interface {
	// SearchKnowledge 按关键词在标题/正文/摘要上做模式匹配，
	// 最多返回 limit 行，按内容长度降序。
	SearchKnowledge(ctx context.Context, keywords []string, limit int) ([]entity.RetrievalMatch, error)

	// SearchSheets 仅检索表格类型节点，并解析逐工作表结构以
	// 标注隐藏（受限）工作表。
	SearchSheets(ctx context.Context, keywords []string, limit int) ([]entity.RetrievalMatch, error)
}
