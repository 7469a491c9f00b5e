package retrieval

import (
	"fmt"
	"strings"

	"svtr-chat-api/internal/domain/entity"
)

const noMatchNotice = "未找到相关知识库内容。"

// contentPreviewLimit 单条匹配注入提示词的正文截断长度（按字符计）
const contentPreviewLimit = 300

var typeLabels = map[entity.ObjType]string{
	entity.ObjTypeDoc:            "📄 文档",
	entity.ObjTypeSheet:          "📊 表格",
	entity.ObjTypeSheetWorksheet: "📊 表格工作表",
	entity.ObjTypeBitable:        "📋 多维表",
	entity.ObjTypeWiki:           "📚 Wiki",
}

// FormatForAI 把检索匹配渲染为注入 AI 提示词的上下文文本
func FormatForAI(matches []entity.RetrievalMatch) string {
	if len(matches) == 0 {
		return noMatchNotice
	}

	blocks := make([]string, 0, len(matches))
	for i, m := range matches {
		var b strings.Builder
		fmt.Fprintf(&b, "【%d】%s - %s\n", i+1, typeLabel(m.ObjType), m.Title)
		if m.IsHidden {
			b.WriteString("🔒隐藏工作表 ")
		}
		b.WriteString(m.Summary)
		b.WriteString("\n\n")
		b.WriteString(truncateRunes(m.Content, contentPreviewLimit))
		b.WriteString("\n\n---\n")
		fmt.Fprintf(&b, "相关性: %.1f%%\n", m.Score*100)
		fmt.Fprintf(&b, "来源: %s", m.Source)
		if m.WorksheetName != "" {
			fmt.Fprintf(&b, "\n工作表: %s", m.WorksheetName)
		}
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, "\n\n")
}

func typeLabel(objType entity.ObjType) string {
	if label, ok := typeLabels[objType]; ok {
		return label
	}
	return "📁 文档"
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
