// Package entity 定义领域实体
package entity

// ObjType 知识文档类型
type ObjType string

const (
	ObjTypeDoc            ObjType = "docx"
	ObjTypeSheet          ObjType = "sheet"
	ObjTypeSheetWorksheet ObjType = "sheet_worksheet"
	ObjTypeBitable        ObjType = "bitable"
	ObjTypeWiki           ObjType = "wiki"
)

// 检索结果来源
const (
	SourceKnowledgeBase = "knowledge_base"
	SourceSheetData     = "sheet_data"
)

// KnowledgeDocument 知识库文档（外部同步进程维护，引擎只读）
type KnowledgeDocument struct {
	NodeToken string  `json:"node_token"`
	Title     string  `json:"title"`
	ObjType   ObjType `json:"obj_type"`
	Content   string  `json:"content"`
	Summary   string  `json:"summary"`
	IsHidden  bool    `json:"is_hidden,omitempty"`
}

// RetrievalMatch 某次查询下对知识文档的打分投影
type RetrievalMatch struct {
	NodeToken     string  `json:"node_token"`
	Title         string  `json:"title"`
	ObjType       ObjType `json:"obj_type"`
	Content       string  `json:"content"`
	Summary       string  `json:"summary"`
	Score         float64 `json:"score"`
	Source        string  `json:"source"`
	WorksheetName string  `json:"worksheet_name,omitempty"`
	IsHidden      bool    `json:"is_hidden,omitempty"`
}

// DedupKey 去重键：(文档, 工作表)
func (m *RetrievalMatch) DedupKey() string {
	return m.NodeToken + "_" + m.WorksheetName
}

// RetrievalResult 检索结果信封
// 不变式：Matches 按分数降序排列，长度不超过请求的 maxResults。
// Total 是阈值过滤前的候选总数，可能大于 len(Matches)。
type RetrievalResult struct {
	Matches        []RetrievalMatch `json:"matches"`
	Total          int              `json:"total"`
	Query          string           `json:"query"`
	ResponseTimeMs int64            `json:"response_time_ms"`
	FromCache      bool             `json:"from_cache"`
	Strategy       string           `json:"strategy"`
}

// RetrievalContext 附加在消息上的检索上下文
type RetrievalContext struct {
	Matches     []RetrievalMatch `json:"matches"`
	SearchQuery string           `json:"search_query"`
	Confidence  float64          `json:"confidence"`
	Sources     []string         `json:"sources"`
}
