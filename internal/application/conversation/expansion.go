package conversation

import (
	"regexp"
	"strings"
)

// QueryType 查询类型
type QueryType string

const (
	QueryTypeCompanySearch      QueryType = "company_search"
	QueryTypeInvestmentAnalysis QueryType = "investment_analysis"
	QueryTypeMarketTrends       QueryType = "market_trends"
	QueryTypeTechnologyInfo     QueryType = "technology_info"
	QueryTypeFundingInfo        QueryType = "funding_info"
	QueryTypeTeamEvaluation     QueryType = "team_evaluation"
	QueryTypeGeneral            QueryType = "general"
)

// Expansion 查询扩展结果
type Expansion struct {
	OriginalQuery string    `json:"original_query"`
	ExpandedQuery string    `json:"expanded_query"`
	Synonyms      []string  `json:"synonyms"`
	RelatedTerms  []string  `json:"related_terms"`
	QueryType     QueryType `json:"query_type"`
	DomainContext []string  `json:"domain_context"`
	Confidence    float64   `json:"confidence"`
}

// synonymEntry AI 创投领域同义词条目，按声明顺序匹配
type synonymEntry struct {
	term     string
	synonyms []string
}

var synonymEntries = []synonymEntry{
	{"ai", []string{"人工智能", "artificial intelligence", "机器学习", "ml", "deep learning", "深度学习"}},
	{"投资", []string{"funding", "investment", "融资", "资金", "capital", "venture", "风投"}},
	{"公司", []string{"company", "startup", "初创企业", "企业", "firm", "团队", "team"}},
	{"趋势", []string{"trend", "direction", "方向", "发展", "走势", "outlook", "前景"}},
	{"估值", []string{"valuation", "价值", "value", "市值", "worth", "评估"}},
	{"轮次", []string{"round", "阶段", "stage", "series", "融资轮"}},
	{"独角兽", []string{"unicorn", "十亿美元", "billion-dollar", "高估值"}},
	{"赛道", []string{"sector", "领域", "domain", "field", "industry", "行业"}},
	{"平台", []string{"platform", "系统", "system", "服务", "service"}},
}

var domainTerms = map[string][]string{
	"investment":         {"pre-seed", "seed", "series-a", "series-b", "series-c", "ipo", "exit", "portfolio", "due-diligence"},
	"ai-technology":      {"llm", "gpt", "transformer", "neural-network", "computer-vision", "nlp", "robotics", "autonomous"},
	"market-analysis":    {"market-size", "competition", "moat", "growth-rate", "tam", "sam", "som", "market-share"},
	"startup-evaluation": {"product-market-fit", "mvp", "traction", "revenue", "burn-rate", "runway", "kpi", "metrics"},
}

// queryTypePattern 查询类型识别规则，按声明顺序匹配
type queryTypePattern struct {
	queryType QueryType
	patterns  []*regexp.Regexp
}

var queryTypePatterns = []queryTypePattern{
	{QueryTypeCompanySearch, []*regexp.Regexp{
		regexp.MustCompile(`.+公司|.+企业|.+团队`),
		regexp.MustCompile(`search.+company|find.+startup`),
		regexp.MustCompile(`哪些公司|什么企业|哪家公司`),
	}},
	{QueryTypeInvestmentAnalysis, []*regexp.Regexp{
		regexp.MustCompile(`投资.+分析|投资.+趋势|投资.+机会`),
		regexp.MustCompile(`investment.+analysis|investment.+trend`),
		regexp.MustCompile(`融资.+情况|融资.+数据`),
	}},
	{QueryTypeMarketTrends, []*regexp.Regexp{
		regexp.MustCompile(`市场趋势|行业趋势|发展趋势`),
		regexp.MustCompile(`market.+trend|industry.+trend`),
		regexp.MustCompile(`未来.+发展|前景.+如何`),
	}},
	{QueryTypeTechnologyInfo, []*regexp.Regexp{
		regexp.MustCompile(`技术.+介绍|技术.+分析|ai.+技术`),
		regexp.MustCompile(`technology|technical|ai.+capability`),
		regexp.MustCompile(`算法|模型|架构`),
	}},
	{QueryTypeFundingInfo, []*regexp.Regexp{
		regexp.MustCompile(`融资.+轮次|融资.+金额|投资.+轮次`),
		regexp.MustCompile(`funding.+round|series.+[abc]`),
		regexp.MustCompile(`获得.+投资|完成.+融资`),
	}},
	{QueryTypeTeamEvaluation, []*regexp.Regexp{
		regexp.MustCompile(`团队.+评估|如何.+识别|怎么.+判断`),
		regexp.MustCompile(`evaluate.+team|assess.+founder`),
		regexp.MustCompile(`创始人|团队背景|管理层`),
	}},
}

// typeDomains 查询类型到领域术语组的映射
var typeDomains = map[QueryType][]string{
	QueryTypeCompanySearch:      {"investment", "startup-evaluation"},
	QueryTypeInvestmentAnalysis: {"investment", "market-analysis"},
	QueryTypeMarketTrends:       {"market-analysis", "ai-technology"},
	QueryTypeTechnologyInfo:     {"ai-technology", "startup-evaluation"},
	QueryTypeFundingInfo:        {"investment", "startup-evaluation"},
	QueryTypeTeamEvaluation:     {"startup-evaluation", "investment"},
	QueryTypeGeneral:            {"investment", "ai-technology"},
}

// typeContexts 查询类型到领域上下文描述的映射
var typeContexts = map[QueryType][]string{
	QueryTypeCompanySearch:      {"AI创投生态系统", "初创企业数据库", "投资组合分析"},
	QueryTypeInvestmentAnalysis: {"投资趋势分析", "市场数据", "风险评估"},
	QueryTypeMarketTrends:       {"行业洞察", "技术发展", "竞争分析"},
	QueryTypeTechnologyInfo:     {"技术评估", "AI能力分析", "产品技术栈"},
	QueryTypeFundingInfo:        {"融资数据", "投资轮次", "估值分析"},
	QueryTypeTeamEvaluation:     {"团队背景", "创始人经历", "管理能力"},
	QueryTypeGeneral:            {"AI创投知识库", "SVTR平台数据"},
}

var expansionStopWords = map[string]struct{}{
	"的": {}, "了": {}, "在": {}, "是": {}, "有": {}, "和": {}, "与": {}, "或": {},
	"如何": {}, "什么": {}, "哪些": {}, "怎么": {}, "为什么": {},
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {}, "on": {},
	"at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {},
	"how": {}, "what": {}, "which": {}, "where": {}, "when": {}, "who": {}, "why": {},
}

var expansionCleanPattern = regexp.MustCompile(`[^\w\s\p{Han}]`)

const defaultMaxExpansions = 10

// Expander 查询扩展器：为原始查询附加同义词、领域术语与上下文提示，
// 提高关键词检索的召回率。
type Expander struct {
	maxExpansions int
}

// NewExpander 创建查询扩展器
func NewExpander() *Expander {
	return &Expander{maxExpansions: defaultMaxExpansions}
}

// Expand 执行查询扩展
func (e *Expander) Expand(query string) Expansion {
	queryType := detectQueryType(query)
	keywords := expansionKeywords(query)
	synonyms := e.synonyms(keywords)
	relatedTerms := e.relatedTerms(keywords, queryType)
	domainContext := e.domainContext(queryType, keywords)
	expanded := e.buildExpandedQuery(query, synonyms, relatedTerms, domainContext)

	return Expansion{
		OriginalQuery: query,
		ExpandedQuery: expanded,
		Synonyms:      synonyms,
		RelatedTerms:  relatedTerms,
		QueryType:     queryType,
		DomainContext: domainContext,
		Confidence:    expansionConfidence(query, expanded, len(synonyms), len(relatedTerms)),
	}
}

func detectQueryType(query string) QueryType {
	q := strings.ToLower(query)
	for _, entry := range queryTypePatterns {
		for _, pattern := range entry.patterns {
			if pattern.MatchString(q) {
				return entry.queryType
			}
		}
	}
	return QueryTypeGeneral
}

// expansionKeywords 清理查询并过滤停用词，保留长度大于一的词
func expansionKeywords(query string) []string {
	cleaned := expansionCleanPattern.ReplaceAllString(strings.ToLower(query), " ")

	var keywords []string
	for _, word := range strings.Fields(cleaned) {
		if len([]rune(word)) <= 1 {
			continue
		}
		if _, stop := expansionStopWords[word]; stop {
			continue
		}
		keywords = append(keywords, word)
	}
	return keywords
}

// synonyms 收集关键词的同义词，词条之间支持双向部分匹配
func (e *Expander) synonyms(keywords []string) []string {
	var out []string
	for _, keyword := range keywords {
		for _, entry := range synonymEntries {
			if strings.Contains(keyword, entry.term) || strings.Contains(entry.term, keyword) {
				out = appendUnique(out, entry.synonyms...)
			}
		}
	}
	return out
}

// relatedTerms 按查询类型与关键词补充领域术语
func (e *Expander) relatedTerms(keywords []string, queryType QueryType) []string {
	var out []string

	domains, ok := typeDomains[queryType]
	if !ok {
		domains = []string{"investment"}
	}
	for _, domain := range domains {
		out = appendUnique(out, headStrings(domainTerms[domain], 5)...)
	}

	for _, keyword := range keywords {
		if strings.Contains(keyword, "ai") || strings.Contains(keyword, "人工智能") {
			out = appendUnique(out, headStrings(domainTerms["ai-technology"], 3)...)
		}
		if strings.Contains(keyword, "投资") || strings.Contains(keyword, "investment") {
			out = appendUnique(out, headStrings(domainTerms["investment"], 3)...)
		}
	}
	return out
}

// domainContext 按查询类型给出领域上下文描述，最多五项
func (e *Expander) domainContext(queryType QueryType, keywords []string) []string {
	context, ok := typeContexts[queryType]
	if !ok {
		context = typeContexts[QueryTypeGeneral]
	}
	out := append([]string(nil), context...)

	for _, keyword := range keywords {
		if strings.Contains(strings.ToLower(keyword), "svtr") {
			out = append(out, "SVTR平台特色功能", "AI创投数据追踪")
			break
		}
	}
	return headStrings(out, 5)
}

// buildExpandedQuery 把扩展词汇拼接到原查询后并按词去重
func (e *Expander) buildExpandedQuery(query string, synonyms, relatedTerms, domainContext []string) string {
	var expansions []string
	expansions = append(expansions, headStrings(synonyms, e.maxExpansions*4/10)...)
	expansions = append(expansions, headStrings(relatedTerms, e.maxExpansions*4/10)...)
	expansions = append(expansions, headStrings(domainContext, e.maxExpansions*2/10)...)

	if len(expansions) == 0 {
		return query
	}

	var unique []string
	for _, word := range strings.Fields(query + " " + strings.Join(expansions, " ")) {
		unique = appendUnique(unique, word)
	}
	return strings.Join(unique, " ")
}

// expansionConfidence 根据扩展比例与词汇数量估算置信度
func expansionConfidence(original, expanded string, synonymCount, relatedTermCount int) float64 {
	confidence := 0.5

	originalLen := len([]rune(original))
	expandedLen := len([]rune(expanded))
	if originalLen > 0 {
		ratio := float64(expandedLen) / float64(originalLen)
		if ratio > 1.2 && ratio < 3 {
			confidence += 0.2
		}
	}

	if synonymCount > 2 {
		confidence += 0.2
	}
	if relatedTermCount > 3 {
		confidence += 0.2
	}
	if originalLen < 20 {
		confidence += 0.1
	}

	if confidence > 1.0 {
		confidence = 1.0
	}
	return confidence
}

func appendUnique(list []string, items ...string) []string {
	for _, item := range items {
		if !contains(list, item) {
			list = append(list, item)
		}
	}
	return list
}
