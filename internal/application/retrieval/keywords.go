package retrieval

import (
	"regexp"
	"sort"
	"strings"
)

const maxKeywords = 15

// 两种文字的功能词停用表
var stopwords = map[string]struct{}{
	"的": {}, "了": {}, "是": {}, "在": {}, "有": {}, "和": {}, "与": {}, "或": {},
	"吗": {}, "呢": {}, "啊": {}, "吧": {}, "嘛": {}, "你": {}, "我": {}, "他": {},
	"她": {}, "它": {}, "们": {}, "这": {}, "那": {}, "哪": {}, "什么": {}, "怎么": {},
	"为什么": {},
	"the": {}, "a": {}, "an": {}, "is": {}, "are": {}, "am": {}, "was": {}, "were": {},
	"be": {}, "been": {}, "of": {}, "to": {}, "in": {}, "on": {}, "at": {}, "for": {},
	"with": {}, "from": {}, "by": {}, "as": {}, "do": {}, "does": {}, "did": {},
	"can": {}, "could": {}, "will": {}, "would": {},
}

// 有独立含义的单字白名单，其余单字一律丢弃
var meaningfulSingleChars = map[string]struct{}{
	"榜": {}, "库": {},
}

var (
	nonWordPattern     = regexp.MustCompile(`[^\w\x{4e00}-\x{9fa5}]`)
	ideographicPattern = regexp.MustCompile(`[\x{4e00}-\x{9fa5}]+`)
	latinPattern       = regexp.MustCompile(`[a-zA-Z0-9]+`)
)

// ExtractKeywords 从查询中提取带权关键词。
// 中文片段切为 2/3 字滑动词组（4-6 字片段整体保留），
// 英文数字按空格切词；去停用词、去重后按长度降序取前 max 个。
// 纯函数：相同输入产生相同顺序的相同输出。
func ExtractKeywords(text string, max int) []string {
	if max <= 0 {
		max = maxKeywords
	}
	normalized := strings.TrimSpace(nonWordPattern.ReplaceAllString(text, " "))

	ideographicSpans := ideographicPattern.FindAllString(normalized, -1)
	latinWords := latinPattern.FindAllString(normalized, -1)

	keywords := make([]string, 0, 32)

	// 中文：2 字与 3 字词组，4-6 字片段整体保留
	for _, span := range ideographicSpans {
		runes := []rune(span)
		if len(runes) == 1 {
			if _, ok := meaningfulSingleChars[span]; ok {
				keywords = append(keywords, span)
			}
			continue
		}

		for i := 0; i+2 <= len(runes); i++ {
			word := string(runes[i : i+2])
			if _, stop := stopwords[word]; !stop {
				keywords = append(keywords, word)
			}
		}

		for i := 0; i+3 <= len(runes); i++ {
			word := string(runes[i : i+3])
			if _, stop := stopwords[word]; !stop {
				keywords = append(keywords, word)
			}
		}

		if len(runes) >= 4 && len(runes) <= 6 {
			keywords = append(keywords, span)
		}
	}

	// 英文数字：整词，小写
	for _, word := range latinWords {
		lower := strings.ToLower(word)
		if len(lower) <= 1 {
			continue
		}
		if _, stop := stopwords[lower]; stop {
			continue
		}
		keywords = append(keywords, lower)
	}

	// 去重，保持首次出现顺序
	seen := make(map[string]struct{}, len(keywords))
	unique := keywords[:0]
	for _, kw := range keywords {
		if _, ok := seen[kw]; ok {
			continue
		}
		seen[kw] = struct{}{}
		unique = append(unique, kw)
	}

	// 长词优先，等长保持原序
	sort.SliceStable(unique, func(i, j int) bool {
		return len([]rune(unique[i])) > len([]rune(unique[j]))
	})

	if len(unique) > max {
		unique = unique[:max]
	}
	return unique
}
