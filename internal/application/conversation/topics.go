package conversation

import (
	"sort"
	"strings"
)

// topicRule 话题归类规则，按声明顺序匹配，类别输出顺序因此稳定
type topicRule struct {
	category string
	patterns []string
}

var topicRules = []topicRule{
	{"AI投资", []string{"ai投资", "ai融资", "ai基金", "ai创投"}},
	{"AI公司", []string{"ai公司", "ai初创", "ai企业", "ai团队"}},
	{"AI技术", []string{"ai技术", "人工智能", "机器学习", "深度学习"}},
	{"投资趋势", []string{"投资趋势", "市场趋势", "行业趋势", "发展趋势"}},
	{"融资轮次", []string{"a轮", "b轮", "c轮", "种子轮", "天使轮"}},
	{"估值分析", []string{"估值", "市值", "价值评估", "投资回报"}},
	{"AI应用", []string{"ai应用", "ai产品", "ai解决方案", "ai平台"}},
}

// ExtractTopics 从消息内容中识别 AI 创投话题类别
func ExtractTopics(content string) []string {
	text := strings.ToLower(content)

	var topics []string
	for _, rule := range topicRules {
		for _, pattern := range rule.patterns {
			if strings.Contains(text, pattern) {
				topics = append(topics, rule.category)
				break
			}
		}
	}
	return topics
}

// mergeTopics 把新话题并入已有列表，去重后保留最近 max 个
func mergeTopics(existing, incoming []string, max int) []string {
	merged := make([]string, 0, len(existing)+len(incoming))
	merged = append(merged, existing...)
	for _, topic := range incoming {
		if !contains(merged, topic) {
			merged = append(merged, topic)
		}
	}
	if max > 0 && len(merged) > max {
		merged = merged[len(merged)-max:]
	}
	return merged
}

// updateInterests 按出现频次重排兴趣，新话题加权计入，保留前 max 个。
// 频次相同的条目保持原有相对顺序。
func updateInterests(interests, topics []string, max int) []string {
	type entry struct {
		name  string
		count int
		order int
	}

	index := make(map[string]*entry)
	entries := make([]*entry, 0, len(interests)+len(topics))

	bump := func(name string, weight int) {
		if e, ok := index[name]; ok {
			e.count += weight
			return
		}
		e := &entry{name: name, count: weight, order: len(entries)}
		index[name] = e
		entries = append(entries, e)
	}

	for _, interest := range interests {
		bump(interest, 1)
	}
	for _, topic := range topics {
		bump(topic, 2)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].order < entries[j].order
	})

	if max > 0 && len(entries) > max {
		entries = entries[:max]
	}
	result := make([]string, len(entries))
	for i, e := range entries {
		result[i] = e.name
	}
	return result
}

func contains(list []string, target string) bool {
	for _, item := range list {
		if item == target {
			return true
		}
	}
	return false
}
