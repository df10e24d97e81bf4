package parser

import (
	"regexp"
	"strings"
)

// bracketTokenRe 方括号占位符，如 [Company Name]、[X]。
// 只认内容为占位描述的短token，不碰Markdown链接 [text](url)。
var bracketTokenRe = regexp.MustCompile(`\[[^\[\]\n]{1,60}\]`)

// markdownLinkRe Markdown链接整体，先行保护
var markdownLinkRe = regexp.MustCompile(`\[[^\[\]\n]+\]\([^()\n]+\)`)

// genericFillerPhrases 模板残留的通用填充短语
var genericFillerPhrases = []string{
	"Hiring Manager Name",
	"Company Name Here",
	"Your Name Here",
	"Insert Company Name",
	"Insert Date",
	"Dear Hiring Manager Name",
	"招聘经理姓名",
	"公司名称待填",
}

// PlaceholderDetector 模板残留检测器。
// 两个入口: 布尔判定用于闸门(缓存命中的产物也要过这道闸门)，
// 剥离变换用于清理最终输出。
type PlaceholderDetector struct {
	fillerPhrases []string
}

// PlaceholderOption 检测器配置选项
type PlaceholderOption func(*PlaceholderDetector)

// WithExtraFillerPhrases 追加自定义填充短语
func WithExtraFillerPhrases(phrases []string) PlaceholderOption {
	return func(d *PlaceholderDetector) {
		d.fillerPhrases = append(d.fillerPhrases, phrases...)
	}
}

// NewPlaceholderDetector 创建检测器
func NewPlaceholderDetector(options ...PlaceholderOption) *PlaceholderDetector {
	d := &PlaceholderDetector{
		fillerPhrases: append([]string(nil), genericFillerPhrases...),
	}
	for _, option := range options {
		option(d)
	}
	return d
}

// HasPlaceholders 判定文本是否含有未填充的模板token
func (d *PlaceholderDetector) HasPlaceholders(text string) bool {
	protected := markdownLinkRe.ReplaceAllString(text, "")
	if bracketTokenRe.MatchString(protected) {
		return true
	}

	lower := strings.ToLower(protected)
	for _, phrase := range d.fillerPhrases {
		if strings.Contains(lower, strings.ToLower(phrase)) {
			return true
		}
	}
	return false
}

// Strip 移除全部占位符出现处，非占位内容逐字保留。
// Markdown链接不受影响。
func (d *PlaceholderDetector) Strip(text string) string {
	// 链接先替换为哨兵，剥离后还原
	links := markdownLinkRe.FindAllString(text, -1)
	for i, link := range links {
		text = strings.Replace(text, link, linkSentinel(i), 1)
	}

	text = bracketTokenRe.ReplaceAllString(text, "")
	for _, phrase := range d.fillerPhrases {
		text = replaceFold(text, phrase)
	}

	for i, link := range links {
		text = strings.Replace(text, linkSentinel(i), link, 1)
	}

	return text
}

func linkSentinel(i int) string {
	return "\x00LNK" + string(rune('A'+i%26)) + "\x00"
}

// replaceFold 忽略大小写地删除phrase的全部出现处
func replaceFold(text string, phrase string) string {
	lowerPhrase := strings.ToLower(phrase)
	for {
		idx := strings.Index(strings.ToLower(text), lowerPhrase)
		if idx == -1 {
			return text
		}
		text = text[:idx] + text[idx+len(phrase):]
	}
}
