package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasPlaceholdersDetectsBracketTokens(t *testing.T) {
	d := NewPlaceholderDetector()

	assert.True(t, d.HasPlaceholders("Dear [Hiring Manager],"), "方括号占位符应该被检出")
	assert.True(t, d.HasPlaceholders("我在[公司名称]工作了[X]年"), "中文方括号占位符应该被检出")
	assert.False(t, d.HasPlaceholders("这是一段没有占位符的正常文本"), "正常文本不应被误判")
}

func TestHasPlaceholdersIgnoresMarkdownLinks(t *testing.T) {
	d := NewPlaceholderDetector()

	text := "项目主页: [GitHub](https://github.com/example/project)"
	assert.False(t, d.HasPlaceholders(text), "Markdown链接不应被当作占位符")

	// 链接和真实占位符并存时仍要检出占位符
	mixed := "主页: [GitHub](https://github.com/example) 公司: [Company Name]"
	assert.True(t, d.HasPlaceholders(mixed), "链接不应掩盖真实的占位符")
}

func TestHasPlaceholdersDetectsFillerPhrases(t *testing.T) {
	d := NewPlaceholderDetector()

	assert.True(t, d.HasPlaceholders("Dear HIRING MANAGER NAME,"), "填充短语匹配应该忽略大小写")
	assert.True(t, d.HasPlaceholders("尊敬的招聘经理姓名:"), "中文填充短语应该被检出")
}

func TestHasPlaceholdersWithExtraPhrases(t *testing.T) {
	d := NewPlaceholderDetector(WithExtraFillerPhrases([]string{"自定义占位短语"}))

	assert.True(t, d.HasPlaceholders("开头 自定义占位短语 结尾"), "自定义填充短语应该生效")
}

func TestStripRemovesPlaceholdersKeepsContent(t *testing.T) {
	d := NewPlaceholderDetector()

	text := "我在[Company Name]负责后端开发，提升了性能。"
	stripped := d.Strip(text)

	assert.NotContains(t, stripped, "[Company Name]", "占位符应该被移除")
	assert.Contains(t, stripped, "负责后端开发", "非占位内容应该逐字保留")
	assert.Contains(t, stripped, "提升了性能", "非占位内容应该逐字保留")
	assert.False(t, d.HasPlaceholders(stripped), "剥离后的文本不应再含占位符")
}

func TestStripPreservesMarkdownLinks(t *testing.T) {
	d := NewPlaceholderDetector()

	text := "主页: [GitHub](https://github.com/example) 公司: [Insert Company Name]"
	stripped := d.Strip(text)

	assert.Contains(t, stripped, "[GitHub](https://github.com/example)", "Markdown链接应该原样保留")
	assert.NotContains(t, stripped, "Insert Company Name", "占位短语应该被移除")
}

func TestStripRemovesPhrasesCaseInsensitively(t *testing.T) {
	d := NewPlaceholderDetector()

	stripped := d.Strip("Dear hiring manager name, 你好")
	assert.NotContains(t, stripped, "hiring manager name", "填充短语剥离应该忽略大小写")
	assert.Contains(t, stripped, "你好", "其余内容应该保留")
}

func TestStripNoOpOnCleanText(t *testing.T) {
	d := NewPlaceholderDetector()

	clean := "这是一段干净的文本，没有任何占位符。"
	assert.Equal(t, clean, d.Strip(clean), "无占位符的文本应该原样返回")
}
