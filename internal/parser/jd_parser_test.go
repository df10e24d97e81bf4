package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleJDText = `Senior Backend Engineer - Acme Corp (Remote)
We are looking for an engineer with strong Python and Kubernetes experience.
Python is our primary language. Experience with Docker is a plus.
Requirements: 5+ years of experience, fluency in Go or Python.`

func TestExtractKeywordsOrdersByFrequency(t *testing.T) {
	p := NewJDParser(nil)

	keywords := p.ExtractKeywords(sampleJDText)
	require.NotEmpty(t, keywords, "应该提取到关键词")

	// Python出现3次，应排在只出现1次的词之前
	assert.Equal(t, "Python", keywords[0], "高频词应排在最前")
	assert.Contains(t, keywords, "Kubernetes")
	assert.Contains(t, keywords, "Docker")
	assert.Contains(t, keywords, "Go")
}

func TestExtractKeywordsIsDeterministic(t *testing.T) {
	p := NewJDParser(nil)

	first := p.ExtractKeywords(sampleJDText)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, p.ExtractKeywords(sampleJDText), "相同输入必须得到相同的关键词列表")
	}
}

func TestExtractKeywordsWordBoundary(t *testing.T) {
	p := NewJDParser(nil)

	// "Golang教程"里的go不应按子串命中
	keywords := p.ExtractKeywords("We use Django for web development.")
	assert.Contains(t, keywords, "Django", "应该识别Django")
	assert.NotContains(t, keywords, "Go", "Django中的子串不应命中Go")
	assert.NotContains(t, keywords, "Java", "JavaScript中的子串不应命中Java")
}

func TestExtractKeywordsEmptyInput(t *testing.T) {
	p := NewJDParser(nil)

	assert.Nil(t, p.ExtractKeywords(""), "空输入应返回nil")
	assert.Nil(t, p.ExtractKeywords("   \n  "), "空白输入应返回nil")
}

func TestExtractKeywordsCapitalizedFallback(t *testing.T) {
	p := NewJDParser(nil)

	// 词表外的专有名词出现两次以上才补充
	text := `We are building Snowflake pipelines. Snowflake experience required.
One mention of Tableau only.`

	keywords := p.ExtractKeywords(text)
	assert.Contains(t, keywords, "Snowflake", "高频专有名词应该被补充")
	assert.NotContains(t, keywords, "Tableau", "只出现一次的专有名词不应补充")
}

func TestDedupOrdered(t *testing.T) {
	out := dedupOrdered([]string{"Python", "python", " Kubernetes ", "Go", "PYTHON", ""})
	assert.Equal(t, []string{"Python", " Kubernetes ", "Go"}, out, "应该保序去重并忽略大小写")
}
