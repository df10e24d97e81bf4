package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGibberishDetectorFlagsRepeatedCharacters(t *testing.T) {
	d := NewGibberishDetector()

	// 图片型PDF被强行提取后常见的重复字符输出
	lines := make([]string, 0, 15)
	for i := 0; i < 15; i++ {
		lines = append(lines, strings.Repeat("a", 12))
	}
	text := strings.Join(lines, "\n")

	assert.True(t, d.IsGibberish(text), "大段重复字符应该被判定为乱码")
}

func TestGibberishDetectorPassesNormalResume(t *testing.T) {
	d := NewGibberishDetector()

	text := `张三
软件工程师，拥有五年后端开发经验。
工作经历
2019年至今 在某互联网公司负责订单系统的设计与开发。
主导了核心服务的微服务化改造，接口平均延迟下降40%。
教育背景
2015-2019 某大学 计算机科学与技术 本科
技能
Go, MySQL, Redis, Kubernetes, 分布式系统设计`

	assert.False(t, d.IsGibberish(text), "正常的简历文本不应被判定为乱码")
}

func TestGibberishDetectorSkipsShortText(t *testing.T) {
	d := NewGibberishDetector()

	// 低于长度阈值的文本无法可靠判定，直接放行
	assert.False(t, d.IsGibberish("aaaaaaaa"), "短文本应该跳过检测")
	assert.False(t, d.IsGibberish(""), "空文本应该跳过检测")
}

func TestGibberishDetectorToleratesFewBadLines(t *testing.T) {
	d := NewGibberishDetector()

	// 一行分隔线混在正常内容里不应触发整体判废
	text := `这是一份完全正常的简历文本，有足够的长度参与检测。
xxxxxxxxxxxx
工作经历部分描述了候选人在多家公司的任职情况。
教育背景部分列出了学历信息和毕业院校。
技能部分包含多项编程语言和工具。`

	assert.False(t, d.IsGibberish(text), "少量坏行不应导致整体判废")
}

func TestGibberishDetectorCustomThresholds(t *testing.T) {
	// 调低文档长度阈值后，短的重复文本也会被检出
	d := NewGibberishDetector(WithGibberishThresholds(10, 0.9, 5, 0.5))

	text := "bbbbbbbbbb\nbbbbbbbbbb"
	assert.True(t, d.IsGibberish(text), "自定义阈值应该生效")

	// 非正值参数保持默认，不会把阈值清零
	d2 := NewGibberishDetector(WithGibberishThresholds(-1, 0, 0, 0))
	assert.False(t, d2.IsGibberish("cccccccc"), "非法阈值参数应该保持默认行为")
}
