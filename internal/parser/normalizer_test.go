package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-optimizer/internal/types"
)

const sampleResumeText = `John Smith
john.smith@example.com
+1 415-555-0123
linkedin.com/in/johnsmith

Professional Summary
资深后端工程师，专注于高并发服务。

Work Experience
2019.01 - 2022.01 Example Corp 后端开发

Education
2015-2019 某大学 计算机科学

Skills
Go, MySQL, Redis`

func TestNormalizerExtractsContacts(t *testing.T) {
	n := NewNormalizer()

	profile, err := n.Normalize(sampleResumeText)
	require.NoError(t, err)
	require.NotNil(t, profile)

	assert.Equal(t, "John Smith", profile.Name, "应该从首行识别姓名")
	assert.Equal(t, "john.smith@example.com", profile.Email, "应该识别邮箱")
	assert.Equal(t, "linkedin.com/in/johnsmith", profile.LinkedIn, "应该识别LinkedIn")
	assert.NotEmpty(t, profile.Phone, "应该识别电话号码")
}

func TestNormalizerMapsSectionSynonyms(t *testing.T) {
	n := NewNormalizer()

	profile, err := n.Normalize(sampleResumeText)
	require.NoError(t, err)

	assert.Contains(t, profile.Sections[types.SectionSummary], "资深后端工程师", "Professional Summary应归入概述")
	assert.Contains(t, profile.Sections[types.SectionExperience], "Example Corp", "Work Experience应归入工作经历")
	assert.Contains(t, profile.Sections[types.SectionEducation], "某大学", "Education应归入教育经历")
	assert.Contains(t, profile.Sections[types.SectionSkills], "Go", "Skills应归入技能")
}

func TestNormalizerChineseSectionHeaders(t *testing.T) {
	n := NewNormalizer()

	text := `李四

工作经历
2020年至今 某公司 开发工程师

教育背景
某大学 本科

专业技能
Go语言开发`

	profile, err := n.Normalize(text)
	require.NoError(t, err)

	assert.Contains(t, profile.Sections[types.SectionExperience], "某公司", "中文章节标题应该被识别")
	assert.Contains(t, profile.Sections[types.SectionEducation], "某大学")
	assert.Contains(t, profile.Sections[types.SectionSkills], "Go语言")
}

func TestNormalizerHeaderDecorations(t *testing.T) {
	n := NewNormalizer()

	// markdown前缀和尾随冒号不应影响标题识别
	text := `王五

## Skills:
Go, Kubernetes`

	profile, err := n.Normalize(text)
	require.NoError(t, err)
	assert.Contains(t, profile.Sections[types.SectionSkills], "Kubernetes", "带修饰的标题行应该被识别")
}

func TestNormalizerPreambleGoesToSummary(t *testing.T) {
	n := NewNormalizer()

	text := `赵六
十年经验的架构师，擅长分布式系统。

Experience
2014.01 - 2024.01 某公司`

	profile, err := n.Normalize(text)
	require.NoError(t, err)

	// 姓名行剔除后，首个章节前的剩余文本并入概述
	assert.Contains(t, profile.Sections[types.SectionSummary], "十年经验的架构师", "章节前的正文应并入概述")
	assert.NotContains(t, profile.Sections[types.SectionSummary], "赵六", "姓名行不应混入概述")
}

func TestNormalizerHeaderlessTextGoesToSummary(t *testing.T) {
	n := NewNormalizer()

	// 完全没有可识别章节标题的正文并入概述
	text := "一段无法归类的自由文本，描述了候选人的经历但没有任何标题。"

	profile, err := n.Normalize(text)
	require.NoError(t, err)
	require.Len(t, profile.Sections, 1, "应该只有一个章节")
	assert.Contains(t, profile.Sections[types.SectionSummary], "自由文本", "无标题正文应并入概述")
}

func TestNormalizerFallbackSection(t *testing.T) {
	n := NewNormalizer()

	// 全部内容都是联系方式时，原文落入兜底章节而不是丢失
	text := "someone@example.com"

	profile, err := n.Normalize(text)
	require.NoError(t, err)
	assert.Contains(t, profile.Sections[types.SectionOther], "someone@example.com", "内容不应丢失")
	assert.Equal(t, "someone@example.com", profile.Email)
}

func TestNormalizerRejectsEmptyInput(t *testing.T) {
	n := NewNormalizer()

	_, err := n.Normalize("   \n\t  ")
	require.Error(t, err, "空输入应该返回错误")
}

func TestNormalizerExtraSynonyms(t *testing.T) {
	n := NewNormalizer(WithExtraSynonyms(map[string]types.SectionKey{
		"自我评价": types.SectionSummary,
	}))

	text := `孙七

自我评价
勤奋好学，责任心强。`

	profile, err := n.Normalize(text)
	require.NoError(t, err)
	assert.Contains(t, profile.Sections[types.SectionSummary], "勤奋好学", "自定义同义词应该生效")
}

func TestNormalizerMergesDuplicateSections(t *testing.T) {
	n := NewNormalizer()

	text := `周八

Experience
第一段经历

Work Experience
第二段经历`

	profile, err := n.Normalize(text)
	require.NoError(t, err)

	body := profile.Sections[types.SectionExperience]
	assert.Contains(t, body, "第一段经历", "同义标题的内容应合并")
	assert.Contains(t, body, "第二段经历", "同义标题的内容应合并")
}
