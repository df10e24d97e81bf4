package parser

import (
	"fmt"
	"regexp"
	"strings"

	"resume-optimizer/internal/types"
)

// 联系方式识别的模式集合
var (
	emailRe    = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phoneRe    = regexp.MustCompile(`(?:\+?\d{1,3}[-.\s]?)?(?:\(\d{2,4}\)[-.\s]?)?\d{3,4}[-.\s]?\d{3,4}[-.\s]?\d{0,4}`)
	linkedinRe = regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?linkedin\.com/in/[a-zA-Z0-9\-_%]+`)
	// 形如 "San Francisco, CA" / "上海市" 的地点行
	locationRe = regexp.MustCompile(`(?:^|\s)([A-Z][a-zA-Z]+(?:\s[A-Z][a-zA-Z]+)*,\s*[A-Z]{2})(?:\s|$)|([\p{Han}]{2,6}(?:市|省))`)
)

// sectionSynonyms 章节标题同义词到规范化键的映射，匹配时忽略大小写
var sectionSynonyms = map[string]types.SectionKey{
	"summary":              types.SectionSummary,
	"professional summary": types.SectionSummary,
	"objective":            types.SectionSummary,
	"profile":              types.SectionSummary,
	"about":                types.SectionSummary,
	"个人简介":                 types.SectionSummary,
	"experience":           types.SectionExperience,
	"work experience":      types.SectionExperience,
	"professional experience": types.SectionExperience,
	"employment":              types.SectionExperience,
	"employment history":      types.SectionExperience,
	"work history":            types.SectionExperience,
	"工作经历":                    types.SectionExperience,
	"工作经验":                    types.SectionExperience,
	"education":               types.SectionEducation,
	"academic background":     types.SectionEducation,
	"教育背景":                    types.SectionEducation,
	"教育经历":                    types.SectionEducation,
	"skills":                  types.SectionSkills,
	"technical skills":        types.SectionSkills,
	"core competencies":       types.SectionSkills,
	"技能":                      types.SectionSkills,
	"专业技能":                    types.SectionSkills,
	"projects":                types.SectionProjects,
	"personal projects":       types.SectionProjects,
	"项目经历":                    types.SectionProjects,
	"项目经验":                    types.SectionProjects,
	"certifications":          types.SectionCertifications,
	"certificates":            types.SectionCertifications,
	"licenses":                types.SectionCertifications,
	"证书":                      types.SectionCertifications,
	"awards":                  types.SectionAwards,
	"honors":                  types.SectionAwards,
	"achievements":            types.SectionAwards,
	"获奖情况":                    types.SectionAwards,
	"languages":               types.SectionLanguages,
	"语言能力":                    types.SectionLanguages,
}

// Normalizer 把任意格式的简历文本重塑为规范化画像。
// 匹配规则集中在这里，调用方只依赖Normalize的稳定契约。
type Normalizer struct {
	synonyms map[string]types.SectionKey
}

// NormalizerOption 配置选项
type NormalizerOption func(*Normalizer)

// WithExtraSynonyms 追加章节标题同义词，用于扩展地区特有的写法
func WithExtraSynonyms(extra map[string]types.SectionKey) NormalizerOption {
	return func(n *Normalizer) {
		for k, v := range extra {
			n.synonyms[strings.ToLower(k)] = v
		}
	}
}

// NewNormalizer 创建规范化器
func NewNormalizer(options ...NormalizerOption) *Normalizer {
	n := &Normalizer{
		synonyms: make(map[string]types.SectionKey, len(sectionSynonyms)),
	}
	for k, v := range sectionSynonyms {
		n.synonyms[k] = v
	}
	for _, option := range options {
		option(n)
	}
	return n
}

// Normalize 提取联系方式并按规范化章节划分正文。
// 识别不出任何章节时整个正文落入兜底章节，绝不因排版失败。
func (n *Normalizer) Normalize(text string) (*types.NormalizedProfile, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("输入文本为空")
	}

	profile := &types.NormalizedProfile{
		Sections: make(map[types.SectionKey]string),
	}

	n.extractContacts(text, profile)

	lines := strings.Split(text, "\n")
	current := types.SectionKey("")
	bodies := make(map[types.SectionKey][]string)
	var preamble []string

	for _, rawLine := range lines {
		line := strings.TrimSpace(rawLine)

		if key, ok := n.matchSectionHeader(line); ok {
			current = key
			continue
		}

		if current == "" {
			if line != "" {
				preamble = append(preamble, line)
			}
			continue
		}
		bodies[current] = append(bodies[current], rawLine)
	}

	for key, body := range bodies {
		content := strings.TrimSpace(strings.Join(body, "\n"))
		if content == "" {
			continue
		}
		if existing, ok := profile.Sections[key]; ok {
			profile.Sections[key] = existing + "\n" + content
		} else {
			profile.Sections[key] = content
		}
	}

	// 首个章节标题之前的内容: 姓名与联系方式行剔除后，
	// 剩余文本并入概述而不是丢弃
	n.absorbPreamble(preamble, profile)

	// 完全没有识别出章节时，全文作为兜底章节
	if len(profile.Sections) == 0 {
		profile.Sections[types.SectionOther] = strings.TrimSpace(text)
	}

	return profile, nil
}

// matchSectionHeader 判断一行是否为章节标题。
// 标题行要求较短，允许markdown前缀与尾随冒号。
func (n *Normalizer) matchSectionHeader(line string) (types.SectionKey, bool) {
	if line == "" || len(line) > 60 {
		return "", false
	}

	candidate := strings.TrimLeft(line, "#*- \t")
	candidate = strings.TrimRight(candidate, ":： \t")
	candidate = strings.ToLower(strings.TrimSpace(candidate))
	if candidate == "" {
		return "", false
	}

	key, ok := n.synonyms[candidate]
	return key, ok
}

// extractContacts 在全文上做联系方式模式匹配
func (n *Normalizer) extractContacts(text string, profile *types.NormalizedProfile) {
	if m := emailRe.FindString(text); m != "" {
		profile.Email = m
	}
	if m := linkedinRe.FindString(text); m != "" {
		profile.LinkedIn = m
	}
	if m := locationRe.FindString(text); m != "" {
		profile.Location = strings.TrimSpace(m)
	}

	// 电话号码容易和日期/邮编混淆，只认足够长的数字串
	for _, m := range phoneRe.FindAllString(text, -1) {
		digits := countDigits(m)
		if digits >= 10 && digits <= 15 {
			profile.Phone = strings.TrimSpace(m)
			break
		}
	}

	// 姓名启发: 第一条非空且不含联系方式的短行
	for _, rawLine := range strings.Split(text, "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" {
			continue
		}
		if len(line) > 40 ||
			emailRe.MatchString(line) ||
			linkedinRe.MatchString(line) ||
			countDigits(line) >= 7 {
			break
		}
		profile.Name = line
		break
	}
}

// absorbPreamble 把首个章节之前的剩余文本并入概述
func (n *Normalizer) absorbPreamble(preamble []string, profile *types.NormalizedProfile) {
	var rest []string
	for _, line := range preamble {
		if line == profile.Name ||
			emailRe.MatchString(line) ||
			linkedinRe.MatchString(line) ||
			(profile.Phone != "" && strings.Contains(line, profile.Phone)) {
			continue
		}
		rest = append(rest, line)
	}

	content := strings.TrimSpace(strings.Join(rest, "\n"))
	if content == "" {
		return
	}
	if existing, ok := profile.Sections[types.SectionSummary]; ok {
		profile.Sections[types.SectionSummary] = content + "\n" + existing
	} else {
		profile.Sections[types.SectionSummary] = content
	}
}

func countDigits(s string) int {
	count := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			count++
		}
	}
	return count
}
