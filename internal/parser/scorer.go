package parser

import (
	"regexp"
	"strings"

	"resume-optimizer/internal/types"
)

// 评分维度与各自满分
const (
	categoryContact  = "contact_info"
	categorySections = "section_coverage"
	categoryMetrics  = "quantified_metrics"
	categoryVerbs    = "action_verbs"

	maxContactScore  = 20
	maxSectionsScore = 30
	maxMetricsScore  = 25
	maxVerbsScore    = 25
)

// actionVerbs ATS友好的行为动词表，匹配行首
var actionVerbs = []string{
	"achieved", "architected", "automated", "built", "created", "delivered",
	"designed", "developed", "directed", "drove", "engineered", "established",
	"implemented", "improved", "increased", "launched", "led", "maintained",
	"managed", "optimized", "orchestrated", "owned", "reduced", "refactored",
	"scaled", "shipped", "spearheaded", "streamlined",
	"负责", "主导", "设计", "开发", "实现", "优化", "搭建", "重构", "推动", "提升",
}

// quantifiedRe 量化指标: 数字、百分比、金额
var quantifiedRe = regexp.MustCompile(`\d[\d,.]*\s?%|[$¥€£]\s?\d|\d+\+?\s?(?:x|倍|万|people|users|engineers|ms|qps)|\b\d{2,}\b`)

// bulletLineRe 列表项行
var bulletLineRe = regexp.MustCompile(`^\s*(?:[-*•●·]|\d+\.)\s+`)

// ResumeScorer 规则化的ATS友好度评分器。
// 完全确定性: 同一段文本永远得到相同的分数与拆分，不依赖生成模型。
type ResumeScorer struct{}

// NewResumeScorer 创建评分器
func NewResumeScorer() *ResumeScorer {
	return &ResumeScorer{}
}

// Score 对组装好的简历文本(联系块+正文)评分。
// 各维度得分封顶于其满分，总分是各维度之和并钳制到0-100。
func (s *ResumeScorer) Score(resumeText string) *types.ResumeScore {
	breakdown := map[string]types.CategoryScore{
		categoryContact:  {Score: s.scoreContact(resumeText), Max: maxContactScore},
		categorySections: {Score: s.scoreSections(resumeText), Max: maxSectionsScore},
		categoryMetrics:  {Score: s.scoreMetrics(resumeText), Max: maxMetricsScore},
		categoryVerbs:    {Score: s.scoreVerbs(resumeText), Max: maxVerbsScore},
	}

	total := 0
	for _, cs := range breakdown {
		total += cs.Score
	}
	if total < 0 {
		total = 0
	}
	if total > 100 {
		total = 100
	}

	return &types.ResumeScore{
		Score:     total,
		Grade:     gradeFor(total),
		Breakdown: breakdown,
	}
}

// gradeFor 分数到等级的阶梯函数
func gradeFor(score int) string {
	switch {
	case score >= 85:
		return "A"
	case score >= 70:
		return "B"
	case score >= 55:
		return "C"
	case score >= 40:
		return "D"
	default:
		return "F"
	}
}

// scoreContact 联系方式完整度，邮箱/电话/LinkedIn/姓名行各占一份
func (s *ResumeScorer) scoreContact(text string) int {
	score := 0
	if emailRe.MatchString(text) {
		score += 5
	}
	if hasPhone(text) {
		score += 5
	}
	if linkedinRe.MatchString(text) {
		score += 5
	}
	// 首行存在短的非联系方式文本视为姓名行
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if len(line) <= 40 && !emailRe.MatchString(line) && countDigits(line) < 7 {
			score += 5
		}
		break
	}
	if score > maxContactScore {
		score = maxContactScore
	}
	return score
}

func hasPhone(text string) bool {
	for _, m := range phoneRe.FindAllString(text, -1) {
		d := countDigits(m)
		if d >= 10 && d <= 15 {
			return true
		}
	}
	return false
}

// scoreSections 章节覆盖度，六个核心章节各占一份
func (s *ResumeScorer) scoreSections(text string) int {
	wanted := []types.SectionKey{
		types.SectionSummary, types.SectionExperience, types.SectionEducation,
		types.SectionSkills, types.SectionProjects, types.SectionCertifications,
	}

	found := make(map[types.SectionKey]bool)
	n := NewNormalizer()
	for _, raw := range strings.Split(text, "\n") {
		if key, ok := n.matchSectionHeader(strings.TrimSpace(raw)); ok {
			found[key] = true
		}
	}

	score := 0
	for _, key := range wanted {
		if found[key] {
			score += 5
		}
	}
	if score > maxSectionsScore {
		score = maxSectionsScore
	}
	return score
}

// scoreMetrics 列表项中量化指标的密度
func (s *ResumeScorer) scoreMetrics(text string) int {
	bullets, quantified := 0, 0
	for _, raw := range strings.Split(text, "\n") {
		if !bulletLineRe.MatchString(raw) {
			continue
		}
		bullets++
		if quantifiedRe.MatchString(raw) {
			quantified++
		}
	}

	if bullets == 0 {
		return 0
	}
	return maxMetricsScore * quantified / bullets
}

// scoreVerbs 列表项以行为动词开头的比例
func (s *ResumeScorer) scoreVerbs(text string) int {
	bullets, verbLed := 0, 0
	for _, raw := range strings.Split(text, "\n") {
		if !bulletLineRe.MatchString(raw) {
			continue
		}
		bullets++

		content := strings.ToLower(strings.TrimSpace(bulletLineRe.ReplaceAllString(raw, "")))
		for _, verb := range actionVerbs {
			if strings.HasPrefix(content, strings.ToLower(verb)) {
				verbLed++
				break
			}
		}
	}

	if bullets == 0 {
		return 0
	}
	return maxVerbsScore * verbLed / bullets
}
