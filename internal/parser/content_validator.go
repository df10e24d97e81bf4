package parser

import (
	"regexp"
	"strings"

	"resume-optimizer/internal/types"
)

// quantClaimRe 量化表述: 百分比、金额、带单位的数字
var quantClaimRe = regexp.MustCompile(`(?:[$¥€£]\s?\d[\d,.]*[KkMmBb]?|\d[\d,.]*\s?%|\d[\d,.]*\+?\s?(?:x|倍|万|亿))`)

// entityCandidateRe 候选实体: 连续的大写开头词组(公司名、产品名)
var entityCandidateRe = regexp.MustCompile(`\b[A-Z][a-zA-Z&.]+(?:\s+[A-Z][a-zA-Z&.]+){0,3}\b`)

// ContentValidator 幻觉防护的事后校验。
// 对比生成文本与源简历，找出无法溯源的断言。输出只是告警:
// 记录到日志供观测，不回滚生成结果。
type ContentValidator struct {
	maxWarnings int
}

// ContentValidatorOption 配置选项
type ContentValidatorOption func(*ContentValidator)

// WithMaxWarnings 设置告警数量上限
func WithMaxWarnings(n int) ContentValidatorOption {
	return func(v *ContentValidator) {
		if n > 0 {
			v.maxWarnings = n
		}
	}
}

// NewContentValidator 创建内容校验器
func NewContentValidator(options ...ContentValidatorOption) *ContentValidator {
	v := &ContentValidator{maxWarnings: 20}
	for _, option := range options {
		option(v)
	}
	return v
}

// Validate 找出生成文本中无法在源文本溯源的内容。
// source应传入规范化后的简历全文(加上岗位描述，岗位关键词注入是合法的)。
func (v *ContentValidator) Validate(generated string, source string) []types.ContentWarning {
	if strings.TrimSpace(generated) == "" {
		return nil
	}

	lowerSource := strings.ToLower(source)
	var warnings []types.ContentWarning

	appendWarning := func(field, claim, reason string) bool {
		warnings = append(warnings, types.ContentWarning{
			Field:  field,
			Claim:  claim,
			Reason: reason,
		})
		return len(warnings) < v.maxWarnings
	}

	// 量化断言: 百分比和金额最容易被模型凭空编出来
	seen := make(map[string]bool)
	for _, claim := range quantClaimRe.FindAllString(generated, -1) {
		normalized := normalizeClaim(claim)
		if seen[normalized] {
			continue
		}
		seen[normalized] = true
		if !strings.Contains(normalizeClaim(source), normalized) {
			if !appendWarning("metrics", claim, "量化数据在源简历中不存在") {
				return warnings
			}
		}
	}

	// 技能词: 生成文本声称但源文本从未出现的技术栈
	for _, term := range knownTechTerms {
		lt := strings.ToLower(term)
		if countTermOccurrences(strings.ToLower(generated), lt) == 0 {
			continue
		}
		if countTermOccurrences(lowerSource, lt) == 0 {
			if !appendWarning("skills", term, "技能在源简历中不存在") {
				return warnings
			}
		}
	}

	// 实体词组: 疑似公司/产品名但源文本中找不到
	for _, entity := range entityCandidateRe.FindAllString(generated, -1) {
		if len(strings.Fields(entity)) < 2 {
			continue
		}
		key := strings.ToLower(entity)
		if seen[key] || strings.Contains(lowerSource, key) {
			continue
		}
		seen[key] = true
		if !appendWarning("entities", entity, "实体名称在源简历中不存在") {
			return warnings
		}
	}

	return warnings
}

// normalizeClaim 去掉分隔噪音后比较量化断言
func normalizeClaim(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")
	return s
}
