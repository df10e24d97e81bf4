package parser

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"resume-optimizer/internal/types"
)

var monthNames = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

const (
	monthToken = `(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Sept|Oct|Nov|Dec)[a-z]*\.?`
	yearToken  = `(?:19|20)\d{2}`
)

// dateToken 支持的单个日期写法: "Jan 2020"、"2020.01"、"2020年1月"、"01/2020"、"2020"
var dateToken = fmt.Sprintf(`(?:%s\s+%s|%s[年./-]\d{1,2}月?|\d{1,2}/%s|%s)`,
	monthToken, yearToken, yearToken, yearToken, yearToken)

// openEndToken 进行中的开放区间结束写法
const openEndToken = `(?:Present|Current|Now|至今|现在)`

// dateRangeRe 完整的日期区间
var dateRangeRe = regexp.MustCompile(fmt.Sprintf(`(?i)(%s)\s*(?:-|–|—|~|to|至)\s*(%s|%s)`,
	dateToken, dateToken, openEndToken))

var monthNameRe = regexp.MustCompile(fmt.Sprintf(`(?i)(%s)\s+(%s)`, monthToken, yearToken))
var yearMonthRe = regexp.MustCompile(fmt.Sprintf(`(%s)[年./-](\d{1,2})`, yearToken))
var monthYearRe = regexp.MustCompile(fmt.Sprintf(`(\d{1,2})/(%s)`, yearToken))
var bareYearRe = regexp.MustCompile(yearToken)

// span 半开时间区间 [start, end)
type span struct {
	start time.Time
	end   time.Time
}

// ExperienceCalculator 从经历章节的日期区间推导总经验年限。
// 重叠的任职区间取并集，不重复计入。结果在生成调用之前算出，
// 作为事实锚点注入提示词，防止生成阶段夸大资历。
type ExperienceCalculator struct {
	// "Present"的参照时刻，测试中可注入固定值
	now time.Time
}

// ExperienceOption 计算器配置选项
type ExperienceOption func(*ExperienceCalculator)

// WithReferenceTime 固定开放区间的参照时刻
func WithReferenceTime(t time.Time) ExperienceOption {
	return func(c *ExperienceCalculator) {
		c.now = t
	}
}

// NewExperienceCalculator 创建经验年限计算器
func NewExperienceCalculator(options ...ExperienceOption) *ExperienceCalculator {
	c := &ExperienceCalculator{now: time.Now()}
	for _, option := range options {
		option(c)
	}
	return c
}

// Calculate 扫描经历文本中的日期区间并汇总。
// 找不到任何区间时返回零年限与空约束，不报错。
func (c *ExperienceCalculator) Calculate(experienceText string) *types.ExperienceEstimate {
	spans := c.collectSpans(experienceText)
	if len(spans) == 0 {
		return &types.ExperienceEstimate{
			TotalYears: 0,
			Details:    "未识别到任何日期区间",
		}
	}

	merged := mergeSpans(spans)

	var totalMonths float64
	for _, s := range merged {
		totalMonths += s.end.Sub(s.start).Hours() / 24 / 30.44
	}
	totalYears := math.Round(totalMonths/12*10) / 10
	if totalYears < 0 {
		totalYears = 0
	}

	details := fmt.Sprintf("识别到%d段日期区间，合并重叠后为%d段，合计约%.1f年",
		len(spans), len(merged), totalYears)

	return &types.ExperienceEstimate{
		TotalYears:  totalYears,
		Details:     details,
		Constraints: buildConstraints(totalYears),
	}
}

// buildConstraints 依据年限产出生成阶段的硬约束
func buildConstraints(totalYears float64) []string {
	constraints := []string{
		fmt.Sprintf("总经验年限必须表述为%.1f年，不得夸大", totalYears),
	}
	if totalYears < 3 {
		constraints = append(constraints, "不得使用Senior、资深、专家等资历措辞")
	}
	if totalYears < 1 {
		constraints = append(constraints, "定位为初级/入门级候选人，不得虚构管理经验")
	}
	return constraints
}

// collectSpans 扫描全部日期区间
func (c *ExperienceCalculator) collectSpans(text string) []span {
	var spans []span
	for _, m := range dateRangeRe.FindAllStringSubmatch(text, -1) {
		start, ok := c.parseDate(m[1])
		if !ok {
			continue
		}

		var end time.Time
		if isOpenEnd(m[2]) {
			end = c.now
		} else {
			end, ok = c.parseDate(m[2])
			if !ok {
				continue
			}
		}

		if !end.After(start) {
			continue
		}
		spans = append(spans, span{start: start, end: end})
	}
	return spans
}

var openEndRe = regexp.MustCompile(`(?i)^` + openEndToken + `$`)

func isOpenEnd(token string) bool {
	return openEndRe.MatchString(strings.TrimSpace(token))
}

// parseDate 解析单个日期token，缺失月份按1月处理
func (c *ExperienceCalculator) parseDate(token string) (time.Time, bool) {
	token = strings.TrimSpace(token)

	if m := monthNameRe.FindStringSubmatch(token); m != nil {
		name := strings.ToLower(m[1])
		if len(name) > 3 {
			name = name[:3]
		}
		month, ok := monthNames[name]
		if !ok {
			return time.Time{}, false
		}
		year, _ := strconv.Atoi(m[2])
		return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC), true
	}

	if m := yearMonthRe.FindStringSubmatch(token); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(strings.TrimSuffix(m[2], "月"))
		if month < 1 || month > 12 {
			return time.Time{}, false
		}
		return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC), true
	}

	if m := monthYearRe.FindStringSubmatch(token); m != nil {
		month, _ := strconv.Atoi(m[1])
		year, _ := strconv.Atoi(m[2])
		if month < 1 || month > 12 {
			return time.Time{}, false
		}
		return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC), true
	}

	if m := bareYearRe.FindString(token); m != "" {
		year, _ := strconv.Atoi(m)
		return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC), true
	}

	return time.Time{}, false
}

// mergeSpans 按起点排序后合并重叠区间
func mergeSpans(spans []span) []span {
	sorted := append([]span(nil), spans...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].start.Before(sorted[j].start)
	})

	merged := []span{sorted[0]}
	for _, s := range sorted[1:] {
		last := &merged[len(merged)-1]
		if !s.start.After(last.end) {
			if s.end.After(last.end) {
				last.end = s.end
			}
			continue
		}
		merged = append(merged, s)
	}
	return merged
}
