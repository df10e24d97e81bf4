package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 固定参照时刻，保证开放区间的计算结果稳定
var testNow = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

func TestExperienceCalculatorSingleRange(t *testing.T) {
	c := NewExperienceCalculator(WithReferenceTime(testNow))

	estimate := c.Calculate("软件工程师 2019.01 - 2021.01 负责后端开发")
	require.NotNil(t, estimate)
	assert.InDelta(t, 2.0, estimate.TotalYears, 0.1, "两年任职应该算出约2年经验")
}

func TestExperienceCalculatorMergesOverlappingRanges(t *testing.T) {
	c := NewExperienceCalculator(WithReferenceTime(testNow))

	// 两段任职重叠一年，并集是三年而不是四年
	text := `公司A 后端工程师 2019.01 - 2021.01
公司B 兼职顾问 2020.01 - 2022.01`

	estimate := c.Calculate(text)
	require.NotNil(t, estimate)
	assert.InDelta(t, 3.0, estimate.TotalYears, 0.1, "重叠区间应该取并集")
	assert.Contains(t, estimate.Details, "合并重叠后", "说明中应体现合并过程")
}

func TestExperienceCalculatorDisjointRanges(t *testing.T) {
	c := NewExperienceCalculator(WithReferenceTime(testNow))

	text := `2016.01 - 2017.01 第一份工作
2019.01 - 2020.01 第二份工作`

	estimate := c.Calculate(text)
	assert.InDelta(t, 2.0, estimate.TotalYears, 0.1, "不相邻的区间应该分别累加")
}

func TestExperienceCalculatorOpenEndedRange(t *testing.T) {
	c := NewExperienceCalculator(WithReferenceTime(testNow))

	for _, text := range []string{
		"高级工程师 2023年1月 - 至今",
		"Senior Engineer Jan 2023 - Present",
		"Engineer 01/2023 - Now",
	} {
		estimate := c.Calculate(text)
		assert.InDelta(t, 2.0, estimate.TotalYears, 0.1, "开放区间 %q 应该算到参照时刻", text)
	}
}

func TestExperienceCalculatorMonthNameFormat(t *testing.T) {
	c := NewExperienceCalculator(WithReferenceTime(testNow))

	estimate := c.Calculate("Backend Engineer Jan 2020 - Jul 2021 at Example Corp")
	assert.InDelta(t, 1.5, estimate.TotalYears, 0.1, "英文月份写法应该被识别")
}

func TestExperienceCalculatorNoDatesFound(t *testing.T) {
	c := NewExperienceCalculator(WithReferenceTime(testNow))

	estimate := c.Calculate("这段文本没有任何日期区间")
	require.NotNil(t, estimate)
	assert.Equal(t, 0.0, estimate.TotalYears, "没有日期时年限应为0")
	assert.Contains(t, estimate.Details, "未识别到任何日期区间")
	assert.Empty(t, estimate.Constraints, "没有日期时不应产出约束")
}

func TestExperienceCalculatorIgnoresInvertedRange(t *testing.T) {
	c := NewExperienceCalculator(WithReferenceTime(testNow))

	// 结束早于开始的区间视为噪声
	estimate := c.Calculate("2021.01 - 2019.01")
	assert.Equal(t, 0.0, estimate.TotalYears, "倒置的区间应该被忽略")
}

func TestExperienceConstraintsForJuniorCandidate(t *testing.T) {
	c := NewExperienceCalculator(WithReferenceTime(testNow))

	estimate := c.Calculate("实习生 2024.06 - 至今")
	require.NotEmpty(t, estimate.Constraints)

	joined := ""
	for _, constraint := range estimate.Constraints {
		joined += constraint + "\n"
	}
	assert.Contains(t, joined, "不得夸大", "任何年限都应带防夸大约束")
	assert.Contains(t, joined, "Senior", "三年以下应禁用资深措辞")
	assert.Contains(t, joined, "初级", "一年以下应定位为初级候选人")
}
