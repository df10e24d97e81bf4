package parser

import (
	"strings"
	"unicode"
)

// GibberishDetector 乱码启发式检测器。
// 无法解码的图片型PDF经常被提取成大段重复字符，
// 用双阈值(单行占比+坏行占比)判定，避免把日期、符号行等正常内容误杀。
type GibberishDetector struct {
	// 低于该长度的文本跳过检测，短文本无法可靠判定
	minDocLength int
	// 单字符占比超过该值的行视为坏行
	lineCharRatio float64
	// 少于该字母数字数的行不参与判定
	minLineChars int
	// 坏行占比超过该值则整体判废
	badLineRatio float64
}

// GibberishOption 检测器配置选项
type GibberishOption func(*GibberishDetector)

// WithGibberishThresholds 覆盖全部启发式阈值，非正值保持默认
func WithGibberishThresholds(minDocLength int, lineCharRatio float64, minLineChars int, badLineRatio float64) GibberishOption {
	return func(d *GibberishDetector) {
		if minDocLength > 0 {
			d.minDocLength = minDocLength
		}
		if lineCharRatio > 0 {
			d.lineCharRatio = lineCharRatio
		}
		if minLineChars > 0 {
			d.minLineChars = minLineChars
		}
		if badLineRatio > 0 {
			d.badLineRatio = badLineRatio
		}
	}
}

// NewGibberishDetector 创建乱码检测器，默认阈值刻意宽松
func NewGibberishDetector(options ...GibberishOption) *GibberishDetector {
	d := &GibberishDetector{
		minDocLength:  100,
		lineCharRatio: 0.9,
		minLineChars:  5,
		badLineRatio:  0.9,
	}
	for _, option := range options {
		option(d)
	}
	return d
}

// IsGibberish 判定整段文本是否为乱码。无副作用。
func (d *GibberishDetector) IsGibberish(text string) bool {
	if len(text) < d.minDocLength {
		return false
	}

	var total, bad int
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		total++
		if d.isVeryBadLine(line) {
			bad++
		}
	}

	if total == 0 {
		return false
	}
	return float64(bad)/float64(total) > d.badLineRatio
}

// isVeryBadLine 单行判定: 某一个字符占该行字母数字内容的
// 比例超过阈值，且行内字母数字数量足够多
func (d *GibberishDetector) isVeryBadLine(line string) bool {
	counts := make(map[rune]int)
	alnum := 0

	for _, r := range line {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			alnum++
			counts[r]++
		}
	}

	if alnum <= d.minLineChars {
		return false
	}

	maxCount := 0
	for _, c := range counts {
		if c > maxCount {
			maxCount = c
		}
	}

	return float64(maxCount) > d.lineCharRatio*float64(alnum)
}
