package tracing

import (
	"regexp"
	"strings"
)

// 简历文本进Span属性前的长度上限
const maxResumeContentLen = 150

// 邮箱与电话在追踪属性里必须脱敏
var (
	emailRe = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phoneRe = regexp.MustCompile(`(?:\+?\d{1,3}[\s\-]?)?(?:\d[\s\-]?){7,14}\d`)
)

// TruncateString 截断字符串，保留首尾、中间用省略号连接
func TruncateString(s string, maxLength int) string {
	runes := []rune(s)
	if len(runes) <= maxLength {
		return s
	}

	if maxLength <= 3 {
		return string(runes[:maxLength])
	}

	half := (maxLength - 3) / 2
	if half < 1 {
		half = 1
	}
	return string(runes[:half]) + "..." + string(runes[len(runes)-half:])
}

// MaskPII 对单个敏感值做掩码处理
func MaskPII(value string) string {
	if value == "" {
		return ""
	}

	runes := []rune(value)
	length := len(runes)

	if length <= 1 {
		return "*"
	}
	// "张三" -> "张*"，"王小明" -> "王*明"
	if length <= 4 {
		if length == 2 {
			return string(runes[0:1]) + "*"
		}
		return string(runes[0:1]) + strings.Repeat("*", length-2) + string(runes[length-1:])
	}

	// 邮箱、手机号等保留前后各2位
	// "myemail@example.com" -> "my***************om"
	return string(runes[0:2]) + strings.Repeat("*", length-4) + string(runes[length-2:])
}

// SafeResumeContent 简历片段进追踪属性前先掩码联系方式再截断。
// 内容校验告警携带的claim可能整段引用联系块。
func SafeResumeContent(content string) string {
	content = emailRe.ReplaceAllStringFunc(content, MaskPII)
	content = phoneRe.ReplaceAllStringFunc(content, MaskPII)
	return TruncateString(content, maxResumeContentLen)
}
