package parser

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	einoschema "github.com/cloudwego/eino/schema"

	"resume-optimizer/internal/types"
)

// cleanerSystemPrompt OCR残留修复的系统提示词
const cleanerSystemPrompt = `你是一个专业的OCR文本修复专家。你将收到一段从简历中提取的文本，
其中可能包含OCR识别残留的损坏: 被拆开的单词、字形误识、多余的空格和断行。

核心任务:
1. 重新拼合被拆散的单词，如 "T e c h n o l o g y" -> "Technology"。
2. 修复常见字形误识，如 "rn"被识别为"m"、数字0与字母O混淆等，依据上下文判断。
3. 合并被错误断开的行，保留有意义的段落与列表结构。
4. 保持原文含义与信息不变: 不增删事实、不改写措辞、不翻译。

重要指令:
- 只做字符层面的修复，不做任何内容润色。
- 无法确定的内容保持原样，请勿编造。
- 直接输出修复后的文本，不要包含任何解释。

以下是一个示例:
输入:
"""
S o f t w a r e  Engineer
Led tearn of 5 engin-
eers to ship the billing systern.
"""
输出:
Software Engineer
Led team of 5 engineers to ship the billing system.`

// ResumeCleaner AI文本清洗器，修复规则化清理漏掉的OCR损坏。
// 纯增强步骤: 补全调用因任何原因失败时原样放行输入，绝不中断流水线。
type ResumeCleaner struct {
	llmModel   model.ToolCallingChatModel
	maxRetries int
	timeout    time.Duration
	logger     *log.Logger
}

// CleanerOption 清洗器配置选项
type CleanerOption func(*ResumeCleaner)

// WithCleanerRetries 设置瞬时错误最大重试次数
func WithCleanerRetries(n int) CleanerOption {
	return func(c *ResumeCleaner) {
		c.maxRetries = n
	}
}

// WithCleanerTimeout 设置单次调用超时
func WithCleanerTimeout(d time.Duration) CleanerOption {
	return func(c *ResumeCleaner) {
		c.timeout = d
	}
}

// WithCleanerLogger 配置自定义日志记录器
func WithCleanerLogger(logger *log.Logger) CleanerOption {
	return func(c *ResumeCleaner) {
		c.logger = logger
	}
}

// NewResumeCleaner 创建AI清洗器
func NewResumeCleaner(llmModel model.ToolCallingChatModel, options ...CleanerOption) *ResumeCleaner {
	c := &ResumeCleaner{
		llmModel:   llmModel,
		maxRetries: 1,
		timeout:    60 * time.Second,
		logger:     log.New(io.Discard, "", 0),
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// CleanText 修复一段文本，失败时返回原文
func (c *ResumeCleaner) CleanText(ctx context.Context, text string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return text
	}

	messages := []*einoschema.Message{
		{Role: einoschema.System, Content: cleanerSystemPrompt},
		{Role: einoschema.User, Content: trimmed},
	}

	response, err := generateWithRetry(ctx, c.llmModel, messages, c.maxRetries, c.timeout, c.logger)
	if err != nil {
		c.logger.Printf("AI清洗失败，放行原文: %v", err)
		return text
	}

	cleaned := strings.TrimSpace(response.Content)
	if cleaned == "" {
		c.logger.Printf("AI清洗返回空内容，放行原文")
		return text
	}

	// 修复只应做字符层面的改动，体量剧烈变化说明模型跑偏了
	if len(cleaned) < len(trimmed)/2 || len(cleaned) > len(trimmed)*2 {
		c.logger.Printf("AI清洗结果长度异常 (%d -> %d)，放行原文", len(trimmed), len(cleaned))
		return text
	}

	return cleaned
}

// CleanProfile 对画像的各章节做文本级修复，返回修复后的副本。
// 只改章节正文，不改联系方式字段和章节结构。
func (c *ResumeCleaner) CleanProfile(ctx context.Context, profile *types.NormalizedProfile) *types.NormalizedProfile {
	if profile == nil || len(profile.Sections) == 0 {
		return profile
	}

	cleaned := *profile
	cleaned.Sections = make(map[types.SectionKey]string, len(profile.Sections))

	// 各章节拼成一次调用，块间用分隔符定位，减少补全往返
	keys := make([]types.SectionKey, 0, len(profile.Sections))
	var sb strings.Builder
	for _, key := range sectionOrderForCleaning() {
		body, ok := profile.Sections[key]
		if !ok || strings.TrimSpace(body) == "" {
			continue
		}
		keys = append(keys, key)
		fmt.Fprintf(&sb, "<<<%s>>>\n%s\n", key, body)
	}

	if len(keys) == 0 {
		return profile
	}

	repaired := c.CleanText(ctx, sb.String())
	parts := splitCleanedSections(repaired, keys)

	for key, body := range profile.Sections {
		if fixed, ok := parts[key]; ok && strings.TrimSpace(fixed) != "" {
			cleaned.Sections[key] = fixed
		} else {
			cleaned.Sections[key] = body
		}
	}

	return &cleaned
}

func sectionOrderForCleaning() []types.SectionKey {
	return []types.SectionKey{
		types.SectionSummary, types.SectionExperience, types.SectionEducation,
		types.SectionSkills, types.SectionProjects, types.SectionCertifications,
		types.SectionAwards, types.SectionLanguages, types.SectionOther,
	}
}

// splitCleanedSections 按 <<<KEY>>> 分隔符还原各章节。
// 模型弄丢分隔符时返回空map，调用方回退到清洗前的正文。
func splitCleanedSections(text string, keys []types.SectionKey) map[types.SectionKey]string {
	result := make(map[types.SectionKey]string)

	for i, key := range keys {
		marker := fmt.Sprintf("<<<%s>>>", key)
		start := strings.Index(text, marker)
		if start == -1 {
			continue
		}
		start += len(marker)

		end := len(text)
		if i+1 < len(keys) {
			next := fmt.Sprintf("<<<%s>>>", keys[i+1])
			if idx := strings.Index(text[start:], next); idx != -1 {
				end = start + idx
			}
		}
		result[key] = strings.TrimSpace(text[start:end])
	}

	return result
}
