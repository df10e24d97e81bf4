package processor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	einoschema "github.com/cloudwego/eino/schema"

	"resume-optimizer/internal/agent"
	"resume-optimizer/internal/logger"
)

// DefaultGenerator 最终生成阶段的默认实现。
// 提示词组装在prompts.go，补全调用带有界重试，
// 过短的生成结果在离开流水线前就被拒绝。
type DefaultGenerator struct {
	llmModel   model.ToolCallingChatModel
	maxRetries int
	retryWait  time.Duration
	timeout    time.Duration
	minTextLen int
}

// GeneratorOption 生成器配置选项
type GeneratorOption func(*DefaultGenerator)

// WithGeneratorRetries 设置瞬时错误最大重试次数
func WithGeneratorRetries(n int) GeneratorOption {
	return func(g *DefaultGenerator) {
		if n >= 0 {
			g.maxRetries = n
		}
	}
}

// WithGeneratorRetryWait 设置首次重试等待时间
func WithGeneratorRetryWait(d time.Duration) GeneratorOption {
	return func(g *DefaultGenerator) {
		if d > 0 {
			g.retryWait = d
		}
	}
}

// WithGeneratorTimeout 设置单次生成调用超时
func WithGeneratorTimeout(d time.Duration) GeneratorOption {
	return func(g *DefaultGenerator) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithMinGeneratedLength 设置生成文本的最短可接受长度
func WithMinGeneratedLength(n int) GeneratorOption {
	return func(g *DefaultGenerator) {
		if n > 0 {
			g.minTextLen = n
		}
	}
}

var _ ResumeGenerator = (*DefaultGenerator)(nil)

// NewDefaultGenerator 创建生成器。llmModel通常是包了熔断的补全模型。
func NewDefaultGenerator(llmModel model.ToolCallingChatModel, options ...GeneratorOption) *DefaultGenerator {
	g := &DefaultGenerator{
		llmModel:   llmModel,
		maxRetries: 2,
		retryWait:  2 * time.Second,
		timeout:    60 * time.Second,
		minTextLen: 200,
	}
	for _, option := range options {
		option(g)
	}
	return g
}

// GenerateResume 生成优化后的简历文本
func (g *DefaultGenerator) GenerateResume(ctx context.Context, input *GenerationInput) (string, error) {
	if input == nil || input.Profile == nil {
		return "", fmt.Errorf("生成输入不完整")
	}

	text, err := g.complete(ctx, resumeSystemPrompt, buildResumeUserPrompt(input))
	if err != nil {
		return "", err
	}

	if len(strings.TrimSpace(text)) < g.minTextLen {
		return "", fmt.Errorf("生成的简历过短(%d字符)", len(strings.TrimSpace(text)))
	}

	return text, nil
}

// GenerateCoverLetter 生成求职信
func (g *DefaultGenerator) GenerateCoverLetter(ctx context.Context, input *GenerationInput, resumeText string) (string, error) {
	if strings.TrimSpace(resumeText) == "" {
		return "", fmt.Errorf("简历文本为空，无法生成求职信")
	}

	text, err := g.complete(ctx, coverLetterSystemPrompt, buildCoverLetterUserPrompt(input, resumeText))
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(text), nil
}

// complete 带有界重试的补全调用，只重试瞬时错误
func (g *DefaultGenerator) complete(ctx context.Context, systemContent string, userContent string) (string, error) {
	messages := []*einoschema.Message{
		{Role: einoschema.System, Content: systemContent},
		{Role: einoschema.User, Content: userContent},
	}

	retryDelay := g.retryWait
	var lastErr error

	for retry := 0; retry <= g.maxRetries; retry++ {
		if retry > 0 {
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("上下文已取消: %w", ctx.Err())
			case <-time.After(retryDelay):
				retryDelay *= 2
				logger.Warn().Int("retry", retry).Err(lastErr).Msg("重试生成调用")
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, g.timeout)
		response, err := g.llmModel.Generate(callCtx, messages)
		cancel()

		if err == nil {
			return response.Content, nil
		}
		lastErr = err

		// 熔断打开时立即失败，重试只会继续打在打开的熔断器上
		if errors.Is(err, agent.ErrBreakerOpen) || !agent.IsTransient(err) {
			return "", err
		}
	}

	return "", fmt.Errorf("生成调用重试耗尽: %w", lastErr)
}
