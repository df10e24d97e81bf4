package parser

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	einoschema "github.com/cloudwego/eino/schema"

	"resume-optimizer/internal/agent"
)

// generateWithRetry 带有界重试的补全调用。
// 只对瞬时错误(超时/限流/网络)重试，其余错误立即返回；
// 每次重试前等待时间翻倍，上下文取消时立即退出。
func generateWithRetry(ctx context.Context, llmModel model.ToolCallingChatModel, messages []*einoschema.Message,
	maxRetries int, callTimeout time.Duration, logger *log.Logger) (*einoschema.Message, error) {

	retryDelay := 2 * time.Second

	var response *einoschema.Message
	var err error

	for retry := 0; retry <= maxRetries; retry++ {
		if retry > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("上下文已取消: %w", ctx.Err())
			case <-time.After(retryDelay):
				retryDelay *= 2
				logger.Printf("重试补全调用 (第%d次)", retry)
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, callTimeout)
		response, err = llmModel.Generate(callCtx, messages)
		cancel()

		if err == nil {
			return response, nil
		}

		if !isRetryableError(err) || retry >= maxRetries {
			return nil, fmt.Errorf("补全调用失败: %w", err)
		}
	}

	return nil, fmt.Errorf("补全调用失败: %w", err)
}

// isRetryableError 判断错误是否应该重试
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if agent.IsTransient(err) {
		return true
	}

	// 类型信息缺失时回退到字符串匹配
	errStr := err.Error()
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "EOF") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host")
}

// extractJSON 从模型响应文本中提取JSON部分
func extractJSON(text string) string {
	// 优先提取 ```json ... ``` 代码块中的内容
	re := regexp.MustCompile("(?s)```json\\s*([\\{\\[].*[\\}\\]])\\s*```")
	matches := re.FindStringSubmatch(text)
	if len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}

	// 回退: 寻找首个花括号并做括号配平
	start := strings.Index(text, "{")
	if start == -1 {
		return ""
	}

	level := 0
	for i := start; i < len(text); i++ {
		if text[i] == '{' {
			level++
		} else if text[i] == '}' {
			level--
			if level == 0 {
				return strings.TrimSpace(text[start : i+1])
			}
		}
	}
	return ""
}
