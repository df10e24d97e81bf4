package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/sony/gobreaker/v2"

	"resume-optimizer/internal/logger"
)

// ErrBreakerOpen 熔断器处于打开状态，补全服务被临时隔离
var ErrBreakerOpen = errors.New("补全服务熔断中")

// BreakerConfig 熔断参数
type BreakerConfig struct {
	Name         string
	MinRequests  uint32        // 触发熔断判定的最小请求数
	FailureRatio float64       // 失败率阈值
	Cooldown     time.Duration // 打开状态持续时间
}

// BreakerModel 包装一个补全模型，失败率过高时快速失败而不是继续打爆下游。
// 只有瞬时错误计入失败统计，业务层面的非法请求不应触发熔断。
type BreakerModel struct {
	inner model.ToolCallingChatModel
	cb    *gobreaker.CircuitBreaker[*schema.Message]
}

// NewBreakerModel 用给定参数包装模型
func NewBreakerModel(inner model.ToolCallingChatModel, cfg BreakerConfig) *BreakerModel {
	name := cfg.Name
	if name == "" {
		name = "completion"
	}
	minRequests := cfg.MinRequests
	if minRequests == 0 {
		minRequests = 5
	}
	failureRatio := cfg.FailureRatio
	if failureRatio <= 0 {
		failureRatio = 0.6
	}
	cooldown := cfg.Cooldown
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}

	settings := gobreaker.Settings{
		Name:    name,
		Timeout: cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < minRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= failureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("熔断器状态变更")
		},
		IsSuccessful: func(err error) bool {
			// 非瞬时错误(如prompt非法)不计入失败
			if err == nil {
				return true
			}
			return !IsTransient(err)
		},
	}

	return &BreakerModel{
		inner: inner,
		cb:    gobreaker.NewCircuitBreaker[*schema.Message](settings),
	}
}

// Generate 经熔断器转发到内部模型
func (b *BreakerModel) Generate(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.Message, error) {
	msg, err := b.cb.Execute(func() (*schema.Message, error) {
		return b.inner.Generate(ctx, messages, options...)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrBreakerOpen, err)
		}
		return nil, err
	}
	return msg, nil
}

// Stream 经熔断器转发(当前内部模型未实现流式)
func (b *BreakerModel) Stream(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return b.inner.Stream(ctx, messages, options...)
}

// WithTools 转发到内部模型
func (b *BreakerModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	inner, err := b.inner.WithTools(tools)
	if err != nil {
		return nil, err
	}
	if inner == b.inner {
		return b, nil
	}
	return &BreakerModel{inner: inner, cb: b.cb}, nil
}

var _ model.ToolCallingChatModel = (*BreakerModel)(nil)
