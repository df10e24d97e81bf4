package agent

import (
	"context"
	"sync"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// TokenBucket 令牌桶限流器，按QPM控制对补全服务的调用速率
type TokenBucket struct {
	rate           float64 // 每秒生成的令牌数
	capacity       float64
	tokens         float64
	lastRefillTime time.Time
	mu             sync.Mutex
}

// NewTokenBucket 创建令牌桶，capacity<=0时取QPM的一半(至少1)
func NewTokenBucket(qpm int, capacity int) *TokenBucket {
	if capacity <= 0 {
		capacity = qpm / 2
		if capacity <= 0 {
			capacity = 1
		}
	}

	return &TokenBucket{
		rate:           float64(qpm) / 60.0,
		capacity:       float64(capacity),
		tokens:         float64(capacity),
		lastRefillTime: time.Now(),
	}
}

// refill 按经过的时间补充令牌，不超过容量。调用方必须持有锁。
func (tb *TokenBucket) refill() {
	now := time.Now()
	elapsed := now.Sub(tb.lastRefillTime).Seconds()
	tb.lastRefillTime = now

	tb.tokens += elapsed * tb.rate
	if tb.tokens > tb.capacity {
		tb.tokens = tb.capacity
	}
}

// Allow 尝试立即消耗一个令牌
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()
	if tb.tokens >= 1.0 {
		tb.tokens -= 1.0
		return true
	}
	return false
}

// Wait 阻塞直到拿到令牌或上下文取消
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		tb.mu.Lock()
		tb.refill()

		if tb.tokens >= 1.0 {
			tb.tokens -= 1.0
			tb.mu.Unlock()
			return nil
		}

		waitTime := time.Duration((1.0 - tb.tokens) / tb.rate * float64(time.Second))
		tb.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(waitTime):
		}
	}
}

// RateLimitedModel 包装一个补全模型，每次调用前先取令牌。
// 模型侧配额(QPM)在客户端提前消化，避免把429留给熔断器统计。
type RateLimitedModel struct {
	inner  model.ToolCallingChatModel
	bucket *TokenBucket
}

// NewRateLimitedModel 用给定QPM包装模型
func NewRateLimitedModel(inner model.ToolCallingChatModel, qpm int) *RateLimitedModel {
	if qpm <= 0 {
		qpm = 30
	}
	return &RateLimitedModel{
		inner:  inner,
		bucket: NewTokenBucket(qpm, qpm/2),
	}
}

// Generate 取令牌后转发到内部模型
func (rl *RateLimitedModel) Generate(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.Message, error) {
	if err := rl.bucket.Wait(ctx); err != nil {
		return nil, err
	}
	return rl.inner.Generate(ctx, messages, options...)
}

// Stream 取令牌后转发到内部模型
func (rl *RateLimitedModel) Stream(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	if err := rl.bucket.Wait(ctx); err != nil {
		return nil, err
	}
	return rl.inner.Stream(ctx, messages, options...)
}

// WithTools 转发到内部模型，共享同一个令牌桶
func (rl *RateLimitedModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	inner, err := rl.inner.WithTools(tools)
	if err != nil {
		return nil, err
	}
	return &RateLimitedModel{inner: inner, bucket: rl.bucket}, nil
}

var _ model.ToolCallingChatModel = (*RateLimitedModel)(nil)
