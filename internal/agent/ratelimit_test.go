package agent

import (
	"context"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucketAllow(t *testing.T) {
	// 60 QPM = 每秒1个令牌，容量2: 立即可用2个
	tb := NewTokenBucket(60, 2)

	assert.True(t, tb.Allow())
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow(), "容量耗尽后应拒绝")
}

func TestTokenBucketDefaultCapacity(t *testing.T) {
	// 容量<=0时取QPM的一半
	tb := NewTokenBucket(60, 0)
	assert.Equal(t, 30.0, tb.capacity)

	// 至少为1
	tb = NewTokenBucket(1, 0)
	assert.Equal(t, 1.0, tb.capacity)
}

func TestTokenBucketWaitRefills(t *testing.T) {
	// 6000 QPM = 每秒100个令牌，耗尽后约10ms恢复
	tb := NewTokenBucket(6000, 1)
	require.True(t, tb.Allow())

	start := time.Now()
	err := tb.Wait(context.Background())
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second, "补充速率下等待应很快结束")
}

func TestTokenBucketWaitCanceled(t *testing.T) {
	// 1 QPM,令牌耗尽后下一个要等约60秒
	tb := NewTokenBucket(1, 1)
	require.True(t, tb.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := tb.Wait(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRateLimitedModelForwards(t *testing.T) {
	inner := &fakeChatModel{reply: &schema.Message{Role: schema.Assistant, Content: "限流后输出"}}
	rl := NewRateLimitedModel(inner, 6000)

	msg, err := rl.Generate(context.Background(), testMessages)
	require.NoError(t, err)
	assert.Equal(t, "限流后输出", msg.Content)
	assert.Equal(t, 1, inner.calls)
}

func TestRateLimitedModelDefaultQPM(t *testing.T) {
	inner := &fakeChatModel{}
	rl := NewRateLimitedModel(inner, 0)

	// 30 QPM = 每秒0.5个令牌
	assert.Equal(t, 0.5, rl.bucket.rate)
}

func TestRateLimitedModelBlocksWhenExhausted(t *testing.T) {
	inner := &fakeChatModel{reply: &schema.Message{Role: schema.Assistant, Content: "ok"}}
	rl := NewRateLimitedModel(inner, 1)

	// 第一次消耗掉唯一的令牌
	_, err := rl.Generate(context.Background(), testMessages)
	require.NoError(t, err)

	// 第二次在限流等待中被取消，不触达内部模型
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = rl.Generate(ctx, testMessages)
	require.Error(t, err)
	assert.Equal(t, 1, inner.calls)
}

func TestRateLimitedModelWithToolsSharesBucket(t *testing.T) {
	inner := &fakeChatModel{}
	rl := NewRateLimitedModel(inner, 60)

	wrapped, err := rl.WithTools(nil)
	require.NoError(t, err)

	rlWrapped, ok := wrapped.(*RateLimitedModel)
	require.True(t, ok)
	assert.Same(t, rl.bucket, rlWrapped.bucket, "工具绑定后的模型应共享同一个令牌桶")
}
