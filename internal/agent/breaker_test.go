package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeChatModel 返回固定结果的补全模型桩
type fakeChatModel struct {
	reply *schema.Message
	err   error
	calls int
}

func (f *fakeChatModel) Generate(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.Message, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.reply, nil
}

func (f *fakeChatModel) Stream(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("测试桩不支持流式")
}

func (f *fakeChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return f, nil
}

var _ model.ToolCallingChatModel = (*fakeChatModel)(nil)

var testMessages = []*schema.Message{{Role: schema.User, Content: "测试输入"}}

func TestBreakerPassesThroughSuccess(t *testing.T) {
	inner := &fakeChatModel{reply: &schema.Message{Role: schema.Assistant, Content: "正常输出"}}
	b := NewBreakerModel(inner, BreakerConfig{})

	msg, err := b.Generate(context.Background(), testMessages)
	require.NoError(t, err)
	assert.Equal(t, "正常输出", msg.Content)
	assert.Equal(t, 1, inner.calls)
}

func TestBreakerTripsOnTransientFailures(t *testing.T) {
	inner := &fakeChatModel{err: ErrServerBusy}
	b := NewBreakerModel(inner, BreakerConfig{
		Name:         "test",
		MinRequests:  3,
		FailureRatio: 1.0,
		Cooldown:     time.Minute,
	})

	// 前3次失败穿透到内部模型并计入统计
	for i := 0; i < 3; i++ {
		_, err := b.Generate(context.Background(), testMessages)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrServerBusy)
	}
	assert.Equal(t, 3, inner.calls)

	// 熔断已打开: 快速失败，不再触达内部模型
	_, err := b.Generate(context.Background(), testMessages)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBreakerOpen)
	assert.Equal(t, 3, inner.calls, "打开状态下不应继续调用内部模型")
}

func TestBreakerIgnoresNonTransientErrors(t *testing.T) {
	inner := &fakeChatModel{err: ErrBadRequest}
	b := NewBreakerModel(inner, BreakerConfig{
		MinRequests:  3,
		FailureRatio: 1.0,
		Cooldown:     time.Minute,
	})

	// 非瞬时错误不计入失败率，远超阈值也不应熔断
	for i := 0; i < 10; i++ {
		_, err := b.Generate(context.Background(), testMessages)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrBadRequest)
		assert.NotErrorIs(t, err, ErrBreakerOpen)
	}
	assert.Equal(t, 10, inner.calls, "每次调用都应穿透到内部模型")
}

func TestBreakerWithToolsSharesBreaker(t *testing.T) {
	inner := &fakeChatModel{reply: &schema.Message{Role: schema.Assistant, Content: "ok"}}
	b := NewBreakerModel(inner, BreakerConfig{})

	wrapped, err := b.WithTools(nil)
	require.NoError(t, err)
	assert.Same(t, b, wrapped, "内部模型未变时复用同一包装")
}
