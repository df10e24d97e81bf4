package processor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	einoschema "github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-optimizer/internal/agent"
	"resume-optimizer/internal/types"
)

// scriptedModel 按预设脚本依次返回结果的补全模型桩
type scriptedModel struct {
	// 每次调用消耗一项，耗尽后重复最后一项
	script []scriptedReply
	calls  int
	// 记录最后一次调用的消息，供提示词断言
	lastMessages []*einoschema.Message
}

type scriptedReply struct {
	content string
	err     error
}

func (m *scriptedModel) Generate(ctx context.Context, messages []*einoschema.Message, options ...model.Option) (*einoschema.Message, error) {
	idx := m.calls
	if idx >= len(m.script) {
		idx = len(m.script) - 1
	}
	m.calls++
	m.lastMessages = messages

	reply := m.script[idx]
	if reply.err != nil {
		return nil, reply.err
	}
	return &einoschema.Message{Role: einoschema.Assistant, Content: reply.content}, nil
}

func (m *scriptedModel) Stream(ctx context.Context, messages []*einoschema.Message, options ...model.Option) (*einoschema.StreamReader[*einoschema.Message], error) {
	return nil, errors.New("测试桩不支持流式")
}

func (m *scriptedModel) WithTools(tools []*einoschema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

var _ model.ToolCallingChatModel = (*scriptedModel)(nil)

// longResumeReply 超过最小长度阈值的生成产物
var longResumeReply = "# 张三\n\n" + strings.Repeat("负责核心交易链路的设计与性能优化，延迟下降40%。\n", 10)

func generationInput() *GenerationInput {
	return &GenerationInput{
		Profile: &types.NormalizedProfile{
			Name:  "张三",
			Email: "zhangsan@example.com",
			Sections: map[types.SectionKey]string{
				types.SectionExperience: "2019.01 - 2024.01 后端开发",
				types.SectionSkills:     "Go, MySQL",
			},
		},
		Experience: &types.ExperienceEstimate{
			TotalYears:  5.0,
			Details:     "合并1个区间",
			Constraints: []string{"总经验年限为5.0年，不得夸大"},
		},
		Keywords:       []string{"Go", "MySQL"},
		JobDescription: "资深后端工程师，要求熟悉Go与MySQL",
	}
}

func TestGenerateResumeSuccess(t *testing.T) {
	m := &scriptedModel{script: []scriptedReply{{content: longResumeReply}}}
	g := NewDefaultGenerator(m)

	text, err := g.GenerateResume(context.Background(), generationInput())
	require.NoError(t, err)
	assert.Equal(t, longResumeReply, text)
	assert.Equal(t, 1, m.calls)

	// 提示词应携带画像正文与经验约束
	require.Len(t, m.lastMessages, 2)
	assert.Equal(t, einoschema.System, m.lastMessages[0].Role)
	userPrompt := m.lastMessages[1].Content
	assert.Contains(t, userPrompt, "zhangsan@example.com")
	assert.Contains(t, userPrompt, "不得夸大")
	assert.Contains(t, userPrompt, "Go, MySQL")
}

func TestGenerateResumeNilInput(t *testing.T) {
	g := NewDefaultGenerator(&scriptedModel{script: []scriptedReply{{content: longResumeReply}}})

	_, err := g.GenerateResume(context.Background(), nil)
	assert.Error(t, err)

	_, err = g.GenerateResume(context.Background(), &GenerationInput{})
	assert.Error(t, err, "缺少画像的输入应被拒绝")
}

func TestGenerateResumeTooShort(t *testing.T) {
	m := &scriptedModel{script: []scriptedReply{{content: "太短的产物"}}}
	g := NewDefaultGenerator(m)

	_, err := g.GenerateResume(context.Background(), generationInput())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "过短")
}

func TestGenerateResumeRetriesTransientError(t *testing.T) {
	m := &scriptedModel{script: []scriptedReply{
		{err: agent.ErrRateLimited},
		{content: longResumeReply},
	}}
	g := NewDefaultGenerator(m, WithGeneratorRetryWait(time.Millisecond))

	text, err := g.GenerateResume(context.Background(), generationInput())
	require.NoError(t, err, "瞬时错误后的重试应成功")
	assert.Equal(t, longResumeReply, text)
	assert.Equal(t, 2, m.calls)
}

func TestGenerateResumeRetryExhaustion(t *testing.T) {
	m := &scriptedModel{script: []scriptedReply{{err: agent.ErrServerBusy}}}
	g := NewDefaultGenerator(m, WithGeneratorRetryWait(time.Millisecond))

	_, err := g.GenerateResume(context.Background(), generationInput())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "重试耗尽")
	assert.ErrorIs(t, err, agent.ErrServerBusy, "耗尽错误应包装最后一次失败")
	assert.Equal(t, 3, m.calls, "默认2次重试共3次调用")
}

func TestGenerateResumeBreakerOpenFailsFast(t *testing.T) {
	m := &scriptedModel{script: []scriptedReply{{err: agent.ErrBreakerOpen}}}
	g := NewDefaultGenerator(m, WithGeneratorRetryWait(time.Millisecond))

	_, err := g.GenerateResume(context.Background(), generationInput())
	require.Error(t, err)
	assert.ErrorIs(t, err, agent.ErrBreakerOpen)
	assert.Equal(t, 1, m.calls, "熔断打开时不应重试")
}

func TestGenerateResumeNonTransientFailsFast(t *testing.T) {
	permanent := errors.New("请求参数非法")
	m := &scriptedModel{script: []scriptedReply{{err: permanent}}}
	g := NewDefaultGenerator(m, WithGeneratorRetryWait(time.Millisecond))

	_, err := g.GenerateResume(context.Background(), generationInput())
	require.Error(t, err)
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, m.calls, "非瞬时错误不应重试")
}

func TestGenerateResumeContextCanceledDuringRetry(t *testing.T) {
	m := &scriptedModel{script: []scriptedReply{{err: agent.ErrRateLimited}}}
	g := NewDefaultGenerator(m, WithGeneratorRetryWait(time.Minute))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := g.GenerateResume(ctx, generationInput())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled, "重试等待期间取消应立即退出")
	assert.Equal(t, 1, m.calls)
}

func TestGenerateCoverLetter(t *testing.T) {
	m := &scriptedModel{script: []scriptedReply{{content: "  尊敬的招聘团队，随信附上我的简历。  "}}}
	g := NewDefaultGenerator(m)

	text, err := g.GenerateCoverLetter(context.Background(), generationInput(), longResumeReply)
	require.NoError(t, err)
	assert.Equal(t, "尊敬的招聘团队，随信附上我的简历。", text, "求职信应去除首尾空白")

	_, err = g.GenerateCoverLetter(context.Background(), generationInput(), "   ")
	assert.Error(t, err, "没有简历文本时应拒绝生成求职信")
}

func TestGeneratorOptions(t *testing.T) {
	m := &scriptedModel{script: []scriptedReply{{err: agent.ErrTimeout}}}
	g := NewDefaultGenerator(m,
		WithGeneratorRetries(0),
		WithGeneratorTimeout(time.Second),
		WithMinGeneratedLength(10),
	)

	_, err := g.GenerateResume(context.Background(), generationInput())
	require.Error(t, err)
	assert.Equal(t, 1, m.calls, "重试次数为0时只调用一次")
}
