package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewQwenChatModel(t *testing.T) {
	_, err := NewQwenChatModel("", "", "")
	assert.Error(t, err, "空API密钥应被拒绝")

	m, err := NewQwenChatModel("test-key", "", "")
	require.NoError(t, err)
	assert.Equal(t, "qwen-plus", m.modelName, "模型名应有默认值")
	assert.Equal(t, openAICompatibleQwenAPIURL, m.apiURL, "API地址应有默认值")

	m, err = NewQwenChatModel("test-key", "qwen-max", "http://localhost:8080/v1/chat",
		WithTemperature(0.2), WithMaxTokens(2048))
	require.NoError(t, err)
	assert.Equal(t, "qwen-max", m.modelName)
	require.NotNil(t, m.temperature)
	assert.Equal(t, 0.2, *m.temperature)
	assert.Equal(t, 2048, m.maxTokens)
}

func TestClassifyHTTPError(t *testing.T) {
	cases := []struct {
		name     string
		status   int
		body     string
		sentinel error
	}{
		{"普通429", http.StatusTooManyRequests, `{"error":{"code":"Throttling","message":"too many requests"}}`, ErrRateLimited},
		{"配额型429", http.StatusTooManyRequests, `{"error":{"code":"QuotaExhausted","message":"free quota exceeded"}}`, ErrQuotaExceeded},
		{"请求超时", http.StatusRequestTimeout, `{}`, ErrTimeout},
		{"网关超时", http.StatusGatewayTimeout, `{}`, ErrTimeout},
		{"服务端错误", http.StatusInternalServerError, `{"error":{"message":"internal error"}}`, ErrServerBusy},
		{"网关错误", http.StatusBadGateway, `{}`, ErrServerBusy},
		{"非法请求", http.StatusBadRequest, `{"error":{"message":"invalid prompt"}}`, ErrBadRequest},
		{"鉴权失败", http.StatusUnauthorized, `{}`, ErrBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := classifyHTTPError(tc.status, []byte(tc.body))
			assert.ErrorIs(t, err, tc.sentinel)
		})
	}
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(ErrRateLimited))
	assert.True(t, IsTransient(ErrTimeout))
	assert.True(t, IsTransient(ErrServerBusy))

	assert.False(t, IsTransient(ErrQuotaExceeded), "配额耗尽重试无意义")
	assert.False(t, IsTransient(ErrBadRequest))
	assert.False(t, IsTransient(nil))
}

func TestConvertMessage(t *testing.T) {
	// 纯文本消息保持字符串内容
	out := convertMessage(&schema.Message{Role: schema.User, Content: "你好"})
	assert.Equal(t, "user", out.Role)
	assert.Equal(t, "你好", out.Content)

	// 多模态消息序列化为分段数组
	out = convertMessage(&schema.Message{
		Role: schema.User,
		MultiContent: []schema.ChatMessagePart{
			{Type: schema.ChatMessagePartTypeText, Text: "识别这页简历"},
			{Type: schema.ChatMessagePartTypeImageURL, ImageURL: &schema.ChatMessageImageURL{URL: "data:image/png;base64,xxxx"}},
		},
	})
	parts, ok := out.Content.([]openAIContentPart)
	require.True(t, ok)
	require.Len(t, parts, 2)
	assert.Equal(t, "text", parts[0].Type)
	assert.Equal(t, "识别这页简历", parts[0].Text)
	assert.Equal(t, "image_url", parts[1].Type)
	require.NotNil(t, parts[1].ImageURL)
	assert.Equal(t, "data:image/png;base64,xxxx", parts[1].ImageURL.URL)
}

func TestQwenGenerate(t *testing.T) {
	var gotAuth string
	var gotReq openAIChatRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		content := "优化后的简历内容"
		resp := openAIChatResponse{
			Choices: []openAIChatChoice{
				{Message: openAIRespMessage{Role: "assistant", Content: &content}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	m, err := NewQwenChatModel("test-key", "qwen-plus", server.URL)
	require.NoError(t, err)

	msg, err := m.Generate(context.Background(), []*schema.Message{
		{Role: schema.System, Content: "你是简历优化专家"},
		{Role: schema.User, Content: "优化这份简历"},
	})
	require.NoError(t, err)
	assert.Equal(t, schema.Assistant, msg.Role)
	assert.Equal(t, "优化后的简历内容", msg.Content)

	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "qwen-plus", gotReq.Model)
	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
}

func TestQwenGenerateErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"code":"Throttling","message":"slow down"}}`))
	}))
	defer server.Close()

	m, err := NewQwenChatModel("test-key", "", server.URL)
	require.NoError(t, err)

	_, err = m.Generate(context.Background(), []*schema.Message{{Role: schema.User, Content: "hi"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.True(t, IsTransient(err), "限流错误应判定为瞬时")
}

func TestQwenGenerateEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	m, err := NewQwenChatModel("test-key", "", server.URL)
	require.NoError(t, err)

	_, err = m.Generate(context.Background(), []*schema.Message{{Role: schema.User, Content: "hi"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "choices")
}

func TestQwenWithTools(t *testing.T) {
	m, err := NewQwenChatModel("test-key", "", "")
	require.NoError(t, err)

	same, err := m.WithTools(nil)
	require.NoError(t, err)
	assert.Same(t, m, same, "不绑定工具时返回自身")

	_, err = m.WithTools([]*schema.ToolInfo{{Name: "search"}})
	assert.Error(t, err, "不支持工具调用")
}

func TestQwenStreamUnsupported(t *testing.T) {
	m, err := NewQwenChatModel("test-key", "", "")
	require.NoError(t, err)

	_, err = m.Stream(context.Background(), []*schema.Message{{Role: schema.User, Content: "hi"}})
	assert.Error(t, err)
}
