package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"resume-optimizer/internal/logger"
)

const (
	// DashScope的OpenAI兼容接口地址
	openAICompatibleQwenAPIURL = "https://dashscope.aliyuncs.com/compatible-mode/v1/chat/completions"
	defaultQwenModelName       = "qwen-plus"
)

// 补全服务的错误分类。上层重试逻辑依赖errors.Is判断是否可重试。
var (
	// ErrRateLimited 请求被限流(HTTP 429)，可退避后重试
	ErrRateLimited = errors.New("补全服务限流")
	// ErrQuotaExceeded 配额耗尽，不可重试
	ErrQuotaExceeded = errors.New("补全服务配额耗尽")
	// ErrTimeout 请求超时，可重试
	ErrTimeout = errors.New("补全服务请求超时")
	// ErrServerBusy 服务端错误(HTTP 5xx)，可重试
	ErrServerBusy = errors.New("补全服务暂时不可用")
	// ErrBadRequest 请求本身非法(HTTP 4xx)，不可重试
	ErrBadRequest = errors.New("补全服务拒绝请求")
)

// IsTransient 判断错误是否为瞬时错误，瞬时错误允许上层退避重试
func IsTransient(err error) bool {
	return errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrServerBusy)
}

// --- OpenAI兼容的请求/响应结构 ---

type openAIContentPart struct {
	Type     string `json:"type"` // "text" 或 "image_url"
	Text     string `json:"text,omitempty"`
	ImageURL *struct {
		URL string `json:"url"`
	} `json:"image_url,omitempty"`
}

// openAIMessage 对外发送的消息。Content和Parts互斥：
// 多模态消息序列化为内容数组，纯文本消息保持字符串。
type openAIMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type openAIChatRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature *float64        `json:"temperature,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
}

type openAIRespMessage struct {
	Role    string  `json:"role"`
	Content *string `json:"content"`
}

type openAIChatChoice struct {
	Index        int               `json:"index"`
	Message      openAIRespMessage `json:"message"`
	FinishReason string            `json:"finish_reason"`
}

type openAIChatResponse struct {
	Id      string             `json:"id"`
	Object  string             `json:"object"`
	Created int64              `json:"created"`
	Model   string             `json:"model"`
	Choices []openAIChatChoice `json:"choices"`
}

type openAIErrorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// QwenChatModel 通过OpenAI兼容API与通义千问交互，
// 实现eino的model.ToolCallingChatModel接口，支持文本与多模态消息。
type QwenChatModel struct {
	apiKey      string
	modelName   string
	apiURL      string
	httpClient  *http.Client
	temperature *float64
	maxTokens   int
}

// QwenOption QwenChatModel的配置选项
type QwenOption func(*QwenChatModel)

// WithHTTPClient 替换底层HTTP客户端，测试时注入mock transport
func WithHTTPClient(c *http.Client) QwenOption {
	return func(m *QwenChatModel) {
		m.httpClient = c
	}
}

// WithTemperature 设置采样温度
func WithTemperature(t float64) QwenOption {
	return func(m *QwenChatModel) {
		m.temperature = &t
	}
}

// WithMaxTokens 设置生成上限
func WithMaxTokens(n int) QwenOption {
	return func(m *QwenChatModel) {
		m.maxTokens = n
	}
}

// NewQwenChatModel 创建一个新的通义千问客户端实例
func NewQwenChatModel(apiKey string, modelName string, apiURL string, opts ...QwenOption) (*QwenChatModel, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("API密钥不能为空")
	}

	mn := modelName
	if strings.TrimSpace(mn) == "" {
		mn = defaultQwenModelName
	}

	url := apiURL
	if strings.TrimSpace(url) == "" {
		url = openAICompatibleQwenAPIURL
	}

	m := &QwenChatModel{
		apiKey:     apiKey,
		modelName:  mn,
		apiURL:     url,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
	for _, opt := range opts {
		opt(m)
	}

	logger.Info().
		Str("api_url", url).
		Str("model", mn).
		Msg("通义千问客户端已初始化")

	return m, nil
}

// convertMessage 将eino消息转换为OpenAI兼容格式。
// MultiContent非空时内容序列化为分段数组，否则使用纯文本。
func convertMessage(msg *schema.Message) openAIMessage {
	out := openAIMessage{Role: string(msg.Role)}

	if len(msg.MultiContent) == 0 {
		out.Content = msg.Content
		return out
	}

	parts := make([]openAIContentPart, 0, len(msg.MultiContent))
	for _, p := range msg.MultiContent {
		switch p.Type {
		case schema.ChatMessagePartTypeText:
			parts = append(parts, openAIContentPart{Type: "text", Text: p.Text})
		case schema.ChatMessagePartTypeImageURL:
			if p.ImageURL == nil {
				continue
			}
			part := openAIContentPart{Type: "image_url"}
			part.ImageURL = &struct {
				URL string `json:"url"`
			}{URL: p.ImageURL.URL}
			parts = append(parts, part)
		}
	}
	out.Content = parts
	return out
}

// classifyHTTPError 将HTTP错误响应映射到类型化错误
func classifyHTTPError(statusCode int, body []byte) error {
	var errBody openAIErrorBody
	_ = json.Unmarshal(body, &errBody)
	detail := errBody.Error.Message
	if detail == "" {
		detail = string(body)
	}

	switch {
	case statusCode == http.StatusTooManyRequests:
		// DashScope在配额耗尽时也返回429，通过错误码区分
		code := strings.ToLower(errBody.Error.Code)
		if strings.Contains(code, "quota") || strings.Contains(strings.ToLower(detail), "quota") {
			return fmt.Errorf("%w: %s", ErrQuotaExceeded, detail)
		}
		return fmt.Errorf("%w: %s", ErrRateLimited, detail)
	case statusCode == http.StatusRequestTimeout || statusCode == http.StatusGatewayTimeout:
		return fmt.Errorf("%w: %s", ErrTimeout, detail)
	case statusCode >= 500:
		return fmt.Errorf("%w: HTTP %d: %s", ErrServerBusy, statusCode, detail)
	default:
		return fmt.Errorf("%w: HTTP %d: %s", ErrBadRequest, statusCode, detail)
	}
}

// Generate 实现model.ChatModel接口
func (m *QwenChatModel) Generate(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.Message, error) {
	apiMessages := make([]openAIMessage, 0, len(messages))
	for _, msg := range messages {
		apiMessages = append(apiMessages, convertMessage(msg))
	}

	reqPayload := openAIChatRequest{
		Model:       m.modelName,
		Messages:    apiMessages,
		Temperature: m.temperature,
		MaxTokens:   m.maxTokens,
	}

	jsonData, err := json.Marshal(reqPayload)
	if err != nil {
		return nil, fmt.Errorf("序列化请求体失败: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+m.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	logger.Debug().
		Str("model", m.modelName).
		Int("message_count", len(apiMessages)).
		Msg("发送补全请求")

	httpResp, err := m.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeoutNetErr(err) {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, fmt.Errorf("发送HTTP请求失败: %w", err)
	}
	defer httpResp.Body.Close()

	bodyBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应体失败: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		clsErr := classifyHTTPError(httpResp.StatusCode, bodyBytes)
		logger.Warn().
			Int("status", httpResp.StatusCode).
			Err(clsErr).
			Msg("补全请求失败")
		return nil, clsErr
	}

	var apiResp openAIChatResponse
	if err := json.Unmarshal(bodyBytes, &apiResp); err != nil {
		return nil, fmt.Errorf("反序列化API响应失败: %w", err)
	}

	if len(apiResp.Choices) == 0 {
		return nil, fmt.Errorf("API返回空choices")
	}

	choice := apiResp.Choices[0]
	content := ""
	if choice.Message.Content != nil {
		content = *choice.Message.Content
	}

	role := schema.RoleType(choice.Message.Role)
	if role == "" {
		role = schema.Assistant
	}

	return &schema.Message{
		Role:    role,
		Content: content,
	}, nil
}

// Stream 流式接口当前未使用
func (m *QwenChatModel) Stream(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("QwenChatModel的Stream方法未实现")
}

// WithTools 满足model.ToolCallingChatModel接口。
// 流水线全部走纯补全调用，不绑定任何工具。
func (m *QwenChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	if len(tools) > 0 {
		return nil, fmt.Errorf("QwenChatModel不支持工具调用")
	}
	return m, nil
}

func isTimeoutNetErr(err error) bool {
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

var _ model.ToolCallingChatModel = (*QwenChatModel)(nil)
