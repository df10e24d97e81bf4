package parser

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/cloudwego/eino/components/model"
	einoschema "github.com/cloudwego/eino/schema"

	"resume-optimizer/internal/types"
)

// visionSystemPrompt 结构分析的系统提示词
const visionSystemPrompt = `你是一个专业的文档结构分析专家。你将收到一份简历PDF，请分析它的视觉版面，
恢复出文档的层级结构树，并以JSON输出。

节点格式:
{
  "kind": "document|section|header|paragraph|list|table",
  "level": 1,
  "content": "string",
  "children": []
}

规则:
- 根节点kind必须为"document"。
- 只有header节点携带level(1-6)，对应标题的视觉层级。
- 叶子文本放在content字段；列表项合并为一个list节点，每行一个条目。
- 表格按行拼接为文本放入table节点的content。
- 阅读顺序保持与版面一致(多栏版面按先左栏后右栏)。
- 不要编造文档中不存在的文字。
- 严格输出JSON，不要包含解释性文字或Markdown标记。`

// StructuralAnalyzer 视觉结构分析器。
// 把原始PDF作为多模态附件发给视觉模型，恢复出DocumentTree。
type StructuralAnalyzer struct {
	llmModel   model.ToolCallingChatModel
	maxRetries int
	timeout    time.Duration
	logger     *log.Logger
}

// AnalyzerOption 结构分析器配置选项
type AnalyzerOption func(*StructuralAnalyzer)

// WithAnalyzerRetries 设置瞬时错误最大重试次数
func WithAnalyzerRetries(n int) AnalyzerOption {
	return func(a *StructuralAnalyzer) {
		a.maxRetries = n
	}
}

// WithAnalyzerTimeout 设置单次调用超时
func WithAnalyzerTimeout(d time.Duration) AnalyzerOption {
	return func(a *StructuralAnalyzer) {
		a.timeout = d
	}
}

// WithAnalyzerLogger 配置自定义日志记录器
func WithAnalyzerLogger(logger *log.Logger) AnalyzerOption {
	return func(a *StructuralAnalyzer) {
		a.logger = logger
	}
}

// NewStructuralAnalyzer 创建视觉结构分析器
func NewStructuralAnalyzer(llmModel model.ToolCallingChatModel, options ...AnalyzerOption) *StructuralAnalyzer {
	a := &StructuralAnalyzer{
		llmModel:   llmModel,
		maxRetries: 2,
		timeout:    90 * time.Second,
		logger:     log.New(io.Discard, "", 0),
	}
	for _, option := range options {
		option(a)
	}
	return a
}

// AnalyzePDF 对原始PDF做结构分析，返回规整后的文档树
func (a *StructuralAnalyzer) AnalyzePDF(ctx context.Context, pdfData []byte) (*types.DocumentTree, error) {
	if len(pdfData) == 0 {
		return nil, fmt.Errorf("PDF内容为空")
	}

	dataURI := "data:application/pdf;base64," + base64.StdEncoding.EncodeToString(pdfData)

	messages := []*einoschema.Message{
		{Role: einoschema.System, Content: visionSystemPrompt},
		{
			Role: einoschema.User,
			MultiContent: []einoschema.ChatMessagePart{
				{
					Type: einoschema.ChatMessagePartTypeText,
					Text: "请分析这份简历文档的结构。",
				},
				{
					Type:     einoschema.ChatMessagePartTypeImageURL,
					ImageURL: &einoschema.ChatMessageImageURL{URL: dataURI},
				},
			},
		},
	}

	startTime := time.Now()
	response, err := generateWithRetry(ctx, a.llmModel, messages, a.maxRetries, a.timeout, a.logger)
	if err != nil {
		return nil, fmt.Errorf("结构分析调用失败: %w", err)
	}

	tree, err := a.parseTree(response.Content)
	if err != nil {
		return nil, err
	}

	a.logger.Printf("结构分析完成: %d 个节点, 深度 %d (用时 %.2f秒)",
		tree.CountNodes(), tree.Depth(), time.Since(startTime).Seconds())
	return tree, nil
}

// parseTree 解析并规整模型返回的结构树
func (a *StructuralAnalyzer) parseTree(response string) (*types.DocumentTree, error) {
	jsonStr := extractJSON(response)
	if jsonStr == "" {
		a.logger.Printf("无法从模型响应中提取有效的JSON。原始响应: %.200s", response)
		return nil, fmt.Errorf("无法从结构分析响应中提取有效的JSON")
	}

	var tree types.DocumentTree
	if err := json.Unmarshal([]byte(jsonStr), &tree); err != nil {
		return nil, fmt.Errorf("解析结构树JSON失败: %w", err)
	}

	if tree.Kind == "" {
		tree.Kind = types.NodeDocument
	}
	tree.Sanitize()

	if tree.FlattenText() == "" {
		return nil, fmt.Errorf("结构分析未恢复出任何文本")
	}

	return &tree, nil
}
