package parser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"resume-optimizer/internal/constants"
	"resume-optimizer/internal/types"
)

// ErrUnreadableDocument 全部提取策略耗尽或文本不足最小阈值。
// 单独成一类错误，调用方可以据此提示用户重新导出为文本型PDF。
var ErrUnreadableDocument = errors.New("无法读取文档内容，可能是图片型PDF")

// ExtractStrategy 提取策略的统一契约。
// 编排器按序/并发执行策略并合并产物，单个策略失败不致命。
type ExtractStrategy interface {
	// Name 策略名，用于日志与产物元数据
	Name() string
	// Extract 从原始PDF字节产出部分填充的ParsedArtifact
	Extract(ctx context.Context, data []byte) (*types.ParsedArtifact, error)
}

// --- 具体策略 ---

// textLayerStrategy 直接读取PDF文本层
type textLayerStrategy struct {
	extractor PDFExtractor
}

func (s *textLayerStrategy) Name() string { return "text_layer" }

func (s *textLayerStrategy) Extract(ctx context.Context, data []byte) (*types.ParsedArtifact, error) {
	text, metadata, err := s.extractor.ExtractTextFromBytes(ctx, data, "", nil)
	if err != nil {
		return nil, err
	}
	return &types.ParsedArtifact{Text: text, Metadata: metadata}, nil
}

// ocrStrategy 经Tika服务端OCR提取文本，覆盖扫描件
type ocrStrategy struct {
	extractor PDFExtractor
}

func (s *ocrStrategy) Name() string { return "ocr" }

func (s *ocrStrategy) Extract(ctx context.Context, data []byte) (*types.ParsedArtifact, error) {
	text, metadata, err := s.extractor.ExtractTextFromBytes(ctx, data, "", nil)
	if err != nil {
		return nil, err
	}
	return &types.ParsedArtifact{OCRText: text, Metadata: metadata}, nil
}

// visionStrategy 视觉模型结构分析，恢复文档树
type visionStrategy struct {
	analyzer *StructuralAnalyzer
}

func (s *visionStrategy) Name() string { return "vision" }

func (s *visionStrategy) Extract(ctx context.Context, data []byte) (*types.ParsedArtifact, error) {
	tree, err := s.analyzer.AnalyzePDF(ctx, data)
	if err != nil {
		return nil, err
	}
	return &types.ParsedArtifact{Structure: tree}, nil
}

// SuperParser 多策略提取编排器。
// 先走最快的文本层路径，OCR与视觉分析并发补充，
// 合并时优先取信息量最大的文本，辅助产物无论胜者是谁都保留。
type SuperParser struct {
	direct PDFExtractor
	// 兜底提取器，最基本也最可靠的一条路径
	floor           PDFExtractor
	auxStrategies   []ExtractStrategy
	minTextLen      int
	strategyTimeout time.Duration
	logger          *log.Logger
}

// SuperParserOption 编排器配置选项
type SuperParserOption func(*SuperParser)

// WithMinTextLength 设置可用文本的最小长度阈值
func WithMinTextLength(n int) SuperParserOption {
	return func(p *SuperParser) {
		if n > 0 {
			p.minTextLen = n
		}
	}
}

// WithStrategyTimeout 设置单个辅助策略的超时。
// 慢或失败的OCR不能拖垮整条流水线，超时后按"未产出产物"处理。
func WithStrategyTimeout(d time.Duration) SuperParserOption {
	return func(p *SuperParser) {
		if d > 0 {
			p.strategyTimeout = d
		}
	}
}

// WithFloorExtractor 设置兜底提取器
func WithFloorExtractor(e PDFExtractor) SuperParserOption {
	return func(p *SuperParser) {
		p.floor = e
	}
}

// WithSuperParserLogger 配置自定义日志记录器
func WithSuperParserLogger(logger *log.Logger) SuperParserOption {
	return func(p *SuperParser) {
		p.logger = logger
	}
}

// NewSuperParser 创建多策略编排器。
// direct为文本层提取器，aux为按需并发执行的辅助策略(OCR、视觉分析)。
func NewSuperParser(direct PDFExtractor, aux []ExtractStrategy, options ...SuperParserOption) *SuperParser {
	p := &SuperParser{
		direct:          direct,
		floor:           direct,
		auxStrategies:   aux,
		minTextLen:      constants.MinParsedTextLen,
		strategyTimeout: 30 * time.Second,
		logger:          log.New(io.Discard, "", 0),
	}
	for _, option := range options {
		option(p)
	}
	return p
}

// NewOCRStrategy 把Tika OCR提取器包装为编排策略
func NewOCRStrategy(extractor PDFExtractor) ExtractStrategy {
	return &ocrStrategy{extractor: extractor}
}

// NewVisionStrategy 把结构分析器包装为编排策略
func NewVisionStrategy(analyzer *StructuralAnalyzer) ExtractStrategy {
	return &visionStrategy{analyzer: analyzer}
}

// Parse 执行完整的多策略提取与合并。
// 失败是全有或全无的: 要么返回带非空Text的产物，要么返回错误。
func (p *SuperParser) Parse(ctx context.Context, data []byte) (*types.ParsedArtifact, error) {
	merged := &types.ParsedArtifact{
		Metadata: make(map[string]interface{}),
	}

	// 1. 文本层直接提取
	directText := p.runDirect(ctx, data, merged)

	// 2. 辅助策略并发执行，各自带独立超时
	auxResults := p.runAuxStrategies(ctx, data)

	// 3. 合并: 结构分析文本 > OCR文本 > 直接文本
	var ocrText, structText string
	for _, artifact := range auxResults {
		if artifact == nil {
			continue
		}
		if artifact.OCRText != "" {
			ocrText = artifact.OCRText
			merged.OCRText = artifact.OCRText
		}
		if artifact.Structure != nil {
			merged.Structure = artifact.Structure
			structText = artifact.Structure.FlattenText()
		}
		if len(artifact.Images) > 0 {
			merged.Images = artifact.Images
		}
		for k, v := range artifact.Metadata {
			merged.Metadata[k] = v
		}
	}

	switch {
	case p.usable(structText):
		merged.Text = structText
		merged.Metadata["winning_strategy"] = "vision"
	case p.usable(ocrText):
		merged.Text = ocrText
		merged.Metadata["winning_strategy"] = "ocr"
	case p.usable(directText):
		merged.Text = directText
		merged.Metadata["winning_strategy"] = "text_layer"
	}

	// 4. 全部落空时走兜底提取器
	if merged.Text == "" {
		floorText, _, err := p.floor.ExtractTextFromBytes(ctx, data, "", nil)
		if err != nil {
			p.logger.Printf("兜底提取也失败: %v", err)
		} else if p.usable(floorText) {
			merged.Text = floorText
			merged.Metadata["winning_strategy"] = "floor"
		}
	}

	// 5. 仍然不可用则判定文档不可读
	if !p.usable(merged.Text) {
		return nil, fmt.Errorf("%w: 有效文本 %d 字符，低于阈值 %d",
			ErrUnreadableDocument, len(strings.TrimSpace(merged.Text)), p.minTextLen)
	}

	return merged, nil
}

// runDirect 执行文本层提取，失败只记日志
func (p *SuperParser) runDirect(ctx context.Context, data []byte, merged *types.ParsedArtifact) string {
	strategy := &textLayerStrategy{extractor: p.direct}

	callCtx, cancel := context.WithTimeout(ctx, p.strategyTimeout)
	defer cancel()

	artifact, err := strategy.Extract(callCtx, data)
	if err != nil {
		p.logger.Printf("策略 %s 失败: %v", strategy.Name(), err)
		return ""
	}
	for k, v := range artifact.Metadata {
		merged.Metadata[k] = v
	}
	return artifact.Text
}

// runAuxStrategies 并发执行全部辅助策略，等待所有尝试结束
func (p *SuperParser) runAuxStrategies(ctx context.Context, data []byte) []*types.ParsedArtifact {
	results := make([]*types.ParsedArtifact, len(p.auxStrategies))

	var wg sync.WaitGroup
	for i, strategy := range p.auxStrategies {
		wg.Add(1)
		go func(idx int, s ExtractStrategy) {
			defer wg.Done()

			callCtx, cancel := context.WithTimeout(ctx, p.strategyTimeout)
			defer cancel()

			artifact, err := s.Extract(callCtx, data)
			if err != nil {
				p.logger.Printf("策略 %s 失败: %v", s.Name(), err)
				return
			}
			results[idx] = artifact
		}(i, strategy)
	}
	wg.Wait()

	return results
}

// usable 文本达到最小内容阈值
func (p *SuperParser) usable(text string) bool {
	return len(strings.TrimSpace(text)) >= p.minTextLen
}
