package parser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-optimizer/internal/types"
)

// stubExtractor 固定返回值的PDF提取器
type stubExtractor struct {
	text string
	meta map[string]interface{}
	err  error
}

func (s *stubExtractor) ExtractFromFile(ctx context.Context, filePath string) (string, map[string]interface{}, error) {
	return s.text, s.meta, s.err
}

func (s *stubExtractor) ExtractTextFromReader(ctx context.Context, reader io.Reader, uri string, options interface{}) (string, map[string]interface{}, error) {
	return s.text, s.meta, s.err
}

func (s *stubExtractor) ExtractTextFromBytes(ctx context.Context, data []byte, uri string, options interface{}) (string, map[string]interface{}, error) {
	return s.text, s.meta, s.err
}

// stubStrategy 固定返回值的辅助策略
type stubStrategy struct {
	name     string
	artifact *types.ParsedArtifact
	err      error
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) Extract(ctx context.Context, data []byte) (*types.ParsedArtifact, error) {
	return s.artifact, s.err
}

func longText(prefix string) string {
	return prefix + " " + strings.Repeat("内容", 100)
}

func TestSuperParserDirectTextWins(t *testing.T) {
	direct := &stubExtractor{text: longText("文本层"), meta: map[string]interface{}{"pages": 2}}
	p := NewSuperParser(direct, nil, WithMinTextLength(50))

	artifact, err := p.Parse(context.Background(), []byte("%PDF-1.4"))
	require.NoError(t, err)
	assert.Contains(t, artifact.Text, "文本层")
	assert.Equal(t, "text_layer", artifact.Metadata["winning_strategy"])
	assert.Equal(t, 2, artifact.Metadata["pages"], "直接提取的元数据应该并入产物")
}

func TestSuperParserOCRBeatsShortDirectText(t *testing.T) {
	// 文本层只有噪音，OCR产出完整文本
	direct := &stubExtractor{text: "噪音"}
	ocr := &stubStrategy{
		name:     "ocr",
		artifact: &types.ParsedArtifact{OCRText: longText("OCR文本")},
	}

	p := NewSuperParser(direct, []ExtractStrategy{ocr}, WithMinTextLength(50))

	artifact, err := p.Parse(context.Background(), []byte("%PDF-1.4"))
	require.NoError(t, err)
	assert.Contains(t, artifact.Text, "OCR文本", "直接文本不足时应采用OCR文本")
	assert.Equal(t, "ocr", artifact.Metadata["winning_strategy"])
	assert.NotEmpty(t, artifact.OCRText, "OCR产物应该保留")
}

func TestSuperParserVisionBeatsOCR(t *testing.T) {
	direct := &stubExtractor{text: "噪音"}
	ocr := &stubStrategy{
		name:     "ocr",
		artifact: &types.ParsedArtifact{OCRText: longText("OCR文本")},
	}
	tree := &types.DocumentTree{
		Kind: types.NodeDocument,
		Children: []*types.DocumentTree{
			{Kind: types.NodeHeader, Level: 1, Content: "工作经历"},
			{Kind: types.NodeParagraph, Content: longText("结构化正文")},
		},
	}
	vision := &stubStrategy{
		name:     "vision",
		artifact: &types.ParsedArtifact{Structure: tree},
	}

	p := NewSuperParser(direct, []ExtractStrategy{ocr, vision}, WithMinTextLength(50))

	artifact, err := p.Parse(context.Background(), []byte("%PDF-1.4"))
	require.NoError(t, err)
	assert.Contains(t, artifact.Text, "结构化正文", "结构分析文本优先级最高")
	assert.Equal(t, "vision", artifact.Metadata["winning_strategy"])
	assert.NotNil(t, artifact.Structure, "结构树应该保留")
	assert.NotEmpty(t, artifact.OCRText, "即使视觉分析胜出，OCR产物也应保留")
}

func TestSuperParserAuxFailureNotFatal(t *testing.T) {
	direct := &stubExtractor{text: longText("文本层")}
	broken := &stubStrategy{name: "ocr", err: errors.New("OCR服务不可用")}

	p := NewSuperParser(direct, []ExtractStrategy{broken}, WithMinTextLength(50))

	artifact, err := p.Parse(context.Background(), []byte("%PDF-1.4"))
	require.NoError(t, err, "辅助策略失败不应导致整体失败")
	assert.Equal(t, "text_layer", artifact.Metadata["winning_strategy"])
}

func TestSuperParserFloorFallback(t *testing.T) {
	direct := &stubExtractor{err: fmt.Errorf("文本层损坏")}
	floor := &stubExtractor{text: longText("兜底文本")}

	p := NewSuperParser(direct, nil, WithMinTextLength(50), WithFloorExtractor(floor))

	artifact, err := p.Parse(context.Background(), []byte("%PDF-1.4"))
	require.NoError(t, err)
	assert.Contains(t, artifact.Text, "兜底文本")
	assert.Equal(t, "floor", artifact.Metadata["winning_strategy"])
}

func TestSuperParserUnreadableDocument(t *testing.T) {
	// 所有路径都只产出低于阈值的噪音
	direct := &stubExtractor{text: "少量"}

	p := NewSuperParser(direct, nil, WithMinTextLength(50))

	_, err := p.Parse(context.Background(), []byte("%PDF-1.4"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnreadableDocument, "全部落空时应返回文档不可读错误")
}
