package parser

import (
	"bytes"
	"context"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTikaPDFExtractor(t *testing.T) {
	// 测试默认选项
	extractor := NewTikaPDFExtractor("http://localhost:9998")
	require.NotNil(t, extractor, "创建的Tika PDF提取器不应为nil")
	assert.Equal(t, "http://localhost:9998", extractor.ServerURL, "ServerURL应该被正确设置")
	require.NotNil(t, extractor.Client, "HTTP客户端不应为nil")
	assert.Equal(t, 60*time.Second, extractor.Client.Timeout, "HTTP客户端超时应为60秒")
	assert.True(t, extractor.extractMinimalMetadata, "默认应该提取精简元数据")
	assert.Empty(t, extractor.ocrStrategy, "默认不应设置OCR策略")

	// 测试自定义选项
	customLogger := log.New(os.Stdout, "[测试] ", log.LstdFlags)
	custom := NewTikaPDFExtractor(
		"http://localhost:9998",
		WithMinimalMetadata(false),
		WithOCRStrategy("ocr_only", "eng"),
		WithTikaLogger(customLogger),
		WithTimeout(30*time.Second),
	)
	assert.False(t, custom.extractMinimalMetadata, "应该设置为不提取精简元数据")
	assert.Equal(t, "ocr_only", custom.ocrStrategy, "OCR策略应该被正确设置")
	assert.Equal(t, "eng", custom.ocrLanguage, "OCR语言应该被正确设置")
	assert.Equal(t, customLogger, custom.logger, "应该使用提供的自定义logger")
	assert.Equal(t, 30*time.Second, custom.Client.Timeout, "应该使用自定义超时")
}

// 创建一个模拟的Tika服务器，用于测试
func createMockTikaServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tika":
			w.Header().Set("Content-Type", "text/plain")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("这是从PDF中提取的测试文本内容。"))
		case "/meta":
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{
				"Content-Type": "application/pdf",
				"pdf:PDFVersion": "1.5",
				"xmpTPg:NPages": 2,
				"dc:title": "测试文档",
				"language": "zh-cn",
				"X-TIKA:Parsed-By": "org.apache.tika.parser.DefaultParser"
			}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestTikaExtractTextFromBytes(t *testing.T) {
	server := createMockTikaServer()
	defer server.Close()

	extractor := NewTikaPDFExtractor(server.URL, WithMinimalMetadata(true))
	ctx := context.Background()

	mockPDFContent := []byte("%PDF-1.5\nMock PDF content for testing\n")

	text, metadata, err := extractor.ExtractTextFromBytes(ctx, mockPDFContent, "test_file.pdf", nil)
	require.NoError(t, err, "从字节数组提取文本不应返回错误")

	assert.Contains(t, text, "这是从PDF中提取的测试文本内容", "应该包含模拟服务器返回的文本")

	// 精简模式应保留重要元数据，过滤掉其余项
	require.NotNil(t, metadata, "元数据不应为nil")
	assert.Contains(t, metadata, "extraction_time", "元数据应该包含提取时间")
	assert.Contains(t, metadata, "processing_duration_ms", "元数据应该包含处理时间")
	assert.Contains(t, metadata, "pdf:PDFVersion", "元数据应该包含PDF版本")
	assert.Contains(t, metadata, "dc:title", "元数据应该包含标题")
	assert.Equal(t, "测试文档", metadata["dc:title"], "文档标题应该正确")
	assert.Equal(t, float64(2), metadata["xmpTPg:NPages"], "PDF页数应该是2")
	assert.NotContains(t, metadata, "X-TIKA:Parsed-By", "不应包含不重要元数据")
}

func TestTikaExtractTextNoMetadata(t *testing.T) {
	server := createMockTikaServer()
	defer server.Close()

	extractor := NewTikaPDFExtractor(server.URL, WithMinimalMetadata(false))
	ctx := context.Background()

	text, metadata, err := extractor.ExtractTextFromBytes(ctx, []byte("%PDF-1.5\nMock\n"), "test.pdf", nil)
	require.NoError(t, err)
	assert.Contains(t, text, "这是从PDF中提取的测试文本内容")
	assert.NotContains(t, metadata, "pdf:PDFVersion", "关闭元数据提取后不应包含PDF元数据")
	assert.Contains(t, metadata, "extraction_time", "基本元数据仍应存在")
}

func TestTikaExtractTextFromReader(t *testing.T) {
	server := createMockTikaServer()
	defer server.Close()

	extractor := NewTikaPDFExtractor(server.URL, WithMinimalMetadata(true))
	ctx := context.Background()

	mockReader := bytes.NewReader([]byte("%PDF-1.5\nMock PDF content for testing\n"))

	text, metadata, err := extractor.ExtractTextFromReader(ctx, mockReader, "test_file.pdf", nil)
	require.NoError(t, err, "从Reader提取文本不应返回错误")
	assert.NotEmpty(t, text, "提取的文本不应为空")
	assert.Contains(t, metadata, "Content-Type", "元数据应该包含Content-Type")
}

// TestTikaOCRHeaders 验证OCR策略和语言通过请求头正确下发
func TestTikaOCRHeaders(t *testing.T) {
	var ocrStrategy, ocrLanguage string

	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tika" {
			http.NotFound(w, r)
			return
		}
		if r.Method != http.MethodPut {
			http.Error(w, "Expected PUT request", http.StatusMethodNotAllowed)
			return
		}
		ocrStrategy = r.Header.Get("X-Tika-PDFOcrStrategy")
		ocrLanguage = r.Header.Get("X-Tika-OCRLanguage")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OCR提取的文本"))
	}))
	defer mockServer.Close()

	extractor := NewTikaPDFExtractor(mockServer.URL,
		WithMinimalMetadata(false),
		WithOCRStrategy("ocr_only", "eng"),
	)

	ctx := context.Background()
	text, metadata, err := extractor.ExtractTextFromBytes(ctx, []byte("%PDF-1.5\nMock\n"), "scan.pdf", nil)
	require.NoError(t, err, "OCR模式提取不应返回错误")

	assert.Equal(t, "OCR提取的文本", text, "应该返回服务端的OCR结果")
	assert.Equal(t, "ocr_only", ocrStrategy, "请求头应携带OCR策略")
	assert.Equal(t, "eng", ocrLanguage, "请求头应携带OCR语言")
	assert.Equal(t, "ocr_only", metadata["ocr_strategy"], "元数据应记录使用的OCR策略")
}

func TestTikaServerError(t *testing.T) {
	errorServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Internal Server Error"))
	}))
	defer errorServer.Close()

	extractor := NewTikaPDFExtractor(errorServer.URL, WithMinimalMetadata(false))
	ctx := context.Background()

	_, _, err := extractor.ExtractTextFromBytes(ctx, []byte("%PDF-1.5\nMock content\n"), "test_file.pdf", nil)
	require.Error(t, err, "服务器错误应该导致提取失败")
	assert.Contains(t, err.Error(), "tika服务器返回错误状态码", "错误消息应该指示服务器错误")
}

func TestTikaConnectionError(t *testing.T) {
	// 端口号超出范围，连接必然失败
	extractor := NewTikaPDFExtractor("http://localhost:99999", WithMinimalMetadata(false))
	ctx := context.Background()

	_, _, err := extractor.ExtractTextFromBytes(ctx, []byte("%PDF-1.5\nMock content\n"), "test_file.pdf", nil)
	require.Error(t, err, "连接错误应该导致提取失败")
	assert.Contains(t, err.Error(), "发送请求到Tika服务器失败", "错误消息应该指示连接问题")
}

func TestTikaExtractFromFile(t *testing.T) {
	server := createMockTikaServer()
	defer server.Close()

	// 写一个临时文件模拟PDF
	tmpFile, err := os.CreateTemp(t.TempDir(), "resume-*.pdf")
	require.NoError(t, err)
	_, err = tmpFile.Write([]byte("%PDF-1.5\nMock PDF content\n"))
	require.NoError(t, err)
	require.NoError(t, tmpFile.Close())

	extractor := NewTikaPDFExtractor(server.URL, WithMinimalMetadata(true))
	ctx := context.Background()

	text, metadata, err := extractor.ExtractFromFile(ctx, tmpFile.Name())
	require.NoError(t, err, "从文件提取文本不应返回错误")
	assert.NotEmpty(t, text, "提取的文本不应为空")
	assert.Equal(t, tmpFile.Name(), metadata["source_file_path"], "元数据应包含文件路径")
}
