package parser

import (
	"bytes"
	"fmt"
	"strconv"

	"resume-optimizer/internal/constants"
)

// pdfMagic PDF文件头标识
var pdfMagic = []byte("%PDF-")

// ValidationResult PDF校验结果。
// 格式错误是正常的业务结果而不是异常，因此用结果值而不是error表达。
type ValidationResult struct {
	OK     bool
	Reason string
}

// PDFValidator 在任何解析工作开始前校验上传的原始字节
type PDFValidator struct {
	maxSize int64
}

// ValidatorOption PDF校验器配置选项
type ValidatorOption func(*PDFValidator)

// WithMaxSize 设置PDF体积上限(字节)
func WithMaxSize(n int64) ValidatorOption {
	return func(v *PDFValidator) {
		v.maxSize = n
	}
}

// NewPDFValidator 创建PDF校验器
func NewPDFValidator(options ...ValidatorOption) *PDFValidator {
	v := &PDFValidator{
		maxSize: constants.MaxPDFSizeBytes,
	}
	for _, option := range options {
		option(v)
	}
	return v
}

// Validate 按顺序检查: 非空、体积上限、最小长度、PDF魔数、版本号范围。
// 任何失败都返回带原因的结果，不会panic。
func (v *PDFValidator) Validate(data []byte) ValidationResult {
	if len(data) == 0 {
		return fail("PDF文件为空")
	}

	if int64(len(data)) > v.maxSize {
		return fail(fmt.Sprintf("PDF文件超过%dMB上限", v.maxSize/(1024*1024)))
	}

	if len(data) < len(pdfMagic)+3 {
		return fail("文件过小，不是有效的PDF")
	}

	if !bytes.HasPrefix(data, pdfMagic) {
		return fail("无效的文件格式，缺少PDF文件头")
	}

	// 魔数后紧跟版本号，例如 %PDF-1.7
	major, minor, ok := parsePDFVersion(data[len(pdfMagic):])
	if !ok {
		return fail("无法识别PDF版本号")
	}
	if major < 1 || major > 2 || (major == 2 && minor > 0) {
		return fail(fmt.Sprintf("不支持的PDF版本: %d.%d", major, minor))
	}

	return ValidationResult{OK: true}
}

func fail(reason string) ValidationResult {
	return ValidationResult{OK: false, Reason: reason}
}

// parsePDFVersion 解析文件头中的 "M.N" 版本号
func parsePDFVersion(rest []byte) (major int, minor int, ok bool) {
	dot := bytes.IndexByte(rest, '.')
	if dot <= 0 || dot+1 >= len(rest) {
		return 0, 0, false
	}

	major, err := strconv.Atoi(string(rest[:dot]))
	if err != nil {
		return 0, 0, false
	}

	end := dot + 1
	for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
		end++
	}
	if end == dot+1 {
		return 0, 0, false
	}

	minor, err = strconv.Atoi(string(rest[dot+1 : end]))
	if err != nil {
		return 0, 0, false
	}

	return major, minor, true
}
