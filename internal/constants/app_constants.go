package constants

import "time"

const (
	// DefaultPipelineVer 写入任务记录的流水线版本号
	DefaultPipelineVer = "1.0"

	// MaxPDFSizeBytes PDF上传体积上限 (10 MiB)
	MaxPDFSizeBytes = 10 * 1024 * 1024

	// MinParsedTextLen 解析文本的最低内容阈值，低于该值视为不可读文档
	MinParsedTextLen = 50

	// MinJobDescriptionLen 职位描述的最短长度
	MinJobDescriptionLen = 50
	// MaxJobDescriptionLen 职位描述的最长长度
	MaxJobDescriptionLen = 20000

	// GenerationCacheDuration 生成结果缓存的过期时间
	GenerationCacheDuration = 24 * time.Hour
)
