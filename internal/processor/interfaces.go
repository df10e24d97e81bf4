package processor

import (
	"context"

	"resume-optimizer/internal/types"
)

//
// 流水线对外依赖的边界契约。
// 流水线只依赖这些接口，具体实现(parser、storage)在装配时注入，
// 测试用桩实现替换。
//

// DocumentParser 多策略文档提取编排
type DocumentParser interface {
	// Parse 从原始PDF字节产出带非空Text的ParsedArtifact，
	// 全部策略失败时返回不可读错误
	Parse(ctx context.Context, data []byte) (*types.ParsedArtifact, error)
}

// ProfileNormalizer 文本到规范化画像
type ProfileNormalizer interface {
	Normalize(text string) (*types.NormalizedProfile, error)
}

// ProfileCleaner AI文本修复，失败时原样放行
type ProfileCleaner interface {
	CleanProfile(ctx context.Context, profile *types.NormalizedProfile) *types.NormalizedProfile
}

// CorruptionDetector 乱码判定
type CorruptionDetector interface {
	IsGibberish(text string) bool
}

// PlaceholderChecker 模板残留的判定与剥离
type PlaceholderChecker interface {
	HasPlaceholders(text string) bool
	Strip(text string) string
}

// ExperienceEstimator 经验年限锚点
type ExperienceEstimator interface {
	Calculate(experienceText string) *types.ExperienceEstimate
}

// PostingParser 岗位描述解析与关键词提取
type PostingParser interface {
	ParsePosting(ctx context.Context, jdText string) *types.JobPosting
	ExtractKeywords(jdText string) []string
}

// OutputValidator 生成内容的溯源校验
type OutputValidator interface {
	Validate(generated string, source string) []types.ContentWarning
}

// Scorer ATS友好度评分
type Scorer interface {
	Score(resumeText string) *types.ResumeScore
}

// ResultCache 生成结果缓存。get未命中不是错误，put失败不致命。
type ResultCache interface {
	// Get 按指纹读取缓存结果，未命中返回(nil, nil)
	Get(ctx context.Context, fingerprint string) (*types.OptimizeResult, error)

	// Put 写入缓存结果
	Put(ctx context.Context, fingerprint string, result *types.OptimizeResult) error
}

// ResumeGenerator 最终生成阶段: 提示词组装+补全调用+求职信
type ResumeGenerator interface {
	// GenerateResume 依据画像、岗位与经验约束生成优化后的简历文本
	GenerateResume(ctx context.Context, input *GenerationInput) (string, error)

	// GenerateCoverLetter 生成求职信，失败返回错误由调用方决定是否忽略
	GenerateCoverLetter(ctx context.Context, input *GenerationInput, resumeText string) (string, error)
}

// GenerationInput 生成阶段的全部输入
type GenerationInput struct {
	Profile    *types.NormalizedProfile
	Posting    *types.JobPosting
	Keywords   []string
	Experience *types.ExperienceEstimate
	// 辅助产物，交叉引用用
	Artifact *types.ParsedArtifact
	// 原始岗位描述文本
	JobDescription string
}
