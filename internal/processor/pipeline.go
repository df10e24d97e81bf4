package processor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"resume-optimizer/internal/agent"
	"resume-optimizer/internal/constants"
	"resume-optimizer/internal/logger"
	"resume-optimizer/internal/parser"
	"resume-optimizer/internal/tracing"
	"resume-optimizer/internal/types"
)

// OptimizeRequest 一次优化请求的入参
type OptimizeRequest struct {
	RequestUUID        string
	PDFData            []byte
	JobDescription     string
	IncludeCoverLetter bool
}

// Pipeline 文档理解与优化流水线。
// 按请求无状态地执行: 校验 -> 多策略提取 -> 规范化 -> AI清洗 ->
// 乱码闸门 -> 缓存查询 -> 岗位解析/经验锚点 -> 生成 -> 占位符剥离 ->
// 内容校验 -> 评分 -> 缓存写入。跨请求共享的只有缓存。
type Pipeline struct {
	validator        *parser.PDFValidator
	docParser        DocumentParser
	normalizer       ProfileNormalizer
	cleaner          ProfileCleaner
	gibberish        CorruptionDetector
	placeholders     PlaceholderChecker
	experience       ExperienceEstimator
	posting          PostingParser
	outputValidator  OutputValidator
	scorer           Scorer
	cache            ResultCache
	generator        ResumeGenerator
	requestBudget    time.Duration
	generationMargin time.Duration
	tracer           trace.Tracer
}

// PipelineOption 流水线配置选项
type PipelineOption func(*Pipeline)

// WithRequestBudget 设置整个请求的墙钟预算
func WithRequestBudget(d time.Duration) PipelineOption {
	return func(p *Pipeline) {
		if d > 0 {
			p.requestBudget = d
		}
	}
}

// WithGenerationMargin 设置进入生成阶段前要求的剩余预算。
// 剩余时间不足时快进失败，而不是闯进一个大概率超时的阶段。
func WithGenerationMargin(d time.Duration) PipelineOption {
	return func(p *Pipeline) {
		if d > 0 {
			p.generationMargin = d
		}
	}
}

// NewPipeline 装配流水线，全部阶段依赖显式注入
func NewPipeline(
	validator *parser.PDFValidator,
	docParser DocumentParser,
	normalizer ProfileNormalizer,
	cleaner ProfileCleaner,
	gibberish CorruptionDetector,
	placeholders PlaceholderChecker,
	experience ExperienceEstimator,
	posting PostingParser,
	outputValidator OutputValidator,
	scorer Scorer,
	cache ResultCache,
	generator ResumeGenerator,
	options ...PipelineOption,
) *Pipeline {
	p := &Pipeline{
		validator:        validator,
		docParser:        docParser,
		normalizer:       normalizer,
		cleaner:          cleaner,
		gibberish:        gibberish,
		placeholders:     placeholders,
		experience:       experience,
		posting:          posting,
		outputValidator:  outputValidator,
		scorer:           scorer,
		cache:            cache,
		generator:        generator,
		requestBudget:    120 * time.Second,
		generationMargin: 20 * time.Second,
		tracer:           otel.Tracer("resume-optimizer/pipeline"),
	}
	for _, option := range options {
		option(p)
	}
	return p
}

// Fingerprint 缓存键: 规范化简历全文+净化后岗位描述的SHA-256。
// 排版噪音在规范化时已经消除，语义变化必然产生新键。
func Fingerprint(normalizedText string, sanitizedJD string) string {
	h := sha256.New()
	h.Write([]byte(normalizedText))
	h.Write([]byte{0})
	h.Write([]byte(sanitizedJD))
	return hex.EncodeToString(h.Sum(nil))
}

// SanitizeJobDescription 岗位描述净化: 统一换行、去控制字符、裁剪首尾空白
func SanitizeJobDescription(jd string) string {
	jd = strings.ReplaceAll(jd, "\r\n", "\n")
	var sb strings.Builder
	for _, r := range jd {
		if r == '\n' || r == '\t' || r >= 0x20 {
			sb.WriteRune(r)
		}
	}
	return strings.TrimSpace(sb.String())
}

// Process 执行一次完整的优化请求
func (p *Pipeline) Process(ctx context.Context, req *OptimizeRequest) (*types.OptimizeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, p.requestBudget)
	defer cancel()

	ctx, span := p.tracer.Start(ctx, "pipeline.Process",
		trace.WithAttributes(attribute.String("request.uuid", req.RequestUUID)))
	defer span.End()

	log := logger.Logger.With().Str("request_uuid", req.RequestUUID).Logger()

	// 1. 输入校验
	jd := SanitizeJobDescription(req.JobDescription)
	if len(jd) < constants.MinJobDescriptionLen {
		return nil, NewInputError(req.RequestUUID,
			fmt.Sprintf("岗位描述过短(%d字符，至少%d)", len(jd), constants.MinJobDescriptionLen))
	}
	if len(jd) > constants.MaxJobDescriptionLen {
		return nil, NewInputError(req.RequestUUID,
			fmt.Sprintf("岗位描述过长(%d字符，至多%d)", len(jd), constants.MaxJobDescriptionLen))
	}
	if result := p.validator.Validate(req.PDFData); !result.OK {
		return nil, NewInputError(req.RequestUUID, result.Reason)
	}

	// 2. 多策略提取
	artifact, err := p.parseDocument(ctx, req)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeParse)
		return nil, err
	}
	log.Info().
		Int("text_len", len(artifact.Text)).
		Bool("has_structure", artifact.Structure != nil).
		Bool("has_ocr", artifact.OCRText != "").
		Msg("文档提取完成")

	// 3. 规范化 + AI清洗
	profile, err := p.normalizer.Normalize(artifact.Text)
	if err != nil {
		return nil, NewUnreadableError(req.RequestUUID, err.Error())
	}
	profile = p.cleaner.CleanProfile(ctx, profile)

	// 4. 乱码闸门
	normalizedText := profile.FullText()
	if p.gibberish.IsGibberish(normalizedText) {
		return nil, NewUnreadableError(req.RequestUUID, "提取的文本以重复字符为主，疑似无法解码")
	}

	// 5. 缓存查询。残留占位符的缓存产物按未命中处理。
	fingerprint := Fingerprint(normalizedText, jd)
	span.SetAttributes(attribute.String("cache.fingerprint", tracing.TruncateString(fingerprint, 16)))
	if cached := p.cacheLookup(ctx, fingerprint); cached != nil {
		log.Info().Msg("缓存命中")
		hit := *cached
		hit.RequestUUID = req.RequestUUID
		hit.Cached = true
		hit.Fingerprint = fingerprint
		return &hit, nil
	}

	// 6. 岗位解析与经验锚点
	posting := p.posting.ParsePosting(ctx, jd)
	keywords := p.posting.ExtractKeywords(jd)
	experience := p.experience.Calculate(profile.SectionOrDefault(types.SectionExperience))
	log.Debug().
		Float64("total_years", experience.TotalYears).
		Int("keywords", len(keywords)).
		Msg("生成前置分析完成")

	// 7. 预算检查: 进入最贵的阶段前确认还有足够余量
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < p.generationMargin {
		return nil, NewTimeoutError(req.RequestUUID, "pre-generation")
	}

	// 8. 生成
	input := &GenerationInput{
		Profile:        profile,
		Posting:        posting,
		Keywords:       keywords,
		Experience:     experience,
		Artifact:       artifact,
		JobDescription: jd,
	}

	resumeText, err := p.generator.GenerateResume(ctx, input)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeGeneration)
		return nil, p.mapGenerationError(req.RequestUUID, err)
	}

	// 9. 占位符剥离 + 生成后乱码检查(晚期失败也必须硬失败)
	resumeText = p.placeholders.Strip(resumeText)
	if p.gibberish.IsGibberish(resumeText) {
		return nil, NewCorruptedOutputError(req.RequestUUID, "生成文本判定为乱码")
	}

	// 10. 内容溯源校验，只告警不回滚
	warnings := p.outputValidator.Validate(resumeText, normalizedText+"\n"+jd)
	for _, w := range warnings {
		log.Warn().
			Str("field", w.Field).
			Str("claim", tracing.SafeResumeContent(w.Claim)).
			Str("reason", w.Reason).
			Msg("内容溯源告警")
	}

	// 11. 求职信(可选，失败不致命)
	coverLetter := ""
	if req.IncludeCoverLetter {
		coverLetter, err = p.generator.GenerateCoverLetter(ctx, input, resumeText)
		if err != nil {
			log.Warn().Err(err).Msg("求职信生成失败，继续返回简历")
			coverLetter = ""
		} else {
			coverLetter = p.placeholders.Strip(coverLetter)
		}
	}

	// 12. 评分: 源简历与生成简历各算一次，互不合并
	sourceScore := p.scorer.Score(assembleSourceText(profile))
	generatedScore := p.scorer.Score(resumeText)

	result := &types.OptimizeResult{
		RequestUUID:    req.RequestUUID,
		ResumeText:     resumeText,
		CoverLetter:    coverLetter,
		Profile:        profile,
		SourceScore:    sourceScore,
		GeneratedScore: generatedScore,
		Experience:     experience,
		Posting:        posting,
		Keywords:       keywords,
		Warnings:       warnings,
		Cached:         false,
		Fingerprint:    fingerprint,
	}

	// 13. 缓存写入，失败只记日志
	if p.cache != nil {
		if err := p.cache.Put(ctx, fingerprint, result); err != nil {
			log.Warn().Err(err).Msg("缓存写入失败")
		}
	}

	log.Info().
		Int("score_source", sourceScore.Score).
		Int("score_generated", generatedScore.Score).
		Msg("优化请求完成")
	return result, nil
}

// parseDocument 执行提取编排并归类错误
func (p *Pipeline) parseDocument(ctx context.Context, req *OptimizeRequest) (*types.ParsedArtifact, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.parseDocument")
	defer span.End()

	artifact, err := p.docParser.Parse(ctx, req.PDFData)
	if err != nil {
		// 预算耗尽或请求取消导致的全策略失败不是文档的问题
		if ctx.Err() != nil {
			return nil, NewTimeoutError(req.RequestUUID, "parse")
		}
		if errors.Is(err, parser.ErrUnreadableDocument) {
			return nil, NewUnreadableError(req.RequestUUID, err.Error())
		}
		return nil, NewUnreadableError(req.RequestUUID, fmt.Sprintf("文档解析失败: %v", err))
	}
	return artifact, nil
}

// cacheLookup 缓存读取是建议性的，任何失败都按未命中处理
func (p *Pipeline) cacheLookup(ctx context.Context, fingerprint string) *types.OptimizeResult {
	if p.cache == nil {
		return nil
	}
	cached, err := p.cache.Get(ctx, fingerprint)
	if err != nil {
		logger.Warn().Err(err).Msg("缓存读取失败，按未命中处理")
		return nil
	}
	if cached == nil {
		return nil
	}
	if p.placeholders.HasPlaceholders(cached.ResumeText) {
		logger.Warn().Msg("缓存产物含占位符残留，按未命中处理")
		return nil
	}
	return cached
}

// mapGenerationError 把生成阶段的错误映射到对外错误分类。
// 配额耗尽对调用方和瞬时错误一样是"稍后重试"，只是进程内不消耗重试次数。
func (p *Pipeline) mapGenerationError(uuid string, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return NewTimeoutError(uuid, "generate")
	case errors.Is(err, agent.ErrBreakerOpen),
		errors.Is(err, agent.ErrQuotaExceeded),
		agent.IsTransient(err):
		return NewUnavailableError(uuid, err.Error())
	default:
		return &PipelineError{RequestUUID: uuid, Stage: "generate", BaseErr: ErrCorruptedOutput, Detail: err.Error()}
	}
}

// assembleSourceText 联系块+正文，用于给源简历评分
func assembleSourceText(profile *types.NormalizedProfile) string {
	var sb strings.Builder
	if profile.Name != "" {
		sb.WriteString(profile.Name + "\n")
	}
	var contact []string
	if profile.Email != "" {
		contact = append(contact, profile.Email)
	}
	if profile.Phone != "" {
		contact = append(contact, profile.Phone)
	}
	if profile.LinkedIn != "" {
		contact = append(contact, profile.LinkedIn)
	}
	if len(contact) > 0 {
		sb.WriteString(strings.Join(contact, " | ") + "\n")
	}
	sb.WriteString("\n")
	sb.WriteString(profile.FullText())
	return sb.String()
}
