package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/hertz/pkg/app/server"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"github.com/spf13/pflag"

	"resume-optimizer/internal/agent"
	"resume-optimizer/internal/api/handler"
	"resume-optimizer/internal/api/router"
	"resume-optimizer/internal/config"
	appCoreLogger "resume-optimizer/internal/logger"
	"resume-optimizer/internal/outbox"
	"resume-optimizer/internal/parser"
	"resume-optimizer/internal/processor"
	"resume-optimizer/internal/storage"
	"resume-optimizer/internal/tracing"

	glog "github.com/cloudwego/hertz/pkg/common/hlog"
	hertzadapter "github.com/hertz-contrib/logger/zerolog"
)

var (
	version     = "1.0.0"            //nolint:gochecknoglobals
	serviceName = "resume-optimizer" //nolint:gochecknoglobals
)

// @title Resume Optimizer API
// @version 1.0
// @description Resume document understanding and optimization service.
// @BasePath /api/v1
func main() {
	initLogger()

	var configPath string
	pflag.StringVarP(&configPath, "config", "c", "internal/config/config.yaml", "Path to config file")
	pflag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		glog.Fatalf("加载配置失败: %v", err)
	}
	glog.Info("配置加载成功")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 链路追踪
	shutdownTracing, err := tracing.InitProvider(ctx, tracing.Config{
		Enabled:      cfg.Tracing.Enabled,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		ServiceName:  cfg.Tracing.ServiceName,
		SampleRatio:  cfg.Tracing.SampleRatio,
	})
	if err != nil {
		glog.Fatalf("初始化链路追踪失败: %v", err)
	}
	defer func() {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()
		if err := shutdownTracing(shutdownCtx); err != nil {
			glog.Warnf("关闭链路追踪失败: %v", err)
		}
	}()

	storageManager, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		glog.Fatalf("初始化存储失败: %v", err)
	}
	defer storageManager.Close()
	glog.Info("存储服务初始化成功")

	pipeline, err := buildPipeline(ctx, cfg, storageManager)
	if err != nil {
		glog.Fatalf("装配流水线失败: %v", err)
	}
	glog.Info("优化流水线装配成功")

	optimizeHandler := handler.NewOptimizeHandler(cfg, storageManager, pipeline)

	// 异步消费者
	if storageManager.RabbitMQ != nil {
		if _, err := optimizeHandler.StartOptimizeConsumers(ctx); err != nil {
			glog.Fatalf("启动优化消费者失败: %v", err)
		}
	} else {
		glog.Warn("RabbitMQ未就绪，异步入队路径不可用")
	}

	// 发件箱中继: 把事务内落库的任务消息投递到RabbitMQ
	var messageRelay *outbox.MessageRelay
	if storageManager.MySQL != nil && storageManager.RabbitMQ != nil {
		messageRelay = outbox.NewMessageRelay(storageManager.MySQL.DB(), storageManager.RabbitMQ, log.New(os.Stderr, "[outbox] ", log.LstdFlags))
		messageRelay.Start()
	} else {
		glog.Warn("MySQL或RabbitMQ未就绪，发件箱中继未启动")
	}

	// HTTP服务器
	tracer, tracerCfg := hertztracing.NewServerTracer()
	h := server.New(
		tracer,
		server.WithHostPorts(cfg.Server.Address),
		server.WithHandleMethodNotAllowed(true),
	)
	h.Use(hertztracing.ServerMiddleware(tracerCfg))

	router.RegisterRoutes(h, cfg, optimizeHandler)
	glog.Info("HTTP路由注册成功")

	glog.Infof("HTTP 服务器启动中，监听地址: %s", cfg.Server.Address)
	go func() {
		if err := h.Run(); err != nil {
			glog.Fatalf("启动HTTP服务器失败: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	glog.Info("接收到终止信号，正在优雅退出...")

	if messageRelay != nil {
		messageRelay.Stop()
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := h.Shutdown(shutdownCtx); err != nil {
		glog.Fatalf("服务器关闭失败: %v", err)
	}
	glog.Info("优雅退出完成")
}

// buildPipeline 装配流水线的全部组件
func buildPipeline(ctx context.Context, cfg *config.Config, storageManager *storage.Storage) (*processor.Pipeline, error) {
	// 提取器: Eino直接提取为主策略
	direct, err := parser.NewEinoPDFTextExtractor(ctx)
	if err != nil {
		return nil, err
	}

	debugLogger := func(prefix string) *log.Logger {
		if cfg.Logger.Level == "debug" {
			return log.New(os.Stderr, prefix, log.LstdFlags)
		}
		return log.New(io.Discard, "", 0)
	}

	var aux []parser.ExtractStrategy
	var floor parser.PDFExtractor

	// Tika承担OCR辅助策略与保底提取
	if cfg.Tika.ServerURL != "" {
		tikaOptions := []parser.TikaOption{
			parser.WithMinimalMetadata(true),
			parser.WithOCRStrategy(cfg.Tika.OCRStrategy, cfg.Tika.OCRLanguage),
			parser.WithTikaLogger(debugLogger("[TikaPDF] ")),
		}
		if cfg.Tika.Timeout > 0 {
			tikaOptions = append(tikaOptions, parser.WithTimeout(time.Duration(cfg.Tika.Timeout)*time.Second))
		}
		tika := parser.NewTikaPDFExtractor(cfg.Tika.ServerURL, tikaOptions...)
		aux = append(aux, parser.NewOCRStrategy(tika))
		floor = tika
		glog.Info("Tika OCR策略已启用")
	}

	// 多模态结构分析策略
	if cfg.Aliyun.APIKey != "" && cfg.Aliyun.VisionModel != "" {
		visionModel, err := agent.NewQwenChatModel(cfg.Aliyun.APIKey, cfg.Aliyun.VisionModel, cfg.Aliyun.APIURL)
		if err != nil {
			glog.Warnf("初始化多模态模型失败，跳过视觉策略: %v", err)
		} else {
			analyzer := parser.NewStructuralAnalyzer(visionModel,
				parser.WithAnalyzerLogger(debugLogger("[Vision] ")))
			aux = append(aux, parser.NewVisionStrategy(analyzer))
			glog.Info("多模态结构分析策略已启用")
		}
	}

	superParserOptions := []parser.SuperParserOption{
		parser.WithSuperParserLogger(debugLogger("[SuperParser] ")),
	}
	if cfg.Pipeline.MinTextLength > 0 {
		superParserOptions = append(superParserOptions, parser.WithMinTextLength(cfg.Pipeline.MinTextLength))
	}
	if d := config.GetDuration(cfg.Pipeline.StrategyTimeout, 0); d > 0 {
		superParserOptions = append(superParserOptions, parser.WithStrategyTimeout(d))
	}
	if floor != nil {
		superParserOptions = append(superParserOptions, parser.WithFloorExtractor(floor))
	}
	superParser := parser.NewSuperParser(direct, aux, superParserOptions...)

	// 文本阶段的LLM组件按任务选择模型
	newTaskModel := func(task, fallback string) (model.ToolCallingChatModel, error) {
		name := cfg.GetModelForTask(task)
		if name == "" {
			name = fallback
		}
		return agent.NewQwenChatModel(cfg.Aliyun.APIKey, name, cfg.Aliyun.APIURL)
	}

	cleanModel, err := newTaskModel("clean", cfg.Aliyun.Model)
	if err != nil {
		return nil, err
	}
	jdModel, err := newTaskModel("jd_parse", cfg.Aliyun.Model)
	if err != nil {
		return nil, err
	}

	// 生成模型带熔断保护
	generateOptions := []agent.QwenOption{}
	if cfg.Generator.Temperature > 0 {
		generateOptions = append(generateOptions, agent.WithTemperature(cfg.Generator.Temperature))
	}
	if cfg.Generator.MaxTokens > 0 {
		generateOptions = append(generateOptions, agent.WithMaxTokens(cfg.Generator.MaxTokens))
	}
	generateModelName := cfg.Generator.ModelName
	if generateModelName == "" {
		generateModelName = cfg.Aliyun.Model
	}
	var generateModel model.ToolCallingChatModel
	generateModel, err = agent.NewQwenChatModel(cfg.Aliyun.APIKey, generateModelName, cfg.Aliyun.APIURL, generateOptions...)
	if err != nil {
		return nil, err
	}
	if cfg.Generator.ModelQPM > 0 {
		generateModel = agent.NewRateLimitedModel(generateModel, cfg.Generator.ModelQPM)
	}
	if !cfg.Generator.BreakerDisabled {
		generateModel = agent.NewBreakerModel(generateModel, agent.BreakerConfig{
			Name:         "generator",
			MinRequests:  cfg.Generator.BreakerMinRequests,
			FailureRatio: cfg.Generator.BreakerFailureRatio,
			Cooldown:     time.Duration(cfg.Generator.BreakerCooldownSecs) * time.Second,
		})
	}

	generatorOptions := []processor.GeneratorOption{}
	if cfg.Generator.MaxRetries > 0 {
		generatorOptions = append(generatorOptions, processor.WithGeneratorRetries(cfg.Generator.MaxRetries))
	}
	if cfg.Generator.RetryWaitSeconds > 0 {
		generatorOptions = append(generatorOptions, processor.WithGeneratorRetryWait(time.Duration(cfg.Generator.RetryWaitSeconds)*time.Second))
	}
	if d := config.GetDuration(cfg.Generator.GenerateTimeout, 0); d > 0 {
		generatorOptions = append(generatorOptions, processor.WithGeneratorTimeout(d))
	}
	if cfg.Generator.MinGeneratedTextLen > 0 {
		generatorOptions = append(generatorOptions, processor.WithMinGeneratedLength(cfg.Generator.MinGeneratedTextLen))
	}
	generator := processor.NewDefaultGenerator(generateModel, generatorOptions...)

	// 校验与规整组件
	validatorOptions := []parser.ValidatorOption{}
	if cfg.Pipeline.MaxPDFSizeBytes > 0 {
		validatorOptions = append(validatorOptions, parser.WithMaxSize(cfg.Pipeline.MaxPDFSizeBytes))
	}
	validator := parser.NewPDFValidator(validatorOptions...)

	gibberish := parser.NewGibberishDetector(parser.WithGibberishThresholds(
		cfg.Pipeline.Gibberish.MinDocLength,
		cfg.Pipeline.Gibberish.LineCharRatio,
		cfg.Pipeline.Gibberish.MinLineChars,
		cfg.Pipeline.Gibberish.BadLineRatio,
	))

	contentValidatorOptions := []parser.ContentValidatorOption{}
	if cfg.Generator.ContentValidateLimit > 0 {
		contentValidatorOptions = append(contentValidatorOptions, parser.WithMaxWarnings(cfg.Generator.ContentValidateLimit))
	}

	// 结果缓存
	var cache processor.ResultCache
	if storageManager.Redis != nil {
		cache = storage.NewGenerationCache(storageManager.Redis)
	}

	pipelineOptions := []processor.PipelineOption{}
	if d := config.GetDuration(cfg.Pipeline.RequestBudget, 0); d > 0 {
		pipelineOptions = append(pipelineOptions, processor.WithRequestBudget(d))
	}
	if d := config.GetDuration(cfg.Pipeline.GenerationMargin, 0); d > 0 {
		pipelineOptions = append(pipelineOptions, processor.WithGenerationMargin(d))
	}

	return processor.NewPipeline(
		validator,
		superParser,
		parser.NewNormalizer(),
		parser.NewResumeCleaner(cleanModel),
		gibberish,
		parser.NewPlaceholderDetector(),
		parser.NewExperienceCalculator(),
		parser.NewJDParser(jdModel),
		parser.NewContentValidator(contentValidatorOptions...),
		parser.NewResumeScorer(),
		cache,
		generator,
		pipelineOptions...,
	), nil
}

func initLogger() {
	consoleWriter := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
	}

	var writers []io.Writer
	writers = append(writers, consoleWriter)

	// 日志文件可选，打不开时只写控制台
	if fileWriter, err := os.OpenFile("logs/app.log", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644); err == nil {
		writers = append(writers, fileWriter)
	}

	multiWriter := zerolog.MultiLevelWriter(writers...)

	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	zerolog.TimeFieldFormat = "15:04:05"

	appLogger := zerolog.New(multiWriter).With().Timestamp().Caller().
		Str("app", serviceName).
		Str("version", version).
		Logger()

	appCoreLogger.Logger = appLogger
	zlog.Logger = appLogger

	// Hertz的日志也接到同一个zerolog实例
	hertzCompatibleLogger := hertzadapter.From(appCoreLogger.Logger)
	glog.SetLogger(hertzCompatibleLogger)
	glog.SetLevel(glog.LevelInfo)
}
