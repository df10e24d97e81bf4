package handler

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/gofrs/uuid/v5"
	"gorm.io/gorm"

	"resume-optimizer/internal/config"
	"resume-optimizer/internal/logger"
	"resume-optimizer/internal/processor"
	"resume-optimizer/internal/storage"
	"resume-optimizer/internal/storage/models"
	"resume-optimizer/internal/types"
)

// OptimizeHandler 优化请求处理器，协调同步与异步两条路径
type OptimizeHandler struct {
	cfg      *config.Config
	storage  *storage.Storage
	pipeline *processor.Pipeline
}

// NewOptimizeHandler 创建优化请求处理器
func NewOptimizeHandler(cfg *config.Config, st *storage.Storage, pipeline *processor.Pipeline) *OptimizeHandler {
	return &OptimizeHandler{
		cfg:      cfg,
		storage:  st,
		pipeline: pipeline,
	}
}

// AsyncSubmitResponse 异步提交响应
type AsyncSubmitResponse struct {
	RequestUUID string `json:"request_uuid"`
	Status      string `json:"status"`
}

// JobStatusResponse 任务状态查询响应
type JobStatusResponse struct {
	RequestUUID string                `json:"request_uuid"`
	Status      string                `json:"status"`
	Detail      string                `json:"detail,omitempty"`
	Result      *types.OptimizeResult `json:"result,omitempty"`
}

// HandleOptimizeSync 同步处理一次优化请求
func (h *OptimizeHandler) HandleOptimizeSync(ctx context.Context, pdfData []byte, jobDescription string, includeCoverLetter bool) (*types.OptimizeResult, error) {
	uuidV7, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("生成UUIDv7失败: %w", err)
	}

	req := &processor.OptimizeRequest{
		RequestUUID:        uuidV7.String(),
		PDFData:            pdfData,
		JobDescription:     jobDescription,
		IncludeCoverLetter: includeCoverLetter,
	}
	return h.pipeline.Process(ctx, req)
}

// HandleOptimizeAsync 接收异步提交: 去重、落盘、建任务记录并投递消息
func (h *OptimizeHandler) HandleOptimizeAsync(ctx context.Context, pdfData []byte, filename, jobDescription string, includeCoverLetter bool) (*AsyncSubmitResponse, error) {
	if h.storage.MinIO == nil || h.storage.RabbitMQ == nil || h.storage.MySQL == nil {
		return nil, processor.NewUnavailableError("", "异步处理依赖未就绪")
	}

	// 原始文件MD5去重
	sum := md5.Sum(pdfData)
	fileMD5Hex := hex.EncodeToString(sum[:])

	if h.storage.Redis != nil {
		exists, err := h.storage.Redis.CheckRawFileMD5Exists(ctx, fileMD5Hex)
		if err != nil {
			logger.Error().Err(err).Str("md5", fileMD5Hex).Msg("查询文件MD5去重集合失败")
			return nil, fmt.Errorf("检查文件MD5重复性失败: %w", err)
		}
		if exists {
			// 已处理过的文件直接指向历史任务
			if prior, err := h.storage.MySQL.FindJobByRawFileMD5(ctx, fileMD5Hex); err == nil && prior != nil {
				logger.Info().Str("md5", fileMD5Hex).Str("filename", filename).
					Str("prior_uuid", prior.RequestUUID).Msg("检测到重复文件，复用历史任务")
				return &AsyncSubmitResponse{
					RequestUUID: prior.RequestUUID,
					Status:      "DUPLICATE_FILE",
				}, nil
			}
			logger.Info().Str("md5", fileMD5Hex).Str("filename", filename).Msg("检测到重复文件MD5，跳过处理")
			return &AsyncSubmitResponse{Status: "DUPLICATE_FILE_SKIPPED"}, nil
		}
	}

	uuidV7, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("生成UUIDv7失败: %w", err)
	}
	requestUUID := uuidV7.String()

	// 上传原始PDF到MinIO
	objectKey, _, err := h.storage.MinIO.UploadOriginalPDF(ctx, requestUUID, bytes.NewReader(pdfData), int64(len(pdfData)))
	if err != nil {
		return nil, processor.NewStorageError(requestUUID, err.Error())
	}

	// MinIO上传成功后记录MD5。写入失败只记日志，去重在下次提交时仍有机会生效。
	if h.storage.Redis != nil {
		if err := h.storage.Redis.AddRawFileMD5(ctx, fileMD5Hex); err != nil {
			logger.Warn().Err(err).Str("md5", fileMD5Hex).Str("object_key", objectKey).
				Msg("记录文件MD5失败，文件已上传到MinIO")
		}
	}

	// 任务记录与待发消息在同一事务内落库，消息由发件箱中继投递
	now := time.Now()
	job := &models.OptimizeJob{
		RequestUUID:        requestUUID,
		OriginalFilename:   filename,
		OriginalObjectKey:  objectKey,
		RawFileMD5:         fileMD5Hex,
		JobDescriptionText: jobDescription,
		IncludeCoverLetter: includeCoverLetter,
		Status:             models.JobStatusPending,
		PipelineVersion:    h.cfg.ActivePipelineVersion,
		SubmittedAt:        now,
	}

	msg := &storage.OptimizeTaskMessage{
		RequestUUID:        requestUUID,
		OriginalObjectKey:  objectKey,
		JobDescription:     jobDescription,
		IncludeCoverLetter: includeCoverLetter,
		SubmittedAt:        now.Format(time.RFC3339),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, processor.NewStorageError(requestUUID, err.Error())
	}
	outboxMsg := &models.OutboxMessage{
		AggregateType:    "optimize_job",
		AggregateID:      requestUUID,
		EventType:        "resume.optimize.requested",
		Payload:          string(payload),
		TargetExchange:   h.cfg.RabbitMQ.OptimizeExchange,
		TargetRoutingKey: h.cfg.RabbitMQ.OptimizeRoutingKey,
		Status:           models.OutboxStatusPending,
	}

	err = h.storage.MySQL.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(job).Error; err != nil {
			return err
		}
		return tx.Create(outboxMsg).Error
	})
	if err != nil {
		return nil, processor.NewStorageError(requestUUID, err.Error())
	}

	h.setJobStatus(ctx, requestUUID, models.JobStatusPending, "")

	return &AsyncSubmitResponse{
		RequestUUID: requestUUID,
		Status:      "SUBMITTED_FOR_PROCESSING",
	}, nil
}

// HandleJobStatus 查询异步任务状态，已完成时附带结果
func (h *OptimizeHandler) HandleJobStatus(ctx context.Context, requestUUID string) (*JobStatusResponse, error) {
	if requestUUID == "" {
		return nil, processor.NewInputError("", "请求UUID不能为空")
	}

	resp := &JobStatusResponse{RequestUUID: requestUUID}

	// 先查Redis里的状态快照
	if h.storage.Redis != nil {
		if status, err := h.storage.Redis.GetJobStatus(ctx, requestUUID); err == nil && status != nil {
			resp.Status = status.Status
			resp.Detail = status.Detail
		}
	}

	// MySQL是权威记录
	if h.storage.MySQL != nil {
		job, err := h.storage.MySQL.GetOptimizeJob(ctx, requestUUID)
		if err != nil {
			return nil, fmt.Errorf("查询任务记录失败: %w", err)
		}
		if job == nil && resp.Status == "" {
			return nil, processor.NewInputError(requestUUID, "任务不存在")
		}
		if job != nil {
			resp.Status = job.Status
			if job.ErrorDetail != "" {
				resp.Detail = job.ErrorDetail
			}
			if job.Status == models.JobStatusCompleted && h.storage.MinIO != nil {
				result, err := h.storage.MinIO.GetResult(ctx, requestUUID)
				if err != nil {
					logger.Warn().Err(err).Str("request_uuid", requestUUID).Msg("读取结果对象失败")
				} else {
					resp.Result = result
				}
			}
		}
	}

	if resp.Status == "" {
		return nil, processor.NewInputError(requestUUID, "任务不存在")
	}
	return resp, nil
}

// setJobStatus 同时更新Redis快照，失败只记日志
func (h *OptimizeHandler) setJobStatus(ctx context.Context, requestUUID, status, detail string) {
	if h.storage.Redis == nil {
		return
	}
	err := h.storage.Redis.SetJobStatus(ctx, &storage.JobStatus{
		RequestUUID: requestUUID,
		Status:      status,
		Detail:      detail,
	})
	if err != nil {
		logger.Warn().Err(err).Str("request_uuid", requestUUID).Msg("更新任务状态快照失败")
	}
}

// StatusCodeFor 将流水线错误映射为HTTP状态码
func StatusCodeFor(err error) int {
	switch {
	case errors.Is(err, processor.ErrInvalidInput):
		return consts.StatusBadRequest
	case errors.Is(err, processor.ErrUnreadableDocument):
		return consts.StatusUnprocessableEntity
	case errors.Is(err, processor.ErrServiceUnavailable):
		return consts.StatusServiceUnavailable
	case errors.Is(err, processor.ErrRequestTimeout):
		return consts.StatusGatewayTimeout
	case errors.Is(err, processor.ErrCorruptedOutput):
		return consts.StatusInternalServerError
	default:
		return consts.StatusInternalServerError
	}
}
