package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/trace"

	"resume-optimizer/internal/logger"
	"resume-optimizer/internal/processor"
	"resume-optimizer/internal/storage"
	"resume-optimizer/internal/storage/models"
	"resume-optimizer/internal/tracing"
)

// StartOptimizeConsumers 启动优化任务消费者。
// 每个worker持有独立的channel，并发度由配置的worker数与预取数共同决定。
func (h *OptimizeHandler) StartOptimizeConsumers(ctx context.Context) ([]<-chan struct{}, error) {
	if h.storage.RabbitMQ == nil {
		return nil, fmt.Errorf("RabbitMQ未初始化，无法启动消费者")
	}

	workers := h.cfg.RabbitMQ.OptimizeWorkers
	if workers <= 0 {
		workers = 1
	}
	prefetch := h.cfg.RabbitMQ.PrefetchCount
	if prefetch <= 0 {
		prefetch = 1
	}

	stopChannels := make([]<-chan struct{}, 0, workers)
	for i := 0; i < workers; i++ {
		stopCh, err := h.storage.RabbitMQ.StartConsumer(
			h.cfg.RabbitMQ.OptimizeQueue,
			prefetch,
			func(body []byte) bool {
				return h.consumeOptimizeTask(ctx, body)
			},
		)
		if err != nil {
			return stopChannels, fmt.Errorf("启动第%d个优化消费者失败: %w", i+1, err)
		}
		stopChannels = append(stopChannels, stopCh)
	}

	logger.Info().Int("workers", workers).Int("prefetch", prefetch).
		Str("queue", h.cfg.RabbitMQ.OptimizeQueue).Msg("优化任务消费者已启动")
	return stopChannels, nil
}

// consumeOptimizeTask 处理一条任务消息。
// 返回true表示Ack；瞬态失败返回false触发重新入队。
func (h *OptimizeHandler) consumeOptimizeTask(ctx context.Context, body []byte) bool {
	var msg storage.OptimizeTaskMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		logger.Error().Err(err).Msg("解析任务消息失败，丢弃")
		return true
	}
	if msg.RequestUUID == "" {
		logger.Error().Msg("任务消息缺少请求UUID，丢弃")
		return true
	}

	log := logger.Logger.With().Str("request_uuid", msg.RequestUUID).Logger()
	log.Info().Msg("开始处理优化任务")

	h.markProcessing(ctx, msg.RequestUUID)

	if err := h.runOptimizeTask(ctx, &msg); err != nil {
		// 瞬态错误重新入队，其余标记失败并Ack
		if errors.Is(err, processor.ErrServiceUnavailable) || errors.Is(err, processor.ErrRequestTimeout) {
			log.Warn().Err(err).Msg("优化任务瞬态失败，重新入队")
			tracing.RecordRabbitMQNack(trace.SpanFromContext(ctx), msg.RequestUUID, err.Error())
			h.setJobStatus(ctx, msg.RequestUUID, models.JobStatusPending, err.Error())
			return false
		}

		log.Error().Err(err).Msg("优化任务失败")
		h.markFailed(ctx, msg.RequestUUID, err)
		return true
	}

	log.Info().Msg("优化任务完成")
	return true
}

// runOptimizeTask 拉取原始PDF，执行流水线并落盘结果
func (h *OptimizeHandler) runOptimizeTask(ctx context.Context, msg *storage.OptimizeTaskMessage) error {
	pdfData, err := h.storage.MinIO.GetOriginalPDF(ctx, msg.RequestUUID)
	if err != nil {
		return processor.NewStorageError(msg.RequestUUID, fmt.Sprintf("读取原始PDF失败: %v", err))
	}

	req := &processor.OptimizeRequest{
		RequestUUID:        msg.RequestUUID,
		PDFData:            pdfData,
		JobDescription:     msg.JobDescription,
		IncludeCoverLetter: msg.IncludeCoverLetter,
	}

	result, err := h.pipeline.Process(ctx, req)
	if err != nil {
		return err
	}

	// 结果写入MinIO结果桶
	resultKey, err := h.storage.MinIO.UploadResult(ctx, msg.RequestUUID, result)
	if err != nil {
		return processor.NewStorageError(msg.RequestUUID, fmt.Sprintf("写入结果对象失败: %v", err))
	}

	// 解析文本归档，失败不影响任务结果
	if result.Profile != nil {
		if _, err := h.storage.MinIO.UploadParsedText(ctx, msg.RequestUUID, result.Profile.FullText()); err != nil {
			logger.Warn().Err(err).Str("request_uuid", msg.RequestUUID).Msg("归档解析文本失败")
		}
	}

	if err := h.storage.MySQL.MarkJobCompleted(ctx, msg.RequestUUID, resultKey, result.Fingerprint, result); err != nil {
		return processor.NewStorageError(msg.RequestUUID, fmt.Sprintf("更新任务记录失败: %v", err))
	}

	h.setJobStatus(ctx, msg.RequestUUID, models.JobStatusCompleted, "")
	return nil
}

// markProcessing 将任务标记为处理中
func (h *OptimizeHandler) markProcessing(ctx context.Context, requestUUID string) {
	if h.storage.MySQL != nil {
		if err := h.storage.MySQL.UpdateJobStatus(ctx, requestUUID, models.JobStatusProcessing, ""); err != nil {
			logger.Warn().Err(err).Str("request_uuid", requestUUID).Msg("更新任务状态为处理中失败")
		}
	}
	h.setJobStatus(ctx, requestUUID, models.JobStatusProcessing, "")
}

// markFailed 将任务标记为失败
func (h *OptimizeHandler) markFailed(ctx context.Context, requestUUID string, taskErr error) {
	detail := taskErr.Error()
	if h.storage.MySQL != nil {
		if err := h.storage.MySQL.UpdateJobStatus(ctx, requestUUID, models.JobStatusFailed, detail); err != nil {
			logger.Warn().Err(err).Str("request_uuid", requestUUID).Msg("更新任务状态为失败失败")
		}
	}
	h.setJobStatus(ctx, requestUUID, models.JobStatusFailed, detail)
}
