package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrorType 按流水线阶段划分的错误分类，便于在追踪后端过滤
type ErrorType string

const (
	// ErrorTypeValidation 输入校验错误(岗位描述、PDF头)
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeParse 文档提取错误(全策略失败、乱码)
	ErrorTypeParse ErrorType = "parse"
	// ErrorTypeGeneration 补全服务错误(限流、配额、熔断)
	ErrorTypeGeneration ErrorType = "generation"
	// ErrorTypeStorage 存储错误(MySQL、MinIO、Redis)
	ErrorTypeStorage ErrorType = "storage"
	// ErrorTypeMessaging 消息队列错误
	ErrorTypeMessaging ErrorType = "messaging"
)

// RecordError 记录错误，统一附加错误分类与详情
func RecordError(span trace.Span, err error, errorType ErrorType) {
	if span == nil || err == nil {
		return
	}

	span.RecordError(err)
	span.SetAttributes(
		attribute.String("error.type", string(errorType)),
		attribute.String("error.message", err.Error()),
	)
	span.SetStatus(codes.Error, err.Error())
}

// RecordRabbitMQNack 记录任务消息被拒绝重新入队
func RecordRabbitMQNack(span trace.Span, messageID string, reason string) {
	if span == nil {
		return
	}

	errMsg := "message not acknowledged"
	if reason != "" {
		errMsg = reason
	}

	span.SetAttributes(
		attribute.String("error.type", string(ErrorTypeMessaging)),
		attribute.String("error.message", errMsg),
		attribute.String("messaging.message_id", messageID),
		attribute.String("messaging.error_type", "nack"),
	)
	span.SetStatus(codes.Error, errMsg)
}
