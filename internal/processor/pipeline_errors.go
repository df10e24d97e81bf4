package processor

import (
	"errors"
	"fmt"
)

// 流水线错误分类。
// 输入类错误用户可自行纠正; 不可读文档单独成类，
// 调用方据此建议重新导出文本型PDF; 瞬时错误重试耗尽后
// 表现为"暂时不可用，请稍后重试"。
var (
	ErrInvalidInput       = errors.New("输入校验失败")
	ErrUnreadableDocument = errors.New("文档不可读，可能是图片型PDF")
	ErrServiceUnavailable = errors.New("生成服务暂时不可用，请稍后重试")
	ErrCorruptedOutput    = errors.New("生成结果校验失败")
	ErrRequestTimeout     = errors.New("请求处理超时")
	ErrStorageFailed      = errors.New("存储操作失败")
	ErrPublishFailed      = errors.New("发布优化任务消息失败")
)

// PipelineError 携带请求上下文的流水线错误
type PipelineError struct {
	RequestUUID string
	Stage       string
	BaseErr     error
	Detail      string
}

func (e *PipelineError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (阶段:%s, UUID:%s): %s", e.BaseErr, e.Stage, e.RequestUUID, e.Detail)
	}
	return fmt.Sprintf("%s (阶段:%s, UUID:%s)", e.BaseErr, e.Stage, e.RequestUUID)
}

func (e *PipelineError) Unwrap() error {
	return e.BaseErr
}

// Is 实现errors.Is以支持按基础错误比较
func (e *PipelineError) Is(target error) bool {
	return errors.Is(e.BaseErr, target)
}

// 错误构造函数

func NewInputError(uuid, detail string) error {
	return &PipelineError{RequestUUID: uuid, Stage: "validate", BaseErr: ErrInvalidInput, Detail: detail}
}

func NewUnreadableError(uuid, detail string) error {
	return &PipelineError{RequestUUID: uuid, Stage: "parse", BaseErr: ErrUnreadableDocument, Detail: detail}
}

func NewUnavailableError(uuid, detail string) error {
	return &PipelineError{RequestUUID: uuid, Stage: "generate", BaseErr: ErrServiceUnavailable, Detail: detail}
}

func NewCorruptedOutputError(uuid, detail string) error {
	return &PipelineError{RequestUUID: uuid, Stage: "postcheck", BaseErr: ErrCorruptedOutput, Detail: detail}
}

func NewTimeoutError(uuid, stage string) error {
	return &PipelineError{RequestUUID: uuid, Stage: stage, BaseErr: ErrRequestTimeout}
}

func NewStorageError(uuid, detail string) error {
	return &PipelineError{RequestUUID: uuid, Stage: "storage", BaseErr: ErrStorageFailed, Detail: detail}
}

func NewPublishError(uuid, detail string) error {
	return &PipelineError{RequestUUID: uuid, Stage: "publish", BaseErr: ErrPublishFailed, Detail: detail}
}
