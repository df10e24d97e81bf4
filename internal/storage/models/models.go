package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// 异步优化任务的处理状态
const (
	JobStatusPending    = "PENDING"
	JobStatusProcessing = "PROCESSING"
	JobStatusCompleted  = "COMPLETED"
	JobStatusFailed     = "FAILED"
)

// OptimizeJob 优化任务记录表
// 每次异步提交对应一行，记录输入产物位置、处理状态和结果位置
type OptimizeJob struct {
	RequestUUID string `gorm:"type:char(36);primaryKey"`
	// 输入
	OriginalFilename   string `gorm:"type:varchar(255)"`
	OriginalObjectKey  string `gorm:"type:varchar(1024)"`
	ParsedTextKey      string `gorm:"type:varchar(1024)"`
	RawFileMD5         string `gorm:"type:char(32);index:idx_oj_raw_file_md5"`
	JobDescriptionText string `gorm:"type:text"`
	IncludeCoverLetter bool   `gorm:"default:false"`
	// 处理过程
	Status          string `gorm:"type:varchar(50);default:'PENDING';index:idx_oj_status"`
	PipelineVersion string `gorm:"type:varchar(50)"`
	Fingerprint     string `gorm:"type:char(64);index:idx_oj_fingerprint"`
	WinningStrategy string `gorm:"type:varchar(50)"`
	ErrorDetail     string `gorm:"type:text"`
	// 结果
	ResultObjectKey string         `gorm:"type:varchar(1024)"`
	ATSScore        *int           `gorm:"type:int"`
	ATSGrade        string         `gorm:"type:varchar(5)"`
	ScoreDetailJSON datatypes.JSON `gorm:"type:json"`
	WarningsJSON    datatypes.JSON `gorm:"type:json"`
	Cached          bool           `gorm:"default:false"`
	// 时间
	SubmittedAt time.Time  `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);index:idx_oj_submitted_at"`
	CompletedAt *time.Time `gorm:"type:datetime(6)"`
	CreatedAt   time.Time  `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt   time.Time  `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (OptimizeJob) TableName() string {
	return "optimize_jobs"
}

// 发件箱消息状态
const (
	OutboxStatusPending = "PENDING"
	OutboxStatusSent    = "SENT"
	OutboxStatusFailed  = "FAILED"
)

// OutboxMessage 发件箱表
// 任务记录与待发消息在同一事务内落库，由中继服务轮询发布
type OutboxMessage struct {
	ID               uint64     `gorm:"primaryKey;autoIncrement"`
	AggregateType    string     `gorm:"type:varchar(100);not null"`
	AggregateID      string     `gorm:"type:char(36);not null;index:idx_outbox_aggregate_id"`
	EventType        string     `gorm:"type:varchar(100);not null"`
	Payload          string     `gorm:"type:text;not null"`
	TargetExchange   string     `gorm:"type:varchar(255);not null"`
	TargetRoutingKey string     `gorm:"type:varchar(255);not null"`
	Status           string     `gorm:"type:varchar(50);default:'PENDING';index:idx_outbox_status"`
	RetryCount       int        `gorm:"default:0"`
	ErrorMessage     string     `gorm:"type:text"`
	CreatedAt        time.Time  `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);index:idx_outbox_created_at"`
	ProcessedAt      *time.Time `gorm:"type:datetime(6)"`
}

func (OutboxMessage) TableName() string {
	return "outbox_messages"
}

// MapToJSON 将map转换为datatypes.JSON
func MapToJSON(m map[string]interface{}) (datatypes.JSON, error) {
	bytes, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return bytes, nil
}

// SliceToJSON 将任意切片转换为datatypes.JSON
func SliceToJSON(v interface{}) (datatypes.JSON, error) {
	bytes, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return bytes, nil
}
