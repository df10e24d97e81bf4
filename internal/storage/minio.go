package storage

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/lifecycle"

	"resume-optimizer/internal/config"
	"resume-optimizer/internal/types"
)

// ObjectStorage 对象存储接口
type ObjectStorage interface {
	// 通用操作
	UploadFile(ctx context.Context, bucket, objectName string, reader io.Reader, fileSize int64, contentType string) (string, error)
	DownloadFile(ctx context.Context, bucket, objectName string) ([]byte, error)
	GetPresignedURL(ctx context.Context, bucket, objectName string, expiry time.Duration) (string, error)
	DeleteFile(ctx context.Context, bucket, objectName string) error

	// 优化任务的领域操作
	UploadOriginalPDF(ctx context.Context, requestUUID string, reader io.Reader, fileSize int64) (string, string, error)
	GetOriginalPDF(ctx context.Context, requestUUID string) ([]byte, error)
	UploadParsedText(ctx context.Context, requestUUID string, text string) (string, error)
	GetParsedText(ctx context.Context, requestUUID string) (string, error)
	UploadResult(ctx context.Context, requestUUID string, result *types.OptimizeResult) (string, error)
	GetResult(ctx context.Context, requestUUID string) (*types.OptimizeResult, error)
}

// 确保MinIO实现了ObjectStorage接口
var _ ObjectStorage = (*MinIO)(nil)

// MinIO 提供对象存储功能，管理三个存储桶:
// 原始PDF、解析文本和生成结果
type MinIO struct {
	client          *minio.Client
	cfg             *config.MinIOConfig
	originalsBucket string
	parsedBucket    string
	resultsBucket   string
	logger          *log.Logger
}

// NewMinIO 创建MinIO客户端并确保存储桶就绪
func NewMinIO(cfg *config.MinIOConfig, logger *log.Logger) (*MinIO, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MinIO配置不能为空")
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	logger.Printf("[MinIO] Initializing client: endpoint=%s, buckets=%s/%s/%s",
		cfg.Endpoint, cfg.OriginalsBucket, cfg.ParsedBucket, cfg.ResultsBucket)

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("创建MinIO客户端失败: %w", err)
	}

	originalsBucket := cfg.OriginalsBucket
	if originalsBucket == "" {
		originalsBucket = "resume-originals"
	}
	parsedBucket := cfg.ParsedBucket
	if parsedBucket == "" {
		parsedBucket = "resume-parsed"
	}
	resultsBucket := cfg.ResultsBucket
	if resultsBucket == "" {
		resultsBucket = "resume-results"
	}

	m := &MinIO{
		client:          client,
		cfg:             cfg,
		originalsBucket: originalsBucket,
		parsedBucket:    parsedBucket,
		resultsBucket:   resultsBucket,
		logger:          logger,
	}

	for _, bucket := range []string{originalsBucket, parsedBucket, resultsBucket} {
		if err := m.ensureBucketExists(bucket, cfg.Location); err != nil {
			return nil, fmt.Errorf("确保存储桶 %s 存在失败: %w", bucket, err)
		}
	}

	// 设置生命周期规则
	if cfg.OriginalFileExpireDays > 0 || cfg.ParsedTextExpireDays > 0 {
		if err := m.setupLifecycleRules(context.Background()); err != nil {
			logger.Printf("[MinIO] Warning: failed to set up lifecycle rules: %v", err)
		}
	}

	logger.Printf("[MinIO] Client initialized successfully for endpoint: %s", cfg.Endpoint)
	return m, nil
}

// ensureBucketExists 确保存储桶存在
func (m *MinIO) ensureBucketExists(bucketName, location string) error {
	exists, err := m.client.BucketExists(context.Background(), bucketName)
	if err != nil {
		return fmt.Errorf("检查存储桶 %s 是否存在时出错: %w", bucketName, err)
	}
	if !exists {
		m.logger.Printf("[MinIO] Bucket %s does not exist, creating...", bucketName)
		if err := m.client.MakeBucket(context.Background(), bucketName, minio.MakeBucketOptions{Region: location}); err != nil {
			return fmt.Errorf("创建存储桶 %s 失败: %w", bucketName, err)
		}
	}
	return nil
}

// setupLifecycleRules 设置对象生命周期规则。
// 结果桶不设过期，生成结果由调用方显式清理。
func (m *MinIO) setupLifecycleRules(ctx context.Context) error {
	if m.cfg.OriginalFileExpireDays > 0 {
		if err := m.setupBucketLifecycle(ctx, m.originalsBucket, "expire-originals", m.cfg.OriginalFileExpireDays); err != nil {
			return fmt.Errorf("为原始文件存储桶 %s 设置生命周期失败: %w", m.originalsBucket, err)
		}
	}
	if m.cfg.ParsedTextExpireDays > 0 {
		if err := m.setupBucketLifecycle(ctx, m.parsedBucket, "expire-parsed-text", m.cfg.ParsedTextExpireDays); err != nil {
			return fmt.Errorf("为解析文本存储桶 %s 设置生命周期失败: %w", m.parsedBucket, err)
		}
	}
	return nil
}

// setupBucketLifecycle 为指定存储桶设置生命周期规则
func (m *MinIO) setupBucketLifecycle(ctx context.Context, bucketName, ruleID string, expiryDays int) error {
	lc := lifecycle.NewConfiguration()
	lc.Rules = []lifecycle.Rule{
		{
			ID:     ruleID,
			Status: "Enabled",
			Expiration: lifecycle.Expiration{
				Days: lifecycle.ExpirationDays(expiryDays),
			},
		},
	}
	if err := m.client.SetBucketLifecycle(ctx, bucketName, lc); err != nil {
		return err
	}
	m.logger.Printf("[MinIO] Lifecycle rule set for bucket %s: ID=%s, ExpiryDays=%d", bucketName, ruleID, expiryDays)
	return nil
}

// UploadFile 上传文件到指定存储桶
func (m *MinIO) UploadFile(ctx context.Context, bucket, objectName string, reader io.Reader, fileSize int64, contentType string) (string, error) {
	if m.cfg.EnableTestLogging && m.logger.Writer() != io.Discard {
		m.logger.Printf("[MinIO-UploadFile] Uploading: Bucket='%s', ObjectName='%s', Size=%d, ContentType='%s'", bucket, objectName, fileSize, contentType)
	}

	info, err := m.client.PutObject(ctx, bucket, objectName, reader, fileSize, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("上传对象 %s/%s 失败: %w", bucket, objectName, err)
	}

	if m.cfg.EnableTestLogging && m.logger.Writer() != io.Discard {
		m.logger.Printf("[MinIO-UploadFile] Uploaded %s, ETag: %s, Size: %d", objectName, info.ETag, info.Size)
	}
	return objectName, nil
}

// DownloadFile 从指定存储桶下载文件
func (m *MinIO) DownloadFile(ctx context.Context, bucket, objectName string) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("获取对象 %s/%s 失败: %w", bucket, objectName, err)
	}
	defer obj.Close()

	// Stat可以区分对象不存在和读取失败
	if _, err := obj.Stat(); err != nil {
		return nil, fmt.Errorf("获取对象 %s/%s 状态失败: %w", bucket, objectName, err)
	}

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("读取对象 %s/%s 数据失败: %w", bucket, objectName, err)
	}
	return data, nil
}

// GetPresignedURL 获取预签名下载URL
func (m *MinIO) GetPresignedURL(ctx context.Context, bucket, objectName string, expiry time.Duration) (string, error) {
	presignedURL, err := m.client.PresignedGetObject(ctx, bucket, objectName, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("生成MinIO预签名URL失败: %w", err)
	}
	return presignedURL.String(), nil
}

// DeleteFile 删除对象
func (m *MinIO) DeleteFile(ctx context.Context, bucket, objectName string) error {
	if err := m.client.RemoveObject(ctx, bucket, objectName, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("删除对象 %s/%s 失败: %w", bucket, objectName, err)
	}
	return nil
}

// originalObjectKey 原始PDF的对象键
func originalObjectKey(requestUUID string) string {
	return fmt.Sprintf("optimize/%s/original.pdf", requestUUID)
}

// parsedObjectKey 解析文本的对象键
func parsedObjectKey(requestUUID string) string {
	return fmt.Sprintf("optimize/%s/parsed_text.txt", requestUUID)
}

// resultObjectKey 生成结果的对象键
func resultObjectKey(requestUUID string) string {
	return fmt.Sprintf("optimize/%s/result.json", requestUUID)
}

// UploadOriginalPDF 流式上传原始PDF并同时计算MD5。
// 返回: objectKey, md5Hex, error
func (m *MinIO) UploadOriginalPDF(ctx context.Context, requestUUID string, reader io.Reader, fileSize int64) (string, string, error) {
	objectName := originalObjectKey(requestUUID)

	md5Hash := md5.New()
	teeReader := io.TeeReader(reader, md5Hash)

	info, err := m.client.PutObject(ctx, m.originalsBucket, objectName, teeReader,
		fileSize, minio.PutObjectOptions{ContentType: "application/pdf"})
	if err != nil {
		return "", "", fmt.Errorf("流式上传原始PDF失败: %w", err)
	}

	md5Hex := hex.EncodeToString(md5Hash.Sum(nil))

	if m.cfg.EnableTestLogging && m.logger.Writer() != io.Discard {
		m.logger.Printf("[MinIO-UploadOriginalPDF] Uploaded %s, ETag: %s, Size: %d, MD5: %s",
			objectName, info.ETag, info.Size, md5Hex)
	}
	return objectName, md5Hex, nil
}

// GetOriginalPDF 获取原始PDF内容
func (m *MinIO) GetOriginalPDF(ctx context.Context, requestUUID string) ([]byte, error) {
	return m.DownloadFile(ctx, m.originalsBucket, originalObjectKey(requestUUID))
}

// UploadParsedText 上传规整后的简历文本
func (m *MinIO) UploadParsedText(ctx context.Context, requestUUID string, text string) (string, error) {
	objectName := parsedObjectKey(requestUUID)
	_, err := m.client.PutObject(ctx, m.parsedBucket, objectName, strings.NewReader(text),
		int64(len(text)), minio.PutObjectOptions{ContentType: "text/plain"})
	if err != nil {
		return "", fmt.Errorf("上传解析文本 %s 到存储桶 %s 失败: %w", objectName, m.parsedBucket, err)
	}
	return objectName, nil
}

// GetParsedText 获取规整后的简历文本
func (m *MinIO) GetParsedText(ctx context.Context, requestUUID string) (string, error) {
	data, err := m.DownloadFile(ctx, m.parsedBucket, parsedObjectKey(requestUUID))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// UploadResult 将完整的优化结果以JSON写入结果桶
func (m *MinIO) UploadResult(ctx context.Context, requestUUID string, result *types.OptimizeResult) (string, error) {
	if result == nil {
		return "", fmt.Errorf("结果不能为空")
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("序列化优化结果失败: %w", err)
	}

	objectName := resultObjectKey(requestUUID)
	_, err = m.client.PutObject(ctx, m.resultsBucket, objectName, bytes.NewReader(raw),
		int64(len(raw)), minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return "", fmt.Errorf("上传优化结果 %s 到存储桶 %s 失败: %w", objectName, m.resultsBucket, err)
	}
	return objectName, nil
}

// GetResult 从结果桶读取优化结果
func (m *MinIO) GetResult(ctx context.Context, requestUUID string) (*types.OptimizeResult, error) {
	data, err := m.DownloadFile(ctx, m.resultsBucket, resultObjectKey(requestUUID))
	if err != nil {
		return nil, err
	}
	var result types.OptimizeResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("解析优化结果失败: %w", err)
	}
	return &result, nil
}

// StatObject 暴露底层的StatObject方法，用于测试或特定场景
func (m *MinIO) StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	return m.client.StatObject(ctx, bucketName, objectName, opts)
}
