package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"

	"resume-optimizer/internal/config"
	"resume-optimizer/internal/constants"
	"resume-optimizer/internal/types"
)

// ErrNotFound 在缓存未命中时返回
var ErrNotFound = redis.Nil

// Redis 封装了go-redis客户端，提供结果缓存、文件去重和任务状态存储
type Redis struct {
	Client *redis.Client
	config *config.RedisConfig
}

// NewRedisAdapter 创建并初始化Redis适配器
func NewRedisAdapter(cfg *config.RedisConfig) (*Redis, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis配置不能为空")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis地址不能为空")
	}

	opts := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	}

	// 连接池设置
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.MinIdleConns > 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}

	// 超时设置
	if cfg.DialTimeoutSeconds > 0 {
		opts.DialTimeout = time.Duration(cfg.DialTimeoutSeconds) * time.Second
	}
	if cfg.ReadTimeoutSeconds > 0 {
		opts.ReadTimeout = time.Duration(cfg.ReadTimeoutSeconds) * time.Second
	}
	if cfg.WriteTimeoutSeconds > 0 {
		opts.WriteTimeout = time.Duration(cfg.WriteTimeoutSeconds) * time.Second
	}

	// 重试设置
	if cfg.MaxRetries > 0 {
		opts.MaxRetries = cfg.MaxRetries
	}
	if cfg.MinRetryBackoffMS > 0 {
		opts.MinRetryBackoff = time.Duration(cfg.MinRetryBackoffMS) * time.Millisecond
	}
	if cfg.MaxRetryBackoffMS > 0 {
		opts.MaxRetryBackoff = time.Duration(cfg.MaxRetryBackoffMS) * time.Millisecond
	}

	// 连接生命周期
	if cfg.ConnMaxLifetimeMinutes > 0 {
		opts.ConnMaxLifetime = time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute
	}
	if cfg.ConnMaxIdleTimeMinutes > 0 {
		opts.ConnMaxIdleTime = time.Duration(cfg.ConnMaxIdleTimeMinutes) * time.Minute
	}

	client := redis.NewClient(opts)

	// 启用OpenTelemetry追踪
	if err := redisotel.InstrumentTracing(client); err != nil {
		return nil, fmt.Errorf("redis追踪初始化失败: %w", err)
	}

	// 验证连接可用性
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("redis连接失败: %w", err)
	}

	return &Redis{Client: client, config: cfg}, nil
}

// Close 关闭Redis连接
func (r *Redis) Close() error {
	if r.Client != nil {
		return r.Client.Close()
	}
	return nil
}

// Ping 检查Redis连接状态
func (r *Redis) Ping(ctx context.Context) error {
	return r.Client.Ping(ctx).Err()
}

// GetMD5ExpireDuration 获取MD5记录的过期时长
func (r *Redis) GetMD5ExpireDuration() time.Duration {
	days := r.config.MD5RecordExpireDays
	if days <= 0 {
		days = 365
	}
	return time.Duration(days) * 24 * time.Hour
}

// GetResultCacheExpireDuration 获取生成结果缓存的过期时长
func (r *Redis) GetResultCacheExpireDuration() time.Duration {
	hours := r.config.ResultCacheExpireHours
	if hours <= 0 {
		hours = 24
	}
	return time.Duration(hours) * time.Hour
}

// --- 生成结果缓存 ---

// GetOptimizeResult 按指纹读取缓存的生成结果。未命中时返回 (nil, nil)。
func (r *Redis) GetOptimizeResult(ctx context.Context, fingerprint string) (*types.OptimizeResult, error) {
	if fingerprint == "" {
		return nil, fmt.Errorf("指纹不能为空")
	}

	key := fmt.Sprintf(constants.KeyGenerationResult, fingerprint)
	raw, err := r.Client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("读取结果缓存失败: %w", err)
	}

	var result types.OptimizeResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		// 缓存内容损坏时视为未命中，删除脏数据
		r.Client.Del(ctx, key)
		return nil, nil
	}
	return &result, nil
}

// SetOptimizeResult 按指纹写入生成结果缓存
func (r *Redis) SetOptimizeResult(ctx context.Context, fingerprint string, result *types.OptimizeResult) error {
	if fingerprint == "" {
		return fmt.Errorf("指纹不能为空")
	}
	if result == nil {
		return fmt.Errorf("结果不能为空")
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("序列化结果失败: %w", err)
	}

	key := fmt.Sprintf(constants.KeyGenerationResult, fingerprint)
	if err := r.Client.Set(ctx, key, raw, r.GetResultCacheExpireDuration()).Err(); err != nil {
		return fmt.Errorf("写入结果缓存失败: %w", err)
	}
	return nil
}

// --- 原始文件MD5去重 ---

// CheckRawFileMD5Exists 检查原始文件MD5是否已处理过
func (r *Redis) CheckRawFileMD5Exists(ctx context.Context, md5 string) (bool, error) {
	if md5 == "" {
		return false, fmt.Errorf("MD5不能为空")
	}
	exists, err := r.Client.SIsMember(ctx, constants.KeyFileMD5Set, md5).Result()
	if err != nil {
		return false, fmt.Errorf("检查MD5记录失败: %w", err)
	}
	return exists, nil
}

// AddRawFileMD5 记录原始文件MD5，并对去重集合设置滑动过期
func (r *Redis) AddRawFileMD5(ctx context.Context, md5 string) error {
	if md5 == "" {
		return fmt.Errorf("MD5不能为空")
	}

	pipe := r.Client.Pipeline()
	pipe.SAdd(ctx, constants.KeyFileMD5Set, md5)
	pipe.ExpireNX(ctx, constants.KeyFileMD5Set, r.GetMD5ExpireDuration())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("记录MD5失败: %w", err)
	}
	return nil
}

// --- 异步任务状态 ---

// JobStatus 异步优化任务的状态快照
type JobStatus struct {
	RequestUUID string `json:"request_uuid"`
	Status      string `json:"status"`
	Detail      string `json:"detail,omitempty"`
	UpdatedAt   string `json:"updated_at"`
}

// SetJobStatus 写入任务状态，状态记录与结果缓存共用过期时长
func (r *Redis) SetJobStatus(ctx context.Context, status *JobStatus) error {
	if status == nil || status.RequestUUID == "" {
		return fmt.Errorf("任务状态不完整")
	}
	status.UpdatedAt = time.Now().Format(time.RFC3339)

	raw, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("序列化任务状态失败: %w", err)
	}

	key := fmt.Sprintf(constants.KeyJobStatus, status.RequestUUID)
	if err := r.Client.Set(ctx, key, raw, r.GetResultCacheExpireDuration()).Err(); err != nil {
		return fmt.Errorf("写入任务状态失败: %w", err)
	}
	return nil
}

// GetJobStatus 读取任务状态。未命中时返回 (nil, nil)。
func (r *Redis) GetJobStatus(ctx context.Context, requestUUID string) (*JobStatus, error) {
	if requestUUID == "" {
		return nil, fmt.Errorf("请求UUID不能为空")
	}

	key := fmt.Sprintf(constants.KeyJobStatus, requestUUID)
	raw, err := r.Client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("读取任务状态失败: %w", err)
	}

	var status JobStatus
	if err := json.Unmarshal([]byte(raw), &status); err != nil {
		return nil, fmt.Errorf("解析任务状态失败: %w", err)
	}
	return &status, nil
}

// --- 流水线结果缓存适配 ---

// GenerationCache 将Redis结果缓存适配为流水线使用的缓存接口
type GenerationCache struct {
	redis *Redis
}

// NewGenerationCache 创建生成结果缓存适配器
func NewGenerationCache(r *Redis) *GenerationCache {
	return &GenerationCache{redis: r}
}

// Get 按指纹读取缓存结果，未命中时返回 (nil, nil)
func (c *GenerationCache) Get(ctx context.Context, fingerprint string) (*types.OptimizeResult, error) {
	return c.redis.GetOptimizeResult(ctx, fingerprint)
}

// Put 按指纹写入缓存结果
func (c *GenerationCache) Put(ctx context.Context, fingerprint string, result *types.OptimizeResult) error {
	return c.redis.SetOptimizeResult(ctx, fingerprint, result)
}
