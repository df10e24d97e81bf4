package constants

// Redis Key 前缀和格式常量
// 统一命名规范: app:{module}:{entity}:{unique_id}
const (
	// AppPrefix 所有Redis Key的统一应用前缀
	AppPrefix = "app"

	// GenerationModulePrefix 生成模块
	GenerationModulePrefix = "generation"
	// FileModulePrefix 文件模块
	FileModulePrefix = "file"
	// JobModulePrefix 任务模块
	JobModulePrefix = "job"

	// EntityResult 生成结果实体
	EntityResult = "result"
	// EntityDedupSet 去重集合实体
	EntityDedupSet = "dedup_set"
	// EntityStatus 任务状态实体
	EntityStatus = "status"

	// KeyGenerationResult 生成结果缓存 (STRING, JSON值)
	// 格式: app:generation:result:{fingerprint}
	KeyGenerationResult = AppPrefix + ":" + GenerationModulePrefix + ":" + EntityResult + ":%s"

	// KeyFileMD5Set 原始文件MD5去重集合 (SET)
	// 格式: app:file:dedup_set
	KeyFileMD5Set = AppPrefix + ":" + FileModulePrefix + ":" + EntityDedupSet

	// KeyJobStatus 异步任务状态缓存 (STRING)
	// 格式: app:job:status:{request_uuid}
	KeyJobStatus = AppPrefix + ":" + JobModulePrefix + ":" + EntityStatus + ":%s"
)
