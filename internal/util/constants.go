package util

const (
	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)

// 错误响应中的 reason 字段，客户端据此区分重试生成 / 重新开始测验等行为
const (
	ReasonValidation       = "validation_error"
	ReasonSessionNotFound  = "session_not_found"
	ReasonGenerationFailed = "generation_failed"
	ReasonUpstream         = "upstream_unavailable"
	ReasonUpstreamTimeout  = "upstream_timeout"
)
