package constants

const (
	CHANNEL_SIZE               = 100  // 通道大小（连接写缓冲与广播通道共用）
	TYPING_DEBOUNCE_MS         = 1000 // 客户端 typing 防抖窗口（毫秒），服务端只转发不存储
	REDIS_TIMEOUT              = 5    // redis 操作超时（秒）
	REFRESH_TOKEN_EXPIRY_HOURS = 168  // Refresh Token 有效期（小时），168小时 = 7天
)
