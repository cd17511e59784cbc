package request

import "encoding/json"

// EventEnvelope WebSocket 事件信封 (双向通用)
// 线上协议：{"event": "<事件名>", "data": {...}}
// 使用位置:
//   - internal/service/relay/client.go: 读协程
//   - internal/service/relay/router.go: 事件分发
type EventEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// AuthenticateRequest 连接认证请求 (WebSocket)
type AuthenticateRequest struct {
	UserId string `json:"userId" binding:"required"`
}

// JoinChatRequest 加入/离开会话广播组请求 (WebSocket)
// join_chat 和 leave_chat 共用
type JoinChatRequest struct {
	ChatId string `json:"chatId" binding:"required"`
}

// MessageDraft 待发送的消息草稿
// 发送者以连接的认证身份为准，草稿中不携带发送者字段
type MessageDraft struct {
	Content     string `json:"content" binding:"required"`
	MessageType string `json:"message_type"` // text / image / file，缺省按 text
}

// SendMessageRequest 发送消息请求 (WebSocket)
type SendMessageRequest struct {
	ChatId  string       `json:"chatId" binding:"required"`
	Message MessageDraft `json:"message" binding:"required"`
}

// TypingRequest 输入状态请求 (WebSocket)
// typing_start 和 typing_stop 共用；服务端只转发，不存储
type TypingRequest struct {
	ChatId string `json:"chatId" binding:"required"`
}

// MarkMessagesReadRequest 批量已读回执请求 (WebSocket)
// 消息 ID 在线上以字符串传输，避免 JavaScript 精度丢失
type MarkMessagesReadRequest struct {
	ChatId     string   `json:"chatId" binding:"required"`
	MessageIds []string `json:"messageIds" binding:"required,min=1"`
}

// UpdateStatusRequest 在线状态更新请求 (WebSocket)
type UpdateStatusRequest struct {
	Online bool `json:"online"`
}
