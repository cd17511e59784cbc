package respond

// 本文件定义 WebSocket 服务端下发事件的载荷
// 事件名与载荷的对应关系:
//   authenticated  -> AuthenticatedRespond
//   auth_error     -> AuthErrorRespond
//   user_online    -> PresenceRespond
//   user_offline   -> PresenceRespond
//   new_message    -> MessageRespond (见 message_respond.go)
//   message_error  -> MessageErrorRespond
//   typing_start   -> TypingStartRespond
//   typing_stop    -> TypingStopRespond
//   messages_read  -> MessagesReadRespond
//   read_error     -> ReadErrorRespond

// AuthenticatedRespond 认证成功确认
type AuthenticatedRespond struct {
	UserId string `json:"userId"`
}

// AuthErrorRespond 认证失败通知（仅发给当事连接）
type AuthErrorRespond struct {
	Message string `json:"message"`
}

// PresenceRespond 在线状态变更通知
// user_online 和 user_offline 共用
type PresenceRespond struct {
	UserId string `json:"userId"`
}

// MessageErrorRespond 消息持久化失败通知（仅发给发送者）
type MessageErrorRespond struct {
	Error string `json:"error"`
}

// TypingStartRespond 开始输入通知
type TypingStartRespond struct {
	UserId   string `json:"userId"`
	UserName string `json:"userName"`
	ChatId   string `json:"chatId"`
}

// TypingStopRespond 停止输入通知
type TypingStopRespond struct {
	UserId string `json:"userId"`
	ChatId string `json:"chatId"`
}

// MessagesReadRespond 已读回执通知
// MessageIds 仅包含持久化成功的消息 ID
type MessagesReadRespond struct {
	UserId     string   `json:"userId"`
	MessageIds []string `json:"messageIds"`
	ChatId     string   `json:"chatId"`
}

// ReadErrorRespond 已读回执部分失败通知（仅发给提交者）
// 合法子集已生效，FailedIds 为无效或不存在的消息 ID
type ReadErrorRespond struct {
	ChatId    string   `json:"chatId"`
	FailedIds []string `json:"failedIds"`
}
