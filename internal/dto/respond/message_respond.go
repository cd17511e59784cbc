package respond

// SenderBrief 消息发送者的简要信息
// 随 new_message 一起下发，省去前端再查一次用户表
type SenderBrief struct {
	Id        string `json:"id"`
	FullName  string `json:"full_name"`
	AvatarUrl string `json:"avatar_url"`
}

// MessageRespond 消息响应 (new_message 载荷 / 历史消息列表项)
// Id 为雪花 ID 的字符串形式，避免 JavaScript 精度丢失
type MessageRespond struct {
	Id          string       `json:"id"`
	ChatId      string       `json:"chat_id"`
	SenderId    string       `json:"sender_id"`
	Content     string       `json:"content"`
	MessageType string       `json:"message_type"`
	CreatedAt   string       `json:"created_at"`
	Sender      *SenderBrief `json:"sender,omitempty"`
	ReadBy      []string     `json:"read_by,omitempty"`
}
