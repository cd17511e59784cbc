package respond

// ChatParticipantRespond 会话成员信息
type ChatParticipantRespond struct {
	Id        string `json:"id"`
	FullName  string `json:"full_name"`
	AvatarUrl string `json:"avatar_url"`
	Online    bool   `json:"online"`
	Role      string `json:"role"` // admin / member
}

// ChatListRespond 会话列表项
// UnreadCount 为派生值：非本人发送且无本人已读回执的消息数
type ChatListRespond struct {
	Id           string                   `json:"id"`
	Name         string                   `json:"name"`
	IsGroup      bool                     `json:"is_group"`
	AvatarUrl    string                   `json:"avatar_url"`
	UpdatedAt    string                   `json:"updated_at"`
	Participants []ChatParticipantRespond `json:"participants"`
	LastMessage  *MessageRespond          `json:"last_message,omitempty"`
	UnreadCount  int64                    `json:"unread_count"`
}

// CreateChatRespond 会话创建响应
// 单聊复用已有会话时 Existed 为 true
type CreateChatRespond struct {
	ChatId  string `json:"chat_id"`
	Existed bool   `json:"existed"`
}
