package request

// CreateDirectChatRequest 创建单聊会话请求
// 服务端先按无序用户对查找，存在则直接返回已有会话
type CreateDirectChatRequest struct {
	PeerId string `json:"peer_id" binding:"required"`
}

// CreateGroupChatRequest 创建群聊会话请求
type CreateGroupChatRequest struct {
	Name      string   `json:"name" binding:"required,min=1,max=50"`
	MemberIds []string `json:"member_ids" binding:"required,min=1"`
}
