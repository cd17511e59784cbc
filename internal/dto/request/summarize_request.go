package request

// SummaryMessage 摘要请求中的单条消息
// 字段布局与前端会话视图一致，sent 表示是否为本人发送
type SummaryMessage struct {
	Id        string `json:"id"`
	Text      string `json:"text" binding:"required"`
	Timestamp string `json:"timestamp"`
	Sent      bool   `json:"sent"`
	Sender    string `json:"sender,omitempty"`
}

// SummarizeRequest 会话摘要请求
// 转发给外部摘要服务，本服务不做摘要逻辑
type SummarizeRequest struct {
	Messages []SummaryMessage `json:"messages" binding:"required,min=1"`
	ChatName string           `json:"chatName"`
}
