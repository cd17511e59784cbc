package respond

// SummarizeRespond 会话摘要响应
type SummarizeRespond struct {
	Summary string `json:"summary"`
}
