package respond

// UserListRespond 用户列表项（发起单聊时选人用）
// Online 读的是数据库镜像，重启后可能短暂失真
type UserListRespond struct {
	Id        string `json:"id"`
	FullName  string `json:"full_name"`
	Email     string `json:"email"`
	AvatarUrl string `json:"avatar_url"`
	Online    bool   `json:"online"`
	LastSeen  string `json:"last_seen,omitempty"`
}
