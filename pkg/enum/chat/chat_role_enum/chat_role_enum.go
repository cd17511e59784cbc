package chat_role_enum

// 会话成员角色枚举
const (
	Member int8 = 1 // 普通成员
	Admin  int8 = 2 // 管理员（群主/建群人）
)

// ToString 将角色枚举转换为协议层字符串
func ToString(r int8) string {
	if r == Admin {
		return "admin"
	}
	return "member"
}
