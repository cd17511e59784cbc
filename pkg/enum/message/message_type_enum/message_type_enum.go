package message_type_enum

// 消息类型枚举
// 数据库存 int8，线上协议存字符串（与前端约定一致）
const (
	Text  int8 = iota // 文本消息
	Image             // 图片消息
	File              // 文件消息
)

// FromString 将协议层的消息类型字符串转换为枚举值
// 未知类型按文本处理
func FromString(s string) int8 {
	switch s {
	case "image":
		return Image
	case "file":
		return File
	default:
		return Text
	}
}

// ToString 将枚举值转换为协议层的消息类型字符串
func ToString(t int8) string {
	switch t {
	case Image:
		return "image"
	case File:
		return "file"
	default:
		return "text"
	}
}
