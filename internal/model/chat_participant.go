package model

import "gorm.io/gorm"

// ChatParticipant 会话成员关联表
// (chat_uuid, user_uuid) 唯一；JoinedAt 复用 gorm.Model 的 CreatedAt
type ChatParticipant struct {
	gorm.Model
	ChatUuid string `gorm:"column:chat_uuid;type:char(36);uniqueIndex:idx_chat_user;not null;comment:会话ID"`
	UserUuid string `gorm:"column:user_uuid;type:char(36);uniqueIndex:idx_chat_user;index;not null;comment:用户ID"`
	Role     int8   `gorm:"column:role;default:1;comment:1普通成员 2管理员"`
}

func (ChatParticipant) TableName() string {
	return "chat_participant"
}
