package model

import (
	"time"

	"gorm.io/gorm"
)

// MessageRead 已读回执表
// (message_uuid, user_uuid) 唯一，重复提交被忽略
// 未读数派生规则：消息发送者不是本人且本表无对应行，则计一条未读
type MessageRead struct {
	gorm.Model
	MessageUuid int64     `gorm:"column:message_uuid;type:bigint;uniqueIndex:idx_message_user;not null;comment:消息雪花ID"`
	UserUuid    string    `gorm:"column:user_uuid;type:char(36);uniqueIndex:idx_message_user;index;not null;comment:用户ID"`
	ReadAt      time.Time `gorm:"column:read_at;type:datetime;not null;comment:已读时间"`
}

func (MessageRead) TableName() string {
	return "message_read"
}
