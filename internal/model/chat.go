// Package model 定义数据库实体模型
// 本文件定义会话模型，单聊和群聊共用一张表
package model

import (
	"database/sql"

	"gorm.io/gorm"
)

// Chat 会话模型
// 对应数据库 chat 表
// 单聊会话没有名称，两个参与者唯一确定一条记录（创建前先查找）
type Chat struct {
	gorm.Model

	// Uuid 会话唯一标识（UUID 字符串）
	Uuid string `gorm:"column:uuid;uniqueIndex;type:char(36);comment:会话唯一id"`

	// Name 会话名称，群聊必填，单聊为空
	Name string `gorm:"column:name;type:varchar(50);comment:会话名称"`

	// IsGroup 是否为群聊
	IsGroup bool `gorm:"column:is_group;not null;default:false;comment:是否群聊"`

	// AvatarUrl 会话头像，可为空（单聊展示对方头像）
	AvatarUrl string `gorm:"column:avatar_url;type:varchar(255);comment:头像"`

	// LastMessageAt 最新一条消息的时间
	// 每收到一条新消息由 Relay 刷新，用于会话列表排序
	LastMessageAt sql.NullTime `gorm:"column:last_message_at;type:datetime;comment:最近消息时间"`
}

// TableName 指定表名
func (Chat) TableName() string {
	return "chat"
}
