// Package model 定义数据库实体模型
// 本文件定义消息模型，用于存储聊天消息
package model

import "gorm.io/gorm"

// Message 消息模型
// 对应数据库 message 表
// 消息一经创建不可变，已读状态由 message_read 表派生
type Message struct {
	gorm.Model

	// Uuid 消息唯一标识
	// 使用雪花算法生成的 int64 类型 ID，在持久化层分配
	Uuid int64 `gorm:"column:uuid;uniqueIndex;type:bigint;not null;comment:消息雪花ID"`

	// ChatUuid 所属会话 UUID
	ChatUuid string `gorm:"column:chat_uuid;index;type:char(36);not null;comment:会话uuid"`

	// SenderUuid 发送者 UUID
	SenderUuid string `gorm:"column:sender_uuid;index;type:char(36);not null;comment:发送者uuid"`

	// Content 消息文本内容（图片/文件消息存资源 URL）
	Content string `gorm:"column:content;type:TEXT;not null;comment:消息内容"`

	// Type 消息类型
	// 0=文本，1=图片，2=文件
	// 参见 pkg/enum/message/message_type_enum
	Type int8 `gorm:"column:type;not null;comment:消息类型，0.文本，1.图片，2.文件"`
}

// TableName 指定表名
func (Message) TableName() string {
	return "message"
}
