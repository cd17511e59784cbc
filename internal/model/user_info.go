// Package model 定义数据库实体模型
// 本文件定义用户信息模型，包含用户基本资料、在线状态和认证信息
package model

import (
	"database/sql"

	"golang.org/x/crypto/bcrypt" // 密码哈希库
	"gorm.io/gorm"
)

// UserInfo 用户信息模型
// 对应数据库 user_info 表
// Online/LastSeen 仅由 Relay 在连接建立、断开和状态更新时写入，消息流程不改动这两列
type UserInfo struct {
	gorm.Model // 内嵌 GORM 模型，包含 ID、CreatedAt、UpdatedAt、DeletedAt

	// Uuid 用户唯一标识（UUID 字符串）
	Uuid string `gorm:"column:uuid;uniqueIndex;type:char(36);comment:用户唯一id"`

	// FullName 用户显示名
	FullName string `gorm:"column:full_name;type:varchar(50);not null;comment:显示名"`

	// Email 邮箱地址，登录凭证
	Email string `gorm:"column:email;uniqueIndex;type:varchar(100);not null;comment:邮箱"`

	// AvatarUrl 用户头像 URL，可为空
	AvatarUrl string `gorm:"column:avatar_url;type:varchar(255);comment:头像"`

	// Online 在线标志
	// 进程内 Presence Registry 是权威来源，此列是写穿的镜像
	// relay 重启后此列会短暂滞留旧值，直到客户端重连或断开
	Online bool `gorm:"column:online;not null;default:false;comment:是否在线"`

	// LastSeen 最近一次上线/下线/状态变更时间
	LastSeen sql.NullTime `gorm:"column:last_seen;type:datetime;comment:最近活跃时间"`

	// Password 密码（已哈希）
	// 存储 bcrypt 哈希后的密码，不存储明文
	Password string `gorm:"column:password;type:varchar(100);not null;comment:密码"`

	// RawPassword 明文密码（不存入数据库）
	// 用于接收前端传来的明文密码，在 BeforeSave 中加密
	RawPassword string `gorm:"-" json:"-"`
}

// TableName 指定表名
func (UserInfo) TableName() string {
	return "user_info"
}

// BeforeSave GORM Hook：在创建和更新前自动调用
// 将 RawPassword 明文密码加密后存入 Password 字段
func (u *UserInfo) BeforeSave(tx *gorm.DB) (err error) {
	if u.RawPassword != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.RawPassword), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		u.Password = string(hash)
		u.RawPassword = "" // 清空明文，防止泄露
	}
	return nil
}

// CheckPassword 校验密码是否正确
// plaintext: 用户输入的明文密码
func (u *UserInfo) CheckPassword(plaintext string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(plaintext))
	return err == nil
}
