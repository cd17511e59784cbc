// Package repository 提供 Repository 层聚合与构造
package repository

import (
	"gorm.io/gorm"
)

// Repositories 聚合所有 Repository 实例
// 作为依赖注入的入口，Service 层和 Relay 通过此结构访问数据层
type Repositories struct {
	db          *gorm.DB              // GORM 数据库实例
	User        UserRepository        // 用户 Repository
	Chat        ChatRepository        // 会话 Repository
	Message     MessageRepository     // 消息 Repository
	MessageRead MessageReadRepository // 已读回执 Repository
}

// NewRepositories 创建所有 Repository 实例
// db: GORM 数据库实例
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		db:          db,
		User:        NewUserRepository(db),
		Chat:        NewChatRepository(db),
		Message:     NewMessageRepository(db),
		MessageRead: NewMessageReadRepository(db),
	}
}

// Transaction 在数据库事务中执行函数
// 事务内的所有操作要么全部成功，要么全部回滚
func (r *Repositories) Transaction(fn func(txRepos *Repositories) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}
