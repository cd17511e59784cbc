// Package repository 定义数据访问层接口和聚合结构
// 采用 Repository 模式将数据访问逻辑与业务逻辑分离
// 所有 Repository 接口在此文件定义，具体实现在各自的文件中
// 这一层就是 Relay 依赖的持久化网关契约：Relay 自身不持有任何持久状态
package repository

import (
	"errors"
	"time"

	"weitalk_relay_server/internal/model"
	"weitalk_relay_server/pkg/errorx"

	"gorm.io/gorm"
)

// ==================== 错误包装辅助函数 ====================

// wrapDBError 包装数据库错误
// 根据错误类型返回不同的错误码：
//   - ErrRecordNotFound -> CodeNotFound
//   - 其他错误 -> CodeDBError
func wrapDBError(err error, msg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errorx.Wrap(err, errorx.CodeNotFound, msg)
	}
	return errorx.Wrap(err, errorx.CodeDBError, msg)
}

// wrapDBErrorf 包装数据库错误（支持格式化消息）
func wrapDBErrorf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errorx.Wrapf(err, errorx.CodeNotFound, format, args...)
	}
	return errorx.Wrapf(err, errorx.CodeDBError, format, args...)
}

// ==================== Repository 接口定义 ====================

// UserRepository 用户数据访问接口
type UserRepository interface {
	// FindByUuid 根据 UUID 查找用户
	FindByUuid(uuid string) (*model.UserInfo, error)
	// FindByEmail 根据邮箱查找用户
	FindByEmail(email string) (*model.UserInfo, error)
	// FindByUuids 批量根据 UUID 查找用户
	FindByUuids(uuids []string) ([]model.UserInfo, error)
	// FindAllExcept 查找除指定用户外的所有用户
	FindAllExcept(excludeUuid string) ([]model.UserInfo, error)
	// Create 创建新用户
	Create(user *model.UserInfo) error
	// SetOnline 写入在线标志和最近活跃时间
	// 仅由 Relay 在连接建立/断开/状态更新时调用
	SetOnline(uuid string, online bool, lastSeen time.Time) error
}

// ChatRepository 会话数据访问接口
// 管理会话与成员关系，多步操作（建会话+加成员）在事务内执行，
// 成员写入失败时整体回滚，保证不会留下没有成员的会话
type ChatRepository interface {
	// FindByUuid 根据 UUID 查找会话
	FindByUuid(uuid string) (*model.Chat, error)
	// ListChatsForUser 查找用户参与的所有会话
	ListChatsForUser(userUuid string) ([]model.Chat, error)
	// ListChatUuidsForUser 查找用户参与的所有会话 UUID（认证时批量订阅用）
	ListChatUuidsForUser(userUuid string) ([]string, error)
	// FindParticipants 查找会话的所有成员
	FindParticipants(chatUuid string) ([]model.ChatParticipant, error)
	// IsParticipant 判断用户是否为会话成员
	IsParticipant(chatUuid, userUuid string) (bool, error)
	// Touch 刷新会话的更新时间和最近消息时间（每条新消息后调用）
	Touch(chatUuid string, at time.Time) error
	// FindDirectChat 查找两个用户的单聊会话，不存在返回 CodeNotFound
	// 单聊按无序用户对唯一，创建前必须先查找
	FindDirectChat(userA, userB string) (*model.Chat, error)
	// CreateDirectChat 创建单聊会话（两个成员）
	CreateDirectChat(userA, userB string) (*model.Chat, error)
	// CreateGroupChat 创建群聊会话，创建者为管理员
	CreateGroupChat(name, creatorUuid string, memberUuids []string) (*model.Chat, error)
}

// MessageRepository 消息数据访问接口
type MessageRepository interface {
	// Create 创建消息，雪花 ID 和时间戳在本层分配
	Create(message *model.Message) error
	// FindByChatUuid 按会话查找消息，按创建时间升序
	FindByChatUuid(chatUuid string) ([]model.Message, error)
	// FindLastByChatUuid 查找会话最后一条消息，无消息时返回 CodeNotFound
	FindLastByChatUuid(chatUuid string) (*model.Message, error)
	// FindExistingUuids 过滤出在指定会话中确实存在的消息 ID（批量已读回执校验用）
	FindExistingUuids(chatUuid string, uuids []int64) ([]int64, error)
	// UnreadCounts 统计用户在各会话的未读数
	// 未读 = 非本人发送且无本人已读回执的消息数
	UnreadCounts(userUuid string, chatUuids []string) (map[string]int64, error)
}

// MessageReadRepository 已读回执数据访问接口
type MessageReadRepository interface {
	// UpsertMany 幂等写入已读回执，重复的 (message, user) 对被忽略
	UpsertMany(messageUuids []int64, userUuid string, readAt time.Time) error
	// FindByMessageUuids 批量查找消息的已读回执
	FindByMessageUuids(messageUuids []int64) ([]model.MessageRead, error)
}
