package repository

import (
	"time"

	"weitalk_relay_server/internal/model"
	"weitalk_relay_server/pkg/enum/chat/chat_role_enum"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type chatRepository struct {
	db *gorm.DB
}

// NewChatRepository 创建会话 Repository
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

// FindByUuid 按 UUID 查找会话
func (r *chatRepository) FindByUuid(chatUuid string) (*model.Chat, error) {
	var chat model.Chat
	if err := r.db.First(&chat, "uuid = ?", chatUuid).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询会话 uuid=%s", chatUuid)
	}
	return &chat, nil
}

// ListChatsForUser 查找用户参与的所有会话，按最近消息时间倒序
func (r *chatRepository) ListChatsForUser(userUuid string) ([]model.Chat, error) {
	var chats []model.Chat
	err := r.db.
		Joins("JOIN chat_participant ON chat_participant.chat_uuid = chat.uuid").
		Where("chat_participant.user_uuid = ? AND chat_participant.deleted_at IS NULL", userUuid).
		Order("chat.last_message_at DESC").
		Find(&chats).Error
	if err != nil {
		return nil, wrapDBErrorf(err, "查询用户会话列表 user=%s", userUuid)
	}
	return chats, nil
}

// ListChatUuidsForUser 查找用户参与的所有会话 UUID
func (r *chatRepository) ListChatUuidsForUser(userUuid string) ([]string, error) {
	var chatUuids []string
	err := r.db.Model(&model.ChatParticipant{}).
		Where("user_uuid = ?", userUuid).
		Pluck("chat_uuid", &chatUuids).Error
	if err != nil {
		return nil, wrapDBErrorf(err, "查询用户会话ID列表 user=%s", userUuid)
	}
	return chatUuids, nil
}

// FindParticipants 查找会话的所有成员
func (r *chatRepository) FindParticipants(chatUuid string) ([]model.ChatParticipant, error) {
	var participants []model.ChatParticipant
	if err := r.db.Where("chat_uuid = ?", chatUuid).Find(&participants).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询会话成员 chat=%s", chatUuid)
	}
	return participants, nil
}

// IsParticipant 判断用户是否为会话成员
func (r *chatRepository) IsParticipant(chatUuid, userUuid string) (bool, error) {
	var count int64
	err := r.db.Model(&model.ChatParticipant{}).
		Where("chat_uuid = ? AND user_uuid = ?", chatUuid, userUuid).
		Count(&count).Error
	if err != nil {
		return false, wrapDBErrorf(err, "查询会话成员关系 chat=%s user=%s", chatUuid, userUuid)
	}
	return count > 0, nil
}

// Touch 刷新会话的更新时间和最近消息时间
func (r *chatRepository) Touch(chatUuid string, at time.Time) error {
	err := r.db.Model(&model.Chat{}).Where("uuid = ?", chatUuid).Updates(map[string]interface{}{
		"updated_at":      at,
		"last_message_at": at,
	}).Error
	if err != nil {
		return wrapDBErrorf(err, "刷新会话时间 chat=%s", chatUuid)
	}
	return nil
}

// FindDirectChat 查找两个用户的单聊会话
// 单聊按无序用户对唯一；两个成员关系都存在即命中
func (r *chatRepository) FindDirectChat(userA, userB string) (*model.Chat, error) {
	var chat model.Chat
	err := r.db.
		Where("is_group = ?", false).
		Where("EXISTS (SELECT 1 FROM chat_participant p WHERE p.chat_uuid = chat.uuid AND p.user_uuid = ? AND p.deleted_at IS NULL)", userA).
		Where("EXISTS (SELECT 1 FROM chat_participant p WHERE p.chat_uuid = chat.uuid AND p.user_uuid = ? AND p.deleted_at IS NULL)", userB).
		First(&chat).Error
	if err != nil {
		return nil, wrapDBErrorf(err, "查询单聊会话 %s<->%s", userA, userB)
	}
	return &chat, nil
}

// CreateDirectChat 创建单聊会话
// 会话和两条成员记录在同一事务内写入，任一步失败整体回滚
func (r *chatRepository) CreateDirectChat(userA, userB string) (*model.Chat, error) {
	chat := &model.Chat{
		Uuid:    uuid.NewString(),
		IsGroup: false,
	}
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(chat).Error; err != nil {
			return err
		}
		participants := []model.ChatParticipant{
			{ChatUuid: chat.Uuid, UserUuid: userA, Role: chat_role_enum.Member},
			{ChatUuid: chat.Uuid, UserUuid: userB, Role: chat_role_enum.Member},
		}
		return tx.Create(&participants).Error
	})
	if err != nil {
		return nil, wrapDBErrorf(err, "创建单聊会话 %s<->%s", userA, userB)
	}
	return chat, nil
}

// CreateGroupChat 创建群聊会话
// 创建者写入为管理员，memberUuids 中的创建者和重复项被跳过
// 成员写入失败时整体回滚，不会留下没有成员的会话
func (r *chatRepository) CreateGroupChat(name, creatorUuid string, memberUuids []string) (*model.Chat, error) {
	chat := &model.Chat{
		Uuid:    uuid.NewString(),
		Name:    name,
		IsGroup: true,
	}
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(chat).Error; err != nil {
			return err
		}
		participants := []model.ChatParticipant{
			{ChatUuid: chat.Uuid, UserUuid: creatorUuid, Role: chat_role_enum.Admin},
		}
		seen := map[string]bool{creatorUuid: true}
		for _, memberUuid := range memberUuids {
			if seen[memberUuid] {
				continue
			}
			seen[memberUuid] = true
			participants = append(participants, model.ChatParticipant{
				ChatUuid: chat.Uuid,
				UserUuid: memberUuid,
				Role:     chat_role_enum.Member,
			})
		}
		return tx.Create(&participants).Error
	})
	if err != nil {
		return nil, wrapDBErrorf(err, "创建群聊会话 name=%s", name)
	}
	return chat, nil
}
