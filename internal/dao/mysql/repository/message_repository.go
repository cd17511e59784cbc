package repository

import (
	"weitalk_relay_server/internal/model"
	"weitalk_relay_server/pkg/util/snowflake"

	"gorm.io/gorm"
)

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository 创建消息 Repository
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

// Create 创建消息
// 雪花 ID 在本层分配，调用方不允许自带 ID
func (r *messageRepository) Create(message *model.Message) error {
	if message.Uuid == 0 {
		message.Uuid = snowflake.GenerateID()
	}
	if err := r.db.Create(message).Error; err != nil {
		return wrapDBError(err, "创建消息")
	}
	return nil
}

// FindByChatUuid 按会话查找消息，按创建时间升序
func (r *messageRepository) FindByChatUuid(chatUuid string) ([]model.Message, error) {
	var messages []model.Message
	if err := r.db.Where("chat_uuid = ?", chatUuid).Order("created_at ASC").Find(&messages).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询消息 chat_uuid=%s", chatUuid)
	}
	return messages, nil
}

// FindLastByChatUuid 查找会话最后一条消息（会话列表预览用）
func (r *messageRepository) FindLastByChatUuid(chatUuid string) (*model.Message, error) {
	var message model.Message
	err := r.db.Where("chat_uuid = ?", chatUuid).
		Order("created_at DESC").
		First(&message).Error
	if err != nil {
		return nil, wrapDBErrorf(err, "查询最后一条消息 chat_uuid=%s", chatUuid)
	}
	return &message, nil
}

// FindExistingUuids 过滤出在指定会话中确实存在的消息 ID
// 会话外的消息 ID 视同不存在，防止跨会话写回执
func (r *messageRepository) FindExistingUuids(chatUuid string, uuids []int64) ([]int64, error) {
	if len(uuids) == 0 {
		return nil, nil
	}
	var existing []int64
	err := r.db.Model(&model.Message{}).
		Where("chat_uuid = ? AND uuid IN ?", chatUuid, uuids).
		Pluck("uuid", &existing).Error
	if err != nil {
		return nil, wrapDBError(err, "批量校验消息ID")
	}
	return existing, nil
}

// UnreadCounts 统计用户在各会话的未读数
// 未读 = 非本人发送且无本人已读回执的消息数
func (r *messageRepository) UnreadCounts(userUuid string, chatUuids []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(chatUuids))
	if len(chatUuids) == 0 {
		return counts, nil
	}

	type row struct {
		ChatUuid string
		Cnt      int64
	}
	var rows []row
	err := r.db.Model(&model.Message{}).
		Select("chat_uuid, COUNT(*) AS cnt").
		Where("chat_uuid IN ?", chatUuids).
		Where("sender_uuid != ?", userUuid).
		Where("NOT EXISTS (SELECT 1 FROM message_read r WHERE r.message_uuid = message.uuid AND r.user_uuid = ? AND r.deleted_at IS NULL)", userUuid).
		Group("chat_uuid").
		Scan(&rows).Error
	if err != nil {
		return nil, wrapDBErrorf(err, "统计未读数 user=%s", userUuid)
	}

	for _, rw := range rows {
		counts[rw.ChatUuid] = rw.Cnt
	}
	// 没有未读消息的会话也返回 0，调用方无需区分缺失键
	for _, chatUuid := range chatUuids {
		if _, ok := counts[chatUuid]; !ok {
			counts[chatUuid] = 0
		}
	}
	return counts, nil
}
