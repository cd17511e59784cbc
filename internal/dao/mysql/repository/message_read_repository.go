package repository

import (
	"time"

	"weitalk_relay_server/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type messageReadRepository struct {
	db *gorm.DB
}

// NewMessageReadRepository 创建已读回执 Repository
func NewMessageReadRepository(db *gorm.DB) MessageReadRepository {
	return &messageReadRepository{db: db}
}

// UpsertMany 幂等写入已读回执
// (message_uuid, user_uuid) 唯一索引冲突时忽略，重复提交不报错也不产生第二条记录
func (r *messageReadRepository) UpsertMany(messageUuids []int64, userUuid string, readAt time.Time) error {
	if len(messageUuids) == 0 {
		return nil
	}
	receipts := make([]model.MessageRead, 0, len(messageUuids))
	for _, messageUuid := range messageUuids {
		receipts = append(receipts, model.MessageRead{
			MessageUuid: messageUuid,
			UserUuid:    userUuid,
			ReadAt:      readAt,
		})
	}
	err := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&receipts).Error
	if err != nil {
		return wrapDBErrorf(err, "写入已读回执 user=%s", userUuid)
	}
	return nil
}

// FindByMessageUuids 批量查找消息的已读回执
func (r *messageReadRepository) FindByMessageUuids(messageUuids []int64) ([]model.MessageRead, error) {
	if len(messageUuids) == 0 {
		return nil, nil
	}
	var receipts []model.MessageRead
	if err := r.db.Where("message_uuid IN ?", messageUuids).Find(&receipts).Error; err != nil {
		return nil, wrapDBError(err, "查询已读回执")
	}
	return receipts, nil
}
