// Package chat 提供会话相关的业务逻辑
// 处理会话列表、单聊/群聊创建和历史消息
package chat

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"weitalk_relay_server/internal/dao/mysql/repository"
	myredis "weitalk_relay_server/internal/dao/redis"
	"weitalk_relay_server/internal/dto/request"
	"weitalk_relay_server/internal/dto/respond"
	"weitalk_relay_server/internal/model"
	"weitalk_relay_server/pkg/constants"
	"weitalk_relay_server/pkg/enum/chat/chat_role_enum"
	"weitalk_relay_server/pkg/enum/message/message_type_enum"
	"weitalk_relay_server/pkg/errorx"
)

// chatService 会话业务逻辑实现
type chatService struct {
	repos *repository.Repositories
	cache myredis.AsyncCacheService
}

// NewChatService 构造函数，注入 Repository 和缓存依赖
func NewChatService(repos *repository.Repositories, cache myredis.AsyncCacheService) *chatService {
	return &chatService{repos: repos, cache: cache}
}

// GetChatList 获取用户的会话列表
// 按最近活跃排序，附带成员信息、最后一条消息和未读数
func (s *chatService) GetChatList(userId string) ([]respond.ChatListRespond, error) {
	chats, err := s.repos.Chat.ListChatsForUser(userId)
	if err != nil {
		zap.L().Error("查询会话列表失败", zap.String("user_id", userId), zap.Error(err))
		return nil, errorx.ErrServerBusy
	}

	chatUuids := make([]string, 0, len(chats))
	for _, chat := range chats {
		chatUuids = append(chatUuids, chat.Uuid)
	}
	unread, err := s.unreadCounts(userId, chatUuids)
	if err != nil {
		return nil, err
	}

	list := make([]respond.ChatListRespond, 0, len(chats))
	for _, chat := range chats {
		participants, err := s.loadParticipants(chat.Uuid)
		if err != nil {
			return nil, err
		}
		item := respond.ChatListRespond{
			Id:           chat.Uuid,
			Name:         chat.Name,
			IsGroup:      chat.IsGroup,
			AvatarUrl:    chat.AvatarUrl,
			Participants: participants,
			UnreadCount:  unread[chat.Uuid],
		}
		if chat.LastMessageAt.Valid {
			item.UpdatedAt = chat.LastMessageAt.Time.Format(time.RFC3339)
		}
		if last, err := s.repos.Message.FindLastByChatUuid(chat.Uuid); err == nil {
			item.LastMessage = toMessageRespond(last, nil, nil)
		} else if errorx.GetCode(err) != errorx.CodeNotFound {
			zap.L().Warn("查询最后一条消息失败", zap.String("chat_id", chat.Uuid), zap.Error(err))
		}
		list = append(list, item)
	}
	return list, nil
}

// CreateDirectChat 查找或创建单聊会话
// 同一用户对只会存在一个单聊，重复请求返回已有会话
func (s *chatService) CreateDirectChat(userId string, req request.CreateDirectChatRequest) (*respond.CreateChatRespond, error) {
	if req.PeerId == userId {
		return nil, errorx.New(errorx.CodeInvalidParam, "不能和自己建立单聊")
	}
	if _, err := s.repos.User.FindByUuid(req.PeerId); err != nil {
		if errorx.GetCode(err) == errorx.CodeNotFound {
			return nil, errorx.New(errorx.CodeUserNotExist, "对方用户不存在")
		}
		zap.L().Error("查询用户失败", zap.Error(err))
		return nil, errorx.ErrServerBusy
	}

	chat, err := s.repos.Chat.FindDirectChat(userId, req.PeerId)
	if err == nil {
		return &respond.CreateChatRespond{ChatId: chat.Uuid, Existed: true}, nil
	}
	if errorx.GetCode(err) != errorx.CodeNotFound {
		zap.L().Error("查询单聊会话失败", zap.Error(err))
		return nil, errorx.ErrServerBusy
	}

	chat, err = s.repos.Chat.CreateDirectChat(userId, req.PeerId)
	if err != nil {
		zap.L().Error("创建单聊会话失败", zap.Error(err))
		return nil, errorx.ErrServerBusy
	}
	return &respond.CreateChatRespond{ChatId: chat.Uuid, Existed: false}, nil
}

// CreateGroupChat 创建群聊会话
// 成员必须全部存在，创建者自动入群并担任管理员
func (s *chatService) CreateGroupChat(userId string, req request.CreateGroupChatRequest) (*respond.CreateChatRespond, error) {
	members, err := s.repos.User.FindByUuids(req.MemberIds)
	if err != nil {
		zap.L().Error("查询群成员失败", zap.Error(err))
		return nil, errorx.ErrServerBusy
	}
	found := make(map[string]struct{}, len(members))
	for _, member := range members {
		found[member.Uuid] = struct{}{}
	}
	for _, memberId := range req.MemberIds {
		if _, ok := found[memberId]; !ok {
			return nil, errorx.Newf(errorx.CodeUserNotExist, "成员 %s 不存在", memberId)
		}
	}

	chat, err := s.repos.Chat.CreateGroupChat(req.Name, userId, req.MemberIds)
	if err != nil {
		zap.L().Error("创建群聊会话失败", zap.Error(err))
		return nil, errorx.ErrServerBusy
	}
	return &respond.CreateChatRespond{ChatId: chat.Uuid, Existed: false}, nil
}

// GetMessageList 获取会话历史消息
// 只有会话参与者可以拉取；每条消息附带发送者简要信息和已读用户列表
func (s *chatService) GetMessageList(userId, chatId string) ([]respond.MessageRespond, error) {
	ok, err := s.repos.Chat.IsParticipant(chatId, userId)
	if err != nil {
		zap.L().Error("参与者校验失败", zap.String("chat_id", chatId), zap.Error(err))
		return nil, errorx.ErrServerBusy
	}
	if !ok {
		return nil, errorx.New(errorx.CodeNotParticipant, "不是会话参与者")
	}

	messages, err := s.repos.Message.FindByChatUuid(chatId)
	if err != nil {
		zap.L().Error("查询历史消息失败", zap.String("chat_id", chatId), zap.Error(err))
		return nil, errorx.ErrServerBusy
	}

	senderUuids := make([]string, 0, len(messages))
	messageUuids := make([]int64, 0, len(messages))
	seen := make(map[string]struct{})
	for _, message := range messages {
		messageUuids = append(messageUuids, message.Uuid)
		if _, ok := seen[message.SenderUuid]; !ok {
			seen[message.SenderUuid] = struct{}{}
			senderUuids = append(senderUuids, message.SenderUuid)
		}
	}

	senders := make(map[string]*respond.SenderBrief)
	if users, err := s.repos.User.FindByUuids(senderUuids); err == nil {
		for i := range users {
			senders[users[i].Uuid] = &respond.SenderBrief{
				Id:        users[i].Uuid,
				FullName:  users[i].FullName,
				AvatarUrl: users[i].AvatarUrl,
			}
		}
	} else {
		zap.L().Warn("查询发送者信息失败", zap.Error(err))
	}

	readBy := make(map[int64][]string)
	if receipts, err := s.repos.MessageRead.FindByMessageUuids(messageUuids); err == nil {
		for _, receipt := range receipts {
			readBy[receipt.MessageUuid] = append(readBy[receipt.MessageUuid], receipt.UserUuid)
		}
	} else {
		zap.L().Warn("查询已读回执失败", zap.Error(err))
	}

	list := make([]respond.MessageRespond, 0, len(messages))
	for i := range messages {
		list = append(list, *toMessageRespond(&messages[i], senders[messages[i].SenderUuid], readBy[messages[i].Uuid]))
	}
	return list, nil
}

// loadParticipants 加载会话成员的展示信息
func (s *chatService) loadParticipants(chatUuid string) ([]respond.ChatParticipantRespond, error) {
	participants, err := s.repos.Chat.FindParticipants(chatUuid)
	if err != nil {
		zap.L().Error("查询会话成员失败", zap.String("chat_id", chatUuid), zap.Error(err))
		return nil, errorx.ErrServerBusy
	}
	userUuids := make([]string, 0, len(participants))
	roles := make(map[string]int8, len(participants))
	for _, participant := range participants {
		userUuids = append(userUuids, participant.UserUuid)
		roles[participant.UserUuid] = participant.Role
	}
	users, err := s.repos.User.FindByUuids(userUuids)
	if err != nil {
		zap.L().Error("查询成员信息失败", zap.Error(err))
		return nil, errorx.ErrServerBusy
	}

	list := make([]respond.ChatParticipantRespond, 0, len(users))
	for _, user := range users {
		list = append(list, respond.ChatParticipantRespond{
			Id:        user.Uuid,
			FullName:  user.FullName,
			AvatarUrl: user.AvatarUrl,
			Online:    user.Online,
			Role:      chat_role_enum.ToString(roles[user.Uuid]),
		})
	}
	return list, nil
}

// unreadCounts 获取各会话的未读数，Redis 缓存优先
// 缓存键 unread_<user>_<chat>，新消息和已读回执写入时会失效
func (s *chatService) unreadCounts(userId string, chatUuids []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(chatUuids))
	misses := make([]string, 0, len(chatUuids))

	ctx, cancel := context.WithTimeout(context.Background(),
		constants.REDIS_TIMEOUT*time.Second)
	defer cancel()
	for _, chatUuid := range chatUuids {
		cached, err := s.cache.Get(ctx, "unread_"+userId+"_"+chatUuid)
		if err != nil || cached == "" {
			misses = append(misses, chatUuid)
			continue
		}
		count, err := strconv.ParseInt(cached, 10, 64)
		if err != nil {
			misses = append(misses, chatUuid)
			continue
		}
		counts[chatUuid] = count
	}
	if len(misses) == 0 {
		return counts, nil
	}

	fresh, err := s.repos.Message.UnreadCounts(userId, misses)
	if err != nil {
		zap.L().Error("统计未读数失败", zap.String("user_id", userId), zap.Error(err))
		return nil, errorx.ErrServerBusy
	}
	for chatUuid, count := range fresh {
		counts[chatUuid] = count
	}
	s.cache.SubmitTask(func() {
		ctx, cancel := context.WithTimeout(context.Background(),
			constants.REDIS_TIMEOUT*time.Second)
		defer cancel()
		for chatUuid, count := range fresh {
			key := "unread_" + userId + "_" + chatUuid
			if err := s.cache.Set(ctx, key, strconv.FormatInt(count, 10), 10*time.Minute); err != nil {
				zap.L().Warn("写入未读缓存失败", zap.Error(err))
			}
		}
	})
	return counts, nil
}

// toMessageRespond 将消息模型转为响应结构
func toMessageRespond(message *model.Message, sender *respond.SenderBrief, readBy []string) *respond.MessageRespond {
	return &respond.MessageRespond{
		Id:          strconv.FormatInt(message.Uuid, 10),
		ChatId:      message.ChatUuid,
		SenderId:    message.SenderUuid,
		Content:     message.Content,
		MessageType: message_type_enum.ToString(message.Type),
		CreatedAt:   message.CreatedAt.Format(time.RFC3339),
		Sender:      sender,
		ReadBy:      readBy,
	}
}
