// router.go
// 核心职责：客户端事件的解析与分发
// 所有处理器都在连接自己的读协程内执行，同一连接的事件严格按
// 到达顺序生效；处理器内部只通过 Broker 发起广播
package relay

import (
	"encoding/json"
	"strconv"
	"time"

	"go.uber.org/zap"

	"weitalk_relay_server/internal/dto/request"
	"weitalk_relay_server/internal/dto/respond"
	"weitalk_relay_server/internal/model"
	"weitalk_relay_server/pkg/enum/message/message_type_enum"
)

// route 解析事件信封并分发到对应处理器
func (s *Server) route(c *Client, payload []byte) {
	var envelope request.EventEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		s.sendTo(c, EventMessageError, respond.MessageErrorRespond{Error: "事件格式不合法"})
		return
	}

	if envelope.Event == EventAuthenticate {
		// 已认证的连接不允许换绑用户，否则登记表会残留旧用户
		if c.userId != "" {
			s.sendTo(c, EventAuthError, respond.AuthErrorRespond{Message: "连接已认证"})
			return
		}
		s.handleAuthenticate(c, envelope.Data)
		return
	}
	// 除认证外的所有事件都要求已认证
	if c.userId == "" {
		s.sendTo(c, EventMessageError, respond.MessageErrorRespond{Error: "尚未认证"})
		return
	}

	switch envelope.Event {
	case EventJoinChat:
		s.handleJoinChat(c, envelope.Data)
	case EventLeaveChat:
		s.handleLeaveChat(c, envelope.Data)
	case EventSendMessage:
		s.handleSendMessage(c, envelope.Data)
	case EventTypingStart:
		s.handleTyping(c, envelope.Data, true)
	case EventTypingStop:
		s.handleTyping(c, envelope.Data, false)
	case EventMarkRead:
		s.handleMarkRead(c, envelope.Data)
	case EventUpdateStatus:
		s.handleUpdateStatus(c, envelope.Data)
	default:
		s.sendTo(c, EventMessageError, respond.MessageErrorRespond{Error: "未知事件: " + envelope.Event})
	}
}

// handleAuthenticate 认证连接并登记在线状态
// 失败只回 auth_error，连接保持打开，客户端可以重试
func (s *Server) handleAuthenticate(c *Client, data json.RawMessage) {
	var req request.AuthenticateRequest
	if err := json.Unmarshal(data, &req); err != nil || req.UserId == "" {
		s.sendTo(c, EventAuthError, respond.AuthErrorRespond{Message: "缺少用户 ID"})
		return
	}
	if _, err := s.repos.User.FindByUuid(req.UserId); err != nil {
		zap.L().Warn("认证失败", zap.String("user_id", req.UserId), zap.Error(err))
		s.sendTo(c, EventAuthError, respond.AuthErrorRespond{Message: "用户不存在"})
		return
	}
	// 在线状态先落库再登记，存储失败时连接保持未认证，不广播
	if err := s.repos.User.SetOnline(req.UserId, true, time.Now()); err != nil {
		zap.L().Error("写入在线状态失败", zap.String("user_id", req.UserId), zap.Error(err))
		s.sendTo(c, EventAuthError, respond.AuthErrorRespond{Message: "认证失败"})
		return
	}

	c.userId = req.UserId
	s.registry.Register(c, req.UserId)

	// 订阅用户所有会话的广播组，之后 join_chat/leave_chat 仍可手动调整
	chatUuids, err := s.repos.Chat.ListChatUuidsForUser(req.UserId)
	if err != nil {
		zap.L().Error("查询会话订阅列表失败", zap.String("user_id", req.UserId), zap.Error(err))
	}
	for _, chatUuid := range chatUuids {
		s.rooms.Join(chatUuid, c)
	}

	userId := req.UserId
	s.cache.SubmitTask(func() {
		ctx, cancel := cacheCtx()
		defer cancel()
		if err := s.cache.AddToSet(ctx, "online_users", userId); err != nil {
			zap.L().Warn("同步在线集合失败", zap.Error(err))
		}
	})

	s.sendTo(c, EventAuthenticated, respond.AuthenticatedRespond{UserId: req.UserId})
	s.broadcast(ScopeGlobal, "", c.connId, EventUserOnline, respond.PresenceRespond{UserId: req.UserId})
	zap.L().Info("连接认证成功",
		zap.String("user_id", req.UserId), zap.String("conn_id", c.connId))
}

// handleJoinChat 校验参与者身份后加入房间
func (s *Server) handleJoinChat(c *Client, data json.RawMessage) {
	var req request.JoinChatRequest
	if err := json.Unmarshal(data, &req); err != nil || req.ChatId == "" {
		s.sendTo(c, EventMessageError, respond.MessageErrorRespond{Error: "缺少会话 ID"})
		return
	}
	ok, err := s.repos.Chat.IsParticipant(req.ChatId, c.userId)
	if err != nil {
		zap.L().Error("参与者校验失败", zap.String("chat_id", req.ChatId), zap.Error(err))
		s.sendTo(c, EventMessageError, respond.MessageErrorRespond{Error: "加入会话失败"})
		return
	}
	if !ok {
		s.sendTo(c, EventMessageError, respond.MessageErrorRespond{Error: "不是会话参与者"})
		return
	}
	s.rooms.Join(req.ChatId, c)
}

// handleLeaveChat 退出房间，未加入时是空操作
func (s *Server) handleLeaveChat(c *Client, data json.RawMessage) {
	var req request.JoinChatRequest
	if err := json.Unmarshal(data, &req); err != nil || req.ChatId == "" {
		return
	}
	s.rooms.Leave(req.ChatId, c)
}

// handleSendMessage 持久化消息并广播给整个房间（包含发送者）
func (s *Server) handleSendMessage(c *Client, data json.RawMessage) {
	var req request.SendMessageRequest
	if err := json.Unmarshal(data, &req); err != nil || req.ChatId == "" || req.Message.Content == "" {
		s.sendTo(c, EventMessageError, respond.MessageErrorRespond{Error: "消息内容不合法"})
		return
	}
	ok, err := s.repos.Chat.IsParticipant(req.ChatId, c.userId)
	if err != nil || !ok {
		s.sendTo(c, EventMessageError, respond.MessageErrorRespond{Error: "不是会话参与者"})
		return
	}

	message := &model.Message{
		ChatUuid:   req.ChatId,
		SenderUuid: c.userId,
		Content:    req.Message.Content,
		Type:       message_type_enum.FromString(req.Message.MessageType),
	}
	if err := s.repos.Message.Create(message); err != nil {
		zap.L().Error("持久化消息失败", zap.String("chat_id", req.ChatId), zap.Error(err))
		s.sendTo(c, EventMessageError, respond.MessageErrorRespond{Error: "消息发送失败"})
		return
	}
	now := time.Now()
	if err := s.repos.Chat.Touch(req.ChatId, now); err != nil {
		zap.L().Error("更新会话时间失败", zap.String("chat_id", req.ChatId), zap.Error(err))
	}
	chatId := req.ChatId
	s.cache.SubmitTask(func() {
		ctx, cancel := cacheCtx()
		defer cancel()
		if err := s.cache.DeleteByPattern(ctx, "unread_*_"+chatId); err != nil {
			zap.L().Warn("清理未读缓存失败", zap.Error(err))
		}
	})

	var sender *respond.SenderBrief
	if user, err := s.repos.User.FindByUuid(c.userId); err == nil {
		sender = &respond.SenderBrief{
			Id:        user.Uuid,
			FullName:  user.FullName,
			AvatarUrl: user.AvatarUrl,
		}
	}
	s.broadcast(ScopeChat, req.ChatId, "", EventNewMessage, respond.MessageRespond{
		Id:          strconv.FormatInt(message.Uuid, 10),
		ChatId:      message.ChatUuid,
		SenderId:    message.SenderUuid,
		Content:     message.Content,
		MessageType: message_type_enum.ToString(message.Type),
		CreatedAt:   message.CreatedAt.Format(time.RFC3339),
		Sender:      sender,
	})
}

// handleTyping 输入状态只广播给房间内的其他连接
func (s *Server) handleTyping(c *Client, data json.RawMessage, start bool) {
	var req request.TypingRequest
	if err := json.Unmarshal(data, &req); err != nil || req.ChatId == "" {
		return
	}
	if start {
		userName := ""
		if user, err := s.repos.User.FindByUuid(c.userId); err == nil {
			userName = user.FullName
		}
		s.broadcast(ScopeChat, req.ChatId, c.connId, EventTypingStart, respond.TypingStartRespond{
			UserId:   c.userId,
			UserName: userName,
			ChatId:   req.ChatId,
		})
		return
	}
	s.broadcast(ScopeChat, req.ChatId, c.connId, EventTypingStop, respond.TypingStopRespond{
		UserId: c.userId,
		ChatId: req.ChatId,
	})
}

// handleMarkRead 写入已读回执并广播已生效的消息
// 不合法或不存在的消息 ID 进入 failed，其余照常生效并广播，
// 有失败时额外给发起方回 read_error
func (s *Server) handleMarkRead(c *Client, data json.RawMessage) {
	var req request.MarkMessagesReadRequest
	if err := json.Unmarshal(data, &req); err != nil || req.ChatId == "" || len(req.MessageIds) == 0 {
		s.sendTo(c, EventMessageError, respond.MessageErrorRespond{Error: "已读请求不合法"})
		return
	}

	var parsed []int64
	var failed []string
	for _, id := range req.MessageIds {
		uuid, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			failed = append(failed, id)
			continue
		}
		parsed = append(parsed, uuid)
	}
	existing := make(map[int64]struct{})
	if len(parsed) > 0 {
		uuids, err := s.repos.Message.FindExistingUuids(req.ChatId, parsed)
		if err != nil {
			zap.L().Error("查询消息存在性失败", zap.String("chat_id", req.ChatId), zap.Error(err))
			s.sendTo(c, EventReadError, respond.ReadErrorRespond{
				ChatId: req.ChatId, FailedIds: req.MessageIds,
			})
			return
		}
		for _, uuid := range uuids {
			existing[uuid] = struct{}{}
		}
	}
	var applied []int64
	var appliedIds []string
	for _, uuid := range parsed {
		if _, ok := existing[uuid]; !ok {
			failed = append(failed, strconv.FormatInt(uuid, 10))
			continue
		}
		applied = append(applied, uuid)
		appliedIds = append(appliedIds, strconv.FormatInt(uuid, 10))
	}

	if len(applied) > 0 {
		if err := s.repos.MessageRead.UpsertMany(applied, c.userId, time.Now()); err != nil {
			zap.L().Error("写入已读回执失败", zap.String("chat_id", req.ChatId), zap.Error(err))
			s.sendTo(c, EventReadError, respond.ReadErrorRespond{
				ChatId: req.ChatId, FailedIds: req.MessageIds,
			})
			return
		}
		userId, chatId := c.userId, req.ChatId
		s.cache.SubmitTask(func() {
			ctx, cancel := cacheCtx()
			defer cancel()
			if err := s.cache.Delete(ctx, "unread_"+userId+"_"+chatId); err != nil {
				zap.L().Warn("清理未读缓存失败", zap.Error(err))
			}
		})
		// 重复标记同样广播，接收端按幂等处理
		s.broadcast(ScopeChat, req.ChatId, c.connId, EventMessagesRead, respond.MessagesReadRespond{
			UserId:     c.userId,
			MessageIds: appliedIds,
			ChatId:     req.ChatId,
		})
	}
	if len(failed) > 0 {
		s.sendTo(c, EventReadError, respond.ReadErrorRespond{
			ChatId: req.ChatId, FailedIds: failed,
		})
	}
}

// handleUpdateStatus 显式切换在线状态并全局广播
func (s *Server) handleUpdateStatus(c *Client, data json.RawMessage) {
	var req request.UpdateStatusRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.sendTo(c, EventMessageError, respond.MessageErrorRespond{Error: "状态请求不合法"})
		return
	}
	if err := s.repos.User.SetOnline(c.userId, req.Online, time.Now()); err != nil {
		zap.L().Error("写入在线状态失败", zap.String("user_id", c.userId), zap.Error(err))
	}
	userId := c.userId
	s.cache.SubmitTask(func() {
		ctx, cancel := cacheCtx()
		defer cancel()
		var err error
		if req.Online {
			err = s.cache.AddToSet(ctx, "online_users", userId)
		} else {
			err = s.cache.RemoveFromSet(ctx, "online_users", userId)
		}
		if err != nil {
			zap.L().Warn("同步在线集合失败", zap.Error(err))
		}
	})

	event := EventUserOnline
	if !req.Online {
		event = EventUserOffline
	}
	s.broadcast(ScopeGlobal, "", c.connId, event, respond.PresenceRespond{UserId: c.userId})
}

// onDisconnect 连接关闭时的清理
// 只有用户最后一条连接断开时才写离线并广播 user_offline
func (s *Server) onDisconnect(c *Client) {
	s.rooms.LeaveAll(c)
	userId, remaining, ok := s.registry.Unregister(c)
	if !ok || remaining > 0 {
		return
	}
	if err := s.repos.User.SetOnline(userId, false, time.Now()); err != nil {
		zap.L().Error("写入离线状态失败", zap.String("user_id", userId), zap.Error(err))
	}
	s.cache.SubmitTask(func() {
		ctx, cancel := cacheCtx()
		defer cancel()
		if err := s.cache.RemoveFromSet(ctx, "online_users", userId); err != nil {
			zap.L().Warn("同步在线集合失败", zap.Error(err))
		}
	})
	s.broadcast(ScopeGlobal, "", c.connId, EventUserOffline, respond.PresenceRespond{UserId: userId})
	zap.L().Info("用户离线", zap.String("user_id", userId))
}
