// server.go
// 核心职责：中继服务的聚合根
// 持有登记表、房间表和广播通道，事件处理统一经过 route 分发，
// 广播统一经过 Broker 再由 Deliver 下发到本地连接
package relay

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"weitalk_relay_server/internal/dao/mysql/repository"
	"weitalk_relay_server/internal/dao/redis"
	"weitalk_relay_server/pkg/constants"
)

// 客户端事件名
const (
	EventAuthenticate = "authenticate"
	EventJoinChat     = "join_chat"
	EventLeaveChat    = "leave_chat"
	EventSendMessage  = "send_message"
	EventTypingStart  = "typing_start"
	EventTypingStop   = "typing_stop"
	EventMarkRead     = "mark_messages_read"
	EventUpdateStatus = "update_status"
)

// 服务端事件名
const (
	EventAuthenticated = "authenticated"
	EventAuthError     = "auth_error"
	EventUserOnline    = "user_online"
	EventUserOffline   = "user_offline"
	EventNewMessage    = "new_message"
	EventMessageError  = "message_error"
	EventMessagesRead  = "messages_read"
	EventReadError     = "read_error"
)

// Server 中继服务
type Server struct {
	registry *Registry
	rooms    *RoomManager
	broker   Broker
	repos    *repository.Repositories
	cache    redis.AsyncCacheService
}

// NewServer 创建中继服务，broker 由启动方按配置注入
func NewServer(repos *repository.Repositories, cache redis.AsyncCacheService) *Server {
	return &Server{
		registry: NewRegistry(),
		rooms:    NewRoomManager(),
		repos:    repos,
		cache:    cache,
	}
}

// UseBroker 注入广播通道，必须在 Start 之前调用
func (s *Server) UseBroker(b Broker) {
	s.broker = b
}

// Start 启动广播消费
func (s *Server) Start() {
	s.broker.Start()
}

// Close 停止广播消费并关闭所有连接
func (s *Server) Close() {
	s.broker.Close()
	for _, c := range s.registry.AllClients() {
		c.Close()
	}
}

// Deliver 将广播下发到本地目标连接
func (s *Server) Deliver(envelope *BroadcastEnvelope) {
	frame, err := buildFrame(envelope.Event, envelope.Data)
	if err != nil {
		zap.L().Error("构造下发帧失败", zap.Error(err))
		return
	}

	var targets []*Client
	switch envelope.Scope {
	case ScopeChat:
		targets = s.rooms.Members(envelope.ChatId)
	case ScopeGlobal:
		targets = s.registry.AllClients()
	default:
		zap.L().Warn("未知的广播范围", zap.String("scope", envelope.Scope))
		return
	}
	for _, c := range targets {
		if envelope.ExcludeConnId != "" && c.connId == envelope.ExcludeConnId {
			continue
		}
		c.Enqueue(frame)
	}
}

// broadcast 投递一条广播，respond 会被序列化为事件数据
func (s *Server) broadcast(scope, chatId, excludeConnId, event string, respond any) {
	data, err := json.Marshal(respond)
	if err != nil {
		zap.L().Error("序列化广播数据失败", zap.String("event", event), zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(),
		constants.REDIS_TIMEOUT*time.Second)
	defer cancel()
	if err := s.broker.Publish(ctx, &BroadcastEnvelope{
		Scope:         scope,
		ChatId:        chatId,
		ExcludeConnId: excludeConnId,
		Event:         event,
		Data:          data,
	}); err != nil {
		zap.L().Error("投递广播失败", zap.String("event", event), zap.Error(err))
	}
}

// sendTo 只发给指定连接，不经过 Broker
func (s *Server) sendTo(c *Client, event string, respond any) {
	data, err := json.Marshal(respond)
	if err != nil {
		zap.L().Error("序列化下发数据失败", zap.String("event", event), zap.Error(err))
		return
	}
	frame, err := buildFrame(event, data)
	if err != nil {
		zap.L().Error("构造下发帧失败", zap.Error(err))
		return
	}
	c.Enqueue(frame)
}

// cacheCtx 异步缓存任务用的带超时上下文
func cacheCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(),
		constants.REDIS_TIMEOUT*time.Second)
}

// buildFrame 构造线缆帧 {"event": ..., "data": ...}
func buildFrame(event string, data json.RawMessage) ([]byte, error) {
	return json.Marshal(struct {
		Event string          `json:"event"`
		Data  json.RawMessage `json:"data"`
	}{Event: event, Data: data})
}
