// Package handler 提供 HTTP 请求处理器
// 本文件定义 Handler 聚合结构和构造函数
package handler

import (
	"weitalk_relay_server/internal/service"
	"weitalk_relay_server/internal/service/relay"
)

// Handlers 聚合所有 Handler 实例
// Router 层通过此结构访问各个 Handler
type Handlers struct {
	Auth    *AuthHandler
	Chat    *ChatHandler
	Summary *SummaryHandler
	Ws      *WsHandler
}

// NewHandlers 创建并注入所有 Handler 实例
func NewHandlers(svc *service.Services, relayServer *relay.Server) *Handlers {
	return &Handlers{
		Auth:    NewAuthHandler(svc.User),
		Chat:    NewChatHandler(svc.Chat),
		Summary: NewSummaryHandler(svc.Summary),
		Ws:      NewWsHandler(relayServer),
	}
}
