// Package handler 提供 HTTP 请求处理器
// 本文件处理 WebSocket 连接升级
package handler

import (
	"github.com/gin-gonic/gin"

	"weitalk_relay_server/internal/service/relay"
)

// WsHandler WebSocket 请求处理器
type WsHandler struct {
	relayServer *relay.Server
}

// NewWsHandler 创建 WebSocket 处理器实例
func NewWsHandler(relayServer *relay.Server) *WsHandler {
	return &WsHandler{relayServer: relayServer}
}

// Connect 建立 WebSocket 连接
// GET /ws
// 升级后连接处于未认证状态，客户端需在连接内发送 authenticate 事件
func (h *WsHandler) Connect(c *gin.Context) {
	// 升级失败时 upgrader 已经写了 HTTP 错误响应
	_ = relay.NewClientInit(c, h.relayServer)
}
