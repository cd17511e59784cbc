// Package router 提供 HTTP 路由注册
// 本文件定义 WebSocket 相关的路由
package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterWebSocketRoutes 注册 WebSocket 路由
// 升级接口不挂 JWT 中间件，身份在连接内通过 authenticate 事件确认
func (rt *Router) RegisterWebSocketRoutes(engine *gin.Engine) {
	engine.GET("/ws", rt.handlers.Ws.Connect)
}
