// Package router 提供 HTTP 路由注册
// 本文件定义会话和摘要相关的路由
package router

import (
	"github.com/gin-gonic/gin"

	"weitalk_relay_server/internal/infrastructure/middleware"
)

// RegisterChatRoutes 注册会话相关路由（需要认证）
func (rt *Router) RegisterChatRoutes(engine *gin.Engine) {
	chatGroup := engine.Group("/chats")
	chatGroup.Use(middleware.JWTAuth())
	{
		chatGroup.GET("", rt.handlers.Chat.GetChatList)
		chatGroup.POST("/direct", rt.handlers.Chat.CreateDirectChat)
		chatGroup.POST("/group", rt.handlers.Chat.CreateGroupChat)
		chatGroup.GET("/:chat_id/messages", rt.handlers.Chat.GetMessageList)
	}

	engine.POST("/summarize", middleware.JWTAuth(), rt.handlers.Summary.Summarize)
}
