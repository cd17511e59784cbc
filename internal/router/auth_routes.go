// Package router 提供 HTTP 路由注册
// 本文件定义认证和用户相关的路由
package router

import (
	"github.com/gin-gonic/gin"

	"weitalk_relay_server/internal/infrastructure/middleware"
)

// RegisterAuthRoutes 注册认证相关路由
func (rt *Router) RegisterAuthRoutes(engine *gin.Engine) {
	// 公开接口（无需认证）
	authGroup := engine.Group("/auth")
	{
		authGroup.POST("/register", rt.handlers.Auth.Register)
		authGroup.POST("/login", rt.handlers.Auth.Login)
		authGroup.POST("/refresh", rt.handlers.Auth.RefreshToken)
	}

	// 需要认证的接口
	engine.GET("/users", middleware.JWTAuth(), rt.handlers.Auth.GetUserList)
}
