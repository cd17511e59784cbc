// Package handler 提供 HTTP 请求处理器
// 本文件处理注册、登录和 Token 刷新相关的 API 请求
package handler

import (
	"github.com/gin-gonic/gin"

	"weitalk_relay_server/internal/dto/request"
	"weitalk_relay_server/internal/service"
)

// AuthHandler 认证请求处理器
type AuthHandler struct {
	userSvc service.UserService
}

// NewAuthHandler 创建认证处理器实例
func NewAuthHandler(userSvc service.UserService) *AuthHandler {
	return &AuthHandler{userSvc: userSvc}
}

// Register 用户注册
// POST /auth/register
// 请求体: request.RegisterRequest
// 响应: respond.RegisterRespond (用户信息 + JWT Token)
func (h *AuthHandler) Register(c *gin.Context) {
	var req request.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.userSvc.Register(req)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// Login 用户登录（密码登录）
// POST /auth/login
// 请求体: request.LoginRequest
// 响应: respond.LoginRespond (用户信息 + JWT Token)
func (h *AuthHandler) Login(c *gin.Context) {
	var req request.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.userSvc.Login(req)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// RefreshToken 刷新 Access Token
// POST /auth/refresh
// 请求体: request.RefreshTokenRequest
// 响应: respond.RefreshTokenRespond
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req request.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.userSvc.RefreshToken(req)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// GetUserList 获取除本人外的用户列表（发起单聊时选人）
// GET /users
// 响应: []respond.UserListRespond
func (h *AuthHandler) GetUserList(c *gin.Context) {
	userId := c.GetString("user_id")
	data, err := h.userSvc.GetUserList(userId)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}
