// Package handler 提供 HTTP 请求处理器
// 本文件处理会话相关的 API 请求
package handler

import (
	"github.com/gin-gonic/gin"

	"weitalk_relay_server/internal/dto/request"
	"weitalk_relay_server/internal/service"
	"weitalk_relay_server/pkg/errorx"
)

// ChatHandler 会话请求处理器
type ChatHandler struct {
	chatSvc service.ChatService
}

// NewChatHandler 创建会话处理器实例
func NewChatHandler(chatSvc service.ChatService) *ChatHandler {
	return &ChatHandler{chatSvc: chatSvc}
}

// GetChatList 获取会话列表
// GET /chats
// 响应: []respond.ChatListRespond (带成员、最后一条消息和未读数)
func (h *ChatHandler) GetChatList(c *gin.Context) {
	userId := c.GetString("user_id")
	data, err := h.chatSvc.GetChatList(userId)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// CreateDirectChat 查找或创建单聊会话
// POST /chats/direct
// 请求体: request.CreateDirectChatRequest
// 响应: respond.CreateChatRespond (复用已有会话时 existed 为 true)
func (h *ChatHandler) CreateDirectChat(c *gin.Context) {
	var req request.CreateDirectChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.chatSvc.CreateDirectChat(c.GetString("user_id"), req)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// CreateGroupChat 创建群聊会话
// POST /chats/group
// 请求体: request.CreateGroupChatRequest
// 响应: respond.CreateChatRespond
func (h *ChatHandler) CreateGroupChat(c *gin.Context) {
	var req request.CreateGroupChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.chatSvc.CreateGroupChat(c.GetString("user_id"), req)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// GetMessageList 获取会话历史消息
// GET /chats/:chat_id/messages
// 响应: []respond.MessageRespond (带发送者信息和已读用户列表)
func (h *ChatHandler) GetMessageList(c *gin.Context) {
	chatId := c.Param("chat_id")
	if chatId == "" {
		HandleError(c, errorx.ErrInvalidParam)
		return
	}
	data, err := h.chatSvc.GetMessageList(c.GetString("user_id"), chatId)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}
