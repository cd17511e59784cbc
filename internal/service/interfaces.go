// Package service 定义业务层接口
// 本文件定义所有 Service 接口，供 Handler 层调用
// 接口设计遵循依赖倒置原则，便于测试和解耦
package service

import (
	"context"

	"weitalk_relay_server/internal/dto/request"
	"weitalk_relay_server/internal/dto/respond"
)

// UserService 用户业务接口
// 处理注册、登录、Token 刷新和用户列表
type UserService interface {
	// Register 用户注册，自动登录并返回双 Token
	Register(req request.RegisterRequest) (*respond.RegisterRespond, error)
	// Login 密码登录
	Login(req request.LoginRequest) (*respond.LoginRespond, error)
	// RefreshToken 用 Refresh Token 换取新的 Access Token
	RefreshToken(req request.RefreshTokenRequest) (*respond.RefreshTokenRespond, error)
	// GetUserList 获取除本人外的所有用户（发起单聊时选人）
	GetUserList(ownerId string) ([]respond.UserListRespond, error)
}

// ChatService 会话业务接口
// 处理会话列表、会话创建和历史消息
type ChatService interface {
	// GetChatList 获取用户的会话列表，带成员、最后一条消息和未读数
	GetChatList(userId string) ([]respond.ChatListRespond, error)
	// CreateDirectChat 查找或创建单聊会话，同一用户对只会存在一个
	CreateDirectChat(userId string, req request.CreateDirectChatRequest) (*respond.CreateChatRespond, error)
	// CreateGroupChat 创建群聊会话，创建者为管理员
	CreateGroupChat(userId string, req request.CreateGroupChatRequest) (*respond.CreateChatRespond, error)
	// GetMessageList 获取会话历史消息，带已读用户列表
	GetMessageList(userId, chatId string) ([]respond.MessageRespond, error)
}

// SummaryService 会话摘要业务接口
// 摘要由外部服务生成，本服务只做转发
type SummaryService interface {
	// Summarize 生成会话摘要
	Summarize(ctx context.Context, req request.SummarizeRequest) (*respond.SummarizeRespond, error)
}
