// Package service 提供业务逻辑层
// 本文件实现 Service 层的依赖注入和聚合
package service

import (
	"weitalk_relay_server/internal/config"
	"weitalk_relay_server/internal/dao/mysql/repository"
	myredis "weitalk_relay_server/internal/dao/redis"
	"weitalk_relay_server/internal/service/chat"
	"weitalk_relay_server/internal/service/summary"
	"weitalk_relay_server/internal/service/user"
)

// Services 聚合所有 Service 实例
// Handler 层通过该聚合访问各个 Service
type Services struct {
	User    UserService
	Chat    ChatService
	Summary SummaryService
}

// NewServices 创建并注入所有 Service 实例
func NewServices(repos *repository.Repositories, cache myredis.AsyncCacheService) *Services {
	return &Services{
		User:    user.NewUserService(repos, cache),
		Chat:    chat.NewChatService(repos, cache),
		Summary: summary.NewSummaryService(config.GetConfig().SummarizerConfig),
	}
}
