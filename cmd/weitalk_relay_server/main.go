package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"weitalk_relay_server/internal/config"
	dao "weitalk_relay_server/internal/dao/mysql"
	myredis "weitalk_relay_server/internal/dao/redis"
	"weitalk_relay_server/internal/handler"
	"weitalk_relay_server/internal/https_server"
	"weitalk_relay_server/internal/infrastructure/logger"
	"weitalk_relay_server/internal/service"
	"weitalk_relay_server/internal/service/relay"
	"weitalk_relay_server/pkg/util/jwt"
	"weitalk_relay_server/pkg/util/snowflake"
)

func main() {
	// 1. 加载配置
	conf := config.GetConfig()

	// 2. 初始化日志
	if err := logger.Init(&conf.LogConfig, conf.MainConfig.Mode); err != nil {
		log.Fatalf("init logger failed: %v", err)
	}
	zap.L().Info("日志初始化成功")

	// 3. 初始化数据库
	repos := dao.Init()
	zap.L().Info("数据库初始化成功")

	// 4. 初始化 Redis
	myredis.Init()
	cache := myredis.GetCacheService()
	zap.L().Info("Redis 初始化成功")

	// 5. 初始化 JWT 和雪花 ID
	jwt.Init(conf.JWTConfig.Secret, conf.JWTConfig.AccessTokenExpiry, conf.JWTConfig.RefreshTokenExpiry)
	snowflake.Init()

	// 6. 初始化校验器翻译
	if err := handler.InitTrans("zh"); err != nil {
		zap.L().Fatal("翻译器初始化失败", zap.Error(err))
	}

	// 7. 初始化 Service 层（依赖注入）
	services := service.NewServices(repos, cache)
	zap.L().Info("Service 层初始化成功")

	// 8. 初始化中继服务，按配置选择广播通道
	relayServer := relay.NewServer(repos, cache)
	if conf.KafkaConfig.MessageMode == "kafka" {
		relayServer.UseBroker(relay.NewKafkaBroker(relayServer))
	} else {
		relayServer.UseBroker(relay.NewChannelBroker(relayServer))
	}
	relayServer.Start()
	zap.L().Info("中继服务初始化成功",
		zap.String("message_mode", conf.KafkaConfig.MessageMode))

	// 9. 初始化 HTTP 服务器
	handlers := handler.NewHandlers(services, relayServer)
	engine := https_server.Init(handlers)

	go func() {
		addr := fmt.Sprintf("%s:%d", conf.MainConfig.Host, conf.MainConfig.Port)
		if err := engine.Run(addr); err != nil {
			zap.L().Fatal("server running fault", zap.Error(err))
		}
	}()
	zap.L().Info("服务启动成功",
		zap.String("host", conf.MainConfig.Host), zap.Int("port", conf.MainConfig.Port))

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zap.L().Info("关闭服务器...")
	relayServer.Close()
	zap.L().Info("服务器已关闭")
}
