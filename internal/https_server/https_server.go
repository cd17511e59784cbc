// Package https_server 提供 HTTP/HTTPS 服务器的初始化和配置
// 负责创建 Gin 引擎实例并配置中间件、静态资源和路由
package https_server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"weitalk_relay_server/internal/config"
	"weitalk_relay_server/internal/handler"
	"weitalk_relay_server/internal/infrastructure/logger"
	"weitalk_relay_server/internal/infrastructure/middleware"
	"weitalk_relay_server/internal/router"
)

// Init 初始化 HTTP/HTTPS 服务器并返回 Gin 引擎实例
// 配置顺序：
//  1. 创建空白 Gin 引擎（不含默认中间件）
//  2. 注册日志和恢复中间件
//  3. 配置 CORS 跨域规则
//  4. 映射静态资源目录
//  5. 注册业务路由
func Init(handlers *handler.Handlers) *gin.Engine {
	conf := config.GetConfig()
	if conf.MainConfig.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// 自定义 Zap 日志中间件，替代 Gin 默认日志
	engine.Use(logger.GinLogger())
	// Panic 恢复中间件，true 表示日志带堆栈
	engine.Use(logger.GinRecovery(true))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"*"} // 生产环境应指定具体域名
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	engine.Use(cors.New(corsConfig))

	// TLS 重定向（如果由 Nginx 处理 SSL 则关闭 enableTls）
	if conf.MainConfig.EnableTls {
		engine.Use(middleware.TlsHandler(conf.MainConfig.Host, conf.MainConfig.Port))
	}

	// 头像静态资源
	engine.Static("/static/avatars", conf.StaticAvatarPath)

	rt := router.NewRouter(handlers)
	rt.RegisterRoutes(engine)

	return engine
}
