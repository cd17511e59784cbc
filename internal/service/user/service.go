// Package user 提供用户相关的业务逻辑
// 处理注册、登录、Token 刷新和用户列表
package user

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"weitalk_relay_server/internal/dao/mysql/repository"
	myredis "weitalk_relay_server/internal/dao/redis"
	"weitalk_relay_server/internal/dto/request"
	"weitalk_relay_server/internal/dto/respond"
	"weitalk_relay_server/internal/model"
	"weitalk_relay_server/pkg/constants"
	"weitalk_relay_server/pkg/errorx"
	"weitalk_relay_server/pkg/util/jwt"
)

// userService 用户业务逻辑实现
type userService struct {
	repos *repository.Repositories
	cache myredis.CacheService
}

// NewUserService 构造函数，注入 Repository 和缓存依赖
func NewUserService(repos *repository.Repositories, cache myredis.CacheService) *userService {
	return &userService{repos: repos, cache: cache}
}

// Register 用户注册
// 邮箱唯一；注册成功即视为登录，直接返回双 Token
func (u *userService) Register(req request.RegisterRequest) (*respond.RegisterRespond, error) {
	_, err := u.repos.User.FindByEmail(req.Email)
	if err == nil {
		return nil, errorx.New(errorx.CodeUserExist, "邮箱已被注册")
	}
	if errorx.GetCode(err) != errorx.CodeNotFound {
		zap.L().Error("查询邮箱失败", zap.Error(err))
		return nil, errorx.ErrServerBusy
	}

	user := &model.UserInfo{
		Uuid:        uuid.NewString(),
		FullName:    req.FullName,
		Email:       req.Email,
		AvatarUrl:   req.AvatarUrl,
		RawPassword: req.Password,
	}
	if err := u.repos.User.Create(user); err != nil {
		zap.L().Error("创建用户失败", zap.Error(err))
		return nil, errorx.ErrServerBusy
	}

	accessToken, refreshToken, err := u.issueTokens(user.Uuid)
	if err != nil {
		return nil, err
	}
	return &respond.RegisterRespond{
		Uuid:         user.Uuid,
		FullName:     user.FullName,
		Email:        user.Email,
		AvatarUrl:    user.AvatarUrl,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// Login 密码登录
func (u *userService) Login(req request.LoginRequest) (*respond.LoginRespond, error) {
	user, err := u.repos.User.FindByEmail(req.Email)
	if err != nil {
		if errorx.GetCode(err) == errorx.CodeNotFound {
			return nil, errorx.New(errorx.CodeUserNotExist, "用户不存在，请注册")
		}
		zap.L().Error("查询用户失败", zap.Error(err))
		return nil, errorx.ErrServerBusy
	}
	if !user.CheckPassword(req.Password) {
		return nil, errorx.New(errorx.CodeInvalidPassword, "密码不正确，请重试")
	}

	accessToken, refreshToken, err := u.issueTokens(user.Uuid)
	if err != nil {
		return nil, err
	}
	return &respond.LoginRespond{
		Uuid:         user.Uuid,
		FullName:     user.FullName,
		Email:        user.Email,
		AvatarUrl:    user.AvatarUrl,
		CreatedAt:    user.CreatedAt.Format(time.RFC3339),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// RefreshToken 用 Refresh Token 换取新的 Access Token
// Token ID 必须与 Redis 中记录的一致，后登录的会话会使先前的失效
func (u *userService) RefreshToken(req request.RefreshTokenRequest) (*respond.RefreshTokenRespond, error) {
	claims, err := jwt.ParseToken(req.RefreshToken)
	if err != nil || claims.Subject != "refresh_token" {
		return nil, errorx.New(errorx.CodeUnauthorized, "Refresh Token 无效")
	}

	ctx, cancel := context.WithTimeout(context.Background(),
		constants.REDIS_TIMEOUT*time.Second)
	defer cancel()
	validTokenID, err := u.cache.Get(ctx, "user_token:"+claims.UserID)
	if err != nil {
		zap.L().Error("读取 Token ID 失败", zap.Error(err))
		return nil, errorx.ErrServerBusy
	}
	if validTokenID == "" || validTokenID != claims.TokenID {
		return nil, errorx.New(errorx.CodeUnauthorized, "登录已失效，请重新登录")
	}

	accessToken, err := jwt.GenerateAccessToken(claims.UserID)
	if err != nil {
		zap.L().Error("生成 Access Token 失败", zap.Error(err))
		return nil, errorx.ErrServerBusy
	}
	return &respond.RefreshTokenRespond{AccessToken: accessToken}, nil
}

// GetUserList 获取除本人外的所有用户
func (u *userService) GetUserList(ownerId string) ([]respond.UserListRespond, error) {
	users, err := u.repos.User.FindAllExcept(ownerId)
	if err != nil {
		zap.L().Error("查询用户列表失败", zap.Error(err))
		return nil, errorx.ErrServerBusy
	}
	list := make([]respond.UserListRespond, 0, len(users))
	for _, user := range users {
		item := respond.UserListRespond{
			Id:        user.Uuid,
			FullName:  user.FullName,
			Email:     user.Email,
			AvatarUrl: user.AvatarUrl,
			Online:    user.Online,
		}
		if user.LastSeen.Valid {
			item.LastSeen = user.LastSeen.Time.Format(time.RFC3339)
		}
		list = append(list, item)
	}
	return list, nil
}

// issueTokens 签发双 Token 并把 Refresh Token ID 写入 Redis
func (u *userService) issueTokens(userUuid string) (accessToken, refreshToken string, err error) {
	accessToken, err = jwt.GenerateAccessToken(userUuid)
	if err != nil {
		zap.L().Error("生成 Access Token 失败", zap.Error(err))
		return "", "", errorx.ErrServerBusy
	}
	refreshToken, tokenID, err := jwt.GenerateRefreshToken(userUuid)
	if err != nil {
		zap.L().Error("生成 Refresh Token 失败", zap.Error(err))
		return "", "", errorx.ErrServerBusy
	}

	ctx, cancel := context.WithTimeout(context.Background(),
		constants.REDIS_TIMEOUT*time.Second)
	defer cancel()
	if err := u.cache.Set(ctx, "user_token:"+userUuid, tokenID,
		constants.REFRESH_TOKEN_EXPIRY_HOURS*time.Hour); err != nil {
		// 不阻塞登录流程，仅记录日志
		zap.L().Error("存储 Token ID 失败", zap.Error(err))
	}
	return accessToken, refreshToken, nil
}
