package user

import (
	"context"
	"testing"
	"time"

	"weitalk_relay_server/internal/dao/mysql/repository"
	"weitalk_relay_server/internal/dto/request"
	"weitalk_relay_server/internal/model"
	"weitalk_relay_server/pkg/errorx"
	"weitalk_relay_server/pkg/util/jwt"
)

type memUserRepo struct {
	byEmail map[string]*model.UserInfo
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byEmail: make(map[string]*model.UserInfo)}
}

func (r *memUserRepo) FindByUuid(uuid string) (*model.UserInfo, error) {
	for _, user := range r.byEmail {
		if user.Uuid == uuid {
			return user, nil
		}
	}
	return nil, errorx.New(errorx.CodeNotFound, "用户不存在")
}
func (r *memUserRepo) FindByEmail(email string) (*model.UserInfo, error) {
	if user, ok := r.byEmail[email]; ok {
		return user, nil
	}
	return nil, errorx.New(errorx.CodeNotFound, "用户不存在")
}
func (r *memUserRepo) FindByUuids(uuids []string) ([]model.UserInfo, error) { return nil, nil }
func (r *memUserRepo) FindAllExcept(excludeUuid string) ([]model.UserInfo, error) {
	var users []model.UserInfo
	for _, user := range r.byEmail {
		if user.Uuid != excludeUuid {
			users = append(users, *user)
		}
	}
	return users, nil
}

// Create 入库前走 BeforeSave，保持和 gorm 一致的密码加密行为
func (r *memUserRepo) Create(user *model.UserInfo) error {
	if err := user.BeforeSave(nil); err != nil {
		return err
	}
	r.byEmail[user.Email] = user
	return nil
}
func (r *memUserRepo) SetOnline(uuid string, online bool, lastSeen time.Time) error { return nil }

// mapCache 用 map 模拟 Redis 的字符串读写
type mapCache struct {
	data map[string]string
}

func newMapCache() *mapCache { return &mapCache{data: make(map[string]string)} }

func (c *mapCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	c.data[key] = value
	return nil
}
func (c *mapCache) Get(ctx context.Context, key string) (string, error) {
	return c.data[key], nil
}
func (c *mapCache) GetOrError(ctx context.Context, key string) (string, error) {
	if value, ok := c.data[key]; ok {
		return value, nil
	}
	return "", errorx.New(errorx.CodeNotFound, "key 不存在")
}
func (c *mapCache) Delete(ctx context.Context, key string) error {
	delete(c.data, key)
	return nil
}
func (c *mapCache) DeleteByPattern(ctx context.Context, pattern string) error { return nil }
func (c *mapCache) AddToSet(ctx context.Context, key string, members ...interface{}) error {
	return nil
}
func (c *mapCache) GetSetMembers(ctx context.Context, key string) ([]string, error) {
	return nil, nil
}
func (c *mapCache) RemoveFromSet(ctx context.Context, key string, members ...interface{}) error {
	return nil
}

func newFixture() (*userService, *memUserRepo, *mapCache) {
	jwt.Init("test-secret", 15, 168)
	users := newMemUserRepo()
	cache := newMapCache()
	svc := NewUserService(&repository.Repositories{User: users}, cache)
	return svc, users, cache
}

func TestRegisterIssuesTokens(t *testing.T) {
	svc, users, cache := newFixture()

	resp, err := svc.Register(request.RegisterRequest{
		Email:    "alice@example.com",
		FullName: "Alice",
		Password: "secret123",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if resp.Uuid == "" || resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatalf("注册响应缺少字段: %+v", resp)
	}
	// 密码必须已加密且明文已清空
	stored := users.byEmail["alice@example.com"]
	if stored.Password == "secret123" || stored.Password == "" || stored.RawPassword != "" {
		t.Fatalf("密码未正确加密: %q", stored.Password)
	}
	if cache.data["user_token:"+resp.Uuid] == "" {
		t.Fatal("Refresh Token ID 未写入缓存")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _, _ := newFixture()

	req := request.RegisterRequest{Email: "bob@example.com", FullName: "Bob", Password: "secret123"}
	if _, err := svc.Register(req); err != nil {
		t.Fatalf("首次注册: %v", err)
	}
	_, err := svc.Register(req)
	if errorx.GetCode(err) != errorx.CodeUserExist {
		t.Fatalf("重复注册应返回 CodeUserExist, got %v", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _, _ := newFixture()

	if _, err := svc.Register(request.RegisterRequest{
		Email: "carol@example.com", FullName: "Carol", Password: "secret123",
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, err := svc.Login(request.LoginRequest{Email: "carol@example.com", Password: "secret123"}); err != nil {
		t.Fatalf("正确密码登录失败: %v", err)
	}
	_, err := svc.Login(request.LoginRequest{Email: "carol@example.com", Password: "wrong-pass"})
	if errorx.GetCode(err) != errorx.CodeInvalidPassword {
		t.Fatalf("错误密码应返回 CodeInvalidPassword, got %v", err)
	}
}

func TestLoginUnknownUser(t *testing.T) {
	svc, _, _ := newFixture()

	_, err := svc.Login(request.LoginRequest{Email: "nobody@example.com", Password: "secret123"})
	if errorx.GetCode(err) != errorx.CodeUserNotExist {
		t.Fatalf("未注册用户登录应返回 CodeUserNotExist, got %v", err)
	}
}

func TestRefreshTokenSingleSession(t *testing.T) {
	svc, _, _ := newFixture()

	resp, err := svc.Register(request.RegisterRequest{
		Email: "dave@example.com", FullName: "Dave", Password: "secret123",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	// 当前会话的 Refresh Token 可以换取新 Access Token
	refreshed, err := svc.RefreshToken(request.RefreshTokenRequest{RefreshToken: resp.RefreshToken})
	if err != nil {
		t.Fatalf("RefreshToken: %v", err)
	}
	if refreshed.AccessToken == "" {
		t.Fatal("刷新后 Access Token 为空")
	}

	// 再次登录签发新的 Token ID，旧 Refresh Token 随之失效
	login, err := svc.Login(request.LoginRequest{Email: "dave@example.com", Password: "secret123"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if login.RefreshToken == resp.RefreshToken {
		t.Fatal("两次签发的 Refresh Token 不应相同")
	}
	_, err = svc.RefreshToken(request.RefreshTokenRequest{RefreshToken: resp.RefreshToken})
	if errorx.GetCode(err) != errorx.CodeUnauthorized {
		t.Fatalf("旧 Refresh Token 应被拒绝, got %v", err)
	}
}

func TestRefreshTokenRejectsAccessToken(t *testing.T) {
	svc, _, _ := newFixture()

	resp, err := svc.Register(request.RegisterRequest{
		Email: "erin@example.com", FullName: "Erin", Password: "secret123",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	_, err = svc.RefreshToken(request.RefreshTokenRequest{RefreshToken: resp.AccessToken})
	if errorx.GetCode(err) != errorx.CodeUnauthorized {
		t.Fatalf("Access Token 不应能用于刷新, got %v", err)
	}
}
