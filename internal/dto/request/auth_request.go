package request

// RegisterRequest 用户注册请求
// 使用位置:
//   - internal/handler/auth_handler.go: RegisterHandler
//   - internal/service/user/service.go: Register
type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email"`
	FullName  string `json:"full_name" binding:"required,min=1,max=50"`
	Password  string `json:"password" binding:"required,min=6"`
	AvatarUrl string `json:"avatar_url"`
}

// LoginRequest 用户密码登录请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// RefreshTokenRequest 刷新 Access Token 请求
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}
