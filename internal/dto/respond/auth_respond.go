package respond

// LoginRespond 用户登录响应
type LoginRespond struct {
	Uuid         string `json:"uuid"`
	FullName     string `json:"full_name"`
	Email        string `json:"email"`
	AvatarUrl    string `json:"avatar_url"`
	CreatedAt    string `json:"created_at"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// RegisterRespond 用户注册响应
type RegisterRespond struct {
	Uuid         string `json:"uuid"`
	FullName     string `json:"full_name"`
	Email        string `json:"email"`
	AvatarUrl    string `json:"avatar_url"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// RefreshTokenRespond 刷新 Token 响应
type RefreshTokenRespond struct {
	AccessToken string `json:"access_token"`
}
