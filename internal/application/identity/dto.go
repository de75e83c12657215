package identity

import (
	"time"

	"github.com/crm/backend/internal/domain/identity"
)

// LoginInput contains the input for user login
type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResult contains the result of a successful login
type LoginResult struct {
	AccessToken           string    `json:"access_token"`
	RefreshToken          string    `json:"refresh_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
	TokenType             string    `json:"token_type"`
	User                  UserInfo  `json:"user"`
}

// UserInfo contains basic user information returned after login
type UserInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	AvatarURL string `json:"avatar_url"`
}

func toUserInfo(acc *identity.Account) UserInfo {
	return UserInfo{
		ID:        acc.ID,
		Name:      acc.Name,
		Email:     acc.Email,
		Role:      acc.Role,
		AvatarURL: acc.AvatarURL(),
	}
}

// RefreshTokenInput contains the input for token refresh
type RefreshTokenInput struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// LogoutInput contains the input for user logout
type LogoutInput struct {
	UserID       string
	TokenJTI     string
	TokenTTL     time.Duration
	RefreshToken string `json:"refresh_token"`
}

// RegisterInput creates a user account
type RegisterInput struct {
	Name     string `json:"name" binding:"required,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	Role     string `json:"role" binding:"omitempty,oneof=admin user"`
}

// SetRoleInput changes the role of UserID on behalf of ActorID
type SetRoleInput struct {
	ActorID string
	UserID  string
	Role    string
}

// BootstrapAdminInput describes the first administrator
type BootstrapAdminInput struct {
	Name     string
	Email    string
	Password string
}
