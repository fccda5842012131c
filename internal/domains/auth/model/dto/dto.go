package dto

import (
	"time"

	"github.com/google/uuid"

	"bengkel/infras/jwt"
	dealerModel "bengkel/internal/domains/dealer/model"
	gModel "bengkel/shared/model"
	"bengkel/shared/timezone"
)

type RegisterRequest struct {
	Name     string  `json:"name"              validate:"required,max=100"`
	Username string  `json:"username"          validate:"required,min=4,max=50,alphanum"`
	Password string  `json:"password"          validate:"required,min=8"`
	Address  *string `json:"address,omitempty" validate:"omitempty,max=255"`
}

func (r *RegisterRequest) ToDealerModel(username, hashedPassword string) dealerModel.Dealer {
	return dealerModel.Dealer{
		ID:       uuid.NewString(),
		Name:     r.Name,
		Username: r.Username,
		Password: hashedPassword,
		Address:  r.Address,
		Active:   true,
		Metadata: gModel.Metadata{
			CreatedAt:  timezone.Now(),
			ModifiedAt: timezone.Now(),
			CreatedBy:  username,
			ModifiedBy: username,
		},
	}
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type UpdateLastLoginRequest struct {
	LastLogin time.Time `db:"last_login" json:"last_login" validate:"required"`
}

type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

func (l *LoginResponse) FromTokenPair(tokenPair *jwt.TokenPair) {
	l.AccessToken = tokenPair.AccessToken
	l.RefreshToken = tokenPair.RefreshToken
	l.ExpiresIn = tokenPair.ExpiresIn
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type RefreshTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

func (r *RefreshTokenResponse) FromTokenPair(tokenPair *jwt.TokenPair) {
	r.AccessToken = tokenPair.AccessToken
	r.RefreshToken = tokenPair.RefreshToken
	r.ExpiresIn = tokenPair.ExpiresIn
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password"     validate:"required,min=8"`
}

type UpdatePasswordRequest struct {
	Password string `db:"password" json:"password" validate:"required,min=8"`
}
