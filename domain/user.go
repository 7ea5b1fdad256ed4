package domain

import (
	"errors"
	"strings"
	"time"
)

var (
	MessageSuccessRegister         = "user registered successfully"
	MessageSuccessLogin            = "login successful"
	MessageSuccessRefreshToken     = "token refreshed successfully"
	MessageSuccessGetUser          = "user retrieved successfully"
	MessageSuccessSendVerification = "verification email sent"
	MessageSuccessVerifyEmail      = "email verified successfully"

	MessageFailedRegister         = "failed to register user"
	MessageFailedLogin            = "failed to login"
	MessageFailedRefreshToken     = "failed to refresh token"
	MessageFailedGetUser          = "failed to retrieve user"
	MessageFailedSendVerification = "failed to send verification email"
	MessageFailedVerifyEmail      = "failed to verify email"

	ErrEmailExists          = errors.New("Email already registered")
	ErrInvalidCredentials   = errors.New("Invalid email or password")
	ErrUserNotFound         = errors.New("user not found")
	ErrUserInactive         = errors.New("User account is inactive")
	ErrEmailAlreadyVerified = errors.New("email already verified")
	ErrInvalidTokenType     = errors.New("invalid token type")
)

type (
	RegisterRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,min=8,max=100"`
		Name     string `json:"name" validate:"required,min=2,max=100"`
	}

	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	RefreshTokenRequest struct {
		RefreshToken string `json:"refresh_token" validate:"required"`
	}

	TokenResponse struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		TokenType    string `json:"token_type"`
		ExpiresIn    int64  `json:"expires_in"`
	}

	UserResponse struct {
		ID               string    `json:"id"`
		Email            string    `json:"email"`
		Name             string    `json:"name"`
		SubscriptionTier string    `json:"subscription_tier"`
		ScansThisMonth   int       `json:"scans_this_month"`
		EmailVerified    bool      `json:"email_verified"`
		CreatedAt        time.Time `json:"created_at"`
	}

	AuthResponse struct {
		User   UserResponse  `json:"user"`
		Tokens TokenResponse `json:"tokens"`
	}
)

// Normalize trims email and name so the length rules hold for the stored
// values. Call it before validating.
func (r *RegisterRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Name = strings.TrimSpace(r.Name)
}
