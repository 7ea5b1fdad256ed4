package user

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"splay/domain"
	"splay/entities"
	"splay/internal/utils"
	"splay/internal/utils/mailing"
	"splay/pkg/jwt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type (
	UserService interface {
		Register(ctx context.Context, req domain.RegisterRequest) (domain.AuthResponse, error)
		Login(ctx context.Context, req domain.LoginRequest) (domain.AuthResponse, error)
		RefreshToken(ctx context.Context, req domain.RefreshTokenRequest) (domain.TokenResponse, error)
		Me(ctx context.Context, userID string) (domain.UserResponse, error)
		SendVerificationEmail(ctx context.Context, userID string) error
		VerifyEmail(ctx context.Context, token string) error
	}

	userService struct {
		userRepository UserRepository
		jwtService     jwt.JWTService
		mailer         mailing.Mailer
		logger         *zap.Logger
		now            func() time.Time
	}
)

func NewUserService(
	userRepository UserRepository,
	jwtService jwt.JWTService,
	mailer mailing.Mailer,
	logger *zap.Logger,
) UserService {
	return &userService{
		userRepository: userRepository,
		jwtService:     jwtService,
		mailer:         mailer,
		logger:         logger,
		now:            time.Now,
	}
}

func ToUserResponse(user *entities.User) domain.UserResponse {
	return domain.UserResponse{
		ID:               user.ID.String(),
		Email:            user.Email,
		Name:             user.Name,
		SubscriptionTier: user.SubscriptionTier,
		ScansThisMonth:   user.ScansThisMonth,
		EmailVerified:    user.EmailVerified,
		CreatedAt:        user.CreatedAt,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *userService) Register(ctx context.Context, req domain.RegisterRequest) (domain.AuthResponse, error) {
	email := normalizeEmail(req.Email)

	_, err := s.userRepository.GetUserByEmail(ctx, email)
	if err == nil {
		return domain.AuthResponse{}, domain.ErrEmailExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.AuthResponse{}, err
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return domain.AuthResponse{}, fmt.Errorf("hashing password: %w", err)
	}

	user := &entities.User{
		ID:               uuid.New(),
		Email:            email,
		PasswordHash:     hash,
		Name:             strings.TrimSpace(req.Name),
		SubscriptionTier: entities.TierFree,
		ScanPeriod:       s.now().UTC().Format("2006-01"),
		IsActive:         true,
	}
	if err := s.userRepository.CreateUser(ctx, user); err != nil {
		return domain.AuthResponse{}, err
	}

	tokens, err := s.jwtService.GenerateTokenPair(user.ID.String())
	if err != nil {
		return domain.AuthResponse{}, err
	}

	if err := s.sendVerification(user); err != nil {
		s.logger.Warn("verification email not sent", zap.String("user_id", user.ID.String()), zap.Error(err))
	}

	return domain.AuthResponse{
		User:   ToUserResponse(user),
		Tokens: tokens,
	}, nil
}

func (s *userService) Login(ctx context.Context, req domain.LoginRequest) (domain.AuthResponse, error) {
	user, err := s.userRepository.GetUserByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.AuthResponse{}, domain.ErrInvalidCredentials
		}
		return domain.AuthResponse{}, err
	}

	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		return domain.AuthResponse{}, domain.ErrInvalidCredentials
	}
	if !user.IsActive {
		return domain.AuthResponse{}, domain.ErrUserInactive
	}

	now := s.now()
	if err := s.userRepository.UpdateLastLogin(ctx, user.ID.String(), now); err != nil {
		return domain.AuthResponse{}, err
	}
	user.LastLoginAt = &now

	tokens, err := s.jwtService.GenerateTokenPair(user.ID.String())
	if err != nil {
		return domain.AuthResponse{}, err
	}

	return domain.AuthResponse{
		User:   ToUserResponse(user),
		Tokens: tokens,
	}, nil
}

func (s *userService) RefreshToken(ctx context.Context, req domain.RefreshTokenRequest) (domain.TokenResponse, error) {
	userID, err := s.jwtService.GetUserIDByToken(req.RefreshToken, jwt.TokenTypeRefresh)
	if err != nil {
		return domain.TokenResponse{}, err
	}

	user, err := s.userRepository.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.TokenResponse{}, domain.ErrTokenInvalid
		}
		return domain.TokenResponse{}, err
	}
	if !user.IsActive {
		return domain.TokenResponse{}, domain.ErrUserInactive
	}

	return s.jwtService.GenerateTokenPair(user.ID.String())
}

func (s *userService) Me(ctx context.Context, userID string) (domain.UserResponse, error) {
	user, err := s.userRepository.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.UserResponse{}, domain.ErrUserNotFound
		}
		return domain.UserResponse{}, err
	}
	return ToUserResponse(user), nil
}

func (s *userService) SendVerificationEmail(ctx context.Context, userID string) error {
	user, err := s.userRepository.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrUserNotFound
		}
		return err
	}
	if user.EmailVerified {
		return domain.ErrEmailAlreadyVerified
	}
	return s.sendVerification(user)
}

func (s *userService) sendVerification(user *entities.User) error {
	token, err := s.jwtService.GenerateToken(user.ID.String(), jwt.TokenTypeVerify)
	if err != nil {
		return err
	}

	link := strings.TrimSuffix(s.mailer.AppURL(), "/") + "/api/v1/auth/verify?token=" + url.QueryEscape(token)
	body, err := mailing.VerificationEmail(user.Name, link)
	if err != nil {
		return err
	}
	return s.mailer.SendMail(user.Email, "Verify your Splay account", body)
}

func (s *userService) VerifyEmail(ctx context.Context, token string) error {
	userID, err := s.jwtService.GetUserIDByToken(token, jwt.TokenTypeVerify)
	if err != nil {
		return err
	}

	user, err := s.userRepository.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrUserNotFound
		}
		return err
	}
	if user.EmailVerified {
		return domain.ErrEmailAlreadyVerified
	}

	user.EmailVerified = true
	return s.userRepository.UpdateUser(ctx, user)
}
