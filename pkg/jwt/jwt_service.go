package jwt

import (
	"errors"
	"fmt"
	"time"

	"splay/domain"
	"splay/internal/utils"

	"github.com/golang-jwt/jwt/v4"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
	TokenTypeVerify  = "verify"
)

type (
	JWTService interface {
		GenerateTokenPair(userID string) (domain.TokenResponse, error)
		GenerateToken(userID, tokenType string) (string, error)
		ValidateToken(token string) (*jwt.Token, error)
		GetUserIDByToken(token, tokenType string) (string, error)
	}

	jwtUserClaim struct {
		Type string `json:"type"`
		jwt.RegisteredClaims
	}

	Options struct {
		Secret     string
		Issuer     string
		AccessTTL  time.Duration
		RefreshTTL time.Duration
		VerifyTTL  time.Duration
	}

	jwtService struct {
		secretKey string
		issuer    string
		ttl       map[string]time.Duration
		now       func() time.Time
	}
)

func optionsFromConfig() Options {
	utils.LoadConfig()
	return Options{
		Secret:     utils.GetConfig("JWT_SECRET"),
		Issuer:     "SPLAY",
		AccessTTL:  time.Duration(utils.GetConfigInt("JWT_ACCESS_TOKEN_EXPIRE_MINUTES", 15)) * time.Minute,
		RefreshTTL: time.Duration(utils.GetConfigInt("JWT_REFRESH_TOKEN_EXPIRE_DAYS", 7)) * 24 * time.Hour,
		VerifyTTL:  time.Duration(utils.GetConfigInt("JWT_VERIFY_TOKEN_EXPIRE_HOURS", 24)) * time.Hour,
	}
}

func NewJWTService() JWTService {
	return NewJWTServiceWithOptions(optionsFromConfig())
}

func NewJWTServiceWithOptions(opts Options) JWTService {
	return &jwtService{
		secretKey: opts.Secret,
		issuer:    opts.Issuer,
		ttl: map[string]time.Duration{
			TokenTypeAccess:  opts.AccessTTL,
			TokenTypeRefresh: opts.RefreshTTL,
			TokenTypeVerify:  opts.VerifyTTL,
		},
		now: time.Now,
	}
}

func (j *jwtService) GenerateTokenPair(userID string) (domain.TokenResponse, error) {
	access, err := j.GenerateToken(userID, TokenTypeAccess)
	if err != nil {
		return domain.TokenResponse{}, err
	}
	refresh, err := j.GenerateToken(userID, TokenTypeRefresh)
	if err != nil {
		return domain.TokenResponse{}, err
	}

	return domain.TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    int64(j.ttl[TokenTypeAccess].Seconds()),
	}, nil
}

func (j *jwtService) GenerateToken(userID, tokenType string) (string, error) {
	ttl, ok := j.ttl[tokenType]
	if !ok {
		return "", domain.ErrInvalidTokenType
	}

	now := j.now()
	claims := jwtUserClaim{
		tokenType,
		jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    j.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(j.secretKey))
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

func (j *jwtService) parseToken(t_ *jwt.Token) (any, error) {
	if _, ok := t_.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method %v", t_.Header["alg"])
	}
	return []byte(j.secretKey), nil
}

func (j *jwtService) ValidateToken(token string) (*jwt.Token, error) {
	return jwt.ParseWithClaims(token, &jwtUserClaim{}, j.parseToken)
}

// GetUserIDByToken returns the subject of a valid token of the given type.
func (j *jwtService) GetUserIDByToken(token, tokenType string) (string, error) {
	t_Token, err := j.ValidateToken(token)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", domain.ErrTokenExpired
		}
		return "", domain.ErrTokenInvalid
	}
	if !t_Token.Valid {
		return "", domain.ErrTokenInvalid
	}

	claims := t_Token.Claims.(*jwtUserClaim)
	if claims.Type != tokenType {
		return "", domain.ErrInvalidTokenType
	}
	if claims.Subject == "" {
		return "", domain.ErrTokenInvalid
	}
	return claims.Subject, nil
}
