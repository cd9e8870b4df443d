package authapp

import (
	"context"
	"time"

	"flowforge/internal/core/apperrors"

	"github.com/dgrijalva/jwt-go"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const tokenTTL = 24 * time.Hour

// TokenDTO is the login response.
type TokenDTO struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
}

// AuthService authenticates the configured operator account and issues
// JWTs. Credentials come from configuration, not a user table: the API is
// an internal operator surface, not a multi-tenant product.
type AuthService struct {
	username     string
	passwordHash string
	jwtKey       []byte
	logger       *zap.Logger
}

func NewAuthService(username, passwordHash string, jwtKey []byte, logger *zap.Logger) *AuthService {
	return &AuthService{
		username:     username,
		passwordHash: passwordHash,
		jwtKey:       jwtKey,
		logger:       logger,
	}
}

// Login verifies operator credentials and returns a signed token.
func (s *AuthService) Login(ctx context.Context, username, password string) (*TokenDTO, error) {
	if username != s.username {
		return nil, apperrors.AuthFail("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.passwordHash), []byte(password)); err != nil {
		s.logger.Warn("login rejected", zap.String("username", username))
		return nil, apperrors.AuthFail("invalid credentials")
	}

	expiresAt := time.Now().Add(tokenTTL)
	claims := &jwt.StandardClaims{
		Subject:   username,
		Issuer:    "flowforge",
		ExpiresAt: expiresAt.Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtKey)
	if err != nil {
		return nil, apperrors.Internal("could not sign token")
	}

	s.logger.Info("operator logged in", zap.String("username", username))
	return &TokenDTO{Token: token, ExpiresAt: expiresAt.Unix()}, nil
}
