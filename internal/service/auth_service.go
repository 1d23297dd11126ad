package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/feedback-api/internal/models"
	appErrors "github.com/noah-isme/feedback-api/pkg/errors"
)

const sessionIssuer = "feedback-api"

// AuthConfig defines the admin credential and session settings.
type AuthConfig struct {
	PasswordHash  string
	SessionSecret string
	SessionExpiry time.Duration
}

// AuthService authenticates the single administrator and issues sessions.
type AuthService struct {
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
	now       func() time.Time

	mu      sync.Mutex
	revoked map[string]time.Time
}

// NewAuthService constructs an AuthService.
func NewAuthService(validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.SessionExpiry <= 0 {
		config.SessionExpiry = 8 * time.Hour
	}
	return &AuthService{validator: validate, logger: logger, config: config, now: time.Now, revoked: make(map[string]time.Time)}
}

// HashPassword returns the bcrypt hash used when only a plain admin
// password is configured.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash admin password: %w", err)
	}
	return string(hash), nil
}

// Login checks the admin password and returns a signed session token.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}
	if s.config.PasswordHash == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "admin login is not configured")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.config.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Warn("admin login rejected")
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid password")
	}

	issuedAt := s.now().UTC()
	claims := models.AdminClaims{
		Role: models.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   "admin",
			Issuer:    sessionIssuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.config.SessionExpiry)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.SessionSecret))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign session")
	}

	s.logger.Info("admin session issued", zap.String("session_id", claims.ID))
	return &models.LoginResponse{
		AccessToken: signed,
		ExpiresIn:   int64(s.config.SessionExpiry.Seconds()),
		IssuedAt:    issuedAt,
	}, nil
}

// ValidateToken parses a session token and returns its claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.AdminClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.AdminClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.SessionSecret), nil
	}, jwt.WithIssuer(sessionIssuer))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid session")
	}

	claims, ok := token.Claims.(*models.AdminClaims)
	if !ok || !token.Valid || claims.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid session claims")
	}
	if s.isRevoked(claims.ID) {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "session has been signed out")
	}
	return claims, nil
}

// Logout revokes the session carried by tokenString until it would have
// expired anyway. Tokens that no longer validate are ignored.
func (s *AuthService) Logout(ctx context.Context, tokenString string) error {
	if tokenString == "" {
		return nil
	}
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil
	}
	if claims.ID == "" || claims.ExpiresAt == nil {
		return appErrors.Clone(appErrors.ErrUnauthorized, "session cannot be revoked")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked()
	s.revoked[claims.ID] = claims.ExpiresAt.Time
	s.logger.Info("admin session revoked", zap.String("session_id", claims.ID))
	return nil
}

func (s *AuthService) isRevoked(id string) bool {
	if id == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.revoked[id]
	return ok
}

// pruneLocked drops revocations whose tokens have expired on their own.
func (s *AuthService) pruneLocked() {
	now := s.now()
	for id, expiresAt := range s.revoked {
		if !expiresAt.After(now) {
			delete(s.revoked, id)
		}
	}
}

// SessionExpiry returns the configured session lifetime.
func (s *AuthService) SessionExpiry() time.Duration {
	return s.config.SessionExpiry
}
