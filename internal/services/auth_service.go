package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/caldana20/referral-sys/internal/common"
	"github.com/caldana20/referral-sys/internal/models"
	"github.com/caldana20/referral-sys/internal/repositories"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

// TokenClaims is the credential issued at login: user, role and tenant
// identity are all fixed at issuance.
type TokenClaims struct {
	UserID     string `json:"user_id"`
	TenantID   string `json:"tenant_id"`
	TenantSlug string `json:"tenant_slug"`
	Role       string `json:"role"`
	jwt.RegisteredClaims
}

type AuthService interface {
	// Login authenticates an admin against the resolved tenant. Unknown user
	// and wrong password both come back as ErrInvalidCredentials so callers
	// cannot enumerate accounts.
	Login(ctx context.Context, tenant *models.TenantContext, email, password string) (string, *models.User, error)
	ValidateToken(token string) (*TokenClaims, error)

	// Me loads the authenticated user's current record.
	Me(ctx context.Context, tenantID, userID uuid.UUID) (*models.User, error)
}

type authService struct {
	userRepo  repositories.UserRepository
	jwtSecret []byte
	tokenTTL  time.Duration
}

func NewAuthService(userRepo repositories.UserRepository, jwtSecret string, tokenTTL time.Duration) AuthService {
	return &authService{
		userRepo:  userRepo,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
	}
}

func (s *authService) Login(ctx context.Context, tenant *models.TenantContext, email, password string) (string, *models.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, tenant.TenantID, common.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if user.Role != models.RoleAdmin {
		return "", nil, ErrAdminsOnly
	}

	if user.PasswordHash == nil || *user.PasswordHash == "" {
		return "", nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	now := time.Now()
	claims := TokenClaims{
		UserID:     user.ID.String(),
		TenantID:   tenant.TenantID.String(),
		TenantSlug: tenant.TenantSlug,
		Role:       user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "referral-sys",
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign JWT: %v", err)
	}
	return signed, user, nil
}

func (s *authService) Me(ctx context.Context, tenantID, userID uuid.UUID) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, tenantID, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *authService) ValidateToken(tokenString string) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %v", err)
	}

	if claims, ok := token.Claims.(*TokenClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token claims")
}
