package services

import (
	"context"
	"errors"
	"strings"

	"github.com/caldana20/referral-sys/internal/common"
	"github.com/caldana20/referral-sys/internal/models"
	"github.com/caldana20/referral-sys/internal/repositories"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

type UserService interface {
	Create(ctx context.Context, tenantID uuid.UUID, req *CreateUserRequest) (*models.User, error)
	List(ctx context.Context, tenantID uuid.UUID, role string, limit, offset int) ([]*models.User, error)
	Delete(ctx context.Context, tenantID, id, actorID uuid.UUID) error
}

type CreateUserRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required"`
	Phone    string `json:"phone"`
	Role     string `json:"role" validate:"required,oneof=admin client"`
	Password string `json:"password"`
}

type userService struct {
	userRepo repositories.UserRepository
}

func NewUserService(userRepo repositories.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

func (s *userService) Create(ctx context.Context, tenantID uuid.UUID, req *CreateUserRequest) (*models.User, error) {
	email := common.NormalizeEmail(req.Email)
	if err := common.ValidateEmail(email, "email"); err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, &ValidationError{Message: "name is required"}
	}
	if req.Role != models.RoleAdmin && req.Role != models.RoleClient {
		return nil, &ValidationError{Message: "role must be admin or client"}
	}
	// Admins sign in, so a password is mandatory for them. Clients only
	// receive referral links and may have no credentials at all.
	if req.Role == models.RoleAdmin && req.Password == "" {
		return nil, &ValidationError{Message: "password is required for admin users"}
	}

	user := &models.User{
		ID:       uuid.New(),
		TenantID: tenantID,
		Email:    email,
		Name:     strings.TrimSpace(req.Name),
		Role:     req.Role,
	}
	if strings.TrimSpace(req.Phone) != "" {
		phone := strings.TrimSpace(req.Phone)
		user.Phone = &phone
	}
	if req.Password != "" {
		hashBytes, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		hash := string(hashBytes)
		user.PasswordHash = &hash
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if repositories.IsUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return user, nil
}

func (s *userService) List(ctx context.Context, tenantID uuid.UUID, role string, limit, offset int) ([]*models.User, error) {
	limit, offset = common.ValidatePaginationParams(limit, offset)
	return s.userRepo.List(ctx, tenantID, role, limit, offset)
}

func (s *userService) Delete(ctx context.Context, tenantID, id, actorID uuid.UUID) error {
	if id == actorID {
		return ErrSelfDelete
	}
	if _, err := s.userRepo.GetByID(ctx, tenantID, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		return err
	}
	return s.userRepo.Delete(ctx, tenantID, id)
}
