package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// AuthService coordinates registration and login flows.
type AuthService struct {
	users      repository.UserRepository
	staff      repository.StaffRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	UserRepo     repository.UserRepository
	StaffRepo    repository.StaffRepository
	TokenManager *auth.TokenManager
}

// IssuedToken is a signed access token.
type IssuedToken struct {
	AccessToken string
	ExpiresAt   time.Time
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	tokenMgr := deps.TokenManager
	if tokenMgr == nil {
		tokenMgr = auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes)
	}
	return &AuthService{
		users:      deps.UserRepo,
		staff:      deps.StaffRepo,
		tokenMgr:   tokenMgr,
		bcryptCost: cfg.BcryptCost,
	}
}

// RegisterUser creates a new end-user account.
func (s *AuthService) RegisterUser(ctx context.Context, name, email, password string, departmentID *string) (*domain.User, IssuedToken, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)
	if name == "" || email == "" || !strings.Contains(email, "@") {
		return nil, IssuedToken{}, apperrors.NewValidationError("name and a valid email are required", nil)
	}
	if err := auth.ValidatePassword(password); err != nil {
		return nil, IssuedToken{}, apperrors.NewValidationError(err.Error(), map[string]any{"field": "password"})
	}
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, IssuedToken{}, apperrors.NewConflict("email already registered", map[string]any{"email": email})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, IssuedToken{}, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, IssuedToken{}, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Status:       domain.UserStatusActive,
		DepartmentID: departmentID,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, IssuedToken{}, err
	}

	token, err := s.issue(user.ID, domain.SubjectTypeUser, nil)
	if err != nil {
		return nil, IssuedToken{}, err
	}
	return user, token, nil
}

// LoginUser authenticates an end-user.
func (s *AuthService) LoginUser(ctx context.Context, email, password string) (*domain.User, IssuedToken, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, IssuedToken{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, IssuedToken{}, err
	}
	if !user.CanSignIn() {
		return nil, IssuedToken{}, apperrors.NewForbidden("account suspended")
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, IssuedToken{}, apperrors.NewUnauthorized("invalid credentials")
	}
	token, err := s.issue(user.ID, domain.SubjectTypeUser, nil)
	if err != nil {
		return nil, IssuedToken{}, err
	}
	return user, token, nil
}

// LoginStaff authenticates staff and returns role-bearing token.
func (s *AuthService) LoginStaff(ctx context.Context, email, password string) (*domain.StaffMember, IssuedToken, error) {
	staff, err := s.staff.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, IssuedToken{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, IssuedToken{}, err
	}
	if !staff.Active {
		return nil, IssuedToken{}, apperrors.NewForbidden("staff inactive")
	}
	if err := auth.ComparePassword(staff.PasswordHash, password); err != nil {
		return nil, IssuedToken{}, apperrors.NewUnauthorized("invalid credentials")
	}
	token, err := s.issue(staff.ID, domain.SubjectTypeStaff, &staff.Role)
	if err != nil {
		return nil, IssuedToken{}, err
	}
	return staff, token, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) issue(subjectID string, subject domain.SubjectType, role *domain.StaffRole) (IssuedToken, error) {
	token, exp, err := s.tokenMgr.GenerateToken(subjectID, subject, role)
	if err != nil {
		return IssuedToken{}, apperrors.NewInternalError(err)
	}
	return IssuedToken{AccessToken: token, ExpiresAt: exp}, nil
}
