package services

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/deepaktraders/storefront-backend/models"
	"github.com/deepaktraders/storefront-backend/repository"
)

// AuthService owns account registration, credential checks, and token refresh.
type AuthService struct {
	users  repository.UserRepository
	tokens *TokenService
	log    *zap.Logger
}

func NewAuthService(users repository.UserRepository, tokens *TokenService, log *zap.Logger) *AuthService {
	return &AuthService{users: users, tokens: tokens, log: log}
}

// Register creates an account. The very first account on a fresh install
// becomes the admin; everyone after is a member.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*models.User, *TokenPair, *ServiceError) {
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, nil, NewServiceError(http.StatusConflict, "email already registered")
	} else if err != repository.ErrNotFound {
		s.log.Error("Failed to check existing email", zap.Error(err))
		return nil, nil, ErrInternal
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		s.log.Error("Failed to hash password", zap.Error(err))
		return nil, nil, ErrInternal
	}

	role := models.RoleMember
	count, err := s.users.Count(ctx)
	if err != nil {
		s.log.Error("Failed to count users", zap.Error(err))
		return nil, nil, ErrInternal
	}
	if count == 0 {
		role = models.RoleAdmin
	}

	user := &models.User{
		ID:       uuid.New(),
		Name:     name,
		Email:    email,
		Password: string(hashed),
		Role:     role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		s.log.Error("Failed to create user", zap.Error(err))
		return nil, nil, ErrInternal
	}

	pair, err := s.tokens.GenerateTokenPair(user.ID.String(), user.Email, user.Role)
	if err != nil {
		s.log.Error("Failed to issue tokens", zap.Error(err))
		return nil, nil, ErrInternal
	}

	s.log.Info("User registered",
		zap.String("user_id", user.ID.String()),
		zap.String("role", user.Role),
	)
	return user, pair, nil
}

// Login checks credentials and issues a token pair. The same message covers an
// unknown email and a wrong password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, *TokenPair, *ServiceError) {
	user, err := s.users.FindByEmail(ctx, email)
	if err == repository.ErrNotFound {
		return nil, nil, NewServiceError(http.StatusUnauthorized, "invalid email or password")
	}
	if err != nil {
		s.log.Error("Failed to look up user", zap.Error(err))
		return nil, nil, ErrInternal
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, nil, NewServiceError(http.StatusUnauthorized, "invalid email or password")
	}

	pair, err := s.tokens.GenerateTokenPair(user.ID.String(), user.Email, user.Role)
	if err != nil {
		s.log.Error("Failed to issue tokens", zap.Error(err))
		return nil, nil, ErrInternal
	}
	return user, pair, nil
}

// Refresh exchanges a valid refresh token for a fresh pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, *ServiceError) {
	claims, err := s.tokens.ValidateToken(refreshToken, "refresh")
	if err != nil {
		return nil, NewServiceError(http.StatusUnauthorized, "invalid refresh token")
	}

	sub, _ := claims["sub"].(string)
	userID, err := uuid.Parse(sub)
	if err != nil {
		return nil, NewServiceError(http.StatusUnauthorized, "invalid refresh token")
	}

	// Re-read the user so a revoked account or changed role takes effect.
	user, err := s.users.FindByID(ctx, userID)
	if err == repository.ErrNotFound {
		return nil, NewServiceError(http.StatusUnauthorized, "invalid refresh token")
	}
	if err != nil {
		s.log.Error("Failed to load user for refresh", zap.Error(err))
		return nil, ErrInternal
	}

	pair, err := s.tokens.GenerateTokenPair(user.ID.String(), user.Email, user.Role)
	if err != nil {
		s.log.Error("Failed to issue tokens", zap.Error(err))
		return nil, ErrInternal
	}
	return pair, nil
}

// Me returns the account behind a principal.
func (s *AuthService) Me(ctx context.Context, principal *models.Principal) (*models.User, *ServiceError) {
	if principal == nil {
		return nil, ErrMustBeLoggedIn
	}
	userID, err := uuid.Parse(principal.UserID)
	if err != nil {
		return nil, ErrMustBeLoggedIn
	}
	user, err := s.users.FindByID(ctx, userID)
	if err == repository.ErrNotFound {
		return nil, NewServiceError(http.StatusNotFound, "user not found")
	}
	if err != nil {
		s.log.Error("Failed to load user", zap.Error(err))
		return nil, ErrInternal
	}
	return user, nil
}

// DeleteAccount removes the principal's account.
func (s *AuthService) DeleteAccount(ctx context.Context, principal *models.Principal) *ServiceError {
	if principal == nil {
		return ErrMustBeLoggedIn
	}
	userID, err := uuid.Parse(principal.UserID)
	if err != nil {
		return ErrMustBeLoggedIn
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		s.log.Error("Failed to delete user", zap.Error(err))
		return ErrInternal
	}
	s.log.Info("User account deleted", zap.String("user_id", principal.UserID))
	return nil
}
