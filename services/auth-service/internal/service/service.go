package service

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/taskhive/task-platform/services/auth-service/internal/domain"
	"github.com/taskhive/task-platform/shared/contracts"
	apperrors "github.com/taskhive/task-platform/shared/errors"
	"github.com/taskhive/task-platform/shared/logging"
	"github.com/taskhive/task-platform/shared/token"
)

const bcryptCost = bcrypt.DefaultCost

type authService struct {
	users    domain.UserRepository
	access   *token.Signer
	refresh  *token.Signer
	verifier *token.Verifier
	logger   *logging.Logger
}

// NewAuthService wires the repository and the two token signers. The
// refresh verifier must share the refresh signer's secret.
func NewAuthService(users domain.UserRepository, access, refresh *token.Signer, refreshVerifier *token.Verifier, logger *logging.Logger) domain.AuthService {
	return &authService{
		users:    users,
		access:   access,
		refresh:  refresh,
		verifier: refreshVerifier,
		logger:   logger,
	}
}

func (s *authService) Login(ctx context.Context, payload contracts.LoginUser) (*contracts.AuthResponse, error) {
	if payload.UsernameOrEmail == "" || payload.Password == "" {
		return nil, apperrors.Validation("credentials", "username/email and password are required")
	}

	byEmail := strings.Contains(payload.UsernameOrEmail, "@")
	user, err := s.users.FindByIdentifier(ctx, payload.UsernameOrEmail, byEmail)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, apperrors.Unauthorized("invalid credentials")
		}
		return nil, apperrors.Internal("failed to log in").WithCause(err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(payload.Password)); err != nil {
		return nil, apperrors.Unauthorized("invalid credentials")
	}

	s.logger.Audit("user_login", map[string]interface{}{
		"user_id":  user.ID,
		"username": user.Username,
	})
	return s.issueTokens(user.ID)
}

func (s *authService) Register(ctx context.Context, payload contracts.RegisterUser) (*contracts.AuthResponse, error) {
	if err := validateRegistration(payload); err != nil {
		return nil, err
	}

	if existing, err := s.users.FindByEmailOrUsername(ctx, payload.Email, payload.Username); err == nil && existing != nil {
		return nil, apperrors.Conflict("user", "email or username already taken")
	} else if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return nil, apperrors.Internal("failed to register user").WithCause(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(payload.Password), bcryptCost)
	if err != nil {
		return nil, apperrors.Internal("failed to register user").WithCause(err)
	}

	user := &domain.User{
		Email:        payload.Email,
		Username:     payload.Username,
		PasswordHash: string(hash),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrDuplicateUser) {
			return nil, apperrors.Conflict("user", "email or username already taken")
		}
		return nil, apperrors.Internal("failed to register user").WithCause(err)
	}

	s.logger.Audit("user_registered", map[string]interface{}{
		"user_id":  user.ID,
		"username": user.Username,
	})
	return s.issueTokens(user.ID)
}

func (s *authService) Refresh(ctx context.Context, payload contracts.RefreshToken) (*contracts.AuthResponse, error) {
	if payload.RefreshToken == "" {
		return nil, apperrors.Validation("refreshToken", "must not be empty")
	}

	userID, err := s.verifier.Verify(payload.RefreshToken)
	if err != nil {
		return nil, err
	}

	// The account may have been removed since the token was minted.
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, apperrors.Unauthorized("invalid refresh token")
		}
		return nil, apperrors.Internal("failed to refresh token").WithCause(err)
	}

	return s.issueTokens(userID)
}

func (s *authService) Update(ctx context.Context, payload contracts.UpdateUser) (*contracts.MessageResponse, error) {
	if payload.ID <= 0 {
		return nil, apperrors.Validation("id", "must be a positive user id")
	}

	user, err := s.users.FindByID(ctx, payload.ID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, apperrors.NotFound("user", payload.ID)
		}
		return nil, apperrors.Internal("failed to update user").WithCause(err)
	}

	if payload.Email != nil {
		if !strings.Contains(*payload.Email, "@") {
			return nil, apperrors.Validation("email", "must be a valid email address")
		}
		user.Email = *payload.Email
	}
	if payload.Username != nil {
		if *payload.Username == "" {
			return nil, apperrors.Validation("username", "must not be empty")
		}
		user.Username = *payload.Username
	}
	if payload.Password != nil {
		if len(*payload.Password) < 6 {
			return nil, apperrors.Validation("password", "must be at least 6 characters")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*payload.Password), bcryptCost)
		if err != nil {
			return nil, apperrors.Internal("failed to update user").WithCause(err)
		}
		user.PasswordHash = string(hash)
	}

	if err := s.users.Update(ctx, user); err != nil {
		switch {
		case errors.Is(err, domain.ErrUserNotFound):
			return nil, apperrors.NotFound("user", payload.ID)
		case errors.Is(err, domain.ErrDuplicateUser):
			return nil, apperrors.Conflict("user", "email or username already taken")
		default:
			return nil, apperrors.Internal("failed to update user").WithCause(err)
		}
	}

	s.logger.Audit("user_updated", map[string]interface{}{"user_id": user.ID})
	return &contracts.MessageResponse{Message: "user updated successfully"}, nil
}

func (s *authService) FindAll(ctx context.Context) ([]contracts.ListedUser, error) {
	users, err := s.users.FindAll(ctx)
	if err != nil {
		return nil, apperrors.Internal("failed to list users").WithCause(err)
	}

	listed := make([]contracts.ListedUser, 0, len(users))
	for _, u := range users {
		listed = append(listed, contracts.ListedUser{ID: u.ID, Username: u.Username})
	}
	return listed, nil
}

func (s *authService) issueTokens(userID int64) (*contracts.AuthResponse, error) {
	access, err := s.access.Sign(userID)
	if err != nil {
		return nil, apperrors.Internal("failed to issue tokens").WithCause(err)
	}
	refresh, err := s.refresh.Sign(userID)
	if err != nil {
		return nil, apperrors.Internal("failed to issue tokens").WithCause(err)
	}
	return &contracts.AuthResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    s.access.TTL().String(),
	}, nil
}

func validateRegistration(payload contracts.RegisterUser) error {
	if payload.Email == "" || !strings.Contains(payload.Email, "@") {
		return apperrors.Validation("email", "must be a valid email address")
	}
	if payload.Username == "" {
		return apperrors.Validation("username", "must not be empty")
	}
	if len(payload.Password) < 6 {
		return apperrors.Validation("password", "must be at least 6 characters")
	}
	return nil
}
