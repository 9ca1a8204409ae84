package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"github.com/taskhive/task-platform/services/auth-service/internal/domain"
	"github.com/taskhive/task-platform/services/auth-service/internal/service"
	"github.com/taskhive/task-platform/shared/contracts"
	apperrors "github.com/taskhive/task-platform/shared/errors"
	"github.com/taskhive/task-platform/shared/logging"
	"github.com/taskhive/task-platform/shared/token"
)

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	if args.Error(0) == nil {
		user.ID = 42
	}
	return args.Error(0)
}

func (m *mockUserRepository) FindByIdentifier(ctx context.Context, identifier string, byEmail bool) (*domain.User, error) {
	args := m.Called(ctx, identifier, byEmail)
	if u := args.Get(0); u != nil {
		return u.(*domain.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserRepository) FindByEmailOrUsername(ctx context.Context, email, username string) (*domain.User, error) {
	args := m.Called(ctx, email, username)
	if u := args.Get(0); u != nil {
		return u.(*domain.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if u := args.Get(0); u != nil {
		return u.(*domain.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserRepository) Update(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepository) FindAll(ctx context.Context) ([]domain.User, error) {
	args := m.Called(ctx)
	if u := args.Get(0); u != nil {
		return u.([]domain.User), args.Error(1)
	}
	return nil, args.Error(1)
}

type AuthServiceTestSuite struct {
	suite.Suite
	repo     *mockUserRepository
	verifier *token.Verifier
	refresh  *token.Signer
	svc      domain.AuthService
}

func (s *AuthServiceTestSuite) SetupTest() {
	s.repo = new(mockUserRepository)
	access := token.NewSigner([]byte("access-secret"), 15*time.Minute)
	s.refresh = token.NewSigner([]byte("refresh-secret"), 24*time.Hour)
	s.verifier = token.NewVerifier([]byte("refresh-secret"))
	logger := logging.NewLogger(&logging.Config{Level: "disabled", Service: "auth-test"})
	s.svc = service.NewAuthService(s.repo, access, s.refresh, s.verifier, logger)
}

func hashOf(s *AuthServiceTestSuite, password string) string {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	s.Require().NoError(err)
	return string(hash)
}

func (s *AuthServiceTestSuite) TestLoginWithEmail() {
	user := &domain.User{ID: 7, Email: "kim@example.com", Username: "kim", PasswordHash: hashOf(s, "hunter22")}
	s.repo.On("FindByIdentifier", mock.Anything, "kim@example.com", true).Return(user, nil)

	resp, err := s.svc.Login(context.Background(), contracts.LoginUser{
		UsernameOrEmail: "kim@example.com",
		Password:        "hunter22",
	})

	s.Require().NoError(err)
	s.NotEmpty(resp.AccessToken)
	s.NotEmpty(resp.RefreshToken)
	s.repo.AssertExpectations(s.T())
}

func (s *AuthServiceTestSuite) TestLoginWithUsername() {
	user := &domain.User{ID: 7, Username: "kim", PasswordHash: hashOf(s, "hunter22")}
	s.repo.On("FindByIdentifier", mock.Anything, "kim", false).Return(user, nil)

	_, err := s.svc.Login(context.Background(), contracts.LoginUser{
		UsernameOrEmail: "kim",
		Password:        "hunter22",
	})

	s.Require().NoError(err)
	s.repo.AssertExpectations(s.T())
}

func (s *AuthServiceTestSuite) TestLoginWrongPassword() {
	user := &domain.User{ID: 7, Username: "kim", PasswordHash: hashOf(s, "hunter22")}
	s.repo.On("FindByIdentifier", mock.Anything, "kim", false).Return(user, nil)

	_, err := s.svc.Login(context.Background(), contracts.LoginUser{
		UsernameOrEmail: "kim",
		Password:        "wrong",
	})

	s.Require().Error(err)
	s.True(apperrors.IsType(err, apperrors.ErrorTypeUnauthorized))
}

func (s *AuthServiceTestSuite) TestLoginUnknownUserIsUnauthorized() {
	s.repo.On("FindByIdentifier", mock.Anything, "ghost", false).Return(nil, domain.ErrUserNotFound)

	_, err := s.svc.Login(context.Background(), contracts.LoginUser{
		UsernameOrEmail: "ghost",
		Password:        "whatever",
	})

	s.Require().Error(err)
	s.True(apperrors.IsType(err, apperrors.ErrorTypeUnauthorized))
}

func (s *AuthServiceTestSuite) TestRegisterHashesPassword() {
	s.repo.On("FindByEmailOrUsername", mock.Anything, "new@example.com", "newbie").
		Return(nil, domain.ErrUserNotFound)
	s.repo.On("Create", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		if u.PasswordHash == "secret99" {
			return false
		}
		return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("secret99")) == nil
	})).Return(nil)

	resp, err := s.svc.Register(context.Background(), contracts.RegisterUser{
		Email:    "new@example.com",
		Username: "newbie",
		Password: "secret99",
	})

	s.Require().NoError(err)
	s.NotEmpty(resp.AccessToken)
	s.repo.AssertExpectations(s.T())
}

func (s *AuthServiceTestSuite) TestRegisterDuplicateIsConflict() {
	existing := &domain.User{ID: 1, Email: "new@example.com", Username: "taken"}
	s.repo.On("FindByEmailOrUsername", mock.Anything, "new@example.com", "newbie").
		Return(existing, nil)

	_, err := s.svc.Register(context.Background(), contracts.RegisterUser{
		Email:    "new@example.com",
		Username: "newbie",
		Password: "secret99",
	})

	s.Require().Error(err)
	s.True(apperrors.IsType(err, apperrors.ErrorTypeConflict))
	s.repo.AssertNotCalled(s.T(), "Create", mock.Anything, mock.Anything)
}

func (s *AuthServiceTestSuite) TestRegisterRejectsShortPassword() {
	_, err := s.svc.Register(context.Background(), contracts.RegisterUser{
		Email:    "new@example.com",
		Username: "newbie",
		Password: "abc",
	})

	s.Require().Error(err)
	s.True(apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func (s *AuthServiceTestSuite) TestRefreshIssuesNewTokens() {
	refreshToken, err := s.refresh.Sign(7)
	s.Require().NoError(err)
	s.repo.On("FindByID", mock.Anything, int64(7)).Return(&domain.User{ID: 7}, nil)

	resp, err := s.svc.Refresh(context.Background(), contracts.RefreshToken{RefreshToken: refreshToken})

	s.Require().NoError(err)
	s.NotEmpty(resp.AccessToken)
	s.NotEmpty(resp.RefreshToken)
}

func (s *AuthServiceTestSuite) TestRefreshRejectsGarbageToken() {
	_, err := s.svc.Refresh(context.Background(), contracts.RefreshToken{RefreshToken: "not-a-jwt"})

	s.Require().Error(err)
	s.True(apperrors.IsType(err, apperrors.ErrorTypeUnauthorized))
}

func (s *AuthServiceTestSuite) TestRefreshForDeletedUserIsUnauthorized() {
	refreshToken, err := s.refresh.Sign(99)
	s.Require().NoError(err)
	s.repo.On("FindByID", mock.Anything, int64(99)).Return(nil, domain.ErrUserNotFound)

	_, err = s.svc.Refresh(context.Background(), contracts.RefreshToken{RefreshToken: refreshToken})

	s.Require().Error(err)
	s.True(apperrors.IsType(err, apperrors.ErrorTypeUnauthorized))
}

func (s *AuthServiceTestSuite) TestUpdateUnknownUserIsNotFound() {
	s.repo.On("FindByID", mock.Anything, int64(5)).Return(nil, domain.ErrUserNotFound)

	email := "other@example.com"
	_, err := s.svc.Update(context.Background(), contracts.UpdateUser{ID: 5, Email: &email})

	s.Require().Error(err)
	s.True(apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func (s *AuthServiceTestSuite) TestUpdateRehashesPassword() {
	user := &domain.User{ID: 5, Email: "kim@example.com", Username: "kim", PasswordHash: hashOf(s, "oldpass")}
	s.repo.On("FindByID", mock.Anything, int64(5)).Return(user, nil)
	s.repo.On("Update", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("newpass99")) == nil
	})).Return(nil)

	password := "newpass99"
	resp, err := s.svc.Update(context.Background(), contracts.UpdateUser{ID: 5, Password: &password})

	s.Require().NoError(err)
	s.Equal("user updated successfully", resp.Message)
	s.repo.AssertExpectations(s.T())
}

func (s *AuthServiceTestSuite) TestFindAllStripsCredentials() {
	s.repo.On("FindAll", mock.Anything).Return([]domain.User{
		{ID: 1, Username: "kim", Email: "kim@example.com", PasswordHash: "x"},
		{ID: 2, Username: "lee", Email: "lee@example.com", PasswordHash: "y"},
	}, nil)

	listed, err := s.svc.FindAll(context.Background())

	s.Require().NoError(err)
	s.Len(listed, 2)
	s.Equal(contracts.ListedUser{ID: 1, Username: "kim"}, listed[0])
	s.Equal(contracts.ListedUser{ID: 2, Username: "lee"}, listed[1])
}

func TestAuthServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceTestSuite))
}
