package repository_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"github.com/taskhive/task-platform/services/auth-service/internal/domain"
	"github.com/taskhive/task-platform/services/auth-service/internal/infrastructure/repository"
	"github.com/taskhive/task-platform/shared/metrics"
)

type UserRepositoryTestSuite struct {
	suite.Suite
	db   *sql.DB
	mock sqlmock.Sqlmock
	repo domain.UserRepository
}

func (s *UserRepositoryTestSuite) SetupTest() {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	s.Require().NoError(err)
	s.db = db
	s.mock = mock
	s.repo = repository.NewUserRepository(db, metrics.NewMetricsWith(prometheus.NewRegistry(), "test", "auth_repo"))
}

func (s *UserRepositoryTestSuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
	s.db.Close()
}

func userRows(users ...domain.User) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "email", "username", "password_hash", "created_at", "updated_at"})
	for _, u := range users {
		rows.AddRow(u.ID, u.Email, u.Username, u.PasswordHash, u.CreatedAt, u.UpdatedAt)
	}
	return rows
}

func (s *UserRepositoryTestSuite) TestCreateAssignsID() {
	now := time.Now()
	s.mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("kim@example.com", "kim", "hash").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(3), now, now))

	user := &domain.User{Email: "kim@example.com", Username: "kim", PasswordHash: "hash"}
	err := s.repo.Create(context.Background(), user)

	s.Require().NoError(err)
	s.Equal(int64(3), user.ID)
}

func (s *UserRepositoryTestSuite) TestCreateDuplicateMapsToDomainError() {
	s.mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("kim@example.com", "kim", "hash").
		WillReturnError(&pq.Error{Code: "23505"})

	err := s.repo.Create(context.Background(), &domain.User{Email: "kim@example.com", Username: "kim", PasswordHash: "hash"})

	s.ErrorIs(err, domain.ErrDuplicateUser)
}

func (s *UserRepositoryTestSuite) TestFindByIdentifierSelectsEmailColumn() {
	s.mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1`).
		WithArgs("kim@example.com").
		WillReturnRows(userRows(domain.User{ID: 1, Email: "kim@example.com", Username: "kim"}))

	user, err := s.repo.FindByIdentifier(context.Background(), "kim@example.com", true)

	s.Require().NoError(err)
	s.Equal(int64(1), user.ID)
}

func (s *UserRepositoryTestSuite) TestFindByIdentifierSelectsUsernameColumn() {
	s.mock.ExpectQuery(`SELECT .+ FROM users WHERE username = \$1`).
		WithArgs("kim").
		WillReturnRows(userRows(domain.User{ID: 1, Email: "kim@example.com", Username: "kim"}))

	user, err := s.repo.FindByIdentifier(context.Background(), "kim", false)

	s.Require().NoError(err)
	s.Equal("kim", user.Username)
}

func (s *UserRepositoryTestSuite) TestFindByIDMissingIsNotFound() {
	s.mock.ExpectQuery(`SELECT .+ FROM users WHERE id = \$1`).
		WithArgs(int64(9)).
		WillReturnError(sql.ErrNoRows)

	_, err := s.repo.FindByID(context.Background(), 9)

	s.ErrorIs(err, domain.ErrUserNotFound)
}

func (s *UserRepositoryTestSuite) TestUpdateMissingIsNotFound() {
	s.mock.ExpectQuery(`UPDATE users`).
		WithArgs("kim@example.com", "kim", "hash", int64(9)).
		WillReturnError(sql.ErrNoRows)

	err := s.repo.Update(context.Background(), &domain.User{
		ID: 9, Email: "kim@example.com", Username: "kim", PasswordHash: "hash",
	})

	s.ErrorIs(err, domain.ErrUserNotFound)
}

func (s *UserRepositoryTestSuite) TestFindAllOrdersByID() {
	s.mock.ExpectQuery(`SELECT .+ FROM users ORDER BY id`).
		WillReturnRows(userRows(
			domain.User{ID: 1, Username: "kim"},
			domain.User{ID: 2, Username: "lee"},
		))

	users, err := s.repo.FindAll(context.Background())

	s.Require().NoError(err)
	s.Len(users, 2)
	s.Equal(int64(1), users[0].ID)
	s.Equal(int64(2), users[1].ID)
}

func TestUserRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(UserRepositoryTestSuite))
}
