package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/taskhive/task-platform/services/auth-service/internal/domain"
	"github.com/taskhive/task-platform/shared/metrics"
	"github.com/taskhive/task-platform/shared/postgres"
)

type userRepository struct {
	db      *sql.DB
	metrics *metrics.Metrics
}

func NewUserRepository(db *sql.DB, m *metrics.Metrics) domain.UserRepository {
	return &userRepository{db: db, metrics: m}
}

const userColumns = "id, email, username, password_hash, created_at, updated_at"

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	start := time.Now()
	query := `
		INSERT INTO users (email, username, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query, user.Email, user.Username, user.PasswordHash).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	r.metrics.ObserveDB("insert_user", start, err)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return domain.ErrDuplicateUser
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *userRepository) FindByIdentifier(ctx context.Context, identifier string, byEmail bool) (*domain.User, error) {
	column := "username"
	if byEmail {
		column = "email"
	}
	query := fmt.Sprintf("SELECT %s FROM users WHERE %s = $1", userColumns, column)

	start := time.Now()
	user, err := r.scanOne(r.db.QueryRowContext(ctx, query, identifier))
	r.metrics.ObserveDB("find_user_by_identifier", start, err)
	return user, err
}

func (r *userRepository) FindByEmailOrUsername(ctx context.Context, email, username string) (*domain.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE email = $1 OR username = $2", userColumns)

	start := time.Now()
	user, err := r.scanOne(r.db.QueryRowContext(ctx, query, email, username))
	r.metrics.ObserveDB("find_user_by_email_or_username", start, err)
	return user, err
}

func (r *userRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE id = $1", userColumns)

	start := time.Now()
	user, err := r.scanOne(r.db.QueryRowContext(ctx, query, id))
	r.metrics.ObserveDB("find_user_by_id", start, err)
	return user, err
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	query := `
		UPDATE users
		SET email = $1, username = $2, password_hash = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING updated_at`

	start := time.Now()
	err := r.db.QueryRowContext(ctx, query, user.Email, user.Username, user.PasswordHash, user.ID).
		Scan(&user.UpdatedAt)
	r.metrics.ObserveDB("update_user", start, err)
	if err != nil {
		if postgres.IsNotFound(err) {
			return domain.ErrUserNotFound
		}
		if postgres.IsUniqueViolation(err) {
			return domain.ErrDuplicateUser
		}
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

func (r *userRepository) FindAll(ctx context.Context) ([]domain.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users ORDER BY id", userColumns)

	start := time.Now()
	rows, err := r.db.QueryContext(ctx, query)
	r.metrics.ObserveDB("find_all_users", start, err)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

func (r *userRepository) scanOne(row *sql.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if postgres.IsNotFound(err) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}
