package domain

import (
	"context"
	"time"

	"github.com/taskhive/task-platform/shared/contracts"
)

// User is the stored account record. PasswordHash is a bcrypt hash and
// never leaves the service.
type User struct {
	ID           int64
	Email        string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserRepository abstracts user persistence.
type UserRepository interface {
	// Create inserts the user and fills in ID and timestamps.
	Create(ctx context.Context, user *User) error

	// FindByIdentifier looks a user up by email or username depending on
	// byEmail. Returns ErrUserNotFound when absent.
	FindByIdentifier(ctx context.Context, identifier string, byEmail bool) (*User, error)

	// FindByEmailOrUsername returns a user matching either value, used
	// for duplicate detection at registration.
	FindByEmailOrUsername(ctx context.Context, email, username string) (*User, error)

	// FindByID returns ErrUserNotFound when absent.
	FindByID(ctx context.Context, id int64) (*User, error)

	// Update persists changed fields of an existing user.
	Update(ctx context.Context, user *User) error

	// FindAll lists every user, id ascending.
	FindAll(ctx context.Context) ([]User, error)
}

// AuthService is the business surface bound to the message patterns.
type AuthService interface {
	Login(ctx context.Context, payload contracts.LoginUser) (*contracts.AuthResponse, error)
	Register(ctx context.Context, payload contracts.RegisterUser) (*contracts.AuthResponse, error)
	Refresh(ctx context.Context, payload contracts.RefreshToken) (*contracts.AuthResponse, error)
	Update(ctx context.Context, payload contracts.UpdateUser) (*contracts.MessageResponse, error)
	FindAll(ctx context.Context) ([]contracts.ListedUser, error)
}
