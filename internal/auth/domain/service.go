package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	CreateUser(ctx context.Context, req CreateUserRequest) (*User, error)
	// EnsureUser creates the user unless one with the same username exists.
	EnsureUser(ctx context.Context, req CreateUserRequest) (*User, bool, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	Logout(ctx context.Context, rawToken string) error
	Authenticate(ctx context.Context, rawToken string) (*Principal, error)
	GetUser(ctx context.Context, id snowflake.ID) (*User, error)
}

type CreateUserRequest struct {
	Username string
	Email    string
	Password string
	Role     Role
}

// LoginRequest identifies the user by username or email.
type LoginRequest struct {
	Identifier string
	Password   string
	UserAgent  string
	IPAddress  string
}

type LoginResult struct {
	User      UserView
	RawToken  string
	ExpiresAt time.Time
	SessionID snowflake.ID
}
