// Package domain contains core types for the auth service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Role string

const (
	RoleAnalyst Role = "analyst"
	RoleAdmin   Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleAnalyst || r == RoleAdmin
}

// User represents a dashboard operator account.
type User struct {
	ID           snowflake.ID      `gorm:"primaryKey"`
	Username     string            `gorm:"type:text;not null;uniqueIndex"`
	Email        string            `gorm:"column:email;type:text;not null;uniqueIndex"`
	PasswordHash *string           `gorm:"type:text"`
	Role         Role              `gorm:"type:text;not null;default:'analyst'"`
	IsActive     bool              `gorm:"column:is_active;not null;default:true"`
	LastLoginAt  *time.Time        `gorm:"column:last_login_at"`
	Metadata     datatypes.JSONMap `gorm:"type:json"`
	CreatedAt    time.Time         `gorm:"not null"`
	UpdatedAt    time.Time         `gorm:"not null"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

// View is the client-facing projection of a user.
func (u User) View() UserView {
	return UserView{
		ID:          u.ID.String(),
		Username:    u.Username,
		Email:       u.Email,
		Role:        u.Role,
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}

type UserView struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	Role        Role       `json:"role"`
	IsActive    bool       `json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Session represents a persisted login session.
type Session struct {
	ID               snowflake.ID `gorm:"primaryKey"`
	UserID           snowflake.ID `gorm:"column:user_id;not null;index"`
	SessionTokenHash string       `gorm:"column:session_token_hash;type:text;not null;uniqueIndex"`
	UserAgent        string       `gorm:"column:user_agent;type:text"`
	IPAddress        string       `gorm:"column:ip_address;type:text"`
	ExpiresAt        time.Time    `gorm:"column:expires_at;not null;index"`
	RevokedAt        *time.Time   `gorm:"column:revoked_at"`
	CreatedAt        time.Time    `gorm:"column:created_at;not null"`
	LastSeenAt       time.Time    `gorm:"column:last_seen_at;not null"`
}

// TableName sets the database table name.
func (Session) TableName() string { return "sessions" }

// Principal is the authenticated caller of a request.
type Principal struct {
	SessionID snowflake.ID
	User      User
}
