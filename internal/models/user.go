package models

import (
	"time"
)

// Role determines which parts of the API a user may call.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleEmployer  Role = "employer"
	RoleJobSeeker Role = "job_seeker"
)

// ValidRole reports whether r is one of the known roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleAdmin, RoleEmployer, RoleJobSeeker:
		return true
	}
	return false
}

type User struct {
	ID           string
	Email        string
	PasswordHash string // NULL until the user sets a password
	FirstName    string
	LastName     string
	Role         Role
	IsActive     bool
	IsAdmin      bool // superuser override, independent of Role
	IsVerified   bool
	SessionToken *string // opaque secret issued by IssueSessionToken
	LastLogin    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserBlock marks a user as blocked. Existence of the record is the
// single source of truth; no soft-delete flags.
type UserBlock struct {
	ID        string
	UserID    string
	AdminID   *string
	Note      string
	CreatedAt time.Time
}
