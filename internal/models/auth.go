package models

import (
	"github.com/golang-jwt/jwt/v5"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

type TokenClaims struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	Role   Role   `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// CredentialPair is the response body of every flow that signs a user
// in. UserRole reflects the role at issuance time.
type CredentialPair struct {
	Access   string `json:"access"`
	Refresh  string `json:"refresh"`
	UserRole Role   `json:"user_role"`
}
