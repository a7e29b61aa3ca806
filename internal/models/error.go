package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Auth flow errors
	ErrCodeAlreadySent = errors.New("code has already been sent")
	ErrCodeWrong       = errors.New("code is wrong or has expired")
	ErrUserExists      = errors.New("user already exists")
	ErrUserBlocked     = errors.New("user in block list")

	// Account state errors
	ErrAccountDisabled  = errors.New("account is disabled")
	ErrEmailNotVerified = errors.New("email address not verified")
)
