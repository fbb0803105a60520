// Package domain contains the core business entities for QuillPost.
package domain

import (
	"errors"
	"fmt"
)

// Domain errors - these represent business rule violations.
// They are distinct from infrastructure errors (database, network, etc.).

var (
	// ===========================================
	// User Errors
	// ===========================================

	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrUsernameTaken indicates a user with the same username exists.
	ErrUsernameTaken = errors.New("username already exists")

	// ErrAdminExists indicates an insert would have produced a second admin
	// account. Raised by the single-admin unique index in the stores.
	ErrAdminExists = errors.New("admin account already exists")

	// ErrUserBlocked indicates the account has been blocked by an admin.
	ErrUserBlocked = errors.New("account blocked")

	// ErrInvalidCredentials indicates a password check failed.
	ErrInvalidCredentials = errors.New("invalid password")

	// ErrInvalidRole indicates a role outside the closed user/admin set.
	ErrInvalidRole = errors.New("invalid role")

	// ErrSelfBlock indicates an admin tried to block their own account.
	ErrSelfBlock = errors.New("cannot block own account")

	// ===========================================
	// Token Errors
	// ===========================================

	// ErrMissingToken indicates the authorization header was absent or
	// lacked the "Bearer " prefix.
	ErrMissingToken = errors.New("access denied: no token provided")

	// ErrInvalidToken indicates an expired, malformed, or unverifiable token.
	ErrInvalidToken = errors.New("invalid token")

	// ===========================================
	// Post Errors
	// ===========================================

	// ErrPostNotFound indicates the requested post does not exist.
	ErrPostNotFound = errors.New("post not found")

	// ErrPostNotOwned collapses "no such post" and "not your post" into a
	// single error so responses cannot leak whether a resource exists to
	// principals who do not own it.
	ErrPostNotOwned = errors.New("post not found or not authorized")

	// ErrNoPostsToExport indicates an export request matched no posts.
	ErrNoPostsToExport = errors.New("no posts to export")

	// ===========================================
	// Authorization Errors
	// ===========================================

	// ErrAccessDenied indicates the principal lacks the required role.
	ErrAccessDenied = errors.New("access denied")

	// ===========================================
	// Upload Errors
	// ===========================================

	// ErrUnsupportedImageType indicates a non-image upload was rejected.
	ErrUnsupportedImageType = errors.New("only image files are allowed")

	// ErrImageNotFound indicates the requested hosted image does not exist.
	ErrImageNotFound = errors.New("image not found")
)

// DomainError wraps a domain error with additional context.
type DomainError struct {
	// Err is the underlying domain error.
	Err error

	// Message provides additional context.
	Message string

	// Resource identifies the affected resource (e.g., post ID, username).
	Resource string
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Err.Error(), e.Message, e.Resource)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error for errors.Is/errors.As.
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError with context.
func NewDomainError(err error, message, resource string) *DomainError {
	return &DomainError{
		Err:      err,
		Message:  message,
		Resource: resource,
	}
}
