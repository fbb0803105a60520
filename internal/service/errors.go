// Package service provides business logic services for QuillPost.
package service

import "errors"

// Common service errors. Business-rule violations reuse the sentinels in the
// domain package; the errors here cover input validation and infrastructure.
var (
	// Validation errors
	ErrInvalidUsername = errors.New("invalid username: must be 3-64 characters")
	ErrInvalidPassword = errors.New("invalid password: must be at least 8 characters")
	ErrMissingPassword = errors.New("password is required")
	ErrTitleRequired   = errors.New("title is required")
	ErrContentRequired = errors.New("content is required")

	// General errors
	ErrInternalError = errors.New("internal server error")
)
