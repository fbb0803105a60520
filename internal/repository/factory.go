// Package repository provides the data access layer for QuillPost.
// This file contains the glue that holds the configured repository set.
package repository

import (
	"context"
)

// Repositories holds all repository instances.
type Repositories struct {
	User UserRepository
	Post PostRepository
}

// DatabaseHealth is an interface for database health checks and shutdown.
// Both the SQLite and PostgreSQL connection wrappers satisfy it.
type DatabaseHealth interface {
	Ping(ctx context.Context) error
	Close() error
}
