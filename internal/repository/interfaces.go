// Package repository defines data access interfaces for QuillPost.
// These interfaces abstract database operations, allowing for different
// implementations (PostgreSQL, SQLite, in-memory for testing) while keeping
// the service layer clean.
package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/tmarlen/quillpost/internal/domain"
)

// =============================================================================
// User Repository
// =============================================================================

// UserRepository defines the interface for user data access.
type UserRepository interface {
	// Create creates a new user. Returns domain.ErrUsernameTaken when the
	// username is already in use.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id int64) (*domain.User, error)

	// GetByUsername retrieves a user by username.
	GetByUsername(ctx context.Context, username string) (*domain.User, error)

	// ExistsByUsername checks if a user with the given username exists.
	ExistsByUsername(ctx context.Context, username string) (bool, error)

	// AdminExists checks if any user holds the admin role.
	AdminExists(ctx context.Context) (bool, error)

	// DeleteAdmins deletes every user holding the admin role and returns
	// the number of rows removed. The role condition lives in the statement
	// itself so a record that lost the admin role concurrently is not
	// deleted by mistake.
	DeleteAdmins(ctx context.Context) (int64, error)

	// SetBlocked sets the blocked flag on a user and returns the updated
	// record. Returns ErrNotFound if the user does not exist.
	SetBlocked(ctx context.Context, id int64, blocked bool) (*domain.User, error)

	// List returns users with pagination, newest first.
	List(ctx context.Context, opts ListOptions) (*ListResult[domain.User], error)
}

// =============================================================================
// Post Repository
// =============================================================================

// PostRepository defines the interface for post data access.
//
// The *Owned variants condition the write on the author column inside a single
// statement, so a non-owner's write can never silently succeed regardless of
// interleaving. Zero affected rows is reported as ErrNotFound; callers decide
// how much of that to reveal.
type PostRepository interface {
	// Create creates a new post.
	Create(ctx context.Context, post *domain.Post) error

	// GetByID retrieves a post by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Post, error)

	// List returns posts with pagination, newest first.
	List(ctx context.Context, opts ListOptions) (*ListResult[domain.Post], error)

	// ListByAuthor returns all posts by the given author, newest first.
	ListByAuthor(ctx context.Context, authorID int64) ([]*domain.Post, error)

	// ListAll returns every post, newest first. Used by the export path.
	ListAll(ctx context.Context) ([]*domain.Post, error)

	// ListRestricted returns restricted posts with pagination, newest first.
	ListRestricted(ctx context.Context, opts ListOptions) (*ListResult[domain.Post], error)

	// CountRestricted returns the number of restricted posts.
	CountRestricted(ctx context.Context) (int64, error)

	// UpdateOwned updates title, content and the restricted flag of a post,
	// conditioned on the author. Returns the updated post.
	UpdateOwned(ctx context.Context, id uuid.UUID, authorID int64, title, content string, restricted bool) (*domain.Post, error)

	// SetRestricted overrides the restricted flag unconditionally (admin path).
	// Returns the updated post.
	SetRestricted(ctx context.Context, id uuid.UUID, restricted bool) (*domain.Post, error)

	// SetRestrictedOwned overrides the restricted flag, conditioned on the
	// author. Returns the updated post.
	SetRestrictedOwned(ctx context.Context, id uuid.UUID, authorID int64, restricted bool) (*domain.Post, error)

	// Delete deletes a post unconditionally (admin path).
	Delete(ctx context.Context, id uuid.UUID) error

	// DeleteOwned deletes a post, conditioned on the author.
	DeleteOwned(ctx context.Context, id uuid.UUID, authorID int64) error
}

// =============================================================================
// Common Types
// =============================================================================

// ListOptions contains common pagination options.
type ListOptions struct {
	// Offset is the number of records to skip.
	Offset int

	// Limit is the maximum number of records to return.
	Limit int
}

// ListResult is a generic paginated list result.
type ListResult[T any] struct {
	// Items is the list of items.
	Items []*T

	// Total is the total number of items (without pagination).
	Total int64

	// Offset is the current offset.
	Offset int

	// Limit is the current limit.
	Limit int
}
