package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tmarlen/quillpost/internal/domain"
	"github.com/tmarlen/quillpost/internal/repository"
)

// postRepository implements repository.PostRepository for SQLite.
type postRepository struct {
	db *DB
}

// NewPostRepository creates a new SQLite post repository.
func NewPostRepository(db *DB) repository.PostRepository {
	return &postRepository{db: db}
}

const postColumns = `id, title, content, author_id, thumbnail, restricted, created_at, updated_at`

// Create creates a new post.
func (r *postRepository) Create(ctx context.Context, post *domain.Post) error {
	query := `
		INSERT INTO posts (id, title, content, author_id, thumbnail, restricted, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		post.ID.String(),
		post.Title,
		post.Content,
		post.AuthorID,
		post.Thumbnail,
		boolToInt(post.Restricted),
		post.CreatedAt.Format(time.RFC3339),
		post.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to create post: %w", err)
	}

	return nil
}

// GetByID retrieves a post by ID.
func (r *postRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = ?`
	post, err := r.scanPost(r.db.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if isNoRows(err) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get post by ID: %w", err)
	}
	return post, nil
}

// List returns posts with pagination, newest first.
func (r *postRepository) List(ctx context.Context, opts repository.ListOptions) (*repository.ListResult[domain.Post], error) {
	return r.list(ctx, opts, ``)
}

// ListRestricted returns restricted posts with pagination, newest first.
func (r *postRepository) ListRestricted(ctx context.Context, opts repository.ListOptions) (*repository.ListResult[domain.Post], error) {
	return r.list(ctx, opts, `WHERE restricted = 1`)
}

func (r *postRepository) list(ctx context.Context, opts repository.ListOptions, where string) (*repository.ListResult[domain.Post], error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts `+where).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count posts: %w", err)
	}

	query := `SELECT ` + postColumns + ` FROM posts ` + where +
		` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, query, opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	posts, err := r.collectPosts(rows)
	if err != nil {
		return nil, err
	}

	return &repository.ListResult[domain.Post]{
		Items:  posts,
		Total:  total,
		Offset: opts.Offset,
		Limit:  opts.Limit,
	}, nil
}

// ListByAuthor returns all posts by the given author, newest first.
func (r *postRepository) ListByAuthor(ctx context.Context, authorID int64) ([]*domain.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE author_id = ? ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, query, authorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts by author: %w", err)
	}
	defer rows.Close()

	return r.collectPosts(rows)
}

// ListAll returns every post, newest first.
func (r *postRepository) ListAll(ctx context.Context) ([]*domain.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	return r.collectPosts(rows)
}

// CountRestricted returns the number of restricted posts.
func (r *postRepository) CountRestricted(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts WHERE restricted = 1`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count restricted posts: %w", err)
	}
	return count, nil
}

// UpdateOwned updates a post conditioned on the author column.
func (r *postRepository) UpdateOwned(ctx context.Context, id uuid.UUID, authorID int64, title, content string, restricted bool) (*domain.Post, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE posts SET title = ?, content = ?, restricted = ?, updated_at = ?
		 WHERE id = ? AND author_id = ?`,
		title,
		content,
		boolToInt(restricted),
		time.Now().UTC().Format(time.RFC3339),
		id.String(),
		authorID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update post: %w", err)
	}
	if err := requireRow(result); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// SetRestricted overrides the restricted flag unconditionally.
func (r *postRepository) SetRestricted(ctx context.Context, id uuid.UUID, restricted bool) (*domain.Post, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE posts SET restricted = ?, updated_at = ? WHERE id = ?`,
		boolToInt(restricted),
		time.Now().UTC().Format(time.RFC3339),
		id.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to set restricted flag: %w", err)
	}
	if err := requireRow(result); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// SetRestrictedOwned overrides the restricted flag conditioned on the author.
func (r *postRepository) SetRestrictedOwned(ctx context.Context, id uuid.UUID, authorID int64, restricted bool) (*domain.Post, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE posts SET restricted = ?, updated_at = ? WHERE id = ? AND author_id = ?`,
		boolToInt(restricted),
		time.Now().UTC().Format(time.RFC3339),
		id.String(),
		authorID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to set restricted flag: %w", err)
	}
	if err := requireRow(result); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// Delete deletes a post unconditionally.
func (r *postRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	return requireRow(result)
}

// DeleteOwned deletes a post conditioned on the author.
func (r *postRepository) DeleteOwned(ctx context.Context, id uuid.UUID, authorID int64) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM posts WHERE id = ? AND author_id = ?`,
		id.String(), authorID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	return requireRow(result)
}

func (r *postRepository) collectPosts(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]*domain.Post, error) {
	var posts []*domain.Post
	for rows.Next() {
		post, err := r.scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate posts: %w", err)
	}
	return posts, nil
}

func (r *postRepository) scanPost(row rowScanner) (*domain.Post, error) {
	post := &domain.Post{}
	var id string
	var restricted int
	var createdAt, updatedAt string

	err := row.Scan(
		&id,
		&post.Title,
		&post.Content,
		&post.AuthorID,
		&post.Thumbnail,
		&restricted,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid post ID %q: %w", id, err)
	}
	post.ID = parsed
	post.Restricted = restricted != 0
	post.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	post.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	return post, nil
}

// requireRow converts a zero-affected-rows result into ErrNotFound.
func requireRow(result interface{ RowsAffected() (int64, error) }) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}
