package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tmarlen/quillpost/internal/domain"
	"github.com/tmarlen/quillpost/internal/repository"
)

// postRepository implements repository.PostRepository for PostgreSQL.
type postRepository struct {
	db *DB
}

// NewPostRepository creates a new PostgreSQL post repository.
func NewPostRepository(db *DB) repository.PostRepository {
	return &postRepository{db: db}
}

const postColumns = `id, title, content, author_id, thumbnail, restricted, created_at, updated_at`

// Create creates a new post.
func (r *postRepository) Create(ctx context.Context, post *domain.Post) error {
	query := `
		INSERT INTO posts (id, title, content, author_id, thumbnail, restricted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		post.ID,
		post.Title,
		post.Content,
		post.AuthorID,
		post.Thumbnail,
		post.Restricted,
		post.CreatedAt,
		post.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create post: %w", err)
	}

	return nil
}

// GetByID retrieves a post by ID.
func (r *postRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`
	post, err := r.scanPost(r.db.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
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
	return r.list(ctx, opts, `WHERE restricted = TRUE`)
}

func (r *postRepository) list(ctx context.Context, opts repository.ListOptions, where string) (*repository.ListResult[domain.Post], error) {
	var total int64
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM posts `+where).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count posts: %w", err)
	}

	query := `SELECT ` + postColumns + ` FROM posts ` + where +
		` ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`
	rows, err := r.db.Pool.Query(ctx, query, opts.Limit, opts.Offset)
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
	query := `SELECT ` + postColumns + ` FROM posts WHERE author_id = $1 ORDER BY created_at DESC, id DESC`
	rows, err := r.db.Pool.Query(ctx, query, authorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts by author: %w", err)
	}
	defer rows.Close()

	return r.collectPosts(rows)
}

// ListAll returns every post, newest first.
func (r *postRepository) ListAll(ctx context.Context) ([]*domain.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts ORDER BY created_at DESC, id DESC`
	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	return r.collectPosts(rows)
}

// CountRestricted returns the number of restricted posts.
func (r *postRepository) CountRestricted(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM posts WHERE restricted = TRUE`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count restricted posts: %w", err)
	}
	return count, nil
}

// UpdateOwned updates a post conditioned on the author column.
func (r *postRepository) UpdateOwned(ctx context.Context, id uuid.UUID, authorID int64, title, content string, restricted bool) (*domain.Post, error) {
	query := `
		UPDATE posts SET title = $1, content = $2, restricted = $3, updated_at = $4
		WHERE id = $5 AND author_id = $6
		RETURNING ` + postColumns

	post, err := r.scanPost(r.db.Pool.QueryRow(ctx, query,
		title, content, restricted, time.Now().UTC(), id, authorID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update post: %w", err)
	}
	return post, nil
}

// SetRestricted overrides the restricted flag unconditionally.
func (r *postRepository) SetRestricted(ctx context.Context, id uuid.UUID, restricted bool) (*domain.Post, error) {
	query := `
		UPDATE posts SET restricted = $1, updated_at = $2
		WHERE id = $3
		RETURNING ` + postColumns

	post, err := r.scanPost(r.db.Pool.QueryRow(ctx, query, restricted, time.Now().UTC(), id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to set restricted flag: %w", err)
	}
	return post, nil
}

// SetRestrictedOwned overrides the restricted flag conditioned on the author.
func (r *postRepository) SetRestrictedOwned(ctx context.Context, id uuid.UUID, authorID int64, restricted bool) (*domain.Post, error) {
	query := `
		UPDATE posts SET restricted = $1, updated_at = $2
		WHERE id = $3 AND author_id = $4
		RETURNING ` + postColumns

	post, err := r.scanPost(r.db.Pool.QueryRow(ctx, query, restricted, time.Now().UTC(), id, authorID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to set restricted flag: %w", err)
	}
	return post, nil
}

// Delete deletes a post unconditionally.
func (r *postRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteOwned deletes a post conditioned on the author.
func (r *postRepository) DeleteOwned(ctx context.Context, id uuid.UUID, authorID int64) error {
	tag, err := r.db.Pool.Exec(ctx,
		`DELETE FROM posts WHERE id = $1 AND author_id = $2`, id, authorID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *postRepository) collectPosts(rows pgx.Rows) ([]*domain.Post, error) {
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
	err := row.Scan(
		&post.ID,
		&post.Title,
		&post.Content,
		&post.AuthorID,
		&post.Thumbnail,
		&post.Restricted,
		&post.CreatedAt,
		&post.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return post, nil
}
