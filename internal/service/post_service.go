package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tmarlen/quillpost/internal/classifier"
	"github.com/tmarlen/quillpost/internal/domain"
	"github.com/tmarlen/quillpost/internal/metrics"
	"github.com/tmarlen/quillpost/internal/repository"
	"github.com/tmarlen/quillpost/internal/storage"
)

// Pagination bounds for post listings.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Restricted-count cache parameters. The count changes on every post write,
// so the TTL stays short and writers invalidate eagerly on top of it.
const (
	restrictedCountCacheKey = "posts:restricted_count"
	restrictedCountCacheTTL = 30 * time.Second
)

// PostService handles post creation, listing, updates and deletion. Every new
// or edited body runs through the content classifier; the resulting restricted
// flag is stored with the post and can later be overridden explicitly.
type PostService struct {
	posts   repository.PostRepository
	images  storage.ImageStore
	cache   repository.Cache
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// NewPostService creates a new post service.
func NewPostService(posts repository.PostRepository, images storage.ImageStore, cache repository.Cache, m *metrics.Metrics, logger zerolog.Logger) *PostService {
	return &PostService{
		posts:   posts,
		images:  images,
		cache:   cache,
		metrics: m,
		logger:  logger.With().Str("service", "post").Logger(),
	}
}

// CreatePostInput carries the fields accepted when creating a post.
type CreatePostInput struct {
	Title     string
	Content   string
	Thumbnail string
}

// Create classifies the content and persists a new post owned by the caller.
func (s *PostService) Create(ctx context.Context, principal domain.Principal, input CreatePostInput) (*domain.Post, error) {
	if input.Title == "" {
		return nil, ErrTitleRequired
	}
	if input.Content == "" {
		return nil, ErrContentRequired
	}

	restricted := classifier.Classify(input.Content)
	post := domain.NewPost(input.Title, input.Content, principal.UserID, input.Thumbnail, restricted)

	if err := s.posts.Create(ctx, post); err != nil {
		s.logger.Error().Err(err).Msg("failed to create post")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.invalidateRestrictedCount(ctx)
	if s.metrics != nil {
		s.metrics.ObservePostCreated(restricted)
	}

	s.logger.Info().
		Str("post_id", post.ID.String()).
		Int64("author_id", principal.UserID).
		Bool("restricted", restricted).
		Msg("post created")
	return post, nil
}

// Get retrieves a single post by ID.
func (s *PostService) Get(ctx context.Context, id uuid.UUID) (*domain.Post, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrPostNotFound
		}
		s.logger.Error().Err(err).Msg("failed to get post")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return post, nil
}

// List returns a page of all posts, newest first.
func (s *PostService) List(ctx context.Context, page, limit int) (*repository.ListResult[domain.Post], error) {
	opts := pageOptions(page, limit)
	result, err := s.posts.List(ctx, opts)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list posts")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return result, nil
}

// ListMine returns every post authored by the caller, newest first.
func (s *PostService) ListMine(ctx context.Context, principal domain.Principal) ([]*domain.Post, error) {
	posts, err := s.posts.ListByAuthor(ctx, principal.UserID)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list own posts")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return posts, nil
}

// ListRestricted returns a page of restricted posts, newest first.
func (s *PostService) ListRestricted(ctx context.Context, page, limit int) (*repository.ListResult[domain.Post], error) {
	opts := pageOptions(page, limit)
	result, err := s.posts.ListRestricted(ctx, opts)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list restricted posts")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return result, nil
}

// CountRestricted returns the number of restricted posts, memoized briefly in
// the cache. A cache failure falls through to the repository.
func (s *PostService) CountRestricted(ctx context.Context) (int64, error) {
	if cached, err := s.cache.Get(ctx, restrictedCountCacheKey); err == nil {
		if count, parseErr := strconv.ParseInt(string(cached), 10, 64); parseErr == nil {
			return count, nil
		}
	} else if !errors.Is(err, repository.ErrCacheMiss) {
		s.logger.Warn().Err(err).Msg("restricted count cache read failed")
	}

	count, err := s.posts.CountRestricted(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to count restricted posts")
		return 0, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	value := []byte(strconv.FormatInt(count, 10))
	if err := s.cache.Set(ctx, restrictedCountCacheKey, value, restrictedCountCacheTTL); err != nil {
		s.logger.Warn().Err(err).Msg("restricted count cache write failed")
	}
	return count, nil
}

// UpdatePostInput carries the editable fields of a post. Nil fields keep the
// stored value.
type UpdatePostInput struct {
	Title   *string
	Content *string
}

// Update edits a post's title and/or content. Only the author may edit; a
// missing post and a post owned by someone else are indistinguishable to the
// caller. Changing the content re-runs the classifier.
func (s *PostService) Update(ctx context.Context, principal domain.Principal, id uuid.UUID, input UpdatePostInput) (*domain.Post, error) {
	post, err := s.getOwned(ctx, principal, id)
	if err != nil {
		return nil, err
	}

	title := post.Title
	if input.Title != nil {
		title = *input.Title
	}
	content := post.Content
	if input.Content != nil {
		content = *input.Content
	}
	if title == "" {
		return nil, ErrTitleRequired
	}
	if content == "" {
		return nil, ErrContentRequired
	}

	restricted := post.Restricted
	if input.Content != nil {
		restricted = classifier.Classify(content)
	}

	updated, err := s.posts.UpdateOwned(ctx, id, principal.UserID, title, content, restricted)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrPostNotOwned
		}
		s.logger.Error().Err(err).Msg("failed to update post")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.invalidateRestrictedCount(ctx)
	return updated, nil
}

// SetRestricted overrides the restricted flag of a post, bypassing the
// classifier. An admin may override any post; anyone else only their own, with
// missing and foreign posts reported identically.
func (s *PostService) SetRestricted(ctx context.Context, principal domain.Principal, id uuid.UUID, restricted bool) (*domain.Post, error) {
	var (
		post *domain.Post
		err  error
	)
	if principal.IsAdmin() {
		post, err = s.posts.SetRestricted(ctx, id, restricted)
		if err != nil && errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrPostNotFound
		}
	} else {
		post, err = s.posts.SetRestrictedOwned(ctx, id, principal.UserID, restricted)
		if err != nil && errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrPostNotOwned
		}
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to override restricted flag")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.invalidateRestrictedCount(ctx)
	s.logger.Info().
		Str("post_id", id.String()).
		Bool("restricted", restricted).
		Int64("actor_id", principal.UserID).
		Msg("restricted flag overridden")
	return post, nil
}

// Delete removes a post. An admin may delete any post; anyone else only their
// own. The thumbnail, if any, is removed from the image store on a best-effort
// basis after the record is gone.
func (s *PostService) Delete(ctx context.Context, principal domain.Principal, id uuid.UUID) error {
	var post *domain.Post
	var err error

	if principal.IsAdmin() {
		post, err = s.posts.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return domain.ErrPostNotFound
			}
			s.logger.Error().Err(err).Msg("failed to load post for deletion")
			return fmt.Errorf("%w: %v", ErrInternalError, err)
		}
		err = s.posts.Delete(ctx, id)
	} else {
		post, err = s.getOwned(ctx, principal, id)
		if err != nil {
			return err
		}
		err = s.posts.DeleteOwned(ctx, id, principal.UserID)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			if principal.IsAdmin() {
				return domain.ErrPostNotFound
			}
			return domain.ErrPostNotOwned
		}
		s.logger.Error().Err(err).Msg("failed to delete post")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	if post.Thumbnail != "" && s.images != nil {
		if err := s.images.Delete(ctx, post.Thumbnail); err != nil {
			s.logger.Warn().
				Err(err).
				Str("post_id", id.String()).
				Str("thumbnail", post.Thumbnail).
				Msg("failed to delete post thumbnail")
		}
	}

	s.invalidateRestrictedCount(ctx)
	if s.metrics != nil {
		s.metrics.PostsDeleted.Inc()
	}

	s.logger.Info().
		Str("post_id", id.String()).
		Int64("actor_id", principal.UserID).
		Msg("post deleted")
	return nil
}

// getOwned loads a post and verifies ownership, collapsing a missing post and
// a post owned by someone else into the same error.
func (s *PostService) getOwned(ctx context.Context, principal domain.Principal, id uuid.UUID) (*domain.Post, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrPostNotOwned
		}
		s.logger.Error().Err(err).Msg("failed to load post")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if !post.OwnedBy(principal.UserID) {
		return nil, domain.ErrPostNotOwned
	}
	return post, nil
}

func (s *PostService) invalidateRestrictedCount(ctx context.Context) {
	if err := s.cache.Delete(ctx, restrictedCountCacheKey); err != nil {
		s.logger.Warn().Err(err).Msg("restricted count cache invalidation failed")
	}
}

// pageOptions converts 1-based page/limit query parameters into list options,
// clamping out-of-range values.
func pageOptions(page, limit int) repository.ListOptions {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return repository.ListOptions{Offset: (page - 1) * limit, Limit: limit}
}
