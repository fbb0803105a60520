package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmarlen/quillpost/internal/domain"
)

var (
	author = domain.Principal{UserID: 1, Role: domain.RoleUser}
	other  = domain.Principal{UserID: 2, Role: domain.RoleUser}
	admin  = domain.Principal{UserID: 3, Role: domain.RoleAdmin}
)

func newPostFixture() (*PostService, *mockPostRepo, *fakeImageStore, *fakeCache) {
	posts := newMockPostRepo()
	images := &fakeImageStore{}
	cache := newFakeCache()
	svc := NewPostService(posts, images, cache, nil, zerolog.Nop())
	return svc, posts, images, cache
}

func TestPostService_CreateClassifies(t *testing.T) {
	svc, _, _, _ := newPostFixture()
	ctx := context.Background()

	clean, err := svc.Create(ctx, author, CreatePostInput{Title: "First", Content: "nothing to see here"})
	require.NoError(t, err)
	assert.False(t, clean.Restricted)
	assert.Equal(t, author.UserID, clean.AuthorID)

	flagged, err := svc.Create(ctx, author, CreatePostInput{Title: "Second", Content: "this mentions NATO explicitly"})
	require.NoError(t, err)
	assert.True(t, flagged.Restricted)
}

func TestPostService_CreateValidation(t *testing.T) {
	svc, _, _, _ := newPostFixture()
	ctx := context.Background()

	_, err := svc.Create(ctx, author, CreatePostInput{Content: "body"})
	assert.ErrorIs(t, err, ErrTitleRequired)

	_, err = svc.Create(ctx, author, CreatePostInput{Title: "title"})
	assert.ErrorIs(t, err, ErrContentRequired)
}

func TestPostService_UpdateReclassifies(t *testing.T) {
	svc, _, _, _ := newPostFixture()
	ctx := context.Background()

	post, err := svc.Create(ctx, author, CreatePostInput{Title: "T", Content: "plain text"})
	require.NoError(t, err)
	require.False(t, post.Restricted)

	content := "now with SHOUTING inside"
	updated, err := svc.Update(ctx, author, post.ID, UpdatePostInput{Content: &content})
	require.NoError(t, err)
	assert.True(t, updated.Restricted)
	assert.Equal(t, "T", updated.Title)

	// Title-only edits keep the stored flag.
	title := "New title WITH CAPS"
	updated, err = svc.Update(ctx, author, post.ID, UpdatePostInput{Title: &title})
	require.NoError(t, err)
	assert.True(t, updated.Restricted)
}

func TestPostService_UpdateOwnershipCollapse(t *testing.T) {
	svc, _, _, _ := newPostFixture()
	ctx := context.Background()

	post, err := svc.Create(ctx, author, CreatePostInput{Title: "T", Content: "body"})
	require.NoError(t, err)

	title := "hijacked"

	// A foreign post and a missing post produce the same error.
	_, errForeign := svc.Update(ctx, other, post.ID, UpdatePostInput{Title: &title})
	_, errMissing := svc.Update(ctx, other, uuid.New(), UpdatePostInput{Title: &title})
	assert.ErrorIs(t, errForeign, domain.ErrPostNotOwned)
	assert.ErrorIs(t, errMissing, domain.ErrPostNotOwned)

	// Admins do not get content-edit rights over foreign posts either.
	_, err = svc.Update(ctx, admin, post.ID, UpdatePostInput{Title: &title})
	assert.ErrorIs(t, err, domain.ErrPostNotOwned)
}

func TestPostService_SetRestricted(t *testing.T) {
	svc, _, _, _ := newPostFixture()
	ctx := context.Background()

	post, err := svc.Create(ctx, author, CreatePostInput{Title: "T", Content: "plain"})
	require.NoError(t, err)

	// Owner can force the flag on despite the classifier saying otherwise.
	updated, err := svc.SetRestricted(ctx, author, post.ID, true)
	require.NoError(t, err)
	assert.True(t, updated.Restricted)

	// Admin can override anyone's post.
	updated, err = svc.SetRestricted(ctx, admin, post.ID, false)
	require.NoError(t, err)
	assert.False(t, updated.Restricted)

	// A third party cannot, and learns nothing about the post's existence.
	_, err = svc.SetRestricted(ctx, other, post.ID, true)
	assert.ErrorIs(t, err, domain.ErrPostNotOwned)

	// Admin operating on a genuinely missing post sees a plain not-found.
	_, err = svc.SetRestricted(ctx, admin, uuid.New(), true)
	assert.ErrorIs(t, err, domain.ErrPostNotFound)
}

func TestPostService_Delete(t *testing.T) {
	svc, posts, images, _ := newPostFixture()
	ctx := context.Background()

	post, err := svc.Create(ctx, author, CreatePostInput{Title: "T", Content: "body", Thumbnail: "http://img.test/a.png"})
	require.NoError(t, err)

	// Non-owners cannot delete and cannot probe existence.
	err = svc.Delete(ctx, other, post.ID)
	assert.ErrorIs(t, err, domain.ErrPostNotOwned)

	require.NoError(t, svc.Delete(ctx, author, post.ID))
	_, err = posts.GetByID(ctx, post.ID)
	assert.Error(t, err)
	assert.Equal(t, []string{"http://img.test/a.png"}, images.deleted)
}

func TestPostService_DeleteByAdmin(t *testing.T) {
	svc, posts, _, _ := newPostFixture()
	ctx := context.Background()

	post, err := svc.Create(ctx, author, CreatePostInput{Title: "T", Content: "body"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, admin, post.ID))
	_, err = posts.GetByID(ctx, post.ID)
	assert.Error(t, err)

	err = svc.Delete(ctx, admin, uuid.New())
	assert.ErrorIs(t, err, domain.ErrPostNotFound)
}

func TestPostService_DeleteSurvivesThumbnailFailure(t *testing.T) {
	svc, posts, images, _ := newPostFixture()
	ctx := context.Background()
	images.deleteErr = errors.New("image host down")

	post, err := svc.Create(ctx, author, CreatePostInput{Title: "T", Content: "body", Thumbnail: "http://img.test/b.png"})
	require.NoError(t, err)

	// The record deletion succeeds even when the image host fails.
	require.NoError(t, svc.Delete(ctx, author, post.ID))
	_, err = posts.GetByID(ctx, post.ID)
	assert.Error(t, err)
}

func TestPostService_CountRestrictedCaches(t *testing.T) {
	svc, _, _, cache := newPostFixture()
	ctx := context.Background()

	_, err := svc.Create(ctx, author, CreatePostInput{Title: "T", Content: "has a BOMB word"})
	require.NoError(t, err)

	count, err := svc.CountRestricted(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	firstSets := cache.sets

	// Second read is served from the cache.
	count, err = svc.CountRestricted(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, firstSets, cache.sets)

	// A new restricted post invalidates the cached value.
	_, err = svc.Create(ctx, author, CreatePostInput{Title: "T2", Content: "another BOMB"})
	require.NoError(t, err)

	count, err = svc.CountRestricted(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestPostService_ListMine(t *testing.T) {
	svc, _, _, _ := newPostFixture()
	ctx := context.Background()

	_, err := svc.Create(ctx, author, CreatePostInput{Title: "mine", Content: "body"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, other, CreatePostInput{Title: "theirs", Content: "body"})
	require.NoError(t, err)

	mine, err := svc.ListMine(ctx, author)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "mine", mine[0].Title)
}
