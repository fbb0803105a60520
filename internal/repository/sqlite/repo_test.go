package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmarlen/quillpost/internal/domain"
	"github.com/tmarlen/quillpost/internal/repository"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(context.Background(), DefaultConfig(filepath.Join(t.TempDir(), "test.db")), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestUserRepository_CreateAndGet(t *testing.T) {
	repo := NewUserRepository(testDB(t))
	ctx := context.Background()

	user := domain.NewUser("alice", "hash", domain.RoleUser)
	require.NoError(t, repo.Create(ctx, user))
	require.NotZero(t, user.ID)

	byID, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Username)
	assert.Equal(t, domain.RoleUser, byID.Role)
	assert.False(t, byID.Blocked)

	byName, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byName.ID)

	_, err = repo.GetByID(ctx, 999)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUserRepository_DuplicateUsername(t *testing.T) {
	repo := NewUserRepository(testDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, domain.NewUser("alice", "hash", domain.RoleUser)))
	err := repo.Create(ctx, domain.NewUser("alice", "other", domain.RoleUser))
	assert.ErrorIs(t, err, domain.ErrUsernameTaken)
}

func TestUserRepository_AdminLifecycle(t *testing.T) {
	repo := NewUserRepository(testDB(t))
	ctx := context.Background()

	exists, err := repo.AdminExists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, repo.Create(ctx, domain.NewUser("root", "hash", domain.RoleAdmin)))
	require.NoError(t, repo.Create(ctx, domain.NewUser("bob", "hash", domain.RoleUser)))

	exists, err = repo.AdminExists(ctx)
	require.NoError(t, err)
	assert.True(t, exists)

	deleted, err := repo.DeleteAdmins(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	// Regular accounts survive the purge.
	_, err = repo.GetByUsername(ctx, "bob")
	assert.NoError(t, err)
	exists, err = repo.AdminExists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUserRepository_SingleAdminIndex(t *testing.T) {
	repo := NewUserRepository(testDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, domain.NewUser("root", "hash", domain.RoleAdmin)))

	// A second admin insert trips the partial unique index even though the
	// username differs.
	err := repo.Create(ctx, domain.NewUser("root2", "hash", domain.RoleAdmin))
	assert.ErrorIs(t, err, domain.ErrAdminExists)

	// After the purge a new admin can be installed again.
	_, err = repo.DeleteAdmins(ctx)
	require.NoError(t, err)
	assert.NoError(t, repo.Create(ctx, domain.NewUser("root2", "hash", domain.RoleAdmin)))
}

func TestUserRepository_SetBlocked(t *testing.T) {
	repo := NewUserRepository(testDB(t))
	ctx := context.Background()

	user := domain.NewUser("mallory", "hash", domain.RoleUser)
	require.NoError(t, repo.Create(ctx, user))

	blocked, err := repo.SetBlocked(ctx, user.ID, true)
	require.NoError(t, err)
	assert.True(t, blocked.Blocked)

	unblocked, err := repo.SetBlocked(ctx, user.ID, false)
	require.NoError(t, err)
	assert.False(t, unblocked.Blocked)

	_, err = repo.SetBlocked(ctx, 999, true)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func seedPost(t *testing.T, repo repository.PostRepository, authorID int64, title string, restricted bool) *domain.Post {
	t.Helper()
	post := domain.NewPost(title, "content of "+title, authorID, "", restricted)
	require.NoError(t, repo.Create(context.Background(), post))
	return post
}

func TestPostRepository_CreateAndGet(t *testing.T) {
	repo := NewPostRepository(testDB(t))
	ctx := context.Background()

	post := seedPost(t, repo, 1, "hello", true)

	got, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, post.ID, got.ID)
	assert.Equal(t, "hello", got.Title)
	assert.True(t, got.Restricted)
	assert.Equal(t, int64(1), got.AuthorID)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestPostRepository_OwnedWrites(t *testing.T) {
	repo := NewPostRepository(testDB(t))
	ctx := context.Background()

	post := seedPost(t, repo, 1, "original", false)

	// Wrong author: the single conditional statement affects zero rows.
	_, err := repo.UpdateOwned(ctx, post.ID, 2, "stolen", "body", false)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = repo.SetRestrictedOwned(ctx, post.ID, 2, true)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	err = repo.DeleteOwned(ctx, post.ID, 2)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	// Untouched by the failed attempts.
	got, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "original", got.Title)

	updated, err := repo.UpdateOwned(ctx, post.ID, 1, "edited", "new body", true)
	require.NoError(t, err)
	assert.Equal(t, "edited", updated.Title)
	assert.Equal(t, "new body", updated.Content)
	assert.True(t, updated.Restricted)

	require.NoError(t, repo.DeleteOwned(ctx, post.ID, 1))
	_, err = repo.GetByID(ctx, post.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestPostRepository_AdminWrites(t *testing.T) {
	repo := NewPostRepository(testDB(t))
	ctx := context.Background()

	post := seedPost(t, repo, 1, "target", false)

	overridden, err := repo.SetRestricted(ctx, post.ID, true)
	require.NoError(t, err)
	assert.True(t, overridden.Restricted)

	require.NoError(t, repo.Delete(ctx, post.ID))
	err = repo.Delete(ctx, post.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestPostRepository_Listings(t *testing.T) {
	repo := NewPostRepository(testDB(t))
	ctx := context.Background()

	seedPost(t, repo, 1, "a", false)
	seedPost(t, repo, 1, "b", true)
	seedPost(t, repo, 2, "c", true)

	all, err := repo.List(ctx, repository.ListOptions{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(3), all.Total)
	assert.Len(t, all.Items, 3)

	mine, err := repo.ListByAuthor(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	restricted, err := repo.ListRestricted(ctx, repository.ListOptions{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, restricted.Items, 2)

	count, err := repo.CountRestricted(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	everything, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, everything, 3)
}
