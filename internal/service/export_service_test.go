package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmarlen/quillpost/internal/domain"
)

func newExportFixture(t *testing.T) (*ExportService, *mockPostRepo, []*domain.Post) {
	t.Helper()
	posts := newMockPostRepo()
	ctx := context.Background()

	mine := domain.NewPost("Mine", "my content", author.UserID, "", false)
	theirs := domain.NewPost("Theirs", "their content", other.UserID, "", true)
	require.NoError(t, posts.Create(ctx, mine))
	require.NoError(t, posts.Create(ctx, theirs))

	return NewExportService(posts, zerolog.Nop()), posts, []*domain.Post{mine, theirs}
}

func assertPDF(t *testing.T, buf *bytes.Buffer) {
	t.Helper()
	require.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")), "output is not a PDF")
}

func TestExportService_OwnPosts(t *testing.T) {
	svc, _, _ := newExportFixture(t)

	var buf bytes.Buffer
	require.NoError(t, svc.Export(context.Background(), author, ExportInput{}, &buf))
	assertPDF(t, &buf)
}

func TestExportService_SinglePost(t *testing.T) {
	svc, _, seeded := newExportFixture(t)
	ctx := context.Background()

	var buf bytes.Buffer
	require.NoError(t, svc.Export(ctx, author, ExportInput{ID: &seeded[0].ID}, &buf))
	assertPDF(t, &buf)

	// A foreign post is reported as empty, not forbidden.
	buf.Reset()
	err := svc.Export(ctx, author, ExportInput{ID: &seeded[1].ID}, &buf)
	assert.ErrorIs(t, err, domain.ErrNoPostsToExport)
	assert.Zero(t, buf.Len())

	// An admin can export anyone's post by ID.
	buf.Reset()
	require.NoError(t, svc.Export(ctx, admin, ExportInput{ID: &seeded[1].ID}, &buf))
	assertPDF(t, &buf)
}

func TestExportService_AllRequiresAdmin(t *testing.T) {
	svc, posts, _ := newExportFixture(t)
	ctx := context.Background()

	// A non-admin asking for all=true is silently scoped to their own posts:
	// the admin has none of their own, so the result is empty.
	var buf bytes.Buffer
	err := svc.Export(ctx, domain.Principal{UserID: 42, Role: domain.RoleUser}, ExportInput{All: true}, &buf)
	assert.ErrorIs(t, err, domain.ErrNoPostsToExport)

	buf.Reset()
	require.NoError(t, svc.Export(ctx, admin, ExportInput{All: true}, &buf))
	assertPDF(t, &buf)

	all, err := posts.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestExportService_EmptySelection(t *testing.T) {
	svc := NewExportService(newMockPostRepo(), zerolog.Nop())

	var buf bytes.Buffer
	err := svc.Export(context.Background(), author, ExportInput{}, &buf)
	assert.ErrorIs(t, err, domain.ErrNoPostsToExport)
	assert.Zero(t, buf.Len())

	missing := uuid.New()
	err = svc.Export(context.Background(), author, ExportInput{ID: &missing}, &buf)
	assert.ErrorIs(t, err, domain.ErrNoPostsToExport)
}
