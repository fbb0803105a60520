package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmarlen/quillpost/internal/auth"
	memorycache "github.com/tmarlen/quillpost/internal/cache/memory"
	"github.com/tmarlen/quillpost/internal/lock"
	"github.com/tmarlen/quillpost/internal/repository/sqlite"
	"github.com/tmarlen/quillpost/internal/service"
	"github.com/tmarlen/quillpost/internal/storage"
)

// apiFixture wires the full API against a temporary SQLite database.
type apiFixture struct {
	t       *testing.T
	handler http.Handler
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	ctx := context.Background()
	logger := zerolog.Nop()

	db, err := sqlite.NewDB(ctx, sqlite.DefaultConfig(filepath.Join(t.TempDir(), "test.db")), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	userRepo := sqlite.NewUserRepository(db)
	postRepo := sqlite.NewPostRepository(db)

	cache := memorycache.NewCache()
	t.Cleanup(cache.Stop)

	images, err := storage.NewFilesystemStore(t.TempDir(), "http://localhost/uploads", logger)
	require.NoError(t, err)

	tokens := auth.NewTokenService("test-secret", time.Hour)
	router := NewRouter(Deps{
		Auth:      service.NewAuthService(userRepo, tokens, lock.NewMemoryLocker(), logger),
		Posts:     service.NewPostService(postRepo, images, cache, nil, logger),
		Export:    service.NewExportService(postRepo, logger),
		Users:     service.NewUserService(userRepo, logger),
		Images:    images,
		Tokens:    tokens,
		UserStore: userRepo,
		Health:    db,
		Logger:    logger,
	})

	return &apiFixture{t: t, handler: router}
}

// do sends a JSON request, optionally authenticated, and decodes the response
// body into out (when non-nil).
func (f *apiFixture) do(method, path, token string, body any, out any) *httptest.ResponseRecorder {
	f.t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(f.t, err)
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	if out != nil && rec.Code < 300 {
		require.NoError(f.t, json.Unmarshal(rec.Body.Bytes(), out))
	}
	return rec
}

// signUpAndIn registers an account and returns its token.
func (f *apiFixture) signUpAndIn(username, role string) string {
	f.t.Helper()

	body := map[string]string{"username": username, "password": "password123", "role": role}
	rec := f.do(http.MethodPost, "/api/auth/signup", "", body, nil)
	require.Equal(f.t, http.StatusCreated, rec.Code, rec.Body.String())

	var signIn map[string]string
	rec = f.do(http.MethodPost, "/api/auth/signin", "", body, &signIn)
	require.Equal(f.t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotEmpty(f.t, signIn["token"])
	return signIn["token"]
}

func TestRouter_UnknownRoute(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(http.MethodGet, "/api/nope", "", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Route not found", body["error"])
}

func TestRouter_Health(t *testing.T) {
	f := newAPIFixture(t)

	var body map[string]string
	rec := f.do(http.MethodGet, "/health", "", nil, &body)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestRouter_SignupDuplicate(t *testing.T) {
	f := newAPIFixture(t)
	f.signUpAndIn("alice", "user")

	body := map[string]string{"username": "alice", "password": "password123"}
	rec := f.do(http.MethodPost, "/api/auth/signup", "", body, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_AdminReplacementFlow(t *testing.T) {
	f := newAPIFixture(t)
	f.signUpAndIn("admin1", "admin")

	// Second admin signup flags the conflict without creating anything.
	body := map[string]string{"username": "admin2", "password": "password123", "role": "admin"}
	var resp map[string]bool
	rec := f.do(http.MethodPost, "/api/auth/signup", "", body, &resp)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, resp["replaceAdmin"])

	rec = f.do(http.MethodPost, "/api/auth/signin", "", body, nil)
	assert.NotEqual(t, http.StatusOK, rec.Code)

	// Confirming replaces the old admin.
	rec = f.do(http.MethodPost, "/api/auth/replace-admin", "", body, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do(http.MethodPost, "/api/auth/signin", "",
		map[string]string{"username": "admin1", "password": "password123"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, "/api/auth/signin", "", body, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_PostLifecycle(t *testing.T) {
	f := newAPIFixture(t)
	token := f.signUpAndIn("author", "user")

	// Unauthenticated writes are rejected before any handler runs.
	rec := f.do(http.MethodPost, "/api/posts", "", map[string]string{"title": "t", "content": "c"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var created struct {
		Post struct {
			ID         string `json:"id"`
			Restricted bool   `json:"restricted"`
		} `json:"post"`
	}
	rec = f.do(http.MethodPost, "/api/posts", token,
		map[string]string{"title": "Hello", "content": "contains NATO inside"}, &created)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.True(t, created.Post.Restricted)

	// Restricted-only body overrides the classifier verdict.
	var updated struct {
		Post struct {
			Restricted bool `json:"restricted"`
		} `json:"post"`
	}
	rec = f.do(http.MethodPut, "/api/posts/"+created.Post.ID, token,
		map[string]bool{"restricted": false}, &updated)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.False(t, updated.Post.Restricted)

	// Another user cannot read-modify-delete their way into it.
	otherToken := f.signUpAndIn("rival", "user")
	rec = f.do(http.MethodDelete, "/api/posts/"+created.Post.ID, otherToken, nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(http.MethodDelete, "/api/posts/"+created.Post.ID, token, nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_AdminGates(t *testing.T) {
	f := newAPIFixture(t)
	userToken := f.signUpAndIn("bob", "user")
	adminToken := f.signUpAndIn("root", "admin")

	rec := f.do(http.MethodGet, "/api/posts", userToken, nil, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = f.do(http.MethodGet, "/api/user/all", userToken, nil, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(http.MethodGet, "/api/posts", adminToken, nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var users []map[string]any
	rec = f.do(http.MethodGet, "/api/user/all", adminToken, nil, &users)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, users, 2)
	for _, u := range users {
		_, leaked := u["password_hash"]
		assert.False(t, leaked, "password hash must not serialize")
	}
}

func TestRouter_BlockTakesEffectImmediately(t *testing.T) {
	f := newAPIFixture(t)
	victimToken := f.signUpAndIn("victim", "user")
	adminToken := f.signUpAndIn("root", "admin")

	rec := f.do(http.MethodGet, "/api/posts/my", victimToken, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Find the victim's ID via the admin listing.
	var users []struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
	}
	rec = f.do(http.MethodGet, "/api/user/all", adminToken, nil, &users)
	require.Equal(t, http.StatusOK, rec.Code)
	var victimID int64
	for _, u := range users {
		if u.Username == "victim" {
			victimID = u.ID
		}
	}
	require.NotZero(t, victimID)

	rec = f.do(http.MethodPut, fmt.Sprintf("/api/user/block/%d", victimID), adminToken, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// The still-valid token no longer passes the pipeline.
	rec = f.do(http.MethodGet, "/api/posts/my", victimToken, nil, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(http.MethodPut, fmt.Sprintf("/api/user/unblock/%d", victimID), adminToken, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(http.MethodGet, "/api/posts/my", victimToken, nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_RestrictedStats(t *testing.T) {
	f := newAPIFixture(t)
	adminToken := f.signUpAndIn("root", "admin")

	rec := f.do(http.MethodPost, "/api/posts", adminToken,
		map[string]string{"title": "flagged", "content": "a BOMB here"}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var stats struct {
		RestrictedPosts int64 `json:"restrictedPosts"`
	}
	rec = f.do(http.MethodGet, "/api/posts/stats/restricted", adminToken, nil, &stats)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, int64(1), stats.RestrictedPosts)
}

func TestRouter_Export(t *testing.T) {
	f := newAPIFixture(t)
	token := f.signUpAndIn("writer", "user")

	// Nothing to export yet.
	rec := f.do(http.MethodGet, "/api/posts/export", token, nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(http.MethodPost, "/api/posts", token,
		map[string]string{"title": "Exported", "content": "text"}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(http.MethodGet, "/api/posts/export", token, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "posts_")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))
}

func TestRouter_EmptyListingsAreArrays(t *testing.T) {
	f := newAPIFixture(t)
	admin := f.signUpAndIn("root", "admin")

	// No posts exist yet; every listing must serialize as [], not null.
	for _, path := range []string{"/api/posts", "/api/posts/my", "/api/posts/restricted"} {
		rec := f.do(http.MethodGet, path, admin, nil, nil)
		require.Equal(t, http.StatusOK, rec.Code, path)
		assert.NotContains(t, rec.Body.String(), "null", path)
		if path == "/api/posts/restricted" {
			assert.Contains(t, rec.Body.String(), `"posts":[]`)
		} else {
			assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()), path)
		}
	}
}

func TestRouter_Upload(t *testing.T) {
	f := newAPIFixture(t)

	// Uploads sit outside the token pipeline; no Authorization header.
	upload := func(contentType string) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="image"; filename="pic"`)
		header.Set("Content-Type", contentType)
		part, err := mw.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write([]byte("not really an image"))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/uploads", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, req)
		return rec
	}

	rec := upload("image/png")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["url"], "http://localhost/uploads/")

	rec = upload("application/pdf")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
