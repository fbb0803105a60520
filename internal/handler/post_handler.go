package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tmarlen/quillpost/internal/auth"
	"github.com/tmarlen/quillpost/internal/domain"
	"github.com/tmarlen/quillpost/internal/service"
)

// PostHandler serves the post CRUD, listing, stats and export endpoints.
type PostHandler struct {
	posts  *service.PostService
	export *service.ExportService
	logger zerolog.Logger
}

// NewPostHandler creates a new post handler.
func NewPostHandler(posts *service.PostService, export *service.ExportService, logger zerolog.Logger) *PostHandler {
	return &PostHandler{
		posts:  posts,
		export: export,
		logger: logger.With().Str("handler", "post").Logger(),
	}
}

type createPostRequest struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	Thumbnail string `json:"thumbnail"`
}

// Create handles POST /api/posts.
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, domain.ErrMissingToken.Error())
		return
	}

	var req createPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	post, err := h.posts.Create(r.Context(), principal, service.CreatePostInput{
		Title:     req.Title,
		Content:   req.Content,
		Thumbnail: req.Thumbnail,
	})
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Post created successfully",
		"post":    post,
	})
}

// List handles GET /api/posts (admin only, gated in the router).
func (h *PostHandler) List(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	result, err := h.posts.List(r.Context(), page, limit)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(result.Items))
}

// ListMine handles GET /api/posts/my.
func (h *PostHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, domain.ErrMissingToken.Error())
		return
	}

	posts, err := h.posts.ListMine(r.Context(), principal)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(posts))
}

// Get handles GET /api/posts/{id}.
func (h *PostHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := postID(r)
	if err != nil {
		writeError(w, http.StatusNotFound, domain.ErrPostNotFound.Error())
		return
	}

	post, err := h.posts.Get(r.Context(), id)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

type updatePostRequest struct {
	Title      *string `json:"title"`
	Content    *string `json:"content"`
	Restricted *bool   `json:"restricted"`
}

// Update handles PUT /api/posts/{id}. Two request shapes share the route: a
// body carrying only {"restricted": bool} overrides the flag directly (author
// or admin), anything else edits title/content (author only) and re-runs the
// classifier.
func (h *PostHandler) Update(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, domain.ErrMissingToken.Error())
		return
	}

	id, err := postID(r)
	if err != nil {
		writeError(w, http.StatusNotFound, domain.ErrPostNotOwned.Error())
		return
	}

	var req updatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var post *domain.Post
	if req.Restricted != nil && req.Title == nil && req.Content == nil {
		post, err = h.posts.SetRestricted(r.Context(), principal, id, *req.Restricted)
	} else {
		post, err = h.posts.Update(r.Context(), principal, id, service.UpdatePostInput{
			Title:   req.Title,
			Content: req.Content,
		})
	}
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Post updated successfully",
		"post":    post,
	})
}

// Delete handles DELETE /api/posts/{id}.
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, domain.ErrMissingToken.Error())
		return
	}

	id, err := postID(r)
	if err != nil {
		writeError(w, http.StatusNotFound, domain.ErrPostNotOwned.Error())
		return
	}

	if err := h.posts.Delete(r.Context(), principal, id); err != nil {
		handleError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Post deleted successfully"})
}

// ListRestricted handles GET /api/posts/restricted.
func (h *PostHandler) ListRestricted(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	result, err := h.posts.ListRestricted(r.Context(), page, limit)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"posts":       emptyIfNil(result.Items),
		"currentPage": page,
	})
}

// RestrictedStats handles GET /api/posts/stats/restricted (admin only).
func (h *PostHandler) RestrictedStats(w http.ResponseWriter, r *http.Request) {
	count, err := h.posts.CountRestricted(r.Context())
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":         "Restricted posts count fetched successfully",
		"restrictedPosts": count,
	})
}

// Export handles GET /api/posts/export?id=&all=. The PDF is rendered in full
// before any response byte goes out, so an empty selection can still produce
// a clean 404.
func (h *PostHandler) Export(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, domain.ErrMissingToken.Error())
		return
	}

	var input service.ExportInput
	if raw := r.URL.Query().Get("id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusNotFound, domain.ErrNoPostsToExport.Error())
			return
		}
		input.ID = &id
	}
	input.All = r.URL.Query().Get("all") == "true"

	var buf bytes.Buffer
	if err := h.export.Export(r.Context(), principal, input, &buf); err != nil {
		handleError(w, h.logger, err)
		return
	}

	filename := fmt.Sprintf("posts_%d.pdf", time.Now().Unix())
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// postID parses the {id} URL parameter.
func postID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "id"))
}

// pageParams parses the page/limit query parameters, defaulting page to 1.
func pageParams(r *http.Request) (page, limit int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	return page, limit
}
