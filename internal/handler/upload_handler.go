package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/tmarlen/quillpost/internal/domain"
	"github.com/tmarlen/quillpost/internal/storage"
)

// maxUploadSize caps a single image upload at 10 MiB.
const maxUploadSize = 10 << 20

// allowedImageTypes is the MIME whitelist for uploaded thumbnails.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

// UploadHandler accepts multipart image uploads and stores them in the
// configured image store.
type UploadHandler struct {
	images storage.ImageStore
	logger zerolog.Logger
}

// NewUploadHandler creates a new upload handler.
func NewUploadHandler(images storage.ImageStore, logger zerolog.Logger) *UploadHandler {
	return &UploadHandler{
		images: images,
		logger: logger.With().Str("handler", "upload").Logger(),
	}
}

// Upload handles POST /api/uploads. The multipart field is named "image";
// anything outside the MIME whitelist is rejected before touching storage.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "image field is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !allowedImageTypes[contentType] {
		writeError(w, http.StatusBadRequest, domain.ErrUnsupportedImageType.Error())
		return
	}

	url, err := h.images.Store(r.Context(), file, contentType)
	if err != nil {
		h.logger.Error().Err(err).Str("content_type", contentType).Msg("failed to store image")
		writeError(w, http.StatusInternalServerError, "failed to store image")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}
