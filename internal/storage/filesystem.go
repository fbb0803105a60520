package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tmarlen/quillpost/internal/domain"
)

// FilesystemStore implements ImageStore on a local directory. Files are
// served back by the HTTP server under the configured public base URL.
type FilesystemStore struct {
	dataDir string
	baseURL string
	logger  zerolog.Logger
}

// NewFilesystemStore creates a filesystem-backed image store, ensuring the
// data directory exists.
func NewFilesystemStore(dataDir, baseURL string, logger zerolog.Logger) (*FilesystemStore, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &FilesystemStore{
		dataDir: dataDir,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logger.With().Str("component", "storage-fs").Logger(),
	}, nil
}

// Dir returns the local directory backing the store, for static serving.
func (s *FilesystemStore) Dir() string {
	return s.dataDir
}

// Store writes the image to the data directory under a random name.
func (s *FilesystemStore) Store(ctx context.Context, reader io.Reader, contentType string) (string, error) {
	name := uuid.NewString() + extensionFor(contentType)
	path := filepath.Join(s.dataDir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}

	if _, err := io.Copy(f, reader); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write upload file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to close upload file: %w", err)
	}

	s.logger.Debug().Str("file", name).Msg("stored image")
	return s.baseURL + "/" + name, nil
}

// Delete removes the file behind a URL produced by this store.
func (s *FilesystemStore) Delete(ctx context.Context, url string) error {
	name, ok := strings.CutPrefix(url, s.baseURL+"/")
	if !ok || name == "" || strings.Contains(name, "/") {
		return domain.NewDomainError(domain.ErrImageNotFound, "url does not belong to this store", url)
	}

	if err := os.Remove(filepath.Join(s.dataDir, name)); err != nil {
		if os.IsNotExist(err) {
			return domain.ErrImageNotFound
		}
		return fmt.Errorf("failed to delete upload file: %w", err)
	}
	return nil
}

// Ensure FilesystemStore implements ImageStore.
var _ ImageStore = (*FilesystemStore)(nil)
