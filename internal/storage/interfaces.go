// Package storage defines the image hosting backends used for post
// thumbnails. The server only ever talks to the host through ImageStore;
// everything else (bucket layout, local paths, public URLs) is backend detail.
package storage

import (
	"context"
	"io"
)

// ImageStore is the narrow interface the upload and post-deletion paths use.
type ImageStore interface {
	// Store uploads image content and returns its public URL.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeouts
	//   - reader: Source of the image bytes
	//   - contentType: MIME type of the image (already validated by the caller)
	//
	// Returns:
	//   - url: Public URL under which the image is reachable
	//   - err: Error if the upload fails
	Store(ctx context.Context, reader io.Reader, contentType string) (url string, err error)

	// Delete removes a previously stored image identified by its public URL.
	// Deleting a URL this backend did not produce, or one already deleted,
	// returns domain.ErrImageNotFound. Callers on the post-deletion path
	// treat any failure here as best-effort and ignore it.
	Delete(ctx context.Context, url string) error
}

// extensionFor maps the accepted image MIME types to file extensions.
// Uploads are restricted to these three types at the handler boundary.
func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	default:
		return ".bin"
	}
}
