package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tmarlen/quillpost/internal/domain"
	"github.com/tmarlen/quillpost/internal/repository"
)

// ExportService renders posts into a PDF document.
type ExportService struct {
	posts  repository.PostRepository
	logger zerolog.Logger
}

// NewExportService creates a new export service.
func NewExportService(posts repository.PostRepository, logger zerolog.Logger) *ExportService {
	return &ExportService{
		posts:  posts,
		logger: logger.With().Str("service", "export").Logger(),
	}
}

// ExportInput selects which posts to export. With ID set, only that post is
// exported. With All set, every post in the system is exported; this is
// honored for admins only, anyone else silently falls back to their own
// posts. With neither, the caller's own posts are exported.
type ExportInput struct {
	ID  *uuid.UUID
	All bool
}

// Export writes a PDF of the selected posts to w. Returns
// domain.ErrNoPostsToExport when the selection is empty, before anything is
// written, so callers can still send an error response.
func (s *ExportService) Export(ctx context.Context, principal domain.Principal, input ExportInput, w io.Writer) error {
	posts, err := s.selectPosts(ctx, principal, input)
	if err != nil {
		return err
	}
	if len(posts) == 0 {
		return domain.ErrNoPostsToExport
	}

	if err := renderPDF(posts, w); err != nil {
		s.logger.Error().Err(err).Msg("failed to render PDF")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().
		Int("posts", len(posts)).
		Int64("actor_id", principal.UserID).
		Msg("posts exported")
	return nil
}

func (s *ExportService) selectPosts(ctx context.Context, principal domain.Principal, input ExportInput) ([]*domain.Post, error) {
	switch {
	case input.ID != nil:
		post, err := s.posts.GetByID(ctx, *input.ID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, domain.ErrNoPostsToExport
			}
			s.logger.Error().Err(err).Msg("failed to load post for export")
			return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
		}
		if !principal.IsAdmin() && !post.OwnedBy(principal.UserID) {
			return nil, domain.ErrNoPostsToExport
		}
		return []*domain.Post{post}, nil

	case input.All && principal.IsAdmin():
		posts, err := s.posts.ListAll(ctx)
		if err != nil {
			s.logger.Error().Err(err).Msg("failed to list posts for export")
			return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
		}
		return posts, nil

	default:
		posts, err := s.posts.ListByAuthor(ctx, principal.UserID)
		if err != nil {
			s.logger.Error().Err(err).Msg("failed to list own posts for export")
			return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
		}
		return posts, nil
	}
}

// renderPDF writes one page per post: title, a meta line, then the body.
func renderPDF(posts []*domain.Post, w io.Writer) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("QuillPost export", true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	for _, post := range posts {
		pdf.AddPage()

		pdf.SetFont("Helvetica", "B", 16)
		pdf.MultiCell(0, 8, tr(post.Title), "", "L", false)

		meta := fmt.Sprintf("Created %s", post.CreatedAt.Format("2006-01-02 15:04"))
		if post.Restricted {
			meta += "  [restricted]"
		}
		pdf.SetFont("Helvetica", "I", 9)
		pdf.SetTextColor(120, 120, 120)
		pdf.MultiCell(0, 5, tr(meta), "", "L", false)
		pdf.Ln(4)

		pdf.SetFont("Helvetica", "", 11)
		pdf.SetTextColor(0, 0, 0)
		pdf.MultiCell(0, 6, tr(post.Content), "", "L", false)
	}

	return pdf.Output(w)
}
