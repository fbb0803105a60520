package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tmarlen/quillpost/internal/domain"
	"github.com/tmarlen/quillpost/internal/repository"
)

// UserService handles admin-side user management: listing accounts and
// toggling the blocked flag.
type UserService struct {
	users  repository.UserRepository
	logger zerolog.Logger
}

// NewUserService creates a new user management service.
func NewUserService(users repository.UserRepository, logger zerolog.Logger) *UserService {
	return &UserService{
		users:  users,
		logger: logger.With().Str("service", "user").Logger(),
	}
}

// SetBlocked sets the blocked flag on the target account. The operation is
// idempotent: blocking an already blocked account succeeds and changes
// nothing. Admins cannot block themselves.
func (s *UserService) SetBlocked(ctx context.Context, principal domain.Principal, targetID int64, blocked bool) (*domain.User, error) {
	if targetID == principal.UserID {
		return nil, domain.ErrSelfBlock
	}

	user, err := s.users.SetBlocked(ctx, targetID, blocked)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		s.logger.Error().Err(err).Msg("failed to set blocked flag")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().
		Int64("user_id", targetID).
		Int64("actor_id", principal.UserID).
		Bool("blocked", blocked).
		Msg("blocked flag updated")
	return user, nil
}

// List returns a page of user accounts, newest first.
func (s *UserService) List(ctx context.Context, page, limit int) (*repository.ListResult[domain.User], error) {
	result, err := s.users.List(ctx, pageOptions(page, limit))
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list users")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return result, nil
}
