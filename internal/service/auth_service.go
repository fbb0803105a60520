package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tmarlen/quillpost/internal/auth"
	"github.com/tmarlen/quillpost/internal/domain"
	"github.com/tmarlen/quillpost/internal/lock"
	"github.com/tmarlen/quillpost/internal/pkg/crypto"
	"github.com/tmarlen/quillpost/internal/repository"
)

// Lock parameters for the admin replacement flow. The TTL bounds how long a
// crashed replacement can keep other replacements out.
const (
	adminReplaceLockKey        = "auth:replace-admin"
	adminReplaceLockTTL        = 10 * time.Second
	adminReplaceLockRetries    = 5
	adminReplaceLockRetryDelay = 100 * time.Millisecond
)

// AuthService handles account registration and sign-in.
type AuthService struct {
	users  repository.UserRepository
	tokens *auth.TokenService
	locker lock.Locker
	logger zerolog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(users repository.UserRepository, tokens *auth.TokenService, locker lock.Locker, logger zerolog.Logger) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		locker: locker,
		logger: logger.With().Str("service", "auth").Logger(),
	}
}

// SignUpInput carries the fields accepted at registration.
type SignUpInput struct {
	Username string
	Password string
	Role     string
}

// SignUpResult reports the outcome of a registration attempt.
type SignUpResult struct {
	User *domain.User

	// AdminExists is set when the caller asked for the admin role while an
	// admin account already exists. No account was created; the caller must
	// explicitly confirm replacement via ReplaceAdmin.
	AdminExists bool
}

// SignUp registers a new account. Requesting the admin role while an admin
// already exists does not create anything: the result flags the conflict and
// the caller decides whether to proceed with ReplaceAdmin. The admin path
// holds the same lock as ReplaceAdmin so two first-admin sign-ups cannot both
// pass the existence check and both persist.
func (s *AuthService) SignUp(ctx context.Context, input SignUpInput) (*SignUpResult, error) {
	role, err := validateSignUp(input)
	if err != nil {
		return nil, err
	}

	if role == domain.RoleAdmin {
		return s.signUpAdmin(ctx, input)
	}

	user, err := s.createUser(ctx, input.Username, input.Password, role)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("username", user.Username).Str("role", string(user.Role)).Msg("user registered")
	return &SignUpResult{User: user}, nil
}

// signUpAdmin runs the admin-existence check and the insert under the admin
// lock. The single-admin index in the stores backs the lock up: if an admin
// still slips in between, the insert itself reports the conflict.
func (s *AuthService) signUpAdmin(ctx context.Context, input SignUpInput) (*SignUpResult, error) {
	unlock, err := s.lockAdmin(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	exists, err := s.users.AdminExists(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to check for existing admin")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if exists {
		return &SignUpResult{AdminExists: true}, nil
	}

	user, err := s.createUser(ctx, input.Username, input.Password, domain.RoleAdmin)
	if err != nil {
		if errors.Is(err, domain.ErrAdminExists) {
			return &SignUpResult{AdminExists: true}, nil
		}
		return nil, err
	}

	s.logger.Info().Str("username", user.Username).Msg("admin registered")
	return &SignUpResult{User: user}, nil
}

// ReplaceAdmin deletes every existing admin account and registers the given
// credentials as the new admin. The whole sequence runs under a distributed
// lock so concurrent replacements cannot interleave and leave two admins.
// Posts authored by the deleted admin are left in place.
func (s *AuthService) ReplaceAdmin(ctx context.Context, input SignUpInput) (*domain.User, error) {
	input.Role = string(domain.RoleAdmin)
	if _, err := validateSignUp(input); err != nil {
		return nil, err
	}

	unlock, err := s.lockAdmin(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	deleted, err := s.users.DeleteAdmins(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to delete existing admins")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	user, err := s.createUser(ctx, input.Username, input.Password, domain.RoleAdmin)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("username", user.Username).
		Int64("admins_deleted", deleted).
		Msg("admin account replaced")
	return user, nil
}

// lockAdmin acquires the lock serializing every admin-mutating flow and
// returns the release func.
func (s *AuthService) lockAdmin(ctx context.Context) (func(), error) {
	acquired, err := s.locker.AcquireWithRetry(ctx, adminReplaceLockKey, adminReplaceLockTTL,
		adminReplaceLockRetries, adminReplaceLockRetryDelay)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to acquire admin lock")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if !acquired {
		return nil, fmt.Errorf("%w: another admin operation is in progress", ErrInternalError)
	}
	return func() {
		if _, err := s.locker.Release(context.WithoutCancel(ctx), adminReplaceLockKey); err != nil {
			s.logger.Warn().Err(err).Msg("failed to release admin lock")
		}
	}, nil
}

// SignInResult carries the signed token issued for a successful sign-in.
type SignInResult struct {
	Token string
	Role  domain.Role
}

// SignIn verifies the credentials and issues a token. An unknown username and
// a wrong password are reported as distinct errors.
func (s *AuthService) SignIn(ctx context.Context, username, password string) (*SignInResult, error) {
	if username == "" {
		return nil, ErrInvalidUsername
	}
	if password == "" {
		return nil, ErrMissingPassword
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		s.logger.Error().Err(err).Msg("failed to load user for sign-in")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	if !crypto.CheckPassword(user.PasswordHash, password) {
		return nil, domain.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to issue token")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	return &SignInResult{Token: token, Role: user.Role}, nil
}

// createUser hashes the password and persists the account, mapping duplicate
// usernames to domain.ErrUsernameTaken. The existence pre-check skips the
// hashing cost for taken names; the unique constraint on the insert still
// catches a name grabbed in between.
func (s *AuthService) createUser(ctx context.Context, username, password string, role domain.Role) (*domain.User, error) {
	taken, err := s.users.ExistsByUsername(ctx, username)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to check username availability")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if taken {
		return nil, domain.ErrUsernameTaken
	}

	hash, err := crypto.HashPassword(password)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to hash password")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	user := domain.NewUser(username, hash, role)
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrUsernameTaken) {
			return nil, domain.ErrUsernameTaken
		}
		s.logger.Error().Err(err).Msg("failed to create user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return user, nil
}

func validateSignUp(input SignUpInput) (domain.Role, error) {
	if len(input.Username) < 3 || len(input.Username) > 64 {
		return "", ErrInvalidUsername
	}
	if len(input.Password) < 8 {
		return "", ErrInvalidPassword
	}
	role, err := domain.ParseRole(input.Role)
	if err != nil {
		return "", err
	}
	return role, nil
}
