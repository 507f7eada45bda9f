package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/authapi/auth-service/internal/core/domain"
	"github.com/authapi/auth-service/internal/core/ports"
)

// dummyPassword is hashed once and verified against whenever a login names an
// unknown identifier, so both failure paths pay for one bcrypt comparison.
// A failed attempt leaves the hash empty and the next login retries.
const dummyPassword = "timing-equalizer-not-a-credential"

// AuthService implements registration, login and self-service profile edits.
type AuthService struct {
	repo     ports.UserRepository
	hasher   ports.PasswordHasher
	tokens   ports.TokenIssuer
	tokenTTL time.Duration
	log      zerolog.Logger

	now   func() time.Time
	newID func() string

	dummyMu   sync.Mutex
	dummyHash string
}

func NewAuthService(
	repo ports.UserRepository,
	hasher ports.PasswordHasher,
	tokens ports.TokenIssuer,
	tokenTTL time.Duration,
	log zerolog.Logger,
) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &AuthService{
		repo:     repo,
		hasher:   hasher,
		tokens:   tokens,
		tokenTTL: tokenTTL,
		log:      log,
		now:      time.Now,
		newID:    func() string { return ulid.Make().String() },
	}
}

// Register creates a regular user. The role is always domain.RoleUser.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	return s.createUser(ctx, in, domain.RoleUser)
}

// CreateAdmin provisions an administrator. It is reachable only from
// operator tooling, never from an HTTP route.
func (s *AuthService) CreateAdmin(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	return s.createUser(ctx, in, domain.RoleAdmin)
}

func (s *AuthService) createUser(ctx context.Context, in ports.RegisterInput, role domain.Role) (*domain.User, error) {
	if err := validateRegistration(in); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		s.log.Error().Err(err).Str("identifier", in.Identifier).Msg("failed to hash password")
		return nil, internal("register", err)
	}

	now := s.now().UTC()
	user := &domain.User{
		ID:           s.newID(),
		Identifier:   in.Identifier,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			return nil, domain.ErrUserExists
		}
		s.log.Error().Err(err).Str("identifier", in.Identifier).Msg("failed to persist user")
		return nil, internal("register", err)
	}

	s.log.Info().Str("identifier", created.Identifier).Str("role", created.Role.String()).Msg("user registered")
	return created, nil
}

// Login verifies credentials and returns a signed token. Unknown identifiers
// and wrong passwords produce the same error after the same amount of work.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (string, error) {
	user, err := s.repo.FindByIdentifier(ctx, identifier)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrUserNotFound):
		user = nil
	default:
		s.log.Error().Err(err).Msg("failed to look up user for login")
		return "", internal("login", err)
	}

	target := s.dummy(ctx)
	if user != nil {
		target = user.PasswordHash
	}

	if !s.hasher.Verify(ctx, password, target) || user == nil {
		s.log.Debug().Bool("known_identifier", user != nil).Msg("login rejected")
		return "", domain.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(domain.Claims{
		Subject:   user.Identifier,
		Role:      user.Role,
		ExpiresAt: s.now().Add(s.tokenTTL),
	})
	if err != nil {
		s.log.Error().Err(err).Str("identifier", user.Identifier).Msg("failed to issue token")
		return "", internal("login", err)
	}
	return token, nil
}

// Profile re-reads the principal's user from storage.
func (s *AuthService) Profile(ctx context.Context, principal domain.Principal) (*domain.User, error) {
	if principal.Subject == "" {
		return nil, domain.ErrUnauthenticated
	}

	user, err := s.repo.FindByIdentifier(ctx, principal.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUnauthenticated
		}
		s.log.Error().Err(err).Str("identifier", principal.Subject).Msg("failed to load profile")
		return nil, internal("profile", err)
	}
	return user, nil
}

// UpdateProfile applies a partial update to the principal's own record. The
// target identity comes from the principal only.
func (s *AuthService) UpdateProfile(ctx context.Context, principal domain.Principal, in ports.ProfileUpdateInput) (*domain.User, error) {
	if err := validateProfileUpdate(in); err != nil {
		return nil, err
	}

	current, err := s.Profile(ctx, principal)
	if err != nil {
		return nil, err
	}

	patch := domain.UserPatch{FirstName: in.FirstName, LastName: in.LastName}
	if in.Password != nil {
		hash, err := s.hasher.Hash(ctx, *in.Password)
		if err != nil {
			s.log.Error().Err(err).Str("identifier", principal.Subject).Msg("failed to hash password")
			return nil, internal("update profile", err)
		}
		patch.PasswordHash = &hash
	}
	if patch.IsEmpty() {
		return current, nil
	}

	updated, err := s.repo.Update(ctx, principal.Subject, patch)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUnauthenticated
		}
		s.log.Error().Err(err).Str("identifier", principal.Subject).Msg("failed to update profile")
		return nil, internal("update profile", err)
	}
	return updated, nil
}

// Warm computes the hash unknown-identifier logins are verified against.
// Startup calls it so a broken hasher fails the process instead of the first
// login.
func (s *AuthService) Warm(ctx context.Context) error {
	s.dummyMu.Lock()
	defer s.dummyMu.Unlock()
	if s.dummyHash != "" {
		return nil
	}
	hash, err := s.hasher.Hash(context.WithoutCancel(ctx), dummyPassword)
	if err != nil {
		return fmt.Errorf("prepare dummy password hash: %w", err)
	}
	s.dummyHash = hash
	return nil
}

func (s *AuthService) dummy(ctx context.Context) string {
	if err := s.Warm(ctx); err != nil {
		s.log.Warn().Err(err).Msg("failed to prepare dummy password hash")
	}
	s.dummyMu.Lock()
	defer s.dummyMu.Unlock()
	return s.dummyHash
}

// internal tags err as an internal failure while keeping the cause for logs.
func internal(op string, err error) error {
	if errors.Is(err, domain.ErrInternal) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrInternal, err)
}
