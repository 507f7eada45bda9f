package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/authapi/auth-service/internal/core/domain"
	"github.com/authapi/auth-service/internal/core/ports"
	"github.com/authapi/auth-service/internal/core/security"
)

type stubUserRepo struct {
	mu        sync.Mutex
	users     map[string]*domain.User
	findErr   error
	createErr error
	updateErr error
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	if _, exists := r.users[user.Identifier]; exists {
		return nil, domain.ErrUserExists
	}
	r.users[user.Identifier] = cloneUser(user)
	return cloneUser(user), nil
}

func (r *stubUserRepo) FindByIdentifier(_ context.Context, identifier string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	u, ok := r.users[identifier]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) Update(_ context.Context, identifier string, patch domain.UserPatch) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return nil, r.updateErr
	}
	u, ok := r.users[identifier]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	patch.Apply(u)
	return cloneUser(u), nil
}

// countingHasher records which hashes Verify was asked to check.
type countingHasher struct {
	ports.PasswordHasher
	mu       sync.Mutex
	verified []string
}

func (h *countingHasher) Verify(ctx context.Context, plaintext, encoded string) bool {
	h.mu.Lock()
	h.verified = append(h.verified, encoded)
	h.mu.Unlock()
	return h.PasswordHasher.Verify(ctx, plaintext, encoded)
}

type failingHasher struct{}

func (failingHasher) Hash(context.Context, string) (string, error) { return "", domain.ErrHashing }
func (failingHasher) Verify(context.Context, string, string) bool  { return false }

// flakyHasher fails Hash until healed and records what Verify was given.
type flakyHasher struct {
	ports.PasswordHasher
	mu       sync.Mutex
	broken   bool
	verified []string
}

func (h *flakyHasher) Hash(ctx context.Context, plaintext string) (string, error) {
	h.mu.Lock()
	broken := h.broken
	h.mu.Unlock()
	if broken {
		return "", domain.ErrHashing
	}
	return h.PasswordHasher.Hash(ctx, plaintext)
}

func (h *flakyHasher) Verify(ctx context.Context, plaintext, encoded string) bool {
	h.mu.Lock()
	h.verified = append(h.verified, encoded)
	h.mu.Unlock()
	return h.PasswordHasher.Verify(ctx, plaintext, encoded)
}

func (h *flakyHasher) heal() {
	h.mu.Lock()
	h.broken = false
	h.mu.Unlock()
}

func newTestService(t *testing.T, repo ports.UserRepository) (*AuthService, *security.TokenCodec) {
	t.Helper()
	hasher, err := security.NewBcryptHasher(bcrypt.MinCost, "pepper", zerolog.Nop())
	if err != nil {
		t.Fatalf("hasher: %v", err)
	}
	codec, err := security.NewTokenCodec("secret")
	if err != nil {
		t.Fatalf("codec: %v", err)
	}
	return NewAuthService(repo, hasher, codec, time.Hour, zerolog.Nop()), codec
}

func TestAuthService_Register_Success(t *testing.T) {
	repo := newStubUserRepo()
	svc, _ := newTestService(t, repo)

	user, err := svc.Register(context.Background(), ports.RegisterInput{
		Identifier: "alice@example.com",
		Password:   "pass123",
		FirstName:  "Alice",
		LastName:   "Liddell",
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if user.PasswordHash == "" || user.PasswordHash == "pass123" {
		t.Fatalf("expected password to be hashed, got %q", user.PasswordHash)
	}
	if !svc.hasher.Verify(context.Background(), "pass123", user.PasswordHash) {
		t.Fatalf("stored hash does not match password")
	}
	if user.Role != domain.RoleUser {
		t.Fatalf("unexpected role: %s", user.Role)
	}
	if user.ID == "" || user.CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamps, got %+v", user)
	}
}

func TestAuthService_Register_NamesOptional(t *testing.T) {
	svc, _ := newTestService(t, newStubUserRepo())
	if _, err := svc.Register(context.Background(), ports.RegisterInput{Identifier: "a@b.com", Password: "secret1"}); err != nil {
		t.Fatalf("expected registration without names to succeed, got %v", err)
	}
}

func TestAuthService_Register_Validation(t *testing.T) {
	svc, _ := newTestService(t, newStubUserRepo())
	long := make([]byte, maxPasswordBytes+1)
	for i := range long {
		long[i] = 'a'
	}

	cases := []struct {
		name   string
		in     ports.RegisterInput
		reason string
	}{
		{"missing identifier", ports.RegisterInput{Password: "pw"}, domain.ReasonMissingField},
		{"missing password", ports.RegisterInput{Identifier: "bob@example.com"}, domain.ReasonMissingField},
		{"bad email", ports.RegisterInput{Identifier: "bob@", Password: "pw"}, domain.ReasonBadFormat},
		{"username with spaces", ports.RegisterInput{Identifier: "bob smith", Password: "pw"}, domain.ReasonBadFormat},
		{"short first name", ports.RegisterInput{Identifier: "bob", Password: "pw", FirstName: "B"}, domain.ReasonNameTooShort},
		{"digits only last name", ports.RegisterInput{Identifier: "bob", Password: "pw", LastName: "1234"}, domain.ReasonNameTooShort},
		{"password too long", ports.RegisterInput{Identifier: "bob", Password: string(long)}, domain.ReasonPasswordTooLong},
		{"confirm mismatch", ports.RegisterInput{Identifier: "bob", Password: "pw", ConfirmPassword: "px"}, domain.ReasonPasswordMismatch},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tc.in)
			var ve *domain.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Reason != tc.reason {
				t.Fatalf("expected reason %q, got %q", tc.reason, ve.Reason)
			}
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected error to match ErrValidation")
			}
		})
	}
}

func TestAuthService_Register_AcceptsUsername(t *testing.T) {
	svc, _ := newTestService(t, newStubUserRepo())
	if _, err := svc.Register(context.Background(), ports.RegisterInput{Identifier: "admin", Password: "password", ConfirmPassword: "password"}); err != nil {
		t.Fatalf("expected username registration to succeed, got %v", err)
	}
}

func TestAuthService_Register_Duplicate(t *testing.T) {
	repo := newStubUserRepo()
	svc, _ := newTestService(t, repo)

	first, err := svc.Register(context.Background(), ports.RegisterInput{Identifier: "bob@example.com", Password: "pass", FirstName: "Bob"})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, err := svc.Register(context.Background(), ports.RegisterInput{Identifier: "bob@example.com", Password: "pass2", FirstName: "Robert"}); err != domain.ErrUserExists {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}

	stored, _ := repo.FindByIdentifier(context.Background(), "bob@example.com")
	if stored.FirstName != "Bob" || stored.PasswordHash != first.PasswordHash {
		t.Fatalf("first user was modified: %+v", stored)
	}
}

func TestAuthService_Register_InternalErrors(t *testing.T) {
	repo := newStubUserRepo()
	repo.createErr = errors.New("connection reset")
	svc, _ := newTestService(t, repo)

	_, err := svc.Register(context.Background(), ports.RegisterInput{Identifier: "bob", Password: "pw"})
	if !errors.Is(err, domain.ErrInternal) {
		t.Fatalf("expected ErrInternal, got %v", err)
	}

	codec, _ := security.NewTokenCodec("secret")
	svc = NewAuthService(newStubUserRepo(), failingHasher{}, codec, time.Hour, zerolog.Nop())
	_, err = svc.Register(context.Background(), ports.RegisterInput{Identifier: "bob", Password: "pw"})
	if !errors.Is(err, domain.ErrInternal) || !errors.Is(err, domain.ErrHashing) {
		t.Fatalf("expected hashing failure to be internal, got %v", err)
	}
}

func TestAuthService_CreateAdmin(t *testing.T) {
	svc, _ := newTestService(t, newStubUserRepo())
	user, err := svc.CreateAdmin(context.Background(), ports.RegisterInput{Identifier: "root", Password: "toor"})
	if err != nil {
		t.Fatalf("CreateAdmin: %v", err)
	}
	if user.Role != domain.RoleAdmin {
		t.Fatalf("expected admin role, got %s", user.Role)
	}
}

func TestAuthService_Login_Success(t *testing.T) {
	repo := newStubUserRepo()
	svc, codec := newTestService(t, repo)
	fixed := time.Now()
	svc.now = func() time.Time { return fixed }

	if _, err := svc.Register(context.Background(), ports.RegisterInput{Identifier: "carol@example.com", Password: "s3cret"}); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	token, err := svc.Login(context.Background(), "carol@example.com", "s3cret")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	claims, err := codec.Validate(token)
	if err != nil {
		t.Fatalf("token invalid: %v", err)
	}
	if claims.Subject != "carol@example.com" || claims.Role != domain.RoleUser {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if want := fixed.Add(time.Hour).Truncate(time.Second); !claims.ExpiresAt.Equal(want) {
		t.Fatalf("expected exp %v, got %v", want, claims.ExpiresAt)
	}
}

func TestAuthService_Login_FailuresAreIndistinguishable(t *testing.T) {
	repo := newStubUserRepo()
	svc, _ := newTestService(t, repo)
	counting := &countingHasher{PasswordHasher: svc.hasher}
	svc.hasher = counting

	if _, err := svc.Register(context.Background(), ports.RegisterInput{Identifier: "dave@example.com", Password: "goodpass"}); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	_, wrongPass := svc.Login(context.Background(), "dave@example.com", "badpass")
	_, unknown := svc.Login(context.Background(), "ghost@example.com", "badpass")
	_, empty := svc.Login(context.Background(), "", "")

	for _, err := range []error{wrongPass, unknown, empty} {
		if err != domain.ErrInvalidCredentials {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	}
	if len(counting.verified) != 3 {
		t.Fatalf("expected a hash verification on every attempt, got %d", len(counting.verified))
	}
	if counting.verified[1] == "" || counting.verified[1] != counting.verified[2] {
		t.Fatalf("unknown identifiers should be verified against the dummy hash")
	}
}

func TestAuthService_Warm_RetriesAfterFailure(t *testing.T) {
	svc, _ := newTestService(t, newStubUserRepo())
	flaky := &flakyHasher{PasswordHasher: svc.hasher, broken: true}
	svc.hasher = flaky

	if err := svc.Warm(context.Background()); !errors.Is(err, domain.ErrHashing) {
		t.Fatalf("expected ErrHashing from Warm, got %v", err)
	}

	flaky.heal()
	if _, err := svc.Login(context.Background(), "ghost@example.com", "pw"); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if len(flaky.verified) != 1 || flaky.verified[0] == "" {
		t.Fatalf("unknown identifier should be verified against a real dummy hash, got %q", flaky.verified)
	}
	if err := svc.Warm(context.Background()); err != nil {
		t.Fatalf("Warm after recovery: %v", err)
	}
}

func TestAuthService_Login_RepositoryFailure(t *testing.T) {
	repo := newStubUserRepo()
	repo.findErr = errors.New("timeout")
	svc, _ := newTestService(t, repo)

	if _, err := svc.Login(context.Background(), "x@example.com", "pw"); !errors.Is(err, domain.ErrInternal) {
		t.Fatalf("expected ErrInternal, got %v", err)
	}
}

func TestAuthService_UpdateProfile(t *testing.T) {
	repo := newStubUserRepo()
	svc, _ := newTestService(t, repo)
	ctx := context.Background()

	if _, err := svc.Register(ctx, ports.RegisterInput{Identifier: "erin@example.com", Password: "oldpass", FirstName: "Erin", LastName: "Smith"}); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	principal := domain.Principal{Subject: "erin@example.com", Role: domain.RoleUser}

	last := "Jones"
	updated, err := svc.UpdateProfile(ctx, principal, ports.ProfileUpdateInput{LastName: &last})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if updated.FirstName != "Erin" || updated.LastName != "Jones" {
		t.Fatalf("expected coalescing update, got %+v", updated)
	}

	newPass := "newpass"
	if _, err := svc.UpdateProfile(ctx, principal, ports.ProfileUpdateInput{Password: &newPass}); err != nil {
		t.Fatalf("password update: %v", err)
	}
	if _, err := svc.Login(ctx, "erin@example.com", "oldpass"); err != domain.ErrInvalidCredentials {
		t.Fatalf("old password should no longer work, got %v", err)
	}
	if _, err := svc.Login(ctx, "erin@example.com", "newpass"); err != nil {
		t.Fatalf("new password should work, got %v", err)
	}
}

func TestAuthService_UpdateProfile_Validation(t *testing.T) {
	repo := newStubUserRepo()
	svc, _ := newTestService(t, repo)
	principal := domain.Principal{Subject: "frank", Role: domain.RoleUser}
	if _, err := svc.Register(context.Background(), ports.RegisterInput{Identifier: "frank", Password: "pw"}); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	short, empty := "F", ""
	if _, err := svc.UpdateProfile(context.Background(), principal, ports.ProfileUpdateInput{FirstName: &short}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for short name, got %v", err)
	}
	if _, err := svc.UpdateProfile(context.Background(), principal, ports.ProfileUpdateInput{Password: &empty}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for empty password, got %v", err)
	}
}

func TestAuthService_UpdateProfile_UnknownPrincipal(t *testing.T) {
	svc, _ := newTestService(t, newStubUserRepo())
	name := "Ghost"
	_, err := svc.UpdateProfile(context.Background(), domain.Principal{Subject: "ghost", Role: domain.RoleUser}, ports.ProfileUpdateInput{FirstName: &name})
	if err != domain.ErrUnauthenticated {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestAuthService_UpdateProfile_PersistenceFailure(t *testing.T) {
	repo := newStubUserRepo()
	svc, _ := newTestService(t, repo)
	if _, err := svc.Register(context.Background(), ports.RegisterInput{Identifier: "gina", Password: "pw"}); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	repo.updateErr = errors.New("disk full")

	name := "Gina"
	_, err := svc.UpdateProfile(context.Background(), domain.Principal{Subject: "gina", Role: domain.RoleUser}, ports.ProfileUpdateInput{FirstName: &name})
	if !errors.Is(err, domain.ErrInternal) {
		t.Fatalf("expected ErrInternal, got %v", err)
	}
}
