package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/authapi/auth-service/internal/core/domain"
	"github.com/authapi/auth-service/internal/core/ports"
)

const defaultUserCacheTTL = 5 * time.Minute

// cacheClient is the subset of *redis.Client the cache needs.
type cacheClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// CachedUserRepository is a read-through cache in front of another
// repository. Key format: user:<identifier>
//
// Reads fill the cache with SET NX so a lookup that raced an Update never
// overwrites the record Update wrote. Redis failures on reads are skipped and
// the underlying repository answers.
type CachedUserRepository struct {
	next  ports.UserRepository
	cache cacheClient
	ttl   time.Duration
	log   zerolog.Logger
}

func NewCachedUserRepository(next ports.UserRepository, client cacheClient, ttl time.Duration, log zerolog.Logger) *CachedUserRepository {
	if ttl <= 0 {
		ttl = defaultUserCacheTTL
	}
	return &CachedUserRepository{next: next, cache: client, ttl: ttl, log: log}
}

type cachedUser struct {
	ID           string    `json:"id"`
	Identifier   string    `json:"identifier"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	PasswordHash string    `json:"password_hash"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (r *CachedUserRepository) FindByIdentifier(ctx context.Context, identifier string) (*domain.User, error) {
	raw, err := r.cache.Get(ctx, r.key(identifier)).Bytes()
	switch {
	case err == nil:
		user, decodeErr := decodeUser(raw)
		if decodeErr == nil {
			return user, nil
		}
		r.log.Warn().Err(decodeErr).Str("identifier", identifier).Msg("discarding undecodable cached user")
	case errors.Is(err, redis.Nil):
	default:
		r.log.Warn().Err(err).Str("identifier", identifier).Msg("user cache read failed, using store")
	}

	user, err := r.next.FindByIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}
	encoded, err := encodeUser(user)
	if err != nil {
		return user, nil
	}
	if err := r.cache.SetNX(ctx, r.key(user.Identifier), encoded, r.ttl).Err(); err != nil {
		r.log.Warn().Err(err).Str("identifier", user.Identifier).Msg("user cache write failed")
	}
	return user, nil
}

func (r *CachedUserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	return r.next.Create(ctx, user)
}

// Update writes through to the store and then replaces the cached copy with
// the stored result. When neither the replace nor a delete reaches Redis and
// the patch changes the password, Update fails: the cache would otherwise keep
// accepting the old password until the entry expires.
func (r *CachedUserRepository) Update(ctx context.Context, identifier string, patch domain.UserPatch) (*domain.User, error) {
	user, err := r.next.Update(ctx, identifier, patch)
	if err != nil {
		_ = r.invalidate(ctx, identifier)
		return nil, err
	}

	raw, encErr := encodeUser(user)
	if encErr == nil {
		encErr = r.cache.Set(ctx, r.key(identifier), raw, r.ttl).Err()
	}
	if encErr == nil {
		return user, nil
	}
	r.log.Warn().Err(encErr).Str("identifier", identifier).Msg("user cache refresh failed")

	if delErr := r.invalidate(ctx, identifier); delErr != nil && patch.PasswordHash != nil {
		return nil, fmt.Errorf("invalidate cached credentials for %s: %w", identifier, delErr)
	}
	return user, nil
}

func (r *CachedUserRepository) invalidate(ctx context.Context, identifier string) error {
	err := r.cache.Del(ctx, r.key(identifier)).Err()
	if err != nil {
		r.log.Warn().Err(err).Str("identifier", identifier).Msg("user cache invalidation failed")
	}
	return err
}

func (r *CachedUserRepository) key(identifier string) string {
	return fmt.Sprintf("user:%s", identifier)
}

func encodeUser(user *domain.User) ([]byte, error) {
	return json.Marshal(cachedUser{
		ID:           user.ID,
		Identifier:   user.Identifier,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		PasswordHash: user.PasswordHash,
		Role:         user.Role.String(),
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	})
}

func decodeUser(raw []byte) (*domain.User, error) {
	var cu cachedUser
	if err := json.Unmarshal(raw, &cu); err != nil {
		return nil, err
	}
	role, err := domain.ParseRole(cu.Role)
	if err != nil {
		return nil, err
	}
	return &domain.User{
		ID:           cu.ID,
		Identifier:   cu.Identifier,
		FirstName:    cu.FirstName,
		LastName:     cu.LastName,
		PasswordHash: cu.PasswordHash,
		Role:         role,
		CreatedAt:    cu.CreatedAt,
		UpdatedAt:    cu.UpdatedAt,
	}, nil
}
