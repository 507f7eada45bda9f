package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/authapi/auth-service/internal/core/domain"
)

const userColumns = `id, identifier, first_name, last_name, password_hash, role, created_at, updated_at`

// UserRepository implements ports.UserRepository on the users table.
// Identifier uniqueness comes from the users_identifier_unique constraint.
type UserRepository struct {
	db  DBTX
	now func() time.Time
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db, now: time.Now}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	_, err := r.db.Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		user.ID,
		user.Identifier,
		user.FirstName,
		user.LastName,
		user.PasswordHash,
		user.Role.String(),
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, domain.ErrUserExists
		}
		return nil, oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			With("identifier", user.Identifier).
			Wrap(err)
	}

	created := *user
	return &created, nil
}

func (r *UserRepository) FindByIdentifier(ctx context.Context, identifier string) (*domain.User, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE identifier = $1
	`, identifier)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("identifier", identifier).
			Wrap(domain.ErrUserNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_FIND_FAILED").
			With("operation", "find user by identifier").
			With("identifier", identifier).
			Wrap(err)
	}
	return user, nil
}

// Update coalesces the patch onto the stored row in a single statement.
func (r *UserRepository) Update(ctx context.Context, identifier string, patch domain.UserPatch) (*domain.User, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE users
		SET first_name    = COALESCE($2, first_name),
		    last_name     = COALESCE($3, last_name),
		    password_hash = COALESCE($4, password_hash),
		    updated_at    = $5
		WHERE identifier = $1
		RETURNING `+userColumns,
		identifier,
		patch.FirstName,
		patch.LastName,
		patch.PasswordHash,
		r.now().UTC(),
	)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("identifier", identifier).
			Wrap(domain.ErrUserNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_UPDATE_FAILED").
			With("operation", "update user").
			With("identifier", identifier).
			Wrap(err)
	}
	return user, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		u    domain.User
		role string
	)
	if err := row.Scan(
		&u.ID,
		&u.Identifier,
		&u.FirstName,
		&u.LastName,
		&u.PasswordHash,
		&role,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		return nil, err
	}

	parsed, err := domain.ParseRole(role)
	if err != nil {
		return nil, oops.Code("USER_DECODE_FAILED").With("id", u.ID).Wrap(err)
	}
	u.Role = parsed
	return &u, nil
}
