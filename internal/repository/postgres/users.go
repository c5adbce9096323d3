package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Msa-soilihi-Hamza/calanques-api/internal/core/domain"
	"github.com/Msa-soilihi-Hamza/calanques-api/internal/core/port"
	"github.com/Msa-soilihi-Hamza/calanques-api/internal/repository"
)

const usersTable = "parc.users"

var userColumns = []string{
	"id",
	"email",
	"first_name",
	"last_name",
	"password_hash",
	"role",
	"is_active",
	"email_verified_at",
	"remember_token_hash",
	"created_at",
	"updated_at",
}

// UserRepository implements port.UserRepository using PostgreSQL.
type UserRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewUserRepository wires a PostgreSQL-backed user repository.
func NewUserRepository(exec pgExecutor) *UserRepository {
	return &UserRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a new user row and returns the stored record.
// A unique violation on the email column maps to repository.ErrDuplicate.
func (r *UserRepository) Create(ctx context.Context, user domain.User) (*domain.User, error) {
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = now
	}

	stmt, args, err := r.builder.Insert(usersTable).
		Columns(
			"email",
			"first_name",
			"last_name",
			"password_hash",
			"role",
			"is_active",
			"email_verified_at",
			"remember_token_hash",
			"created_at",
			"updated_at",
		).
		Values(
			user.Email,
			user.FirstName,
			user.LastName,
			user.PasswordHash,
			string(user.Role),
			user.IsActive,
			user.EmailVerifiedAt,
			user.RememberTokenHash,
			user.CreatedAt,
			user.UpdatedAt,
		).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert user sql: %w", err)
	}

	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&user.ID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, repository.ErrDuplicate
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	return &user, nil
}

// GetByID retrieves a user by identifier.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id}, "user by id")
}

// GetByEmail retrieves a user by its normalized email address.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, squirrel.Eq{"email": domain.NormalizeEmail(email)}, "user by email")
}

// GetByRememberTokenHash retrieves the user holding the given remember token hash.
func (r *UserRepository) GetByRememberTokenHash(ctx context.Context, hash string) (*domain.User, error) {
	return r.getOne(ctx, squirrel.Eq{"remember_token_hash": hash}, "user by remember token")
}

func (r *UserRepository) getOne(ctx context.Context, where squirrel.Eq, label string) (*domain.User, error) {
	stmt, args, err := r.builder.
		Select(userColumns...).
		From(usersTable).
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select %s sql: %w", label, err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)

	var (
		user domain.User
		role string
	)

	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&user.PasswordHash,
		&role,
		&user.IsActive,
		&user.EmailVerifiedAt,
		&user.RememberTokenHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan %s: %w", label, err)
	}

	user.Role = domain.Role(role)

	return &user, nil
}

// UpdateActiveStatus toggles the is_active flag.
func (r *UserRepository) UpdateActiveStatus(ctx context.Context, id int64, active bool) error {
	builder := r.builder.Update(usersTable).
		Set("is_active", active).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": id})

	return r.execUpdate(ctx, builder, "update active status")
}

// SetRememberToken stores (or clears, when nil) the remember token hash.
func (r *UserRepository) SetRememberToken(ctx context.Context, id int64, tokenHash *string) error {
	builder := r.builder.Update(usersTable).
		Set("remember_token_hash", tokenHash).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": id})

	return r.execUpdate(ctx, builder, "set remember token")
}

// MarkEmailVerified records the email confirmation timestamp.
func (r *UserRepository) MarkEmailVerified(ctx context.Context, id int64, verifiedAt time.Time) error {
	builder := r.builder.Update(usersTable).
		Set("email_verified_at", verifiedAt.UTC()).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": id})

	return r.execUpdate(ctx, builder, "mark email verified")
}

// UpdatePassword replaces the stored password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string, changedAt time.Time) error {
	builder := r.builder.Update(usersTable).
		Set("password_hash", passwordHash).
		Set("updated_at", changedAt.UTC()).
		Where(squirrel.Eq{"id": id})

	return r.execUpdate(ctx, builder, "update password")
}

func (r *UserRepository) execUpdate(ctx context.Context, builder squirrel.UpdateBuilder, label string) error {
	stmt, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build %s sql: %w", label, err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", label, err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// CountActiveAdmins reports how many active administrator accounts remain.
func (r *UserRepository) CountActiveAdmins(ctx context.Context) (int, error) {
	stmt, args, err := r.builder.
		Select("COUNT(*)").
		From(usersTable).
		Where(squirrel.Eq{"role": string(domain.RoleAdmin), "is_active": true}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count active admins sql: %w", err)
	}

	var count int
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count active admins: %w", err)
	}

	return count, nil
}

var _ port.UserRepository = (*UserRepository)(nil)
