package port

import (
	"context"
	"time"

	"github.com/Msa-soilihi-Hamza/calanques-api/internal/core/domain"
)

// UserRepository exposes persistence behavior for users.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByRememberTokenHash(ctx context.Context, hash string) (*domain.User, error)
	UpdateActiveStatus(ctx context.Context, id int64, active bool) error
	SetRememberToken(ctx context.Context, id int64, tokenHash *string) error
	MarkEmailVerified(ctx context.Context, id int64, verifiedAt time.Time) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string, changedAt time.Time) error
	CountActiveAdmins(ctx context.Context) (int, error)
}
