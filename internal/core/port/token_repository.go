package port

import (
	"context"

	"github.com/Msa-soilihi-Hamza/calanques-api/internal/core/domain"
)

// TokenRepository persists single-use verification tokens.
type TokenRepository interface {
	CreateVerification(ctx context.Context, token domain.VerificationToken) error
	GetVerificationByHash(ctx context.Context, hash string) (*domain.VerificationToken, error)
	ConsumeVerification(ctx context.Context, id string) error
}
