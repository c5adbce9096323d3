package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Msa-soilihi-Hamza/calanques-api/internal/core/domain"
	"github.com/Msa-soilihi-Hamza/calanques-api/internal/core/port"
	"github.com/Msa-soilihi-Hamza/calanques-api/internal/infra/logger"
	"github.com/Msa-soilihi-Hamza/calanques-api/internal/infra/security"
	"github.com/Msa-soilihi-Hamza/calanques-api/internal/repository"
)

var (
	// ErrEmailTaken indicates the email is already registered.
	ErrEmailTaken = errors.New("email already registered")
	// ErrWeakPassword indicates the password fails the registration policy.
	ErrWeakPassword = errors.New("password does not meet policy")
	// ErrInvalidVerificationToken indicates an unknown, expired, or consumed verification token.
	ErrInvalidVerificationToken = errors.New("invalid verification token")
	// ErrInvalidRegistration indicates a malformed registration payload.
	ErrInvalidRegistration = errors.New("invalid registration input")
)

const (
	verificationTokenBytes   = 32
	verificationPurposeEmail = "email_verification"
)

// RegisterInput carries the fields required to open an account.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// RegistrationResult bundles the created account and the raw verification
// token. The raw token is surfaced exactly once; only its hash is stored.
type RegistrationResult struct {
	User              domain.User
	VerificationToken string
}

// RegistrationService handles account creation and email confirmation.
type RegistrationService struct {
	users           port.UserRepository
	tokens          port.TokenRepository
	hasher          port.PasswordHasher
	policy          *security.PasswordValidator
	events          port.EventPublisher
	log             *zap.Logger
	verificationTTL time.Duration
	now             func() time.Time
}

// NewRegistrationService constructs a RegistrationService instance.
func NewRegistrationService(
	users port.UserRepository,
	tokens port.TokenRepository,
	hasher port.PasswordHasher,
	policy *security.PasswordValidator,
	events port.EventPublisher,
	log *zap.Logger,
	verificationTTL time.Duration,
) *RegistrationService {
	if verificationTTL <= 0 {
		verificationTTL = 24 * time.Hour
	}
	return &RegistrationService{
		users:           users,
		tokens:          tokens,
		hasher:          hasher,
		policy:          policy,
		events:          events,
		log:             log,
		verificationTTL: verificationTTL,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source. Intended for tests.
func (s *RegistrationService) WithClock(now func() time.Time) *RegistrationService {
	s.now = now
	return s
}

// Register creates a new account with the user role. The email is normalized
// before the uniqueness check so casing variants collide.
func (s *RegistrationService) Register(ctx context.Context, input RegisterInput) (*RegistrationResult, error) {
	email := domain.NormalizeEmail(input.Email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: a valid email address is required", ErrInvalidRegistration)
	}
	if strings.TrimSpace(input.FirstName) == "" || strings.TrimSpace(input.LastName) == "" {
		return nil, fmt.Errorf("%w: first and last name are required", ErrInvalidRegistration)
	}

	if err := s.policy.Validate(input.Password); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWeakPassword, err)
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lookup email: %w", err)
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	user := domain.User{
		Email:        email,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		PasswordHash: hash,
		Role:         domain.RoleUser,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		// The unique index is the authority: a concurrent registration can
		// slip past the lookup above.
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	rawToken, err := s.issueVerificationToken(ctx, created.ID)
	if err != nil {
		return nil, err
	}

	s.publishRegistered(ctx, created)

	return &RegistrationResult{
		User:              created.Sanitized(),
		VerificationToken: rawToken,
	}, nil
}

// VerifyEmail redeems a verification token and marks the account confirmed.
func (s *RegistrationService) VerifyEmail(ctx context.Context, rawToken string) error {
	if rawToken == "" {
		return ErrInvalidVerificationToken
	}

	token, err := s.tokens.GetVerificationByHash(ctx, security.HashToken(rawToken))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidVerificationToken
		}
		return fmt.Errorf("lookup verification token: %w", err)
	}

	now := s.now()
	if token.Purpose != verificationPurposeEmail || token.IsExpired(now) {
		return ErrInvalidVerificationToken
	}
	if !token.Consume(now) {
		return ErrInvalidVerificationToken
	}

	// The UPDATE's used_at guard re-checks the transition, so a concurrent
	// redemption of the same token still loses.
	if err := s.tokens.ConsumeVerification(ctx, token.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidVerificationToken
		}
		return fmt.Errorf("consume verification token: %w", err)
	}

	if err := s.users.MarkEmailVerified(ctx, token.UserID, now); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("mark email verified: %w", err)
	}

	s.publishEmailVerified(ctx, token.UserID, now)

	return nil
}

func (s *RegistrationService) issueVerificationToken(ctx context.Context, userID int64) (string, error) {
	raw, err := security.GenerateSecureToken(verificationTokenBytes)
	if err != nil {
		return "", fmt.Errorf("generate verification token: %w", err)
	}

	now := s.now()
	token := domain.VerificationToken{
		ID:        uuid.NewString(),
		UserID:    userID,
		TokenHash: security.HashToken(raw),
		Purpose:   verificationPurposeEmail,
		CreatedAt: now,
		ExpiresAt: now.Add(s.verificationTTL),
	}

	if err := s.tokens.CreateVerification(ctx, token); err != nil {
		return "", fmt.Errorf("store verification token: %w", err)
	}

	return raw, nil
}

func (s *RegistrationService) publishRegistered(ctx context.Context, user *domain.User) {
	if s.events == nil {
		return
	}

	event := domain.UserRegisteredEvent{
		EventID:      uuid.NewString(),
		UserID:       user.ID,
		Email:        user.Email,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		Role:         string(user.Role),
		RegisteredAt: user.CreatedAt,
	}

	if err := s.events.PublishUserRegistered(ctx, event); err != nil && s.log != nil {
		s.log.Warn("publish registration event",
			zap.Int64("user_id", user.ID),
			zap.String("email", logger.MaskEmail(user.Email)),
			zap.Error(err),
		)
	}
}

func (s *RegistrationService) publishEmailVerified(ctx context.Context, userID int64, at time.Time) {
	if s.events == nil {
		return
	}

	event := domain.EmailVerifiedEvent{
		EventID:    uuid.NewString(),
		UserID:     userID,
		VerifiedAt: at,
	}

	if err := s.events.PublishEmailVerified(ctx, event); err != nil && s.log != nil {
		s.log.Warn("publish email verified event",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
	}
}
