package usecase

import (
	"context"
	"errors"
	"fmt"
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
	// ErrInvalidCredentials indicates the provided email or password are incorrect.
	// Unknown accounts and wrong passwords are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInactiveAccount indicates the credentials are correct but the account is deactivated.
	ErrInactiveAccount = errors.New("account is not active")
	// ErrEmailNotVerified indicates login requires a confirmed email address.
	ErrEmailNotVerified = errors.New("email address not verified")
	// ErrUnauthorized indicates a missing, malformed, expired, or mistyped credential.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden indicates an authenticated caller lacking the required role.
	ErrForbidden = errors.New("forbidden")
	// ErrUserNotFound indicates the referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")
)

const rememberTokenBytes = 32

// LoginInput carries credentials and request context for a login attempt.
type LoginInput struct {
	Email      string
	Password   string
	RememberMe bool
	IP         *string
	UserAgent  *string
}

// AuthResult bundles the artifacts of a successful authentication.
type AuthResult struct {
	User          domain.User
	AccessToken   string
	RefreshToken  string
	RememberToken string
	ExpiresIn     int64
}

// AuthService coordinates login, logout, token refresh, and guard checks.
type AuthService struct {
	users                port.UserRepository
	codec                *security.TokenCodec
	hasher               port.PasswordHasher
	events               port.EventPublisher
	log                  *zap.Logger
	requireVerifiedEmail bool
	now                  func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(
	users port.UserRepository,
	codec *security.TokenCodec,
	hasher port.PasswordHasher,
	events port.EventPublisher,
	log *zap.Logger,
	requireVerifiedEmail bool,
) *AuthService {
	return &AuthService{
		users:                users,
		codec:                codec,
		hasher:               hasher,
		events:               events,
		log:                  log,
		requireVerifiedEmail: requireVerifiedEmail,
		now:                  func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source. Intended for tests.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	return s
}

// Login validates credentials and issues access and refresh tokens. When
// RememberMe is set, a fresh remember token is generated, its hash stored on
// the user row, and the raw value returned exactly once.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	if input.Email == "" || input.Password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if !s.hasher.Verify(input.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, ErrInactiveAccount
	}

	if s.requireVerifiedEmail && !user.IsEmailVerified() {
		return nil, ErrEmailNotVerified
	}

	result, err := s.issueTokens(user)
	if err != nil {
		return nil, err
	}

	if input.RememberMe {
		raw, err := s.rotateRememberToken(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		result.RememberToken = raw
	}

	s.publishLogin(ctx, user, false, input.IP, input.UserAgent)

	return result, nil
}

// AttemptRememberLogin resolves a remember cookie value into a session.
// Unknown, cleared, or inactive accounts return (nil, nil) so callers fall
// back to the regular login flow without leaking token validity.
func (s *AuthService) AttemptRememberLogin(ctx context.Context, rawToken string) (*AuthResult, error) {
	if rawToken == "" {
		return nil, nil
	}

	user, err := s.users.GetByRememberTokenHash(ctx, security.HashToken(rawToken))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("lookup remember token: %w", err)
	}

	if !user.IsActive {
		return nil, nil
	}

	result, err := s.issueTokens(user)
	if err != nil {
		return nil, err
	}

	// Rotate on every use: a remember token is redeemable once.
	raw, err := s.rotateRememberToken(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	result.RememberToken = raw

	s.publishLogin(ctx, user, true, nil, nil)

	return result, nil
}

// Logout clears the stored remember token hash. Failures are swallowed:
// logout always succeeds from the caller's perspective.
func (s *AuthService) Logout(ctx context.Context, userID int64) {
	if err := s.users.SetRememberToken(ctx, userID, nil); err != nil && !errors.Is(err, repository.ErrNotFound) {
		logger.WithContext(ctx).Warn("clear remember token on logout",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
	}
}

// RefreshAccessToken exchanges a valid refresh token for a fresh token pair.
func (s *AuthService) RefreshAccessToken(ctx context.Context, refreshToken string) (*AuthResult, error) {
	claims, err := s.codec.DecodeExpecting(refreshToken, security.TokenTypeRefresh)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	id, err := claims.UserID()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if !user.IsActive {
		return nil, ErrInactiveAccount
	}

	return s.issueTokens(user)
}

// RequireAuthentication decodes an access token and resolves the account it
// names. Every token failure maps to ErrUnauthorized.
func (s *AuthService) RequireAuthentication(ctx context.Context, accessToken string) (*domain.User, error) {
	claims, err := s.codec.DecodeExpecting(accessToken, security.TokenTypeAccess)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	id, err := claims.UserID()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if !user.IsActive {
		return nil, ErrUnauthorized
	}

	return user, nil
}

// RequireRole authenticates the token and enforces an exact role match.
// There is no role hierarchy: an admin token does not satisfy a user check.
func (s *AuthService) RequireRole(ctx context.Context, accessToken string, role domain.Role) (*domain.User, error) {
	user, err := s.RequireAuthentication(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	if user.Role != role {
		return nil, ErrForbidden
	}

	return user, nil
}

func (s *AuthService) issueTokens(user *domain.User) (*AuthResult, error) {
	access, err := s.codec.IssueAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	refresh, err := s.codec.IssueRefreshToken(user)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	return &AuthResult{
		User:         user.Sanitized(),
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.codec.AccessTokenTTL().Seconds()),
	}, nil
}

func (s *AuthService) rotateRememberToken(ctx context.Context, userID int64) (string, error) {
	raw, err := security.GenerateSecureToken(rememberTokenBytes)
	if err != nil {
		return "", fmt.Errorf("generate remember token: %w", err)
	}

	hash := security.HashToken(raw)
	if err := s.users.SetRememberToken(ctx, userID, &hash); err != nil {
		return "", fmt.Errorf("store remember token: %w", err)
	}

	return raw, nil
}

func (s *AuthService) publishLogin(ctx context.Context, user *domain.User, remembered bool, ip, userAgent *string) {
	if s.events == nil {
		return
	}

	event := domain.UserLoggedInEvent{
		EventID:    uuid.NewString(),
		UserID:     user.ID,
		Email:      user.Email,
		Remembered: remembered,
		IP:         ip,
		UserAgent:  userAgent,
		LoggedInAt: s.now(),
	}

	if err := s.events.PublishUserLoggedIn(ctx, event); err != nil && s.log != nil {
		s.log.Warn("publish login event",
			zap.Int64("user_id", user.ID),
			zap.String("email", logger.MaskEmail(user.Email)),
			zap.Error(err),
		)
	}
}
