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
	"github.com/Msa-soilihi-Hamza/calanques-api/internal/infra/security"
	"github.com/Msa-soilihi-Hamza/calanques-api/internal/repository"
)

// ErrLastActiveAdmin indicates deactivation would leave the system without
// any active administrator.
var ErrLastActiveAdmin = errors.New("cannot deactivate the last active admin")

// UserService covers account administration beyond authentication.
type UserService struct {
	users  port.UserRepository
	hasher port.PasswordHasher
	policy *security.PasswordValidator
	events port.EventPublisher
	log    *zap.Logger
	now    func() time.Time
}

// NewUserService constructs a UserService instance.
func NewUserService(
	users port.UserRepository,
	hasher port.PasswordHasher,
	policy *security.PasswordValidator,
	events port.EventPublisher,
	log *zap.Logger,
) *UserService {
	return &UserService{
		users:  users,
		hasher: hasher,
		policy: policy,
		events: events,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source. Intended for tests.
func (s *UserService) WithClock(now func() time.Time) *UserService {
	s.now = now
	return s
}

// GetProfile returns the sanitized account for the given identifier.
func (s *UserService) GetProfile(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	sanitized := user.Sanitized()
	return &sanitized, nil
}

// SetActiveStatus toggles an account's active flag. Deactivating the last
// remaining active admin is refused so the system never locks itself out.
func (s *UserService) SetActiveStatus(ctx context.Context, actor *domain.User, targetID int64, active bool) error {
	target, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	if target.IsActive == active {
		return nil
	}

	if !active && target.IsAdmin() {
		count, err := s.users.CountActiveAdmins(ctx)
		if err != nil {
			return fmt.Errorf("count active admins: %w", err)
		}
		if count <= 1 {
			return ErrLastActiveAdmin
		}
	}

	if err := s.users.UpdateActiveStatus(ctx, targetID, active); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("update active status: %w", err)
	}

	if !active {
		// Deactivation also invalidates any outstanding remember token.
		if err := s.users.SetRememberToken(ctx, targetID, nil); err != nil && !errors.Is(err, repository.ErrNotFound) {
			s.log.Warn("clear remember token on deactivation",
				zap.Int64("user_id", targetID),
				zap.Error(err),
			)
		}
	}

	s.publishStatusChanged(ctx, actor, targetID, active)

	return nil
}

// ChangePassword verifies the current password and installs a new one.
func (s *UserService) ChangePassword(ctx context.Context, userID int64, currentPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	if !s.hasher.Verify(currentPassword, user.PasswordHash) {
		return ErrInvalidCredentials
	}

	if err := s.policy.Validate(newPassword); err != nil {
		return fmt.Errorf("%w: %w", ErrWeakPassword, err)
	}
	if err := security.RequireDifferentFrom(currentPassword).Validate(newPassword); err != nil {
		return fmt.Errorf("%w: %w", ErrWeakPassword, err)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	changedAt := s.now()
	if err := s.users.UpdatePassword(ctx, userID, hash, changedAt); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("update password: %w", err)
	}

	// A password change invalidates the remember token.
	if err := s.users.SetRememberToken(ctx, userID, nil); err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.log.Warn("clear remember token on password change",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
	}

	s.publishPasswordChanged(ctx, userID, changedAt)

	return nil
}

func (s *UserService) publishStatusChanged(ctx context.Context, actor *domain.User, targetID int64, active bool) {
	if s.events == nil {
		return
	}

	changedBy := ""
	if actor != nil {
		changedBy = fmt.Sprintf("%d", actor.ID)
	}

	event := domain.UserStatusChangedEvent{
		EventID:   uuid.NewString(),
		UserID:    targetID,
		Active:    active,
		ChangedBy: changedBy,
		ChangedAt: s.now(),
	}

	if err := s.events.PublishUserStatusChanged(ctx, event); err != nil && s.log != nil {
		s.log.Warn("publish status changed event",
			zap.Int64("user_id", targetID),
			zap.Error(err),
		)
	}
}

func (s *UserService) publishPasswordChanged(ctx context.Context, userID int64, at time.Time) {
	if s.events == nil {
		return
	}

	event := domain.PasswordChangedEvent{
		EventID:   uuid.NewString(),
		UserID:    userID,
		ChangedAt: at,
	}

	if err := s.events.PublishPasswordChanged(ctx, event); err != nil && s.log != nil {
		s.log.Warn("publish password changed event",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
	}
}
