package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Msa-soilihi-Hamza/calanques-api/internal/core/domain"
	"github.com/Msa-soilihi-Hamza/calanques-api/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for development environments.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType string, userID int64, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("stub event published",
		zap.String("event_type", eventType),
		zap.Int64("user_id", userID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishUserRegistered logs parc.user.registered events.
func (p *StubPublisher) PublishUserRegistered(_ context.Context, event domain.UserRegisteredEvent) error {
	payload := map[string]any{
		"email":         event.Email,
		"first_name":    event.FirstName,
		"last_name":     event.LastName,
		"role":          event.Role,
		"registered_at": event.RegisteredAt,
	}
	p.logEvent("user.registered", event.UserID, event.RegisteredAt, payload)
	return nil
}

// PublishUserLoggedIn logs parc.user.logged_in events.
func (p *StubPublisher) PublishUserLoggedIn(_ context.Context, event domain.UserLoggedInEvent) error {
	payload := map[string]any{
		"email":        event.Email,
		"remembered":   event.Remembered,
		"ip_address":   event.IP,
		"user_agent":   event.UserAgent,
		"logged_in_at": event.LoggedInAt,
	}
	p.logEvent("user.logged_in", event.UserID, event.LoggedInAt, payload)
	return nil
}

// PublishEmailVerified logs parc.user.email_verified events.
func (p *StubPublisher) PublishEmailVerified(_ context.Context, event domain.EmailVerifiedEvent) error {
	payload := map[string]any{
		"email":       event.Email,
		"verified_at": event.VerifiedAt,
	}
	p.logEvent("user.email_verified", event.UserID, event.VerifiedAt, payload)
	return nil
}

// PublishUserStatusChanged logs parc.user.status_changed events.
func (p *StubPublisher) PublishUserStatusChanged(_ context.Context, event domain.UserStatusChangedEvent) error {
	payload := map[string]any{
		"active":     event.Active,
		"changed_by": event.ChangedBy,
		"changed_at": event.ChangedAt,
		"reason":     event.Reason,
	}
	p.logEvent("user.status_changed", event.UserID, event.ChangedAt, payload)
	return nil
}

// PublishPasswordChanged logs parc.user.password_changed events.
func (p *StubPublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	payload := map[string]any{
		"changed_at": event.ChangedAt,
	}
	p.logEvent("user.password_changed", event.UserID, event.ChangedAt, payload)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
