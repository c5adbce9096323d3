package handlers

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Msa-soilihi-Hamza/calanques-api/internal/infra/logger"
)

// NotificationDispatcher delivers verification credentials to account owners.
// Email delivery itself lives outside this service; implementations hand the
// payload to whatever channel is configured.
type NotificationDispatcher interface {
	SendEmailVerification(ctx context.Context, payload VerificationNotification) error
}

// VerificationNotification captures data needed to deliver an email verification token.
type VerificationNotification struct {
	Email     string
	FirstName string
	DevToken  string
	Expires   time.Time
}

type noopDispatcher struct{}

func (noopDispatcher) SendEmailVerification(context.Context, VerificationNotification) error {
	return nil
}

// LoggingNotificationDispatcher records credential dispatch events for observability without delivering them.
type LoggingNotificationDispatcher struct {
	logger *zap.Logger
}

// NewLoggingNotificationDispatcher constructs a notification dispatcher backed by structured logging.
func NewLoggingNotificationDispatcher(log *zap.Logger) NotificationDispatcher {
	if log == nil {
		return noopDispatcher{}
	}
	return &LoggingNotificationDispatcher{logger: log}
}

func (d *LoggingNotificationDispatcher) SendEmailVerification(_ context.Context, payload VerificationNotification) error {
	if d == nil || d.logger == nil {
		return nil
	}

	fields := []zap.Field{
		zap.String("email", logger.MaskEmail(payload.Email)),
		zap.Time("expires_at", payload.Expires),
	}

	if payload.DevToken != "" {
		fields = append(fields, zap.String("dev_token", payload.DevToken))
	}

	d.logger.Info("dispatch email verification", fields...)
	return nil
}
