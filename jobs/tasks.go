package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/pressroom-cms/pressroom/internal/jobs"
	"github.com/pressroom-cms/pressroom/internal/mailer"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeInviteMail delivers an invitation email.
	TaskTypeInviteMail = "mail:invite"
	// TaskTypeAuditRetention sweeps expired audit entries.
	TaskTypeAuditRetention = "audit:retention"
)

// InviteMailPayload carries everything needed to send one invitation email.
// The raw token only ever exists here and in the recipient's inbox.
type InviteMailPayload struct {
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewInviteMailTask constructs an Asynq task for invite delivery.
func NewInviteMailTask(payload InviteMailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeInviteMail, data), nil
}

// NewAuditRetentionTask constructs the scheduled retention sweep task.
func NewAuditRetentionTask() *asynq.Task {
	return asynq.NewTask(TaskTypeAuditRetention, nil)
}

// AuditSweeper is the retention entry point of the audit service.
type AuditSweeper interface {
	RetentionSweep(ctx context.Context, retention time.Duration) (int64, error)
}

// NewInviteMailHandler builds the handler processing TaskTypeInviteMail.
func NewInviteMailHandler(m *mailer.Mailer, metrics *jobmetrics.Metrics, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track("invite_mail")
		var payload InviteMailPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			_ = tracker.End(err)
			return asynq.SkipRetry
		}
		err := m.SendInvite(ctx, payload.Email, payload.Name, payload.Token, payload.ExpiresAt)
		if err != nil && logger != nil {
			logger.Warn("send invite mail", slog.String("email", payload.Email), slog.Any("error", err))
		}
		return tracker.End(err)
	}
}

// NewAuditRetentionHandler builds the handler processing TaskTypeAuditRetention.
func NewAuditRetentionHandler(sweeper AuditSweeper, retention time.Duration, metrics *jobmetrics.Metrics, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		tracker := metrics.Track("audit_retention")
		deleted, err := sweeper.RetentionSweep(ctx, retention)
		if err == nil && deleted > 0 && logger != nil {
			logger.Info("audit retention sweep", slog.Int64("deleted", deleted))
		}
		return tracker.End(err)
	}
}
