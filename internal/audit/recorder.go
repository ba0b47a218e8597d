package audit

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Recorder writes entries into audit_logs. Writes are append-only; nothing in
// the application updates an existing row.
type Recorder struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewRecorder returns a Recorder.
func NewRecorder(pool *pgxpool.Pool, logger *slog.Logger) *Recorder {
	return &Recorder{pool: pool, logger: logger}
}

// Record persists the entry.
func (r *Recorder) Record(ctx context.Context, entry Entry) error {
	if r == nil {
		return errors.New("audit recorder not initialised")
	}
	if entry.Action == "" || entry.TargetType == "" {
		return errors.New("audit entry requires action and target type")
	}
	metaJSON, err := json.Marshal(entry.Meta)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO audit_logs (actor_id, action, target_type, target_id, meta, created_at)
		 VALUES ($1, $2, $3, $4, $5, NOW())`,
		entry.ActorID, entry.Action, entry.TargetType, entry.TargetID, metaJSON,
	)
	return err
}

// MustRecord records and only logs failures. Audit emission never masks the
// outcome of the operation it describes. A nil recorder drops entries.
func (r *Recorder) MustRecord(ctx context.Context, entry Entry) {
	if r == nil {
		return
	}
	if err := r.Record(ctx, entry); err != nil && r.logger != nil {
		r.logger.Error("record audit entry", slog.String("action", entry.Action), slog.Any("error", err))
	}
}
