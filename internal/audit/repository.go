package audit

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines read and retention operations over audit_logs.
type Repository interface {
	List(ctx context.Context, filters Filters) ([]Entry, int, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// List queries audit entries with dynamic filters, newest first.
func (r *repository) List(ctx context.Context, filters Filters) ([]Entry, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	argCount := 0

	addArg := func(clause string, value any) {
		argCount++
		where += ` AND ` + clause + `$` + strconv.Itoa(argCount)
		args = append(args, value)
	}

	if filters.Action != "" {
		addArg(`action = `, filters.Action)
	}
	if filters.ActorID > 0 {
		addArg(`actor_id = `, filters.ActorID)
	}
	if filters.TargetType != "" {
		addArg(`target_type = `, filters.TargetType)
	}
	if !filters.From.IsZero() {
		addArg(`created_at >= `, filters.From)
	}
	if !filters.To.IsZero() {
		addArg(`created_at <= `, filters.To)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM audit_logs`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	perPage := filters.PerPage
	if perPage <= 0 {
		perPage = 20
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	query := `SELECT id, actor_id, action, target_type, target_id, meta, created_at FROM audit_logs` +
		where + ` ORDER BY created_at DESC, id DESC` +
		` LIMIT $` + strconv.Itoa(argCount+1) + ` OFFSET $` + strconv.Itoa(argCount+2)
	args = append(args, perPage, (page-1)*perPage)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry Entry
			meta  []byte
		)
		if err := rows.Scan(&entry.ID, &entry.ActorID, &entry.Action, &entry.TargetType, &entry.TargetID, &meta, &entry.At); err != nil {
			return nil, 0, err
		}
		if len(meta) > 0 {
			_ = json.Unmarshal(meta, &entry.Meta)
		}
		entries = append(entries, entry)
	}
	return entries, total, rows.Err()
}

// DeleteBefore removes entries older than the cutoff and reports the count.
func (r *repository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM audit_logs WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
