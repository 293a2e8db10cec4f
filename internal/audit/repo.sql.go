package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SQLRepository reads audit_trail from PostgreSQL.
type SQLRepository struct {
	pool *pgxpool.Pool
}

func NewSQLRepository(pool *pgxpool.Pool) *SQLRepository {
	return &SQLRepository{pool: pool}
}

const timelineCols = `id, created_at, actor_id, operation, table_name, record_id, changed_fields, description`

func timelineWhere(f TimelineFilters) (string, []any) {
	q := " WHERE 1=1"
	args := []any{}
	if !f.From.IsZero() {
		args = append(args, f.From)
		q += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if !f.To.IsZero() {
		args = append(args, f.To)
		q += fmt.Sprintf(" AND created_at <= $%d", len(args))
	}
	if f.ActorID != 0 {
		args = append(args, f.ActorID)
		q += fmt.Sprintf(" AND actor_id = $%d", len(args))
	}
	if f.Table != "" {
		args = append(args, f.Table)
		q += fmt.Sprintf(" AND table_name = $%d", len(args))
	}
	if f.Op != "" {
		args = append(args, f.Op)
		q += fmt.Sprintf(" AND operation = $%d", len(args))
	}
	return q, args
}

func scanTimelineRow(rows pgx.Rows) (TimelineRow, error) {
	var r TimelineRow
	var changed []byte
	if err := rows.Scan(&r.ID, &r.At, &r.ActorID, &r.Op, &r.Table, &r.RecordID, &changed, &r.Description); err != nil {
		return TimelineRow{}, err
	}
	if len(changed) > 0 {
		if err := json.Unmarshal(changed, &r.ChangedFields); err != nil {
			return TimelineRow{}, err
		}
	}
	return r, nil
}

func (r *SQLRepository) TimelineWindow(ctx context.Context, f TimelineFilters, offset, limit int) ([]TimelineRow, error) {
	where, args := timelineWhere(f)
	args = append(args, limit, offset)
	q := fmt.Sprintf(`SELECT %s FROM audit_trail%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		timelineCols, where, len(args)-1, len(args))
	return r.queryTimeline(ctx, q, args)
}

func (r *SQLRepository) TimelineAll(ctx context.Context, f TimelineFilters) ([]TimelineRow, error) {
	where, args := timelineWhere(f)
	q := `SELECT ` + timelineCols + ` FROM audit_trail` + where + ` ORDER BY created_at DESC, id DESC`
	return r.queryTimeline(ctx, q, args)
}

func (r *SQLRepository) queryTimeline(ctx context.Context, q string, args []any) ([]TimelineRow, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TimelineRow
	for rows.Next() {
		row, err := scanTimelineRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *SQLRepository) RecordHistory(ctx context.Context, table, recordID string) ([]HistoryRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+timelineCols+`, old_values, new_values
		FROM audit_trail
		WHERE table_name = $1 AND record_id = $2
		ORDER BY created_at, id`, table, recordID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []HistoryRow
	for rows.Next() {
		var h HistoryRow
		var changed []byte
		if err := rows.Scan(&h.ID, &h.At, &h.ActorID, &h.Op, &h.Table, &h.RecordID, &changed, &h.Description, &h.OldValues, &h.NewValues); err != nil {
			return nil, err
		}
		if len(changed) > 0 {
			if err := json.Unmarshal(changed, &h.ChangedFields); err != nil {
				return nil, err
			}
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
