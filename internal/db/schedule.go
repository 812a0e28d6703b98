package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"smena/internal/model"
)

// LoadRows returns the stored per-weekday schedule rows. Days never written
// come back as absent; the adapter treats them as disabled.
func (db *DB) LoadRows(ctx context.Context) ([]model.ScheduleRow, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT day_of_week, is_available, start_time, end_time
		FROM weekly_schedule
		ORDER BY day_of_week`)
	if err != nil {
		return nil, fmt.Errorf("query weekly schedule: %w", err)
	}
	defer rows.Close()

	var out []model.ScheduleRow
	for rows.Next() {
		var row model.ScheduleRow
		var start, end sql.NullString
		if err := rows.Scan(&row.DayOfWeek, &row.IsAvailable, &start, &end); err != nil {
			return nil, fmt.Errorf("scan schedule row: %w", err)
		}
		if start.Valid {
			row.StartTime = &start.String
		}
		if end.Valid {
			row.EndTime = &end.String
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// SaveRows persists the full weekly schedule. The store's contract is all 7
// rows together; partial updates are rejected.
func (db *DB) SaveRows(ctx context.Context, rows []model.ScheduleRow) error {
	if len(rows) != 7 {
		return fmt.Errorf("expected 7 schedule rows, got %d", len(rows))
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	for _, row := range rows {
		if row.DayOfWeek < 0 || row.DayOfWeek > 6 {
			return fmt.Errorf("invalid day_of_week %d", row.DayOfWeek)
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO weekly_schedule (day_of_week, is_available, start_time, end_time, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(day_of_week) DO UPDATE SET
				is_available = excluded.is_available,
				start_time = excluded.start_time,
				end_time = excluded.end_time,
				updated_at = excluded.updated_at`,
			row.DayOfWeek, row.IsAvailable, row.StartTime, row.EndTime, now,
		)
		if err != nil {
			return fmt.Errorf("upsert day %d: %w", row.DayOfWeek, err)
		}
	}

	return tx.Commit()
}
