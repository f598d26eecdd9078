package data

import (
	"context"
	"database/sql"

	"codequery/internal/core"
)

type HistoryRepo struct {
	db *sql.DB
}

func NewHistoryRepo(db *sql.DB) *HistoryRepo {
	return &HistoryRepo{db: db}
}

func (r *HistoryRepo) Create(ctx context.Context, e *core.HistoryEntry) error {
	res, err := r.db.ExecContext(ctx, `INSERT INTO export_history (timestamp, report, connection_name, host, database_name, date_field, start_date, end_date, selected_gtin, status, row_count, marked_count, duration_ms, outcome, error_message) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Timestamp.UTC(), e.Report, e.ConnectionName, e.Host, e.Database, e.DateField, e.StartDate, e.EndDate, e.SelectedGTIN, e.Status, e.RowCount, e.MarkedCount, e.DurationMs, e.Outcome, e.ErrorMessage)
	if err != nil {
		return err
	}
	id, _ := res.LastInsertId()
	e.ID = id
	return nil
}

func (r *HistoryRepo) GetRecent(ctx context.Context, limit int) ([]core.HistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, timestamp, report, connection_name, host, database_name, date_field, start_date, end_date, selected_gtin, status, row_count, marked_count, duration_ms, outcome, error_message FROM export_history ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []core.HistoryEntry{}
	for rows.Next() {
		var e core.HistoryEntry
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Report, &e.ConnectionName, &e.Host, &e.Database, &e.DateField, &e.StartDate, &e.EndDate, &e.SelectedGTIN, &e.Status, &e.RowCount, &e.MarkedCount, &e.DurationMs, &e.Outcome, &e.ErrorMessage); err != nil {
			return nil, err
		}

		// SQLite stores UTC
		e.Timestamp = e.Timestamp.Local()

		entries = append(entries, e)
	}
	return entries, rows.Err()
}
