package gateway

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "github.com/lib/pq"

	"codequery/internal/core"
)

// sqlClient pins a single *sql.Conn so statements of one request share a session.
type sqlClient struct {
	db        *sql.DB
	conn      *sql.Conn
	closeOnce sync.Once
	closeErr  error
}

// OpenPostgres dials PostgreSQL through lib/pq without pooling.
func OpenPostgres(ctx context.Context, dsn string) (Client, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &sqlClient{db: db, conn: conn}, nil
}

func (c *sqlClient) Query(ctx context.Context, query string, args ...interface{}) (*core.ResultSet, error) {
	rows, err := c.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return ScanRows(rows)
}

func (c *sqlClient) Exec(ctx context.Context, query string, args ...interface{}) (int64, error) {
	res, err := c.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (c *sqlClient) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = errors.Join(c.conn.Close(), c.db.Close())
	})
	return c.closeErr
}

// RowScanner is the subset of *sql.Rows used by ScanRows.
type RowScanner interface {
	Columns() ([]string, error)
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// ScanRows maps rows generically into column-keyed records.
func ScanRows(rows RowScanner) (*core.ResultSet, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := &core.ResultSet{Columns: columns, Rows: []core.Row{}}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range columns {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}

		row := make(core.Row, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
