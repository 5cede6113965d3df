package storage

import (
	"context"
	"database/sql"
	"time"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

type Load struct {
	ID          string
	Source      string
	Fingerprint string
	LoadedAt    time.Time
	RowsKept    int64
	RowsDropped int64
	Unresolved  string
	Error       string
}

const createLoad = `-- name: CreateLoad :exec
INSERT INTO loads (id, source, fingerprint, loaded_at, rows_kept, rows_dropped, unresolved, error)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) CreateLoad(ctx context.Context, arg Load) error {
	_, err := q.db.ExecContext(ctx, createLoad,
		arg.ID,
		arg.Source,
		arg.Fingerprint,
		arg.LoadedAt,
		arg.RowsKept,
		arg.RowsDropped,
		arg.Unresolved,
		arg.Error,
	)
	return err
}

const listRecentLoads = `-- name: ListRecentLoads :many
SELECT id, source, fingerprint, loaded_at, rows_kept, rows_dropped, unresolved, error
FROM loads
ORDER BY loaded_at DESC, rowid DESC
LIMIT ?
`

func (q *Queries) ListRecentLoads(ctx context.Context, limit int64) ([]Load, error) {
	rows, err := q.db.QueryContext(ctx, listRecentLoads, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Load
	for rows.Next() {
		var i Load
		if err := rows.Scan(
			&i.ID,
			&i.Source,
			&i.Fingerprint,
			&i.LoadedAt,
			&i.RowsKept,
			&i.RowsDropped,
			&i.Unresolved,
			&i.Error,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
