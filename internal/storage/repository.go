package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"custos/internal/log"

	_ "modernc.org/sqlite"
)

// LoadRecord is one entry of the load history.
type LoadRecord struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	Fingerprint uint64    `json:"fingerprint"`
	LoadedAt    time.Time `json:"loaded_at"`
	RowsKept    int       `json:"rows_kept"`
	RowsDropped int       `json:"rows_dropped"`
	Unresolved  []string  `json:"unresolved,omitempty"`
	Error       string    `json:"error,omitempty"`
}

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	logger  *log.Logger
}

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		logger:  logger.WithComponent(log.ComponentStorage),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// RecordLoad appends one load attempt to the history.
func (r *SQLiteRepository) RecordLoad(ctx context.Context, rec LoadRecord) error {
	err := r.queries.CreateLoad(ctx, Load{
		ID:          rec.ID,
		Source:      rec.Source,
		Fingerprint: strconv.FormatUint(rec.Fingerprint, 16),
		LoadedAt:    rec.LoadedAt.UTC(),
		RowsKept:    int64(rec.RowsKept),
		RowsDropped: int64(rec.RowsDropped),
		Unresolved:  strings.Join(rec.Unresolved, ","),
		Error:       rec.Error,
	})
	if err != nil {
		return fmt.Errorf("create load: %w", err)
	}

	r.logger.DebugContext(ctx, "Load recorded",
		"id", rec.ID,
		log.FieldSource, rec.Source,
		log.FieldRecords, rec.RowsKept,
		log.FieldDropped, rec.RowsDropped)
	return nil
}

// RecentLoads returns up to limit loads, newest first.
func (r *SQLiteRepository) RecentLoads(ctx context.Context, limit int) ([]LoadRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.queries.ListRecentLoads(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list recent loads: %w", err)
	}

	out := make([]LoadRecord, 0, len(rows))
	for _, row := range rows {
		fp, err := strconv.ParseUint(row.Fingerprint, 16, 64)
		if err != nil && row.Fingerprint != "" {
			return nil, fmt.Errorf("parse fingerprint of load %s: %w", row.ID, err)
		}
		var unresolved []string
		if row.Unresolved != "" {
			unresolved = strings.Split(row.Unresolved, ",")
		}
		out = append(out, LoadRecord{
			ID:          row.ID,
			Source:      row.Source,
			Fingerprint: fp,
			LoadedAt:    row.LoadedAt,
			RowsKept:    int(row.RowsKept),
			RowsDropped: int(row.RowsDropped),
			Unresolved:  unresolved,
			Error:       row.Error,
		})
	}
	return out, nil
}
