// Package sqlite provides a SQLite-backed transaction store.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/avast/retry-go"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/ArionMiles/momoledger/pkg/api"
	"github.com/ArionMiles/momoledger/pkg/writer/buffered"
	"github.com/ArionMiles/momoledger/pkg/writer/internal/sqlfilter"
)

//go:embed schema.sql
var schemaSQL string

const insertSQL = `
	INSERT OR IGNORE INTO transactions (
		message_id, timestamp_ms, timestamp, sender, recipient, amount,
		transaction_type, reference, balance, status
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const selectSQL = `
	SELECT message_id, timestamp_ms, sender, recipient, amount,
		transaction_type, reference, balance, status
	FROM transactions`

// Config holds the SQLite store configuration.
type Config struct {
	// Path is the database file. Parent directories are created.
	Path string
	// BatchSize is the number of records to buffer before writing.
	BatchSize int
	// FlushInterval is the time between automatic flushes.
	FlushInterval time.Duration
}

// Store writes records to SQLite, ignoring message ids it already holds.
type Store struct {
	db       *sql.DB
	buffered *buffered.Writer
	logger   *slog.Logger
	path     string

	inserted   int
	duplicates int
}

// New opens (creating if needed) the database at cfg.Path and applies the schema.
func New(cfg Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Path == "" {
		return nil, errors.New("sqlite path is required")
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", cfg.Path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// A single connection serializes writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	s := &Store{
		db:     db,
		logger: logger,
		path:   cfg.Path,
	}
	s.buffered = buffered.New(s.writeBatch, buffered.Config{
		BatchSize:     cfg.BatchSize,
		FlushInterval: cfg.FlushInterval,
	}, logger.With("component", "sqlite_buffer"))

	logger.Info("sqlite store opened", "path", cfg.Path)
	return s, nil
}

// Write consumes records from in and inserts them in batches.
func (s *Store) Write(ctx context.Context, in <-chan *api.TransactionRecord, ackChan chan<- string) error {
	err := s.buffered.Write(ctx, in, ackChan)
	s.logger.Info("sqlite write finished", "inserted", s.inserted, "duplicates", s.duplicates)
	return err
}

// writeBatch inserts one batch in a single transaction, retrying while the
// database is locked by another process.
func (s *Store) writeBatch(ctx context.Context, records []*api.TransactionRecord) error {
	var inserted int
	err := retry.Do(
		func() error {
			n, err := s.insert(ctx, records)
			inserted = n
			return err
		},
		retry.Context(ctx),
		retry.RetryIf(isBusy),
		retry.OnRetry(func(n uint, err error) {
			s.logger.Warn("database busy, will retry", "attempt", n+1, "error", err)
		}),
		retry.Attempts(5),
		retry.Delay(100*time.Millisecond),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return err
	}

	s.inserted += inserted
	s.duplicates += len(records) - inserted
	if dup := len(records) - inserted; dup > 0 {
		s.logger.Debug("skipped duplicate message ids", "count", dup)
	}
	return nil
}

func (s *Store) insert(ctx context.Context, records []*api.TransactionRecord) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, r := range records {
		res, err := stmt.ExecContext(ctx,
			r.MessageID,
			r.Timestamp.UnixMilli(),
			r.Timestamp.UTC().Format(api.TimestampLayout),
			r.Sender,
			r.Recipient,
			r.Amount,
			string(r.Type),
			r.Reference,
			r.Balance,
			string(r.Status),
		)
		if err != nil {
			return 0, fmt.Errorf("inserting %s: %w", r.MessageID, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}
	return inserted, nil
}

func isBusy(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code() & 0xff
	return code == sqlite3.SQLITE_BUSY || code == sqlite3.SQLITE_LOCKED
}

// Query returns the records matching f ordered by timestamp.
func (s *Store) Query(ctx context.Context, f api.Filter) ([]*api.TransactionRecord, error) {
	where, limit, args := sqlfilter.Build(f, sqlfilter.SQLite)
	query := selectSQL + where + " ORDER BY timestamp_ms, message_id" + limit

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying transactions: %w", err)
	}
	defer rows.Close()

	var records []*api.TransactionRecord
	for rows.Next() {
		var (
			r                    api.TransactionRecord
			ms                   int64
			typ, status          string
			recipient, reference sql.NullString
			amount, balance      sql.NullInt64
		)
		if err := rows.Scan(&r.MessageID, &ms, &r.Sender, &recipient, &amount, &typ, &reference, &balance, &status); err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		r.Timestamp = time.UnixMilli(ms).UTC()
		r.Type = api.TransactionType(typ)
		r.Status = api.Status(status)
		if recipient.Valid {
			r.Recipient = &recipient.String
		}
		if reference.Valid {
			r.Reference = &reference.String
		}
		if amount.Valid {
			r.Amount = &amount.Int64
		}
		if balance.Valid {
			r.Balance = &balance.Int64
		}
		records = append(records, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transactions: %w", err)
	}
	return records, nil
}

// Close closes the database.
func (s *Store) Close() {
	if err := s.db.Close(); err != nil {
		s.logger.Warn("closing sqlite database", "error", err)
		return
	}
	s.logger.Info("closed sqlite database", "path", s.path)
}
