// Package postgres provides a PostgreSQL-backed transaction store.
package postgres

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ArionMiles/momoledger/pkg/api"
	"github.com/ArionMiles/momoledger/pkg/writer/buffered"
	"github.com/ArionMiles/momoledger/pkg/writer/internal/sqlfilter"
)

//go:embed 001_create_transactions.sql
var migrationSQL string

const insertSQL = `
	INSERT INTO transactions (
		message_id, timestamp, sender, recipient, amount,
		transaction_type, reference, balance, status
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (message_id) DO NOTHING`

const selectSQL = `
	SELECT message_id, timestamp, sender, recipient, amount,
		transaction_type, reference, balance, status
	FROM transactions`

// Config holds the PostgreSQL store configuration.
type Config struct {
	// URL is a full connection string. When set, the discrete fields are ignored.
	URL      string
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string

	// BatchSize is the number of records to buffer before writing.
	BatchSize int
	// FlushInterval is the time between automatic flushes.
	FlushInterval time.Duration

	// MaxPoolSize is the maximum number of connections in the pool.
	MaxPoolSize int
}

func (c Config) connString() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// Store writes records to PostgreSQL, ignoring message ids it already holds.
type Store struct {
	pool     *pgxpool.Pool
	buffered *buffered.Writer
	logger   *slog.Logger
}

// New connects to PostgreSQL and runs the migration.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.Port == 0 {
		cfg.Port = 5432
	}
	if cfg.SSLMode == "" {
		cfg.SSLMode = "disable"
	}
	if cfg.MaxPoolSize == 0 {
		cfg.MaxPoolSize = 10
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.connString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxPoolSize)
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := pool.Exec(ctx, migrationSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	logger.Info("connected to PostgreSQL",
		"host", poolConfig.ConnConfig.Host,
		"port", poolConfig.ConnConfig.Port,
		"database", poolConfig.ConnConfig.Database,
	)

	s := &Store{pool: pool, logger: logger}
	s.buffered = buffered.New(s.writeBatch, buffered.Config{
		BatchSize:     cfg.BatchSize,
		FlushInterval: cfg.FlushInterval,
	}, logger.With("component", "postgres_buffer"))
	return s, nil
}

// Write consumes records from the channel and inserts them in batches.
func (s *Store) Write(ctx context.Context, in <-chan *api.TransactionRecord, ackChan chan<- string) error {
	return s.buffered.Write(ctx, in, ackChan)
}

// writeBatch inserts a batch in one transaction. Existing message ids are left untouched.
func (s *Store) writeBatch(ctx context.Context, records []*api.TransactionRecord) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(insertSQL,
			r.MessageID,
			r.Timestamp.UTC(),
			r.Sender,
			r.Recipient,
			r.Amount,
			string(r.Type),
			r.Reference,
			r.Balance,
			string(r.Status),
		)
	}

	results := tx.SendBatch(ctx, batch)
	inserted := 0
	for _, r := range records {
		tag, err := results.Exec()
		if err != nil {
			results.Close()
			return fmt.Errorf("inserting %s: %w", r.MessageID, err)
		}
		inserted += int(tag.RowsAffected())
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("closing batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	s.logger.Debug("wrote transaction batch", "count", len(records), "inserted", inserted)
	return nil
}

// Query returns the records matching f ordered by timestamp.
func (s *Store) Query(ctx context.Context, f api.Filter) ([]*api.TransactionRecord, error) {
	where, limit, args := sqlfilter.Build(f, sqlfilter.Postgres)
	query := selectSQL + where + " ORDER BY timestamp, message_id" + limit

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying transactions: %w", err)
	}

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*api.TransactionRecord, error) {
		var (
			r           api.TransactionRecord
			typ, status string
		)
		if err := row.Scan(&r.MessageID, &r.Timestamp, &r.Sender, &r.Recipient, &r.Amount, &typ, &r.Reference, &r.Balance, &status); err != nil {
			return nil, err
		}
		r.Timestamp = r.Timestamp.UTC()
		r.Type = api.TransactionType(typ)
		r.Status = api.Status(status)
		return &r, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning transactions: %w", err)
	}
	return records, nil
}

// Close closes the database connection pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
		s.logger.Info("closed PostgreSQL connection pool")
	}
}
