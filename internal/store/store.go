// Package store persists triaged call records in Postgres.
package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver for goose
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Default coordinates recorded until caller geolocation is wired through the
// telephony provider.
const (
	DefaultLatitude  = 37.8029
	DefaultLongitude = -122.44879
)

// CallRecord is one triaged call in the callers table. The summary is stored
// in the metadata column.
type CallRecord struct {
	ID        int64     `json:"id"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Severity  int       `json:"severity"`
	Summary   string    `json:"metadata"`
	CreatedAt time.Time `json:"created_at"`
}

// Store wraps a pgx connection pool.
type Store struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, databaseURL string, logger zerolog.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool, logger: logger}, nil
}

// Migrate applies the embedded schema migrations. Goose runs over
// database/sql, so a short-lived stdlib connection is used instead of the
// pool.
func Migrate(databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// AppendCallRecord inserts one triaged call and returns it with its assigned
// id and timestamp.
func (s *Store) AppendCallRecord(ctx context.Context, record CallRecord) (CallRecord, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO callers (latitude, longitude, severity, metadata)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		record.Latitude, record.Longitude, record.Severity, record.Summary,
	)
	if err := row.Scan(&record.ID, &record.CreatedAt); err != nil {
		return CallRecord{}, fmt.Errorf("insert call record: %w", err)
	}

	s.logger.Info().
		Int64("record_id", record.ID).
		Int("severity", record.Severity).
		Msg("Stored call record")
	return record, nil
}

// RecentRecords returns the most recently stored calls, newest first.
func (s *Store) RecentRecords(ctx context.Context, limit int) ([]CallRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, latitude, longitude, severity, metadata, created_at
		 FROM callers
		 ORDER BY created_at DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query call records: %w", err)
	}
	defer rows.Close()

	var records []CallRecord
	for rows.Next() {
		var r CallRecord
		if err := rows.Scan(&r.ID, &r.Latitude, &r.Longitude, &r.Severity, &r.Summary, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan call record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// RecordsAfter returns records with an id greater than lastID in insertion
// order. Used by the live feed to poll for new calls.
func (s *Store) RecordsAfter(ctx context.Context, lastID int64) ([]CallRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, latitude, longitude, severity, metadata, created_at
		 FROM callers
		 WHERE id > $1
		 ORDER BY id ASC`, lastID)
	if err != nil {
		return nil, fmt.Errorf("query new call records: %w", err)
	}
	defer rows.Close()

	var records []CallRecord
	for rows.Next() {
		var r CallRecord
		if err := rows.Scan(&r.ID, &r.Latitude, &r.Longitude, &r.Severity, &r.Summary, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan call record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}
