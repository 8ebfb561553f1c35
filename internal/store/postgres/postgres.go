// Package postgres implements the history and annotation stores on
// PostgreSQL via pgx, for installations that keep their tables in a shared
// relational database instead of a local file.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maxwelfreitas/schwordcloud/internal/annotation"
	"github.com/maxwelfreitas/schwordcloud/internal/history"
)

// DB is the subset of pgxpool.Pool the store uses. Declared as an
// interface so tests can substitute a pgxmock pool.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// Store backs both the search-history ledger and the annotation table with
// a PostgreSQL database.
type Store struct {
	db DB
}

// New connects to the database and ensures the schema exists.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	store := &Store{db: pool}
	if err := store.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// NewWithDB wraps an existing connection-like value. Used by tests.
func NewWithDB(db DB) *Store { return &Store{db: db} }

// Close releases the connection pool.
func (s *Store) Close() { s.db.Close() }

func (s *Store) migrate(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS search_history (
			cert_number   TEXT PRIMARY KEY,
			searched_at   TIMESTAMPTZ NOT NULL,
			status        TEXT NOT NULL,
			result_digest TEXT NOT NULL DEFAULT ''
		);
		CREATE TABLE IF NOT EXISTS annotations (
			cert_number TEXT PRIMARY KEY,
			id          TEXT NOT NULL,
			terms       JSONB NOT NULL,
			source      TEXT NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL,
			origin      TEXT NOT NULL,
			version     BIGINT NOT NULL
		)`
	if _, err := s.db.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Has reports whether a history entry exists for the certification number.
func (s *Store) Has(ctx context.Context, certNumber string) (bool, error) {
	var n int
	err := s.db.QueryRow(ctx,
		"SELECT COUNT(1) FROM search_history WHERE cert_number = $1", certNumber,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("query history entry: %w", err)
	}
	return n > 0, nil
}

// Get returns the history entry for the certification number.
func (s *Store) Get(ctx context.Context, certNumber string) (history.Entry, error) {
	var entry history.Entry
	err := s.db.QueryRow(ctx,
		"SELECT cert_number, searched_at, status, result_digest FROM search_history WHERE cert_number = $1",
		certNumber,
	).Scan(&entry.CertNumber, &entry.SearchedAt, &entry.Status, &entry.ResultDigest)
	if errors.Is(err, pgx.ErrNoRows) {
		return history.Entry{}, history.ErrNotFound
	}
	if err != nil {
		return history.Entry{}, fmt.Errorf("get history entry: %w", err)
	}
	return entry, nil
}

// Upsert replaces any existing history entry for the same key.
func (s *Store) Upsert(ctx context.Context, entry history.Entry) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO search_history (cert_number, searched_at, status, result_digest)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (cert_number) DO UPDATE SET
			searched_at = EXCLUDED.searched_at,
			status = EXCLUDED.status,
			result_digest = EXCLUDED.result_digest`,
		entry.CertNumber, entry.SearchedAt.UTC(), entry.Status, entry.ResultDigest,
	)
	if err != nil {
		return fmt.Errorf("upsert history entry: %w", err)
	}
	return nil
}

// GetAnnotation returns the annotation record for the certification number.
func (s *Store) GetAnnotation(ctx context.Context, certNumber string) (annotation.Record, error) {
	var (
		record annotation.Record
		terms  []byte
	)
	err := s.db.QueryRow(ctx, `
		SELECT id, cert_number, terms, source, created_at, origin, version
		FROM annotations WHERE cert_number = $1`, certNumber,
	).Scan(&record.ID, &record.CertNumber, &terms, &record.Source,
		&record.CreatedAt, &record.Origin, &record.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return annotation.Record{}, annotation.ErrNotFound
	}
	if err != nil {
		return annotation.Record{}, fmt.Errorf("get annotation: %w", err)
	}
	if err := unmarshalTerms(terms, &record.Terms); err != nil {
		return annotation.Record{}, err
	}
	return record, nil
}

// PutAnnotation replaces any existing annotation record for the same key.
func (s *Store) PutAnnotation(ctx context.Context, record annotation.Record) error {
	terms, err := marshalTerms(record.Terms)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO annotations (cert_number, id, terms, source, created_at, origin, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (cert_number) DO UPDATE SET
			id = EXCLUDED.id,
			terms = EXCLUDED.terms,
			source = EXCLUDED.source,
			created_at = EXCLUDED.created_at,
			origin = EXCLUDED.origin,
			version = EXCLUDED.version`,
		record.CertNumber, record.ID, terms, record.Source,
		record.CreatedAt.UTC(), record.Origin, record.Version,
	)
	if err != nil {
		return fmt.Errorf("upsert annotation: %w", err)
	}
	return nil
}

// AllAnnotations returns every annotation record ordered by certification
// number.
func (s *Store) AllAnnotations(ctx context.Context) ([]annotation.Record, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, cert_number, terms, source, created_at, origin, version
		FROM annotations ORDER BY cert_number`)
	if err != nil {
		return nil, fmt.Errorf("list annotations: %w", err)
	}
	defer rows.Close()

	var records []annotation.Record
	for rows.Next() {
		var (
			record annotation.Record
			terms  []byte
		)
		err := rows.Scan(&record.ID, &record.CertNumber, &terms, &record.Source,
			&record.CreatedAt, &record.Origin, &record.Version)
		if err != nil {
			return nil, fmt.Errorf("scan annotation: %w", err)
		}
		if err := unmarshalTerms(terms, &record.Terms); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate annotations: %w", err)
	}
	return records, nil
}

// ReplaceAnnotations swaps the whole annotation table for the given
// records in one transaction.
func (s *Store) ReplaceAnnotations(ctx context.Context, records []annotation.Record) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if _, err := tx.Exec(ctx, "DELETE FROM annotations"); err != nil {
		return fmt.Errorf("clear annotations: %w", err)
	}
	for _, record := range records {
		terms, err := marshalTerms(record.Terms)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO annotations (cert_number, id, terms, source, created_at, origin, version)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			record.CertNumber, record.ID, terms, record.Source,
			record.CreatedAt.UTC(), record.Origin, record.Version,
		)
		if err != nil {
			return fmt.Errorf("insert annotation %s: %w", record.CertNumber, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit replace: %w", err)
	}
	return nil
}

// History exposes the store as a history.Store.
func (s *Store) History() history.Store { return historyView{s} }

// Annotations exposes the store as an annotation.Store.
func (s *Store) Annotations() annotation.Store { return annotationView{s} }

type historyView struct{ s *Store }

func (v historyView) Has(ctx context.Context, cert string) (bool, error) { return v.s.Has(ctx, cert) }
func (v historyView) Get(ctx context.Context, cert string) (history.Entry, error) {
	return v.s.Get(ctx, cert)
}
func (v historyView) Upsert(ctx context.Context, entry history.Entry) error {
	return v.s.Upsert(ctx, entry)
}

type annotationView struct{ s *Store }

func (v annotationView) Get(ctx context.Context, cert string) (annotation.Record, error) {
	return v.s.GetAnnotation(ctx, cert)
}
func (v annotationView) Put(ctx context.Context, record annotation.Record) error {
	return v.s.PutAnnotation(ctx, record)
}
func (v annotationView) All(ctx context.Context) ([]annotation.Record, error) {
	return v.s.AllAnnotations(ctx)
}
func (v annotationView) Replace(ctx context.Context, records []annotation.Record) error {
	return v.s.ReplaceAnnotations(ctx, records)
}

func marshalTerms(terms []annotation.Term) ([]byte, error) {
	if len(terms) == 0 {
		return []byte("[]"), nil
	}
	data, err := json.Marshal(terms)
	if err != nil {
		return nil, fmt.Errorf("marshal terms: %w", err)
	}
	return data, nil
}

func unmarshalTerms(data []byte, terms *[]annotation.Term) error {
	var decoded []annotation.Term
	if err := json.Unmarshal(data, &decoded); err != nil {
		return fmt.Errorf("unmarshal terms: %w", err)
	}
	if len(decoded) == 0 {
		decoded = nil
	}
	*terms = decoded
	return nil
}
