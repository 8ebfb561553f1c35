// Package sqlite implements the history and annotation stores on a local
// SQLite database file. This is the default backend: the stores are
// single-owner (one running instance per installation) and every upsert is
// one durable write, which SQLite gives us per statement.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/maxwelfreitas/schwordcloud/internal/annotation"
	"github.com/maxwelfreitas/schwordcloud/internal/history"
)

//go:embed schema.sql
var schema string

// Store backs both the search-history ledger and the annotation table with
// one SQLite database file.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and ensures the
// schema exists. WAL keeps committed entries safe across a process crash
// between upserts.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		closeErr := db.Close()
		if closeErr != nil {
			return nil, fmt.Errorf("init schema: %w (close: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close sqlite database: %w", err)
	}
	return nil
}

// Has reports whether a history entry exists for the certification number.
func (s *Store) Has(ctx context.Context, certNumber string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM search_history WHERE cert_number = ?", certNumber,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("query history entry: %w", err)
	}
	return n > 0, nil
}

// Get returns the history entry for the certification number.
func (s *Store) Get(ctx context.Context, certNumber string) (history.Entry, error) {
	var entry history.Entry
	err := s.db.QueryRowContext(ctx,
		"SELECT cert_number, searched_at, status, result_digest FROM search_history WHERE cert_number = ?",
		certNumber,
	).Scan(&entry.CertNumber, &entry.SearchedAt, &entry.Status, &entry.ResultDigest)
	if errors.Is(err, sql.ErrNoRows) {
		return history.Entry{}, history.ErrNotFound
	}
	if err != nil {
		return history.Entry{}, fmt.Errorf("get history entry: %w", err)
	}
	return entry, nil
}

// Upsert replaces any existing history entry for the same key.
func (s *Store) Upsert(ctx context.Context, entry history.Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO search_history (cert_number, searched_at, status, result_digest)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(cert_number) DO UPDATE SET
			searched_at = excluded.searched_at,
			status = excluded.status,
			result_digest = excluded.result_digest`,
		entry.CertNumber, entry.SearchedAt.UTC(), entry.Status, entry.ResultDigest,
	)
	if err != nil {
		return fmt.Errorf("upsert history entry: %w", err)
	}
	return nil
}

// GetAnnotation returns the annotation record for the certification number.
func (s *Store) GetAnnotation(ctx context.Context, certNumber string) (annotation.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, cert_number, terms, source, created_at, origin, version
		FROM annotations WHERE cert_number = ?`, certNumber)
	record, err := scanAnnotation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return annotation.Record{}, annotation.ErrNotFound
	}
	if err != nil {
		return annotation.Record{}, fmt.Errorf("get annotation: %w", err)
	}
	return record, nil
}

// PutAnnotation replaces any existing annotation record for the same key.
func (s *Store) PutAnnotation(ctx context.Context, record annotation.Record) error {
	terms, err := marshalTerms(record.Terms)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO annotations (cert_number, id, terms, source, created_at, origin, version)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(cert_number) DO UPDATE SET
			id = excluded.id,
			terms = excluded.terms,
			source = excluded.source,
			created_at = excluded.created_at,
			origin = excluded.origin,
			version = excluded.version`,
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
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, cert_number, terms, source, created_at, origin, version
		FROM annotations ORDER BY cert_number`)
	if err != nil {
		return nil, fmt.Errorf("list annotations: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var records []annotation.Record
	for rows.Next() {
		record, err := scanAnnotation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan annotation: %w", err)
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
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, "DELETE FROM annotations"); err != nil {
		return fmt.Errorf("clear annotations: %w", err)
	}
	for _, record := range records {
		terms, err := marshalTerms(record.Terms)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO annotations (cert_number, id, terms, source, created_at, origin, version)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			record.CertNumber, record.ID, terms, record.Source,
			record.CreatedAt.UTC(), record.Origin, record.Version,
		)
		if err != nil {
			return fmt.Errorf("insert annotation %s: %w", record.CertNumber, err)
		}
	}
	if err := tx.Commit(); err != nil {
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

type scanner interface {
	Scan(dest ...any) error
}

func scanAnnotation(row scanner) (annotation.Record, error) {
	var (
		record annotation.Record
		terms  string
	)
	err := row.Scan(&record.ID, &record.CertNumber, &terms, &record.Source,
		&record.CreatedAt, &record.Origin, &record.Version)
	if err != nil {
		return annotation.Record{}, err
	}
	if err := unmarshalTerms(terms, &record.Terms); err != nil {
		return annotation.Record{}, err
	}
	return record, nil
}

func marshalTerms(terms []annotation.Term) (string, error) {
	if len(terms) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(terms)
	if err != nil {
		return "", fmt.Errorf("marshal terms: %w", err)
	}
	return string(data), nil
}

func unmarshalTerms(data string, terms *[]annotation.Term) error {
	var decoded []annotation.Term
	if err := json.Unmarshal([]byte(data), &decoded); err != nil {
		return fmt.Errorf("unmarshal terms: %w", err)
	}
	if len(decoded) == 0 {
		decoded = nil
	}
	*terms = decoded
	return nil
}
