package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/Kubolab-io/takkapp-v1-sub000/models"
	"github.com/Kubolab-io/takkapp-v1-sub000/store/migrations"
)

// SQLiteStore keeps every collection in a single documents table with JSON bodies.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens path (a file or ":memory:") and migrates it to the latest schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// every pooled connection to ":memory:" would be a separate database
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// DB exposes the connection for schema inspection.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

func (s *SQLiteStore) GetDocument(ctx context.Context, collection, id string) (models.Document, error) {
	return getBody(ctx, s.db, collection, id)
}

func (s *SQLiteStore) SetDocument(ctx context.Context, collection, id string, doc models.Document, merge bool) error {
	if !merge {
		return putBody(ctx, s.db, collection, id, doc)
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return mergeBody(ctx, tx, collection, id, doc, false)
	})
}

func (s *SQLiteStore) UpdateDocument(ctx context.Context, collection, id string, fields models.Document) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return mergeBody(ctx, tx, collection, id, fields, true)
	})
}

func (s *SQLiteStore) QueryDocuments(ctx context.Context, collection string, filters []Filter) ([]models.Document, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT body FROM documents WHERE collection = ? ORDER BY id", collection)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", collection, err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", collection, err)
		}
		doc, err := decode([]byte(body))
		if err != nil {
			return nil, fmt.Errorf("decoding %s: %w", collection, err)
		}
		if matches(doc, filters) {
			docs = append(docs, doc)
		}
	}
	return docs, rows.Err()
}

func (s *SQLiteStore) CommitBatch(ctx context.Context, writes []Write) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, w := range writes {
			if err := putBody(ctx, tx, w.Collection, w.ID, w.Doc); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLiteStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

type execQuerier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func getBody(ctx context.Context, q execQuerier, collection, id string) (models.Document, error) {
	var body string
	err := q.QueryRowContext(ctx, "SELECT body FROM documents WHERE collection = ? AND id = ?", collection, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting %s/%s: %w", collection, id, err)
	}
	return decode([]byte(body))
}

func putBody(ctx context.Context, q execQuerier, collection, id string, doc models.Document) error {
	body, err := json.Marshal(withID(id, doc))
	if err != nil {
		return fmt.Errorf("encoding %s/%s: %w", collection, id, err)
	}
	_, err = q.ExecContext(ctx, `INSERT INTO documents (collection, id, body) VALUES (?, ?, ?)
		ON CONFLICT (collection, id) DO UPDATE SET body = excluded.body,
		updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')`, collection, id, string(body))
	if err != nil {
		return fmt.Errorf("writing %s/%s: %w", collection, id, err)
	}
	return nil
}

func mergeBody(ctx context.Context, q execQuerier, collection, id string, fields models.Document, mustExist bool) error {
	existing, err := getBody(ctx, q, collection, id)
	switch {
	case errors.Is(err, ErrDocumentNotFound) && mustExist:
		return err
	case errors.Is(err, ErrDocumentNotFound):
		existing = models.Document{}
	case err != nil:
		return err
	}
	for k, v := range fields {
		existing[k] = v
	}
	return putBody(ctx, q, collection, id, existing)
}
