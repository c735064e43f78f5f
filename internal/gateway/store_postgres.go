package gateway

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
    collection  text        NOT NULL,
    doc_id      text        NOT NULL,
    fields      jsonb       NOT NULL DEFAULT '{}'::jsonb,
    updated_at  timestamptz NOT NULL DEFAULT now(),
    PRIMARY KEY (collection, doc_id)
)`

const defaultPollInterval = time.Second

// PostgresStore persists documents in a single JSONB-backed table. Merge
// writes use the jsonb || operator so fields absent from a partial update are
// preserved; updated_at is assigned by the database, never by the client.
type PostgresStore struct {
	db           *sql.DB
	log          *log.Logger
	pollInterval time.Duration
}

// PostgresStoreOption configures a PostgresStore.
type PostgresStoreOption func(*PostgresStore)

// WithPollInterval overrides the subscription polling cadence. Tests shorten
// it to keep change delivery fast.
func WithPollInterval(d time.Duration) PostgresStoreOption {
	return func(s *PostgresStore) { s.pollInterval = d }
}

func NewPostgresStore(db *sql.DB, log *log.Logger, opts ...PostgresStoreOption) *PostgresStore {
	s := &PostgresStore{db: db, log: log, pollInterval: defaultPollInterval}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// EnsureSchema creates the documents table when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure documents schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, collection, docID string) (*Document, error) {
	var (
		raw       []byte
		updatedAt time.Time
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT fields, updated_at FROM documents WHERE collection = $1 AND doc_id = $2`,
		collection, docID,
	).Scan(&raw, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document %s/%s: %w", collection, docID, err)
	}

	fields := make(map[string]any)
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode document %s/%s: %w", collection, docID, err)
	}
	return &Document{ID: docID, Fields: fields, UpdatedAt: updatedAt}, nil
}

func (s *PostgresStore) Set(ctx context.Context, collection, docID string, fields map[string]any, merge bool) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode document %s/%s: %w", collection, docID, err)
	}

	assign := `fields = EXCLUDED.fields`
	if merge {
		assign = `fields = documents.fields || EXCLUDED.fields`
	}
	query := `INSERT INTO documents (collection, doc_id, fields, updated_at)
	          VALUES ($1, $2, $3, now())
	          ON CONFLICT (collection, doc_id)
	          DO UPDATE SET ` + assign + `, updated_at = now()`

	if _, err := s.db.ExecContext(ctx, query, collection, docID, raw); err != nil {
		return fmt.Errorf("set document %s/%s: %w", collection, docID, err)
	}
	return nil
}

// Subscribe polls updated_at for the document. Good enough for the profile
// watch this engine needs; a LISTEN/NOTIFY variant can replace it if polling
// volume ever matters.
func (s *PostgresStore) Subscribe(ctx context.Context, collection, docID string, onChange func(*Document)) (func(), error) {
	var lastSeen time.Time
	if doc, err := s.Get(ctx, collection, docID); err == nil {
		lastSeen = doc.UpdatedAt
		onChange(doc)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	done := make(chan struct{})
	var once sync.Once

	go func() {
		ticker := time.NewTicker(s.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				doc, err := s.Get(ctx, collection, docID)
				if errors.Is(err, ErrNotFound) {
					continue
				}
				if err != nil {
					s.log.Printf("gateway: poll %s/%s: %v", collection, docID, err)
					continue
				}
				if doc.UpdatedAt.After(lastSeen) {
					lastSeen = doc.UpdatedAt
					onChange(doc)
				}
			}
		}
	}()

	cancel := func() { once.Do(func() { close(done) }) }
	return cancel, nil
}
