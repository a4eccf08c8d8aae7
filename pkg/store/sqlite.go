package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // sqlite driver

	"feedcrawl/pkg/models"
)

// ErrMissingIdentifier is returned when an item has no url field to key on.
var ErrMissingIdentifier = errors.New("store: item has no resource identifier")

// ItemStore persists extracted items in a local SQLite database. The
// crawl core only ever asks it two questions: which identifiers are
// already known for a source, and what full content was previously
// stored for one identifier.
type ItemStore struct {
	db *sql.DB
}

// Open opens (creating if needed) the item database at path.
func Open(path string) (*ItemStore, error) {
	db, err := initDatabase(path)
	if err != nil {
		return nil, err
	}
	return &ItemStore{db: db}, nil
}

// NewWithDB wraps an existing database handle. The schema must already
// exist; tests use this with an in-memory database.
func NewWithDB(db *sql.DB) *ItemStore {
	return &ItemStore{db: db}
}

// Close closes the underlying database.
func (s *ItemStore) Close() error {
	return s.db.Close()
}

// SeenIdentifiers returns the set of resource identifiers already stored
// for source. An empty source returns identifiers across all sources.
func (s *ItemStore) SeenIdentifiers(ctx context.Context, source string) (map[string]struct{}, error) {
	q := `SELECT url FROM items`
	var args []any
	if source != "" {
		q += ` WHERE source = ?`
		args = append(args, source)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("store: querying seen identifiers: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]struct{})
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("store: scanning identifier: %w", err)
		}
		seen[url] = struct{}{}
	}
	return seen, rows.Err()
}

// PriorContent returns the full content previously stored for identifier,
// or nil when the item is unknown or was stored without content.
func (s *ItemStore) PriorContent(ctx context.Context, identifier string) (*string, error) {
	const q = `SELECT content FROM items WHERE url = ?`

	var content sql.NullString
	err := s.db.QueryRowContext(ctx, q, identifier).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: querying prior content: %w", err)
	}
	if !content.Valid {
		return nil, nil
	}
	return &content.String, nil
}

// SaveItem upserts an item under its resource identifier. Fields are
// stored as JSON; content, when the item carries one, replaces any prior
// content, otherwise the prior content is kept.
func (s *ItemStore) SaveItem(ctx context.Context, source string, item models.Item) error {
	url := item.URL()
	if url == "" {
		return ErrMissingIdentifier
	}

	fields, err := json.Marshal(item.Fields)
	if err != nil {
		return fmt.Errorf("store: encoding item fields: %w", err)
	}

	var content any
	if c, ok := item.Content(); ok {
		content = c
	}

	var createdAt any
	if t, ok := item.CreatedAt(); ok {
		createdAt = t.UTC().Format(time.RFC3339)
	}

	const q = `
		INSERT INTO items (url, source, fields, content, created_at, stored_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			fields = excluded.fields,
			content = COALESCE(excluded.content, items.content),
			stored_at = excluded.stored_at`

	_, err = s.db.ExecContext(ctx, q, url, source, string(fields), content, createdAt, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("store: saving item: %w", err)
	}
	return nil
}

// SaveContent stores merged full content for an already saved identifier.
func (s *ItemStore) SaveContent(ctx context.Context, identifier, content string) error {
	const q = `UPDATE items SET content = ?, stored_at = ? WHERE url = ?`

	_, err := s.db.ExecContext(ctx, q, content, time.Now().Unix(), identifier)
	if err != nil {
		return fmt.Errorf("store: saving content: %w", err)
	}
	return nil
}

func initDatabase(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, err
		}
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return db, CreateSchema(db)
}

// CreateSchema creates the items table if it does not exist.
func CreateSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS items (
			url TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			fields TEXT NOT NULL,
			content TEXT,
			created_at TEXT,
			stored_at INT NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_items_source ON items(source)`)
	return err
}
