package storage

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates or opens a SQLite database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	s := &SQLiteStore{db: db, now: time.Now}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS words (
			namespace TEXT,
			id TEXT,
			live INTEGER NOT NULL DEFAULT 1,
			delete_count INTEGER NOT NULL DEFAULT 0,
			updated_at TEXT,
			PRIMARY KEY (namespace, id)
		);`,
		`CREATE TABLE IF NOT EXISTS documents (
			path TEXT PRIMARY KEY,
			html TEXT,
			content_hash TEXT,
			updated_at TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_words_live ON words(namespace, live);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) timestamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}

// --- WordRegistry Implementation ---

func (s *SQLiteStore) RegisterWords(ctx context.Context, namespace string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO words (namespace, id, live, delete_count, updated_at)
		VALUES (?, ?, 1, 0, ?)
		ON CONFLICT(namespace, id) DO UPDATE SET
			live=1,
			updated_at=excluded.updated_at
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := s.timestamp()
	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, namespace, id, now); err != nil {
			return fmt.Errorf("failed to register %s id %q: %w", namespace, id, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) MarkDeleted(ctx context.Context, namespace, id string) error {
	// delete_count only moves on a live -> deleted transition
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO words (namespace, id, live, delete_count, updated_at)
		VALUES (?, ?, 0, 1, ?)
		ON CONFLICT(namespace, id) DO UPDATE SET
			delete_count=delete_count + live,
			live=0,
			updated_at=CASE WHEN live=1 THEN excluded.updated_at ELSE updated_at END
	`, namespace, id, s.timestamp())
	return err
}

// WordDeleted implements lifecycle.Sink.
func (s *SQLiteStore) WordDeleted(namespace, id string) error {
	return s.MarkDeleted(context.Background(), namespace, id)
}

func (s *SQLiteStore) GetWord(ctx context.Context, namespace, id string) (*Word, error) {
	row := s.db.QueryRowContext(ctx, "SELECT namespace, id, live, delete_count, updated_at FROM words WHERE namespace = ? AND id = ?", namespace, id)

	var w Word
	var live int
	if err := row.Scan(&w.Namespace, &w.ID, &live, &w.DeleteCount, &w.UpdatedAt); err != nil {
		return nil, err
	}
	w.Live = live == 1
	return &w, nil
}

func (s *SQLiteStore) DeletedWords(ctx context.Context, namespace string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM words WHERE namespace = ? AND live = 0 ORDER BY id", namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to query words: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan word: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// --- DocumentStore Implementation ---

func (s *SQLiteStore) SaveDocument(ctx context.Context, path, html string) (bool, error) {
	sum := sha256.Sum256([]byte(html))
	hash := hex.EncodeToString(sum[:])

	var previous string
	err := s.db.QueryRowContext(ctx, "SELECT content_hash FROM documents WHERE path = ?", path).Scan(&previous)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, err
	}
	if err == nil && previous == hash {
		return false, nil
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (path, html, content_hash, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			html=excluded.html,
			content_hash=excluded.content_hash,
			updated_at=excluded.updated_at
	`, path, html, hash, s.timestamp())
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *SQLiteStore) LoadDocument(ctx context.Context, path string) (string, bool, error) {
	var html string
	err := s.db.QueryRowContext(ctx, "SELECT html FROM documents WHERE path = ?", path).Scan(&html)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return html, true, nil
}

func (s *SQLiteStore) DeleteDocument(ctx context.Context, path string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE path = ?", path)
	return err
}
