package store

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/bloghub/internal/post"
)

const postColumns = `number, uid, slug, title, author, body, html, excerpt, tags,
	created_at, updated_at, issue_url, discussion_url, fingerprint, draft`

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (creating if needed) the database at dbPath.
// Use ":memory:" for an in-memory database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// Every connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS posts (
		number INTEGER PRIMARY KEY,
		uid TEXT NOT NULL,
		slug TEXT NOT NULL,
		title TEXT NOT NULL,
		author TEXT NOT NULL DEFAULT '',
		body TEXT NOT NULL,
		html TEXT NOT NULL,
		excerpt TEXT NOT NULL DEFAULT '',
		tags TEXT NOT NULL DEFAULT '[]',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		issue_url TEXT NOT NULL DEFAULT '',
		discussion_url TEXT NOT NULL DEFAULT '',
		fingerprint TEXT NOT NULL DEFAULT '',
		draft INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_posts_slug ON posts(slug);
	CREATE INDEX IF NOT EXISTS idx_posts_created ON posts(created_at);
	CREATE TABLE IF NOT EXISTS history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		number INTEGER NOT NULL,
		action TEXT NOT NULL,
		fingerprint TEXT NOT NULL DEFAULT '',
		at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_history_number ON history(number);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Upsert inserts or replaces a post.
func (s *SQLiteStore) Upsert(ctx context.Context, p *post.Post) error {
	if p == nil || p.Number <= 0 {
		return fmt.Errorf("upsert post: invalid issue number")
	}
	tags, err := json.Marshal(nonNil(p.Tags))
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO posts (`+postColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(number) DO UPDATE SET
			uid = excluded.uid, slug = excluded.slug, title = excluded.title,
			author = excluded.author, body = excluded.body, html = excluded.html,
			excerpt = excluded.excerpt, tags = excluded.tags,
			created_at = excluded.created_at, updated_at = excluded.updated_at,
			issue_url = excluded.issue_url, discussion_url = excluded.discussion_url,
			fingerprint = excluded.fingerprint, draft = excluded.draft`,
		p.Number, p.UID, p.Slug, p.Title, p.Author, p.Body, p.HTML, p.Excerpt, string(tags),
		p.CreatedAt.UTC().Unix(), p.UpdatedAt.UTC().Unix(), p.IssueURL, p.DiscussionURL,
		p.Fingerprint, p.Draft,
	)
	if err != nil {
		return fmt.Errorf("upsert post %d: %w", p.Number, err)
	}
	return nil
}

// Get returns the post stored for an issue number.
func (s *SQLiteStore) Get(ctx context.Context, number int) (*post.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE number = ?`, number)
	return scanPost(row)
}

// GetBySlug returns the oldest post with the slug.
func (s *SQLiteStore) GetBySlug(ctx context.Context, slug string) (*post.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM posts WHERE slug = ? ORDER BY created_at, number LIMIT 1`, slug)
	return scanPost(row)
}

// List returns every post, newest first.
func (s *SQLiteStore) List(ctx context.Context) ([]*post.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+postColumns+` FROM posts ORDER BY created_at DESC, number DESC`)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var posts []*post.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return posts, nil
}

// Delete removes a post and reports whether one existed.
func (s *SQLiteStore) Delete(ctx context.Context, number int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE number = ?`, number)
	if err != nil {
		return false, fmt.Errorf("delete post %d: %w", number, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete post %d: %w", number, err)
	}
	return n > 0, nil
}

// Record appends a history entry stamped with the current time.
func (s *SQLiteStore) Record(ctx context.Context, number int, action, fingerprint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO history (number, action, fingerprint, at) VALUES (?, ?, ?, ?)`,
		number, action, fingerprint, time.Now().UTC().Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

// History returns the entries for an issue in insertion order.
func (s *SQLiteStore) History(ctx context.Context, number int) ([]HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, number, action, fingerprint, at FROM history WHERE number = ? ORDER BY id`, number)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		var at int64
		if err := rows.Scan(&e.ID, &e.Number, &e.Action, &e.Fingerprint, &at); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		e.At = time.Unix(at, 0).UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return entries, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*post.Post, error) {
	var (
		p                post.Post
		tags             string
		created, updated int64
	)
	err := row.Scan(&p.Number, &p.UID, &p.Slug, &p.Title, &p.Author, &p.Body, &p.HTML, &p.Excerpt,
		&tags, &created, &updated, &p.IssueURL, &p.DiscussionURL, &p.Fingerprint, &p.Draft)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan post: %w", err)
	}
	if err := json.Unmarshal([]byte(tags), &p.Tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags for post %d: %w", p.Number, err)
	}
	if len(p.Tags) == 0 {
		p.Tags = nil
	}
	p.CreatedAt = time.Unix(created, 0).UTC()
	p.UpdatedAt = time.Unix(updated, 0).UTC()
	return &p, nil
}

func nonNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
