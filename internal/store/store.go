// Package store provides SQLite persistence for drift: the content items
// the server paginates and the engagement signals clients report back.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/perivale/drift/internal/content"
)

// Store handles SQLite persistence. NOT an interface - concrete type.
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open creates a Store at the given database path, creating tables as
// needed. Uses WAL mode for file-based databases.
func Open(dbPath string) (*Store, error) {
	connStr := dbPath
	if dbPath == ":memory:" {
		// Shared cache so every pooled connection sees the same database
		connStr = "file::memory:?cache=shared"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return s, nil
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS items (
		id TEXT PRIMARY KEY,
		slug TEXT NOT NULL UNIQUE,
		topic_id TEXT,
		category TEXT NOT NULL,
		title TEXT NOT NULL,
		summary TEXT,
		url TEXT,
		source_name TEXT,
		tags TEXT,
		relevance REAL,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_items_created ON items(created_at DESC, id DESC);
	CREATE INDEX IF NOT EXISTS idx_items_category ON items(category);

	CREATE TABLE IF NOT EXISTS engagement (
		session_id TEXT NOT NULL,
		content_id TEXT NOT NULL,
		seconds INTEGER NOT NULL DEFAULT 0,
		interest REAL NOT NULL DEFAULT 0,
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (session_id, content_id)
	);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// SaveItems stores items, returning the count of new rows. Duplicates
// (by id or slug) are silently ignored.
func (s *Store) SaveItems(items []content.Item) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(items) == 0 {
		return 0, nil
	}

	stmt, err := s.db.Prepare(`
		INSERT OR IGNORE INTO items (
			id, slug, topic_id, category, title, summary, url,
			source_name, tags, relevance, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	newCount := 0
	for _, item := range items {
		tags, err := json.Marshal(item.Tags)
		if err != nil {
			return newCount, fmt.Errorf("encode tags: %w", err)
		}
		result, err := stmt.Exec(
			item.ID,
			item.Slug,
			item.TopicID,
			item.Category,
			item.Title,
			item.Summary,
			item.URL,
			item.SourceName,
			string(tags),
			item.RelevanceScore,
			item.CreatedAt.UTC(),
		)
		if err != nil {
			return newCount, err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return newCount, err
		}
		if affected > 0 {
			newCount++
		}
	}
	return newCount, nil
}

// GetPage returns one keyset-paginated page of items, newest first.
// The continuation cursor, when present, replaces page-based offsets so
// pagination stays stable while new items are being ingested.
func (s *Store) GetPage(req content.PageRequest) (*content.PageResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if req.PageSize <= 0 {
		req.PageSize = 20
	}

	var where []string
	var args []any

	if req.Cursor != "" {
		createdAt, id, err := DecodeCursor(req.Cursor)
		if err != nil {
			return nil, err
		}
		// Datetimes compare textually in SQLite, so the zone must match
		// what SaveItems stored.
		createdAt = createdAt.UTC()
		where = append(where, "(created_at < ? OR (created_at = ? AND id < ?))")
		args = append(args, createdAt, createdAt, id)
	}
	if len(req.Categories) > 0 {
		where = append(where, "category IN ("+placeholders(len(req.Categories))+")")
		for _, c := range req.Categories {
			args = append(args, c)
		}
	}
	if len(req.ExcludeIDs) > 0 {
		where = append(where, "id NOT IN ("+placeholders(len(req.ExcludeIDs))+")")
		for _, id := range req.ExcludeIDs {
			args = append(args, id)
		}
	}

	query := `
		SELECT id, slug, topic_id, category, title, summary, url,
			source_name, tags, relevance, created_at
		FROM items
	`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, req.PageSize+1) // one extra row decides hasMore

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []content.Item
	for rows.Next() {
		var item content.Item
		var tags sql.NullString
		err := rows.Scan(
			&item.ID,
			&item.Slug,
			&item.TopicID,
			&item.Category,
			&item.Title,
			&item.Summary,
			&item.URL,
			&item.SourceName,
			&tags,
			&item.RelevanceScore,
			&item.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		if tags.Valid && tags.String != "" && tags.String != "null" {
			if err := json.Unmarshal([]byte(tags.String), &item.Tags); err != nil {
				return nil, fmt.Errorf("decode tags for %s: %w", item.ID, err)
			}
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := &content.PageResult{Items: items}
	if len(items) > req.PageSize {
		result.Items = items[:req.PageSize]
		result.HasMore = true
	}
	if n := len(result.Items); n > 0 {
		last := result.Items[n-1]
		result.NextCursor = EncodeCursor(last.CreatedAt, last.ID)
	}
	return result, nil
}

// SaveDuration records reported view seconds for an item. Reports carry
// the accumulated total, so conflicting rows keep the larger value.
func (s *Store) SaveDuration(sessionID, contentID string, seconds int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO engagement (session_id, content_id, seconds, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(session_id, content_id) DO UPDATE SET
			seconds = MAX(seconds, excluded.seconds),
			updated_at = excluded.updated_at
	`, sessionID, contentID, seconds, time.Now())
	return err
}

// SaveInterest folds a flushed hover-interest score into the item's
// running total. Flushes are partial, so scores are additive.
func (s *Store) SaveInterest(sessionID, contentID string, score float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO engagement (session_id, content_id, interest, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(session_id, content_id) DO UPDATE SET
			interest = engagement.interest + excluded.interest,
			updated_at = excluded.updated_at
	`, sessionID, contentID, score, time.Now())
	return err
}

// GetEngagement returns the recorded engagement for one item in one
// session. Zero values when no row exists.
func (s *Store) GetEngagement(sessionID, contentID string) (seconds int, interest float64, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`
		SELECT seconds, interest FROM engagement
		WHERE session_id = ? AND content_id = ?
	`, sessionID, contentID)
	err = row.Scan(&seconds, &interest)
	if err == sql.ErrNoRows {
		return 0, 0, nil
	}
	return seconds, interest, err
}

// ItemCount returns the total number of stored items.
func (s *Store) ItemCount() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM items").Scan(&n)
	return n, err
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
