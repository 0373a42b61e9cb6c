package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bastiangx/linkserve/internal/logger"
	"github.com/bastiangx/linkserve/pkg/lookup"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// findChunk bounds the number of ids bound into one IN clause.
const findChunk = 500

// timeLayout is fixed width so that stored times sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const schema = `
CREATE TABLE IF NOT EXISTS items (
	kg       TEXT NOT NULL,
	category TEXT NOT NULL,
	entity   TEXT NOT NULL,
	labels   BLOB,
	PRIMARY KEY (kg, category, entity)
);

CREATE TABLE IF NOT EXISTS cache (
	id            TEXT PRIMARY KEY,
	cell          TEXT NOT NULL,
	types         TEXT NOT NULL,
	kg            TEXT NOT NULL,
	fuzzy         INTEGER NOT NULL,
	lim           INTEGER NOT NULL,
	candidates    BLOB NOT NULL,
	query         TEXT,
	last_accessed TEXT NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_cache_key ON cache(cell, types, kg, fuzzy, lim);
CREATE INDEX IF NOT EXISTS idx_cache_last_accessed ON cache(last_accessed);
`

// SQLiteStore keeps items and cache entries in one SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	log *log.Logger
}

// OpenSQLite opens or creates the database at path and ensures the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	dsn := path
	memory := path == "" || path == ":memory:"
	if memory {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// every connection to :memory: would be a fresh empty database
	if memory {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	s := &SQLiteStore{db: db, log: logger.New("store")}
	s.log.Debugf("Opened sqlite store at %s", dsn)
	return s, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// PutItems inserts or replaces documents of kg in one transaction.
func (s *SQLiteStore) PutItems(kg string, docs ...lookup.Document) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO items (kg, category, entity, labels) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, doc := range docs {
		labels, err := encodeLabels(doc.Labels)
		if err != nil {
			return fmt.Errorf("encode labels of %s: %w", doc.Entity, err)
		}
		if _, err := stmt.Exec(kg, doc.Category, doc.Entity, labels); err != nil {
			return fmt.Errorf("insert %s: %w", doc.Entity, err)
		}
	}
	return tx.Commit()
}

// Find implements lookup.BackingStore. Entity filters are split into chunks so
// that large batches stay below the bound parameter limit.
func (s *SQLiteStore) Find(ctx context.Context, kg, collection string, filter lookup.Filter) iter.Seq2[lookup.Document, error] {
	return func(yield func(lookup.Document, error) bool) {
		if collection != lookup.CollectionItems {
			yield(lookup.Document{}, fmt.Errorf("%w: %s", lookup.ErrUnknownCollection, collection))
			return
		}

		if len(filter.Entities) == 0 {
			s.findChunk(ctx, kg, filter.Category, nil, yield)
			return
		}
		for start := 0; start < len(filter.Entities); start += findChunk {
			end := min(start+findChunk, len(filter.Entities))
			if !s.findChunk(ctx, kg, filter.Category, filter.Entities[start:end], yield) {
				return
			}
		}
	}
}

// findChunk yields the matching rows and reports whether iteration should continue.
func (s *SQLiteStore) findChunk(ctx context.Context, kg, category string, entities []string, yield func(lookup.Document, error) bool) bool {
	query := `SELECT entity, category, labels FROM items WHERE kg = ? AND category = ?`
	args := []any{kg, category}
	if len(entities) > 0 {
		query += ` AND entity IN (?` + strings.Repeat(`, ?`, len(entities)-1) + `)`
		for _, e := range entities {
			args = append(args, e)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		yield(lookup.Document{}, fmt.Errorf("query items: %w", err))
		return false
	}
	defer rows.Close()

	for rows.Next() {
		var (
			doc    lookup.Document
			labels []byte
		)
		if err := rows.Scan(&doc.Entity, &doc.Category, &labels); err != nil {
			yield(lookup.Document{}, fmt.Errorf("scan item: %w", err))
			return false
		}
		if doc.Labels, err = decodeLabels(labels); err != nil {
			yield(lookup.Document{}, err)
			return false
		}
		if !yield(doc, nil) {
			return false
		}
	}
	if err := rows.Err(); err != nil {
		yield(lookup.Document{}, fmt.Errorf("read items: %w", err))
		return false
	}
	return true
}

// FindOneAndUpdate implements lookup.CacheStore with a single UPDATE ... RETURNING.
func (s *SQLiteStore) FindOneAndUpdate(ctx context.Context, key lookup.CacheKey, lastAccessed time.Time) (*lookup.CacheEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE cache SET last_accessed = ?
		WHERE cell = ? AND types = ? AND kg = ? AND fuzzy = ? AND lim = ?
		RETURNING candidates, query, last_accessed`,
		lastAccessed.UTC().Format(timeLayout), key.Cell, key.Types, key.KG, key.Fuzzy, key.Limit)

	var (
		blob     []byte
		query    sql.NullString
		accessed string
	)
	if err := row.Scan(&blob, &query, &accessed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find cache entry: %w", err)
	}

	candidates, err := decodeCandidates(blob)
	if err != nil {
		return nil, err
	}
	at, err := time.Parse(timeLayout, accessed)
	if err != nil {
		return nil, fmt.Errorf("parse last_accessed: %w", err)
	}
	return &lookup.CacheEntry{Key: key, Candidates: candidates, Query: query.String, LastAccessed: at}, nil
}

// InsertOne implements lookup.CacheStore. A taken key fails with lookup.ErrDuplicateKey.
func (s *SQLiteStore) InsertOne(ctx context.Context, entry lookup.CacheEntry) error {
	blob, err := encodeCandidates(entry.Candidates)
	if err != nil {
		return err
	}
	k := entry.Key
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO cache (id, cell, types, kg, fuzzy, lim, candidates, query, last_accessed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), k.Cell, k.Types, k.KG, k.Fuzzy, k.Limit, blob, entry.Query,
		entry.LastAccessed.UTC().Format(timeLayout))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", lookup.ErrDuplicateKey, k)
		}
		return fmt.Errorf("insert cache entry: %w", err)
	}
	return nil
}

// PurgeCache removes cache entries not accessed since before.
func (s *SQLiteStore) PurgeCache(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cache WHERE last_accessed < ?`, before.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("purge cache: %w", err)
	}
	return res.RowsAffected()
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		code := se.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

var _ Store = (*SQLiteStore)(nil)
