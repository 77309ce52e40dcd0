// Package docstore persists per-user JSON documents in SQLite and provides
// the merge and partial-update semantics the rest of the system builds on.
// All mutations to one user's document are serialized through a per-user
// lock, so read-modify-write callers cannot lose each other's updates.
package docstore

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrNotFound is returned when a requested document does not exist.
var ErrNotFound = errors.New("not found")

// MutateFunc receives the current raw document (nil if absent) and returns
// the value to persist in its place. Returning an error aborts the write.
type MutateFunc func(raw []byte) (any, error)

// Store wraps a SQLite database holding one JSON document per user.
type Store struct {
	db *sql.DB

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Open opens (or creates) the database in dataDir and runs pending
// migrations. Pass ":memory:" as dataDir for an in-memory database (tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "disha.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db, locks: make(map[string]*sync.Mutex)}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		var version int
		if _, err := fmt.Sscanf(entry.Name(), "%d_", &version); err != nil {
			return fmt.Errorf("parsing migration version from %q: %w", entry.Name(), err)
		}

		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}
	return nil
}

// userLock returns the mutex serializing mutations for one user.
func (s *Store) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	return l
}

// Get returns the raw JSON document for userID, or ErrNotFound.
func (s *Store) Get(ctx context.Context, userID string) ([]byte, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, "SELECT doc FROM users WHERE uid = ?", userID).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(doc), nil
}

// Set writes the document for userID. With merge set, the incoming document
// is deep-merged over the stored one (maps merge recursively, everything
// else is replaced); otherwise it replaces the document wholesale.
func (s *Store) Set(ctx context.Context, userID string, doc any, merge bool) error {
	l := s.userLock(userID)
	l.Lock()
	defer l.Unlock()

	incoming, err := toMap(doc)
	if err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}

	if merge {
		existing, err := s.Get(ctx, userID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		if existing != nil {
			var base map[string]any
			if err := json.Unmarshal(existing, &base); err != nil {
				return fmt.Errorf("decoding stored document: %w", err)
			}
			incoming = deepMerge(base, incoming)
		}
	}

	return s.write(ctx, userID, incoming)
}

// UpdateFields applies dotted-path partial updates (e.g.
// "compass.recommendations") without rewriting the rest of the document.
// Returns ErrNotFound if the user has no document.
func (s *Store) UpdateFields(ctx context.Context, userID string, fields map[string]any) error {
	l := s.userLock(userID)
	l.Lock()
	defer l.Unlock()

	raw, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("decoding stored document: %w", err)
	}
	for path, value := range fields {
		setPath(doc, path, value)
	}
	return s.write(ctx, userID, doc)
}

// Mutate runs a serialized read-modify-write on the user's document. fn
// receives the current raw document (nil if absent); its return value is
// persisted as the new document. If fn returns an error nothing is written.
func (s *Store) Mutate(ctx context.Context, userID string, fn MutateFunc) error {
	l := s.userLock(userID)
	l.Lock()
	defer l.Unlock()

	raw, err := s.Get(ctx, userID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	next, err := fn(raw)
	if err != nil {
		return err
	}

	doc, err := toMap(next)
	if err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}
	return s.write(ctx, userID, doc)
}

// Delete removes the user's document. Returns ErrNotFound if absent.
func (s *Store) Delete(ctx context.Context, userID string) error {
	l := s.userLock(userID)
	l.Lock()
	defer l.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE uid = ?", userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) write(ctx context.Context, userID string, doc map[string]any) error {
	encoded, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (uid, doc, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(uid) DO UPDATE SET doc = excluded.doc, updated_at = excluded.updated_at`,
		userID, string(encoded), time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// toMap round-trips an arbitrary value through JSON into a generic map.
func toMap(v any) (map[string]any, error) {
	if m, ok := v.(map[string]any); ok {
		return m, nil
	}
	encoded, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(encoded, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// deepMerge overlays incoming onto base: nested maps merge recursively,
// any other value (lists included) replaces the stored one.
func deepMerge(base, incoming map[string]any) map[string]any {
	for k, v := range incoming {
		if vm, ok := v.(map[string]any); ok {
			if bm, ok := base[k].(map[string]any); ok {
				base[k] = deepMerge(bm, vm)
				continue
			}
		}
		base[k] = v
	}
	return base
}

// setPath writes value at a dotted path, creating intermediate maps as
// needed. A non-map value along the path is replaced by a map.
func setPath(doc map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	cur := doc
	for _, part := range parts[:len(parts)-1] {
		next, ok := cur[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			cur[part] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = value
}
