package cache

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // SQLite driver (pure Go)

	"github.com/leapstack-labs/leapbundle/pkg/core"
)

//go:embed migrations/*.sql
var migrations embed.FS

// SQLiteStore implements Cache on a SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	hits   atomic.Int64
	misses atomic.Int64
}

var _ Cache = (*SQLiteStore)(nil)

// Open opens (creating if needed) the cache database at path and applies
// pending migrations. Use ":memory:" for an in-memory database.
func Open(ctx context.Context, path string) (*SQLiteStore, error) {
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	// One connection: writes are serialized and ":memory:" stays a single database.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping cache database: %w", err)
	}

	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// NewWithDB wraps an already migrated connection.
func NewWithDB(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Migrate runs all pending cache migrations on db.
func Migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Path returns the database path the store was opened with.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Get implements Cache.
func (s *SQLiteStore) Get(ctx context.Context, id core.ModuleIdentifier, contentHash string) (*Artifact, bool, error) {
	if s.db == nil {
		return nil, false, fmt.Errorf("database not opened")
	}

	artifact := &Artifact{Identifier: id, ContentHash: contentHash}
	var deps string

	err := s.db.QueryRowContext(ctx,
		`SELECT code, dependencies, built_at FROM build_artifacts WHERE identifier = ? AND content_hash = ?`,
		string(id), contentHash,
	).Scan(&artifact.Code, &deps, &artifact.BuiltAt)
	if errors.Is(err, sql.ErrNoRows) {
		s.misses.Add(1)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read artifact %s: %w", id, err)
	}

	if err := json.Unmarshal([]byte(deps), &artifact.Dependencies); err != nil {
		return nil, false, fmt.Errorf("failed to decode dependencies of %s: %w", id, err)
	}

	s.hits.Add(1)
	return artifact, true, nil
}

// Put implements Cache.
func (s *SQLiteStore) Put(ctx context.Context, artifact *Artifact) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	deps := artifact.Dependencies
	if deps == nil {
		deps = []core.DiscoveredDependency{}
	}
	encoded, err := json.Marshal(deps)
	if err != nil {
		return fmt.Errorf("failed to encode dependencies of %s: %w", artifact.Identifier, err)
	}

	builtAt := artifact.BuiltAt
	if builtAt.IsZero() {
		builtAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO build_artifacts (identifier, content_hash, code, dependencies, built_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(identifier) DO UPDATE SET
			content_hash = excluded.content_hash,
			code = excluded.code,
			dependencies = excluded.dependencies,
			built_at = excluded.built_at
	`, string(artifact.Identifier), artifact.ContentHash, artifact.Code, string(encoded), builtAt)
	if err != nil {
		return fmt.Errorf("failed to store artifact %s: %w", artifact.Identifier, err)
	}
	return nil
}

// BeginGeneration implements Cache.
func (s *SQLiteStore) BeginGeneration(ctx context.Context, id string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO generations (id, status, started_at) VALUES (?, ?, ?)`,
		id, GenerationStatusRunning, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to create generation: %w", err)
	}
	return nil
}

// CompleteGeneration implements Cache.
func (s *SQLiteStore) CompleteGeneration(ctx context.Context, id string, status GenerationStatus, stats GenerationStats, errMsg string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	var errVal sql.NullString
	if errMsg != "" {
		errVal = sql.NullString{String: errMsg, Valid: true}
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE generations
		SET status = ?, completed_at = ?, modules = ?, dependencies = ?, connections = ?, error = ?
		WHERE id = ?
	`, status, time.Now().UTC(), stats.Modules, stats.Dependencies, stats.Connections, errVal, id)
	if err != nil {
		return fmt.Errorf("failed to update generation: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update generation: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("generation not found: %s", id)
	}
	return nil
}

// Generation retrieves a recorded generation by id.
func (s *SQLiteStore) Generation(ctx context.Context, id string) (*Generation, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	gen := &Generation{}
	var completedAt sql.NullTime
	var errMsg sql.NullString

	err := s.db.QueryRowContext(ctx, `
		SELECT id, status, started_at, completed_at, modules, dependencies, connections, error
		FROM generations WHERE id = ?
	`, id).Scan(&gen.ID, &gen.Status, &gen.StartedAt, &completedAt,
		&gen.Stats.Modules, &gen.Stats.Dependencies, &gen.Stats.Connections, &errMsg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("generation not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get generation: %w", err)
	}

	if completedAt.Valid {
		gen.CompletedAt = &completedAt.Time
	}
	if errMsg.Valid {
		gen.Error = errMsg.String
	}
	return gen, nil
}

// Stats implements Cache.
func (s *SQLiteStore) Stats() Stats {
	return Stats{Hits: s.hits.Load(), Misses: s.misses.Load()}
}
