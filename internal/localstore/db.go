// Package localstore implements the embedded, offline-first relational
// store: per-collection tables, the durable sync queue, the dead-letter
// table, conflict records, and the resurrection guard that protects
// deletes from being undone by late-arriving writes or imports.
package localstore

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/akeen90/nutrasafe-beta-sub009/internal/clock"
	_ "modernc.org/sqlite"
)

const dbFileName = "nutrasafe.db"

// staleTombstoneGC is how long a confirmed-settled soft-deleted row may
// remain before housekeeping removes it outright (spec §6).
const staleTombstoneGC = 30 * 24 * time.Hour

// Store owns the single database handle, the in-process writer mutex, and
// the cross-process file lock. All mutation goes through withWriteLock;
// reads may run concurrently under WAL semantics.
type Store struct {
	conn    *sql.DB
	baseDir string
	dbPath  string
	mu      sync.Mutex // in-process writer serialization
	clock   clock.Clock
	log     *slog.Logger

	events *eventBus

	// recovered is set once at Open if this call created a fresh database
	// (first run, or recovery from corruption). It is read-only after Open
	// returns, so it needs no lock. WasRecovered lets a caller that starts
	// up after the one-shot database-recovered publish has already fired
	// (the engine is always constructed after Open returns) still notice.
	recovered bool
}

// WasRecovered reports whether this Open call created a fresh database —
// either because none existed yet, or because the previous file failed its
// integrity check and was quarantined (spec §3, database-recovered).
func (s *Store) WasRecovered() bool {
	return s.recovered
}

// Option configures a Store at construction time.
type Option func(*Store)

// WithClock overrides the Store's time source (tests only; production
// defaults to clock.SystemClock{}).
func WithClock(c clock.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// WithLogger overrides the Store's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.log = l }
}

func openConn(dbPath string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite has a single writer; pinning the pool to one connection
	// prevents the standard library from opening extras that could race
	// on the WAL/SHM files.
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	conn.Exec("PRAGMA synchronous=NORMAL")
	conn.Exec("PRAGMA foreign_keys=ON")

	return conn, nil
}

// integrityOK runs `PRAGMA integrity_check` and reports whether the
// database file is sound.
func integrityOK(conn *sql.DB) bool {
	var result string
	if err := conn.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return false
	}
	return result == "ok"
}

// Open creates or opens the database at baseDir/nutrasafe.db, running
// integrity checks, schema creation, migrations, and startup housekeeping.
//
// On corruption, the existing file is renamed with a timestamp suffix and
// a fresh database is created; DatabaseRecovered fires on the event bus so
// the sync engine can schedule a full pull.
func Open(baseDir string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("create base dir: %w", err)
	}
	dbPath := filepath.Join(baseDir, dbFileName)

	s := &Store{
		baseDir: baseDir,
		dbPath:  dbPath,
		clock:   clock.SystemClock{},
		log:     slog.Default(),
		events:  newEventBus(),
	}
	for _, opt := range opts {
		opt(s)
	}

	fresh := false
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fresh = true
	}

	conn, err := openConn(dbPath)
	if err != nil {
		return nil, err
	}

	if !fresh && !integrityOK(conn) {
		conn.Close()
		if err := quarantineCorrupt(dbPath, s.clock); err != nil {
			return nil, fmt.Errorf("quarantine corrupt database: %w", err)
		}
		conn, err = openConn(dbPath)
		if err != nil {
			return nil, err
		}
		fresh = true
	}

	s.conn = conn

	if _, err := conn.Exec(schemaDDL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	if err := s.runMigrations(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	if fresh {
		s.log.Info("localstore: fresh database created", "path", dbPath)
		s.recovered = true
		s.events.publish(EventDatabaseRecovered, nil)
	}

	if err := s.runStartupHousekeeping(); err != nil {
		s.log.Warn("localstore: startup housekeeping failed", "err", err)
	}

	return s, nil
}

// quarantineCorrupt renames a corrupt database file aside with a
// timestamp suffix so a fresh one can be created in its place.
func quarantineCorrupt(dbPath string, c clock.Clock) error {
	suffix := c.Now().UTC().Format("20060102T150405Z")
	backup := fmt.Sprintf("%s_corrupt_%s", dbPath, suffix)
	if err := os.Rename(dbPath, backup); err != nil && !os.IsNotExist(err) {
		return err
	}
	// Best-effort: carry the WAL/SHM siblings along so nothing stale lingers.
	os.Rename(dbPath+"-wal", backup+"-wal")
	os.Rename(dbPath+"-shm", backup+"-shm")
	return nil
}

// Close flushes the WAL back into the main file and closes the connection.
func (s *Store) Close() error {
	s.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return s.conn.Close()
}

// Events returns the store's event bus (spec §6 "Events emitted").
func (s *Store) Events() *eventBus { return s.events }

// Conn exposes the raw *sql.DB for the sync engine's conflict
// transactions; the engine never opens its own connection (spec §3
// "Ownership").
func (s *Store) Conn() *sql.DB { return s.conn }

// withWriteLock serializes fn against both other in-process writers and
// other OS processes sharing this database file.
func (s *Store) withWriteLock(fn func(tx *sql.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	locker := newWriteLocker(s.baseDir)
	if err := locker.acquire(defaultTimeout); err != nil {
		return err
	}
	defer locker.release()

	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// nowSeconds returns the current time as seconds-since-epoch (I7).
func (s *Store) nowSeconds() float64 { return clock.NowSeconds(s.clock) }
