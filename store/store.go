// Package store implements the optional persisted-container contract from
// spec.md §6: "a binary or tabular form containing, per frame, the ordered
// list of entries; when loading, entity IDs are minted fresh via the
// registry's ensureId contract." Backed by modernc.org/sqlite (pure Go) with
// schema migrations through golang-migrate/migrate/v4, the same pairing
// banshee-data-velocity.report uses for its own track store.
package store

import (
	"database/sql"
	"embed"
	"fmt"
	"log"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/trackkit/trackkit"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB wraps a sqlite-backed container store.
type DB struct {
	*sql.DB
}

// Open creates or opens the sqlite file at path and migrates it to the
// latest schema version.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %q: %w", path, err)
	}
	db := &DB{sqlDB}
	if err := db.migrateUp(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) migrateUp() error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("store: migration source: %w", err)
	}
	driver, err := sqlite.WithInstance(db.DB, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("store: migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("store: migrate instance: %w", err)
	}
	m.Log = &migrateLogger{}
	// Not closing m: the sqlite driver's Close() would close db.DB, which
	// is owned and closed separately by DB.Close().
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("store: migrate up: %w", err)
	}
	return nil
}

type migrateLogger struct{}

func (l *migrateLogger) Printf(format string, v ...interface{}) { log.Printf("[store.migrate] "+format, v...) }
func (l *migrateLogger) Verbose() bool                          { return false }

// Codec converts a container's payload type to and from bytes for storage.
type Codec[T any] struct {
	Encode func(T) ([]byte, error)
	Decode func([]byte) (T, error)
}

// SaveContainer writes every entry of ts into container, replacing any
// prior contents under that name.
func SaveContainer[T any](db *DB, container string, ts *trackkit.TimeSeries[T], codec Codec[T]) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM container_entries WHERE container = ?`, container); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO container_entries (container, time_index, local_index, data_key, kind, payload) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	var outerErr error
	ts.GetAllEntries(func(t trackkit.TimeIndex, entries []trackkit.Entry[T]) {
		if outerErr != nil {
			return
		}
		for i, e := range entries {
			payload, err := codec.Encode(e.Data)
			if err != nil {
				outerErr = err
				return
			}
			if _, err := stmt.Exec(container, int64(t), i, container, 0, payload); err != nil {
				outerErr = err
				return
			}
		}
	})
	if outerErr != nil {
		return outerErr
	}
	return tx.Commit()
}

// LoadContainer replays container's rows in (time_index, local_index) order
// into a fresh TimeSeries bound to reg, minting entity IDs via EnsureID per
// spec.md §6.
func LoadContainer[T any](db *DB, container string, reg *trackkit.EntityRegistry, dataKey string, kind trackkit.EntityKind, codec Codec[T]) (*trackkit.TimeSeries[T], error) {
	rows, err := db.Query(`SELECT time_index, local_index, payload FROM container_entries WHERE container = ? ORDER BY time_index, local_index`, container)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ts := trackkit.NewTimeSeries[T]()
	ts.BindIdentity(reg, dataKey, kind)
	for rows.Next() {
		var timeIdx int64
		var localIdx int
		var payload []byte
		if err := rows.Scan(&timeIdx, &localIdx, &payload); err != nil {
			return nil, err
		}
		data, err := codec.Decode(payload)
		if err != nil {
			return nil, err
		}
		ts.AddAtTime(trackkit.TimeIndex(timeIdx), data, trackkit.InvalidEntityID, trackkit.NotifyNo)
	}
	return ts, rows.Err()
}
