// Package registry is the persistent record store for digitization
// projects, their documents, and the runtime settings.
//
// A Project owns zero or more Documents. Documents track the conversion
// lifecycle (pending → processing → completed/failed) together with the
// on-disk paths of the original upload and the processed outputs.
// Settings is a flat singleton key/value table read once per conversion
// attempt.
//
// Usage:
//
//	reg, err := registry.Open("data/docuforge.db")
//	defer reg.Close()
package registry

import (
	"database/sql"
	"fmt"

	"github.com/mvillars/docuforge/dbopen"
)

// Store wraps the SQLite database holding projects, documents and settings.
type Store struct {
	DB *sql.DB
}

// Open opens (creating if necessary) the registry database at path and
// initialises the schema.
func Open(path string) (*Store, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(schema))
	if err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	s := &Store{DB: db}
	if err := s.seedSettings(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an already-open database (used by tests with dbopen.OpenMemory).
// The schema is applied and default settings seeded.
func New(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("registry: schema: %w", err)
	}
	s := &Store{DB: db}
	if err := s.seedSettings(); err != nil {
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.DB.Close()
}
