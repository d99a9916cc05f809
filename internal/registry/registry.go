// Package registry persists accepted algorithms in a SQLite database keyed
// by name.
package registry

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/example/pathforge/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS algorithms (
	name        TEXT PRIMARY KEY,
	description TEXT NOT NULL DEFAULT '',
	source      TEXT NOT NULL,
	created_at  DATETIME NOT NULL,
	updated_at  DATETIME NOT NULL
);
`

// Store persists algorithms in a SQLite database.
type Store struct {
	mu sync.Mutex // serializes writers; readers go straight to the pool
	db *sql.DB
}

// Open opens (or creates) a SQLite database at dbPath and ensures the
// algorithms table exists. The caller is responsible for calling Close.
// Use ":memory:" for an ephemeral store.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	db.SetMaxOpenConns(1) // prevent SQLITE_BUSY
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error { return s.db.Close() }

// Save creates, updates, or renames an algorithm. The caller asserts the
// source already passed validation; validated==false requires override.
//   - oldName == "":   create; an existing name is ErrNameConflict.
//   - oldName == name: update in place; missing name is ErrNotFound.
//   - otherwise:       rename oldName to name, rejecting occupied targets.
func (s *Store) Save(algo models.CustomAlgorithm, oldName string, validated, override bool) (models.CustomAlgorithm, error) {
	if !validated && !override {
		return models.CustomAlgorithm{}, models.ErrNotValidated
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	algo.UpdatedAt = now

	switch {
	case oldName == "":
		algo.CreatedAt = now
		_, err := s.db.Exec(`
			INSERT INTO algorithms (name, description, source, created_at, updated_at)
			VALUES (?,?,?,?,?)`,
			algo.Name, algo.Description, algo.Source, algo.CreatedAt, algo.UpdatedAt,
		)
		if err != nil {
			if taken, terr := s.exists(algo.Name); terr == nil && taken {
				return models.CustomAlgorithm{}, fmt.Errorf("%q: %w", algo.Name, models.ErrNameConflict)
			}
			return models.CustomAlgorithm{}, fmt.Errorf("insert algorithm: %w", err)
		}
		return algo, nil

	case oldName == algo.Name:
		return s.update(algo, oldName)

	default:
		if taken, err := s.exists(algo.Name); err != nil {
			return models.CustomAlgorithm{}, err
		} else if taken {
			return models.CustomAlgorithm{}, fmt.Errorf("%q: %w", algo.Name, models.ErrNameConflict)
		}
		return s.update(algo, oldName)
	}
}

// update rewrites the row at oldName, preserving created_at. Caller holds mu.
func (s *Store) update(algo models.CustomAlgorithm, oldName string) (models.CustomAlgorithm, error) {
	res, err := s.db.Exec(`
		UPDATE algorithms SET name=?, description=?, source=?, updated_at=?
		WHERE name=?`,
		algo.Name, algo.Description, algo.Source, algo.UpdatedAt, oldName,
	)
	if err != nil {
		return models.CustomAlgorithm{}, fmt.Errorf("update algorithm: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return models.CustomAlgorithm{}, err
	}
	if rows == 0 {
		return models.CustomAlgorithm{}, fmt.Errorf("%q: %w", oldName, models.ErrNotFound)
	}
	err = s.db.QueryRow(`SELECT created_at FROM algorithms WHERE name=?`, algo.Name).Scan(&algo.CreatedAt)
	if err != nil {
		return models.CustomAlgorithm{}, fmt.Errorf("reload algorithm: %w", err)
	}
	return algo, nil
}

func (s *Store) exists(name string) (bool, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM algorithms WHERE name=?`, name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check name: %w", err)
	}
	return n > 0, nil
}

// Get retrieves a full algorithm, source included.
func (s *Store) Get(name string) (models.CustomAlgorithm, error) {
	var a models.CustomAlgorithm
	err := s.db.QueryRow(`
		SELECT name, description, source, created_at, updated_at
		FROM algorithms WHERE name=?`, name).
		Scan(&a.Name, &a.Description, &a.Source, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return models.CustomAlgorithm{}, fmt.Errorf("%q: %w", name, models.ErrNotFound)
	}
	if err != nil {
		return models.CustomAlgorithm{}, fmt.Errorf("get algorithm: %w", err)
	}
	return a, nil
}

// GetInfo retrieves an algorithm's metadata without its source text.
func (s *Store) GetInfo(name string) (models.CustomAlgorithm, error) {
	var a models.CustomAlgorithm
	err := s.db.QueryRow(`
		SELECT name, description, created_at, updated_at
		FROM algorithms WHERE name=?`, name).
		Scan(&a.Name, &a.Description, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return models.CustomAlgorithm{}, fmt.Errorf("%q: %w", name, models.ErrNotFound)
	}
	if err != nil {
		return models.CustomAlgorithm{}, fmt.Errorf("get algorithm info: %w", err)
	}
	return a, nil
}

// List returns metadata for every algorithm, ordered by name. Sources are
// omitted; fetch them individually with Get.
func (s *Store) List() ([]models.CustomAlgorithm, error) {
	rows, err := s.db.Query(`
		SELECT name, description, created_at, updated_at
		FROM algorithms ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list algorithms: %w", err)
	}
	defer rows.Close()

	var out []models.CustomAlgorithm
	for rows.Next() {
		var a models.CustomAlgorithm
		if err := rows.Scan(&a.Name, &a.Description, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan algorithm: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Delete removes an algorithm by name.
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(`DELETE FROM algorithms WHERE name=?`, name)
	if err != nil {
		return fmt.Errorf("delete algorithm: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%q: %w", name, models.ErrNotFound)
	}
	return nil
}
