package store

import (
	"database/sql"
	"fmt"
)

// AdminStore covers maintenance operations that cut across every table.
type AdminStore struct {
	db *sql.DB
}

func NewAdminStore(db *sql.DB) *AdminStore {
	return &AdminStore{db: db}
}

// ResetAll wipes every entity in one transaction. This is the only code
// path that deletes completions or monthly results.
func (s *AdminStore) ResetAll() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"completions", "monthly_results", "chores", "people"} {
		if _, err := tx.Exec(`DELETE FROM ` + table); err != nil {
			return fmt.Errorf("reset %s: %w", table, err)
		}
	}
	return tx.Commit()
}
